package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"hulugan/backend/internal/domain"
)

func testView(name string, due time.Time) domain.InstallmentView {
	return domain.InstallmentView{
		Installment: domain.Installment{
			CustomerName:      name,
			Term:              6,
			Total:             21990,
			PartialAmountPaid: 5000,
			DateReleased:      due.AddDate(0, -5, 0),
			InstallmentDue:    due,
			Status:            domain.StatusOngoing,
		},
		Item:       &domain.Item{ItemName: "Galaxy A54 5G", ItemIMEI: "356789104563218"},
		BranchName: "Poblacion",
	}
}

func openWorkbook(t *testing.T, w *Workbook) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func cell(t *testing.T, f *excelize.File, sheet string, ref string) string {
	t.Helper()
	value, err := f.GetCellValue(sheet, ref)
	if err != nil {
		t.Fatalf("get cell %s: %v", ref, err)
	}
	return value
}

func TestInstallmentsWorkbookRowsAndHeaders(t *testing.T) {
	due := time.Date(2025, time.August, 15, 0, 0, 0, 0, time.UTC)
	w, err := InstallmentsWorkbook([]domain.InstallmentView{testView("Maria Santos", due)}, false)
	if err != nil {
		t.Fatalf("build workbook: %v", err)
	}

	f := openWorkbook(t, w)
	if got := cell(t, f, "Installments", "A1"); got != "Due" {
		t.Fatalf("expected Due header, got %q", got)
	}
	if got := cell(t, f, "Installments", "A2"); got != "2025-08-15" {
		t.Fatalf("expected due date in first row, got %q", got)
	}
	if got := cell(t, f, "Installments", "C2"); got != "Maria Santos" {
		t.Fatalf("expected customer name, got %q", got)
	}
	if got := cell(t, f, "Installments", "I2"); got != "Galaxy A54 5G" {
		t.Fatalf("expected unit name, got %q", got)
	}
	if got := cell(t, f, "Installments", "R1"); got != "" {
		t.Fatalf("expected no branch column for admin export, got %q", got)
	}
}

func TestInstallmentsWorkbookAddsBranchColumnForSuper(t *testing.T) {
	due := time.Date(2025, time.August, 15, 0, 0, 0, 0, time.UTC)
	w, err := InstallmentsWorkbook([]domain.InstallmentView{testView("Maria Santos", due)}, true)
	if err != nil {
		t.Fatalf("build workbook: %v", err)
	}

	f := openWorkbook(t, w)
	if got := cell(t, f, "Installments", "R1"); got != "Branch" {
		t.Fatalf("expected Branch header, got %q", got)
	}
	if got := cell(t, f, "Installments", "R2"); got != "Poblacion" {
		t.Fatalf("expected branch name, got %q", got)
	}
}

func TestDuesWorkbookSections(t *testing.T) {
	dueToday := time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC)
	lapsed := time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)
	dues := &domain.DuesResponse{
		Purple: []domain.InstallmentView{testView("Maria Santos", dueToday)},
		Yellow: []domain.InstallmentView{testView("Jun Cruz", lapsed)},
	}

	w, err := DuesWorkbook(dues, false)
	if err != nil {
		t.Fatalf("build workbook: %v", err)
	}

	f := openWorkbook(t, w)
	if got := cell(t, f, "Dues", "A1"); got != "Due Today" {
		t.Fatalf("expected Due Today section title, got %q", got)
	}
	if got := cell(t, f, "Dues", "C3"); got != "Maria Santos" {
		t.Fatalf("expected due-today customer, got %q", got)
	}
	if got := cell(t, f, "Dues", "A5"); got != "Lapse" {
		t.Fatalf("expected Lapse section title, got %q", got)
	}
	if got := cell(t, f, "Dues", "C7"); got != "Jun Cruz" {
		t.Fatalf("expected lapsed customer, got %q", got)
	}
}
