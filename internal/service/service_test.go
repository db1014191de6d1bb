package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"hulugan/backend/internal/cache"
	"hulugan/backend/internal/domain"
	"hulugan/backend/internal/store"
	"hulugan/backend/internal/store/memory"
)

var testNow = time.Date(2025, time.June, 16, 10, 0, 0, 0, time.UTC)

var (
	elenaActor = domain.Actor{Username: "admin", Name: "Elena Reyes", Role: domain.RoleAdmin, BranchID: "br-poblacion"}
	marcoActor = domain.Actor{Username: "marco", Name: "Marco Dizon", Role: domain.RoleAdmin, BranchID: "br-bagumbayan"}
	superActor = domain.Actor{Username: "super", Name: "Head Office", Role: domain.RoleSuper}
)

func newTestService(promote bool) (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	svc := New(repo, cache.NoopDuesCache{}, promote)
	svc.now = func() time.Time { return testNow }
	return svc, repo
}

func createTestInstallment(t *testing.T, svc *Service, ctx context.Context, itemID string, released string) *domain.InstallmentView {
	t.Helper()
	view, err := svc.CreateInstallment(ctx, domain.InstallmentCreateRequest{
		ItemID:              itemID,
		CustomerName:        "Maria Santos",
		CustomerFullAddress: "123 Mabini St, Poblacion",
		CustomerOccupation:  "Teacher",
		PhoneNumber:         "09171234567",
		Term:                6,
		Total:               21990,
		PartialAmountPaid:   5000,
		DateReleased:        released,
	})
	if err != nil {
		t.Fatalf("create installment failed: %v", err)
	}
	return view
}

func TestCreateInstallmentFullFlow(t *testing.T) {
	svc, repo := newTestService(false)
	ctx := WithActor(context.Background(), elenaActor)

	view := createTestInstallment(t, svc, ctx, "itm-a54", "2025-03-15")

	if got := view.InstallmentDue.Format("2006-01-02"); got != "2025-08-15" {
		t.Fatalf("expected due 2025-08-15, got %s", got)
	}
	if got := view.LatestPaymentDate.Format("2006-01-02"); got != "2025-04-15" {
		t.Fatalf("expected first collection 2025-04-15, got %s", got)
	}
	if view.MonthlyPayment != 2831.67 {
		t.Fatalf("expected monthly 2831.67, got %v", view.MonthlyPayment)
	}
	if len(view.MonthsToPay) != 1 {
		t.Fatalf("expected down payment ledger entry, got %d entries", len(view.MonthsToPay))
	}
	if view.MonthsToPay[0].SelectedMonth != "March (Down Payment)" {
		t.Fatalf("unexpected down payment label: %s", view.MonthsToPay[0].SelectedMonth)
	}
	if view.MonthsToPay[0].Payment != 5000 {
		t.Fatalf("expected down payment 5000, got %v", view.MonthsToPay[0].Payment)
	}

	item, err := repo.GetItem(ctx, "itm-a54")
	if err != nil {
		t.Fatalf("get item failed: %v", err)
	}
	if item.Stocks != 7 || item.NumberOfSold != 4 {
		t.Fatalf("expected stock 7 / sold 4, got %d / %d", item.Stocks, item.NumberOfSold)
	}

	customers, err := svc.ListCustomers(ctx)
	if err != nil {
		t.Fatalf("list customers failed: %v", err)
	}
	if len(customers) != 1 || customers[0].Name != "Maria Santos" {
		t.Fatalf("expected customer record for Maria Santos, got %+v", customers)
	}

	employees, err := svc.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("list employees failed: %v", err)
	}
	if len(employees) != 1 || employees[0].NumberOfTransactions != 43 {
		t.Fatalf("expected employee counter 43, got %+v", employees)
	}

	summary, err := svc.SalesSummary(ctx, "", "")
	if err != nil {
		t.Fatalf("sales summary failed: %v", err)
	}
	if summary.SaleCount != 1 || summary.TotalAmount != 5000 {
		t.Fatalf("expected one 5000 sale, got %d / %v", summary.SaleCount, summary.TotalAmount)
	}

	logs, err := svc.ListLogs(ctx, domain.LogCategoryInstallment, 10)
	if err != nil {
		t.Fatalf("list logs failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected one installment log entry, got %d", len(logs))
	}
}

func TestCreateInstallmentRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := WithActor(context.Background(), superActor)

	_, err := svc.CreateInstallment(ctx, domain.InstallmentCreateRequest{
		ItemID:       "itm-a54",
		CustomerName: "Maria Santos",
		Term:         6,
		Total:        21990,
		DateReleased: "2025-03-15",
	})
	if err == nil {
		t.Fatalf("expected super create installment to fail")
	}
}

func TestCreateInstallmentRejectsOtherBranchItem(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := WithActor(context.Background(), elenaActor)

	_, err := svc.CreateInstallment(ctx, domain.InstallmentCreateRequest{
		ItemID:       "itm-oppoa3x",
		CustomerName: "Maria Santos",
		Term:         6,
		Total:        6499,
		DateReleased: "2025-03-15",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other-branch item, got %v", err)
	}
}

func TestCreateInstallmentInsufficientStock(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := WithActor(context.Background(), elenaActor)

	item, err := svc.CreateItem(ctx, domain.ItemCreateRequest{
		ItemName:  "Display Unit",
		ItemPrice: 9999,
		Stocks:    0,
	})
	if err != nil {
		t.Fatalf("create item failed: %v", err)
	}

	_, err = svc.CreateInstallment(ctx, domain.InstallmentCreateRequest{
		ItemID:            item.ID,
		CustomerName:      "Maria Santos",
		Term:              6,
		Total:             9999,
		PartialAmountPaid: 1000,
		DateReleased:      "2025-03-15",
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestAddPaymentAdvancesSchedule(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := WithActor(context.Background(), elenaActor)

	view := createTestInstallment(t, svc, ctx, "itm-a54", "2025-03-15")

	entry, err := svc.AddPayment(ctx, view.ID, domain.PaymentCreateRequest{
		SelectedMonth: "June",
		Payment:       2831.67,
		PaymentDate:   "2025-06-20",
		DatePaid:      "2025-06-18",
	})
	if err != nil {
		t.Fatalf("add payment failed: %v", err)
	}
	if entry.Payment != 2831.67 {
		t.Fatalf("unexpected payment amount %v", entry.Payment)
	}

	after, err := svc.GetInstallment(ctx, view.ID)
	if err != nil {
		t.Fatalf("get installment failed: %v", err)
	}
	// Month and year follow the entry's due date; the day stays anchored to
	// the plan's original due day plus one.
	if got := after.LatestPaymentDate.Format("2006-01-02"); got != "2025-06-16" {
		t.Fatalf("expected latest payment date 2025-06-16, got %s", got)
	}
	if len(after.MonthsToPay) != 2 {
		t.Fatalf("expected ledger with 2 entries, got %d", len(after.MonthsToPay))
	}

	employees, err := svc.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("list employees failed: %v", err)
	}
	if employees[0].NumberOfTransactions != 44 {
		t.Fatalf("expected employee counter 44 after payment, got %d", employees[0].NumberOfTransactions)
	}

	summary, err := svc.SalesSummary(ctx, "", "")
	if err != nil {
		t.Fatalf("sales summary failed: %v", err)
	}
	if summary.SaleCount != 2 {
		t.Fatalf("expected 2 sales after payment, got %d", summary.SaleCount)
	}
}

func TestAddPaymentRejectsMissingFields(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := WithActor(context.Background(), elenaActor)

	view := createTestInstallment(t, svc, ctx, "itm-a54", "2025-03-15")

	_, err := svc.AddPayment(ctx, view.ID, domain.PaymentCreateRequest{
		SelectedMonth: "June",
		Payment:       2831.67,
		PaymentDate:   "2025-06-20",
	})
	if !errors.Is(err, store.ErrInvalidPayment) {
		t.Fatalf("expected ErrInvalidPayment when date_paid missing, got %v", err)
	}
}

func TestBranchScoping(t *testing.T) {
	svc, _ := newTestService(false)
	elenaCtx := WithActor(context.Background(), elenaActor)
	marcoCtx := WithActor(context.Background(), marcoActor)
	superCtx := WithActor(context.Background(), superActor)

	view := createTestInstallment(t, svc, marcoCtx, "itm-oppoa3x", "2025-03-15")

	if _, err := svc.GetInstallment(elenaCtx, view.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected cross-branch read to return ErrNotFound, got %v", err)
	}

	superView, err := svc.GetInstallment(superCtx, view.ID)
	if err != nil {
		t.Fatalf("super read failed: %v", err)
	}
	if superView.BranchName != "Bagumbayan" {
		t.Fatalf("expected super view to carry branch name, got %q", superView.BranchName)
	}

	list, err := svc.ListInstallments(elenaCtx, domain.InstallmentListRequest{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list.Installments) != 0 {
		t.Fatalf("expected empty list for other branch, got %d", len(list.Installments))
	}
}

func TestSearchFallsBackToItemName(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := WithActor(context.Background(), elenaActor)

	createTestInstallment(t, svc, ctx, "itm-a54", "2025-03-15")

	resp, err := svc.SearchInstallments(ctx, domain.SearchRequest{Query: "galaxy", Seq: 7})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.Seq != 7 {
		t.Fatalf("expected seq 7 echoed back, got %d", resp.Seq)
	}
	if len(resp.Installments) != 1 {
		t.Fatalf("expected item-name fallback match, got %d results", len(resp.Installments))
	}

	byName, err := svc.SearchInstallments(ctx, domain.SearchRequest{Query: "maria", Seq: 8})
	if err != nil {
		t.Fatalf("search by name failed: %v", err)
	}
	if len(byName.Installments) != 1 {
		t.Fatalf("expected customer-name match, got %d results", len(byName.Installments))
	}
}

func TestDuesBuckets(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := WithActor(context.Background(), elenaActor)

	// Released mid-May with a down payment: collection lands on June 16,
	// today. Released mid-March: collection was April 15, two months lapsed.
	// The May 9 release sits exactly a week overdue, the May 10 release six
	// days, one inside the yellow bucket and one outside it.
	dueToday := createTestInstallment(t, svc, ctx, "itm-a54", "2025-05-16")
	lapsed := createTestInstallment(t, svc, ctx, "itm-redmi13", "2025-03-15")
	weekOld := createTestInstallment(t, svc, ctx, "itm-a54", "2025-05-09")
	sixDays := createTestInstallment(t, svc, ctx, "itm-iph13", "2025-05-10")

	dues, err := svc.Dues(ctx)
	if err != nil {
		t.Fatalf("dues failed: %v", err)
	}
	if len(dues.Purple) != 1 || dues.Purple[0].ID != dueToday.ID {
		t.Fatalf("expected one purple due, got %+v", dues.Purple)
	}
	if len(dues.Yellow) != 2 {
		t.Fatalf("expected two yellow dues, got %+v", dues.Yellow)
	}
	yellowIDs := map[string]bool{}
	for _, view := range dues.Yellow {
		yellowIDs[view.ID] = true
	}
	if !yellowIDs[lapsed.ID] || !yellowIDs[weekOld.ID] {
		t.Fatalf("expected lapsed and week-old plans in yellow, got %+v", dues.Yellow)
	}
	if yellowIDs[sixDays.ID] || dues.Purple[0].ID == sixDays.ID {
		t.Fatalf("six-day overdue plan should be in neither bucket")
	}
}

func TestRemindersTiered(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := WithActor(context.Background(), elenaActor)

	createTestInstallment(t, svc, ctx, "itm-a54", "2025-05-16")  // due today
	createTestInstallment(t, svc, ctx, "itm-redmi13", "2025-05-06") // 10 days overdue

	reminders, err := svc.Reminders(ctx)
	if err != nil {
		t.Fatalf("reminders failed: %v", err)
	}
	if len(reminders) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(reminders))
	}
	overdueDays := map[int]bool{}
	for _, r := range reminders {
		overdueDays[r.OverdueDays] = true
	}
	if !overdueDays[0] || !overdueDays[10] {
		t.Fatalf("expected reminders for 0 and 10 days overdue, got %+v", reminders)
	}
}

func TestStatusOverrideRejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := WithActor(context.Background(), elenaActor)

	view := createTestInstallment(t, svc, ctx, "itm-a54", "2025-03-15")

	if _, err := svc.SetInstallmentStatus(ctx, view.ID, "On-going"); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}

	updated, err := svc.SetInstallmentStatus(ctx, view.ID, domain.StatusRemate)
	if err != nil {
		t.Fatalf("status override failed: %v", err)
	}
	if updated.Status != domain.StatusRemate {
		t.Fatalf("expected Remate, got %s", updated.Status)
	}
}

func TestSaveCountersDefaultsWhite(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := WithActor(context.Background(), elenaActor)

	view := createTestInstallment(t, svc, ctx, "itm-a54", "2025-03-15")

	updated, err := svc.SaveCounters(ctx, view.ID, domain.CountersUpdateRequest{
		Purple: 2,
		Yellow: 1,
	})
	if err != nil {
		t.Fatalf("save counters failed: %v", err)
	}
	if updated.White != 3 {
		t.Fatalf("expected white to default to purple+yellow (3), got %d", updated.White)
	}
}

func TestDeleteInstallmentCascade(t *testing.T) {
	svc, repo := newTestService(false)
	ctx := WithActor(context.Background(), elenaActor)

	view := createTestInstallment(t, svc, ctx, "itm-a54", "2025-03-15")

	if err := svc.DeleteInstallment(ctx, view.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := svc.GetInstallment(ctx, view.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected installment gone, got %v", err)
	}

	entries, err := repo.ListPayments(ctx, view.ID)
	if err != nil {
		t.Fatalf("list payments failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected ledger to be deleted, got %d entries", len(entries))
	}

	customers, err := svc.ListCustomers(ctx)
	if err != nil {
		t.Fatalf("list customers failed: %v", err)
	}
	if len(customers) != 0 {
		t.Fatalf("expected customer record deleted, got %+v", customers)
	}
}

func TestDuePaymentPromotionPersists(t *testing.T) {
	svc, _ := newTestService(true)
	ctx := WithActor(context.Background(), elenaActor)

	view := createTestInstallment(t, svc, ctx, "itm-a54", "2025-03-15")

	// A ledger entry due on the collection date itself (due day 15 plus one)
	// triggers the green promotion when the flag is on.
	if _, err := svc.AddPayment(ctx, view.ID, domain.PaymentCreateRequest{
		SelectedMonth: "June",
		Payment:       2831.67,
		PaymentDate:   "2025-06-16",
		DatePaid:      "2025-06-16",
	}); err != nil {
		t.Fatalf("add payment failed: %v", err)
	}

	after, err := svc.GetInstallment(ctx, view.ID)
	if err != nil {
		t.Fatalf("get installment failed: %v", err)
	}
	if after.Color != domain.ColorGreen {
		t.Fatalf("expected green, got %s", after.Color)
	}
	if after.Status != domain.StatusFullyPaid {
		t.Fatalf("expected promotion persisted as Fully-paid, got %s", after.Status)
	}
}

func TestDuePaymentPromotionStaysOffByDefault(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := WithActor(context.Background(), elenaActor)

	view := createTestInstallment(t, svc, ctx, "itm-a54", "2025-03-15")

	if _, err := svc.AddPayment(ctx, view.ID, domain.PaymentCreateRequest{
		SelectedMonth: "June",
		Payment:       2831.67,
		PaymentDate:   "2025-06-16",
		DatePaid:      "2025-06-16",
	}); err != nil {
		t.Fatalf("add payment failed: %v", err)
	}

	after, err := svc.GetInstallment(ctx, view.ID)
	if err != nil {
		t.Fatalf("get installment failed: %v", err)
	}
	if after.Color != domain.ColorGreen {
		t.Fatalf("expected green color, got %s", after.Color)
	}
	if after.Status != domain.StatusOngoing {
		t.Fatalf("expected status untouched with flag off, got %s", after.Status)
	}
}

func TestFinancingLifecycle(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := WithActor(context.Background(), elenaActor)

	view, err := svc.CreateFinancing(ctx, domain.FinancingCreateRequest{
		ItemID:            "itm-iph13",
		Amount:            15000,
		CustomerName:      "Jose Ramirez",
		PhoneNumber:       "09181234567",
		Term:              12,
		Total:             38990,
		PartialAmountPaid: 3000,
		DateReleased:      "2025-03-15",
	})
	if err != nil {
		t.Fatalf("create financing failed: %v", err)
	}
	if view.MonthlyPayment != 2999.17 {
		t.Fatalf("expected monthly 2999.17, got %v", view.MonthlyPayment)
	}

	found, err := svc.SearchFinancing(ctx, domain.SearchRequest{Query: "jose", Seq: 3})
	if err != nil {
		t.Fatalf("search financing failed: %v", err)
	}
	if found.Seq != 3 || len(found.Financing) != 1 {
		t.Fatalf("expected one financing match with seq 3, got %+v", found)
	}

	updated, err := svc.SetFinancingStatus(ctx, view.ID, domain.StatusFullyPaid)
	if err != nil {
		t.Fatalf("set financing status failed: %v", err)
	}
	if updated.Status != domain.StatusFullyPaid {
		t.Fatalf("expected Fully-paid, got %s", updated.Status)
	}

	if err := svc.DeleteFinancing(ctx, view.ID); err != nil {
		t.Fatalf("delete financing failed: %v", err)
	}
	if _, err := svc.SearchFinancing(ctx, domain.SearchRequest{Query: "jose"}); err != nil {
		t.Fatalf("search after delete failed: %v", err)
	}
}

func TestSalesSummaryBranchTotalsForSuper(t *testing.T) {
	svc, _ := newTestService(false)
	elenaCtx := WithActor(context.Background(), elenaActor)
	marcoCtx := WithActor(context.Background(), marcoActor)
	superCtx := WithActor(context.Background(), superActor)

	createTestInstallment(t, svc, elenaCtx, "itm-a54", "2025-03-15")
	createTestInstallment(t, svc, marcoCtx, "itm-oppoa3x", "2025-03-15")

	superSummary, err := svc.SalesSummary(superCtx, "", "")
	if err != nil {
		t.Fatalf("super summary failed: %v", err)
	}
	if superSummary.SaleCount != 2 || superSummary.TotalAmount != 10000 {
		t.Fatalf("expected 2 sales totaling 10000, got %d / %v", superSummary.SaleCount, superSummary.TotalAmount)
	}
	if superSummary.BranchTotals["br-poblacion"] != 5000 || superSummary.BranchTotals["br-bagumbayan"] != 5000 {
		t.Fatalf("unexpected branch totals: %+v", superSummary.BranchTotals)
	}

	adminSummary, err := svc.SalesSummary(elenaCtx, "", "")
	if err != nil {
		t.Fatalf("admin summary failed: %v", err)
	}
	if adminSummary.SaleCount != 1 || adminSummary.BranchTotals != nil {
		t.Fatalf("expected scoped summary without branch totals, got %+v", adminSummary)
	}
}

func TestCreateBranchRequiresSuper(t *testing.T) {
	svc, _ := newTestService(false)
	elenaCtx := WithActor(context.Background(), elenaActor)
	superCtx := WithActor(context.Background(), superActor)

	if _, err := svc.CreateBranch(elenaCtx, domain.BranchCreateRequest{BranchName: "San Isidro"}); err == nil {
		t.Fatalf("expected admin create branch to fail")
	}

	branch, err := svc.CreateBranch(superCtx, domain.BranchCreateRequest{BranchName: "San Isidro", Address: "Main Rd"})
	if err != nil {
		t.Fatalf("create branch failed: %v", err)
	}
	if branch.BranchName != "San Isidro" {
		t.Fatalf("unexpected branch: %+v", branch)
	}
}

func TestAdjustItemStockRejectsNegative(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := WithActor(context.Background(), elenaActor)

	if _, err := svc.AdjustItemStock(ctx, "itm-a54", -20); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	item, err := svc.AdjustItemStock(ctx, "itm-a54", 5)
	if err != nil {
		t.Fatalf("stock adjust failed: %v", err)
	}
	if item.Stocks != 13 {
		t.Fatalf("expected stock 13, got %d", item.Stocks)
	}
}

func TestExpenseRecording(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := WithActor(context.Background(), elenaActor)

	expense, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{
		Label:     "Store rent",
		Amount:    12000,
		DateSpent: "2025-06-01",
	})
	if err != nil {
		t.Fatalf("create expense failed: %v", err)
	}
	if expense.BranchID != "br-poblacion" {
		t.Fatalf("expected expense pinned to actor branch, got %s", expense.BranchID)
	}

	expenses, err := svc.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("list expenses failed: %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(expenses))
	}
}
