// Package export builds the spreadsheet reports the branch managers hand to
// the owner: the full installment book and the daily dues board.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"hulugan/backend/internal/domain"
)

const dateLayout = "2006-01-02"

// Workbook wraps an excelize file so callers can stream it without importing
// excelize themselves.
type Workbook struct {
	file *excelize.File
}

func (w *Workbook) Write(dest io.Writer) error {
	defer w.file.Close()
	return w.file.Write(dest)
}

var installmentHeaders = []string{
	"Due", "Term", "Name", "Address", "Occupation", "BIR TIN",
	"Date Released", "Phone", "Unit", "IMEI", "Total Payment",
	"Down Payment", "Purple", "Yellow", "White", "Trademark", "Status",
}

// InstallmentsWorkbook renders the installment book, one row per plan.
// Super callers get an extra Branch column since their export spans branches.
func InstallmentsWorkbook(views []domain.InstallmentView, withBranch bool) (*Workbook, error) {
	f := excelize.NewFile()
	sheetName := "Installments"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	if err := writeInstallmentRows(f, sheetName, 1, views, withBranch); err != nil {
		f.Close()
		return nil, err
	}

	return &Workbook{file: f}, nil
}

// DuesWorkbook renders the dues board with the Due Today section first and
// the Lapse section after a blank separator row.
func DuesWorkbook(dues *domain.DuesResponse, withBranch bool) (*Workbook, error) {
	f := excelize.NewFile()
	sheetName := "Dues"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	row := 1
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), "Due Today")
	row++
	if err := writeInstallmentRows(f, sheetName, row, dues.Purple, withBranch); err != nil {
		f.Close()
		return nil, err
	}
	row += len(dues.Purple) + 1

	row++ // separator
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), "Lapse")
	row++
	if err := writeInstallmentRows(f, sheetName, row, dues.Yellow, withBranch); err != nil {
		f.Close()
		return nil, err
	}

	return &Workbook{file: f}, nil
}

// writeInstallmentRows writes the header row at startRow followed by one row
// per view, and returns the first error from excelize.
func writeInstallmentRows(f *excelize.File, sheetName string, startRow int, views []domain.InstallmentView, withBranch bool) error {
	headers := installmentHeaders
	if withBranch {
		headers = append(append([]string{}, installmentHeaders...), "Branch")
	}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, startRow)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
	}

	for i, view := range views {
		row := startRow + i + 1
		unit := ""
		imei := ""
		if view.Item != nil {
			unit = view.Item.ItemName
			imei = view.Item.ItemIMEI
		}
		values := []any{
			view.InstallmentDue.Format(dateLayout),
			view.Term,
			view.CustomerName,
			view.CustomerFullAddress,
			view.CustomerOccupation,
			view.CustomerBirTin,
			view.DateReleased.Format(dateLayout),
			view.PhoneNumber,
			unit,
			imei,
			view.Total,
			view.PartialAmountPaid,
			view.Purple,
			view.Yellow,
			view.White,
			view.Trademark,
			view.Status,
		}
		if withBranch {
			values = append(values, view.BranchName)
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
	}

	return nil
}
