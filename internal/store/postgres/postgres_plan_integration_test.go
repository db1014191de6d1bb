package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"hulugan/backend/internal/domain"
	"hulugan/backend/internal/store"
)

func TestCreateInstallmentPlanDecrementsStock(t *testing.T) {
	databaseURL := os.Getenv("HULUGAN_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set HULUGAN_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	branchID := fmt.Sprintf("br-it-%d", stamp)
	itemID := fmt.Sprintf("itm-it-%d", stamp)
	instID := fmt.Sprintf("inst-it-%d", stamp)
	customerID := fmt.Sprintf("cus-it-%d", stamp)
	userID := fmt.Sprintf("usr-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM months_to_pay WHERE installment_id = $1`, instID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE installment_id = $1`, instID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM logs WHERE installment_id = $1`, instID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM installments WHERE id = $1`, instID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, customerID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM employees WHERE user_id = $1`, userID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, itemID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM branches WHERE id = $1`, branchID)
	})

	now := time.Now().UTC()
	if _, err := s.CreateBranch(ctx, domain.Branch{ID: branchID, BranchName: "IT Branch " + branchID, CreatedAt: now}); err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	if _, err := s.CreateItem(ctx, domain.Item{
		ID: itemID, BranchID: branchID, ItemName: "IT Phone", ItemPrice: 9999,
		Stocks: 3, CreatedAt: now,
	}); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	if _, err := s.CreateEmployee(ctx, domain.Employee{
		ID: "emp-" + userID, BranchID: branchID, UserID: userID, Name: "IT Clerk", CreatedAt: now,
	}); err != nil {
		t.Fatalf("seed employee: %v", err)
	}

	released := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	plan := store.PlanCreation{
		Installment: domain.Installment{
			ID: instID, BranchID: branchID, ItemID: itemID, CustomerID: customerID,
			CustomerName: "IT Customer", Term: 6, Total: 9999, PartialAmountPaid: 1000,
			MonthlyPayment: 1499.83, DateReleased: released,
			InstallmentDue:    time.Date(2025, time.August, 15, 0, 0, 0, 0, time.UTC),
			LatestPaymentDate: released.AddDate(0, 1, 0),
			Status:            domain.StatusOngoing, CreatedAt: now,
		},
		DownPayment: &domain.PaymentEntry{
			ID: "pay-" + instID, InstallmentID: instID,
			SelectedMonth: "March (Down Payment)", Payment: 1000,
			PaymentDate: released, DatePaid: released, CreatedAt: now,
		},
		Customer: domain.Customer{ID: customerID, BranchID: branchID, Name: "IT Customer", CreatedAt: now},
		Sale: domain.Sale{
			ID: "sale-" + instID, BranchID: branchID, InstallmentID: instID,
			Amount: 1000, PaymentMethod: domain.PaymentMethodCash, DateIssued: now,
		},
		Log: domain.LogEntry{
			ID: "log-" + instID, BranchID: branchID, UserID: userID, InstallmentID: instID,
			LogLabel: "IT Clerk created a new installment for IT Customer",
			LogCategory: domain.LogCategoryInstallment, CreatedAt: now,
		},
		EmployeeUserID: userID,
	}

	created, err := s.CreateInstallmentPlan(ctx, plan)
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if created.ID != instID {
		t.Fatalf("unexpected installment id %s", created.ID)
	}

	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Stocks != 2 || item.NumberOfSold != 1 {
		t.Fatalf("expected stock 2 / sold 1 after plan, got %d / %d", item.Stocks, item.NumberOfSold)
	}

	entries, err := s.ListPayments(ctx, instID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(entries) != 1 || entries[0].SelectedMonth != "March (Down Payment)" {
		t.Fatalf("expected down payment ledger row, got %+v", entries)
	}

	var transactions int
	if err := s.db.QueryRowContext(ctx, `
		SELECT number_of_transactions
		FROM employees
		WHERE user_id = $1
	`, userID).Scan(&transactions); err != nil {
		t.Fatalf("query employee counter: %v", err)
	}
	if transactions != 1 {
		t.Fatalf("expected employee counter 1, got %d", transactions)
	}

	if err := s.DeleteInstallmentCascade(ctx, instID); err != nil {
		t.Fatalf("cascade delete: %v", err)
	}
	if _, err := s.GetInstallment(ctx, instID); err != store.ErrNotFound {
		t.Fatalf("expected installment gone after cascade, got %v", err)
	}
}
