package store

import (
	"context"
	"errors"
	"time"

	"hulugan/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidPayment    = errors.New("invalid payment")
)

// InstallmentFilter narrows installment and financing listings. BranchID
// empty means all branches (super callers only; the service enforces that).
type InstallmentFilter struct {
	BranchID string
	DueFrom  time.Time
	DueTo    time.Time
	SortDue  string // "", "asc", "desc"
	Limit    int
	Offset   int
}

// PlanCreation is the whole creation saga in one unit: the installment row,
// the optional down-payment ledger entry, the customer record, the sale,
// the audit log, and the stock movement on the item. Stores apply it
// atomically.
type PlanCreation struct {
	Installment domain.Installment
	DownPayment *domain.PaymentEntry
	Customer    domain.Customer
	Sale        domain.Sale
	Log         domain.LogEntry
	// EmployeeUserID gets its transaction counter bumped.
	EmployeeUserID string
}

// PaymentAppend is the ledger append plus every write that rides along with
// it. Stores apply it atomically.
type PaymentAppend struct {
	InstallmentID  string
	Entry          domain.PaymentEntry
	NewLatestDate  time.Time
	Sale           domain.Sale
	Log            domain.LogEntry
	EmployeeUserID string
}

type Repository interface {
	CreateInstallmentPlan(ctx context.Context, plan PlanCreation) (*domain.Installment, error)
	GetInstallment(ctx context.Context, id string) (*domain.Installment, error)
	ListInstallments(ctx context.Context, filter InstallmentFilter) ([]domain.Installment, int, error)
	SearchInstallmentsByCustomer(ctx context.Context, branchID string, query string, limit int) ([]domain.Installment, error)
	SearchInstallmentsByItem(ctx context.Context, branchID string, query string, limit int) ([]domain.Installment, error)
	UpdateInstallmentStatus(ctx context.Context, id string, status string) (*domain.Installment, error)
	UpdateInstallmentCounters(ctx context.Context, id string, purple int, yellow int, white int, comment string) (*domain.Installment, error)
	UpdateInstallmentMonthly(ctx context.Context, id string, monthly float64) (*domain.Installment, error)
	DeleteInstallmentCascade(ctx context.Context, id string) error

	AppendPayment(ctx context.Context, appendReq PaymentAppend) (*domain.PaymentEntry, error)
	ListPayments(ctx context.Context, installmentID string) ([]domain.PaymentEntry, error)
	UpdatePayment(ctx context.Context, id string, entry domain.PaymentEntry) (*domain.PaymentEntry, error)

	CreateFinancing(ctx context.Context, financing domain.Financing) (*domain.Financing, error)
	GetFinancing(ctx context.Context, id string) (*domain.Financing, error)
	ListFinancing(ctx context.Context, filter InstallmentFilter) ([]domain.Financing, int, error)
	SearchFinancingByCustomer(ctx context.Context, branchID string, query string, limit int) ([]domain.Financing, error)
	SearchFinancingByItem(ctx context.Context, branchID string, query string, limit int) ([]domain.Financing, error)
	UpdateFinancingStatus(ctx context.Context, id string, status string) (*domain.Financing, error)
	DeleteFinancing(ctx context.Context, id string) error

	CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	ListItems(ctx context.Context, branchID string) ([]domain.Item, error)
	AdjustItemStock(ctx context.Context, id string, delta int) (*domain.Item, error)

	CreateBranch(ctx context.Context, branch domain.Branch) (*domain.Branch, error)
	GetBranch(ctx context.Context, id string) (*domain.Branch, error)
	ListBranches(ctx context.Context) ([]domain.Branch, error)

	ListCustomers(ctx context.Context, branchID string) ([]domain.Customer, error)

	ListEmployees(ctx context.Context, branchID string) ([]domain.Employee, error)
	CreateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error)

	ListSales(ctx context.Context, branchID string, from time.Time, to time.Time) ([]domain.Sale, error)

	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context, branchID string) ([]domain.Expense, error)

	CreateLog(ctx context.Context, entry domain.LogEntry) error
	ListLogs(ctx context.Context, branchID string, category string, limit int) ([]domain.LogEntry, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
