package domain

import "time"

// Installment statuses. Colors are derived from these plus the payment
// schedule, never stored.
const (
	StatusOngoing   = "On-going"
	StatusFullyPaid = "Fully-paid"
	StatusDeposit   = "Deposit"
	StatusRemate    = "Remate"
)

// Schedule colors produced by the classifier.
const (
	ColorGreen  = "green"
	ColorWhite  = "white"
	ColorPurple = "purple"
	ColorYellow = "yellow"
	ColorBlue   = "blue"
	ColorRed    = "red"
)

// Roles. Super sees every branch; admin is scoped to one.
const (
	RoleSuper = "super"
	RoleAdmin = "admin"
)

const (
	PaymentMethodCash = "Cash"
)

// Log categories written by the service layer.
const (
	LogCategoryInstallment        = "Installment"
	LogCategoryInstallmentPayment = "Installment Payment"
	LogCategoryFinancing          = "Financing"
	LogCategoryStatusChange       = "Status Change"
	LogCategoryExpense            = "Expense"
	LogCategoryBranch             = "Branch"
)

type Branch struct {
	ID         string    `json:"id"`
	BranchName string    `json:"branch_name"`
	Address    string    `json:"address,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Item struct {
	ID           string    `json:"id"`
	BranchID     string    `json:"branch_id"`
	ItemName     string    `json:"item_name"`
	ItemIMEI     string    `json:"item_imei,omitempty"`
	Serial       string    `json:"serial,omitempty"`
	ItemPrice    float64   `json:"item_price"`
	Stocks       int       `json:"stocks"`
	NumberOfSold int       `json:"number_of_sold"`
	CreatedAt    time.Time `json:"created_at"`
}

type Customer struct {
	ID          string    `json:"id"`
	BranchID    string    `json:"branch_id"`
	Name        string    `json:"name"`
	FullAddress string    `json:"full_address,omitempty"`
	Occupation  string    `json:"occupation,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	BirTin      string    `json:"bir_tin,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Installment is one customer's payment plan for one item. The schedule
// fields (InstallmentDue, LatestPaymentDate, MonthlyPayment) are computed
// by the service at creation and advanced by payments afterwards.
type Installment struct {
	ID                  string    `json:"id"`
	BranchID            string    `json:"branch_id"`
	ItemID              string    `json:"item_id"`
	CustomerID          string    `json:"customer_id,omitempty"`
	CustomerName        string    `json:"customer_name"`
	CustomerFullAddress string    `json:"customer_full_address,omitempty"`
	CustomerOccupation  string    `json:"customer_occupation,omitempty"`
	CustomerBirTin      string    `json:"customer_bir_tin,omitempty"`
	PhoneNumber         string    `json:"phone_number,omitempty"`
	Trademark           string    `json:"trademark,omitempty"`
	Term                int       `json:"term"`
	Total               float64   `json:"total"`
	PartialAmountPaid   float64   `json:"partial_amount_paid"`
	MonthlyPayment      float64   `json:"monthly_payment"`
	DateReleased        time.Time `json:"date_released"`
	InstallmentDue      time.Time `json:"installment_due"`
	LatestPaymentDate   time.Time `json:"latest_payment_date"`
	Status              string    `json:"status"`
	Purple              int       `json:"purple"`
	Yellow              int       `json:"yellow"`
	White               int       `json:"white"`
	Comment             string    `json:"comment,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// PaymentEntry is one row of an installment's ledger. PaymentDate is the
// due date of the month the entry covers; DatePaid is when the money
// actually changed hands.
type PaymentEntry struct {
	ID            string    `json:"id"`
	InstallmentID string    `json:"installment_id"`
	SelectedMonth string    `json:"selected_month"`
	Payment       float64   `json:"payment"`
	PaymentDate   time.Time `json:"payment_date"`
	DatePaid      time.Time `json:"date_paid"`
	CreatedAt     time.Time `json:"created_at"`
}

// Financing mirrors Installment for externally financed purchases. Amount
// is the financed principal.
type Financing struct {
	ID                  string    `json:"id"`
	BranchID            string    `json:"branch_id"`
	ItemID              string    `json:"item_id"`
	Amount              float64   `json:"financing"`
	CustomerName        string    `json:"customer_name"`
	CustomerFullAddress string    `json:"customer_full_address,omitempty"`
	CustomerOccupation  string    `json:"customer_occupation,omitempty"`
	PhoneNumber         string    `json:"phone_number,omitempty"`
	Trademark           string    `json:"trademark,omitempty"`
	Term                int       `json:"term"`
	Total               float64   `json:"total"`
	PartialAmountPaid   float64   `json:"partial_amount_paid"`
	MonthlyPayment      float64   `json:"monthly_payment"`
	DateReleased        time.Time `json:"date_released"`
	InstallmentDue      time.Time `json:"installment_due"`
	LatestPaymentDate   time.Time `json:"latest_payment_date"`
	Status              string    `json:"status"`
	Purple              int       `json:"purple"`
	Yellow              int       `json:"yellow"`
	White               int       `json:"white"`
	Comment             string    `json:"comment,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

type Sale struct {
	ID            string    `json:"id"`
	BranchID      string    `json:"branch_id"`
	InstallmentID string    `json:"installment_id,omitempty"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	DateIssued    time.Time `json:"date_issued"`
}

type Expense struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branch_id"`
	Label     string    `json:"label"`
	Amount    float64   `json:"amount"`
	DateSpent time.Time `json:"date_spent"`
	CreatedAt time.Time `json:"created_at"`
}

type Employee struct {
	ID                   string    `json:"id"`
	BranchID             string    `json:"branch_id"`
	UserID               string    `json:"user_id"`
	Name                 string    `json:"name"`
	NumberOfTransactions int       `json:"number_of_transactions"`
	CreatedAt            time.Time `json:"created_at"`
}

type LogEntry struct {
	ID            string    `json:"id"`
	BranchID      string    `json:"branch_id"`
	UserID        string    `json:"user_id,omitempty"`
	InstallmentID string    `json:"installment_id,omitempty"`
	LogLabel      string    `json:"log_label"`
	LogCategory   string    `json:"log_category"`
	CreatedAt     time.Time `json:"created_at"`
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	BranchID  string    `json:"branch_id,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Actor is the authenticated caller, carried in the request context. It
// replaces the original client's ambient credential store.
type Actor struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	BranchID string `json:"branch_id,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	BranchID    string `json:"branch_id,omitempty"`
	ExpiresAt   string `json:"expires_at"`
}

type AdminCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	BranchID string `json:"branch_id"`
}

type AdminUser struct {
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	BranchID  string    `json:"branch_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// InstallmentCreateRequest carries everything the creation flow needs. The
// due date, next payment date and monthly amount are computed server-side.
type InstallmentCreateRequest struct {
	ItemID              string  `json:"item_id"`
	CustomerName        string  `json:"customer_name"`
	CustomerFullAddress string  `json:"customer_full_address"`
	CustomerOccupation  string  `json:"customer_occupation"`
	CustomerBirTin      string  `json:"customer_bir_tin"`
	PhoneNumber         string  `json:"phone_number"`
	Trademark           string  `json:"trademark"`
	Term                int     `json:"term"`
	Total               float64 `json:"total"`
	PartialAmountPaid   float64 `json:"partial_amount_paid"`
	DateReleased        string  `json:"date_released"`
}

type FinancingCreateRequest struct {
	ItemID              string  `json:"item_id"`
	Amount              float64 `json:"financing"`
	CustomerName        string  `json:"customer_name"`
	CustomerFullAddress string  `json:"customer_full_address"`
	CustomerOccupation  string  `json:"customer_occupation"`
	PhoneNumber         string  `json:"phone_number"`
	Trademark           string  `json:"trademark"`
	Term                int     `json:"term"`
	Total               float64 `json:"total"`
	PartialAmountPaid   float64 `json:"partial_amount_paid"`
	DateReleased        string  `json:"date_released"`
}

type PaymentCreateRequest struct {
	SelectedMonth string  `json:"selected_month"`
	Payment       float64 `json:"payment"`
	PaymentDate   string  `json:"payment_date"`
	DatePaid      string  `json:"date_paid"`
}

type PaymentUpdateRequest struct {
	SelectedMonth string  `json:"selected_month"`
	Payment       float64 `json:"payment"`
	PaymentDate   string  `json:"payment_date"`
	DatePaid      string  `json:"date_paid"`
}

type StatusOverrideRequest struct {
	Status     string `json:"status"`
	ManagerPIN string `json:"manager_pin"`
}

type CountersUpdateRequest struct {
	Purple  int    `json:"purple"`
	Yellow  int    `json:"yellow"`
	White   int    `json:"white"`
	Comment string `json:"comment"`
}

type MonthlyUpdateRequest struct {
	MonthlyPayment float64 `json:"monthly_payment"`
}

// InstallmentView is an installment joined with its item, branch name and
// ledger, plus the classifier color.
type InstallmentView struct {
	Installment
	Item        *Item          `json:"items,omitempty"`
	BranchName  string         `json:"branch_name,omitempty"`
	MonthsToPay []PaymentEntry `json:"months_to_pay"`
	Color       string         `json:"color"`
}

type FinancingView struct {
	Financing
	Item       *Item  `json:"items,omitempty"`
	BranchName string `json:"branch_name,omitempty"`
	Color      string `json:"color"`
}

type InstallmentListRequest struct {
	Page    int    `json:"page"`
	DueFrom string `json:"due_from"`
	DueTo   string `json:"due_to"`
	SortDue string `json:"sort_due"` // "", "asc" or "desc" by due date
}

type InstallmentListResponse struct {
	Installments []InstallmentView `json:"installments"`
	TotalRows    int               `json:"total_rows"`
	Page         int               `json:"page"`
	PageSize     int               `json:"page_size"`
}

type FinancingListResponse struct {
	Financing []FinancingView `json:"financing"`
	TotalRows int             `json:"total_rows"`
	Page      int             `json:"page"`
	PageSize  int             `json:"page_size"`
}

// SearchRequest carries the caller's sequence token. The token is echoed in
// the response so a client can discard answers that arrive out of order.
type SearchRequest struct {
	Query string `json:"query"`
	Seq   int64  `json:"seq"`
}

type SearchResponse struct {
	Seq          int64             `json:"seq"`
	Installments []InstallmentView `json:"installments"`
}

type FinancingSearchResponse struct {
	Seq       int64           `json:"seq"`
	Financing []FinancingView `json:"financing"`
}

// DuesResponse buckets On-going installments the way the collections board
// does: purple is due today, yellow is a week or more overdue.
type DuesResponse struct {
	Purple []InstallmentView `json:"purple"`
	Yellow []InstallmentView `json:"yellow"`
}

// Reminder is one collection notice derived from an installment's schedule.
type Reminder struct {
	InstallmentID string `json:"installment_id"`
	CustomerName  string `json:"customer_name"`
	Phone         string `json:"phone,omitempty"`
	OverdueDays   int    `json:"overdue_days"`
	Message       string `json:"message"`
}

type ItemCreateRequest struct {
	BranchID  string  `json:"branch_id"`
	ItemName  string  `json:"item_name"`
	ItemIMEI  string  `json:"item_imei"`
	Serial    string  `json:"serial"`
	ItemPrice float64 `json:"item_price"`
	Stocks    int     `json:"stocks"`
}

type StockAdjustRequest struct {
	Delta int `json:"delta"`
}

type BranchCreateRequest struct {
	BranchName string `json:"branch_name"`
	Address    string `json:"address"`
}

type ExpenseCreateRequest struct {
	Label     string  `json:"label"`
	Amount    float64 `json:"amount"`
	DateSpent string  `json:"date_spent"`
}

// SalesSummary aggregates sales for a date range. Branch totals are only
// populated for super callers.
type SalesSummary struct {
	From         string             `json:"from"`
	To           string             `json:"to"`
	TotalAmount  float64            `json:"total_amount"`
	SaleCount    int                `json:"sale_count"`
	BranchTotals map[string]float64 `json:"branch_totals,omitempty"`
}
