package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"hulugan/backend/internal/domain"
	"hulugan/backend/internal/store"
	"hulugan/backend/internal/xid"
)

type Store struct {
	mu           sync.RWMutex
	installments map[string]domain.Installment
	payments     map[string]domain.PaymentEntry
	financing    map[string]domain.Financing
	items        map[string]domain.Item
	branches     map[string]domain.Branch
	customers    map[string]domain.Customer
	employees    map[string]domain.Employee
	sales        map[string]domain.Sale
	expenses     map[string]domain.Expense
	logs         []domain.LogEntry
	users        map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		installments: map[string]domain.Installment{},
		payments:     map[string]domain.PaymentEntry{},
		financing:    map[string]domain.Financing{},
		items:        map[string]domain.Item{},
		branches:     map[string]domain.Branch{},
		customers:    map[string]domain.Customer{},
		employees:    map[string]domain.Employee{},
		sales:        map[string]domain.Sale{},
		expenses:     map[string]domain.Expense{},
		users:        map[string]domain.UserAccount{},
	}
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_SUPER_PASSWORD and SEED_ADMIN_PASSWORD. If
// unset, hardcoded dev defaults are used with a warning. These accounts are
// never used in production (the backend uses PostgreSQL when DATABASE_URL
// is set).
func seedUsers() map[string]domain.UserAccount {
	superPwd := envOr("SEED_SUPER_PASSWORD", "super123")
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	if os.Getenv("SEED_SUPER_PASSWORD") == "" || os.Getenv("SEED_ADMIN_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_SUPER_PASSWORD and SEED_ADMIN_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		name     string
		role     string
		branchID string
	}{
		{"super", superPwd, "Head Office", domain.RoleSuper, ""},
		{"admin", adminPwd, "Elena Reyes", domain.RoleAdmin, "br-poblacion"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Name:      u.name,
			Role:      u.role,
			BranchID:  u.branchID,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	branches := []domain.Branch{
		{ID: "br-poblacion", BranchName: "Poblacion", Address: "Rizal St, Poblacion", CreatedAt: now},
		{ID: "br-bagumbayan", BranchName: "Bagumbayan", Address: "National Hwy, Bagumbayan", CreatedAt: now},
	}
	for _, b := range branches {
		s.branches[b.ID] = b
	}

	items := []domain.Item{
		{ID: "itm-a54", BranchID: "br-poblacion", ItemName: "Galaxy A54 5G", ItemIMEI: "356789104563217", Serial: "SGA54-0012", ItemPrice: 21990, Stocks: 8, NumberOfSold: 3, CreatedAt: now},
		{ID: "itm-redmi13", BranchID: "br-poblacion", ItemName: "Redmi Note 13", ItemIMEI: "356789104571930", Serial: "RDN13-0044", ItemPrice: 12499, Stocks: 12, NumberOfSold: 6, CreatedAt: now},
		{ID: "itm-iph13", BranchID: "br-poblacion", ItemName: "iPhone 13 128GB", ItemIMEI: "356789104587215", Serial: "IPH13-0108", ItemPrice: 38990, Stocks: 4, NumberOfSold: 2, CreatedAt: now},
		{ID: "itm-oppoa3x", BranchID: "br-bagumbayan", ItemName: "OPPO A3x", ItemIMEI: "356789104590022", Serial: "OPA3X-0075", ItemPrice: 6499, Stocks: 15, NumberOfSold: 9, CreatedAt: now},
		{ID: "itm-vivoy28", BranchID: "br-bagumbayan", ItemName: "vivo Y28", ItemIMEI: "356789104601188", Serial: "VVY28-0031", ItemPrice: 9999, Stocks: 10, NumberOfSold: 4, CreatedAt: now},
	}
	for _, it := range items {
		s.items[it.ID] = it
	}

	employees := []domain.Employee{
		{ID: "emp-elena", BranchID: "br-poblacion", UserID: "admin", Name: "Elena Reyes", NumberOfTransactions: 42, CreatedAt: now},
		{ID: "emp-marco", BranchID: "br-bagumbayan", UserID: "marco", Name: "Marco Dizon", NumberOfTransactions: 17, CreatedAt: now},
	}
	for _, e := range employees {
		s.employees[e.ID] = e
	}

	s.users = seedUsers()
	return s
}

func (s *Store) CreateInstallmentPlan(ctx context.Context, plan store.PlanCreation) (*domain.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[plan.Installment.ItemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if item.Stocks < 1 {
		return nil, store.ErrInsufficientStock
	}

	item.Stocks--
	item.NumberOfSold++
	s.items[item.ID] = item

	inst := plan.Installment
	s.installments[inst.ID] = inst

	if plan.DownPayment != nil {
		entry := *plan.DownPayment
		entry.InstallmentID = inst.ID
		s.payments[entry.ID] = entry
	}

	s.customers[plan.Customer.ID] = plan.Customer
	s.sales[plan.Sale.ID] = plan.Sale
	s.bumpEmployeeLocked(plan.EmployeeUserID)
	s.logs = append(s.logs, plan.Log)

	out := inst
	return &out, nil
}

func (s *Store) GetInstallment(ctx context.Context, id string) (*domain.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.installments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := inst
	return &out, nil
}

func (s *Store) ListInstallments(ctx context.Context, filter store.InstallmentFilter) ([]domain.Installment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Installment, 0, len(s.installments))
	for _, inst := range s.installments {
		if !matchesFilter(inst.BranchID, inst.InstallmentDue, filter) {
			continue
		}
		matched = append(matched, inst)
	}
	sortByDue(matched, filter.SortDue)
	total := len(matched)
	return paginate(matched, filter.Offset, filter.Limit), total, nil
}

func (s *Store) SearchInstallmentsByCustomer(ctx context.Context, branchID string, query string, limit int) ([]domain.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(query)
	var matched []domain.Installment
	for _, inst := range s.installments {
		if branchID != "" && inst.BranchID != branchID {
			continue
		}
		if strings.Contains(strings.ToLower(inst.CustomerName), query) {
			matched = append(matched, inst)
		}
	}
	sortByDue(matched, "asc")
	return capSlice(matched, limit), nil
}

func (s *Store) SearchInstallmentsByItem(ctx context.Context, branchID string, query string, limit int) ([]domain.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(query)
	var matched []domain.Installment
	for _, inst := range s.installments {
		if branchID != "" && inst.BranchID != branchID {
			continue
		}
		item, ok := s.items[inst.ItemID]
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(item.ItemName), query) {
			matched = append(matched, inst)
		}
	}
	sortByDue(matched, "asc")
	return capSlice(matched, limit), nil
}

func (s *Store) UpdateInstallmentStatus(ctx context.Context, id string, status string) (*domain.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.installments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	inst.Status = status
	s.installments[id] = inst
	out := inst
	return &out, nil
}

func (s *Store) UpdateInstallmentCounters(ctx context.Context, id string, purple int, yellow int, white int, comment string) (*domain.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.installments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	inst.Purple = purple
	inst.Yellow = yellow
	inst.White = white
	inst.Comment = comment
	s.installments[id] = inst
	out := inst
	return &out, nil
}

func (s *Store) UpdateInstallmentMonthly(ctx context.Context, id string, monthly float64) (*domain.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.installments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	inst.MonthlyPayment = monthly
	s.installments[id] = inst
	out := inst
	return &out, nil
}

func (s *Store) DeleteInstallmentCascade(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.installments[id]
	if !ok {
		return store.ErrNotFound
	}
	for pid, p := range s.payments {
		if p.InstallmentID == id {
			delete(s.payments, pid)
		}
	}
	delete(s.installments, id)
	if inst.CustomerID != "" {
		delete(s.customers, inst.CustomerID)
	}
	return nil
}

func (s *Store) AppendPayment(ctx context.Context, appendReq store.PaymentAppend) (*domain.PaymentEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.installments[appendReq.InstallmentID]
	if !ok {
		return nil, store.ErrNotFound
	}

	entry := appendReq.Entry
	entry.InstallmentID = inst.ID
	if entry.ID == "" {
		entry.ID = xid.New("pay")
	}
	s.payments[entry.ID] = entry

	inst.LatestPaymentDate = appendReq.NewLatestDate
	s.installments[inst.ID] = inst

	s.sales[appendReq.Sale.ID] = appendReq.Sale
	s.bumpEmployeeLocked(appendReq.EmployeeUserID)
	s.logs = append(s.logs, appendReq.Log)

	out := entry
	return &out, nil
}

func (s *Store) ListPayments(ctx context.Context, installmentID string) ([]domain.PaymentEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []domain.PaymentEntry
	for _, p := range s.payments {
		if p.InstallmentID == installmentID {
			entries = append(entries, p)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (s *Store) UpdatePayment(ctx context.Context, id string, entry domain.PaymentEntry) (*domain.PaymentEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.payments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	existing.SelectedMonth = entry.SelectedMonth
	existing.Payment = entry.Payment
	existing.PaymentDate = entry.PaymentDate
	existing.DatePaid = entry.DatePaid
	s.payments[id] = existing
	out := existing
	return &out, nil
}

func (s *Store) CreateFinancing(ctx context.Context, financing domain.Financing) (*domain.Financing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[financing.ItemID]; !ok {
		return nil, store.ErrNotFound
	}
	s.financing[financing.ID] = financing
	out := financing
	return &out, nil
}

func (s *Store) GetFinancing(ctx context.Context, id string) (*domain.Financing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fin, ok := s.financing[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := fin
	return &out, nil
}

func (s *Store) ListFinancing(ctx context.Context, filter store.InstallmentFilter) ([]domain.Financing, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Financing, 0, len(s.financing))
	for _, fin := range s.financing {
		if !matchesFilter(fin.BranchID, fin.InstallmentDue, filter) {
			continue
		}
		matched = append(matched, fin)
	}
	sort.Slice(matched, func(i, j int) bool {
		if filter.SortDue == "desc" {
			return matched[i].InstallmentDue.After(matched[j].InstallmentDue)
		}
		return matched[i].InstallmentDue.Before(matched[j].InstallmentDue)
	})
	total := len(matched)
	return paginate(matched, filter.Offset, filter.Limit), total, nil
}

func (s *Store) SearchFinancingByCustomer(ctx context.Context, branchID string, query string, limit int) ([]domain.Financing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query = strings.ToLower(query)
	var matched []domain.Financing
	for _, fin := range s.financing {
		if branchID != "" && fin.BranchID != branchID {
			continue
		}
		if strings.Contains(strings.ToLower(fin.CustomerName), query) {
			matched = append(matched, fin)
		}
	}
	return capSlice(matched, limit), nil
}

func (s *Store) SearchFinancingByItem(ctx context.Context, branchID string, query string, limit int) ([]domain.Financing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query = strings.ToLower(query)
	var matched []domain.Financing
	for _, fin := range s.financing {
		if branchID != "" && fin.BranchID != branchID {
			continue
		}
		item, ok := s.items[fin.ItemID]
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(item.ItemName), query) {
			matched = append(matched, fin)
		}
	}
	return capSlice(matched, limit), nil
}

func (s *Store) UpdateFinancingStatus(ctx context.Context, id string, status string) (*domain.Financing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fin, ok := s.financing[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	fin.Status = status
	s.financing[id] = fin
	out := fin
	return &out, nil
}

func (s *Store) DeleteFinancing(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.financing[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.financing, id)
	return nil
}

func (s *Store) CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	out := item
	return &out, nil
}

func (s *Store) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := item
	return &out, nil
}

func (s *Store) ListItems(ctx context.Context, branchID string) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []domain.Item
	for _, item := range s.items {
		if branchID != "" && item.BranchID != branchID {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemName < items[j].ItemName })
	return items, nil
}

func (s *Store) AdjustItemStock(ctx context.Context, id string, delta int) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if item.Stocks+delta < 0 {
		return nil, store.ErrInsufficientStock
	}
	item.Stocks += delta
	s.items[id] = item
	out := item
	return &out, nil
}

func (s *Store) CreateBranch(ctx context.Context, branch domain.Branch) (*domain.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches[branch.ID] = branch
	out := branch
	return &out, nil
}

func (s *Store) GetBranch(ctx context.Context, id string) (*domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	branch, ok := s.branches[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := branch
	return &out, nil
}

func (s *Store) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	branches := make([]domain.Branch, 0, len(s.branches))
	for _, b := range s.branches {
		branches = append(branches, b)
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].BranchName < branches[j].BranchName })
	return branches, nil
}

func (s *Store) ListCustomers(ctx context.Context, branchID string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var customers []domain.Customer
	for _, c := range s.customers {
		if branchID != "" && c.BranchID != branchID {
			continue
		}
		customers = append(customers, c)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].Name < customers[j].Name })
	return customers, nil
}

func (s *Store) ListEmployees(ctx context.Context, branchID string) ([]domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var employees []domain.Employee
	for _, e := range s.employees {
		if branchID != "" && e.BranchID != branchID {
			continue
		}
		employees = append(employees, e)
	}
	sort.Slice(employees, func(i, j int) bool { return employees[i].Name < employees[j].Name })
	return employees, nil
}

func (s *Store) CreateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[employee.ID] = employee
	out := employee
	return &out, nil
}

func (s *Store) ListSales(ctx context.Context, branchID string, from time.Time, to time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sales []domain.Sale
	for _, sale := range s.sales {
		if branchID != "" && sale.BranchID != branchID {
			continue
		}
		if !from.IsZero() && sale.DateIssued.Before(from) {
			continue
		}
		if !to.IsZero() && sale.DateIssued.After(to) {
			continue
		}
		sales = append(sales, sale)
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].DateIssued.Before(sales[j].DateIssued) })
	return sales, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[expense.ID] = expense
	out := expense
	return &out, nil
}

func (s *Store) ListExpenses(ctx context.Context, branchID string) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var expenses []domain.Expense
	for _, e := range s.expenses {
		if branchID != "" && e.BranchID != branchID {
			continue
		}
		expenses = append(expenses, e)
	}
	sort.Slice(expenses, func(i, j int) bool { return expenses[i].DateSpent.Before(expenses[j].DateSpent) })
	return expenses, nil
}

func (s *Store) CreateLog(ctx context.Context, entry domain.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	return nil
}

func (s *Store) ListLogs(ctx context.Context, branchID string, category string, limit int) ([]domain.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []domain.LogEntry
	for i := len(s.logs) - 1; i >= 0; i-- {
		entry := s.logs[i]
		if branchID != "" && entry.BranchID != branchID {
			continue
		}
		if category != "" && entry.LogCategory != category {
			continue
		}
		entries = append(entries, entry)
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[username] = user
	return nil
}

// bumpEmployeeLocked increments the transaction counter of the employee
// linked to the given user. Callers hold the write lock. A missing employee
// row is not an error; head-office users have none.
func (s *Store) bumpEmployeeLocked(userID string) {
	if userID == "" {
		return
	}
	for id, e := range s.employees {
		if e.UserID == userID {
			e.NumberOfTransactions++
			s.employees[id] = e
			return
		}
	}
}

func matchesFilter(branchID string, due time.Time, filter store.InstallmentFilter) bool {
	if filter.BranchID != "" && branchID != filter.BranchID {
		return false
	}
	if !filter.DueFrom.IsZero() && due.Before(filter.DueFrom) {
		return false
	}
	if !filter.DueTo.IsZero() && due.After(filter.DueTo) {
		return false
	}
	return true
}

func sortByDue(installments []domain.Installment, order string) {
	sort.Slice(installments, func(i, j int) bool {
		if order == "desc" {
			return installments[i].InstallmentDue.After(installments[j].InstallmentDue)
		}
		return installments[i].InstallmentDue.Before(installments[j].InstallmentDue)
	})
}

func paginate[T any](rows []T, offset int, limit int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func capSlice[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
