package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hulugan/backend/internal/cache"
	"hulugan/backend/internal/domain"
	"hulugan/backend/internal/schedule"
	"hulugan/backend/internal/store"
	"hulugan/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const (
	pageSize      = 30
	searchLimit   = 5
	duesCacheTTL  = 5 * time.Minute
	dateLayout    = "2006-01-02"
	defaultLogCap = 100
)

type Service struct {
	repo store.Repository
	dues cache.DuesCache
	// promoteOnDuePayment persists the classifier's green promotion as a
	// real Fully-paid status write. Off by default: the promotion started
	// life as an accidental mutation in the old admin screen and branches
	// disagree on whether they want it.
	promoteOnDuePayment bool
	now                 func() time.Time
}

func New(repo store.Repository, duesCache cache.DuesCache, promoteOnDuePayment bool) *Service {
	if duesCache == nil {
		duesCache = cache.NoopDuesCache{}
	}
	return &Service{
		repo:                repo,
		dues:                duesCache,
		promoteOnDuePayment: promoteOnDuePayment,
		now:                 func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, fmt.Errorf("authentication required")
	}
	return actor, nil
}

// branchScope resolves the branch a caller may see. Super sees everything
// (empty scope); admin is pinned to their own branch.
func branchScope(actor domain.Actor) string {
	if actor.Role == domain.RoleSuper {
		return ""
	}
	return actor.BranchID
}

func (s *Service) requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	if actor.Role != domain.RoleAdmin {
		return domain.Actor{}, fmt.Errorf("admin role required")
	}
	return actor, nil
}

func (s *Service) requireSuper(ctx context.Context) (domain.Actor, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	if actor.Role != domain.RoleSuper {
		return domain.Actor{}, fmt.Errorf("super role required")
	}
	return actor, nil
}

// scopedInstallment loads an installment and verifies the actor may touch it.
func (s *Service) scopedInstallment(ctx context.Context, actor domain.Actor, id string) (*domain.Installment, error) {
	inst, err := s.repo.GetInstallment(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope := branchScope(actor); scope != "" && inst.BranchID != scope {
		return nil, store.ErrNotFound
	}
	return inst, nil
}

func (s *Service) scopedFinancing(ctx context.Context, actor domain.Actor, id string) (*domain.Financing, error) {
	fin, err := s.repo.GetFinancing(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope := branchScope(actor); scope != "" && fin.BranchID != scope {
		return nil, store.ErrNotFound
	}
	return fin, nil
}

func (s *Service) logEvent(ctx context.Context, actor domain.Actor, branchID string, installmentID string, label string, category string) {
	err := s.repo.CreateLog(ctx, domain.LogEntry{
		ID:            xid.New("log"),
		BranchID:      branchID,
		UserID:        actor.Username,
		InstallmentID: installmentID,
		LogLabel:      label,
		LogCategory:   category,
		CreatedAt:     s.now(),
	})
	if err != nil {
		log.Printf("[service] log write failed: %v", err)
	}
}

func actorDisplayName(actor domain.Actor) string {
	if actor.Name != "" {
		return actor.Name
	}
	return actor.Username
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return t.UTC(), nil
}

// CreateInstallment runs the whole intake flow in one store transaction:
// schedule computation, the installment row, the optional down-payment
// ledger entry, the customer record, the stock movement, the cash sale, the
// employee counter and the audit log.
func (s *Service) CreateInstallment(ctx context.Context, req domain.InstallmentCreateRequest) (*domain.InstallmentView, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.ItemID = strings.TrimSpace(req.ItemID)
	if req.CustomerName == "" || req.ItemID == "" {
		return nil, fmt.Errorf("customer name and item are required")
	}
	if req.Term < 1 {
		return nil, fmt.Errorf("term must be at least one month")
	}
	if req.Total <= 0 || req.PartialAmountPaid < 0 || req.PartialAmountPaid >= req.Total {
		return nil, fmt.Errorf("invalid amounts")
	}
	released, err := parseDate(req.DateReleased)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item.BranchID != actor.BranchID {
		return nil, store.ErrNotFound
	}

	now := s.now()
	instID := xid.New("inst")
	customerID := xid.New("cus")

	inst := domain.Installment{
		ID:                  instID,
		BranchID:            actor.BranchID,
		ItemID:              item.ID,
		CustomerID:          customerID,
		CustomerName:        req.CustomerName,
		CustomerFullAddress: strings.TrimSpace(req.CustomerFullAddress),
		CustomerOccupation:  strings.TrimSpace(req.CustomerOccupation),
		CustomerBirTin:      strings.TrimSpace(req.CustomerBirTin),
		PhoneNumber:         strings.TrimSpace(req.PhoneNumber),
		Trademark:           strings.TrimSpace(req.Trademark),
		Term:                req.Term,
		Total:               req.Total,
		PartialAmountPaid:   req.PartialAmountPaid,
		MonthlyPayment:      schedule.MonthlyPayment(req.Total, req.PartialAmountPaid, req.Term),
		DateReleased:        released,
		InstallmentDue:      schedule.DueDate(released, req.Term),
		LatestPaymentDate:   schedule.NextPaymentDate(released, req.PartialAmountPaid),
		Status:              domain.StatusOngoing,
		CreatedAt:           now,
	}

	plan := store.PlanCreation{
		Installment: inst,
		Customer: domain.Customer{
			ID:          customerID,
			BranchID:    actor.BranchID,
			Name:        inst.CustomerName,
			FullAddress: inst.CustomerFullAddress,
			Occupation:  inst.CustomerOccupation,
			Phone:       inst.PhoneNumber,
			BirTin:      inst.CustomerBirTin,
			CreatedAt:   now,
		},
		Sale: domain.Sale{
			ID:            xid.New("sale"),
			BranchID:      actor.BranchID,
			InstallmentID: instID,
			Amount:        req.PartialAmountPaid,
			PaymentMethod: domain.PaymentMethodCash,
			DateIssued:    now,
		},
		Log: domain.LogEntry{
			ID:            xid.New("log"),
			BranchID:      actor.BranchID,
			UserID:        actor.Username,
			InstallmentID: instID,
			LogLabel:      fmt.Sprintf("%s created a new installment for %s", actorDisplayName(actor), inst.CustomerName),
			LogCategory:   domain.LogCategoryInstallment,
			CreatedAt:     now,
		},
		EmployeeUserID: actor.Username,
	}

	if req.PartialAmountPaid > 0 {
		plan.DownPayment = &domain.PaymentEntry{
			ID:            xid.New("pay"),
			InstallmentID: instID,
			SelectedMonth: fmt.Sprintf("%s (Down Payment)", released.Month().String()),
			Payment:       req.PartialAmountPaid,
			PaymentDate:   released,
			DatePaid:      released,
			CreatedAt:     now,
		}
	}

	created, err := s.repo.CreateInstallmentPlan(ctx, plan)
	if err != nil {
		return nil, err
	}
	view, err := s.installmentView(ctx, *created, actor.Role == domain.RoleSuper)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Service) GetInstallment(ctx context.Context, id string) (*domain.InstallmentView, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	inst, err := s.scopedInstallment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.installmentView(ctx, *inst, actor.Role == domain.RoleSuper)
}

func (s *Service) ListInstallments(ctx context.Context, req domain.InstallmentListRequest) (*domain.InstallmentListResponse, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.SortDue != "" && req.SortDue != "asc" && req.SortDue != "desc" {
		return nil, fmt.Errorf("invalid sort order %q", req.SortDue)
	}

	filter := store.InstallmentFilter{
		BranchID: branchScope(actor),
		SortDue:  req.SortDue,
		Limit:    pageSize,
		Offset:   (req.Page - 1) * pageSize,
	}
	if req.DueFrom != "" {
		if filter.DueFrom, err = parseDate(req.DueFrom); err != nil {
			return nil, err
		}
	}
	if req.DueTo != "" {
		if filter.DueTo, err = parseDate(req.DueTo); err != nil {
			return nil, err
		}
	}

	installments, total, err := s.repo.ListInstallments(ctx, filter)
	if err != nil {
		return nil, err
	}

	views, err := s.installmentViews(ctx, installments, actor.Role == domain.RoleSuper)
	if err != nil {
		return nil, err
	}

	return &domain.InstallmentListResponse{
		Installments: views,
		TotalRows:    total,
		Page:         req.Page,
		PageSize:     pageSize,
	}, nil
}

// SearchInstallments looks up by customer name and falls back to item name
// when nothing matches. The caller's sequence token is echoed back so stale
// responses can be discarded client-side.
func (s *Service) SearchInstallments(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	resp := &domain.SearchResponse{Seq: req.Seq, Installments: []domain.InstallmentView{}}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return resp, nil
	}

	scope := branchScope(actor)
	installments, err := s.repo.SearchInstallmentsByCustomer(ctx, scope, query, searchLimit)
	if err != nil {
		return nil, err
	}
	if len(installments) == 0 {
		installments, err = s.repo.SearchInstallmentsByItem(ctx, scope, query, searchLimit)
		if err != nil {
			return nil, err
		}
	}

	resp.Installments, err = s.installmentViews(ctx, installments, actor.Role == domain.RoleSuper)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// AddPayment appends a ledger entry and everything that rides with it. All
// four payment fields are mandatory; the month advance keys off the entry's
// due date while the day of month stays anchored to the plan's original due
// day plus one.
func (s *Service) AddPayment(ctx context.Context, installmentID string, req domain.PaymentCreateRequest) (*domain.PaymentEntry, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	req.SelectedMonth = strings.TrimSpace(req.SelectedMonth)
	if req.SelectedMonth == "" || req.Payment <= 0 || strings.TrimSpace(req.PaymentDate) == "" || strings.TrimSpace(req.DatePaid) == "" {
		return nil, store.ErrInvalidPayment
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		return nil, store.ErrInvalidPayment
	}
	datePaid, err := parseDate(req.DatePaid)
	if err != nil {
		return nil, store.ErrInvalidPayment
	}

	inst, err := s.scopedInstallment(ctx, actor, installmentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	appendReq := store.PaymentAppend{
		InstallmentID: inst.ID,
		Entry: domain.PaymentEntry{
			ID:            xid.New("pay"),
			InstallmentID: inst.ID,
			SelectedMonth: req.SelectedMonth,
			Payment:       req.Payment,
			PaymentDate:   paymentDate,
			DatePaid:      datePaid,
			CreatedAt:     now,
		},
		NewLatestDate: schedule.AdvanceAfterPayment(inst.InstallmentDue, paymentDate),
		Sale: domain.Sale{
			ID:            xid.New("sale"),
			BranchID:      inst.BranchID,
			InstallmentID: inst.ID,
			Amount:        req.Payment,
			PaymentMethod: domain.PaymentMethodCash,
			DateIssued:    now,
		},
		Log: domain.LogEntry{
			ID:            xid.New("log"),
			BranchID:      inst.BranchID,
			UserID:        actor.Username,
			InstallmentID: inst.ID,
			LogLabel:      fmt.Sprintf("%s accepted an installment payment of %s", actorDisplayName(actor), inst.CustomerName),
			LogCategory:   domain.LogCategoryInstallmentPayment,
			CreatedAt:     now,
		},
		EmployeeUserID: actor.Username,
	}

	return s.repo.AppendPayment(ctx, appendReq)
}

func (s *Service) ListPayments(ctx context.Context, installmentID string) ([]domain.PaymentEntry, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.scopedInstallment(ctx, actor, installmentID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, installmentID)
}

func (s *Service) UpdatePayment(ctx context.Context, installmentID string, paymentID string, req domain.PaymentUpdateRequest) (*domain.PaymentEntry, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.scopedInstallment(ctx, actor, installmentID); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListPayments(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	found := false
	for _, e := range entries {
		if e.ID == paymentID {
			found = true
			break
		}
	}
	if !found {
		return nil, store.ErrNotFound
	}

	req.SelectedMonth = strings.TrimSpace(req.SelectedMonth)
	if req.SelectedMonth == "" || req.Payment <= 0 {
		return nil, store.ErrInvalidPayment
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		return nil, store.ErrInvalidPayment
	}
	datePaid, err := parseDate(req.DatePaid)
	if err != nil {
		return nil, store.ErrInvalidPayment
	}

	return s.repo.UpdatePayment(ctx, paymentID, domain.PaymentEntry{
		InstallmentID: installmentID,
		SelectedMonth: req.SelectedMonth,
		Payment:       req.Payment,
		PaymentDate:   paymentDate,
		DatePaid:      datePaid,
	})
}

// SetInstallmentStatus is the manual override (Fully-paid, Deposit, Remate).
// Manager PIN validation happens at the API layer before this runs.
func (s *Service) SetInstallmentStatus(ctx context.Context, id string, status string) (*domain.Installment, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if status != domain.StatusFullyPaid && status != domain.StatusDeposit && status != domain.StatusRemate {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	inst, err := s.scopedInstallment(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateInstallmentStatus(ctx, inst.ID, status)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, actor, inst.BranchID, inst.ID,
		fmt.Sprintf("%s marked %s's installment as %s", actorDisplayName(actor), inst.CustomerName, status),
		domain.LogCategoryStatusChange)
	return updated, nil
}

// SaveCounters stores the collector's tally. A zero white tally defaults to
// purple plus yellow, matching the old ledger sheet habit.
func (s *Service) SaveCounters(ctx context.Context, id string, req domain.CountersUpdateRequest) (*domain.Installment, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if req.Purple < 0 || req.Yellow < 0 || req.White < 0 {
		return nil, fmt.Errorf("counters must not be negative")
	}
	inst, err := s.scopedInstallment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.White == 0 {
		req.White = req.Purple + req.Yellow
	}
	return s.repo.UpdateInstallmentCounters(ctx, inst.ID, req.Purple, req.Yellow, req.White, strings.TrimSpace(req.Comment))
}

func (s *Service) UpdateMonthly(ctx context.Context, id string, req domain.MonthlyUpdateRequest) (*domain.Installment, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if req.MonthlyPayment <= 0 {
		return nil, fmt.Errorf("monthly payment must be positive")
	}
	inst, err := s.scopedInstallment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateInstallmentMonthly(ctx, inst.ID, req.MonthlyPayment)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, actor, inst.BranchID, inst.ID,
		fmt.Sprintf("%s updated the monthly payment of %s", actorDisplayName(actor), inst.CustomerName),
		domain.LogCategoryInstallment)
	return updated, nil
}

// DeleteInstallment removes the plan, its ledger and the customer record in
// one cascade. Manager PIN validation happens at the API layer.
func (s *Service) DeleteInstallment(ctx context.Context, id string) error {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return err
	}
	inst, err := s.scopedInstallment(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteInstallmentCascade(ctx, inst.ID); err != nil {
		return err
	}
	s.logEvent(ctx, actor, inst.BranchID, inst.ID,
		fmt.Sprintf("%s deleted the installment record of %s", actorDisplayName(actor), inst.CustomerName),
		domain.LogCategoryInstallment)
	return nil
}

// Dues builds the collections board: purple for plans due today, yellow for
// plans a week or more past due. The snapshot is cached per scope for a few
// minutes.
func (s *Service) Dues(ctx context.Context) (*domain.DuesResponse, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	scope := branchScope(actor)
	today := s.now()

	key := fmt.Sprintf("dues:%s:%s", scope, today.Format(dateLayout))
	if cached, ok, err := s.dues.Get(ctx, key); err == nil && ok {
		return cached, nil
	}

	installments, _, err := s.repo.ListInstallments(ctx, store.InstallmentFilter{BranchID: scope})
	if err != nil {
		return nil, err
	}

	resp := &domain.DuesResponse{
		Purple: []domain.InstallmentView{},
		Yellow: []domain.InstallmentView{},
	}
	withBranch := actor.Role == domain.RoleSuper
	for _, inst := range installments {
		switch {
		case schedule.DueToday(inst, today):
			view, err := s.installmentView(ctx, inst, withBranch)
			if err != nil {
				return nil, err
			}
			resp.Purple = append(resp.Purple, *view)
		case schedule.Lapsed(inst, today):
			view, err := s.installmentView(ctx, inst, withBranch)
			if err != nil {
				return nil, err
			}
			resp.Yellow = append(resp.Yellow, *view)
		}
	}

	if err := s.dues.Set(ctx, key, resp, duesCacheTTL); err != nil {
		log.Printf("[service] dues cache set failed: %v", err)
	}
	return resp, nil
}

// Reminders lists the collection notices for the caller's scope: due today,
// overdue up to a week, overdue up to two weeks.
func (s *Service) Reminders(ctx context.Context) ([]domain.Reminder, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	installments, _, err := s.repo.ListInstallments(ctx, store.InstallmentFilter{BranchID: branchScope(actor)})
	if err != nil {
		return nil, err
	}
	reminders := []domain.Reminder{}
	for _, inst := range installments {
		if inst.Status != domain.StatusOngoing {
			continue
		}
		if r := schedule.ReminderFor(inst, s.now()); r != nil {
			reminders = append(reminders, *r)
		}
	}
	return reminders, nil
}

// ExportInstallments returns every installment in the caller's scope as
// views, for the XLSX report.
func (s *Service) ExportInstallments(ctx context.Context) ([]domain.InstallmentView, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	installments, _, err := s.repo.ListInstallments(ctx, store.InstallmentFilter{
		BranchID: branchScope(actor),
		SortDue:  "asc",
	})
	if err != nil {
		return nil, err
	}
	return s.installmentViews(ctx, installments, actor.Role == domain.RoleSuper)
}

func (s *Service) CreateFinancing(ctx context.Context, req domain.FinancingCreateRequest) (*domain.FinancingView, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.ItemID = strings.TrimSpace(req.ItemID)
	if req.CustomerName == "" || req.ItemID == "" {
		return nil, fmt.Errorf("customer name and item are required")
	}
	if req.Term < 1 {
		return nil, fmt.Errorf("term must be at least one month")
	}
	if req.Total <= 0 || req.Amount <= 0 || req.PartialAmountPaid < 0 {
		return nil, fmt.Errorf("invalid amounts")
	}
	released, err := parseDate(req.DateReleased)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item.BranchID != actor.BranchID {
		return nil, store.ErrNotFound
	}

	now := s.now()
	fin := domain.Financing{
		ID:                  xid.New("fin"),
		BranchID:            actor.BranchID,
		ItemID:              item.ID,
		Amount:              req.Amount,
		CustomerName:        req.CustomerName,
		CustomerFullAddress: strings.TrimSpace(req.CustomerFullAddress),
		CustomerOccupation:  strings.TrimSpace(req.CustomerOccupation),
		PhoneNumber:         strings.TrimSpace(req.PhoneNumber),
		Trademark:           strings.TrimSpace(req.Trademark),
		Term:                req.Term,
		Total:               req.Total,
		PartialAmountPaid:   req.PartialAmountPaid,
		MonthlyPayment:      schedule.MonthlyPayment(req.Total, req.PartialAmountPaid, req.Term),
		DateReleased:        released,
		InstallmentDue:      schedule.DueDate(released, req.Term),
		LatestPaymentDate:   schedule.NextPaymentDate(released, req.PartialAmountPaid),
		Status:              domain.StatusOngoing,
		CreatedAt:           now,
	}

	created, err := s.repo.CreateFinancing(ctx, fin)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, actor, actor.BranchID, created.ID,
		fmt.Sprintf("%s created a financing record for %s", actorDisplayName(actor), created.CustomerName),
		domain.LogCategoryFinancing)

	view, err := s.financingView(ctx, *created, actor.Role == domain.RoleSuper)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Service) ListFinancing(ctx context.Context, req domain.InstallmentListRequest) (*domain.FinancingListResponse, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.SortDue != "" && req.SortDue != "asc" && req.SortDue != "desc" {
		return nil, fmt.Errorf("invalid sort order %q", req.SortDue)
	}

	filter := store.InstallmentFilter{
		BranchID: branchScope(actor),
		SortDue:  req.SortDue,
		Limit:    pageSize,
		Offset:   (req.Page - 1) * pageSize,
	}
	if req.DueFrom != "" {
		if filter.DueFrom, err = parseDate(req.DueFrom); err != nil {
			return nil, err
		}
	}
	if req.DueTo != "" {
		if filter.DueTo, err = parseDate(req.DueTo); err != nil {
			return nil, err
		}
	}

	financing, total, err := s.repo.ListFinancing(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]domain.FinancingView, 0, len(financing))
	for _, fin := range financing {
		view, err := s.financingView(ctx, fin, actor.Role == domain.RoleSuper)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}

	return &domain.FinancingListResponse{
		Financing: views,
		TotalRows: total,
		Page:      req.Page,
		PageSize:  pageSize,
	}, nil
}

func (s *Service) SearchFinancing(ctx context.Context, req domain.SearchRequest) (*domain.FinancingSearchResponse, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	resp := &domain.FinancingSearchResponse{Seq: req.Seq, Financing: []domain.FinancingView{}}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return resp, nil
	}

	scope := branchScope(actor)
	financing, err := s.repo.SearchFinancingByCustomer(ctx, scope, query, searchLimit)
	if err != nil {
		return nil, err
	}
	if len(financing) == 0 {
		financing, err = s.repo.SearchFinancingByItem(ctx, scope, query, searchLimit)
		if err != nil {
			return nil, err
		}
	}

	for _, fin := range financing {
		view, err := s.financingView(ctx, fin, actor.Role == domain.RoleSuper)
		if err != nil {
			return nil, err
		}
		resp.Financing = append(resp.Financing, *view)
	}
	return resp, nil
}

func (s *Service) SetFinancingStatus(ctx context.Context, id string, status string) (*domain.Financing, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if status != domain.StatusFullyPaid && status != domain.StatusDeposit && status != domain.StatusRemate {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	fin, err := s.scopedFinancing(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateFinancingStatus(ctx, fin.ID, status)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, actor, fin.BranchID, fin.ID,
		fmt.Sprintf("%s marked %s's financing record as %s", actorDisplayName(actor), fin.CustomerName, status),
		domain.LogCategoryStatusChange)
	return updated, nil
}

func (s *Service) DeleteFinancing(ctx context.Context, id string) error {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return err
	}
	fin, err := s.scopedFinancing(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteFinancing(ctx, fin.ID); err != nil {
		return err
	}
	s.logEvent(ctx, actor, fin.BranchID, fin.ID,
		fmt.Sprintf("%s deleted the financing record of %s", actorDisplayName(actor), fin.CustomerName),
		domain.LogCategoryFinancing)
	return nil
}

func (s *Service) CreateItem(ctx context.Context, req domain.ItemCreateRequest) (*domain.Item, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	branchID := strings.TrimSpace(req.BranchID)
	switch actor.Role {
	case domain.RoleAdmin:
		branchID = actor.BranchID
	case domain.RoleSuper:
		if branchID == "" {
			return nil, fmt.Errorf("branch is required")
		}
	default:
		return nil, fmt.Errorf("admin role required")
	}

	req.ItemName = strings.TrimSpace(req.ItemName)
	if req.ItemName == "" {
		return nil, fmt.Errorf("item name is required")
	}
	if req.ItemPrice <= 0 || req.Stocks < 0 {
		return nil, fmt.Errorf("invalid price or stock")
	}
	if _, err := s.repo.GetBranch(ctx, branchID); err != nil {
		return nil, err
	}

	return s.repo.CreateItem(ctx, domain.Item{
		ID:        xid.New("itm"),
		BranchID:  branchID,
		ItemName:  req.ItemName,
		ItemIMEI:  strings.TrimSpace(req.ItemIMEI),
		Serial:    strings.TrimSpace(req.Serial),
		ItemPrice: req.ItemPrice,
		Stocks:    req.Stocks,
		CreatedAt: s.now(),
	})
}

func (s *Service) ListItems(ctx context.Context) ([]domain.Item, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListItems(ctx, branchScope(actor))
}

func (s *Service) AdjustItemStock(ctx context.Context, id string, delta int) (*domain.Item, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, fmt.Errorf("delta must not be zero")
	}
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope := branchScope(actor); scope != "" && item.BranchID != scope {
		return nil, store.ErrNotFound
	}
	return s.repo.AdjustItemStock(ctx, id, delta)
}

func (s *Service) CreateBranch(ctx context.Context, req domain.BranchCreateRequest) (*domain.Branch, error) {
	actor, err := s.requireSuper(ctx)
	if err != nil {
		return nil, err
	}
	req.BranchName = strings.TrimSpace(req.BranchName)
	if req.BranchName == "" {
		return nil, fmt.Errorf("branch name is required")
	}
	branch, err := s.repo.CreateBranch(ctx, domain.Branch{
		ID:         xid.New("br"),
		BranchName: req.BranchName,
		Address:    strings.TrimSpace(req.Address),
		CreatedAt:  s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, actor, branch.ID, "",
		fmt.Sprintf("%s opened branch %s", actorDisplayName(actor), branch.BranchName),
		domain.LogCategoryBranch)
	return branch, nil
}

func (s *Service) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListBranches(ctx)
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCustomers(ctx, branchScope(actor))
}

func (s *Service) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListEmployees(ctx, branchScope(actor))
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (*domain.Expense, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" || req.Amount <= 0 {
		return nil, fmt.Errorf("label and a positive amount are required")
	}
	spent, err := parseDate(req.DateSpent)
	if err != nil {
		return nil, err
	}
	expense, err := s.repo.CreateExpense(ctx, domain.Expense{
		ID:        xid.New("exp"),
		BranchID:  actor.BranchID,
		Label:     req.Label,
		Amount:    req.Amount,
		DateSpent: spent,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, actor, actor.BranchID, "",
		fmt.Sprintf("%s recorded an expense: %s", actorDisplayName(actor), expense.Label),
		domain.LogCategoryExpense)
	return expense, nil
}

func (s *Service) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, branchScope(actor))
}

// SalesSummary totals sales over a date range with exact arithmetic. Super
// callers also get a per-branch breakdown.
func (s *Service) SalesSummary(ctx context.Context, fromStr string, toStr string) (*domain.SalesSummary, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	var from, to time.Time
	if fromStr != "" {
		if from, err = parseDate(fromStr); err != nil {
			return nil, err
		}
	}
	if toStr != "" {
		if to, err = parseDate(toStr); err != nil {
			return nil, err
		}
		to = to.AddDate(0, 0, 1).Add(-time.Second)
	}

	sales, err := s.repo.ListSales(ctx, branchScope(actor), from, to)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	branchTotals := map[string]decimal.Decimal{}
	for _, sale := range sales {
		amount := decimal.NewFromFloat(sale.Amount)
		total = total.Add(amount)
		branchTotals[sale.BranchID] = branchTotals[sale.BranchID].Add(amount)
	}

	summary := &domain.SalesSummary{
		From:      fromStr,
		To:        toStr,
		SaleCount: len(sales),
	}
	summary.TotalAmount, _ = total.Float64()
	if actor.Role == domain.RoleSuper {
		summary.BranchTotals = map[string]float64{}
		for branchID, amount := range branchTotals {
			summary.BranchTotals[branchID], _ = amount.Float64()
		}
	}
	return summary, nil
}

func (s *Service) ListLogs(ctx context.Context, category string, limit int) ([]domain.LogEntry, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > 500 {
		limit = defaultLogCap
	}
	return s.repo.ListLogs(ctx, branchScope(actor), strings.TrimSpace(category), limit)
}

// installmentView joins an installment with its item, ledger and branch
// name, classifies it, and applies the optional due-date promotion.
func (s *Service) installmentView(ctx context.Context, inst domain.Installment, withBranch bool) (*domain.InstallmentView, error) {
	ledger, err := s.repo.ListPayments(ctx, inst.ID)
	if err != nil {
		return nil, err
	}

	cls := schedule.Classify(inst, ledger, s.now())
	if cls.Promote && s.promoteOnDuePayment && inst.Status != domain.StatusFullyPaid {
		updated, err := s.repo.UpdateInstallmentStatus(ctx, inst.ID, domain.StatusFullyPaid)
		if err == nil {
			inst = *updated
			if actor, ok := ActorFromContext(ctx); ok {
				s.logEvent(ctx, actor, inst.BranchID, inst.ID,
					fmt.Sprintf("%s's installment auto-promoted to Fully-paid on due-date payment", inst.CustomerName),
					domain.LogCategoryStatusChange)
			}
		}
	}

	view := &domain.InstallmentView{
		Installment: inst,
		MonthsToPay: ledger,
		Color:       cls.Color,
	}
	if item, err := s.repo.GetItem(ctx, inst.ItemID); err == nil {
		view.Item = item
	}
	if withBranch {
		if branch, err := s.repo.GetBranch(ctx, inst.BranchID); err == nil {
			view.BranchName = branch.BranchName
		}
	}
	return view, nil
}

func (s *Service) installmentViews(ctx context.Context, installments []domain.Installment, withBranch bool) ([]domain.InstallmentView, error) {
	views := make([]domain.InstallmentView, 0, len(installments))
	for _, inst := range installments {
		view, err := s.installmentView(ctx, inst, withBranch)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *Service) financingView(ctx context.Context, fin domain.Financing, withBranch bool) (*domain.FinancingView, error) {
	// Financing rows share the installment classifier; they carry the same
	// schedule fields and have no ledger of their own.
	shadow := domain.Installment{
		Status:            fin.Status,
		LatestPaymentDate: fin.LatestPaymentDate,
	}
	cls := schedule.Classify(shadow, nil, s.now())

	view := &domain.FinancingView{
		Financing: fin,
		Color:     cls.Color,
	}
	if item, err := s.repo.GetItem(ctx, fin.ItemID); err == nil {
		view.Item = item
	}
	if withBranch {
		if branch, err := s.repo.GetBranch(ctx, fin.BranchID); err == nil {
			view.BranchName = branch.BranchName
		}
	}
	return view, nil
}
