package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"hulugan/backend/internal/domain"
	"hulugan/backend/internal/store"
	"hulugan/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const installmentColumns = `
	id, branch_id, item_id, customer_id, customer_name, customer_full_address,
	customer_occupation, customer_bir_tin, phone_number, trademark, term, total,
	partial_amount_paid, monthly_payment, date_released, installment_due,
	latest_payment_date, status, purple, yellow, white, comment, created_at
`

func scanInstallment(row interface{ Scan(...any) error }) (*domain.Installment, error) {
	var inst domain.Installment
	var customerID, fullAddress, occupation, birTin, phone, trademark, comment sql.NullString
	err := row.Scan(
		&inst.ID, &inst.BranchID, &inst.ItemID, &customerID, &inst.CustomerName,
		&fullAddress, &occupation, &birTin, &phone, &trademark, &inst.Term,
		&inst.Total, &inst.PartialAmountPaid, &inst.MonthlyPayment,
		&inst.DateReleased, &inst.InstallmentDue, &inst.LatestPaymentDate,
		&inst.Status, &inst.Purple, &inst.Yellow, &inst.White, &comment,
		&inst.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	inst.CustomerID = customerID.String
	inst.CustomerFullAddress = fullAddress.String
	inst.CustomerOccupation = occupation.String
	inst.CustomerBirTin = birTin.String
	inst.PhoneNumber = phone.String
	inst.Trademark = trademark.String
	inst.Comment = comment.String
	return &inst, nil
}

const financingColumns = `
	id, branch_id, item_id, financing, customer_name, customer_full_address,
	customer_occupation, phone_number, trademark, term, total,
	partial_amount_paid, monthly_payment, date_released, installment_due,
	latest_payment_date, status, purple, yellow, white, comment, created_at
`

func scanFinancing(row interface{ Scan(...any) error }) (*domain.Financing, error) {
	var fin domain.Financing
	var fullAddress, occupation, phone, trademark, comment sql.NullString
	err := row.Scan(
		&fin.ID, &fin.BranchID, &fin.ItemID, &fin.Amount, &fin.CustomerName,
		&fullAddress, &occupation, &phone, &trademark, &fin.Term, &fin.Total,
		&fin.PartialAmountPaid, &fin.MonthlyPayment, &fin.DateReleased,
		&fin.InstallmentDue, &fin.LatestPaymentDate, &fin.Status,
		&fin.Purple, &fin.Yellow, &fin.White, &comment, &fin.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	fin.CustomerFullAddress = fullAddress.String
	fin.CustomerOccupation = occupation.String
	fin.PhoneNumber = phone.String
	fin.Trademark = trademark.String
	fin.Comment = comment.String
	return &fin, nil
}

func (s *Store) CreateInstallmentPlan(ctx context.Context, plan store.PlanCreation) (*domain.Installment, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	inst := plan.Installment

	var stocks int
	err = tx.QueryRowContext(ctx, `
		SELECT stocks FROM items WHERE id = $1 FOR UPDATE
	`, inst.ItemID).Scan(&stocks)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if stocks < 1 {
		return nil, store.ErrInsufficientStock
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE items
		SET stocks = stocks - 1, number_of_sold = number_of_sold + 1
		WHERE id = $1
	`, inst.ItemID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO installments (`+installmentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
	`, inst.ID, inst.BranchID, inst.ItemID, nullIfEmpty(inst.CustomerID),
		inst.CustomerName, nullIfEmpty(inst.CustomerFullAddress),
		nullIfEmpty(inst.CustomerOccupation), nullIfEmpty(inst.CustomerBirTin),
		nullIfEmpty(inst.PhoneNumber), nullIfEmpty(inst.Trademark), inst.Term,
		inst.Total, inst.PartialAmountPaid, inst.MonthlyPayment,
		inst.DateReleased, inst.InstallmentDue, inst.LatestPaymentDate,
		inst.Status, inst.Purple, inst.Yellow, inst.White,
		nullIfEmpty(inst.Comment), inst.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("installment %s already exists", inst.ID)
		}
		return nil, err
	}

	if plan.DownPayment != nil {
		entry := *plan.DownPayment
		if err := insertPayment(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	c := plan.Customer
	_, err = tx.ExecContext(ctx, `
		INSERT INTO customers (id, branch_id, name, full_address, occupation, phone, bir_tin, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, c.ID, c.BranchID, c.Name, nullIfEmpty(c.FullAddress),
		nullIfEmpty(c.Occupation), nullIfEmpty(c.Phone), nullIfEmpty(c.BirTin), c.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := insertSale(ctx, tx, plan.Sale); err != nil {
		return nil, err
	}
	if err := bumpEmployee(ctx, tx, plan.EmployeeUserID); err != nil {
		return nil, err
	}
	if err := insertLog(ctx, tx, plan.Log); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := inst
	return &created, nil
}

func (s *Store) GetInstallment(ctx context.Context, id string) (*domain.Installment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+installmentColumns+` FROM installments WHERE id = $1
	`, id)
	inst, err := scanInstallment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *Store) ListInstallments(ctx context.Context, filter store.InstallmentFilter) ([]domain.Installment, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.BranchID != "" {
		args = append(args, filter.BranchID)
		where += fmt.Sprintf(" AND branch_id = $%d", len(args))
	}
	if !filter.DueFrom.IsZero() {
		args = append(args, filter.DueFrom)
		where += fmt.Sprintf(" AND installment_due >= $%d", len(args))
	}
	if !filter.DueTo.IsZero() {
		args = append(args, filter.DueTo)
		where += fmt.Sprintf(" AND installment_due <= $%d", len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM installments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := " ORDER BY installment_due ASC"
	if filter.SortDue == "desc" {
		order = " ORDER BY installment_due DESC"
	}
	query := `SELECT ` + installmentColumns + ` FROM installments` + where + order
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	installments := make([]domain.Installment, 0, 32)
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, 0, err
		}
		installments = append(installments, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return installments, total, nil
}

func (s *Store) SearchInstallmentsByCustomer(ctx context.Context, branchID string, query string, limit int) ([]domain.Installment, error) {
	sqlQuery := `
		SELECT ` + installmentColumns + `
		FROM installments
		WHERE customer_name ILIKE '%' || $1 || '%'
	`
	args := []any{query}
	if branchID != "" {
		args = append(args, branchID)
		sqlQuery += fmt.Sprintf(" AND branch_id = $%d", len(args))
	}
	args = append(args, limit)
	sqlQuery += fmt.Sprintf(" ORDER BY installment_due ASC LIMIT $%d", len(args))

	return s.queryInstallments(ctx, sqlQuery, args...)
}

func (s *Store) SearchInstallmentsByItem(ctx context.Context, branchID string, query string, limit int) ([]domain.Installment, error) {
	sqlQuery := `
		SELECT i.id, i.branch_id, i.item_id, i.customer_id, i.customer_name,
			i.customer_full_address, i.customer_occupation, i.customer_bir_tin,
			i.phone_number, i.trademark, i.term, i.total, i.partial_amount_paid,
			i.monthly_payment, i.date_released, i.installment_due,
			i.latest_payment_date, i.status, i.purple, i.yellow, i.white,
			i.comment, i.created_at
		FROM installments i
		JOIN items it ON it.id = i.item_id
		WHERE it.item_name ILIKE '%' || $1 || '%'
	`
	args := []any{query}
	if branchID != "" {
		args = append(args, branchID)
		sqlQuery += fmt.Sprintf(" AND i.branch_id = $%d", len(args))
	}
	args = append(args, limit)
	sqlQuery += fmt.Sprintf(" ORDER BY i.installment_due ASC LIMIT $%d", len(args))

	return s.queryInstallments(ctx, sqlQuery, args...)
}

func (s *Store) queryInstallments(ctx context.Context, query string, args ...any) ([]domain.Installment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	installments := make([]domain.Installment, 0, 8)
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		installments = append(installments, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return installments, nil
}

func (s *Store) UpdateInstallmentStatus(ctx context.Context, id string, status string) (*domain.Installment, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE installments SET status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetInstallment(ctx, id)
}

func (s *Store) UpdateInstallmentCounters(ctx context.Context, id string, purple int, yellow int, white int, comment string) (*domain.Installment, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE installments
		SET purple = $2, yellow = $3, white = $4, comment = $5
		WHERE id = $1
	`, id, purple, yellow, white, nullIfEmpty(comment))
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetInstallment(ctx, id)
}

func (s *Store) UpdateInstallmentMonthly(ctx context.Context, id string, monthly float64) (*domain.Installment, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE installments SET monthly_payment = $2 WHERE id = $1
	`, id, monthly)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetInstallment(ctx, id)
}

func (s *Store) DeleteInstallmentCascade(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var customerID sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT customer_id FROM installments WHERE id = $1 FOR UPDATE
	`, id).Scan(&customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM months_to_pay WHERE installment_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM installments WHERE id = $1`, id); err != nil {
		return err
	}
	if customerID.String != "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, customerID.String); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) AppendPayment(ctx context.Context, appendReq store.PaymentAppend) (*domain.PaymentEntry, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var instID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM installments WHERE id = $1 FOR UPDATE
	`, appendReq.InstallmentID).Scan(&instID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	entry := appendReq.Entry
	if entry.ID == "" {
		entry.ID = xid.New("pay")
	}
	entry.InstallmentID = instID
	if err := insertPayment(ctx, tx, entry); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE installments SET latest_payment_date = $2 WHERE id = $1
	`, instID, appendReq.NewLatestDate)
	if err != nil {
		return nil, err
	}

	if err := insertSale(ctx, tx, appendReq.Sale); err != nil {
		return nil, err
	}
	if err := bumpEmployee(ctx, tx, appendReq.EmployeeUserID); err != nil {
		return nil, err
	}
	if err := insertLog(ctx, tx, appendReq.Log); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := entry
	return &created, nil
}

func (s *Store) ListPayments(ctx context.Context, installmentID string) ([]domain.PaymentEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, installment_id, selected_month, payment, payment_date, date_paid, created_at
		FROM months_to_pay
		WHERE installment_id = $1
		ORDER BY created_at ASC
	`, installmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.PaymentEntry, 0, 12)
	for rows.Next() {
		var e domain.PaymentEntry
		if err := rows.Scan(&e.ID, &e.InstallmentID, &e.SelectedMonth, &e.Payment, &e.PaymentDate, &e.DatePaid, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) UpdatePayment(ctx context.Context, id string, entry domain.PaymentEntry) (*domain.PaymentEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE months_to_pay
		SET selected_month = $2, payment = $3, payment_date = $4, date_paid = $5
		WHERE id = $1
		RETURNING id, installment_id, selected_month, payment, payment_date, date_paid, created_at
	`, id, entry.SelectedMonth, entry.Payment, entry.PaymentDate, entry.DatePaid)

	var e domain.PaymentEntry
	err := row.Scan(&e.ID, &e.InstallmentID, &e.SelectedMonth, &e.Payment, &e.PaymentDate, &e.DatePaid, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) CreateFinancing(ctx context.Context, fin domain.Financing) (*domain.Financing, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO financing (`+financingColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
	`, fin.ID, fin.BranchID, fin.ItemID, fin.Amount, fin.CustomerName,
		nullIfEmpty(fin.CustomerFullAddress), nullIfEmpty(fin.CustomerOccupation),
		nullIfEmpty(fin.PhoneNumber), nullIfEmpty(fin.Trademark), fin.Term,
		fin.Total, fin.PartialAmountPaid, fin.MonthlyPayment, fin.DateReleased,
		fin.InstallmentDue, fin.LatestPaymentDate, fin.Status,
		fin.Purple, fin.Yellow, fin.White, nullIfEmpty(fin.Comment), fin.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("financing %s already exists", fin.ID)
		}
		return nil, err
	}
	created := fin
	return &created, nil
}

func (s *Store) GetFinancing(ctx context.Context, id string) (*domain.Financing, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+financingColumns+` FROM financing WHERE id = $1
	`, id)
	fin, err := scanFinancing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fin, nil
}

func (s *Store) ListFinancing(ctx context.Context, filter store.InstallmentFilter) ([]domain.Financing, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.BranchID != "" {
		args = append(args, filter.BranchID)
		where += fmt.Sprintf(" AND branch_id = $%d", len(args))
	}
	if !filter.DueFrom.IsZero() {
		args = append(args, filter.DueFrom)
		where += fmt.Sprintf(" AND installment_due >= $%d", len(args))
	}
	if !filter.DueTo.IsZero() {
		args = append(args, filter.DueTo)
		where += fmt.Sprintf(" AND installment_due <= $%d", len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM financing`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := " ORDER BY installment_due ASC"
	if filter.SortDue == "desc" {
		order = " ORDER BY installment_due DESC"
	}
	query := `SELECT ` + financingColumns + ` FROM financing` + where + order
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	financing := make([]domain.Financing, 0, 32)
	for rows.Next() {
		fin, err := scanFinancing(rows)
		if err != nil {
			return nil, 0, err
		}
		financing = append(financing, *fin)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return financing, total, nil
}

func (s *Store) SearchFinancingByCustomer(ctx context.Context, branchID string, query string, limit int) ([]domain.Financing, error) {
	sqlQuery := `
		SELECT ` + financingColumns + `
		FROM financing
		WHERE customer_name ILIKE '%' || $1 || '%'
	`
	args := []any{query}
	if branchID != "" {
		args = append(args, branchID)
		sqlQuery += fmt.Sprintf(" AND branch_id = $%d", len(args))
	}
	args = append(args, limit)
	sqlQuery += fmt.Sprintf(" ORDER BY installment_due ASC LIMIT $%d", len(args))

	return s.queryFinancing(ctx, sqlQuery, args...)
}

func (s *Store) SearchFinancingByItem(ctx context.Context, branchID string, query string, limit int) ([]domain.Financing, error) {
	sqlQuery := `
		SELECT f.id, f.branch_id, f.item_id, f.financing, f.customer_name,
			f.customer_full_address, f.customer_occupation, f.phone_number,
			f.trademark, f.term, f.total, f.partial_amount_paid,
			f.monthly_payment, f.date_released, f.installment_due,
			f.latest_payment_date, f.status, f.purple, f.yellow, f.white,
			f.comment, f.created_at
		FROM financing f
		JOIN items it ON it.id = f.item_id
		WHERE it.item_name ILIKE '%' || $1 || '%'
	`
	args := []any{query}
	if branchID != "" {
		args = append(args, branchID)
		sqlQuery += fmt.Sprintf(" AND f.branch_id = $%d", len(args))
	}
	args = append(args, limit)
	sqlQuery += fmt.Sprintf(" ORDER BY f.installment_due ASC LIMIT $%d", len(args))

	return s.queryFinancing(ctx, sqlQuery, args...)
}

func (s *Store) queryFinancing(ctx context.Context, query string, args ...any) ([]domain.Financing, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	financing := make([]domain.Financing, 0, 8)
	for rows.Next() {
		fin, err := scanFinancing(rows)
		if err != nil {
			return nil, err
		}
		financing = append(financing, *fin)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return financing, nil
}

func (s *Store) UpdateFinancingStatus(ctx context.Context, id string, status string) (*domain.Financing, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE financing SET status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetFinancing(ctx, id)
}

func (s *Store) DeleteFinancing(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM financing WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, branch_id, item_name, item_imei, serial, item_price, stocks, number_of_sold, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, item.ID, item.BranchID, item.ItemName, nullIfEmpty(item.ItemIMEI),
		nullIfEmpty(item.Serial), item.ItemPrice, item.Stocks, item.NumberOfSold, item.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("item %s already exists", item.ID)
		}
		return nil, err
	}
	created := item
	return &created, nil
}

func (s *Store) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item
	var imei, serial sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, branch_id, item_name, item_imei, serial, item_price, stocks, number_of_sold, created_at
		FROM items WHERE id = $1
	`, id).Scan(&item.ID, &item.BranchID, &item.ItemName, &imei, &serial,
		&item.ItemPrice, &item.Stocks, &item.NumberOfSold, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	item.ItemIMEI = imei.String
	item.Serial = serial.String
	return &item, nil
}

func (s *Store) ListItems(ctx context.Context, branchID string) ([]domain.Item, error) {
	query := `
		SELECT id, branch_id, item_name, item_imei, serial, item_price, stocks, number_of_sold, created_at
		FROM items
	`
	args := []any{}
	if branchID != "" {
		args = append(args, branchID)
		query += " WHERE branch_id = $1"
	}
	query += " ORDER BY item_name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0, 32)
	for rows.Next() {
		var item domain.Item
		var imei, serial sql.NullString
		if err := rows.Scan(&item.ID, &item.BranchID, &item.ItemName, &imei, &serial,
			&item.ItemPrice, &item.Stocks, &item.NumberOfSold, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.ItemIMEI = imei.String
		item.Serial = serial.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) AdjustItemStock(ctx context.Context, id string, delta int) (*domain.Item, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var stocks int
	err = tx.QueryRowContext(ctx, `SELECT stocks FROM items WHERE id = $1 FOR UPDATE`, id).Scan(&stocks)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if stocks+delta < 0 {
		return nil, store.ErrInsufficientStock
	}

	if _, err := tx.ExecContext(ctx, `UPDATE items SET stocks = stocks + $2 WHERE id = $1`, id, delta); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}

func (s *Store) CreateBranch(ctx context.Context, branch domain.Branch) (*domain.Branch, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO branches (id, branch_name, address, created_at)
		VALUES ($1,$2,$3,$4)
	`, branch.ID, branch.BranchName, nullIfEmpty(branch.Address), branch.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("branch %s already exists", branch.BranchName)
		}
		return nil, err
	}
	created := branch
	return &created, nil
}

func (s *Store) GetBranch(ctx context.Context, id string) (*domain.Branch, error) {
	var branch domain.Branch
	var address sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, branch_name, address, created_at FROM branches WHERE id = $1
	`, id).Scan(&branch.ID, &branch.BranchName, &address, &branch.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	branch.Address = address.String
	return &branch, nil
}

func (s *Store) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, branch_name, address, created_at FROM branches ORDER BY branch_name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	branches := make([]domain.Branch, 0, 8)
	for rows.Next() {
		var branch domain.Branch
		var address sql.NullString
		if err := rows.Scan(&branch.ID, &branch.BranchName, &address, &branch.CreatedAt); err != nil {
			return nil, err
		}
		branch.Address = address.String
		branches = append(branches, branch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return branches, nil
}

func (s *Store) ListCustomers(ctx context.Context, branchID string) ([]domain.Customer, error) {
	query := `
		SELECT id, branch_id, name, full_address, occupation, phone, bir_tin, created_at
		FROM customers
	`
	args := []any{}
	if branchID != "" {
		args = append(args, branchID)
		query += " WHERE branch_id = $1"
	}
	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		var c domain.Customer
		var fullAddress, occupation, phone, birTin sql.NullString
		if err := rows.Scan(&c.ID, &c.BranchID, &c.Name, &fullAddress, &occupation, &phone, &birTin, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.FullAddress = fullAddress.String
		c.Occupation = occupation.String
		c.Phone = phone.String
		c.BirTin = birTin.String
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) ListEmployees(ctx context.Context, branchID string) ([]domain.Employee, error) {
	query := `
		SELECT id, branch_id, user_id, name, number_of_transactions, created_at
		FROM employees
	`
	args := []any{}
	if branchID != "" {
		args = append(args, branchID)
		query += " WHERE branch_id = $1"
	}
	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]domain.Employee, 0, 16)
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.ID, &e.BranchID, &e.UserID, &e.Name, &e.NumberOfTransactions, &e.CreatedAt); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return employees, nil
}

func (s *Store) CreateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, branch_id, user_id, name, number_of_transactions, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, employee.ID, employee.BranchID, employee.UserID, employee.Name,
		employee.NumberOfTransactions, employee.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("employee %s already exists", employee.UserID)
		}
		return nil, err
	}
	created := employee
	return &created, nil
}

func (s *Store) ListSales(ctx context.Context, branchID string, from time.Time, to time.Time) ([]domain.Sale, error) {
	query := `
		SELECT id, branch_id, installment_id, amount, payment_method, date_issued
		FROM sales
		WHERE 1=1
	`
	args := []any{}
	if branchID != "" {
		args = append(args, branchID)
		query += fmt.Sprintf(" AND branch_id = $%d", len(args))
	}
	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(" AND date_issued >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(" AND date_issued <= $%d", len(args))
	}
	query += " ORDER BY date_issued ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		var sale domain.Sale
		var installmentID sql.NullString
		if err := rows.Scan(&sale.ID, &sale.BranchID, &installmentID, &sale.Amount, &sale.PaymentMethod, &sale.DateIssued); err != nil {
			return nil, err
		}
		sale.InstallmentID = installmentID.String
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, branch_id, label, amount, date_spent, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, expense.ID, expense.BranchID, expense.Label, expense.Amount, expense.DateSpent, expense.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(ctx context.Context, branchID string) ([]domain.Expense, error) {
	query := `
		SELECT id, branch_id, label, amount, date_spent, created_at FROM expenses
	`
	args := []any{}
	if branchID != "" {
		args = append(args, branchID)
		query += " WHERE branch_id = $1"
	}
	query += " ORDER BY date_spent ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 32)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.BranchID, &e.Label, &e.Amount, &e.DateSpent, &e.CreatedAt); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) CreateLog(ctx context.Context, entry domain.LogEntry) error {
	if entry.ID == "" {
		entry.ID = xid.New("log")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO logs (id, branch_id, user_id, installment_id, log_label, log_category, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, entry.ID, entry.BranchID, nullIfEmpty(entry.UserID),
		nullIfEmpty(entry.InstallmentID), entry.LogLabel, entry.LogCategory, entry.CreatedAt)
	return err
}

func (s *Store) ListLogs(ctx context.Context, branchID string, category string, limit int) ([]domain.LogEntry, error) {
	query := `
		SELECT id, branch_id, user_id, installment_id, log_label, log_category, created_at
		FROM logs
		WHERE 1=1
	`
	args := []any{}
	if branchID != "" {
		args = append(args, branchID)
		query += fmt.Sprintf(" AND branch_id = $%d", len(args))
	}
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(" AND log_category = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.LogEntry, 0, 64)
	for rows.Next() {
		var e domain.LogEntry
		var userID, installmentID sql.NullString
		if err := rows.Scan(&e.ID, &e.BranchID, &userID, &installmentID, &e.LogLabel, &e.LogCategory, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.UserID = userID.String
		e.InstallmentID = installmentID.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, name, role, branch_id, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, user.Username, user.Password, user.Name, user.Role,
		nullIfEmpty(user.BranchID), user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("username %s already exists", user.Username)
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, name, role, branch_id, active, created_at FROM users
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		var branchID sql.NullString
		if err := rows.Scan(&u.Username, &u.Password, &u.Name, &u.Role, &branchID, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.BranchID = branchID.String
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func insertPayment(ctx context.Context, tx *sql.Tx, entry domain.PaymentEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO months_to_pay (id, installment_id, selected_month, payment, payment_date, date_paid, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, entry.ID, entry.InstallmentID, entry.SelectedMonth, entry.Payment,
		entry.PaymentDate, entry.DatePaid, entry.CreatedAt)
	return err
}

func insertSale(ctx context.Context, tx *sql.Tx, sale domain.Sale) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, branch_id, installment_id, amount, payment_method, date_issued)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, sale.ID, sale.BranchID, nullIfEmpty(sale.InstallmentID), sale.Amount,
		sale.PaymentMethod, sale.DateIssued)
	return err
}

// bumpEmployee increments the transaction counter of the employee linked to
// the user. Head-office users have no employee row; zero rows affected is
// fine.
func bumpEmployee(ctx context.Context, tx *sql.Tx, userID string) error {
	if userID == "" {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE employees
		SET number_of_transactions = number_of_transactions + 1
		WHERE user_id = $1
	`, userID)
	return err
}

func insertLog(ctx context.Context, tx *sql.Tx, entry domain.LogEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO logs (id, branch_id, user_id, installment_id, log_label, log_category, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, entry.ID, entry.BranchID, nullIfEmpty(entry.UserID),
		nullIfEmpty(entry.InstallmentID), entry.LogLabel, entry.LogCategory, entry.CreatedAt)
	return err
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
