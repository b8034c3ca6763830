package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"scadenze/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists obligations and payments in a local SQLite
// database. It implements the services.Store contract.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Payments cascade on obligation delete.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const obligationColumns = `id, name, kind, frequency, due_day, amount_cents,
	anchor_date, next_due_date, last_paid_date, is_active, created_at, updated_at`

func (r *SQLiteRepository) CreateObligation(ctx context.Context, ob core.Obligation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO obligations (`+obligationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ob.ID, ob.Name, string(ob.Kind), string(ob.Frequency), ob.DueDay,
		ob.Amount.Cents, ob.AnchorDate.String(), nullDate(ob.NextDueDate),
		nullDate(ob.LastPaidDate), ob.IsActive, ob.CreatedAt, ob.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert obligation: %w", err)
	}

	slog.InfoContext(ctx, "Obligation saved to SQLite",
		"id", ob.ID,
		"name", ob.Name,
		"frequency", string(ob.Frequency))
	return nil
}

func (r *SQLiteRepository) GetObligation(ctx context.Context, id string) (*core.Obligation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+obligationColumns+` FROM obligations WHERE id = ?`, id)
	ob, err := scanObligation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("obligation %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("get obligation: %w", err)
	}
	return ob, nil
}

func (r *SQLiteRepository) ListObligations(ctx context.Context) ([]core.Obligation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+obligationColumns+` FROM obligations ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()
	return collectObligations(rows)
}

// ListDueObligations returns active recurring obligations whose next due
// date falls strictly before the given day.
func (r *SQLiteRepository) ListDueObligations(ctx context.Context, before core.Date) ([]core.Obligation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+obligationColumns+` FROM obligations
		WHERE is_active = 1 AND next_due_date IS NOT NULL AND next_due_date < ?
		ORDER BY next_due_date, id`, before.String())
	if err != nil {
		return nil, fmt.Errorf("list due obligations: %w", err)
	}
	defer rows.Close()
	return collectObligations(rows)
}

func (r *SQLiteRepository) UpdateObligation(ctx context.Context, ob core.Obligation) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE obligations
		SET name = ?, kind = ?, frequency = ?, due_day = ?, amount_cents = ?,
		    anchor_date = ?, next_due_date = ?, last_paid_date = ?,
		    is_active = ?, updated_at = ?
		WHERE id = ?`,
		ob.Name, string(ob.Kind), string(ob.Frequency), ob.DueDay,
		ob.Amount.Cents, ob.AnchorDate.String(), nullDate(ob.NextDueDate),
		nullDate(ob.LastPaidDate), ob.IsActive, ob.UpdatedAt, ob.ID)
	if err != nil {
		return fmt.Errorf("update obligation: %w", err)
	}
	return requireRow(res, ob.ID)
}

// UpdateObligationSchedule writes both derived schedule fields in one
// statement, the atomicity the reconciler relies on.
func (r *SQLiteRepository) UpdateObligationSchedule(ctx context.Context, id string, next, lastPaid *core.Date) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE obligations SET next_due_date = ?, last_paid_date = ?, updated_at = ?
		WHERE id = ?`,
		nullDate(next), nullDate(lastPaid), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update obligation schedule: %w", err)
	}
	return requireRow(res, id)
}

func (r *SQLiteRepository) DeleteObligation(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM obligations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete obligation: %w", err)
	}
	return requireRow(res, id)
}

const paymentColumns = `id, obligation_id, amount_cents, paid_date, due_date, status, note, created_at`

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ObligationID, p.Amount.Cents, nullZeroDate(p.PaidDate),
		p.DueDate.String(), string(p.Status), p.Note, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	slog.InfoContext(ctx, "Payment saved to SQLite",
		"id", p.ID,
		"obligation_id", p.ObligationID,
		"due_date", p.DueDate.String(),
		"status", string(p.Status))
	return nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id string) (*core.Payment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) UpdatePayment(ctx context.Context, p core.Payment) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET amount_cents = ?, paid_date = ?, due_date = ?, status = ?, note = ?
		WHERE id = ?`,
		p.Amount.Cents, nullZeroDate(p.PaidDate), p.DueDate.String(),
		string(p.Status), p.Note, p.ID)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return requireRow(res, p.ID)
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete payment rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) PaymentsForObligation(ctx context.Context, obligationID string) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE obligation_id = ? ORDER BY due_date, id`, obligationID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObligation(row rowScanner) (*core.Obligation, error) {
	var (
		ob                   core.Obligation
		kind, freq, anchor   string
		nextDue, lastPaid    sql.NullString
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&ob.ID, &ob.Name, &kind, &freq, &ob.DueDay, &ob.Amount.Cents,
		&anchor, &nextDue, &lastPaid, &ob.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	ob.Kind = core.ObligationKind(kind)
	ob.Frequency = core.Frequency(freq)
	ob.CreatedAt = createdAt
	ob.UpdatedAt = updatedAt
	if ob.AnchorDate, err = core.ParseDate(anchor); err != nil {
		return nil, err
	}
	if ob.NextDueDate, err = scanNullDate(nextDue); err != nil {
		return nil, err
	}
	if ob.LastPaidDate, err = scanNullDate(lastPaid); err != nil {
		return nil, err
	}
	return &ob, nil
}

func collectObligations(rows *sql.Rows) ([]core.Obligation, error) {
	var obs []core.Obligation
	for rows.Next() {
		ob, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		obs = append(obs, *ob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate obligations: %w", err)
	}
	return obs, nil
}

func scanPayment(row rowScanner) (*core.Payment, error) {
	var (
		p            core.Payment
		status, due  string
		paid         sql.NullString
		createdAt    time.Time
	)
	err := row.Scan(&p.ID, &p.ObligationID, &p.Amount.Cents, &paid, &due,
		&status, &p.Note, &createdAt)
	if err != nil {
		return nil, err
	}
	p.Status = core.PaymentStatus(status)
	p.CreatedAt = createdAt
	if p.DueDate, err = core.ParseDate(due); err != nil {
		return nil, err
	}
	if paid.Valid {
		if p.PaidDate, err = core.ParseDate(paid.String); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func nullDate(d *core.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullZeroDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func scanNullDate(ns sql.NullString) (*core.Date, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := core.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return d.Ptr(), nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, core.ErrNotFound)
	}
	return nil
}
