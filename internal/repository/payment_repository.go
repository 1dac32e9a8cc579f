package repository // MySQL payment store

import (
	"context"      // context carries deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel matching
	"fmt"          // fmt wraps errors with context
	"math"         // math for rounding money

	"github.com/google/uuid" // uuid generates primary keys

	"github.com/iliyamo/parcel-shipping/internal/model" // domain models
)

// PaymentRepo stores payments in the 'payments' table. Amounts are kept in
// minor units (amount_cents); transaction_id carries a UNIQUE key which is
// what makes recording a payment idempotent.
type PaymentRepo struct{ db *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, parcel_id, parcel_name, customer_email, currency, amount_cents, transaction_id, tracking_id, paid_at, payment_status`

func scanPayment(row rowScanner) (model.Payment, error) {
	var (
		p      model.Payment
		cents  int64
		status string
	)
	err := row.Scan(&p.ID, &p.ParcelID, &p.ParcelName, &p.CustomerEmail, &p.Currency,
		&cents, &p.TransactionID, &p.TrackingID, &p.PaidAt, &status)
	if err != nil {
		return p, err
	}
	p.Amount = float64(cents) / 100
	p.PaymentStatus = model.PaymentStatus(status)
	return p, nil
}

// GetByTransactionID returns the payment for a gateway transaction or
// ErrNotFound.
func (r *PaymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE transaction_id = ? LIMIT 1`, transactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &p, nil
}

// ListByEmail returns a customer's payments ordered by paid_at descending.
func (r *PaymentRepo) ListByEmail(ctx context.Context, email string) ([]model.Payment, error) {
	return r.query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE customer_email = ? ORDER BY paid_at DESC`, email)
}

// ListSince pages through payments by (paid_at, transaction_id).
func (r *PaymentRepo) ListSince(ctx context.Context, after PaymentCursor, limit int) ([]model.Payment, error) {
	return r.query(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE paid_at > ? OR (paid_at = ? AND transaction_id > ?)
		 ORDER BY paid_at ASC, transaction_id ASC LIMIT ?`,
		after.PaidAt, after.PaidAt, after.TransactionID, limit)
}

func (r *PaymentRepo) query(ctx context.Context, q string, args ...any) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	out := make([]model.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Record applies a confirmed payment inside one transaction: the parcel row
// is locked, moved to paid (unless it already is) and the payment row is
// inserted. A deleted parcel only skips the update; the charge is still
// recorded. A duplicate transaction_id rolls everything back.
func (r *PaymentRepo) Record(ctx context.Context, p *model.Payment) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var (
		status   string
		tracking sql.NullString
	)
	err = tx.QueryRowContext(ctx,
		`SELECT payment_status, tracking_id FROM parcels WHERE id = ? FOR UPDATE`, p.ParcelID).Scan(&status, &tracking)
	missing := errors.Is(err, sql.ErrNoRows)
	if err != nil && !missing {
		return false, fmt.Errorf("lock parcel: %w", err)
	}

	modified := false
	switch {
	case missing:
		// parcel deleted after checkout; keep the charge
	case model.PaymentStatus(status) == model.PaymentPaid:
		if tracking.Valid {
			p.TrackingID = tracking.String
		}
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE parcels SET payment_status = ?, tracking_id = ? WHERE id = ?`,
			model.PaymentPaid, p.TrackingID, p.ParcelID); err != nil {
			return false, fmt.Errorf("mark parcel paid: %w", err)
		}
		modified = true
	}

	p.ID = uuid.NewString()
	p.PaymentStatus = model.PaymentPaid
	_, err = tx.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.ParcelID, p.ParcelName, p.CustomerEmail, p.Currency,
		int64(math.Round(p.Amount*100)), p.TransactionID, p.TrackingID, p.PaidAt, p.PaymentStatus)
	if err != nil {
		if isDuplicate(err) {
			return false, ErrDuplicateTransaction
		}
		return false, fmt.Errorf("insert payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return modified, nil
}
