package repository // MySQL parcel store

import (
	"context"       // context carries deadlines and cancellation
	"database/sql"  // sql provides DB primitives
	"encoding/json" // json encodes payloads
	"errors"        // errors for sentinel matching
	"fmt"           // fmt wraps errors with context
	"time"          // time for timestamps and timeouts

	"github.com/google/uuid" // uuid generates primary keys

	"github.com/iliyamo/parcel-shipping/internal/model" // domain models
)

// ParcelRepo stores parcels in the 'parcels' table. The free-form booking
// fields live in a JSON column so the schema does not change whenever the
// booking form does.
type ParcelRepo struct{ db *sql.DB }

func NewParcelRepo(db *sql.DB) *ParcelRepo { return &ParcelRepo{db: db} }

const parcelColumns = `id, parcel_name, sender_email, cost, payment_status, tracking_id, details, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParcel(row rowScanner) (model.Parcel, error) {
	var (
		p        model.Parcel
		status   string
		tracking sql.NullString
		details  []byte
	)
	if err := row.Scan(&p.ID, &p.ParcelName, &p.SenderEmail, &p.Cost, &status, &tracking, &details, &p.CreatedAt); err != nil {
		return p, err
	}
	st, err := model.ParsePaymentStatus(status)
	if err != nil {
		return p, err
	}
	p.PaymentStatus = st
	if tracking.Valid {
		t := tracking.String
		p.TrackingID = &t
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &p.ParcelDetails); err != nil {
			return p, fmt.Errorf("decode parcel details: %w", err)
		}
	}
	return p, nil
}

// List returns parcels ordered by created_at descending.
func (r *ParcelRepo) List(ctx context.Context, f ParcelFilter) ([]model.Parcel, error) {
	q := `SELECT ` + parcelColumns + ` FROM parcels`
	var args []any
	if f.SenderEmail != "" {
		q += ` WHERE sender_email = ?`
		args = append(args, f.SenderEmail)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list parcels: %w", err)
	}
	defer rows.Close()

	out := make([]model.Parcel, 0)
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan parcel: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts a parcel. New parcels are always unpaid and carry no
// tracking id.
func (r *ParcelRepo) Create(ctx context.Context, p *model.Parcel) error {
	details, err := json.Marshal(p.ParcelDetails)
	if err != nil {
		return fmt.Errorf("encode parcel details: %w", err)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.ID = uuid.NewString()
	p.PaymentStatus = model.PaymentUnpaid
	p.TrackingID = nil

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO parcels (id, parcel_name, sender_email, cost, payment_status, details, created_at) VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.ParcelName, p.SenderEmail, p.Cost, p.PaymentStatus, details, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert parcel: %w", err)
	}
	return nil
}

// GetByID fetches a parcel or returns ErrNotFound.
func (r *ParcelRepo) GetByID(ctx context.Context, id string) (*model.Parcel, error) {
	p, err := scanParcel(r.db.QueryRowContext(ctx,
		`SELECT `+parcelColumns+` FROM parcels WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get parcel: %w", err)
	}
	return &p, nil
}

// Delete removes a parcel. Payments referencing it are kept.
func (r *ParcelRepo) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM parcels WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete parcel: %w", err)
	}
	return res.RowsAffected()
}

// MarkPaid performs the unpaid -> paid transition. The WHERE clause makes
// the transition one-way even under concurrent callers.
func (r *ParcelRepo) MarkPaid(ctx context.Context, id, trackingID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE parcels SET payment_status = ?, tracking_id = ? WHERE id = ? AND payment_status = ?`,
		model.PaymentPaid, trackingID, id, model.PaymentUnpaid)
	if err != nil {
		return fmt.Errorf("mark parcel paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var status string
	err = r.db.QueryRowContext(ctx, `SELECT payment_status FROM parcels WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrAlreadyPaid
}
