package repository // MySQL rider store

import (
	"context"      // context carries deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel matching
	"fmt"          // fmt wraps errors with context
	"time"         // time for timestamps and timeouts

	"github.com/google/uuid" // uuid generates primary keys

	"github.com/iliyamo/parcel-shipping/internal/model" // domain models
)

// RiderRepo stores rider applications in the 'riders' table.
type RiderRepo struct{ db *sql.DB }

func NewRiderRepo(db *sql.DB) *RiderRepo { return &RiderRepo{db: db} }

const riderColumns = `id, name, email, age, region, district, nid, contact, bike_brand, bike_registration, status, created_at`

func scanRider(row rowScanner) (model.Rider, error) {
	var (
		rd     model.Rider
		status string
	)
	err := row.Scan(&rd.ID, &rd.Name, &rd.Email, &rd.Age, &rd.Region, &rd.District, &rd.NID,
		&rd.Contact, &rd.BikeBrand, &rd.BikeRegistration, &status, &rd.CreatedAt)
	if err != nil {
		return rd, err
	}
	rd.Status, err = model.ParseRiderStatus(status)
	return rd, err
}

// Create inserts an application; status is always pending.
func (r *RiderRepo) Create(ctx context.Context, rd *model.Rider) error {
	rd.ID = uuid.NewString()
	rd.Status = model.RiderPending
	if rd.CreatedAt.IsZero() {
		rd.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO riders (`+riderColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		rd.ID, rd.Name, normalizeEmail(rd.Email), rd.Age, rd.Region, rd.District, rd.NID,
		rd.Contact, rd.BikeBrand, rd.BikeRegistration, rd.Status, rd.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert rider: %w", err)
	}
	return nil
}

// List returns riders ordered by created_at descending.
func (r *RiderRepo) List(ctx context.Context, f RiderFilter) ([]model.Rider, error) {
	q := `SELECT ` + riderColumns + ` FROM riders`
	var args []any
	if f.Status != "" {
		q += ` WHERE status = ?`
		args = append(args, f.Status)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list riders: %w", err)
	}
	defer rows.Close()
	out := make([]model.Rider, 0)
	for rows.Next() {
		rd, err := scanRider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rider: %w", err)
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

// UpdateStatus sets the review status and returns the updated row.
func (r *RiderRepo) UpdateStatus(ctx context.Context, id string, status model.RiderStatus) (*model.Rider, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE riders SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return nil, fmt.Errorf("update rider: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	rd, err := scanRider(r.db.QueryRowContext(ctx, `SELECT `+riderColumns+` FROM riders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rd, nil
}
