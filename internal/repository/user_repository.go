package repository // MySQL user store

import (
	"context"      // context carries deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel matching
	"strings"      // strings trims and normalises text
	"time"         // time for timestamps and timeouts

	"github.com/google/uuid" // uuid generates primary keys

	"github.com/iliyamo/parcel-shipping/internal/model" // domain models
)

// UserRepo mirrors the 'users' table. Email carries a UNIQUE key.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// CreateIfAbsent inserts the user unless the email is already registered,
// in which case u is filled from the existing row.
func (r *UserRepo) CreateIfAbsent(ctx context.Context, u *model.User) (bool, error) {
	u.Email = normalizeEmail(u.Email)
	u.ID = uuid.NewString()
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, display_name, photo_url, role, created_at) VALUES (?,?,?,?,?,?)",
		u.ID, u.Email, u.DisplayName, u.PhotoURL, u.Role, u.CreatedAt)
	if err == nil {
		return true, nil
	}
	if !isDuplicate(err) {
		return false, err
	}
	existing, err := r.GetByEmail(ctx, u.Email)
	if err != nil {
		return false, err
	}
	*u = *existing
	return false, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,display_name,photo_url,role,created_at FROM users WHERE email=? LIMIT 1",
		normalizeEmail(email)).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PhotoURL, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.Role, err = model.ParseRole(role); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetRole changes a user's role. The DSN enables clientFoundRows so an
// unchanged row still counts as matched.
func (r *UserRepo) SetRole(ctx context.Context, email string, role model.Role) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE email=?", role, normalizeEmail(email))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
