// Package memstore is an in-memory implementation of the repository
// interfaces. It backs STORE_DRIVER=memory for local development and is the
// store used by handler and payment tests.
package memstore

import (
	"context" // context carries deadlines and cancellation
	"sort"    // sort orders in-memory results
	"strings" // strings trims and normalises text
	"sync"    // sync guards shared state
	"time"    // time for timestamps and timeouts

	"github.com/google/uuid" // uuid generates primary keys

	"github.com/iliyamo/parcel-shipping/internal/model"      // domain models
	"github.com/iliyamo/parcel-shipping/internal/repository" // store contracts
)

// Store keeps every collection behind one lock so Record can update a
// parcel and insert a payment atomically.
type Store struct {
	mu       sync.RWMutex
	parcels  map[string]model.Parcel
	payments map[string]model.Payment // keyed by transaction id
	users    map[string]model.User    // keyed by email
	riders   map[string]model.Rider

	// insertion order breaks createdAt ties
	seq   int64
	order map[string]int64
}

func New() *Store {
	return &Store{
		parcels:  make(map[string]model.Parcel),
		payments: make(map[string]model.Payment),
		users:    make(map[string]model.User),
		riders:   make(map[string]model.Rider),
		order:    make(map[string]int64),
	}
}

// Parcels, Payments, Users and Riders expose the store under each
// repository interface.
func (s *Store) Parcels() repository.ParcelStore   { return parcelView{s} }
func (s *Store) Payments() repository.PaymentStore { return paymentView{s} }
func (s *Store) Users() repository.UserStore       { return userView{s} }
func (s *Store) Riders() repository.RiderStore     { return riderView{s} }

type parcelView struct{ s *Store }

func (v parcelView) List(ctx context.Context, f repository.ParcelFilter) ([]model.Parcel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]model.Parcel, 0, len(v.s.parcels))
	for _, p := range v.s.parcels {
		if f.SenderEmail == "" || p.SenderEmail == f.SenderEmail {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return v.s.order[out[i].ID] > v.s.order[out[j].ID]
	})
	return out, nil
}

func (v parcelView) Create(ctx context.Context, p *model.Parcel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.ID = uuid.NewString()
	p.PaymentStatus = model.PaymentUnpaid
	p.TrackingID = nil
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.parcels[p.ID] = *p
	v.s.seq++
	v.s.order[p.ID] = v.s.seq
	return nil
}

func (v parcelView) GetByID(ctx context.Context, id string) (*model.Parcel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	p, ok := v.s.parcels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (v parcelView) Delete(ctx context.Context, id string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.parcels[id]; !ok {
		return 0, nil
	}
	delete(v.s.parcels, id)
	delete(v.s.order, id)
	return 1, nil
}

func (v parcelView) MarkPaid(ctx context.Context, id, trackingID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.markPaidLocked(id, trackingID)
}

func (s *Store) markPaidLocked(id, trackingID string) error {
	p, ok := s.parcels[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.IsPaid() {
		return repository.ErrAlreadyPaid
	}
	t := trackingID
	p.PaymentStatus = model.PaymentPaid
	p.TrackingID = &t
	s.parcels[id] = p
	return nil
}

type paymentView struct{ s *Store }

func (v paymentView) GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	p, ok := v.s.payments[transactionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (v paymentView) ListByEmail(ctx context.Context, email string) ([]model.Payment, error) {
	out, err := v.filter(ctx, func(p model.Payment) bool { return p.CustomerEmail == email })
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	return out, err
}

func (v paymentView) ListSince(ctx context.Context, after repository.PaymentCursor, limit int) ([]model.Payment, error) {
	out, err := v.filter(ctx, after.After)
	sort.Slice(out, func(i, j int) bool {
		return repository.CursorAt(out[i]).After(out[j])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (v paymentView) filter(ctx context.Context, keep func(model.Payment) bool) ([]model.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]model.Payment, 0)
	for _, p := range v.s.payments {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (v paymentView) Record(ctx context.Context, p *model.Payment) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, dup := v.s.payments[p.TransactionID]; dup {
		return false, repository.ErrDuplicateTransaction
	}
	parcel, ok := v.s.parcels[p.ParcelID]
	modified := false
	switch {
	case !ok:
		// parcel deleted after checkout; keep the charge
	case parcel.IsPaid():
		if parcel.TrackingID != nil {
			p.TrackingID = *parcel.TrackingID
		}
	default:
		if err := v.s.markPaidLocked(p.ParcelID, p.TrackingID); err != nil {
			return false, err
		}
		modified = true
	}
	p.ID = uuid.NewString()
	p.PaymentStatus = model.PaymentPaid
	v.s.payments[p.TransactionID] = *p
	return modified, nil
}

type userView struct{ s *Store }

func (v userView) CreateIfAbsent(ctx context.Context, u *model.User) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	email := strings.ToLower(strings.TrimSpace(u.Email))
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if existing, ok := v.s.users[email]; ok {
		*u = existing
		return false, nil
	}
	u.Email = email
	u.ID = uuid.NewString()
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	v.s.users[email] = *u
	return true, nil
}

func (v userView) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	u, ok := v.s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (v userView) SetRole(ctx context.Context, email string, role model.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := strings.ToLower(strings.TrimSpace(email))
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	u, ok := v.s.users[key]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	v.s.users[key] = u
	return nil
}

type riderView struct{ s *Store }

func (v riderView) Create(ctx context.Context, r *model.Rider) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.ID = uuid.NewString()
	r.Status = model.RiderPending
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.riders[r.ID] = *r
	return nil
}

func (v riderView) List(ctx context.Context, f repository.RiderFilter) ([]model.Rider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]model.Rider, 0, len(v.s.riders))
	for _, r := range v.s.riders {
		if f.Status == "" || r.Status == f.Status {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (v riderView) UpdateStatus(ctx context.Context, id string, status model.RiderStatus) (*model.Rider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	r, ok := v.s.riders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	r.Status = status
	v.s.riders[id] = r
	return &r, nil
}
