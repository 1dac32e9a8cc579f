package repository

import (
	"context" // context carries deadlines and cancellation
	"time"    // time for timestamps and timeouts

	"github.com/iliyamo/parcel-shipping/internal/model" // domain models
)

// ParcelFilter narrows ParcelStore.List. Empty fields match everything.
type ParcelFilter struct {
	SenderEmail string
}

// RiderFilter narrows RiderStore.List. Empty fields match everything.
type RiderFilter struct {
	Status model.RiderStatus
}

// ParcelStore persists parcels.
type ParcelStore interface {
	// List returns matching parcels, newest first.
	List(ctx context.Context, f ParcelFilter) ([]model.Parcel, error)
	// Create inserts p, stamping ID on it.
	Create(ctx context.Context, p *model.Parcel) error
	GetByID(ctx context.Context, id string) (*model.Parcel, error)
	// Delete removes a parcel and reports how many records were removed.
	Delete(ctx context.Context, id string) (int64, error)
	// MarkPaid moves an unpaid parcel to paid and attaches trackingID.
	// It returns ErrAlreadyPaid when the parcel is already paid.
	MarkPaid(ctx context.Context, id, trackingID string) error
}

// PaymentStore persists payment records.
type PaymentStore interface {
	GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error)
	// ListByEmail returns the customer's payments, most recent first.
	ListByEmail(ctx context.Context, email string) ([]model.Payment, error)
	// Record inserts p and marks the referenced parcel paid with
	// p.TrackingID. When the parcel was already paid by an earlier
	// transaction the parcel is left untouched, p.TrackingID is replaced by
	// the parcel's existing tracking id and parcelModified is false. A
	// parcel that no longer exists does not block the insert: the charge is
	// recorded and parcelModified is false.
	// A second payment with the same transaction id yields
	// ErrDuplicateTransaction and changes nothing. ErrParcelPending means
	// the payment is durable but the parcel update did not happen.
	Record(ctx context.Context, p *model.Payment) (parcelModified bool, err error)
	// ListSince returns payments ordered by (paidAt, transactionId) that
	// sort strictly after the cursor. A cursor with an empty TransactionID
	// includes payments made exactly at PaidAt.
	ListSince(ctx context.Context, after PaymentCursor, limit int) ([]model.Payment, error)
}

// PaymentCursor is a keyset position in the payment log.
type PaymentCursor struct {
	PaidAt        time.Time
	TransactionID string
}

// CursorAt returns the cursor positioned on p.
func CursorAt(p model.Payment) PaymentCursor {
	return PaymentCursor{PaidAt: p.PaidAt, TransactionID: p.TransactionID}
}

// After reports whether p sorts strictly after the cursor.
func (c PaymentCursor) After(p model.Payment) bool {
	if !p.PaidAt.Equal(c.PaidAt) {
		return p.PaidAt.After(c.PaidAt)
	}
	return p.TransactionID > c.TransactionID
}

// UserStore persists users.
type UserStore interface {
	// CreateIfAbsent inserts u unless a user with the same email exists.
	// created reports whether an insert happened; u.ID is set either way.
	CreateIfAbsent(ctx context.Context, u *model.User) (created bool, err error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	SetRole(ctx context.Context, email string, role model.Role) error
}

// RiderStore persists rider applications.
type RiderStore interface {
	Create(ctx context.Context, r *model.Rider) error
	// List returns matching riders, newest first.
	List(ctx context.Context, f RiderFilter) ([]model.Rider, error)
	// UpdateStatus changes the review status and returns the updated rider.
	UpdateStatus(ctx context.Context, id string, status model.RiderStatus) (*model.Rider, error)
}
