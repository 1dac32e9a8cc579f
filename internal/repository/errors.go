// Package repository defines the persistence contracts used by the HTTP
// handlers and the payment flow, the sentinel errors shared by every
// backend, and the MySQL implementation of those contracts. Handlers
// translate the sentinels into HTTP status codes: ErrNotFound becomes 404,
// ErrDuplicateTransaction is never surfaced directly (the payment flow
// turns it into an "already processed" outcome).
package repository

import (
	"errors" // errors for sentinel matching

	"github.com/go-sql-driver/mysql" // MySQL driver
)

// ErrNotFound is returned when a record addressed by id, email or
// transaction id does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateTransaction is returned by PaymentStore.Record when a payment
// with the same transaction id already exists.
var ErrDuplicateTransaction = errors.New("duplicate transaction")

// ErrAlreadyPaid is returned by ParcelStore.MarkPaid when the parcel has
// already left the unpaid state.
var ErrAlreadyPaid = errors.New("parcel already paid")

// ErrParcelPending is returned by PaymentStore.Record when the payment was
// stored but the parcel could not be moved to paid. The reconciliation
// sweep finishes the parcel later.
var ErrParcelPending = errors.New("payment recorded, parcel update pending")

// isDuplicate reports whether err is a MySQL unique-key violation (1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
