package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parcel-shipping/internal/model"
	"github.com/iliyamo/parcel-shipping/internal/repository"
	"github.com/iliyamo/parcel-shipping/internal/repository/memstore"
)

// recordedPayments is a payment store whose rows were written without the
// matching parcel update.
type recordedPayments struct {
	repository.PaymentStore
	rows  []model.Payment
	calls int
	err   error
}

func (r *recordedPayments) ListSince(ctx context.Context, after repository.PaymentCursor, limit int) ([]model.Payment, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	rows := append([]model.Payment(nil), r.rows...)
	sort.Slice(rows, func(i, j int) bool { return repository.CursorAt(rows[i]).After(rows[j]) })
	var out []model.Payment
	for _, p := range rows {
		if after.After(p) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func TestSweepRepairsUnpaidParcels(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	now := time.Now().UTC()

	orphan := &model.Parcel{SenderEmail: "a@x.com", Cost: 10}
	done := &model.Parcel{SenderEmail: "a@x.com", Cost: 20}
	require.NoError(t, store.Parcels().Create(ctx, orphan))
	require.NoError(t, store.Parcels().Create(ctx, done))
	require.NoError(t, store.Parcels().MarkPaid(ctx, done.ID, "TRK-0000000B"))

	payments := &recordedPayments{rows: []model.Payment{
		{ParcelID: orphan.ID, TransactionID: "pi_a", TrackingID: "TRK-0000000A", PaidAt: now.Add(-time.Minute)},
		{ParcelID: done.ID, TransactionID: "pi_b", TrackingID: "TRK-0000000B", PaidAt: now.Add(-time.Minute)},
		{ParcelID: "deleted", TransactionID: "pi_c", TrackingID: "TRK-0000000C", PaidAt: now.Add(-time.Minute)},
		{ParcelID: orphan.ID, TransactionID: "pi_old", TrackingID: "TRK-0000000D", PaidAt: now.Add(-48 * time.Hour)},
	}}

	repairs := 0
	sw := NewSweeper(store.Parcels(), payments, 24*time.Hour, nil)
	sw.now = func() time.Time { return now }
	sw.OnRepair = func(context.Context) { repairs++ }

	res, err := sw.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Checked: 3, Repaired: 1}, res)
	assert.Equal(t, 1, repairs)

	got, err := store.Parcels().GetByID(ctx, orphan.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid())
	require.NotNil(t, got.TrackingID)
	assert.Equal(t, "TRK-0000000A", *got.TrackingID)

	// a second pass finds nothing left to do
	res, err = sw.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Repaired)
	assert.Equal(t, 1, repairs)
}

func TestSweepPagesThroughPayments(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	base := time.Now().UTC().Add(-time.Hour)

	var rows []model.Payment
	for i := 0; i < sweepPageSize+10; i++ {
		p := &model.Parcel{SenderEmail: "a@x.com", Cost: 1}
		require.NoError(t, store.Parcels().Create(ctx, p))
		rows = append(rows, model.Payment{
			ParcelID:      p.ID,
			TransactionID: fmt.Sprintf("pi_%d", i),
			TrackingID:    fmt.Sprintf("TRK-%08X", i),
			PaidAt:        base.Add(time.Duration(i) * time.Second),
		})
	}
	payments := &recordedPayments{rows: rows}

	sw := NewSweeper(store.Parcels(), payments, 2*time.Hour, nil)
	res, err := sw.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, sweepPageSize+10, res.Repaired)
	assert.Equal(t, 2, payments.calls)
}

func TestSweepPagesPastSharedTimestamp(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	at := time.Now().UTC().Add(-time.Minute)

	var rows []model.Payment
	for i := 0; i < sweepPageSize+5; i++ {
		p := &model.Parcel{SenderEmail: "a@x.com", Cost: 1}
		require.NoError(t, store.Parcels().Create(ctx, p))
		rows = append(rows, model.Payment{
			ParcelID:      p.ID,
			TransactionID: fmt.Sprintf("pi_%04d", i),
			TrackingID:    fmt.Sprintf("TRK-%08X", i),
			PaidAt:        at,
		})
	}
	payments := &recordedPayments{rows: rows}

	res, err := NewSweeper(store.Parcels(), payments, time.Hour, nil).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, sweepPageSize+5, res.Checked)
	assert.Equal(t, sweepPageSize+5, res.Repaired)

	last, err := store.Parcels().GetByID(ctx, rows[len(rows)-1].ParcelID)
	require.NoError(t, err)
	assert.True(t, last.IsPaid())
}

func TestSweepReportsStoreErrors(t *testing.T) {
	payments := &recordedPayments{err: errors.New("connection reset")}
	sw := NewSweeper(memstore.New().Parcels(), payments, time.Hour, nil)

	_, err := sw.RunOnce(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}
