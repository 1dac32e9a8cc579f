// Package worker runs background maintenance jobs.
package worker

import (
	"context"     // context carries deadlines and cancellation
	"errors"      // errors for sentinel matching
	"log/slog"    // structured logging
	"sync/atomic" // atomic counters across workers
	"time"        // time for timestamps and timeouts

	"golang.org/x/sync/errgroup" // errgroup bounds concurrent repairs

	"github.com/iliyamo/parcel-shipping/internal/model"      // domain models
	"github.com/iliyamo/parcel-shipping/internal/repository" // store contracts
)

const (
	sweepPageSize    = 200
	sweepConcurrency = 4
	sweepCallTimeout = 5 * time.Second
)

// SweepResult summarises one sweep pass.
type SweepResult struct {
	Checked  int
	Repaired int
}

// Sweeper re-applies recent payments to parcels that are still unpaid. On
// stores that cannot write the payment and the parcel atomically, a crash
// between the two writes leaves exactly that state behind.
type Sweeper struct {
	Parcels  repository.ParcelStore
	Payments repository.PaymentStore
	Window   time.Duration
	Logger   *slog.Logger
	// OnRepair runs after a pass that repaired at least one parcel.
	OnRepair func(ctx context.Context)

	now func() time.Time
}

func NewSweeper(parcels repository.ParcelStore, payments repository.PaymentStore, window time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{Parcels: parcels, Payments: payments, Window: window, Logger: logger, now: time.Now}
}

// Start runs a pass every interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			res, err := s.RunOnce(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.Logger.Error("sweep failed", "error", err)
				continue
			}
			if res.Repaired > 0 {
				s.Logger.Warn("sweep repaired parcels", "checked", res.Checked, "repaired", res.Repaired)
			}
		}
	}
}

// RunOnce scans payments inside the window and marks their parcels paid.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	cursor := repository.PaymentCursor{PaidAt: s.now().Add(-s.Window)}
	var checked int
	var repaired atomic.Int64

	for {
		pctx, cancel := context.WithTimeout(ctx, sweepCallTimeout)
		page, err := s.Payments.ListSince(pctx, cursor, sweepPageSize)
		cancel()
		if err != nil {
			return SweepResult{Checked: checked, Repaired: int(repaired.Load())}, err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(sweepConcurrency)
		for _, p := range page {
			p := p
			g.Go(func() error {
				ok, err := s.repair(gctx, p)
				if ok {
					repaired.Add(1)
				}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return SweepResult{Checked: checked + len(page), Repaired: int(repaired.Load())}, err
		}
		checked += len(page)

		if len(page) < sweepPageSize {
			break
		}
		// keyset on (paidAt, transactionId) so equal timestamps never stall paging
		cursor = repository.CursorAt(page[len(page)-1])
	}

	res := SweepResult{Checked: checked, Repaired: int(repaired.Load())}
	if res.Repaired > 0 && s.OnRepair != nil {
		s.OnRepair(ctx)
	}
	return res, nil
}

func (s *Sweeper) repair(ctx context.Context, p model.Payment) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, sweepCallTimeout)
	defer cancel()

	parcel, err := s.Parcels.GetByID(cctx, p.ParcelID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if parcel.IsPaid() {
		return false, nil
	}
	err = s.Parcels.MarkPaid(cctx, p.ParcelID, p.TrackingID)
	switch {
	case err == nil:
		s.Logger.Info("sweep marked parcel paid", "parcel_id", p.ParcelID, "transaction_id", p.TransactionID)
		return true, nil
	case errors.Is(err, repository.ErrAlreadyPaid), errors.Is(err, repository.ErrNotFound):
		return false, nil
	}
	return false, err
}
