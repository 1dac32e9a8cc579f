package payment

import (
	"context"  // context carries deadlines and cancellation
	"errors"   // errors for sentinel matching
	"fmt"      // fmt wraps errors with context
	"log/slog" // structured logging
	"strings"  // strings trims and normalises text
	"time"     // time for timestamps and timeouts

	"golang.org/x/sync/singleflight" // singleflight collapses duplicate calls

	"github.com/iliyamo/parcel-shipping/internal/model"      // domain models
	"github.com/iliyamo/parcel-shipping/internal/queue"      // payment events
	"github.com/iliyamo/parcel-shipping/internal/repository" // store contracts
)

const (
	gatewayTimeout = 30 * time.Second
	storeTimeout   = 5 * time.Second
)

// EventPublisher announces confirmed payments to downstream consumers.
type EventPublisher interface {
	PublishPaymentConfirmed(ctx context.Context, ev queue.PaymentConfirmedEvent) error
}

// Receipt is the outcome of reconciling one checkout session.
type Receipt struct {
	AlreadyProcessed bool           `json:"alreadyProcessed"`
	TrackingID       string         `json:"trackingId"`
	TransactionID    string         `json:"transactionId"`
	ParcelModified   bool           `json:"modifyParcel"`
	Payment          *model.Payment `json:"paymentInfo,omitempty"`
}

// Reconciler turns a paid checkout session into a paid parcel and exactly
// one payment record per transaction.
type Reconciler struct {
	gateway   Gateway
	payments  repository.PaymentStore
	publisher EventPublisher
	logger    *slog.Logger

	group         singleflight.Group
	now           func() time.Time
	newTrackingID func() (string, error)
}

// NewReconciler wires a reconciler. publisher may be nil.
func NewReconciler(gateway Gateway, payments repository.PaymentStore, publisher EventPublisher, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		gateway:       gateway,
		payments:      payments,
		publisher:     publisher,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
		newTrackingID: NewTrackingID,
	}
}

// Reconcile processes the session at most once per process at a time;
// concurrent callers for the same session share one result. The shared
// call runs detached from any single caller's cancellation.
func (r *Reconciler) Reconcile(ctx context.Context, sessionID string) (*Receipt, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: empty session id", ErrInvalidInput)
	}
	ch := r.group.DoChan(sessionID, func() (interface{}, error) {
		return r.reconcile(context.WithoutCancel(ctx), sessionID)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		rc := *res.Val.(*Receipt)
		return &rc, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Reconciler) reconcile(ctx context.Context, sessionID string) (*Receipt, error) {
	gctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	sess, err := r.gateway.GetCheckoutSession(gctx, sessionID)
	cancel()
	if err != nil {
		return nil, err
	}

	if sess.TransactionID != "" {
		existing, err := r.lookup(ctx, sess.TransactionID)
		if err == nil {
			return alreadyProcessed(existing), nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	if sess.PaymentStatus != SessionPaid {
		return nil, &PaymentIncompleteError{SessionID: sessionID, Status: sess.PaymentStatus}
	}
	if sess.TransactionID == "" {
		return nil, fmt.Errorf("%w: paid session %s has no transaction", ErrGateway, sessionID)
	}
	parcelID := sess.Metadata[MetaParcelID]
	if parcelID == "" {
		return nil, fmt.Errorf("%w: session %s has no parcel reference", ErrInvalidInput, sessionID)
	}

	trackingID, err := r.newTrackingID()
	if err != nil {
		return nil, err
	}
	p := &model.Payment{
		ParcelID:      parcelID,
		ParcelName:    sess.Metadata[MetaParcelName],
		CustomerEmail: strings.ToLower(strings.TrimSpace(sess.CustomerEmail)),
		Currency:      sess.Currency,
		Amount:        FromMinorUnits(sess.AmountTotal),
		TransactionID: sess.TransactionID,
		TrackingID:    trackingID,
		PaidAt:        r.now(),
		PaymentStatus: model.PaymentPaid,
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	modified, err := r.payments.Record(sctx, p)
	cancel()
	if errors.Is(err, repository.ErrDuplicateTransaction) {
		existing, lerr := r.lookup(ctx, sess.TransactionID)
		if lerr != nil {
			return nil, lerr
		}
		return alreadyProcessed(existing), nil
	}
	if errors.Is(err, repository.ErrParcelPending) {
		// the charge is stored; the sweep will finish the parcel
		r.logger.Warn("parcel update deferred to sweep",
			"transaction_id", p.TransactionID, "parcel_id", p.ParcelID, "error", err)
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("record payment %s: %w", sess.TransactionID, err)
	}
	if !modified {
		r.logger.Warn("payment recorded without changing its parcel",
			"transaction_id", p.TransactionID, "parcel_id", p.ParcelID, "tracking_id", p.TrackingID)
	}

	r.logger.Info("payment reconciled",
		"session_id", sessionID,
		"transaction_id", p.TransactionID,
		"parcel_id", p.ParcelID,
		"tracking_id", p.TrackingID,
		"parcel_modified", modified)
	r.publish(ctx, p)

	return &Receipt{
		TrackingID:     p.TrackingID,
		TransactionID:  p.TransactionID,
		ParcelModified: modified,
		Payment:        p,
	}, nil
}

func (r *Reconciler) lookup(ctx context.Context, transactionID string) (*model.Payment, error) {
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return r.payments.GetByTransactionID(sctx, transactionID)
}

func alreadyProcessed(p *model.Payment) *Receipt {
	return &Receipt{
		AlreadyProcessed: true,
		TrackingID:       p.TrackingID,
		TransactionID:    p.TransactionID,
	}
}

// publish is best-effort; the payment is already durable.
func (r *Reconciler) publish(ctx context.Context, p *model.Payment) {
	if r.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := r.publisher.PublishPaymentConfirmed(pctx, queue.NewPaymentConfirmedEvent(*p)); err != nil {
		r.logger.Warn("publish payment.confirmed failed", "transaction_id", p.TransactionID, "error", err)
	}
}
