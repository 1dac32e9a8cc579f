package mongostore

import (
	"context" // context carries deadlines and cancellation
	"errors"  // errors for sentinel matching
	"fmt"     // fmt wraps errors with context
	"time"    // time for timestamps and timeouts

	"go.mongodb.org/mongo-driver/bson"           // bson builds filters and documents
	"go.mongodb.org/mongo-driver/bson/primitive" // primitive holds ObjectIDs
	"go.mongodb.org/mongo-driver/mongo"          // MongoDB driver
	"go.mongodb.org/mongo-driver/mongo/options"  // options for finds and indexes

	"github.com/iliyamo/parcel-shipping/internal/model"      // domain models
	"github.com/iliyamo/parcel-shipping/internal/repository" // store contracts
)

type paymentDoc struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty"`
	ParcelID      string              `bson:"parcelId"`
	ParcelName    string              `bson:"parcelName"`
	CustomerEmail string              `bson:"customerEmail"`
	Currency      string              `bson:"currency"`
	Amount        float64             `bson:"amount"`
	TransactionID string              `bson:"transactionId"`
	TrackingID    string              `bson:"trackingId"`
	PaidAt        time.Time           `bson:"paidAt"`
	PaymentStatus model.PaymentStatus `bson:"paymentStatus"`
}

func (d paymentDoc) model() model.Payment {
	return model.Payment{
		ID:            d.ID.Hex(),
		ParcelID:      d.ParcelID,
		ParcelName:    d.ParcelName,
		CustomerEmail: d.CustomerEmail,
		Currency:      d.Currency,
		Amount:        d.Amount,
		TransactionID: d.TransactionID,
		TrackingID:    d.TrackingID,
		PaidAt:        d.PaidAt,
		PaymentStatus: d.PaymentStatus,
	}
}

type paymentStore struct{ s *Store }

func (ps paymentStore) GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
	var d paymentDoc
	if err := ps.s.payments.FindOne(ctx, bson.M{"transactionId": transactionID}).Decode(&d); err != nil {
		return nil, notFound(err)
	}
	p := d.model()
	return &p, nil
}

func (ps paymentStore) ListByEmail(ctx context.Context, email string) ([]model.Payment, error) {
	return ps.find(ctx, bson.M{"customerEmail": email},
		options.Find().SetSort(bson.D{{Key: "paidAt", Value: -1}}))
}

func (ps paymentStore) ListSince(ctx context.Context, after repository.PaymentCursor, limit int) ([]model.Payment, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"paidAt": bson.M{"$gt": after.PaidAt}},
		bson.M{"paidAt": after.PaidAt, "transactionId": bson.M{"$gt": after.TransactionID}},
	}}
	return ps.find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "paidAt", Value: 1}, {Key: "transactionId", Value: 1}}).
		SetLimit(int64(limit)))
}

func (ps paymentStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.Payment, error) {
	cur, err := ps.s.payments.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find payments: %w", err)
	}
	var docs []paymentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode payments: %w", err)
	}
	out := make([]model.Payment, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

// Record inserts the payment, then moves the parcel to paid. The insert is
// the commit point: once it succeeds the payment is durable even if the
// parcel update fails, in which case ErrParcelPending is returned.
func (ps paymentStore) Record(ctx context.Context, p *model.Payment) (bool, error) {
	parcel, oid, err := ps.parcel(ctx, p.ParcelID)
	if err != nil {
		return false, err
	}
	// a missing parcel never blocks recording the charge
	update := parcel != nil && parcel.PaymentStatus != model.PaymentPaid
	if parcel != nil && !update && parcel.TrackingID != nil {
		p.TrackingID = *parcel.TrackingID
	}

	p.PaymentStatus = model.PaymentPaid
	res, err := ps.s.payments.InsertOne(ctx, paymentDoc{
		ParcelID:      p.ParcelID,
		ParcelName:    p.ParcelName,
		CustomerEmail: p.CustomerEmail,
		Currency:      p.Currency,
		Amount:        p.Amount,
		TransactionID: p.TransactionID,
		TrackingID:    p.TrackingID,
		PaidAt:        p.PaidAt,
		PaymentStatus: p.PaymentStatus,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, repository.ErrDuplicateTransaction
		}
		return false, fmt.Errorf("insert payment: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = id.Hex()
	}
	if !update {
		return false, nil
	}

	upd, err := ps.s.parcels.UpdateOne(ctx,
		bson.M{"_id": oid, "paymentStatus": model.PaymentUnpaid},
		bson.M{"$set": bson.M{"paymentStatus": model.PaymentPaid, "trackingId": p.TrackingID}})
	if err != nil {
		return false, fmt.Errorf("payment %s: %w: %v", p.TransactionID, repository.ErrParcelPending, err)
	}
	if upd.ModifiedCount > 0 {
		return true, nil
	}
	// another transaction paid the parcel between our read and update
	if err := ps.adoptTrackingID(ctx, p); err != nil {
		return false, fmt.Errorf("payment %s: %w: %v", p.TransactionID, repository.ErrParcelPending, err)
	}
	return false, nil
}

// parcel loads the parcel a payment references. A malformed or unknown id
// yields a nil parcel and no error.
func (ps paymentStore) parcel(ctx context.Context, id string) (*parcelDoc, primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, oid, nil
	}
	var d parcelDoc
	err = ps.s.parcels.FindOne(ctx, bson.M{"_id": oid}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, oid, nil
	}
	if err != nil {
		return nil, oid, fmt.Errorf("find parcel: %w", err)
	}
	return &d, oid, nil
}

// adoptTrackingID rewrites p and its stored row to carry the tracking id the
// parcel actually holds.
func (ps paymentStore) adoptTrackingID(ctx context.Context, p *model.Payment) error {
	parcel, _, err := ps.parcel(ctx, p.ParcelID)
	if err != nil {
		return err
	}
	if parcel == nil || parcel.TrackingID == nil || *parcel.TrackingID == p.TrackingID {
		return nil
	}
	p.TrackingID = *parcel.TrackingID
	_, err = ps.s.payments.UpdateOne(ctx,
		bson.M{"transactionId": p.TransactionID},
		bson.M{"$set": bson.M{"trackingId": p.TrackingID}})
	return err
}
