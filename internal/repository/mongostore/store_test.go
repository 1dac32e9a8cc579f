package mongostore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/iliyamo/parcel-shipping/internal/model"
	"github.com/iliyamo/parcel-shipping/internal/repository"
)

func TestPaymentRecord(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("marks unpaid parcel", func(mt *mtest.T) {
		s := New(mt.DB)
		parcelID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.zapParcels", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: parcelID},
				{Key: "parcelName", Value: "Books"},
				{Key: "paymentStatus", Value: "unpaid"},
			}),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		p := &model.Payment{ParcelID: parcelID.Hex(), TransactionID: "pi_1", TrackingID: "TRK-0000ABCD", Amount: 25.5}
		modified, err := s.Payments().Record(ctx, p)
		require.NoError(mt, err)
		assert.True(mt, modified)
		assert.Equal(mt, model.PaymentPaid, p.PaymentStatus)
		assert.NotEmpty(mt, p.ID)
	})

	mt.Run("duplicate transaction", func(mt *mtest.T) {
		s := New(mt.DB)
		parcelID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.zapParcels", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: parcelID},
				{Key: "paymentStatus", Value: "unpaid"},
			}),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}),
		)

		_, err := s.Payments().Record(ctx, &model.Payment{ParcelID: parcelID.Hex(), TransactionID: "pi_1"})
		assert.ErrorIs(mt, err, repository.ErrDuplicateTransaction)
	})

	mt.Run("already paid keeps tracking id", func(mt *mtest.T) {
		s := New(mt.DB)
		parcelID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.zapParcels", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: parcelID},
				{Key: "paymentStatus", Value: "paid"},
				{Key: "trackingId", Value: "TRK-11112222"},
			}),
			mtest.CreateSuccessResponse(),
		)

		p := &model.Payment{ParcelID: parcelID.Hex(), TransactionID: "pi_2", TrackingID: "TRK-99998888"}
		modified, err := s.Payments().Record(ctx, p)
		require.NoError(mt, err)
		assert.False(mt, modified)
		assert.Equal(mt, "TRK-11112222", p.TrackingID)
	})

	mt.Run("deleted parcel still records charge", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.zapParcels", mtest.FirstBatch),
			mtest.CreateSuccessResponse(),
		)

		p := &model.Payment{ParcelID: primitive.NewObjectID().Hex(), TransactionID: "pi_3", TrackingID: "TRK-0000AAAA"}
		modified, err := s.Payments().Record(ctx, p)
		require.NoError(mt, err)
		assert.False(mt, modified)
		assert.NotEmpty(mt, p.ID)
		assert.Equal(mt, "TRK-0000AAAA", p.TrackingID)
	})

	mt.Run("malformed parcel id still records charge", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		modified, err := s.Payments().Record(ctx, &model.Payment{ParcelID: "not-an-id", TransactionID: "pi_4"})
		require.NoError(mt, err)
		assert.False(mt, modified)
	})

	mt.Run("losing the parcel update adopts the winner's tracking id", func(mt *mtest.T) {
		s := New(mt.DB)
		parcelID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.zapParcels", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: parcelID},
				{Key: "paymentStatus", Value: "unpaid"},
			}),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "test.zapParcels", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: parcelID},
				{Key: "paymentStatus", Value: "paid"},
				{Key: "trackingId", Value: "TRK-77776666"},
			}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		p := &model.Payment{ParcelID: parcelID.Hex(), TransactionID: "pi_5", TrackingID: "TRK-12121212"}
		modified, err := s.Payments().Record(ctx, p)
		require.NoError(mt, err)
		assert.False(mt, modified)
		assert.Equal(mt, "TRK-77776666", p.TrackingID)
	})

	mt.Run("failed parcel update leaves the payment pending", func(mt *mtest.T) {
		s := New(mt.DB)
		parcelID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.zapParcels", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: parcelID},
				{Key: "paymentStatus", Value: "unpaid"},
			}),
			mtest.CreateSuccessResponse(),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value"}),
		)

		p := &model.Payment{ParcelID: parcelID.Hex(), TransactionID: "pi_6", TrackingID: "TRK-34343434"}
		modified, err := s.Payments().Record(ctx, p)
		assert.ErrorIs(mt, err, repository.ErrParcelPending)
		assert.False(mt, modified)
		assert.NotEmpty(mt, p.ID)
	})
}

func TestParcelGetByIDNotFound(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("empty cursor", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.zapParcels", mtest.FirstBatch))

		_, err := s.Parcels().GetByID(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})
}

func TestParcelMarkPaidAlreadyPaid(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("guarded update misses", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "test.zapParcels", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)

		err := s.Parcels().MarkPaid(context.Background(), primitive.NewObjectID().Hex(), "TRK-00000001")
		assert.ErrorIs(mt, err, repository.ErrAlreadyPaid)
	})
}
