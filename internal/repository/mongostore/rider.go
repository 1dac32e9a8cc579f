package mongostore

import (
	"context" // context carries deadlines and cancellation
	"fmt"     // fmt wraps errors with context
	"strings" // strings trims and normalises text
	"time"    // time for timestamps and timeouts

	"go.mongodb.org/mongo-driver/bson"           // bson builds filters and documents
	"go.mongodb.org/mongo-driver/bson/primitive" // primitive holds ObjectIDs
	"go.mongodb.org/mongo-driver/mongo/options"  // options for finds and indexes

	"github.com/iliyamo/parcel-shipping/internal/model"      // domain models
	"github.com/iliyamo/parcel-shipping/internal/repository" // store contracts
)

type riderDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Name             string             `bson:"name"`
	Email            string             `bson:"email"`
	Age              int                `bson:"age,omitempty"`
	Region           string             `bson:"region,omitempty"`
	District         string             `bson:"district,omitempty"`
	NID              string             `bson:"nid,omitempty"`
	Contact          string             `bson:"contact,omitempty"`
	BikeBrand        string             `bson:"bikeBrand,omitempty"`
	BikeRegistration string             `bson:"bikeRegistration,omitempty"`
	Status           model.RiderStatus  `bson:"status"`
	CreatedAt        time.Time          `bson:"created_at"`
}

func (d riderDoc) model() model.Rider {
	return model.Rider{
		ID:               d.ID.Hex(),
		Name:             d.Name,
		Email:            d.Email,
		Age:              d.Age,
		Region:           d.Region,
		District:         d.District,
		NID:              d.NID,
		Contact:          d.Contact,
		BikeBrand:        d.BikeBrand,
		BikeRegistration: d.BikeRegistration,
		Status:           d.Status,
		CreatedAt:        d.CreatedAt,
	}
}

type riderStore struct{ s *Store }

func (rs riderStore) Create(ctx context.Context, r *model.Rider) error {
	r.Status = model.RiderPending
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	res, err := rs.s.riders.InsertOne(ctx, riderDoc{
		Name: r.Name, Email: r.Email, Age: r.Age, Region: r.Region, District: r.District,
		NID: r.NID, Contact: r.Contact, BikeBrand: r.BikeBrand, BikeRegistration: r.BikeRegistration,
		Status: r.Status, CreatedAt: r.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert rider: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		r.ID = oid.Hex()
	}
	return nil
}

func (rs riderStore) List(ctx context.Context, f repository.RiderFilter) ([]model.Rider, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	cur, err := rs.s.riders.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find riders: %w", err)
	}
	var docs []riderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode riders: %w", err)
	}
	out := make([]model.Rider, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (rs riderStore) UpdateStatus(ctx context.Context, id string, status model.RiderStatus) (*model.Rider, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var d riderDoc
	err = rs.s.riders.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	if err != nil {
		return nil, notFound(err)
	}
	r := d.model()
	return &r, nil
}
