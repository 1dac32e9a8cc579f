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

type userDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Email       string             `bson:"email"`
	DisplayName string             `bson:"displayName,omitempty"`
	PhotoURL    string             `bson:"photoURL,omitempty"`
	Role        model.Role         `bson:"role"`
	CreatedAt   time.Time          `bson:"created_at"`
}

type userStore struct{ s *Store }

// CreateIfAbsent upserts on email with $setOnInsert so an existing user is
// never overwritten.
func (us userStore) CreateIfAbsent(ctx context.Context, u *model.User) (bool, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	res, err := us.s.users.UpdateOne(ctx,
		bson.M{"email": u.Email},
		bson.M{"$setOnInsert": userDoc{Email: u.Email, DisplayName: u.DisplayName, PhotoURL: u.PhotoURL, Role: u.Role, CreatedAt: u.CreatedAt}},
		options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("upsert user: %w", err)
	}
	existing, err := us.GetByEmail(ctx, u.Email)
	if err != nil {
		return false, err
	}
	*u = *existing
	return res.UpsertedCount > 0, nil
}

func (us userStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var d userDoc
	if err := us.s.users.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&d); err != nil {
		return nil, notFound(err)
	}
	return &model.User{
		ID:          d.ID.Hex(),
		Email:       d.Email,
		DisplayName: d.DisplayName,
		PhotoURL:    d.PhotoURL,
		Role:        d.Role,
		CreatedAt:   d.CreatedAt,
	}, nil
}

func (us userStore) SetRole(ctx context.Context, email string, role model.Role) error {
	res, err := us.s.users.UpdateOne(ctx,
		bson.M{"email": strings.ToLower(strings.TrimSpace(email))},
		bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
