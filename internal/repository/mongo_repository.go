package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrCartNotFound    = fmt.Errorf("cart not found: %w", domain.ErrNotFound)
	ErrVersionConflict = fmt.Errorf("cart was modified concurrently: %w", domain.ErrVersionConflict)
)

// MongoRepository stores one document per cart in the "carts" collection.
type MongoRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func (m MongoRepository) Fetch(ctx context.Context, sel Selector) (*domain.Cart, error) {
	filter, err := selectorFilter(sel)
	if err != nil {
		return nil, err
	}
	return m.findOne(ctx, filter)
}

func (m MongoRepository) FetchByID(ctx context.Context, cartID string) (*domain.Cart, error) {
	if cartID == "" {
		return nil, fmt.Errorf("cart id is required: %w", domain.ErrInvalidArgument)
	}
	return m.findOne(ctx, bson.M{"_id": cartID})
}

func (m MongoRepository) Create(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	if cart.Owner == nil {
		return nil, fmt.Errorf("cart owner is required: %w", domain.ErrInvalidArgument)
	}

	created := cart.Clone()
	now := m.timestamp()
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.Version = 1
	created.CreatedAt = now
	created.UpdatedAt = now

	_, err := m.collection.InsertOne(ctx, cartDocFromDomain(created))
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	return created, nil
}

func (m MongoRepository) Save(ctx context.Context, cart *domain.Cart, expectedVersion int64) (*domain.Cart, error) {
	doc := cartDocFromDomain(cart)

	filter := bson.M{"_id": cart.ID, "version": expectedVersion}
	update := bson.M{
		"$set": bson.M{
			"items":      doc.Items,
			"billing":    doc.Billing,
			"discount":   doc.Discount,
			"updated_at": m.timestamp(),
			"version":    expectedVersion + 1,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var saved cartDoc
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	return saved.toDomain()
}

func (m MongoRepository) findOne(ctx context.Context, filter bson.M) (*domain.Cart, error) {
	var doc cartDoc
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return doc.toDomain()
}

// timestamp is truncated to what BSON dates can hold so stored and returned values match.
func (m MongoRepository) timestamp() time.Time {
	return m.now().UTC().Truncate(time.Millisecond)
}

func selectorFilter(sel Selector) (bson.M, error) {
	if sel.CartID == "" {
		return nil, fmt.Errorf("cart id is required: %w", domain.ErrInvalidArgument)
	}

	switch o := sel.Owner.(type) {
	case domain.AccountOwner:
		if o.AccountID == "" {
			return nil, fmt.Errorf("account id is required: %w", domain.ErrUnauthorized)
		}
		return bson.M{"_id": sel.CartID, "account_id": o.AccountID}, nil
	case domain.AnonymousOwner:
		if o.TokenHash == "" {
			return nil, fmt.Errorf("anonymous token is required: %w", domain.ErrUnauthorized)
		}
		return bson.M{"_id": sel.CartID, "anonymous_access_token": o.TokenHash}, nil
	default:
		return nil, fmt.Errorf("cart owner is required: %w", domain.ErrUnauthorized)
	}
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "anonymous_access_token", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// NewMongoRepository returns the concrete type so main can run CreateIndexes.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
		now:        time.Now,
	}
}
