package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deskforce/identity-system/internal/core/domain"
)

const collectionConfirmationTokens = "confirmation_tokens"

// ConfirmationTokenRepository persists one-time confirmation tokens.
// Consumed rows are kept for the audit trail.
type ConfirmationTokenRepository struct {
	coll *mongo.Collection
}

func NewConfirmationTokenRepository(db *mongo.Database) *ConfirmationTokenRepository {
	return &ConfirmationTokenRepository{coll: db.Collection(collectionConfirmationTokens)}
}

type confirmationTokenDoc struct {
	ID            string `bson:"_id"`
	Value         string `bson:"value"`
	Purpose       string `bson:"purpose"`
	PrincipalID   string `bson:"principal_id"`
	PrincipalKind string `bson:"principal_kind"`
	CreatedAt     int64  `bson:"created_at"`
	ExpiresAt     int64  `bson:"expires_at"`
	ConsumedAt    int64  `bson:"consumed_at,omitempty"`
}

func (r *ConfirmationTokenRepository) FindByValue(ctx context.Context, value string) (*domain.ConfirmationToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc confirmationTokenDoc
	if err := r.coll.FindOne(ctx, bson.M{"value": value}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("find confirmation token: %w", err)
	}
	return docToConfirmationToken(&doc), nil
}

func (r *ConfirmationTokenRepository) FindOutstanding(ctx context.Context, principalID string, purpose domain.TokenPurpose, now time.Time) (*domain.ConfirmationToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"principal_id": principalID,
		"purpose":      string(purpose),
		"consumed_at":  bson.M{"$exists": false},
		"expires_at":   bson.M{"$gt": now.Unix()},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var doc confirmationTokenDoc
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("find outstanding token: %w", err)
	}
	return docToConfirmationToken(&doc), nil
}

func (r *ConfirmationTokenRepository) Save(ctx context.Context, t *domain.ConfirmationToken) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, confirmationTokenToDoc(t)); err != nil {
		return fmt.Errorf("insert confirmation token: %w", err)
	}
	return nil
}

func (r *ConfirmationTokenRepository) MarkConsumed(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// guard on consumed_at so two racing consumers cannot both burn it
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "consumed_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"consumed_at": at.Unix()}},
	)
	if err != nil {
		return fmt.Errorf("mark token consumed: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInvalidOrExpiredToken
	}
	return nil
}

func (r *ConfirmationTokenRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "value", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "principal_id", Value: 1}, {Key: "purpose", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("ensure confirmation token indexes: %w", err)
	}
	return nil
}

func confirmationTokenToDoc(t *domain.ConfirmationToken) *confirmationTokenDoc {
	doc := &confirmationTokenDoc{
		ID:            t.ID,
		Value:         t.Value,
		Purpose:       string(t.Purpose),
		PrincipalID:   t.PrincipalID,
		PrincipalKind: string(t.PrincipalKind),
		CreatedAt:     t.CreatedAt.Unix(),
		ExpiresAt:     t.ExpiresAt.Unix(),
	}
	if t.ConsumedAt != nil {
		doc.ConsumedAt = t.ConsumedAt.Unix()
	}
	return doc
}

func docToConfirmationToken(doc *confirmationTokenDoc) *domain.ConfirmationToken {
	token := &domain.ConfirmationToken{
		ID:            doc.ID,
		Value:         doc.Value,
		Purpose:       domain.TokenPurpose(doc.Purpose),
		PrincipalID:   doc.PrincipalID,
		PrincipalKind: domain.PrincipalKind(doc.PrincipalKind),
		CreatedAt:     unixToTime(doc.CreatedAt),
		ExpiresAt:     unixToTime(doc.ExpiresAt),
	}
	if doc.ConsumedAt != 0 {
		at := unixToTime(doc.ConsumedAt)
		token.ConsumedAt = &at
	}
	return token
}
