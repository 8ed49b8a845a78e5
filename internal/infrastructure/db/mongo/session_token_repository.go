package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deskforce/identity-system/internal/core/domain"
)

const collectionSessionTokens = "session_tokens"

// SessionTokenRepository persists the append-only session ledger. Rows are
// never deleted; revocation flips the expired/revoked flags in place.
type SessionTokenRepository struct {
	coll *mongo.Collection
}

func NewSessionTokenRepository(db *mongo.Database) *SessionTokenRepository {
	return &SessionTokenRepository{coll: db.Collection(collectionSessionTokens)}
}

type sessionTokenDoc struct {
	ID            string `bson:"_id"`
	Value         string `bson:"value"`
	TokenType     string `bson:"token_type"`
	Expired       bool   `bson:"expired"`
	Revoked       bool   `bson:"revoked"`
	PrincipalID   string `bson:"principal_id"`
	PrincipalKind string `bson:"principal_kind"`
	CreatedAt     int64  `bson:"created_at"`
}

func (r *SessionTokenRepository) FindAllValidByPrincipal(ctx context.Context, principalID string) ([]domain.SessionToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{
		"principal_id": principalID,
		"expired":      false,
		"revoked":      false,
	})
	if err != nil {
		return nil, fmt.Errorf("find valid session tokens: %w", err)
	}
	defer cursor.Close(ctx)

	var tokens []domain.SessionToken
	for cursor.Next(ctx) {
		var doc sessionTokenDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode session token: %w", err)
		}
		tokens = append(tokens, *docToSessionToken(&doc))
	}
	return tokens, cursor.Err()
}

func (r *SessionTokenRepository) FindByValue(ctx context.Context, value string) (*domain.SessionToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc sessionTokenDoc
	if err := r.coll.FindOne(ctx, bson.M{"value": value}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidCredential
		}
		return nil, fmt.Errorf("find session token: %w", err)
	}
	return docToSessionToken(&doc), nil
}

func (r *SessionTokenRepository) Save(ctx context.Context, t *domain.SessionToken) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, sessionTokenToDoc(t)); err != nil {
		return fmt.Errorf("insert session token: %w", err)
	}
	return nil
}

func (r *SessionTokenRepository) SaveAll(ctx context.Context, ts []domain.SessionToken) error {
	if len(ts) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	models := make([]mongo.WriteModel, 0, len(ts))
	for i := range ts {
		doc := sessionTokenToDoc(&ts[i])
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	if _, err := r.coll.BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("bulk save session tokens: %w", err)
	}
	return nil
}

// EnsureIndexes backs the two hot queries: value lookup on every request
// and the valid-tokens filter on every login.
func (r *SessionTokenRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "value", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "principal_id", Value: 1}, {Key: "expired", Value: 1}, {Key: "revoked", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("ensure session token indexes: %w", err)
	}
	return nil
}

func sessionTokenToDoc(t *domain.SessionToken) *sessionTokenDoc {
	return &sessionTokenDoc{
		ID:            t.ID,
		Value:         t.Value,
		TokenType:     t.TokenType,
		Expired:       t.Expired,
		Revoked:       t.Revoked,
		PrincipalID:   t.PrincipalID,
		PrincipalKind: string(t.PrincipalKind),
		CreatedAt:     t.CreatedAt.Unix(),
	}
}

func docToSessionToken(doc *sessionTokenDoc) *domain.SessionToken {
	return &domain.SessionToken{
		ID:            doc.ID,
		Value:         doc.Value,
		TokenType:     doc.TokenType,
		Expired:       doc.Expired,
		Revoked:       doc.Revoked,
		PrincipalID:   doc.PrincipalID,
		PrincipalKind: domain.PrincipalKind(doc.PrincipalKind),
		CreatedAt:     unixToTime(doc.CreatedAt),
	}
}
