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

const (
	collectionAdmins = "admins"
	collectionUsers  = "users"
)

// PrincipalRepository implements ports.CredentialStore. Admin and user
// records live in separate collections; the kind argument routes every
// lookup. Save is an upsert keyed by the principal ID.
type PrincipalRepository struct {
	admins *mongo.Collection
	users  *mongo.Collection
}

func NewPrincipalRepository(db *mongo.Database) *PrincipalRepository {
	return &PrincipalRepository{
		admins: db.Collection(collectionAdmins),
		users:  db.Collection(collectionUsers),
	}
}

type principalDoc struct {
	ID           string   `bson:"_id"`
	Kind         string   `bson:"kind"`
	Username     string   `bson:"username"`
	Email        string   `bson:"email"`
	PasswordHash string   `bson:"password_hash"`
	FirstName    string   `bson:"first_name,omitempty"`
	LastName     string   `bson:"last_name,omitempty"`
	FullName     string   `bson:"full_name,omitempty"`
	PhoneNumber  string   `bson:"phone_number,omitempty"`
	JobTitle     string   `bson:"job_title,omitempty"`
	Department   string   `bson:"department,omitempty"`
	Roles        []string `bson:"roles"`
	Enabled      bool     `bson:"enabled"`
	CreatedUnder string   `bson:"created_under,omitempty"`
	ResetToken   string   `bson:"reset_token,omitempty"`
	CreatedAt    int64    `bson:"created_at"`
	UpdatedAt    int64    `bson:"updated_at"`
}

func (r *PrincipalRepository) collection(kind domain.PrincipalKind) *mongo.Collection {
	if kind == domain.KindAdmin {
		return r.admins
	}
	return r.users
}

func (r *PrincipalRepository) FindByUsername(ctx context.Context, kind domain.PrincipalKind, username string) (*domain.Principal, error) {
	return r.findOne(ctx, kind, bson.M{"username": username})
}

func (r *PrincipalRepository) FindByEmail(ctx context.Context, kind domain.PrincipalKind, email string) (*domain.Principal, error) {
	return r.findOne(ctx, kind, bson.M{"email": email})
}

func (r *PrincipalRepository) FindByID(ctx context.Context, kind domain.PrincipalKind, id string) (*domain.Principal, error) {
	return r.findOne(ctx, kind, bson.M{"_id": id})
}

func (r *PrincipalRepository) findOne(ctx context.Context, kind domain.PrincipalKind, filter bson.M) (*domain.Principal, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc principalDoc
	if err := r.collection(kind).FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("find principal: %w", err)
	}
	return docToPrincipal(&doc), nil
}

func (r *PrincipalRepository) Save(ctx context.Context, p *domain.Principal) (*domain.Principal, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := principalToDoc(p)
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection(p.Kind).ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateCredential
		}
		return nil, fmt.Errorf("save principal: %w", err)
	}
	return p, nil
}

// EnsureIndexes creates the unique username/email indexes both collections
// rely on for the duplicate-credential guarantee under concurrency.
func (r *PrincipalRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	for _, coll := range []*mongo.Collection{r.admins, r.users} {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure principal indexes: %w", err)
		}
	}
	return nil
}

func principalToDoc(p *domain.Principal) *principalDoc {
	return &principalDoc{
		ID:           p.ID,
		Kind:         string(p.Kind),
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		FullName:     p.FullName,
		PhoneNumber:  p.PhoneNumber,
		JobTitle:     p.JobTitle,
		Department:   p.Department,
		Roles:        roleNames(p.Roles),
		Enabled:      p.Enabled,
		CreatedUnder: p.CreatedUnder,
		ResetToken:   p.ResetToken,
		CreatedAt:    p.CreatedAt.Unix(),
		UpdatedAt:    p.UpdatedAt.Unix(),
	}
}

func docToPrincipal(doc *principalDoc) *domain.Principal {
	roles := make([]domain.Role, 0, len(doc.Roles))
	for _, name := range doc.Roles {
		roles = append(roles, domain.Role{Name: name})
	}
	return &domain.Principal{
		ID:           doc.ID,
		Kind:         domain.PrincipalKind(doc.Kind),
		Username:     doc.Username,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		FirstName:    doc.FirstName,
		LastName:     doc.LastName,
		FullName:     doc.FullName,
		PhoneNumber:  doc.PhoneNumber,
		JobTitle:     doc.JobTitle,
		Department:   doc.Department,
		Roles:        roles,
		Enabled:      doc.Enabled,
		CreatedUnder: doc.CreatedUnder,
		ResetToken:   doc.ResetToken,
		CreatedAt:    unixToTime(doc.CreatedAt),
		UpdatedAt:    unixToTime(doc.UpdatedAt),
	}
}

func roleNames(roles []domain.Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
