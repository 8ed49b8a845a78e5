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

const collectionRoles = "roles"

// RoleRepository implements ports.RoleCatalog over the roles collection.
// Roles are reference data; the repository only reads, plus a seed helper
// run at startup.
type RoleRepository struct {
	coll *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{coll: db.Collection(collectionRoles)}
}

type roleDoc struct {
	Name        string `bson:"_id"`
	Description string `bson:"description,omitempty"`
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc roleDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotConfigured
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &domain.Role{Name: doc.Name, Description: doc.Description}, nil
}

// Seed upserts the built-in roles so a fresh database can serve
// registrations immediately.
func (r *RoleRepository) Seed(ctx context.Context) error {
	builtin := []roleDoc{
		{Name: domain.RoleAdmin, Description: "Administrator: provisions and manages user accounts"},
		{Name: domain.RoleUser, Description: "Employee account provisioned by an administrator"},
	}
	opts := options.Replace().SetUpsert(true)
	for _, doc := range builtin {
		if _, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.Name}, doc, opts); err != nil {
			return fmt.Errorf("seed role %s: %w", doc.Name, err)
		}
	}
	return nil
}
