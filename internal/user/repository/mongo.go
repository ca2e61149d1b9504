package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"user-account-service/internal/user/domain"
)

// userDocument is the stored shape of a user in the users collection.
type userDocument struct {
	ID         string         `bson:"_id"`
	FirstName  string         `bson:"firstName"`
	LastName   string         `bson:"lastName,omitempty"`
	Email      string         `bson:"email"`
	Phone      *phoneDocument `bson:"phone,omitempty"`
	Password   string         `bson:"password,omitempty"`
	Role       string         `bson:"role"`
	IsBlocked  bool           `bson:"isBlocked"`
	LoginType  string         `bson:"loginType"`
	Token      string         `bson:"token,omitempty"`
	Version    int            `bson:"version"`
	IsActive   bool           `bson:"isActive"`
	CreatedBy  string         `bson:"createdBy,omitempty"`
	CreatedAt  time.Time      `bson:"createdAt"`
	UpdatedBy  string         `bson:"updatedBy,omitempty"`
	UpdatedAt  time.Time      `bson:"updatedAt"`
	MetaStatus string         `bson:"metaStatus,omitempty"`
}

type phoneDocument struct {
	DialCode string `bson:"dialCode"`
	Number   string `bson:"number"`
}

// MongoRepository stores users in a MongoDB collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository returns a user repository backed by coll.
func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

// EnsureIndexes creates the unique email index if it does not exist.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	return err
}

// Create inserts u. Returns ErrDuplicateEmail when the unique email index rejects it.
func (r *MongoRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.coll.InsertOne(ctx, toDocument(u))
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	return err
}

// IsExisting reports whether a user with email exists.
func (r *MongoRepository) IsExisting(ctx context.Context, email string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByEmail returns the user with the given email, or nil if not found.
// It returns an error only for database failures, not for missing documents.
func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing documents.
func (r *MongoRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

// UpdateByID applies patch only when the stored version matches expectedVersion.
func (r *MongoRepository) UpdateByID(ctx context.Context, id string, expectedVersion int, patch domain.Patch) (*domain.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	err := r.coll.FindOneAndUpdate(ctx, versionFilter(id, expectedVersion), updateDocument(patch), opts).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrVersionConflict
	}
	return nil, nil
}

// Ping checks the connection of the collection's client.
func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

// versionFilter matches id at expectedVersion. Zero also matches documents that never got a version.
func versionFilter(id string, expectedVersion int) bson.M {
	if expectedVersion <= 0 {
		return bson.M{"_id": id, "version": bson.M{"$in": bson.A{0, nil}}}
	}
	return bson.M{"_id": id, "version": expectedVersion}
}

func updateDocument(p domain.Patch) bson.M {
	set := bson.M{
		"version":   p.Audit.Version,
		"updatedBy": p.Audit.UpdatedBy,
		"updatedAt": p.Audit.UpdatedAt,
	}
	unset := bson.M{}
	if p.FirstName != nil {
		set["firstName"] = *p.FirstName
	}
	if p.LastName != nil {
		set["lastName"] = *p.LastName
	}
	if p.Phone != nil {
		set["phone"] = phoneDocument{DialCode: p.Phone.DialCode, Number: p.Phone.Number}
	}
	if p.IsActive != nil {
		set["isActive"] = *p.IsActive
	}
	if p.PasswordHash != nil {
		set["password"] = *p.PasswordHash
	}
	if p.ResetTokenHash != nil {
		if *p.ResetTokenHash == "" {
			unset["token"] = ""
		} else {
			set["token"] = *p.ResetTokenHash
		}
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func toDocument(u *domain.User) userDocument {
	doc := userDocument{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		Password:   u.PasswordHash,
		Role:       u.Role,
		IsBlocked:  u.IsBlocked,
		LoginType:  string(u.LoginType),
		Token:      u.ResetTokenHash,
		Version:    u.Version,
		IsActive:   u.IsActive,
		CreatedBy:  u.CreatedBy,
		CreatedAt:  u.CreatedAt,
		UpdatedBy:  u.UpdatedBy,
		UpdatedAt:  u.UpdatedAt,
		MetaStatus: u.MetaStatus,
	}
	if u.Phone != nil {
		doc.Phone = &phoneDocument{DialCode: u.Phone.DialCode, Number: u.Phone.Number}
	}
	return doc
}

func (d *userDocument) toDomain() *domain.User {
	u := &domain.User{
		ID:             d.ID,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Email:          d.Email,
		PasswordHash:   d.Password,
		Role:           d.Role,
		IsBlocked:      d.IsBlocked,
		LoginType:      domain.LoginType(d.LoginType),
		ResetTokenHash: d.Token,
		Version:        d.Version,
		IsActive:       d.IsActive,
		CreatedBy:      d.CreatedBy,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedBy:      d.UpdatedBy,
		UpdatedAt:      d.UpdatedAt.UTC(),
		MetaStatus:     d.MetaStatus,
	}
	if d.Phone != nil {
		u.Phone = &domain.Phone{DialCode: d.Phone.DialCode, Number: d.Phone.Number}
	}
	return u
}
