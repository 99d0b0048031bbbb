// Package mongo provides a MongoDB-backed user directory.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lillylive/lilly/pkg/storage"
)

const (
	// DefaultDatabase is the database the web app has always used.
	DefaultDatabase = "lilly_db"

	usersCollection = "users"
)

// userDocument is the stored shape of a user.
type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Nickname     string             `bson:"nickname"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

func (d *userDocument) toUser() *storage.User {
	return &storage.User{
		ID:           d.ID.Hex(),
		Nickname:     d.Nickname,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

// Driver implements storage.Driver using MongoDB.
type Driver struct {
	client *mongo.Client
	users  *mongo.Collection
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver connects to uri, verifies the connection and ensures the unique
// email index. An empty database name uses DefaultDatabase.
func NewDriver(ctx context.Context, uri, database string) (*Driver, error) {
	if database == "" {
		database = DefaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	users := client.Database(database).Collection(usersCollection)
	_, err = users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create email index: %w", err)
	}

	return &Driver{client: client, users: users}, nil
}

// CreateUser inserts a user document.
func (d *Driver) CreateUser(ctx context.Context, u *storage.User) (*storage.User, error) {
	prepared, err := storage.Prepare(u, time.Now())
	if err != nil {
		return nil, err
	}

	doc := userDocument{
		ID:           primitive.NewObjectID(),
		Nickname:     prepared.Nickname,
		Email:        prepared.Email,
		PasswordHash: prepared.PasswordHash,
		CreatedAt:    prepared.CreatedAt.Truncate(time.Millisecond),
	}

	if _, err := d.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, storage.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return doc.toUser(), nil
}

// GetUserByEmail retrieves a user by normalized email.
func (d *Driver) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	key := storage.NormalizeEmail(email)

	var doc userDocument
	err := d.users.FindOne(ctx, bson.M{"email": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.NotFoundError{Email: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return doc.toUser(), nil
}

// Drop removes the users collection. Tests use it for isolation.
func (d *Driver) Drop(ctx context.Context) error {
	if _, err := d.users.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (d *Driver) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}
