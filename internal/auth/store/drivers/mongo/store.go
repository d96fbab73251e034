// Package mongo stores accounts in a MongoDB collection.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/studybuddy/internal/auth/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

type Config struct {
	URI        string
	Database   string
	Collection string

	// ServerSelectionTimeout bounds how long an operation waits for a
	// reachable server. Keep it short so callers can fall back quickly.
	ServerSelectionTimeout time.Duration
}

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewStore creates the client. It does not require the server to be up:
// the driver connects lazily, and Ping reports reachability per call.
func NewStore(cfg Config) (*Store, error) {
	if cfg.ServerSelectionTimeout <= 0 {
		cfg.ServerSelectionTimeout = 2 * time.Second
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// EnsureIndexes creates the unique email index. Safe to call repeatedly.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	return err
}

var _ store.Preparer = (*Store)(nil)

// Prepare implements store.Preparer.
func (s *Store) Prepare(ctx context.Context) error { return s.EnsureIndexes(ctx) }

func (s *Store) Accounts() store.Accounts { return &accountsRepo{coll: s.coll} }
func (s *Store) Name() string             { return "mongo" }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
