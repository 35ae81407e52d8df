// Package mongo is the production persistence gateway.
package mongo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/y4my4my4m/nexus-server-sub000/tools/errs"
)

const (
	collUsers          = "users"
	collChannelMsgs    = "channel_messages"
	collDirectMsgs     = "direct_messages"
	collNotifications  = "notifications"
	collChannelMembers = "channel_members"
)

type Config struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	Timeout     time.Duration
}

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects and pings; a dead endpoint fails startup, not the
// first request.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, errs.ErrValidation.WithDetail("mongo uri required")
	}
	if cfg.Database == "" {
		cfg.Database = "nexus"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "mongo ping")
	}
	return &Store{client: client, db: client.Database(cfg.Database)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func hashPassword(username, password string) string {
	sum := sha256.Sum256([]byte(username + ":" + password))
	return hex.EncodeToString(sum[:])
}

// EnsureIndexes creates the history and membership indexes. Idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	models := map[string]mongo.IndexModel{
		collUsers: {
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		collChannelMsgs: {
			Keys: bson.D{{Key: "channel_id", Value: 1}, {Key: "ts", Value: 1}},
		},
		collDirectMsgs: {
			Keys: bson.D{{Key: "pair", Value: 1}, {Key: "ts", Value: 1}},
		},
		collNotifications: {
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "ts", Value: 1}},
		},
		collChannelMembers: {
			Keys:    bson.D{{Key: "channel_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	for coll, m := range models {
		if _, err := s.db.Collection(coll).Indexes().CreateOne(ctx, m); err != nil {
			return errors.Wrapf(err, "ensure index on %s", coll)
		}
	}
	return nil
}
