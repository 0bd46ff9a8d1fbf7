// Package mongo implements store.Sink on MongoDB with one client per insert.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vovakirdan/formrelay/internal/form"
	"github.com/vovakirdan/formrelay/internal/store"
)

// Config addresses the target collection.
type Config struct {
	URI        string
	Database   string
	Collection string
	// Timeout bounds server selection and connect; the caller's ctx bounds the whole insert.
	Timeout time.Duration
}

// Sink connects, inserts one document and disconnects on every Insert.
type Sink struct {
	cfg Config
}

// New returns a sink for cfg. No connection is made until Insert.
func New(cfg Config) *Sink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Sink{cfg: cfg}
}

// Insert stores msg in the configured collection.
func (s *Sink) Insert(ctx context.Context, msg store.Message) (err error) {
	clientOptions := options.Client().
		ApplyURI(s.cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetServerSelectionTimeout(s.cfg.Timeout).
		SetConnectTimeout(s.cfg.Timeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()
		if discErr := client.Disconnect(disconnectCtx); discErr != nil && err == nil {
			err = fmt.Errorf("disconnect mongo: %w", discErr)
		}
	}()

	collection := client.Database(s.cfg.Database).Collection(s.cfg.Collection)
	if _, err := collection.InsertOne(ctx, document(msg)); err != nil {
		return fmt.Errorf("insert into %s.%s: %w", s.cfg.Database, s.cfg.Collection, err)
	}
	return nil
}

// Close is a no-op; Insert releases its client before returning.
func (s *Sink) Close() error {
	return nil
}

// document orders fields by key so stored documents are stable across inserts.
func document(msg store.Message) bson.D {
	keys := form.Submission(msg).Keys()
	doc := make(bson.D, 0, len(keys))
	for _, key := range keys {
		doc = append(doc, bson.E{Key: key, Value: msg[key]})
	}
	return doc
}
