// Package mongo implements the repository interfaces on MongoDB.
//
// DOCUMENT SHAPE:
// A post is stored as ONE document with its comments embedded as an array,
// the natural fit for data that is always read together and owned by the post:
//
//	{ _id, title, content, image, video, likes, comments: [{user, text, created_at}], created_at }
//
// IDs are xid strings rather than ObjectIDs so both stores share one ID format
// and an unknown or malformed id is simply "not found".
//
// ATOMIC UPDATES:
// Counters and comments are changed with update operators ($inc, $push) that
// MongoDB applies atomically to the single document. There is no
// read-modify-write in Go, so concurrent likes never lose an increment.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection = "users"
	postsCollection = "blogs"

	connectTimeout = 10 * time.Second
)

// DB owns the long-lived client. The client is a connection pool and is safe
// for concurrent use, so one DB is shared by every request.
type DB struct {
	client *mongodriver.Client
	db     *mongodriver.Database
}

// New connects, verifies the server answers, and ensures the indexes exist.
func New(ctx context.Context, uri, database string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}

	// Connect does not dial; Ping forces a round trip so a wrong URI fails here.
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	db := &DB{client: client, db: client.Database(database)}
	if err := db.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: creating indexes: %w", err)
	}

	return db, nil
}

// Ping checks that the primary is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client, waiting up to connectTimeout for in-use
// connections to be returned.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return db.client.Disconnect(ctx)
}

// Drop removes the whole database. Only tests call this.
func (db *DB) Drop(ctx context.Context) error {
	return db.db.Drop(ctx)
}

// ensureIndexes is idempotent: CreateMany is a no-op for an index that
// already exists with the same definition.
func (db *DB) ensureIndexes(ctx context.Context) error {
	// Unique username closes the window between the service's existence
	// check and the insert.
	_, err := db.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users.username: %w", err)
	}

	_, err = db.db.Collection(postsCollection).Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("blogs.created_at: %w", err)
	}

	return nil
}
