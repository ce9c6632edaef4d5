// Package store declares the native document-store port used by the entity
// layer and the transaction coordinator that groups calls on it.
//
// Filters, updates and sorts crossing this port are already native documents
// (see package query). Documents returned by it are native too and must be
// materialized before they leave the layer.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Database is one logical store: a set of named collections plus sessions
// for multi-document transactions.
type Database interface {
	Collection(name string) Collection
	StartSession(ctx context.Context) (Session, error)
}

// Collection is the set of native calls the entity layer issues against one
// collection. Every call honors the session carried by ctx, if any.
type Collection interface {
	// Find returns every document matching filter. Never nil on success.
	Find(ctx context.Context, filter bson.D, opts FindOptions) ([]bson.M, error)
	// FindOne returns the first matching document, or nil when none match.
	FindOne(ctx context.Context, filter bson.D, opts FindOptions) (bson.M, error)

	InsertOne(ctx context.Context, doc bson.M) error
	InsertMany(ctx context.Context, docs []bson.M) error

	// UpdateOne applies update to the first match and returns the document
	// after the update. With upsert an absent match inserts a new document.
	// Returns nil when nothing matched and upsert is false.
	UpdateOne(ctx context.Context, filter, update bson.D, upsert bool) (bson.M, error)
	// UpdateMany returns the number of matched documents.
	UpdateMany(ctx context.Context, filter, update bson.D) (int64, error)

	// DeleteOne removes the first match and returns it, or nil when none match.
	DeleteOne(ctx context.Context, filter bson.D) (bson.M, error)
	DeleteMany(ctx context.Context, filter bson.D) (int64, error)

	Count(ctx context.Context, filter bson.D) (int64, error)
	// CountBy groups matching documents by field and counts each group.
	// A missing or null field forms its own group with a nil Key.
	// Groups are ordered by key.
	CountBy(ctx context.Context, filter bson.D, field string) ([]Group, error)
}

// FindOptions shapes a read. Zero values mean natural order, no skip and
// no limit.
type FindOptions struct {
	Sort  bson.D
	Skip  int64
	Limit int64
}

// Group is one row of a grouped count. Key is a native value.
type Group struct {
	Key   any
	Count int64
}

// Session holds one native transaction.
type Session interface {
	StartTransaction() error
	// Context binds the session to ctx so that collection calls made with
	// the returned context run inside the transaction.
	Context(ctx context.Context) context.Context
	CommitTransaction(ctx context.Context) error
	AbortTransaction(ctx context.Context) error
	EndSession(ctx context.Context)
}
