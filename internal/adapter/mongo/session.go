package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readconcern"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"
)

// session runs one snapshot transaction with majority writes. Retrying on
// transient errors is left to the caller.
type session struct {
	sess *mongo.Session
}

func (s *session) StartTransaction() error {
	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority()).
		SetReadPreference(readpref.Primary())
	return mapError(s.sess.StartTransaction(opts), "start transaction", "")
}

func (s *session) Context(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, s.sess)
}

func (s *session) CommitTransaction(ctx context.Context) error {
	return mapError(s.sess.CommitTransaction(ctx), "commit transaction", "")
}

func (s *session) AbortTransaction(ctx context.Context) error {
	return mapError(s.sess.AbortTransaction(ctx), "abort transaction", "")
}

func (s *session) EndSession(ctx context.Context) {
	s.sess.EndSession(ctx)
}
