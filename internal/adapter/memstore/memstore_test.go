package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/heartmarshall/proposal-backend/internal/domain"
	"github.com/heartmarshall/proposal-backend/internal/store"
)

func seed(t *testing.T, c store.Collection, docs ...bson.M) {
	t.Helper()
	require.NoError(t, c.InsertMany(context.Background(), docs))
}

func TestInsert_NormalizesNativeTypes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	c := s.Collection("Proposal")

	at := time.Date(2026, 2, 3, 4, 5, 6, 789_000_000, time.UTC)
	require.NoError(t, c.InsertOne(ctx, bson.M{"title": "x", "value": 5, "createdAt": at}))

	got, err := c.FindOne(ctx, bson.D{}, store.FindOptions{})
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.IsType(t, bson.ObjectID{}, got["_id"], "insert assigns an ObjectID")
	assert.Equal(t, int32(5), got["value"])
	assert.Equal(t, bson.NewDateTimeFromTime(at), got["createdAt"])
}

func TestInsert_DuplicateID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New().Collection("User")
	id := bson.NewObjectID()

	require.NoError(t, c.InsertOne(ctx, bson.M{"_id": id}))
	err := c.InsertMany(ctx, []bson.M{{"_id": bson.NewObjectID()}, {"_id": id}})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	n, err := c.Count(ctx, bson.D{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "a failed batch inserts nothing")
}

func TestFind_SortSkipLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New().Collection("Proposal")
	seed(t, c,
		bson.M{"n": 3, "g": "b"},
		bson.M{"n": 1, "g": "a"},
		bson.M{"n": 2, "g": "b"},
		bson.M{"g": "a"},
	)

	docs, err := c.Find(ctx, bson.D{}, store.FindOptions{Sort: bson.D{{Key: "n", Value: 1}}})
	require.NoError(t, err)
	require.Len(t, docs, 4)
	_, present := docs[0]["n"]
	assert.False(t, present, "missing values sort first ascending")
	assert.Equal(t, int32(1), docs[1]["n"])
	assert.Equal(t, int32(3), docs[3]["n"])

	docs, err = c.Find(ctx, bson.D{}, store.FindOptions{
		Sort: bson.D{{Key: "g", Value: -1}, {Key: "n", Value: 1}},
		Skip: 1, Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, int32(3), docs[0]["n"])
	assert.Equal(t, "a", docs[1]["g"])

	docs, err = c.Find(ctx, bson.D{}, store.FindOptions{Skip: 10})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestFind_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New().Collection("Snippet")
	seed(t, c, bson.M{"title": "orig"})

	doc, err := c.FindOne(ctx, bson.D{}, store.FindOptions{})
	require.NoError(t, err)
	doc["title"] = "mutated"

	again, err := c.FindOne(ctx, bson.D{}, store.FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, "orig", again["title"])
}

func TestUpdateOne(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New().Collection("Comment")
	id := bson.NewObjectID()
	seed(t, c, bson.M{"_id": id, "content": "Hi", "n": 1})

	got, err := c.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$eq", Value: id}}}},
		bson.D{{Key: "$set", Value: bson.M{"content": "Hello"}}, {Key: "$unset", Value: bson.M{"n": ""}}},
		false,
	)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got["content"])
	assert.NotContains(t, got, "n")

	none, err := c.UpdateOne(ctx, bson.D{{Key: "_id", Value: bson.NewObjectID()}}, bson.D{{Key: "$set", Value: bson.M{"a": 1}}}, false)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = c.UpdateOne(ctx, bson.D{}, bson.D{{Key: "$inc", Value: bson.M{"n": 1}}}, false)
	assert.Error(t, err)

	_, err = c.UpdateOne(ctx, bson.D{}, bson.D{{Key: "$set", Value: bson.M{"_id": bson.NewObjectID()}}}, false)
	assert.Error(t, err, "_id is immutable")
}

func TestUpdateOne_Upsert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New().Collection("Client")

	filter := bson.D{{Key: "name", Value: bson.D{{Key: "$eq", Value: "Acme"}}}, {Key: "tier", Value: "gold"}}
	update := bson.D{
		{Key: "$set", Value: bson.M{"email": "a@acme.io"}},
		{Key: "$setOnInsert", Value: bson.M{"createdAt": time.Now()}},
	}

	created, err := c.UpdateOne(ctx, filter, update, true)
	require.NoError(t, err)
	assert.Equal(t, "Acme", created["name"], "equality constraints seed the new document")
	assert.Equal(t, "gold", created["tier"])
	assert.Equal(t, "a@acme.io", created["email"])
	assert.Contains(t, created, "createdAt")
	assert.IsType(t, bson.ObjectID{}, created["_id"])

	update = bson.D{
		{Key: "$set", Value: bson.M{"email": "b@acme.io"}},
		{Key: "$setOnInsert", Value: bson.M{"createdAt": "ignored"}},
	}
	updated, err := c.UpdateOne(ctx, filter, update, true)
	require.NoError(t, err)
	assert.Equal(t, created["_id"], updated["_id"])
	assert.Equal(t, "b@acme.io", updated["email"])
	assert.Equal(t, created["createdAt"], updated["createdAt"], "setOnInsert only applies on insert")

	n, err := c.Count(ctx, bson.D{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpdateMany_DeleteMany(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New().Collection("Notification")
	seed(t, c, bson.M{"read": false}, bson.M{"read": false}, bson.M{"read": true})

	n, err := c.UpdateMany(ctx, bson.D{{Key: "read", Value: false}}, bson.D{{Key: "$set", Value: bson.M{"read": true}}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = c.Count(ctx, bson.D{{Key: "read", Value: true}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = c.DeleteMany(ctx, bson.D{{Key: "read", Value: true}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestDeleteOne(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New().Collection("Team")
	id := bson.NewObjectID()
	seed(t, c, bson.M{"_id": id, "name": "core"}, bson.M{"name": "ops"})

	got, err := c.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	require.NoError(t, err)
	assert.Equal(t, "core", got["name"])

	got, err = c.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	require.NoError(t, err)
	assert.Nil(t, got)

	n, _ := c.Count(ctx, bson.D{})
	assert.Equal(t, int64(1), n)
}

func TestCountBy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New().Collection("Proposal")
	seed(t, c,
		bson.M{"status": "SENT", "org": "org-1"},
		bson.M{"status": "DRAFT", "org": "org-1"},
		bson.M{"status": "DRAFT", "org": "org-1"},
		bson.M{"org": "org-1"},
		bson.M{"status": nil, "org": "org-1"},
		bson.M{"status": "DRAFT", "org": "org-2"},
	)

	groups, err := c.CountBy(ctx, bson.D{{Key: "org", Value: "org-1"}}, "status")
	require.NoError(t, err)
	assert.Equal(t, []store.Group{
		{Key: nil, Count: 2},
		{Key: "DRAFT", Count: 2},
		{Key: "SENT", Count: 1},
	}, groups)

	groups, err = c.CountBy(ctx, bson.D{{Key: "org", Value: "none"}}, "status")
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New().Collection("User")
	_, err := c.Find(ctx, bson.D{}, store.FindOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, c.InsertOne(ctx, bson.M{}), context.Canceled)
}

func TestSession_AbortRestoresSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	users := s.Collection("User")
	seed(t, users, bson.M{"name": "kept"})

	sess, err := s.StartSession(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.StartTransaction())

	txCtx := sess.Context(ctx)
	require.NoError(t, users.InsertOne(txCtx, bson.M{"name": "discarded"}))
	_, err = users.DeleteMany(txCtx, bson.D{{Key: "name", Value: "kept"}})
	require.NoError(t, err)
	require.NoError(t, sess.AbortTransaction(ctx))
	sess.EndSession(ctx)

	docs, err := users.Find(ctx, bson.D{}, store.FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "kept", docs[0]["name"])
}

func TestSession_Commit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	sess, err := s.StartSession(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.StartTransaction())
	require.NoError(t, s.Collection("Team").InsertOne(sess.Context(ctx), bson.M{"name": "a"}))
	require.NoError(t, sess.CommitTransaction(ctx))
	sess.EndSession(ctx)

	assert.Equal(t, 1, s.Len("Team"))
}

func TestSession_EndAbortsActive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	sess, err := s.StartSession(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.StartTransaction())
	require.NoError(t, s.Collection("Team").InsertOne(ctx, bson.M{"name": "a"}))
	sess.EndSession(ctx)

	assert.Equal(t, 0, s.Len("Team"))

	// The transaction lock was released: a new transaction can start.
	next, err := s.StartSession(ctx)
	require.NoError(t, err)
	require.NoError(t, next.StartTransaction())
	next.EndSession(ctx)
}

func TestSession_StateErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sess, err := New().StartSession(ctx)
	require.NoError(t, err)

	assert.True(t, errors.Is(sess.CommitTransaction(ctx), errNoTransaction))
	assert.True(t, errors.Is(sess.AbortTransaction(ctx), errNoTransaction))

	require.NoError(t, sess.StartTransaction())
	assert.Error(t, sess.StartTransaction())
	require.NoError(t, sess.CommitTransaction(ctx))
	sess.EndSession(ctx)
}
