package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/heartmarshall/proposal-backend/internal/store"
)

type collection struct {
	coll *mongo.Collection
}

func (c *collection) Find(ctx context.Context, filter bson.D, o store.FindOptions) ([]bson.M, error) {
	opts := options.Find()
	if len(o.Sort) > 0 {
		opts.SetSort(o.Sort)
	}
	if o.Skip > 0 {
		opts.SetSkip(o.Skip)
	}
	if o.Limit > 0 {
		opts.SetLimit(o.Limit)
	}

	cur, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapError(err, "find", c.coll.Name())
	}
	docs := make([]bson.M, 0)
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapError(err, "find", c.coll.Name())
	}
	return docs, nil
}

func (c *collection) FindOne(ctx context.Context, filter bson.D, o store.FindOptions) (bson.M, error) {
	opts := options.FindOne()
	if len(o.Sort) > 0 {
		opts.SetSort(o.Sort)
	}
	if o.Skip > 0 {
		opts.SetSkip(o.Skip)
	}

	var doc bson.M
	err := c.coll.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "find one", c.coll.Name())
	}
	return doc, nil
}

func (c *collection) InsertOne(ctx context.Context, doc bson.M) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return mapError(err, "insert", c.coll.Name())
}

func (c *collection) InsertMany(ctx context.Context, docs []bson.M) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := c.coll.InsertMany(ctx, docs)
	return mapError(err, "insert many", c.coll.Name())
}

func (c *collection) UpdateOne(ctx context.Context, filter, update bson.D, upsert bool) (bson.M, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetUpsert(upsert)

	var doc bson.M
	err := c.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "update", c.coll.Name())
	}
	return doc, nil
}

func (c *collection) UpdateMany(ctx context.Context, filter, update bson.D) (int64, error) {
	res, err := c.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, mapError(err, "update many", c.coll.Name())
	}
	return res.MatchedCount, nil
}

func (c *collection) DeleteOne(ctx context.Context, filter bson.D) (bson.M, error) {
	var doc bson.M
	err := c.coll.FindOneAndDelete(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "delete", c.coll.Name())
	}
	return doc, nil
}

func (c *collection) DeleteMany(ctx context.Context, filter bson.D) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, mapError(err, "delete many", c.coll.Name())
	}
	return res.DeletedCount, nil
}

func (c *collection) Count(ctx context.Context, filter bson.D) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, mapError(err, "count", c.coll.Name())
	}
	return n, nil
}

type groupRow struct {
	Key   any   `bson:"_id"`
	Count int64 `bson:"count"`
}

func (c *collection) CountBy(ctx context.Context, filter bson.D, field string) ([]store.Group, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mapError(err, "count by", c.coll.Name())
	}
	var rows []groupRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, mapError(err, "count by", c.coll.Name())
	}

	groups := make([]store.Group, len(rows))
	for i, r := range rows {
		groups[i] = store.Group{Key: r.Key, Count: r.Count}
	}
	return groups, nil
}
