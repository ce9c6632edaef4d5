package mongo

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// EnsureIndexes creates single-field ascending indexes. The map is keyed by
// collection name. Existing indexes are left alone.
func (c *Client) EnsureIndexes(ctx context.Context, fields map[string][]string) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if len(fields[name]) == 0 {
			continue
		}
		models := make([]mongo.IndexModel, 0, len(fields[name]))
		for _, f := range fields[name] {
			models = append(models, mongo.IndexModel{Keys: bson.D{{Key: f, Value: 1}}})
		}
		if _, err := c.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", name, mapError(err, "create indexes", name))
		}
	}
	c.log.Info("indexes ensured", "collections", len(names))
	return nil
}
