package entity

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/heartmarshall/proposal-backend/internal/adapter/memstore"
	"github.com/heartmarshall/proposal-backend/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingDB wraps a memstore and records every collection call as
// "<collection>.<method>". Fail short-circuits calls whose key it lists.
type recordingDB struct {
	*memstore.Store

	mu    sync.Mutex
	calls []string
	Fail  map[string]error
}

func (d *recordingDB) Collection(name string) store.Collection {
	return &recordingCollection{name: name, db: d, next: d.Store.Collection(name)}
}

func (d *recordingDB) record(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, key)
	return d.Fail[key]
}

// Calls returns the recorded calls and resets the log.
func (d *recordingDB) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	calls := d.calls
	d.calls = nil
	return calls
}

type recordingCollection struct {
	name string
	db   *recordingDB
	next store.Collection
}

func (c *recordingCollection) Find(ctx context.Context, filter bson.D, opts store.FindOptions) ([]bson.M, error) {
	if err := c.db.record(c.name + ".Find"); err != nil {
		return nil, err
	}
	return c.next.Find(ctx, filter, opts)
}

func (c *recordingCollection) FindOne(ctx context.Context, filter bson.D, opts store.FindOptions) (bson.M, error) {
	if err := c.db.record(c.name + ".FindOne"); err != nil {
		return nil, err
	}
	return c.next.FindOne(ctx, filter, opts)
}

func (c *recordingCollection) InsertOne(ctx context.Context, doc bson.M) error {
	if err := c.db.record(c.name + ".InsertOne"); err != nil {
		return err
	}
	return c.next.InsertOne(ctx, doc)
}

func (c *recordingCollection) InsertMany(ctx context.Context, docs []bson.M) error {
	if err := c.db.record(c.name + ".InsertMany"); err != nil {
		return err
	}
	return c.next.InsertMany(ctx, docs)
}

func (c *recordingCollection) UpdateOne(ctx context.Context, filter, update bson.D, upsert bool) (bson.M, error) {
	if err := c.db.record(c.name + ".UpdateOne"); err != nil {
		return nil, err
	}
	return c.next.UpdateOne(ctx, filter, update, upsert)
}

func (c *recordingCollection) UpdateMany(ctx context.Context, filter, update bson.D) (int64, error) {
	if err := c.db.record(c.name + ".UpdateMany"); err != nil {
		return 0, err
	}
	return c.next.UpdateMany(ctx, filter, update)
}

func (c *recordingCollection) DeleteOne(ctx context.Context, filter bson.D) (bson.M, error) {
	if err := c.db.record(c.name + ".DeleteOne"); err != nil {
		return nil, err
	}
	return c.next.DeleteOne(ctx, filter)
}

func (c *recordingCollection) DeleteMany(ctx context.Context, filter bson.D) (int64, error) {
	if err := c.db.record(c.name + ".DeleteMany"); err != nil {
		return 0, err
	}
	return c.next.DeleteMany(ctx, filter)
}

func (c *recordingCollection) Count(ctx context.Context, filter bson.D) (int64, error) {
	if err := c.db.record(c.name + ".Count"); err != nil {
		return 0, err
	}
	return c.next.Count(ctx, filter)
}

func (c *recordingCollection) CountBy(ctx context.Context, filter bson.D, field string) ([]store.Group, error) {
	if err := c.db.record(c.name + ".CountBy"); err != nil {
		return nil, err
	}
	return c.next.CountBy(ctx, filter, field)
}

// fixedClock returns a clock that never advances on its own.
func fixedClock() *Clock {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return NewClock(func() time.Time { return at })
}

// newTestDB returns a DB over a fresh memstore plus the recorder wrapping it.
func newTestDB(t *testing.T) (*DB, *recordingDB) {
	t.Helper()
	rec := &recordingDB{Store: memstore.New()}
	return NewDB(rec, discardLogger(), WithClock(fixedClock())), rec
}
