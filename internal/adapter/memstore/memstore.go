// Package memstore is an in-process implementation of the store port. It
// evaluates native filter, update and sort documents the way MongoDB does for
// the subset of operators the query package emits.
//
// Transactions are serialized and roll back by restoring a snapshot taken at
// start. Writes made outside a transaction while one is open are discarded if
// that transaction aborts.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/heartmarshall/proposal-backend/internal/domain"
	"github.com/heartmarshall/proposal-backend/internal/store"
)

var _ store.Database = (*Store)(nil)

// Store holds every collection in memory. Documents are immutable once
// stored: updates replace them. The zero value is not usable; call New.
type Store struct {
	mu    sync.RWMutex
	colls map[string][]bson.M

	txMu sync.Mutex
}

// New creates an empty Store.
func New() *Store {
	return &Store{colls: make(map[string][]bson.M)}
}

// Collection returns a handle to the named collection. Collections spring
// into existence on first write.
func (s *Store) Collection(name string) store.Collection {
	return &collection{s: s, name: name}
}

// StartSession opens a session. Only one transaction runs at a time.
func (s *Store) StartSession(context.Context) (store.Session, error) {
	return &session{s: s}, nil
}

// Len returns the number of documents in the named collection.
func (s *Store) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.colls[name])
}

func (s *Store) snapshot() map[string][]bson.M {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string][]bson.M, len(s.colls))
	for name, docs := range s.colls {
		snap[name] = append([]bson.M(nil), docs...)
	}
	return snap
}

func (s *Store) restore(snap map[string][]bson.M) {
	s.mu.Lock()
	s.colls = snap
	s.mu.Unlock()
}

type collection struct {
	s    *Store
	name string
}

func (c *collection) Find(ctx context.Context, filter bson.D, opts store.FindOptions) ([]bson.M, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.s.mu.RLock()
	docs := c.s.colls[c.name]
	matched := make([]bson.M, 0)
	for _, doc := range docs {
		ok, err := Match(doc, filter)
		if err != nil {
			c.s.mu.RUnlock()
			return nil, err
		}
		if ok {
			matched = append(matched, doc)
		}
	}
	c.s.mu.RUnlock()

	if len(opts.Sort) > 0 {
		if err := sortDocs(matched, opts.Sort); err != nil {
			return nil, err
		}
	}
	matched = window(matched, opts.Skip, opts.Limit)

	out := make([]bson.M, len(matched))
	for i, doc := range matched {
		out[i] = cloneDoc(doc)
	}
	return out, nil
}

func (c *collection) FindOne(ctx context.Context, filter bson.D, opts store.FindOptions) (bson.M, error) {
	opts.Limit = 1
	docs, err := c.Find(ctx, filter, opts)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

func (c *collection) InsertOne(ctx context.Context, doc bson.M) error {
	return c.InsertMany(ctx, []bson.M{doc})
}

func (c *collection) InsertMany(ctx context.Context, docs []bson.M) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepared := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		nd, err := normalize(doc)
		if err != nil {
			return err
		}
		if _, ok := nd["_id"]; !ok {
			nd["_id"] = bson.NewObjectID()
		}
		prepared = append(prepared, nd)
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	existing := c.s.colls[c.name]
	seen := make(map[any]bool, len(existing)+len(prepared))
	for _, doc := range existing {
		seen[doc["_id"]] = true
	}
	for _, doc := range prepared {
		if seen[doc["_id"]] {
			return fmt.Errorf("memstore: insert into %s: duplicate _id %v: %w", c.name, doc["_id"], domain.ErrAlreadyExists)
		}
		seen[doc["_id"]] = true
	}
	c.s.colls[c.name] = append(existing, prepared...)
	return nil
}

func (c *collection) UpdateOne(ctx context.Context, filter, update bson.D, upsert bool) (bson.M, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	docs := c.s.colls[c.name]
	for i, doc := range docs {
		ok, err := Match(doc, filter)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		next, err := applyUpdate(doc, update, false)
		if err != nil {
			return nil, err
		}
		docs[i] = next
		return cloneDoc(next), nil
	}

	if !upsert {
		return nil, nil
	}
	seed, err := upsertSeed(filter)
	if err != nil {
		return nil, err
	}
	next, err := applyUpdate(seed, update, true)
	if err != nil {
		return nil, err
	}
	if _, ok := next["_id"]; !ok {
		next["_id"] = bson.NewObjectID()
	}
	c.s.colls[c.name] = append(docs, next)
	return cloneDoc(next), nil
}

func (c *collection) UpdateMany(ctx context.Context, filter, update bson.D) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	docs := c.s.colls[c.name]
	next := make([]bson.M, len(docs))
	var n int64
	for i, doc := range docs {
		ok, err := Match(doc, filter)
		if err != nil {
			return 0, err
		}
		if !ok {
			next[i] = doc
			continue
		}
		upd, err := applyUpdate(doc, update, false)
		if err != nil {
			return 0, err
		}
		next[i] = upd
		n++
	}
	c.s.colls[c.name] = next
	return n, nil
}

func (c *collection) DeleteOne(ctx context.Context, filter bson.D) (bson.M, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	docs := c.s.colls[c.name]
	for i, doc := range docs {
		ok, err := Match(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			rest := make([]bson.M, 0, len(docs)-1)
			rest = append(rest, docs[:i]...)
			c.s.colls[c.name] = append(rest, docs[i+1:]...)
			return cloneDoc(doc), nil
		}
	}
	return nil, nil
}

func (c *collection) DeleteMany(ctx context.Context, filter bson.D) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	docs := c.s.colls[c.name]
	rest := make([]bson.M, 0, len(docs))
	var n int64
	for _, doc := range docs {
		ok, err := Match(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
			continue
		}
		rest = append(rest, doc)
	}
	c.s.colls[c.name] = rest
	return n, nil
}

func (c *collection) Count(ctx context.Context, filter bson.D) (int64, error) {
	docs, err := c.Find(ctx, filter, store.FindOptions{})
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (c *collection) CountBy(ctx context.Context, filter bson.D, field string) ([]store.Group, error) {
	docs, err := c.Find(ctx, filter, store.FindOptions{})
	if err != nil {
		return nil, err
	}

	var groups []store.Group
	for _, doc := range docs {
		key := doc[field]
		if isNull(key) {
			key = nil
		}
		found := false
		for i := range groups {
			if equal(groups[i].Key, key) {
				groups[i].Count++
				found = true
				break
			}
		}
		if !found {
			groups = append(groups, store.Group{Key: key, Count: 1})
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return compareOrder(groups[i].Key, groups[j].Key) < 0
	})
	if groups == nil {
		groups = []store.Group{}
	}
	return groups, nil
}

func window(docs []bson.M, skip, limit int64) []bson.M {
	if skip > 0 {
		if skip >= int64(len(docs)) {
			return docs[:0]
		}
		docs = docs[skip:]
	}
	if limit > 0 && limit < int64(len(docs)) {
		docs = docs[:limit]
	}
	return docs
}

func sortDocs(docs []bson.M, spec bson.D) error {
	for _, e := range spec {
		switch e.Value.(type) {
		case int, int32, int64:
		default:
			return fmt.Errorf("memstore: sort direction for %s must be an integer", e.Key)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, e := range spec {
			c := compareOrder(docs[i][e.Key], docs[j][e.Key])
			if c == 0 {
				continue
			}
			if direction(e.Value) < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return nil
}

func direction(v any) int64 {
	switch d := v.(type) {
	case int:
		return int64(d)
	case int32:
		return int64(d)
	case int64:
		return d
	}
	return 1
}

// normalize round-trips doc through BSON so stored values carry the same
// native types the real driver returns (DateTime, int32, ObjectID...).
func normalize(doc bson.M) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("memstore: encode document: %w", err)
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("memstore: decode document: %w", err)
	}
	if out == nil {
		out = bson.M{}
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	doc, err := normalize(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	return doc["v"], nil
}

func cloneDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// applyUpdate returns a new document with update applied to doc.
func applyUpdate(doc bson.M, update bson.D, inserting bool) (bson.M, error) {
	next := cloneDoc(doc)
	for _, stage := range update {
		fields, err := asDoc(stage.Value)
		if err != nil {
			return nil, fmt.Errorf("memstore: update %s: %w", stage.Key, err)
		}
		switch stage.Key {
		case "$set":
			for _, f := range fields {
				v, err := normalizeValue(f.Value)
				if err != nil {
					return nil, err
				}
				next[f.Key] = v
			}
		case "$setOnInsert":
			if !inserting {
				continue
			}
			for _, f := range fields {
				v, err := normalizeValue(f.Value)
				if err != nil {
					return nil, err
				}
				next[f.Key] = v
			}
		case "$unset":
			for _, f := range fields {
				delete(next, f.Key)
			}
		default:
			return nil, fmt.Errorf("memstore: unsupported update operator %s", stage.Key)
		}
	}
	if _, ok := doc["_id"]; ok && !equal(doc["_id"], next["_id"]) {
		return nil, fmt.Errorf("memstore: update would change _id")
	}
	return next, nil
}

// upsertSeed builds the document an upsert starts from: the equality
// constraints of the filter.
func upsertSeed(filter bson.D) (bson.M, error) {
	seed := bson.M{}
	for _, e := range filter {
		if len(e.Key) > 0 && e.Key[0] == '$' {
			continue
		}
		if ops, err := asDoc(e.Value); err == nil && isOperatorDoc(ops) {
			if len(ops) == 1 && ops[0].Key == "$eq" {
				v, err := normalizeValue(ops[0].Value)
				if err != nil {
					return nil, err
				}
				seed[e.Key] = v
			}
			continue
		}
		v, err := normalizeValue(e.Value)
		if err != nil {
			return nil, err
		}
		seed[e.Key] = v
	}
	return seed, nil
}
