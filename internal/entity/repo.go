package entity

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/heartmarshall/proposal-backend/internal/domain"
	"github.com/heartmarshall/proposal-backend/internal/query"
	"github.com/heartmarshall/proposal-backend/internal/store"
)

// Repo is the operation surface of one entity kind.
type Repo struct {
	schema Schema
	coll   store.Collection
	refs   query.Refs
	blobs  query.Blobs
	db     *DB
	clock  *Clock
	log    *slog.Logger
}

func newRepo(db *DB, s Schema, coll store.Collection) *Repo {
	return &Repo{
		schema: s,
		coll:   coll,
		refs:   query.NewRefs(s.Refs...),
		blobs:  query.NewBlobs(s.Blobs...),
		db:     db,
		clock:  db.clock,
		log:    db.log.With("kind", s.Kind.String()),
	}
}

// Kind returns the entity kind served by r.
func (r *Repo) Kind() domain.Kind { return r.schema.Kind }

// FindUnique returns the record with the given identifier, or nil when no
// such record exists.
func (r *Repo) FindUnique(ctx context.Context, id string, include ...Include) (domain.Record, error) {
	filter, err := r.idFilter(id)
	if err != nil {
		return nil, err
	}
	if err := r.checkIncludes(include); err != nil {
		return nil, err
	}

	doc, err := r.coll.FindOne(ctx, filter, store.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("%s find unique: %w", r.schema.Kind, err)
	}
	if doc == nil {
		return nil, nil
	}

	recs := []domain.Record{query.Materialize(doc)}
	if err := r.resolve(ctx, recs, include); err != nil {
		return nil, err
	}
	return recs[0], nil
}

// FindFirst returns the first record matching args, or nil.
func (r *Repo) FindFirst(ctx context.Context, args FindArgs) (domain.Record, error) {
	args.Take = 1
	recs, err := r.FindMany(ctx, args)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// FindMany returns every record matching args. The result is never nil.
func (r *Repo) FindMany(ctx context.Context, args FindArgs) ([]domain.Record, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}
	filter, err := r.filter(args.Where, args.Or)
	if err != nil {
		return nil, err
	}
	sortDoc, err := query.Sort(args.OrderBy)
	if err != nil {
		return nil, err
	}
	if err := r.checkIncludes(args.Include); err != nil {
		return nil, err
	}

	docs, err := r.coll.Find(ctx, filter, store.FindOptions{
		Sort:  sortDoc,
		Skip:  int64(args.Skip),
		Limit: int64(args.Take),
	})
	if err != nil {
		return nil, fmt.Errorf("%s find many: %w", r.schema.Kind, err)
	}

	recs := make([]domain.Record, len(docs))
	for i, d := range docs {
		recs[i] = query.Materialize(d)
	}
	if err := r.resolve(ctx, recs, args.Include); err != nil {
		return nil, err
	}
	return recs, nil
}

// Count returns the number of records matching where.
func (r *Repo) Count(ctx context.Context, where query.Where) (int64, error) {
	filter, err := query.Translate(where, r.refs)
	if err != nil {
		return 0, err
	}
	n, err := r.coll.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%s count: %w", r.schema.Kind, err)
	}
	return n, nil
}

// Create inserts one record. A caller-supplied identifier is kept,
// otherwise a new one is assigned. createdAt and updatedAt are set to the
// same timestamp.
func (r *Repo) Create(ctx context.Context, data domain.Data) (domain.Record, error) {
	doc, err := r.newDoc(data, r.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("%s create: %w", r.schema.Kind, err)
	}
	return query.Materialize(doc), nil
}

// CreateMany inserts every record in one native call. All records share
// one timestamp.
func (r *Repo) CreateMany(ctx context.Context, data []domain.Data) ([]domain.Record, error) {
	now := r.clock.Now()
	docs := make([]bson.M, len(data))
	for i, d := range data {
		doc, err := r.newDoc(d, now)
		if err != nil {
			return nil, err
		}
		docs[i] = doc
	}
	if len(docs) == 0 {
		return []domain.Record{}, nil
	}
	if err := r.coll.InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("%s create many: %w", r.schema.Kind, err)
	}

	recs := make([]domain.Record, len(docs))
	for i, d := range docs {
		recs[i] = query.Materialize(d)
	}
	return recs, nil
}

// Update applies data to the record with the given identifier and returns
// the updated record.
func (r *Repo) Update(ctx context.Context, id string, data domain.Data) (domain.Record, error) {
	filter, err := r.idFilter(id)
	if err != nil {
		return nil, err
	}
	set, err := r.setDoc(data)
	if err != nil {
		return nil, err
	}
	set[domain.FieldUpdatedAt] = r.clock.Now()

	doc, err := r.coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: set}}, false)
	if err != nil {
		return nil, fmt.Errorf("%s %s update: %w", r.schema.Kind, id, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%s %s: %w", r.schema.Kind, id, domain.ErrNotFound)
	}
	return query.Materialize(doc), nil
}

// UpdateMany applies data to every record matching where and returns the
// number of matched records.
func (r *Repo) UpdateMany(ctx context.Context, where query.Where, data domain.Data) (int64, error) {
	filter, err := query.Translate(where, r.refs)
	if err != nil {
		return 0, err
	}
	set, err := r.setDoc(data)
	if err != nil {
		return 0, err
	}
	set[domain.FieldUpdatedAt] = r.clock.Now()

	n, err := r.coll.UpdateMany(ctx, filter, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return 0, fmt.Errorf("%s update many: %w", r.schema.Kind, err)
	}
	return n, nil
}

// Upsert updates the first record matching where with update, or inserts
// a new record built from create and the equality constraints of where.
func (r *Repo) Upsert(ctx context.Context, where query.Where, create, update domain.Data) (domain.Record, error) {
	filter, err := query.Translate(where, r.refs)
	if err != nil {
		return nil, err
	}
	set, err := r.setDoc(update)
	if err != nil {
		return nil, err
	}
	onInsert, err := query.EncodeData(create, r.refs, r.blobs)
	if err != nil {
		return nil, err
	}

	now := r.clock.Now()
	set[domain.FieldUpdatedAt] = now
	onInsert[domain.FieldCreatedAt] = now
	for k := range set {
		delete(onInsert, k)
	}
	if filterHasID(filter) {
		delete(onInsert, query.NativeIDField)
	}

	upd := bson.D{{Key: "$set", Value: set}}
	if len(onInsert) > 0 {
		upd = append(upd, bson.E{Key: "$setOnInsert", Value: onInsert})
	}
	doc, err := r.coll.UpdateOne(ctx, filter, upd, true)
	if err != nil {
		return nil, fmt.Errorf("%s upsert: %w", r.schema.Kind, err)
	}
	return query.Materialize(doc), nil
}

// Delete removes the record with the given identifier and returns it.
func (r *Repo) Delete(ctx context.Context, id string) (domain.Record, error) {
	filter, err := r.idFilter(id)
	if err != nil {
		return nil, err
	}
	doc, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s %s delete: %w", r.schema.Kind, id, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%s %s: %w", r.schema.Kind, id, domain.ErrNotFound)
	}
	return query.Materialize(doc), nil
}

// DeleteMany removes every record matching where and returns how many
// were removed.
func (r *Repo) DeleteMany(ctx context.Context, where query.Where) (int64, error) {
	filter, err := query.Translate(where, r.refs)
	if err != nil {
		return 0, err
	}
	n, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%s delete many: %w", r.schema.Kind, err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Transaction ops
// ---------------------------------------------------------------------------

// CreateOp returns Create as a transaction op.
func (r *Repo) CreateOp(data domain.Data) store.Op {
	return func(ctx context.Context) (any, error) { return r.Create(ctx, data) }
}

// UpdateOp returns Update as a transaction op.
func (r *Repo) UpdateOp(id string, data domain.Data) store.Op {
	return func(ctx context.Context) (any, error) { return r.Update(ctx, id, data) }
}

// UpsertOp returns Upsert as a transaction op.
func (r *Repo) UpsertOp(where query.Where, create, update domain.Data) store.Op {
	return func(ctx context.Context) (any, error) { return r.Upsert(ctx, where, create, update) }
}

// DeleteOp returns Delete as a transaction op.
func (r *Repo) DeleteOp(id string) store.Op {
	return func(ctx context.Context) (any, error) { return r.Delete(ctx, id) }
}

// UpdateManyOp returns UpdateMany as a transaction op.
func (r *Repo) UpdateManyOp(where query.Where, data domain.Data) store.Op {
	return func(ctx context.Context) (any, error) { return r.UpdateMany(ctx, where, data) }
}

// DeleteManyOp returns DeleteMany as a transaction op.
func (r *Repo) DeleteManyOp(where query.Where) store.Op {
	return func(ctx context.Context) (any, error) { return r.DeleteMany(ctx, where) }
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (r *Repo) idFilter(id string) (bson.D, error) {
	if _, err := query.EncodeID(id); err != nil {
		return nil, &domain.IdentifierError{Field: domain.FieldID, Value: id}
	}
	return query.Translate(query.Where{domain.FieldID: query.Eq{Value: id}}, r.refs)
}

func (r *Repo) filter(where query.Where, or []query.Where) (bson.D, error) {
	filter, err := query.Translate(where, r.refs)
	if err != nil {
		return nil, err
	}
	alts, err := query.TranslateAny(or, r.refs)
	if err != nil {
		return nil, err
	}
	return append(filter, alts...), nil
}

func (r *Repo) newDoc(data domain.Data, now any) (bson.M, error) {
	doc, err := query.EncodeData(data, r.refs, r.blobs)
	if err != nil {
		return nil, err
	}
	if id, ok := doc[query.NativeIDField]; !ok || id == nil {
		doc[query.NativeIDField] = bson.NewObjectID()
	}
	doc[domain.FieldCreatedAt] = now
	doc[domain.FieldUpdatedAt] = now
	return query.Normalize(doc)
}

// setDoc encodes an update payload. The identifier is immutable.
func (r *Repo) setDoc(data domain.Data) (bson.M, error) {
	if _, ok := data[domain.FieldID]; ok {
		return nil, domain.NewValidationError(domain.FieldID, "identifier cannot be updated")
	}
	return query.EncodeData(data, r.refs, r.blobs)
}

func filterHasID(filter bson.D) bool {
	for _, e := range filter {
		if e.Key == query.NativeIDField {
			return true
		}
	}
	return false
}
