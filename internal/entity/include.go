package entity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/proposal-backend/internal/domain"
	"github.com/heartmarshall/proposal-backend/internal/query"
	"github.com/heartmarshall/proposal-backend/internal/store"
)

// checkIncludes rejects includes that cannot be resolved, before any store
// call is issued.
func (r *Repo) checkIncludes(includes []Include) error {
	seen := make(map[string]bool, len(includes))
	for _, inc := range includes {
		rel, ok := r.schema.relation(inc.Relation)
		if !ok {
			return domain.NewValidationError("include", fmt.Sprintf("%s has no relation %q", r.schema.Kind, inc.Relation))
		}
		if seen[rel.Name] {
			return domain.NewValidationError("include", "duplicate relation "+rel.Name)
		}
		seen[rel.Name] = true

		if inc.Take < 0 {
			return domain.NewValidationError("include."+rel.Name+".take", "must be >= 0")
		}
		if rel.Kind == Count && (len(inc.Include) > 0 || len(inc.OrderBy) > 0 || inc.Take > 0) {
			return domain.NewValidationError("include."+rel.Name, "count relations accept only a filter")
		}

		target := r.db.Repo(rel.Target)
		if _, err := query.Translate(inc.Where, target.refs); err != nil {
			return err
		}
		if _, err := query.Sort(inc.OrderBy); err != nil {
			return err
		}
		if err := target.checkIncludes(inc.Include); err != nil {
			return err
		}
	}
	return nil
}

// resolve expands includes on recs. Each include is one batched query on
// the target collection; sibling includes run concurrently and are attached
// only after all of them succeeded.
//
// Parents sharing a key share the related records attached to them.
// Inside a transaction lookups run one at a time: a session serves one
// operation at a time.
func (r *Repo) resolve(ctx context.Context, recs []domain.Record, includes []Include) error {
	if len(includes) == 0 || len(recs) == 0 {
		return nil
	}

	attach := make([]func(), len(includes))
	g, gctx := errgroup.WithContext(ctx)
	if store.InTx(ctx) {
		g.SetLimit(1)
	}
	for i, inc := range includes {
		rel, _ := r.schema.relation(inc.Relation)
		target := r.db.Repo(rel.Target)
		g.Go(func() error {
			fn, err := target.load(gctx, rel, inc, recs)
			if err != nil {
				return fmt.Errorf("%s include %s: %w", r.schema.Kind, rel.Name, err)
			}
			attach[i] = fn
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, fn := range attach {
		fn()
	}
	return nil
}

// load runs the secondary query of one relation against r, the target
// repo, and returns a func attaching the results to parents.
func (r *Repo) load(ctx context.Context, rel Relation, inc Include, parents []domain.Record) (func(), error) {
	keys := r.keys(rel, parents)
	r.log.DebugContext(ctx, "load relation", "relation", rel.Name, "keys", len(keys))

	if rel.Kind == Count {
		counts := make(map[string]int64, len(keys))
		if len(keys) > 0 {
			filter, err := query.Translate(inc.Where.Merge(query.Where{rel.ForeignField: query.In{Values: keys}}), r.refs)
			if err != nil {
				return nil, err
			}
			field := rel.ForeignField
			if field == domain.FieldID {
				field = query.NativeIDField
			}
			groups, err := r.coll.CountBy(ctx, filter, field)
			if err != nil {
				return nil, err
			}
			for _, g := range groups {
				if k, ok := groupKey(query.MaterializeValue(g.Key)); ok {
					counts[k] += g.Count
				}
			}
		}
		return func() {
			for _, p := range parents {
				var n int64
				if k, ok := groupKey(p[rel.LocalField]); ok {
					n = counts[k]
				}
				p[rel.Name] = n
			}
		}, nil
	}

	byKey := make(map[string][]domain.Record, len(keys))
	if len(keys) > 0 {
		children, err := r.FindMany(ctx, FindArgs{
			Where:   inc.Where.Merge(query.Where{rel.ForeignField: query.In{Values: keys}}),
			OrderBy: inc.OrderBy,
			Include: inc.Include,
		})
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if k, ok := groupKey(c[rel.ForeignField]); ok {
				byKey[k] = append(byKey[k], c)
			}
		}
	}

	return func() {
		for _, p := range parents {
			var group []domain.Record
			if k, ok := groupKey(p[rel.LocalField]); ok {
				group = byKey[k]
			}

			if rel.Kind == One {
				if len(group) > 0 {
					p[rel.Name] = group[0]
				} else {
					p[rel.Name] = nil
				}
				continue
			}

			n := len(group)
			if inc.Take > 0 && inc.Take < n {
				n = inc.Take
			}
			out := make([]domain.Record, n)
			copy(out, group)
			p[rel.Name] = out
		}
	}, nil
}

// keys collects the distinct local values of parents. Values that cannot
// match an identifier field on r are dropped.
func (r *Repo) keys(rel Relation, parents []domain.Record) []any {
	seen := make(map[string]bool, len(parents))
	keys := make([]any, 0, len(parents))
	for _, p := range parents {
		v := p[rel.LocalField]
		if r.refs.Has(rel.ForeignField) {
			s, ok := v.(string)
			if !ok || !query.ValidID(s) {
				continue
			}
		}
		k, ok := groupKey(v)
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, v)
	}
	return keys
}

// groupKey maps a materialized scalar onto a comparable key. Numbers of
// every width share one key space, as they do in the store.
func groupKey(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return "s:" + x, true
	case bool:
		return "b:" + strconv.FormatBool(x), true
	case int:
		return numKey(float64(x)), true
	case int32:
		return numKey(float64(x)), true
	case int64:
		return numKey(float64(x)), true
	case float64:
		return numKey(x), true
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano), true
	default:
		return "", false
	}
}

func numKey(f float64) string {
	return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
}
