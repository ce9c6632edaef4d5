package query

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/heartmarshall/proposal-backend/internal/domain"
)

// Materialize converts a native document into a public record: _id becomes
// identifier, ObjectIDs are decoded, BSON dates become UTC time.Time, and
// nested BSON containers become plain maps and slices. Blob text and other
// scalars pass through unchanged.
//
// The result is a fixed point: materializing a materialized record returns
// an equal record.
func Materialize(doc map[string]any) domain.Record {
	if doc == nil {
		return nil
	}
	_, native := doc[NativeIDField]
	rec := make(domain.Record, len(doc))
	for k, v := range doc {
		if k == domain.FieldID && native {
			continue
		}
		if k == NativeIDField {
			rec[domain.FieldID] = MaterializeValue(v)
			continue
		}
		rec[k] = MaterializeValue(v)
	}
	return rec
}

// MaterializeValue normalizes one native value.
func MaterializeValue(v any) any {
	switch x := v.(type) {
	case bson.ObjectID:
		return DecodeID(x)
	case bson.DateTime:
		return x.Time().UTC()
	case time.Time:
		return x.UTC()
	case bson.Timestamp:
		return time.Unix(int64(x.T), 0).UTC()
	case bson.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = MaterializeValue(e.Value)
		}
		return m
	case bson.M:
		return materializeMap(x)
	case map[string]any:
		return materializeMap(x)
	case bson.A:
		return materializeSlice(x)
	case []any:
		return materializeSlice(x)
	case domain.Record:
		return Materialize(x)
	case []domain.Record:
		out := make([]domain.Record, len(x))
		for i, r := range x {
			out[i] = Materialize(r)
		}
		return out
	case bson.Null, bson.Undefined:
		return nil
	default:
		return v
	}
}

func materializeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = MaterializeValue(v)
	}
	return out
}

func materializeSlice(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = MaterializeValue(v)
	}
	return out
}
