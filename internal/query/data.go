package query

import (
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/heartmarshall/proposal-backend/internal/domain"
)

// Blobs is the set of fields holding serialized JSON text.
type Blobs map[string]bool

// NewBlobs builds a Blobs set from field names.
func NewBlobs(fields ...string) Blobs {
	b := make(Blobs, len(fields))
	for _, f := range fields {
		b[f] = true
	}
	return b
}

// Normalize converts doc into the value types the store hands back on
// reads: ints become int32 or int64, times become DateTime, slices become
// arrays. Records materialized from a normalized document equal the ones
// later read from the store.
func Normalize(doc bson.M) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, domain.NewValidationError("data", "value cannot be stored: "+err.Error())
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, domain.NewValidationError("data", "value cannot be stored: "+err.Error())
	}
	if out == nil {
		out = bson.M{}
	}
	return out, nil
}

// EncodeData converts a mutation payload into a native document.
// identifier becomes _id, identifier fields are encoded, blob fields must
// already be serialized text. Native field names and operators are refused:
// callers speak only the public vocabulary.
func EncodeData(data domain.Data, refs Refs, blobs Blobs) (bson.M, error) {
	doc := make(bson.M, len(data))
	for field, v := range data {
		if field == NativeIDField || strings.HasPrefix(field, "$") {
			return nil, domain.NewValidationError(field, "native field names are not accepted")
		}
		if field == "" || strings.Contains(field, ".") {
			return nil, domain.NewValidationError(field, "field name must be a plain top-level name")
		}

		if refs.Has(field) {
			ev, err := encodeRef(field, v)
			if err != nil {
				return nil, err
			}
			doc[nativeField(field)] = ev
			continue
		}

		if blobs[field] {
			if _, ok := v.(string); !ok && v != nil {
				return nil, domain.NewValidationError(field, "blob fields must be serialized text")
			}
		}
		doc[field] = v
	}
	return doc, nil
}
