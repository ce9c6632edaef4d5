// Package query translates the structured query vocabulary used by callers
// into native MongoDB documents and materializes native documents back into
// public records. Everything in this package is pure: no I/O.
package query

import (
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/heartmarshall/proposal-backend/internal/domain"
)

// NativeIDField is the store's reserved identifier field.
const NativeIDField = "_id"

const idLen = 24

// EncodeID converts a public identifier into its native ObjectID.
// Only the canonical lowercase hex form is accepted so that the mapping
// stays injective: DecodeID(EncodeID(id)) == id for every accepted id.
func EncodeID(public string) (bson.ObjectID, error) {
	if !ValidID(public) {
		return bson.NilObjectID, &domain.IdentifierError{Value: public}
	}
	oid, err := bson.ObjectIDFromHex(public)
	if err != nil {
		return bson.NilObjectID, &domain.IdentifierError{Value: public}
	}
	return oid, nil
}

// DecodeID converts a native ObjectID into its public identifier.
func DecodeID(native bson.ObjectID) string {
	return native.Hex()
}

// ValidID reports whether s is a well-formed public identifier.
func ValidID(s string) bool {
	if len(s) != idLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// NewID allocates a fresh public identifier.
func NewID() string {
	return DecodeID(bson.NewObjectID())
}

// Refs is the set of public field names that hold identifiers.
// domain.FieldID is always treated as one, whether listed or not.
type Refs map[string]bool

// NewRefs builds a Refs set from field names.
func NewRefs(fields ...string) Refs {
	r := make(Refs, len(fields)+1)
	r[domain.FieldID] = true
	for _, f := range fields {
		r[f] = true
	}
	return r
}

// Has reports whether field holds identifiers.
func (r Refs) Has(field string) bool {
	return field == domain.FieldID || r[field]
}

// PublicField reports whether field is a plain top-level public name: not
// empty, not the native identifier, no operator prefix and no path separator.
func PublicField(field string) bool {
	return field != "" && field != NativeIDField &&
		!strings.HasPrefix(field, "$") && !strings.Contains(field, ".")
}

// nativeField maps a public field name onto its stored name.
func nativeField(field string) string {
	if field == domain.FieldID {
		return NativeIDField
	}
	return field
}

// encodeRef encodes one identifier-valued operand. nil stays nil so that
// "reference is unset" filters keep working.
func encodeRef(field string, v any) (any, error) {
	switch id := v.(type) {
	case nil:
		return nil, nil
	case string:
		oid, err := EncodeID(id)
		if err != nil {
			return nil, &domain.IdentifierError{Field: field, Value: id}
		}
		return oid, nil
	case bson.ObjectID:
		return nil, &domain.IdentifierError{Field: field, Value: id.Hex()}
	default:
		return nil, &domain.IdentifierError{Field: field, Value: stringify(v)}
	}
}
