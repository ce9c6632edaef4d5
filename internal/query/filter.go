package query

import (
	"fmt"
	"regexp"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/heartmarshall/proposal-backend/internal/domain"
)

// Condition is one filter clause applied to a single field.
//
// This is a sealed interface: only the variants below implement it, and the
// translator switches over them exhaustively. Pointer forms of the variants
// satisfy the interface through the method set but are rejected at
// translation time.
type Condition interface {
	condition()
}

// Eq matches records whose field equals Value. A nil Value matches records
// where the field is null or missing.
type Eq struct{ Value any }

// Ne matches records whose field differs from Value, including records
// where the field is missing.
type Ne struct{ Value any }

// In matches records whose field equals any of Values. An empty set matches
// nothing.
type In struct{ Values []any }

// ContainsCI matches string fields containing Substring, ignoring case.
type ContainsCI struct{ Substring string }

// Gt, Gte, Lt and Lte compare the field against Value.
type (
	Gt  struct{ Value any }
	Gte struct{ Value any }
	Lt  struct{ Value any }
	Lte struct{ Value any }
)

// Not negates Cond.
type Not struct{ Cond Condition }

// And requires every condition to hold on the same field, e.g. a date range.
type And []Condition

func (Eq) condition()         {}
func (Ne) condition()         {}
func (In) condition()         {}
func (ContainsCI) condition() {}
func (Gt) condition()         {}
func (Gte) condition()        {}
func (Lt) condition()         {}
func (Lte) condition()        {}
func (Not) condition()        {}
func (And) condition()        {}

// Where maps a public field name to the condition it must satisfy.
// All entries must hold. A nil or empty Where matches every record.
type Where map[string]Condition

// Merge returns a new Where holding the entries of w and extra. When both
// constrain the same field the conditions are combined with And.
func (w Where) Merge(extra Where) Where {
	out := make(Where, len(w)+len(extra))
	for f, c := range w {
		out[f] = c
	}
	for f, c := range extra {
		if prev, ok := out[f]; ok {
			out[f] = And{prev, c}
			continue
		}
		out[f] = c
	}
	return out
}

// Translate converts w into a native filter document. Identifier fields
// (per refs) are encoded through the codec. Keys are emitted in sorted order
// so equal inputs always produce equal documents.
func Translate(w Where, refs Refs) (bson.D, error) {
	filter := bson.D{}
	if len(w) == 0 {
		return filter, nil
	}

	fields := make([]string, 0, len(w))
	for f := range w {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var conj bson.A
	for _, field := range fields {
		if !PublicField(field) {
			return nil, &domain.FilterError{Field: field, Operator: "field name"}
		}
		cond := w[field]
		if and, ok := cond.(And); ok {
			if len(and) == 0 {
				return nil, &domain.FilterError{Field: field, Operator: "and()"}
			}
			for _, c := range and {
				v, err := translateCondition(field, c, refs)
				if err != nil {
					return nil, err
				}
				conj = append(conj, bson.D{{Key: nativeField(field), Value: v}})
			}
			continue
		}

		v, err := translateCondition(field, cond, refs)
		if err != nil {
			return nil, err
		}
		filter = append(filter, bson.E{Key: nativeField(field), Value: v})
	}

	if len(conj) > 0 {
		filter = append(filter, bson.E{Key: "$and", Value: conj})
	}
	return filter, nil
}

// TranslateAny converts a list of alternatives into a native $or document.
// An empty list yields an empty document (no constraint).
func TranslateAny(anyOf []Where, refs Refs) (bson.D, error) {
	if len(anyOf) == 0 {
		return bson.D{}, nil
	}
	alts := make(bson.A, 0, len(anyOf))
	for _, w := range anyOf {
		d, err := Translate(w, refs)
		if err != nil {
			return nil, err
		}
		alts = append(alts, d)
	}
	return bson.D{{Key: "$or", Value: alts}}, nil
}

// translateCondition returns the value placed under the native field key:
// either a literal (equality) or an operator document.
func translateCondition(field string, cond Condition, refs Refs) (any, error) {
	isRef := refs.Has(field)
	operand := func(v any) (any, error) {
		if isRef {
			return encodeRef(field, v)
		}
		return v, nil
	}
	operands := func(vs []any) (bson.A, error) {
		out := make(bson.A, 0, len(vs))
		for _, v := range vs {
			ev, err := operand(v)
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
		return out, nil
	}
	op := func(name string, v any) (any, error) {
		ev, err := operand(v)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: name, Value: ev}}, nil
	}

	switch c := cond.(type) {
	case Eq:
		return op("$eq", c.Value)
	case Ne:
		return op("$ne", c.Value)
	case In:
		vals, err := operands(c.Values)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$in", Value: vals}}, nil
	case ContainsCI:
		if isRef {
			return nil, &domain.FilterError{Field: field, Operator: "containsCI"}
		}
		return bson.D{{Key: "$regex", Value: substringRegex(c.Substring)}}, nil
	case Gt:
		return op("$gt", c.Value)
	case Gte:
		return op("$gte", c.Value)
	case Lt:
		return op("$lt", c.Value)
	case Lte:
		return op("$lte", c.Value)
	case Not:
		return translateNot(field, c.Cond, refs)
	default:
		return nil, &domain.FilterError{Field: field, Operator: operatorName(cond)}
	}
}

// translateNot pushes the negation into the inner operator where the store
// has a direct complement, and falls back to $not otherwise.
func translateNot(field string, inner Condition, refs Refs) (any, error) {
	switch c := inner.(type) {
	case Eq:
		return translateCondition(field, Ne(c), refs)
	case Ne:
		return translateCondition(field, Eq(c), refs)
	case In:
		v, err := translateCondition(field, c, refs)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$nin", Value: v.(bson.D)[0].Value}}, nil
	case Not:
		return translateCondition(field, c.Cond, refs)
	case ContainsCI:
		if refs.Has(field) {
			return nil, &domain.FilterError{Field: field, Operator: "not(containsCI)"}
		}
		return bson.D{{Key: "$not", Value: substringRegex(c.Substring)}}, nil
	case Gt, Gte, Lt, Lte:
		v, err := translateCondition(field, c, refs)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$not", Value: v}}, nil
	default:
		return nil, &domain.FilterError{Field: field, Operator: "not(" + operatorName(inner) + ")"}
	}
}

func substringRegex(s string) bson.Regex {
	return bson.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func operatorName(c Condition) string {
	if c == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", c)
}

func stringify(v any) string {
	return fmt.Sprint(v)
}
