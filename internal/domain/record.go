package domain

import "time"

// Field names maintained by the store layer on every record.
const (
	FieldID        = "identifier"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Record is the materialized public shape of one stored document.
// A nil Record means the record is absent.
type Record map[string]any

// Data is a mutation payload keyed by public field name.
type Data map[string]any

// ID returns the record's public identifier.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// String returns a string field or "" when missing or of another type.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Time returns a time field or the zero time.
func (r Record) Time(field string) time.Time {
	t, _ := r[field].(time.Time)
	return t
}

// Int returns a numeric field as int64. Float values are truncated.
func (r Record) Int(field string) int64 {
	switch v := r[field].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// One returns an attached to-one relation, nil when absent.
func (r Record) One(relation string) Record {
	rec, _ := r[relation].(Record)
	return rec
}

// Many returns an attached to-many relation.
func (r Record) Many(relation string) []Record {
	recs, _ := r[relation].([]Record)
	return recs
}
