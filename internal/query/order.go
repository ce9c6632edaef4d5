package query

import (
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/heartmarshall/proposal-backend/internal/domain"
)

// Order sorts by one field. Later entries break ties of earlier ones.
type Order struct {
	Field string
	Desc  bool
}

// Asc and Desc are shorthands for building an ordering.
func Asc(field string) Order  { return Order{Field: field} }
func Desc(field string) Order { return Order{Field: field, Desc: true} }

// Sort converts an ordering into a native sort document. A nil result means
// natural order.
func Sort(orders []Order) (bson.D, error) {
	if len(orders) == 0 {
		return nil, nil
	}
	sortDoc := make(bson.D, 0, len(orders))
	seen := make(map[string]bool, len(orders))
	for _, o := range orders {
		if o.Field == "" {
			return nil, domain.NewValidationError("orderBy", "field name is required")
		}
		if !PublicField(o.Field) {
			return nil, domain.NewValidationError("orderBy", "not a public field name: "+o.Field)
		}
		if seen[o.Field] {
			return nil, domain.NewValidationError("orderBy", "duplicate field "+o.Field)
		}
		seen[o.Field] = true

		dir := 1
		if o.Desc {
			dir = -1
		}
		sortDoc = append(sortDoc, bson.E{Key: nativeField(o.Field), Value: dir})
	}
	return sortDoc, nil
}
