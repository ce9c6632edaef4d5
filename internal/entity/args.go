package entity

import (
	"github.com/heartmarshall/proposal-backend/internal/domain"
	"github.com/heartmarshall/proposal-backend/internal/query"
)

// FindArgs shapes a read. Where entries must all hold; when Or is set at
// least one of its alternatives must hold as well. Take 0 means no limit.
type FindArgs struct {
	Where   query.Where
	Or      []query.Where
	OrderBy []query.Order
	Skip    int
	Take    int
	Include []Include
}

// Include expands one declared relation on every returned record.
// Where, OrderBy and Take shape the related set; Take applies per parent.
// Nested includes expand relations of the related kind.
type Include struct {
	Relation string
	Where    query.Where
	OrderBy  []query.Order
	Take     int
	Include  []Include
}

// With is shorthand for an unfiltered include.
func With(relation string, nested ...Include) Include {
	return Include{Relation: relation, Include: nested}
}

func (a FindArgs) validate() error {
	if a.Skip < 0 {
		return domain.NewValidationError("skip", "must be >= 0")
	}
	if a.Take < 0 {
		return domain.NewValidationError("take", "must be >= 0")
	}
	return nil
}
