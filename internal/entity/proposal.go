package entity

import (
	"context"
	"fmt"

	"github.com/heartmarshall/proposal-backend/internal/domain"
	"github.com/heartmarshall/proposal-backend/internal/query"
)

// GroupRow is one distinct value of a grouped field and how many records
// hold it. Value is nil for records where the field is null or missing.
type GroupRow struct {
	Value any   `json:"value"`
	Count int64 `json:"count"`
}

// ProposalRepo adds grouped counts to the Proposal surface.
type ProposalRepo struct {
	*Repo
}

// GroupBy counts the proposals matching where per distinct value of field.
// Rows are ordered by value, the null group first.
func (r *ProposalRepo) GroupBy(ctx context.Context, field string, where query.Where) ([]GroupRow, error) {
	if field == "" {
		return nil, domain.NewValidationError("by", "field name is required")
	}
	if field != domain.FieldID && !query.PublicField(field) {
		return nil, domain.NewValidationError("by", "not a public field name: "+field)
	}
	filter, err := query.Translate(where, r.refs)
	if err != nil {
		return nil, err
	}

	native := field
	if field == domain.FieldID {
		native = query.NativeIDField
	}
	groups, err := r.coll.CountBy(ctx, filter, native)
	if err != nil {
		return nil, fmt.Errorf("%s group by %s: %w", r.schema.Kind, field, err)
	}

	rows := make([]GroupRow, len(groups))
	for i, g := range groups {
		rows[i] = GroupRow{Value: query.MaterializeValue(g.Key), Count: g.Count}
	}
	return rows, nil
}
