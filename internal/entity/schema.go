package entity

import (
	"fmt"
	"sort"

	"github.com/heartmarshall/proposal-backend/internal/domain"
)

// RelationKind says how a relation attaches to its parent.
type RelationKind int

const (
	// One attaches a single record or nil.
	One RelationKind = iota
	// Many attaches a slice of records, empty when none match.
	Many
	// Count attaches the number of related records as int64.
	Count
)

func (k RelationKind) String() string {
	switch k {
	case One:
		return "one"
	case Many:
		return "many"
	case Count:
		return "count"
	default:
		return fmt.Sprintf("RelationKind(%d)", int(k))
	}
}

// Relation links parent records to target records whose ForeignField
// equals the parent's LocalField. When both are identifier fields the
// relation is keyed by reference id, otherwise by shared value.
type Relation struct {
	Name         string
	Kind         RelationKind
	Target       domain.Kind
	LocalField   string
	ForeignField string
}

// Schema declares one entity kind: which fields hold identifiers, which
// hold serialized JSON, and which relations may be included.
type Schema struct {
	Kind      domain.Kind
	Refs      []string
	Blobs     []string
	Relations []Relation
}

func (s Schema) relation(name string) (Relation, bool) {
	for _, r := range s.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

func one(name string, target domain.Kind, local string) Relation {
	return Relation{Name: name, Kind: One, Target: target, LocalField: local, ForeignField: domain.FieldID}
}

func many(name string, target domain.Kind, foreign string) Relation {
	return Relation{Name: name, Kind: Many, Target: target, LocalField: domain.FieldID, ForeignField: foreign}
}

func count(name string, target domain.Kind, foreign string) Relation {
	return Relation{Name: name, Kind: Count, Target: target, LocalField: domain.FieldID, ForeignField: foreign}
}

func byValue(r Relation, local string) Relation {
	r.LocalField = local
	return r
}

const fieldOrganizationID = "organizationId"

// Schemas is the registry of every entity kind.
var Schemas = []Schema{
	{
		Kind:  domain.KindUser,
		Blobs: []string{"preferences"},
		Relations: []Relation{
			one("organization", domain.KindOrganization, fieldOrganizationID),
			many("proposals", domain.KindProposal, "authorId"),
			many("comments", domain.KindComment, "authorId"),
			many("notifications", domain.KindNotification, "userId"),
			many("teamMemberships", domain.KindTeamMember, "userId"),
			many("templates", domain.KindTemplate, "authorId"),
			many("snippets", domain.KindSnippet, "authorId"),
			many("caseStudies", domain.KindCaseStudy, "authorId"),
			many("accessRequests", domain.KindAccessRequest, "userId"),
			many("ownedOrganizations", domain.KindOrganization, "ownerId"),
			count("proposalCount", domain.KindProposal, "authorId"),
		},
	},
	{
		Kind:  domain.KindProposal,
		Refs:  []string{"authorId", "clientId", "templateId"},
		Blobs: []string{"content", "metadata"},
		Relations: []Relation{
			one("author", domain.KindUser, "authorId"),
			one("client", domain.KindClient, "clientId"),
			one("template", domain.KindTemplate, "templateId"),
			one("organization", domain.KindOrganization, fieldOrganizationID),
			many("comments", domain.KindComment, "proposalId"),
			many("activities", domain.KindActivity, "proposalId"),
			many("emailTracking", domain.KindEmailTracking, "proposalId"),
			many("notifications", domain.KindNotification, "proposalId"),
			count("commentCount", domain.KindComment, "proposalId"),
			count("activityCount", domain.KindActivity, "proposalId"),
		},
	},
	{
		Kind: domain.KindClient,
		Relations: []Relation{
			one("organization", domain.KindOrganization, fieldOrganizationID),
			byValue(many("proposals", domain.KindProposal, "clientName"), "name"),
			many("linkedProposals", domain.KindProposal, "clientId"),
			byValue(count("proposalCount", domain.KindProposal, "clientName"), "name"),
		},
	},
	{
		Kind: domain.KindComment,
		Refs: []string{"proposalId", "authorId", "parentId"},
		Relations: []Relation{
			one("author", domain.KindUser, "authorId"),
			one("proposal", domain.KindProposal, "proposalId"),
			one("parent", domain.KindComment, "parentId"),
			many("replies", domain.KindComment, "parentId"),
			count("replyCount", domain.KindComment, "parentId"),
		},
	},
	{
		Kind:  domain.KindOrganization,
		Refs:  []string{"ownerId"},
		Blobs: []string{"settings"},
		Relations: []Relation{
			one("owner", domain.KindUser, "ownerId"),
			many("members", domain.KindUser, fieldOrganizationID),
			many("teams", domain.KindTeam, fieldOrganizationID),
			many("clients", domain.KindClient, fieldOrganizationID),
			many("proposals", domain.KindProposal, fieldOrganizationID),
			many("pricingModels", domain.KindPricingModel, fieldOrganizationID),
			count("memberCount", domain.KindUser, fieldOrganizationID),
			count("proposalCount", domain.KindProposal, fieldOrganizationID),
		},
	},
	{
		Kind:  domain.KindNotification,
		Refs:  []string{"userId", "proposalId"},
		Blobs: []string{"data"},
		Relations: []Relation{
			one("user", domain.KindUser, "userId"),
			one("proposal", domain.KindProposal, "proposalId"),
		},
	},
	{
		Kind:  domain.KindTemplate,
		Refs:  []string{"authorId"},
		Blobs: []string{"content"},
		Relations: []Relation{
			one("author", domain.KindUser, "authorId"),
			many("proposals", domain.KindProposal, "templateId"),
			count("usageCount", domain.KindProposal, "templateId"),
		},
	},
	{
		Kind: domain.KindSnippet,
		Refs: []string{"authorId"},
		Relations: []Relation{
			one("author", domain.KindUser, "authorId"),
		},
	},
	{
		Kind:  domain.KindPricingModel,
		Blobs: []string{"tiers"},
		Relations: []Relation{
			one("organization", domain.KindOrganization, fieldOrganizationID),
		},
	},
	{
		Kind: domain.KindTeamMember,
		Refs: []string{"userId", "teamId"},
		Relations: []Relation{
			one("user", domain.KindUser, "userId"),
			one("team", domain.KindTeam, "teamId"),
		},
	},
	{
		Kind:  domain.KindActivity,
		Refs:  []string{"proposalId", "userId"},
		Blobs: []string{"details"},
		Relations: []Relation{
			one("proposal", domain.KindProposal, "proposalId"),
			one("user", domain.KindUser, "userId"),
		},
	},
	{
		Kind: domain.KindTeam,
		Refs: []string{"leadId"},
		Relations: []Relation{
			one("lead", domain.KindUser, "leadId"),
			one("organization", domain.KindOrganization, fieldOrganizationID),
			many("members", domain.KindTeamMember, "teamId"),
			count("memberCount", domain.KindTeamMember, "teamId"),
		},
	},
	{
		Kind: domain.KindEmailTracking,
		Refs: []string{"proposalId"},
		Relations: []Relation{
			one("proposal", domain.KindProposal, "proposalId"),
		},
	},
	{
		Kind:  domain.KindCaseStudy,
		Refs:  []string{"authorId"},
		Blobs: []string{"content", "metrics"},
		Relations: []Relation{
			one("author", domain.KindUser, "authorId"),
		},
	},
	{
		Kind: domain.KindAccessRequest,
		Refs: []string{"userId", "reviewedById"},
		Relations: []Relation{
			one("user", domain.KindUser, "userId"),
			one("reviewedBy", domain.KindUser, "reviewedById"),
		},
	},
}

// validateSchemas checks that every kind is declared once and every
// relation names a declared target kind.
func validateSchemas(schemas []Schema) error {
	declared := make(map[domain.Kind]bool, len(schemas))
	for _, s := range schemas {
		if !s.Kind.IsValid() {
			return fmt.Errorf("schema: unknown kind %q", s.Kind)
		}
		if declared[s.Kind] {
			return fmt.Errorf("schema: kind %s declared twice", s.Kind)
		}
		declared[s.Kind] = true
	}
	for _, s := range schemas {
		seen := make(map[string]bool, len(s.Relations))
		for _, r := range s.Relations {
			if r.Name == "" || r.LocalField == "" || r.ForeignField == "" {
				return fmt.Errorf("schema: %s: relation %q is incomplete", s.Kind, r.Name)
			}
			if seen[r.Name] {
				return fmt.Errorf("schema: %s: relation %s declared twice", s.Kind, r.Name)
			}
			seen[r.Name] = true
			if !declared[r.Target] {
				return fmt.Errorf("schema: %s.%s: target %s is not declared", s.Kind, r.Name, r.Target)
			}
		}
	}
	return nil
}

// Indexes lists, per collection, the fields that relations look records up
// by. Identifier lookups use the primary key and are omitted.
func Indexes() map[string][]string {
	set := make(map[string]map[string]bool)
	for _, s := range Schemas {
		for _, r := range s.Relations {
			if r.ForeignField == domain.FieldID {
				continue
			}
			coll := r.Target.String()
			if set[coll] == nil {
				set[coll] = make(map[string]bool)
			}
			set[coll][r.ForeignField] = true
		}
	}

	out := make(map[string][]string, len(set))
	for coll, fields := range set {
		list := make([]string, 0, len(fields))
		for f := range fields {
			list = append(list, f)
		}
		sort.Strings(list)
		out[coll] = list
	}
	return out
}
