package domain

// Kind names one entity kind. It doubles as the collection name.
type Kind string

const (
	KindUser          Kind = "User"
	KindProposal      Kind = "Proposal"
	KindClient        Kind = "Client"
	KindComment       Kind = "Comment"
	KindOrganization  Kind = "Organization"
	KindNotification  Kind = "Notification"
	KindTemplate      Kind = "Template"
	KindSnippet       Kind = "Snippet"
	KindPricingModel  Kind = "PricingModel"
	KindTeamMember    Kind = "TeamMember"
	KindActivity      Kind = "Activity"
	KindTeam          Kind = "Team"
	KindEmailTracking Kind = "EmailTracking"
	KindCaseStudy     Kind = "CaseStudy"
	KindAccessRequest Kind = "AccessRequest"
)

// Kinds lists every entity kind in declaration order.
var Kinds = []Kind{
	KindUser, KindProposal, KindClient, KindComment, KindOrganization,
	KindNotification, KindTemplate, KindSnippet, KindPricingModel, KindTeamMember,
	KindActivity, KindTeam, KindEmailTracking, KindCaseStudy, KindAccessRequest,
}

func (k Kind) String() string { return string(k) }

func (k Kind) IsValid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ProposalStatus is the lifecycle status stored on Proposal.status.
type ProposalStatus string

const (
	ProposalStatusDraft    ProposalStatus = "DRAFT"
	ProposalStatusSent     ProposalStatus = "SENT"
	ProposalStatusViewed   ProposalStatus = "VIEWED"
	ProposalStatusAccepted ProposalStatus = "ACCEPTED"
	ProposalStatusRejected ProposalStatus = "REJECTED"
)

func (s ProposalStatus) String() string { return string(s) }

func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalStatusDraft, ProposalStatusSent, ProposalStatusViewed,
		ProposalStatusAccepted, ProposalStatusRejected:
		return true
	}
	return false
}

// UserRole is the access role stored on User.role.
type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleAdmin UserRole = "ADMIN"
)

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}
