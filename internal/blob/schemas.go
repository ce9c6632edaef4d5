package blob

import (
	"errors"
	"fmt"
)

// Section is one block of a proposal or template body.
type Section struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

// ProposalContent is stored in Proposal.content and CaseStudy.content.
type ProposalContent struct {
	Sections []Section `json:"sections"`
}

func (c ProposalContent) Validate() error {
	return validateSections(c.Sections)
}

// ProposalMetadata is stored in Proposal.metadata.
type ProposalMetadata struct {
	GeneratedBy string   `json:"generatedBy,omitempty"`
	Model       string   `json:"model,omitempty"`
	Tone        string   `json:"tone,omitempty"`
	Industry    string   `json:"industry,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	WordCount   int      `json:"wordCount,omitempty"`
	Version     int      `json:"version,omitempty"`
}

// TemplateContent is stored in Template.content.
type TemplateContent struct {
	Sections  []Section `json:"sections"`
	Variables []string  `json:"variables,omitempty"`
}

func (c TemplateContent) Validate() error {
	return validateSections(c.Sections)
}

// Branding groups the visual settings of an organization.
type Branding struct {
	PrimaryColor string `json:"primaryColor,omitempty"`
	LogoURL      string `json:"logoUrl,omitempty"`
	FontFamily   string `json:"fontFamily,omitempty"`
}

// OrganizationSettings is stored in Organization.settings.
type OrganizationSettings struct {
	Branding        Branding        `json:"branding"`
	DefaultCurrency string          `json:"defaultCurrency,omitempty"`
	Timezone        string          `json:"timezone,omitempty"`
	Features        map[string]bool `json:"features,omitempty"`
}

// PricingTier is one tier of a pricing model.
type PricingTier struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency,omitempty"`
	Interval    string   `json:"interval,omitempty"`
	Features    []string `json:"features,omitempty"`
	Recommended bool     `json:"recommended,omitempty"`
}

// PricingTiers is stored in PricingModel.tiers.
type PricingTiers []PricingTier

func (p PricingTiers) Validate() error {
	seen := make(map[string]bool, len(p))
	for i, tier := range p {
		if tier.Name == "" {
			return fmt.Errorf("tier %d: name is required", i)
		}
		if seen[tier.Name] {
			return fmt.Errorf("tier %d: duplicate name %q", i, tier.Name)
		}
		seen[tier.Name] = true
		if tier.Price < 0 {
			return fmt.Errorf("tier %s: price must be >= 0", tier.Name)
		}
	}
	return nil
}

// ActivityDetails is stored in Activity.details.
type ActivityDetails struct {
	Field string         `json:"field,omitempty"`
	From  string         `json:"from,omitempty"`
	To    string         `json:"to,omitempty"`
	Note  string         `json:"note,omitempty"`
	Extra map[string]any `json:"extra,omitempty"`
}

func validateSections(sections []Section) error {
	ids := make(map[string]bool, len(sections))
	for i, s := range sections {
		if s.ID == "" {
			continue
		}
		if ids[s.ID] {
			return fmt.Errorf("section %d: duplicate id %q", i, s.ID)
		}
		ids[s.ID] = true
	}
	for _, s := range sections {
		if s.Title == "" && s.Content == "" {
			return errors.New("section needs a title or content")
		}
	}
	return nil
}

// Codecs of every blob field.
var (
	ProposalContentCodec      = New[ProposalContent]("content")
	ProposalMetadataCodec     = New[ProposalMetadata]("metadata")
	TemplateContentCodec      = New[TemplateContent]("content")
	OrganizationSettingsCodec = New[OrganizationSettings]("settings")
	PricingTiersCodec         = New[PricingTiers]("tiers")
	ActivityDetailsCodec      = New[ActivityDetails]("details")
)
