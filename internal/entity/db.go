// Package entity is the per-kind operation surface over the document store:
// reads with relation includes, mutations that maintain timestamps, grouped
// counts and transaction ops.
package entity

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/proposal-backend/internal/domain"
	"github.com/heartmarshall/proposal-backend/internal/store"
)

// DB exposes one Repo per entity kind plus the transaction coordinator.
type DB struct {
	User          *Repo
	Proposal      *ProposalRepo
	Client        *Repo
	Comment       *Repo
	Organization  *Repo
	Notification  *Repo
	Template      *Repo
	Snippet       *Repo
	PricingModel  *Repo
	TeamMember    *Repo
	Activity      *Repo
	Team          *Repo
	EmailTracking *Repo
	CaseStudy     *Repo
	AccessRequest *Repo

	Tx *store.TxManager

	repos map[domain.Kind]*Repo
	clock *Clock
	log   *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithClock sets the clock used for mutation timestamps.
func WithClock(c *Clock) Option {
	return func(db *DB) { db.clock = c }
}

// NewDB builds the repos of every kind declared in Schemas on top of db.
// It panics when the schema registry is inconsistent.
func NewDB(db store.Database, log *slog.Logger, opts ...Option) *DB {
	if err := validateSchemas(Schemas); err != nil {
		panic(err)
	}

	d := &DB{
		repos: make(map[domain.Kind]*Repo, len(Schemas)),
		log:   log.With("component", "entity"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.clock == nil {
		d.clock = NewClock(nil)
	}
	d.Tx = store.NewTxManager(db, log)

	for _, s := range Schemas {
		d.repos[s.Kind] = newRepo(d, s, db.Collection(s.Kind.String()))
	}

	d.User = d.repos[domain.KindUser]
	d.Proposal = &ProposalRepo{Repo: d.repos[domain.KindProposal]}
	d.Client = d.repos[domain.KindClient]
	d.Comment = d.repos[domain.KindComment]
	d.Organization = d.repos[domain.KindOrganization]
	d.Notification = d.repos[domain.KindNotification]
	d.Template = d.repos[domain.KindTemplate]
	d.Snippet = d.repos[domain.KindSnippet]
	d.PricingModel = d.repos[domain.KindPricingModel]
	d.TeamMember = d.repos[domain.KindTeamMember]
	d.Activity = d.repos[domain.KindActivity]
	d.Team = d.repos[domain.KindTeam]
	d.EmailTracking = d.repos[domain.KindEmailTracking]
	d.CaseStudy = d.repos[domain.KindCaseStudy]
	d.AccessRequest = d.repos[domain.KindAccessRequest]
	return d
}

// Repo returns the repo of kind, or nil for an unknown kind.
func (d *DB) Repo(kind domain.Kind) *Repo {
	return d.repos[kind]
}

// Transaction runs ops atomically. See store.TxManager.Transaction.
func (d *DB) Transaction(ctx context.Context, ops ...store.Op) ([]any, error) {
	return d.Tx.Transaction(ctx, ops...)
}

// RunInTx runs fn inside one transaction. See store.TxManager.RunInTx.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return d.Tx.RunInTx(ctx, fn)
}
