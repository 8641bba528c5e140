package store

import (
	"context"

	"github.com/leadforge/leadforge-cli/internal/model"
)

// LeadFilter specifies criteria for listing leads. Zero values mean "any".
type LeadFilter struct {
	WebsiteStatus model.WebsiteStatus `json:"website_status,omitempty"`
	SearchID      int64               `json:"search_id,omitempty"`
	Limit         int                 `json:"limit,omitempty"`
}

// Store defines the persistence interface for leads, searches, demos and
// outreach events. Implementations are backed by either a local sqlite file
// or a remote postgres instance.
type Store interface {
	// Searches
	CreateSearch(ctx context.Context, query, location, engine string) (int64, error)
	RecentSearches(ctx context.Context, limit int) ([]model.Search, error)

	// Leads
	InsertLead(ctx context.Context, lead model.Lead) (int64, error)
	GetLead(ctx context.Context, id int64) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)

	// Demos
	InsertDemo(ctx context.Context, demo model.Demo) (int64, error)

	// Outreach
	InsertOutreach(ctx context.Context, ev model.OutreachEvent) (int64, error)
	UpdateOutreachResponse(ctx context.Context, id int64, status, notes string) error
	OutreachHistory(ctx context.Context, businessID int64) ([]model.OutreachEvent, error)

	// Aggregates
	Stats(ctx context.Context) (*model.Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
