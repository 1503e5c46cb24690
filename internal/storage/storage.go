// Package storage implements the thread, campaign and affiliate link
// repositories on top of a document store.
package storage

import (
	"context"
	"log/slog"
	"time"

	"affiliate_shoppe/internal/docstore"
	"affiliate_shoppe/internal/model"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = docstore.ErrNotFound

// Storage is the interface for all persistence operations.
type Storage interface {
	SaveThreads(ctx context.Context, threads []model.Thread) int
	ListThreads(ctx context.Context, q ThreadQuery) ([]model.Thread, int, error)
	GetThread(ctx context.Context, id string) (*model.Thread, error)
	SetThreadContent(ctx context.Context, id, content string) (*model.Thread, error)
	MarkSentToAI(ctx context.Context, id string) error
	DeleteThread(ctx context.Context, id string) error

	CreateCampaign(ctx context.Context, c *model.Campaign) error
	ListCampaigns(ctx context.Context, q CampaignQuery) ([]model.Campaign, int, error)
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
	UpdateCampaignStatus(ctx context.Context, id string, status model.CampaignStatus) (*model.Campaign, error)
	SaveCampaign(ctx context.Context, c *model.Campaign) error
	DeleteCampaign(ctx context.Context, id string) error

	CreateLink(ctx context.Context, l *model.AffiliateLink) error
	ListLinks(ctx context.Context, collection string) ([]model.AffiliateLink, error)
	RandomLink(ctx context.Context) (*model.AffiliateLink, error)
	DeleteLink(ctx context.Context, id string) error

	Stats(ctx context.Context) (*Stats, error)
	Backend() string
}

// Options tunes a Repository.
type Options struct {
	// Location is used for every timestamp the repository writes.
	Location *time.Location
	// StrictStatus makes UpdateCampaignStatus enforce the status graph.
	StrictStatus bool
	Logger       *slog.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Repository implements Storage over a docstore.Store.
type Repository struct {
	store  docstore.Store
	loc    *time.Location
	strict bool
	log    *slog.Logger
	now    func() time.Time
}

// New creates a repository backed by store.
func New(store docstore.Store, opts Options) *Repository {
	r := &Repository{
		store:  store,
		loc:    opts.Location,
		strict: opts.StrictStatus,
		log:    opts.Logger,
		now:    opts.Now,
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Backend names the underlying document store.
func (r *Repository) Backend() string {
	return r.store.Backend()
}

func (r *Repository) timestamp() string {
	return r.now().In(r.loc).Format(time.RFC3339)
}

// page applies offset and limit to n items. A non-positive limit means all.
func page(n, limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}
