package storage

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"affiliate_shoppe/internal/model"
)

// CreateLink stores a new affiliate link and fills its ID and CreatedAt.
// Counters start at zero.
func (r *Repository) CreateLink(ctx context.Context, l *model.AffiliateLink) error {
	l.ID = "aff-" + randomHex(10)
	l.CreatedAt = r.timestamp()
	if l.CollectionName == "" {
		l.CollectionName = model.DefaultLinkCollection
	}
	if l.ShortenedURL == "" {
		l.ShortenedURL = l.OriginalURL
		l.Shortener = model.ShortenerNone
	}
	l.Clicks, l.Orders, l.Commission = 0, 0, 0
	if err := r.store.Set(ctx, model.CollectionLinks, l.ID, linkRecord(l)); err != nil {
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}

// ListLinks returns links newest first. A non-empty collection keeps links
// whose collection name contains it; the "all collections" label disables
// the filter.
func (r *Repository) ListLinks(ctx context.Context, collection string) ([]model.AffiliateLink, error) {
	all, err := r.allLinks(ctx)
	if err != nil {
		return nil, err
	}
	if collection == "" || collection == model.AllLinkCollections {
		return all, nil
	}
	var out []model.AffiliateLink
	for _, l := range all {
		if strings.Contains(l.CollectionName, collection) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *Repository) allLinks(ctx context.Context) ([]model.AffiliateLink, error) {
	recs, err := r.store.List(ctx, model.CollectionLinks)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	links := make([]model.AffiliateLink, 0, len(recs))
	for _, rec := range recs {
		links = append(links, linkFromRecord(rec))
	}
	sort.SliceStable(links, func(i, j int) bool {
		return links[i].CreatedAt > links[j].CreatedAt
	})
	return links, nil
}

// RandomLink picks one stored link uniformly, or returns ErrNotFound when
// there are none.
func (r *Repository) RandomLink(ctx context.Context) (*model.AffiliateLink, error) {
	links, err := r.allLinks(ctx)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("random link: %w", ErrNotFound)
	}
	l := links[rand.IntN(len(links))]
	return &l, nil
}

// DeleteLink removes a link permanently.
func (r *Repository) DeleteLink(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, model.CollectionLinks, id); err != nil {
		return fmt.Errorf("delete link %s: %w", id, err)
	}
	return nil
}
