package storage

import (
	"context"
	"fmt"

	"affiliate_shoppe/internal/model"
)

// CampaignCounts breaks campaigns down by status.
type CampaignCounts struct {
	Total    int `json:"total"`
	Draft    int `json:"draft"`
	Approved int `json:"approved"`
	Posted   int `json:"posted"`
	Failed   int `json:"failed"`
}

// Stats summarizes stored entities. Soft-deleted threads are not counted.
type Stats struct {
	Forum        int            `json:"forum"`
	Feed         int            `json:"feed"`
	RSS          int            `json:"rss"`
	TotalThreads int            `json:"total_threads"`
	Campaigns    CampaignCounts `json:"campaigns"`
	Links        int            `json:"links"`
}

// Stats counts threads per source, campaigns per status and links.
func (r *Repository) Stats(ctx context.Context) (*Stats, error) {
	threads, err := r.liveThreads(ctx)
	if err != nil {
		return nil, err
	}
	s := &Stats{TotalThreads: len(threads)}
	for _, t := range threads {
		switch t.Source {
		case model.SourceForum:
			s.Forum++
		case model.SourceFeed:
			s.Feed++
		case model.SourceRSS:
			s.RSS++
		}
	}

	campaigns, _, err := r.ListCampaigns(ctx, CampaignQuery{})
	if err != nil {
		return nil, err
	}
	s.Campaigns.Total = len(campaigns)
	for _, c := range campaigns {
		switch c.Status {
		case model.StatusDraft:
			s.Campaigns.Draft++
		case model.StatusApproved:
			s.Campaigns.Approved++
		case model.StatusPosted:
			s.Campaigns.Posted++
		case model.StatusFailed:
			s.Campaigns.Failed++
		}
	}

	links, err := r.allLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	s.Links = len(links)
	return s, nil
}
