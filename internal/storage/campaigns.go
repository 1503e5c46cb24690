package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"affiliate_shoppe/internal/model"
)

// CampaignQuery selects campaigns for ListCampaigns.
type CampaignQuery struct {
	Status model.CampaignStatus
	Limit  int
	Offset int
}

// randomHex returns n hex characters from a random UUID.
func randomHex(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

// CreateCampaign stores a new draft campaign and fills its ID, Status and
// CreatedAt.
func (r *Repository) CreateCampaign(ctx context.Context, c *model.Campaign) error {
	c.ID = "camp-" + randomHex(12)
	c.Status = model.StatusDraft
	c.CreatedAt = r.timestamp()
	c.PostID, c.PostedAt, c.ErrorMsg = "", "", ""
	if err := r.store.Set(ctx, model.CollectionCampaigns, c.ID, campaignRecord(c)); err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

// ListCampaigns returns campaigns newest first, plus the number matching the
// query before paging.
func (r *Repository) ListCampaigns(ctx context.Context, q CampaignQuery) ([]model.Campaign, int, error) {
	recs, err := r.store.List(ctx, model.CollectionCampaigns)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	var out []model.Campaign
	for _, rec := range recs {
		c := campaignFromRecord(rec)
		if q.Status != "" && c.Status != q.Status {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	start, end := page(len(out), q.Limit, q.Offset)
	return out[start:end], len(out), nil
}

// GetCampaign returns one campaign.
func (r *Repository) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	rec, err := r.store.Get(ctx, model.CollectionCampaigns, id)
	if err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}
	c := campaignFromRecord(rec)
	return &c, nil
}

// UpdateCampaignStatus rewrites the campaign with a new status. Any value is
// stored as given unless the repository was created with StrictStatus, in
// which case model.CheckTransition must accept the change.
func (r *Repository) UpdateCampaignStatus(ctx context.Context, id string, status model.CampaignStatus) (*model.Campaign, error) {
	c, err := r.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.strict {
		if err := model.CheckTransition(c.Status, status); err != nil {
			return nil, err
		}
	}
	c.Status = status
	if err := r.SaveCampaign(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SaveCampaign replaces the stored campaign with c.
func (r *Repository) SaveCampaign(ctx context.Context, c *model.Campaign) error {
	if err := r.store.Set(ctx, model.CollectionCampaigns, c.ID, campaignRecord(c)); err != nil {
		return fmt.Errorf("save campaign %s: %w", c.ID, err)
	}
	return nil
}

// DeleteCampaign removes a campaign permanently.
func (r *Repository) DeleteCampaign(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, model.CollectionCampaigns, id); err != nil {
		return fmt.Errorf("delete campaign %s: %w", id, err)
	}
	return nil
}
