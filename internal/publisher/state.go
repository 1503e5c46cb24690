package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"affiliate_shoppe/internal/model"
)

const dayLayout = "2006-01-02"

// Status is the publisher node shown on the dashboard.
type Status struct {
	Configured  bool   `json:"configured"`
	Channel     string `json:"channel"`
	AutoMode    bool   `json:"auto_mode"`
	NextPostAt  string `json:"next_post_at"`
	PostsToday  int    `json:"posts_today"`
	LastUpdated string `json:"last_updated"`
}

// statusNode is the stored shape of the publisher node.
type statusNode struct {
	AutoMode    bool   `json:"auto_mode"`
	NextPostAt  string `json:"next_post_at"`
	PostsToday  int    `json:"posts_today"`
	PostsDay    string `json:"posts_day"`
	LastUpdated string `json:"last_updated"`
}

// LogEntry is one publish attempt.
type LogEntry struct {
	ID         string               `json:"id"`
	CampaignID string               `json:"campaign_id"`
	Product    string               `json:"product_name"`
	Status     model.CampaignStatus `json:"status"`
	PostID     string               `json:"post_id"`
	Error      string               `json:"error_msg"`
	Channel    string               `json:"channel"`
	At         string               `json:"at"`
}

// decode converts a JSON-shaped KV value into out.
func decode(value any, out any) error {
	if value == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (p *Publisher) timestamp() string {
	return p.now().In(p.loc).Format(time.RFC3339)
}

func (p *Publisher) loadNode(ctx context.Context) (*statusNode, error) {
	raw, err := p.kv.Get(ctx, StatusPath)
	if err != nil {
		return nil, fmt.Errorf("load publisher status: %w", err)
	}
	var node statusNode
	if err := decode(raw, &node); err != nil {
		return nil, fmt.Errorf("decode publisher status: %w", err)
	}
	if node.PostsDay != p.now().In(p.loc).Format(dayLayout) {
		node.PostsToday = 0
	}
	return &node, nil
}

// Status returns the current publisher state.
func (p *Publisher) Status(ctx context.Context) (*Status, error) {
	node, err := p.loadNode(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		Configured:  p.Configured(),
		Channel:     p.channel,
		AutoMode:    node.AutoMode,
		NextPostAt:  node.NextPostAt,
		PostsToday:  node.PostsToday,
		LastUpdated: node.LastUpdated,
	}, nil
}

// AutoMode reports whether scheduled publishing is switched on.
func (p *Publisher) AutoMode(ctx context.Context) (bool, error) {
	node, err := p.loadNode(ctx)
	if err != nil {
		return false, err
	}
	return node.AutoMode, nil
}

// SetAutoMode switches scheduled publishing on or off.
func (p *Publisher) SetAutoMode(ctx context.Context, on bool) (*Status, error) {
	err := p.kv.Update(ctx, StatusPath, map[string]any{
		"auto_mode":    on,
		"last_updated": p.timestamp(),
	})
	if err != nil {
		return nil, fmt.Errorf("set auto mode: %w", err)
	}
	p.log.Info("set auto mode", "auto_mode", on)
	return p.Status(ctx)
}

// SetNextPostAt records when the scheduler will publish next.
func (p *Publisher) SetNextPostAt(ctx context.Context, at time.Time) error {
	next := ""
	if !at.IsZero() {
		next = at.In(p.loc).Format(time.RFC3339)
	}
	if err := p.kv.Update(ctx, StatusPath, map[string]any{"next_post_at": next}); err != nil {
		return fmt.Errorf("set next post time: %w", err)
	}
	return nil
}

// Log returns the latest publish attempts, newest first.
func (p *Publisher) Log(ctx context.Context, limit int) ([]LogEntry, error) {
	raw, err := p.kv.Get(ctx, LogPath)
	if err != nil {
		return nil, fmt.Errorf("load post log: %w", err)
	}
	var byKey map[string]LogEntry
	if err := decode(raw, &byKey); err != nil {
		return nil, fmt.Errorf("decode post log: %w", err)
	}
	entries := make([]LogEntry, 0, len(byKey))
	for key, e := range byKey {
		e.ID = key
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// record writes the attempt to the post log, the counters and the status
// node. KV failures are logged; the campaign itself is already saved.
func (p *Publisher) record(ctx context.Context, c *model.Campaign) {
	now := p.timestamp()
	entry := LogEntry{
		CampaignID: c.ID,
		Product:    c.ProductName,
		Status:     c.Status,
		PostID:     c.PostID,
		Error:      c.ErrorMsg,
		Channel:    p.channel,
		At:         now,
	}
	if _, err := p.kv.Push(ctx, LogPath, entry); err != nil {
		p.log.Error("append post log", "campaign_id", c.ID, "error", err)
	}

	if err := p.incrementTotal(ctx); err != nil {
		p.log.Error("increment post counter", "error", err)
	}

	node, err := p.loadNode(ctx)
	if err != nil {
		p.log.Error("update publisher status", "error", err)
		return
	}
	update := map[string]any{"last_updated": now}
	if c.Status == model.StatusPosted {
		update["posts_today"] = node.PostsToday + 1
		update["posts_day"] = p.now().In(p.loc).Format(dayLayout)
	}
	if err := p.kv.Update(ctx, StatusPath, update); err != nil {
		p.log.Error("update publisher status", "error", err)
	}
}

func (p *Publisher) incrementTotal(ctx context.Context) error {
	path := CountersPath + "/" + totalPosts
	raw, err := p.kv.Get(ctx, path)
	if err != nil {
		return err
	}
	var total int64
	if err := decode(raw, &total); err != nil {
		return err
	}
	return p.kv.Set(ctx, path, total+1)
}
