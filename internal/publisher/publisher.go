// Package publisher posts approved campaigns to a Telegram channel and keeps
// the publishing state in the key-value store.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"affiliate_shoppe/internal/kvstore"
	"affiliate_shoppe/internal/model"
	"affiliate_shoppe/internal/storage"
)

// ErrNotConfigured is returned when no bot token or channel is set.
var ErrNotConfigured = errors.New("publisher: telegram bot token or channel not configured")

// KV paths written by the publisher.
const (
	StatusPath   = "publisher"
	LogPath      = "post_log"
	CountersPath = "counters"
	totalPosts   = "total_posts"
)

const linkPlaceholder = "[LINK]"

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// CampaignStore is the part of storage.Storage the publisher needs.
type CampaignStore interface {
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
	SaveCampaign(ctx context.Context, c *model.Campaign) error
	ListCampaigns(ctx context.Context, q storage.CampaignQuery) ([]model.Campaign, int, error)
}

// Config holds the publisher settings.
type Config struct {
	Token string
	// Channel is a numeric chat id or a public @username.
	Channel  string
	Location *time.Location
}

// Publisher sends Bait/Hook pairs to Telegram.
type Publisher struct {
	api     telegramAPI
	channel string
	store   CampaignStore
	kv      kvstore.Store
	loc     *time.Location
	now     func() time.Time
	log     *slog.Logger
}

// New creates a Publisher. Without a token or channel the publisher is
// returned unconfigured and Publish fails with ErrNotConfigured.
func New(cfg Config, store CampaignStore, kv kvstore.Store, log *slog.Logger) (*Publisher, error) {
	p := newPublisher(nil, cfg, store, kv, log)
	if cfg.Token == "" || cfg.Channel == "" {
		return p, nil
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	p.api = api
	return p, nil
}

func newPublisher(api telegramAPI, cfg Config, store CampaignStore, kv kvstore.Store, log *slog.Logger) *Publisher {
	p := &Publisher{
		api:     api,
		channel: strings.TrimSpace(cfg.Channel),
		store:   store,
		kv:      kv,
		loc:     cfg.Location,
		now:     time.Now,
		log:     log,
	}
	if p.loc == nil {
		p.loc = time.UTC
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	return p
}

// Configured reports whether campaigns can be sent.
func (p *Publisher) Configured() bool {
	return p != nil && p.api != nil && p.channel != ""
}

// Channel returns the target chat.
func (p *Publisher) Channel() string {
	return p.channel
}

// Publish sends an approved campaign: the Bait as a channel post, then the
// Hook as a reply to it. The campaign ends up posted or failed; on failure the
// updated campaign is returned together with the send error.
func (p *Publisher) Publish(ctx context.Context, id string) (*model.Campaign, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}
	c, err := p.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.StatusApproved {
		return nil, fmt.Errorf("publish campaign %s: %w: status is %s, want %s",
			id, model.ErrInvalidTransition, c.Status, model.StatusApproved)
	}

	postID, sendErr := p.send(c)
	c.PostID = postID
	if sendErr != nil {
		c.Status = model.StatusFailed
		c.ErrorMsg = sendErr.Error()
	} else {
		c.Status = model.StatusPosted
		c.PostedAt = p.now().In(p.loc).Format(time.RFC3339)
		c.ErrorMsg = ""
	}
	if err := model.CheckTransition(model.StatusApproved, c.Status); err != nil {
		return nil, err
	}
	if err := p.store.SaveCampaign(ctx, c); err != nil {
		return nil, err
	}
	p.record(ctx, c)

	if sendErr != nil {
		p.log.Error("publish campaign", "campaign_id", c.ID, "error", sendErr)
		return c, fmt.Errorf("publish campaign %s: %w", c.ID, sendErr)
	}
	p.log.Info("publish campaign", "campaign_id", c.ID, "post_id", c.PostID)
	return c, nil
}

// PublishNext publishes the oldest approved campaign. It returns nil, nil
// when nothing is waiting.
func (p *Publisher) PublishNext(ctx context.Context) (*model.Campaign, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}
	approved, _, err := p.store.ListCampaigns(ctx, storage.CampaignQuery{Status: model.StatusApproved})
	if err != nil {
		return nil, err
	}
	if len(approved) == 0 {
		return nil, nil
	}
	// Newest first, so the oldest is last.
	return p.Publish(ctx, approved[len(approved)-1].ID)
}

func (p *Publisher) send(c *model.Campaign) (string, error) {
	bait := strings.TrimSpace(c.BaitContent)
	if bait == "" {
		return "", errors.New("campaign has no bait content")
	}
	sent, err := p.api.Send(p.message(bait))
	if err != nil {
		return "", fmt.Errorf("send bait: %w", err)
	}
	postID := strconv.Itoa(sent.MessageID)

	hook := hookText(c)
	if hook == "" {
		return postID, nil
	}
	reply := p.message(hook)
	reply.ReplyToMessageID = sent.MessageID
	if _, err := p.api.Send(reply); err != nil {
		return postID, fmt.Errorf("send hook: %w", err)
	}
	return postID, nil
}

func (p *Publisher) message(text string) tgbotapi.MessageConfig {
	var msg tgbotapi.MessageConfig
	if chatID, err := strconv.ParseInt(p.channel, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(chatID, text)
	} else {
		username := p.channel
		if !strings.HasPrefix(username, "@") {
			username = "@" + username
		}
		msg = tgbotapi.NewMessageToChannel(username, text)
	}
	return msg
}

// hookText fills the link placeholder with the best link the campaign has.
func hookText(c *model.Campaign) string {
	hook := strings.TrimSpace(c.HookComment)
	link := c.ShortenedLink
	if link == "" {
		link = c.ProductLink
	}
	if link != "" {
		hook = strings.ReplaceAll(hook, linkPlaceholder, link)
	}
	return hook
}
