// Package model defines the domain types used across the application.
package model

import (
	"errors"
	"fmt"
)

// Source identifies where a crawled thread came from.
type Source string

// Supported thread sources.
const (
	SourceForum Source = "forum"
	SourceFeed  Source = "feed"
	SourceRSS   Source = "rss"
)

// Collection names in the document store.
const (
	CollectionThreads   = "threads"
	CollectionCampaigns = "campaigns"
	CollectionLinks     = "affiliate_links"
)

// DefaultAuthor is stored when a source does not expose an author.
const DefaultAuthor = "Anonymous"

// DefaultLinkCollection groups links created without a collection name.
const DefaultLinkCollection = "📱 Công nghệ"

// AllLinkCollections is the dashboard's "no filter" collection value.
const AllLinkCollections = "Tất cả"

// ShortenerNone marks a link that could not be shortened.
const ShortenerNone = "none"

// MaxContentRunes bounds the body text kept for a thread.
const MaxContentRunes = 2000

// Thread is a normalized reference to one scraped discussion post.
type Thread struct {
	ID        string `json:"id"`
	Source    Source `json:"source"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Author    string `json:"author"`
	Replies   int64  `json:"replies"`
	Views     string `json:"views"`
	TimeText  string `json:"time_text"`
	Prefix    string `json:"prefix"`
	Content   string `json:"content"`
	Thumbnail string `json:"thumbnail"`
	Score     int64  `json:"score"`
	CrawledAt string `json:"crawled_at"`
	SentToAI  bool   `json:"sent_to_ai"`
	Deleted   bool   `json:"deleted"`
}

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

// Known campaign states.
const (
	StatusDraft    CampaignStatus = "draft"
	StatusApproved CampaignStatus = "approved"
	StatusPosted   CampaignStatus = "posted"
	StatusFailed   CampaignStatus = "failed"
)

// ErrInvalidTransition is returned when a campaign status change is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

var transitions = map[CampaignStatus][]CampaignStatus{
	StatusDraft:    {StatusApproved, StatusFailed},
	StatusApproved: {StatusDraft, StatusPosted, StatusFailed},
	StatusFailed:   {StatusDraft, StatusApproved},
}

// Known reports whether s is one of the four recognized states.
func (s CampaignStatus) Known() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusPosted, StatusFailed:
		return true
	}
	return false
}

// CheckTransition returns ErrInvalidTransition unless from -> to is allowed.
// A failed campaign may be sent back for another attempt; posted is final.
func CheckTransition(from, to CampaignStatus) error {
	if !to.Known() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if from == to {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Campaign is one generated Bait/Hook pair with its lifecycle status.
type Campaign struct {
	ID             string         `json:"id"`
	BaitContent    string         `json:"bait_content"`
	HookComment    string         `json:"hook_comment"`
	ProductName    string         `json:"product_name"`
	ProductLink    string         `json:"product_link"`
	ShortenedLink  string         `json:"shortened_link"`
	PagePersona    string         `json:"page_persona"`
	SourceThreadID string         `json:"source_thread_id"`
	SuggestedImage string         `json:"suggested_image"`
	Status         CampaignStatus `json:"status"`
	PostID         string         `json:"post_id"`
	CreatedAt      string         `json:"created_at"`
	PostedAt       string         `json:"posted_at"`
	ErrorMsg       string         `json:"error_msg"`
}

// AffiliateLink is a tracked, shortened outbound link.
type AffiliateLink struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	OriginalURL    string  `json:"original_url"`
	ShortenedURL   string  `json:"shortened_url"`
	Shortener      string  `json:"shortener"`
	CollectionName string  `json:"collection_name"`
	Clicks         int64   `json:"clicks"`
	Orders         int64   `json:"orders"`
	Commission     float64 `json:"commission"`
	CreatedAt      string  `json:"created_at"`
}

// CrawlSummary reports the outcome of one source crawl.
type CrawlSummary struct {
	Source      Source   `json:"source"`
	SourceName  string   `json:"sourceName"`
	SourceURL   string   `json:"sourceUrl"`
	Communities []string `json:"subreddits,omitempty"`
	Total       int      `json:"total"`
	New         int      `json:"new"`
	CrawledAt   string   `json:"crawledAt"`
	Threads     []Thread `json:"threads"`
	Error       string   `json:"error,omitempty"`
}

// FilterKind defines the type of a thread filter rule.
type FilterKind string

// Supported filter kinds.
const (
	FilterInclude   FilterKind = "include"
	FilterExclude   FilterKind = "exclude"
	FilterIncludeRe FilterKind = "include_re"
	FilterExcludeRe FilterKind = "exclude_re"
)

// FilterScope defines which part of a thread a filter matches against.
type FilterScope string

// Supported filter scopes.
const (
	ScopeTitle   FilterScope = "title"
	ScopeContent FilterScope = "content"
	ScopeAll     FilterScope = "all"
)

// Filter is a single keyword rule applied to crawled threads.
type Filter struct {
	Kind  FilterKind
	Scope FilterScope
	Value string
}
