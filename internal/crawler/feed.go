package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"affiliate_shoppe/internal/model"
)

const (
	feedTimeout   = 10 * time.Second
	feedUserAgent = "windows:affiliateshoppebot:v1.0 (by /u/AffiliateBot)"

	// DefaultFeedBaseURL is the public community feed host.
	DefaultFeedBaseURL = "https://www.reddit.com"

	// LinkPlaceholder prefixes the content of link posts without body text.
	LinkPlaceholder = "🔗 Link: "

	timeTextLayout = "02/01 15:04"
)

// Feed reads the hot listing of community feeds as JSON.
type Feed struct {
	client  HTTPClient
	baseURL string
	loc     *time.Location
	log     *slog.Logger
}

// NewFeed creates a feed adapter. Times are rendered in loc.
func NewFeed(client HTTPClient, baseURL string, loc *time.Location, log *slog.Logger) *Feed {
	if baseURL == "" {
		baseURL = DefaultFeedBaseURL
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Feed{client: client, baseURL: strings.TrimRight(baseURL, "/"), loc: loc, log: log}
}

// URL returns the feed host.
func (f *Feed) URL() string {
	return f.baseURL
}

// Fetch collects threads from every community. A community that fails is
// logged and skipped.
func (f *Feed) Fetch(ctx context.Context, communities []string) []model.Thread {
	var threads []model.Thread
	for _, community := range communities {
		got, err := f.FetchCommunity(ctx, community)
		if err != nil {
			f.log.Warn("fetch community", "community", community, "error", err)
			continue
		}
		threads = append(threads, got...)
	}
	return threads
}

// FetchCommunity downloads and parses one community's hot listing.
func (f *Feed) FetchCommunity(ctx context.Context, community string) ([]model.Thread, error) {
	u := fmt.Sprintf("%s/r/%s/hot.json?limit=25", f.baseURL, url.PathEscape(community))
	body, err := get(ctx, f.client, u, feedTimeout, http.Header{
		"User-Agent": {feedUserAgent},
		"Accept":     {"application/json"},
	})
	if err != nil {
		return nil, err
	}
	return ParseFeedListing(body, community, f.baseURL, f.loc)
}

type feedListing struct {
	Data struct {
		Children []struct {
			Data feedPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type feedPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Selftext    string  `json:"selftext"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Thumbnail   string  `json:"thumbnail"`
	Ups         int64   `json:"ups"`
	NumComments int64   `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Stickied    bool    `json:"stickied"`
}

// ParseFeedListing converts one hot listing into threads.
func ParseFeedListing(data []byte, community, baseURL string, loc *time.Location) ([]model.Thread, error) {
	var listing feedListing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	var threads []model.Thread
	for _, child := range listing.Data.Children {
		p := child.Data
		title := strings.TrimSpace(p.Title)
		if p.Stickied || title == "" {
			continue
		}

		content := truncateRunes(p.Selftext, model.MaxContentRunes)
		if content == "" && p.URL != "" && !strings.Contains(p.URL, "reddit.com") {
			content = LinkPlaceholder + p.URL
		}

		threads = append(threads, model.Thread{
			ID:        "feed-" + p.ID,
			Source:    model.SourceFeed,
			Title:     title,
			URL:       baseURL + p.Permalink,
			Author:    p.Author,
			Replies:   p.NumComments,
			Views:     formatViews(p.Ups),
			TimeText:  formatCreated(p.CreatedUTC, loc),
			Prefix:    "r/" + community,
			Content:   content,
			Thumbnail: cleanThumbnail(p.Thumbnail),
			Score:     p.Ups,
		})
	}
	return threads, nil
}

// formatViews renders a score as "2.5K" from 1000 up, plain digits below.
func formatViews(n int64) string {
	if n >= 1000 {
		return strconv.FormatFloat(float64(n)/1000, 'f', 1, 64) + "K"
	}
	return strconv.FormatInt(n, 10)
}

func formatCreated(created float64, loc *time.Location) string {
	if created == 0 {
		return ""
	}
	sec := int64(created)
	nsec := int64((created - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).In(loc).Format(timeTextLayout)
}

func cleanThumbnail(s string) string {
	switch s {
	case "self", "default", "nsfw", "spoiler", "":
		return ""
	}
	return s
}
