package crawler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"affiliate_shoppe/internal/model"
)

const rssTimeout = 10 * time.Second

// RSS reads RSS and Atom feeds.
type RSS struct {
	client HTTPClient
	loc    *time.Location
	log    *slog.Logger
}

// NewRSS creates an RSS adapter. Times are rendered in loc.
func NewRSS(client HTTPClient, loc *time.Location, log *slog.Logger) *RSS {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &RSS{client: client, loc: loc, log: log}
}

// Fetch collects items from every feed URL. A feed that fails is logged and
// skipped.
func (r *RSS) Fetch(ctx context.Context, feedURLs []string) []model.Thread {
	var threads []model.Thread
	for _, u := range feedURLs {
		feed, err := r.FetchFeed(ctx, u)
		if err != nil {
			r.log.Warn("fetch rss feed", "url", u, "error", err)
			continue
		}
		threads = append(threads, FeedThreads(feed, r.loc)...)
	}
	return threads
}

// FetchFeed downloads and parses one feed.
func (r *RSS) FetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	body, err := get(ctx, r.client, feedURL, rssTimeout, http.Header{
		"User-Agent": {"AffiliateShoppe/1.0"},
	})
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// FeedThreads converts feed items into threads.
func FeedThreads(feed *gofeed.Feed, loc *time.Location) []model.Thread {
	threads := make([]model.Thread, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		t := model.Thread{
			ID:      "rss-" + itemHash(item),
			Source:  model.SourceRSS,
			Title:   title,
			URL:     item.Link,
			Prefix:  strings.TrimSpace(feed.Title),
			Content: truncateContent(htmlText(firstNonEmpty(item.Description, item.Content))),
			Views:   "0",
		}
		if item.Author != nil {
			t.Author = item.Author.Name
		}
		if item.PublishedParsed != nil {
			t.TimeText = item.PublishedParsed.In(loc).Format(timeTextLayout)
		}
		if item.Image != nil {
			t.Thumbnail = item.Image.URL
		}
		threads = append(threads, t)
	}
	return threads
}

// ItemGUID returns the GUID for an RSS item.
// If the item has no GUID, the title and link identify it.
func ItemGUID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Title + "|" + item.Link
}

func itemHash(item *gofeed.Item) string {
	h := sha256.Sum256([]byte(ItemGUID(item)))
	return hex.EncodeToString(h[:])[:12]
}

func htmlText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
