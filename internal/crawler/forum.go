package crawler

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // short content hash for ids, not security
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"affiliate_shoppe/internal/model"
)

const (
	forumListTimeout   = 15 * time.Second
	forumDetailTimeout = 10 * time.Second
)

var threadIDPattern = regexp.MustCompile(`\.(\d+)/?$`)

// Forum scrapes one listing page of a XenForo-style forum.
type Forum struct {
	client  HTTPClient
	listURL string
}

// NewForum creates a forum adapter for the listing page at listURL.
func NewForum(client HTTPClient, listURL string) *Forum {
	return &Forum{client: client, listURL: listURL}
}

// URL returns the listing page address.
func (f *Forum) URL() string {
	return f.listURL
}

// Fetch downloads and parses the listing page.
func (f *Forum) Fetch(ctx context.Context) ([]model.Thread, error) {
	body, err := get(ctx, f.client, f.listURL, forumListTimeout, htmlHeader())
	if err != nil {
		return nil, fmt.Errorf("fetch forum listing: %w", err)
	}
	base, err := url.Parse(f.listURL)
	if err != nil {
		return nil, fmt.Errorf("parse forum url: %w", err)
	}
	return ParseForumListing(bytes.NewReader(body), base)
}

// FetchContent downloads a thread page and returns the text of its first
// post. A page without a post body yields "".
func (f *Forum) FetchContent(ctx context.Context, threadURL string) (string, error) {
	body, err := get(ctx, f.client, threadURL, forumDetailTimeout, htmlHeader())
	if err != nil {
		return "", fmt.Errorf("fetch forum thread: %w", err)
	}
	return ParseForumContent(bytes.NewReader(body))
}

func htmlHeader() http.Header {
	return http.Header{
		"User-Agent":      {browserUserAgent},
		"Accept":          {"text/html,application/xhtml+xml"},
		"Accept-Language": {"vi-VN,vi;q=0.9,en;q=0.8"},
	}
}

// ParseForumListing extracts threads from a listing page. Relative links are
// resolved against base. Items without a title link are skipped.
func ParseForumListing(r io.Reader, base *url.URL) ([]model.Thread, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse forum html: %w", err)
	}

	var threads []model.Thread
	doc.Find(".structItem--thread").Each(func(_ int, item *goquery.Selection) {
		link := item.Find(".structItem-title a:not(.labelLink)").First()
		title := strings.TrimSpace(link.Text())
		if link.Length() == 0 || title == "" {
			return
		}
		href, _ := link.Attr("href")

		t := model.Thread{
			ID:     forumThreadID(href, title),
			Source: model.SourceForum,
			Title:  title,
			URL:    resolve(base, href),
			Author: model.DefaultAuthor,
			Views:  "0",
		}

		if author := item.Find(".structItem-minor .username, .structItem-parts .username").First(); author.Length() > 0 {
			if name := strings.TrimSpace(author.Text()); name != "" {
				t.Author = name
			}
		}

		cells := item.Find(".structItem-cell--meta .pairs dd")
		if cells.Length() >= 1 {
			t.Replies = parseCount(cells.Eq(0).Text())
		}
		if cells.Length() >= 2 {
			t.Views = strings.TrimSpace(cells.Eq(1).Text())
		}

		if tm := item.Find("time.structItem-latestDate, time").First(); tm.Length() > 0 {
			t.TimeText = strings.TrimSpace(tm.Text())
			if t.TimeText == "" {
				t.TimeText, _ = tm.Attr("title")
			}
		}

		t.Prefix = strings.TrimSpace(item.Find(".label, .labelLink").First().Text())
		threads = append(threads, t)
	})
	return threads, nil
}

// ParseForumContent returns the first post body as newline-joined text with
// quotes, scripts and styles removed, truncated to model.MaxContentRunes.
func ParseForumContent(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse forum html: %w", err)
	}
	post := doc.Find(".message-body .bbWrapper").First()
	if post.Length() == 0 {
		return "", nil
	}
	post.Find("blockquote, script, style").Remove()

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(post.Nodes[0])
	return truncateContent(strings.Join(parts, "\n")), nil
}

// forumThreadID uses the numeric id at the end of the thread URL, falling back
// to a hash of the title.
func forumThreadID(href, title string) string {
	if m := threadIDPattern.FindStringSubmatch(href); m != nil {
		return "forum-" + m[1]
	}
	sum := md5.Sum([]byte(title)) //nolint:gosec // see import
	return "forum-" + hex.EncodeToString(sum[:])[:10]
}

// parseCount reads a reply counter such as "1.234" or "1,234". Abbreviated or
// non-numeric text yields 0.
func parseCount(s string) int64 {
	s = strings.NewReplacer(".", "", ",", "").Replace(strings.TrimSpace(s))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func resolve(base *url.URL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
