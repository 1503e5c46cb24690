package crawler

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"affiliate_shoppe/internal/model"
)

const forumURL = "https://voz.vn/f/chuyen-tro-linh-tinh.17/"

func TestParseForumListing(t *testing.T) {
	base, _ := url.Parse(forumURL)
	got, err := ParseForumListing(strings.NewReader(loadFixture(t, "testdata/forum_listing.html")), base)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []model.Thread{
		{
			ID:       "forum-1012345",
			Source:   model.SourceForum,
			Title:    "Làm văn phòng mà lương không đủ tiêu",
			URL:      "https://voz.vn/t/lam-van-phong-ma-luong-khong-du-tieu.1012345/",
			Author:   "mèo lười",
			Replies:  1234,
			Views:    "56K",
			TimeText: "Mar 1, 2025",
			Prefix:   "Thảo luận",
		},
		{
			ID:       "forum-ca032cff81",
			Source:   model.SourceForum,
			Title:    "Hỏi xin review tai nghe",
			URL:      "https://voz.vn/t/hoi-xin-review-tai-nghe",
			Author:   model.DefaultAuthor,
			Replies:  0,
			Views:    "0",
			TimeText: "Yesterday at 11:00 PM",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseForumListing() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCount(t *testing.T) {
	tests := map[string]int64{
		"1.234": 1234,
		"1,234": 1234,
		" 42 ":  42,
		"1,2K":  0,
		"N/A":   0,
		"":      0,
	}
	for in, want := range tests {
		if got := parseCount(in); got != want {
			t.Errorf("parseCount(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseForumContent(t *testing.T) {
	got, err := ParseForumContent(strings.NewReader(loadFixture(t, "testdata/forum_thread.html")))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := "Sáng nay vừa vào công ty đã bị sếp gọi họp.\nHọp xong thì\nhết giờ làm\n."
	if got != want {
		t.Errorf("content = %q, want %q", got, want)
	}

	empty, err := ParseForumContent(strings.NewReader("<html><body><p>no post</p></body></html>"))
	if err != nil || empty != "" {
		t.Errorf("expected empty content, got %q, %v", empty, err)
	}

	long := "<div class=\"message-body\"><div class=\"bbWrapper\">" + strings.Repeat("á", 2500) + "</div></div>"
	truncated, err := ParseForumContent(strings.NewReader(long))
	if err != nil {
		t.Fatalf("parse long: %v", err)
	}
	if n := len([]rune(truncated)); n != model.MaxContentRunes {
		t.Errorf("content length = %d runes, want %d", n, model.MaxContentRunes)
	}
}

func TestForumFetch(t *testing.T) {
	mt := &mockTransport{responses: map[string]response{
		forumURL: {body: loadFixture(t, "testdata/forum_listing.html"), statusCode: 200},
		"https://voz.vn/t/lam-van-phong-ma-luong-khong-du-tieu.1012345/": {body: loadFixture(t, "testdata/forum_thread.html"), statusCode: 200},
		"https://voz.vn/t/down": {statusCode: 503},
	}}
	f := NewForum(mt, forumURL)

	threads, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(threads) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(threads))
	}
	if ua := mt.requests[0].Header.Get("User-Agent"); ua != browserUserAgent {
		t.Errorf("User-Agent = %q", ua)
	}

	content, err := f.FetchContent(context.Background(), threads[0].URL)
	if err != nil {
		t.Fatalf("fetch content: %v", err)
	}
	if !strings.HasPrefix(content, "Sáng nay") {
		t.Errorf("unexpected content %q", content)
	}

	if _, err := f.FetchContent(context.Background(), "https://voz.vn/t/down"); err == nil {
		t.Error("expected error for 503")
	}

	failing := NewForum(&mockTransport{responses: map[string]response{forumURL: {statusCode: 403}}}, forumURL)
	if _, err := failing.Fetch(context.Background()); err == nil {
		t.Error("expected error for 403 listing")
	}
}
