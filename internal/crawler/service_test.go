package crawler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"affiliate_shoppe/internal/docstore"
	"affiliate_shoppe/internal/filter"
	"affiliate_shoppe/internal/logging"
	"affiliate_shoppe/internal/model"
	"affiliate_shoppe/internal/storage"
)

func newTestService(t *testing.T, mt *mockTransport, cfg Config) (*Service, *storage.Repository) {
	t.Helper()
	store, err := docstore.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	log := logging.NewNop()
	repo := storage.New(store, storage.Options{Location: ict, Logger: log})

	cfg.Location = ict
	svc := NewService(
		NewForum(mt, forumURL),
		NewFeed(mt, "https://feed.test", ict, log),
		NewRSS(mt, ict, log),
		repo, cfg, log,
	)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC) }
	return svc, repo
}

func crawlTransport(t *testing.T) *mockTransport {
	return &mockTransport{responses: map[string]response{
		forumURL: {body: loadFixture(t, "testdata/forum_listing.html"), statusCode: 200},
		"https://feed.test/r/memes/hot.json?limit=25": {body: loadFixture(t, "testdata/feed_hot.json"), statusCode: 200},
		"https://feed.test/r/funny/hot.json?limit=25": {statusCode: 429},
		"https://example.com/rss":                     {body: loadFixture(t, "testdata/sample.xml"), statusCode: 200},
		"https://voz.vn/t/lam-van-phong-ma-luong-khong-du-tieu.1012345/": {body: loadFixture(t, "testdata/forum_thread.html"), statusCode: 200},
	}}
}

func TestCrawlForumIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, crawlTransport(t), Config{})

	first, err := svc.CrawlForum(ctx)
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if first.Total != 2 || first.New != 2 {
		t.Errorf("first crawl total=%d new=%d, want 2/2", first.Total, first.New)
	}
	if first.SourceURL != forumURL || first.CrawledAt != "2025-03-01T09:00:00+07:00" {
		t.Errorf("unexpected summary header: %+v", first)
	}

	second, err := svc.CrawlForum(ctx)
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if second.Total != 2 || second.New != 0 {
		t.Errorf("second crawl total=%d new=%d, want 2/0", second.Total, second.New)
	}
}

func TestCrawlForumFailure(t *testing.T) {
	mt := &mockTransport{responses: map[string]response{forumURL: {statusCode: 503}}}
	svc, _ := newTestService(t, mt, Config{})

	sum, err := svc.CrawlForum(context.Background())
	if err != nil {
		t.Fatalf("upstream failure should be reported in the summary, got %v", err)
	}
	if sum.Error == "" || sum.Total != 0 || sum.Threads == nil {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

func TestCrawlFeedWithFilters(t *testing.T) {
	rules, err := filter.Parse("exclude:lương")
	if err != nil {
		t.Fatalf("parse rules: %v", err)
	}
	svc, repo := newTestService(t, crawlTransport(t), Config{Communities: []string{"funny"}, Filters: rules})

	sum, err := svc.CrawlFeed(context.Background(), []string{"memes", "funny"})
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if diff := cmp.Diff([]string{"memes", "funny"}, sum.Communities); diff != "" {
		t.Errorf("communities mismatch (-want +got):\n%s", diff)
	}
	if sum.Total != 2 || sum.New != 2 {
		t.Errorf("total=%d new=%d, want 2/2", sum.Total, sum.New)
	}
	if _, err := repo.GetThread(context.Background(), "feed-def456"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("filtered thread was saved: %v", err)
	}

	defaults, err := svc.CrawlFeed(context.Background(), nil)
	if err != nil {
		t.Fatalf("crawl defaults: %v", err)
	}
	if diff := cmp.Diff([]string{"funny"}, defaults.Communities); diff != "" {
		t.Errorf("default communities mismatch (-want +got):\n%s", diff)
	}
}

func TestCrawlAll(t *testing.T) {
	svc, _ := newTestService(t, crawlTransport(t), Config{
		Communities: []string{"memes"},
		RSSFeeds:    []string{"https://example.com/rss"},
	})

	all, err := svc.CrawlAll(context.Background())
	if err != nil {
		t.Fatalf("crawl all: %v", err)
	}
	if all.TotalNew != 2+3+2 {
		t.Errorf("total new = %d, want 7", all.TotalNew)
	}
	for _, src := range []model.Source{model.SourceForum, model.SourceFeed, model.SourceRSS} {
		if all.Results[src] == nil {
			t.Errorf("missing %s result", src)
		}
	}
}

func TestCrawlLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "crawl.lock")
	svc, _ := newTestService(t, crawlTransport(t), Config{LockPath: lockPath})

	if err := svc.acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := svc.CrawlForum(context.Background()); !errors.Is(err, ErrCrawlInProgress) {
		t.Errorf("expected ErrCrawlInProgress in process, got %v", err)
	}
	svc.release()

	other, _ := newTestService(t, crawlTransport(t), Config{LockPath: lockPath})
	if err := other.acquire(); err != nil {
		t.Fatalf("acquire other: %v", err)
	}
	if _, err := svc.CrawlAll(context.Background()); !errors.Is(err, ErrCrawlInProgress) {
		t.Errorf("expected ErrCrawlInProgress across lock holders, got %v", err)
	}
	other.release()

	if _, err := svc.CrawlForum(context.Background()); err != nil {
		t.Errorf("crawl after release: %v", err)
	}
}

func TestThreadContent(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t, crawlTransport(t), Config{})
	if _, err := svc.CrawlForum(ctx); err != nil {
		t.Fatalf("crawl: %v", err)
	}

	content, source, err := svc.ThreadContent(ctx, "forum-1012345")
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	if source != model.SourceForum || content == NoContentMessage {
		t.Errorf("unexpected content %q from %s", content, source)
	}
	stored, _ := repo.GetThread(ctx, "forum-1012345")
	if stored.Content != content {
		t.Errorf("fetched content was not saved")
	}

	// No route for this thread's page: falls back to the placeholder.
	content, _, err = svc.ThreadContent(ctx, "forum-ca032cff81")
	if err != nil || content != NoContentMessage {
		t.Errorf("expected placeholder, got %q, %v", content, err)
	}

	if _, _, err := svc.ThreadContent(ctx, "forum-missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
