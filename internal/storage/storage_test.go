package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"affiliate_shoppe/internal/docstore"
	"affiliate_shoppe/internal/logging"
	"affiliate_shoppe/internal/model"
)

var testLoc = time.FixedZone("ICT", 7*60*60)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestRepo(t *testing.T, strict bool) (*Repository, docstore.Store) {
	t.Helper()
	store, err := docstore.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	clock := &testClock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	return New(store, Options{
		Location:     testLoc,
		StrictStatus: strict,
		Logger:       logging.NewNop(),
		Now:          clock.now,
	}), store
}

func TestSaveThreadsDedup(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t, false)

	batch := []model.Thread{
		{ID: "forum-1", Source: model.SourceForum, Title: "first", Replies: 3},
		{ID: "", Title: "no id"},
		{ID: "feed-abc", Source: model.SourceFeed, Title: "post", Author: "u/someone", Views: "2.5K", SentToAI: true},
	}
	if got := repo.SaveThreads(ctx, batch); got != 2 {
		t.Fatalf("first save = %d, want 2", got)
	}
	before, err := repo.GetThread(ctx, "forum-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	batch[0].Title = "changed"
	if got := repo.SaveThreads(ctx, batch); got != 0 {
		t.Fatalf("second save = %d, want 0", got)
	}
	after, err := repo.GetThread(ctx, "forum-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("existing thread was overwritten (-want +got):\n%s", diff)
	}

	want := &model.Thread{
		ID:        "forum-1",
		Source:    model.SourceForum,
		Title:     "first",
		Author:    model.DefaultAuthor,
		Replies:   3,
		Views:     "0",
		CrawledAt: "2025-03-01T15:01:00+07:00",
	}
	if diff := cmp.Diff(want, before); diff != "" {
		t.Errorf("canonical thread mismatch (-want +got):\n%s", diff)
	}

	feed, err := repo.GetThread(ctx, "feed-abc")
	if err != nil {
		t.Fatalf("get feed thread: %v", err)
	}
	if feed.SentToAI || feed.Author != "u/someone" || feed.Views != "2.5K" {
		t.Errorf("unexpected canonical feed thread: %+v", feed)
	}
}

type flakyStore struct {
	docstore.Store
	failGet string
}

func (f *flakyStore) Get(ctx context.Context, collection, id string) (docstore.Record, error) {
	if id == f.failGet {
		return nil, errors.New("unexpected status 503")
	}
	return f.Store.Get(ctx, collection, id)
}

func TestSaveThreadsSkipsUnknownExistence(t *testing.T) {
	ctx := context.Background()
	_, base := newTestRepo(t, false)
	repo := New(&flakyStore{Store: base, failGet: "forum-2"}, Options{Logger: logging.NewNop()})

	got := repo.SaveThreads(ctx, []model.Thread{{ID: "forum-1"}, {ID: "forum-2"}})
	if got != 1 {
		t.Fatalf("saved = %d, want 1", got)
	}
	if _, err := base.Get(ctx, model.CollectionThreads, "forum-2"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("expected forum-2 to be skipped, got %v", err)
	}
}

func TestListThreads(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t, false)

	repo.SaveThreads(ctx, []model.Thread{
		{ID: "forum-1", Source: model.SourceForum},
		{ID: "feed-1", Source: model.SourceFeed},
		{ID: "forum-2", Source: model.SourceForum},
		{ID: "forum-3", Source: model.SourceForum},
	})
	if err := repo.DeleteThread(ctx, "forum-2"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	ids := func(ts []model.Thread) []string {
		var out []string
		for _, t := range ts {
			out = append(out, t.ID)
		}
		return out
	}

	got, total, err := repo.ListThreads(ctx, ThreadQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"forum-3", "feed-1", "forum-1"}, ids(got)); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}

	got, total, err = repo.ListThreads(ctx, ThreadQuery{Source: model.SourceForum, Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list forum: %v", err)
	}
	if diff := cmp.Diff([]string{"forum-1"}, ids(got)); diff != "" {
		t.Errorf("paged list mismatch (-want +got):\n%s", diff)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}

	got, _, err = repo.ListThreads(ctx, ThreadQuery{Offset: 10})
	if err != nil || len(got) != 0 {
		t.Errorf("expected empty page past the end, got %v, %v", got, err)
	}
}

func TestSoftDeleteKeepsRecord(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t, false)
	repo.SaveThreads(ctx, []model.Thread{{ID: "forum-9", Source: model.SourceForum, Title: "kept"}})

	if err := repo.DeleteThread(ctx, "forum-9"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rec, err := store.Get(ctx, model.CollectionThreads, "forum-9")
	if err != nil {
		t.Fatalf("record should still exist: %v", err)
	}
	if !rec.Bool("deleted") || rec.String("title") != "kept" {
		t.Errorf("unexpected record after soft delete: %v", rec)
	}

	if err := repo.DeleteThread(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestThreadMutations(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t, false)
	repo.SaveThreads(ctx, []model.Thread{{ID: "forum-5", Source: model.SourceForum, Title: "t"}})

	updated, err := repo.SetThreadContent(ctx, "forum-5", "body text")
	if err != nil {
		t.Fatalf("set content: %v", err)
	}
	if updated.Content != "body text" {
		t.Errorf("content = %q", updated.Content)
	}
	if err := repo.MarkSentToAI(ctx, "forum-5"); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	got, err := repo.GetThread(ctx, "forum-5")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "body text" || !got.SentToAI {
		t.Errorf("mutations not persisted: %+v", got)
	}
}

func TestCampaignLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t, false)

	c := &model.Campaign{BaitContent: "bait", HookComment: "hook", ProductName: "Tai nghe", Status: model.StatusPosted}
	if err := repo.CreateCampaign(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(c.ID, "camp-") || len(c.ID) != len("camp-")+12 {
		t.Errorf("unexpected id %q", c.ID)
	}
	if c.Status != model.StatusDraft {
		t.Errorf("status = %q, want draft", c.Status)
	}

	got, err := repo.GetCampaign(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(c, got); diff != "" {
		t.Errorf("campaign mismatch (-want +got):\n%s", diff)
	}

	// Lenient mode stores any status verbatim.
	updated, err := repo.UpdateCampaignStatus(ctx, c.ID, "archived-by-hand")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != "archived-by-hand" {
		t.Errorf("status = %q", updated.Status)
	}
	got, _ = repo.GetCampaign(ctx, c.ID)
	if got.Status != "archived-by-hand" || got.BaitContent != "bait" {
		t.Errorf("update lost fields: %+v", got)
	}

	if _, err := repo.UpdateCampaignStatus(ctx, "camp-missing", model.StatusApproved); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := repo.DeleteCampaign(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetCampaign(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected hard delete, got %v", err)
	}
}

func TestStrictCampaignStatus(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t, true)

	c := &model.Campaign{ProductName: "p"}
	if err := repo.CreateCampaign(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.UpdateCampaignStatus(ctx, c.ID, model.StatusPosted); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("draft -> posted: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := repo.UpdateCampaignStatus(ctx, c.ID, "whatever"); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("unknown status: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := repo.UpdateCampaignStatus(ctx, c.ID, model.StatusApproved); err != nil {
		t.Errorf("draft -> approved: %v", err)
	}
}

func TestListCampaigns(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t, false)

	var ids []string
	for i := 0; i < 3; i++ {
		c := &model.Campaign{ProductName: "p"}
		if err := repo.CreateCampaign(ctx, c); err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, c.ID)
	}
	if _, err := repo.UpdateCampaignStatus(ctx, ids[1], model.StatusApproved); err != nil {
		t.Fatalf("update: %v", err)
	}

	all, total, err := repo.ListCampaigns(ctx, CampaignQuery{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(all) != 2 || all[0].ID != ids[2] {
		t.Errorf("unexpected page: total=%d ids=%v", total, all)
	}

	approved, total, err := repo.ListCampaigns(ctx, CampaignQuery{Status: model.StatusApproved})
	if err != nil {
		t.Fatalf("list approved: %v", err)
	}
	if total != 1 || approved[0].ID != ids[1] {
		t.Errorf("unexpected approved list: %v", approved)
	}
}

func TestLinks(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t, false)

	if _, err := repo.RandomLink(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound with no links, got %v", err)
	}

	tech := &model.AffiliateLink{Name: "Tai nghe", OriginalURL: "https://shopee.vn/a", ShortenedURL: "https://tinyurl.com/x", Shortener: "tinyurl", Clicks: 9}
	home := &model.AffiliateLink{Name: "Nồi chiên", OriginalURL: "https://shopee.vn/b", CollectionName: "🏠 Nhà cửa"}
	for _, l := range []*model.AffiliateLink{tech, home} {
		if err := repo.CreateLink(ctx, l); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if !strings.HasPrefix(tech.ID, "aff-") || len(tech.ID) != len("aff-")+10 {
		t.Errorf("unexpected id %q", tech.ID)
	}
	if tech.CollectionName != model.DefaultLinkCollection || tech.Clicks != 0 {
		t.Errorf("defaults not applied: %+v", tech)
	}
	if home.ShortenedURL != home.OriginalURL || home.Shortener != model.ShortenerNone {
		t.Errorf("expected passthrough link, got %+v", home)
	}

	all, err := repo.ListLinks(ctx, model.AllLinkCollections)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != home.ID {
		t.Errorf("expected newest first, got %v", all)
	}

	filtered, err := repo.ListLinks(ctx, "Nhà")
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if diff := cmp.Diff([]model.AffiliateLink{*home}, filtered); diff != "" {
		t.Errorf("filtered mismatch (-want +got):\n%s", diff)
	}

	random, err := repo.RandomLink(ctx)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if random.ID != tech.ID && random.ID != home.ID {
		t.Errorf("unexpected random link %q", random.ID)
	}

	if err := repo.DeleteLink(ctx, tech.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ = repo.ListLinks(ctx, "")
	if len(all) != 1 {
		t.Errorf("expected one link after delete, got %d", len(all))
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t, false)

	repo.SaveThreads(ctx, []model.Thread{
		{ID: "forum-1", Source: model.SourceForum},
		{ID: "forum-2", Source: model.SourceForum},
		{ID: "feed-1", Source: model.SourceFeed},
		{ID: "rss-1", Source: model.SourceRSS},
	})
	_ = repo.DeleteThread(ctx, "forum-2")

	for _, status := range []model.CampaignStatus{model.StatusDraft, model.StatusApproved, model.StatusFailed} {
		c := &model.Campaign{}
		if err := repo.CreateCampaign(ctx, c); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := repo.UpdateCampaignStatus(ctx, c.ID, status); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	_ = repo.CreateLink(ctx, &model.AffiliateLink{OriginalURL: "https://shopee.vn/a"})

	got, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := &Stats{
		Forum:        1,
		Feed:         1,
		RSS:          1,
		TotalThreads: 3,
		Campaigns:    CampaignCounts{Total: 3, Draft: 1, Approved: 1, Failed: 1},
		Links:        1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	if repo.Backend() != "sqlite" {
		t.Errorf("backend = %q", repo.Backend())
	}
}
