package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"affiliate_shoppe/internal/filter"
	"affiliate_shoppe/internal/model"
)

// ErrCrawlInProgress is returned when another crawl holds the lock.
var ErrCrawlInProgress = errors.New("crawl already in progress")

// NoContentMessage is returned for threads whose body cannot be fetched.
const NoContentMessage = "Không có nội dung chi tiết"

// ThreadStore is the persistence the crawler needs.
type ThreadStore interface {
	SaveThreads(ctx context.Context, threads []model.Thread) int
	GetThread(ctx context.Context, id string) (*model.Thread, error)
	SetThreadContent(ctx context.Context, id, content string) (*model.Thread, error)
}

// Config selects the sources a Service crawls.
type Config struct {
	Communities []string
	RSSFeeds    []string
	Filters     *filter.Set
	// LockPath enables a cross-process file lock when set.
	LockPath string
	Location *time.Location
}

// AllSummary is the result of crawling every source.
type AllSummary struct {
	Results   map[model.Source]*model.CrawlSummary `json:"results"`
	TotalNew  int                                  `json:"totalNew"`
	CrawledAt string                               `json:"crawledAt"`
}

// Service runs crawls and persists their threads.
type Service struct {
	forum *Forum
	feed  *Feed
	rss   *RSS
	store ThreadStore
	cfg   Config
	log   *slog.Logger
	now   func() time.Time

	mu   sync.Mutex
	lock *flock.Flock
}

// NewService wires the adapters to a thread store.
func NewService(forum *Forum, feed *Feed, rss *RSS, store ThreadStore, cfg Config, log *slog.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		forum: forum,
		feed:  feed,
		rss:   rss,
		store: store,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
	if cfg.LockPath != "" {
		s.lock = flock.New(cfg.LockPath)
	}
	return s
}

// CrawlForum crawls the forum listing.
func (s *Service) CrawlForum(ctx context.Context) (*model.CrawlSummary, error) {
	return s.locked(ctx, func(ctx context.Context) *model.CrawlSummary {
		return s.crawlForum(ctx)
	})
}

// CrawlFeed crawls the given communities, or the configured ones when empty.
func (s *Service) CrawlFeed(ctx context.Context, communities []string) (*model.CrawlSummary, error) {
	return s.locked(ctx, func(ctx context.Context) *model.CrawlSummary {
		return s.crawlFeed(ctx, communities)
	})
}

// CrawlRSS crawls the configured RSS feeds.
func (s *Service) CrawlRSS(ctx context.Context) (*model.CrawlSummary, error) {
	return s.locked(ctx, func(ctx context.Context) *model.CrawlSummary {
		return s.crawlRSS(ctx)
	})
}

// CrawlAll crawls every source in turn under one lock.
func (s *Service) CrawlAll(ctx context.Context) (*AllSummary, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	results := map[model.Source]*model.CrawlSummary{
		model.SourceForum: s.crawlForum(ctx),
		model.SourceFeed:  s.crawlFeed(ctx, nil),
		model.SourceRSS:   s.crawlRSS(ctx),
	}
	all := &AllSummary{Results: results, CrawledAt: s.timestamp()}
	for _, r := range results {
		all.TotalNew += r.New
	}
	s.log.Info("crawl all", "new", all.TotalNew)
	return all, nil
}

// ThreadContent returns a thread's body. Forum threads without stored content
// are fetched on demand and the result is saved.
func (s *Service) ThreadContent(ctx context.Context, id string) (string, model.Source, error) {
	t, err := s.store.GetThread(ctx, id)
	if err != nil {
		return "", "", err
	}
	if t.Content != "" {
		return t.Content, t.Source, nil
	}
	if t.Source == model.SourceForum && t.URL != "" {
		content, err := s.forum.FetchContent(ctx, t.URL)
		if err != nil {
			s.log.Warn("fetch thread content", "id", id, "error", err)
		}
		if content != "" {
			if _, err := s.store.SetThreadContent(ctx, id, content); err != nil {
				s.log.Warn("save thread content", "id", id, "error", err)
			}
			return content, t.Source, nil
		}
	}
	return NoContentMessage, t.Source, nil
}

func (s *Service) crawlForum(ctx context.Context) *model.CrawlSummary {
	sum := s.summary(model.SourceForum, "Voz Forum", s.forum.URL())
	threads, err := s.forum.Fetch(ctx)
	if err != nil {
		s.log.Warn("crawl forum", "error", err)
		sum.Error = err.Error()
		return sum
	}
	return s.persist(ctx, sum, threads)
}

func (s *Service) crawlFeed(ctx context.Context, communities []string) *model.CrawlSummary {
	if len(communities) == 0 {
		communities = s.cfg.Communities
	}
	sum := s.summary(model.SourceFeed, "Reddit", s.feed.URL())
	sum.Communities = communities
	return s.persist(ctx, sum, s.feed.Fetch(ctx, communities))
}

func (s *Service) crawlRSS(ctx context.Context) *model.CrawlSummary {
	sum := s.summary(model.SourceRSS, "RSS", "")
	return s.persist(ctx, sum, s.rss.Fetch(ctx, s.cfg.RSSFeeds))
}

func (s *Service) summary(source model.Source, name, url string) *model.CrawlSummary {
	return &model.CrawlSummary{
		Source:     source,
		SourceName: name,
		SourceURL:  url,
		Threads:    []model.Thread{},
	}
}

// persist drops threads rejected by the filter rules, saves the rest and
// completes the summary.
func (s *Service) persist(ctx context.Context, sum *model.CrawlSummary, threads []model.Thread) *model.CrawlSummary {
	for _, t := range threads {
		if s.cfg.Filters.Allow(t) {
			sum.Threads = append(sum.Threads, t)
		}
	}
	if dropped := len(threads) - len(sum.Threads); dropped > 0 {
		s.log.Debug("filter threads", "source", sum.Source, "dropped", dropped)
	}
	sum.Total = len(sum.Threads)
	sum.New = s.store.SaveThreads(ctx, sum.Threads)
	sum.CrawledAt = s.timestamp()
	s.log.Info("crawl source", "source", sum.Source, "total", sum.Total, "new", sum.New)
	return sum
}

func (s *Service) timestamp() string {
	return s.now().In(s.cfg.Location).Format(time.RFC3339)
}

func (s *Service) locked(ctx context.Context, run func(context.Context) *model.CrawlSummary) (*model.CrawlSummary, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()
	return run(ctx), nil
}

// acquire takes the in-process mutex and, when configured, the file lock.
func (s *Service) acquire() error {
	if !s.mu.TryLock() {
		return ErrCrawlInProgress
	}
	if s.lock == nil {
		return nil
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("lock %s: %w", s.cfg.LockPath, err)
	}
	if !ok {
		s.mu.Unlock()
		return ErrCrawlInProgress
	}
	return nil
}

func (s *Service) release() {
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			s.log.Warn("unlock crawl", "path", s.cfg.LockPath, "error", err)
		}
	}
	s.mu.Unlock()
}
