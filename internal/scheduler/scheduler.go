// Package scheduler runs periodic crawls and automatic publishing on cron
// schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"affiliate_shoppe/internal/crawler"
	"affiliate_shoppe/internal/model"
)

// Crawler runs a crawl of every source.
type Crawler interface {
	CrawlAll(ctx context.Context) (*crawler.AllSummary, error)
}

// Publisher publishes waiting campaigns.
type Publisher interface {
	Configured() bool
	AutoMode(ctx context.Context) (bool, error)
	PublishNext(ctx context.Context) (*model.Campaign, error)
	SetNextPostAt(ctx context.Context, at time.Time) error
}

// Config holds the cron expressions. An empty expression disables its job.
type Config struct {
	CrawlSchedule   string
	PublishSchedule string
	Location        *time.Location
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron      *cron.Cron
	crawler   Crawler
	publisher Publisher
	crawlSpec string
	pubSpec   string
	pubSched  cron.Schedule
	log       *slog.Logger
	now       func() time.Time
}

// New validates the schedules and prepares the jobs.
func New(cfg Config, c Crawler, p Publisher, log *slog.Logger) (*Scheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		crawler:   c,
		publisher: p,
		crawlSpec: cfg.CrawlSchedule,
		pubSpec:   cfg.PublishSchedule,
		log:       log,
		now:       func() time.Time { return time.Now().In(loc) },
	}
	logger := cronLogger{log: log}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if s.crawlSpec != "" {
		if _, err := cron.ParseStandard(s.crawlSpec); err != nil {
			return nil, fmt.Errorf("parse crawl schedule: %w", err)
		}
	}
	if s.pubSpec != "" {
		sched, err := cron.ParseStandard(s.pubSpec)
		if err != nil {
			return nil, fmt.Errorf("parse publish schedule: %w", err)
		}
		s.pubSched = sched
	}
	return s, nil
}

// Enabled reports whether any job is scheduled.
func (s *Scheduler) Enabled() bool {
	return s.crawlSpec != "" || s.pubSpec != ""
}

// Run starts the jobs and blocks until ctx is cancelled and running jobs
// have finished.
func (s *Scheduler) Run(ctx context.Context) {
	if s.crawlSpec != "" {
		if _, err := s.cron.AddFunc(s.crawlSpec, func() { s.crawl(ctx) }); err != nil {
			s.log.Error("schedule crawl", "error", err)
		}
	}
	if s.pubSpec != "" {
		if _, err := s.cron.AddFunc(s.pubSpec, func() { s.publish(ctx) }); err != nil {
			s.log.Error("schedule publish", "error", err)
		}
		s.updateNext(ctx)
	}

	s.log.Info("starting scheduler", "crawl", s.crawlSpec, "publish", s.pubSpec)
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) crawl(ctx context.Context) {
	res, err := s.crawler.CrawlAll(ctx)
	if err != nil {
		s.log.Warn("scheduled crawl", "error", err)
		return
	}
	s.log.Info("scheduled crawl", "new", res.TotalNew)
}

func (s *Scheduler) publish(ctx context.Context) {
	defer s.updateNext(ctx)

	if !s.publisher.Configured() {
		s.log.Debug("scheduled publish skipped", "reason", "publisher not configured")
		return
	}
	on, err := s.publisher.AutoMode(ctx)
	if err != nil {
		s.log.Error("read auto mode", "error", err)
		return
	}
	if !on {
		return
	}

	c, err := s.publisher.PublishNext(ctx)
	if err != nil {
		s.log.Error("scheduled publish", "error", err)
		return
	}
	if c == nil {
		s.log.Debug("scheduled publish skipped", "reason", "no approved campaigns")
		return
	}
	s.log.Info("scheduled publish", "campaign_id", c.ID, "status", c.Status)
}

// updateNext stores the next publish time, or clears it while auto mode is off.
func (s *Scheduler) updateNext(ctx context.Context) {
	if s.pubSched == nil {
		return
	}
	var next time.Time
	on, err := s.publisher.AutoMode(ctx)
	if err != nil {
		s.log.Error("read auto mode", "error", err)
		return
	}
	if on && s.publisher.Configured() {
		next = s.pubSched.Next(s.now())
	}
	if err := s.publisher.SetNextPostAt(ctx, next); err != nil {
		s.log.Error("set next post time", "error", err)
	}
}

// cronLogger routes cron's internal messages to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron "+msg, append(keysAndValues, "error", err)...)
}
