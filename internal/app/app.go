// Package app builds the application's components from configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"affiliate_shoppe/internal/config"
	"affiliate_shoppe/internal/crawler"
	"affiliate_shoppe/internal/db"
	"affiliate_shoppe/internal/docstore"
	"affiliate_shoppe/internal/filter"
	"affiliate_shoppe/internal/generator"
	"affiliate_shoppe/internal/kvstore"
	"affiliate_shoppe/internal/llm"
	"affiliate_shoppe/internal/logging"
	"affiliate_shoppe/internal/publisher"
	"affiliate_shoppe/internal/scheduler"
	"affiliate_shoppe/internal/server"
	"affiliate_shoppe/internal/shortener"
	"affiliate_shoppe/internal/storage"
)

// App holds every wired component.
type App struct {
	Config    *config.Config
	Docs      docstore.Store
	KV        kvstore.Store
	Store     *storage.Repository
	Crawler   *crawler.Service
	Generator *generator.Generator
	Shortener *shortener.Shortener
	Publisher *publisher.Publisher
	Scheduler *scheduler.Scheduler
	API       *server.API

	conn *sql.DB
	log  *slog.Logger
}

// New wires the application. client is used for every outbound call; nil
// means http.DefaultClient.
func New(cfg *config.Config, client *http.Client, log *slog.Logger) (*App, error) {
	if client == nil {
		client = http.DefaultClient
	}
	a := &App{Config: cfg, log: logging.Component(log, "app")}

	if err := a.openStores(client); err != nil {
		return nil, err
	}

	loc := cfg.Location()
	a.Store = storage.New(a.Docs, storage.Options{
		Location:     loc,
		StrictStatus: cfg.StrictCampaignStatus,
		Logger:       logging.Component(log, "storage"),
	})

	filters, err := filter.Compile(cfg.ThreadFilters)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("compile thread filters: %w", err)
	}
	if cfg.CrawlLockPath != "" {
		if err := ensureDir(cfg.CrawlLockPath); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	crawlLog := logging.Component(log, "crawler")
	a.Crawler = crawler.NewService(
		crawler.NewForum(client, cfg.ForumURL),
		crawler.NewFeed(client, "", loc, crawlLog),
		crawler.NewRSS(client, loc, crawlLog),
		a.Store,
		crawler.Config{
			Communities: cfg.FeedCommunities,
			RSSFeeds:    cfg.RSSFeeds,
			Filters:     filters,
			LockPath:    cfg.CrawlLockPath,
			Location:    loc,
		},
		crawlLog,
	)

	completer := llm.NewClient(llm.Config{
		APIKey:  cfg.GeminiKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
	}, client)
	a.Generator = generator.New(completer, generator.Options{
		DefaultPersona: cfg.DefaultPersona,
		Language:       cfg.ContentLanguage,
		Logger:         logging.Component(log, "generator"),
	})
	if cfg.GeminiConfigured() {
		a.log.Info("generator ready", "model", completer.Model(), "language", a.Generator.Language().String())
	} else {
		a.log.Warn("GEMINI_KEY not set, generation requests will fail with 503")
	}

	a.Shortener = shortener.New(client, cfg.ShortenerStrategy, logging.Component(log, "shortener"))

	a.Publisher, err = publisher.New(publisher.Config{
		Token:    cfg.TelegramBotToken,
		Channel:  cfg.TelegramChannel,
		Location: loc,
	}, a.Store, a.KV, logging.Component(log, "publisher"))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if a.Publisher.Configured() {
		a.log.Info("publisher ready", "channel", a.Publisher.Channel())
	}

	a.Scheduler, err = scheduler.New(scheduler.Config{
		CrawlSchedule:   cfg.CrawlSchedule,
		PublishSchedule: cfg.PublishSchedule,
		Location:        loc,
	}, a.Crawler, a.Publisher, logging.Component(log, "scheduler"))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.API = server.New(server.Deps{
		Config:    cfg,
		Store:     a.Store,
		KV:        a.KV,
		Crawler:   a.Crawler,
		Generator: a.Generator,
		Shortener: a.Shortener,
		Publisher: a.Publisher,
		Logger:    logging.Component(log, "server"),
	})
	return a, nil
}

// openStores picks the document and key-value backends.
func (a *App) openStores(client *http.Client) error {
	cfg := a.Config
	if cfg.StoreBackend == config.BackendSQLite {
		if err := ensureDir(cfg.DatabasePath); err != nil {
			return err
		}
		conn, err := db.Open(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
		}
		a.conn = conn
	}

	switch cfg.StoreBackend {
	case config.BackendSQLite:
		a.Docs = docstore.NewSQLite(a.conn)
	default:
		base := cfg.FirestoreURL
		if base == "" {
			base = docstore.FirestoreURL(cfg.FirebaseProjectID)
		}
		a.Docs = docstore.NewFirestore(client, base, cfg.FirebaseAPIKey)
	}

	switch {
	case cfg.RTDBURL != "":
		a.KV = kvstore.NewRTDB(client, cfg.RTDBURL, cfg.FirebaseAPIKey)
	case a.conn != nil:
		a.KV = kvstore.NewSQLite(a.conn)
	default:
		a.log.Warn("no key-value backend configured, publisher state is kept in memory")
		a.KV = kvstore.NewMemory()
	}
	a.log.Info("open stores", "documents", a.Docs.Backend(), "kv", fmt.Sprintf("%T", a.KV))
	return nil
}

// Run serves the API and runs the scheduler until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	if a.Scheduler.Enabled() {
		go func() {
			defer close(done)
			a.Scheduler.Run(ctx)
		}()
	} else {
		close(done)
	}

	err := a.API.Serve(ctx, a.Config.ListenAddr)
	cancel()
	<-done
	return err
}

// Close releases the local database.
func (a *App) Close() error {
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	return err
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
