// Package server exposes crawling, generation, campaigns, links and
// publishing over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"affiliate_shoppe/internal/config"
	"affiliate_shoppe/internal/crawler"
	"affiliate_shoppe/internal/generator"
	"affiliate_shoppe/internal/kvstore"
	"affiliate_shoppe/internal/model"
	"affiliate_shoppe/internal/publisher"
	"affiliate_shoppe/internal/shortener"
	"affiliate_shoppe/internal/storage"
)

// AppName and Version are reported by the root endpoint.
const (
	AppName = "Affiliate Shoppe — Bait & Hook"
	Version = "3.0.0"
)

const maxBodyBytes = 1 << 20

// Crawler runs source crawls and lazy content fetches.
type Crawler interface {
	CrawlForum(ctx context.Context) (*model.CrawlSummary, error)
	CrawlFeed(ctx context.Context, communities []string) (*model.CrawlSummary, error)
	CrawlRSS(ctx context.Context) (*model.CrawlSummary, error)
	CrawlAll(ctx context.Context) (*crawler.AllSummary, error)
	ThreadContent(ctx context.Context, id string) (string, model.Source, error)
}

// Generator produces Bait/Hook pairs.
type Generator interface {
	Configured() bool
	Language() language.Tag
	Generate(ctx context.Context, req generator.Request) (*generator.Result, error)
}

// Shortener shortens URLs.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) shortener.Result
}

// Publisher posts campaigns and reports its state.
type Publisher interface {
	Configured() bool
	Publish(ctx context.Context, id string) (*model.Campaign, error)
	Status(ctx context.Context) (*publisher.Status, error)
	SetAutoMode(ctx context.Context, on bool) (*publisher.Status, error)
	Log(ctx context.Context, limit int) ([]publisher.LogEntry, error)
}

// Deps are the components the API is built from.
type Deps struct {
	Config    *config.Config
	Store     storage.Storage
	KV        kvstore.Store
	Crawler   Crawler
	Generator Generator
	Shortener Shortener
	Publisher Publisher
	Logger    *slog.Logger
}

// API holds the HTTP handlers.
type API struct {
	cfg       *config.Config
	store     storage.Storage
	kv        kvstore.Store
	crawler   Crawler
	generator Generator
	shortener Shortener
	publisher Publisher
	log       *slog.Logger
	languages language.Matcher
	supported []language.Tag
}

// New creates the API.
func New(d Deps) *API {
	a := &API{
		cfg:       d.Config,
		store:     d.Store,
		kv:        d.KV,
		crawler:   d.Crawler,
		generator: d.Generator,
		shortener: d.Shortener,
		publisher: d.Publisher,
		log:       d.Logger,
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	for _, tag := range []language.Tag{a.cfg.ContentLanguage, language.Vietnamese, language.English} {
		if tag != language.Und && !slices.Contains(a.supported, tag) {
			a.supported = append(a.supported, tag)
		}
	}
	a.languages = language.NewMatcher(a.supported)
	return a
}

// Routes returns the root handler with middleware applied.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.handleRoot)

	mux.HandleFunc("GET /api/crawl/forum", a.handleCrawlForum)
	mux.HandleFunc("GET /api/crawl/feed", a.handleCrawlFeed)
	mux.HandleFunc("GET /api/crawl/rss", a.handleCrawlRSS)
	mux.HandleFunc("GET /api/crawl/all", a.handleCrawlAll)

	mux.HandleFunc("GET /api/threads", a.handleListThreads)
	mux.HandleFunc("GET /api/threads/{id}", a.handleGetThread)
	mux.HandleFunc("GET /api/threads/{id}/content", a.handleThreadContent)
	mux.HandleFunc("DELETE /api/threads/{id}", a.handleDeleteThread)

	mux.HandleFunc("POST /api/ai/generate", a.handleGenerate)
	mux.HandleFunc("POST /api/ai/generate-from-thread/{id}", a.handleGenerateFromThread)

	mux.HandleFunc("GET /api/campaigns", a.handleListCampaigns)
	mux.HandleFunc("GET /api/campaigns/{id}", a.handleGetCampaign)
	mux.HandleFunc("PATCH /api/campaigns/{id}", a.handleUpdateCampaign)
	mux.HandleFunc("DELETE /api/campaigns/{id}", a.handleDeleteCampaign)
	mux.HandleFunc("POST /api/campaigns/{id}/publish", a.handlePublishCampaign)

	mux.HandleFunc("GET /api/links", a.handleListLinks)
	mux.HandleFunc("POST /api/links", a.handleCreateLink)
	mux.HandleFunc("DELETE /api/links/{id}", a.handleDeleteLink)
	mux.HandleFunc("POST /api/links/shorten", a.handleShorten)
	mux.HandleFunc("GET /api/links/random", a.handleRandomLink)

	mux.HandleFunc("GET /api/stats", a.handleStats)

	mux.HandleFunc("GET /api/publisher", a.handlePublisherStatus)
	mux.HandleFunc("PATCH /api/publisher", a.handleUpdatePublisher)
	mux.HandleFunc("GET /api/publisher/log", a.handlePublisherLog)

	return a.withCORS(a.withLogging(a.withRecover(withJSON(mux))))
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (a *API) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("api server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func withJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

func (a *API) withCORS(next http.Handler) http.Handler {
	allowAll := slices.Contains(a.cfg.CORSOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || slices.Contains(a.cfg.CORSOrigins, origin)) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept-Language")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (a *API) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

func (a *API) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				a.log.Error("handler panic", "method", r.Method, "path", r.URL.Path, "panic", v)
				respondErr(w, http.StatusInternalServerError, errors.New("internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondErr(w http.ResponseWriter, code int, err error) {
	respondJSON(w, code, map[string]any{"error": err.Error()})
}

func decodeJSON(r *http.Request, out any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, crawler.ErrCrawlInProgress), errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, generator.ErrNotConfigured), errors.Is(err, publisher.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// pageParams reads limit and offset. limit must be within 1..maxLimit.
func pageParams(r *http.Request, def, maxLimit int) (int, int, error) {
	limit, offset := def, 0
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxLimit {
			return 0, 0, fmt.Errorf("limit must be between 1 and %d", maxLimit)
		}
		limit = n
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
		offset = n
	}
	return limit, offset, nil
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// requestLanguage negotiates the content language from Accept-Language.
func (a *API) requestLanguage(r *http.Request) language.Tag {
	header := r.Header.Get("Accept-Language")
	if header == "" {
		return language.Und
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return language.Und
	}
	_, idx, conf := a.languages.Match(tags...)
	if conf == language.No {
		return language.Und
	}
	return a.supported[idx]
}
