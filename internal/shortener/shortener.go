// Package shortener rotates between public URL shortening services.
package shortener

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"affiliate_shoppe/internal/config"
	"affiliate_shoppe/internal/model"
)

const requestTimeout = 5 * time.Second

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Service is one shortening endpoint. The long URL is appended to Endpoint.
type Service struct {
	Name     string
	Endpoint string
}

// Services lists the supported providers; the first one is the fallback.
var Services = []Service{
	{Name: "tinyurl", Endpoint: "https://tinyurl.com/api-create.php?url="},
	{Name: "is.gd", Endpoint: "https://is.gd/create.php?format=simple&url="},
	{Name: "clck.ru", Endpoint: "https://clck.ru/--?url="},
}

// Result is the outcome of a Shorten call.
type Result struct {
	Shortened string `json:"shortened"`
	Service   string `json:"service"`
}

// Shortener picks a service per call according to its strategy.
type Shortener struct {
	client   HTTPClient
	services []Service
	strategy string
	next     atomic.Uint64
	pick     func(n int) int
	log      *slog.Logger
}

// New creates a Shortener. An empty strategy means random.
func New(client HTTPClient, strategy string, log *slog.Logger) *Shortener {
	if strategy == "" {
		strategy = config.StrategyRandom
	}
	if log == nil {
		log = slog.Default()
	}
	return &Shortener{
		client:   client,
		services: Services,
		strategy: strategy,
		pick:     rand.IntN,
		log:      log,
	}
}

// Shorten returns a short form of longURL. When the chosen service and the
// fallback both fail, the original URL comes back with service "none".
func (s *Shortener) Shorten(ctx context.Context, longURL string) Result {
	chosen := s.choose()
	short, err := s.call(ctx, chosen, longURL)
	if err == nil {
		return Result{Shortened: short, Service: chosen.Name}
	}
	s.log.Warn("shorten url", "service", chosen.Name, "error", err)

	primary := s.services[0]
	if chosen.Name != primary.Name {
		short, err = s.call(ctx, primary, longURL)
		if err == nil {
			return Result{Shortened: short, Service: primary.Name}
		}
		s.log.Warn("shorten url", "service", primary.Name, "error", err)
	}
	return Result{Shortened: longURL, Service: model.ShortenerNone}
}

func (s *Shortener) choose() Service {
	switch s.strategy {
	case config.StrategyRoundRobin:
		i := s.next.Add(1) - 1
		return s.services[i%uint64(len(s.services))]
	case config.StrategyPriority:
		return s.services[0]
	default:
		return s.services[s.pick(len(s.services))]
	}
}

func (s *Shortener) call(ctx context.Context, svc Service, longURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.Endpoint+url.QueryEscape(longURL), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	short := strings.TrimSpace(string(body))
	if !strings.HasPrefix(short, "http") {
		return "", fmt.Errorf("unexpected response %q", truncate(short, 80))
	}
	return short, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
