// Package config handles application configuration from environment
// variables, an optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"affiliate_shoppe/internal/filter"
	"affiliate_shoppe/internal/model"
)

// Store backends.
const (
	BackendFirestore = "firestore"
	BackendSQLite    = "sqlite"
)

// Shortener strategies.
const (
	StrategyRandom     = "random"
	StrategyRoundRobin = "round_robin"
	StrategyPriority   = "priority"
)

// DefaultPersona is used when a generation request names no page persona.
const DefaultPersona = "Hội những người đi làm văn phòng"

// Config holds the application configuration.
type Config struct {
	ListenAddr string
	LogLevel   string
	LogFormat  string

	GeminiKey     string
	GeminiModel   string
	GeminiBaseURL string

	FirebaseProjectID string
	FirebaseAPIKey    string
	FirestoreURL      string
	RTDBURL           string
	StoreBackend      string
	DatabasePath      string

	ForumURL        string
	FeedCommunities []string
	RSSFeeds        []string
	ThreadFilters   []model.Filter
	CrawlLockPath   string

	ShortenerStrategy    string
	ContentLanguage      language.Tag
	DefaultPersona       string
	Timezone             string
	CORSOrigins          []string
	StrictCampaignStatus bool

	TelegramBotToken string
	TelegramChannel  string
	CrawlSchedule    string
	PublishSchedule  string
}

var defaults = map[string]any{
	"listen_addr":            ":8000",
	"log_level":              "info",
	"log_format":             "text",
	"gemini_model":           "gemini-2.5-flash",
	"gemini_base_url":        "https://generativelanguage.googleapis.com/v1beta/openai",
	"store_backend":          BackendFirestore,
	"database_path":          "./data/documents.db",
	"forum_url":              "https://voz.vn/f/chuyen-tro-linh-tinh.17/",
	"feed_communities":       "vozforums,VietNam,TroChuyenLinhTinh,funny,memes,AskReddit",
	"shortener_strategy":     StrategyRandom,
	"content_language":       "vi",
	"default_persona":        DefaultPersona,
	"timezone":               "Asia/Ho_Chi_Minh",
	"cors_origins":           "*",
	"strict_campaign_status": false,
	"crawl_lock_path":        "./data/crawl.lock",
}

// Load reads configuration. Sources, highest priority first: process
// environment, .env in the working directory, the file named by CONFIG_FILE
// or ./config.{yaml,toml,json}, built-in defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	tag, err := language.Parse(v.GetString("content_language"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONTENT_LANGUAGE %q: %w", v.GetString("content_language"), err)
	}

	filters, err := filter.ParseRules(v.GetString("thread_filters"))
	if err != nil {
		return nil, fmt.Errorf("invalid THREAD_FILTERS: %w", err)
	}

	cfg := &Config{
		ListenAddr:           v.GetString("listen_addr"),
		LogLevel:             strings.ToLower(v.GetString("log_level")),
		LogFormat:            strings.ToLower(v.GetString("log_format")),
		GeminiKey:            v.GetString("gemini_key"),
		GeminiModel:          v.GetString("gemini_model"),
		GeminiBaseURL:        v.GetString("gemini_base_url"),
		FirebaseProjectID:    v.GetString("firebase_project_id"),
		FirebaseAPIKey:       v.GetString("firebase_api_key"),
		FirestoreURL:         v.GetString("firestore_url"),
		RTDBURL:              v.GetString("rtdb_url"),
		StoreBackend:         strings.ToLower(v.GetString("store_backend")),
		DatabasePath:         v.GetString("database_path"),
		ForumURL:             v.GetString("forum_url"),
		FeedCommunities:      splitList(v.GetString("feed_communities")),
		RSSFeeds:             splitList(v.GetString("rss_feeds")),
		ThreadFilters:        filters,
		CrawlLockPath:        v.GetString("crawl_lock_path"),
		ShortenerStrategy:    strings.ToLower(v.GetString("shortener_strategy")),
		ContentLanguage:      tag,
		DefaultPersona:       v.GetString("default_persona"),
		Timezone:             v.GetString("timezone"),
		CORSOrigins:          splitList(v.GetString("cors_origins")),
		StrictCampaignStatus: v.GetBool("strict_campaign_status"),
		TelegramBotToken:     v.GetString("telegram_bot_token"),
		TelegramChannel:      v.GetString("telegram_channel"),
		CrawlSchedule:        v.GetString("crawl_schedule"),
		PublishSchedule:      v.GetString("publish_schedule"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be repaired by defaults.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFirestore:
		if c.FirebaseProjectID == "" && c.FirestoreURL == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID or FIRESTORE_URL is required for the firestore backend")
		}
	case BackendSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q, use: firestore, sqlite", c.StoreBackend)
	}

	switch c.ShortenerStrategy {
	case StrategyRandom, StrategyRoundRobin, StrategyPriority:
	default:
		return fmt.Errorf("invalid SHORTENER_STRATEGY %q, use: random, round_robin, priority", c.ShortenerStrategy)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q, use: text, json", c.LogFormat)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	if _, err := filter.Compile(c.ThreadFilters); err != nil {
		return fmt.Errorf("invalid THREAD_FILTERS: %w", err)
	}
	for name, spec := range map[string]string{"CRAWL_SCHEDULE": c.CrawlSchedule, "PUBLISH_SCHEDULE": c.PublishSchedule} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
	}
	if c.PublishSchedule != "" && !c.PublisherEnabled() {
		return fmt.Errorf("PUBLISH_SCHEDULE requires TELEGRAM_BOT_TOKEN and TELEGRAM_CHANNEL")
	}
	return nil
}

// Location returns the display time zone. Hosts without tzdata fall back to
// a fixed UTC+7 zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("load time zone, using UTC+7", "timezone", c.Timezone, "error", err)
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}

// GeminiConfigured reports whether a model credential is present.
func (c *Config) GeminiConfigured() bool {
	return c.GeminiKey != ""
}

// PublisherEnabled reports whether the Telegram publisher can be built.
func (c *Config) PublisherEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChannel != ""
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
