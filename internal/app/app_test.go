package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"affiliate_shoppe/internal/config"
	"affiliate_shoppe/internal/logging"
	"affiliate_shoppe/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		ListenAddr:        ":0",
		GeminiModel:       "gemini-2.5-flash",
		StoreBackend:      config.BackendSQLite,
		DatabasePath:      filepath.Join(dir, "data", "documents.db"),
		ForumURL:          "https://voz.vn/f/chuyen-tro-linh-tinh.17/",
		FeedCommunities:   []string{"funny"},
		CrawlLockPath:     filepath.Join(dir, "locks", "crawl.lock"),
		ShortenerStrategy: config.StrategyRandom,
		ContentLanguage:   language.Vietnamese,
		DefaultPersona:    config.DefaultPersona,
		Timezone:          "Asia/Ho_Chi_Minh",
		CORSOrigins:       []string{"*"},
	}
}

func TestNewSQLiteBackend(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	if got := a.Docs.Backend(); got != "sqlite" {
		t.Errorf("document backend = %q, want sqlite", got)
	}
	if a.Generator.Configured() {
		t.Error("generator should be unconfigured without a key")
	}
	if a.Publisher.Configured() {
		t.Error("publisher should be unconfigured without a token")
	}
	if a.Scheduler.Enabled() {
		t.Error("scheduler should be disabled without schedules")
	}

	ctx := context.Background()
	if n := a.Store.SaveThreads(ctx, []model.Thread{{ID: "forum-1", Source: model.SourceForum, Title: "t"}}); n != 1 {
		t.Fatalf("save threads = %d, want 1", n)
	}
	if err := a.KV.Set(ctx, "counters/total_posts", 1); err != nil {
		t.Fatalf("kv set: %v", err)
	}
	got, err := a.KV.Get(ctx, "counters/total_posts")
	if err != nil || got != float64(1) {
		t.Errorf("kv get = %v, %v", got, err)
	}
}

func TestNewLogsGeneratorState(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want []string
	}{
		{
			name: "missing key",
			want: []string{`"component":"app"`, "GEMINI_KEY not set"},
		},
		{
			name: "configured",
			key:  "k",
			want: []string{"generator ready", `"model":"gemini-2.5-flash"`, `"language":"vi"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.GeminiKey = tt.key
			var buf bytes.Buffer
			a, err := New(cfg, nil, logging.New(&buf, "debug", "json"))
			if err != nil {
				t.Fatalf("new app: %v", err)
			}
			t.Cleanup(func() { _ = a.Close() })

			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("expected log to contain %s, got:\n%s", w, out)
				}
			}
		})
	}
}

func TestNewFirestoreBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreBackend = config.BackendFirestore
	cfg.FirebaseProjectID = "shoppe-test"
	cfg.RTDBURL = "https://shoppe-test-default-rtdb.firebaseio.com"

	a, err := New(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	if got := a.Docs.Backend(); got != "firestore" {
		t.Errorf("document backend = %q, want firestore", got)
	}
	if a.conn != nil {
		t.Error("firestore backend should not open a local database")
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.CrawlSchedule = "not a schedule"
	if _, err := New(cfg, nil, logging.NewNop()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
