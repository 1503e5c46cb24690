package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jedib0t/go-pretty/v6/text"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type cliEnv struct {
	srv      *httptest.Server
	requests []recordedRequest
}

func setupCLITestEnv(t *testing.T, routes map[string]string) *cliEnv {
	t.Helper()
	env := &cliEnv{}
	env.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		env.requests = append(env.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   strings.TrimSpace(string(body)),
		})
		payload, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"Không tìm thấy chiến dịch"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, payload)
	}))
	t.Cleanup(env.srv.Close)
	return env
}

func runCLI(t *testing.T, env *cliEnv, terminal bool, args ...string) (string, error) {
	t.Helper()
	ctx := &commandContext{
		client:   env.srv.Client(),
		terminal: func(io.Writer) bool { return terminal },
	}
	cmd := newRootCommandWithContext(ctx)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--server", env.srv.URL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, out string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(out, p) {
			t.Errorf("expected output to contain %q, got:\n%s", p, out)
		}
	}
}

func TestCrawlCommand(t *testing.T) {
	env := setupCLITestEnv(t, map[string]string{
		"GET /api/crawl/feed": `{"source":"feed","total":3,"new":1,"threads":[]}`,
		"GET /api/crawl/all":  `{"results":{"rss":{"source":"rss","total":4,"new":0},"forum":{"source":"forum","total":20,"new":5,"error":"timeout"}},"totalNew":5}`,
	})

	out, err := runCLI(t, env, true, "crawl", "feed", "--subs", "deals,frugal")
	if err != nil {
		t.Fatalf("crawl feed: %v", err)
	}
	requireContains(t, out, "feed", "3", "1")

	out, err = runCLI(t, env, true, "crawl")
	if err != nil {
		t.Fatalf("crawl all: %v", err)
	}
	requireContains(t, out, "forum", "timeout", "rss")
	if strings.Index(out, "forum") > strings.Index(out, "rss") {
		t.Errorf("expected sources sorted by name, got:\n%s", out)
	}

	want := []recordedRequest{
		{Method: http.MethodGet, Path: "/api/crawl/feed", Query: "subs=deals%2Cfrugal"},
		{Method: http.MethodGet, Path: "/api/crawl/all"},
	}
	if diff := cmp.Diff(want, env.requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}

	if _, err := runCLI(t, env, true, "crawl", "tiktok"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestThreadsCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t, map[string]string{
		"GET /api/threads": `{"threads":[{"id":"forum_1","source":"forum","title":"Deal","replies":7,"views":"1.2K"}],"total":1}`,
	})

	out, err := runCLI(t, env, false, "threads", "--source", "forum", "--limit", "10")
	if err != nil {
		t.Fatalf("threads: %v", err)
	}
	var got struct {
		Threads []struct {
			ID      string `json:"id"`
			Replies int64  `json:"replies"`
		} `json:"threads"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("expected JSON output when not on a terminal: %v\n%s", err, out)
	}
	if got.Total != 1 || len(got.Threads) != 1 || got.Threads[0].ID != "forum_1" || got.Threads[0].Replies != 7 {
		t.Errorf("unexpected payload: %+v", got)
	}
	if q := env.requests[0].Query; q != "limit=10&offset=0&source=forum" {
		t.Errorf("unexpected query %q", q)
	}
}

func TestCampaignCommands(t *testing.T) {
	env := setupCLITestEnv(t, map[string]string{
		"GET /api/campaigns":             `{"campaigns":[{"id":"c1","status":"draft","product_name":"Nồi chiên","bait_content":"Ai cũng hỏi"}],"total":1}`,
		"PATCH /api/campaigns/c1":        `{"ok":true,"campaign":{"id":"c1","status":"approved"}}`,
		"POST /api/campaigns/c1/publish": `{"ok":true,"campaign":{"id":"c1","status":"posted","post_id":"101","posted_at":"2025-03-01T02:30:00Z"}}`,
	})

	out, err := runCLI(t, env, true, "campaigns", "--status", "draft")
	if err != nil {
		t.Fatalf("campaigns: %v", err)
	}
	requireContains(t, out, "c1", "draft", "Nồi chiên")

	out, err = runCLI(t, env, true, "campaigns", "status", "c1", "approved")
	if err != nil {
		t.Fatalf("campaigns status: %v", err)
	}
	requireContains(t, out, "approved")

	out, err = runCLI(t, env, true, "publish", "c1")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	requireContains(t, out, "posted", "101")

	want := []recordedRequest{
		{Method: http.MethodGet, Path: "/api/campaigns", Query: "limit=50&status=draft"},
		{Method: http.MethodPatch, Path: "/api/campaigns/c1", Body: `{"status":"approved"}`},
		{Method: http.MethodPost, Path: "/api/campaigns/c1/publish"},
	}
	if diff := cmp.Diff(want, env.requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestCommandSurfacesServerError(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	_, err := runCLI(t, env, true, "publish", "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	requireContains(t, err.Error(), "Không tìm thấy chiến dịch", "status 404")
}

func TestLinksAndShorten(t *testing.T) {
	env := setupCLITestEnv(t, map[string]string{
		"GET /api/links":          `{"links":[{"id":"l1","name":"Tai nghe","shortened_url":"https://is.gd/x","shortener":"isgd","collection_name":"audio","clicks":12}],"total":1}`,
		"POST /api/links/shorten": `{"shortened":"https://tinyurl.com/y","service":"tinyurl"}`,
	})

	out, err := runCLI(t, env, true, "links", "--collection", "audio")
	if err != nil {
		t.Fatalf("links: %v", err)
	}
	requireContains(t, out, "Tai nghe", "https://is.gd/x", "12")

	out, err = runCLI(t, env, true, "shorten", "https://shopee.vn/p?id=1")
	if err != nil {
		t.Fatalf("shorten: %v", err)
	}
	requireContains(t, out, "tinyurl", "https://tinyurl.com/y")

	if q := env.requests[1].Query; q != "url=https%3A%2F%2Fshopee.vn%2Fp%3Fid%3D1" {
		t.Errorf("unexpected shorten query %q", q)
	}
}

func TestStatsCommand(t *testing.T) {
	env := setupCLITestEnv(t, map[string]string{
		"GET /api/stats": `{"forum":2,"feed":1,"rss":0,"total_threads":3,"links":4,
			"campaigns":{"total":2,"draft":1,"approved":0,"posted":1,"failed":0},
			"counters":{"total_posts":9},"gemini":"configured","publisher":"missing","database":"sqlite"}`,
	})

	out, err := runCLI(t, env, true, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	requireContains(t, out, "threads (total)", "counter total_posts", "configured", "sqlite")
}

func TestListingRender(t *testing.T) {
	columns := []column{{Title: "Name"}, {Title: "Clicks", Align: text.AlignRight}}

	out := listing{Columns: columns, Rows: [][]string{{"alpha", "1"}, {"beta"}}}.render()
	requireContains(t, out, "Name", "Clicks", "alpha", "beta")
	if strings.Contains(out, "NAME") {
		t.Errorf("expected headers in their given case, got:\n%s", out)
	}
	if !strings.HasPrefix(out, "╭") {
		t.Errorf("expected rounded border, got:\n%s", out)
	}
	if strings.Contains(out, "showing") {
		t.Errorf("unexpected caption for a complete list:\n%s", out)
	}

	paged := listing{Columns: columns, Rows: [][]string{{"alpha", "1"}}, Total: 12}.render()
	requireContains(t, paged, "showing 1 of 12")

	if (listing{}).render() != "" {
		t.Error("expected empty output without columns")
	}
}

func TestEllipsize(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"Nồi chiên không dầu", 5, "Nồi …"},
	}
	for _, tt := range tests {
		if got := ellipsize(tt.in, tt.n); got != tt.want {
			t.Errorf("ellipsize(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
