package server

import (
	"net/http"

	"affiliate_shoppe/internal/storage"
)

type statsResponse struct {
	*storage.Stats
	Counters  any    `json:"counters"`
	Gemini    string `json:"gemini"`
	Publisher string `json:"publisher"`
	Database  string `json:"database"`
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "missing"
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.store.Stats(r.Context())
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	counters, err := a.kv.Get(r.Context(), "counters")
	if err != nil {
		a.log.Warn("read counters", "error", err)
	}
	if counters == nil {
		counters = map[string]any{}
	}
	respondJSON(w, http.StatusOK, statsResponse{
		Stats:     st,
		Counters:  counters,
		Gemini:    configured(a.generator.Configured()),
		Publisher: configured(a.publisher.Configured()),
		Database:  a.store.Backend(),
	})
}

func (a *API) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"app":              AppName,
		"version":          Version,
		"database":         a.store.Backend(),
		"gemini":           configured(a.generator.Configured()),
		"content_language": a.generator.Language().String(),
		"firebase_project": a.cfg.FirebaseProjectID,
		"endpoints": map[string][]string{
			"crawl":     {"/api/crawl/forum", "/api/crawl/feed", "/api/crawl/rss", "/api/crawl/all"},
			"threads":   {"/api/threads", "/api/threads/{id}", "/api/threads/{id}/content"},
			"ai":        {"/api/ai/generate", "/api/ai/generate-from-thread/{id}"},
			"campaigns": {"/api/campaigns", "/api/campaigns/{id}", "/api/campaigns/{id}/publish"},
			"links":     {"/api/links", "/api/links/shorten", "/api/links/random"},
			"publisher": {"/api/publisher", "/api/publisher/log"},
			"stats":     {"/api/stats"},
		},
	})
}
