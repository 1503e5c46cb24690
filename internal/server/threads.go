package server

import (
	"errors"
	"net/http"

	"affiliate_shoppe/internal/model"
	"affiliate_shoppe/internal/storage"
)

const errThreadNotFound = "Không tìm thấy bài viết"

func (a *API) handleCrawlForum(w http.ResponseWriter, r *http.Request) {
	sum, err := a.crawler.CrawlForum(r.Context())
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

func (a *API) handleCrawlFeed(w http.ResponseWriter, r *http.Request) {
	sum, err := a.crawler.CrawlFeed(r.Context(), splitComma(r.URL.Query().Get("subs")))
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

func (a *API) handleCrawlRSS(w http.ResponseWriter, r *http.Request) {
	sum, err := a.crawler.CrawlRSS(r.Context())
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

func (a *API) handleCrawlAll(w http.ResponseWriter, r *http.Request) {
	res, err := a.crawler.CrawlAll(r.Context())
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (a *API) handleListThreads(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r, 50, 200)
	if err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	q := storage.ThreadQuery{
		Source: model.Source(r.URL.Query().Get("source")),
		Limit:  limit,
		Offset: offset,
	}
	threads, total, err := a.store.ListThreads(r.Context(), q)
	if err != nil {
		// The dashboard treats a failed listing as empty.
		a.log.Error("list threads", "error", err)
		threads, total = nil, 0
	}
	if threads == nil {
		threads = []model.Thread{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"threads": threads,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func (a *API) handleGetThread(w http.ResponseWriter, r *http.Request) {
	t, err := a.store.GetThread(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": errThreadNotFound, "thread": nil})
		return
	}
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"thread": t})
}

func (a *API) handleThreadContent(w http.ResponseWriter, r *http.Request) {
	content, source, err := a.crawler.ThreadContent(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": errThreadNotFound, "content": ""})
		return
	}
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"content": content, "source": source})
}

func (a *API) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.store.DeleteThread(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]any{"error": errThreadNotFound})
			return
		}
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": id})
}
