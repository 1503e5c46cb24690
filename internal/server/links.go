package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"affiliate_shoppe/internal/model"
	"affiliate_shoppe/internal/storage"
)

const errNoLinks = "Chưa có link nào"

func (a *API) handleListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := a.store.ListLinks(r.Context(), r.URL.Query().Get("collection"))
	if err != nil {
		a.log.Error("list links", "error", err)
		links = nil
	}
	if links == nil {
		links = []model.AffiliateLink{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"links": links, "total": len(links)})
}

func (a *API) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		OriginalURL string `json:"original_url"`
		Collection  string `json:"collection"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	if err := validURL(req.OriginalURL); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}

	short := a.shortener.Shorten(r.Context(), req.OriginalURL)
	l := &model.AffiliateLink{
		Name:           strings.TrimSpace(req.Name),
		OriginalURL:    req.OriginalURL,
		ShortenedURL:   short.Shortened,
		Shortener:      short.Service,
		CollectionName: strings.TrimSpace(req.Collection),
	}
	if err := a.store.CreateLink(r.Context(), l); err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	a.log.Info("create link", "link_id", l.ID, "shortener", l.Shortener)
	respondJSON(w, http.StatusOK, map[string]any{"link": l})
}

func (a *API) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.store.DeleteLink(r.Context(), id); err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": id})
}

func (a *API) handleShorten(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if err := validURL(target); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	respondJSON(w, http.StatusOK, a.shortener.Shorten(r.Context(), target))
}

func (a *API) handleRandomLink(w http.ResponseWriter, r *http.Request) {
	l, err := a.store.RandomLink(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": errNoLinks})
		return
	}
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"link": l})
}

func validURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("url must be an absolute http(s) URL")
	}
	return nil
}
