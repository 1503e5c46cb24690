package server

import (
	"errors"
	"net/http"
	"strings"

	"affiliate_shoppe/internal/model"
	"affiliate_shoppe/internal/storage"
)

const errCampaignNotFound = "Không tìm thấy chiến dịch"

func (a *API) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r, 50, 200)
	if err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	q := storage.CampaignQuery{
		Status: model.CampaignStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	campaigns, total, err := a.store.ListCampaigns(r.Context(), q)
	if err != nil {
		a.log.Error("list campaigns", "error", err)
		campaigns, total = nil, 0
	}
	if campaigns == nil {
		campaigns = []model.Campaign{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"campaigns": campaigns,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

func (a *API) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := a.store.GetCampaign(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": errCampaignNotFound})
		return
	}
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"campaign": c})
}

func (a *API) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		respondErr(w, http.StatusBadRequest, errors.New("status is required"))
		return
	}

	id := r.PathValue("id")
	c, err := a.store.UpdateCampaignStatus(r.Context(), id, model.CampaignStatus(req.Status))
	if errors.Is(err, storage.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": errCampaignNotFound})
		return
	}
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"campaign_id": id,
		"status":      c.Status,
		"campaign":    c,
	})
}

func (a *API) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.store.DeleteCampaign(r.Context(), id); err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": id})
}

func (a *API) handlePublishCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := a.publisher.Publish(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondJSON(w, http.StatusNotFound, map[string]any{"error": errCampaignNotFound})
	case err != nil && c != nil:
		respondJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "campaign": c})
	case err != nil:
		respondErr(w, errorStatus(err), err)
	default:
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "campaign": c})
	}
}

func (a *API) handlePublisherStatus(w http.ResponseWriter, r *http.Request) {
	st, err := a.publisher.Status(r.Context())
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (a *API) handleUpdatePublisher(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AutoMode *bool `json:"auto_mode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	if req.AutoMode == nil {
		respondErr(w, http.StatusBadRequest, errors.New("auto_mode is required"))
		return
	}
	st, err := a.publisher.SetAutoMode(r.Context(), *req.AutoMode)
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (a *API) handlePublisherLog(w http.ResponseWriter, r *http.Request) {
	limit, _, err := pageParams(r, 20, 200)
	if err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	entries, err := a.publisher.Log(r.Context(), limit)
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries, "total": len(entries)})
}
