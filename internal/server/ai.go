package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"affiliate_shoppe/internal/generator"
	"affiliate_shoppe/internal/model"
	"affiliate_shoppe/internal/storage"
)

type generateResponse struct {
	CampaignID     string               `json:"campaign_id"`
	Bait           string               `json:"bait"`
	Hook           string               `json:"hook"`
	SuggestedImage string               `json:"suggested_image"`
	SourceThread   string               `json:"source_thread,omitempty"`
	ProductName    string               `json:"product_name"`
	ProductLink    string               `json:"product_link"`
	ShortenedLink  string               `json:"shortened_link"`
	Status         model.CampaignStatus `json:"status"`
	CreatedAt      string               `json:"created_at"`
	Warning        string               `json:"warning,omitempty"`
}

func (a *API) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generator.Request
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.ProductName) == "" {
		respondErr(w, http.StatusBadRequest, errors.New("product_name is required"))
		return
	}
	req.Language = a.requestLanguage(r)

	resp, err := a.generate(r.Context(), req, nil)
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (a *API) handleGenerateFromThread(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := generator.Request{
		ProductName: strings.TrimSpace(q.Get("product_name")),
		ProductLink: strings.TrimSpace(q.Get("product_link")),
		PagePersona: q.Get("page_persona"),
		Language:    a.requestLanguage(r),
	}
	if req.ProductName == "" {
		respondErr(w, http.StatusBadRequest, errors.New("product_name is required"))
		return
	}

	id := r.PathValue("id")
	thread, err := a.store.GetThread(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": errThreadNotFound})
		return
	}
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	req.SourceContent = thread.Content
	if req.SourceContent == "" {
		req.SourceContent = thread.Title
	}

	resp, err := a.generate(r.Context(), req, thread)
	if err != nil {
		respondErr(w, errorStatus(err), err)
		return
	}
	if err := a.store.MarkSentToAI(r.Context(), id); err != nil {
		a.log.Error("mark thread sent to ai", "id", id, "error", err)
	}
	respondJSON(w, http.StatusOK, resp)
}

// generate shortens the product link, asks the model for a pair and stores
// the result as a draft campaign.
func (a *API) generate(ctx context.Context, req generator.Request, thread *model.Thread) (*generateResponse, error) {
	if !a.generator.Configured() {
		return nil, generator.ErrNotConfigured
	}

	if strings.TrimSpace(req.PagePersona) == "" {
		req.PagePersona = a.cfg.DefaultPersona
	}
	productLink := req.ProductLink
	shortened := ""
	if productLink != "" {
		res := a.shortener.Shorten(ctx, productLink)
		if res.Service != model.ShortenerNone {
			shortened = res.Shortened
			req.ProductLink = shortened
		}
	}

	result, err := a.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	c := &model.Campaign{
		BaitContent:    result.Bait,
		HookComment:    result.Hook,
		ProductName:    req.ProductName,
		ProductLink:    productLink,
		ShortenedLink:  shortened,
		PagePersona:    req.PagePersona,
		SuggestedImage: result.SuggestedImage,
	}
	if thread != nil {
		c.SourceThreadID = thread.ID
	}
	if err := a.store.CreateCampaign(ctx, c); err != nil {
		return nil, err
	}
	a.log.Info("create campaign", "campaign_id", c.ID, "product", c.ProductName)

	resp := &generateResponse{
		CampaignID:     c.ID,
		Bait:           result.Bait,
		Hook:           result.Hook,
		SuggestedImage: result.SuggestedImage,
		ProductName:    c.ProductName,
		ProductLink:    c.ProductLink,
		ShortenedLink:  c.ShortenedLink,
		Status:         c.Status,
		CreatedAt:      c.CreatedAt,
		Warning:        result.Warning,
	}
	if thread != nil {
		resp.SourceThread = thread.Title
	}
	return resp, nil
}
