package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"affiliate_shoppe/internal/docstore"
	"affiliate_shoppe/internal/model"
)

// ThreadQuery selects threads for ListThreads.
type ThreadQuery struct {
	Source model.Source
	Limit  int
	Offset int
}

// SaveThreads stores threads whose ids are not yet present and returns how
// many were written. Existing documents are never overwritten. Per-thread
// failures are logged and skipped.
func (r *Repository) SaveThreads(ctx context.Context, threads []model.Thread) int {
	saved := 0
	for i := range threads {
		t := threads[i]
		if t.ID == "" {
			continue
		}
		_, err := r.store.Get(ctx, model.CollectionThreads, t.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			r.log.Warn("check thread", "id", t.ID, "error", err)
			continue
		}

		if t.Author == "" {
			t.Author = model.DefaultAuthor
		}
		if t.Views == "" {
			t.Views = "0"
		}
		t.CrawledAt = r.timestamp()
		t.SentToAI = false
		t.Deleted = false

		if err := r.store.Set(ctx, model.CollectionThreads, t.ID, threadRecord(&t)); err != nil {
			r.log.Warn("save thread", "id", t.ID, "error", err)
			continue
		}
		saved++
	}
	return saved
}

// ListThreads returns live threads newest first, plus the number of threads
// matching the query before paging.
func (r *Repository) ListThreads(ctx context.Context, q ThreadQuery) ([]model.Thread, int, error) {
	all, err := r.liveThreads(ctx)
	if err != nil {
		return nil, 0, err
	}
	var matched []model.Thread
	for _, t := range all {
		if q.Source == "" || t.Source == q.Source {
			matched = append(matched, t)
		}
	}
	start, end := page(len(matched), q.Limit, q.Offset)
	return matched[start:end], len(matched), nil
}

func (r *Repository) liveThreads(ctx context.Context) ([]model.Thread, error) {
	recs, err := r.store.List(ctx, model.CollectionThreads)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	threads := make([]model.Thread, 0, len(recs))
	for _, rec := range recs {
		t := threadFromRecord(rec)
		if t.Deleted {
			continue
		}
		threads = append(threads, t)
	}
	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].CrawledAt > threads[j].CrawledAt
	})
	return threads, nil
}

// GetThread returns one thread, soft-deleted or not.
func (r *Repository) GetThread(ctx context.Context, id string) (*model.Thread, error) {
	rec, err := r.store.Get(ctx, model.CollectionThreads, id)
	if err != nil {
		return nil, fmt.Errorf("get thread %s: %w", id, err)
	}
	t := threadFromRecord(rec)
	return &t, nil
}

// SetThreadContent stores fetched body text on an existing thread.
func (r *Repository) SetThreadContent(ctx context.Context, id, content string) (*model.Thread, error) {
	return r.updateThread(ctx, id, func(t *model.Thread) { t.Content = content })
}

// MarkSentToAI flags a thread as used for generation.
func (r *Repository) MarkSentToAI(ctx context.Context, id string) error {
	_, err := r.updateThread(ctx, id, func(t *model.Thread) { t.SentToAI = true })
	return err
}

// DeleteThread soft-deletes a thread. The document stays in the store.
func (r *Repository) DeleteThread(ctx context.Context, id string) error {
	_, err := r.updateThread(ctx, id, func(t *model.Thread) { t.Deleted = true })
	return err
}

func (r *Repository) updateThread(ctx context.Context, id string, mutate func(*model.Thread)) (*model.Thread, error) {
	t, err := r.GetThread(ctx, id)
	if err != nil {
		return nil, err
	}
	mutate(t)
	if err := r.store.Set(ctx, model.CollectionThreads, id, threadRecord(t)); err != nil {
		return nil, fmt.Errorf("update thread %s: %w", id, err)
	}
	return t, nil
}
