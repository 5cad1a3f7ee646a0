package store

import (
	"context"
	"time"

	"github.com/rmallory/taskdeck/internal/deckerr"
	"github.com/rmallory/taskdeck/internal/entity"
)

// WebhookParams are the caller-supplied fields for webhook creation.
type WebhookParams struct {
	Name      string
	URL       string
	Events    []entity.Event
	Secret    string
	ProjectID string
	Enabled   bool
}

// WebhookUpdate is a shallow field diff for a webhook.
type WebhookUpdate struct {
	Name    *string
	URL     *string
	Events  *[]entity.Event
	Secret  *string
	Enabled *bool
}

// CreateWebhook registers an outbound webhook. A project scope, if set,
// must reference an existing project.
func (s *Store) CreateWebhook(ctx context.Context, params WebhookParams) (*entity.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	snap := s.snap()
	if params.ProjectID != "" && snap.ProjectByID(params.ProjectID) == nil {
		return nil, deckerr.Newf(deckerr.CodeInvalidReference,
			"project not found", params.ProjectID)
	}

	w := entity.Webhook{
		ID:        newID(),
		Name:      params.Name,
		URL:       params.URL,
		Events:    params.Events,
		Secret:    params.Secret,
		ProjectID: params.ProjectID,
		Enabled:   params.Enabled,
		CreatedAt: s.now(),
	}
	snap.Webhooks = append(snap.Webhooks, w)
	if err := s.adapter.Write(ctx); err != nil {
		return nil, err
	}
	return &w, nil
}

// GetWebhook returns the webhook, or nil if it does not exist.
func (s *Store) GetWebhook(ctx context.Context, id string) (*entity.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	for _, w := range s.snap().Webhooks {
		if w.ID == id {
			cp := w
			return &cp, nil
		}
	}
	return nil, nil
}

// ListWebhooks returns all configured webhooks.
func (s *Store) ListWebhooks(ctx context.Context) ([]entity.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]entity.Webhook, len(s.snap().Webhooks))
	copy(out, s.snap().Webhooks)
	return out, nil
}

// UpdateWebhook merges a field diff into the webhook. Returns nil if it
// does not exist.
func (s *Store) UpdateWebhook(ctx context.Context, id string, upd WebhookUpdate) (*entity.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	snap := s.snap()
	for i := range snap.Webhooks {
		if snap.Webhooks[i].ID != id {
			continue
		}
		w := &snap.Webhooks[i]
		if upd.Name != nil {
			w.Name = *upd.Name
		}
		if upd.URL != nil {
			w.URL = *upd.URL
		}
		if upd.Events != nil {
			w.Events = *upd.Events
		}
		if upd.Secret != nil {
			w.Secret = *upd.Secret
		}
		if upd.Enabled != nil {
			w.Enabled = *upd.Enabled
		}
		cp := *w
		if err := s.adapter.Write(ctx); err != nil {
			return nil, err
		}
		return &cp, nil
	}
	return nil, nil
}

// DeleteWebhook removes the webhook. Its delivery log is kept for the
// cleanup pass to prune by age. Returns false if it did not exist.
func (s *Store) DeleteWebhook(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}

	snap := s.snap()
	found := false
	hooks := snap.Webhooks[:0]
	for _, w := range snap.Webhooks {
		if w.ID == id {
			found = true
			continue
		}
		hooks = append(hooks, w)
	}
	if !found {
		return false, nil
	}
	snap.Webhooks = hooks

	if err := s.adapter.Write(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ListDeliveries returns the delivery log, optionally filtered to one
// webhook.
func (s *Store) ListDeliveries(ctx context.Context, webhookID string) ([]entity.WebhookDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	var out []entity.WebhookDelivery
	for _, d := range s.snap().WebhookDeliveries {
		if webhookID == "" || d.WebhookID == webhookID {
			out = append(out, d)
		}
	}
	return out, nil
}

// PruneDeliveries drops delivery records older than the retention window
// and returns how many were removed. No write happens when nothing aged
// out.
func (s *Store) PruneDeliveries(ctx context.Context, retention time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}

	snap := s.snap()
	cutoff := s.now().Add(-retention)
	kept := snap.WebhookDeliveries[:0]
	removed := 0
	for _, d := range snap.WebhookDeliveries {
		if d.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	if removed == 0 {
		return 0, nil
	}
	snap.WebhookDeliveries = kept

	if err := s.adapter.Write(ctx); err != nil {
		return 0, err
	}
	return removed, nil
}
