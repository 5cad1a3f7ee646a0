package store

import (
	"context"

	"github.com/rmallory/taskdeck/internal/entity"
)

// Credential accessors. The credential subsystem never touches the
// storage adapter directly; it reads and writes its records through
// these, so backend substitution stays transparent to it.

// APIKeys returns all stored API key records.
func (s *Store) APIKeys(ctx context.Context) ([]entity.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]entity.APIKey, len(s.snap().APIKeys))
	copy(out, s.snap().APIKeys)
	return out, nil
}

// PutAPIKey inserts or replaces an API key record by id.
func (s *Store) PutAPIKey(ctx context.Context, key entity.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	snap := s.snap()
	replaced := false
	for i := range snap.APIKeys {
		if snap.APIKeys[i].ID == key.ID {
			snap.APIKeys[i] = key
			replaced = true
			break
		}
	}
	if !replaced {
		snap.APIKeys = append(snap.APIKeys, key)
	}
	return s.adapter.Write(ctx)
}

// DeleteAPIKey removes an API key record. Returns false if it did not
// exist.
func (s *Store) DeleteAPIKey(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}

	snap := s.snap()
	found := false
	keys := snap.APIKeys[:0]
	for _, k := range snap.APIKeys {
		if k.ID == id {
			found = true
			continue
		}
		keys = append(keys, k)
	}
	if !found {
		return false, nil
	}
	snap.APIKeys = keys
	if err := s.adapter.Write(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// GetCLIAuthRequest returns the pairing request for a token, or nil.
func (s *Store) GetCLIAuthRequest(ctx context.Context, token string) (*entity.CLIAuthRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	for _, r := range s.snap().CLIAuthRequests {
		if r.Token == token {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

// PutCLIAuthRequest inserts or replaces a pairing request by token.
func (s *Store) PutCLIAuthRequest(ctx context.Context, req entity.CLIAuthRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	snap := s.snap()
	replaced := false
	for i := range snap.CLIAuthRequests {
		if snap.CLIAuthRequests[i].Token == req.Token {
			snap.CLIAuthRequests[i] = req
			replaced = true
			break
		}
	}
	if !replaced {
		snap.CLIAuthRequests = append(snap.CLIAuthRequests, req)
	}
	return s.adapter.Write(ctx)
}

// PruneCLIAuthRequests removes pairing requests matched by the drop
// predicate and returns how many were removed. No write happens when
// nothing matched.
func (s *Store) PruneCLIAuthRequests(ctx context.Context, drop func(entity.CLIAuthRequest) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}

	snap := s.snap()
	kept := snap.CLIAuthRequests[:0]
	removed := 0
	for _, r := range snap.CLIAuthRequests {
		if drop(r) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	if removed == 0 {
		return 0, nil
	}
	snap.CLIAuthRequests = kept

	if err := s.adapter.Write(ctx); err != nil {
		return 0, err
	}
	return removed, nil
}
