package auth

import (
	"context"

	"github.com/rmallory/taskdeck/internal/entity"
)

// PollStatus is the status of a pairing request as seen by the polling
// client. Polling is a status query, never an exception path: unknown and
// stale tokens report expired.
type PollStatus string

const (
	PollPending   PollStatus = "pending"
	PollCompleted PollStatus = "completed"
	PollExpired   PollStatus = "expired"
)

// BeginPairing mints a short-lived pairing request. The returned token is
// what the CLI embeds in the pairing URL shown to the human.
func (s *Service) BeginPairing(ctx context.Context, name string, projectIDs []string) (*entity.CLIAuthRequest, error) {
	token, err := s.prims.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	req := entity.CLIAuthRequest{
		Token:      token,
		ExpiresAt:  now.Add(pairingExpiry),
		Name:       name,
		ProjectIDs: projectIDs,
		CreatedAt:  now,
	}
	if err := s.store.PutCLIAuthRequest(ctx, req); err != nil {
		return nil, err
	}
	return &req, nil
}

// CompletePairing is the human-facing completion step: it issues a real
// API key and stores it encrypted under the temp token itself, never in
// plaintext, then stamps completed_at. Completion is single-use — an
// unknown, expired or already-completed token returns nil.
func (s *Service) CompletePairing(ctx context.Context, token string) (*entity.APIKey, error) {
	req, err := s.store.GetCLIAuthRequest(ctx, token)
	if err != nil {
		return nil, err
	}
	if req == nil || req.Completed() || req.Expired(s.now()) {
		return nil, nil
	}

	key, secret, err := s.CreateKey(ctx, req.Name, req.ProjectIDs)
	if err != nil {
		return nil, err
	}
	encrypted, err := s.prims.Encrypt(token, secret)
	if err != nil {
		return nil, err
	}

	now := s.now()
	req.EncryptedKey = encrypted
	req.CompletedAt = &now
	if err := s.store.PutCLIAuthRequest(ctx, *req); err != nil {
		return nil, err
	}
	return key, nil
}

// PollPairing reports the pairing state for a token. Once completed it
// returns the decrypted API key secret; a token/ciphertext mismatch fails
// closed to expired.
func (s *Service) PollPairing(ctx context.Context, token string) (PollStatus, string, error) {
	req, err := s.store.GetCLIAuthRequest(ctx, token)
	if err != nil {
		return "", "", err
	}
	if req == nil || req.Expired(s.now()) {
		return PollExpired, "", nil
	}
	if req.Completed() && req.EncryptedKey != "" {
		secret, err := s.prims.Decrypt(token, req.EncryptedKey)
		if err != nil {
			s.logger.Warn("pairing key decryption failed", "error", err)
			return PollExpired, "", nil
		}
		return PollCompleted, secret, nil
	}
	return PollPending, "", nil
}

// CleanupPairings removes stale pairing requests: expired never-completed
// requests immediately, completed ones after roughly twice the expiry
// window so slow pollers still get their key. Returns how many records
// were removed.
func (s *Service) CleanupPairings(ctx context.Context) (int, error) {
	now := s.now()
	return s.store.PruneCLIAuthRequests(ctx, func(r entity.CLIAuthRequest) bool {
		if r.Completed() {
			return now.After(r.CreatedAt.Add(2 * pairingExpiry))
		}
		return r.Expired(now)
	})
}
