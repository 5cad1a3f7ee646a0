package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rmallory/taskdeck/internal/entity"
	"github.com/rmallory/taskdeck/internal/store"
)

const (
	// lastUsedThrottle bounds how often a key's last_used_at is
	// rewritten, to cap write amplification under high request volume.
	lastUsedThrottle = 60 * time.Second

	// pairingExpiry is how long a device-pairing token stays valid.
	pairingExpiry = 5 * time.Minute
)

// Service is the credential subsystem. It operates exclusively through
// store accessors, never the storage adapter directly.
type Service struct {
	store  *store.Store
	prims  Primitives
	logger *slog.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service's logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock overrides the service's time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the credential subsystem. It fails fast when any
// crypto primitive is missing.
func NewService(st *store.Store, prims Primitives, opts ...ServiceOption) (*Service, error) {
	if err := prims.validate(); err != nil {
		return nil, err
	}
	s := &Service{
		store:  st,
		prims:  prims,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateKey issues a new API key. The plaintext secret is returned
// exactly once; only its prefix and hash are stored. Empty projectIDs
// means server-wide scope.
func (s *Service) CreateKey(ctx context.Context, name string, projectIDs []string) (*entity.APIKey, string, error) {
	secret, err := s.prims.GenerateSecret()
	if err != nil {
		return nil, "", err
	}

	prefix := secret
	if len(prefix) > secretPrefixLen {
		prefix = prefix[:secretPrefixLen]
	}
	key := entity.APIKey{
		ID:         uuid.NewString(),
		Prefix:     prefix,
		SecretHash: HashSecret(secret),
		Name:       name,
		ProjectIDs: projectIDs,
		CreatedAt:  s.now(),
	}
	if err := s.store.PutAPIKey(ctx, key); err != nil {
		return nil, "", err
	}
	return &key, secret, nil
}

// ListKeys returns all stored API key records.
func (s *Service) ListKeys(ctx context.Context) ([]entity.APIKey, error) {
	return s.store.APIKeys(ctx)
}

// DeleteKey revokes an API key. Returns false if it did not exist.
func (s *Service) DeleteKey(ctx context.Context, id string) (bool, error) {
	return s.store.DeleteAPIKey(ctx, id)
}

// ValidateKey checks a presented secret against the stored hashes.
// Returns nil when no key matches — an invalid secret is an absent
// result, not an error. On a match the key's last_used_at is refreshed,
// throttled to at most one write per minute.
func (s *Service) ValidateKey(ctx context.Context, secret string) (*entity.APIKey, error) {
	keys, err := s.store.APIKeys(ctx)
	if err != nil {
		return nil, err
	}

	presented := HashSecret(secret)
	for i := range keys {
		if !s.prims.Verify(presented, keys[i].SecretHash) {
			continue
		}
		key := keys[i]

		now := s.now()
		if key.LastUsedAt == nil || now.Sub(*key.LastUsedAt) >= lastUsedThrottle {
			key.LastUsedAt = &now
			if err := s.store.PutAPIKey(ctx, key); err != nil {
				// Validation succeeded; a failed timestamp write
				// must not reject the credential.
				s.logger.Warn("last_used_at update failed", "key", key.ID, "error", err)
			}
		}
		return &key, nil
	}
	return nil, nil
}
