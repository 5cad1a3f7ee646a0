package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairing_FullFlow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req, err := svc.BeginPairing(ctx, "laptop", []string{"proj-1"})
	require.NoError(t, err)
	require.NotEmpty(t, req.Token)
	assert.True(t, req.ExpiresAt.After(req.CreatedAt))

	// Before completion the poll reports pending with no secret.
	status, secret, err := svc.PollPairing(ctx, req.Token)
	require.NoError(t, err)
	assert.Equal(t, PollPending, status)
	assert.Empty(t, secret)

	key, err := svc.CompletePairing(ctx, req.Token)
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, "laptop", key.Name)
	assert.Equal(t, []string{"proj-1"}, key.ProjectIDs)

	// After completion the poll hands over the real secret.
	status, secret, err = svc.PollPairing(ctx, req.Token)
	require.NoError(t, err)
	assert.Equal(t, PollCompleted, status)
	require.NotEmpty(t, secret)
	assert.Equal(t, key.SecretHash, HashSecret(secret))

	// The secret validates as a working API key.
	validated, err := svc.ValidateKey(ctx, secret)
	require.NoError(t, err)
	require.NotNil(t, validated)
	assert.Equal(t, key.ID, validated.ID)
}

func TestCompletePairing_SingleUse(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req, err := svc.BeginPairing(ctx, "cli", nil)
	require.NoError(t, err)

	first, err := svc.CompletePairing(ctx, req.Token)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.CompletePairing(ctx, req.Token)
	require.NoError(t, err)
	assert.Nil(t, second)

	keys, err := svc.ListKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestCompletePairing_UnknownAndExpired(t *testing.T) {
	clock := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestService(t, WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	key, err := svc.CompletePairing(ctx, "no-such-token")
	require.NoError(t, err)
	assert.Nil(t, key)

	req, err := svc.BeginPairing(ctx, "cli", nil)
	require.NoError(t, err)

	clock = clock.Add(6 * time.Minute)
	key, err = svc.CompletePairing(ctx, req.Token)
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestPollPairing_ExpiryAndUnknown(t *testing.T) {
	clock := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestService(t, WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	status, _, err := svc.PollPairing(ctx, "no-such-token")
	require.NoError(t, err)
	assert.Equal(t, PollExpired, status)

	req, err := svc.BeginPairing(ctx, "cli", nil)
	require.NoError(t, err)

	clock = clock.Add(6 * time.Minute)
	status, _, err = svc.PollPairing(ctx, req.Token)
	require.NoError(t, err)
	assert.Equal(t, PollExpired, status)
}

func TestPollPairing_DecryptFailureFailsClosed(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req, err := svc.BeginPairing(ctx, "cli", nil)
	require.NoError(t, err)
	_, err = svc.CompletePairing(ctx, req.Token)
	require.NoError(t, err)

	// Corrupt the stored ciphertext: the poll must report expired rather
	// than surface garbage or an error to the client.
	stored, err := svc.store.GetCLIAuthRequest(ctx, req.Token)
	require.NoError(t, err)
	stored.EncryptedKey = "bm90LXJlYWwtY2lwaGVydGV4dA=="
	require.NoError(t, svc.store.PutCLIAuthRequest(ctx, *stored))

	status, secret, err := svc.PollPairing(ctx, req.Token)
	require.NoError(t, err)
	assert.Equal(t, PollExpired, status)
	assert.Empty(t, secret)
}

func TestCleanupPairings_AgePolicy(t *testing.T) {
	clock := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestService(t, WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	expired, err := svc.BeginPairing(ctx, "stale", nil)
	require.NoError(t, err)

	completed, err := svc.BeginPairing(ctx, "done", nil)
	require.NoError(t, err)
	_, err = svc.CompletePairing(ctx, completed.Token)
	require.NoError(t, err)

	// Past expiry: the never-completed request goes, the completed one is
	// kept so a slow poller can still collect its key.
	clock = clock.Add(6 * time.Minute)

	fresh, err := svc.BeginPairing(ctx, "fresh", nil)
	require.NoError(t, err)

	removed, err := svc.CleanupPairings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got, err := svc.store.GetCLIAuthRequest(ctx, expired.Token)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = svc.store.GetCLIAuthRequest(ctx, completed.Token)
	require.NoError(t, err)
	assert.NotNil(t, got)
	got, err = svc.store.GetCLIAuthRequest(ctx, fresh.Token)
	require.NoError(t, err)
	assert.NotNil(t, got)

	// Twice the expiry window after creation, completed requests go too.
	clock = clock.Add(5 * time.Minute)
	removed, err = svc.CleanupPairings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got, err = svc.store.GetCLIAuthRequest(ctx, completed.Token)
	require.NoError(t, err)
	assert.Nil(t, got)
}
