package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSecret_Deterministic(t *testing.T) {
	a := HashSecret("tdk_example")
	b := HashSecret("tdk_example")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, HashSecret("tdk_other"))
}

func TestDefaultPrimitives_GenerateAndVerify(t *testing.T) {
	prims := DefaultPrimitives()

	secret, err := prims.GenerateSecret()
	require.NoError(t, err)
	assert.Contains(t, secret, "tdk_")

	other, err := prims.GenerateSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)

	token, err := prims.GenerateToken()
	require.NoError(t, err)
	assert.Len(t, token, 32)

	assert.True(t, prims.Verify(HashSecret(secret), HashSecret(secret)))
	assert.False(t, prims.Verify(HashSecret(secret), HashSecret(other)))
}

func TestDefaultPrimitives_EncryptRoundTrip(t *testing.T) {
	prims := DefaultPrimitives()

	sealed, err := prims.Encrypt("token-material", "tdk_plaintext_secret")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "tdk_plaintext_secret")

	plain, err := prims.Decrypt("token-material", sealed)
	require.NoError(t, err)
	assert.Equal(t, "tdk_plaintext_secret", plain)

	// A different key material must not open the ciphertext.
	_, err = prims.Decrypt("wrong-material", sealed)
	require.Error(t, err)

	// Garbage ciphertext is an error, never a bogus plaintext.
	_, err = prims.Decrypt("token-material", "not base64 at all!!!")
	require.Error(t, err)
	_, err = prims.Decrypt("token-material", "c2hvcnQ=")
	require.Error(t, err)
}
