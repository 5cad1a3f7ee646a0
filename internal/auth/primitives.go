// Package auth implements the credential subsystem: API key issuance and
// validation, and the CLI device-pairing flow.
//
// All cryptographic work goes through a set of primitive functions
// injected once at startup. The subsystem refuses to operate without
// them; DefaultPrimitives supplies the standard implementations.
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/rmallory/taskdeck/internal/deckerr"
)

// Primitives are the host-supplied crypto functions the subsystem
// requires. Every field must be non-nil.
type Primitives struct {
	// GenerateSecret produces a new API key secret.
	GenerateSecret func() (string, error)

	// GenerateToken produces a pairing temp token.
	GenerateToken func() (string, error)

	// Verify compares a presented secret's hash against a stored hash
	// in constant time.
	Verify func(presentedHash, storedHash string) bool

	// Encrypt seals plaintext under key material; Decrypt reverses it.
	Encrypt func(keyMaterial, plaintext string) (string, error)
	Decrypt func(keyMaterial, ciphertext string) (string, error)
}

func (p Primitives) validate() error {
	if p.GenerateSecret == nil || p.GenerateToken == nil || p.Verify == nil ||
		p.Encrypt == nil || p.Decrypt == nil {
		return deckerr.New(deckerr.CodePrimitivesMissing,
			"credential subsystem requires all crypto primitives")
	}
	return nil
}

// secretPrefixLen is how many characters of a secret are stored for
// display purposes.
const secretPrefixLen = 12

// HashSecret returns the SHA-256 hex digest of a secret. Only this hash
// is ever stored.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// DefaultPrimitives returns the standard primitive set: crypto/rand
// secrets and tokens, constant-time hash comparison, and AES-256-GCM with
// SHA-256 of the key material as the cipher key.
func DefaultPrimitives() Primitives {
	return Primitives{
		GenerateSecret: func() (string, error) {
			b := make([]byte, 24)
			if _, err := rand.Read(b); err != nil {
				return "", fmt.Errorf("generate secret: %w", err)
			}
			return "tdk_" + hex.EncodeToString(b), nil
		},
		GenerateToken: func() (string, error) {
			b := make([]byte, 16)
			if _, err := rand.Read(b); err != nil {
				return "", fmt.Errorf("generate token: %w", err)
			}
			return hex.EncodeToString(b), nil
		},
		Verify: func(presentedHash, storedHash string) bool {
			return subtle.ConstantTimeCompare([]byte(presentedHash), []byte(storedHash)) == 1
		},
		Encrypt: encryptGCM,
		Decrypt: decryptGCM,
	}
}

func gcmFor(keyMaterial string) (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(keyMaterial))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encryptGCM(keyMaterial, plaintext string) (string, error) {
	gcm, err := gcmFor(keyMaterial)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func decryptGCM(keyMaterial, ciphertext string) (string, error) {
	gcm, err := gcmFor(keyMaterial)
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(raw) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}
