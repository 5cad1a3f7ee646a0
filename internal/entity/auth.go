package entity

import "time"

// APIKey is a long-lived credential. Only a display prefix and a one-way
// hash of the secret are stored; the secret itself is returned to the
// caller exactly once at creation.
type APIKey struct {
	ID         string     `json:"id"`
	Prefix     string     `json:"prefix"`
	SecretHash string     `json:"secret_hash"`
	Name       string     `json:"name"`

	// ProjectIDs limits the key to a fixed set of projects.
	// Empty means server-wide.
	ProjectIDs []string   `json:"project_ids,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// ServerWide returns true if the key is not scoped to specific projects.
func (k *APIKey) ServerWide() bool {
	return len(k.ProjectIDs) == 0
}

// AllowsProject returns true if the key grants access to the project.
func (k *APIKey) AllowsProject(projectID string) bool {
	if k.ServerWide() {
		return true
	}
	for _, id := range k.ProjectIDs {
		if id == projectID {
			return true
		}
	}
	return false
}

// CLIAuthRequest is a short-lived device-pairing record. The issued API key
// is stored encrypted under the temp token, never in plaintext.
type CLIAuthRequest struct {
	Token        string     `json:"token"`
	ExpiresAt    time.Time  `json:"expires_at"`
	Name         string     `json:"name,omitempty"`
	ProjectIDs   []string   `json:"project_ids,omitempty"`
	EncryptedKey string     `json:"encrypted_key,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Expired returns true if the request is past its expiry at the given time.
func (r *CLIAuthRequest) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Completed returns true if the pairing was completed.
func (r *CLIAuthRequest) Completed() bool {
	return r.CompletedAt != nil
}
