package hook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rmallory/taskdeck/internal/entity"
)

const defaultDeliveryTimeout = 5 * time.Second

// HTTPHandler returns the default delivery handler: a JSON POST to the
// webhook's URL. When the webhook carries a secret, the body is signed
// with HMAC-SHA256 and the hex digest sent in X-Taskdeck-Signature.
func HTTPHandler(timeout time.Duration) Handler {
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	client := &http.Client{Timeout: timeout}

	return func(ctx context.Context, hook entity.Webhook, env Envelope) error {
		body, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Taskdeck-Event", string(env.Event))
		req.Header.Set("X-Taskdeck-Webhook", hook.ID)
		if hook.Secret != "" {
			mac := hmac.New(sha256.New, []byte(hook.Secret))
			mac.Write(body)
			req.Header.Set("X-Taskdeck-Signature", hex.EncodeToString(mac.Sum(nil)))
		}

		res, err := client.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
			return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(snippet)))
		}
		return nil
	}
}
