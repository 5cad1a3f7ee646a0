// Package hook implements the outbound webhook dispatcher.
//
// The store hands the dispatcher an event kind and payload on each
// mutation of interest. The dispatcher filters the configured webhooks,
// wraps the payload in a delivery envelope, and invokes the injected
// delivery handler per matching webhook. Handler failures are contained
// per webhook: one webhook failing never prevents attempts to the others
// and never propagates back to the triggering mutation.
package hook

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rmallory/taskdeck/internal/entity"
)

// Envelope is the payload handed to the delivery handler.
type Envelope struct {
	Event     entity.Event `json:"event"`
	Timestamp string       `json:"timestamp"`
	WebhookID string       `json:"webhook_id"`
	Data      any          `json:"data"`
}

// Handler performs one delivery attempt. Implementations are injected by
// the host environment; see HTTPHandler for the default.
type Handler func(ctx context.Context, hook entity.Webhook, env Envelope) error

// Dispatcher fans store mutation events out to matching webhooks.
// A nil handler makes dispatch a no-op.
type Dispatcher struct {
	handler Handler
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithClock overrides the dispatcher's time source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// New creates a dispatcher with the given delivery handler.
func New(handler Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handler: handler,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers the event to every enabled webhook subscribed to it
// whose project scope is empty or matches. It returns one delivery log
// record per attempt — at least once per matching webhook, never silently
// dropped — and never returns an error: failures are logged and recorded.
func (d *Dispatcher) Dispatch(ctx context.Context, hooks []entity.Webhook, event entity.Event, projectID string, data any) []entity.WebhookDelivery {
	if d.handler == nil {
		return nil
	}

	now := d.now()
	payload, err := json.Marshal(data)
	if err != nil {
		d.logger.Error("webhook payload not serializable", "event", event, "error", err)
		return nil
	}

	var deliveries []entity.WebhookDelivery
	for _, hook := range hooks {
		if !hook.Matches(event, projectID) {
			continue
		}

		env := Envelope{
			Event:     event,
			Timestamp: now.UTC().Format(time.RFC3339),
			WebhookID: hook.ID,
			Data:      data,
		}

		delivery := entity.WebhookDelivery{
			ID:        uuid.NewString(),
			WebhookID: hook.ID,
			Event:     event,
			Payload:   string(payload),
			Status:    entity.DeliverySucceeded,
			Attempts:  1,
			CreatedAt: now,
		}
		if err := d.deliver(ctx, hook, env); err != nil {
			d.logger.Warn("webhook delivery failed",
				"webhook", hook.ID, "event", event, "error", err)
			delivery.Status = entity.DeliveryFailed
			delivery.Error = err.Error()
		}
		deliveries = append(deliveries, delivery)
	}
	return deliveries
}

// deliver runs one handler invocation, converting panics into errors so a
// misbehaving handler cannot take down the triggering mutation.
func (d *Dispatcher) deliver(ctx context.Context, hook entity.Webhook, env Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return d.handler(ctx, hook, env)
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return "delivery handler panicked"
}
