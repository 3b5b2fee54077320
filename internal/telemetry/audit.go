package telemetry

import (
	"context"
	"strconv"
	"time"

	"marketplace-chat/internal/logging"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

// AuditEmitter publishes audit_log envelopes for moderation-relevant actions.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	now         func() time.Time
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level  string            `json:"level"`
	Action string            `json:"action,omitempty"`
	Text   string            `json:"text"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		now:         time.Now,
	}
}

// Emit publishes a free-form audit line.
func (e *AuditEmitter) Emit(ctx context.Context, level, text, requestID string, userID *int64) {
	e.publish(ctx, requestID, userID, AuditPayload{Level: level, Text: text})
}

// Action publishes a structured audit record such as "conversation.deleted".
func (e *AuditEmitter) Action(ctx context.Context, action, requestID string, userID int64, attrs map[string]string) {
	e.publish(ctx, requestID, &userID, AuditPayload{Level: "INFO", Action: action, Text: action, Attrs: attrs})
}

func (e *AuditEmitter) publish(ctx context.Context, requestID string, userID *int64, payload AuditPayload) {
	if e == nil || e.publisher == nil {
		return
	}

	var uid *string
	if userID != nil {
		s := strconv.FormatInt(*userID, 10)
		uid = &s
	}

	logging.Ctx(ctx).Debug().Str("level", payload.Level).Str("action", payload.Action).Str("text", payload.Text).Msg("audit emit")
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        uid,
		Payload:       payload,
	}

	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if err := e.publisher.Publish(ctx, e.routingKey, envelope, headers); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("audit publish failed")
	}
}
