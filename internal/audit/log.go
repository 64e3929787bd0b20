package audit

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"librix.org/internal/obs"
)

// EventKind enumerates the security events this service emits.
type EventKind string

const (
	LoginSuccess  EventKind = "login_success"
	LoginFailure  EventKind = "login_failure"
	Logout        EventKind = "logout"
	Registration  EventKind = "registration"
	TokenRejected EventKind = "token_rejected"
	AccessDenied  EventKind = "access_denied"
	Incident      EventKind = "security_incident"
)

// Origin identifies the client side of a request.
type Origin struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Event is one security-relevant occurrence. Write-only: there is no query
// API, the log is consumed by external observability tooling.
type Event struct {
	At        time.Time `json:"ts"`
	Kind      EventKind `json:"event"`
	Subject   string    `json:"subject"`
	Reason    string    `json:"reason,omitempty"`
	Origin    Origin    `json:"origin"`
	RequestID string    `json:"request_id,omitempty"`
}

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request correlation id to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the correlation id if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Recorder appends events to the structured log and fans them out to live
// subscribers.
type Recorder struct {
	out    *log.Logger
	stream *fanout
}

// NewRecorder builds a Recorder writing to the shared service logger.
func NewRecorder() *Recorder {
	return &Recorder{out: obs.Logger(), stream: newFanout()}
}

// Record completes the event from context and emits it. Never fails; a
// security log line must not break the request that produced it.
func (r *Recorder) Record(ctx context.Context, evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	if strings.TrimSpace(evt.Subject) == "" {
		evt.Subject = "unknown"
	}
	if evt.RequestID == "" {
		evt.RequestID = RequestIDFromContext(ctx)
	}

	entry := map[string]any{
		"ts":      evt.At.Format(time.RFC3339Nano),
		"type":    "security",
		"event":   string(evt.Kind),
		"subject": evt.Subject,
	}
	if evt.Reason != "" {
		entry["reason"] = evt.Reason
	}
	if evt.Origin.IP != "" {
		entry["ip"] = evt.Origin.IP
	}
	if evt.Origin.UserAgent != "" {
		entry["user_agent"] = evt.Origin.UserAgent
	}
	if evt.RequestID != "" {
		entry["request_id"] = evt.RequestID
	}

	data, err := json.Marshal(entry)
	if err != nil {
		r.out.Println(`{"level":"error","msg":"security event marshal failed"}`)
		return
	}
	r.out.Println(string(data))

	obs.CountAuthEvent(string(evt.Kind))
	r.stream.publish(evt)
}

// Subscribe registers a live subscriber. The returned channel receives every
// subsequent event and is closed when the context ends.
func (r *Recorder) Subscribe(ctx context.Context) <-chan Event {
	return r.stream.subscribe(ctx)
}
