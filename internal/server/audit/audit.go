// Package audit records security-relevant events: registrations, logins,
// wallet bindings, ledger submissions. Recording is strictly best effort;
// a sink failure is logged and never propagated into the request path.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Vraj260105/Block-Vote/internal/logging"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeDenied  Outcome = "denied"
)

// Event is one audit record. Actor is the account email or wallet address
// acting, never a password or token.
type Event struct {
	ID      string            `json:"id"`
	Time    time.Time         `json:"time"`
	Actor   string            `json:"actor"`
	Action  string            `json:"action"`
	Outcome Outcome           `json:"outcome"`
	Details map[string]string `json:"details,omitempty"`
}

// Sink persists audit events somewhere durable.
type Sink interface {
	Write(ctx context.Context, event *Event) error
}

// Auditor fans events out to its sinks. Emit assigns the event id and
// timestamp, so callers only describe what happened.
type Auditor struct {
	sinks  []Sink
	logger logging.Logger
	now    func() time.Time
}

func NewAuditor(logger logging.Logger, sinks ...Sink) *Auditor {
	return &Auditor{
		sinks:  sinks,
		logger: logger.With("module", "audit"),
		now:    time.Now,
	}
}

func (a *Auditor) Emit(ctx context.Context, actor, action string, outcome Outcome, details map[string]string) {
	event := &Event{
		ID:      uuid.New().String(),
		Time:    a.now().UTC(),
		Actor:   actor,
		Action:  action,
		Outcome: outcome,
		Details: details,
	}
	for _, sink := range a.sinks {
		if err := sink.Write(ctx, event); err != nil {
			a.logger.Error(ctx, "audit sink write failed",
				"action", action, "error", err)
		}
	}
}

// LogSink writes events to the structured log. Always configured, so every
// deployment has at least one audit trail.
type LogSink struct {
	logger logging.Logger
}

func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger.With("module", "audit")}
}

func (s *LogSink) Write(ctx context.Context, event *Event) error {
	args := []any{
		"event_id", event.ID,
		"actor", event.Actor,
		"outcome", string(event.Outcome),
	}
	for k, v := range event.Details {
		args = append(args, k, v)
	}
	s.logger.Info(ctx, event.Action, args...)
	return nil
}
