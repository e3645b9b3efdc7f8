// Package responder defines the external text-generation capability the
// orchestrator calls, plus the bundled implementations.
package responder

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when a backend is not configured or cannot
// be reached.
var ErrUnavailable = errors.New("responder unavailable")

// Responder generates an AI reply for a user prompt given the role's
// assembled knowledge context. Calls may take an unbounded, variable time
// and must honor ctx cancellation/deadlines.
type Responder interface {
	Generate(ctx context.Context, prompt string, contextEntries []string) (string, error)
}
