// Package handlers implements the JSON API over the core stores and the
// generation orchestrator. Each route maps 1:1 to a core operation.
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"memoryecho/pkg/auth"
	"memoryecho/pkg/chat"
	"memoryecho/pkg/knowledge"
	"memoryecho/pkg/logger"
	"memoryecho/pkg/roles"
	"memoryecho/pkg/telemetry"
	"memoryecho/pkg/threads"
	"memoryecho/pkg/voice"
)

// Handlers bundles the core components the HTTP surface drives.
type Handlers struct {
	Roles     *roles.Registry
	Knowledge *knowledge.Store
	Threads   *threads.Store
	Chat      *chat.Orchestrator
	Voice     voice.Capability
}

// Register attaches every route to the provided router.
func (h *Handlers) Register(r *mux.Router) {
	h.registerRoles(r)
	h.registerKnowledge(r)
	h.registerThreads(r)
	h.registerVoice(r)
}

// callerID returns the requesting user's id as set by the auth
// middleware.
func callerID(r *http.Request) string {
	return auth.UserIDFromContext(r.Context())
}

// persistWarning turns a write-through failure into a response warning.
// In-memory state is already updated, so the operation succeeded from the
// caller's point of view; the stale durable copy is worth retrying.
func persistWarning(err error) string {
	if err == nil {
		return ""
	}
	telemetry.PersistenceFailures.Inc()
	logger.Warn("persistence_failed", "error", err)
	return "durable write failed; change held in memory, retry later"
}
