// Package api assembles the HTTP routing for the engine.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"memoryecho/pkg/api/handlers"
	"memoryecho/pkg/chat"
	"memoryecho/pkg/knowledge"
	"memoryecho/pkg/roles"
	"memoryecho/pkg/threads"
	"memoryecho/pkg/voice"
)

// Deps are the core components the API surface drives.
type Deps struct {
	Roles     *roles.Registry
	Knowledge *knowledge.Store
	Threads   *threads.Store
	Chat      *chat.Orchestrator
	Voice     voice.Capability
}

// Handler returns the versioned API router. Health, metrics and docs
// endpoints are mounted by the app layer, outside the auth middleware.
func Handler(d Deps) http.Handler {
	r := mux.NewRouter()
	v := d.Voice
	if v == nil {
		v = voice.Unconfigured{}
	}
	h := &handlers.Handlers{
		Roles:     d.Roles,
		Knowledge: d.Knowledge,
		Threads:   d.Threads,
		Chat:      d.Chat,
		Voice:     v,
	}
	h.Register(r.PathPrefix("/v1").Subrouter())
	return r
}
