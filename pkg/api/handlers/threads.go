package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"memoryecho/pkg/chat"
	"memoryecho/pkg/models"
	"memoryecho/pkg/threads"
	"memoryecho/pkg/utils"
)

func (h *Handlers) registerThreads(r *mux.Router) {
	r.HandleFunc("/threads", h.createThread).Methods(http.MethodPost)
	r.HandleFunc("/threads", h.listThreads).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}", h.getThread).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}", h.updateThread).Methods(http.MethodPut)
	r.HandleFunc("/threads/{id}", h.deleteThread).Methods(http.MethodDelete)
	r.HandleFunc("/threads/{id}/messages", h.sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/messages", h.listMessages).Methods(http.MethodGet)
}

type threadResponse struct {
	Thread  models.Thread `json:"thread"`
	Warning string        `json:"warning,omitempty"`
}

// createThread handles POST /v1/threads with a body naming the role. The
// role id is not validated; a thread against a dangling role still works,
// its generations just run with an empty knowledge context.
func (h *Handlers) createThread(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoleID string `json:"role_id"`
		UserID string `json:"user_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.RoleID == "" {
		utils.JSONError(w, http.StatusBadRequest, "role_id is required")
		return
	}
	if req.UserID == "" {
		req.UserID = callerID(r)
	}
	t, err := h.Threads.Create(req.RoleID, req.UserID)
	_ = utils.JSONWrite(w, http.StatusCreated, threadResponse{Thread: t, Warning: persistWarning(err)})
}

// listThreads handles GET /v1/threads?role=<id>, sorted most recently
// updated first. Without a role filter all threads are returned in
// insertion order.
func (h *Handlers) listThreads(w http.ResponseWriter, r *http.Request) {
	var out []models.Thread
	if roleID := r.URL.Query().Get("role"); roleID != "" {
		out = h.Threads.ByRole(roleID)
	} else {
		out = h.Threads.List()
	}
	if out == nil {
		out = []models.Thread{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Threads []models.Thread `json:"threads"`
	}{Threads: out})
}

func (h *Handlers) getThread(w http.ResponseWriter, r *http.Request) {
	t, err := h.Threads.Get(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "thread not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, t)
}

// updateThread replaces thread metadata wholesale (title, typically). The
// message log comes from the stored thread, not the request body:
// messages are append-only and cannot be rewritten over HTTP.
func (h *Handlers) updateThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cur, err := h.Threads.Get(id)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "thread not found")
		return
	}
	var req models.Thread
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	cur.Title = req.Title
	stored, err := h.Threads.Update(cur)
	if errors.Is(err, threads.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "thread not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, threadResponse{Thread: stored, Warning: persistWarning(err)})
}

func (h *Handlers) deleteThread(w http.ResponseWriter, r *http.Request) {
	err := h.Threads.Delete(mux.Vars(r)["id"])
	if errors.Is(err, threads.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "thread not found")
		return
	}
	if warn := persistWarning(err); warn != "" {
		_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"warning": warn})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sendMessage handles POST /v1/threads/{id}/messages: one full user turn
// through the orchestrator. Status codes map the protocol's failure
// modes: 400 blank input, 404 unknown thread, 409 a generation is already
// in flight, 502 the responder failed (the user turn is kept either way).
func (h *Handlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["id"]
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := h.Threads.Get(threadID)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "thread not found")
		return
	}
	res, err := h.Chat.Send(r.Context(), threadID, t.RoleID, callerID(r), req.Content)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		utils.JSONError(w, http.StatusBadRequest, "message text is empty")
	case errors.Is(err, chat.ErrBusy):
		utils.JSONError(w, http.StatusConflict, "a generation is already in flight for this thread")
	case errors.Is(err, threads.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, "thread not found")
	case errors.Is(err, chat.ErrGenerationFailed):
		_ = utils.JSONWrite(w, http.StatusBadGateway, struct {
			Error       string         `json:"error"`
			UserMessage models.Message `json:"user_message"`
		}{Error: "generation failed; your message was saved", UserMessage: res.UserMessage})
	case err != nil:
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
	default:
		_ = utils.JSONWrite(w, http.StatusOK, res)
	}
}

func (h *Handlers) listMessages(w http.ResponseWriter, r *http.Request) {
	t, err := h.Threads.Get(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "thread not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Thread   string           `json:"thread"`
		Messages []models.Message `json:"messages"`
	}{Thread: t.ID, Messages: t.Content})
}
