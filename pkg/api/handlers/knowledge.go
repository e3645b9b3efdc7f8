package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"memoryecho/pkg/knowledge"
	"memoryecho/pkg/models"
	"memoryecho/pkg/utils"
)

func (h *Handlers) registerKnowledge(r *mux.Router) {
	r.HandleFunc("/roles/{id}/knowledge", h.addKnowledge).Methods(http.MethodPost)
	r.HandleFunc("/roles/{id}/knowledge", h.listKnowledge).Methods(http.MethodGet)
	r.HandleFunc("/roles/{id}/knowledge/summary", h.summarizeKnowledge).Methods(http.MethodPost)
	r.HandleFunc("/knowledge/{id}", h.updateKnowledge).Methods(http.MethodPut)
	r.HandleFunc("/knowledge/{id}", h.deleteKnowledge).Methods(http.MethodDelete)
}

// addKnowledgeRequest accepts either a single entry or a batch. Batch
// entries that are blank after trimming are skipped entirely.
type addKnowledgeRequest struct {
	Name    string `json:"name,omitempty"`
	Content string `json:"content,omitempty"`
	Type    string `json:"type,omitempty"`

	Contents []string `json:"contents,omitempty"`
	Names    []string `json:"names,omitempty"`
}

// addKnowledge handles POST /v1/roles/{id}/knowledge. The role id is not
// validated against the registry; entries for unknown roles are stored
// and simply never assembled.
func (h *Handlers) addKnowledge(w http.ResponseWriter, r *http.Request) {
	roleID := mux.Vars(r)["id"]
	var req addKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if len(req.Contents) > 0 {
		added, err := h.Knowledge.AddBatch(roleID, req.Contents, req.Names)
		_ = utils.JSONWrite(w, http.StatusCreated, struct {
			Knowledge []models.Knowledge `json:"knowledge"`
			Warning   string             `json:"warning,omitempty"`
		}{Knowledge: added, Warning: persistWarning(err)})
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		utils.JSONError(w, http.StatusBadRequest, "content is empty")
		return
	}
	k := knowledge.New(roleID, req.Name, strings.TrimSpace(req.Content), models.KnowledgeType(req.Type))
	err := h.Knowledge.Add(k)
	_ = utils.JSONWrite(w, http.StatusCreated, struct {
		Knowledge models.Knowledge `json:"knowledge"`
		Warning   string           `json:"warning,omitempty"`
	}{Knowledge: k, Warning: persistWarning(err)})
}

// listKnowledge returns a role's entries newest first. A dangling or
// unknown role id yields an empty list, not an error.
func (h *Handlers) listKnowledge(w http.ResponseWriter, r *http.Request) {
	roleID := mux.Vars(r)["id"]
	out := h.Knowledge.ByRole(roleID)
	if out == nil {
		out = []models.Knowledge{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Knowledge []models.Knowledge `json:"knowledge"`
	}{Knowledge: out})
}

// summarizeKnowledge handles POST /v1/roles/{id}/knowledge/summary: it
// runs the role's assembled knowledge through the responder and returns
// the digest without touching any thread.
func (h *Handlers) summarizeKnowledge(w http.ResponseWriter, r *http.Request) {
	roleID := mux.Vars(r)["id"]
	out, err := h.Chat.ProcessKnowledge(r.Context(), roleID)
	if err != nil {
		utils.JSONError(w, http.StatusBadGateway, "knowledge summary failed")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"summary": out})
}

func (h *Handlers) updateKnowledge(w http.ResponseWriter, r *http.Request) {
	var k models.Knowledge
	if err := json.NewDecoder(r.Body).Decode(&k); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	k.ID = mux.Vars(r)["id"]
	stored, err := h.Knowledge.Update(k)
	if errors.Is(err, knowledge.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "knowledge entry not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Knowledge models.Knowledge `json:"knowledge"`
		Warning   string           `json:"warning,omitempty"`
	}{Knowledge: stored, Warning: persistWarning(err)})
}

func (h *Handlers) deleteKnowledge(w http.ResponseWriter, r *http.Request) {
	err := h.Knowledge.Delete(mux.Vars(r)["id"])
	if errors.Is(err, knowledge.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "knowledge entry not found")
		return
	}
	if warn := persistWarning(err); warn != "" {
		_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"warning": warn})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
