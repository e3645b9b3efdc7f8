package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"memoryecho/pkg/utils"
	"memoryecho/pkg/voice"
)

func (h *Handlers) registerVoice(r *mux.Router) {
	r.HandleFunc("/roles/{id}/voice", h.synthesizeVoice).Methods(http.MethodPost)
}

// synthesizeVoice handles POST /v1/roles/{id}/voice: render text as audio
// in the role's voice. Deployments without an audio backend answer 501;
// everything else about the engine works without one.
func (h *Handlers) synthesizeVoice(w http.ResponseWriter, r *http.Request) {
	ro, err := h.Roles.Get(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "role not found")
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.JSONError(w, http.StatusBadRequest, "text is empty")
		return
	}
	ref, err := h.Voice.Synthesize(r.Context(), req.Text, ro.VoiceID)
	if errors.Is(err, voice.ErrUnavailable) {
		utils.JSONError(w, http.StatusNotImplemented, "voice capability not configured")
		return
	}
	if err != nil {
		utils.JSONError(w, http.StatusBadGateway, "voice synthesis failed")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"audio_ref": string(ref)})
}
