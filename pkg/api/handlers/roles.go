package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"memoryecho/pkg/models"
	"memoryecho/pkg/roles"
	"memoryecho/pkg/utils"
)

func (h *Handlers) registerRoles(r *mux.Router) {
	r.HandleFunc("/roles", h.createRole).Methods(http.MethodPost)
	r.HandleFunc("/roles", h.listRoles).Methods(http.MethodGet)
	r.HandleFunc("/roles/{id}", h.getRole).Methods(http.MethodGet)
	r.HandleFunc("/roles/{id}", h.updateRole).Methods(http.MethodPut)
	r.HandleFunc("/roles/{id}", h.deleteRole).Methods(http.MethodDelete)
}

type roleResponse struct {
	Role    models.Role `json:"role"`
	Warning string      `json:"warning,omitempty"`
}

// createRole handles POST /v1/roles. The body is a Role record; id is
// assigned server-side when absent.
func (h *Handlers) createRole(w http.ResponseWriter, r *http.Request) {
	var ro models.Role
	if err := json.NewDecoder(r.Body).Decode(&ro); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if ro.ID == "" {
		ro.ID = utils.GenID()
	}
	if ro.BelongsTo == "" {
		ro.BelongsTo = callerID(r)
	}
	err := h.Roles.Add(ro)
	_ = utils.JSONWrite(w, http.StatusCreated, roleResponse{Role: ro, Warning: persistWarning(err)})
}

func (h *Handlers) listRoles(w http.ResponseWriter, r *http.Request) {
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Roles []models.Role `json:"roles"`
	}{Roles: h.Roles.List()})
}

func (h *Handlers) getRole(w http.ResponseWriter, r *http.Request) {
	ro, err := h.Roles.Get(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "role not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, ro)
}

func (h *Handlers) updateRole(w http.ResponseWriter, r *http.Request) {
	var ro models.Role
	if err := json.NewDecoder(r.Body).Decode(&ro); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	ro.ID = mux.Vars(r)["id"]
	err := h.Roles.Update(ro)
	if errors.Is(err, roles.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "role not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, roleResponse{Role: ro, Warning: persistWarning(err)})
}

// deleteRole removes the role only. Threads and knowledge referencing it
// stay; readers treat the dangling role id as an empty result.
func (h *Handlers) deleteRole(w http.ResponseWriter, r *http.Request) {
	err := h.Roles.Delete(mux.Vars(r)["id"])
	if errors.Is(err, roles.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "role not found")
		return
	}
	if warn := persistWarning(err); warn != "" {
		_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"warning": warn})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
