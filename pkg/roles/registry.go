package roles

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"memoryecho/pkg/logger"
	"memoryecho/pkg/models"
	"memoryecho/pkg/store"
)

// ErrNotFound is returned when an operation references an absent role id.
var ErrNotFound = errors.New("role not found")

// Registry owns the role collection. It keeps roles in memory in insertion
// order and writes the whole collection through to the durable store on
// every mutation. A failed write leaves in-memory state authoritative; the
// error is returned so callers can surface it as a warning.
type Registry struct {
	mu    sync.RWMutex
	roles []models.Role
}

// Load reads the persisted role collection. On first-ever load (no
// persisted data at all) it seeds one default role and persists it; a
// present-but-empty collection is left alone.
func Load() (*Registry, error) {
	r := &Registry{}
	data, found, err := store.Load(store.KeyRoles)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	if !found {
		r.roles = []models.Role{defaultRole()}
		logger.Info("roles_seeded_default", "name", r.roles[0].Name)
		if perr := r.persist(); perr != nil {
			return nil, perr
		}
		return r, nil
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &r.roles); err != nil {
			return nil, fmt.Errorf("decode roles: %w", err)
		}
	}
	logger.Info("roles_loaded", "count", len(r.roles))
	return r, nil
}

// defaultRole is the bootstrap persona created on first boot only.
func defaultRole() models.Role {
	return models.Role{
		ID:          "role-default",
		VoiceID:     "default_voice",
		BelongsTo:   "current_user",
		Name:        "Kevin",
		Description: "I build bridges between technology and the humanities, using code to capture the most honest and warm family memories.",
		Avatar:      "person.circle.fill",
		Background:  "tech-humanist",
	}
}

// List returns all roles in insertion order.
func (r *Registry) List() []models.Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Role, len(r.roles))
	copy(out, r.roles)
	return out
}

// Get returns the role with the given id.
func (r *Registry) Get(id string) (models.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ro := range r.roles {
		if ro.ID == id {
			return ro, nil
		}
	}
	return models.Role{}, ErrNotFound
}

// Add appends a role and persists the collection.
func (r *Registry) Add(ro models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles = append(r.roles, ro)
	return r.persist()
}

// Update replaces the role with a matching id.
func (r *Registry) Update(ro models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.roles {
		if r.roles[i].ID == ro.ID {
			r.roles[i] = ro
			return r.persist()
		}
	}
	return ErrNotFound
}

// Delete removes the role with the given id. Deleting a role does not
// cascade to its threads or knowledge; readers tolerate the dangling
// references.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.roles {
		if r.roles[i].ID == id {
			r.roles = append(r.roles[:i], r.roles[i+1:]...)
			return r.persist()
		}
	}
	return ErrNotFound
}

// persist writes the whole collection; caller must hold r.mu.
func (r *Registry) persist() error {
	data, err := json.Marshal(r.roles)
	if err != nil {
		return fmt.Errorf("encode roles: %w", err)
	}
	return store.Save(store.KeyRoles, data)
}
