package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"memoryecho/pkg/logger"
	"memoryecho/pkg/models"
	"memoryecho/pkg/store"
	"memoryecho/pkg/utils"
)

// ErrNotFound is returned when an operation references an absent entry id.
var ErrNotFound = errors.New("knowledge entry not found")

// Store owns the knowledge collection: every memory entry for every role,
// kept in memory in insertion order and written through as one JSON blob
// on each mutation.
type Store struct {
	mu      sync.RWMutex
	entries []models.Knowledge
}

// Load reads the persisted knowledge collection. An absent collection just
// starts empty; there is no seeding.
func Load() (*Store, error) {
	s := &Store{}
	data, found, err := store.Load(store.KeyKnowledge)
	if err != nil {
		return nil, fmt.Errorf("load knowledge: %w", err)
	}
	if found && len(data) > 0 {
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, fmt.Errorf("decode knowledge: %w", err)
		}
	}
	logger.Info("knowledge_loaded", "count", len(s.entries))
	return s, nil
}

// New builds a knowledge entry with a fresh id and timestamps. An empty
// name defaults to a timestamp-derived label.
func New(roleID, name, content string, typ models.KnowledgeType) models.Knowledge {
	now := time.Now().UTC()
	if name == "" {
		name = fmt.Sprintf("Memory #%d", now.Unix())
	}
	if typ == "" {
		typ = models.KnowledgeText
	}
	return models.Knowledge{
		ID:        utils.GenID(),
		RoleID:    roleID,
		Name:      name,
		Content:   content,
		Type:      typ,
		CreatedTS: now.UnixNano(),
		UpdatedTS: now.UnixNano(),
	}
}

// Add appends a single entry and persists the collection.
func (s *Store) Add(k models.Knowledge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, k)
	return s.persist()
}

// AddBatch trims each content string, skips entries that are empty after
// trimming, and appends all survivors as one persisted update. names[i]
// is used when provided; missing or empty names trigger the default-name
// rule. The stored survivors are returned in input order.
func (s *Store) AddBatch(roleID string, contents []string, names []string) ([]models.Knowledge, error) {
	var added []models.Knowledge
	for i, c := range contents {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		name := ""
		if i < len(names) {
			name = names[i]
		}
		added = append(added, New(roleID, name, c, models.KnowledgeText))
	}
	if len(added) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, added...)
	if err := s.persist(); err != nil {
		return added, err
	}
	logger.Info("knowledge_batch_added", "role", roleID, "count", len(added))
	return added, nil
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (models.Knowledge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.entries {
		if k.ID == id {
			return k, nil
		}
	}
	return models.Knowledge{}, ErrNotFound
}

// Update replaces the entry with a matching id, bumping its updated
// timestamp. Identity fields (id, role, created) stay as stored.
func (s *Store) Update(k models.Knowledge) (models.Knowledge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == k.ID {
			cur := s.entries[i]
			cur.Name = k.Name
			cur.Content = k.Content
			if k.Type != "" {
				cur.Type = k.Type
			}
			cur.UpdatedTS = time.Now().UTC().UnixNano()
			s.entries[i] = cur
			return cur, s.persist()
		}
	}
	return models.Knowledge{}, ErrNotFound
}

// Delete removes the entry with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return s.persist()
		}
	}
	return ErrNotFound
}

// ByRole returns a role's entries sorted newest-first by creation time.
// Ties keep insertion order (stable sort). A role id with no entries,
// including a dangling one, yields an empty slice.
func (s *Store) ByRole(roleID string) []models.Knowledge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Knowledge
	for _, k := range s.entries {
		if k.RoleID == roleID {
			out = append(out, k)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedTS > out[j].CreatedTS
	})
	return out
}

// RoleIDs returns the distinct role ids referenced by stored entries, in
// first-seen order.
func (s *Store) RoleIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, k := range s.entries {
		if _, ok := seen[k.RoleID]; ok {
			continue
		}
		seen[k.RoleID] = struct{}{}
		out = append(out, k.RoleID)
	}
	return out
}

// TextByRole returns just the content strings of ByRole, same order.
func (s *Store) TextByRole(roleID string) []string {
	ks := s.ByRole(roleID)
	out := make([]string, 0, len(ks))
	for _, k := range ks {
		out = append(out, k.Content)
	}
	return out
}

// persist writes the whole collection; caller must hold s.mu.
func (s *Store) persist() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("encode knowledge: %w", err)
	}
	return store.Save(store.KeyKnowledge, data)
}
