package threads

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"memoryecho/pkg/logger"
	"memoryecho/pkg/models"
	"memoryecho/pkg/store"
	"memoryecho/pkg/utils"
)

// ErrNotFound is returned when an operation references an absent thread id.
var ErrNotFound = errors.New("thread not found")

// DefaultTitle is given to threads created without one.
const DefaultTitle = "New conversation"

// Store owns the thread collection. Appends to one thread are serialized
// by a per-thread mutex so the read-modify-persist sequence is atomic per
// thread while appends to different threads proceed independently; the
// structural map is guarded by a short global lock and snapshot writes
// are serialized separately so every durable write reflects a consistent
// post-mutation state.
type Store struct {
	mu      sync.RWMutex
	threads map[string]*models.Thread
	order   []string
	locks   map[string]*sync.Mutex

	// persistMu serializes snapshot marshal+write pairs; without it two
	// overlapping writes could reach disk out of order and drop an append.
	persistMu sync.Mutex
}

// Load reads the persisted thread collection.
func Load() (*Store, error) {
	s := &Store{
		threads: make(map[string]*models.Thread),
		locks:   make(map[string]*sync.Mutex),
	}
	data, found, err := store.Load(store.KeyThreads)
	if err != nil {
		return nil, fmt.Errorf("load threads: %w", err)
	}
	if found && len(data) > 0 {
		var list []models.Thread
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode threads: %w", err)
		}
		for i := range list {
			t := list[i]
			s.threads[t.ID] = &t
			s.order = append(s.order, t.ID)
		}
	}
	logger.Info("threads_loaded", "count", len(s.order))
	return s, nil
}

// Create makes a new empty thread for the (user, role) pair and persists
// it immediately. Uniqueness of the pair is not enforced; a user may hold
// several concurrent threads with the same role.
func (s *Store) Create(roleID, userID string) (models.Thread, error) {
	now := time.Now().UTC().UnixNano()
	t := models.Thread{
		ID:        utils.GenID(),
		UserID:    userID,
		RoleID:    roleID,
		Title:     DefaultTitle,
		Content:   []models.Message{},
		CreatedTS: now,
		UpdatedTS: now,
	}
	s.mu.Lock()
	s.threads[t.ID] = cloneThread(&t)
	s.order = append(s.order, t.ID)
	s.mu.Unlock()
	err := s.persist()
	logger.Info("thread_created", "thread", t.ID, "role", roleID, "user", userID)
	return t, err
}

// Get returns a copy of the thread with the given id.
func (s *Store) Get(id string) (models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return models.Thread{}, ErrNotFound
	}
	return *cloneThread(t), nil
}

// ByRole returns all threads referencing the role, sorted most recently
// updated first. Ties keep insertion order. A dangling role id yields an
// empty slice, never an error.
func (s *Store) ByRole(roleID string) []models.Thread {
	s.mu.RLock()
	var out []models.Thread
	for _, id := range s.order {
		if t := s.threads[id]; t != nil && t.RoleID == roleID {
			out = append(out, *cloneThread(t))
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedTS > out[j].UpdatedTS
	})
	return out
}

// List returns every thread in insertion order.
func (s *Store) List() []models.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Thread, 0, len(s.order))
	for _, id := range s.order {
		if t := s.threads[id]; t != nil {
			out = append(out, *cloneThread(t))
		}
	}
	return out
}

// AppendMessage pushes a message to the end of the thread's log, bumps
// the updated timestamp, and persists. The whole read-modify-persist
// sequence holds the thread's own lock, so concurrent appends to the same
// thread cannot interleave or lose an entry.
func (s *Store) AppendMessage(threadID string, m models.Message) (models.Thread, error) {
	lock, ok := s.lockFor(threadID)
	if !ok {
		return models.Thread{}, ErrNotFound
	}
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	t, ok := s.threads[threadID]
	if !ok {
		// deleted between lookup and lock
		s.mu.Unlock()
		return models.Thread{}, ErrNotFound
	}
	t.Content = append(t.Content, m)
	t.UpdatedTS = bumpTS(t.UpdatedTS)
	out := *cloneThread(t)
	s.mu.Unlock()

	err := s.persist()
	return out, err
}

// Update replaces the stored thread wholesale, keeping the updated
// timestamp monotonically non-decreasing.
func (s *Store) Update(t models.Thread) (models.Thread, error) {
	s.mu.Lock()
	cur, ok := s.threads[t.ID]
	if !ok {
		s.mu.Unlock()
		return models.Thread{}, ErrNotFound
	}
	t.UpdatedTS = bumpTS(cur.UpdatedTS)
	s.threads[t.ID] = cloneThread(&t)
	s.mu.Unlock()
	return t, s.persist()
}

// Delete removes the thread and its message log.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	if _, ok := s.threads[id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.threads, id)
	delete(s.locks, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	err := s.persist()
	logger.Info("thread_deleted", "thread", id)
	return err
}

// lockFor returns the per-thread append lock, creating it on first use.
func (s *Store) lockFor(threadID string) (*sync.Mutex, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[threadID]; !ok {
		return nil, false
	}
	l, ok := s.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[threadID] = l
	}
	return l, true
}

// persist snapshots the collection and writes it through. The snapshot is
// taken inside persistMu so a later mutation's write can never be
// overwritten by an earlier, staler snapshot.
func (s *Store) persist() error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	list := make([]models.Thread, 0, len(s.order))
	for _, id := range s.order {
		if t := s.threads[id]; t != nil {
			list = append(list, *t)
		}
	}
	data, err := json.Marshal(list)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode threads: %w", err)
	}
	return store.Save(store.KeyThreads, data)
}

// cloneThread copies a thread including its message slice so callers can
// never alias the store's internal state.
func cloneThread(t *models.Thread) *models.Thread {
	c := *t
	c.Content = append([]models.Message(nil), t.Content...)
	return &c
}

// bumpTS returns the current time, nudged forward when the clock has not
// advanced past the previous value.
func bumpTS(cur int64) int64 {
	now := time.Now().UTC().UnixNano()
	if now <= cur {
		return cur + 1
	}
	return now
}
