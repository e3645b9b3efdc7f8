package store

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"memoryecho/pkg/logger"
)

// The store persists each entity collection as a single JSON blob under a
// fixed key. Stores keep their collections in memory and write through on
// every mutation; this package is the only component touching stable
// storage.

const (
	// Fixed collection keys, one per entity kind.
	KeyRoles     = "collection:roles"
	KeyKnowledge = "collection:knowledge"
	KeyThreads   = "collection:threads"
)

// ErrNotReady is returned when the store is used before Open.
var ErrNotReady = errors.New("pebble not opened; call store.Open first")

var (
	db     *pebble.DB
	dbPath string
)

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	dbPath = ""
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// Save writes a serialized value under its key with a synced write.
// A failed write leaves in-memory state authoritative and durable state
// stale; callers surface the error rather than swallow it.
func Save(key string, data []byte) error {
	if db == nil {
		return ErrNotReady
	}
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("store_save_failed", "key", key, "error", err)
		return fmt.Errorf("save %s: %w", key, err)
	}
	logger.Debug("store_saved", "key", key, "len", len(data))
	return nil
}

// Load returns the value stored under key. The second return value is
// false when the key has never been written, which callers use to
// distinguish "first boot" from "present but empty".
func Load(key string) ([]byte, bool, error) {
	if db == nil {
		return nil, false, ErrNotReady
	}
	v, closer, err := db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		logger.Error("store_load_failed", "key", key, "error", err)
		return nil, false, err
	}
	out := append([]byte(nil), v...)
	if closer != nil {
		_ = closer.Close()
	}
	return out, true, nil
}

// DeleteKey removes a raw key. Missing keys are not an error.
func DeleteKey(key string) error {
	if db == nil {
		return ErrNotReady
	}
	if err := db.Delete([]byte(key), pebble.Sync); err != nil {
		logger.Error("delete_key_failed", "key", key, "error", err)
		return err
	}
	return nil
}

// ListKeys returns all keys (as strings) that start with the given prefix.
// If prefix is empty it returns all keys in the DB.
func ListKeys(prefix string) ([]string, error) {
	if db == nil {
		return nil, ErrNotReady
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	if prefix == "" {
		for iter.First(); iter.Valid(); iter.Next() {
			k := append([]byte(nil), iter.Key()...)
			out = append(out, string(k))
		}
		return out, iter.Error()
	}
	pfx := []byte(prefix)
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		k := append([]byte(nil), iter.Key()...)
		out = append(out, string(k))
	}
	return out, iter.Error()
}

// Path returns the directory the DB was opened at, or "" when closed.
func Path() string { return dbPath }
