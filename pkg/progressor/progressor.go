package progressor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"memoryecho/pkg/logger"
	"memoryecho/pkg/models"
	"memoryecho/pkg/store"
)

const (
	systemVersionKey    = "system:version"
	systemInProgressKey = "system:migration_in_progress"
)

// Sync performs upgrade work between versions. Edit in-place for migration logic.
func Sync(ctx context.Context, from, to string) error {
	logger.Info("progressor_sync_start", "from", from, "to", to)

	// Migration: backfill blank thread titles. Earlier builds allowed a
	// thread to be created with an empty title; normalize those to the
	// default so list views never render a blank row. Idempotent.
	raw, found, err := store.Load(store.KeyThreads)
	if err != nil {
		logger.Error("progressor_load_threads_failed", "error", err)
		return err
	}
	if found {
		var threads []models.Thread
		if err := json.Unmarshal(raw, &threads); err != nil {
			logger.Error("progressor_unmarshal_threads_failed", "error", err)
			return err
		}
		changed := 0
		for i := range threads {
			if threads[i].Title != "" {
				continue
			}
			threads[i].Title = "New conversation"
			threads[i].UpdatedTS = time.Now().UTC().UnixNano()
			changed++
		}
		if changed > 0 {
			nb, err := json.Marshal(threads)
			if err != nil {
				return err
			}
			if err := store.Save(store.KeyThreads, nb); err != nil {
				logger.Error("progressor_save_threads_failed", "error", err)
				return err
			}
			logger.Info("progressor_titles_backfilled", "count", changed)
		}
	}

	logger.Info("progressor_sync_done", "from", from, "to", to)
	return nil
}

// Run checks for a version change and runs Sync if needed.
// Returns (invoked, error): invoked is true if Sync ran.
func Run(ctx context.Context, newVersion string) (bool, error) {
	stored := storedVersion()
	logger.Info("progressor_version_check", "stored", stored, "running", newVersion)

	if stored == newVersion {
		logger.Info("progressor_noop", "version", newVersion)
		return false, nil
	}

	marker := map[string]string{
		"from":       stored,
		"to":         newVersion,
		"started_at": time.Now().UTC().Format(time.RFC3339),
	}
	mb, _ := json.Marshal(marker)
	if err := store.Save(systemInProgressKey, mb); err != nil {
		logger.Error("progressor_write_inprogress_failed", "error", err)
		return true, fmt.Errorf("failed to write in-progress marker: %w", err)
	}

	logger.Info("progressor_start_sync", "from", stored, "to", newVersion)
	if err := Sync(ctx, stored, newVersion); err != nil {
		logger.Error("progressor_sync_failed", "from", stored, "to", newVersion, "error", err)
		return true, err
	}
	logger.Info("progressor_sync_succeeded", "from", stored, "to", newVersion)

	if err := store.Save(systemVersionKey, []byte(newVersion)); err != nil {
		logger.Error("progressor_persist_version_failed", "version", newVersion, "error", err)
		return true, fmt.Errorf("failed to persist new version: %w", err)
	}

	if err := store.DeleteKey(systemInProgressKey); err != nil {
		logger.Error("progressor_delete_inprogress_failed", "error", err)
	}

	logger.Info("progressor_version_persisted", "version", newVersion)
	return true, nil
}

func storedVersion() string {
	v, found, err := store.Load(systemVersionKey)
	if err != nil || !found {
		return ""
	}
	return string(v)
}
