// Package retention runs the optional dangling-reference sweeper: a
// cron-scheduled job that purges knowledge entries and threads whose role
// no longer exists. Role deletion itself never cascades; this sweeper is
// the explicit, opt-in cleanup for deployments that want it.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"memoryecho/pkg/config"
	"memoryecho/pkg/knowledge"
	"memoryecho/pkg/logger"
	"memoryecho/pkg/roles"
	"memoryecho/pkg/threads"
)

// Stores are the collections the sweeper reads and prunes.
type Stores struct {
	Roles     *roles.Registry
	Knowledge *knowledge.Store
	Threads   *threads.Store
}

// Start launches the scheduler when enabled and returns a cancel func.
// The default schedule is daily at 02:00.
func Start(ctx context.Context, cfg config.RetentionConfig, s Stores) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cfg.Cron)
	}
	logger.Info("retention_enabled", "cron", cronExpr, "dry_run", cfg.DryRun)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, cfg.DryRun, s)
	return cancel, nil
}

// runScheduler sleeps until the next cron tick and triggers a sweep.
func runScheduler(ctx context.Context, cronExpr string, dryRun bool, s Stores) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := RunOnce(dryRun, s); err != nil {
				logger.Error("retention_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

// RunOnce performs a single sweep. With dryRun it only reports what would
// be removed. Persistence errors are collected, not fatal.
func RunOnce(dryRun bool, s Stores) error {
	live := make(map[string]struct{})
	for _, ro := range s.Roles.List() {
		live[ro.ID] = struct{}{}
	}

	var purgedKnowledge, purgedThreads int
	var firstErr error

	for _, t := range s.Threads.List() {
		if _, ok := live[t.RoleID]; ok {
			continue
		}
		purgedThreads++
		if dryRun {
			continue
		}
		if err := s.Threads.Delete(t.ID); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for roleID := range danglingRoles(s.Knowledge, live) {
		for _, k := range s.Knowledge.ByRole(roleID) {
			purgedKnowledge++
			if dryRun {
				continue
			}
			if err := s.Knowledge.Delete(k.ID); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	logger.Info("retention_run_complete",
		"dry_run", dryRun,
		"purged_threads", purgedThreads,
		"purged_knowledge", purgedKnowledge)
	return firstErr
}

// danglingRoles returns the role ids referenced by knowledge entries that
// no longer exist in the registry.
func danglingRoles(ks *knowledge.Store, live map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for _, roleID := range ks.RoleIDs() {
		if _, ok := live[roleID]; !ok {
			out[roleID] = struct{}{}
		}
	}
	return out
}
