package retention

import (
	"testing"

	"memoryecho/pkg/knowledge"
	"memoryecho/pkg/roles"
	"memoryecho/pkg/store"
	"memoryecho/pkg/threads"
)

func setup(t *testing.T) Stores {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	rr, err := roles.Load()
	if err != nil {
		t.Fatalf("roles.Load: %v", err)
	}
	ks, err := knowledge.Load()
	if err != nil {
		t.Fatalf("knowledge.Load: %v", err)
	}
	ts, err := threads.Load()
	if err != nil {
		t.Fatalf("threads.Load: %v", err)
	}
	return Stores{Roles: rr, Knowledge: ks, Threads: ts}
}

func TestRunOncePurgesDangling(t *testing.T) {
	s := setup(t)

	// live data for the seeded default role
	if _, err := s.Threads.Create("role-default", "user-1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Knowledge.AddBatch("role-default", []string{"keep"}, nil); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}

	// dangling data for a role that was deleted
	if _, err := s.Threads.Create("role-gone", "user-1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Knowledge.AddBatch("role-gone", []string{"drop", "drop too"}, nil); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}

	if err := RunOnce(false, s); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if n := len(s.Threads.List()); n != 1 {
		t.Fatalf("threads after sweep: %d, want 1", n)
	}
	if n := len(s.Knowledge.ByRole("role-gone")); n != 0 {
		t.Fatalf("dangling knowledge survived: %d entries", n)
	}
	if n := len(s.Knowledge.ByRole("role-default")); n != 1 {
		t.Fatalf("live knowledge purged: %d entries left", n)
	}
}

func TestRunOnceDryRun(t *testing.T) {
	s := setup(t)

	if _, err := s.Threads.Create("role-gone", "user-1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Knowledge.AddBatch("role-gone", []string{"x"}, nil); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}

	if err := RunOnce(true, s); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n := len(s.Threads.List()); n != 1 {
		t.Fatalf("dry run deleted threads: %d left", n)
	}
	if n := len(s.Knowledge.ByRole("role-gone")); n != 1 {
		t.Fatalf("dry run deleted knowledge: %d left", n)
	}
}
