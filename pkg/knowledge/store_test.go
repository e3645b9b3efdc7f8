package knowledge

import (
	"errors"
	"strings"
	"testing"

	"memoryecho/pkg/models"
	"memoryecho/pkg/store"
)

func openStore(t *testing.T) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
}

func TestAddBatchSkipsBlanks(t *testing.T) {
	openStore(t)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	added, err := s.AddBatch("role-1", []string{"", "   ", "  valid  "}, nil)
	if err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if len(added) != 1 {
		t.Fatalf("AddBatch: stored %d entries, want 1", len(added))
	}
	if added[0].Content != "valid" {
		t.Fatalf("AddBatch: content %q, want trimmed %q", added[0].Content, "valid")
	}

	// all-blank batch stores nothing and is not an error
	added, err = s.AddBatch("role-1", []string{"", "\t"}, nil)
	if err != nil {
		t.Fatalf("all-blank AddBatch: %v", err)
	}
	if len(added) != 0 {
		t.Fatalf("all-blank AddBatch stored %d entries", len(added))
	}
	if n := len(s.ByRole("role-1")); n != 1 {
		t.Fatalf("role has %d entries, want 1", n)
	}
}

func TestAddBatchNames(t *testing.T) {
	openStore(t)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	added, err := s.AddBatch("role-1", []string{"a", "b"}, []string{"first"})
	if err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if len(added) != 2 {
		t.Fatalf("stored %d entries, want 2", len(added))
	}
	if added[0].Name != "first" {
		t.Fatalf("entry 0 name %q, want %q", added[0].Name, "first")
	}
	if !strings.HasPrefix(added[1].Name, "Memory #") {
		t.Fatalf("entry 1 name %q, want generated default", added[1].Name)
	}
}

func TestByRoleNewestFirst(t *testing.T) {
	openStore(t)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a := New("role-1", "a", "oldest", models.KnowledgeText)
	a.CreatedTS = 100
	b := New("role-1", "b", "middle", models.KnowledgeText)
	b.CreatedTS = 200
	c := New("role-1", "c", "newest", models.KnowledgeText)
	c.CreatedTS = 300
	d := New("role-2", "d", "other role", models.KnowledgeText)
	for _, k := range []models.Knowledge{a, c, b, d} {
		if err := s.Add(k); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	got := s.ByRole("role-1")
	want := []string{"newest", "middle", "oldest"}
	if len(got) != len(want) {
		t.Fatalf("ByRole: got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Content != want[i] {
			t.Fatalf("ByRole[%d]: got %q, want %q", i, got[i].Content, want[i])
		}
	}

	if got := s.ByRole("dangling"); len(got) != 0 {
		t.Fatalf("dangling role: got %d entries, want 0", len(got))
	}
}

func TestUpdatePreservesIdentity(t *testing.T) {
	openStore(t)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	k := New("role-1", "name", "content", models.KnowledgeText)
	if err := s.Add(k); err != nil {
		t.Fatalf("Add: %v", err)
	}

	upd := k
	upd.RoleID = "role-other" // must be ignored
	upd.Content = "revised"
	got, err := s.Update(upd)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.RoleID != "role-1" {
		t.Fatalf("Update rewrote role id to %q", got.RoleID)
	}
	if got.Content != "revised" {
		t.Fatalf("Update content %q, want revised", got.Content)
	}
	if got.CreatedTS != k.CreatedTS {
		t.Fatal("Update rewrote created timestamp")
	}
	if got.UpdatedTS <= k.UpdatedTS {
		t.Fatal("Update did not bump updated timestamp")
	}

	if _, err := s.Update(models.Knowledge{ID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update unknown: got %v, want ErrNotFound", err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	openStore(t)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := s.AddBatch("role-1", []string{"one", "two"}, nil); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}

	s2, err := Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if n := len(s2.ByRole("role-1")); n != 2 {
		t.Fatalf("reload: got %d entries, want 2", n)
	}
	if got := s2.RoleIDs(); len(got) != 1 || got[0] != "role-1" {
		t.Fatalf("RoleIDs: got %v", got)
	}
}
