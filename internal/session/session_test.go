package session

import (
	"os"
	"path/filepath"
	"testing"

	"pocketgrow/internal/core"
)

func TestMemoryLifecycle(t *testing.T) {
	m := NewMemory()

	if _, ok := m.Token(); ok {
		t.Fatalf("fresh store must be logged out")
	}

	u := core.UserSummary{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: core.RoleAdmin}
	if err := m.SetToken("tok-1", u); err != nil {
		t.Fatalf("set: %v", err)
	}

	tok, ok := m.Token()
	if !ok || tok != "tok-1" {
		t.Fatalf("token=%q ok=%v", tok, ok)
	}
	got, ok := m.User()
	if !ok || got.ID != "u1" || got.Role != core.RoleAdmin {
		t.Fatalf("user=%+v ok=%v", got, ok)
	}

	if err := m.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := m.Token(); ok {
		t.Fatalf("cleared store must be logged out")
	}
}

func TestFilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := f.Token(); ok {
		t.Fatalf("missing file must mean logged out")
	}

	u := core.UserSummary{ID: "u2", Name: "Sam", Email: "sam@example.com", Role: core.RoleColleague}
	if err := f.SetToken("tok-2", u); err != nil {
		t.Fatalf("set: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("session file mode = %v, want 0600", info.Mode().Perm())
	}

	// A second store at the same path sees the persisted session.
	reloaded, err := NewFile(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	tok, ok := reloaded.Token()
	if !ok || tok != "tok-2" {
		t.Fatalf("reloaded token=%q ok=%v", tok, ok)
	}
	got, _ := reloaded.User()
	if got.Email != "sam@example.com" || got.Role != core.RoleColleague {
		t.Fatalf("reloaded user=%+v", got)
	}

	if err := reloaded.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("clear must remove the file, stat err=%v", err)
	}
	// Clearing an already-cleared session stays quiet.
	if err := reloaded.Clear(); err != nil {
		t.Fatalf("double clear: %v", err)
	}
}

func TestFileRejectsCorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := NewFile(path); err == nil {
		t.Fatalf("corrupt session file must fail to load")
	}
}
