package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/proxherd/proxherd/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestNew(t *testing.T) {
	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "proxies")

		s, err := New(dir, nil)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if s == nil {
			t.Fatal("New returned nil store")
		}

		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("directory was not created: %v", err)
		}
		if !info.IsDir() {
			t.Fatal("path is not a directory")
		}
	})

	t.Run("Dir returns base directory", func(t *testing.T) {
		dir := t.TempDir()
		s, err := New(dir, nil)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if s.Dir() != dir {
			t.Errorf("Dir() = %q, want %q", s.Dir(), dir)
		}
	})
}

func TestStore_CreateGet(t *testing.T) {
	s := newTestStore(t)

	cfg := NewProxyConfig("prox-1", "http://upstream:8080", 9000, "profile-a")
	cfg.PID = 1234

	if err := s.Create(cfg); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := s.Get("prox-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.ID != "prox-1" {
		t.Errorf("ID = %q, want %q", got.ID, "prox-1")
	}
	if got.Upstream != "http://upstream:8080" {
		t.Errorf("Upstream = %q, want %q", got.Upstream, "http://upstream:8080")
	}
	if got.RequestedPort != 9000 {
		t.Errorf("RequestedPort = %d, want 9000", got.RequestedPort)
	}
	if got.PID != 1234 {
		t.Errorf("PID = %d, want 1234", got.PID)
	}
	if got.ProfileID != "profile-a" {
		t.Errorf("ProfileID = %q, want %q", got.ProfileID, "profile-a")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestStore_Create_Duplicate(t *testing.T) {
	s := newTestStore(t)

	cfg := NewProxyConfig("prox-dup", "", 0, "")
	if err := s.Create(cfg); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	err := s.Create(cfg)
	if err == nil {
		t.Fatal("second Create should fail")
	}
	if !errors.Is(err, errors.ErrRecordExists) {
		t.Errorf("expected ErrRecordExists in chain, got %v", err)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("nonexistent")
	if err == nil {
		t.Fatal("Get should fail for missing record")
	}
	if !errors.Is(err, errors.ErrProxyNotFound) {
		t.Errorf("expected ErrProxyNotFound in chain, got %v", err)
	}
}

func TestStore_Get_Corrupt(t *testing.T) {
	s := newTestStore(t)

	// Write garbage where a record should be
	path := filepath.Join(s.Dir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	_, err := s.Get("broken")
	if err == nil {
		t.Fatal("Get should fail for corrupt record")
	}
	if !errors.Is(err, errors.ErrRecordCorrupted) {
		t.Errorf("expected ErrRecordCorrupted in chain, got %v", err)
	}
}

func TestStore_Save_Overwrites(t *testing.T) {
	s := newTestStore(t)

	cfg := NewProxyConfig("prox-save", DirectUpstream, 0, "")
	if err := s.Create(cfg); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Simulate the worker publishing its bind
	cfg.BoundPort = 45678
	cfg.LocalURL = "http://127.0.0.1:45678"
	cfg.PID = 9999
	if err := s.Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Get("prox-save")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.BoundPort != 45678 {
		t.Errorf("BoundPort = %d, want 45678", got.BoundPort)
	}
	if got.LocalURL != "http://127.0.0.1:45678" {
		t.Errorf("LocalURL = %q, want %q", got.LocalURL, "http://127.0.0.1:45678")
	}
	if got.PID != 9999 {
		t.Errorf("PID = %d, want 9999", got.PID)
	}
}

func TestStore_Save_WithoutCreate(t *testing.T) {
	s := newTestStore(t)

	// Save should work for a record that was never Created
	cfg := NewProxyConfig("prox-fresh", "", 0, "")
	if err := s.Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := s.Get("prox-fresh"); err != nil {
		t.Errorf("Get after Save failed: %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)

	cfg := NewProxyConfig("prox-del", "", 0, "")
	if err := s.Create(cfg); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := s.Delete("prox-del"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// Record is gone immediately
	_, err := s.Get("prox-del")
	if !errors.Is(err, errors.ErrProxyNotFound) {
		t.Errorf("Get after Delete: expected ErrProxyNotFound, got %v", err)
	}
}

func TestStore_Delete_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.Delete("nonexistent")
	if err == nil {
		t.Fatal("Delete should fail for missing record")
	}
	if !errors.Is(err, errors.ErrProxyNotFound) {
		t.Errorf("expected ErrProxyNotFound in chain, got %v", err)
	}
}

func TestStore_List(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		s := newTestStore(t)

		records, err := s.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("List returned %d records, want 0", len(records))
		}
	})

	t.Run("multiple records", func(t *testing.T) {
		s := newTestStore(t)

		for _, id := range []string{"prox-a", "prox-b", "prox-c"} {
			if err := s.Create(NewProxyConfig(id, "", 0, "")); err != nil {
				t.Fatalf("Create(%s) failed: %v", id, err)
			}
		}

		records, err := s.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("List returned %d records, want 3", len(records))
		}

		// Directory order: sorted by filename
		wantIDs := []string{"prox-a", "prox-b", "prox-c"}
		for i, want := range wantIDs {
			if records[i].ID != want {
				t.Errorf("records[%d].ID = %q, want %q", i, records[i].ID, want)
			}
		}
	})

	t.Run("skips corrupt entries", func(t *testing.T) {
		s := newTestStore(t)

		if err := s.Create(NewProxyConfig("prox-good", "", 0, "")); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		// Drop a corrupt file next to the good record
		corruptPath := filepath.Join(s.Dir(), "prox-bad.json")
		if err := os.WriteFile(corruptPath, []byte("garbage"), 0644); err != nil {
			t.Fatalf("failed to write corrupt file: %v", err)
		}

		records, err := s.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("List returned %d records, want 1", len(records))
		}
		if records[0].ID != "prox-good" {
			t.Errorf("records[0].ID = %q, want %q", records[0].ID, "prox-good")
		}
	})

	t.Run("ignores non-json files", func(t *testing.T) {
		s := newTestStore(t)

		if err := s.Create(NewProxyConfig("prox-only", "", 0, "")); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("hi"), 0644); err != nil {
			t.Fatalf("failed to write extra file: %v", err)
		}

		records, err := s.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("List returned %d records, want 1", len(records))
		}
	})

	t.Run("missing directory yields no records", func(t *testing.T) {
		s := newTestStore(t)
		if err := os.RemoveAll(s.Dir()); err != nil {
			t.Fatalf("failed to remove store dir: %v", err)
		}

		records, err := s.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("List returned %d records, want 0", len(records))
		}
	})
}

func TestStore_GenerateID(t *testing.T) {
	s := newTestStore(t)

	seen := make(map[string]bool)
	for range 100 {
		id := s.GenerateID()
		if id == "" {
			t.Fatal("GenerateID returned empty string")
		}
		if seen[id] {
			t.Fatalf("GenerateID returned duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestStore_IsProcessAlive(t *testing.T) {
	s := newTestStore(t)

	t.Run("own process is alive", func(t *testing.T) {
		if !s.IsProcessAlive(os.Getpid()) {
			t.Error("IsProcessAlive(own pid) = false, want true")
		}
	})

	t.Run("nonexistent pid is dead", func(t *testing.T) {
		// Max pid on Linux is far below this
		if s.IsProcessAlive(2147483647) {
			t.Error("IsProcessAlive(2147483647) = true, want false")
		}
	})

	t.Run("zero and negative pids are dead", func(t *testing.T) {
		if s.IsProcessAlive(0) {
			t.Error("IsProcessAlive(0) = true, want false")
		}
		if s.IsProcessAlive(-1) {
			t.Error("IsProcessAlive(-1) = true, want false")
		}
	})
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := s.GenerateID()
			cfg := NewProxyConfig(id, "", 0, "")
			if err := s.Create(cfg); err != nil {
				t.Errorf("Create in goroutine %d failed: %v", n, err)
				return
			}
			cfg.BoundPort = 10000 + n
			cfg.LocalURL = "http://127.0.0.1:10000"
			if err := s.Save(cfg); err != nil {
				t.Errorf("Save in goroutine %d failed: %v", n, err)
			}
			if _, err := s.Get(id); err != nil {
				t.Errorf("Get in goroutine %d failed: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	records, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 10 {
		t.Errorf("List returned %d records, want 10", len(records))
	}
}

func TestNewProxyConfig(t *testing.T) {
	t.Run("empty upstream becomes DIRECT", func(t *testing.T) {
		cfg := NewProxyConfig("id-1", "", 8080, "")
		if cfg.Upstream != DirectUpstream {
			t.Errorf("Upstream = %q, want %q", cfg.Upstream, DirectUpstream)
		}
	})

	t.Run("explicit upstream preserved", func(t *testing.T) {
		cfg := NewProxyConfig("id-2", "http://up:1", 0, "")
		if cfg.Upstream != "http://up:1" {
			t.Errorf("Upstream = %q, want %q", cfg.Upstream, "http://up:1")
		}
	})

	t.Run("created_at is recent UTC", func(t *testing.T) {
		before := time.Now().UTC().Add(-time.Second)
		cfg := NewProxyConfig("id-3", "", 0, "")
		after := time.Now().UTC().Add(time.Second)

		if cfg.CreatedAt.Before(before) || cfg.CreatedAt.After(after) {
			t.Errorf("CreatedAt = %v, want between %v and %v", cfg.CreatedAt, before, after)
		}
	})
}

func TestProxyConfig_Ready(t *testing.T) {
	tests := []struct {
		name      string
		boundPort int
		localURL  string
		want      bool
	}{
		{"both set", 8080, "http://127.0.0.1:8080", true},
		{"neither set", 0, "", false},
		{"port only", 8080, "", false},
		{"url only", 0, "http://127.0.0.1:8080", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ProxyConfig{BoundPort: tt.boundPort, LocalURL: tt.localURL}
			if got := cfg.Ready(); got != tt.want {
				t.Errorf("Ready() = %v, want %v", got, tt.want)
			}
		})
	}
}
