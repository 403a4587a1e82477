package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	m := NewMemory(Task{ID: "1", Title: "A", Status: "todo"})

	c, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c[0].Title = "mutated"

	again, _ := m.Load(context.Background())
	if again[0].Title != "A" {
		t.Errorf("stored title: got %q, want A (Load leaked its backing array)", again[0].Title)
	}
}

func TestMemoryStore_EmptyIsNonNil(t *testing.T) {
	c, err := NewMemory().Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c == nil {
		t.Error("Load on empty MemoryStore: got nil, want empty collection")
	}
}

func TestMemoryStore_SaveCopies(t *testing.T) {
	m := NewMemory()
	c := Collection{{ID: "1", Title: "A", Status: "todo"}}
	if err := m.Save(context.Background(), c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	c[0].Status = "mutated"

	got, _ := m.Load(context.Background())
	if got[0].Status != "todo" {
		t.Errorf("status: got %q, want todo", got[0].Status)
	}
}

func TestMemoryStore_ConcurrentOps(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Save(context.Background(), Collection{{ID: "x"}}) //nolint:errcheck
		}()
		go func() {
			defer wg.Done()
			m.Load(context.Background()) //nolint:errcheck
		}()
	}
	wg.Wait()
}

func TestSQLiteStore_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	empty, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("Load empty: got %#v, want empty non-nil", empty)
	}

	want := Collection{
		{ID: "3", Title: "C", Status: "todo"},
		{ID: "1", Title: "A", Status: "done"},
		{ID: "2", Title: "A", Status: "todo"},
	}
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Load: got %d tasks, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("task[%d]: got %+v, want %+v", i, got[i], want[i])
		}
	}

	// A shorter collection must fully replace the previous rows.
	if err := s.Save(ctx, want[:1]); err != nil {
		t.Fatalf("Save shorter: %v", err)
	}
	got, _ = s.Load(ctx)
	if len(got) != 1 || got[0].ID != "3" {
		t.Errorf("Load after shorter Save: got %+v", got)
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Save(ctx, Collection{{ID: "1", Title: "A", Status: "todo"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Close()

	s2, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].Title != "A" {
		t.Errorf("Load after reopen: got %+v", got)
	}
}

func TestWatch_FiresOnSave(t *testing.T) {
	p := tempFile(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, p, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)

	if err := NewFile(p).Save(context.Background(), Collection{{ID: "1"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("onChange was not called after Save")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	p := tempFile(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	go Watch(ctx, p, func() { changed <- struct{}{} }) //nolint:errcheck
	time.Sleep(50 * time.Millisecond)

	writeRaw(t, filepath.Join(filepath.Dir(p), "other.json"), "[]")

	select {
	case <-changed:
		t.Fatal("onChange fired for an unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFileStoreWatch_SkipsOwnSaves(t *testing.T) {
	p := tempFile(t)
	fs := NewFile(p)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	go fs.Watch(ctx, func() { changed <- struct{}{} }) //nolint:errcheck
	time.Sleep(50 * time.Millisecond)

	if err := fs.Save(context.Background(), Collection{{ID: "1", Title: "a", Status: "b"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	select {
	case <-changed:
		t.Fatal("onChange fired for the store's own save")
	case <-time.After(300 * time.Millisecond):
	}

	writeRaw(t, p, `[{"id":"2","title":"edited","status":"x"}]`)
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("onChange was not called after an external edit")
	}
}

func TestWatch_MissingDir(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nope", "tasks.json")
	if err := Watch(context.Background(), p, func() {}); err == nil {
		t.Fatal("Watch on missing dir: expected error, got nil")
	}
	if _, err := os.Stat(filepath.Dir(p)); err == nil {
		t.Fatal("Watch must not create the directory")
	}
}
