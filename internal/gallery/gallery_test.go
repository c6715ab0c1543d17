package gallery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/manash/iconforge/internal/security"
)

func writeFile(t *testing.T, dir, name string, size int, mod time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}
}

func TestList_MissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public", "img")
	g := New(dir, "/img", time.Minute)

	images, err := g.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if images == nil || len(images) != 0 {
		t.Errorf("List() = %v, want empty non-nil", images)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
}

func TestList_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, dir, "old.png", 10, base)
	writeFile(t, dir, "new.WEBP", 2048, base.Add(2*time.Hour))
	writeFile(t, dir, "mid.jpeg", 5, base.Add(time.Hour))
	writeFile(t, dir, "notes.txt", 5, base.Add(3*time.Hour))
	writeFile(t, dir, ".hidden.png", 5, base.Add(4*time.Hour))
	if err := os.Mkdir(filepath.Join(dir, "dir.png"), 0755); err != nil {
		t.Fatal(err)
	}

	g := New(dir, "/img/", time.Minute)
	images, err := g.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("List() len = %d, want 3: %+v", len(images), images)
	}

	want := []string{"new.WEBP", "mid.jpeg", "old.png"}
	for i, w := range want {
		if images[i].Filename != w {
			t.Errorf("images[%d] = %s, want %s", i, images[i].Filename, w)
		}
	}

	first := images[0]
	if first.ID != "new.WEBP" || first.Name != "new" || first.URL != "/img/new.WEBP" {
		t.Errorf("image = %+v", first)
	}
	if first.Size != 2048 || first.SizeHuman != "2.0 kB" {
		t.Errorf("size = %d %q", first.Size, first.SizeHuman)
	}
}

func TestList_CachedUntilInvalidated(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFile(t, dir, "a.png", 1, now)

	g := New(dir, "/img", time.Hour)
	first, _ := g.List(context.Background())
	writeFile(t, dir, "b.png", 1, now)

	cached, _ := g.List(context.Background())
	if len(cached) != len(first) {
		t.Errorf("listing refreshed before invalidation")
	}

	g.Invalidate()
	fresh, _ := g.List(context.Background())
	if len(fresh) != 2 {
		t.Errorf("List() after Invalidate len = %d, want 2", len(fresh))
	}
}

func TestWatch_InvalidatesOnChange(t *testing.T) {
	dir := t.TempDir()
	g := New(dir, "/img", time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- g.Watch(ctx) }()

	g.List(ctx)
	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "c.png", 1, time.Now())

	deadline := time.Now().Add(2 * time.Second)
	for {
		images, _ := g.List(ctx)
		if len(images) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("watcher did not invalidate the cached listing")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}

func TestPath(t *testing.T) {
	g := New("/srv/img", "/img", time.Minute)

	if p, err := g.Path("sword.png"); err != nil || p != filepath.Join("/srv/img", "sword.png") {
		t.Errorf("Path() = %q, %v", p, err)
	}
	if _, err := g.Path("../secret.png"); !errors.Is(err, security.ErrPathTraversal) {
		t.Errorf("Path(traversal) error = %v", err)
	}
	if _, err := g.Path("notes.txt"); !errors.Is(err, security.ErrInvalidFileName) {
		t.Errorf("Path(txt) error = %v", err)
	}
}
