package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWatchDirectoryReportsFilteredChanges(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWatcher(50*time.Millisecond, func(p string) bool {
		return strings.HasSuffix(p, ".stl")
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}
	defer fw.Close()

	if err := fw.Add([]string{dir}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	changes := make(chan []string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx, func(paths []string) { changes <- paths })

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "part.stl")
	if err := os.WriteFile(target, []byte("solid x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changes:
		if len(paths) != 1 {
			t.Fatalf("expected 1 changed path, got %v", paths)
		}
		if filepath.Base(paths[0]) != "part.stl" {
			t.Errorf("expected part.stl, got %s", paths[0])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}

func TestAddMissingPath(t *testing.T) {
	fw, err := NewFileWatcher(time.Millisecond, nil, nil)
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}
	defer fw.Close()

	if err := fw.Add([]string{filepath.Join(t.TempDir(), "missing.stl")}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestRemoveAll(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWatcher(time.Millisecond, nil, nil)
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}
	defer fw.Close()

	if err := fw.Add([]string{dir}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := fw.RemoveAll(); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	if len(fw.watched) != 0 {
		t.Errorf("expected no watched paths, got %d", len(fw.watched))
	}
}
