package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"decisionmesh/internal/config"
	"decisionmesh/internal/mesh"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const ruleDoc = `---
title: Validate input
category: security
importance: critical
---

Reject malformed input at the boundary.
`

func testConfig(t *testing.T) (*config.ProjectConfig, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "drafts"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg := config.Default()
	cfg.Sources = []config.Source{{Name: "rules", Paths: []string{root}}}
	cfg.Exclude = []string{filepath.Join(root, "drafts")}
	return &cfg, root
}

func startWatcher(t *testing.T, cfg *config.ProjectConfig, reload ReloadFunc) *Watcher {
	t.Helper()
	w, err := New(cfg, reload, Options{Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("creating watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil {
			t.Errorf("unexpected run error: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w
}

func TestWatcher_ReloadsOnDocumentWrite(t *testing.T) {
	cfg, root := testConfig(t)
	reloaded := make(chan struct{}, 8)
	startWatcher(t, cfg, func(ctx context.Context) error {
		reloaded <- struct{}{}
		return nil
	})

	if err := os.WriteFile(filepath.Join(root, "input.md"), []byte(ruleDoc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("expected reload after document write")
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	cfg, root := testConfig(t)
	var mu sync.Mutex
	count := 0
	w := startWatcher(t, cfg, func(ctx context.Context) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	for i := 0; i < 5; i++ {
		name := filepath.Join(root, "burst"+string(rune('a'+i))+".md")
		if err := os.WriteFile(name, []byte(ruleDoc), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for w.Reloads() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count == 0 {
		t.Fatal("expected at least one reload")
	}
	if count >= 5 {
		t.Fatalf("expected burst to be coalesced, got %d reloads", count)
	}
}

func TestWatcher_IgnoresExcludedAndNonMarkdown(t *testing.T) {
	cfg, root := testConfig(t)
	reloaded := make(chan struct{}, 8)
	startWatcher(t, cfg, func(ctx context.Context) error {
		reloaded <- struct{}{}
		return nil
	})

	if err := os.WriteFile(filepath.Join(root, "drafts", "wip.md"), []byte(ruleDoc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("scratch"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-reloaded:
		t.Fatal("expected no reload for excluded or non-markdown files")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_ReloadErrorKeepsRunning(t *testing.T) {
	cfg, root := testConfig(t)
	calls := make(chan struct{}, 8)
	w := startWatcher(t, cfg, func(ctx context.Context) error {
		calls <- struct{}{}
		return errors.New("broken document")
	})

	if err := os.WriteFile(filepath.Join(root, "input.md"), []byte(ruleDoc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("expected reload attempt")
	}
	if w.Reloads() != 0 {
		t.Fatalf("expected failed reloads not to count, got %d", w.Reloads())
	}
}

type fakeReloader struct {
	ds *mesh.Dataset
}

func (f *fakeReloader) Reload(ds *mesh.Dataset) {
	f.ds = ds
}

func TestViewReloader(t *testing.T) {
	cfg, root := testConfig(t)
	if err := os.WriteFile(filepath.Join(root, "input.md"), []byte(ruleDoc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("# not a rule\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	target := &fakeReloader{}
	logger := zap.NewNop()
	reload := ViewReloader(cfg, DocumentLoader(cfg, logger), target, logger)
	if err := reload(context.Background()); err != nil {
		t.Fatalf("unexpected reload error: %v", err)
	}
	if target.ds == nil || target.ds.Len() != 1 {
		t.Fatalf("expected dataset with 1 entity, got %v", target.ds)
	}
	e, ok := target.ds.Lookup("validate-input")
	if !ok {
		t.Fatal("expected entity validate-input")
	}
	if e.Category != mesh.CategorySecurity || e.Tier != mesh.TierCritical {
		t.Fatalf("unexpected entity: %+v", e)
	}

	failing := ViewReloader(cfg, func(ctx context.Context) ([]mesh.Record, error) {
		return nil, errors.New("store offline")
	}, target, logger)
	if err := failing(context.Background()); err == nil {
		t.Fatal("expected loader error")
	}
}
