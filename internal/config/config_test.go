package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validConfig = `project: test-project
version: 1
database:
  dsn: sqlite://./mesh.db
sources:
  - name: rules
    paths: [./rules]
mesh:
  max_distance: 3
  max_neighbors: 2
animation:
  enabled: false
  frame_rate: 30
server:
  frame_push_interval: 250ms
`

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads with defaults", func(t *testing.T) {
		cfg, err := LoadProjectConfig(writeTempConfig(t, validConfig))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Project != "test-project" {
			t.Fatalf("expected project name, got %q", cfg.Project)
		}
		if cfg.Mesh.MaxDistance != 3 || cfg.Mesh.MaxNeighbors != 2 {
			t.Fatalf("unexpected mesh config: %+v", cfg.Mesh)
		}
		if cfg.Mesh.NodeRadius != Default().Mesh.NodeRadius {
			t.Fatalf("expected default node radius, got %v", cfg.Mesh.NodeRadius)
		}
		if cfg.Animation.IsEnabled() {
			t.Fatalf("expected animation disabled")
		}
		if cfg.Animation.FrameInterval() != time.Second/30 {
			t.Fatalf("unexpected frame interval %v", cfg.Animation.FrameInterval())
		}
		if cfg.Server.FramePushInterval != 250*time.Millisecond {
			t.Fatalf("unexpected push interval %v", cfg.Server.FramePushInterval)
		}
		if cfg.Server.Addr != ":8088" {
			t.Fatalf("expected default addr, got %q", cfg.Server.Addr)
		}
	})

	t.Run("animation enabled by default", func(t *testing.T) {
		if !Default().Animation.IsEnabled() {
			t.Fatalf("expected animation enabled")
		}
	})

	invalid := map[string]string{
		"missing project name":   "version: 1\nsources:\n  - name: rules\n    paths: [./rules]\n",
		"unsupported version":    "project: test\nversion: 2\nsources:\n  - name: rules\n    paths: [./rules]\n",
		"no sources":             "project: test\nversion: 1\n",
		"source missing name":    "project: test\nversion: 1\nsources:\n  - paths: [./rules]\n",
		"source missing paths":   "project: test\nversion: 1\nsources:\n  - name: rules\n",
		"duplicate source names": "project: test\nversion: 1\nsources:\n  - name: rules\n    paths: [./a]\n  - name: Rules\n    paths: [./b]\n",
		"zero max distance":      "project: test\nversion: 1\nsources:\n  - name: rules\n    paths: [./rules]\nmesh:\n  max_distance: 0\n",
		"negative neighbors":     "project: test\nversion: 1\nsources:\n  - name: rules\n    paths: [./rules]\nmesh:\n  max_neighbors: -1\n",
		"zero frame rate":        "project: test\nversion: 1\nsources:\n  - name: rules\n    paths: [./rules]\nanimation:\n  frame_rate: 0\n",
		"bad camera planes":      "project: test\nversion: 1\nsources:\n  - name: rules\n    paths: [./rules]\ncamera:\n  near: 5\n  far: 1\n",
		"invalid yaml":           "project: [\n",
	}
	for name, contents := range invalid {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadProjectConfig(writeTempConfig(t, contents)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	t.Run("file not found", func(t *testing.T) {
		if _, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}
