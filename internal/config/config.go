package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ProjectConfig struct {
	Project   string          `yaml:"project"`
	Version   int             `yaml:"version"`
	Database  DatabaseConfig  `yaml:"database"`
	Sources   []Source        `yaml:"sources"`
	Exclude   []string        `yaml:"exclude"`
	Mesh      MeshConfig      `yaml:"mesh"`
	Animation AnimationConfig `yaml:"animation"`
	Camera    CameraConfig    `yaml:"camera"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type Source struct {
	Name  string   `yaml:"name"`
	Paths []string `yaml:"paths"`
}

type MeshConfig struct {
	MaxDistance  float64 `yaml:"max_distance"`
	MaxNeighbors int     `yaml:"max_neighbors"`
	LayoutRadius float64 `yaml:"layout_radius"`
	NodeRadius   float64 `yaml:"node_radius"`
}

// AnimationConfig holds the idle-motion tunables. None of them carry
// meaning beyond how the mesh looks while nobody touches it.
type AnimationConfig struct {
	Enabled      *bool   `yaml:"enabled"`
	FrameRate    int     `yaml:"frame_rate"`
	BobAmplitude float64 `yaml:"bob_amplitude"`
	BobFrequency float64 `yaml:"bob_frequency"`
	BobPhaseStep float64 `yaml:"bob_phase_step"`
	OrbitStep    float64 `yaml:"orbit_step"`
}

type CameraConfig struct {
	FovY     float64 `yaml:"fov_y"`
	Near     float64 `yaml:"near"`
	Far      float64 `yaml:"far"`
	Distance float64 `yaml:"distance"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	FramePushInterval time.Duration `yaml:"frame_push_interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (a AnimationConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

func (a AnimationConfig) FrameInterval() time.Duration {
	return time.Second / time.Duration(a.FrameRate)
}

func Default() ProjectConfig {
	return ProjectConfig{
		Version:  1,
		Database: DatabaseConfig{DSN: "sqlite://./decisionmesh.db"},
		Mesh: MeshConfig{
			MaxDistance:  4.5,
			MaxNeighbors: 3,
			LayoutRadius: 12,
			NodeRadius:   0.35,
		},
		Animation: AnimationConfig{
			FrameRate:    60,
			BobAmplitude: 0.08,
			BobFrequency: 1.2,
			BobPhaseStep: 0.35,
			OrbitStep:    0.0015,
		},
		Camera: CameraConfig{
			FovY:     60,
			Near:     0.1,
			Far:      200,
			Distance: 30,
		},
		Server: ServerConfig{
			Addr:              ":8088",
			FramePushInterval: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}

	seen := make(map[string]struct{})
	for i, source := range cfg.Sources {
		if strings.TrimSpace(source.Name) == "" {
			return fmt.Errorf("source %d name is required", i)
		}
		if len(source.Paths) == 0 {
			return fmt.Errorf("source %d paths are required", i)
		}
		key := strings.ToLower(source.Name)
		if _, exists := seen[key]; exists {
			return fmt.Errorf("duplicate source name: %s", source.Name)
		}
		seen[key] = struct{}{}
	}

	if cfg.Mesh.MaxDistance <= 0 {
		return fmt.Errorf("mesh max_distance must be positive")
	}
	if cfg.Mesh.MaxNeighbors < 0 {
		return fmt.Errorf("mesh max_neighbors must not be negative")
	}
	if cfg.Mesh.NodeRadius <= 0 {
		return fmt.Errorf("mesh node_radius must be positive")
	}
	if cfg.Animation.FrameRate <= 0 {
		return fmt.Errorf("animation frame_rate must be positive")
	}
	if cfg.Camera.FovY <= 0 || cfg.Camera.FovY >= 180 {
		return fmt.Errorf("camera fov_y must be between 0 and 180")
	}
	if cfg.Camera.Near <= 0 || cfg.Camera.Far <= cfg.Camera.Near {
		return fmt.Errorf("camera near/far planes are invalid")
	}

	return nil
}
