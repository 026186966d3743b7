package browser

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/TickTockBent/charlotte/internal/defaults"
)

// CharlotteConfig is the raw, YAML-tagged engine configuration.
type CharlotteConfig struct {
	ExecutablePath string `yaml:"executablePath,omitempty"`
	Headless       bool   `yaml:"headless"`
	NoSandbox      bool   `yaml:"noSandbox,omitempty"`
	CDPPort        int    `yaml:"cdpPort,omitempty"`
	ControlPort    int    `yaml:"controlPort,omitempty"`
	UserDataDir    string `yaml:"userDataDir,omitempty"`

	SnapshotDepth        int    `yaml:"snapshotDepth,omitempty"`
	AutoSnapshot         string `yaml:"autoSnapshot,omitempty"`
	DialogAutoDismiss    string `yaml:"dialogAutoDismiss,omitempty"`
	ScreenshotDir        string `yaml:"screenshotDir,omitempty"`
	AllowedWorkspaceRoot string `yaml:"allowedWorkspaceRoot,omitempty"`
}

// ResolvedConfig is CharlotteConfig with every default applied.
type ResolvedConfig struct {
	ExecutablePath string
	Headless       bool
	NoSandbox      bool
	CDPPort        int
	ControlPort    int
	UserDataDir    string

	SnapshotDepth        int
	AutoSnapshot         AutoSnapshotPolicy
	DialogAutoDismiss    DialogAutoDismissPolicy
	ScreenshotDir        string
	AllowedWorkspaceRoot string
}

// DefaultCharlotteConfig returns the built-in configuration defaults.
func DefaultCharlotteConfig() CharlotteConfig {
	return CharlotteConfig{
		Headless:          true,
		CDPPort:           DefaultCDPPort,
		ControlPort:       DefaultControlPort,
		SnapshotDepth:     DefaultSnapshotDepth,
		AutoSnapshot:      string(AutoSnapshotEveryAction),
		DialogAutoDismiss: string(DialogAutoDismissNone),
	}
}

// ResolveConfig applies defaults to a raw config, resolving the user-data
// directory and screenshot directory against the platform data dir.
func ResolveConfig(cfg CharlotteConfig) (*ResolvedConfig, error) {
	dataDir, err := defaults.DataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	r := &ResolvedConfig{
		ExecutablePath: cfg.ExecutablePath,
		Headless:       cfg.Headless,
		NoSandbox:      cfg.NoSandbox,
		CDPPort:        cfg.CDPPort,
		ControlPort:    cfg.ControlPort,
		UserDataDir:    cfg.UserDataDir,

		SnapshotDepth:        cfg.SnapshotDepth,
		AutoSnapshot:         AutoSnapshotPolicy(cfg.AutoSnapshot),
		DialogAutoDismiss:    DialogAutoDismissPolicy(cfg.DialogAutoDismiss),
		ScreenshotDir:        cfg.ScreenshotDir,
		AllowedWorkspaceRoot: cfg.AllowedWorkspaceRoot,
	}

	if r.CDPPort == 0 {
		r.CDPPort = DefaultCDPPort
	}
	if r.ControlPort == 0 {
		r.ControlPort = DefaultControlPort
	}
	if r.UserDataDir == "" {
		r.UserDataDir = filepath.Join(dataDir, "browser", "user-data")
	}
	if r.SnapshotDepth == 0 {
		r.SnapshotDepth = DefaultSnapshotDepth
	}
	r.SnapshotDepth = clampSnapshotDepth(r.SnapshotDepth)
	if r.AutoSnapshot == "" {
		r.AutoSnapshot = AutoSnapshotEveryAction
	}
	if r.DialogAutoDismiss == "" {
		r.DialogAutoDismiss = DialogAutoDismissNone
	}
	if r.ScreenshotDir == "" {
		r.ScreenshotDir = filepath.Join(dataDir, "screenshots")
	}
	if r.AllowedWorkspaceRoot == "" {
		r.AllowedWorkspaceRoot = filepath.Join(dataDir, "workspace")
	}

	return r, nil
}

func clampSnapshotDepth(n int) int {
	if n < MinSnapshotDepth {
		return MinSnapshotDepth
	}
	if n > MaxSnapshotDepth {
		return MaxSnapshotDepth
	}
	return n
}

// LoadConfig reads a CharlotteConfig from a YAML file at path. A missing
// file is not an error: the built-in defaults are returned instead, the
// way `defaults.EnsureDataDir` lazily seeds a fresh data directory.
func LoadConfig(path string) (CharlotteConfig, error) {
	cfg := DefaultCharlotteConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultConfigPath returns the platform-default config file location,
// honoring CHARLOTTE_CONFIG_DIR the way defaults.DataDir honors
// CHARLOTTE_DATA_DIR.
func DefaultConfigPath() (string, error) {
	if dir := os.Getenv("CHARLOTTE_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "config.yaml"), nil
	}
	dir, err := defaults.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}
