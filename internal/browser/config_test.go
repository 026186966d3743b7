package browser

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveConfigAppliesDefaults(t *testing.T) {
	t.Setenv("CHARLOTTE_DATA_DIR", t.TempDir())

	cfg, err := ResolveConfig(CharlotteConfig{})
	if err != nil {
		t.Fatalf("ResolveConfig() error = %v", err)
	}

	if cfg.CDPPort != DefaultCDPPort {
		t.Errorf("CDPPort = %d, want %d", cfg.CDPPort, DefaultCDPPort)
	}
	if cfg.ControlPort != DefaultControlPort {
		t.Errorf("ControlPort = %d, want %d", cfg.ControlPort, DefaultControlPort)
	}
	if cfg.SnapshotDepth != DefaultSnapshotDepth {
		t.Errorf("SnapshotDepth = %d, want %d", cfg.SnapshotDepth, DefaultSnapshotDepth)
	}
	if cfg.AutoSnapshot != AutoSnapshotEveryAction {
		t.Errorf("AutoSnapshot = %q, want %q", cfg.AutoSnapshot, AutoSnapshotEveryAction)
	}
	if cfg.DialogAutoDismiss != DialogAutoDismissNone {
		t.Errorf("DialogAutoDismiss = %q, want %q", cfg.DialogAutoDismiss, DialogAutoDismissNone)
	}
	if cfg.UserDataDir == "" || cfg.ScreenshotDir == "" || cfg.AllowedWorkspaceRoot == "" {
		t.Errorf("expected derived directories to be non-empty, got %+v", cfg)
	}
}

func TestClampSnapshotDepth(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, MinSnapshotDepth},
		{1, MinSnapshotDepth},
		{MinSnapshotDepth, MinSnapshotDepth},
		{200, 200},
		{MaxSnapshotDepth + 50, MaxSnapshotDepth},
	}
	for _, c := range cases {
		if got := clampSnapshotDepth(c.in); got != c.want {
			t.Errorf("clampSnapshotDepth(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	want := DefaultCharlotteConfig()
	if cfg != want {
		t.Errorf("LoadConfig() on missing file = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "headless: false\ncdpPort: 9333\nsnapshotDepth: 10\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write fixture config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Headless {
		t.Errorf("Headless = true, want false from fixture")
	}
	if cfg.CDPPort != 9333 {
		t.Errorf("CDPPort = %d, want 9333", cfg.CDPPort)
	}
	if cfg.SnapshotDepth != 10 {
		t.Errorf("SnapshotDepth = %d, want 10", cfg.SnapshotDepth)
	}
}

func TestDefaultConfigPathHonorsEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CHARLOTTE_CONFIG_DIR", dir)

	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath() error = %v", err)
	}
	want := filepath.Join(dir, "config.yaml")
	if path != want {
		t.Errorf("DefaultConfigPath() = %q, want %q", path, want)
	}
}
