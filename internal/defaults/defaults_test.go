package defaults

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestListDefaults(t *testing.T) {
	files, err := ListDefaults()
	if err != nil {
		t.Fatalf("ListDefaults failed: %v", err)
	}

	expected := []string{"config.yaml"}
	if len(files) != len(expected) {
		t.Errorf("Expected %d files, got %d: %v", len(expected), len(files), files)
	}
	for _, exp := range expected {
		if !slices.Contains(files, exp) {
			t.Errorf("Expected file %s not found in %v", exp, files)
		}
	}
}

func TestGetDefault(t *testing.T) {
	content, err := GetDefault("config.yaml")
	if err != nil {
		t.Fatalf("GetDefault failed: %v", err)
	}
	if len(content) == 0 {
		t.Error("config.yaml content is empty")
	}
}

func TestDataDir(t *testing.T) {
	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		t.Fatalf("UserConfigDir failed: %v", err)
	}
	if !strings.HasPrefix(dir, configDir) {
		t.Errorf("Expected DataDir to be under %s, got %s", configDir, dir)
	}

	base := filepath.Base(dir)
	if base != "Charlotte" && base != "charlotte" {
		t.Errorf("Expected DataDir to end with Charlotte or charlotte, got %s", base)
	}
}

func TestEnsureDataDir(t *testing.T) {
	tmpDir := t.TempDir()
	dataDir := filepath.Join(tmpDir, "Charlotte")
	t.Setenv("CHARLOTTE_DATA_DIR", dataDir)

	dir, err := EnsureDataDir()
	if err != nil {
		t.Fatalf("EnsureDataDir failed: %v", err)
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("Data directory was not created")
	}

	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config.yaml was not copied")
	}
}

func TestResetOverwritesExisting(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CHARLOTTE_DATA_DIR", tmpDir)

	if _, err := EnsureDataDir(); err != nil {
		t.Fatalf("EnsureDataDir failed: %v", err)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("mutated: true\n"), 0644); err != nil {
		t.Fatalf("write mutated config: %v", err)
	}

	if err := Reset(tmpDir); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if strings.Contains(string(data), "mutated") {
		t.Error("Reset did not overwrite the mutated config")
	}
}
