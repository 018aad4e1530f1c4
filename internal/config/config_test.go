package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UioIndex != nil || cfg.Channel != 0 || cfg.PollTimeout != 0 {
		t.Fatalf("expected zero-value config, got %+v", cfg)
	}
}

func TestLoadParsesFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xdma-c2h.yml")
	writeFile(t, path, "uio_index: 2\nchannel: 1\npoll_timeout: 5s\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UioIndex == nil || *cfg.UioIndex != 2 {
		t.Fatalf("UioIndex = %v, want 2", cfg.UioIndex)
	}
	if cfg.Channel != 1 {
		t.Fatalf("Channel = %d, want 1", cfg.Channel)
	}
	if cfg.PollTimeout != 5*time.Second {
		t.Fatalf("PollTimeout = %v, want 5s", cfg.PollTimeout)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yml")
	writeFile(t, path, "channel: [this is not a uint8]\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error parsing malformed YAML")
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
}
