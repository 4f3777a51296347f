package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigParsesJSONC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ravrflint.jsonc")
	contents := "{\n  // trailing comma and comment tolerated\n  \"report_suffix\": \".lint.txt\",\n  \"atomic\": false,\n}\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.ReportSuffix != ".lint.txt" {
		t.Errorf("ReportSuffix = %q, want %q", cfg.ReportSuffix, ".lint.txt")
	}
	if cfg.Atomic {
		t.Errorf("Atomic = true, want false")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.jsonc"))
	if err == nil {
		t.Fatal("loadConfig over missing file should fail")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	if cfg.ReportSuffix != ".txt" || !cfg.Atomic {
		t.Errorf("defaultConfig() = %+v, want suffix=.txt atomic=true", cfg)
	}
}
