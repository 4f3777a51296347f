// Command ravrflint is a sequential-scan diagnostic tool for RAVRF files.
// It reads a file block by block from the header to EOF and writes a
// human-readable report describing every block it finds, independent of
// whatever the file's own free list or meta_root claim.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"
	"github.com/tailscale/hujson"

	"github.com/jstanley9/ravrf"
	"github.com/jstanley9/ravrf/lint"
)

// cliConfig holds defaults that can be overridden by flags: lint-specific
// settings not tied to any one file.
type cliConfig struct {
	ReportSuffix string `json:"report_suffix,omitempty"`
	Atomic       bool   `json:"atomic,omitempty"`
}

func defaultConfig() cliConfig {
	return cliConfig{ReportSuffix: ".txt", Atomic: true}
}

func main() {
	ravrf.ConfigureLogging()
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "ravrflint:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("ravrflint", flag.ContinueOnError)
	report := fs.String("report", "", "report output path (default: input path with its extension replaced by the report suffix, .txt unless configured)")
	configPath := fs.String("config", "", "path to a JSONC config file")
	atomicWrite := fs.Bool("atomic", true, "write the report via a temp file plus rename")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ravrflint [flags] <file.ravrf>")
	}
	inputPath := fs.Arg(0)

	cfg := defaultConfig()
	if *configPath != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if fs.Changed("atomic") {
		cfg.Atomic = *atomicWrite
	}

	reportPath := *report
	if reportPath == "" {
		ext := filepath.Ext(inputPath)
		reportPath = strings.TrimSuffix(inputPath, ext) + cfg.ReportSuffix
	}

	var buf bytes.Buffer
	if err := lint.Report(context.Background(), inputPath, &buf); err != nil {
		return err
	}

	if cfg.Atomic {
		return atomic.WriteFile(reportPath, &buf)
	}
	return os.WriteFile(reportPath, buf.Bytes(), 0o644)
}

// loadConfig reads a JSONC (JSON-with-comments) config file, tolerating
// trailing commas and // comments via hujson standardization before
// unmarshaling.
func loadConfig(path string) (cliConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cliConfig{}, fmt.Errorf("reading config: %w", err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return cliConfig{}, fmt.Errorf("invalid JSONC config: %w", err)
	}
	cfg := defaultConfig()
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return cliConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
