package lint

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jstanley9/ravrf/store"
)

func TestReportCoversDataMetaAndAvailableBlocks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.ravrf")

	s, err := store.Create(ctx, path, store.DefaultOptions())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	rref, err := s.Add(ctx, []byte("payload one"), 4)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(ctx, []byte("payload two"), 0); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.PutMeta(ctx, []byte("meta value"), 0); err != nil {
		t.Fatalf("PutMeta: %v", err)
	}
	if err := s.Delete(ctx, rref); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var buf bytes.Buffer
	if err := Report(ctx, path, &buf); err != nil {
		t.Fatalf("Report: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"DATA block", "META block", "AVAILABLE block", "meta value", "payload two"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if !strings.HasPrefix(out, "RAVRF Lint Report for sample.ravrf\n") {
		t.Errorf("report missing expected title line, got:\n%s", out)
	}
}

func TestReportMissingFile(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	err := Report(ctx, filepath.Join(t.TempDir(), "nope.ravrf"), &buf)
	if err == nil {
		t.Fatal("Report over missing file should fail")
	}
}
