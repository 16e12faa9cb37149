// ABOUTME: Tests for export functionality
// ABOUTME: Verifies YAML, Markdown, and JSON export formats
package sqlite

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestBuildExport(t *testing.T) {
	data := BuildExport(sampleReport("d1"))

	if data.MaxSeverity != "Critical" {
		t.Errorf("MaxSeverity = %q, want Critical", data.MaxSeverity)
	}
	if len(data.Risks) != 3 {
		t.Fatalf("got %d risks, want 3", len(data.Risks))
	}
	if data.Risks[0].Redline == "" || data.Risks[0].Source != "model" {
		t.Errorf("first risk should carry its redline: %+v", data.Risks[0])
	}
	if data.Risks[1].Redline != "" {
		t.Errorf("low risk should have no redline: %+v", data.Risks[1])
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, BuildExport(sampleReport("d1"))); err != nil {
		t.Fatalf("WriteYAML() error = %v", err)
	}

	var decoded ExportData
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded.DocumentID != "d1" || decoded.Tool != "redliner" || len(decoded.Risks) != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Tiers.Critical != 1 {
		t.Errorf("Tiers = %+v", decoded.Tiers)
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, BuildExport(sampleReport("d1"))); err != nil {
		t.Fatalf("WriteMarkdown() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# Contract Review - msa.txt",
		"**Highest severity:** Critical",
		"| 0 | Termination |",
		"## Redlines",
		"> Either party may terminate on notice.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestStore_ExportReport(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_ = store.SaveDocument(ctx, testDocument("d1"))
	_ = store.SaveReport(ctx, sampleReport("d1"))

	dir := t.TempDir()
	tests := []struct {
		file  string
		check func(t *testing.T, body []byte)
	}{
		{"out/report.json", func(t *testing.T, body []byte) {
			var d ExportData
			if err := json.Unmarshal(body, &d); err != nil || d.DocumentID != "d1" {
				t.Errorf("json export = %+v, %v", d, err)
			}
		}},
		{"report.yaml", func(t *testing.T, body []byte) {
			var d ExportData
			if err := yaml.Unmarshal(body, &d); err != nil || d.DocumentID != "d1" {
				t.Errorf("yaml export = %+v, %v", d, err)
			}
		}},
		{"report.md", func(t *testing.T, body []byte) {
			if !strings.HasPrefix(string(body), "# Contract Review") {
				t.Errorf("markdown export starts with %q", string(body[:20]))
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := store.ExportReport(ctx, "d1", path); err != nil {
				t.Fatalf("ExportReport() error = %v", err)
			}
			body, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, body)
		})
	}

	if err := store.ExportReport(ctx, "missing", filepath.Join(dir, "x.json")); err == nil {
		t.Error("ExportReport() should fail for an unknown document")
	}
}
