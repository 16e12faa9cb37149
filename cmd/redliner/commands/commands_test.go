// ABOUTME: End-to-end tests for the analyze, status, report, risks, documents and precedents commands
// ABOUTME: Runs the root command against an in-memory store with deterministic model fakes
package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harper/redliner/internal/app"
	"github.com/harper/redliner/internal/config"
	"github.com/harper/redliner/internal/models"
	"github.com/harper/redliner/internal/storage/sqlite"
)

const testContract = "1. Termination\nVendor may terminate this Agreement at any time without notice.\n\n2. Fees\nCustomer shall pay the fees within 30 days of invoice.\n"

type axisEmbedder struct{}

func (axisEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "terminat"):
		return []float64{1, 0, 0}, nil
	case strings.Contains(lower, "fee"):
		return []float64{0, 1, 0}, nil
	default:
		return []float64{0, 0, 1}, nil
	}
}

// useTestApp points every command at one shared App backed by an in-memory store
func useTestApp(t *testing.T) *app.App {
	t.Helper()
	store, err := sqlite.NewStoreInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	seed := []models.PrecedentEntry{
		{ID: "term-risky", Category: models.CategoryTermination, Text: "Either party may terminate on 30 days' written notice.", BaselineRisk: 0.9, Embedding: []float64{1, 0, 0}},
		{ID: "fees-std", Category: models.CategoryFees, Text: "Fees are payable net 30.", BaselineRisk: 0.1, Embedding: []float64{0, 1, 0}},
	}
	for i := range seed {
		if err := store.Precedents().Save(context.Background(), &seed[i]); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.VectorDimension = 3
	cfg.Pipeline.RetryAttempts = 1

	a, err := app.NewWithComponents(cfg, app.Components{Store: store, Embedder: axisEmbedder{}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	original := openApp
	openApp = func(context.Context) (*app.App, error) { return a, nil }
	t.Cleanup(func() { openApp = original })
	return a
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeContract(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "msa.txt")
	if err := os.WriteFile(path, []byte(testContract), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func analyzeJSON(t *testing.T, path string) app.Analysis {
	t.Helper()
	out, err := run(t, "--format", "json", "analyze", path)
	if err != nil {
		t.Fatalf("analyze error = %v\n%s", err, out)
	}
	var res app.Analysis
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("analyze output is not JSON: %v\n%s", err, out)
	}
	return res
}

func TestAnalyzeCmd_Table(t *testing.T) {
	useTestApp(t)
	path := writeContract(t)

	out, err := run(t, "analyze", path)
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	for _, want := range []string{"Document: msa.txt", "CATEGORY", "Termination", "Redlines:", "precedent_fallback"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q, got:\n%s", want, out)
		}
	}

	out, err = run(t, "analyze", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Already analyzed") {
		t.Errorf("second run should reuse the stored report, got:\n%s", out)
	}
}

func TestAnalyzeCmd_Errors(t *testing.T) {
	useTestApp(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no file", []string{"analyze"}},
		{"missing file", []string{"analyze", filepath.Join(t.TempDir(), "gone.txt")}},
		{"unsupported format", []string{"analyze", filepath.Join(t.TempDir(), "deal.odt")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestAnalyzeCmd_Stdin(t *testing.T) {
	useTestApp(t)

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(testContract))
	cmd.SetArgs([]string{"--format", "json", "analyze", "-", "--name", "pasted.txt"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("analyze - error = %v", err)
	}

	var res app.Analysis
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Report.Filename != "pasted.txt" {
		t.Errorf("Filename = %q, want pasted.txt", res.Report.Filename)
	}
}

func TestStatusAndReportCmds(t *testing.T) {
	useTestApp(t)
	res := analyzeJSON(t, writeContract(t))
	id := res.Report.DocumentID

	out, err := run(t, "status", id)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, id+": COMPLETE") {
		t.Errorf("status output = %q", out)
	}
	if _, err := run(t, "status", "unknown-doc"); err == nil {
		t.Error("status of an unknown document should fail")
	}

	out, err = run(t, "report", id)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Max severity: High") && !strings.Contains(out, "Max severity: Critical") {
		t.Errorf("report output should show a high max severity, got:\n%s", out)
	}

	export := filepath.Join(t.TempDir(), "out", "review.md")
	if _, err := run(t, "report", id, "--export", export); err != nil {
		t.Fatalf("report --export error = %v", err)
	}
	if info, err := os.Stat(export); err != nil || info.Size() == 0 {
		t.Errorf("export file missing or empty: %v", err)
	}

	if _, err := run(t, "report", "unknown-doc"); err == nil {
		t.Error("report of an unknown document should fail")
	}
}

func TestRisksCmd(t *testing.T) {
	useTestApp(t)
	id := analyzeJSON(t, writeContract(t)).Report.DocumentID

	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{"all", nil, 2, false},
		{"high and above", []string{"--min-severity", "high"}, 1, false},
		{"fees only", []string{"--category", "fees"}, 1, false},
		{"limit", []string{"-n", "1"}, 1, false},
		{"bad severity", []string{"--min-severity", "severe"}, 0, true},
		{"bad category", []string{"--category", "warranty"}, 0, true},
		{"negative limit", []string{"-n", "-1"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--format", "json", "risks", id}, tt.args...)
			out, err := run(t, args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("risks error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			var risks []models.RiskAssessment
			if err := json.Unmarshal([]byte(out), &risks); err != nil {
				t.Fatalf("risks output is not JSON: %v\n%s", err, out)
			}
			if len(risks) != tt.want {
				t.Errorf("got %d risks, want %d", len(risks), tt.want)
			}
		})
	}

	out, err := run(t, "risks", id)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Total: 2 risk(s)") {
		t.Errorf("table output should show a total, got:\n%s", out)
	}
}

func TestDocumentsCmd(t *testing.T) {
	useTestApp(t)

	out, err := run(t, "documents")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No documents found") {
		t.Errorf("empty store output = %q", out)
	}

	analyzeJSON(t, writeContract(t))
	out, err = run(t, "documents")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"FILENAME", "msa.txt", "COMPLETE"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q, got:\n%s", want, out)
		}
	}

	if _, err := run(t, "documents", "-n", "0"); err == nil {
		t.Error("zero limit should fail")
	}
}

func TestPrecedentsCmds(t *testing.T) {
	useTestApp(t)
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	corpus := `precedents:
  - id: sla-low
    category: availability
    text: Provider guarantees 95% uptime.
    baseline_risk: 0.7
`
	if err := os.WriteFile(path, []byte(corpus), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "precedents", "import", path)
	if err != nil {
		t.Fatalf("import error = %v", err)
	}
	if !strings.Contains(out, "Imported 1 precedent(s)") {
		t.Errorf("import output = %q", out)
	}

	out, err = run(t, "precedents", "list", "--category", "uptime")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "sla-low") || strings.Contains(out, "term-risky") {
		t.Errorf("list output should only show the uptime precedent, got:\n%s", out)
	}

	if _, err := run(t, "precedents", "list", "--category", "warranty"); err == nil {
		t.Error("unknown category should fail")
	}
	if _, err := run(t, "precedents", "import", filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("missing corpus should fail")
	}
}
