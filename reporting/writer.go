package reporting

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/ethereum-optimism/infra/op-fwts/types"
)

const (
	// RunDirectoryPrefix prefixes every per-run report directory
	RunDirectoryPrefix = "testrun-"

	SummaryJSONFile = "summary.json"
	SummaryHTMLFile = "summary.html"
	SummaryTextFile = "summary.log"
	RawDir          = "raw"
)

//go:embed templates/summary.html.tmpl
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"formatDuration": func(d time.Duration) string {
		if d < time.Second {
			return fmt.Sprintf("%dms", d.Milliseconds())
		}
		return d.Truncate(time.Millisecond).String()
	},
	"join": strings.Join,
}

// Writer stores run reports below a base directory.
type Writer struct {
	baseDir string
	tmpl    *template.Template
}

// NewWriter creates a Writer rooted at baseDir.
func NewWriter(baseDir string) (*Writer, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}
	tmpl, err := template.New("summary.html.tmpl").Funcs(templateFuncs).ParseFS(templateFS, "templates/summary.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing HTML template: %w", err)
	}
	return &Writer{baseDir: baseDir, tmpl: tmpl}, nil
}

// RunDir returns the directory holding the reports of runID.
func (w *Writer) RunDir(runID string) string {
	return filepath.Join(w.baseDir, RunDirectoryPrefix+runID)
}

// Write stores the JSON, HTML and text summaries of r, plus one raw log
// per test with terminal escape sequences removed. It returns the run
// directory.
func (w *Writer) Write(r *Report, runs []*types.TestRun) (string, error) {
	if r.RunID == "" {
		return "", fmt.Errorf("runID cannot be empty")
	}
	dir := w.RunDir(r.RunID)
	rawDir := filepath.Join(dir, RawDir)
	if err := os.MkdirAll(rawDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", rawDir, err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding JSON summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, SummaryJSONFile), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON summary: %w", err)
	}

	var html bytes.Buffer
	if err := w.tmpl.Execute(&html, r); err != nil {
		return "", fmt.Errorf("rendering HTML summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, SummaryHTMLFile), html.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write HTML summary: %w", err)
	}

	var text bytes.Buffer
	fmt.Fprintf(&text, "Run %s, fail level %s, exit code %d\n", r.RunID, r.FailLevel, r.ExitCode)
	if err := WriteConsoleSummary(&text, r); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, SummaryTextFile), text.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write text summary: %w", err)
	}

	for _, run := range runs {
		path := filepath.Join(rawDir, safeFilename(run.ID)+".log")
		content := stripansi.Strip(run.Output)
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		if err := appendFile(path, content); err != nil {
			return "", fmt.Errorf("failed to write raw output of %s: %w", run.ID, err)
		}
	}
	return dir, nil
}

// appendFile appends so that repeated invocations of one test, such as sleep
// cycles, all end up in its raw log.
func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}

// safeFilename replaces characters that are awkward in file names.
func safeFilename(s string) string {
	s = strings.TrimLeft(s, "-")
	return strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	).Replace(s)
}
