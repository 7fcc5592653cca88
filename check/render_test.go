package check

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"csscompat/config"
)

func stdinReport(t *testing.T, text string) *Report {
	t.Helper()
	c := newTestChecker(t, defaultOptions(), nil)
	c.stdin = strings.NewReader(text)
	rep, err := c.Check(context.Background(), []string{"-"})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	return rep
}

func TestRender_Text(t *testing.T) {
	rep := stdinReport(t, "a { display: block; color: red }\nb { display: none }")

	var buf bytes.Buffer
	if err := Render(&buf, rep, &config.OutputConfig{Format: config.OutputFmtText, ShowIssues: true}, false); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Firefox 68 [current]",
		"Safari 12.1 [current]",
		"100.0%",
		"33.3%",
		"Least compatible: Safari 12.1 [current], 33.3% (error)",
		"display",
		"unsupported",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output does not contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("text output should not be colored")
	}
}

func TestRender_JSON(t *testing.T) {
	rep := stdinReport(t, "a { display: block; color: red }")

	var buf bytes.Buffer
	if err := Render(&buf, rep, &config.OutputConfig{Format: config.OutputFmtJson}, true); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var got struct {
		ID       string `json:"id"`
		Runtimes []struct {
			Runtime struct {
				Name string `json:"name"`
			} `json:"runtime"`
			Total      int      `json:"total"`
			Compatible int      `json:"compatible"`
			Ratio      *float64 `json:"ratio"`
			Status     string   `json:"status"`
			Categories []struct {
				Property string `json:"property"`
				Verdict  string `json:"verdict"`
				Count    int    `json:"count"`
			} `json:"categories"`
		} `json:"runtimes"`
		StyleSheets []Sheet   `json:"stylesheets"`
		Failures    []Failure `json:"failures"`
		Worst       *string   `json:"worst"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}

	if got.ID != rep.ID || len(got.StyleSheets) != 1 || got.Failures == nil {
		t.Errorf("report = %+v", got)
	}
	if len(got.Runtimes) != 2 {
		t.Fatalf("runtimes = %+v", got.Runtimes)
	}
	ff, sf := got.Runtimes[0], got.Runtimes[1]
	if ff.Runtime.Name != "firefox" || ff.Ratio == nil || *ff.Ratio != 1 || ff.Status != "ok" {
		t.Errorf("firefox = %+v", ff)
	}
	if sf.Ratio == nil || *sf.Ratio != 0.5 || sf.Status != "error" || sf.Compatible != 1 {
		t.Errorf("safari = %+v", sf)
	}
	if len(sf.Categories) != 1 || sf.Categories[0].Property != "display" || sf.Categories[0].Verdict != "unsupported" {
		t.Errorf("safari categories = %+v", sf.Categories)
	}
	if got.Worst == nil || *got.Worst != "safari 12.1" {
		t.Errorf("worst = %v", got.Worst)
	}
}

func TestRender_JSONUndefinedRatio(t *testing.T) {
	rep := stdinReport(t, "")

	var buf bytes.Buffer
	if err := Render(&buf, rep, &config.OutputConfig{Format: config.OutputFmtJson}, false); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"ratio": null`) || !strings.Contains(out, `"worst": null`) || !strings.Contains(out, `"status": "unknown"`) {
		t.Errorf("output:\n%s", out)
	}
}

func TestRender_Template(t *testing.T) {
	rep := stdinReport(t, "a { display: block; color: red }")

	var buf bytes.Buffer
	out := &config.OutputConfig{
		Format:          config.OutputFmtTemplate,
		SummaryTemplate: `{{ range .Result.Runtimes }}{{ .Runtime.Name }}={{ percent . }};{{ end }}{{ .Sources | join "," | upper }}`,
	}
	if err := Render(&buf, rep, out, false); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := buf.String(); got != "firefox=100.0%;safari=50.0%;-" {
		t.Errorf("Render() = %q", got)
	}

	out.SummaryTemplate = "{{ .Missing"
	if err := Render(&buf, rep, out, false); err == nil {
		t.Error("Render() expected error for malformed template")
	}
}

func TestReport_Run(t *testing.T) {
	rep := stdinReport(t, "a { display: block; color: red }")
	rep.fail("broken.css", context.Canceled)

	run := rep.Run()
	if run.ID != rep.ID || run.StyleSheets != 1 || run.Failed != 1 || len(run.Sources) != 1 {
		t.Errorf("Run() = %+v", run)
	}
	if len(run.Results) != 2 {
		t.Fatalf("Results = %+v", run.Results)
	}
	if r := run.Results[1]; r.Runtime != "safari 12.1" || r.Total != 2 || r.Compatible != 1 || r.Status != "error" {
		t.Errorf("safari result = %+v", r)
	}
	if rep.Err() == nil {
		t.Error("Err() should report failures")
	}
}

func TestWriteReport(t *testing.T) {
	rep := stdinReport(t, "a { display: block }")
	dir := t.TempDir()

	t.Run("file", func(t *testing.T) {
		dst := filepath.Join(dir, "report.json")
		if err := writeReport(dst, rep, &config.OutputConfig{Format: config.OutputFmtJson}); err != nil {
			t.Fatalf("writeReport() error = %v", err)
		}
		data, err := os.ReadFile(dst)
		if err != nil {
			t.Fatal(err)
		}
		if !json.Valid(data) || !strings.Contains(string(data), rep.ID) {
			t.Errorf("report file = %s", data)
		}
	})

	t.Run("uncreatable file", func(t *testing.T) {
		dst := filepath.Join(dir, "missing", "report.txt")
		if err := writeReport(dst, rep, &config.OutputConfig{Format: config.OutputFmtText}); err == nil {
			t.Error("writeReport() should fail when output file cannot be created")
		}
	})

	t.Run("render failure", func(t *testing.T) {
		dst := filepath.Join(dir, "report.tmpl")
		out := &config.OutputConfig{Format: config.OutputFmtTemplate, SummaryTemplate: "{{ .Missing"}
		if err := writeReport(dst, rep, out); err == nil {
			t.Error("writeReport() should report template errors")
		}
	})
}
