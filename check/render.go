package check

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"csscompat/analyze"
	"csscompat/compat"
	"csscompat/config"
)

// Render writes report in configured format. Color is only used for text.
func Render(w io.Writer, rep *Report, out *config.OutputConfig, color bool) error {
	switch out.Format {
	case config.OutputFmtJson:
		return renderJSON(w, rep)
	case config.OutputFmtTemplate:
		return renderTemplate(w, rep, out.SummaryTemplate)
	default:
		return renderText(w, rep, out.ShowIssues, color)
	}
}

var statusColors = map[analyze.Status]text.Color{
	analyze.StatusOk:      text.FgGreen,
	analyze.StatusWarning: text.FgYellow,
	analyze.StatusError:   text.FgRed,
	analyze.StatusUnknown: text.FgHiBlack,
}

func paint(s analyze.Status, color bool) string {
	if c, ok := statusColors[s]; ok && color {
		return c.Sprint(s.String())
	}
	return s.String()
}

// percent formats compatibility ratio, "n/a" when nothing was evaluated.
func percent(s analyze.Summary) string {
	ratio, ok := s.Ratio()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", ratio*100)
}

func ratio(s analyze.Summary) float64 {
	r, _ := s.Ratio()
	return r
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderText(w io.Writer, rep *Report, showIssues, color bool) error {
	fmt.Fprintf(w, "Check %s: %d stylesheet(s), %d failure(s) in %s\n",
		rep.ID, len(rep.StyleSheets), rep.Failed(), rep.Elapsed.Round(time.Millisecond))

	t := newTable(w)
	t.AppendHeader(table.Row{"Runtime", "Status", "Compatible", "Total", "Ratio"})
	for _, s := range rep.Result.Runtimes {
		t.AppendRow(table.Row{s.Runtime.Label(), paint(s.Status(), color), s.Compatible(), s.Total, percent(s)})
	}
	t.Render()

	if worst, ok := rep.Result.Worst(); ok {
		fmt.Fprintf(w, "Least compatible: %s, %s (%s)\n", worst.Runtime.Label(), percent(worst), paint(worst.Status(), color))
	}

	for _, s := range rep.Result.Runtimes {
		cats := s.Categories()
		if len(cats) == 0 {
			continue
		}
		t := newTable(w)
		t.SetTitle("%s", s.Runtime.Label())
		t.AppendHeader(table.Row{"Construct", "Kind", "Verdict", "Count"})
		for _, c := range cats {
			t.AppendRow(table.Row{c.Property, c.Kind, c.Verdict, c.Count})
		}
		t.Render()

		if !showIssues {
			continue
		}
		t = newTable(w)
		t.AppendHeader(table.Row{"Construct", "Verdict", "Stylesheet", "Line", "Column"})
		for _, issue := range s.Issues {
			t.AppendRow(table.Row{issue.Property, issue.Verdict, issue.StyleSheet, issue.Line, issue.Column})
		}
		t.Render()
	}

	if len(rep.Failures) > 0 {
		t := newTable(w)
		t.SetTitle("Failures")
		t.AppendHeader(table.Row{"Source", "Error"})
		for _, f := range rep.Failures {
			t.AppendRow(table.Row{f.Source, f.Error})
		}
		t.Render()
	}
	return nil
}

type (
	jsonSummary struct {
		Runtime    compat.Runtime     `json:"runtime"`
		Total      int                `json:"total"`
		Compatible int                `json:"compatible"`
		Ratio      *float64           `json:"ratio"`
		Status     analyze.Status     `json:"status"`
		Categories []analyze.Category `json:"categories"`
		Issues     []analyze.Issue    `json:"issues"`
	}

	jsonReport struct {
		ID          string        `json:"id"`
		Started     time.Time     `json:"started"`
		Elapsed     string        `json:"elapsed"`
		Sources     []string      `json:"sources"`
		StyleSheets []Sheet       `json:"stylesheets"`
		Failures    []Failure     `json:"failures"`
		Runtimes    []jsonSummary `json:"runtimes"`
		Worst       *string       `json:"worst"`
	}
)

func renderJSON(w io.Writer, rep *Report) error {
	out := jsonReport{
		ID:          rep.ID,
		Started:     rep.Started,
		Elapsed:     rep.Elapsed.String(),
		Sources:     rep.Sources,
		StyleSheets: rep.StyleSheets,
		Failures:    rep.Failures,
		Runtimes:    make([]jsonSummary, 0, len(rep.Result.Runtimes)),
	}
	if out.StyleSheets == nil {
		out.StyleSheets = []Sheet{}
	}
	if out.Failures == nil {
		out.Failures = []Failure{}
	}
	for _, s := range rep.Result.Runtimes {
		js := jsonSummary{
			Runtime:    s.Runtime,
			Total:      s.Total,
			Compatible: s.Compatible(),
			Status:     s.Status(),
			Categories: s.Categories(),
			Issues:     s.Issues,
		}
		if r, ok := s.Ratio(); ok {
			js.Ratio = &r
		}
		if js.Categories == nil {
			js.Categories = []analyze.Category{}
		}
		out.Runtimes = append(out.Runtimes, js)
	}
	if worst, ok := rep.Result.Worst(); ok {
		name := worst.Runtime.String()
		out.Worst = &name
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderTemplate(w io.Writer, rep *Report, field string) error {
	funcs := sprig.FuncMap()
	funcs["percent"] = percent
	funcs["ratio"] = ratio

	tmpl, err := template.New(string(config.SummaryTemplateFieldName)).Funcs(funcs).Parse(field)
	if err != nil {
		return fmt.Errorf("unable to parse template field %s: %w", config.SummaryTemplateFieldName, err)
	}
	if err := tmpl.Execute(w, rep); err != nil {
		return fmt.Errorf("unable to execute template field %s: %w", config.SummaryTemplateFieldName, err)
	}
	return nil
}
