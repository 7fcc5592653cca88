package check

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"csscompat/analyze"
	"csscompat/history"
)

// Sheet describes analyzed stylesheet.
type Sheet struct {
	Ref          analyze.Ref `json:"ref"`
	Source       string      `json:"source,omitempty"`
	ImportedBy   string      `json:"imported_by,omitempty"`
	Charset      string      `json:"charset,omitempty"`
	Rules        int         `json:"rules"`
	Declarations int         `json:"declarations"`
	Warnings     int         `json:"warnings"`
}

// Failure is a source or stylesheet which could not be analyzed.
type Failure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Report is the outcome of a single check.
type Report struct {
	ID          string
	Started     time.Time
	Elapsed     time.Duration
	Sources     []string
	StyleSheets []Sheet
	Failures    []Failure
	Result      *analyze.Result

	errs error
}

func newReport(sources []string, an *analyze.Analyzer) *Report {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Report{
		ID:      id.String(),
		Started: time.Now(),
		Sources: sources,
		Result:  an.Empty(),
	}
}

func (r *Report) fail(source string, err error) {
	r.Failures = append(r.Failures, Failure{Source: source, Error: err.Error()})
	r.errs = multierr.Append(r.errs, err)
}

// Failed returns number of failures.
func (r *Report) Failed() int {
	return len(r.Failures)
}

// Err combines all failures, nil when there were none.
func (r *Report) Err() error {
	return r.errs
}

// Run converts report for history.
func (r *Report) Run() history.Run {
	run := history.Run{
		ID:          r.ID,
		Started:     r.Started,
		Sources:     r.Sources,
		StyleSheets: len(r.StyleSheets),
		Failed:      r.Failed(),
	}
	for _, s := range r.Result.Runtimes {
		run.Results = append(run.Results, history.RuntimeResult{
			Runtime:    s.Runtime.String(),
			Total:      s.Total,
			Compatible: s.Compatible(),
			Status:     s.Status().String(),
		})
	}
	return run
}
