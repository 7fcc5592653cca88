package analyze

import (
	"fmt"
	"sort"

	"csscompat/compat"
)

// Ref identifies a stylesheet for presentation only. Linked stylesheets have
// Href, inline ones are identified by the document and Index - position among
// all stylesheets of that document.
type Ref struct {
	Href     string `json:"href,omitempty"`
	Document string `json:"document,omitempty"`
	Index    int    `json:"index"`
}

// Inline reports whether stylesheet text came from the document itself.
func (r Ref) Inline() bool {
	return r.Href == ""
}

func (r Ref) String() string {
	if !r.Inline() {
		return r.Href
	}
	if r.Document == "" {
		return fmt.Sprintf("<style> #%d", r.Index)
	}
	return fmt.Sprintf("%s <style> #%d", r.Document, r.Index)
}

// Issue is a construct which is not known to be supported by the runtime.
type Issue struct {
	Property   string         `json:"property"`
	Kind       Kind           `json:"kind"`
	Verdict    compat.Verdict `json:"verdict"`
	Line       int            `json:"line"`
	Column     int            `json:"column"`
	StyleSheet Ref            `json:"stylesheet"`
	Runtime    string         `json:"runtime"`
}

// Summary accumulates evaluation of a single runtime.
type Summary struct {
	Runtime compat.Runtime `json:"runtime"`
	Total   int            `json:"total"`
	Issues  []Issue        `json:"issues"`
}

// Compatible returns number of evaluated constructs runtime supports.
func (s Summary) Compatible() int {
	return s.Total - len(s.Issues)
}

// Ratio returns share of supported constructs. It is undefined when nothing
// was evaluated.
func (s Summary) Ratio() (float64, bool) {
	if s.Total == 0 {
		return 0, false
	}
	return float64(s.Compatible()) / float64(s.Total), true
}

// Status classifies ratio, unknown when ratio is undefined.
func (s Summary) Status() Status {
	ratio, ok := s.Ratio()
	if !ok {
		return StatusUnknown
	}
	return StatusOf(ratio)
}

// Category groups issues with the same construct and verdict.
type Category struct {
	Property string         `json:"property"`
	Kind     Kind           `json:"kind"`
	Verdict  compat.Verdict `json:"verdict"`
	Count    int            `json:"count"`
	Issues   []Issue        `json:"-"`
}

// Categories groups issues by construct and verdict. Unsupported categories
// go before unknown ones, then by construct name.
func (s Summary) Categories() []Category {
	type key struct {
		property string
		kind     Kind
		verdict  compat.Verdict
	}
	index := make(map[key]int)
	var list []Category
	for _, issue := range s.Issues {
		k := key{issue.Property, issue.Kind, issue.Verdict}
		i, ok := index[k]
		if !ok {
			i = len(list)
			index[k] = i
			list = append(list, Category{Property: issue.Property, Kind: issue.Kind, Verdict: issue.Verdict})
		}
		list[i].Count++
		list[i].Issues = append(list[i].Issues, issue)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Verdict != list[j].Verdict {
			return list[i].Verdict < list[j].Verdict
		}
		if list[i].Kind != list[j].Kind {
			return list[i].Kind > list[j].Kind
		}
		return list[i].Property < list[j].Property
	})
	return list
}

// Result holds per runtime summaries in caller's runtime order.
type Result struct {
	Runtimes []Summary `json:"runtimes"`
}

func newResult(targets []compat.Runtime) *Result {
	r := &Result{Runtimes: make([]Summary, len(targets))}
	for i, rt := range targets {
		r.Runtimes[i] = Summary{Runtime: rt, Issues: make([]Issue, 0)}
	}
	return r
}

// Worst returns summary with the lowest defined ratio, the first one wins
// ties. Summaries without evaluated constructs are not considered.
func (r *Result) Worst() (Summary, bool) {
	var (
		worst  Summary
		lowest float64
		found  bool
	)
	for _, s := range r.Runtimes {
		ratio, ok := s.Ratio()
		if !ok {
			continue
		}
		if !found || ratio < lowest {
			worst, lowest, found = s, ratio, true
		}
	}
	return worst, found
}

// Merge adds totals and issues of other result to r. Summaries are matched
// by position when runtimes agree there, otherwise by runtime. Unmatched
// ones are appended.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	for j, s := range other.Runtimes {
		i := j
		if i >= len(r.Runtimes) || !sameRuntime(r.Runtimes[i].Runtime, s.Runtime) {
			i = r.find(s.Runtime)
		}
		if i < 0 {
			r.Runtimes = append(r.Runtimes, Summary{Runtime: s.Runtime, Issues: make([]Issue, 0)})
			i = len(r.Runtimes) - 1
		}
		r.Runtimes[i].Total += s.Total
		r.Runtimes[i].Issues = append(r.Runtimes[i].Issues, s.Issues...)
	}
}

func (r *Result) find(rt compat.Runtime) int {
	for i, s := range r.Runtimes {
		if sameRuntime(s.Runtime, rt) {
			return i
		}
	}
	return -1
}

func sameRuntime(a, b compat.Runtime) bool {
	return a.Name == b.Name && a.Version == b.Version
}

// Total returns number of evaluated constructs, the same for every runtime.
func (r *Result) Total() int {
	if len(r.Runtimes) == 0 {
		return 0
	}
	return r.Runtimes[0].Total
}
