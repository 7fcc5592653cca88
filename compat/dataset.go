// Package compat holds versioned compatibility data and resolves support of
// CSS constructs for target runtimes.
package compat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Dataset is loaded once and never modified afterwards, so it can be shared
// by concurrent analyses without locking.
type Dataset struct {
	Browsers map[string]*Browser `json:"browsers"`
	CSS      CSSData             `json:"css"`
}

type CSSData struct {
	Properties map[string]*Feature `json:"properties"`
	AtRules    map[string]*Feature `json:"at-rules"`
}

// Browser describes a runtime and its known releases keyed by version string.
type Browser struct {
	Name     string              `json:"name"`
	Releases map[string]*Release `json:"releases"`
}

type Release struct {
	// Status is kept as text, upstream data occasionally introduces new values.
	Status        string `json:"status"`
	ReleaseDate   string `json:"release_date,omitempty"`
	EngineName    string `json:"engine,omitempty"`
	EngineVersion string `json:"engine_version,omitempty"`
}

// Feature is a node of the compatibility tree. Compat is its own support
// record (may be nil), every other key of the source object is a named
// sub-feature - including layout contexts like "flex_context".
type Feature struct {
	Compat *CompatRecord
	Sub    map[string]*Feature
}

const compatKey = "__compat"

func (f *Feature) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		if key == compatKey {
			f.Compat = &CompatRecord{}
			if err := json.Unmarshal(value, f.Compat); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			continue
		}
		if v := bytes.TrimSpace(value); len(v) == 0 || v[0] != '{' {
			// not a feature object
			continue
		}
		sub := &Feature{}
		if err := json.Unmarshal(value, sub); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if f.Sub == nil {
			f.Sub = make(map[string]*Feature)
		}
		f.Sub[key] = sub
	}
	return nil
}

func (f *Feature) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Sub)+1)
	for k, v := range f.Sub {
		out[k] = v
	}
	if f.Compat != nil {
		out[compatKey] = f.Compat
	}
	return json.Marshal(out)
}

// CompatRecord is the support history of one construct keyed by runtime name.
type CompatRecord struct {
	Description string                 `json:"description,omitempty"`
	MDNURL      string                 `json:"mdn_url,omitempty"`
	Support     map[string]SupportList `json:"support"`
	Status      *FeatureStatus         `json:"status,omitempty"`
}

type FeatureStatus struct {
	Experimental  bool `json:"experimental"`
	StandardTrack bool `json:"standard_track"`
	Deprecated    bool `json:"deprecated"`
}

// SupportList keeps support entries in dataset order. In the source data a
// single entry may be written without enclosing array.
type SupportList []SupportState

func (l *SupportList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = nil
		return nil
	case len(data) > 0 && data[0] == '{':
		var s SupportState
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = SupportList{s}
		return nil
	}
	var list []SupportState
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*l = list
	return nil
}

// SupportState is a single version range in which construct was available.
type SupportState struct {
	VersionAdded          Bound  `json:"version_added"`
	VersionRemoved        Bound  `json:"version_removed"`
	Prefix                string `json:"prefix,omitempty"`
	AlternativeName       string `json:"alternative_name,omitempty"`
	Flags                 []Flag `json:"flags,omitempty"`
	PartialImplementation bool   `json:"partial_implementation,omitempty"`
}

func (s *SupportState) UnmarshalJSON(data []byte) error {
	type plain SupportState
	// absent bounds mean "never"
	v := plain{VersionAdded: Never, VersionRemoved: Never}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = SupportState(v)
	return nil
}

// Plain reports whether entry describes support under the construct's own
// name without runtime flags.
func (s SupportState) Plain() bool {
	return s.Prefix == "" && len(s.Flags) == 0
}

// Covers reports whether version falls into [added, removed) range.
func (s SupportState) Covers(version float64) bool {
	return float64(s.VersionAdded) <= version && version < float64(s.VersionRemoved)
}

type Flag struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	ValueToSet string `json:"value_to_set,omitempty"`
}

// Bound is a numeric version bound. true decodes to 0 (since the earliest
// version), false, null, "preview" and anything unparsable decode to Never.
type Bound float64

// Never is the bound no version reaches.
var Never = Bound(math.Inf(1))

func (b *Bound) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true":
		*b = 0
		return nil
	case "false", "null", "":
		*b = Never
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = ParseBound(s)
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("unexpected version bound %s: %w", data, err)
	}
	*b = Bound(v)
	return nil
}

func (b Bound) MarshalJSON() ([]byte, error) {
	switch {
	case math.IsInf(float64(b), 1):
		return []byte("false"), nil
	case b == 0:
		return []byte("true"), nil
	}
	return json.Marshal(strconv.FormatFloat(float64(b), 'f', -1, 64))
}

func (b Bound) String() string {
	if math.IsInf(float64(b), 1) {
		return "never"
	}
	return strconv.FormatFloat(float64(b), 'f', -1, 64)
}

// ParseBound converts dataset version text to a bound. Ranged values like
// "≤37" use their upper limit.
func ParseBound(s string) Bound {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "≤")
	if v, ok := ParseVersion(s); ok {
		return Bound(v)
	}
	return Never
}

// ParseVersion reads leading numeric part of a version string, so "12.1"
// gives 12.1 and "4.0.1" gives 4.
func ParseVersion(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end, dot := 0, false
	for end < len(s) {
		c := s[end]
		if c == '.' && !dot && end > 0 {
			dot = true
		} else if c < '0' || c > '9' {
			break
		}
		end++
	}
	num := strings.TrimSuffix(s[:end], ".")
	if num == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ErrNoData is returned when loaded document has no css section.
var ErrNoData = errors.New("dataset has no css compatibility data")

// Load reads dataset from file.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open dataset: %w", err)
	}
	defer f.Close()

	d, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("unable to load dataset '%s': %w", path, err)
	}
	return d, nil
}

// Decode decodes dataset document. Besides plain JSON it accepts a script
// wrapping the document into "function getCompatData() { return ...; }".
func Decode(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = unwrapScript(bytes.TrimSpace(data))

	d := &Dataset{}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("unable to decode dataset: %w", err)
	}
	if d.CSS.Properties == nil && d.CSS.AtRules == nil {
		return nil, ErrNoData
	}
	return d, nil
}

func unwrapScript(data []byte) []byte {
	if len(data) == 0 || data[0] == '{' {
		return data
	}
	i := bytes.Index(data, []byte("return"))
	if i < 0 {
		return data
	}
	data = bytes.TrimSpace(data[i+len("return"):])
	data = bytes.TrimSuffix(data, []byte("}"))
	data = bytes.TrimSpace(data)
	return bytes.TrimSuffix(data, []byte(";"))
}

// Section returns features of the given dataset section.
func (d *Dataset) Section(s Section) map[string]*Feature {
	if s == SectionAtRules {
		return d.CSS.AtRules
	}
	return d.CSS.Properties
}
