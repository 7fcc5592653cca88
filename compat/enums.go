package compat

import (
	"fmt"
	"strings"
)

// Support verdict for a construct in a particular runtime. Unknown means
// dataset has no record at all, Unsupported means it has one and no entry
// covers the runtime version.
// ENUM(supported, unsupported, unknown)
type Verdict int

const (
	VerdictSupported Verdict = iota
	VerdictUnsupported
	VerdictUnknown
)

var _VerdictNames = []string{"supported", "unsupported", "unknown"}

// ErrInvalidVerdict is returned when verdict name cannot be parsed.
var ErrInvalidVerdict = fmt.Errorf("not a valid Verdict, try [%s]", strings.Join(_VerdictNames, ", "))

func (v Verdict) String() string {
	if v.IsValid() {
		return _VerdictNames[v]
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

func (v Verdict) IsValid() bool {
	return v >= VerdictSupported && v <= VerdictUnknown
}

// ParseVerdict attempts to convert a string to a Verdict.
func ParseVerdict(name string) (Verdict, error) {
	for i, n := range _VerdictNames {
		if strings.EqualFold(n, name) {
			return Verdict(i), nil
		}
	}
	return Verdict(0), fmt.Errorf("%s is %w", name, ErrInvalidVerdict)
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(text []byte) error {
	tmp, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = tmp
	return nil
}

// Release status of a runtime version. Only current, beta and nightly
// releases are offered for selection, custom marks runtimes which are not
// present in the dataset.
// ENUM(current, beta, nightly, custom, retired, esr, planned)
type Status int

const (
	StatusCurrent Status = iota
	StatusBeta
	StatusNightly
	StatusCustom
	StatusRetired
	StatusEsr
	StatusPlanned
)

var _StatusNames = []string{"current", "beta", "nightly", "custom", "retired", "esr", "planned"}

// ErrInvalidStatus is returned when status name cannot be parsed.
var ErrInvalidStatus = fmt.Errorf("not a valid Status, try [%s]", strings.Join(_StatusNames, ", "))

func (s Status) String() string {
	if s.IsValid() {
		return _StatusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) IsValid() bool {
	return s >= StatusCurrent && s <= StatusPlanned
}

// Selectable reports whether runtime release with this status is offered as
// analysis target by default.
func (s Status) Selectable() bool {
	return s == StatusCurrent || s == StatusBeta || s == StatusNightly
}

// ParseStatus attempts to convert a string to a Status.
func ParseStatus(name string) (Status, error) {
	for i, n := range _StatusNames {
		if strings.EqualFold(n, name) {
			return Status(i), nil
		}
	}
	return Status(0), fmt.Errorf("%s is %w", name, ErrInvalidStatus)
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	tmp, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = tmp
	return nil
}

// Dataset section constructs are looked up in.
// ENUM(properties, at-rules)
type Section int

const (
	SectionProperties Section = iota
	SectionAtRules
)

func (s Section) String() string {
	switch s {
	case SectionProperties:
		return "properties"
	case SectionAtRules:
		return "at-rules"
	}
	return fmt.Sprintf("Section(%d)", int(s))
}
