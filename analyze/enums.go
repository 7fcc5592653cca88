package analyze

import (
	"fmt"
	"strings"
)

// Kind of construct issue was reported for.
// ENUM(property, at-rule)
type Kind int

const (
	KindProperty Kind = iota
	KindAtRule
)

var _KindNames = []string{"property", "at-rule"}

var ErrInvalidKind = fmt.Errorf("not a valid Kind, try [%s]", strings.Join(_KindNames, ", "))

func (k Kind) String() string {
	if k >= KindProperty && k <= KindAtRule {
		return _KindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func ParseKind(name string) (Kind, error) {
	for i, n := range _KindNames {
		if strings.EqualFold(n, name) {
			return Kind(i), nil
		}
	}
	return Kind(0), fmt.Errorf("%s is %w", name, ErrInvalidKind)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	tmp, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = tmp
	return nil
}

// Presentation tier of a compatibility ratio. Unknown is used when nothing
// was evaluated for the runtime.
// ENUM(ok, warning, error, unknown)
type Status int

const (
	StatusOk Status = iota
	StatusWarning
	StatusError
	StatusUnknown
)

var _StatusNames = []string{"ok", "warning", "error", "unknown"}

var ErrInvalidStatus = fmt.Errorf("not a valid Status, try [%s]", strings.Join(_StatusNames, ", "))

func (s Status) String() string {
	if s >= StatusOk && s <= StatusUnknown {
		return _StatusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

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

const (
	okThreshold      = 0.9
	warningThreshold = 0.6
)

// StatusOf classifies compatibility ratio.
func StatusOf(ratio float64) Status {
	switch {
	case ratio > okThreshold:
		return StatusOk
	case ratio > warningThreshold:
		return StatusWarning
	}
	return StatusError
}
