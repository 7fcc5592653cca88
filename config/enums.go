package config

import (
	"fmt"
	"strings"
)

// Specification of report output format.
// ENUM(text, json, template)
type OutputFmt int

const (
	OutputFmtText OutputFmt = iota
	OutputFmtJson
	OutputFmtTemplate
)

var _OutputFmtNames = []string{"text", "json", "template"}

var ErrInvalidOutputFmt = fmt.Errorf("not a valid OutputFmt, try [%s]", strings.Join(_OutputFmtNames, ", "))

// OutputFmtNames returns a list of possible string values of OutputFmt.
func OutputFmtNames() []string {
	tmp := make([]string, len(_OutputFmtNames))
	copy(tmp, _OutputFmtNames)
	return tmp
}

func (o OutputFmt) String() string {
	if o >= OutputFmtText && o <= OutputFmtTemplate {
		return _OutputFmtNames[o]
	}
	return fmt.Sprintf("OutputFmt(%d)", int(o))
}

// ParseOutputFmt attempts to convert a string to a OutputFmt.
func ParseOutputFmt(name string) (OutputFmt, error) {
	for i, n := range _OutputFmtNames {
		if strings.EqualFold(n, name) {
			return OutputFmt(i), nil
		}
	}
	return OutputFmt(0), fmt.Errorf("%s is %w", name, ErrInvalidOutputFmt)
}

func (o OutputFmt) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *OutputFmt) UnmarshalText(text []byte) error {
	tmp, err := ParseOutputFmt(string(text))
	if err != nil {
		return err
	}
	*o = tmp
	return nil
}
