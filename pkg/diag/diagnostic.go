package diag

import (
	"fmt"
	"sort"
)

// Severity is the severity of a Diagnostic. The numeric values match the
// Language Server Protocol.
type Severity int

// Possible values of Severity.
const (
	Error Severity = iota + 1
	Warning
	Info
	Hint
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Hint:
		return "hint"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Diagnostic is a problem found in a range of a text.
type Diagnostic struct {
	Ranging
	Severity Severity
	Source   string
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d-%d %s: %s", d.From, d.To, d.Severity, d.Message)
}

// Sort sorts diagnostics by start position, keeping the relative order of
// diagnostics that start at the same position.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].From < ds[j].From })
}

// Cap returns at most max diagnostics from ds. A non-positive max means no
// limit.
func Cap(ds []Diagnostic, max int) []Diagnostic {
	if max > 0 && len(ds) > max {
		return ds[:max]
	}
	return ds
}
