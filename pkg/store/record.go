package store

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"src.mwls.dev/pkg/wikitext"
)

// Kind is the kind of a page record.
type Kind int

// Possible values of Kind.
const (
	Page Kind = iota
	MagicWord
	Template
)

func (k Kind) String() string {
	switch k {
	case Page:
		return "page"
	case MagicWord:
		return "magic word"
	case Template:
		return "template"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ArgumentRecord describes one argument of a template or magic word. A
// decimal name denotes a positional argument.
type ArgumentRecord struct {
	Name    string `json:"name" yaml:"name"`
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Positional reports whether the argument is positional.
func (a ArgumentRecord) Positional() bool {
	_, err := strconv.Atoi(a.Name)
	return err == nil
}

// PageRecord is what is known about a page, a template or a magic word.
type PageRecord struct {
	// Name used in wikilinks, such as "Template:Infobox".
	FullName string `json:"fullName"`
	// Name used in transclusions, such as "Infobox".
	TransclusionName string `json:"transclusionName"`
	// Name of the record this one redirects to, empty if none.
	RedirectTarget string           `json:"redirectTarget,omitempty"`
	Summary        string           `json:"summary,omitempty"`
	Remarks        string           `json:"remarks,omitempty"`
	Arguments      []ArgumentRecord `json:"arguments,omitempty"`
	// All known signatures. When not empty, the first one equals Arguments.
	Signatures [][]ArgumentRecord `json:"signatures,omitempty"`
	Kind       Kind               `json:"kind"`
	// Set for records derived from the content of open documents.
	IsInferred bool `json:"isInferred,omitempty"`
	// Whether a magic word is matched case-sensitively.
	CaseSensitive bool `json:"caseSensitive,omitempty"`
}

func (r *PageRecord) String() string {
	if r.Kind == MagicWord {
		return "{{" + r.TransclusionName + "}}"
	}
	return r.FullName
}

// Argument returns the argument with the given name.
func (r *PageRecord) Argument(name string) (ArgumentRecord, bool) {
	for _, a := range r.Arguments {
		if a.Name == name {
			return a, true
		}
	}
	return ArgumentRecord{}, false
}

// TemplateNamespace is the prefix of the full names of templates.
const TemplateNamespace = "Template:"

// NewTemplate returns a record for a template given its transclusion name.
// A name starting with a colon denotes a page in the main namespace.
func NewTemplate(transclusionName string, args []ArgumentRecord) *PageRecord {
	if page, ok := strings.CutPrefix(transclusionName, ":"); ok {
		return &PageRecord{FullName: page, TransclusionName: transclusionName,
			Arguments: args, Kind: Page}
	}
	return &PageRecord{FullName: TemplateNamespace + transclusionName,
		TransclusionName: transclusionName, Arguments: args, Kind: Template}
}

// NewPage returns a record for a page given its full name. Pages in the
// template namespace become templates.
func NewPage(fullName string) *PageRecord {
	if len(fullName) > len(TemplateNamespace) &&
		strings.EqualFold(fullName[:len(TemplateNamespace)], TemplateNamespace) {
		return NewTemplate(fullName[len(TemplateNamespace):], nil)
	}
	return &PageRecord{FullName: fullName, TransclusionName: ":" + fullName, Kind: Page}
}

// Returns the union of two argument lists, ordered by
// wikitext.CompareArgumentNames. Summaries from b win over empty ones from a.
func mergeArguments(a, b []ArgumentRecord) []ArgumentRecord {
	merged := slices.Clone(a)
	for _, arg := range b {
		i := slices.IndexFunc(merged, func(m ArgumentRecord) bool { return m.Name == arg.Name })
		switch {
		case i < 0:
			merged = append(merged, arg)
		case merged[i].Summary == "":
			merged[i].Summary = arg.Summary
		}
	}
	SortArguments(merged)
	return merged
}

// SortArguments sorts arguments with positional ones first.
func SortArguments(args []ArgumentRecord) {
	slices.SortStableFunc(args, func(x, y ArgumentRecord) int {
		return wikitext.CompareArgumentNames(x.Name, y.Name)
	})
}
