package wikitext

import (
	"strconv"
	"strings"
	"unicode"
)

// NormalizeTitle normalizes a page title: underscores become spaces, runs of
// whitespace collapse to one space, and surrounding whitespace is removed.
func NormalizeTitle(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || unicode.IsSpace(r)
	}), " ")
}

// NormalizeArgumentName normalizes the name of a template argument.
func NormalizeArgumentName(s string) string {
	return strings.TrimSpace(s)
}

// ArgumentName returns the effective name of a template argument. Unnamed
// arguments are named by their 1-based position among the unnamed arguments
// of their template. It returns "" for an unnamed argument detached from a
// template.
func ArgumentName(arg *TemplateArgument) string {
	if arg.Name != nil {
		return NormalizeArgumentName(SourceText(arg.Name))
	}
	t := arg.Template()
	if t == nil {
		return ""
	}
	unnamed := 0
	for _, a := range t.Arguments {
		if a.Name == nil {
			unnamed++
		}
		if a == arg {
			return strconv.Itoa(unnamed)
		}
	}
	return ""
}

// ArgumentIndex returns the 0-based index of arg among the arguments of its
// template, or -1.
func ArgumentIndex(arg *TemplateArgument) int {
	if t := arg.Template(); t != nil {
		for i, a := range t.Arguments {
			if a == arg {
				return i
			}
		}
	}
	return -1
}

// CompareArgumentNames orders argument names with numeric names first, in
// numeric order, followed by the other names in case-insensitive order.
func CompareArgumentNames(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na - nb
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Lowercase magic words that take an argument after a colon.
var lowerMagicWords = map[string]bool{
	"lc": true, "uc": true, "lcfirst": true, "ucfirst": true,
	"urlencode": true, "anchorencode": true, "fullurl": true, "localurl": true,
	"canonicalurl": true, "filepath": true, "ns": true, "nse": true,
	"formatnum": true, "padleft": true, "padright": true, "plural": true,
	"grammar": true, "gender": true, "int": true, "msg": true, "msgnw": true,
	"raw": true, "subst": true, "safesubst": true,
}

// DefaultIsMagicWord recognizes parser functions ("#if"), namespaced
// lowercase magic words ("lc:", "subst:"), and all-uppercase variables
// ("PAGENAME", "DISPLAYTITLE:").
func DefaultIsMagicWord(name string, hasColon bool) bool {
	if name == "" {
		return false
	}
	if name[0] == '#' {
		return true
	}
	if hasColon && lowerMagicWords[strings.ToLower(name)] {
		return true
	}
	return isUpperWord(name) && (hasColon || len(name) > 1)
}

func isUpperWord(s string) bool {
	hasLetter := false
	for _, r := range s {
		switch {
		case 'A' <= r && r <= 'Z':
			hasLetter = true
		case r == ' ' || ('0' <= r && r <= '9'):
		default:
			return false
		}
	}
	return hasLetter
}
