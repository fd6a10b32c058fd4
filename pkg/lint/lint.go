// Package lint finds problems in parsed wikitext.
package lint

import (
	"fmt"
	"regexp"
	"strings"

	"src.mwls.dev/pkg/diag"
	"src.mwls.dev/pkg/wikitext"
)

// Source is the source of all diagnostics produced by this package.
const Source = "Wikitext"

// Lint checks the tree and returns the problems found, sorted by position.
func Lint(root *wikitext.Wikitext) []diag.Diagnostic {
	var ds []diag.Diagnostic
	emit := func(sev diag.Severity, r diag.Ranger, format string, args ...any) {
		ds = append(ds, diag.Diagnostic{
			Ranging: r.Range(), Severity: sev, Source: Source,
			Message: fmt.Sprintf(format, args...)})
	}
	checkFormatSwitches(root, emit)
	wikitext.Walk(root, func(n wikitext.Node) bool {
		switch n := n.(type) {
		case *wikitext.Template:
			checkTemplate(n, emit)
		case *wikitext.ArgumentReference:
			if !n.Closed {
				emit(diag.Warning, n, "Argument reference is not closed.")
			}
		case *wikitext.WikiLink:
			if wikitext.NormalizeTitle(wikitext.SourceText(n.Target)) == "" {
				emit(diag.Warning, n, "Empty wikilink target.")
			}
		case *wikitext.Tag:
			checkTag(n, emit)
		case *wikitext.Comment:
			if !n.Closed {
				emit(diag.Warning, diag.Ranging{From: n.From, To: n.From + len("<!--")},
					"Comment is not closed.")
			}
		case *wikitext.PlainText:
			checkMagicLinks(n, emit)
		}
		return true
	})
	diag.Sort(ds)
	return ds
}

type emitter func(sev diag.Severity, r diag.Ranger, format string, args ...any)

// Bold and italics are toggled by format switches among the direct children
// of one node, and reset by a line break in plain text.
func checkFormatSwitches(n wikitext.Node, emit emitter) {
	var bold, italics *wikitext.FormatSwitch
	flush := func() {
		if bold != nil {
			emit(diag.Warning, bold, "Open tag is implicitly closed by end of line.")
		}
		if italics != nil && italics != bold {
			emit(diag.Warning, italics, "Open tag is implicitly closed by end of line.")
		}
		bold, italics = nil, nil
	}
	for _, ch := range wikitext.Children(n) {
		switch ch := ch.(type) {
		case *wikitext.FormatSwitch:
			if ch.Bold {
				bold = toggle(bold, ch)
			}
			if ch.Italics {
				italics = toggle(italics, ch)
			}
		case *wikitext.PlainText:
			if strings.ContainsAny(ch.Text, "\r\n") {
				flush()
			}
		}
		checkFormatSwitches(ch, emit)
	}
	flush()
}

func toggle(open, fs *wikitext.FormatSwitch) *wikitext.FormatSwitch {
	if open == nil {
		return fs
	}
	return nil
}

func checkTemplate(t *wikitext.Template, emit emitter) {
	if !t.Closed {
		emit(diag.Warning, diag.Ranging{From: t.From, To: t.Name.To},
			"Transclusion is not closed.")
	}
	if t.NameText() == "" {
		emit(diag.Warning, t, "Empty transclusion target.")
	}
	seen := make(map[string]bool)
	for _, arg := range t.Arguments {
		name := wikitext.ArgumentName(arg)
		if seen[name] {
			emit(diag.Warning, arg, "Duplicate template argument %q.", name)
		}
		seen[name] = true
	}
}

func checkTag(t *wikitext.Tag, emit emitter) {
	if !t.Closed {
		emit(diag.Warning, t, "Open tag <%s> is not closed.", t.Name)
	}
	seen := make(map[string]bool)
	for _, attr := range t.Attributes {
		name := strings.ToLower(attr.Name)
		if seen[name] {
			emit(diag.Warning, attr, "Duplicate tag attribute %q.", attr.Name)
		}
		seen[name] = true
	}
}

var magicLinkPattern = regexp.MustCompile(
	`\b(?:ISBN[ \t]+(?:97[89][- ]?)?(?:[0-9][- ]?){9}[0-9Xx]|RFC[ \t]+[0-9]+|PMID[ \t]+[0-9]+)\b`)

func checkMagicLinks(t *wikitext.PlainText, emit emitter) {
	if inRawTag(t) {
		return
	}
	for _, m := range magicLinkPattern.FindAllStringIndex(t.Text, -1) {
		text := t.Text[m[0]:m[1]]
		emit(diag.Info, diag.Ranging{From: t.From + m[0], To: t.From + m[1]},
			"Hard-coded magic link %q; consider using a template or an external link instead.", text)
	}
}

func inRawTag(n wikitext.Node) bool {
	for p := wikitext.Parent(n); p != nil; p = wikitext.Parent(p) {
		if tag, ok := p.(*wikitext.Tag); ok && wikitext.IsRawTag(tag.Name) {
			return true
		}
	}
	return false
}
