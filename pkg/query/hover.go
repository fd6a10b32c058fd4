package query

import (
	"fmt"
	"slices"
	"strings"

	"src.mwls.dev/pkg/document"
	"src.mwls.dev/pkg/wikitext"
)

// Hover is the result of a hover query.
type Hover struct {
	// Markdown text.
	Contents string
	// Range of the innermost node described.
	Range document.Range
}

// Maps the kind of a node to the kind of the parent whose label it makes
// redundant. A template argument label already names its template.
var subsumes = map[wikitext.Kind]wikitext.Kind{
	wikitext.KindTemplateArgument: wikitext.KindTemplate,
	wikitext.KindTagAttribute:     wikitext.KindTag,
}

// Hover describes the constructs enclosing pos, outermost first. It returns
// nil if there are none.
func (d Doc) Hover(s Store, pos document.Position) *Hover {
	_, path := d.trace(pos)
	var labels []string
	var innermost, last wikitext.Node
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		label, ok := hoverLabel(s, n)
		if !ok {
			continue
		}
		if last != nil {
			if k, ok := subsumes[last.Kind()]; ok && k == n.Kind() && wikitext.Parent(last) == n {
				continue
			}
		}
		if innermost == nil {
			innermost = n
		}
		last = n
		labels = append(labels, label)
	}
	if innermost == nil {
		return nil
	}
	slices.Reverse(labels)
	return &Hover{Contents: strings.Join(labels, "\n\n"), Range: d.rangeOf(innermost)}
}

func hoverLabel(s Store, n wikitext.Node) (string, bool) {
	switch n := n.(type) {
	case *wikitext.Wikitext, *wikitext.Run, *wikitext.PlainText:
		return "", false
	case *wikitext.Template:
		label := "{{**" + escapeMd(n.NameText()) + "**}}"
		if rec := lookupTemplate(s, n); rec != nil {
			label = withSummary(label, resolve(s, rec).Summary)
		}
		return label, true
	case *wikitext.TemplateArgument:
		tpl := ""
		if t := n.Template(); t != nil {
			tpl = t.NameText()
		}
		return fmt.Sprintf("{{%s | **%s**=…}}",
			escapeMd(tpl), escapeMd(wikitext.ArgumentName(n))), true
	case *wikitext.ArgumentReference:
		name := wikitext.NormalizeArgumentName(wikitext.SourceText(n.Name))
		return "{{{**" + escapeMd(name) + "**}}}", true
	case *wikitext.WikiLink:
		target := wikitext.NormalizeTitle(wikitext.SourceText(n.Target))
		label := "[[" + escapeMd(target) + "]]"
		if rec := s.LookupLink(target); target != "" && rec != nil {
			label = withSummary(label, resolve(s, rec).Summary)
		}
		return label, true
	case *wikitext.ExternalLink:
		return "[" + escapeMd(wikitext.SourceText(n.Target)) + "]", true
	case *wikitext.FormatSwitch:
		return wikitext.SourceText(n), true
	case *wikitext.Tag:
		return "&lt;**" + escapeMd(n.Name) + "**&gt;", true
	case *wikitext.TagAttribute:
		tag := ""
		if t, ok := wikitext.Parent(n).(*wikitext.Tag); ok {
			tag = t.Name
		}
		return fmt.Sprintf("&lt;%s **%s**=… &gt;", escapeMd(tag), escapeMd(n.Name)), true
	case *wikitext.Comment:
		return "&lt;!-- … --&gt;", true
	default:
		panic(fmt.Sprintf("unhandled node kind %v", n.Kind()))
	}
}

func withSummary(label, summary string) string {
	if summary == "" {
		return label
	}
	return label + "\n\n" + summary
}
