package query

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"src.mwls.dev/pkg/document"
	"src.mwls.dev/pkg/store"
	"src.mwls.dev/pkg/wikitext"
)

// ItemKind is the kind of a completion item.
type ItemKind int

// Possible values of ItemKind.
const (
	PageItem ItemKind = iota
	MagicWordItem
	TemplateItem
	ArgumentItem
)

func itemKind(k store.Kind) ItemKind {
	switch k {
	case store.MagicWord:
		return MagicWordItem
	case store.Template:
		return TemplateItem
	default:
		return PageItem
	}
}

// CompletionItem is one completion candidate. Accepting it replaces Range
// with InsertText.
type CompletionItem struct {
	Label      string
	Kind       ItemKind
	Detail     string
	InsertText string
	Range      document.Range
}

// CompletionList is the result of a completion query. It is always
// incomplete, since the candidates depend on the text typed so far.
type CompletionList struct {
	IsIncomplete bool
	Items        []CompletionItem
}

type slot int

const (
	noSlot slot = iota
	templateNameSlot
	argumentSlot
	linkTargetSlot
)

// Complete offers names for the slot at pos: transclusion names in a template
// name, declared argument names in a template argument name, and link names in
// a wikilink target. It returns nil in any other place.
//
// Only the run of text typed before pos within the innermost plain text is
// used as the prefix. Of that, only the trailing word is replaced, so that
// completing "#swi" replaces "swi".
func (d Doc) Complete(s Store, pos document.Position) *CompletionList {
	offset, path := d.trace(pos)
	kind, arg := classify(path)
	if kind == noSlot {
		return nil
	}
	prefix := ""
	if pt, ok := path[len(path)-1].(*wikitext.PlainText); ok {
		prefix = wikitext.SourceText(pt)[:offset-pt.From]
	}
	prefix = strings.TrimLeftFunc(prefix, unicode.IsSpace)

	lwi := store.LastWordIndex(prefix)
	replace := document.Range{
		Start: d.Snapshot.PositionAt(offset - (len(prefix) - lwi)),
		End:   d.Snapshot.PositionAt(offset),
	}
	list := &CompletionList{IsIncomplete: true, Items: []CompletionItem{}}
	switch kind {
	case templateNameSlot, linkTargetSlot:
		idx := store.Transclusions
		if kind == linkTargetSlot {
			idx = store.Links
		}
		for _, item := range s.CompletionItems(prefix, idx) {
			list.Items = append(list.Items, CompletionItem{
				Label: item.Label, Kind: itemKind(item.Kind), Detail: item.Detail,
				InsertText: item.Label, Range: replace})
		}
	case argumentSlot:
		for _, a := range argumentCandidates(s, arg, prefix) {
			label := a.Name[runeOffset(a.Name, utf8.RuneCountInString(prefix[:lwi])):]
			insert := label
			if arg.Name == nil {
				insert += "="
			}
			list.Items = append(list.Items, CompletionItem{
				Label: label, Kind: ArgumentItem, Detail: a.Summary,
				InsertText: insert, Range: replace})
		}
	}
	return list
}

// Classifies the slot by the innermost Run on the path.
func classify(path []wikitext.Node) (slot, *wikitext.TemplateArgument) {
	for i := len(path) - 1; i >= 1; i-- {
		run, ok := path[i].(*wikitext.Run)
		if !ok {
			continue
		}
		switch p := path[i-1].(type) {
		case *wikitext.Template:
			if p.Name == run {
				return templateNameSlot, nil
			}
		case *wikitext.TemplateArgument:
			if p.Name == run || p.Name == nil {
				return argumentSlot, p
			}
		case *wikitext.WikiLink:
			if p.Target == run {
				return linkTargetSlot, nil
			}
		}
		return noSlot, nil
	}
	return noSlot, nil
}

// Returns the named arguments declared by the template of arg that start
// with prefix, ignoring case, and are not used by other arguments of the
// invocation.
func argumentCandidates(s Store, arg *wikitext.TemplateArgument, prefix string) []store.ArgumentRecord {
	t := arg.Template()
	if t == nil || t.IsMagicWord {
		return nil
	}
	rec := lookupTemplate(s, t)
	if rec == nil {
		return nil
	}
	rec = resolve(s, rec)
	var used []string
	for _, a := range t.Arguments {
		if a != arg {
			used = append(used, wikitext.ArgumentName(a))
		}
	}
	var candidates []store.ArgumentRecord
	for _, a := range rec.Arguments {
		if a.Positional() || slices.Contains(used, a.Name) || !hasPrefixFold(a.Name, prefix) {
			continue
		}
		candidates = append(candidates, a)
	}
	return candidates
}

func hasPrefixFold(s, prefix string) bool {
	rs, ps := []rune(s), []rune(prefix)
	return len(rs) >= len(ps) && strings.EqualFold(string(rs[:len(ps)]), prefix)
}

// Returns the byte offset of the n-th rune of s.
func runeOffset(s string, n int) int {
	for i := range s {
		if n == 0 {
			return i
		}
		n--
	}
	return len(s)
}
