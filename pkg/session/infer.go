package session

import (
	"errors"
	"slices"
	"strings"

	"src.mwls.dev/pkg/pipeline"
	"src.mwls.dev/pkg/store"
	"src.mwls.dev/pkg/wikitext"
)

// Names containing these are built from other markup and are not inferred.
const markupChars = "{}[]<>|"

// Infer derives records from the usage of templates and wikilinks in a
// tree. Each non-magic template yields a Template record whose arguments are
// the union of the argument names used with it; each wikilink target yields
// a Page record. All records are marked as inferred.
func Infer(root *wikitext.Wikitext) []*store.PageRecord {
	var (
		templates []string
		arguments = map[string][]store.ArgumentRecord{}
		pages     []string
		seenPages = map[string]bool{}
	)
	wikitext.Walk(root, func(n wikitext.Node) bool {
		switch n := n.(type) {
		case *wikitext.Template:
			name := n.NameText()
			if n.IsMagicWord || name == "" || strings.ContainsAny(name, markupChars) {
				break
			}
			args, seen := arguments[name]
			if !seen {
				templates = append(templates, name)
			}
			for _, arg := range n.Arguments {
				an := wikitext.ArgumentName(arg)
				if an == "" || strings.ContainsAny(an, markupChars) ||
					slices.ContainsFunc(args, func(a store.ArgumentRecord) bool { return a.Name == an }) {
					continue
				}
				args = append(args, store.ArgumentRecord{Name: an})
			}
			arguments[name] = args
		case *wikitext.WikiLink:
			target := linkTarget(n)
			if target != "" && !seenPages[target] {
				seenPages[target] = true
				pages = append(pages, target)
			}
		}
		return true
	})

	recs := make([]*store.PageRecord, 0, len(templates)+len(pages))
	for _, name := range templates {
		args := arguments[name]
		store.SortArguments(args)
		rec := store.NewTemplate(name, args)
		rec.IsInferred = true
		recs = append(recs, rec)
	}
	for _, name := range pages {
		rec := store.NewPage(name)
		rec.IsInferred = true
		recs = append(recs, rec)
	}
	return recs
}

// Returns the page a wikilink points to, without fragment or leading colon,
// or "" if it does not point to another page.
func linkTarget(ln *wikitext.WikiLink) string {
	target, _, _ := strings.Cut(wikitext.SourceText(ln.Target), "#")
	target = wikitext.NormalizeTitle(target)
	target = wikitext.NormalizeTitle(strings.TrimPrefix(target, ":"))
	if strings.ContainsAny(target, markupChars) {
		return ""
	}
	return target
}

// Adds the records inferred from an analysis to the store and returns how
// many were accepted.
func (s *Session) infer(a *pipeline.Analysis) int {
	n := 0
	for _, rec := range Infer(a.Root) {
		err := s.store.Upsert(rec)
		switch {
		case err == nil:
			n++
		case errors.Is(err, store.ErrPrecedence):
		default:
			logger.Printf("infer %s: %v", rec, err)
		}
	}
	return n
}
