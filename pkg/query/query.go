// Package query answers positional queries against a parsed document: hover
// text, signature help and completion.
//
// All functions are stateless. They take the snapshot a tree was parsed from,
// for converting between offsets and positions, and a Store to look names up.
// A name the store does not know yields no result rather than an error.
package query

import (
	"strings"

	"src.mwls.dev/pkg/document"
	"src.mwls.dev/pkg/store"
	"src.mwls.dev/pkg/wikitext"
)

// Store is the subset of *store.Store used by queries.
type Store interface {
	LookupLink(fullName string) *store.PageRecord
	LookupTransclusion(name string) *store.PageRecord
	ResolveRedirect(rec *store.PageRecord) (*store.PageRecord, error)
	CompletionItems(prefix string, idx store.Index) []store.CompletionItem
}

// Doc is a parsed document together with the snapshot it was parsed from.
type Doc struct {
	Snapshot *document.Snapshot
	Root     *wikitext.Wikitext
}

// Trace returns the path from the root to the innermost node whose range
// contains offset, counting both ends. When two siblings both contain offset,
// as happens at their shared boundary, the first one is taken. The path always
// starts with root.
func Trace(root wikitext.Node, offset int) []wikitext.Node {
	path := []wikitext.Node{root}
	for n := root; ; {
		var next wikitext.Node
		for _, ch := range wikitext.Children(n) {
			if ch.Range().Contains(offset) {
				next = ch
				break
			}
		}
		if next == nil {
			return path
		}
		path = append(path, next)
		n = next
	}
}

func (d Doc) trace(pos document.Position) (int, []wikitext.Node) {
	offset := d.Snapshot.OffsetAt(pos)
	return offset, Trace(d.Root, offset)
}

func (d Doc) rangeOf(n wikitext.Node) document.Range {
	r := n.Range()
	return document.Range{
		Start: d.Snapshot.PositionAt(r.From),
		End:   d.Snapshot.PositionAt(r.To),
	}
}

// Looks up the record a template invocation refers to. Names with a namespace,
// such as {{Template:Foo}} or {{User:Foo}}, are also tried as full names.
func lookupTemplate(s Store, t *wikitext.Template) *store.PageRecord {
	name := t.NameText()
	if name == "" {
		return nil
	}
	if rec := s.LookupTransclusion(name); rec != nil || t.IsMagicWord {
		return rec
	}
	if strings.Contains(name, ":") {
		return s.LookupLink(name)
	}
	return nil
}

// Follows the redirect chain of rec. It returns rec itself when there is no
// redirect or the chain cannot be resolved.
func resolve(s Store, rec *store.PageRecord) *store.PageRecord {
	if target, err := s.ResolveRedirect(rec); err == nil && target != nil {
		return target
	}
	return rec
}

var mdEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`")

// Escapes text for use in Markdown. Empty text becomes an ellipsis.
func escapeMd(s string) string {
	if s == "" {
		return "…"
	}
	return mdEscaper.Replace(s)
}
