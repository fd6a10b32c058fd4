package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.mwls.dev/pkg/document"
	"src.mwls.dev/pkg/store"
	"src.mwls.dev/pkg/wikitext"
)

func newDoc(text string) Doc {
	return Doc{document.New("file:///test.wiki", 1, text), wikitext.Parse(text)}
}

func pos(line, char int) document.Position { return document.Position{Line: line, Character: char} }

func rng(l1, c1, l2, c2 int) document.Range {
	return document.Range{Start: pos(l1, c1), End: pos(l2, c2)}
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New()
	err := s.LoadSeed([]store.SeedRecord{
		{Name: "#switch", Summary: "Switches.", Signatures: [][]store.ArgumentRecord{{
			{Name: "comparison string"}, {Name: "case = result"}, {Name: "default result"},
		}}},
		{Name: "#if"},
	})
	if err != nil {
		t.Fatal(err)
	}
	foo := store.NewTemplate("foo", []store.ArgumentRecord{{Name: "bar", Summary: "The bar."}})
	foo.Summary = "Foo template."
	s.Upsert(foo)
	newT := store.NewTemplate("New", []store.ArgumentRecord{{Name: "1", Summary: "First."}})
	newT.Summary = "New template."
	s.Upsert(newT)
	old := store.NewTemplate("Old", nil)
	old.RedirectTarget = "Template:New"
	s.Upsert(old)
	s.Upsert(store.NewPage("Main Page"))
	return s
}

var traceTests = []struct {
	text   string
	offset int
	want   []wikitext.Kind
}{
	{"{{foo|bar=1}}", 8, []wikitext.Kind{wikitext.KindWikitext, wikitext.KindTemplate,
		wikitext.KindTemplateArgument, wikitext.KindRun, wikitext.KindPlainText}},
	{"{{foo|bar=1}}", 0, []wikitext.Kind{wikitext.KindWikitext, wikitext.KindTemplate}},
	// The boundary between the name and the first argument belongs to the name.
	{"{{foo|bar=1}}", 5, []wikitext.Kind{wikitext.KindWikitext, wikitext.KindTemplate,
		wikitext.KindRun, wikitext.KindPlainText}},
	{"a {{x}}", 1, []wikitext.Kind{wikitext.KindWikitext, wikitext.KindPlainText}},
	{"", 0, []wikitext.Kind{wikitext.KindWikitext}},
}

func TestTrace(t *testing.T) {
	for _, test := range traceTests {
		var got []wikitext.Kind
		for _, n := range Trace(wikitext.Parse(test.text), test.offset) {
			got = append(got, n.Kind())
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Trace(%q, %d) (-want +got):\n%s", test.text, test.offset, diff)
		}
	}
}

func TestTrace_NestedRangesContainOffset(t *testing.T) {
	root := wikitext.Parse("{{a|{{b|[[c]]}}}}")
	path := Trace(root, 10)
	for _, n := range path {
		if !n.Range().Contains(10) {
			t.Errorf("%v %v does not contain offset", n.Kind(), n.Range())
		}
	}
	if last := path[len(path)-1]; last.Kind() != wikitext.KindPlainText || wikitext.SourceText(last) != "c" {
		t.Errorf("innermost node is %v %q, want the link target", last.Kind(), wikitext.SourceText(last))
	}
}

var hoverTests = []struct {
	name string
	text string
	pos  document.Position
	want *Hover
}{
	{"template name with summary", "{{foo|bar=1}}", pos(0, 3),
		&Hover{"{{**foo**}}\n\nFoo template.", rng(0, 0, 0, 13)}},
	{"argument subsumes template", "{{foo|bar=1}}", pos(0, 8),
		&Hover{"{{foo | **bar**=…}}", rng(0, 6, 0, 11)}},
	{"nested template in argument", "{{a|{{b}}}}", pos(0, 6),
		&Hover{"{{a | **1**=…}}\n\n{{**b**}}", rng(0, 4, 0, 9)}},
	{"redirect summary", "{{Old}}", pos(0, 3),
		&Hover{"{{**Old**}}\n\nNew template.", rng(0, 0, 0, 7)}},
	{"wikilink", "[[Main_Page|x]]", pos(0, 3),
		&Hover{"[[Main Page]]", rng(0, 0, 0, 15)}},
	{"external link", "[https://example.org x]", pos(0, 3),
		&Hover{"[https://example.org]", rng(0, 0, 0, 23)}},
	{"argument reference", "{{{1|d}}}", pos(0, 3),
		&Hover{"{{{**1**}}}", rng(0, 0, 0, 9)}},
	{"format switch", "''a''", pos(0, 1),
		&Hover{"''", rng(0, 0, 0, 2)}},
	{"tag", `<ref name="a">x</ref>`, pos(0, 14),
		&Hover{"&lt;**ref**&gt;", rng(0, 0, 0, 21)}},
	{"tag attribute subsumes tag", `<ref name="a">x</ref>`, pos(0, 7),
		&Hover{"&lt;ref **name**=… &gt;", rng(0, 5, 0, 13)}},
	{"comment", "<!-- x -->", pos(0, 5),
		&Hover{"&lt;!-- … --&gt;", rng(0, 0, 0, 10)}},
	{"markdown is escaped", "{{a_*b}}", pos(0, 3),
		&Hover{`{{**a \*b**}}`, rng(0, 0, 0, 8)}},
	{"second line", "x\n{{foo}}", pos(1, 3),
		&Hover{"{{**foo**}}\n\nFoo template.", rng(1, 0, 1, 7)}},
	{"plain text", "plain", pos(0, 2), nil},
}

func TestHover(t *testing.T) {
	s := newStore(t)
	for _, test := range hoverTests {
		t.Run(test.name, func(t *testing.T) {
			got := newDoc(test.text).Hover(s, test.pos)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Hover (-want +got):\n%s", diff)
			}
		})
	}
}
