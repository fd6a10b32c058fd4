package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.mwls.dev/pkg/document"
)

func TestSignatureHelp_EditedDocument(t *testing.T) {
	s := newStore(t)
	d := newDoc("{{foo|bar=1}}")

	got := d.SignatureHelp(s, pos(0, 8))
	want := &SignatureHelp{
		Signatures: []Signature{{
			Label:         "{{foo|bar=…}}",
			Documentation: "Foo template.",
			Parameters:    []Parameter{{"bar=…", "The bar.\n\nUsage: |bar=…"}},
		}},
		ActiveParameter: 0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("before edit (-want +got):\n%s", diff)
	}

	insert := document.Range{Start: pos(0, 11), End: pos(0, 11)}
	snap, err := d.Snapshot.Apply(2, document.Change{Range: &insert, Text: "|baz=2"})
	if err != nil {
		t.Fatal(err)
	}
	d = Doc{snap, newDoc(snap.Text).Root}

	got = d.SignatureHelp(s, pos(0, 13))
	want = &SignatureHelp{
		Signatures: []Signature{{
			Label:         "{{foo|bar=…|baz=…}}",
			Documentation: "Foo template.",
			Parameters: []Parameter{
				{"bar=…", "The bar.\n\nUsage: |bar=…"},
				{"baz=…", "Usage: |baz=…"},
			},
		}},
		ActiveParameter: 1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("after edit (-want +got):\n%s", diff)
	}
}

func TestSignatureHelp_MagicWord(t *testing.T) {
	s := newStore(t)
	d := newDoc("{{#switch:x|a=1|b}}")
	wantLabel := "{{#switch:<comparison string>|<case = result>|<default result>}}"
	for _, test := range []struct {
		pos  document.Position
		want int
	}{
		{pos(0, 10), 0},
		{pos(0, 13), 1},
		{pos(0, 16), 2},
		{pos(0, 4), -1},
	} {
		got := d.SignatureHelp(s, test.pos)
		if got == nil {
			t.Fatalf("SignatureHelp at %v = nil", test.pos)
		}
		if got.ActiveParameter != test.want {
			t.Errorf("active parameter at %v = %d, want %d", test.pos, got.ActiveParameter, test.want)
		}
		if label := got.Signatures[0].Label; label != wantLabel {
			t.Errorf("label = %q, want %q", label, wantLabel)
		}
	}
}

func TestSignatureHelp_Redirect(t *testing.T) {
	s := newStore(t)
	got := newDoc("{{Old|x}}").SignatureHelp(s, pos(0, 7))
	want := &SignatureHelp{
		Signatures: []Signature{{
			Label:         "{{New|<1>}}",
			Documentation: "Redirect: {{Old}} → {{New}}\n\nNew template.",
			Parameters:    []Parameter{{"<1>", "First.\n\nUsage: |<1>"}},
		}},
		ActiveParameter: 0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestSignatureHelp_NoResult(t *testing.T) {
	s := newStore(t)
	for _, text := range []string{"{{unknown|a=1}}", "plain text", "[[foo]]"} {
		if got := newDoc(text).SignatureHelp(s, pos(0, 3)); got != nil {
			t.Errorf("SignatureHelp in %q = %+v, want nil", text, got)
		}
	}
}
