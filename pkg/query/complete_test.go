package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.mwls.dev/pkg/document"
)

var completeTests = []struct {
	name string
	text string
	pos  document.Position
	// nil means no completion list.
	want []CompletionItem
}{
	{"parser function", "{{#swi", pos(0, 6), []CompletionItem{
		{Label: "switch", Kind: MagicWordItem, Detail: "Switches.", InsertText: "switch", Range: rng(0, 3, 0, 6)},
	}},
	{"template", "{{fo", pos(0, 4), []CompletionItem{
		{Label: "foo", Kind: TemplateItem, Detail: "Foo template.", InsertText: "foo", Range: rng(0, 2, 0, 4)},
	}},
	{"mid-token", "{{fo}}", pos(0, 3), []CompletionItem{
		{Label: "foo", Kind: TemplateItem, Detail: "Foo template.", InsertText: "foo", Range: rng(0, 2, 0, 3)},
	}},
	{"leading space", "{{ fo", pos(0, 5), []CompletionItem{
		{Label: "foo", Kind: TemplateItem, Detail: "Foo template.", InsertText: "foo", Range: rng(0, 3, 0, 5)},
	}},
	{"link target with namespace", "[[Template:fo]]", pos(0, 13), []CompletionItem{
		{Label: "foo", Kind: TemplateItem, Detail: "Foo template.", InsertText: "foo", Range: rng(0, 11, 0, 13)},
	}},
	{"link target page", "[[mai]]", pos(0, 5), []CompletionItem{
		{Label: "Main Page", Kind: PageItem, InsertText: "Main Page", Range: rng(0, 2, 0, 5)},
	}},
	{"unnamed argument", "{{foo|b}}", pos(0, 7), []CompletionItem{
		{Label: "bar", Kind: ArgumentItem, Detail: "The bar.", InsertText: "bar=", Range: rng(0, 6, 0, 7)},
	}},
	{"argument name", "{{foo|b=1}}", pos(0, 7), []CompletionItem{
		{Label: "bar", Kind: ArgumentItem, Detail: "The bar.", InsertText: "bar", Range: rng(0, 6, 0, 7)},
	}},
	{"used argument", "{{foo|bar=1|b}}", pos(0, 13), []CompletionItem{}},
	{"unknown template argument", "{{nope|b}}", pos(0, 8), []CompletionItem{}},
	{"no match", "{{zz", pos(0, 4), []CompletionItem{}},
	{"argument value", "{{foo|bar=x}}", pos(0, 11), nil},
	{"plain text", "hello", pos(0, 3), nil},
	{"wikilink text", "[[a|b]]", pos(0, 5), nil},
}

func TestComplete(t *testing.T) {
	s := newStore(t)
	for _, test := range completeTests {
		t.Run(test.name, func(t *testing.T) {
			got := newDoc(test.text).Complete(s, test.pos)
			if test.want == nil {
				if got != nil {
					t.Errorf("got %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("got nil, want a list")
			}
			if !got.IsIncomplete {
				t.Errorf("list is complete")
			}
			if diff := cmp.Diff(test.want, got.Items); diff != "" {
				t.Errorf("items (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComplete_EmptyTemplateName(t *testing.T) {
	s := newStore(t)
	got := newDoc("{{").Complete(s, pos(0, 2))
	var labels []string
	for _, item := range got.Items {
		labels = append(labels, item.Label)
	}
	want := []string{"#if", "#switch", ":Main Page", "foo", "New", "Old"}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
}
