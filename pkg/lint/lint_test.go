package lint

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.mwls.dev/pkg/diag"
	"src.mwls.dev/pkg/wikitext"
)

var lintTests = []struct {
	name string
	src  string
	want []string
}{
	{"italics closed by end of line", "''a\nb",
		[]string{"0-2 warning: Open tag is implicitly closed by end of line."}},
	{"balanced italics", "''a''", nil},
	{"bold left open after bold italics", "'''''x''",
		[]string{"0-5 warning: Open tag is implicitly closed by end of line."}},
	{"format switches are scoped to their container", "{{t|''a}}''b''",
		[]string{"4-6 warning: Open tag is implicitly closed by end of line."}},
	{"duplicate named argument", "{{foo|a=1|a=2}}",
		[]string{`10-13 warning: Duplicate template argument "a".`}},
	{"explicit positional duplicates unnamed", "{{t|x|1=y}}",
		[]string{`6-9 warning: Duplicate template argument "1".`}},
	{"unclosed template", "{{foo",
		[]string{"0-5 warning: Transclusion is not closed."}},
	{"empty transclusion target", "{{}}",
		[]string{"0-4 warning: Empty transclusion target."}},
	{"empty wikilink target", "[[ ]]",
		[]string{"0-5 warning: Empty wikilink target."}},
	{"unclosed tag", "<b>x",
		[]string{"0-3 warning: Open tag <b> is not closed."}},
	{"void tag", "a<br>b", nil},
	{"duplicate tag attribute", "<a x=1 X=2>y</a>",
		[]string{`7-10 warning: Duplicate tag attribute "X".`}},
	{"unclosed comment", "<!-- x",
		[]string{"0-4 warning: Comment is not closed."}},
	{"unclosed argument reference", "{{{1",
		[]string{"0-4 warning: Argument reference is not closed."}},
	{"magic link", "RFC 1234",
		[]string{`0-8 info: Hard-coded magic link "RFC 1234"; consider using a template or an external link instead.`}},
	{"ISBN magic link", "See ISBN 978-0-12-345678-9 here",
		[]string{`4-26 info: Hard-coded magic link "ISBN 978-0-12-345678-9"; consider using a template or an external link instead.`}},
	{"magic link in nowiki", "<nowiki>RFC 1234</nowiki>", nil},
	{"sorted by position", "[[ ]] {{foo|a|1=b",
		[]string{
			"0-5 warning: Empty wikilink target.",
			"6-11 warning: Transclusion is not closed.",
			`14-17 warning: Duplicate template argument "1".`,
		}},
}

func TestLint(t *testing.T) {
	for _, test := range lintTests {
		t.Run(test.name, func(t *testing.T) {
			var got []string
			for _, d := range Lint(wikitext.Parse(test.src)) {
				if d.Source != Source {
					t.Errorf("diagnostic source %q, want %q", d.Source, Source)
				}
				got = append(got, d.String())
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Lint(%q) (-want +got):\n%s", test.src, diff)
			}
		})
	}
}

func TestLint_Severities(t *testing.T) {
	ds := Lint(wikitext.Parse("PMID 42 {{foo"))
	sevs := make(map[diag.Severity]int)
	for _, d := range ds {
		sevs[d.Severity]++
	}
	if sevs[diag.Info] != 1 || sevs[diag.Warning] != 1 {
		t.Errorf("severities = %v, want one info and one warning", sevs)
	}
}
