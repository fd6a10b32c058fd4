package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "src.mwls.dev/pkg/store"
	"src.mwls.dev/pkg/trie"
)

func TestBuiltinSeed(t *testing.T) {
	records, err := BuiltinSeed()
	if err != nil {
		t.Fatal(err)
	}
	s := New()
	if err := s.LoadSeed(records); err != nil {
		t.Fatalf("LoadSeed(builtin) = %v", err)
	}
	for _, name := range []string{"#if", "#IFEQ", "#switch", "lc", "DEFAULTSORTKEY", "PAGENAME"} {
		if s.LookupTransclusion(name) == nil {
			t.Errorf("built-in %q not found", name)
		}
	}
	rec := s.LookupTransclusion("#if")
	if rec.Kind != MagicWord || len(rec.Arguments) != 3 {
		t.Errorf("#if = %+v, want a magic word with 3 arguments", rec)
	}
	if s.LookupTransclusion("pagename") != nil {
		t.Errorf("PAGENAME matched case-insensitively")
	}
}

func TestLoadSeed_Duplicates(t *testing.T) {
	s := New()
	err := s.LoadSeed([]SeedRecord{
		{Name: "#a", Aliases: []string{"#b"}},
		{Name: "#A"},
		{Name: "#c", Aliases: []string{"#b"}},
		{Name: "X", IsCaseSensitive: true},
		{Name: "x", IsCaseSensitive: true},
	})
	if !errors.Is(err, trie.ErrDuplicateKey) {
		t.Fatalf("got error %v, want ErrDuplicateKey", err)
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) || len(joined.Unwrap()) != 2 {
		t.Errorf("got error %v, want 2 joined errors", err)
	}
	if rec := s.LookupTransclusion("#b"); rec == nil || rec.TransclusionName != "#a" {
		t.Errorf("#b = %v, want the first record", rec)
	}
	if s.LookupTransclusion("#c") == nil || s.LookupTransclusion("x") == nil {
		t.Errorf("records after a duplicate were not loaded")
	}
}

func TestLoadSeed_Record(t *testing.T) {
	s := New()
	s.LoadSeed([]SeedRecord{{
		Name:    "#tag",
		Summary: "Generates a tag.",
		Signatures: [][]ArgumentRecord{
			{{Name: "tagname"}, {Name: "content"}},
			{{Name: "tagname"}},
		},
	}})
	want := &PageRecord{
		FullName:         "#tag",
		TransclusionName: "#tag",
		Summary:          "Generates a tag.",
		Arguments:        []ArgumentRecord{{Name: "tagname"}, {Name: "content"}},
		Signatures: [][]ArgumentRecord{
			{{Name: "tagname"}, {Name: "content"}},
			{{Name: "tagname"}},
		},
		Kind: MagicWord,
	}
	if diff := cmp.Diff(want, s.LookupTransclusion("#tag")); diff != "" {
		t.Errorf("record (-want +got):\n%s", diff)
	}
}

func TestParseSeed(t *testing.T) {
	yamlSeed := `
- name: "#if"
  summary: Tests.
  signatures:
    - - name: test string
- name: DISPLAYTITLE
  isCaseSensitive: true
`
	jsonSeed := `[{"name": "#if", "summary": "Tests.", "signatures": [[{"name": "test string"}]]},
{"name": "DISPLAYTITLE", "isCaseSensitive": true}]`
	want := []SeedRecord{
		{Name: "#if", Summary: "Tests.", Signatures: [][]ArgumentRecord{{{Name: "test string"}}}},
		{Name: "DISPLAYTITLE", IsCaseSensitive: true},
	}
	for _, src := range []string{yamlSeed, jsonSeed} {
		got, err := ParseSeed([]byte(src))
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ParseSeed (-want +got):\n%s", diff)
		}
	}
	if _, err := ParseSeed([]byte("name: [")); err == nil {
		t.Errorf("ParseSeed of bad YAML returned nil error")
	}
}

func TestSeedDB_RoundTrip(t *testing.T) {
	records := []SeedRecord{
		{Name: "#switch", Summary: "Switches.",
			Signatures: [][]ArgumentRecord{{{Name: "comparison string"}}}},
		{Name: "DEFAULTSORT", Aliases: []string{"DEFAULTSORTKEY"}, IsCaseSensitive: true},
		{Name: "#alias", RedirectTarget: "#switch"},
	}
	path := filepath.Join(t.TempDir(), "seed.db")
	if err := WriteSeedDB(path, records); err != nil {
		t.Fatal(err)
	}
	// Writing again replaces the records instead of appending.
	if err := WriteSeedDB(path, records); err != nil {
		t.Fatal(err)
	}
	got, err := ReadSeedFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(records, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestWriteSeedDB_EmptyName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.db")
	err := WriteSeedDB(path, []SeedRecord{{Summary: "nameless"}})
	if !errors.Is(err, trie.ErrEmptyKey) {
		t.Errorf("got error %v, want ErrEmptyKey", err)
	}
}

func TestReadSeedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	os.WriteFile(path, []byte("- name: '#expr'\n"), 0644)
	got, err := ReadSeedFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]SeedRecord{{Name: "#expr"}}, got); diff != "" {
		t.Errorf("ReadSeedFile (-want +got):\n%s", diff)
	}

	if _, err := ReadSeedFile(filepath.Join(dir, "missing.db")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("reading a missing database returned %v, want ErrNotExist", err)
	}
}
