package store

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var lastWordIndexTests = []struct {
	prefix string
	want   int
}{
	{"", 0},
	{"#swi", 1},
	{"Foo-ba", 4},
	{"Foo ", 4},
	{"abc", 0},
	{"a_b", 0},
	{"x:été", 2},
	{"Foo/", 4},
}

func TestLastWordIndex(t *testing.T) {
	for _, test := range lastWordIndexTests {
		if got := LastWordIndex(test.prefix); got != test.want {
			t.Errorf("LastWordIndex(%q) = %d, want %d", test.prefix, got, test.want)
		}
	}
}

func labels(items []CompletionItem) []string {
	ls := []string{}
	for _, item := range items {
		ls = append(ls, item.Label)
	}
	return ls
}

func newCompletionStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	err := s.LoadSeed([]SeedRecord{
		{Name: "#switch", Summary: "Switches."},
		{Name: "#if"},
		{Name: "#ifeq"},
		{Name: "PAGENAME", IsCaseSensitive: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	s.Upsert(NewTemplate("Foo-bar", nil))
	s.Upsert(NewTemplate("Foo-baz", nil))
	s.Upsert(NewPage("Paris"))
	return s
}

func TestCompletionItems(t *testing.T) {
	s := newCompletionStore(t)
	tests := []struct {
		name   string
		prefix string
		idx    Index
		want   []string
	}{
		{"last word only", "#swi", Transclusions, []string{"switch"}},
		{"shared prefix", "#if", Transclusions, []string{"if", "ifeq"}},
		{"after punctuation", "foo-ba", Transclusions, []string{"bar", "baz"}},
		{"case-sensitive magic first", "P", Transclusions, []string{"PAGENAME"}},
		{"case-sensitive miss", "pagen", Transclusions, []string{}},
		{"links", "template:foo", Links, []string{"Foo-bar", "Foo-baz"}},
		{"links exclude magic words", "#", Links, []string{}},
		{"page", "par", Links, []string{"Paris"}},
		{"no match", "zzz", Transclusions, []string{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := labels(s.CompletionItems(test.prefix, test.idx))
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("CompletionItems(%q, %v) (-want +got):\n%s",
					test.prefix, test.idx, diff)
			}
		})
	}
}

func TestCompletionItems_Fields(t *testing.T) {
	s := newCompletionStore(t)
	items := s.CompletionItems("#sw", Transclusions)
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	item := items[0]
	if item.Kind != MagicWord || item.Detail != "Switches." || item.Record.TransclusionName != "#switch" {
		t.Errorf("got item %+v", item)
	}
}

func TestCompletionItems_CacheInvalidatedByWrites(t *testing.T) {
	s := newCompletionStore(t)
	before := s.CompletionItems("foo", Transclusions)
	if got := s.CompletionItems("foo", Transclusions); &got[0] != &before[0] {
		t.Errorf("second read did not hit the cache")
	}
	s.Upsert(NewTemplate("Foo-qux", nil))
	got := labels(s.CompletionItems("foo", Transclusions))
	want := []string{"Foo-bar", "Foo-baz", "Foo-qux"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("after write (-want +got):\n%s", diff)
	}
}

func TestCompletionItems_CacheIsBounded(t *testing.T) {
	s := newCompletionStore(t)
	for i := range maxCacheEntries + 10 {
		s.CompletionItems(string(rune('a'+i%26))+string(rune('a'+i/26)), Links)
	}
	s.cache.mu.Lock()
	n := len(s.cache.entries)
	s.cache.mu.Unlock()
	if n > maxCacheEntries {
		t.Errorf("cache has %d entries, want at most %d", n, maxCacheEntries)
	}
}

func TestCompletionItems_Concurrent(t *testing.T) {
	s := newCompletionStore(t)
	var wg sync.WaitGroup
	results := make([][]CompletionItem, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.CompletionItems("#", Transclusions)
		}()
	}
	wg.Wait()
	for i, items := range results {
		if diff := cmp.Diff([]string{"if", "ifeq", "switch"}, labels(items)); diff != "" {
			t.Errorf("result %d (-want +got):\n%s", i, diff)
		}
	}
}
