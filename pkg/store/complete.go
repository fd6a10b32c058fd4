package store

import (
	"regexp"
	"strconv"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"
)

// CompletionItem is one completion candidate.
type CompletionItem struct {
	// Label is the name of the record with the part of the prefix before
	// LastWordIndex removed.
	Label  string
	Kind   Kind
	Detail string
	Record *PageRecord
}

// Caches completion lists per index and prefix. Writes to the store
// invalidate the cache; lists are rebuilt on the next read.
type completionCache struct {
	mu      sync.Mutex
	gen     uint64
	entries map[cacheKey][]CompletionItem
	group   singleflight.Group
}

type cacheKey struct {
	idx    Index
	prefix string
}

const maxCacheEntries = 256

func (c *completionCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = nil
}

var lastWordPattern = regexp.MustCompile(`[\p{L}\p{N}\p{Mn}\p{Pc}]+$`)

// LastWordIndex returns the byte index where the trailing run of word
// characters in prefix starts, or len(prefix) if prefix does not end with a
// word character. Completion labels replace only this trailing run, so that
// typing "#swi" replaces "swi" and typing "Foo-ba" replaces "ba".
func LastWordIndex(prefix string) int {
	if loc := lastWordPattern.FindStringIndex(prefix); loc != nil {
		return loc[0]
	}
	return len(prefix)
}

// CompletionItems returns the records in the index whose name starts with
// prefix, in name order. The returned slice is shared and must not be
// modified.
func (s *Store) CompletionItems(prefix string, idx Index) []CompletionItem {
	key := cacheKey{idx, prefix}
	c := &s.cache
	c.mu.Lock()
	if items, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return items
	}
	gen := c.gen
	c.mu.Unlock()

	// Callers that missed the same entry in the same generation share one
	// rebuild.
	flight := strconv.FormatUint(gen, 10) + "/" + idx.String() + "/" + prefix
	v, _, _ := c.group.Do(flight, func() (any, error) {
		items := s.buildCompletionItems(prefix, idx)
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen == gen {
			if c.entries == nil || len(c.entries) >= maxCacheEntries {
				c.entries = make(map[cacheKey][]CompletionItem)
			}
			c.entries[key] = items
		}
		return items, nil
	})
	return v.([]CompletionItem)
}

func (s *Store) buildCompletionItems(prefix string, idx Index) []CompletionItem {
	drop := utf8.RuneCountInString(prefix[:LastWordIndex(prefix)])
	rs := []rune(prefix)
	indices := []*index{s.links}
	if idx == Transclusions {
		indices = []*index{s.magic, s.transclusion}
	}
	items := []CompletionItem{}
	for _, ix := range indices {
		ix.mu.RLock()
		for k, rec := range ix.trie.WithPrefix(rs) {
			items = append(items, CompletionItem{
				Label: string(k[drop:]), Kind: rec.Kind, Detail: rec.Summary, Record: rec})
		}
		ix.mu.RUnlock()
	}
	return items
}
