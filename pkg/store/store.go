// Package store implements the knowledge store: an in-memory index of pages,
// templates and magic words keyed by name, with prefix search for completion.
//
// Page and template names are matched case-insensitively. Magic words loaded
// from seeds can be matched case-sensitively; they live in a separate index
// that is consulted before the case-insensitive one.
//
// A Store is safe for concurrent use. Records passed in are copied, and
// records returned must not be modified.
package store

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"src.mwls.dev/pkg/trie"
)

// Errors returned by Store methods.
var (
	// ErrPrecedence is returned when an inferred record would replace an
	// authoritative one.
	ErrPrecedence = errors.New("an authoritative record with the same name exists")
	// ErrRedirectLoop is returned when a redirect chain is longer than
	// MaxRedirectHops, which happens when it is cyclic.
	ErrRedirectLoop = errors.New("redirect chain too long")
)

// MaxRedirectHops is the maximal number of redirects ResolveRedirect follows.
const MaxRedirectHops = 16

// Index selects the names that a lookup or search applies to.
type Index int

// Possible values of Index.
const (
	// Full names of pages and templates, as used in wikilinks.
	Links Index = iota
	// Transclusion names of templates and magic words.
	Transclusions
)

func (i Index) String() string {
	switch i {
	case Links:
		return "links"
	case Transclusions:
		return "transclusions"
	default:
		return fmt.Sprintf("Index(%d)", int(i))
	}
}

type index struct {
	mu   sync.RWMutex
	trie *trie.Trie[rune, *PageRecord]
}

func (ix *index) get(name string) *PageRecord {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, _ := ix.trie.Get([]rune(name))
	return rec
}

// Store is the knowledge store.
type Store struct {
	links        *index
	transclusion *index
	// Case-sensitive magic words.
	magic *index

	cache completionCache
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		links:        &index{trie: trie.NewFunc[rune, *PageRecord](trie.CompareFold)},
		transclusion: &index{trie: trie.NewFunc[rune, *PageRecord](trie.CompareFold)},
		magic:        &index{trie: trie.New[rune, *PageRecord]()},
	}
}

type target struct {
	ix  *index
	key []rune
}

// Returns where a record is indexed. Pages and templates are indexed by both
// names; magic words only by their transclusion name.
func (s *Store) targets(rec *PageRecord) []target {
	if rec.Kind == MagicWord {
		ix := s.transclusion
		if rec.CaseSensitive {
			ix = s.magic
		}
		return []target{{ix, []rune(rec.TransclusionName)}}
	}
	return []target{
		{s.links, []rune(rec.FullName)},
		{s.transclusion, []rune(rec.TransclusionName)},
	}
}

// Upsert adds or replaces a record. An inferred record never replaces an
// authoritative one; it fails with ErrPrecedence instead. An inferred record
// replacing another inferred one keeps the arguments of both. Otherwise the
// last write wins.
func (s *Store) Upsert(rec *PageRecord) error {
	rec = clone(rec)
	targets := s.targets(rec)
	for _, t := range targets {
		if len(t.key) == 0 {
			return fmt.Errorf("upsert %v: %w", rec, trie.ErrEmptyKey)
		}
	}
	// Indices are always locked in the order returned by targets.
	for _, t := range targets {
		t.ix.mu.Lock()
		defer t.ix.mu.Unlock()
	}
	for _, t := range targets {
		old, ok := t.ix.trie.Get(t.key)
		if !ok {
			continue
		}
		if rec.IsInferred && !old.IsInferred {
			return fmt.Errorf("upsert %v: %w", rec, ErrPrecedence)
		}
		if rec.IsInferred {
			rec.Arguments = mergeArguments(old.Arguments, rec.Arguments)
			if rec.Summary == "" {
				rec.Summary = old.Summary
			}
		}
	}
	for _, t := range targets {
		t.ix.trie.Set(t.key, rec)
	}
	s.cache.invalidate()
	return nil
}

func clone(rec *PageRecord) *PageRecord {
	c := *rec
	c.Arguments = slices.Clone(rec.Arguments)
	c.Signatures = slices.Clone(rec.Signatures)
	return &c
}

// LookupLink finds a page or template by its full name. It returns nil if
// there is no such record.
func (s *Store) LookupLink(fullName string) *PageRecord {
	return s.links.get(fullName)
}

// LookupTransclusion finds a template or magic word by its transclusion name.
// Case-sensitive magic words take precedence. It returns nil if there is no
// such record.
func (s *Store) LookupTransclusion(name string) *PageRecord {
	if rec := s.magic.get(name); rec != nil {
		return rec
	}
	return s.transclusion.get(name)
}

// Lookup finds a record by name in the given index.
func (s *Store) Lookup(idx Index, name string) *PageRecord {
	if idx == Links {
		return s.LookupLink(name)
	}
	return s.LookupTransclusion(name)
}

// ResolveRedirect follows the redirect chain starting at rec. Each hop looks
// the target up by transclusion name if the current record is a magic word,
// and by full name otherwise. It returns the last record of the chain, which
// is the last one found if a target is missing, or nil if rec itself does
// not redirect. A chain longer than MaxRedirectHops fails with
// ErrRedirectLoop.
func (s *Store) ResolveRedirect(rec *PageRecord) (*PageRecord, error) {
	if rec.RedirectTarget == "" {
		return nil, nil
	}
	cur := rec
	for range MaxRedirectHops {
		idx := Links
		if cur.Kind == MagicWord {
			idx = Transclusions
		}
		next := s.Lookup(idx, cur.RedirectTarget)
		if next == nil {
			return cur, nil
		}
		cur = next
		if cur.RedirectTarget == "" {
			return cur, nil
		}
	}
	return nil, fmt.Errorf("resolve redirect of %v: %w", rec, ErrRedirectLoop)
}

// Records enumerates the records reachable through transclusion names,
// case-sensitive magic words first. Aliases yield their record once per name.
func (s *Store) Records() iter.Seq2[string, *PageRecord] {
	return func(yield func(string, *PageRecord) bool) {
		for _, ix := range []*index{s.magic, s.transclusion} {
			ix.mu.RLock()
			var entries []*PageRecord
			var keys []string
			for k, v := range ix.trie.All() {
				keys = append(keys, string(k))
				entries = append(entries, v)
			}
			ix.mu.RUnlock()
			for i, rec := range entries {
				if !yield(keys[i], rec) {
					return
				}
			}
		}
	}
}

// Dump returns every distinct record reachable through transclusion names.
func (s *Store) Dump() []*PageRecord {
	var recs []*PageRecord
	seen := make(map[*PageRecord]bool)
	for _, rec := range s.Records() {
		if !seen[rec] {
			seen[rec] = true
			recs = append(recs, rec)
		}
	}
	return recs
}

// Len returns the number of names in the given index.
func (s *Store) Len(idx Index) int {
	if idx == Links {
		s.links.mu.RLock()
		defer s.links.mu.RUnlock()
		return s.links.trie.Len()
	}
	n := 0
	for _, ix := range []*index{s.magic, s.transclusion} {
		ix.mu.RLock()
		n += ix.trie.Len()
		ix.mu.RUnlock()
	}
	return n
}
