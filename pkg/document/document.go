// Package document implements immutable text snapshots of open documents.
//
// Positions follow the Language Server Protocol: lines are zero-based and
// separated by "\n", "\r\n" or "\r"; characters are zero-based UTF-16 code
// unit offsets within a line. Offsets are byte offsets into the text.
package document

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"
)

// ErrInvalidEdit is returned when a Change has a malformed range.
var ErrInvalidEdit = errors.New("invalid edit range")

// Position is a zero-based line and UTF-16 character offset.
type Position struct {
	Line      int
	Character int
}

func (p Position) before(q Position) bool {
	return p.Line < q.Line || (p.Line == q.Line && p.Character < q.Character)
}

// Range is a span between two positions. End is exclusive.
type Range struct {
	Start Position
	End   Position
}

// Change is one edit. A nil Range replaces the whole text.
type Change struct {
	Range *Range
	Text  string
}

// Validate checks that the range of c, if any, is well-formed. Positions past
// the end of a line or of the document are valid; they are clamped when the
// change is applied.
func (c Change) Validate() error {
	r := c.Range
	if r == nil {
		return nil
	}
	for _, p := range []Position{r.Start, r.End} {
		if p.Line < 0 || p.Character < 0 {
			return fmt.Errorf("%w: negative position %d:%d", ErrInvalidEdit, p.Line, p.Character)
		}
	}
	if r.End.before(r.Start) {
		return fmt.Errorf("%w: end %d:%d before start %d:%d", ErrInvalidEdit,
			r.End.Line, r.End.Character, r.Start.Line, r.Start.Character)
	}
	return nil
}

// Snapshot is an immutable version of a document.
type Snapshot struct {
	URI     string
	Version int
	Text    string
	// Byte offsets of the start of each line.
	lines []int
}

// New creates a Snapshot.
func New(uri string, version int, text string) *Snapshot {
	return &Snapshot{uri, version, text, lineStarts(text)}
}

func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		case '\n':
			starts = append(starts, i+1)
		}
	}
	return starts
}

// LineCount returns the number of lines. An empty text has one line.
func (s *Snapshot) LineCount() int { return len(s.lines) }

// Returns the byte range of line i without its terminator.
func (s *Snapshot) line(i int) (int, int) {
	start, end := s.lines[i], len(s.Text)
	if i+1 < len(s.lines) {
		end = s.lines[i+1]
	}
	for end > start && (s.Text[end-1] == '\n' || s.Text[end-1] == '\r') {
		end--
	}
	return start, end
}

// OffsetAt converts a position to a byte offset. Lines past the end clamp to
// the end of the text; characters past the end of a line clamp to the end of
// the line. A character in the middle of a surrogate pair maps to the start
// of the encoded rune.
func (s *Snapshot) OffsetAt(p Position) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(s.lines) {
		return len(s.Text)
	}
	start, end := s.line(p.Line)
	units := 0
	for i, r := range s.Text[start:end] {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > p.Character {
			return start + i
		}
		units += n
	}
	return end
}

// PositionAt converts a byte offset to a position. Offsets are clamped to the
// text; an offset inside a line terminator maps to the end of the line.
func (s *Snapshot) PositionAt(offset int) Position {
	offset = max(0, min(offset, len(s.Text)))
	line := sort.Search(len(s.lines), func(i int) bool { return s.lines[i] > offset }) - 1
	start, end := s.line(line)
	units := 0
	for _, r := range s.Text[start:min(offset, end)] {
		if n := utf16.RuneLen(r); n > 0 {
			units += n
		} else {
			units++
		}
	}
	return Position{line, units}
}

// Apply returns a new Snapshot with the changes applied in order, each one to
// the text produced by the previous one. The receiver is not modified.
func (s *Snapshot) Apply(version int, changes ...Change) (*Snapshot, error) {
	cur := s
	for _, c := range changes {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if c.Range == nil {
			cur = New(s.URI, version, c.Text)
			continue
		}
		from, to := cur.OffsetAt(c.Range.Start), cur.OffsetAt(c.Range.End)
		var sb strings.Builder
		sb.Grow(len(cur.Text) - (to - from) + len(c.Text))
		sb.WriteString(cur.Text[:from])
		sb.WriteString(c.Text)
		sb.WriteString(cur.Text[to:])
		cur = New(s.URI, version, sb.String())
	}
	if cur == s {
		cur = &Snapshot{s.URI, version, s.Text, s.lines}
	}
	return cur, nil
}
