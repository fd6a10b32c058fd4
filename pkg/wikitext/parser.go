package wikitext

import (
	"strings"
	"unicode/utf8"
)

// parser maintains the mutable state of parsing.
type parser struct {
	src string
	pos int
	cfg Config
}

func parse[N Node](ps *parser, n N) parsed[N] {
	begin := ps.pos
	n.n().From = begin
	n.parse(ps)
	n.n().To = ps.pos
	n.n().sourceText = ps.src[begin:ps.pos]
	return parsed[N]{n}
}

type parsed[N Node] struct {
	n N
}

func (p parsed[N]) addAs(ptr *N, parent Node) {
	*ptr = p.n
	addChild(parent, p.n)
}

func (p parsed[N]) addTo(ptr *[]N, parent Node) {
	*ptr = append(*ptr, p.n)
	addChild(parent, p.n)
}

func addChild(p Node, ch Node) {
	p.n().addChild(ch)
	ch.n().parent = p
}

const eof rune = -1

func (ps *parser) eof() bool { return ps.pos >= len(ps.src) }

func (ps *parser) peek() rune {
	if ps.pos >= len(ps.src) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(ps.src[ps.pos:])
	return r
}

func (ps *parser) next() rune {
	if ps.pos >= len(ps.src) {
		return eof
	}
	r, s := utf8.DecodeRuneInString(ps.src[ps.pos:])
	ps.pos += s
	return r
}

func (ps *parser) hasPrefix(prefix string) bool {
	return strings.HasPrefix(ps.src[ps.pos:], prefix)
}

func (ps *parser) hasPrefixFold(prefix string) bool {
	rest := ps.src[ps.pos:]
	return len(rest) >= len(prefix) && strings.EqualFold(rest[:len(prefix)], prefix)
}

// Consumes prefix if the source continues with it.
func (ps *parser) consume(prefix string) bool {
	if ps.hasPrefix(prefix) {
		ps.pos += len(prefix)
		return true
	}
	return false
}

func (ps *parser) skipSpaces() {
	for ps.pos < len(ps.src) && isSpace(ps.src[ps.pos]) {
		ps.pos++
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == '\f'
}

// A stop reports whether the enclosing construct ends at the current position.
type stop func(ps *parser) bool

func stopAt(delims ...string) stop {
	return func(ps *parser) bool {
		for _, d := range delims {
			if ps.hasPrefix(d) {
				return true
			}
		}
		return false
	}
}

// Parses inline nodes into dst until stop fires or the source ends. Adjacent
// text that does not start any construct is merged into PlainText nodes.
func parseInlines(ps *parser, parent Node, dst *[]Node, stop stop) {
	textFrom := -1
	flush := func() {
		if textFrom >= 0 {
			t := &PlainText{Text: ps.src[textFrom:ps.pos]}
			t.From, t.To, t.sourceText = textFrom, ps.pos, t.Text
			*dst = append(*dst, t)
			addChild(parent, t)
			textFrom = -1
		}
	}
	for !ps.eof() && (stop == nil || !stop(ps)) {
		begin := ps.pos
		if n := ps.inline(); n != nil {
			ps.pos = begin
			flush()
			ps.pos = n.Range().To
			*dst = append(*dst, n)
			addChild(parent, n)
			continue
		}
		if textFrom < 0 {
			textFrom = ps.pos
		}
		ps.next()
	}
	flush()
}

// Tries to parse one inline construct at the current position. It returns nil
// and leaves the position unchanged if no construct starts here.
func (ps *parser) inline() Node {
	begin := ps.pos
	var n Node
	switch {
	case ps.hasPrefix("<!--"):
		n = parse(ps, &Comment{}).n
	case ps.hasPrefix("{{{"):
		n = parse(ps, &ArgumentReference{}).n
	case ps.hasPrefix("{{"):
		n = parse(ps, &Template{}).n
	case ps.hasPrefix("[["):
		if l := parse(ps, &WikiLink{}).n; l.ok {
			n = l
		}
	case ps.hasPrefix("[") && hasURLScheme(ps.src[ps.pos+1:]):
		if l := parse(ps, &ExternalLink{}).n; l.ok {
			n = l
		}
	case ps.hasPrefix("''"):
		n = ps.formatSwitch()
	case ps.hasPrefix("<") && startsTagName(ps.src[ps.pos+1:]):
		if t := parse(ps, &Tag{}).n; t.ok {
			n = t
		}
	}
	if n == nil {
		ps.pos = begin
		return nil
	}
	return n
}

var urlSchemes = []string{"http://", "https://", "ftp://", "ftps://", "mailto:", "//"}

func hasURLScheme(s string) bool {
	for _, scheme := range urlSchemes {
		if len(s) >= len(scheme) && strings.EqualFold(s[:len(scheme)], scheme) {
			return true
		}
	}
	return false
}

func startsTagName(s string) bool {
	return s != "" && isASCIILetter(s[0])
}

func isASCIILetter(b byte) bool {
	return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func isTagNameByte(b byte) bool {
	return isASCIILetter(b) || ('0' <= b && b <= '9')
}
