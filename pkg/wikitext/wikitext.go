// Package wikitext implements a parser for MediaWiki markup.
//
// The parser never fails. Constructs that are not closed are either closed
// implicitly at the end of the text (templates, argument references,
// comments) or not recognized at all (links, unmatched tags), in which case
// their text becomes plain text. Flags such as Template.Closed record when a
// closing delimiter was inferred.
//
// Every node records its byte range in the source. Children appear in source
// order and never overlap.
package wikitext

import (
	"strings"
)

// Config keeps configuration options when parsing.
type Config struct {
	// IsMagicWord reports whether a transclusion name refers to a magic word
	// or parser function. If nil, DefaultIsMagicWord is used.
	IsMagicWord func(name string, hasColon bool) bool
}

// Parse parses wikitext with the default configuration.
func Parse(text string) *Wikitext {
	return ParseWith(text, Config{})
}

// ParseWith parses wikitext with the given configuration.
func ParseWith(text string, cfg Config) *Wikitext {
	if cfg.IsMagicWord == nil {
		cfg.IsMagicWord = DefaultIsMagicWord
	}
	ps := &parser{src: text, cfg: cfg}
	return parse(ps, &Wikitext{}).n
}

// Wikitext is the root of a parse tree.
type Wikitext struct {
	node
	Inlines []Node
}

func (*Wikitext) Kind() Kind { return KindWikitext }

func (wn *Wikitext) parse(ps *parser) {
	parseInlines(ps, wn, &wn.Inlines, nil)
}

// Run is a sequence of inline nodes forming one part of an enclosing
// construct, such as the name of a template or the text of a link.
type Run struct {
	node
	Inlines []Node
	stop    stop
}

func (*Run) Kind() Kind { return KindRun }

func (rn *Run) parse(ps *parser) {
	parseInlines(ps, rn, &rn.Inlines, rn.stop)
}

// PlainText is text without markup.
type PlainText struct {
	node
	Text string
}

func (*PlainText) Kind() Kind { return KindPlainText }

// PlainText nodes are created directly by parseInlines.
func (*PlainText) parse(*parser) {}

// Template = '{{' Name { '|' TemplateArgument } '}}'
//
// For magic words, the text between a colon after the name and the first
// pipe is an unnamed argument: {{#if:cond|a|b}} has three arguments.
type Template struct {
	node
	Name        *Run
	Arguments   []*TemplateArgument
	IsMagicWord bool
	Closed      bool
}

func (*Template) Kind() Kind { return KindTemplate }

var templateNameEnd = stopAt("|", "}}")

func (tn *Template) parse(ps *parser) {
	ps.pos += len("{{")
	name, colon := ps.peekTemplateName()
	tn.IsMagicWord = ps.cfg.IsMagicWord(name, colon)
	if tn.IsMagicWord && colon {
		parse(ps, &Run{stop: stopAt(":", "|", "}}")}).addAs(&tn.Name, tn)
		if ps.consume(":") {
			parse(ps, &TemplateArgument{unnamed: true}).addTo(&tn.Arguments, tn)
		}
	} else {
		parse(ps, &Run{stop: templateNameEnd}).addAs(&tn.Name, tn)
	}
	for ps.consume("|") {
		parse(ps, &TemplateArgument{}).addTo(&tn.Arguments, tn)
	}
	tn.Closed = ps.consume("}}")
}

// Peeks the plain name of the template starting at the current position, and
// whether a colon directly follows it.
func (ps *parser) peekTemplateName() (string, bool) {
	rest := ps.src[ps.pos:]
	i := strings.IndexAny(rest, ":|}{[<\n")
	if i < 0 {
		return NormalizeTitle(rest), false
	}
	return NormalizeTitle(rest[:i]), rest[i] == ':'
}

// NameText returns the normalized name of the template.
func (tn *Template) NameText() string { return NormalizeTitle(SourceText(tn.Name)) }

// TemplateArgument = [ Name '=' ] Value
type TemplateArgument struct {
	node
	// Nil for unnamed arguments.
	Name  *Run
	Value *Run

	unnamed bool
}

func (*TemplateArgument) Kind() Kind { return KindTemplateArgument }

var argumentEnd = stopAt("|", "}}")

func (an *TemplateArgument) parse(ps *parser) {
	if an.unnamed {
		parse(ps, &Run{stop: argumentEnd}).addAs(&an.Value, an)
		return
	}
	first := parse(ps, &Run{stop: stopAt("|", "}}", "=")})
	if ps.consume("=") {
		first.addAs(&an.Name, an)
		parse(ps, &Run{stop: argumentEnd}).addAs(&an.Value, an)
	} else {
		first.addAs(&an.Value, an)
	}
}

// Template returns the template the argument belongs to.
func (an *TemplateArgument) Template() *Template {
	t, _ := Parent(an).(*Template)
	return t
}

// ArgumentReference = '{{{' Name [ '|' Default ] '}}}'
type ArgumentReference struct {
	node
	Name    *Run
	Default *Run
	Closed  bool
}

func (*ArgumentReference) Kind() Kind { return KindArgumentReference }

func (rn *ArgumentReference) parse(ps *parser) {
	ps.pos += len("{{{")
	parse(ps, &Run{stop: stopAt("|", "}}}")}).addAs(&rn.Name, rn)
	if ps.consume("|") {
		parse(ps, &Run{stop: stopAt("}}}")}).addAs(&rn.Default, rn)
	}
	rn.Closed = ps.consume("}}}")
}

// WikiLink = '[[' Target [ '|' Text ] ']]'
//
// A wikilink must be closed on the line it starts.
type WikiLink struct {
	node
	Target *Run
	Text   *Run

	ok bool
}

func (*WikiLink) Kind() Kind { return KindWikiLink }

func (ln *WikiLink) parse(ps *parser) {
	ps.pos += len("[[")
	parse(ps, &Run{stop: stopAt("|", "]]", "\n")}).addAs(&ln.Target, ln)
	if ps.consume("|") {
		parse(ps, &Run{stop: stopAt("]]", "\n")}).addAs(&ln.Text, ln)
	}
	ln.ok = ps.consume("]]")
}

// ExternalLink = '[' URL [ ' ' Text ] ']'
type ExternalLink struct {
	node
	Target *Run
	Text   *Run

	ok bool
}

func (*ExternalLink) Kind() Kind { return KindExternalLink }

func (ln *ExternalLink) parse(ps *parser) {
	ps.pos += len("[")
	parse(ps, &Run{stop: stopAt(" ", "\t", "]", "\n")}).addAs(&ln.Target, ln)
	for ps.hasPrefix(" ") || ps.hasPrefix("\t") {
		ps.pos++
	}
	if !ps.hasPrefix("]") && !ps.hasPrefix("\n") {
		parse(ps, &Run{stop: stopAt("]", "\n")}).addAs(&ln.Text, ln)
	}
	ln.ok = ps.consume("]")
}

// FormatSwitch toggles bold or italics: '' for italics, ''' for bold and
// ''''' for both.
type FormatSwitch struct {
	node
	Bold    bool
	Italics bool
}

func (*FormatSwitch) Kind() Kind { return KindFormatSwitch }

func (fs *FormatSwitch) parse(ps *parser) {
	n := ps.apostrophes()
	fs.Bold = n == 3 || n == 5
	fs.Italics = n == 2 || n == 5
	ps.pos += n
}

func (ps *parser) apostrophes() int {
	n := 0
	for ps.pos+n < len(ps.src) && ps.src[ps.pos+n] == '\'' {
		n++
	}
	return n
}

// Runs of 4 or more than 5 apostrophes start with literal apostrophes, which
// parseInlines consumes as text one at a time.
func (ps *parser) formatSwitch() Node {
	if n := ps.apostrophes(); n == 4 || n > 5 {
		return nil
	}
	return parse(ps, &FormatSwitch{}).n
}

// Comment = '<!--' ... '-->'
type Comment struct {
	node
	Content string
	Closed  bool
}

func (*Comment) Kind() Kind { return KindComment }

func (cn *Comment) parse(ps *parser) {
	ps.pos += len("<!--")
	rest := ps.src[ps.pos:]
	if i := strings.Index(rest, "-->"); i >= 0 {
		cn.Content = rest[:i]
		cn.Closed = true
		ps.pos += i + len("-->")
	} else {
		cn.Content = rest
		ps.pos = len(ps.src)
	}
}
