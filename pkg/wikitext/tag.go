package wikitext

import "strings"

// Tags whose content is not parsed as wikitext.
var rawTags = map[string]bool{
	"nowiki": true, "pre": true, "math": true, "source": true,
	"syntaxhighlight": true, "templatedata": true, "score": true,
}

// Tags that never have content or a closing tag.
var voidTags = map[string]bool{"br": true, "hr": true, "wbr": true}

// Tag = '<' Name { TagAttribute } ( '/>' | '>' [ Content '</' Name '>' ] )
//
// When no closing tag follows, the tag ends after its opening tag and Closed
// is false.
type Tag struct {
	node
	Name        string
	Attributes  []*TagAttribute
	Content     *Run
	SelfClosing bool
	Closed      bool

	ok bool
}

func (*Tag) Kind() Kind { return KindTag }

func (tn *Tag) parse(ps *parser) {
	ps.pos += len("<")
	begin := ps.pos
	for ps.pos < len(ps.src) && isTagNameByte(ps.src[ps.pos]) {
		ps.pos++
	}
	tn.Name = ps.src[begin:ps.pos]
	for {
		ps.skipSpaces()
		switch {
		case ps.eof() || ps.hasPrefix("<"):
			return
		case ps.consume("/>"):
			tn.SelfClosing, tn.Closed, tn.ok = true, true, true
			return
		case ps.consume(">"):
			tn.ok = true
			tn.parseContent(ps)
			return
		}
		before := ps.pos
		parse(ps, &TagAttribute{}).addTo(&tn.Attributes, tn)
		if ps.pos == before {
			// A stray character such as a lone '/'.
			ps.next()
		}
	}
}

func (tn *Tag) parseContent(ps *parser) {
	name := strings.ToLower(tn.Name)
	if voidTags[name] {
		tn.Closed = true
		return
	}
	closing := "</" + name
	i := indexFold(ps.src[ps.pos:], closing)
	if i < 0 {
		return
	}
	if IsRawTag(name) {
		content := &Run{}
		content.From, content.To = ps.pos, ps.pos+i
		content.sourceText = ps.src[content.From:content.To]
		if i > 0 {
			t := &PlainText{Text: content.sourceText}
			t.Ranging, t.sourceText = content.Ranging, t.Text
			content.Inlines = []Node{t}
			addChild(content, t)
		}
		tn.Content = content
		addChild(tn, content)
		ps.pos = content.To
	} else {
		parse(ps, &Run{stop: func(ps *parser) bool { return ps.hasPrefixFold(closing) }}).
			addAs(&tn.Content, tn)
	}
	if ps.hasPrefixFold(closing) {
		ps.pos += len(closing)
		ps.skipSpaces()
		ps.consume(">")
		tn.Closed = true
	}
}

// TagAttribute = Name [ '=' Value ]
type TagAttribute struct {
	node
	Name  string
	Value string
}

func (*TagAttribute) Kind() Kind { return KindTagAttribute }

func (an *TagAttribute) parse(ps *parser) {
	begin := ps.pos
	for ps.pos < len(ps.src) {
		b := ps.src[ps.pos]
		if isSpace(b) || b == '=' || b == '>' || b == '/' || b == '<' {
			break
		}
		ps.pos++
	}
	an.Name = ps.src[begin:ps.pos]
	save := ps.pos
	ps.skipSpaces()
	if !ps.consume("=") {
		ps.pos = save
		return
	}
	ps.skipSpaces()
	if q := ps.peek(); q == '"' || q == '\'' {
		ps.pos++
		rest := ps.src[ps.pos:]
		if i := strings.IndexByte(rest, byte(q)); i >= 0 {
			an.Value = rest[:i]
			ps.pos += i + 1
		} else {
			an.Value = rest
			ps.pos = len(ps.src)
		}
		return
	}
	begin = ps.pos
	for ps.pos < len(ps.src) && !isSpace(ps.src[ps.pos]) && ps.src[ps.pos] != '>' && !ps.hasPrefix("/>") {
		ps.pos++
	}
	an.Value = ps.src[begin:ps.pos]
}

// Returns the index of the first occurrence of the ASCII string sub in s,
// ignoring case, or -1.
func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

// IsRawTag reports whether the content of tags with the given name is kept as
// plain text.
func IsRawTag(name string) bool { return rawTags[strings.ToLower(name)] }
