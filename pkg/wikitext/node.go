package wikitext

import "src.mwls.dev/pkg/diag"

// Node represents a node in the parse tree.
type Node interface {
	diag.Ranger
	// Kind returns the kind of the node.
	Kind() Kind
	parse(*parser)
	n() *node
}

// Kind identifies the concrete type of a Node.
type Kind int

// Possible values of Kind.
const (
	KindWikitext Kind = iota
	KindRun
	KindPlainText
	KindTemplate
	KindTemplateArgument
	KindArgumentReference
	KindWikiLink
	KindExternalLink
	KindFormatSwitch
	KindTag
	KindTagAttribute
	KindComment
	numKinds
)

var kindNames = [numKinds]string{
	"Wikitext", "Run", "PlainText", "Template", "TemplateArgument",
	"ArgumentReference", "WikiLink", "ExternalLink", "FormatSwitch", "Tag",
	"TagAttribute", "Comment",
}

func (k Kind) String() string {
	if 0 <= k && k < numKinds {
		return kindNames[k]
	}
	return "Kind(?)"
}

// node is embedded in every node type.
type node struct {
	diag.Ranging
	sourceText string
	parent     Node
	children   []Node
}

func (n *node) n() *node { return n }

func (n *node) addChild(ch Node) { n.children = append(n.children, ch) }

// Parent returns the parent of a node. It returns nil for the root.
func Parent(n Node) Node { return n.n().parent }

// SourceText returns the part of the source text that parses to the node.
func SourceText(n Node) string { return n.n().sourceText }

// Children returns all children of the node in the parse tree, in source
// order.
func Children(n Node) []Node { return n.n().children }

// Walk calls f on n and its descendants in depth-first order. Children of a
// node are skipped when f returns false for it.
func Walk(n Node, f func(Node) bool) {
	if !f(n) {
		return
	}
	for _, ch := range Children(n) {
		Walk(ch, f)
	}
}
