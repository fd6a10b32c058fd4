package query

import (
	"slices"
	"strings"

	"src.mwls.dev/pkg/document"
	"src.mwls.dev/pkg/store"
	"src.mwls.dev/pkg/wikitext"
)

// SignatureHelp is the result of a signature help query.
type SignatureHelp struct {
	Signatures      []Signature
	ActiveSignature int
	// -1 when no parameter is active.
	ActiveParameter int
}

// Signature describes one way to invoke a template or magic word.
type Signature struct {
	Label         string
	Documentation string
	Parameters    []Parameter
}

// Parameter describes one parameter of a Signature. Its label is a substring
// of the signature label.
type Parameter struct {
	Label         string
	Documentation string
}

// SignatureHelp describes the innermost template or magic word invocation
// enclosing pos. It returns nil if there is none or its name is unknown.
//
// For templates, arguments used in the invocation but not declared by the
// record are listed after the declared ones.
func (d Doc) SignatureHelp(s Store, pos document.Position) *SignatureHelp {
	_, path := d.trace(pos)
	var t *wikitext.Template
	var arg *wikitext.TemplateArgument
	for i := len(path) - 1; i >= 0 && t == nil; i-- {
		switch n := path[i].(type) {
		case *wikitext.Template:
			t = n
		case *wikitext.TemplateArgument:
			if arg == nil {
				arg = n
			}
		}
	}
	if t == nil {
		return nil
	}
	rec := lookupTemplate(s, t)
	if rec == nil {
		return nil
	}
	target := resolve(s, rec)

	var doc []string
	if target != rec {
		doc = append(doc, "Redirect: {{"+rec.TransclusionName+"}} → {{"+target.TransclusionName+"}}")
	}
	if target.Summary != "" {
		doc = append(doc, target.Summary)
	}
	if target.Remarks != "" {
		doc = append(doc, target.Remarks)
	}
	magic := target.Kind == store.MagicWord

	argLists := target.Signatures
	if len(argLists) == 0 {
		argLists = [][]store.ArgumentRecord{target.Arguments}
	}
	help := &SignatureHelp{ActiveParameter: -1}
	for _, args := range argLists {
		if !magic {
			args = withUsedArguments(args, t)
		}
		sig := buildSignature(target.TransclusionName, magic, args)
		sig.Documentation = strings.Join(doc, "\n\n")
		help.Signatures = append(help.Signatures, sig)
	}

	if arg == nil {
		return help
	}
	if magic {
		idx := wikitext.ArgumentIndex(arg)
		help.ActiveParameter = idx
		for i, sig := range help.Signatures {
			if idx < len(sig.Parameters) {
				help.ActiveSignature = i
				break
			}
		}
		return help
	}
	name := wikitext.ArgumentName(arg)
	for i, args := range argLists {
		args = withUsedArguments(args, t)
		if j := slices.IndexFunc(args, func(a store.ArgumentRecord) bool { return a.Name == name }); j >= 0 {
			help.ActiveSignature, help.ActiveParameter = i, j
			break
		}
	}
	return help
}

// Returns declared followed by the arguments used in t that it lacks, the
// latter in wikitext.CompareArgumentNames order.
func withUsedArguments(declared []store.ArgumentRecord, t *wikitext.Template) []store.ArgumentRecord {
	var extra []store.ArgumentRecord
	for _, a := range t.Arguments {
		name := wikitext.ArgumentName(a)
		has := func(r store.ArgumentRecord) bool { return r.Name == name }
		if name == "" || slices.ContainsFunc(declared, has) || slices.ContainsFunc(extra, has) {
			continue
		}
		extra = append(extra, store.ArgumentRecord{Name: name})
	}
	if len(extra) == 0 {
		return declared
	}
	store.SortArguments(extra)
	return append(slices.Clip(declared), extra...)
}

// Renders {{Name|<1>|name=…}} for templates and {{#name:<a>|<b>}} for magic
// words.
func buildSignature(name string, magic bool, args []store.ArgumentRecord) Signature {
	var sb strings.Builder
	sb.WriteString("{{" + name)
	params := make([]Parameter, len(args))
	for i, a := range args {
		var label, usage string
		if magic || a.Positional() {
			label = "<" + a.Name + ">"
			usage = "|<" + a.Name + ">"
		} else {
			label = a.Name + "=…"
			usage = "|" + a.Name + "=…"
		}
		switch {
		case !magic:
			sb.WriteString("|")
		case i == 0:
			sb.WriteString(":")
		default:
			sb.WriteString("|")
		}
		sb.WriteString(label)
		doc := "Usage: " + usage
		if a.Summary != "" {
			doc = a.Summary + "\n\n" + doc
		}
		params[i] = Parameter{Label: label, Documentation: doc}
	}
	sb.WriteString("}}")
	return Signature{Label: sb.String(), Parameters: params}
}
