package lsp

import (
	lsp "github.com/sourcegraph/go-lsp"
	"src.mwls.dev/pkg/diag"
	"src.mwls.dev/pkg/document"
	"src.mwls.dev/pkg/query"
)

func toPosition(p lsp.Position) document.Position {
	return document.Position{Line: p.Line, Character: p.Character}
}

func fromPosition(p document.Position) lsp.Position {
	return lsp.Position{Line: p.Line, Character: p.Character}
}

func fromRange(r document.Range) lsp.Range {
	return lsp.Range{Start: fromPosition(r.Start), End: fromPosition(r.End)}
}

func toChange(c lsp.TextDocumentContentChangeEvent) document.Change {
	if c.Range == nil {
		return document.Change{Text: c.Text}
	}
	return document.Change{
		Range: &document.Range{Start: toPosition(c.Range.Start), End: toPosition(c.Range.End)},
		Text:  c.Text,
	}
}

// Diagnostics carry byte ranges; snap maps them to positions. A nil snap is
// only allowed with no diagnostics.
func fromDiagnostics(snap *document.Snapshot, ds []diag.Diagnostic) []lsp.Diagnostic {
	lds := make([]lsp.Diagnostic, len(ds))
	for i, d := range ds {
		lds[i] = lsp.Diagnostic{
			Range: lsp.Range{
				Start: fromPosition(snap.PositionAt(d.From)),
				End:   fromPosition(snap.PositionAt(d.To)),
			},
			Severity: lsp.DiagnosticSeverity(d.Severity),
			Source:   d.Source,
			Message:  d.Message,
		}
	}
	return lds
}

func fromHover(h *query.Hover) *lsp.Hover {
	r := fromRange(h.Range)
	return &lsp.Hover{Contents: []lsp.MarkedString{lsp.RawMarkedString(h.Contents)}, Range: &r}
}

func fromSignatureHelp(h *query.SignatureHelp) *lsp.SignatureHelp {
	sigs := make([]lsp.SignatureInformation, len(h.Signatures))
	for i, sig := range h.Signatures {
		params := make([]lsp.ParameterInformation, len(sig.Parameters))
		for j, p := range sig.Parameters {
			params[j] = lsp.ParameterInformation{Label: p.Label, Documentation: p.Documentation}
		}
		sigs[i] = lsp.SignatureInformation{
			Label: sig.Label, Documentation: sig.Documentation, Parameters: params}
	}
	return &lsp.SignatureHelp{
		Signatures:      sigs,
		ActiveSignature: h.ActiveSignature,
		ActiveParameter: h.ActiveParameter,
	}
}

var completionKinds = map[query.ItemKind]lsp.CompletionItemKind{
	query.PageItem:      lsp.CIKUnit,
	query.MagicWordItem: lsp.CIKKeyword,
	query.TemplateItem:  lsp.CIKFunction,
	query.ArgumentItem:  lsp.CIKProperty,
}

func fromCompletionList(l *query.CompletionList) *lsp.CompletionList {
	items := make([]lsp.CompletionItem, len(l.Items))
	for i, item := range l.Items {
		items[i] = lsp.CompletionItem{
			Label:  item.Label,
			Kind:   completionKinds[item.Kind],
			Detail: item.Detail,
			TextEdit: &lsp.TextEdit{
				Range:   fromRange(item.Range),
				NewText: item.InsertText,
			},
		}
	}
	return &lsp.CompletionList{IsIncomplete: l.IsIncomplete, Items: items}
}
