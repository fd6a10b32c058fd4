// Mwls is a language server for MediaWiki wikitext. It speaks the language
// server protocol on stdin and stdout, offering diagnostics, hover, signature
// help and completion for templates, magic words and links.
package main

import (
	"os"

	"src.mwls.dev/pkg/buildinfo"
	"src.mwls.dev/pkg/lsp"
	"src.mwls.dev/pkg/prog"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(buildinfo.Program, lsp.Program)))
}
