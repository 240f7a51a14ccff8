// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ast

import (
	"github.com/kraklabs/candy/pkg/id"
	"github.com/kraklabs/candy/pkg/report"
)

// Parser is the external frontend boundary. The core calls it through the
// query engine and treats it as a pure function of the resource text:
// identical text must yield an identical tree with identical node IDs.
//
// Syntax problems come back as SyntaxError diagnostics next to a
// best-effort (possibly empty) file; a nil file means nothing was
// recoverable.
type Parser interface {
	Parse(res id.ResourceID, text string) (*File, report.List)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(res id.ResourceID, text string) (*File, report.List)

// Parse implements Parser.
func (f ParserFunc) Parse(res id.ResourceID, text string) (*File, report.List) {
	return f(res, text)
}

// frontend is the process-wide parser, registered by the hosting
// frontend at init time (the same pattern database/sql drivers use).
var frontend Parser

// RegisterFrontend installs the external parser the CLI drives. Calling
// it twice replaces the previous frontend.
func RegisterFrontend(p Parser) { frontend = p }

// Frontend returns the registered parser, or nil when the build carries
// no frontend.
func Frontend() Parser { return frontend }
