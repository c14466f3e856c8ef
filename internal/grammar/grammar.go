// Package grammar converts embedded grammar notation into rendered production
// markup. It is invoked by the grammar builder and is opaque to the core: a
// pure (content, options, ctx) -> markup function.
//
// The notation is line oriented. Each non-blank line is one production:
//
//	Name : Symbol "literal" Optional?
//	List : Item | List "," Item
//
// Identifiers are non-terminals, double-quoted strings are terminals, a
// trailing ? marks an optional symbol, and | separates alternatives.
package grammar

import (
	"context"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/specmark/specmark/core/errors"
)

// Options controls conversion.
type Options struct {
	// Definition marks the block as defining its productions rather than
	// restating them.
	Definition bool
}

type productionLine struct {
	Name string         `parser:"@Ident ':'"`
	Alts []*alternative `parser:"@@ ( '|' @@ )*"`
}

type alternative struct {
	Symbols []*symbol `parser:"@@+"`
}

type symbol struct {
	Terminal    string `parser:"( @String"`
	NonTerminal string `parser:"| @Ident )"`
	Optional    bool   `parser:"@'?'?"`
}

// notationLexer tokenizes one production line.
var notationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Ident", Pattern: `[A-Za-z][A-Za-z0-9]*`},
	{Name: "Punct", Pattern: `[:|?]`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

var lineParser = participle.MustBuild[productionLine](
	participle.Lexer(notationLexer),
	participle.Elide("Whitespace"),
)

// Convert renders notation to production markup and returns the names of the
// productions it defines, in order. Conversion is all or nothing: a line the
// parser cannot make sense of fails the whole block, and the caller keeps
// the raw text rendering as the fallback.
func Convert(ctx context.Context, content string, opts Options) (string, []string, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, errors.ErrCancelled
	}

	var sb strings.Builder
	var names []string
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		prod, err := lineParser.ParseString("", line)
		if err != nil {
			return "", nil, errors.Errorf("grammar notation line %d: %w", i+1, err)
		}
		renderProduction(&sb, prod, opts)
		names = append(names, prod.Name)
	}
	return sb.String(), names, nil
}

func renderProduction(sb *strings.Builder, p *productionLine, opts Options) {
	sb.WriteString(`<production name="`)
	sb.WriteString(escape(p.Name))
	sb.WriteString(`"`)
	if opts.Definition {
		sb.WriteString(` type="definition"`)
	}
	sb.WriteString(`><nt>`)
	sb.WriteString(escape(p.Name))
	sb.WriteString(`</nt><geq>:</geq>`)
	for _, alt := range p.Alts {
		sb.WriteString(`<rhs>`)
		for _, s := range alt.Symbols {
			renderSymbol(sb, s)
		}
		sb.WriteString(`</rhs>`)
	}
	sb.WriteString(`</production>`)
}

func renderSymbol(sb *strings.Builder, s *symbol) {
	if s.Optional {
		sb.WriteString(`<opt>`)
	}
	if s.Terminal != "" {
		sb.WriteString(`<t>`)
		sb.WriteString(escape(strings.Trim(s.Terminal, `"`)))
		sb.WriteString(`</t>`)
	} else {
		sb.WriteString(`<nt>`)
		sb.WriteString(escape(s.NonTerminal))
		sb.WriteString(`</nt>`)
	}
	if s.Optional {
		sb.WriteString(`</opt>`)
	}
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return escaper.Replace(s) }
