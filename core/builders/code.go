package builders

import (
	"context"

	"github.com/specmark/specmark/core/diag"
	"github.com/specmark/specmark/core/dom"
	"github.com/specmark/specmark/core/walker"
	"github.com/specmark/specmark/internal/highlight"
)

// CodeBuilder highlights pre blocks carrying a class of "code". The raw
// text child is replaced with span-wrapped token markup before the walker
// descends, so the spliced spans are walked (and suppressed) like any
// authored pre content.
type CodeBuilder struct{}

func (b *CodeBuilder) Kinds() []string { return []string{"pre"} }

func (b *CodeBuilder) Enter(_ context.Context, tc *walker.Context, n *dom.Node) error {
	if n.AttrOr("class", "") != "code" {
		return nil
	}
	content := n.Text()
	if content == "" {
		return nil
	}
	markup := highlight.Highlight(content, highlight.Options{Language: n.AttrOr("lang", "")})
	frag, err := dom.ParseString(markup, n.Loc.File)
	if err != nil {
		tc.Report(diag.Diagnostic{
			Kind:    diag.Node,
			RuleID:  "highlight",
			Message: err.Error(),
			Node:    n,
		})
		return nil
	}
	for n.FirstChild != nil {
		n.FirstChild.Detach()
	}
	for frag.FirstChild != nil {
		c := frag.FirstChild
		c.Detach()
		n.AppendChild(c)
	}
	return nil
}

func (b *CodeBuilder) Exit(*walker.Context, *dom.Node) {}
