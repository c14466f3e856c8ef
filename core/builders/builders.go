// Package builders provides the builder variants dispatched by the walker:
// algorithms, cross-references, defined terms, grammar blocks and numbered
// figures. Each builder handles a fixed set of element kinds and is
// registered once at startup.
package builders

import (
	"context"
	"strconv"
	"strings"

	"github.com/specmark/specmark/core/biblio"
	"github.com/specmark/specmark/core/diag"
	"github.com/specmark/specmark/core/dom"
	"github.com/specmark/specmark/core/walker"
	"github.com/specmark/specmark/internal/grammar"
)

// DefaultRegistry wires up every builder the compiler ships with.
func DefaultRegistry() (walker.Registry, error) {
	return walker.NewRegistry(
		&ClauseBuilder{},
		&AlgorithmBuilder{},
		&XrefBuilder{},
		&TermBuilder{},
		&GrammarBuilder{},
		&FigureBuilder{},
		&CodeBuilder{},
	)
}

// ClauseBuilder renders clause headers. Numbering itself is the walker's
// job; this builder only prefixes the captured number onto the heading when
// the clause closes, so nested clauses are already numbered.
type ClauseBuilder struct{}

func (b *ClauseBuilder) Kinds() []string { return []string{"clause"} }

func (b *ClauseBuilder) Enter(context.Context, *walker.Context, *dom.Node) error { return nil }

func (b *ClauseBuilder) Exit(tc *walker.Context, n *dom.Node) {
	frame := tc.CurrentClause()
	if frame == nil || frame.Node != n {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == dom.ElementNode && c.Kind == "clause" {
			break
		}
		if c.Type == dom.ElementNode && c.Kind == "h1" {
			span := dom.NewElement("span")
			span.SetAttr("class", "secnum")
			span.AppendChild(dom.NewText(frame.Number))
			c.PrependChild(span)
			break
		}
	}
}

// AlgorithmBuilder handles alg elements: it assigns algorithm-local step
// paths to identified steps, registers step entries, and records replacement
// declarations for algorithms that replace a step of another algorithm.
type AlgorithmBuilder struct{}

func (b *AlgorithmBuilder) Kinds() []string { return []string{"alg"} }

func (b *AlgorithmBuilder) Enter(_ context.Context, tc *walker.Context, n *dom.Node) error {
	tc.AlgDepth++

	replaces, isReplacement := n.Attr("replaces-step")

	var steps []*biblio.Entry
	var collect func(list *dom.Node, prefix []int)
	collect = func(list *dom.Node, prefix []int) {
		idx := 0
		for li := list.FirstChild; li != nil; li = li.NextSibling {
			if li.Type != dom.ElementNode || li.Kind != "li" {
				continue
			}
			idx++
			path := append(append([]int{}, prefix...), idx)
			if id := li.ID(); id != "" {
				entry := &biblio.Entry{
					Kind:      biblio.Step,
					ID:        id,
					Namespace: tc.Namespace(),
					Key:       id,
					Path:      path,
					PathKnown: !isReplacement,
					Node:      li,
				}
				if err := tc.Biblio.Define(entry); err != nil {
					tc.Report(diag.Diagnostic{
						Kind:    diag.Node,
						RuleID:  "duplicate-id",
						Message: err.Error(),
						Node:    li,
					})
				} else {
					steps = append(steps, entry)
				}
			}
			for sub := li.FirstChild; sub != nil; sub = sub.NextSibling {
				if sub.Type == dom.ElementNode && sub.Kind == "ol" {
					collect(sub, path)
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == dom.ElementNode && c.Kind == "ol" {
			collect(c, nil)
		}
	}

	if isReplacement {
		tc.Replacements = append(tc.Replacements, &walker.ReplacementDecl{
			Alg:      n,
			TargetID: strings.TrimSpace(replaces),
			Steps:    steps,
		})
	}
	if aoid, ok := n.Attr("aoid"); ok && aoid != "" {
		tc.DefineOperation(n, aoid, tc.Namespace())
	}
	return nil
}

func (b *AlgorithmBuilder) Exit(tc *walker.Context, n *dom.Node) {
	tc.AlgDepth--
}

// XrefBuilder defers cross-references for the post-traversal resolver. The
// bibliography is incomplete mid-walk, so nothing resolves here.
type XrefBuilder struct{}

func (b *XrefBuilder) Kinds() []string { return []string{"xref", "prodref", "nt"} }

func (b *XrefBuilder) Enter(_ context.Context, tc *walker.Context, n *dom.Node) error {
	if n.Kind == "nt" && tc.GrammarDepth > 0 {
		// Non-terminals inside a grammar block are definitions handled by
		// the grammar builder, not references.
		return nil
	}
	ref := &walker.DeferredRef{Node: n, Namespace: tc.Namespace()}
	switch n.Kind {
	case "xref":
		ref.ExplicitID, _ = n.Attr("target")
		ref.Key = strings.TrimSpace(n.Text())
	case "prodref":
		ref.Key, _ = n.Attr("name")
		ref.Expect = []biblio.EntryKind{biblio.Production}
	case "nt":
		ref.Key = strings.TrimSpace(n.Text())
		ref.Expect = []biblio.EntryKind{biblio.Production}
	}
	tc.Refs = append(tc.Refs, ref)
	return nil
}

func (b *XrefBuilder) Exit(*walker.Context, *dom.Node) {}

// TermBuilder registers defined terms. Aliases come from the variants
// attribute, comma separated.
type TermBuilder struct{}

func (b *TermBuilder) Kinds() []string { return []string{"dfn"} }

func (b *TermBuilder) Enter(_ context.Context, tc *walker.Context, n *dom.Node) error {
	key := strings.TrimSpace(n.Text())
	if key == "" {
		tc.Report(diag.Diagnostic{
			Kind:    diag.Node,
			RuleID:  "empty-term",
			Message: "dfn with no term text",
			Node:    n,
		})
		return nil
	}
	var aliases []string
	if v, ok := n.Attr("variants"); ok {
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				aliases = append(aliases, a)
			}
		}
	}
	entry := &biblio.Entry{
		Kind:      biblio.Term,
		ID:        n.ID(),
		Namespace: tc.Namespace(),
		Key:       key,
		Aliases:   aliases,
		Node:      n,
	}
	if err := tc.Biblio.Define(entry); err != nil {
		tc.Report(diag.Diagnostic{
			Kind:    diag.Node,
			RuleID:  "duplicate-id",
			Message: err.Error(),
			Node:    n,
		})
	}
	return nil
}

func (b *TermBuilder) Exit(*walker.Context, *dom.Node) {}

// GrammarBuilder converts embedded grammar notation into rendered production
// markup via the grammar engine and, for definition blocks, registers
// production entries.
type GrammarBuilder struct{}

func (b *GrammarBuilder) Kinds() []string { return []string{"grammar"} }

func (b *GrammarBuilder) Enter(ctx context.Context, tc *walker.Context, n *dom.Node) error {
	tc.GrammarDepth++

	content := n.Text()
	if strings.TrimSpace(content) == "" {
		return nil
	}
	definition := n.AttrOr("type", "definition") == "definition"

	markup, names, err := grammar.Convert(ctx, content, grammar.Options{Definition: definition})
	if err != nil {
		// Unconvertible notation keeps its raw text rendering.
		tc.Report(diag.Diagnostic{
			Kind:    diag.Node,
			RuleID:  "grammar-convert",
			Message: err.Error(),
			Node:    n,
		})
		return nil
	}

	frag, err := dom.ParseString(markup, n.Loc.File)
	if err != nil {
		tc.Report(diag.Diagnostic{
			Kind:    diag.Node,
			RuleID:  "grammar-convert",
			Message: err.Error(),
			Node:    n,
		})
		return nil
	}

	// Replace the raw notation with the converted subtree. The children
	// have not been visited yet, so this mutation is at the cursor.
	for n.FirstChild != nil {
		n.FirstChild.Detach()
	}
	for frag.FirstChild != nil {
		c := frag.FirstChild
		c.Detach()
		n.AppendChild(c)
	}

	if definition {
		for _, name := range names {
			entry := &biblio.Entry{
				Kind:      biblio.Production,
				ID:        "prod-" + name,
				Namespace: tc.Namespace(),
				Key:       name,
				Node:      n,
			}
			if err := tc.Biblio.Define(entry); err != nil {
				tc.Report(diag.Diagnostic{
					Kind:    diag.Node,
					RuleID:  "duplicate-id",
					Message: err.Error(),
					Node:    n,
				})
			}
		}
	}
	return nil
}

func (b *GrammarBuilder) Exit(tc *walker.Context, n *dom.Node) {
	tc.GrammarDepth--
}

// FigureBuilder numbers figures, tables and examples and labels their
// captions.
type FigureBuilder struct{}

func (b *FigureBuilder) Kinds() []string { return []string{"figure", "table", "example"} }

var figureKinds = map[string]biblio.EntryKind{
	"figure":  biblio.Figure,
	"table":   biblio.Table,
	"example": biblio.Example,
}

var figureLabels = map[string]string{
	"figure":  "Figure",
	"table":   "Table",
	"example": "Example",
}

func (b *FigureBuilder) Enter(_ context.Context, tc *walker.Context, n *dom.Node) error {
	num := tc.NextCounter(n.Kind)
	caption := ""
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == dom.ElementNode && c.Kind == "caption" {
			caption = strings.TrimSpace(c.Text())
			label := figureLabels[n.Kind] + " " + strconv.Itoa(num)
			if caption != "" {
				label += ": "
			}
			c.PrependChild(dom.NewText(label))
			break
		}
	}
	entry := &biblio.Entry{
		Kind:      figureKinds[n.Kind],
		ID:        n.ID(),
		Namespace: tc.Namespace(),
		Key:       caption,
		Number:    strconv.Itoa(num),
		Title:     caption,
		Node:      n,
	}
	if err := tc.Biblio.Define(entry); err != nil {
		tc.Report(diag.Diagnostic{
			Kind:    diag.Node,
			RuleID:  "duplicate-id",
			Message: err.Error(),
			Node:    n,
		})
	}
	return nil
}

func (b *FigureBuilder) Exit(*walker.Context, *dom.Node) {}
