package walker

import (
	"context"
	"strings"

	"github.com/specmark/specmark/core/dom"
	"github.com/specmark/specmark/core/errors"
)

// Builder handles one or more element kinds during the walk. Enter runs
// before the element's children are visited, Exit after. Builders may insert
// new nodes at or after the cursor; the walk visits them. They must not
// detach the node currently being visited, and must not mutate
// already-visited nodes except from the Exit hook of an ancestor still on
// the traversal stack.
type Builder interface {
	Kinds() []string
	Enter(ctx context.Context, tc *Context, n *dom.Node) error
	Exit(tc *Context, n *dom.Node)
}

// Registry maps element kinds to builders. Resolved once at startup; at most
// one builder per kind.
type Registry map[string]Builder

// NewRegistry builds a registry from the given builders, rejecting duplicate
// kind registrations.
func NewRegistry(builders ...Builder) (Registry, error) {
	reg := make(Registry)
	for _, b := range builders {
		for _, kind := range b.Kinds() {
			if _, taken := reg[kind]; taken {
				return nil, errors.Errorf("builder for kind %q registered twice", kind)
			}
			reg[kind] = b
		}
	}
	return reg, nil
}

// autolinkSuppressedKinds are element kinds whose text is never autolinked.
// Already-linked and code-like content must not be rewrapped; this is also
// what makes autolinking idempotent across recompilation of rendered output.
var autolinkSuppressedKinds = map[string]bool{
	"a":       true,
	"code":    true,
	"dfn":     true,
	"grammar": true,
	"h1":      true,
	"nt":      true,
	"pre":     true,
	"prodref": true,
	"ref":     true,
	"script":  true,
	"style":   true,
	"var":     true,
	"xref":    true,
}

// emphasisSuppressedKinds are element kinds whose text keeps literal
// asterisks instead of inline-emphasis expansion.
var emphasisSuppressedKinds = map[string]bool{
	"code":    true,
	"grammar": true,
	"pre":     true,
	"script":  true,
	"style":   true,
}

// Walker drives one traversal. ExpandInline is the inline-emphasis
// collaborator: given a text node it may splice new siblings at or after the
// node and reports whether it did.
type Walker struct {
	Registry     Registry
	ExpandInline func(n *dom.Node) bool
}

// Walk traverses the tree depth-first in document order, dispatching
// builders and populating the context's bibliography and deferred lists.
// Only structural errors (malformed redirection markers, builder failures)
// abort the walk; everything recoverable goes to the diagnostic sink.
func (w *Walker) Walk(ctx context.Context, tc *Context, root *dom.Node) error {
	if err := ctx.Err(); err != nil {
		return errors.ErrCancelled
	}
	return w.visit(ctx, tc, root)
}

func (w *Walker) visit(ctx context.Context, tc *Context, n *dom.Node) error {
	if n == tc.emphasisResumeAt {
		tc.emphasisResumeAt = nil
	}
	if n.Type == dom.TextNode {
		w.visitText(tc, n)
		return nil
	}

	if err := w.expandOldids(tc, n); err != nil {
		return err
	}

	pushedID := false
	if id := n.ID(); id != "" {
		tc.markID(n, id)
		tc.idStack = append(tc.idStack, id)
		pushedID = true
	}

	// Remember which suppression flags this visit set: sibling subtrees
	// must not inherit a flag cleared by the wrong exit.
	setNoAutolink := false
	if autolinkSuppressedKinds[n.Kind] && !tc.NoAutolink {
		tc.NoAutolink = true
		setNoAutolink = true
	}
	setNoEmphasis := false
	if emphasisSuppressedKinds[n.Kind] && !tc.NoEmphasis {
		tc.NoEmphasis = true
		setNoEmphasis = true
	}

	isClause := n.Kind == "clause"
	if isClause {
		tc.enterClause(n)
	}
	if n.Kind == "h1" {
		tc.captureHeading(n)
	}

	tc.ancestors = append(tc.ancestors, n)

	var b Builder
	if w.Registry != nil {
		b = w.Registry[n.Kind]
	}
	if b != nil {
		if err := b.Enter(ctx, tc, n); err != nil {
			return err
		}
	}

	// Re-derive the next child after every recursive call: builders may
	// have spliced new children or siblings ahead of the cursor, and those
	// must be visited within this same walk.
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := w.visit(ctx, tc, c); err != nil {
			return err
		}
	}

	if b != nil {
		b.Exit(tc, n)
	}

	tc.ancestors = tc.ancestors[:len(tc.ancestors)-1]
	if isClause {
		tc.exitClause(n)
	}
	if setNoAutolink {
		tc.NoAutolink = false
	}
	if setNoEmphasis {
		tc.NoEmphasis = false
	}
	if pushedID {
		tc.idStack = tc.idStack[:len(tc.idStack)-1]
	}
	return nil
}

func (w *Walker) visitText(tc *Context, n *dom.Node) {
	if strings.TrimSpace(n.Data) == "" {
		return
	}
	if !tc.NoEmphasis && tc.emphasisResumeAt == nil && w.ExpandInline != nil {
		if w.ExpandInline(n) {
			tc.emphasisResumeAt = resumeBoundary(n)
		}
	}
	if !tc.NoAutolink {
		tc.Spans = append(tc.Spans, &TextSpan{
			Node:      n,
			Namespace: tc.Namespace(),
			InAlg:     tc.AlgDepth > 0,
			NearestID: tc.CurrentID(),
		})
	}
}

// resumeBoundary finds where normal inline expansion resumes after a splice:
// the nearest ancestor's next sibling, or nil for end of document. Freshly
// spliced nodes all sit before the boundary and are not re-expanded.
func resumeBoundary(n *dom.Node) *dom.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.NextSibling != nil {
			return p.NextSibling
		}
	}
	return nil
}

// expandOldids resolves legacy-id redirection markers by inserting anchor
// placeholder children. An oldids attribute on an element that cannot have
// children is an authoring error that aborts compilation.
func (w *Walker) expandOldids(tc *Context, n *dom.Node) error {
	v, ok := n.Attr("oldids")
	if !ok {
		return nil
	}
	if dom.IsVoid(n.Kind) {
		return &errors.MalformedNodeError{
			Kind:    n.Kind,
			File:    n.Loc.File,
			Message: "oldids on an element that cannot hold anchor children",
		}
	}
	ids := strings.Split(v, ",")
	for i := len(ids) - 1; i >= 0; i-- {
		id := strings.TrimSpace(ids[i])
		if id == "" {
			continue
		}
		anchor := dom.NewElement("span")
		anchor.SetID(id)
		anchor.Loc = n.Loc
		n.PrependChild(anchor)
	}
	n.RemoveAttr("oldids")
	return nil
}
