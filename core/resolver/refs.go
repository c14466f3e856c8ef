// Package resolver implements the post-traversal passes that turn collected
// deferred work into a linked document: cross-reference resolution and
// replacement-step numbering. Both require a fully populated bibliography
// and therefore never run mid-walk.
package resolver

import (
	"slices"
	"strconv"

	"github.com/specmark/specmark/core/biblio"
	"github.com/specmark/specmark/core/diag"
	"github.com/specmark/specmark/core/dom"
	"github.com/specmark/specmark/core/errors"
	"github.com/specmark/specmark/core/walker"
)

// RefResolver resolves deferred references against the bibliography.
type RefResolver struct {
	Biblio *biblio.Biblio
	Diags  diag.Sink

	nextID int
}

// Resolve consumes every deferred reference once, in collection order. Each
// either becomes a resolved citation or keeps its pre-resolution form with a
// diagnostic attached; resolution failures never abort compilation.
func (r *RefResolver) Resolve(refs []*walker.DeferredRef) {
	for _, ref := range refs {
		r.resolveOne(ref)
	}
}

func (r *RefResolver) resolveOne(ref *walker.DeferredRef) {
	var target *biblio.Entry
	if ref.ExplicitID != "" {
		e, ok := r.Biblio.LookupID(ref.ExplicitID)
		if !ok {
			r.report(ref, "ref-unresolved", "no entry with id "+strconv.Quote(ref.ExplicitID))
			return
		}
		target = e
	} else {
		e, err := r.Biblio.Lookup(ref.Namespace, ref.Key)
		if err != nil {
			if errors.Is(err, errors.ErrAmbiguous) {
				r.report(ref, "ref-ambiguous", err.Error())
			} else {
				r.report(ref, "ref-unresolved", err.Error())
			}
			return
		}
		target = e
	}

	if len(ref.Expect) > 0 && !slices.Contains(ref.Expect, target.Kind) {
		r.report(ref, "ref-wrong-kind",
			"reference expected a "+expectNames(ref.Expect)+" but resolved to a "+target.Kind.String())
		return
	}

	if ref.Node.ID() == "" {
		ref.Node.SetID(r.generateID())
	}
	rewrite(ref.Node, target)
	if target.ID != "" {
		r.Biblio.RecordReference(target.ID, ref.Node.ID())
	}
}

// generateID returns a fresh, monotonically incremented node id for
// referring nodes that lack one.
func (r *RefResolver) generateID() string {
	r.nextID++
	return "_ref_" + strconv.Itoa(r.nextID)
}

func (r *RefResolver) report(ref *walker.DeferredRef, rule, msg string) {
	if r.Diags != nil {
		r.Diags.Report(diag.Diagnostic{Kind: diag.Node, RuleID: rule, Message: msg, Node: ref.Node})
	}
}

func expectNames(kinds []biblio.EntryKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	out := names[0]
	for _, n := range names[1:] {
		out += " or " + n
	}
	return out
}

// rewrite turns the referring node into its final linked representation.
// Empty references get a generated label from the target.
func rewrite(n *dom.Node, target *biblio.Entry) {
	n.Kind = "ref"
	href := "#" + target.ID
	if target.Location != "" {
		href = target.Location + "#" + target.ID
	}
	n.SetAttr("href", href)
	if n.FirstChild == nil {
		n.AppendChild(dom.NewText(label(target)))
	}
}

func label(e *biblio.Entry) string {
	switch e.Kind {
	case biblio.Clause:
		if e.Number != "" {
			return "clause " + e.Number
		}
	case biblio.Figure, biblio.Table, biblio.Example:
		if e.Number != "" {
			return e.Kind.String() + " " + e.Number
		}
	}
	if e.Key != "" {
		return e.Key
	}
	return e.ID
}
