// Package walker implements the single depth-first traversal that drives
// builder dispatch, clause numbering and the collection of all deferred work
// (text spans, cross-references, replacement declarations).
package walker

import (
	"strconv"
	"strings"

	"github.com/specmark/specmark/core/biblio"
	"github.com/specmark/specmark/core/diag"
	"github.com/specmark/specmark/core/dom"
)

// TextSpan records a plain-text node for post-traversal autolinking. Spans
// are only recorded outside autolink-suppressed regions; resolution cannot
// happen mid-walk because the bibliography is still incomplete.
type TextSpan struct {
	Node      *dom.Node
	Namespace string
	InAlg     bool   // the span sits inside an algorithm
	NearestID string // nearest enclosing id, "" if none
}

// DeferredRef records a cross-reference-like element for the post-traversal
// reference resolver. Consumed exactly once.
type DeferredRef struct {
	Node       *dom.Node
	ExplicitID string // explicit target id, "" if the key should be used
	Key        string // textual lookup key
	Namespace  string
	// Expect restricts the entry kinds the target may have; empty means
	// any kind is acceptable.
	Expect []biblio.EntryKind
}

// ReplacementDecl records an algorithm that declares it replaces a single
// step of another algorithm. Steps carries the step entries structurally
// contained in the declaring algorithm, with their algorithm-local paths.
type ReplacementDecl struct {
	Alg      *dom.Node
	TargetID string
	Steps    []*biblio.Entry
}

// ClauseFrame is one open clause on the traversal's clause stack.
type ClauseFrame struct {
	Node      *dom.Node
	Number    string // hierarchical clause number, e.g. "2.1"
	Namespace string
	Title     string

	titleSet     bool
	sawSubclause bool
	childCount   int
}

// Context is the per-walk mutable state. A single instance is threaded
// through the whole traversal; the compilation session owns it and the
// post-traversal passes consume what it collected.
type Context struct {
	Biblio *biblio.Biblio
	Diags  diag.Sink

	// Deferred work, populated during traversal only.
	Spans        []*TextSpan
	Refs         []*DeferredRef
	Replacements []*ReplacementDecl

	// Clauses is the stack of open clause elements.
	Clauses []*ClauseFrame

	// NoAutolink and NoEmphasis are the scoped suppression flags. Only
	// the visit that set a flag clears it on exit.
	NoAutolink bool
	NoEmphasis bool

	// AlgDepth is maintained by the algorithm builder; positive while the
	// cursor is inside an algorithm.
	AlgDepth int

	// GrammarDepth is maintained by the grammar builder; positive while
	// the cursor is inside a grammar block, where nt elements are
	// definitions rather than references.
	GrammarDepth int

	emphasisResumeAt *dom.Node
	ancestors        []*dom.Node
	idStack          []string
	seenIDs          map[string]bool
	topCounter       int
	counters         map[string]int
}

// NewContext returns a Context ready for one walk.
func NewContext(b *biblio.Biblio, sink diag.Sink) *Context {
	return &Context{
		Biblio:   b,
		Diags:    sink,
		seenIDs:  make(map[string]bool),
		counters: make(map[string]int),
	}
}

// Namespace returns the namespace the cursor is currently in: the innermost
// clause's namespace, or the global namespace outside any clause.
func (tc *Context) Namespace() string {
	if len(tc.Clauses) > 0 {
		return tc.Clauses[len(tc.Clauses)-1].Namespace
	}
	return biblio.GlobalNamespace
}

// CurrentID returns the nearest enclosing id, or "".
func (tc *Context) CurrentID() string {
	if len(tc.idStack) > 0 {
		return tc.idStack[len(tc.idStack)-1]
	}
	return ""
}

// CurrentClause returns the innermost open clause frame, or nil.
func (tc *Context) CurrentClause() *ClauseFrame {
	if len(tc.Clauses) > 0 {
		return tc.Clauses[len(tc.Clauses)-1]
	}
	return nil
}

// NextCounter increments and returns the named document-wide counter.
// Builders use this for figure/table/example numbering.
func (tc *Context) NextCounter(name string) int {
	tc.counters[name]++
	return tc.counters[name]
}

// Report sends a diagnostic to the sink.
func (tc *Context) Report(d diag.Diagnostic) {
	if tc.Diags != nil {
		tc.Diags.Report(d)
	}
}

// markID registers an id as seen, reporting a diagnostic on duplicates.
// The second occurrence is not treated as a valid target.
func (tc *Context) markID(n *dom.Node, id string) {
	if tc.seenIDs[id] {
		tc.Report(diag.Diagnostic{
			Kind:    diag.Attribute,
			RuleID:  "duplicate-id",
			Message: "duplicate id " + strconv.Quote(id),
			Node:    n,
			Attr:    "id",
		})
		return
	}
	tc.seenIDs[id] = true
}

func (tc *Context) enterClause(n *dom.Node) {
	parent := tc.CurrentClause()
	var number string
	ns := biblio.GlobalNamespace
	if parent == nil {
		tc.topCounter++
		number = strconv.Itoa(tc.topCounter)
	} else {
		parent.sawSubclause = true
		parent.childCount++
		number = parent.Number + "." + strconv.Itoa(parent.childCount)
		ns = parent.Namespace
	}
	if v, ok := n.Attr("namespace"); ok && v != "" {
		ns = v
	}
	tc.Clauses = append(tc.Clauses, &ClauseFrame{Node: n, Number: number, Namespace: ns})
}

func (tc *Context) exitClause(n *dom.Node) {
	frame := tc.CurrentClause()
	if frame == nil || frame.Node != n {
		return
	}
	tc.Clauses = tc.Clauses[:len(tc.Clauses)-1]

	entry := &biblio.Entry{
		Kind:      biblio.Clause,
		ID:        n.ID(),
		Namespace: frame.Namespace,
		Key:       frame.Title,
		Number:    frame.Number,
		Title:     frame.Title,
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
	if aoid, ok := n.Attr("aoid"); ok && aoid != "" {
		tc.DefineOperation(n, aoid, frame.Namespace)
	}
}

// DefineOperation registers an abstract operation entry for a node carrying
// an aoid attribute. Shared by the clause handling and the algorithm builder.
func (tc *Context) DefineOperation(n *dom.Node, aoid, namespace string) {
	entry := &biblio.Entry{
		Kind:      biblio.Operation,
		ID:        "ao-" + aoid,
		Namespace: namespace,
		Key:       aoid,
		Node:      n,
	}
	if err := tc.Biblio.Define(entry); err != nil {
		tc.Report(diag.Diagnostic{
			Kind:    diag.Attribute,
			RuleID:  "duplicate-id",
			Message: err.Error(),
			Node:    n,
			Attr:    "aoid",
		})
	}
}

// captureHeading records the clause's displayed header text: the first
// heading that is a direct child of the open clause, before any nested
// clause has been seen. A clause with no heading stays untitled and is
// skipped in navigation output.
func (tc *Context) captureHeading(n *dom.Node) {
	frame := tc.CurrentClause()
	if frame == nil || frame.Node != n.Parent {
		return
	}
	if frame.titleSet || frame.sawSubclause {
		return
	}
	frame.Title = strings.TrimSpace(n.Text())
	frame.titleSet = true
}
