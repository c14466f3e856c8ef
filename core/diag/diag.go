// Package diag defines the structured diagnostics the compiler reports
// instead of failing on recoverable authoring problems.
package diag

import (
	"fmt"

	"github.com/specmark/specmark/core/dom"
)

// Kind locates what a diagnostic is attached to.
type Kind int

const (
	// Global diagnostics concern the whole document.
	Global Kind = iota
	// Node diagnostics point at a specific tree node.
	Node
	// Attribute diagnostics point at a named attribute of a node.
	Attribute
	// TextOffset diagnostics point into a text node's content.
	TextOffset
	// Raw diagnostics carry a preformatted message with no location.
	Raw
)

func (k Kind) String() string {
	switch k {
	case Global:
		return "global"
	case Node:
		return "node"
	case Attribute:
		return "attribute"
	case TextOffset:
		return "text-offset"
	case Raw:
		return "raw"
	}
	return "unknown"
}

// Diagnostic is a single reported issue. Recoverable problems are always
// reported through a Sink; the core never panics or aborts on them.
type Diagnostic struct {
	Kind    Kind
	RuleID  string // stable machine-readable rule identifier
	Message string

	Node   *dom.Node // for Node, Attribute and TextOffset kinds
	Attr   string    // for Attribute kind
	Offset int       // for TextOffset kind, offset into the text node
}

// Location describes where the diagnostic points, or "" for global/raw ones.
func (d Diagnostic) Location() string {
	if d.Node == nil {
		return ""
	}
	loc := d.Node.Loc
	if loc.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", loc.File, loc.Offset)
}

func (d Diagnostic) String() string {
	if loc := d.Location(); loc != "" {
		return fmt.Sprintf("%s: %s: %s", loc, d.RuleID, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.RuleID, d.Message)
}

// Sink receives diagnostics as they are produced.
type Sink interface {
	Report(Diagnostic)
}

// List is a Sink that accumulates diagnostics in order.
type List struct {
	Items []Diagnostic
}

// Report appends d to the list.
func (l *List) Report(d Diagnostic) {
	l.Items = append(l.Items, d)
}

// Count returns the number of collected diagnostics.
func (l *List) Count() int { return len(l.Items) }

// ByRule returns the diagnostics with the given rule id.
func (l *List) ByRule(ruleID string) []Diagnostic {
	var out []Diagnostic
	for _, d := range l.Items {
		if d.RuleID == ruleID {
			out = append(out, d)
		}
	}
	return out
}
