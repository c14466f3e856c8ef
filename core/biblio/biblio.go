// Package biblio implements the bibliography: the registry of every
// definable, referenceable entry in the document, plus imported entry tables
// from other documents.
//
// The bibliography is populated during the single traversal pass and is
// read-only afterwards except for back-reference recording by the resolvers.
package biblio

import (
	"slices"
	"strings"

	"github.com/specmark/specmark/core/dom"
	"github.com/specmark/specmark/core/errors"
)

// GlobalNamespace is the reserved, universally visible namespace.
const GlobalNamespace = "global"

// EntryKind discriminates what an entry defines.
type EntryKind int

const (
	// Clause is a numbered section.
	Clause EntryKind = iota
	// Step is a single algorithm step.
	Step
	// Term is a defined term.
	Term
	// Operation is an abstract operation.
	Operation
	// Production is a grammar production.
	Production
	// Figure is a numbered figure.
	Figure
	// Table is a numbered table.
	Table
	// Example is a numbered example.
	Example
)

var kindNames = map[EntryKind]string{
	Clause:     "clause",
	Step:       "step",
	Term:       "term",
	Operation:  "op",
	Production: "production",
	Figure:     "figure",
	Table:      "table",
	Example:    "example",
}

func (k EntryKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// KindFromString maps a kind name back to an EntryKind.
func KindFromString(s string) (EntryKind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Entry is a single bibliography record.
type Entry struct {
	Kind      EntryKind `json:"kind"`
	ID        string    `json:"id,omitempty"`
	Namespace string    `json:"namespace"`
	Key       string    `json:"key"`
	Aliases   []string  `json:"aliases,omitempty"`

	// Location is the external document location for imported entries;
	// empty for entries defined in this document.
	Location string `json:"location,omitempty"`

	// ReferencingIDs are the ids of nodes that reference this entry,
	// recorded by the reference and replacement-step resolvers.
	ReferencingIDs []string `json:"referencing_ids,omitempty"`

	// Clause fields.
	Number string `json:"number,omitempty"`
	Title  string `json:"title,omitempty"`

	// Step fields. Path is provisional (algorithm-local) until the
	// replacement-step resolver finalizes it; PathKnown marks entries
	// whose Path is final.
	Path      []int `json:"path,omitempty"`
	PathKnown bool  `json:"-"`

	// Node is the defining tree node; nil for imported entries.
	Node *dom.Node `json:"-"`
}

// Keys returns the lookup keys (primary key plus aliases), normalized.
func (e *Entry) Keys() []string {
	keys := make([]string, 0, 1+len(e.Aliases))
	if e.Key != "" {
		keys = append(keys, NormalizeKey(e.Key))
	}
	for _, a := range e.Aliases {
		keys = append(keys, NormalizeKey(a))
	}
	return keys
}

// NormalizeKey collapses internal whitespace and lowercases a textual key.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Biblio is the document bibliography.
type Biblio struct {
	byID     map[string]*Entry
	local    map[string]map[string][]*Entry // namespace -> key -> entries
	external map[string]map[string]*Entry   // location -> key -> entry

	// externalOrder fixes the iteration order of external tables so
	// resolution is deterministic across runs.
	externalOrder []string

	entries []*Entry // document order
}

// New returns an empty bibliography.
func New() *Biblio {
	return &Biblio{
		byID:     make(map[string]*Entry),
		local:    make(map[string]map[string][]*Entry),
		external: make(map[string]map[string]*Entry),
	}
}

// Define inserts an entry. Ids are globally unique across the whole
// document, not per namespace; a collision is a hard error.
func (b *Biblio) Define(e *Entry) error {
	if e.Namespace == "" {
		e.Namespace = GlobalNamespace
	}
	if e.ID != "" {
		if _, exists := b.byID[e.ID]; exists {
			return &errors.DuplicateIDError{ID: e.ID, Kind: e.Kind.String()}
		}
		b.byID[e.ID] = e
	}
	ns := b.local[e.Namespace]
	if ns == nil {
		ns = make(map[string][]*Entry)
		b.local[e.Namespace] = ns
	}
	for _, k := range e.Keys() {
		ns[k] = append(ns[k], e)
	}
	b.entries = append(b.entries, e)
	return nil
}

// LookupID resolves an entry by its explicit id.
func (b *Biblio) LookupID(id string) (*Entry, bool) {
	e, ok := b.byID[id]
	return e, ok
}

// Lookup resolves key within namespace. The resolution order is fixed:
// explicit id, then the local namespace, then the global namespace, then the
// imported external tables in import order. Multiple candidates in the same
// namespace are an error, never silently picked.
func (b *Biblio) Lookup(namespace, key string) (*Entry, error) {
	if e, ok := b.byID[key]; ok {
		return e, nil
	}
	norm := NormalizeKey(key)

	if e, err := b.lookupLocal(namespace, norm, key); e != nil || err != nil {
		return e, err
	}
	if namespace != GlobalNamespace {
		if e, err := b.lookupLocal(GlobalNamespace, norm, key); e != nil || err != nil {
			return e, err
		}
	}
	for _, loc := range b.externalOrder {
		if e, ok := b.external[loc][norm]; ok {
			return e, nil
		}
	}
	return nil, &errors.LookupError{Namespace: namespace, Key: key}
}

func (b *Biblio) lookupLocal(namespace, norm, orig string) (*Entry, error) {
	candidates := b.local[namespace][norm]
	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return candidates[0], nil
	default:
		return nil, &errors.LookupError{Namespace: namespace, Key: orig, Matches: len(candidates)}
	}
}

// ImportExternal merges an externally supplied read-only entry table keyed by
// its document location. External entries never receive back-references and
// never participate in id-uniqueness checking (their ids belong to another
// document).
func (b *Biblio) ImportExternal(location string, entries []*Entry) {
	table := b.external[location]
	if table == nil {
		table = make(map[string]*Entry)
		b.external[location] = table
		b.externalOrder = append(b.externalOrder, location)
	}
	for _, e := range entries {
		e.Location = location
		for _, k := range e.Keys() {
			if _, taken := table[k]; !taken {
				table[k] = e
			}
		}
	}
}

// RecordReference appends referringID to the entry's referencing-id list.
// Idempotent per unique referring id; silently ignores unknown or external
// entry ids.
func (b *Biblio) RecordReference(entryID, referringID string) {
	e, ok := b.byID[entryID]
	if !ok || e.Location != "" {
		return
	}
	if slices.Contains(e.ReferencingIDs, referringID) {
		return
	}
	e.ReferencingIDs = append(e.ReferencingIDs, referringID)
}

// Entries returns all locally defined entries in definition order.
func (b *Biblio) Entries() []*Entry {
	return b.entries
}

// EntriesOfKind returns locally defined entries of the given kind, in
// definition order.
func (b *Biblio) EntriesOfKind(kind EntryKind) []*Entry {
	var out []*Entry
	for _, e := range b.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// VisibleIn returns the entries of the given kinds visible from namespace:
// the namespace's own entries plus global ones. Used by the autolinker to
// compile per-namespace matchers.
func (b *Biblio) VisibleIn(namespace string, kinds ...EntryKind) []*Entry {
	var out []*Entry
	for _, e := range b.entries {
		if e.Namespace != namespace && e.Namespace != GlobalNamespace {
			continue
		}
		if slices.Contains(kinds, e.Kind) {
			out = append(out, e)
		}
	}
	return out
}

// Namespaces returns every namespace with at least one local entry.
func (b *Biblio) Namespaces() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range b.entries {
		if !seen[e.Namespace] {
			seen[e.Namespace] = true
			out = append(out, e.Namespace)
		}
	}
	return out
}
