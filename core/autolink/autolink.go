// Package autolink scans the plain-text spans recorded during traversal
// against the completed bibliography and splices in citation links for
// term and operation names.
package autolink

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/specmark/specmark/core/biblio"
	"github.com/specmark/specmark/core/dom"
	"github.com/specmark/specmark/core/walker"
)

// Policy configures which match categories stay enabled inside algorithms.
// It is an allow-list, not a per-kind hardcode.
type Policy struct {
	// InsideAlgorithm lists the entry kinds still autolinked inside
	// algorithm steps.
	InsideAlgorithm []biblio.EntryKind
}

// DefaultPolicy links operation names inside algorithms but leaves prose
// terms alone there.
func DefaultPolicy() Policy {
	return Policy{InsideAlgorithm: []biblio.EntryKind{biblio.Operation}}
}

// Linker rewrites text spans in place. It must only run once the
// bibliography is final.
type Linker struct {
	Biblio *biblio.Biblio
	Policy Policy

	matchers map[string]*matcher
}

type matcher struct {
	re    *regexp.Regexp
	byKey map[string]*biblio.Entry
}

// Run autolinks every recorded span. Matching is deterministic
// (longest-match-first at each position) and never recurses into freshly
// spliced fragments: replacements are computed from the original text.
func (l *Linker) Run(spans []*walker.TextSpan) {
	l.matchers = make(map[string]*matcher)
	for _, span := range spans {
		l.linkSpan(span)
	}
}

// matcherFor compiles (once per namespace) a single matcher over all term
// and operation entries visible in that namespace: local plus global.
func (l *Linker) matcherFor(ns string) *matcher {
	if m, ok := l.matchers[ns]; ok {
		return m
	}
	entries := l.Biblio.VisibleIn(ns, biblio.Term, biblio.Operation)

	byKey := make(map[string]*biblio.Entry)
	var names []string
	add := func(name string, e *biblio.Entry) {
		key := biblio.NormalizeKey(name)
		if key == "" {
			return
		}
		if _, taken := byKey[key]; taken {
			return
		}
		byKey[key] = e
		names = append(names, name)
	}
	for _, e := range entries {
		if e.ID == "" {
			continue // nothing to link to
		}
		add(e.Key, e)
		for _, a := range e.Aliases {
			add(a, e)
		}
	}

	var m *matcher
	if len(names) > 0 {
		sort.Slice(names, func(i, j int) bool {
			if len(names[i]) != len(names[j]) {
				return len(names[i]) > len(names[j])
			}
			return names[i] < names[j]
		})
		quoted := make([]string, len(names))
		for i, n := range names {
			quoted[i] = regexp.QuoteMeta(n)
		}
		m = &matcher{
			re:    regexp.MustCompile(strings.Join(quoted, "|")),
			byKey: byKey,
		}
	}
	l.matchers[ns] = m
	return m
}

type linkMatch struct {
	start, end int
	entry      *biblio.Entry
}

func (l *Linker) linkSpan(span *walker.TextSpan) {
	m := l.matcherFor(span.Namespace)
	if m == nil {
		return
	}
	text := span.Node.Data
	var matches []linkMatch
	for _, loc := range m.re.FindAllStringIndex(text, -1) {
		if !wordBoundary(text, loc[0], loc[1]) {
			continue
		}
		entry := m.byKey[biblio.NormalizeKey(text[loc[0]:loc[1]])]
		if entry == nil {
			continue
		}
		if span.InAlg && !slices.Contains(l.Policy.InsideAlgorithm, entry.Kind) {
			continue
		}
		if entry.ID == span.NearestID {
			continue // a term does not link to its own definition
		}
		matches = append(matches, linkMatch{start: loc[0], end: loc[1], entry: entry})
	}
	if len(matches) == 0 {
		return
	}

	// Splice link-wrapped fragments in place of the matched substrings,
	// leaving unmatched substrings untouched and contiguous.
	span.Node.Data = text[:matches[0].start]
	cur := span.Node
	for i, mt := range matches {
		ref := dom.NewElement("ref")
		ref.SetAttr("class", "autolink")
		ref.SetAttr("href", "#"+mt.entry.ID)
		ref.AppendChild(dom.NewText(text[mt.start:mt.end]))
		ref.Loc = span.Node.Loc
		cur.InsertAfter(ref)
		cur = ref

		segEnd := len(text)
		if i+1 < len(matches) {
			segEnd = matches[i+1].start
		}
		if mt.end < segEnd {
			tail := dom.NewText(text[mt.end:segEnd])
			tail.Loc = span.Node.Loc
			cur.InsertAfter(tail)
			cur = tail
		}
	}
}

// wordBoundary reports whether [start,end) sits on word boundaries, so a
// term never matches inside a longer word.
func wordBoundary(text string, start, end int) bool {
	if start > 0 && isWordByte(text[start-1]) && isWordByte(text[start]) {
		return false
	}
	if end < len(text) && isWordByte(text[end-1]) && isWordByte(text[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
