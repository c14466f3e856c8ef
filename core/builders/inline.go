package builders

import (
	"regexp"

	"github.com/specmark/specmark/core/dom"
)

// emphasisPattern matches *emphasis* runs: no leading/trailing space inside
// the markers and no nested asterisks.
var emphasisPattern = regexp.MustCompile(`\*([^*\s](?:[^*]*[^*\s])?)\*`)

// ExpandInline is the inline-emphasis collaborator wired into the walker.
// It rewrites *text* runs in a text node into em elements spliced after the
// node and reports whether anything was spliced. The walker's resume
// boundary keeps the spliced nodes from being re-expanded.
func ExpandInline(n *dom.Node) bool {
	text := n.Data
	matches := emphasisPattern.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return false
	}

	n.Data = text[:matches[0][0]]
	cur := n
	for i, m := range matches {
		em := dom.NewElement("em")
		em.AppendChild(dom.NewText(text[m[2]:m[3]]))
		em.Loc = n.Loc
		cur.InsertAfter(em)
		cur = em

		segEnd := len(text)
		if i+1 < len(matches) {
			segEnd = matches[i+1][0]
		}
		if m[1] < segEnd {
			tail := dom.NewText(text[m[1]:segEnd])
			tail.Loc = n.Loc
			cur.InsertAfter(tail)
			cur = tail
		}
	}
	return true
}
