package dom

import (
	"strings"
)

// Serialize renders the tree back to markup. Attribute order is the insertion
// order, so a parse/serialize round trip is stable.
func Serialize(n *Node) string {
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node) {
	if n.Type == TextNode {
		sb.WriteString(escapeText(n.Data))
		return
	}
	if n.Kind == DocumentKind {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(sb, c)
		}
		return
	}

	sb.WriteByte('<')
	sb.WriteString(n.Kind)
	for _, a := range n.attrs {
		sb.WriteByte(' ')
		sb.WriteString(a.Key)
		sb.WriteString(`="`)
		sb.WriteString(escapeAttr(a.Value))
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
	if IsVoid(n.Kind) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(sb, c)
	}
	sb.WriteString("</")
	sb.WriteString(n.Kind)
	sb.WriteByte('>')
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func escapeText(s string) string { return textEscaper.Replace(s) }

func escapeAttr(s string) string { return attrEscaper.Replace(s) }
