package dom

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/specmark/specmark/core/errors"
)

// lenientOptions makes xmlquery accept the same HTML-ish input as Parse:
// auto-closed void tags, HTML entities, multiple top-level elements.
var lenientOptions = xmlquery.ParserOptions{
	Decoder: &xmlquery.DecoderOptions{
		Strict:    false,
		AutoClose: xml.HTMLAutoClose,
		Entity:    xml.HTMLEntity,
	},
}

// QuerySource evaluates an XPath expression against raw markup source and
// returns the matched nodes' inner text, in document order. Pre-traversal
// phases (metadata extraction) and the inspect command use this; the
// compiled tree itself is queried through Find/FindAll.
func QuerySource(src []byte, expr string) ([]string, error) {
	if _, err := xpath.Compile(expr); err != nil {
		return nil, &errors.LoadError{Path: expr, Op: "compile xpath", Err: err}
	}
	doc, err := xmlquery.ParseWithOptions(bytes.NewReader(src), lenientOptions)
	if err != nil {
		return nil, &errors.LoadError{Op: "parse", Err: err}
	}
	nodes, err := xmlquery.QueryAll(doc, expr)
	if err != nil {
		return nil, &errors.LoadError{Path: expr, Op: "evaluate xpath", Err: err}
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.InnerText())
	}
	return out, nil
}

// QuerySourceOuter is QuerySource but returns the matches re-serialized as
// markup instead of inner text.
func QuerySourceOuter(src []byte, expr string) ([]string, error) {
	if _, err := xpath.Compile(expr); err != nil {
		return nil, &errors.LoadError{Path: expr, Op: "compile xpath", Err: err}
	}
	doc, err := xmlquery.ParseWithOptions(bytes.NewReader(src), lenientOptions)
	if err != nil {
		return nil, &errors.LoadError{Op: "parse", Err: err}
	}
	nodes, err := xmlquery.QueryAll(doc, expr)
	if err != nil {
		return nil, &errors.LoadError{Path: expr, Op: "evaluate xpath", Err: err}
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, strings.TrimSpace(n.OutputXML(true)))
	}
	return out, nil
}

// Clone returns a deep copy of n, detached from any parent. Used by the
// import loader's fragment cache so a cached parse is never mutated.
func (n *Node) Clone() *Node {
	c := &Node{
		Type: n.Type,
		Kind: n.Kind,
		Data: n.Data,
		Loc:  n.Loc,
	}
	if len(n.attrs) > 0 {
		c.attrs = make([]Attr, len(n.attrs))
		copy(c.attrs, n.attrs)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(child.Clone())
	}
	return c
}
