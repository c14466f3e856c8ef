// Package dom provides the mutable document tree the compiler operates on.
//
// Nodes form a doubly linked sibling list under a parent, the same shape the
// xmlquery library uses. That shape is load-bearing: builders are allowed to
// splice nodes at or after the traversal cursor, and the walker re-derives
// the next sibling after each visit instead of snapshotting child lists.
package dom

import (
	"strings"
)

// NodeType discriminates the node variants.
type NodeType int

const (
	// ElementNode is a markup element with a kind, attributes and children.
	ElementNode NodeType = iota
	// TextNode is a run of character data.
	TextNode
)

// Loc records where a node came from, for diagnostics.
type Loc struct {
	File   string // source file path, empty for synthesized nodes
	Offset int64  // byte offset of the node's start within File
}

// Attr is a single attribute. Attribute order is preserved across parse and
// re-serialization.
type Attr struct {
	Key   string
	Value string
}

// Node is a single tree node, either an element or a text run.
// A node is owned by its parent; the root is owned by the compilation session.
type Node struct {
	Type NodeType
	Kind string // element kind (lowercased tag name); empty for text nodes
	Data string // character data; empty for elements

	attrs []Attr

	Parent      *Node
	FirstChild  *Node
	LastChild   *Node
	PrevSibling *Node
	NextSibling *Node

	Loc Loc
}

// DocumentKind is the kind of the synthetic root element produced by Parse.
const DocumentKind = "#document"

// NewElement returns a detached element node of the given kind.
func NewElement(kind string) *Node {
	return &Node{Type: ElementNode, Kind: kind}
}

// NewText returns a detached text node.
func NewText(data string) *Node {
	return &Node{Type: TextNode, Data: data}
}

// Attr returns the value of the named attribute and whether it is present.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the value of the named attribute, or def if absent.
func (n *Node) AttrOr(key, def string) string {
	if v, ok := n.Attr(key); ok {
		return v
	}
	return def
}

// SetAttr sets an attribute, updating in place if the key already exists so
// that attribute order stays stable.
func (n *Node) SetAttr(key, value string) {
	for i, a := range n.attrs {
		if a.Key == key {
			n.attrs[i].Value = value
			return
		}
	}
	n.attrs = append(n.attrs, Attr{Key: key, Value: value})
}

// RemoveAttr removes the named attribute if present.
func (n *Node) RemoveAttr(key string) {
	for i, a := range n.attrs {
		if a.Key == key {
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			return
		}
	}
}

// Attrs returns the attributes in insertion order. The returned slice is the
// node's own storage; callers must not mutate it.
func (n *Node) Attrs() []Attr {
	return n.attrs
}

// ID returns the node's id attribute, or "".
func (n *Node) ID() string {
	v, _ := n.Attr("id")
	return v
}

// SetID sets the node's id attribute.
func (n *Node) SetID(id string) {
	n.SetAttr("id", id)
}

// AppendChild appends c as the last child of n. c is detached first.
func (n *Node) AppendChild(c *Node) {
	c.Detach()
	c.Parent = n
	if n.LastChild == nil {
		n.FirstChild = c
		n.LastChild = c
		return
	}
	c.PrevSibling = n.LastChild
	n.LastChild.NextSibling = c
	n.LastChild = c
}

// PrependChild inserts c as the first child of n.
func (n *Node) PrependChild(c *Node) {
	c.Detach()
	c.Parent = n
	if n.FirstChild == nil {
		n.FirstChild = c
		n.LastChild = c
		return
	}
	c.NextSibling = n.FirstChild
	n.FirstChild.PrevSibling = c
	n.FirstChild = c
}

// InsertAfter inserts c as the next sibling of n. n must be attached.
func (n *Node) InsertAfter(c *Node) {
	c.Detach()
	c.Parent = n.Parent
	c.PrevSibling = n
	c.NextSibling = n.NextSibling
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = c
	} else if n.Parent != nil {
		n.Parent.LastChild = c
	}
	n.NextSibling = c
}

// InsertBefore inserts c as the previous sibling of n. n must be attached.
func (n *Node) InsertBefore(c *Node) {
	c.Detach()
	c.Parent = n.Parent
	c.NextSibling = n
	c.PrevSibling = n.PrevSibling
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = c
	} else if n.Parent != nil {
		n.Parent.FirstChild = c
	}
	n.PrevSibling = c
}

// ReplaceWith replaces n with c in n's parent. n is left detached.
func (n *Node) ReplaceWith(c *Node) {
	n.InsertBefore(c)
	n.Detach()
}

// Detach removes n from its parent and sibling links. Detaching an already
// detached node is a no-op.
func (n *Node) Detach() {
	if n.Parent != nil {
		if n.Parent.FirstChild == n {
			n.Parent.FirstChild = n.NextSibling
		}
		if n.Parent.LastChild == n {
			n.Parent.LastChild = n.PrevSibling
		}
	}
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = n.NextSibling
	}
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = n.PrevSibling
	}
	n.Parent = nil
	n.PrevSibling = nil
	n.NextSibling = nil
}

// Text returns the concatenated character data of n and its descendants.
func (n *Node) Text() string {
	var sb strings.Builder
	n.collectText(&sb)
	return sb.String()
}

func (n *Node) collectText(sb *strings.Builder) {
	if n.Type == TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		c.collectText(sb)
	}
}

// Find returns the first element in document order (including n itself) for
// which pred returns true, or nil.
func Find(n *Node, pred func(*Node) bool) *Node {
	if n.Type == ElementNode && pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m := Find(c, pred); m != nil {
			return m
		}
	}
	return nil
}

// FindAll returns all elements in document order for which pred returns true.
func FindAll(n *Node, pred func(*Node) bool) []*Node {
	var out []*Node
	var rec func(*Node)
	rec = func(m *Node) {
		if m.Type == ElementNode && pred(m) {
			out = append(out, m)
		}
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return out
}

// FindKind returns the first element of the given kind, or nil.
func FindKind(n *Node, kind string) *Node {
	return Find(n, func(m *Node) bool { return m.Kind == kind })
}

// ChildElements returns the element children of n in order.
func (n *Node) ChildElements() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// voidKinds are element kinds that can never have children. Redirection
// markers (oldids) on these are a fatal authoring error because the anchor
// placeholders they expand to are inserted as children.
var voidKinds = map[string]bool{
	"br":   true,
	"hr":   true,
	"img":  true,
	"meta": true,
	"link": true,
	"wbr":  true,
}

// IsVoid reports whether the element kind can never have children.
func IsVoid(kind string) bool { return voidKinds[kind] }
