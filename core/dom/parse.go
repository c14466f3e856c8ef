package dom

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/specmark/specmark/core/errors"
)

// Parse reads HTML-ish markup into a tree rooted at a synthetic #document
// element. The decoder runs in the stdlib's lenient HTML mode (auto-closed
// void tags, HTML entities) and records the byte offset of every node for
// diagnostics.
//
// Entity expansion is restricted to the fixed HTML table, so documents cannot
// smuggle in external or recursive entities.
func Parse(r io.Reader, file string) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	root := NewElement(DocumentKind)
	root.Loc = Loc{File: file}
	cur := root

	for {
		start := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &errors.LoadError{Path: file, Op: "parse", Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := NewElement(strings.ToLower(t.Name.Local))
			el.Loc = Loc{File: file, Offset: start}
			for _, a := range t.Attr {
				el.SetAttr(strings.ToLower(a.Name.Local), a.Value)
			}
			cur.AppendChild(el)
			if !IsVoid(el.Kind) {
				cur = el
			}
		case xml.EndElement:
			kind := strings.ToLower(t.Name.Local)
			if IsVoid(kind) {
				break
			}
			// Lenient recovery: close up to the nearest matching open
			// element, tolerating misnested end tags.
			for p := cur; p != root; p = p.Parent {
				if p.Kind == kind {
					cur = p.Parent
					break
				}
			}
		case xml.CharData:
			txt := NewText(string(bytes.Clone(t)))
			txt.Loc = Loc{File: file, Offset: start}
			cur.AppendChild(txt)
		case xml.Comment, xml.ProcInst, xml.Directive:
			// Dropped: comments and directives carry no compiled content.
		}
	}

	return root, nil
}

// ParseString parses markup from a string. See Parse.
func ParseString(src, file string) (*Node, error) {
	return Parse(strings.NewReader(src), file)
}
