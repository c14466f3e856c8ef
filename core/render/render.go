// Package render produces the final document: front-matter boilerplate
// from the metadata block, a table of contents from the clause entries, and
// the serialized page.
package render

import (
	"sort"
	"strconv"
	"strings"

	"github.com/specmark/specmark/core/biblio"
	"github.com/specmark/specmark/core/dom"
	"github.com/specmark/specmark/internal/metadata"
)

// Boilerplate builds the document header: title, version line, and the
// copyright notice when the metadata asks for one.
func Boilerplate(meta *metadata.Document, year int) *dom.Node {
	head := dom.NewElement("div")
	head.SetAttr("class", "front")

	if meta.Title != "" {
		h := dom.NewElement("h1")
		h.SetAttr("class", "title")
		h.AppendChild(dom.NewText(meta.Title))
		head.AppendChild(h)
	}
	var line []string
	if meta.Version != "" {
		line = append(line, "Version "+meta.Version)
	}
	if meta.Status != "" {
		line = append(line, meta.Status)
	}
	if len(line) > 0 {
		p := dom.NewElement("p")
		p.SetAttr("class", "version")
		p.AppendChild(dom.NewText(strings.Join(line, " — ")))
		head.AppendChild(p)
	}
	if meta.Copyright {
		p := dom.NewElement("p")
		p.SetAttr("class", "copyright")
		notice := "© " + strconv.Itoa(year)
		if meta.Shortname != "" {
			notice += " " + meta.Shortname + " contributors"
		}
		p.AppendChild(dom.NewText(notice))
		head.AppendChild(p)
	}
	return head
}

type tocItem struct {
	path  []int
	entry *biblio.Entry
}

// TOC builds a nested ol from the clause entries. Clauses without a heading
// have nothing to show and are skipped; their subclauses still appear.
func TOC(b *biblio.Biblio) *dom.Node {
	var items []tocItem
	for _, e := range b.EntriesOfKind(biblio.Clause) {
		if e.Title == "" {
			continue
		}
		items = append(items, tocItem{path: numberPath(e.Number), entry: e})
	}
	// Clause entries register on exit, so subclauses precede their parents;
	// restore document order.
	sort.Slice(items, func(i, j int) bool {
		return lessPath(items[i].path, items[j].path)
	})

	root := dom.NewElement("ol")
	root.SetAttr("class", "toc")
	// Stack of list nodes by depth; items[i].path depth picks the parent.
	lists := []*dom.Node{root}
	for _, it := range items {
		depth := len(it.path)
		if depth < 1 {
			depth = 1
		}
		for len(lists) > depth {
			lists = lists[:len(lists)-1]
		}
		for len(lists) < depth {
			sub := dom.NewElement("ol")
			parent := lists[len(lists)-1]
			if parent.LastChild != nil {
				parent.LastChild.AppendChild(sub)
			} else {
				// A gap in numbering; attach directly rather than drop.
				parent.AppendChild(sub)
			}
			lists = append(lists, sub)
		}

		li := dom.NewElement("li")
		a := dom.NewElement("a")
		if it.entry.ID != "" {
			a.SetAttr("href", "#"+it.entry.ID)
		}
		num := dom.NewElement("span")
		num.SetAttr("class", "secnum")
		num.AppendChild(dom.NewText(it.entry.Number))
		a.AppendChild(num)
		a.AppendChild(dom.NewText(" " + it.entry.Title))
		li.AppendChild(a)
		lists[len(lists)-1].AppendChild(li)
	}
	return root
}

// Assemble wraps the compiled body in the page shell with the boilerplate
// and table of contents in front.
func Assemble(meta *metadata.Document, year int, body *dom.Node, b *biblio.Biblio) string {
	var sb strings.Builder
	sb.WriteString("<!doctype html>\n<html><head><meta charset=\"utf-8\"><title>")
	sb.WriteString(escapeTitle(meta.Title))
	sb.WriteString("</title></head>\n<body>\n")
	sb.WriteString(dom.Serialize(Boilerplate(meta, year)))
	sb.WriteString("\n")
	toc := TOC(b)
	if toc.FirstChild != nil {
		sb.WriteString(dom.Serialize(toc))
		sb.WriteString("\n")
	}
	sb.WriteString(dom.Serialize(body))
	sb.WriteString("\n</body></html>\n")
	return sb.String()
}

func numberPath(num string) []int {
	if num == "" {
		return nil
	}
	parts := strings.Split(num, ".")
	path := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		path = append(path, n)
	}
	return path
}

func lessPath(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

var titleEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeTitle(s string) string { return titleEscaper.Replace(s) }
