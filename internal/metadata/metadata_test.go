package metadata

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specmark/specmark/core/dom"
)

const sample = `<body>
<pre class="metadata">
title: Widget Specification
shortname: widgets
status: draft
version: "2.3"
location: https://example.org/widgets/
biblio:
  - deps/host.json
copyright: true
</pre>
<clause id="intro"><h1>Intro</h1></clause>
</body>`

func TestFromSource(t *testing.T) {
	d, err := FromSource([]byte(sample))
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	want := &Document{
		Title:     "Widget Specification",
		Shortname: "widgets",
		Status:    "draft",
		Version:   "2.3",
		Location:  "https://example.org/widgets/",
		Biblio:    []string{"deps/host.json"},
		Copyright: true,
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("metadata (-want +got):\n%s", diff)
	}
}

func TestFromSourceNoBlock(t *testing.T) {
	d, err := FromSource([]byte(`<p>no metadata here</p>`))
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	if d.Title != "" || len(d.Biblio) != 0 {
		t.Errorf("expected empty document, got %+v", d)
	}
}

func TestFromSourceBadYAML(t *testing.T) {
	src := `<pre class="metadata">title: [unclosed</pre>`
	if _, err := FromSource([]byte(src)); err == nil {
		t.Error("malformed metadata should be an error")
	}
}

func TestStrip(t *testing.T) {
	root, err := dom.ParseString(sample, "test.html")
	if err != nil {
		t.Fatal(err)
	}
	if !Strip(root) {
		t.Fatal("Strip found no block")
	}
	if dom.FindKind(root, "pre") != nil {
		t.Error("metadata block still present after Strip")
	}
	if dom.FindKind(root, "clause") == nil {
		t.Error("Strip removed more than the metadata block")
	}
}
