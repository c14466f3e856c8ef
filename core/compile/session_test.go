package compile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/specmark/specmark/core/errors"
)

const mainDoc = `<pre class="metadata">
title: Widget Specification
shortname: widgets
version: "1.0"
location: https://example.org/widgets/
copyright: true
</pre>
<clause id="sec-overview">
<h1>Overview</h1>
<p>A <dfn id="t-widget">widget</dfn> does things. Every widget has parts.</p>
</clause>
<clause id="sec-algs">
<h1>Algorithms</h1>
<alg id="alg-main" aoid="RunWidget"><ol>
<li id="step-a">Let the widget warm up.</li>
<li id="step-b">Call RunWidget again. See <xref target="sec-overview"></xref>.</li>
</ol></alg>
<alg id="alg-patch" replaces-step="step-b"><ol>
<li id="step-b1">Do less.</li>
</ol></alg>
</clause>
<import href="extra.html"></import>
`

const extraDoc = `<clause id="sec-extra"><h1>Extra</h1><p>Imported widget prose.</p></clause>`

func writeDoc(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.html"), []byte(mainDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "extra.html"), []byte(extraDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, "main.html")
}

func TestSessionRun(t *testing.T) {
	s := NewSession(Options{
		SourcePath: writeDoc(t),
		Now:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Diags.Count() != 0 {
		t.Fatalf("diagnostics: %v", res.Diags.Items)
	}

	html := res.HTML
	checks := map[string]string{
		"boilerplate title":    `<h1 class="title">Widget Specification</h1>`,
		"copyright year":       `© 2026 widgets contributors`,
		"toc entry":            `<a href="#sec-overview"><span class="secnum">1</span> Overview</a>`,
		"clause secnum":        `<span class="secnum">1</span>Overview`,
		"autolinked term":      `<ref class="autolink" href="#t-widget">widget</ref>`,
		"resolved xref":        `href="#sec-overview"`,
		"replacement start":    `start="2"`,
		"imported clause":      `id="sec-extra"`,
		"metadata block gone":  `<!doctype html>`,
	}
	for what, want := range checks {
		if !strings.Contains(html, want) {
			t.Errorf("%s missing (%q):\n%s", what, want, html)
		}
	}
	if strings.Contains(html, `class="metadata"`) {
		t.Error("metadata block leaked into output")
	}

	// Definition text must not autolink to itself.
	if strings.Contains(html, `<dfn id="t-widget"><ref`) {
		t.Error("dfn content was autolinked")
	}

	// The snapshot carries the document location and the defined entries.
	if res.Snapshot.Location != "https://example.org/widgets/" {
		t.Errorf("snapshot location = %q", res.Snapshot.Location)
	}
	if len(res.Snapshot.Entries) == 0 {
		t.Error("snapshot has no entries")
	}
}

func TestSessionReplacementStepPaths(t *testing.T) {
	s := NewSession(Options{SourcePath: writeDoc(t)})
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	b1, ok := res.Biblio.LookupID("step-b1")
	if !ok {
		t.Fatal("no entry for replacement step")
	}
	if !b1.PathKnown {
		t.Fatal("replacement step path never resolved")
	}
	// step-b sits at [2]; the replacement's first step grafts beneath it.
	want := []int{2, 1}
	if len(b1.Path) != len(want) || b1.Path[0] != want[0] || b1.Path[1] != want[1] {
		t.Errorf("path = %v, want %v", b1.Path, want)
	}
}

func TestSessionExternalBiblio(t *testing.T) {
	dir := t.TempDir()
	doc := `<pre class="metadata">
title: Consumer
biblio:
  - host.json
</pre>
<clause id="sec-a"><h1>A</h1><p>See <xref>HostThing</xref>.</p></clause>
`
	host := `{"location":"https://example.org/host/","entries":[` +
		`{"kind":"term","id":"t-host","namespace":"global","key":"HostThing"}]}`
	if err := os.WriteFile(filepath.Join(dir, "main.html"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "host.json"), []byte(host), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSession(Options{SourcePath: filepath.Join(dir, "main.html")})
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := len(res.Diags.ByRule("ref-unresolved")); got != 0 {
		t.Fatalf("external reference did not resolve: %v", res.Diags.Items)
	}
	if !strings.Contains(res.HTML, `https://example.org/host/#t-host`) {
		t.Errorf("external href missing:\n%s", res.HTML)
	}

	// External entries never re-export.
	for _, e := range res.Snapshot.Entries {
		if e.ID == "t-host" {
			t.Error("imported external entry leaked into the snapshot")
		}
	}
}

func TestSessionMissingBiblioIsDiagnostic(t *testing.T) {
	dir := t.TempDir()
	doc := `<pre class="metadata">
biblio:
  - nope.json
</pre>
<p>body</p>
`
	if err := os.WriteFile(filepath.Join(dir, "main.html"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewSession(Options{SourcePath: filepath.Join(dir, "main.html")})
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("unreadable biblio table should not abort: %v", err)
	}
	if got := len(res.Diags.ByRule("biblio-load")); got != 1 {
		t.Errorf("got %d biblio-load diagnostics, want 1", got)
	}
}

func TestSessionCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSession(Options{SourcePath: writeDoc(t)})
	if _, err := s.Run(ctx); !errors.Is(err, errors.ErrCancelled) {
		t.Errorf("err = %v, want ErrCancelled", err)
	}
}

func TestSessionMissingSource(t *testing.T) {
	s := NewSession(Options{SourcePath: filepath.Join(t.TempDir(), "absent.html")})
	if _, err := s.Run(context.Background()); err == nil {
		t.Error("missing source must be an error")
	}
}
