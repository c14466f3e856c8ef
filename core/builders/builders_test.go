package builders

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specmark/specmark/core/biblio"
	"github.com/specmark/specmark/core/diag"
	"github.com/specmark/specmark/core/dom"
	"github.com/specmark/specmark/core/walker"
)

func compileFragment(t *testing.T, src string) (*walker.Context, *diag.List, *dom.Node) {
	t.Helper()
	root, err := dom.ParseString(src, "test.html")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	sink := &diag.List{}
	tc := walker.NewContext(biblio.New(), sink)
	w := &walker.Walker{Registry: reg, ExpandInline: ExpandInline}
	if err := w.Walk(context.Background(), tc, root); err != nil {
		t.Fatalf("walk: %v", err)
	}
	return tc, sink, root
}

func TestAlgorithmStepEntries(t *testing.T) {
	src := `<alg id="alg-a" aoid="DoThing"><ol>` +
		`<li id="s1">first</li>` +
		`<li>second<ol><li id="s2a">nested</li></ol></li>` +
		`</ol></alg>`
	tc, sink, _ := compileFragment(t, src)
	if sink.Count() != 0 {
		t.Fatalf("diagnostics: %v", sink.Items)
	}

	s1, ok := tc.Biblio.LookupID("s1")
	if !ok {
		t.Fatal("no entry for s1")
	}
	if diff := cmp.Diff([]int{1}, s1.Path); diff != "" {
		t.Errorf("s1 path (-want +got):\n%s", diff)
	}
	if !s1.PathKnown {
		t.Error("non-replacement algorithm steps have final paths immediately")
	}

	s2a, ok := tc.Biblio.LookupID("s2a")
	if !ok {
		t.Fatal("no entry for s2a")
	}
	if diff := cmp.Diff([]int{2, 1}, s2a.Path); diff != "" {
		t.Errorf("s2a path (-want +got):\n%s", diff)
	}

	if _, ok := tc.Biblio.LookupID("ao-DoThing"); !ok {
		t.Error("aoid on alg should define an operation entry")
	}
}

func TestReplacementDeclarationCollected(t *testing.T) {
	src := `<alg id="alg-r" replaces-step="target-step"><ol><li id="r1">x</li><li id="r2">y</li></ol></alg>`
	tc, _, _ := compileFragment(t, src)

	if len(tc.Replacements) != 1 {
		t.Fatalf("got %d replacement declarations, want 1", len(tc.Replacements))
	}
	d := tc.Replacements[0]
	if d.TargetID != "target-step" {
		t.Errorf("TargetID = %q", d.TargetID)
	}
	if len(d.Steps) != 2 {
		t.Fatalf("collected %d steps, want 2", len(d.Steps))
	}
	if d.Steps[0].PathKnown {
		t.Error("replacement algorithm steps must stay provisional until resolution")
	}
}

func TestTermDefinition(t *testing.T) {
	src := `<clause id="c" namespace="ns"><h1>T</h1><p>A <dfn id="t-rec" variants="records">record</dfn> holds state.</p></clause>`
	tc, sink, _ := compileFragment(t, src)
	if sink.Count() != 0 {
		t.Fatalf("diagnostics: %v", sink.Items)
	}

	e, ok := tc.Biblio.LookupID("t-rec")
	if !ok {
		t.Fatal("no term entry")
	}
	if e.Key != "record" || e.Namespace != "ns" {
		t.Errorf("entry = %+v", e)
	}
	if diff := cmp.Diff([]string{"records"}, e.Aliases); diff != "" {
		t.Errorf("aliases (-want +got):\n%s", diff)
	}
}

func TestXrefDeferred(t *testing.T) {
	src := `<p><xref target="sec-later"></xref> and <xref>some term</xref></p>`
	tc, _, _ := compileFragment(t, src)

	if len(tc.Refs) != 2 {
		t.Fatalf("got %d deferred refs, want 2", len(tc.Refs))
	}
	if tc.Refs[0].ExplicitID != "sec-later" {
		t.Errorf("ExplicitID = %q", tc.Refs[0].ExplicitID)
	}
	if tc.Refs[1].Key != "some term" {
		t.Errorf("Key = %q", tc.Refs[1].Key)
	}
}

func TestGrammarConversion(t *testing.T) {
	src := `<grammar>List : Item "," Tail?</grammar><p>Uses <nt>List</nt>.</p>`
	tc, sink, root := compileFragment(t, src)
	if sink.Count() != 0 {
		t.Fatalf("diagnostics: %v", sink.Items)
	}

	if _, ok := tc.Biblio.LookupID("prod-List"); !ok {
		t.Error("grammar definition should register a production entry")
	}
	if dom.FindKind(root, "production") == nil {
		t.Error("grammar notation was not converted to production markup")
	}

	// Only the nt outside the grammar block is a reference.
	if len(tc.Refs) != 1 {
		t.Fatalf("got %d deferred refs, want 1", len(tc.Refs))
	}
	if tc.Refs[0].Key != "List" {
		t.Errorf("Key = %q", tc.Refs[0].Key)
	}
}

func TestGrammarFallbackOnBadNotation(t *testing.T) {
	src := `<grammar>this is :: not ! notation</grammar>`
	_, sink, root := compileFragment(t, src)

	if got := len(sink.ByRule("grammar-convert")); got != 1 {
		t.Fatalf("got %d grammar-convert diagnostics, want 1", got)
	}
	g := dom.FindKind(root, "grammar")
	if !strings.Contains(g.Text(), "not ! notation") {
		t.Error("unconvertible grammar should keep its raw text")
	}
}

func TestFigureNumbering(t *testing.T) {
	src := `<figure id="fig-a"><caption>First</caption></figure>` +
		`<table id="tbl-a"><caption>Only table</caption></table>` +
		`<figure id="fig-b"><caption>Second</caption></figure>`
	tc, _, root := compileFragment(t, src)

	figB, ok := tc.Biblio.LookupID("fig-b")
	if !ok {
		t.Fatal("no entry for fig-b")
	}
	if figB.Number != "2" {
		t.Errorf("fig-b number = %q, want 2 (tables number independently)", figB.Number)
	}
	tbl, _ := tc.Biblio.LookupID("tbl-a")
	if tbl == nil || tbl.Number != "1" {
		t.Errorf("tbl-a = %+v", tbl)
	}

	capt := dom.FindKind(root, "caption")
	if got := capt.Text(); got != "Figure 1: First" {
		t.Errorf("caption = %q", got)
	}
}

func TestClauseHeadingGetsSectionNumber(t *testing.T) {
	src := `<clause id="a"><h1>Alpha</h1><clause id="b"><h1>Beta</h1></clause></clause>`
	_, _, root := compileFragment(t, src)

	headings := dom.FindAll(root, func(n *dom.Node) bool { return n.Kind == "h1" })
	if len(headings) != 2 {
		t.Fatalf("got %d headings", len(headings))
	}
	if got := headings[0].Text(); got != "1Alpha" {
		t.Errorf("outer heading = %q, want secnum prefix 1", got)
	}
	if got := headings[1].Text(); got != "1.1Beta" {
		t.Errorf("inner heading = %q, want secnum prefix 1.1", got)
	}
}

func TestCodeHighlighting(t *testing.T) {
	src := `<pre class="code" lang="go">func f()</pre><pre>func g()</pre>`
	_, sink, root := compileFragment(t, src)
	if sink.Count() != 0 {
		t.Fatalf("diagnostics: %v", sink.Items)
	}

	out := dom.Serialize(root)
	if !strings.Contains(out, `<span class="hl-keyword">func</span> f()`) {
		t.Errorf("code block not highlighted:\n%s", out)
	}
	if !strings.Contains(out, `<pre>func g()</pre>`) {
		t.Errorf("plain pre block was rewritten:\n%s", out)
	}
}

func TestExpandInline(t *testing.T) {
	p := dom.NewElement("p")
	txt := dom.NewText("plain *emphatic* tail *again* end")
	p.AppendChild(txt)

	if !ExpandInline(txt) {
		t.Fatal("ExpandInline reported no splice")
	}
	got := dom.Serialize(p)
	want := `<p>plain <em>emphatic</em> tail <em>again</em> end</p>`
	if got != want {
		t.Errorf("got %s\nwant %s", got, want)
	}
}

func TestExpandInlineNoMarkers(t *testing.T) {
	txt := dom.NewText("2 * 3 * 4")
	if ExpandInline(txt) {
		t.Error("spaced asterisks must not become emphasis")
	}
}
