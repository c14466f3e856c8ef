package autolink

import (
	"context"
	"strings"
	"testing"

	"github.com/specmark/specmark/core/biblio"
	"github.com/specmark/specmark/core/diag"
	"github.com/specmark/specmark/core/dom"
	"github.com/specmark/specmark/core/walker"
)

func define(t *testing.T, b *biblio.Biblio, e *biblio.Entry) {
	t.Helper()
	if e.Namespace == "" {
		e.Namespace = biblio.GlobalNamespace
	}
	if err := b.Define(e); err != nil {
		t.Fatal(err)
	}
}

func spanFor(text string) (*dom.Node, *walker.TextSpan) {
	p := dom.NewElement("p")
	txt := dom.NewText(text)
	p.AppendChild(txt)
	return p, &walker.TextSpan{Node: txt, Namespace: biblio.GlobalNamespace}
}

func TestBasicLinking(t *testing.T) {
	b := biblio.New()
	define(t, b, &biblio.Entry{Kind: biblio.Term, ID: "t-widget", Key: "widget"})

	p, span := spanFor("a widget appears")
	l := &Linker{Biblio: b, Policy: DefaultPolicy()}
	l.Run([]*walker.TextSpan{span})

	got := dom.Serialize(p)
	want := `<p>a <ref class="autolink" href="#t-widget">widget</ref> appears</p>`
	if got != want {
		t.Errorf("serialized:\n got %s\nwant %s", got, want)
	}
}

func TestLongestMatchFirst(t *testing.T) {
	b := biblio.New()
	define(t, b, &biblio.Entry{Kind: biblio.Term, ID: "t-short", Key: "abstract"})
	define(t, b, &biblio.Entry{Kind: biblio.Term, ID: "t-long", Key: "abstract operation"})

	p, span := spanFor("an abstract operation runs")
	l := &Linker{Biblio: b, Policy: DefaultPolicy()}
	l.Run([]*walker.TextSpan{span})

	got := dom.Serialize(p)
	if !strings.Contains(got, `href="#t-long">abstract operation</ref>`) {
		t.Errorf("longest candidate did not win:\n%s", got)
	}
	if strings.Contains(got, "#t-short") {
		t.Errorf("shorter candidate matched inside the longer one:\n%s", got)
	}
}

func TestWordBoundaries(t *testing.T) {
	b := biblio.New()
	define(t, b, &biblio.Entry{Kind: biblio.Term, ID: "t-widget", Key: "widget"})

	p, span := spanFor("widgets are not a widget match for midwidget")
	l := &Linker{Biblio: b, Policy: DefaultPolicy()}
	l.Run([]*walker.TextSpan{span})

	got := dom.Serialize(p)
	if strings.Count(got, "<ref") != 1 {
		t.Errorf("expected exactly one link:\n%s", got)
	}
	if !strings.Contains(got, `>widget</ref> match`) {
		t.Errorf("standalone occurrence not linked:\n%s", got)
	}
}

func TestAlgorithmPolicy(t *testing.T) {
	b := biblio.New()
	define(t, b, &biblio.Entry{Kind: biblio.Term, ID: "t-term", Key: "fancy term"})
	define(t, b, &biblio.Entry{Kind: biblio.Operation, ID: "ao-Get", Key: "Get"})

	p := dom.NewElement("li")
	txt := dom.NewText("call Get on the fancy term")
	p.AppendChild(txt)
	span := &walker.TextSpan{Node: txt, Namespace: biblio.GlobalNamespace, InAlg: true}

	l := &Linker{Biblio: b, Policy: DefaultPolicy()}
	l.Run([]*walker.TextSpan{span})

	got := dom.Serialize(p)
	if !strings.Contains(got, "#ao-Get") {
		t.Errorf("operations should link inside algorithms:\n%s", got)
	}
	if strings.Contains(got, "#t-term") {
		t.Errorf("terms should not link inside algorithms under the default policy:\n%s", got)
	}
}

func TestNoSelfLink(t *testing.T) {
	b := biblio.New()
	define(t, b, &biblio.Entry{Kind: biblio.Term, ID: "t-widget", Key: "widget"})

	p, span := spanFor("a widget is a widget")
	span.NearestID = "t-widget" // text sits inside the definition itself
	l := &Linker{Biblio: b, Policy: DefaultPolicy()}
	l.Run([]*walker.TextSpan{span})

	if strings.Contains(dom.Serialize(p), "<ref") {
		t.Errorf("definition text must not link to itself:\n%s", dom.Serialize(p))
	}
}

func TestAliasesLink(t *testing.T) {
	b := biblio.New()
	define(t, b, &biblio.Entry{Kind: biblio.Term, ID: "t-rec", Key: "record", Aliases: []string{"records"}})

	p, span := spanFor("two records exist")
	l := &Linker{Biblio: b, Policy: DefaultPolicy()}
	l.Run([]*walker.TextSpan{span})

	if !strings.Contains(dom.Serialize(p), `>records</ref>`) {
		t.Errorf("alias did not link:\n%s", dom.Serialize(p))
	}
}

func TestNamespaceVisibility(t *testing.T) {
	b := biblio.New()
	define(t, b, &biblio.Entry{Kind: biblio.Term, ID: "t-local", Namespace: "ns-a", Key: "gadget"})

	// Span in an unrelated namespace: the local-only term is invisible.
	p, span := spanFor("a gadget here")
	span.Namespace = "ns-b"
	l := &Linker{Biblio: b, Policy: DefaultPolicy()}
	l.Run([]*walker.TextSpan{span})

	if strings.Contains(dom.Serialize(p), "<ref") {
		t.Errorf("namespace-local term linked outside its namespace:\n%s", dom.Serialize(p))
	}
}

func TestIdempotentOverRenderedOutput(t *testing.T) {
	// Compile a fragment, then re-walk the rendered output: text inside
	// the spliced ref elements is suppressed, so a second pass must not
	// re-wrap previously linked text.
	b := biblio.New()
	define(t, b, &biblio.Entry{Kind: biblio.Term, ID: "t-widget", Key: "widget"})

	p, span := spanFor("a widget appears")
	l := &Linker{Biblio: b, Policy: DefaultPolicy()}
	l.Run([]*walker.TextSpan{span})
	rendered := dom.Serialize(p)

	root, err := dom.ParseString(rendered, "")
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	tc := walker.NewContext(b, &diag.List{})
	if err := (&walker.Walker{}).Walk(context.Background(), tc, root); err != nil {
		t.Fatalf("walk: %v", err)
	}
	l2 := &Linker{Biblio: b, Policy: DefaultPolicy()}
	l2.Run(tc.Spans)

	if got := dom.Serialize(root); got != rendered {
		t.Errorf("second pass changed output:\n first %s\nsecond %s", rendered, got)
	}
}
