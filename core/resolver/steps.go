package resolver

import (
	"slices"
	"strconv"
	"strings"

	"github.com/specmark/specmark/core/biblio"
	"github.com/specmark/specmark/core/diag"
	"github.com/specmark/specmark/core/walker"
)

// StepResolver computes final nested step-number paths for algorithms that
// replace a single step of another algorithm, including chains of
// replacements. It is a single-pass topological propagation with on-demand
// reactivation: resolving one declaration can only unblock declarations
// pending on step ids that resolution just made known.
type StepResolver struct {
	Biblio *biblio.Biblio
	Diags  diag.Sink

	pending map[string][]*walker.ReplacementDecl
}

// nestingClass maps a target path length to the visual nesting class.
// Depths past five share one terminal class.
func nestingClass(pathLen int) string {
	switch pathLen {
	case 1:
		return ""
	case 2:
		return "nested-once"
	case 3:
		return "nested-twice"
	case 4:
		return "nested-thrice"
	case 5:
		return "nested-four-times"
	}
	return "nested-lots"
}

// Resolve processes every replacement declaration. Declarations whose target
// path is not yet known wait on that target; when a declaration resolves,
// its steps become known and any declarations waiting on them resolve
// recursively. Whatever is still pending afterwards is a cycle or an
// unreachable chain: exactly one global diagnostic is reported and the
// affected algorithms keep their default numbering.
func (r *StepResolver) Resolve(decls []*walker.ReplacementDecl) {
	r.pending = make(map[string][]*walker.ReplacementDecl)

	for _, d := range decls {
		r.resolveOne(d)
	}

	if len(r.pending) == 0 {
		return
	}
	ids := make([]string, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	// One diagnostic for the whole stuck set, never one per declaration.
	if r.Diags != nil {
		r.Diags.Report(diag.Diagnostic{
			Kind:   diag.Global,
			RuleID: "replacement-cycle",
			Message: "could not unambiguously determine replacement step numbering: " +
				"replacement chain through " + strings.Join(sorted(ids), ", ") +
				" depends on itself or on an unreachable step",
		})
	}
}

func (r *StepResolver) resolveOne(d *walker.ReplacementDecl) {
	target, ok := r.Biblio.LookupID(d.TargetID)
	if !ok {
		r.report(d, "replacement-missing-target", "no step with id "+strconv.Quote(d.TargetID))
		return
	}
	if target.Kind != biblio.Step {
		r.report(d, "replacement-missing-target",
			strconv.Quote(d.TargetID)+" is a "+target.Kind.String()+", not an algorithm step")
		return
	}
	if !target.PathKnown {
		// The target belongs to an algorithm that is itself an unresolved
		// replacement; defer until its path propagates.
		r.pending[target.ID] = append(r.pending[target.ID], d)
		return
	}
	r.finalize(d, target)
}

func (r *StepResolver) finalize(d *walker.ReplacementDecl, target *biblio.Entry) {
	start := target.Path[len(target.Path)-1]
	d.Alg.SetAttr("start", strconv.Itoa(start))
	if class := nestingClass(len(target.Path)); class != "" {
		existing := d.Alg.AttrOr("class", "")
		if existing != "" {
			class = existing + " " + class
		}
		d.Alg.SetAttr("class", class)
	}
	if algID := d.Alg.ID(); algID != "" {
		r.Biblio.RecordReference(target.ID, algID)
	}

	// Every step inside the replacing algorithm now has a final path: the
	// target's path with the step's algorithm-local path grafted on. Local
	// paths are recorded relative to the replaced slot, so nothing else
	// needs dropping here.
	newlyKnown := make([]*biblio.Entry, 0, len(d.Steps))
	for _, s := range d.Steps {
		final := make([]int, 0, len(target.Path)+len(s.Path))
		final = append(final, target.Path...)
		final = append(final, s.Path...)
		s.Path = final
		s.PathKnown = true
		newlyKnown = append(newlyKnown, s)
	}

	// Reactivate only declarations pending on ids made known right here.
	for _, s := range newlyKnown {
		waiters := r.pending[s.ID]
		if waiters == nil {
			continue
		}
		delete(r.pending, s.ID)
		for _, w := range waiters {
			r.finalize(w, s)
		}
	}
}

func (r *StepResolver) report(d *walker.ReplacementDecl, rule, msg string) {
	if r.Diags != nil {
		r.Diags.Report(diag.Diagnostic{Kind: diag.Node, RuleID: rule, Message: msg, Node: d.Alg})
	}
}

func sorted(ids []string) []string {
	out := append([]string(nil), ids...)
	slices.Sort(out)
	return out
}
