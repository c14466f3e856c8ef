// Package compile runs the build pipeline: metadata, external biblio,
// imports, the builder traversal, replacement-step and reference
// resolution, autolinking, and final page assembly.
package compile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/specmark/specmark/core/autolink"
	"github.com/specmark/specmark/core/biblio"
	"github.com/specmark/specmark/core/biblstore"
	"github.com/specmark/specmark/core/builders"
	"github.com/specmark/specmark/core/diag"
	"github.com/specmark/specmark/core/dom"
	"github.com/specmark/specmark/core/errors"
	"github.com/specmark/specmark/core/render"
	"github.com/specmark/specmark/core/resolver"
	"github.com/specmark/specmark/core/walker"
	"github.com/specmark/specmark/internal/fragcache"
	"github.com/specmark/specmark/internal/importer"
	"github.com/specmark/specmark/internal/logging"
	"github.com/specmark/specmark/internal/metadata"
)

// Options configures one compilation.
type Options struct {
	// SourcePath is the root document file.
	SourcePath string

	// Location overrides the metadata block's document location.
	Location string

	// BiblioPaths lists extra external bibliography tables (snapshot JSON,
	// JSON.xz, or SQLite databases) to import beyond those the metadata
	// block names. Metadata paths resolve relative to the source file.
	BiblioPaths []string

	// LinkPolicy configures autolinking inside algorithms. Zero value
	// means the default policy.
	LinkPolicy *autolink.Policy

	// FragmentCache, when set, is shared across sessions so serve-mode
	// rebuilds reuse unchanged import parses.
	FragmentCache *fragcache.Cache[*dom.Node]

	// Now stamps the copyright year; zero means time.Now.
	Now time.Time
}

// Result is a finished compilation.
type Result struct {
	HTML     string
	Meta     *metadata.Document
	Biblio   *biblio.Biblio
	Diags    *diag.List
	Snapshot *biblio.Snapshot
}

// Session is one compilation run. Sessions are single-use.
type Session struct {
	ID   string
	opts Options
}

// NewSession creates a session with a fresh id.
func NewSession(opts Options) *Session {
	return &Session{ID: uuid.NewString(), opts: opts}
}

// Run executes the pipeline. Diagnostics accumulate in the result; only
// unreadable input, malformed structure, and cancellation are errors.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	ctx = logging.WithSessionID(ctx, s.ID)
	log := logging.LoggerFromContext(ctx)
	start := time.Now()

	src, err := os.ReadFile(s.opts.SourcePath)
	if err != nil {
		return nil, &errors.LoadError{Path: s.opts.SourcePath, Op: "read", Err: err}
	}

	meta, err := metadata.FromSource(src)
	if err != nil {
		return nil, err
	}
	location := s.opts.Location
	if location == "" {
		location = meta.Location
	}

	sink := &diag.List{}
	bib := biblio.New()

	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCancelled
	}
	baseDir := filepath.Dir(s.opts.SourcePath)
	if err := s.loadExternalBiblio(ctx, bib, meta, baseDir, sink); err != nil {
		return nil, err
	}

	root, err := dom.Parse(bytes.NewReader(src), s.opts.SourcePath)
	if err != nil {
		return nil, err
	}
	metadata.Strip(root)

	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCancelled
	}
	loader := &importer.Loader{Cache: s.opts.FragmentCache, Diags: sink}
	if err := loader.Expand(ctx, root, baseDir); err != nil {
		return nil, err
	}

	reg, err := builders.DefaultRegistry()
	if err != nil {
		return nil, err
	}
	tc := walker.NewContext(bib, sink)
	w := &walker.Walker{Registry: reg, ExpandInline: builders.ExpandInline}
	if err := w.Walk(ctx, tc, root); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCancelled
	}
	(&resolver.StepResolver{Biblio: bib, Diags: sink}).Resolve(tc.Replacements)
	(&resolver.RefResolver{Biblio: bib, Diags: sink}).Resolve(tc.Refs)

	policy := autolink.DefaultPolicy()
	if s.opts.LinkPolicy != nil {
		policy = *s.opts.LinkPolicy
	}
	(&autolink.Linker{Biblio: bib, Policy: policy}).Run(tc.Spans)

	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCancelled
	}
	now := s.opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	html := render.Assemble(meta, now.Year(), root, bib)

	log.Info("compiled",
		"source", s.opts.SourcePath,
		"entries", len(bib.Entries()),
		"diagnostics", sink.Count(),
		"elapsed", time.Since(start))

	return &Result{
		HTML:     html,
		Meta:     meta,
		Biblio:   bib,
		Diags:    sink,
		Snapshot: bib.Snapshot(location, s.ID),
	}, nil
}

// loadExternalBiblio imports every configured bibliography table, metadata
// paths first, then option paths, preserving order for lookup precedence.
func (s *Session) loadExternalBiblio(ctx context.Context, bib *biblio.Biblio, meta *metadata.Document, baseDir string, sink diag.Sink) error {
	var paths []string
	for _, p := range meta.Biblio {
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		paths = append(paths, p)
	}
	paths = append(paths, s.opts.BiblioPaths...)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return errors.ErrCancelled
		}
		snaps, err := biblstore.ReadAny(ctx, path)
		if err != nil {
			sink.Report(diag.Diagnostic{
				Kind:    diag.Global,
				RuleID:  "biblio-load",
				Message: err.Error(),
			})
			continue
		}
		for _, snap := range snaps {
			bib.ImportExternal(snap.Location, snap.Entries)
		}
	}
	return nil
}
