// Package importer expands import elements by loading the referenced
// fragment files and splicing their content into the document tree before
// traversal. Fragment parses are cached by content hash, so a fragment
// imported from several places (or rebuilt unchanged in serve mode) is
// parsed once.
package importer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specmark/specmark/core/diag"
	"github.com/specmark/specmark/core/dom"
	"github.com/specmark/specmark/core/errors"
	"github.com/specmark/specmark/internal/fragcache"
)

// Loader expands imports relative to a base directory.
type Loader struct {
	// Cache holds parsed fragments keyed by content hash. Optional; nil
	// disables caching.
	Cache *fragcache.Cache[*dom.Node]

	// Diags receives non-fatal import problems (unreadable fragments).
	Diags diag.Sink
}

// Expand replaces the content of every import element under root with the
// parsed fragment it references. Nested imports resolve relative to the
// fragment's own directory. A fragment that transitively imports itself is
// an error.
func (l *Loader) Expand(ctx context.Context, root *dom.Node, baseDir string) error {
	return l.expand(ctx, root, baseDir, nil)
}

func (l *Loader) expand(ctx context.Context, root *dom.Node, baseDir string, chain []string) error {
	if err := ctx.Err(); err != nil {
		return errors.ErrCancelled
	}
	for _, imp := range dom.FindAll(root, func(n *dom.Node) bool { return n.Kind == "import" }) {
		href, ok := imp.Attr("href")
		if !ok || href == "" {
			l.report(diag.Diagnostic{
				Kind:    diag.Node,
				RuleID:  "import-missing-href",
				Message: "import element has no href",
				Node:    imp,
			})
			continue
		}
		path := href
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, href)
		}
		path = filepath.Clean(path)

		if i := indexOf(chain, path); i >= 0 {
			return &errors.LoadError{Path: path, Op: "import", Err: fmt.Errorf("import cycle: %v", append(chain[i:], path))}
		}

		frag, err := l.load(ctx, path)
		if err != nil {
			if errors.Is(err, errors.ErrCancelled) {
				return err
			}
			l.report(diag.Diagnostic{
				Kind:    diag.Node,
				RuleID:  "import-load",
				Message: err.Error(),
				Node:    imp,
			})
			continue
		}
		if err := l.expand(ctx, frag, filepath.Dir(path), append(chain, path)); err != nil {
			return err
		}

		// The import element stays as a wrapper so ids inside the fragment
		// keep a stable enclosing element; only its content is replaced.
		for c := imp.FirstChild; c != nil; c = imp.FirstChild {
			c.Detach()
		}
		for c := frag.FirstChild; c != nil; c = frag.FirstChild {
			c.Detach()
			imp.AppendChild(c)
		}
		imp.RemoveAttr("href")
		imp.SetAttr("source", href)
	}
	return nil
}

// load reads and parses one fragment, consulting the cache first. Cached
// trees are cloned on the way out so later mutation never corrupts the
// cache.
func (l *Loader) load(ctx context.Context, path string) (*dom.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCancelled
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.LoadError{Path: path, Op: "read", Err: err}
	}
	key := fragcache.KeyOf(data)
	if l.Cache != nil {
		if cached, ok := l.Cache.Get(key); ok {
			return cached.Clone(), nil
		}
	}
	frag, err := dom.Parse(bytes.NewReader(data), path)
	if err != nil {
		return nil, err
	}
	if l.Cache != nil {
		l.Cache.Put(key, frag.Clone())
	}
	return frag, nil
}

func (l *Loader) report(d diag.Diagnostic) {
	if l.Diags != nil {
		l.Diags.Report(d)
	}
}

func indexOf(chain []string, path string) int {
	for i, p := range chain {
		if p == path {
			return i
		}
	}
	return -1
}
