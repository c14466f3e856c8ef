// Command specmark compiles technical specification documents: it numbers
// clauses, resolves cross-references, autolinks defined terms, and renders
// the final page. It also exports bibliography snapshots for other
// documents to link against and serves live previews.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/specmark/specmark/core/biblstore"
	"github.com/specmark/specmark/core/compile"
	"github.com/specmark/specmark/core/diag"
	"github.com/specmark/specmark/core/dom"
	"github.com/specmark/specmark/internal/fragcache"
	"github.com/specmark/specmark/internal/logging"
	"github.com/specmark/specmark/internal/server"
)

const version = "0.2.0"

// CLI defines the command-line interface for specmark.
var CLI struct {
	LogLevel  string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format"`

	Build   BuildCmd    `cmd:"" help:"Compile a document to HTML"`
	Serve   ServeCmd    `cmd:"" help:"Serve a live preview that rebuilds on change"`
	Biblio  BiblioGroup `cmd:"" help:"Bibliography snapshot operations"`
	Inspect InspectCmd  `cmd:"" help:"Query raw document source with XPath"`
	Version VersionCmd  `cmd:"" help:"Print version information"`
}

// BiblioGroup contains bibliography snapshot operations.
type BiblioGroup struct {
	Export BiblioExportCmd `cmd:"" help:"Compile a document and export its bibliography snapshot"`
	Show   BiblioShowCmd   `cmd:"" help:"List the entries stored in a snapshot file or database"`
}

// BuildCmd compiles one document.
type BuildCmd struct {
	Source   string   `arg:"" help:"Document source file" type:"existingfile"`
	Out      string   `short:"o" help:"Output file (default: stdout)"`
	Location string   `help:"Document location override for snapshot and external hrefs"`
	Biblio   []string `help:"Extra external bibliography tables (JSON, JSON.xz, or SQLite)"`
	Strict   bool     `help:"Exit nonzero when the build produces diagnostics"`
}

func (c *BuildCmd) Run() error {
	s := compile.NewSession(compile.Options{
		SourcePath:  c.Source,
		Location:    c.Location,
		BiblioPaths: c.Biblio,
	})
	res, err := s.Run(context.Background())
	if err != nil {
		return err
	}
	printDiags(res.Diags)

	if c.Out == "" {
		fmt.Print(res.HTML)
	} else if err := os.WriteFile(c.Out, []byte(res.HTML), 0o644); err != nil {
		return err
	}
	if c.Strict && res.Diags.Count() > 0 {
		return fmt.Errorf("%d diagnostics", res.Diags.Count())
	}
	return nil
}

// ServeCmd runs the preview server.
type ServeCmd struct {
	Source string   `arg:"" help:"Document source file" type:"existingfile"`
	Addr   string   `default:"localhost:8045" help:"Listen address"`
	Biblio []string `help:"Extra external bibliography tables"`
}

func (c *ServeCmd) Run() error {
	// One fragment cache across rebuilds; unchanged imports parse once.
	cache := fragcache.New[*dom.Node](256)
	srv := &server.Server{
		Addr:      c.Addr,
		SourceDir: filepath.Dir(c.Source),
		Build: func(ctx context.Context) (string, *diag.List, error) {
			s := compile.NewSession(compile.Options{
				SourcePath:    c.Source,
				BiblioPaths:   c.Biblio,
				FragmentCache: cache,
			})
			res, err := s.Run(ctx)
			if err != nil {
				return "", nil, err
			}
			return res.HTML, res.Diags, nil
		},
	}
	return srv.ListenAndServe(context.Background())
}

// BiblioExportCmd compiles and writes the snapshot.
type BiblioExportCmd struct {
	Source   string `arg:"" help:"Document source file" type:"existingfile"`
	Out      string `short:"o" required:"" help:"Snapshot destination (.json, .json.xz, .db)"`
	Location string `help:"Document location override"`
}

func (c *BiblioExportCmd) Run() error {
	s := compile.NewSession(compile.Options{
		SourcePath: c.Source,
		Location:   c.Location,
	})
	res, err := s.Run(context.Background())
	if err != nil {
		return err
	}
	printDiags(res.Diags)

	switch strings.ToLower(filepath.Ext(c.Out)) {
	case ".db", ".sqlite", ".sqlite3":
		store, err := biblstore.Open(c.Out)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Save(context.Background(), res.Snapshot)
	default:
		return biblstore.WriteFile(c.Out, res.Snapshot)
	}
}

// BiblioShowCmd lists stored snapshot entries.
type BiblioShowCmd struct {
	Path string `arg:"" help:"Snapshot file or database" type:"existingfile"`
}

func (c *BiblioShowCmd) Run() error {
	snaps, err := biblstore.ReadAny(context.Background(), c.Path)
	if err != nil {
		return err
	}
	for _, snap := range snaps {
		fmt.Printf("%s (%d entries)\n", snap.Location, len(snap.Entries))
		for _, e := range snap.Entries {
			line := fmt.Sprintf("  %-10s %-24s %s", e.Kind, e.ID, e.Key)
			if e.Number != "" {
				line += " [" + e.Number + "]"
			}
			fmt.Println(line)
		}
	}
	return nil
}

// InspectCmd evaluates an XPath expression against the raw source.
type InspectCmd struct {
	Source string `arg:"" help:"Document source file" type:"existingfile"`
	Query  string `arg:"" help:"XPath expression"`
	Outer  bool   `help:"Print matched markup instead of inner text"`
}

func (c *InspectCmd) Run() error {
	src, err := os.ReadFile(c.Source)
	if err != nil {
		return err
	}
	var matches []string
	if c.Outer {
		matches, err = dom.QuerySourceOuter(src, c.Query)
	} else {
		matches, err = dom.QuerySource(src, c.Query)
	}
	if err != nil {
		return err
	}
	for _, m := range matches {
		fmt.Println(m)
	}
	return nil
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("specmark %s (sqlite driver: %s)\n", version, biblstore.DriverType())
	return nil
}

func printDiags(diags *diag.List) {
	for _, d := range diags.Items {
		fmt.Fprintln(os.Stderr, d.String())
	}
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("specmark"),
		kong.Description("Specification document compiler"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	var format logging.Format
	if CLI.LogFormat == "json" {
		format = logging.FormatJSON
	} else {
		format = logging.FormatText
	}
	logging.InitLogger(logging.ParseLevel(CLI.LogLevel), format)

	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
