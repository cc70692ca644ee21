// Command gopml is the CLI tool for working with GPML pathway files.
// It inspects, validates, and converts pathway documents, and maintains
// a local SQLite catalog of pathways.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/gopml/gopml/core/gpml"
	"github.com/gopml/gopml/core/model"
	"github.com/gopml/gopml/core/store"
	"github.com/gopml/gopml/internal/archive"
	"github.com/gopml/gopml/internal/logging"
)

const version = "0.1.0"

// CLI defines the command-line interface for gopml.
var CLI struct {
	LogLevel string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`

	Info     InfoCmd      `cmd:"" help:"Show a pathway document's summary"`
	Validate ValidateCmd  `cmd:"" help:"Check that pathway documents parse cleanly"`
	Convert  ConvertCmd   `cmd:"" help:"Convert a pathway document between format versions"`
	Hash     HashCmd      `cmd:"" help:"Print a pathway's model hash"`
	Find     FindCmd      `cmd:"" help:"Find elements by external database reference"`
	Catalog  CatalogGroup `cmd:"" help:"Local pathway catalog operations"`
	Version  VersionCmd   `cmd:"" help:"Print version information"`
}

// loadPathway reads and parses a pathway file, decompressing by suffix.
func loadPathway(path string) ([]byte, *gpml.Document, *model.Pathway, error) {
	data, err := archive.ReadFile(path)
	if err != nil {
		return nil, nil, nil, err
	}
	doc, err := gpml.Parse(data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	p, err := gpml.ReadDocument(doc)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, doc, p, nil
}

// InfoCmd shows a pathway document's summary.
type InfoCmd struct {
	Path string `arg:"" help:"Pathway file (.gpml, .gpml.gz, .gpml.xz)" type:"existingfile"`
}

func (c *InfoCmd) Run() error {
	_, doc, p, err := loadPathway(c.Path)
	if err != nil {
		return err
	}

	fmt.Printf("Pathway: %s\n", c.Path)
	fmt.Printf("  Format: %s\n", doc.Version())
	fmt.Printf("  Title: %s\n", p.Title)
	if p.Organism != "" {
		fmt.Printf("  Organism: %s\n", p.Organism)
	}
	fmt.Printf("  Data nodes: %d\n", len(p.DataNodes()))
	fmt.Printf("  States: %d\n", len(p.States()))
	fmt.Printf("  Interactions: %d\n", len(p.Interactions()))
	fmt.Printf("  Graphical lines: %d\n", len(p.GraphicalLines()))
	fmt.Printf("  Labels: %d\n", len(p.Labels()))
	fmt.Printf("  Shapes: %d\n", len(p.Shapes()))
	fmt.Printf("  Groups: %d\n", len(p.Groups()))
	fmt.Printf("  Annotations: %d\n", len(p.Annotations()))
	fmt.Printf("  Citations: %d\n", len(p.Citations()))
	fmt.Printf("  Evidences: %d\n", len(p.Evidences()))
	fmt.Printf("  Hash: %s\n", model.HashPathway(p))
	return nil
}

// ValidateCmd checks that pathway documents parse cleanly.
type ValidateCmd struct {
	Paths []string `arg:"" help:"Pathway files to validate" type:"existingfile"`
}

func (c *ValidateCmd) Run() error {
	failures := 0
	for _, path := range c.Paths {
		_, _, _, err := loadPathway(path)
		if err != nil {
			fmt.Printf("[FAIL] %s: %v\n", path, err)
			failures++
			continue
		}
		fmt.Printf("[OK]   %s\n", path)
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d documents failed validation", failures, len(c.Paths))
	}
	return nil
}

// ConvertCmd converts a pathway document between format versions.
type ConvertCmd struct {
	Path string `arg:"" help:"Input pathway file" type:"existingfile"`
	Out  string `required:"" help:"Output path (compression chosen by suffix)" type:"path"`
	To   string `default:"2021" enum:"2021,2013a" help:"Target format version"`
}

func (c *ConvertCmd) Run() error {
	_, _, p, err := loadPathway(c.Path)
	if err != nil {
		return err
	}

	var out []byte
	if c.To == "2013a" {
		out, err = gpml.WriteLegacy(p)
	} else {
		out, err = gpml.Write(p)
	}
	if err != nil {
		return fmt.Errorf("serialize pathway: %w", err)
	}
	if err := archive.WriteFile(c.Out, out); err != nil {
		return err
	}
	fmt.Printf("Converted: %s -> %s (GPML%s)\n", c.Path, c.Out, c.To)
	return nil
}

// HashCmd prints a pathway's model hash.
type HashCmd struct {
	Paths []string `arg:"" help:"Pathway files to hash" type:"existingfile"`
}

func (c *HashCmd) Run() error {
	for _, path := range c.Paths {
		_, _, p, err := loadPathway(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", model.HashPathway(p), path)
	}
	return nil
}

// FindCmd finds the elements carrying an external database reference,
// given in the compact datasource:identifier form.
type FindCmd struct {
	Xref  string   `arg:"" help:"Reference in datasource:identifier form (e.g. Ensembl:ENSG00000141510)"`
	Paths []string `arg:"" help:"Pathway files to search" type:"existingfile"`
}

func (c *FindCmd) Run() error {
	want, err := model.ParseXref(c.Xref)
	if err != nil {
		return err
	}
	total := 0
	for _, path := range c.Paths {
		_, _, p, err := loadPathway(path)
		if err != nil {
			return err
		}
		for _, hit := range findXrefTargets(p, want) {
			fmt.Printf("%s  %s\n", path, hit)
			total++
		}
	}
	if total == 0 {
		fmt.Printf("No elements reference %s.\n", want)
	}
	return nil
}

// findXrefTargets lists the model's elements whose xref matches.
func findXrefTargets(p *model.Pathway, want *model.Xref) []string {
	match := func(x *model.Xref) bool {
		return !x.IsEmpty() && x.DataSource == want.DataSource && x.ID == want.ID
	}
	var hits []string
	for _, n := range p.DataNodes() {
		if match(n.Xref) {
			hits = append(hits, fmt.Sprintf("datanode %s (%s)", n.ID(), n.TextLabel))
		}
	}
	for _, s := range p.States() {
		if match(s.Xref) {
			hits = append(hits, fmt.Sprintf("state %s (%s)", s.ID(), s.TextLabel))
		}
	}
	for _, in := range p.Interactions() {
		if match(in.Xref) {
			hits = append(hits, fmt.Sprintf("interaction %s", in.ID()))
		}
	}
	for _, g := range p.Groups() {
		if match(g.Xref) {
			hits = append(hits, fmt.Sprintf("group %s", g.ID()))
		}
	}
	for _, cit := range p.Citations() {
		if match(cit.Xref) {
			hits = append(hits, fmt.Sprintf("citation %s", cit.ID()))
		}
	}
	return hits
}

// CatalogGroup contains catalog operations.
type CatalogGroup struct {
	DB string `name:"db" default:"gopml.db" help:"Catalog database path" type:"path"`

	Add    CatalogAddCmd    `cmd:"" help:"Add pathway files to the catalog"`
	List   CatalogListCmd   `cmd:"" help:"List cataloged pathways"`
	Get    CatalogGetCmd    `cmd:"" help:"Write a cataloged pathway to a file"`
	Rm     CatalogRmCmd     `cmd:"" help:"Remove a pathway from the catalog"`
	Export CatalogExportCmd `cmd:"" help:"Export the catalog as a tar bundle"`
	Import CatalogImportCmd `cmd:"" help:"Import pathways from a tar bundle"`
}

// CatalogAddCmd adds pathway files to the catalog.
type CatalogAddCmd struct {
	Paths []string `arg:"" help:"Pathway files to add" type:"existingfile"`
}

func (c *CatalogAddCmd) Run(group *CatalogGroup) error {
	s, err := store.Open(group.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	for _, path := range c.Paths {
		data, doc, p, err := loadPathway(path)
		if err != nil {
			return err
		}
		rec := &store.Record{
			Name:     archive.BaseName(path),
			Title:    p.Title,
			Organism: p.Organism,
			Format:   string(doc.Version()),
			Hash:     model.HashPathway(p),
			Data:     data,
		}
		created, err := s.Put(ctx, rec)
		if err != nil {
			return err
		}
		verb := "Updated"
		if created {
			verb = "Added"
		}
		fmt.Printf("%s: %s (%s)\n", verb, rec.Name, rec.Hash[:12])
	}
	return nil
}

// CatalogListCmd lists cataloged pathways.
type CatalogListCmd struct{}

func (c *CatalogListCmd) Run(group *CatalogGroup) error {
	s, err := store.Open(group.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.List(context.Background())
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("Catalog is empty.")
		return nil
	}
	for _, rec := range recs {
		fmt.Printf("%-12s %-10s %-40s %s\n", rec.Name, rec.Format, rec.Title, rec.Organism)
	}
	return nil
}

// CatalogGetCmd writes a cataloged pathway to a file.
type CatalogGetCmd struct {
	Name string `arg:"" help:"Pathway name"`
	Out  string `help:"Output path (default: stdout)" type:"path"`
}

func (c *CatalogGetCmd) Run(group *CatalogGroup) error {
	s, err := store.Open(group.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.Get(context.Background(), c.Name)
	if err != nil {
		return err
	}
	if c.Out == "" {
		_, err = os.Stdout.Write(rec.Data)
		return err
	}
	if err := archive.WriteFile(c.Out, rec.Data); err != nil {
		return err
	}
	fmt.Printf("Wrote: %s -> %s\n", rec.Name, c.Out)
	return nil
}

// CatalogRmCmd removes a pathway from the catalog.
type CatalogRmCmd struct {
	Name string `arg:"" help:"Pathway name"`
}

func (c *CatalogRmCmd) Run(group *CatalogGroup) error {
	s, err := store.Open(group.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Delete(context.Background(), c.Name); err != nil {
		return err
	}
	fmt.Printf("Removed: %s\n", c.Name)
	return nil
}

// CatalogExportCmd exports the catalog as a tar bundle.
type CatalogExportCmd struct {
	Out string `arg:"" help:"Bundle path (.tar.gz or .tar.xz)" type:"path"`
}

func (c *CatalogExportCmd) Run(group *CatalogGroup) error {
	s, err := store.Open(group.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.List(context.Background())
	if err != nil {
		return err
	}
	entries := make(map[string][]byte, len(recs))
	for _, rec := range recs {
		entries[rec.Name+".gpml"] = rec.Data
	}
	if err := archive.WriteBundle(c.Out, entries); err != nil {
		return err
	}
	fmt.Printf("Exported %d pathways to %s\n", len(entries), c.Out)
	return nil
}

// CatalogImportCmd imports pathways from a tar bundle.
type CatalogImportCmd struct {
	Bundle string `arg:"" help:"Bundle path (.tar.gz or .tar.xz)" type:"existingfile"`
}

func (c *CatalogImportCmd) Run(group *CatalogGroup) error {
	s, err := store.Open(group.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	imported := 0
	err = archive.IterateBundle(c.Bundle, func(name string, content io.Reader) (bool, error) {
		data, err := io.ReadAll(content)
		if err != nil {
			return true, err
		}
		doc, err := gpml.Parse(data)
		if err != nil {
			logging.Warn("skipping unparseable bundle entry", "entry", name, "err", err)
			return false, nil
		}
		p, err := gpml.ReadDocument(doc)
		if err != nil {
			logging.Warn("skipping unreadable bundle entry", "entry", name, "err", err)
			return false, nil
		}
		rec := &store.Record{
			Name:     archive.BaseName(name),
			Title:    p.Title,
			Organism: p.Organism,
			Format:   string(doc.Version()),
			Hash:     model.HashPathway(p),
			Data:     data,
		}
		if _, err := s.Put(ctx, rec); err != nil {
			return true, err
		}
		imported++
		return false, nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d pathways from %s\n", imported, c.Bundle)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("gopml %s\n", version)
	info := store.GetInfo()
	fmt.Printf("  sqlite driver: %s (%s)\n", info.DriverName, info.DriverType)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("gopml"),
		kong.Description("GPML pathway model tools"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	logging.InitLogger(logging.ParseLevel(CLI.LogLevel), logging.FormatText)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
