package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gopml/gopml/core/gpml"
	"github.com/gopml/gopml/core/model"
)

const sampleDoc = `<Pathway xmlns="http://pathvisio.org/GPML/2021" title="Sample" organism="Homo sapiens">
  <DataNodes>
    <DataNode elementId="n1" textLabel="TP53" type="GeneProduct">
      <Xref dataSource="Ensembl" identifier="ENSG00000141510"/>
    </DataNode>
  </DataNodes>
</Pathway>`

func writeSample(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(sampleDoc), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPathway(t *testing.T) {
	path := writeSample(t, "sample.gpml")
	_, doc, p, err := loadPathway(path)
	if err != nil {
		t.Fatalf("loadPathway: %v", err)
	}
	if doc.Version() != gpml.V2021 {
		t.Errorf("version = %v", doc.Version())
	}
	if p.Title != "Sample" {
		t.Errorf("title = %q", p.Title)
	}
}

func TestConvertCmd(t *testing.T) {
	in := writeSample(t, "sample.gpml")
	out := filepath.Join(t.TempDir(), "sample-legacy.gpml")

	cmd := &ConvertCmd{Path: in, Out: out, To: "2013a"}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := gpml.Parse(data)
	if err != nil {
		t.Fatalf("Parse converted output: %v", err)
	}
	if doc.Version() != gpml.V2013a {
		t.Errorf("converted version = %v, want %v", doc.Version(), gpml.V2013a)
	}
}

func TestFindXrefTargets(t *testing.T) {
	p, err := gpml.Read([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	want, err := model.ParseXref("Ensembl:ENSG00000141510")
	if err != nil {
		t.Fatalf("ParseXref: %v", err)
	}
	hits := findXrefTargets(p, want)
	if len(hits) != 1 {
		t.Fatalf("len(hits) = %d, want 1", len(hits))
	}
	if !strings.Contains(hits[0], "n1") || !strings.Contains(hits[0], "TP53") {
		t.Errorf("hit = %q, want the n1 data node", hits[0])
	}

	other, err := model.ParseXref("PubMed:12345")
	if err != nil {
		t.Fatalf("ParseXref: %v", err)
	}
	if got := findXrefTargets(p, other); len(got) != 0 {
		t.Errorf("hits for unrelated xref = %v, want none", got)
	}
}

func TestValidateCmdReportsFailures(t *testing.T) {
	good := writeSample(t, "good.gpml")
	bad := filepath.Join(t.TempDir(), "bad.gpml")
	if err := os.WriteFile(bad, []byte(`<Diagram/>`), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := &ValidateCmd{Paths: []string{good}}
	if err := cmd.Run(); err != nil {
		t.Errorf("valid document failed: %v", err)
	}

	cmd = &ValidateCmd{Paths: []string{good, bad}}
	if err := cmd.Run(); err == nil {
		t.Error("invalid document passed validation")
	}
}
