package model

import "testing"

func buildSmallPathway(t *testing.T, reversed bool) *Pathway {
	t.Helper()
	p := New()
	p.Title = "Test pathway"
	p.Organism = "Homo sapiens"

	ids := []string{"n1", "n2"}
	if reversed {
		ids = []string{"n2", "n1"}
	}
	for _, id := range ids {
		n, err := p.NewDataNode(id)
		if err != nil {
			t.Fatalf("NewDataNode(%q): %v", id, err)
		}
		n.TextLabel = "node " + id
		n.Type = "GeneProduct"
	}

	n := p.Lookup("n1").(*DataNode)
	if _, err := AttachCitation(n, &Citation{Xref: &Xref{DataSource: "PubMed", ID: "7"}}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	return p
}

func TestHashPathwayDeterministic(t *testing.T) {
	a := buildSmallPathway(t, false)
	b := buildSmallPathway(t, false)
	if HashPathway(a) != HashPathway(b) {
		t.Error("identical models should hash equal")
	}
}

func TestHashPathwayOrderIndependent(t *testing.T) {
	a := buildSmallPathway(t, false)
	b := buildSmallPathway(t, true)
	if HashPathway(a) != HashPathway(b) {
		t.Error("construction order should not affect the hash")
	}
}

func TestHashPathwaySensitive(t *testing.T) {
	a := buildSmallPathway(t, false)
	b := buildSmallPathway(t, false)
	b.Lookup("n1").(*DataNode).TextLabel = "changed"
	if HashPathway(a) == HashPathway(b) {
		t.Error("content change should change the hash")
	}

	c := buildSmallPathway(t, false)
	ref := c.Lookup("n1").(*DataNode).CitationRefs()[0]
	if err := ref.Detach(); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if HashPathway(a) == HashPathway(c) {
		t.Error("dropping a ref should change the hash")
	}
}

func TestHashPathwayCoversElementDetails(t *testing.T) {
	base := buildSmallPathway(t, false)

	tests := []struct {
		name   string
		mutate func(p *Pathway)
	}{
		{
			name: "dynamic property",
			mutate: func(p *Pathway) {
				p.Lookup("n1").(*DataNode).SetDynamicProp("site", "S15")
			},
		},
		{
			name: "comment",
			mutate: func(p *Pathway) {
				n := p.Lookup("n1").(*DataNode)
				n.Comments = append(n.Comments, Comment{Source: "curator", Text: "checked"})
			},
		},
		{
			name: "graphics attribute",
			mutate: func(p *Pathway) {
				p.Lookup("n1").(*DataNode).Graphics = map[string]string{"CenterX": "5.0"}
			},
		},
		{
			name: "root comment",
			mutate: func(p *Pathway) {
				p.Comments = append(p.Comments, Comment{Text: "revised"})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := buildSmallPathway(t, false)
			tt.mutate(p)
			if HashPathway(p) == HashPathway(base) {
				t.Error("change did not shift the hash")
			}
		})
	}
}
