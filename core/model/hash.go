package model

import (
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// HashPathway computes a BLAKE3 hash over a canonical rendering of the
// model: entities sorted by identifier, refs by (source, target), and
// each element's comments, dynamic properties, and graphics attributes
// folded into its line. Two models with the same content hash equal
// regardless of construction order, which is what round-trip tests and
// the pathway store key on.
func HashPathway(p *Pathway) string {
	h := blake3.New()
	writeCanonical(h, p)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)
}

func writeCanonical(w io.Writer, p *Pathway) {
	fmt.Fprintf(w, "pathway|%s|%s|%s|%s%s\n", p.Title, p.Organism, p.Version, p.License,
		extraKey(p.Comments, p.DynamicProps, p.Graphics))
	for _, a := range p.Authors {
		fmt.Fprintf(w, "author|%s|%s\n", a.Name, a.Username)
	}

	lines := make([]string, 0, 64)

	for _, n := range p.dataNodes {
		lines = append(lines, fmt.Sprintf("datanode|%s|%s|%s|%s|%s%s", n.id, n.TextLabel, n.Type, n.Xref.String(), groupKey(n.GroupRef()), extraKey(n.Comments, n.DynamicProps, n.Graphics)))
	}
	for _, s := range p.states {
		lines = append(lines, fmt.Sprintf("state|%s|%s|%s|%s|%s%s", s.id, s.TextLabel, s.Type, s.Xref.String(), s.node.ID(), extraKey(s.Comments, s.DynamicProps, s.Graphics)))
	}
	for _, in := range p.interactions {
		lines = append(lines, fmt.Sprintf("interaction|%s|%s|%s|%s%s", in.id, in.Xref.String(), groupKey(in.GroupRef()), lineKey(&in.lineCommon), extraKey(in.Comments, in.DynamicProps, in.Graphics)))
	}
	for _, l := range p.graphicalLines {
		lines = append(lines, fmt.Sprintf("graphicalline|%s|%s|%s%s", l.id, groupKey(l.GroupRef()), lineKey(&l.lineCommon), extraKey(l.Comments, l.DynamicProps, l.Graphics)))
	}
	for _, l := range p.labels {
		lines = append(lines, fmt.Sprintf("label|%s|%s|%s%s", l.id, l.TextLabel, groupKey(l.GroupRef()), extraKey(l.Comments, l.DynamicProps, l.Graphics)))
	}
	for _, s := range p.shapes {
		lines = append(lines, fmt.Sprintf("shape|%s|%s|%s|%s%s", s.id, s.TextLabel, s.Type, groupKey(s.GroupRef()), extraKey(s.Comments, s.DynamicProps, s.Graphics)))
	}
	for _, g := range p.groups {
		members := make([]string, 0, len(g.members))
		for _, m := range g.members {
			members = append(members, m.ID())
		}
		sort.Strings(members)
		lines = append(lines, fmt.Sprintf("group|%s|%s|%s|%v%s", g.id, g.legacyID, g.Type, members, extraKey(g.Comments, g.DynamicProps, g.Graphics)))
	}
	for _, a := range p.annotations {
		lines = append(lines, fmt.Sprintf("annotation|%s|%s|%s|%s|%d", a.id, a.Value, a.Type, a.Xref.String(), len(a.refs)))
	}
	for _, c := range p.citations {
		lines = append(lines, fmt.Sprintf("citation|%s|%s|%s|%s|%d", c.id, c.Xref.String(), c.URL, c.Title, len(c.refs)))
	}
	for _, e := range p.evidences {
		lines = append(lines, fmt.Sprintf("evidence|%s|%s|%s|%d", e.id, e.Value, e.Xref.String(), len(e.refs)))
	}

	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// extraKey renders an element's comments, dynamic properties, and
// graphics attributes as a stable suffix, so field-level differences
// shift the hash even when the entity skeleton matches.
func extraKey(comments []Comment, props, graphics map[string]string) string {
	var b strings.Builder
	for _, c := range comments {
		fmt.Fprintf(&b, "|comment:%s=%s", c.Source, c.Text)
	}
	writeSortedAttrs(&b, "prop", props)
	writeSortedAttrs(&b, "gfx", graphics)
	return b.String()
}

func writeSortedAttrs(b *strings.Builder, label string, attrs map[string]string) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "|%s:%s=%s", label, k, attrs[k])
	}
}

func groupKey(g *Group) string {
	if g == nil {
		return ""
	}
	return g.ID()
}

func lineKey(l *lineCommon) string {
	parts := make([]string, 0, len(l.points)+len(l.anchors))
	for _, pt := range l.points {
		target := ""
		if pt.target != nil {
			target = pt.target.ID()
		}
		parts = append(parts, fmt.Sprintf("pt:%s>%s", pt.id, target))
	}
	for _, a := range l.anchors {
		parts = append(parts, "anchor:"+a.id)
	}
	return fmt.Sprint(parts)
}
