package gpml

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/gopml/gopml/core/encoding"
	"github.com/gopml/gopml/core/model"
)

// node is the writer's in-memory element: a tag, attributes in emission
// order, optional text content, and child nodes. Attribute order is part
// of the output contract, so attrs is a slice, never a map.
type node struct {
	tag      string
	attrs    []attr
	text     string
	children []*node
}

type attr struct {
	name  string
	value string
}

func elem(tag string) *node { return &node{tag: tag} }

// set appends an attribute, skipping empty values.
func (n *node) set(name, value string) *node {
	if value != "" {
		n.attrs = append(n.attrs, attr{name: name, value: value})
	}
	return n
}

// setAll appends a map's entries in sorted key order.
func (n *node) setAll(m map[string]string) *node {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.set(k, m[k])
	}
	return n
}

func (n *node) add(children ...*node) *node {
	for _, c := range children {
		if c != nil {
			n.children = append(n.children, c)
		}
	}
	return n
}

// format serializes the node with two-space indentation.
func (n *node) format(buf *bytes.Buffer, depth int) {
	indent := bytes.Repeat([]byte("  "), depth)
	buf.Write(indent)
	buf.WriteByte('<')
	buf.WriteString(n.tag)
	for _, a := range n.attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.name)
		buf.WriteString(`="`)
		buf.WriteString(encoding.EscapeXMLAttr(a.value))
		buf.WriteByte('"')
	}
	switch {
	case n.text != "":
		buf.WriteByte('>')
		buf.WriteString(encoding.EscapeXMLText(n.text))
		buf.WriteString("</")
		buf.WriteString(n.tag)
		buf.WriteString(">\n")
	case len(n.children) > 0:
		buf.WriteString(">\n")
		for _, c := range n.children {
			c.format(buf, depth+1)
		}
		buf.Write(indent)
		buf.WriteString("</")
		buf.WriteString(n.tag)
		buf.WriteString(">\n")
	default:
		buf.WriteString(" />\n")
	}
}

func render(root *node) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	root.format(&buf, 0)
	return buf.Bytes()
}

// Write serializes the model in the current format. Groups carry their
// legacy key as an extra attribute so a document translated from the
// older format keeps resolving under both key spaces after a round trip.
func Write(p *model.Pathway) ([]byte, error) {
	root := elem("Pathway").
		set("xmlns", ns2021).
		set("title", p.Title).
		set("organism", p.Organism).
		set("source", p.Source).
		set("version", p.Version).
		set("license", p.License)

	if p.Description != "" {
		root.add(elem("Description").withText(p.Description))
	}
	for _, a := range p.Authors {
		root.add(elem("Author").set("name", a.Name).set("username", a.Username))
	}
	root.add(commentNodes(p.Comments, false)...)
	root.add(propertyNodes(p.DynamicProps, false)...)
	root.add(refNodes(p.AnnotationRefs(), p.CitationRefs(), p.EvidenceRefs())...)
	if len(p.Graphics) > 0 {
		root.add(elem("Graphics").setAll(p.Graphics))
	}

	root.add(
		section("DataNodes", dataNodeNodes(p)),
		section("Interactions", interactionNodes(p)),
		section("GraphicalLines", graphicalLineNodes(p)),
		section("Labels", labelNodes(p)),
		section("Shapes", shapeNodes(p)),
		section("Groups", groupNodes(p)),
		section("Annotations", annotationEntityNodes(p)),
		section("Citations", citationEntityNodes(p)),
		section("Evidences", evidenceEntityNodes(p)),
	)

	return render(root), nil
}

func (n *node) withText(text string) *node {
	n.text = text
	return n
}

// section wraps element nodes in their container, nil when empty so the
// container is omitted entirely.
func section(tag string, children []*node) *node {
	if len(children) == 0 {
		return nil
	}
	return elem(tag).add(children...)
}

func commentNodes(comments []model.Comment, legacy bool) []*node {
	srcAttr := "source"
	if legacy {
		srcAttr = "Source"
	}
	out := make([]*node, 0, len(comments))
	for _, c := range comments {
		out = append(out, elem("Comment").set(srcAttr, c.Source).withText(c.Text))
	}
	return out
}

func propertyNodes(props map[string]string, legacy bool) []*node {
	tag, keyAttr, valAttr := "Property", "key", "value"
	if legacy {
		tag, keyAttr, valAttr = "Attribute", "Key", "Value"
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*node, 0, len(keys))
	for _, k := range keys {
		out = append(out, elem(tag).set(keyAttr, k).set(valAttr, props[k]))
	}
	return out
}

func xrefNode(x *model.Xref, legacy bool) *node {
	if x == nil {
		return nil
	}
	if legacy {
		return elem("Xref").set("Database", x.DataSource).set("ID", x.ID)
	}
	return elem("Xref").set("dataSource", x.DataSource).set("identifier", x.ID)
}

// refNodes serializes the three metadata ref kinds attached to one
// target, recursing into the refs a ref itself carries.
func refNodes(annots []*model.AnnotationRef, cites []*model.CitationRef, evs []*model.EvidenceRef) []*node {
	var out []*node
	for _, r := range annots {
		out = append(out, annotationRefNode(r))
	}
	for _, r := range cites {
		out = append(out, citationRefNode(r))
	}
	for _, r := range evs {
		out = append(out, elem("EvidenceRef").set("elementRef", r.Source().ID()))
	}
	return out
}

func annotationRefNode(r *model.AnnotationRef) *node {
	n := elem("AnnotationRef").set("elementRef", r.Source().ID())
	for _, cr := range r.CitationRefs() {
		n.add(citationRefNode(cr))
	}
	for _, er := range r.EvidenceRefs() {
		n.add(elem("EvidenceRef").set("elementRef", er.Source().ID()))
	}
	return n
}

func citationRefNode(r *model.CitationRef) *node {
	n := elem("CitationRef").set("elementRef", r.Source().ID())
	for _, ar := range r.AnnotationRefs() {
		n.add(annotationRefNode(ar))
	}
	return n
}

// elementCommon emits the children every diagram element shares.
func elementCommon(n *node, e interface {
	AnnotationRefs() []*model.AnnotationRef
	CitationRefs() []*model.CitationRef
	EvidenceRefs() []*model.EvidenceRef
}, comments []model.Comment, props map[string]string, graphics map[string]string) {
	n.add(commentNodes(comments, false)...)
	n.add(propertyNodes(props, false)...)
	n.add(refNodes(e.AnnotationRefs(), e.CitationRefs(), e.EvidenceRefs())...)
	if len(graphics) > 0 {
		n.add(elem("Graphics").setAll(graphics))
	}
}

func groupRefValue(el model.Groupable) string {
	if g := el.GroupRef(); g != nil {
		return g.ID()
	}
	return ""
}

func dataNodeNodes(p *model.Pathway) []*node {
	var out []*node
	for _, dn := range p.DataNodes() {
		n := elem("DataNode").
			set("elementId", dn.ID()).
			set("textLabel", dn.TextLabel).
			set("type", dn.Type).
			set("groupRef", groupRefValue(dn))
		elementCommon(n, dn, dn.Comments, dn.DynamicProps, dn.Graphics)
		n.add(xrefNode(dn.Xref, false))
		for _, s := range dn.States() {
			n.add(stateNode(s))
		}
		out = append(out, n)
	}
	return out
}

func stateNode(s *model.State) *node {
	n := elem("State").
		set("elementId", s.ID()).
		set("textLabel", s.TextLabel).
		set("type", s.Type)
	elementCommon(n, s, s.Comments, s.DynamicProps, s.Graphics)
	n.add(xrefNode(s.Xref, false))
	return n
}

func waypointsNode(points []*model.Point, anchors []*model.Anchor) *node {
	wp := elem("Waypoints")
	for _, pt := range points {
		ptNode := elem("Point").
			set("elementId", pt.ID()).
			set("arrowHead", pt.ArrowHead)
		if t := pt.Target(); t != nil {
			ptNode.set("elementRef", t.ID())
		}
		ptNode.setAll(pt.Attrs)
		wp.add(ptNode)
	}
	for _, a := range anchors {
		wp.add(elem("Anchor").
			set("elementId", a.ID()).
			set("position", strconv.FormatFloat(a.Position, 'g', -1, 64)).
			set("shape", a.Shape))
	}
	return wp
}

func interactionNodes(p *model.Pathway) []*node {
	var out []*node
	for _, in := range p.Interactions() {
		n := elem("Interaction").
			set("elementId", in.ID()).
			set("groupRef", groupRefValue(in))
		n.add(waypointsNode(in.Points(), in.Anchors()))
		elementCommon(n, in, in.Comments, in.DynamicProps, in.Graphics)
		n.add(xrefNode(in.Xref, false))
		out = append(out, n)
	}
	return out
}

func graphicalLineNodes(p *model.Pathway) []*node {
	var out []*node
	for _, l := range p.GraphicalLines() {
		n := elem("GraphicalLine").
			set("elementId", l.ID()).
			set("groupRef", groupRefValue(l))
		n.add(waypointsNode(l.Points(), l.Anchors()))
		elementCommon(n, l, l.Comments, l.DynamicProps, l.Graphics)
		out = append(out, n)
	}
	return out
}

func labelNodes(p *model.Pathway) []*node {
	var out []*node
	for _, l := range p.Labels() {
		n := elem("Label").
			set("elementId", l.ID()).
			set("textLabel", l.TextLabel).
			set("href", l.Href).
			set("groupRef", groupRefValue(l))
		elementCommon(n, l, l.Comments, l.DynamicProps, l.Graphics)
		out = append(out, n)
	}
	return out
}

func shapeNodes(p *model.Pathway) []*node {
	var out []*node
	for _, s := range p.Shapes() {
		n := elem("Shape").
			set("elementId", s.ID()).
			set("textLabel", s.TextLabel).
			set("type", s.Type).
			set("groupRef", groupRefValue(s))
		elementCommon(n, s, s.Comments, s.DynamicProps, s.Graphics)
		out = append(out, n)
	}
	return out
}

func groupNodes(p *model.Pathway) []*node {
	var out []*node
	for _, g := range p.Groups() {
		n := elem("Group").
			set("elementId", g.ID()).
			set("legacyId", g.LegacyID()).
			set("type", g.Type).
			set("textLabel", g.TextLabel).
			set("groupRef", groupRefValue(g))
		elementCommon(n, g, g.Comments, g.DynamicProps, g.Graphics)
		n.add(xrefNode(g.Xref, false))
		out = append(out, n)
	}
	return out
}

func annotationEntityNodes(p *model.Pathway) []*node {
	var out []*node
	for _, a := range p.Annotations() {
		n := elem("Annotation").
			set("elementId", a.ID()).
			set("value", a.Value).
			set("type", a.Type)
		n.add(xrefNode(a.Xref, false))
		out = append(out, n)
	}
	return out
}

func citationEntityNodes(p *model.Pathway) []*node {
	var out []*node
	for _, c := range p.Citations() {
		n := elem("Citation").
			set("elementId", c.ID()).
			set("url", c.URL).
			set("title", c.Title).
			set("source", c.Source).
			set("year", c.Year)
		for _, author := range c.Authors {
			n.add(elem("Author").set("name", author))
		}
		n.add(xrefNode(c.Xref, false))
		out = append(out, n)
	}
	return out
}

func evidenceEntityNodes(p *model.Pathway) []*node {
	var out []*node
	for _, e := range p.Evidences() {
		n := elem("Evidence").
			set("elementId", e.ID()).
			set("value", e.Value).
			set("url", e.URL)
		n.add(xrefNode(e.Xref, false))
		out = append(out, n)
	}
	return out
}

// WriteLegacy serializes the model in the legacy 2013a format. The
// legacy format has no shared annotation or evidence records, so those
// are dropped; citations become Biopax publication records referenced
// by BiopaxRef children. A group writes its legacy key as GroupId and
// its primary identifier as GraphId, re-creating the split key spaces
// the older format requires.
func WriteLegacy(p *model.Pathway) ([]byte, error) {
	root := elem("Pathway").
		set("xmlns", ns2013a).
		set("Name", p.Title).
		set("Organism", p.Organism).
		set("Data-Source", p.Source).
		set("Version", p.Version).
		set("License", p.License)
	if len(p.Authors) > 0 {
		root.set("Author", p.Authors[0].Name)
	}

	root.add(commentNodes(p.Comments, true)...)
	root.add(propertyNodes(p.DynamicProps, true)...)
	root.add(biopaxRefNodes(p.CitationRefs())...)
	if len(p.Graphics) > 0 {
		root.add(elem("Graphics").setAll(p.Graphics))
	}

	for _, dn := range p.DataNodes() {
		n := elem("DataNode").
			set("GraphId", dn.ID()).
			set("TextLabel", dn.TextLabel).
			set("Type", dn.Type).
			set("GroupRef", legacyGroupRefValue(dn))
		legacyElementCommon(n, dn.Comments, dn.DynamicProps, dn.Graphics, dn.CitationRefs())
		n.add(xrefNode(dn.Xref, true))
		root.add(n)
	}
	for _, s := range p.States() {
		n := elem("State").
			set("GraphId", s.ID()).
			set("GraphRef", s.DataNode().ID()).
			set("TextLabel", s.TextLabel).
			set("StateType", s.Type)
		legacyElementCommon(n, s.Comments, s.DynamicProps, s.Graphics, s.CitationRefs())
		n.add(xrefNode(s.Xref, true))
		root.add(n)
	}
	for _, l := range p.GraphicalLines() {
		n := elem("GraphicalLine").
			set("GraphId", l.ID()).
			set("GroupRef", legacyGroupRefValue(l))
		n.add(commentNodes(l.Comments, true)...)
		n.add(propertyNodes(l.DynamicProps, true)...)
		n.add(biopaxRefNodes(l.CitationRefs())...)
		n.add(legacyLineGraphics(l.Graphics, l.Points(), l.Anchors()))
		root.add(n)
	}
	for _, in := range p.Interactions() {
		n := elem("Interaction").
			set("GraphId", in.ID()).
			set("GroupRef", legacyGroupRefValue(in))
		n.add(commentNodes(in.Comments, true)...)
		n.add(propertyNodes(in.DynamicProps, true)...)
		n.add(biopaxRefNodes(in.CitationRefs())...)
		n.add(legacyLineGraphics(in.Graphics, in.Points(), in.Anchors()))
		n.add(xrefNode(in.Xref, true))
		root.add(n)
	}
	for _, l := range p.Labels() {
		n := elem("Label").
			set("GraphId", l.ID()).
			set("TextLabel", l.TextLabel).
			set("Href", l.Href).
			set("GroupRef", legacyGroupRefValue(l))
		legacyElementCommon(n, l.Comments, l.DynamicProps, l.Graphics, l.CitationRefs())
		root.add(n)
	}
	for _, s := range p.Shapes() {
		n := elem("Shape").
			set("GraphId", s.ID()).
			set("TextLabel", s.TextLabel).
			set("GroupRef", legacyGroupRefValue(s))
		legacyElementCommon(n, s.Comments, s.DynamicProps, s.Graphics, s.CitationRefs())
		root.add(n)
	}
	for _, g := range p.Groups() {
		groupID := g.LegacyID()
		if groupID == "" {
			groupID = g.ID()
		}
		n := elem("Group").
			set("GroupId", groupID).
			set("GraphId", g.ID()).
			set("Style", g.Type).
			set("TextLabel", g.TextLabel).
			set("GroupRef", legacyGroupRefValue(g))
		legacyElementCommon(n, g.Comments, g.DynamicProps, g.Graphics, g.CitationRefs())
		root.add(n)
	}

	if biopax := biopaxNode(p); biopax != nil {
		root.add(biopax)
	}
	return render(root), nil
}

// legacyGroupRefValue returns the key a membership declaration writes:
// the group's legacy key where it has one, its identifier otherwise.
func legacyGroupRefValue(el model.Groupable) string {
	g := el.GroupRef()
	if g == nil {
		return ""
	}
	if g.LegacyID() != "" {
		return g.LegacyID()
	}
	return g.ID()
}

func legacyElementCommon(n *node, comments []model.Comment, props map[string]string, graphics map[string]string, cites []*model.CitationRef) {
	n.add(commentNodes(comments, true)...)
	n.add(propertyNodes(props, true)...)
	n.add(biopaxRefNodes(cites)...)
	if len(graphics) > 0 {
		n.add(elem("Graphics").setAll(graphics))
	}
}

func biopaxRefNodes(cites []*model.CitationRef) []*node {
	out := make([]*node, 0, len(cites))
	for _, r := range cites {
		out = append(out, elem("BiopaxRef").withText(r.Source().ID()))
	}
	return out
}

// legacyLineGraphics builds the legacy line Graphics element, which
// nests the points and anchors alongside the drawing attributes.
func legacyLineGraphics(graphics map[string]string, points []*model.Point, anchors []*model.Anchor) *node {
	g := elem("Graphics").setAll(graphics)
	for _, pt := range points {
		ptNode := elem("Point").
			set("GraphId", pt.ID()).
			set("ArrowHead", pt.ArrowHead)
		if t := pt.Target(); t != nil {
			ptNode.set("GraphRef", t.ID())
		}
		ptNode.setAll(pt.Attrs)
		g.add(ptNode)
	}
	for _, a := range anchors {
		g.add(elem("Anchor").
			set("GraphId", a.ID()).
			set("Position", strconv.FormatFloat(a.Position, 'g', -1, 64)).
			set("Shape", a.Shape))
	}
	return g
}

// biopaxNode emits the shared citations as Biopax publication records.
func biopaxNode(p *model.Pathway) *node {
	citations := p.Citations()
	if len(citations) == 0 {
		return nil
	}
	biopax := elem("Biopax")
	for _, c := range citations {
		pub := elem("bp:PublicationXref").
			set("xmlns:bp", "http://www.biopax.org/release/biopax-level3.owl#").
			set("xmlns:rdf", "http://www.w3.org/1999/02/22-rdf-syntax-ns#").
			set("rdf:id", c.ID())
		if c.Xref != nil {
			pub.add(elem("bp:ID").withText(c.Xref.ID))
			pub.add(elem("bp:DB").withText(c.Xref.DataSource))
		}
		if c.Title != "" {
			pub.add(elem("bp:TITLE").withText(c.Title))
		}
		if c.Source != "" {
			pub.add(elem("bp:SOURCE").withText(c.Source))
		}
		if c.Year != "" {
			pub.add(elem("bp:YEAR").withText(c.Year))
		}
		for _, a := range c.Authors {
			pub.add(elem("bp:AUTHORS").withText(a))
		}
		biopax.add(pub)
	}
	return biopax
}
