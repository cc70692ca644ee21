package gpml

import (
	"strconv"

	"github.com/gopml/gopml/core/errors"
	"github.com/gopml/gopml/core/idspace"
	"github.com/gopml/gopml/core/model"
	"github.com/gopml/gopml/internal/logging"
)

// Read parses GPML data and reconstructs the pathway model. The format
// version is detected from the root namespace; the legacy 2013a format
// and the current 2021 format are both handled.
//
// Construction runs as a strict, ordered sequence of passes because a
// document permits forward references the live graph does not: every
// identifier is scanned first, shared-metadata candidates are staged
// before anything references them, groups exist before membership is
// resolved, and line endpoints are wired only after every candidate
// target exists.
//
// Structural problems (malformed numbers, unrecognized root) abort with
// an error. Referential inconsistencies — dangling endpoint keys,
// membership keys, or metadata keys, and staged candidates nothing
// claims — recover silently: the reference is dropped and the read
// proceeds. Identifier collisions recover by minting a replacement.
func Read(data []byte) (*model.Pathway, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return ReadDocument(doc)
}

// ReadDocument reconstructs the pathway model from a parsed document.
func ReadDocument(doc *Document) (*model.Pathway, error) {
	r := &reader{
		doc:             doc,
		root:            doc.Root(),
		format:          string(doc.Version()),
		stagedCitations: make(map[string]*model.Citation),
		stagedAnnots:    make(map[string]*model.Annotation),
		stagedEvidence:  make(map[string]*model.Evidence),
		claimed:         make(map[string]bool),
	}
	return r.run()
}

// reader carries the intermediate lookup tables threaded through the
// passes. All state is private to one invocation; two documents may be
// read concurrently on separate goroutines.
type reader struct {
	doc    *Document
	root   *Element
	p      *model.Pathway
	format string

	// Pass 2 output: shared-entity candidates keyed by their raw
	// document key. A candidate is promoted to an owned entity on first
	// claim; unclaimed candidates are discarded at the end.
	stagedCitations map[string]*model.Citation
	stagedAnnots    map[string]*model.Annotation
	stagedEvidence  map[string]*model.Evidence
	claimed         map[string]bool

	// Pass 1 output: every identifier attribute in the document. Pass 3
	// consults this to keep a key-space-promoted group key from squatting
	// on an identifier some element declares later.
	docIDs map[string]bool

	// Pass 3 output: groups whose own membership key awaits resolution.
	pendingGroupRefs []pendingGroupRef

	// Pass 7 output: raw endpoint associations awaiting resolution.
	pendingPoints []pendingPoint
}

type pendingGroupRef struct {
	group *model.Group
	key   string
}

type pendingPoint struct {
	point *model.Point
	key   string
}

func (r *reader) run() (*model.Pathway, error) {
	legacy := r.doc.Version() == V2013a

	// Pass 1: seed the taken set with every identifier in the document,
	// including ones nested two levels down on points and anchors, so
	// minted identifiers cannot collide with ones appearing later.
	ids := idspace.NewSeeded(r.scanIDs())
	r.p = model.NewWithIDSpace(ids)

	if err := r.readRoot(legacy); err != nil {
		return nil, err
	}

	// Pass 2: stage shared-entity candidates keyed by raw document key.
	// No ref is created yet; whether anything references a candidate is
	// unknown until later passes.
	if legacy {
		r.stageLegacyCitations()
	} else {
		r.stageSharedEntities()
	}

	// Pass 3: groups, re-minting on key collision; both the primary and
	// the legacy key are recorded per group.
	if err := r.readGroups(legacy); err != nil {
		return nil, err
	}

	// Pass 4: resolve group-membership declarations on the groups
	// themselves; every group now exists, so nesting cannot dangle.
	r.resolveGroupRefs()

	// Pass 5: simple elements, claiming staged metadata on first use.
	if err := r.readDataNodes(legacy); err != nil {
		return nil, err
	}
	if err := r.readLabels(legacy); err != nil {
		return nil, err
	}
	if err := r.readShapes(legacy); err != nil {
		return nil, err
	}

	// Pass 6: states, which depend on the data nodes of pass 5.
	if err := r.readStates(legacy); err != nil {
		return nil, err
	}

	// Pass 7: line elements; endpoint targets are recorded raw, not
	// resolved, since a target may come from any pass including a group
	// reached only through the legacy key.
	if err := r.readLines(legacy); err != nil {
		return nil, err
	}

	// Root-level metadata refs.
	r.readRefs(r.p, r.p, r.p, r.root, legacy)

	// Pass 8: resolve every recorded endpoint association.
	r.resolvePoints()

	// Pass 9: prune groups left with no members.
	if n := r.p.PruneEmptyGroups(); n > 0 {
		logging.Debug("pruned empty groups", "count", n)
	}

	r.discardUnclaimed()
	return r.p, nil
}

// idAttr returns the element's identifier attribute for the format.
func idAttr(legacy bool) string {
	if legacy {
		return "GraphId"
	}
	return "elementId"
}

// scanIDs walks the whole document for identifier attributes.
func (r *reader) scanIDs() []string {
	var ids []string
	r.docIDs = make(map[string]bool)
	var walk func(e *Element)
	walk = func(e *Element) {
		if v := e.Attr("GraphId"); v != "" {
			ids = append(ids, v)
			r.docIDs[v] = true
		}
		if v := e.Attr("elementId"); v != "" {
			ids = append(ids, v)
			r.docIDs[v] = true
		}
		for _, child := range e.AllChildren() {
			walk(child)
		}
	}
	walk(r.root)
	return ids
}

func (r *reader) readRoot(legacy bool) error {
	p := r.p
	root := r.root
	if legacy {
		p.Title = root.Attr("Name")
		p.Organism = root.Attr("Organism")
		p.Source = root.Attr("Data-Source")
		p.Version = root.Attr("Version")
		p.License = root.Attr("License")
		if author := root.Attr("Author"); author != "" {
			p.Authors = append(p.Authors, model.Author{Name: author})
		}
	} else {
		p.Title = root.Attr("title")
		p.Organism = root.Attr("organism")
		p.Source = root.Attr("source")
		p.Version = root.Attr("version")
		p.License = root.Attr("license")
		if d := root.Child("Description"); d != nil {
			p.Description = d.Text()
		}
		for i, a := range root.Children("Author") {
			p.Authors = append(p.Authors, model.Author{
				Name:     a.Attr("name"),
				Username: a.Attr("username"),
				Order:    i + 1,
			})
		}
	}

	p.Comments = readComments(root)
	p.DynamicProps = readDynamicProps(root, legacy)

	if g := root.Child("Graphics"); g != nil {
		p.Graphics = g.Attrs()
	}
	return nil
}

func readComments(e *Element) []model.Comment {
	var out []model.Comment
	for _, c := range e.Children("Comment") {
		out = append(out, model.Comment{
			Source: c.AttrDefault("Source", c.Attr("source")),
			Text:   c.Text(),
		})
	}
	return out
}

func readDynamicProps(e *Element, legacy bool) map[string]string {
	tag := "Property"
	keyAttr, valAttr := "key", "value"
	if legacy {
		tag, keyAttr, valAttr = "Attribute", "Key", "Value"
	}
	var props map[string]string
	for _, a := range e.Children(tag) {
		if props == nil {
			props = make(map[string]string)
		}
		props[a.Attr(keyAttr)] = a.Attr(valAttr)
	}
	return props
}

// stageLegacyCitations stages the legacy Biopax publication records,
// keyed by their rdf id. The key space is the document's own; citation
// entities receive model identifiers only when claimed.
func (r *reader) stageLegacyCitations() {
	biopax := r.root.Child("Biopax")
	if biopax == nil {
		return
	}
	for _, pub := range biopax.Children("PublicationXref") {
		key := pub.Attr("id")
		if key == "" {
			continue
		}
		c := model.StageCitation("")
		if id := childText(pub, "ID"); id != "" {
			db := childText(pub, "DB")
			c.Xref = &model.Xref{DataSource: db, ID: id}
		}
		c.Title = childText(pub, "TITLE")
		c.Source = childText(pub, "SOURCE")
		c.Year = childText(pub, "YEAR")
		for _, a := range pub.Children("AUTHORS") {
			c.Authors = append(c.Authors, a.Text())
		}
		if _, dup := r.stagedCitations[key]; dup {
			logging.Debug("duplicate publication key, keeping first", "key", key)
			continue
		}
		r.stagedCitations[key] = c
	}
}

// stageSharedEntities stages the current format's Annotations,
// Citations, and Evidences sections, keyed by element id. The entities
// keep their document identifiers when claimed.
func (r *reader) stageSharedEntities() {
	if section := r.root.Child("Annotations"); section != nil {
		for _, el := range section.Children("Annotation") {
			key := el.Attr("elementId")
			if key == "" {
				continue
			}
			a := model.StageAnnotation(key)
			a.Value = el.Attr("value")
			a.Type = el.Attr("type")
			a.Xref = readXref(el, false)
			r.stagedAnnots[key] = a
		}
	}
	if section := r.root.Child("Citations"); section != nil {
		for _, el := range section.Children("Citation") {
			key := el.Attr("elementId")
			if key == "" {
				continue
			}
			c := model.StageCitation(key)
			c.URL = el.Attr("url")
			c.Title = el.Attr("title")
			c.Source = el.Attr("source")
			c.Year = el.Attr("year")
			for _, a := range el.Children("Author") {
				c.Authors = append(c.Authors, a.Attr("name"))
			}
			c.Xref = readXref(el, false)
			r.stagedCitations[key] = c
		}
	}
	if section := r.root.Child("Evidences"); section != nil {
		for _, el := range section.Children("Evidence") {
			key := el.Attr("elementId")
			if key == "" {
				continue
			}
			e := model.StageEvidence(key)
			e.Value = el.Attr("value")
			e.URL = el.Attr("url")
			e.Xref = readXref(el, false)
			r.stagedEvidence[key] = e
		}
	}
}

func childText(e *Element, tag string) string {
	if c := e.Child(tag); c != nil {
		return c.Text()
	}
	return ""
}

func readXref(e *Element, legacy bool) *model.Xref {
	x := e.Child("Xref")
	if x == nil {
		return nil
	}
	if legacy {
		if x.Attr("Database") == "" && x.Attr("ID") == "" {
			return nil
		}
		return &model.Xref{DataSource: x.Attr("Database"), ID: x.Attr("ID")}
	}
	if x.Attr("dataSource") == "" && x.Attr("identifier") == "" {
		return nil
	}
	return &model.Xref{DataSource: x.Attr("dataSource"), ID: x.Attr("identifier")}
}

// elements returns the elements of a kind: wrapped in a section element
// in the current format, direct children of the root in the legacy one.
func (r *reader) elements(legacy bool, sectionTag, tag string) []*Element {
	if legacy {
		return r.root.Children(tag)
	}
	section := r.root.Child(sectionTag)
	if section == nil {
		return nil
	}
	return section.Children(tag)
}

func (r *reader) readGroups(legacy bool) error {
	for _, el := range r.elements(legacy, "Groups", "Group") {
		var primary, legacyKey string
		if legacy {
			// The legacy format splits group identity across two key
			// spaces: GroupId serves membership declarations, GraphId
			// serves line endpoints.
			legacyKey = el.Attr("GroupId")
			primary = el.Attr("GraphId")
			if primary == "" {
				primary = legacyKey
				// A promoted GroupId that some element also declares as
				// its identifier belongs to the element; the group gets
				// a minted one and keeps resolving through the legacy
				// key.
				if primary != "" && r.docIDs[primary] {
					logging.Debug("group key collides with element identifier, minting replacement", "key", primary)
					primary = ""
				}
			}
		} else {
			primary = el.Attr("elementId")
			legacyKey = el.Attr("legacyId")
		}

		if legacyKey != "" && r.p.ResolveGroupKey(legacyKey) != nil {
			logging.Debug("duplicate legacy group key, dropping", "key", legacyKey)
			legacyKey = ""
		}

		g, err := r.p.NewGroup(primary, legacyKey)
		if err != nil {
			// Key collision with an already-used identifier: mint a
			// replacement. The legacy key still resolves the group.
			logging.Debug("group key collision, minting replacement", "key", primary)
			g, err = r.p.NewGroup("", legacyKey)
			if err != nil {
				return err
			}
		}

		if legacy {
			g.Type = el.Attr("Style")
			g.TextLabel = el.Attr("TextLabel")
		} else {
			g.Type = el.Attr("type")
			g.TextLabel = el.Attr("textLabel")
		}
		g.Xref = readXref(el, legacy)
		if gfx := el.Child("Graphics"); gfx != nil {
			g.Graphics = gfx.Attrs()
		}
		g.Comments = readComments(el)
		for k, v := range readDynamicProps(el, legacy) {
			g.SetDynamicProp(k, v)
		}
		r.readRefs(g, g, g, el, legacy)

		if key := groupRefAttr(el, legacy); key != "" {
			r.pendingGroupRefs = append(r.pendingGroupRefs, pendingGroupRef{group: g, key: key})
		}
	}
	return nil
}

func groupRefAttr(el *Element, legacy bool) string {
	if legacy {
		return el.Attr("GroupRef")
	}
	return el.Attr("groupRef")
}

func (r *reader) resolveGroupRefs() {
	for _, pending := range r.pendingGroupRefs {
		parent := r.groupByKey(pending.key)
		if parent == nil {
			logging.Debug("dangling group membership key", "key", pending.key)
			continue
		}
		parent.AddMember(pending.group)
	}
	r.pendingGroupRefs = nil
}

// groupByKey resolves a membership key. The legacy format declares
// membership in the legacy key space, so that index wins there; the
// current format uses the primary identifier, with the legacy index as
// a fallback so translated documents keep resolving.
func (r *reader) groupByKey(key string) *model.Group {
	if r.doc.Version() == V2013a {
		return r.p.ResolveGroupKey(key)
	}
	if g, ok := r.p.Lookup(key).(*model.Group); ok {
		return g
	}
	return r.p.ResolveGroupKey(key)
}

// joinGroup resolves an element's membership declaration. Groups all
// exist by now, so a miss is a dangling reference, dropped silently.
func (r *reader) joinGroup(el model.Groupable, key string) {
	if key == "" {
		return
	}
	g := r.groupByKey(key)
	if g == nil {
		logging.Debug("dangling group membership key", "key", key)
		return
	}
	g.AddMember(el)
}

func (r *reader) readDataNodes(legacy bool) error {
	for _, el := range r.elements(legacy, "DataNodes", "DataNode") {
		n, err := r.p.NewDataNode(el.Attr(idAttr(legacy)))
		if err != nil {
			logging.Debug("data node id collision, minting replacement", "id", el.Attr(idAttr(legacy)))
			if n, err = r.p.NewDataNode(""); err != nil {
				return err
			}
		}
		if legacy {
			n.TextLabel = el.Attr("TextLabel")
			n.Type = el.Attr("Type")
		} else {
			n.TextLabel = el.Attr("textLabel")
			n.Type = el.Attr("type")
		}
		n.Xref = readXref(el, legacy)
		if gfx := el.Child("Graphics"); gfx != nil {
			n.Graphics = gfx.Attrs()
		}
		n.Comments = readComments(el)
		for k, v := range readDynamicProps(el, legacy) {
			n.SetDynamicProp(k, v)
		}
		r.readRefs(n, n, n, el, legacy)
		r.joinGroup(n, groupRefAttr(el, legacy))
	}
	return nil
}

func (r *reader) readLabels(legacy bool) error {
	for _, el := range r.elements(legacy, "Labels", "Label") {
		l, err := r.p.NewLabel(el.Attr(idAttr(legacy)))
		if err != nil {
			logging.Debug("label id collision, minting replacement", "id", el.Attr(idAttr(legacy)))
			if l, err = r.p.NewLabel(""); err != nil {
				return err
			}
		}
		if legacy {
			l.TextLabel = el.Attr("TextLabel")
			l.Href = el.Attr("Href")
		} else {
			l.TextLabel = el.Attr("textLabel")
			l.Href = el.Attr("href")
		}
		if gfx := el.Child("Graphics"); gfx != nil {
			l.Graphics = gfx.Attrs()
		}
		l.Comments = readComments(el)
		for k, v := range readDynamicProps(el, legacy) {
			l.SetDynamicProp(k, v)
		}
		r.readRefs(l, l, l, el, legacy)
		r.joinGroup(l, groupRefAttr(el, legacy))
	}
	return nil
}

func (r *reader) readShapes(legacy bool) error {
	for _, el := range r.elements(legacy, "Shapes", "Shape") {
		s, err := r.p.NewShape(el.Attr(idAttr(legacy)))
		if err != nil {
			logging.Debug("shape id collision, minting replacement", "id", el.Attr(idAttr(legacy)))
			if s, err = r.p.NewShape(""); err != nil {
				return err
			}
		}
		if legacy {
			s.TextLabel = el.Attr("TextLabel")
		} else {
			s.TextLabel = el.Attr("textLabel")
			s.Type = el.Attr("type")
		}
		if gfx := el.Child("Graphics"); gfx != nil {
			s.Graphics = gfx.Attrs()
			if legacy {
				s.Type = gfx.Attr("ShapeType")
			}
		}
		s.Comments = readComments(el)
		for k, v := range readDynamicProps(el, legacy) {
			s.SetDynamicProp(k, v)
		}
		r.readRefs(s, s, s, el, legacy)
		r.joinGroup(s, groupRefAttr(el, legacy))
	}
	return nil
}

// readStates builds states after every data node exists. In the legacy
// format states sit at the root and name their node by GraphRef; in the
// current one they nest inside their DataNode element.
func (r *reader) readStates(legacy bool) error {
	if legacy {
		for _, el := range r.root.Children("State") {
			key := el.Attr("GraphRef")
			node, ok := r.p.Lookup(key).(*model.DataNode)
			if !ok {
				logging.Debug("state references no data node, dropping", "key", key)
				continue
			}
			if err := r.readState(el, node, legacy); err != nil {
				return err
			}
		}
		return nil
	}

	section := r.root.Child("DataNodes")
	if section == nil {
		return nil
	}
	for _, nodeEl := range section.Children("DataNode") {
		states := nodeEl.Children("State")
		if len(states) == 0 {
			continue
		}
		node, ok := r.p.Lookup(nodeEl.Attr("elementId")).(*model.DataNode)
		if !ok {
			continue
		}
		for _, el := range states {
			if err := r.readState(el, node, legacy); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *reader) readState(el *Element, node *model.DataNode, legacy bool) error {
	s, err := r.p.NewState(el.Attr(idAttr(legacy)), node)
	if err != nil {
		logging.Debug("state id collision, minting replacement", "id", el.Attr(idAttr(legacy)))
		if s, err = r.p.NewState("", node); err != nil {
			return err
		}
	}
	if legacy {
		s.TextLabel = el.Attr("TextLabel")
		s.Type = el.Attr("StateType")
	} else {
		s.TextLabel = el.Attr("textLabel")
		s.Type = el.Attr("type")
	}
	s.Xref = readXref(el, legacy)
	if gfx := el.Child("Graphics"); gfx != nil {
		s.Graphics = gfx.Attrs()
	}
	s.Comments = readComments(el)
	for k, v := range readDynamicProps(el, legacy) {
		s.SetDynamicProp(k, v)
	}
	r.readRefs(s, s, s, el, legacy)
	return nil
}

func (r *reader) readLines(legacy bool) error {
	for _, el := range r.elements(legacy, "Interactions", "Interaction") {
		in, err := r.p.NewInteraction(el.Attr(idAttr(legacy)))
		if err != nil {
			logging.Debug("interaction id collision, minting replacement", "id", el.Attr(idAttr(legacy)))
			if in, err = r.p.NewInteraction(""); err != nil {
				return err
			}
		}
		in.Xref = readXref(el, legacy)
		if err := r.readLineBody(el, lineParts{
			addPoint:  in.AddPoint,
			addAnchor: in.AddAnchor,
			graphics:  func(m map[string]string) { in.Graphics = m },
		}, legacy); err != nil {
			return err
		}
		in.Comments = readComments(el)
		for k, v := range readDynamicProps(el, legacy) {
			in.SetDynamicProp(k, v)
		}
		r.readRefs(in, in, in, el, legacy)
		r.joinGroup(in, groupRefAttr(el, legacy))
	}

	for _, el := range r.elements(legacy, "GraphicalLines", "GraphicalLine") {
		l, err := r.p.NewGraphicalLine(el.Attr(idAttr(legacy)))
		if err != nil {
			logging.Debug("graphical line id collision, minting replacement", "id", el.Attr(idAttr(legacy)))
			if l, err = r.p.NewGraphicalLine(""); err != nil {
				return err
			}
		}
		if err := r.readLineBody(el, lineParts{
			addPoint:  l.AddPoint,
			addAnchor: l.AddAnchor,
			graphics:  func(m map[string]string) { l.Graphics = m },
		}, legacy); err != nil {
			return err
		}
		l.Comments = readComments(el)
		for k, v := range readDynamicProps(el, legacy) {
			l.SetDynamicProp(k, v)
		}
		r.readRefs(l, l, l, el, legacy)
		r.joinGroup(l, groupRefAttr(el, legacy))
	}
	return nil
}

type lineParts struct {
	addPoint  func(*model.Point)
	addAnchor func(*model.Anchor)
	graphics  func(map[string]string)
}

// readLineBody reads points and anchors. In the legacy format both nest
// inside the line's Graphics element (two levels down from the root);
// the current format wraps them in a Waypoints element. Each point's
// raw target key is recorded for pass 8, never resolved here.
func (r *reader) readLineBody(el *Element, parts lineParts, legacy bool) error {
	idName := idAttr(legacy)
	refName, arrowName := "elementRef", "arrowHead"
	container := el.Child("Waypoints")
	if legacy {
		refName, arrowName = "GraphRef", "ArrowHead"
		container = el.Child("Graphics")
		if container != nil {
			gfx := container.Attrs()
			parts.graphics(gfx)
		}
	} else {
		if gfx := el.Child("Graphics"); gfx != nil {
			parts.graphics(gfx.Attrs())
		}
	}
	if container == nil {
		return errors.NewParse(r.format, el.Name(), "line element without points")
	}

	points := container.Children("Point")
	if len(points) < 2 {
		return errors.NewParse(r.format, el.Name(), "line element needs at least two points")
	}
	for _, ptEl := range points {
		pt, err := r.p.NewPoint(ptEl.Attr(idName))
		if err != nil {
			logging.Debug("point id collision, dropping id", "id", ptEl.Attr(idName))
			pt, _ = r.p.NewPoint("")
		}
		pt.ArrowHead = ptEl.Attr(arrowName)
		attrs := ptEl.Attrs()
		delete(attrs, idName)
		delete(attrs, refName)
		delete(attrs, arrowName)
		pt.Attrs = attrs
		parts.addPoint(pt)

		if key := ptEl.Attr(refName); key != "" {
			r.pendingPoints = append(r.pendingPoints, pendingPoint{point: pt, key: key})
		}
	}

	for _, aEl := range container.Children("Anchor") {
		a, err := r.p.NewAnchor(aEl.Attr(idName))
		if err != nil {
			logging.Debug("anchor id collision, minting replacement", "id", aEl.Attr(idName))
			if a, err = r.p.NewAnchor(""); err != nil {
				return err
			}
		}
		posAttr, shapeAttr := "position", "shape"
		if legacy {
			posAttr, shapeAttr = "Position", "Shape"
		}
		pos := aEl.AttrDefault(posAttr, "0.5")
		f, err := strconv.ParseFloat(pos, 64)
		if err != nil {
			return &errors.ParseError{
				Format:  r.format,
				Element: "Anchor",
				ID:      a.ID(),
				Message: "malformed position " + strconv.Quote(pos),
				Err:     err,
			}
		}
		a.Position = f
		a.Shape = aEl.Attr(shapeAttr)
		parts.addAnchor(a)
	}
	return nil
}

// resolvePoints is pass 8: every recorded endpoint association goes
// through link-target resolution. A key neither index knows is left
// unlinked rather than rejected.
func (r *reader) resolvePoints() {
	for _, pending := range r.pendingPoints {
		target := r.p.ResolveLinkTarget(pending.key)
		if target == nil {
			logging.Debug("dangling endpoint reference, leaving unlinked", "key", pending.key)
			continue
		}
		pending.point.SetTarget(target)
	}
	r.pendingPoints = nil
}

// readRefs attaches the element's metadata refs. The three target
// parameters are the same node in its three roles; passing them
// separately keeps the call sites honest about which roles a node holds.
func (r *reader) readRefs(at model.Annotatable, ct model.Citable, et model.Evidenceable, el *Element, legacy bool) {
	if legacy {
		seen := make(map[string]bool)
		for _, ref := range el.Children("BiopaxRef") {
			key := ref.Text()
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			r.claimCitation(ct, key)
		}
		return
	}

	seen := make(map[string]bool)
	for _, ref := range el.Children("AnnotationRef") {
		key := ref.Attr("elementRef")
		if key == "" || seen["a:"+key] {
			continue
		}
		seen["a:"+key] = true
		r.claimAnnotation(at, ref, key)
	}
	for _, ref := range el.Children("CitationRef") {
		key := ref.Attr("elementRef")
		if key == "" || seen["c:"+key] {
			continue
		}
		seen["c:"+key] = true
		r.claimCitationNested(ct, ref, key)
	}
	for _, ref := range el.Children("EvidenceRef") {
		key := ref.Attr("elementRef")
		if key == "" || seen["e:"+key] {
			continue
		}
		seen["e:"+key] = true
		r.claimEvidence(et, key)
	}
}

// claimCitation promotes a staged legacy citation on first use and
// attaches it. A key nothing staged is a dangling reference, dropped.
func (r *reader) claimCitation(target model.Citable, key string) {
	c, ok := r.stagedCitations[key]
	if !ok {
		logging.Debug("dangling citation key, dropping", "key", key)
		return
	}
	r.claimed["c:"+key] = true
	if _, err := model.AttachCitation(target, c); err != nil {
		logging.Debug("citation attach failed", "key", key, "err", err)
	}
}

// claimAnnotation promotes a staged annotation, attaches it, and
// recursively claims the refs the annotation use itself carries.
func (r *reader) claimAnnotation(target model.Annotatable, el *Element, key string) {
	a, ok := r.stagedAnnots[key]
	if !ok {
		logging.Debug("dangling annotation key, dropping", "key", key)
		return
	}
	r.claimed["a:"+key] = true
	ref, err := model.AttachAnnotation(target, a)
	if err != nil {
		logging.Debug("annotation attach failed", "key", key, "err", err)
		return
	}
	// The annotation use may carry citations and evidences of its own.
	for _, nested := range el.Children("CitationRef") {
		if k := nested.Attr("elementRef"); k != "" {
			r.claimCitationNested(ref, nested, k)
		}
	}
	for _, nested := range el.Children("EvidenceRef") {
		if k := nested.Attr("elementRef"); k != "" {
			r.claimEvidence(ref, k)
		}
	}
}

// claimCitationNested promotes a staged citation, attaches it, and
// recursively claims annotation refs carried by the citation use. This
// is the model's one intentional cycle, so the recursion mirrors it.
func (r *reader) claimCitationNested(target model.Citable, el *Element, key string) {
	c, ok := r.stagedCitations[key]
	if !ok {
		logging.Debug("dangling citation key, dropping", "key", key)
		return
	}
	r.claimed["c:"+key] = true
	ref, err := model.AttachCitation(target, c)
	if err != nil {
		logging.Debug("citation attach failed", "key", key, "err", err)
		return
	}
	for _, nested := range el.Children("AnnotationRef") {
		if k := nested.Attr("elementRef"); k != "" {
			r.claimAnnotation(ref, nested, k)
		}
	}
}

func (r *reader) claimEvidence(target model.Evidenceable, key string) {
	e, ok := r.stagedEvidence[key]
	if !ok {
		logging.Debug("dangling evidence key, dropping", "key", key)
		return
	}
	r.claimed["e:"+key] = true
	if _, err := model.AttachEvidence(target, e); err != nil {
		logging.Debug("evidence attach failed", "key", key, "err", err)
	}
}

// discardUnclaimed drops staged candidates nothing claimed. Not an
// error: the legacy format routinely carries unreferenced records.
func (r *reader) discardUnclaimed() {
	for key := range r.stagedCitations {
		if !r.claimed["c:"+key] {
			logging.Debug("discarding unreferenced citation candidate", "key", key)
		}
	}
	for key := range r.stagedAnnots {
		if !r.claimed["a:"+key] {
			logging.Debug("discarding unreferenced annotation candidate", "key", key)
		}
	}
	for key := range r.stagedEvidence {
		if !r.claimed["e:"+key] {
			logging.Debug("discarding unreferenced evidence candidate", "key", key)
		}
	}
	r.stagedCitations = nil
	r.stagedAnnots = nil
	r.stagedEvidence = nil
}
