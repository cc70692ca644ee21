package model

// Comment is a free-text comment on the pathway or one of its elements.
type Comment struct {
	Source string `json:"source,omitempty"`
	Text   string `json:"text"`
}

// Author describes one pathway author.
type Author struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Order    int    `json:"order,omitempty"`
}

// PathwayElement is the base of every diagram element. It carries the
// identifier, the owning pathway, comments, dynamic properties, and the
// three metadata ref sets, making every element an annotation, citation,
// and evidence target.
type PathwayElement struct {
	id string
	p  *Pathway

	Comments     []Comment
	DynamicProps map[string]string

	annotationRefs []*AnnotationRef
	citationRefs   []*CitationRef
	evidenceRefs   []*EvidenceRef
}

// ID returns the element's identifier, unique across the whole model.
func (e *PathwayElement) ID() string { return e.id }

// Pathway returns the model that owns this element, or nil if detached.
func (e *PathwayElement) Pathway() *Pathway { return e.p }

// SetDynamicProp sets a dynamic (key, value) property on the element.
func (e *PathwayElement) SetDynamicProp(key, value string) {
	if e.DynamicProps == nil {
		e.DynamicProps = make(map[string]string)
	}
	e.DynamicProps[key] = value
}

func (e *PathwayElement) owner() *Pathway { return e.p }

// AnnotationRefs returns the refs attaching annotations to this element.
func (e *PathwayElement) AnnotationRefs() []*AnnotationRef { return e.annotationRefs }

// CitationRefs returns the refs attaching citations to this element.
func (e *PathwayElement) CitationRefs() []*CitationRef { return e.citationRefs }

// EvidenceRefs returns the refs attaching evidences to this element.
func (e *PathwayElement) EvidenceRefs() []*EvidenceRef { return e.evidenceRefs }

func (e *PathwayElement) addAnnotationRef(ref *AnnotationRef) {
	e.annotationRefs = append(e.annotationRefs, ref)
}

func (e *PathwayElement) removeAnnotationRef(ref *AnnotationRef) {
	e.annotationRefs = removeRef(e.annotationRefs, ref)
}

func (e *PathwayElement) addCitationRef(ref *CitationRef) {
	e.citationRefs = append(e.citationRefs, ref)
}

func (e *PathwayElement) removeCitationRef(ref *CitationRef) {
	e.citationRefs = removeRef(e.citationRefs, ref)
}

func (e *PathwayElement) addEvidenceRef(ref *EvidenceRef) {
	e.evidenceRefs = append(e.evidenceRefs, ref)
}

func (e *PathwayElement) removeEvidenceRef(ref *EvidenceRef) {
	e.evidenceRefs = removeRef(e.evidenceRefs, ref)
}

// detachAllRefs terminates every metadata ref held by the element.
// Called when the element is removed from the model.
func (e *PathwayElement) detachAllRefs() {
	for _, ref := range append([]*AnnotationRef(nil), e.annotationRefs...) {
		_ = ref.Detach()
	}
	for _, ref := range append([]*CitationRef(nil), e.citationRefs...) {
		_ = ref.Detach()
	}
	for _, ref := range append([]*EvidenceRef(nil), e.evidenceRefs...) {
		_ = ref.Detach()
	}
}

func removeRef[T comparable](refs []T, ref T) []T {
	for i, r := range refs {
		if r == ref {
			return append(refs[:i], refs[i+1:]...)
		}
	}
	return refs
}

// Element is any diagram element addressable by identifier.
type Element interface {
	ID() string
	Pathway() *Pathway
}

// Linkable is anything a line endpoint may point at: a diagram element,
// a group, or an anchor on another line.
type Linkable interface {
	ID() string
}

// Groupable is a diagram element that may belong to a group.
type Groupable interface {
	Element
	GroupRef() *Group
	setGroupRef(g *Group)
}

// groupable is embedded by every element kind that can join a group.
type groupable struct {
	groupRef *Group
}

// GroupRef returns the group this element belongs to, or nil.
func (g *groupable) GroupRef() *Group { return g.groupRef }

func (g *groupable) setGroupRef(grp *Group) { g.groupRef = grp }

// DataNode is a molecule or concept node on the diagram.
type DataNode struct {
	PathwayElement
	groupable

	TextLabel string
	Type      string // e.g. "GeneProduct", "Metabolite", "Protein"
	Xref      *Xref
	Graphics  map[string]string

	states []*State
}

// States returns the states attached to this data node.
func (n *DataNode) States() []*State { return n.states }

// State is a modification or other state attached to a data node
// (e.g. a phosphorylation site).
type State struct {
	PathwayElement

	TextLabel string
	Type      string
	Xref      *Xref
	Graphics  map[string]string

	node *DataNode
}

// DataNode returns the data node this state is attached to.
func (s *State) DataNode() *DataNode { return s.node }

// Point is one endpoint (or waypoint) of a line element. Its target is
// resolved after all candidate targets exist; an unresolvable target is
// left nil rather than rejected.
type Point struct {
	id        string
	ArrowHead string
	Attrs     map[string]string // coordinates and relative offsets, opaque here

	target Linkable
}

// ID returns the point's identifier ("" if the document carried none).
func (pt *Point) ID() string { return pt.id }

// Target returns the node this point links to, or nil when unlinked.
func (pt *Point) Target() Linkable { return pt.target }

// SetTarget links the point to a node. A nil target unlinks it.
func (pt *Point) SetTarget(t Linkable) { pt.target = t }

// Anchor is a named position on a line element that other lines may
// link to.
type Anchor struct {
	id       string
	Position float64
	Shape    string
}

// ID returns the anchor's identifier.
func (a *Anchor) ID() string { return a.id }

// lineCommon is shared by Interaction and GraphicalLine.
type lineCommon struct {
	points  []*Point
	anchors []*Anchor

	Graphics map[string]string
}

// Points returns the line's points in order.
func (l *lineCommon) Points() []*Point { return l.points }

// Anchors returns the line's anchors in order.
func (l *lineCommon) Anchors() []*Anchor { return l.anchors }

// Interaction is a line element carrying biological meaning, with an
// optional xref identifying the interaction itself.
type Interaction struct {
	PathwayElement
	groupable
	lineCommon

	Xref *Xref
}

// GraphicalLine is a line element with no biological meaning.
type GraphicalLine struct {
	PathwayElement
	groupable
	lineCommon
}

// Label is a free-floating text label.
type Label struct {
	PathwayElement
	groupable

	TextLabel string
	Href      string
	Graphics  map[string]string
}

// Shape is a graphical shape, possibly with a text label.
type Shape struct {
	PathwayElement
	groupable

	TextLabel string
	Type      string
	Graphics  map[string]string
}

// Group is a grouping of diagram elements. Besides its primary identifier
// it may carry a legacy key, the older format's secondary key space used
// by membership declarations; line endpoints reference groups through the
// primary key space.
type Group struct {
	PathwayElement
	groupable // groups may nest

	Type      string
	TextLabel string
	Xref      *Xref
	Graphics  map[string]string

	legacyID string
	members  []Groupable
}

// LegacyID returns the group's legacy key, "" when it has none.
func (g *Group) LegacyID() string { return g.legacyID }

// Members returns the group's member elements.
func (g *Group) Members() []Groupable { return g.members }

// AddMember adds an element to the group and records the membership on
// the element. Adding an existing member is a no-op.
func (g *Group) AddMember(el Groupable) {
	for _, m := range g.members {
		if m == el {
			return
		}
	}
	g.members = append(g.members, el)
	el.setGroupRef(g)
}

// RemoveMember removes an element from the group.
func (g *Group) RemoveMember(el Groupable) {
	for i, m := range g.members {
		if m == el {
			g.members = append(g.members[:i], g.members[i+1:]...)
			el.setGroupRef(nil)
			return
		}
	}
}
