package model

import (
	"github.com/gopml/gopml/core/errors"
	"github.com/gopml/gopml/core/idspace"
)

// Pathway is the root of the model and the exclusive owner of every
// entity and of the identifier space. The root itself is an annotation,
// citation, and evidence target.
type Pathway struct {
	Title       string
	Organism    string
	Source      string
	Version     string
	License     string
	Description string
	Authors     []Author

	// Graphics holds the drawing board attributes as an opaque bag.
	Graphics map[string]string

	Comments     []Comment
	DynamicProps map[string]string

	dataNodes      []*DataNode
	states         []*State
	interactions   []*Interaction
	graphicalLines []*GraphicalLine
	labels         []*Label
	shapes         []*Shape
	groups         []*Group

	annotations []*Annotation
	citations   []*Citation
	evidences   []*Evidence

	// byID is the primary index: identifier → node, one namespace across
	// every entity kind. byLegacyGroupID is the secondary index for the
	// older format's group key space.
	byID            map[string]Linkable
	byLegacyGroupID map[string]*Group

	ids *idspace.Space

	annotationRefs []*AnnotationRef
	citationRefs   []*CitationRef
	evidenceRefs   []*EvidenceRef
}

// New creates an empty pathway model with a fresh identifier space.
func New() *Pathway {
	return &Pathway{
		byID:            make(map[string]Linkable),
		byLegacyGroupID: make(map[string]*Group),
		ids:             idspace.New(),
	}
}

// NewWithIDSpace creates an empty pathway model over an existing
// identifier space. The reader uses this to seed the space with every
// identifier scanned from the document before construction begins.
func NewWithIDSpace(ids *idspace.Space) *Pathway {
	return &Pathway{
		byID:            make(map[string]Linkable),
		byLegacyGroupID: make(map[string]*Group),
		ids:             ids,
	}
}

// IDSpace returns the model's identifier space.
func (p *Pathway) IDSpace() *idspace.Space { return p.ids }

// Accessors over the entity collections. Slices are the model's own;
// callers must not mutate them.

// DataNodes returns the model's data nodes.
func (p *Pathway) DataNodes() []*DataNode { return p.dataNodes }

// States returns the model's states.
func (p *Pathway) States() []*State { return p.states }

// Interactions returns the model's interactions.
func (p *Pathway) Interactions() []*Interaction { return p.interactions }

// GraphicalLines returns the model's graphical lines.
func (p *Pathway) GraphicalLines() []*GraphicalLine { return p.graphicalLines }

// Labels returns the model's labels.
func (p *Pathway) Labels() []*Label { return p.labels }

// Shapes returns the model's shapes.
func (p *Pathway) Shapes() []*Shape { return p.shapes }

// Groups returns the model's groups.
func (p *Pathway) Groups() []*Group { return p.groups }

// Annotations returns the model's shared annotations.
func (p *Pathway) Annotations() []*Annotation { return p.annotations }

// Citations returns the model's shared citations.
func (p *Pathway) Citations() []*Citation { return p.citations }

// Evidences returns the model's shared evidences.
func (p *Pathway) Evidences() []*Evidence { return p.evidences }

// Root role implementation: the pathway itself is a target for all three
// metadata kinds.

// AnnotationRefs returns the refs attaching annotations to the root.
func (p *Pathway) AnnotationRefs() []*AnnotationRef { return p.annotationRefs }

// CitationRefs returns the refs attaching citations to the root.
func (p *Pathway) CitationRefs() []*CitationRef { return p.citationRefs }

// EvidenceRefs returns the refs attaching evidences to the root.
func (p *Pathway) EvidenceRefs() []*EvidenceRef { return p.evidenceRefs }

func (p *Pathway) addAnnotationRef(ref *AnnotationRef) {
	p.annotationRefs = append(p.annotationRefs, ref)
}

func (p *Pathway) removeAnnotationRef(ref *AnnotationRef) {
	p.annotationRefs = removeRef(p.annotationRefs, ref)
}

func (p *Pathway) addCitationRef(ref *CitationRef) {
	p.citationRefs = append(p.citationRefs, ref)
}

func (p *Pathway) removeCitationRef(ref *CitationRef) {
	p.citationRefs = removeRef(p.citationRefs, ref)
}

func (p *Pathway) addEvidenceRef(ref *EvidenceRef) {
	p.evidenceRefs = append(p.evidenceRefs, ref)
}

func (p *Pathway) removeEvidenceRef(ref *EvidenceRef) {
	p.evidenceRefs = removeRef(p.evidenceRefs, ref)
}

func (p *Pathway) owner() *Pathway { return p }

// claimID mints an identifier when id is empty, otherwise reserves it.
// Reservation fails when the identifier is already taken in this model.
func (p *Pathway) claimID(id string) (string, error) {
	if id == "" {
		return p.ids.Mint(), nil
	}
	if _, exists := p.byID[id]; exists {
		return "", errors.Wrapf(errors.ErrAlreadyExists, "identifier %q", id)
	}
	// The id space may already hold the id from the document pre-scan;
	// only the index decides in-model uniqueness.
	if !p.ids.Taken(id) {
		if err := p.ids.Reserve(id); err != nil {
			return "", err
		}
	}
	return id, nil
}

func (p *Pathway) register(id string, node Linkable) {
	p.byID[id] = node
}

func (p *Pathway) unregister(id string) {
	delete(p.byID, id)
}

// ResolveLinkTarget resolves a textual key to a node: the primary
// identifier index first, falling back to the legacy group-key index.
// It returns nil, not an error, when neither index has the key; dangling
// references in a document are dropped silently.
func (p *Pathway) ResolveLinkTarget(key string) Linkable {
	if key == "" {
		return nil
	}
	if node, ok := p.byID[key]; ok {
		return node
	}
	if g, ok := p.byLegacyGroupID[key]; ok {
		return g
	}
	return nil
}

// ResolveGroupKey resolves a group-membership key. Membership
// declarations live in the legacy key space in the older format, so the
// legacy index is consulted first; the primary index serves the current
// format, where membership uses the group's own identifier.
func (p *Pathway) ResolveGroupKey(key string) *Group {
	if key == "" {
		return nil
	}
	if g, ok := p.byLegacyGroupID[key]; ok {
		return g
	}
	if g, ok := p.byID[key].(*Group); ok {
		return g
	}
	return nil
}

// Lookup returns the node with the given identifier from the primary
// index, or nil.
func (p *Pathway) Lookup(id string) Linkable {
	return p.byID[id]
}

// Element constructors. An empty id mints a fresh identifier; a supplied
// id is reserved and an error reports collisions.

// NewDataNode creates a data node owned by this model.
func (p *Pathway) NewDataNode(id string) (*DataNode, error) {
	claimed, err := p.claimID(id)
	if err != nil {
		return nil, err
	}
	n := &DataNode{PathwayElement: PathwayElement{id: claimed, p: p}}
	p.dataNodes = append(p.dataNodes, n)
	p.register(claimed, n)
	return n, nil
}

// NewState creates a state attached to the given data node.
func (p *Pathway) NewState(id string, node *DataNode) (*State, error) {
	if node == nil || node.p != p {
		return nil, errors.NewInvariant("create", "State", "data node is not owned by this pathway")
	}
	claimed, err := p.claimID(id)
	if err != nil {
		return nil, err
	}
	s := &State{PathwayElement: PathwayElement{id: claimed, p: p}, node: node}
	p.states = append(p.states, s)
	node.states = append(node.states, s)
	p.register(claimed, s)
	return s, nil
}

// NewInteraction creates an interaction line element.
func (p *Pathway) NewInteraction(id string) (*Interaction, error) {
	claimed, err := p.claimID(id)
	if err != nil {
		return nil, err
	}
	in := &Interaction{PathwayElement: PathwayElement{id: claimed, p: p}}
	p.interactions = append(p.interactions, in)
	p.register(claimed, in)
	return in, nil
}

// NewGraphicalLine creates a graphical line element.
func (p *Pathway) NewGraphicalLine(id string) (*GraphicalLine, error) {
	claimed, err := p.claimID(id)
	if err != nil {
		return nil, err
	}
	l := &GraphicalLine{PathwayElement: PathwayElement{id: claimed, p: p}}
	p.graphicalLines = append(p.graphicalLines, l)
	p.register(claimed, l)
	return l, nil
}

// NewLabel creates a label element.
func (p *Pathway) NewLabel(id string) (*Label, error) {
	claimed, err := p.claimID(id)
	if err != nil {
		return nil, err
	}
	l := &Label{PathwayElement: PathwayElement{id: claimed, p: p}}
	p.labels = append(p.labels, l)
	p.register(claimed, l)
	return l, nil
}

// NewShape creates a shape element.
func (p *Pathway) NewShape(id string) (*Shape, error) {
	claimed, err := p.claimID(id)
	if err != nil {
		return nil, err
	}
	s := &Shape{PathwayElement: PathwayElement{id: claimed, p: p}}
	p.shapes = append(p.shapes, s)
	p.register(claimed, s)
	return s, nil
}

// NewGroup creates a group. legacyID, when non-empty, registers the group
// in the legacy key index used by the older format's membership
// declarations.
func (p *Pathway) NewGroup(id, legacyID string) (*Group, error) {
	claimed, err := p.claimID(id)
	if err != nil {
		return nil, err
	}
	g := &Group{PathwayElement: PathwayElement{id: claimed, p: p}, legacyID: legacyID}
	p.groups = append(p.groups, g)
	p.register(claimed, g)
	if legacyID != "" {
		p.byLegacyGroupID[legacyID] = g
	}
	return g, nil
}

// NewPoint creates a line point. Points without an identifier in the
// source document stay unidentified; a supplied id joins the global
// namespace so endpoint references can reach it.
func (p *Pathway) NewPoint(id string) (*Point, error) {
	if id == "" {
		return &Point{}, nil
	}
	claimed, err := p.claimID(id)
	if err != nil {
		return nil, err
	}
	pt := &Point{id: claimed}
	p.register(claimed, pt)
	return pt, nil
}

// NewAnchor creates a line anchor. Anchors exist to be linked to, so an
// anchor without an identifier gets a minted one.
func (p *Pathway) NewAnchor(id string) (*Anchor, error) {
	claimed, err := p.claimID(id)
	if err != nil {
		return nil, err
	}
	a := &Anchor{id: claimed}
	p.register(claimed, a)
	return a, nil
}

// AddPoint appends a point to an interaction.
func (in *Interaction) AddPoint(pt *Point) { in.points = append(in.points, pt) }

// AddAnchor appends an anchor to an interaction.
func (in *Interaction) AddAnchor(a *Anchor) { in.anchors = append(in.anchors, a) }

// AddPoint appends a point to a graphical line.
func (l *GraphicalLine) AddPoint(pt *Point) { l.points = append(l.points, pt) }

// AddAnchor appends an anchor to a graphical line.
func (l *GraphicalLine) AddAnchor(a *Anchor) { l.anchors = append(l.anchors, a) }

// Shared entity adoption. An entity equal to one the model already owns
// is reused; a new entity gets an identifier and joins the collections.

func (p *Pathway) adoptAnnotation(a *Annotation) (*Annotation, error) {
	if a == nil {
		return nil, errors.NewInvariant("adopt", "Annotation", "nil annotation")
	}
	if a.p == p {
		return a, nil
	}
	if a.p != nil {
		return nil, errors.NewInvariant("adopt", "Annotation", "annotation owned by another pathway")
	}
	for _, existing := range p.annotations {
		if existing.equals(a) {
			return existing, nil
		}
	}
	claimed, err := p.claimID(a.id)
	if err != nil {
		// Duplicate key in the source; mint a replacement.
		claimed, _ = p.claimID("")
	}
	a.id = claimed
	a.p = p
	p.annotations = append(p.annotations, a)
	p.register(claimed, a)
	return a, nil
}

func (p *Pathway) adoptCitation(c *Citation) (*Citation, error) {
	if c == nil {
		return nil, errors.NewInvariant("adopt", "Citation", "nil citation")
	}
	if c.p == p {
		return c, nil
	}
	if c.p != nil {
		return nil, errors.NewInvariant("adopt", "Citation", "citation owned by another pathway")
	}
	for _, existing := range p.citations {
		if existing.equals(c) {
			return existing, nil
		}
	}
	claimed, err := p.claimID(c.id)
	if err != nil {
		// Duplicate key in the source; mint a replacement.
		claimed, _ = p.claimID("")
	}
	c.id = claimed
	c.p = p
	p.citations = append(p.citations, c)
	p.register(claimed, c)
	return c, nil
}

func (p *Pathway) adoptEvidence(e *Evidence) (*Evidence, error) {
	if e == nil {
		return nil, errors.NewInvariant("adopt", "Evidence", "nil evidence")
	}
	if e.p == p {
		return e, nil
	}
	if e.p != nil {
		return nil, errors.NewInvariant("adopt", "Evidence", "evidence owned by another pathway")
	}
	for _, existing := range p.evidences {
		if existing.equals(e) {
			return existing, nil
		}
	}
	claimed, err := p.claimID(e.id)
	if err != nil {
		// Duplicate key in the source; mint a replacement.
		claimed, _ = p.claimID("")
	}
	e.id = claimed
	e.p = p
	p.evidences = append(p.evidences, e)
	p.register(claimed, e)
	return e, nil
}

// Shared entity removal, called when the last ref drops. The identifier
// stays taken in the id space for the rest of the session.

func (p *Pathway) removeAnnotation(a *Annotation) {
	for i, existing := range p.annotations {
		if existing == a {
			p.annotations = append(p.annotations[:i], p.annotations[i+1:]...)
			p.unregister(a.id)
			a.p = nil
			return
		}
	}
}

func (p *Pathway) removeCitation(c *Citation) {
	for i, existing := range p.citations {
		if existing == c {
			p.citations = append(p.citations[:i], p.citations[i+1:]...)
			p.unregister(c.id)
			c.p = nil
			return
		}
	}
}

func (p *Pathway) removeEvidence(e *Evidence) {
	for i, existing := range p.evidences {
		if existing == e {
			p.evidences = append(p.evidences[:i], p.evidences[i+1:]...)
			p.unregister(e.id)
			e.p = nil
			return
		}
	}
}

// RemoveAnnotation removes a shared annotation and terminates all its refs.
func (p *Pathway) RemoveAnnotation(a *Annotation) {
	refs := append([]*AnnotationRef(nil), a.refs...)
	for _, ref := range refs {
		_ = ref.Detach()
	}
	// The last detach already removed it; cover the zero-ref case.
	if a.p == p {
		p.removeAnnotation(a)
	}
}

// RemoveCitation removes a shared citation and terminates all its refs.
func (p *Pathway) RemoveCitation(c *Citation) {
	refs := append([]*CitationRef(nil), c.refs...)
	for _, ref := range refs {
		_ = ref.Detach()
	}
	if c.p == p {
		p.removeCitation(c)
	}
}

// RemoveEvidence removes a shared evidence and terminates all its refs.
func (p *Pathway) RemoveEvidence(e *Evidence) {
	refs := append([]*EvidenceRef(nil), e.refs...)
	for _, ref := range refs {
		_ = ref.Detach()
	}
	if e.p == p {
		p.removeEvidence(e)
	}
}

// unlinkPointsTo clears every line endpoint currently linked to the node.
func (p *Pathway) unlinkPointsTo(node Linkable) {
	clear := func(points []*Point) {
		for _, pt := range points {
			if pt.target == node {
				pt.target = nil
			}
		}
	}
	for _, in := range p.interactions {
		clear(in.points)
	}
	for _, l := range p.graphicalLines {
		clear(l.points)
	}
}

// removeElementCommon handles the parts of element removal shared by all
// kinds: metadata refs, group membership, endpoint links, and the index.
func (p *Pathway) removeElementCommon(e *PathwayElement, node Linkable) {
	e.detachAllRefs()
	if g, ok := node.(Groupable); ok {
		if grp := g.GroupRef(); grp != nil {
			grp.RemoveMember(g)
		}
	}
	p.unlinkPointsTo(node)
	p.unregister(e.id)
	e.p = nil
}

// RemoveDataNode removes a data node, its states, and every link to it.
func (p *Pathway) RemoveDataNode(n *DataNode) {
	for _, s := range append([]*State(nil), n.states...) {
		p.RemoveState(s)
	}
	for i, existing := range p.dataNodes {
		if existing == n {
			p.dataNodes = append(p.dataNodes[:i], p.dataNodes[i+1:]...)
			break
		}
	}
	p.removeElementCommon(&n.PathwayElement, n)
}

// RemoveState removes a state from the model and from its data node.
func (p *Pathway) RemoveState(s *State) {
	for i, existing := range p.states {
		if existing == s {
			p.states = append(p.states[:i], p.states[i+1:]...)
			break
		}
	}
	if s.node != nil {
		s.node.states = removeRef(s.node.states, s)
		s.node = nil
	}
	p.removeElementCommon(&s.PathwayElement, s)
}

// RemoveInteraction removes an interaction and unlinks anything pointing
// at it or its anchors.
func (p *Pathway) RemoveInteraction(in *Interaction) {
	for i, existing := range p.interactions {
		if existing == in {
			p.interactions = append(p.interactions[:i], p.interactions[i+1:]...)
			break
		}
	}
	p.removeLineParts(&in.lineCommon)
	p.removeElementCommon(&in.PathwayElement, in)
}

// RemoveGraphicalLine removes a graphical line and unlinks anything
// pointing at it or its anchors.
func (p *Pathway) RemoveGraphicalLine(l *GraphicalLine) {
	for i, existing := range p.graphicalLines {
		if existing == l {
			p.graphicalLines = append(p.graphicalLines[:i], p.graphicalLines[i+1:]...)
			break
		}
	}
	p.removeLineParts(&l.lineCommon)
	p.removeElementCommon(&l.PathwayElement, l)
}

func (p *Pathway) removeLineParts(l *lineCommon) {
	for _, a := range l.anchors {
		p.unlinkPointsTo(a)
		p.unregister(a.id)
	}
	for _, pt := range l.points {
		if pt.id != "" {
			p.unregister(pt.id)
		}
	}
}

// RemoveLabel removes a label element.
func (p *Pathway) RemoveLabel(l *Label) {
	for i, existing := range p.labels {
		if existing == l {
			p.labels = append(p.labels[:i], p.labels[i+1:]...)
			break
		}
	}
	p.removeElementCommon(&l.PathwayElement, l)
}

// RemoveShape removes a shape element.
func (p *Pathway) RemoveShape(s *Shape) {
	for i, existing := range p.shapes {
		if existing == s {
			p.shapes = append(p.shapes[:i], p.shapes[i+1:]...)
			break
		}
	}
	p.removeElementCommon(&s.PathwayElement, s)
}

// RemoveGroup removes a group. Members survive; their membership is
// cleared. Both key-space entries for the group are dropped.
func (p *Pathway) RemoveGroup(g *Group) {
	for _, m := range append([]Groupable(nil), g.members...) {
		g.RemoveMember(m)
	}
	for i, existing := range p.groups {
		if existing == g {
			p.groups = append(p.groups[:i], p.groups[i+1:]...)
			break
		}
	}
	if g.legacyID != "" {
		delete(p.byLegacyGroupID, g.legacyID)
	}
	p.removeElementCommon(&g.PathwayElement, g)
}

// PruneEmptyGroups removes every group with no members and returns how
// many were removed. The reader's last pass uses this to drop groups
// kept alive only by references that resolved elsewhere.
func (p *Pathway) PruneEmptyGroups() int {
	var empty []*Group
	for _, g := range p.groups {
		if len(g.members) == 0 {
			empty = append(empty, g)
		}
	}
	for _, g := range empty {
		p.RemoveGroup(g)
	}
	return len(empty)
}
