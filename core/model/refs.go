package model

import (
	"github.com/gopml/gopml/core/errors"
)

// RefState is the lifecycle state of a ref.
type RefState int

const (
	// RefUnbound exists only momentarily during construction.
	RefUnbound RefState = iota
	// RefBound is the sole externally observable live state.
	RefBound
	// RefTerminated is absorbing; a terminated ref is never rewired.
	RefTerminated
)

// Annotatable is the annotation-target role: held by the pathway root,
// every diagram element, and CitationRef.
type Annotatable interface {
	AnnotationRefs() []*AnnotationRef
	addAnnotationRef(ref *AnnotationRef)
	removeAnnotationRef(ref *AnnotationRef)
	owner() *Pathway
}

// Citable is the citation-target role: held by the pathway root, every
// diagram element, and AnnotationRef.
type Citable interface {
	CitationRefs() []*CitationRef
	addCitationRef(ref *CitationRef)
	removeCitationRef(ref *CitationRef)
	owner() *Pathway
}

// Evidenceable is the evidence-target role: held by the pathway root,
// every diagram element, and AnnotationRef.
type Evidenceable interface {
	EvidenceRefs() []*EvidenceRef
	addEvidenceRef(ref *EvidenceRef)
	removeEvidenceRef(ref *EvidenceRef)
	owner() *Pathway
}

// Annotation is a shared ontology-term entity. It keeps the list of refs
// pointing at it, used only to detect when it becomes unreferenced.
type Annotation struct {
	id string
	p  *Pathway

	Value string
	Type  string // e.g. "Ontology", "Taxonomy", "Pathway"
	Xref  *Xref

	refs []*AnnotationRef
}

// ID returns the annotation's identifier.
func (a *Annotation) ID() string { return a.id }

// Pathway returns the owning model, or nil.
func (a *Annotation) Pathway() *Pathway { return a.p }

// Refs returns the refs currently pointing at this annotation.
func (a *Annotation) Refs() []*AnnotationRef { return a.refs }

func (a *Annotation) equals(b *Annotation) bool {
	return a.Value == b.Value && a.Type == b.Type && equalXref(a.Xref, b.Xref)
}

// Citation is a shared bibliographic entity. The legacy fields carry
// what the older format's publication records hold so legacy documents
// round-trip.
type Citation struct {
	id string
	p  *Pathway

	Xref *Xref
	URL  string

	// Legacy publication record fields.
	Title   string
	Source  string
	Year    string
	Authors []string

	refs []*CitationRef
}

// ID returns the citation's identifier.
func (c *Citation) ID() string { return c.id }

// Pathway returns the owning model, or nil.
func (c *Citation) Pathway() *Pathway { return c.p }

// Refs returns the refs currently pointing at this citation.
func (c *Citation) Refs() []*CitationRef { return c.refs }

func (c *Citation) equals(d *Citation) bool {
	if !equalXref(c.Xref, d.Xref) || c.URL != d.URL {
		return false
	}
	if c.Title != d.Title || c.Source != d.Source || c.Year != d.Year {
		return false
	}
	if len(c.Authors) != len(d.Authors) {
		return false
	}
	for i := range c.Authors {
		if c.Authors[i] != d.Authors[i] {
			return false
		}
	}
	return true
}

// Evidence is a shared evidence-code entity.
type Evidence struct {
	id string
	p  *Pathway

	Value string
	Xref  *Xref
	URL   string

	refs []*EvidenceRef
}

// ID returns the evidence's identifier.
func (e *Evidence) ID() string { return e.id }

// Pathway returns the owning model, or nil.
func (e *Evidence) Pathway() *Pathway { return e.p }

// Refs returns the refs currently pointing at this evidence.
func (e *Evidence) Refs() []*EvidenceRef { return e.refs }

func (e *Evidence) equals(f *Evidence) bool {
	return e.Value == f.Value && e.URL == f.URL && equalXref(e.Xref, f.Xref)
}

// AnnotationRef records one use of an annotation by one target. It is
// itself a citation target and an evidence target: an annotation use may
// carry its own citations, which may in turn carry further annotations.
// This is the model's one intentional cycle.
type AnnotationRef struct {
	source *Annotation
	target Annotatable
	state  RefState

	citationRefs []*CitationRef
	evidenceRefs []*EvidenceRef
}

// Source returns the annotation this ref points at.
func (r *AnnotationRef) Source() *Annotation { return r.source }

// Target returns the role-holder this ref is attached to.
func (r *AnnotationRef) Target() Annotatable { return r.target }

// State returns the ref's lifecycle state.
func (r *AnnotationRef) State() RefState { return r.state }

// CitationRefs returns the citation refs carried by this annotation use.
func (r *AnnotationRef) CitationRefs() []*CitationRef { return r.citationRefs }

// EvidenceRefs returns the evidence refs carried by this annotation use.
func (r *AnnotationRef) EvidenceRefs() []*EvidenceRef { return r.evidenceRefs }

func (r *AnnotationRef) addCitationRef(ref *CitationRef) {
	r.citationRefs = append(r.citationRefs, ref)
}

func (r *AnnotationRef) removeCitationRef(ref *CitationRef) {
	r.citationRefs = removeRef(r.citationRefs, ref)
}

func (r *AnnotationRef) addEvidenceRef(ref *EvidenceRef) {
	r.evidenceRefs = append(r.evidenceRefs, ref)
}

func (r *AnnotationRef) removeEvidenceRef(ref *EvidenceRef) {
	r.evidenceRefs = removeRef(r.evidenceRefs, ref)
}

func (r *AnnotationRef) owner() *Pathway {
	if r.source != nil {
		return r.source.p
	}
	return nil
}

// bind wires the ref to its endpoints. Both sides are one-time: a ref is
// wired at birth or not at all on that side.
func (r *AnnotationRef) bind(source *Annotation, target Annotatable) error {
	if r.state != RefUnbound {
		return errors.NewInvariant("bind", "AnnotationRef", "ref is not unbound")
	}
	if r.source != nil || r.target != nil {
		return errors.NewInvariant("bind", "AnnotationRef", "endpoint already set")
	}
	r.source = source
	r.target = target
	source.refs = append(source.refs, r)
	target.addAnnotationRef(r)
	r.state = RefBound
	return nil
}

// Detach unlinks the ref from both endpoints, recursively terminates the
// refs it carries, and removes the source annotation from the model when
// this was its last ref. Detaching a ref that is not bound is an
// invariant violation.
func (r *AnnotationRef) Detach() error {
	if r.state != RefBound {
		return errors.NewInvariant("detach", "AnnotationRef", "ref is not bound")
	}
	src := r.source
	r.target.removeAnnotationRef(r)
	src.refs = removeRef(src.refs, r)
	r.state = RefTerminated

	// Cascade: terminate the refs this annotation use carries.
	for _, owned := range append([]*CitationRef(nil), r.citationRefs...) {
		_ = owned.Detach()
	}
	for _, owned := range append([]*EvidenceRef(nil), r.evidenceRefs...) {
		_ = owned.Detach()
	}

	if len(src.refs) == 0 && src.p != nil {
		src.p.removeAnnotation(src)
	}
	return nil
}

// CitationRef records one use of a citation by one target. It is itself
// an annotation target.
type CitationRef struct {
	source *Citation
	target Citable
	state  RefState

	annotationRefs []*AnnotationRef
}

// Source returns the citation this ref points at.
func (r *CitationRef) Source() *Citation { return r.source }

// Target returns the role-holder this ref is attached to.
func (r *CitationRef) Target() Citable { return r.target }

// State returns the ref's lifecycle state.
func (r *CitationRef) State() RefState { return r.state }

// AnnotationRefs returns the annotation refs carried by this citation use.
func (r *CitationRef) AnnotationRefs() []*AnnotationRef { return r.annotationRefs }

func (r *CitationRef) addAnnotationRef(ref *AnnotationRef) {
	r.annotationRefs = append(r.annotationRefs, ref)
}

func (r *CitationRef) removeAnnotationRef(ref *AnnotationRef) {
	r.annotationRefs = removeRef(r.annotationRefs, ref)
}

func (r *CitationRef) owner() *Pathway {
	if r.source != nil {
		return r.source.p
	}
	return nil
}

func (r *CitationRef) bind(source *Citation, target Citable) error {
	if r.state != RefUnbound {
		return errors.NewInvariant("bind", "CitationRef", "ref is not unbound")
	}
	if r.source != nil || r.target != nil {
		return errors.NewInvariant("bind", "CitationRef", "endpoint already set")
	}
	r.source = source
	r.target = target
	source.refs = append(source.refs, r)
	target.addCitationRef(r)
	r.state = RefBound
	return nil
}

// Detach unlinks the ref from both endpoints, recursively terminates the
// annotation refs it carries, and removes the source citation from the
// model when this was its last ref.
func (r *CitationRef) Detach() error {
	if r.state != RefBound {
		return errors.NewInvariant("detach", "CitationRef", "ref is not bound")
	}
	src := r.source
	r.target.removeCitationRef(r)
	src.refs = removeRef(src.refs, r)
	r.state = RefTerminated

	for _, owned := range append([]*AnnotationRef(nil), r.annotationRefs...) {
		_ = owned.Detach()
	}

	if len(src.refs) == 0 && src.p != nil {
		src.p.removeCitation(src)
	}
	return nil
}

// EvidenceRef records one use of an evidence by one target. It carries
// no refs of its own.
type EvidenceRef struct {
	source *Evidence
	target Evidenceable
	state  RefState
}

// Source returns the evidence this ref points at.
func (r *EvidenceRef) Source() *Evidence { return r.source }

// Target returns the role-holder this ref is attached to.
func (r *EvidenceRef) Target() Evidenceable { return r.target }

// State returns the ref's lifecycle state.
func (r *EvidenceRef) State() RefState { return r.state }

func (r *EvidenceRef) bind(source *Evidence, target Evidenceable) error {
	if r.state != RefUnbound {
		return errors.NewInvariant("bind", "EvidenceRef", "ref is not unbound")
	}
	if r.source != nil || r.target != nil {
		return errors.NewInvariant("bind", "EvidenceRef", "endpoint already set")
	}
	r.source = source
	r.target = target
	source.refs = append(source.refs, r)
	target.addEvidenceRef(r)
	r.state = RefBound
	return nil
}

// Detach unlinks the ref from both endpoints and removes the source
// evidence from the model when this was its last ref.
func (r *EvidenceRef) Detach() error {
	if r.state != RefBound {
		return errors.NewInvariant("detach", "EvidenceRef", "ref is not bound")
	}
	src := r.source
	r.target.removeEvidenceRef(r)
	src.refs = removeRef(src.refs, r)
	r.state = RefTerminated

	if len(src.refs) == 0 && src.p != nil {
		src.p.removeEvidence(src)
	}
	return nil
}

// StageAnnotation creates an unowned annotation carrying a preferred
// identifier. The identifier is claimed when the annotation is adopted
// by a model; a collision there re-mints silently.
func StageAnnotation(id string) *Annotation { return &Annotation{id: id} }

// StageCitation creates an unowned citation carrying a preferred
// identifier.
func StageCitation(id string) *Citation { return &Citation{id: id} }

// StageEvidence creates an unowned evidence carrying a preferred
// identifier.
func StageEvidence(id string) *Evidence { return &Evidence{id: id} }

// AttachAnnotation attaches an annotation to a target, creating the
// AnnotationRef. The annotation is added to the target's model first; an
// equal annotation already owned by the model is reused. Attaching the
// same annotation to the same target twice is an invariant violation.
func AttachAnnotation(target Annotatable, a *Annotation) (*AnnotationRef, error) {
	p := target.owner()
	if p == nil {
		return nil, errors.NewInvariant("attach", "AnnotationRef", "target is not owned by a pathway")
	}
	owned, err := p.adoptAnnotation(a)
	if err != nil {
		return nil, err
	}
	for _, existing := range target.AnnotationRefs() {
		if existing.source == owned {
			return nil, errors.NewInvariant("attach", "AnnotationRef", "annotation already attached to this target")
		}
	}
	ref := &AnnotationRef{}
	if err := ref.bind(owned, target); err != nil {
		return nil, err
	}
	return ref, nil
}

// AttachCitation attaches a citation to a target, creating the
// CitationRef. An equal citation already owned by the model is reused.
func AttachCitation(target Citable, c *Citation) (*CitationRef, error) {
	p := target.owner()
	if p == nil {
		return nil, errors.NewInvariant("attach", "CitationRef", "target is not owned by a pathway")
	}
	owned, err := p.adoptCitation(c)
	if err != nil {
		return nil, err
	}
	for _, existing := range target.CitationRefs() {
		if existing.source == owned {
			return nil, errors.NewInvariant("attach", "CitationRef", "citation already attached to this target")
		}
	}
	ref := &CitationRef{}
	if err := ref.bind(owned, target); err != nil {
		return nil, err
	}
	return ref, nil
}

// AttachEvidence attaches an evidence to a target, creating the
// EvidenceRef. An equal evidence already owned by the model is reused.
func AttachEvidence(target Evidenceable, e *Evidence) (*EvidenceRef, error) {
	p := target.owner()
	if p == nil {
		return nil, errors.NewInvariant("attach", "EvidenceRef", "target is not owned by a pathway")
	}
	owned, err := p.adoptEvidence(e)
	if err != nil {
		return nil, err
	}
	for _, existing := range target.EvidenceRefs() {
		if existing.source == owned {
			return nil, errors.NewInvariant("attach", "EvidenceRef", "evidence already attached to this target")
		}
	}
	ref := &EvidenceRef{}
	if err := ref.bind(owned, target); err != nil {
		return nil, err
	}
	return ref, nil
}
