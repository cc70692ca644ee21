package model

import (
	"errors"
	"testing"

	gerrors "github.com/gopml/gopml/core/errors"
)

func TestIdentifierUniquenessAcrossKinds(t *testing.T) {
	p := New()

	if _, err := p.NewDataNode("n1"); err != nil {
		t.Fatalf("NewDataNode: %v", err)
	}
	// Same identifier for a different entity kind must be rejected.
	if _, err := p.NewShape("n1"); err == nil {
		t.Fatal("expected collision error for duplicate identifier across kinds")
	} else if !errors.Is(err, gerrors.ErrAlreadyExists) {
		t.Errorf("collision should wrap ErrAlreadyExists, got %v", err)
	}
	if _, err := p.NewGroup("n1", ""); err == nil {
		t.Fatal("expected collision error for group with taken identifier")
	}
}

func TestMintedIDsAvoidDocumentIDs(t *testing.T) {
	p := New()
	// Occupy the first generated identifier; minting must skip it.
	if _, err := p.NewDataNode("id1"); err != nil {
		t.Fatalf("NewDataNode: %v", err)
	}
	n, err := p.NewDataNode("")
	if err != nil {
		t.Fatalf("NewDataNode: %v", err)
	}
	if n.ID() == "id1" {
		t.Error("minted identifier collides with document identifier")
	}
}

func TestIdentifierNotReusedAfterRemoval(t *testing.T) {
	p := New()
	n, _ := p.NewDataNode("")
	id := n.ID()
	p.RemoveDataNode(n)

	// The index forgets the element but the session keeps the id taken.
	if p.Lookup(id) != nil {
		t.Error("removed element still resolvable")
	}
	if !p.IDSpace().Taken(id) {
		t.Error("identifier returned to the pool after removal")
	}
	for i := 0; i < 100; i++ {
		fresh, _ := p.NewDataNode("")
		if fresh.ID() == id {
			t.Fatal("identifier reused within the session")
		}
	}
}

func TestResolveLinkTargetPrimaryThenLegacy(t *testing.T) {
	p := New()
	n, _ := p.NewDataNode("n1")
	g, err := p.NewGroup("grp1", "legacy7")
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}

	if got := p.ResolveLinkTarget("n1"); got != Linkable(n) {
		t.Error("primary index lookup failed")
	}
	if got := p.ResolveLinkTarget("grp1"); got != Linkable(g) {
		t.Error("group lookup by primary key failed")
	}
	if got := p.ResolveLinkTarget("legacy7"); got != Linkable(g) {
		t.Error("group lookup by legacy key failed")
	}
	// Dangling keys resolve to nothing, not an error.
	if got := p.ResolveLinkTarget("g7"); got != nil {
		t.Errorf("dangling key resolved to %v, want nil", got)
	}
	if got := p.ResolveLinkTarget(""); got != nil {
		t.Error("empty key should resolve to nil")
	}
}

func TestPrimaryIndexShadowsLegacyKey(t *testing.T) {
	p := New()
	// An element claims "k1" in the primary space; a group's legacy key
	// also reads "k1". The primary index wins.
	n, _ := p.NewDataNode("k1")
	if _, err := p.NewGroup("", "k1"); err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	if got := p.ResolveLinkTarget("k1"); got != Linkable(n) {
		t.Error("primary index should shadow the legacy key space")
	}
}

func TestGroupMembership(t *testing.T) {
	p := New()
	g, _ := p.NewGroup("", "")
	n, _ := p.NewDataNode("")

	g.AddMember(n)
	g.AddMember(n) // idempotent
	if len(g.Members()) != 1 {
		t.Fatalf("members = %d, want 1", len(g.Members()))
	}
	if n.GroupRef() != g {
		t.Error("membership not recorded on the element")
	}

	g.RemoveMember(n)
	if len(g.Members()) != 0 || n.GroupRef() != nil {
		t.Error("membership not fully cleared")
	}
}

func TestRemoveGroupClearsMembership(t *testing.T) {
	p := New()
	g, _ := p.NewGroup("g1", "legacyg1")
	n, _ := p.NewDataNode("")
	g.AddMember(n)

	p.RemoveGroup(g)

	if n.GroupRef() != nil {
		t.Error("member should survive with membership cleared")
	}
	if p.ResolveLinkTarget("g1") != nil || p.ResolveLinkTarget("legacyg1") != nil {
		t.Error("both key-space entries should be dropped")
	}
}

func TestPruneEmptyGroups(t *testing.T) {
	p := New()
	empty, _ := p.NewGroup("", "")
	full, _ := p.NewGroup("", "")
	n, _ := p.NewDataNode("")
	full.AddMember(n)

	removed := p.PruneEmptyGroups()
	if removed != 1 {
		t.Errorf("pruned = %d, want 1", removed)
	}
	if len(p.Groups()) != 1 || p.Groups()[0] != full {
		t.Error("non-empty group should survive pruning")
	}
	if p.Lookup(empty.ID()) != nil {
		t.Error("pruned group still resolvable")
	}
}

func TestStatesFollowDataNode(t *testing.T) {
	p := New()
	n, _ := p.NewDataNode("")
	s, err := p.NewState("", n)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	if s.DataNode() != n || len(n.States()) != 1 {
		t.Fatal("state not wired to its data node")
	}

	p.RemoveDataNode(n)
	if len(p.States()) != 0 {
		t.Error("removing a data node should remove its states")
	}
}

func TestNewStateRejectsForeignNode(t *testing.T) {
	p1 := New()
	p2 := New()
	n, _ := p1.NewDataNode("")
	if _, err := p2.NewState("", n); err == nil {
		t.Error("expected error creating a state on another model's node")
	}
}

func TestRemoveLineUnlinksDependents(t *testing.T) {
	p := New()
	n, _ := p.NewDataNode("")

	in, _ := p.NewInteraction("")
	anchor, _ := p.NewAnchor("")
	in.AddAnchor(anchor)

	// A second line links one endpoint to the node, the other to the anchor.
	l, _ := p.NewGraphicalLine("")
	pt1, _ := p.NewPoint("")
	pt1.SetTarget(n)
	pt2, _ := p.NewPoint("")
	pt2.SetTarget(anchor)
	l.AddPoint(pt1)
	l.AddPoint(pt2)

	p.RemoveInteraction(in)
	if pt2.Target() != nil {
		t.Error("endpoint linked to a removed line's anchor should be unlinked")
	}
	if pt1.Target() != Linkable(n) {
		t.Error("unrelated endpoint should keep its target")
	}

	p.RemoveDataNode(n)
	if pt1.Target() != nil {
		t.Error("endpoint linked to a removed node should be unlinked")
	}
}

func TestPointIdentifiersJoinNamespace(t *testing.T) {
	p := New()
	pt, err := p.NewPoint("pt1")
	if err != nil {
		t.Fatalf("NewPoint: %v", err)
	}
	if got := p.ResolveLinkTarget("pt1"); got != Linkable(pt) {
		t.Error("identified point should be resolvable")
	}
	if _, err := p.NewDataNode("pt1"); err == nil {
		t.Error("point identifiers share the global namespace")
	}

	// Unidentified points stay out of the namespace.
	anon, err := p.NewPoint("")
	if err != nil {
		t.Fatalf("NewPoint: %v", err)
	}
	if anon.ID() != "" {
		t.Error("point without an id should stay unidentified")
	}
}
