// Package model holds the in-memory representation of a pathway diagram:
// a graph of typed elements (data nodes, states, interactions, graphical
// lines, labels, shapes, groups) plus the shared metadata entities
// (annotations, citations, evidences) and the ref join objects connecting
// them.
//
// A Pathway is the exclusive owner of every entity and of the identifier
// space. All identifiers live in one namespace regardless of entity kind.
// Shared metadata entities are created on first reference and removed from
// the model in the same step that drops their last referencing ref.
//
// Refs move through three states: unbound (momentarily, during
// construction), bound (the only externally observable live state), and
// terminated (absorbing). Rebinding a ref is not supported; detach it and
// attach a fresh one.
//
// A Pathway is owned by a single goroutine for the duration of a read or
// edit session; none of the mutation operations are safe for concurrent use.
package model
