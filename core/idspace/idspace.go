// Package idspace allocates and validates unique identifiers for one pathway model.
//
// A Space holds the set of identifiers taken within one session: identifiers
// read from a document, identifiers minted here, and identifiers of entities
// that have since been removed. Removal never returns an identifier to the
// pool, so an id observed once in a session is never handed out again.
//
// A Space belongs to a single model (or a single reader invocation) and is
// not safe for concurrent use.
package idspace

import (
	"sort"
	"strconv"

	"github.com/gopml/gopml/core/errors"
)

// Space is the identifier space for one pathway model.
type Space struct {
	taken map[string]struct{}
	next  uint64
}

// New creates an empty identifier space.
func New() *Space {
	return &Space{taken: make(map[string]struct{})}
}

// NewSeeded creates an identifier space with the given identifiers already taken.
func NewSeeded(taken []string) *Space {
	s := New()
	for _, id := range taken {
		s.taken[id] = struct{}{}
	}
	return s
}

// Mint returns an identifier that is neither taken nor previously minted this
// session, and records it as taken. Mint cannot fail: the identifier space is
// practically unbounded. Generated identifiers are deterministic for a given
// sequence of Mint/Reserve calls, which keeps tests reproducible.
func (s *Space) Mint() string {
	for {
		s.next++
		id := "id" + strconv.FormatUint(s.next, 16)
		if _, exists := s.taken[id]; exists {
			continue
		}
		s.taken[id] = struct{}{}
		return id
	}
}

// Reserve records an externally supplied identifier as taken.
// It returns ErrAlreadyExists (wrapped) when the identifier is already taken;
// callers use that to detect duplicate keys in a document and re-mint.
func (s *Space) Reserve(id string) error {
	if id == "" {
		return errors.NewValidation("id", "identifier must not be empty")
	}
	if _, exists := s.taken[id]; exists {
		return errors.Wrapf(errors.ErrAlreadyExists, "identifier %q", id)
	}
	s.taken[id] = struct{}{}
	return nil
}

// Taken reports whether the identifier is taken in this space.
func (s *Space) Taken(id string) bool {
	_, exists := s.taken[id]
	return exists
}

// Len returns the number of taken identifiers.
func (s *Space) Len() int {
	return len(s.taken)
}

// IDs returns all taken identifiers in sorted order.
func (s *Space) IDs() []string {
	ids := make([]string, 0, len(s.taken))
	for id := range s.taken {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
