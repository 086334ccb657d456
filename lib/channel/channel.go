// Package channel defines the closed set of message routes a bridge exposes.
//
// Every identifier that can cross the boundary is declared up front in a Set.
// Capabilities are minted against the Set, so a caller-supplied string that
// was never declared can never reach the transport.
package channel

import (
	"fmt"
	"sort"
)

// ID names one logical message route between the host and the consumer.
type ID string

// The canonical channel pair: a consumer-to-host command route and a
// host-to-consumer notice route.
const (
	Command = ID("app:command")
	Notice  = ID("app:notice")
)

// Direction describes which way messages flow on a channel.
type Direction uint8

const (
	// Outbound channels carry messages from the consumer to the host.
	Outbound Direction = iota + 1
	// Inbound channels carry messages from the host to the consumer.
	Inbound
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	switch d {
	case Outbound:
		return "outbound"
	case Inbound:
		return "inbound"
	default:
		return "unknown"
	}
}

// Decl declares one channel: its identifier and direction.
type Decl struct {
	ID        ID
	Direction Direction
}

// Set is the immutable, enumerated collection of declared channels. Both
// sides of the bridge are built from the same Set.
type Set struct {
	decls map[ID]Decl
}

// NewSet builds a Set from the given declarations. Duplicate identifiers and
// invalid directions are rejected.
func NewSet(decls ...Decl) (*Set, error) {
	byID := make(map[ID]Decl, len(decls))
	for _, decl := range decls {
		if decl.ID == "" {
			return nil, fmt.Errorf("channel declaration has empty identifier")
		}
		if decl.Direction != Outbound && decl.Direction != Inbound {
			return nil, fmt.Errorf("channel %q has invalid direction", decl.ID)
		}
		if _, exists := byID[decl.ID]; exists {
			return nil, fmt.Errorf("channel %q declared twice", decl.ID)
		}
		byID[decl.ID] = decl
	}

	return &Set{decls: byID}, nil
}

// MustNewSet is NewSet that panics on error, for declarations known at build time.
func MustNewSet(decls ...Decl) *Set {
	set, err := NewSet(decls...)
	if err != nil {
		panic(err)
	}
	return set
}

// Lookup returns the declaration for id and whether it is part of the set.
func (s *Set) Lookup(id ID) (Decl, bool) {
	decl, exists := s.decls[id]
	return decl, exists
}

// Require returns the declaration for id, or an error when the identifier is
// not declared or its direction does not match.
func (s *Set) Require(id ID, direction Direction) (Decl, error) {
	decl, exists := s.decls[id]
	if !exists {
		return Decl{}, fmt.Errorf("channel %q is not declared", id)
	}
	if decl.Direction != direction {
		return Decl{}, fmt.Errorf("channel %q is %s, not %s", id, decl.Direction, direction)
	}
	return decl, nil
}

// IDs returns the declared identifiers in lexical order.
func (s *Set) IDs() []ID {
	ids := make([]ID, 0, len(s.decls))
	for id := range s.decls {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of declared channels.
func (s *Set) Len() int {
	return len(s.decls)
}

// DefaultSet returns the canonical two-channel set: Command outbound and
// Notice inbound.
func DefaultSet() *Set {
	return MustNewSet(
		Decl{ID: Command, Direction: Outbound},
		Decl{ID: Notice, Direction: Inbound},
	)
}
