// Package predicate defines the boolean combinator tree produced by upsert
// match-condition building and consumed by dialect statement generators.
// The tree is deliberately small: field equality plus AND and OR
// combinators is all an upsert match clause needs.
package predicate

// Predicate is a node in a boolean condition tree over field-equality
// terms. The interface is sealed; the only implementations are Eq, And
// and Or.
type Predicate interface {
	isPredicate()
}

// Eq is a single field = value comparison. Field is a canonical field
// name, not a storage column; generators remap it.
type Eq struct {
	Field string
	Value any
}

func (Eq) isPredicate() {}

// And is a conjunction of its members.
type And []Predicate

func (And) isPredicate() {}

// Or is a disjunction of its members. An empty Or matches no row at all;
// generators must render it as an always-false condition so an upsert
// degrades to a plain insert.
type Or []Predicate

func (Or) isPredicate() {}

// IsEmpty reports whether p carries no condition at all: nil, or a
// combinator with no members.
func IsEmpty(p Predicate) bool {
	switch v := p.(type) {
	case nil:
		return true
	case And:
		return len(v) == 0
	case Or:
		return len(v) == 0
	}
	return false
}
