package upsert

import (
	"github.com/upsertkit/upsertkit/predicate"
	"github.com/upsertkit/upsertkit/schema"
)

// Record maps canonical field names to the values being written.
type Record map[string]any

// covers reports whether the record supplies a value for every field of the
// group.
func (r Record) covers(group schema.Group) bool {
	for _, f := range group {
		if _, ok := r[f]; !ok {
			return false
		}
	}
	return true
}

// MatchPredicate builds the disjunctive match condition for an upsert: an
// OR of the base condition (when present) and one AND-of-equalities per
// qualifying candidate group.
//
// A group qualifies when the record supplies a value for every one of its
// fields and the base condition does not already pin the whole group. The
// subset check is strict: a group only partially overlapped by the base
// condition still contributes its own disjunct. Groups that fail either
// test are skipped silently; they simply cannot match a row for this
// record.
//
// With no base condition and no qualifying group the result is an empty
// disjunction, which generators render as a condition matching no row, so
// the statement degrades to a plain insert.
func MatchPredicate(groups []schema.Group, record Record, base predicate.Predicate) predicate.Or {
	var disjuncts []predicate.Predicate
	covered := predicate.FieldSet{}
	if !predicate.IsEmpty(base) {
		disjuncts = append(disjuncts, base)
		covered = predicate.FieldsOf(base)
	}
	for _, group := range groups {
		if covered.ContainsAll(group) {
			// Fully pinned by the base condition (or empty); a redundant
			// disjunct would never change the match.
			continue
		}
		if !record.covers(group) {
			continue
		}
		conj := make(predicate.And, 0, len(group))
		for _, f := range group {
			conj = append(conj, predicate.Eq{Field: f, Value: record[f]})
		}
		disjuncts = append(disjuncts, conj)
	}
	return predicate.Or(disjuncts)
}
