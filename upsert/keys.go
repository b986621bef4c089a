package upsert

import "github.com/upsertkit/upsertkit/schema"

// ConflictKeys resolves the ordered candidate uniqueness groups considered
// when upserting into m.
//
// A non-empty override is authoritative: the result is that single group,
// canonicalized, and no inference happens. Otherwise the result is the
// concatenation of one singleton group per primary-key attribute, one group
// per declared unique key, and one group per declared-unique index, in that
// order. No de-duplication is performed; overlapping or repeated groups are
// harmless redundant disjuncts downstream.
func ConflictKeys(m *schema.Model, override []schema.FieldRef) []schema.Group {
	if len(override) > 0 {
		return []schema.Group{schema.CanonicalAll(override)}
	}
	var groups []schema.Group
	groups = append(groups, fromPrimaryKeys(m)...)
	groups = append(groups, fromUniqueKeys(m)...)
	groups = append(groups, fromUniqueIndexes(m)...)
	return groups
}

// fromPrimaryKeys yields one singleton group per primary-key attribute.
// A model with several primary-key-flagged attributes yields several
// independent groups, not one composite group: any one of them matching is
// enough to treat the incoming record as a conflict.
func fromPrimaryKeys(m *schema.Model) []schema.Group {
	var groups []schema.Group
	for _, a := range m.PrimaryKeys() {
		groups = append(groups, schema.Group{a.Name})
	}
	return groups
}

func fromUniqueKeys(m *schema.Model) []schema.Group {
	var groups []schema.Group
	for _, uk := range m.UniqueKeys {
		groups = append(groups, schema.CanonicalAll(uk.Fields))
	}
	return groups
}

func fromUniqueIndexes(m *schema.Model) []schema.Group {
	var groups []schema.Group
	for _, idx := range m.Indexes {
		if !idx.Unique {
			continue
		}
		groups = append(groups, schema.CanonicalAll(idx.Fields))
	}
	return groups
}
