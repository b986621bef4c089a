package predicate

// FieldSet is a set of canonical field names. Conflict-group inclusion
// decisions are subset checks, so the set operations are explicit rather
// than ad hoc slice scans.
type FieldSet map[string]struct{}

// NewFieldSet builds a set from the given names.
func NewFieldSet(fields ...string) FieldSet {
	s := make(FieldSet, len(fields))
	for _, f := range fields {
		s.Add(f)
	}
	return s
}

// Add inserts a field name.
func (s FieldSet) Add(field string) {
	s[field] = struct{}{}
}

// Has reports membership.
func (s FieldSet) Has(field string) bool {
	_, ok := s[field]
	return ok
}

// ContainsAll reports whether every name in fields is a member, i.e. the
// fields form a subset of s. An empty slice is trivially contained.
func (s FieldSet) ContainsAll(fields []string) bool {
	for _, f := range fields {
		if !s.Has(f) {
			return false
		}
	}
	return true
}

// FieldsOf collects every field name referenced anywhere in the predicate
// tree.
func FieldsOf(p Predicate) FieldSet {
	s := make(FieldSet)
	collectFields(p, s)
	return s
}

func collectFields(p Predicate, into FieldSet) {
	switch v := p.(type) {
	case Eq:
		into.Add(v.Field)
	case And:
		for _, child := range v {
			collectFields(child, into)
		}
	case Or:
		for _, child := range v {
			collectFields(child, into)
		}
	}
}
