// Package schema describes the model metadata consumed by conflict-key
// resolution and statement generation: attributes, unique-key groups and
// declared indexes. Metadata is produced elsewhere (model definitions) and
// is treated as read-only here.
package schema

// Attribute is a single model field. Column is the physical storage column
// and defaults to the attribute name when empty.
type Attribute struct {
	Name       string
	Column     string
	PrimaryKey bool
}

// ColumnName returns the storage column for the attribute.
func (a Attribute) ColumnName() string {
	if a.Column != "" {
		return a.Column
	}
	return a.Name
}

// UniqueKey is a named multi-column uniqueness constraint declared on the
// model.
type UniqueKey struct {
	Name   string
	Fields []FieldRef
}

// Index is a declared index; only indexes with Unique set participate in
// conflict-key resolution.
type Index struct {
	Name   string
	Unique bool
	Fields []FieldRef
}

// Group is an ordered list of canonical field names whose combined values
// are unique across all rows of a table.
type Group []string

// Model is the schema metadata for one table.
type Model struct {
	Table      string
	Attributes []Attribute
	UniqueKeys []UniqueKey
	Indexes    []Index
}

// Attribute looks up an attribute by canonical field name.
func (m *Model) Attribute(field string) (Attribute, bool) {
	for _, a := range m.Attributes {
		if a.Name == field {
			return a, true
		}
	}
	return Attribute{}, false
}

// ColumnFor maps a canonical field name to its storage column. Fields
// without a matching attribute map to themselves; bad names surface later
// as statement-generation or database errors rather than being validated
// here.
func (m *Model) ColumnFor(field string) string {
	if a, ok := m.Attribute(field); ok {
		return a.ColumnName()
	}
	return field
}

// PrimaryKeys returns the attributes flagged as primary key, in declaration
// order.
func (m *Model) PrimaryKeys() []Attribute {
	var pks []Attribute
	for _, a := range m.Attributes {
		if a.PrimaryKey {
			pks = append(pks, a)
		}
	}
	return pks
}
