package schema

// FieldRef identifies a model field in a unique-key or index declaration.
// Model definitions refer to fields either by bare name or by a descriptor
// that also carries the physical storage column, so the two shapes are kept
// as distinct variants behind a sealed interface.
type FieldRef interface {
	canonical() string
}

// Name is a bare field reference: the reference is the canonical name.
type Name string

func (n Name) canonical() string { return string(n) }

// Descriptor is a structured field reference. Name takes precedence over
// Field when both are set; Column is the physical storage column and never
// participates in canonicalization.
type Descriptor struct {
	Name   string
	Field  string
	Column string
}

func (d Descriptor) canonical() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Field
}

// Canonical reduces either FieldRef variant to the plain logical field name.
func Canonical(ref FieldRef) string {
	if ref == nil {
		return ""
	}
	return ref.canonical()
}

// CanonicalAll maps Canonical over a descriptor list, preserving order.
func CanonicalAll(refs []FieldRef) []string {
	if len(refs) == 0 {
		return nil
	}
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = Canonical(ref)
	}
	return names
}
