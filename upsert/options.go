package upsert

import "github.com/upsertkit/upsertkit/schema"

// Options are the per-call knobs recognized by Upsert and BulkUpsert.
type Options struct {
	// ConflictFields overrides conflict-key resolution: the listed fields
	// become the only candidate group.
	ConflictFields []schema.FieldRef

	// Fields restricts which record fields participate in the statement.
	// Empty means all supplied fields.
	Fields []string

	// UpdateOnDuplicate names the fields overwritten when a row matches.
	// When set and no explicit update record is given, the values come from
	// the insert record.
	UpdateOnDuplicate []string

	// IgnoreDuplicates suppresses conflicts entirely: matching rows are
	// left untouched and no error is raised for them.
	IgnoreDuplicates bool

	// Returning requests the affected row back in Result.Row.
	Returning bool
}

// restrict filters the record down to the named fields. A nil or empty
// field list keeps the record as-is.
func restrict(record Record, fields []string) Record {
	if len(fields) == 0 {
		return record
	}
	out := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := record[f]; ok {
			out[f] = v
		}
	}
	return out
}
