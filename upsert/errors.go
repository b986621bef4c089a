package upsert

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrBatchSize is returned by BulkUpsert when the configured batch size
	// is not positive.
	ErrBatchSize = errors.New("upsert: batch size must be positive")
)

// IsUniqueViolation reports whether err is a uniqueness-constraint
// violation reported by one of the supported drivers. Constraint errors are
// surfaced verbatim from the database; this helper lets callers map them to
// their own domain errors without depending on every driver's error type.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
