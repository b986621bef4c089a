package dialect

import (
	"crypto/sha1"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// quoting describes one dialect's identifier delimiters.
type quoting struct {
	open  string
	close string
}

var (
	ansiQuotes     = quoting{`"`, `"`}
	bracketQuotes  = quoting{"[", "]"}
	backtickQuotes = quoting{"`", "`"}
)

// quoteIdentifier validates and quotes a SQL identifier in the given style.
// Identifiers that fail the safety rules are rejected rather than escaped;
// names reaching this layer come from model metadata, not user data.
func quoteIdentifier(name string, q quoting) (string, error) {
	if !isSafeIdentifier(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	return q.open + name + q.close, nil
}

// isSafeIdentifier reports whether the identifier meets simple SQL safety
// rules: letters, digits and underscores, not starting with a digit.
func isSafeIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' {
			continue
		}
		if unicode.IsLetter(r) {
			continue
		}
		if unicode.IsDigit(r) {
			if i == 0 {
				return false
			}
			continue
		}
		return false
	}
	return true
}

// quoteLiteral renders a string literal for embedding in discovery DDL,
// which cannot be parameterized on the dialects that need it.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// DeriveIndexName builds a safe deterministic name for indexes over the
// given table and columns.
func DeriveIndexName(table string, columns []string, suffix string) string {
	h := sha1.New()
	keys := append([]string(nil), columns...)
	sort.Strings(keys)

	writePart := func(part string) {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{'|'})
	}

	writePart(strings.ToLower(table))
	for _, key := range keys {
		writePart(strings.ToLower(key))
	}
	writePart(strings.ToLower(suffix))

	digest := fmt.Sprintf("%x", h.Sum(nil))
	return fmt.Sprintf("idx_%s", digest[:16])
}
