// Package ddl provides SQL identifier validation and quoting helpers for
// statements assembled from metadata, where bind parameters cannot be used
// (SHOW/DESCRIBE and GRANT targets).
package ddl

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRe allows unquoted Snowflake identifiers: alphanumeric,
// underscores and dollar signs, starting with a letter or underscore.
var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$]*$`)

// maxIdentifierLen is the Snowflake limit for an identifier.
const maxIdentifierLen = 255

// ValidateIdentifier checks that name is a safe unquoted SQL identifier:
//   - Non-empty
//   - At most 255 characters
//   - Matches [a-zA-Z_][a-zA-Z0-9_$]*
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier is required")
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("identifier must be at most %d characters", maxIdentifierLen)
	}
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("identifier %q must match [a-zA-Z_][a-zA-Z0-9_$]*", name)
	}
	return nil
}

// ValidateQualifiedName checks a dot-separated identifier with the given
// number of components (e.g. 3 for DB.SCHEMA.OBJECT).
func ValidateQualifiedName(name string, components int) error {
	parts := strings.Split(name, ".")
	if len(parts) != components {
		return fmt.Errorf("qualified name %q must have %d dot-separated components", name, components)
	}
	for _, p := range parts {
		if err := ValidateIdentifier(p); err != nil {
			return err
		}
	}
	return nil
}

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double-quote characters by doubling them (standard SQL).
//
// Always quotes unconditionally — the caller should validate first if needed.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral wraps a string value in single quotes, escaping any
// embedded single-quote characters by doubling them (standard SQL).
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
