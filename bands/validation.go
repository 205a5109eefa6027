package bands

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	MinCode  = 1
	MaxCode  = 4
	MaxBands = 16
)

var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateTable checks a table definition before it is compiled.
// It does not check the expressions themselves; the engine does that.
func ValidateTable(t Table) error {
	if err := validateIdentifier(t.Name); err != nil {
		return fmt.Errorf("invalid table name %q: %w", t.Name, err)
	}

	if len(t.Bands) == 0 {
		return fmt.Errorf("table %q must contain at least one band", t.Name)
	}
	if len(t.Bands) > MaxBands {
		return fmt.Errorf("table %q contains %d bands, maximum allowed is %d", t.Name, len(t.Bands), MaxBands)
	}

	seen := make(map[int]bool, len(t.Bands))
	for i, b := range t.Bands {
		if !validCode(b.Code) {
			return fmt.Errorf("band %d in table %q has code %d, must be between %d and %d", i, t.Name, b.Code, MinCode, MaxCode)
		}
		if seen[b.Code] {
			return fmt.Errorf("band %d in table %q reuses code %d", i, t.Name, b.Code)
		}
		seen[b.Code] = true

		if strings.TrimSpace(b.Expression) == "" {
			return fmt.Errorf("band %d in table %q has an empty expression", i, t.Name)
		}
	}

	if !validCode(t.Fallback) {
		return fmt.Errorf("table %q has fallback code %d, must be between %d and %d", t.Name, t.Fallback, MinCode, MaxCode)
	}

	return nil
}

func validCode(code int) bool {
	return code >= MinCode && code <= MaxCode
}

// validateIdentifier enforces 1-64 characters matching ^[a-zA-Z_][a-zA-Z0-9_]*$.
func validateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > 64 {
		return fmt.Errorf("identifier length %d exceeds maximum of 64 characters", len(name))
	}
	if !validIdentifier.MatchString(name) {
		return fmt.Errorf("must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$")
	}
	return nil
}
