// Package pattern compiles placeholder expressions and extracts placeholder
// occurrences from text.
package pattern

import (
	"regexp"

	"github.com/jenian/envinject/internal/errors"
)

// Default matches ${NAME} where NAME is letters, digits, underscores and dots
const Default = `\$\{([A-Za-z0-9_.]+)\}`

// Pattern is a compiled placeholder matcher. The single capturing group of
// the expression yields the variable name.
type Pattern struct {
	expr            string
	caseInsensitive bool
	re              *regexp.Regexp
}

// Occurrence is one placeholder match in a text
type Occurrence struct {
	RawToken     string // Exact matched substring, e.g. ${DB_URL}
	VariableName string // Captured group used for lookup
	Offset       int    // Byte offset of the match in the text
}

// Compile builds a Pattern from expr. Case-insensitivity is applied as a
// matching flag; the expression text itself is kept as given.
func Compile(expr string, caseInsensitive bool) (*Pattern, error) {
	if expr == "" {
		return nil, &errors.InvalidPatternError{Pattern: expr, Reason: "pattern is empty"}
	}

	source := expr
	if caseInsensitive {
		source = "(?i)" + expr
	}

	re, err := regexp.Compile(source)
	if err != nil {
		return nil, &errors.InvalidPatternError{Pattern: expr, Reason: "does not compile", Wrapped: err}
	}
	if re.NumSubexp() != 1 {
		return nil, &errors.InvalidPatternError{Pattern: expr, Reason: "must contain exactly one capturing group"}
	}

	return &Pattern{expr: expr, caseInsensitive: caseInsensitive, re: re}, nil
}

// MustCompile is like Compile but panics if the expression is unusable
func MustCompile(expr string, caseInsensitive bool) *Pattern {
	p, err := Compile(expr, caseInsensitive)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the expression as supplied by the user
func (p *Pattern) String() string {
	return p.expr
}

// CaseInsensitive reports whether the pattern matches case-insensitively
func (p *Pattern) CaseInsensitive() bool {
	return p.caseInsensitive
}

// Extract returns every placeholder occurrence in text, ordered by position.
// Repeated tokens are kept; deduplication happens during resolution.
func (p *Pattern) Extract(text string) []Occurrence {
	matches := p.re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	occurrences := make([]Occurrence, 0, len(matches))
	for _, m := range matches {
		// m[2]/m[3] are -1 when the group did not participate, e.g. `\$\{(x)?\}`
		name := ""
		if m[2] >= 0 {
			name = text[m[2]:m[3]]
		}
		occurrences = append(occurrences, Occurrence{
			RawToken:     text[m[0]:m[1]],
			VariableName: name,
			Offset:       m[0],
		})
	}
	return occurrences
}
