package variables

import (
	"strings"

	"github.com/jenian/envinject/internal/errors"
	"github.com/jenian/envinject/internal/pattern"
)

// Policy controls how unresolved placeholders are treated
type Policy struct {
	IgnoreMissing bool     // Leave every unresolved placeholder untouched
	IgnoreNames   []string // Variables that may be missing even when IgnoreMissing is off
}

// ignores reports whether a missing variable should be skipped instead of failing
func (p Policy) ignores(name string, caseInsensitive bool) bool {
	if p.IgnoreMissing {
		return true
	}
	for _, ignored := range p.IgnoreNames {
		if ignored == name || (caseInsensitive && strings.EqualFold(ignored, name)) {
			return true
		}
	}
	return false
}

// Resolve maps every occurrence found in file to a value from vm.
//
// The first occurrence of a raw token decides its value; repeats are
// ignored. An unknown variable fails with MissingVariableError unless the
// policy ignores missing variables, in which case the token is left out of
// the result and its name is returned in skipped (once per name).
func Resolve(file string, occurrences []pattern.Occurrence, vm *Map, policy Policy) (subs *Substitutions, skipped []string, err error) {
	subs = NewSubstitutions()
	seenSkipped := make(map[string]bool)

	for _, occ := range occurrences {
		if _, done := subs.Get(occ.RawToken); done {
			continue
		}

		value, ok := vm.Lookup(occ.VariableName)
		if ok {
			subs.Add(occ.RawToken, value)
			continue
		}

		if !policy.ignores(occ.VariableName, vm.CaseInsensitive()) {
			return nil, nil, &errors.MissingVariableError{
				File:            file,
				Variable:        occ.VariableName,
				CaseInsensitive: vm.CaseInsensitive(),
			}
		}

		if !seenSkipped[occ.VariableName] {
			seenSkipped[occ.VariableName] = true
			skipped = append(skipped, occ.VariableName)
		}
	}

	return subs, skipped, nil
}
