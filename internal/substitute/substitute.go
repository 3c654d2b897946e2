// Package substitute rewrites text by replacing resolved placeholder tokens.
package substitute

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jenian/envinject/internal/variables"
)

// Apply replaces every literal occurrence of each token in subs with its
// value and returns the new text with the number of replacements made.
//
// Tokens are regex-quoted and combined into one alternation, longest
// first, then matched in a single pass over the original text. Inserted
// values are never scanned again and are not subject to $-expansion.
// With caseInsensitive set, a token also matches its case variants and
// those take the value of the token they fold to.
func Apply(text string, subs *variables.Substitutions, caseInsensitive bool) (string, int) {
	if subs.Len() == 0 || text == "" {
		return text, 0
	}

	re, lookup := compile(subs.Entries(), caseInsensitive)

	count := 0
	out := re.ReplaceAllStringFunc(text, func(match string) string {
		value, ok := lookup(match)
		if !ok {
			return match
		}
		count++
		return value
	})
	return out, count
}

func compile(entries []variables.Substitution, caseInsensitive bool) (*regexp.Regexp, func(string) (string, bool)) {
	exact := make(map[string]string, len(entries))
	folded := make(map[string]string, len(entries))
	tokens := make([]string, 0, len(entries))

	for _, e := range entries {
		exact[e.Token] = e.Value
		lower := strings.ToLower(e.Token)
		if _, exists := folded[lower]; !exists {
			folded[lower] = e.Value
		}
		tokens = append(tokens, e.Token)
	}

	// Longest first so a token that prefixes another cannot shadow it.
	sort.SliceStable(tokens, func(i, j int) bool {
		return len(tokens[i]) > len(tokens[j])
	})

	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = regexp.QuoteMeta(tok)
	}

	expr := strings.Join(quoted, "|")
	if caseInsensitive {
		expr = "(?i)" + expr
	}
	re := regexp.MustCompile(expr)

	lookup := func(match string) (string, bool) {
		if v, ok := exact[match]; ok {
			return v, true
		}
		if caseInsensitive {
			v, ok := folded[strings.ToLower(match)]
			return v, ok
		}
		return "", false
	}
	return re, lookup
}
