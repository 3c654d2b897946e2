package variables

// Substitution is one token to be replaced and its resolved value
type Substitution struct {
	Token string
	Value string
}

// Substitutions is an insertion-ordered set of token replacements.
// Adding a token that is already present is a no-op, so the first
// resolved value for a token wins.
type Substitutions struct {
	entries []Substitution
	index   map[string]int
}

// NewSubstitutions returns an empty set
func NewSubstitutions() *Substitutions {
	return &Substitutions{index: make(map[string]int)}
}

// Add records token → value unless token is already present.
// It reports whether the entry was added.
func (s *Substitutions) Add(token, value string) bool {
	if _, exists := s.index[token]; exists {
		return false
	}
	s.index[token] = len(s.entries)
	s.entries = append(s.entries, Substitution{Token: token, Value: value})
	return true
}

// Get returns the value recorded for token
func (s *Substitutions) Get(token string) (string, bool) {
	if s == nil {
		return "", false
	}
	i, ok := s.index[token]
	if !ok {
		return "", false
	}
	return s.entries[i].Value, true
}

// Len returns the number of distinct tokens
func (s *Substitutions) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Entries returns a copy of the entries in insertion order
func (s *Substitutions) Entries() []Substitution {
	if s == nil {
		return nil
	}
	out := make([]Substitution, len(s.entries))
	copy(out, s.entries)
	return out
}
