package domain

import (
	"encoding/json"
	"sort"
	"strings"
)

// InterestSet is a normalized set of interest tokens.
type InterestSet map[string]struct{}

// NewInterestSet normalizes (trim + lowercase) and dedupes items. Empty
// tokens are dropped.
func NewInterestSet(items ...string) InterestSet {
	s := make(InterestSet, len(items))
	for _, it := range items {
		if tok := strings.ToLower(strings.TrimSpace(it)); tok != "" {
			s[tok] = struct{}{}
		}
	}
	return s
}

// ParseInterests decodes a stored JSON array of strings.
// Malformed input is treated as an empty set, never an error.
func ParseInterests(raw []byte) InterestSet {
	if len(raw) == 0 {
		return InterestSet{}
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return InterestSet{}
	}
	return NewInterestSet(items...)
}

func (s InterestSet) Contains(tok string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(tok))]
	return ok
}

// Slice returns the tokens sorted, for stable serialization.
func (s InterestSet) Slice() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s InterestSet) JSON() []byte {
	b, _ := json.Marshal(s.Slice())
	return b
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when either set is empty.
func Jaccard(a, b InterestSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	common := 0
	for k := range small {
		if _, ok := large[k]; ok {
			common++
		}
	}
	union := len(a) + len(b) - common
	return float64(common) / float64(union)
}
