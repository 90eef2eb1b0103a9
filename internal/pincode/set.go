package pincode

import "strings"

// mapSet implements Set using a map for O(1) lookups.
type mapSet struct {
	pincodes map[string]struct{}
}

// NewMapSet creates a new map-based pincode set.
func NewMapSet(capacity int) Set {
	return &mapSet{
		pincodes: make(map[string]struct{}, capacity),
	}
}

// Contains checks if a pincode exists in the set.
func (s *mapSet) Contains(pincode string) bool {
	_, exists := s.pincodes[Normalize(pincode)]
	return exists
}

// Size returns the number of pincodes in the set.
func (s *mapSet) Size() int {
	return len(s.pincodes)
}

// Add adds a pincode to the set.
func (s *mapSet) Add(pincode string) {
	if p := Normalize(pincode); p != "" {
		s.pincodes[p] = struct{}{}
	}
}

// Normalize strips whitespace and inner spaces so "560 001" and "560001" compare equal.
func Normalize(pincode string) string {
	return strings.ReplaceAll(strings.TrimSpace(pincode), " ", "")
}

// Valid reports whether pincode is six digits with a non-zero first digit.
func Valid(pincode string) bool {
	p := Normalize(pincode)
	if len(p) != 6 || p[0] == '0' {
		return false
	}
	for _, c := range p {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
