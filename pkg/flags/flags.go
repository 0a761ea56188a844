// Package flags defines the vocabulary through which all data requests are
// expressed. A Flag names exactly one retrievable data product (e.g. "buses",
// "lines_t.p0"); datasets declare the set of flags they accept.
package flags

import "sort"

// Flag identifies one retrievable data product.
type Flag string

func (f Flag) String() string {
	return string(f)
}

// Set is an unordered set of flags.
type Set map[Flag]struct{}

// NewSet builds a set from the given flags.
func NewSet(flags ...Flag) Set {
	s := make(Set, len(flags))
	for _, f := range flags {
		s[f] = struct{}{}
	}

	return s
}

// Has reports whether f is a member of the set.
func (s Set) Has(f Flag) bool {
	_, ok := s[f]
	return ok
}

// Add inserts f into the set.
func (s Set) Add(f Flag) {
	s[f] = struct{}{}
}

// Union returns a new set containing the members of s and all others.
func (s Set) Union(others ...Set) Set {
	out := make(Set, len(s))
	for f := range s {
		out[f] = struct{}{}
	}

	for _, o := range others {
		for f := range o {
			out[f] = struct{}{}
		}
	}

	return out
}

// Sorted returns the members in lexicographic order.
func (s Set) Sorted() []Flag {
	out := make([]Flag, 0, len(s))
	for f := range s {
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}
