package sampling

import (
	"slices"
	"strings"
)

// Wildcard is the configuration token meaning "any label" or "any relationship type".
const Wildcard = "*"

// Filter restricts node labels or relationship types. It has exactly two variants:
// MatchAny, which accepts everything, and OneOf, which accepts the names of an
// explicit set. The zero value is MatchAny.
type Filter struct {
	set   map[string]struct{}
	names []string
}

// MatchAny returns a filter accepting every name.
func MatchAny() Filter {
	return Filter{}
}

// OneOf returns a filter accepting only the given names. Duplicates are ignored.
// A OneOf filter built from no names accepts nothing.
func OneOf(names ...string) Filter {
	f := Filter{set: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if _, ok := f.set[n]; ok {
			continue
		}
		f.set[n] = struct{}{}
		f.names = append(f.names, n)
	}
	slices.Sort(f.names)
	return f
}

// IsAny reports whether f is the MatchAny variant.
func (f Filter) IsAny() bool {
	return f.set == nil
}

// Matches reports whether name passes the filter.
func (f Filter) Matches(name string) bool {
	if f.set == nil {
		return true
	}
	_, ok := f.set[name]
	return ok
}

// MatchesAny reports whether at least one of names passes the filter. A MatchAny
// filter accepts an unlabelled node as well.
func (f Filter) MatchesAny(names []string) bool {
	if f.set == nil {
		return true
	}
	for _, n := range names {
		if _, ok := f.set[n]; ok {
			return true
		}
	}
	return false
}

// Names returns the explicit names in sorted order, or nil for MatchAny.
func (f Filter) Names() []string {
	if f.set == nil {
		return nil
	}
	return slices.Clone(f.names)
}

func (f Filter) String() string {
	if f.set == nil {
		return Wildcard
	}
	return "[" + strings.Join(f.names, ",") + "]"
}
