package core

import (
	"sort"
	"strings"
)

const ScopeOpenID = "openid"

// ScopeSet is a parsed space-delimited scope string.
type ScopeSet map[string]struct{}

func ParseScopes(scope string) ScopeSet {
	fields := strings.Fields(scope)
	set := make(ScopeSet, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}

func NewScopeSet(scopes ...string) ScopeSet {
	set := make(ScopeSet, len(scopes))
	for _, scope := range scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		set[scope] = struct{}{}
	}
	return set
}

func (s ScopeSet) Has(scope string) bool {
	_, ok := s[scope]
	return ok
}

// ContainsAll reports whether every entry in want is present. Duplicates in
// want are ignored and an empty want is always satisfied.
func (s ScopeSet) ContainsAll(want []string) bool {
	for _, scope := range want {
		if _, ok := s[scope]; !ok {
			return false
		}
	}
	return true
}

func (s ScopeSet) SubsetOf(other ScopeSet) bool {
	for scope := range s {
		if _, ok := other[scope]; !ok {
			return false
		}
	}
	return true
}

func (s ScopeSet) Len() int {
	return len(s)
}

func (s ScopeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for scope := range s {
		out = append(out, scope)
	}
	sort.Strings(out)
	return out
}

func (s ScopeSet) String() string {
	return strings.Join(s.Sorted(), " ")
}

type ScopeDescriber interface {
	DescribeScope(name string) (string, bool)
}

// ScopeDescriptions maps scope names to human readable descriptions.
type ScopeDescriptions map[string]string

func (d ScopeDescriptions) DescribeScope(name string) (string, bool) {
	description, ok := d[name]
	return description, ok
}

// Unknown returns the sorted scopes of set that have no description.
func (d ScopeDescriptions) Unknown(set ScopeSet) []string {
	unknown := []string{}
	for _, scope := range set.Sorted() {
		if _, ok := d[scope]; !ok {
			unknown = append(unknown, scope)
		}
	}
	return unknown
}

// DescribeScopes returns descriptions for the scopes of set known to describer.
// Scopes without a description are omitted.
func DescribeScopes(set ScopeSet, describer ScopeDescriber) map[string]string {
	out := make(map[string]string, len(set))
	if describer == nil {
		return out
	}
	for scope := range set {
		if description, ok := describer.DescribeScope(scope); ok {
			out[scope] = description
		}
	}
	return out
}
