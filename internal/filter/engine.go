// Package filter implements the keyword rules applied to crawled threads.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"affiliate_shoppe/internal/model"
)

// Set is a compiled list of rules. A nil or empty Set allows every thread.
type Set struct {
	rules []rule
}

type rule struct {
	model.Filter
	re *regexp.Regexp
}

// Compile validates filters and prepares their regular expressions.
func Compile(filters []model.Filter) (*Set, error) {
	s := &Set{rules: make([]rule, 0, len(filters))}
	for _, f := range filters {
		r := rule{Filter: f}
		switch f.Kind {
		case model.FilterInclude, model.FilterExclude:
			r.Value = strings.ToLower(f.Value)
		case model.FilterIncludeRe, model.FilterExcludeRe:
			re, err := regexp.Compile("(?i)" + f.Value)
			if err != nil {
				return nil, fmt.Errorf("invalid regex %q: %w", f.Value, err)
			}
			r.re = re
		default:
			return nil, fmt.Errorf("unknown filter kind %q", f.Kind)
		}
		s.rules = append(s.rules, r)
	}
	return s, nil
}

// Parse reads a rule list (see ParseRules) and compiles it.
func Parse(spec string) (*Set, error) {
	filters, err := ParseRules(spec)
	if err != nil {
		return nil, err
	}
	return Compile(filters)
}

// Len returns the number of rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Allow reports whether a thread passes the rules.
// Include rules use OR logic (at least one must match).
// Exclude rules use AND logic (none must match).
func (s *Set) Allow(t model.Thread) bool {
	if s.Len() == 0 {
		return true
	}

	hasIncludes := false
	anyIncludeMatched := false
	for _, r := range s.rules {
		matched := r.matches(t)
		switch r.Kind {
		case model.FilterInclude, model.FilterIncludeRe:
			hasIncludes = true
			anyIncludeMatched = anyIncludeMatched || matched
		case model.FilterExclude, model.FilterExcludeRe:
			if matched {
				return false
			}
		}
	}
	return !hasIncludes || anyIncludeMatched
}

func (r rule) matches(t model.Thread) bool {
	text := textForScope(t, r.Scope)
	if r.re != nil {
		return r.re.MatchString(text)
	}
	return strings.Contains(text, r.Value)
}

func textForScope(t model.Thread, scope model.FilterScope) string {
	switch scope {
	case model.ScopeTitle:
		return strings.ToLower(t.Title)
	case model.ScopeContent:
		return strings.ToLower(t.Content)
	default:
		return strings.ToLower(t.Prefix + " " + t.Title + " " + t.Content)
	}
}
