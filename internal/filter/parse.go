package filter

import (
	"fmt"
	"strings"

	"affiliate_shoppe/internal/model"
)

// ParseRules parses a comma separated rule list.
// Each rule has the form <kind>:[<scope>=]<value>, where kind is one of
// include, exclude, include_re, exclude_re and scope is title, content or all
// (default all). Example: "exclude:nsfw,include:title=meme".
func ParseRules(spec string) ([]model.Filter, error) {
	var filters []model.Filter
	for _, raw := range strings.Split(spec, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		f, err := parseRule(raw)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func parseRule(raw string) (model.Filter, error) {
	kind, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return model.Filter{}, fmt.Errorf("rule %q: usage: <kind>:[scope=]<value>", raw)
	}

	f := model.Filter{Kind: model.FilterKind(strings.ToLower(strings.TrimSpace(kind))), Scope: model.ScopeAll}
	switch f.Kind {
	case model.FilterInclude, model.FilterExclude, model.FilterIncludeRe, model.FilterExcludeRe:
	default:
		return model.Filter{}, fmt.Errorf("rule %q: invalid kind %q, use: include, exclude, include_re, exclude_re", raw, kind)
	}

	if scope, value, found := strings.Cut(rest, "="); found {
		switch model.FilterScope(strings.TrimSpace(scope)) {
		case model.ScopeTitle, model.ScopeContent, model.ScopeAll:
			f.Scope = model.FilterScope(strings.TrimSpace(scope))
			rest = value
		}
	}

	f.Value = strings.TrimSpace(rest)
	if f.Value == "" {
		return model.Filter{}, fmt.Errorf("rule %q: filter value is required", raw)
	}
	return f, nil
}
