package tools

import (
	"fmt"
	"maps"
	"strings"

	"github.com/tailored-agentic-units/movi/core/protocol"
)

// Alias maps an alternate parameter key onto the canonical key a tool
// declares.
type Alias struct {
	Key       string
	Canonical string
}

// AliasTable is an ordered rule list. Order is precedence: when several
// aliases of one canonical key are present, the earliest rule wins.
type AliasTable []Alias

// DefaultAliases returns the rules for the keys a classifier tends to
// produce instead of the declared ones. Specific keys precede the generic
// "name".
func DefaultAliases() AliasTable {
	return AliasTable{
		{Key: "trip_name", Canonical: "trip_display_name"},
		{Key: "trip", Canonical: "trip_display_name"},
		{Key: "route_name", Canonical: "route_display_name"},
		{Key: "route", Canonical: "route_display_name"},
		{Key: "name", Canonical: "trip_display_name"},
		{Key: "name", Canonical: "route_display_name"},
		{Key: "name", Canonical: "path_name"},
		{Key: "name", Canonical: "stop_name"},
	}
}

// Normalize returns a copy of params with aliases rewritten to the
// canonical keys tool declares. Rules whose canonical key the tool does not
// declare are skipped. A non-empty canonical value always wins; otherwise
// the first non-empty alias in table order fills it, the same choice
// Resolve makes. Undeclared aliases are dropped. params is never modified
// and the result is never nil.
func (t AliasTable) Normalize(tool protocol.Tool, params map[string]any) map[string]any {
	out := maps.Clone(params)
	if out == nil {
		out = make(map[string]any)
	}

	for _, canonical := range t.canonicals() {
		if !tool.Declares(canonical) {
			continue
		}

		aliases := t.aliasesOf(canonical)
		if blank(out[canonical]) {
			for _, alias := range aliases {
				if v := out[alias]; !blank(v) && !tool.Declares(alias) {
					out[canonical] = v
					break
				}
			}
		}

		for _, alias := range aliases {
			if !tool.Declares(alias) {
				delete(out, alias)
			}
		}
	}

	return out
}

// Resolve returns the first non-empty value among canonical and its aliases
// in table order.
func (t AliasTable) Resolve(params map[string]any, canonical string) (string, bool) {
	keys := append([]string{canonical}, t.aliasesOf(canonical)...)
	for _, key := range keys {
		if v := params[key]; !blank(v) {
			return strings.TrimSpace(fmt.Sprint(v)), true
		}
	}
	return "", false
}

// blank reports a missing, nil or whitespace-only value.
func blank(v any) bool {
	return v == nil || strings.TrimSpace(fmt.Sprint(v)) == ""
}

func (t AliasTable) canonicals() []string {
	var out []string
	seen := make(map[string]bool)
	for _, a := range t {
		if !seen[a.Canonical] {
			seen[a.Canonical] = true
			out = append(out, a.Canonical)
		}
	}
	return out
}

func (t AliasTable) aliasesOf(canonical string) []string {
	var out []string
	for _, a := range t {
		if a.Canonical == canonical {
			out = append(out, a.Key)
		}
	}
	return out
}
