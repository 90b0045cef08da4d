// Package destinations holds the fixed set of promotional redirect targets.
package destinations

import (
	"fmt"
	"strings"
)

// Destination is one named external redirect target ("house").
type Destination struct {
	Code  string
	URL   string
	Label string
}

// Map is an ordered, code-indexed destination set. Codes are matched
// case-insensitively.
type Map struct {
	byCode map[string]Destination
	order  []string
}

// Default returns the campaign's built-in destination set.
func Default() Map {
	return build([]Destination{
		{Code: "ZOMBIE_XO", URL: "https://lin.ee/SgguCbJ", Label: "💀 ZOMBIE XO"},
		{Code: "ZOMBIE_PG", URL: "https://lin.ee/ETELgrN", Label: "👾 ZOMBIE PG"},
		{Code: "ZOMBIE_KING", URL: "https://lin.ee/fJilKIf", Label: "👑 ZOMBIE KING"},
		{Code: "ZOMBIE_ALL", URL: "https://lin.ee/9eogsb8e", Label: "🧟 ZOMBIE ALL"},
		{Code: "GENBU88", URL: "https://lin.ee/JCCXt06", Label: "🐢 GENBU88"},
	})
}

// Parse builds a Map from a "CODE=URL,CODE=URL" override string.
func Parse(override string) (Map, error) {
	var list []Destination
	for _, pair := range strings.Split(override, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, url, ok := strings.Cut(pair, "=")
		code = strings.ToUpper(strings.TrimSpace(code))
		url = strings.TrimSpace(url)
		if !ok || code == "" || url == "" {
			return Map{}, fmt.Errorf("invalid destination pair %q", pair)
		}
		list = append(list, Destination{Code: code, URL: url, Label: code})
	}
	if len(list) == 0 {
		return Map{}, fmt.Errorf("no destinations configured")
	}
	return build(list), nil
}

func build(list []Destination) Map {
	m := Map{byCode: make(map[string]Destination, len(list))}
	for _, d := range list {
		if _, dup := m.byCode[d.Code]; dup {
			continue
		}
		m.byCode[d.Code] = d
		m.order = append(m.order, d.Code)
	}
	return m
}

// Resolve looks up a destination by code, case-insensitively.
func (m Map) Resolve(code string) (Destination, bool) {
	d, ok := m.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return d, ok
}

// All returns the destinations in declaration order.
func (m Map) All() []Destination {
	out := make([]Destination, 0, len(m.order))
	for _, code := range m.order {
		out = append(out, m.byCode[code])
	}
	return out
}
