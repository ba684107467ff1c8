// Package models holds the shared data model for the search pipeline:
// tasks, extraction results, task results, and the closed set of
// hydraulic component types.
package models

import "strings"

// ComponentType is one of the closed set of hydraulic component kinds
// the LLM gateway can classify a query into.
type ComponentType string

const (
	ComponentFittings   ComponentType = "fittings"
	ComponentAdapters   ComponentType = "adapters"
	ComponentPlugs      ComponentType = "plugs"
	ComponentAdapterTee ComponentType = "adapter-tee"
	ComponentBanjo      ComponentType = "banjo"
	ComponentBanjoBolt  ComponentType = "banjo-bolt"
	ComponentBrs        ComponentType = "brs"
	ComponentCoupling   ComponentType = "coupling"
	ComponentUnknown    ComponentType = "unknown"
)

// ComponentTypes is the authoritative, ordered closed set. Order matters
// for the partial-match fallback in classify (§4.2): ties resolve to the
// first match by this iteration order.
var ComponentTypes = []ComponentType{
	ComponentFittings,
	ComponentAdapters,
	ComponentPlugs,
	ComponentAdapterTee,
	ComponentBanjo,
	ComponentBanjoBolt,
	ComponentBrs,
	ComponentCoupling,
}

// Valid reports whether t is a member of the closed set (unknown is not
// a member; it is the sentinel for "classification failed").
func (t ComponentType) Valid() bool {
	for _, v := range ComponentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ParseComponentType resolves a raw oracle answer to a ComponentType,
// applying the case-insensitive substring partial-match fallback
// described in spec §4.2. Returns ComponentUnknown if nothing matches.
func ParseComponentType(raw string) ComponentType {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ComponentUnknown
	}

	for _, v := range ComponentTypes {
		if string(v) == raw {
			return v
		}
	}

	for _, v := range ComponentTypes {
		lv := string(v)
		if strings.Contains(raw, lv) || strings.Contains(lv, raw) {
			return v
		}
	}

	return ComponentUnknown
}
