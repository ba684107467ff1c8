// Package catalog implements the CatalogAdapter component: translating
// a classified+extracted record into a parameterized catalog search
// against the relational store (spec §4.3).
//
// Grounded on original_source/hydro_find/entity/fitting.go and
// original_source/hydro_find/database/enums.py for the closed
// enumerated attribute sets, and on original_source's
// backend/data/repositories/fitting.py for the shape of the algorithm
// — explicitly NOT its string-interpolated SQL construction, which
// SPEC_FULL prohibits.
package catalog

import "strings"

// Closed sets for the enumerated schema attributes (spec §4.3 step 3:
// "unknown enum values are silently skipped"). Values are the raw
// strings/integers as they appear in catalog rows.
var (
	standards = set("BSP", "BSPT", "JIC", "DKOL", "DKOS", "NPTF", "ORFS", "BANJO")
	armatures = set("штуцер", "гайка", "конусная гайка")
	angles    = set("0", "45", "90")
	series    = set("LIGHT", "HEAVY", "INTERLOCK")
	threads   = set(
		"1/8", "1/4", "3/8", "1/2", "3/4", "1", "1.1/4", "1.1/2", "2",
		"14х1.5", "16х1.5", "18х1.5",
		"1,3/16", "1,5/16", "1,5/8", "1,7/8", "2,1/2", "5/8", "7/8", "9/16", "5/16", "7/16",
		"3/4''",
	)
)

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

func inSet(m map[string]struct{}, raw string) (string, bool) {
	_, ok := m[raw]
	return raw, ok
}

// resolveEnum looks up raw (case-sensitive, matching catalog storage)
// in the given closed set, returning ("", false) when absent — the
// caller then skips the filter rather than failing the query.
func resolveEnum(kind string, raw string) (string, bool) {
	switch kind {
	case "standard":
		return inSet(standards, raw)
	case "armature":
		return inSet(armatures, raw)
	case "thread":
		return inSet(threads, raw)
	case "angle":
		return inSet(angles, strings.TrimSpace(raw))
	case "series":
		return inSet(series, raw)
	default:
		return raw, true
	}
}

// truthy accepts {true, "true", "1", "yes", "y"} case-insensitively as
// true, everything else as false (spec §4.3 step 4).
func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes", "y":
			return true
		default:
			return false
		}
	default:
		return false
	}
}
