package models

// ExtractedData is the sum type over component-typed attribute records
// extracted by the LLM gateway. This replaces the source system's
// free-form map[string]any DTO (see SPEC_FULL §9 redesign notes) while
// still letting the catalog adapter iterate present attributes
// generically via Fields().
type ExtractedData interface {
	// Fields returns the present (non-nil) domain attributes by name,
	// as the catalog adapter's schema-driven filters expect them.
	Fields() map[string]any
}

// RawExtraction is the fallback variant used when the oracle's
// extract_params response was not valid JSON (spec §4.2).
type RawExtraction struct {
	Raw string `json:"raw_response"`
}

func (r RawExtraction) Fields() map[string]any {
	return map[string]any{"raw_response": r.Raw}
}

// FittingAttrs covers fittings, adapters, plugs, adapter-tee, brs,
// coupling — component types grounded on the original catalog's
// Fitting entity (standard/armature/thread/angle/series/Dy/d_out/s_key/
// usit/o_ring).
type FittingAttrs struct {
	Standard   *string `json:"standard,omitempty"`
	Armature   *string `json:"armature,omitempty"`
	Thread     *string `json:"thread,omitempty"`
	Angle      *int    `json:"angle,omitempty"`
	Series     *string `json:"series,omitempty"`
	Dy         *int    `json:"Dy,omitempty"`
	DOut       *int    `json:"d_out,omitempty"`
	SKey       *string `json:"s_key,omitempty"`
	Usit       *bool   `json:"usit,omitempty"`
	ORing      *bool   `json:"o_ring,omitempty"`
	CounterNut *bool   `json:"counter_nut,omitempty"`
	LockNut    *bool   `json:"locknut,omitempty"`
}

func (f FittingAttrs) Fields() map[string]any {
	out := map[string]any{}
	addPtr(out, "standard", f.Standard)
	addPtr(out, "armature", f.Armature)
	addPtr(out, "thread", f.Thread)
	addPtr(out, "angle", f.Angle)
	addPtr(out, "series", f.Series)
	addPtr(out, "Dy", f.Dy)
	addPtr(out, "d_out", f.DOut)
	addPtr(out, "s_key", f.SKey)
	addPtr(out, "usit", f.Usit)
	addPtr(out, "o_ring", f.ORing)
	addPtr(out, "counter_nut", f.CounterNut)
	addPtr(out, "locknut", f.LockNut)
	return out
}

// BanjoAttrs covers banjo and banjo-bolt component types, which share a
// smaller attribute set (no o_ring/usit armature fields in the original
// catalog's banjo entity).
type BanjoAttrs struct {
	Thread *string `json:"thread,omitempty"`
	Dy     *int    `json:"Dy,omitempty"`
	Angle  *int    `json:"angle,omitempty"`
	Series *string `json:"series,omitempty"`
}

func (b BanjoAttrs) Fields() map[string]any {
	out := map[string]any{}
	addPtr(out, "thread", b.Thread)
	addPtr(out, "Dy", b.Dy)
	addPtr(out, "angle", b.Angle)
	addPtr(out, "series", b.Series)
	return out
}

func addPtr[T any](out map[string]any, key string, v *T) {
	if v != nil {
		out[key] = *v
	}
}

// NewExtractedData returns the zero-value typed container appropriate
// for a component type, ready to be filled from the oracle's JSON.
func NewExtractedData(t ComponentType) ExtractedData {
	switch t {
	case ComponentBanjo, ComponentBanjoBolt:
		return &BanjoAttrs{}
	case ComponentFittings, ComponentAdapters, ComponentPlugs,
		ComponentAdapterTee, ComponentBrs, ComponentCoupling:
		return &FittingAttrs{}
	default:
		return &RawExtraction{}
	}
}

// ExtractionResult is the Worker's intermediate per-task extraction
// state (spec §3).
type ExtractionResult struct {
	ComponentType ComponentType `json:"component_type"`
	ExtractedData ExtractedData `json:"extracted_data"`
	Quantity      *int          `json:"quantity,omitempty"`
	OriginalQuery string        `json:"original_query"`
}
