package llmgateway

import (
	"fmt"

	"github.com/ChiaYuChang/hydrosearch/internal/models"
)

// promptKind distinguishes the four gateway operations for prompt
// selection, independent of component type.
type promptKind string

const (
	promptClassify      promptKind = "classify"
	promptExtractParams promptKind = "extract_params"
	promptExtractQty    promptKind = "extract_quantity"
	promptSplitBatch    promptKind = "split_batch"
)

// ErrMissingPrompt is returned when no prompt template is mapped for a
// (kind, component type) pair (spec §4.2: "the gateway MUST fail with
// a distinct error kind if a mapping is missing").
type ErrMissingPrompt struct {
	Kind          promptKind
	ComponentType models.ComponentType
}

func (e *ErrMissingPrompt) Error() string {
	return fmt.Sprintf("llmgateway: no prompt mapped for %s/%s", e.Kind, e.ComponentType)
}

// classifyPrompt is component-type independent: it asks the oracle to
// pick one member of the closed set.
const classifyPrompt = `You are a parts classifier for a hydraulic fitting catalog.
Given a free-form customer query, answer with exactly one of the following
component types and nothing else: fittings, adapters, plugs, adapter-tee,
banjo, banjo-bolt, brs, coupling. If none apply, answer "unknown".`

// splitBatchPrompt asks the oracle to split a multi-line block into
// individual part queries, one per line.
const splitBatchPrompt = `Split the following text into individual part
requests, one per line. Preserve the original wording of each request.
Output only the lines, with no numbering or commentary.`

// extractQuantityPrompt asks for a bare quantity.
const extractQuantityPrompt = `Extract the requested quantity of parts from
the query below. Answer with only the number. If no quantity is stated,
answer "не указано".`

// extractParamsPrompts maps each component type to its parameter
// extraction prompt (spec §4.2: "prompts are template strings selected
// by a static mapping from (task, component_type)").
var extractParamsPrompts = map[models.ComponentType]string{
	models.ComponentFittings:   fittingsLikeExtractPrompt("fitting"),
	models.ComponentAdapters:   fittingsLikeExtractPrompt("adapter"),
	models.ComponentPlugs:      fittingsLikeExtractPrompt("plug"),
	models.ComponentAdapterTee: fittingsLikeExtractPrompt("adapter-tee"),
	models.ComponentBrs:        fittingsLikeExtractPrompt("BRS fitting"),
	models.ComponentCoupling:   fittingsLikeExtractPrompt("coupling"),
	models.ComponentBanjo:      banjoLikeExtractPrompt("banjo fitting"),
	models.ComponentBanjoBolt:  banjoLikeExtractPrompt("banjo bolt"),
}

func fittingsLikeExtractPrompt(label string) string {
	return fmt.Sprintf(`Extract the attributes of the %s described in the
query as a JSON object with keys: standard, armature, thread, angle,
series, dy, d_out, s_key, usit, o_ring, counter_nut, locknut. Use null
for any attribute not mentioned. Answer with only the JSON object.`, label)
}

func banjoLikeExtractPrompt(label string) string {
	return fmt.Sprintf(`Extract the attributes of the %s described in the
query as a JSON object with keys: thread, dy, angle, series. Use null
for any attribute not mentioned. Answer with only the JSON object.`, label)
}

// promptFor resolves the prompt template for kind/componentType,
// returning ErrMissingPrompt when the mapping is absent (classify and
// split_batch are component-type independent; extract_params and
// extract_quantity are looked up per type where applicable).
func promptFor(kind promptKind, componentType models.ComponentType) (string, error) {
	switch kind {
	case promptClassify:
		return classifyPrompt, nil
	case promptSplitBatch:
		return splitBatchPrompt, nil
	case promptExtractQty:
		return extractQuantityPrompt, nil
	case promptExtractParams:
		p, ok := extractParamsPrompts[componentType]
		if !ok {
			return "", &ErrMissingPrompt{Kind: kind, ComponentType: componentType}
		}
		return p, nil
	default:
		return "", &ErrMissingPrompt{Kind: kind, ComponentType: componentType}
	}
}
