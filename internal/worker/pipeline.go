package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ChiaYuChang/hydrosearch/internal/models"
	ec "github.com/ChiaYuChang/hydrosearch/pkgs/errors"
	"golang.org/x/sync/errgroup"
)

const (
	reasonClassificationUnknown = "component-type not determined"
	reasonExtractionEmpty       = "parameter extraction returned nothing"
	reasonCatalogFailure        = "catalog lookup failed"
	reasonRetriesExhausted      = "transient upstream failure exhausted retries"
)

// runSingle executes CLASSIFY→EXTRACT_PARAMS→EXTRACT_QTY→CATALOG→
// BUILD_ARTIFACT for one query (spec §4.4). On a non-terminal failure
// it returns a zero status along with the Kind driving the Worker's
// retry/drop decision; the caller is responsible for persistence.
func (w *Worker) runSingle(ctx context.Context, query string) (*models.TaskResult, models.TaskStatus, ec.Kind, string) {
	componentType, err := w.Gateway.Classify(ctx, query)
	if err != nil {
		return nil, "", ec.KindTransientUpstream, ""
	}
	if componentType == models.ComponentUnknown {
		return nil, "", ec.KindClassificationUnknown, reasonClassificationUnknown
	}

	rawParams, err := w.Gateway.ExtractParams(ctx, query, componentType)
	if err != nil {
		return nil, "", ec.KindTransientUpstream, ""
	}
	if rawParams == nil {
		return nil, "", ec.KindExtractionEmpty, reasonExtractionEmpty
	}
	extracted := decodeExtracted(componentType, rawParams)

	qty, hasQty, err := w.Gateway.ExtractQuantity(ctx, query)
	if err != nil {
		// Quantity failures are absorbed; it is an optional field
		// (spec §4.4 EXTRACT_QTY).
		hasQty = false
	}

	matches, err := w.Catalog.Search(ctx, componentType, extracted, query)
	if err != nil {
		if w.EnablePartialResults {
			result := &models.TaskResult{
				Query:  query,
				Source: models.SourceAIOnly,
				AIResult: &models.AIResult{
					ComponentType: componentType,
					ExtractedData: rawParams,
				},
				Timestamp: time.Now().Unix(),
			}
			if hasQty {
				result.Quantity = &qty
			}
			return result, models.StatusPartial, "", ""
		}
		return nil, "", ec.KindCatalogFailure, reasonCatalogFailure
	}

	result := &models.TaskResult{
		Query:      query,
		Source:     models.SourceDatabase,
		Matches:    matches,
		MatchCount: len(matches),
		AIResult: &models.AIResult{
			ComponentType: componentType,
			ExtractedData: rawParams,
		},
		Timestamp: time.Now().Unix(),
	}
	if hasQty {
		result.Quantity = &qty
	}
	return result, models.StatusCompleted, "", ""
}

// runBatch splits text into sub-queries and runs runSingle's stages
// for each, fanning out with errgroup.SetLimit so one huge batch can't
// exhaust the oracle connection pool (spec §5), while still writing
// one result per sub-query in order.
func (w *Worker) runBatch(ctx context.Context, text string) (*models.TaskResult, models.TaskStatus, ec.Kind, string) {
	lines, err := w.Gateway.SplitBatch(ctx, text)
	if err != nil {
		return nil, "", ec.KindTransientUpstream, ""
	}
	if len(lines) == 0 {
		return nil, "", ec.KindExtractionEmpty, reasonExtractionEmpty
	}

	results := make([]models.SubQueryResult, len(lines))
	kinds := make([]ec.Kind, len(lines))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(w.SubQueryConcurrency)

	var mu sync.Mutex
	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			result, status, kind, _ := w.runSingle(gCtx, line)

			mu.Lock()
			defer mu.Unlock()
			kinds[i] = kind
			if status == models.StatusCompleted || status == models.StatusPartial {
				sub := models.SubQueryResult{Query: line}
				if result != nil {
					sub.Source = result.Source
					sub.Matches = result.Matches
					sub.MatchCount = result.MatchCount
					sub.AIResult = result.AIResult
					sub.Quantity = result.Quantity
				}
				results[i] = sub
			} else {
				results[i] = models.SubQueryResult{Query: line}
			}
			return nil
		})
	}
	_ = g.Wait()

	// Batch tasks never drop the whole task over one bad sub-query;
	// the worst per-line kind only matters for the top-level retry
	// decision when every line failed transiently.
	allTransient := true
	for _, k := range kinds {
		if k != ec.KindTransientUpstream {
			allTransient = false
			break
		}
	}
	if allTransient {
		return nil, "", ec.KindTransientUpstream, ""
	}

	processed := 0
	for _, r := range results {
		if r.MatchCount > 0 || r.AIResult != nil {
			processed++
		}
	}

	result := &models.TaskResult{
		Results:        results,
		TotalItems:     len(lines),
		ProcessedItems: processed,
		Timestamp:      time.Now().Unix(),
	}
	return result, models.StatusCompleted, "", ""
}

// decodeExtracted rehydrates the oracle's generic JSON map into the
// concrete ExtractedData variant for componentType, falling back to
// RawExtraction if that fails.
func decodeExtracted(componentType models.ComponentType, raw map[string]any) models.ExtractedData {
	data, err := json.Marshal(raw)
	if err != nil {
		return models.RawExtraction{}
	}

	target := models.NewExtractedData(componentType)
	if err := json.Unmarshal(data, target); err != nil {
		return models.RawExtraction{}
	}
	return target
}
