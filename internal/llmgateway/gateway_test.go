package llmgateway_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ChiaYuChang/hydrosearch/internal/llmgateway"
	"github.com/ChiaYuChang/hydrosearch/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	text string
	err  error
	n    int
}

func (f *fakeGenerator) Generate(ctx context.Context, req llmgateway.GenerateRequest) (*llmgateway.GenerateResponse, error) {
	f.n++
	if f.err != nil {
		return nil, f.err
	}
	return &llmgateway.GenerateResponse{Text: f.text}, nil
}

func TestClassify(t *testing.T) {
	gen := &fakeGenerator{text: "Fittings"}
	gw := llmgateway.New(gen, "test-model")

	ct, err := gw.Classify(context.Background(), "need a 3/8 BSPP fitting")
	require.NoError(t, err)
	require.Equal(t, models.ComponentFittings, ct)
}

func TestClassifyUnknownOnUnrecognizedAnswer(t *testing.T) {
	gen := &fakeGenerator{text: "a completely unrelated answer"}
	gw := llmgateway.New(gen, "test-model")

	ct, err := gw.Classify(context.Background(), "what time is it")
	require.NoError(t, err)
	require.Equal(t, models.ComponentUnknown, ct)
}

func TestExtractParamsValidJSON(t *testing.T) {
	gen := &fakeGenerator{text: `{"thread":"M22x1.5","Dy":12}`}
	gw := llmgateway.New(gen, "test-model")

	out, err := gw.ExtractParams(context.Background(), "query", models.ComponentFittings)
	require.NoError(t, err)
	require.Equal(t, "M22x1.5", out["thread"])
}

func TestExtractParamsMalformedJSONDegradesToRaw(t *testing.T) {
	gen := &fakeGenerator{text: "not json at all"}
	gw := llmgateway.New(gen, "test-model")

	out, err := gw.ExtractParams(context.Background(), "query", models.ComponentFittings)
	require.NoError(t, err)
	require.Equal(t, "not json at all", out["raw_response"])
}

func TestExtractParamsEmptyReturnsNil(t *testing.T) {
	gen := &fakeGenerator{text: "   "}
	gw := llmgateway.New(gen, "test-model")

	out, err := gw.ExtractParams(context.Background(), "query", models.ComponentFittings)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestExtractQuantityParsesLeadingDigits(t *testing.T) {
	gen := &fakeGenerator{text: "25 pieces"}
	gw := llmgateway.New(gen, "test-model")

	n, ok, err := gw.ExtractQuantity(context.Background(), "query")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 25, n)
}

func TestExtractQuantityNotSpecified(t *testing.T) {
	gen := &fakeGenerator{text: "не указано"}
	gw := llmgateway.New(gen, "test-model")

	_, ok, err := gw.ExtractQuantity(context.Background(), "query")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSplitBatchSplitsLines(t *testing.T) {
	gen := &fakeGenerator{text: "line one\n\nline two\nline three"}
	gw := llmgateway.New(gen, "test-model")

	lines, err := gw.SplitBatch(context.Background(), "irrelevant")
	require.NoError(t, err)
	require.Equal(t, []string{"line one", "line two", "line three"}, lines)
}

func TestSplitBatchFallsBackToSingleLine(t *testing.T) {
	gen := &fakeGenerator{text: ""}
	gw := llmgateway.New(gen, "test-model")

	lines, err := gw.SplitBatch(context.Background(), "  single query  ")
	require.NoError(t, err)
	require.Equal(t, []string{"single query"}, lines)
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("upstream down")}
	gw := llmgateway.New(gen, "test-model")

	for i := 0; i < 5; i++ {
		_, err := gw.Classify(context.Background(), "query")
		require.Error(t, err)
	}

	callsBeforeOpen := gen.n
	_, err := gw.Classify(context.Background(), "query")
	require.Error(t, err)
	require.Equal(t, callsBeforeOpen, gen.n, "breaker should short-circuit without calling the generator")
}

func TestMissingPromptMapping(t *testing.T) {
	gen := &fakeGenerator{text: "{}"}
	gw := llmgateway.New(gen, "test-model")

	_, err := gw.ExtractParams(context.Background(), "query", models.ComponentUnknown)
	require.Error(t, err)
	var missing *llmgateway.ErrMissingPrompt
	require.ErrorAs(t, err, &missing)
}
