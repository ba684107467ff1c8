package llmgateway_test

import (
	"testing"

	"github.com/ChiaYuChang/hydrosearch/internal/llmgateway"
	"github.com/stretchr/testify/require"
)

func TestFingerprintCollapsesWhitespace(t *testing.T) {
	a := llmgateway.Fingerprint("3/8   BSPP  fitting")
	b := llmgateway.Fingerprint("3/8 BSPP fitting")
	require.Equal(t, a, b)
}

func TestFingerprintIsStable(t *testing.T) {
	a := llmgateway.Fingerprint("1/2 adapter")
	b := llmgateway.Fingerprint("1/2 adapter")
	require.Equal(t, a, b)
	require.Len(t, a, 64)
}

func TestFingerprintDiffersOnContent(t *testing.T) {
	a := llmgateway.Fingerprint("1/2 adapter")
	b := llmgateway.Fingerprint("3/4 adapter")
	require.NotEqual(t, a, b)
}
