package llmgateway

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Fingerprint computes the stable content fingerprint used by both
// Producer and Worker to key a CachedSearch (spec §4.2): SHA-256 of
// the query after Unicode NFC normalization and whitespace collapsing
// (a single ASCII space between tokens), hex-encoded.
func Fingerprint(query string) string {
	normalized := norm.NFC.String(query)
	collapsed := strings.Join(strings.Fields(normalized), " ")
	sum := sha256.Sum256([]byte(collapsed))
	return hex.EncodeToString(sum[:])
}
