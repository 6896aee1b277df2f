// Package document implements Forest's document session: the
// canonical-document model, import-time chunking strategies, the editor
// buffer round trip, and the save pipeline that folds edited segments back
// into the graph. Only segments whose content actually changed are
// re-embedded and re-linked on save.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// checksum returns the stable SHA-256 hex digest of body, the value stored
// per document_chunks row.
func checksum(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// newID returns a random 32-character hex identifier for a node, segment,
// or document. Identity is assigned once at creation, never derived from
// content: a segment's body changes on every save and its node id must
// survive both edits and reordering.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
