package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ChunkID derives a stable chunk identifier from the fields that define a
// chunk's identity: which project and file it came from, its line range,
// and the content hash of the source file at the time it was cut. Re-
// chunking an unchanged file with an unchanged chunker reproduces the same
// IDs, which is what makes ReplaceProjectChunks idempotent (spec.md §8).
func ChunkID(projectID, filePath string, startLine, endLine int, contentHash string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%d\x00%s", projectID, filePath, startLine, endLine, contentHash)
	return hex.EncodeToString(h.Sum(nil))
}
