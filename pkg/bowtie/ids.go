package bowtie

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns "<prefix>_<8 hex chars>", the identifier shape diagram
// editors have always produced.
func NewID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + hex[:8]
}

// EdgeIDPrefix prefixes generated edge identifiers.
const EdgeIDPrefix = "e"
