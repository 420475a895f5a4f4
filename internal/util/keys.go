package util

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// HashKey returns "<prefix>:<16 hex chars>" using xxhash64 over parts joined by NUL.
func HashKey(prefix string, parts ...string) string {
	h := xxhash.New()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.WriteString(p)
	}
	sum := strconv.FormatUint(h.Sum64(), 16)
	return prefix + ":" + strings.Repeat("0", 16-len(sum)) + sum
}
