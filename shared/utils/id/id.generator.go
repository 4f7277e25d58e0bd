package id

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// GenerateULID returns "<prefix>_<ULID>", or the bare ULID when prefix is
// empty. IDs from one process sort by creation time.
func GenerateULID(prefix string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	if prefix == "" {
		return id.String()
	}
	return prefix + "_" + id.String()
}

// Valid reports whether s is a ULID produced by GenerateULID with prefix.
func Valid(prefix, s string) bool {
	if prefix != "" {
		var ok bool
		s, ok = strings.CutPrefix(s, prefix+"_")
		if !ok {
			return false
		}
	}
	_, err := ulid.ParseStrict(s)
	return err == nil
}
