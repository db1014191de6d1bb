// Package xid generates prefixed unique identifiers for installments,
// customers, ledger rows and the rest of the record types.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns a time-ordered identifier like "inst-1755849600000000000-a1b2c3d4e5f60708".
// The nanosecond component keeps IDs roughly sortable by creation time; the
// random suffix prevents collisions across processes.
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
