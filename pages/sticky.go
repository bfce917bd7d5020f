// Package pages implements pylon's page registry and sticky WebSocket
// routing (C10): process-affine page IDs, a hash-based worker router, a
// per-worker page registry with an idle sweeper, bounded outbound queues,
// and a cross-worker pub/sub bus addressed by topic.
package pages

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// StickyRouter assigns an identity (a connecting client/session key) to one
// of N workers by a stable hash, per §4.10's hash(identity) mod N, and
// encodes/decodes the worker suffix on page IDs.
type StickyRouter struct {
	workerCount int
}

// NewStickyRouter returns a StickyRouter spreading identities across
// workerCount workers.
func NewStickyRouter(workerCount int) *StickyRouter {
	if workerCount < 1 {
		workerCount = 1
	}
	return &StickyRouter{workerCount: workerCount}
}

// WorkerFor returns the worker index identity hashes to. xxhash is reused
// here rather than introducing a second hash family, since it is already a
// direct dependency for response ETag hashing in the teacher.
func (s *StickyRouter) WorkerFor(identity string) int {
	return int(xxhash.Sum64String(identity) % uint64(s.workerCount))
}

// EncodePageID appends the worker-affinity suffix "|pNN" to a bare page ID,
// per §4.10's page_id encoding.
func EncodePageID(id string, worker int) string {
	return fmt.Sprintf("%s|p%d", id, worker)
}

// DecodePageID splits a page ID into its bare ID and worker index. ok is
// false if id does not carry a recognizable "|pNN" suffix.
func DecodePageID(id string) (bareID string, worker int, ok bool) {
	idx := strings.LastIndex(id, "|p")
	if idx < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[idx+2:])
	if err != nil {
		return "", 0, false
	}
	return id[:idx], n, true
}
