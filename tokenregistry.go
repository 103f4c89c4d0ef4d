package corepg

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// TokenID is a globally-unique-per-value identifier for a literal
// production, per spec.md §6: "a stable hash of the literal's printed
// form, registered in a process-wide table so that equal literals
// compare equal." A TokenID of 0 means "not a literal" (the C++
// original uses -1 for the same purpose; 0 is more natural for Go's
// unsigned token ID type since xxhash.Sum64 can legitimately return any
// 64-bit value, so a dedicated zero constant below distinguishes it).
type TokenID uint64

// NoTokenID is returned by TokenIDOf for productions that carry no
// token ID.
const NoTokenID TokenID = 0

// TokenRegistry maps a literal's canonical printed form to a stable
// TokenID. Per spec.md §9's design note, the registry defaults to
// being grammar-local; ShareTokens on two Grammars promotes them to a
// shared registry only when token identity must survive across
// independently built grammars linked into the same process.
type TokenRegistry struct {
	mu  sync.Mutex
	ids map[string]TokenID
}

// NewTokenRegistry returns an empty, grammar-local token registry.
func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{ids: make(map[string]TokenID)}
}

// IDFor returns the stable TokenID for a literal's canonical printed
// form, assigning one (derived from an xxhash of the form) the first
// time it is seen.
func (r *TokenRegistry) IDFor(printed string) TokenID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.ids[printed]; ok {
		return id
	}

	id := TokenID(xxhash.Sum64String(printed))
	if id == NoTokenID {
		// Vanishingly unlikely, but keep the sentinel meaningful.
		id = TokenID(xxhash.Sum64String(printed + "\x00"))
	}
	r.ids[printed] = id
	return id
}

// globalTokenRegistry backs Grammar.ShareTokens: when two grammars
// opt in, they fall back to this single process-wide registry instead
// of their own, matching the source's process-wide map (spec.md §9).
var (
	globalTokenRegistryOnce sync.Once
	globalTokenRegistry     *TokenRegistry
)

func sharedGlobalTokenRegistry() *TokenRegistry {
	globalTokenRegistryOnce.Do(func() {
		globalTokenRegistry = NewTokenRegistry()
	})
	return globalTokenRegistry
}
