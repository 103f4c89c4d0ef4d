package corepg

import (
	"fmt"
	"sync"
)

// Uniquer assigns stable, collision-free symbols to productions
// derived from a unit field's id, the way a reverse name table turns
// a fixed label into a guaranteed-unique key (the same init-time,
// map-backed reverse-lookup idiom the teacher used for its opcode
// table, here made dynamic since field ids aren't a fixed enum).
//
// Two fields in unrelated units may share an id ("length", "data"),
// so the same base by itself can't be a Grammar-wide symbol; Uniquer
// appends a numeric suffix on collision: every request after the first
// for the same base gets a new, higher suffix, so no two requests ever
// receive the same symbol.
type Uniquer struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewUniquer returns an empty Uniquer.
func NewUniquer() *Uniquer {
	return &Uniquer{counts: make(map[string]int)}
}

// Unique returns base unchanged the first time it's requested, and
// base suffixed with an incrementing counter on every subsequent
// request for the same base.
func (u *Uniquer) Unique(base string) string {
	u.mu.Lock()
	defer u.mu.Unlock()

	n := u.counts[base]
	u.counts[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s.%d", base, n)
}
