// Package symtab holds the signatures of the functions of a program as they get inferred
package symtab

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/cottand/rowfx/frontend/types"
)

// Table maps function names to their generalised signature.
// Each function is written once, after which readers may use it concurrently
type Table struct {
	mu   sync.RWMutex
	sigs map[string]types.Signature
}

func New() *Table {
	return &Table{sigs: make(map[string]types.Signature)}
}

// Put records the signature of name. Writing the same function twice is a bug
func (t *Table) Put(name string, sig types.Signature) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sigs[name]; ok {
		return fmt.Errorf("signature of %s already recorded", name)
	}
	t.sigs[name] = sig
	return nil
}

func (t *Table) Signature(name string) (types.Signature, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sig, ok := t.sigs[name]
	return sig, ok
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sigs)
}

// Names returns the recorded functions in alphabetical order
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.sigs))
}

// Snapshot copies the table
func (t *Table) Snapshot() map[string]types.Signature {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.sigs)
}
