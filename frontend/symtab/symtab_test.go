package symtab_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/cottand/rowfx/frontend/symtab"
	"github.com/cottand/rowfx/frontend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pureSig() types.Signature {
	return types.Signature{Fn: &types.Arrow{Ret: types.Unit, Row: types.Pure}}
}

func TestPutOnce(t *testing.T) {
	table := symtab.New()
	require.NoError(t, table.Put("main", pureSig()))
	assert.Error(t, table.Put("main", pureSig()))

	sig, ok := table.Signature("main")
	assert.True(t, ok)
	assert.Equal(t, "() -> Unit !{}", sig.String())

	_, ok = table.Signature("other")
	assert.False(t, ok)
}

func TestConcurrentWriters(t *testing.T) {
	table := symtab.New()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, table.Put(fmt.Sprintf("f%02d", i), pureSig()))
			_, ok := table.Signature(fmt.Sprintf("f%02d", i))
			assert.True(t, ok)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, table.Len())
	assert.Equal(t, "f00", table.Names()[0])
	assert.Len(t, table.Snapshot(), 50)
}
