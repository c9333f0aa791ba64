package numbering

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/wholesale/pkg/validate"
)

func TestGenerator_Next(t *testing.T) {
	g, err := New(1)
	require.NoError(t, err)

	number := g.Next()
	assert.True(t, validate.IsInvoiceNumber(number), number)
}

func TestGenerator_Unique(t *testing.T) {
	g, err := New(2)
	require.NoError(t, err)

	const n = 500
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number := g.Next()
			mu.Lock()
			seen[number] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
}

func TestNew_InvalidNode(t *testing.T) {
	_, err := New(-1)
	assert.Error(t, err)
}
