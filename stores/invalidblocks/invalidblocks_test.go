package invalidblocks

import (
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	cache := New()

	var fired []InvalidBlock

	unsubscribe := cache.Subscribe(func(b InvalidBlock) {
		fired = append(fired, b)
	})

	hash := chainhash.HashH([]byte("block"))

	assert.False(t, cache.Contains(hash))
	assert.True(t, cache.TryAdd(hash, "bad merkle root"))
	assert.False(t, cache.TryAdd(hash, "again"))
	assert.True(t, cache.Contains(hash))

	reason, ok := cache.Reason(hash)
	require.True(t, ok)
	assert.Equal(t, "bad merkle root", reason)

	require.Len(t, fired, 1)
	assert.Equal(t, hash, fired[0].Hash)

	unsubscribe()

	assert.True(t, cache.TryAdd(chainhash.HashH([]byte("other")), "poisoned"))
	assert.Len(t, fired, 1)
	assert.Equal(t, 2, cache.Len())
}
