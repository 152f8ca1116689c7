package util

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func TestSafeSetLimit(t *testing.T) {
	t.Run("positive limit", func(t *testing.T) {
		g := &errgroup.Group{}

		assert.Equal(t, 1, SafeSetLimit(g, 1))
		assert.Equal(t, 10, SafeSetLimit(g, 10))
	})

	t.Run("zero and negative fall back to GOMAXPROCS", func(t *testing.T) {
		g := &errgroup.Group{}

		assert.NotPanics(t, func() {
			assert.Equal(t, runtime.GOMAXPROCS(0), SafeSetLimit(g, 0))
			assert.Equal(t, runtime.GOMAXPROCS(0), SafeSetLimit(g, -1))
		})
	})
}
