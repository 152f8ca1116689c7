package memory

import (
	"testing"

	"github.com/bsv-blockchain/chainstate/stores/headers"
	"github.com/bsv-blockchain/chainstate/stores/headers/tests"
)

func TestMemory(t *testing.T) {
	tests.RunAll(t, func(t *testing.T) headers.Store {
		return New()
	})
}
