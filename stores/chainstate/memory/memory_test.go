package memory

import (
	"testing"

	"github.com/bsv-blockchain/chainstate/stores/chainstate"
	"github.com/bsv-blockchain/chainstate/stores/chainstate/tests"
	"github.com/bsv-blockchain/chainstate/ulogger"
)

func TestMemory(t *testing.T) {
	tests.RunAll(t, func(t *testing.T) chainstate.Store {
		return New(ulogger.TestLogger{})
	})
}
