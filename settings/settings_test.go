package settings

import (
	"testing"

	"github.com/bsv-blockchain/go-chaincfg"
	"github.com/stretchr/testify/require"
)

// check settings object is initialised
func TestInitialiseSettings(t *testing.T) {
	tSettings := NewSettings()

	require.NotNil(t, tSettings.ChainCfgParams)
	require.NotNil(t, tSettings.ChainState.StoreURL)
	require.NotNil(t, tSettings.Headers.StoreURL)
	require.Positive(t, tSettings.ChainState.PrepareConcurrency)
	require.Positive(t, tSettings.ChainState.PrepareBufferSize)
	require.GreaterOrEqual(t, tSettings.TargetChain.MaxIdleTime, tSettings.TargetChain.MinIdleTime)
	require.Nil(t, tSettings.Kafka.TargetChainURL)
}

func TestChainParams(t *testing.T) {
	tests := []struct {
		name   string
		params *chaincfg.Params
	}{
		{"RegressionNet", &chaincfg.RegressionNetParams},
		{"TestNet", &chaincfg.TestNetParams},
		{"MainNet", &chaincfg.MainNetParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tSettings := NewSettings()
			tSettings.ChainCfgParams = tt.params
			require.NotNil(t, tSettings.ChainCfgParams.GenesisHash)
		})
	}
}
