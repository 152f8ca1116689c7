package main

import (
	"net/url"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/model"
	"github.com/bsv-blockchain/chainstate/settings"
	"github.com/bsv-blockchain/chainstate/stores/chainstate/factory"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/urfave/cli/v2"
)

type inspectResult struct {
	Store          string              `json:"store"`
	Tip            string              `json:"tip,omitempty"`
	Height         uint32              `json:"height"`
	ChainWork      string              `json:"chainwork,omitempty"`
	Counters       *model.UtxoCounters `json:"counters"`
	UnspentTxCount int64               `json:"unspentTxCount"`
}

func inspect(c *cli.Context, logger ulogger.Logger, tSettings *settings.Settings) error {
	storeURL := tSettings.ChainState.StoreURL

	if s := c.String("store"); s != "" {
		var err error
		if storeURL, err = url.Parse(s); err != nil {
			return errors.NewConfigurationError("invalid store url %s", s, err)
		}
	}

	store, err := factory.NewStore(c.Context, logger, storeURL, tSettings.DataFolder)
	if err != nil {
		return err
	}

	defer func() {
		_ = store.Close()
	}()

	cursor, err := store.OpenCursor(c.Context)
	if err != nil {
		return err
	}

	defer func() {
		_ = cursor.Close()
	}()

	result := inspectResult{
		Store:    storeURL.Redacted(),
		Counters: cursor.Counters(),
	}

	tip, err := cursor.ChainTip()
	if err != nil {
		return err
	}

	if tip != nil {
		result.Tip = tip.Hash().String()
		result.Height = tip.Height
		result.ChainWork = tip.ChainWork.Text(16)
	}

	if result.UnspentTxCount, err = cursor.UnspentTxCount(c.Context); err != nil {
		return err
	}

	if result.UnspentTxCount != result.Counters.UnspentTxCount {
		logger.Warnf("[inspect] utxo set holds %d txs but the counters say %d", result.UnspentTxCount, result.Counters.UnspentTxCount)
	}

	return printJSON(&result)
}
