package settings

import (
	"net/url"
	"time"

	"github.com/bsv-blockchain/go-chaincfg"
)

type Settings struct {
	ClientName     string
	DataFolder     string
	LogLevel       string
	LoggerType     string
	ChainCfgParams *chaincfg.Params
	ChainState     ChainStateSettings
	Headers        HeaderSettings
	TargetChain    TargetChainSettings
	Kafka          KafkaSettings
	Tracing        TracingSettings
}

type ChainStateSettings struct {
	StoreURL *url.URL
	// PrepareConcurrency bounds how many transactions of a block are prepared ahead of the cursor.
	PrepareConcurrency int
	PrepareBufferSize  int
	WorkerMinIdleTime  time.Duration
	WorkerMaxIdleTime  time.Duration
}

type HeaderSettings struct {
	StoreURL      *url.URL
	CacheTTL      time.Duration
	CacheCapacity int
}

type TargetChainSettings struct {
	InitialNotify bool
	MinIdleTime   time.Duration
	MaxIdleTime   time.Duration
}

type KafkaSettings struct {
	Hosts          []string
	TargetChainURL *url.URL
	ClientID       string
}

type TracingSettings struct {
	Enabled      bool
	SampleRate   float64
	CollectorURL *url.URL
	ServiceName  string
}
