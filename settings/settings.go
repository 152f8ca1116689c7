package settings

import (
	"time"

	"github.com/bsv-blockchain/go-chaincfg"
)

func NewSettings() *Settings {
	params, err := chaincfg.GetChainParams(getString("network", "mainnet"))
	if err != nil {
		panic(err)
	}

	return &Settings{
		ClientName:     getString("clientName", "chainstate"),
		DataFolder:     getString("dataFolder", "data"),
		LogLevel:       getString("logLevel", "INFO"),
		LoggerType:     getString("logger_type", "zerolog"),
		ChainCfgParams: params,
		ChainState: ChainStateSettings{
			StoreURL:           getURL("chainstate_store", "memory:///"),
			PrepareConcurrency: getInt("chainstate_prepareConcurrency", 8),
			PrepareBufferSize:  getInt("chainstate_prepareBufferSize", 1024),
			WorkerMinIdleTime:  getDuration("chainstateworker_minIdleTime", 0),
			WorkerMaxIdleTime:  getDuration("chainstateworker_maxIdleTime", 30*time.Second),
		},
		Headers: HeaderSettings{
			StoreURL:      getURL("headers_store", "memory:///"),
			CacheTTL:      getDuration("headers_cacheTTL", 10*time.Minute),
			CacheCapacity: getInt("headers_cacheCapacity", 100_000),
		},
		TargetChain: TargetChainSettings{
			InitialNotify: getBool("targetchain_initialNotify", true),
			MinIdleTime:   getDuration("targetchain_minIdleTime", 0),
			MaxIdleTime:   getDuration("targetchain_maxIdleTime", 30*time.Second),
		},
		Kafka: KafkaSettings{
			Hosts:          getMultiString("KAFKA_HOSTS", "|", []string{"localhost:9092"}),
			TargetChainURL: getURL("kafka_targetChainURL", ""),
			ClientID:       getString("kafka_clientID", "chainstate"),
		},
		Tracing: TracingSettings{
			Enabled:      getBool("tracing_enabled", false),
			SampleRate:   getFloat64("tracing_sampleRate", 0.01),
			CollectorURL: getURL("tracing_collectorURL", "http://localhost:4318"),
			ServiceName:  getString("SERVICE_NAME", "chainstate"),
		},
	}
}
