package config

const (
	defaultDataDir   = "~/.local/share/callscore"
	defaultLogDir    = "~/.local/share/callscore/logs"
	defaultLogLevel  = "info"
	defaultLogFormat = "console"

	defaultBrokerExchange = "callscore.tasks"
	defaultBrokerQueue    = "task_queue"
	defaultBrokerKey      = "task"
	defaultBrokerTag      = "callscore-worker"
	defaultBrokerPrefetch = 8

	defaultTelemetryListen = "127.0.0.1:9164"

	defaultTranscriberTimeoutSeconds = 300
)

// Default returns a Config populated with repository defaults. The scoring
// bands start as strict step functions (any hold, pause, or interruption
// forfeits the criterion; speech-rate ratio must sit in 80..120) until a
// deployment overrides them.
func Default() Config {
	return Config{
		DataDir:   defaultDataDir,
		LogDir:    defaultLogDir,
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
		Broker: Broker{
			Exchange:    defaultBrokerExchange,
			Queue:       defaultBrokerQueue,
			RoutingKey:  defaultBrokerKey,
			ConsumerTag: defaultBrokerTag,
			Prefetch:    defaultBrokerPrefetch,
		},
		Transcriber: Transcriber{
			TimeoutSeconds: defaultTranscriberTimeoutSeconds,
		},
		Telemetry: Telemetry{
			Enabled: false,
			Listen:  defaultTelemetryListen,
		},
		Scoring: Scoring{
			SpeechRateRatio: RatioBand{ZeroBelow: 80, FullLow: 80, FullHigh: 120, ZeroAbove: 120},
			CallHolds:       CountBand{FullAt: 0, ZeroAt: 1},
			SilencePauses:   CountBand{FullAt: 0, ZeroAt: 1},
			Interruptions:   CountBand{FullAt: 0, ZeroAt: 1},
		},
	}
}
