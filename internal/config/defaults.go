package config

const (
	defaultConfigPath       = "~/.config/cbzmage/config.toml"
	projectConfigName       = "cbzmage.toml"
	defaultOutputDir        = "~/comics"
	defaultStateDir         = "~/.local/share/cbzmage"
	defaultLogDir           = "~/.local/share/cbzmage/logs"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultCompression      = "optimal"
	defaultMinCapacityKiB   = 1024
	defaultLowWaterKiB      = 64
	historyFileName         = "history.db"
	lockFileName            = "cbzmage.lock"
)

// CompressionLevels lists the accepted conversion.compression values.
var CompressionLevels = []string{"none", "fastest", "optimal", "smallest"}

// Default returns a Config populated with repository defaults. The worker
// count stays zero until normalization resolves it from the environment or
// the CPU count.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Conversion: Conversion{
			Compression: defaultCompression,
		},
		Buffers: Buffers{
			MinCapacityKiB: defaultMinCapacityKiB,
			LowWaterKiB:    defaultLowWaterKiB,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		History: History{
			Enabled: true,
		},
	}
}
