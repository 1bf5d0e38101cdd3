package config

const (
	defaultConfigPath          = "~/.config/handoff/config.toml"
	defaultWatchDir            = "~/Downloads"
	defaultStateDir            = "~/.local/state/handoff"
	defaultLogDir              = "~/.local/state/handoff/logs"
	defaultPollIntervalMillis  = 1000
	defaultMaxAttempts         = 60
	defaultMaxMessageBytes     = 64 << 20
	defaultHistoryEnabled      = true
	defaultHistoryRetention    = 90
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
	defaultManifestName        = "gct_download_manager"
	defaultManifestDescription = "Moves finished downloads to their destination folder"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir: defaultWatchDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Watch: Watch{
			PollIntervalMillis: defaultPollIntervalMillis,
			MaxAttempts:        defaultMaxAttempts,
		},
		Protocol: Protocol{
			MaxMessageBytes: defaultMaxMessageBytes,
		},
		History: History{
			Enabled:       defaultHistoryEnabled,
			RetentionDays: defaultHistoryRetention,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Manifest: Manifest{
			Name:        defaultManifestName,
			Description: defaultManifestDescription,
		},
	}
}
