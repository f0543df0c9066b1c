package cmd

// CLI is the daemon's top-level kong command set.
type CLI struct {
	Server Server        `cmd:"" default:"withargs" help:"Run the lumend daemon"`
	Config ConfigCommand `cmd:"" help:"Generate configuration file templates"`
	Prefs  PrefsCommand  `cmd:"" help:"Inspect or clear persisted device preferences"`
	Log    Log           `embed:"" prefix:"log."`
}

// Log controls the daemon's structured logging sink.
type Log struct {
	Level string `help:"Log level (trace, debug, info, warn, error)" default:"info" env:"LUMEND_LOG_LEVEL"`
	File  string `help:"Additionally write logs to this file" env:"LUMEND_LOG_FILE"`
}
