package config

import "reflect"

// ConfigDiff describes what changed between two configs. Log level and the
// default target language can be applied to a running server; everything
// else requires a restart and is only flagged.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	TargetLanguageChanged bool
	NewTargetLanguage     string

	// RestartRequired is true when a change outside the hot-reloadable set
	// was detected (listen address, pipeline cadence, providers, store).
	RestartRequired bool
}

// Empty reports whether no changes were detected.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.TargetLanguageChanged && !d.RestartRequired
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Pipeline.TargetLanguage != new.Pipeline.TargetLanguage {
		d.TargetLanguageChanged = true
		d.NewTargetLanguage = new.Pipeline.TargetLanguage
	}

	// Compare the rest with the hot-reloadable fields masked out.
	oldMasked, newMasked := *old, *new
	oldMasked.Server.LogLevel, newMasked.Server.LogLevel = "", ""
	oldMasked.Pipeline.TargetLanguage, newMasked.Pipeline.TargetLanguage = "", ""
	if !reflect.DeepEqual(oldMasked, newMasked) {
		d.RestartRequired = true
	}

	return d
}
