package config

import "reflect"

// ChangeSet describes what changed between two configs and whether the
// change can be applied without a restart. Only the log level is hot-
// reloadable; backend and storage changes take effect on the next start.
type ChangeSet struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ProvidersChanged is true when any analysis backend selection changed.
	ProvidersChanged bool

	// StorageChanged is true when segment or report persistence settings
	// changed.
	StorageChanged bool
}

// RestartRequired reports whether any changed setting cannot be applied to
// the running server.
func (c ChangeSet) RestartRequired() bool {
	return c.ProvidersChanged || c.StorageChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ChangeSet {
	d := ChangeSet{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if !reflect.DeepEqual(old.Providers, new.Providers) {
		d.ProvidersChanged = true
	}
	if old.Storage != new.Storage {
		d.StorageChanged = true
	}
	return d
}
