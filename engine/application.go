package engine

import (
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/metadata"
)

type ApplicationConfig struct {
	// The application name used in logs.
	Name string
	// Path of the TOML settings file. A missing file means defaults.
	SettingsPath string
	// Reload the settings file when it changes.
	WatchSettings bool
	// Overrides the settings file log level when set.
	LogLevel *core.LogLevel
	// Receiver addresses by target. Targets not listed use the loopback defaults.
	Receivers map[metadata.TargetType]string
}

/**
 * @brief Callbacks the embedding application can set to follow export
 * batches. Every callback is optional.
 */
type Hooks struct {
	FnOnBatchStarted    OnBatch
	FnOnBatchCompleted  OnBatch
	FnOnFailure         OnFailure
	FnOnReceiverCommand OnReceiverCommand
}

type OnBatch func(batch core.BatchID, target string, count int)
type OnFailure func(title string, message string)
type OnReceiverCommand func(command string)
