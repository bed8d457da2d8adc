package engine

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/config"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/metadata"
	"github.com/spaghettifunk/anima/engine/systems"
	"github.com/spaghettifunk/anima/engine/transport"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete and batches can run
	EngineStageInitialized
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released every resource
	EngineStageShutdown
)

type Engine struct {
	currentStage Stage
	config       *ApplicationConfig
	hooks        *Hooks
	archive      assets.Archive

	settings *config.Settings
	watcher  *config.Watcher
	jobs     *systems.JobSystem
	sockets  map[metadata.TargetType]*transport.SocketInterface
	service  *systems.ExportService
}

func New(cfg *ApplicationConfig, archive assets.Archive, hooks *Hooks) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("application config is required")
	}
	if archive == nil {
		return nil, fmt.Errorf("an archive is required")
	}
	if hooks == nil {
		hooks = &Hooks{}
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		hooks:        hooks,
		archive:      archive,
		sockets:      make(map[metadata.TargetType]*transport.SocketInterface),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	settings, err := config.Load(e.config.SettingsPath)
	if err != nil {
		return err
	}
	e.settings = settings
	e.applyLogLevel(settings)

	if e.config.WatchSettings {
		w, err := config.NewWatcher(e.config.SettingsPath, e.onSettingsChanged)
		if err != nil {
			return err
		}
		e.watcher = w
	}

	jobs, err := systems.NewJobSystem(settings.Workers, settings.JobQueueSize)
	if err != nil {
		return err
	}
	e.jobs = jobs

	transports := make(map[metadata.TargetType]systems.Transport)
	for _, target := range []metadata.TargetType{metadata.TargetTypeBlender, metadata.TargetTypeUnreal} {
		socket, err := e.newSocket(target, settings)
		if err != nil {
			return err
		}
		e.sockets[target] = socket
		transports[target] = socket
	}

	e.service = systems.NewExportService(systems.ExportServiceConfig{
		Settings:   e.Settings,
		Archive:    e.archive,
		Jobs:       e.jobs,
		Transports: transports,
	})

	// register some events
	core.EventRegister(core.EVENT_CODE_BATCH_STARTED, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_BATCH_COMPLETED, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_EXPORT_FAILED, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_RECEIVER_MESSAGE, e, e.onEvent)

	e.currentStage = EngineStageInitialized
	core.LogInfo("%s initialized, exporting to %s", e.config.Name, settings.ExportPath)
	return nil
}

func (e *Engine) newSocket(target metadata.TargetType, settings *config.Settings) (*transport.SocketInterface, error) {
	address, ok := e.config.Receivers[target]
	if !ok {
		var err error
		if address, err = transport.ForTarget(target); err != nil {
			return nil, err
		}
	}

	onInvalidArmature := func() {
		core.EventFire(core.EVENT_CODE_RECEIVER_MESSAGE, e, core.EventContext{
			Target:  target.String(),
			Message: transport.CommandInvalidArmature,
		})
	}

	return transport.NewSocketInterface(address,
		transport.WithReadTimeout(settings.ReadTimeout.Duration()),
		transport.WithCommand(transport.CommandInvalidArmature, onInvalidArmature),
	)
}

func (e *Engine) applyLogLevel(settings *config.Settings) {
	if e.config.LogLevel != nil {
		core.SetLogLevel(*e.config.LogLevel)
		return
	}
	core.SetLogLevel(core.ParseLogLevel(settings.LogLevel))
}

func (e *Engine) onSettingsChanged(settings *config.Settings) {
	e.applyLogLevel(settings)
	core.LogInfo("settings reloaded")
}

// Settings returns the current settings, reloaded ones included.
func (e *Engine) Settings() *config.Settings {
	if e.watcher != nil {
		return e.watcher.Settings()
	}
	return e.settings
}

func (e *Engine) ready() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine is not initialized")
	}
	return nil
}

// Export runs one batch and blocks until it finished.
func (e *Engine) Export(ctx context.Context, selections []systems.Selection, target metadata.TargetType) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.service.Export(ctx, selections, target)
}

// ExportAsync runs one batch on its own goroutine.
func (e *Engine) ExportAsync(ctx context.Context, selections []systems.Selection, target metadata.TargetType) <-chan error {
	if err := e.ready(); err != nil {
		result := make(chan error, 1)
		result <- err
		close(result)
		return result
	}
	return e.service.ExportAsync(ctx, selections, target)
}

// Ping probes the receiver of target.
func (e *Engine) Ping(target metadata.TargetType) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	socket, ok := e.sockets[target]
	if !ok {
		return false, fmt.Errorf("%s: %w", target, core.ErrUnknownTarget)
	}
	return socket.Ping(), nil
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	core.EventUnregister(core.EVENT_CODE_BATCH_STARTED, e)
	core.EventUnregister(core.EVENT_CODE_BATCH_COMPLETED, e)
	core.EventUnregister(core.EVENT_CODE_EXPORT_FAILED, e)
	core.EventUnregister(core.EVENT_CODE_RECEIVER_MESSAGE, e)

	for _, socket := range e.sockets {
		if err := socket.Close(); err != nil {
			core.LogWarn("closing socket to %s: %s", socket.Endpoint(), err.Error())
		}
	}
	if e.jobs != nil {
		if err := e.jobs.Shutdown(); err != nil {
			return err
		}
	}
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageShutdown
	return nil
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_BATCH_STARTED:
		if e.hooks.FnOnBatchStarted != nil {
			e.hooks.FnOnBatchStarted(context.BatchID, context.Target, context.Count)
		}
	case core.EVENT_CODE_BATCH_COMPLETED:
		if e.hooks.FnOnBatchCompleted != nil {
			e.hooks.FnOnBatchCompleted(context.BatchID, context.Target, context.Count)
		}
	case core.EVENT_CODE_EXPORT_FAILED:
		if e.hooks.FnOnFailure != nil {
			e.hooks.FnOnFailure(context.Title, context.Message)
		}
	case core.EVENT_CODE_RECEIVER_MESSAGE:
		core.LogWarn("%s receiver answered %s", context.Target, context.Message)
		if e.hooks.FnOnReceiverCommand != nil {
			e.hooks.FnOnReceiverCommand(context.Message)
		}
	}
	// other listeners may still want the event
	return false
}
