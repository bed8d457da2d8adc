package systems

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima/engine/artifacts"
	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/config"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/metadata"
)

/** @brief One asset chosen by the user, with the styles to export along. */
type Selection struct {
	Name   string
	Asset  assets.Object
	Type   metadata.AssetType
	Styles []metadata.StyleDescriptor
}

// SelectionFor selects obj without styles, named after the object.
func SelectionFor(obj assets.Object, assetType metadata.AssetType) Selection {
	return Selection{Name: obj.Name(), Asset: obj, Type: assetType}
}

/** @brief Delivers a serialized manifest to one receiver. */
type Transport interface {
	Ping() bool
	Send(payload []byte) error
}

/**
 * @brief An ExportRecord under construction together with the exporter
 * instance owning its pending writes.
 */
type Record struct {
	metadata.ExportRecord

	exporter *ExporterInstance
	state    metadata.RecordState
}

func (r *Record) State() metadata.RecordState {
	return r.state
}

// WaitForExports joins every write of the record and completes it.
func (r *Record) WaitForExports() int {
	failed := r.exporter.WaitForExports()
	r.state = metadata.RecordStateComplete
	return failed
}

/**
 * @brief Builds the record of one selection, starting every artifact
 * write it needs. Unresolvable parts of the asset are logged and
 * skipped.
 */
func (c *ExportContext) CreateRecord(sel Selection, target metadata.TargetType) (*Record, error) {
	primitive, ok := sel.Type.ExportType()
	if !ok {
		return nil, fmt.Errorf("%s: %w", sel.Name, core.ErrUnknownAssetType)
	}

	r := &Record{
		ExportRecord: metadata.ExportRecord{
			Name:          sel.Name,
			Asset:         sel.Asset.Path(),
			Styles:        sel.Styles,
			Type:          sel.Type,
			PrimitiveType: primitive,
			ExportType:    target,
		},
		exporter: NewExporterInstance(c),
		state:    metadata.RecordStateExporting,
	}

	switch primitive {
	case metadata.ExportTypeMesh:
		r.buildMesh(sel)
	case metadata.ExportTypeTexture:
		r.buildTexture(sel)
	case metadata.ExportTypeAnimation:
		r.buildAnimation(sel)
	}

	return r, nil
}

func (r *Record) buildMesh(sel Selection) {
	e := r.exporter

	switch asset := sel.Asset.(type) {
	case *assets.Character:
		r.Parts = append(r.Parts, e.ExportCharacter(asset)...)
	case *assets.CharacterPart:
		if part := e.ExportPart(asset); part != nil {
			r.Parts = append(r.Parts, *part)
		}
	case *assets.WeaponDefinition:
		r.Meshes = append(r.Meshes, e.ExportWeaponDefinition(asset)...)
	case *assets.LevelSaveRecord:
		r.Meshes = append(r.Meshes, e.ExportLevelSaveRecord(asset)...)
	case *assets.SkeletalMesh, *assets.StaticMesh:
		if mesh := e.ExportMesh(asset); mesh != nil {
			r.Meshes = append(r.Meshes, *mesh)
		}
	default:
		core.LogWarn("[%s] %s of kind %s cannot be exported as a mesh", e.ctx.Batch.Short(), asset.Path(), asset.Kind())
	}

	for _, style := range sel.Styles {
		for _, override := range style.Materials {
			if m := e.OverrideMaterial(override.OverrideMaterial, override.MaterialOverrideIndex, override.MaterialToSwap); m != nil {
				r.StyleMaterials = append(r.StyleMaterials, *m)
			}
		}
		for _, path := range style.Parts {
			part, err := assets.LoadAs[*assets.CharacterPart](e.ctx.Archive, path)
			if err != nil {
				core.LogWarn("[%s] style %s: %s", e.ctx.Batch.Short(), style.Name, err.Error())
				continue
			}
			if exported := e.ExportPart(part); exported != nil {
				r.StyleParts = append(r.StyleParts, *exported)
			}
		}
	}

	switch {
	case len(r.Parts) > 0:
		r.Path = r.Parts[0].Path
	case len(r.Meshes) > 0:
		r.Path = r.Meshes[0].Path
	}
}

func (r *Record) buildTexture(sel Selection) {
	texture, ok := sel.Asset.(*assets.Texture)
	if !ok {
		core.LogWarn("[%s] %s of kind %s cannot be exported as a texture", r.exporter.ctx.Batch.Short(), sel.Asset.Path(), sel.Asset.Kind())
		return
	}
	if path := r.exporter.ExportAsset(texture, true); path != "" {
		r.Path = path
		r.Textures = append(r.Textures, path)
	}
}

func (r *Record) buildAnimation(sel Selection) {
	animation, ok := sel.Asset.(*assets.Animation)
	if !ok {
		core.LogWarn("[%s] %s of kind %s cannot be exported as an animation", r.exporter.ctx.Batch.Short(), sel.Asset.Path(), sel.Asset.Kind())
		return
	}
	if path := r.exporter.ExportAsset(animation, true); path != "" {
		r.Path = path
		r.Animations = append(r.Animations, path)
	}
}

// WriterFactory builds the artifact writer of one batch.
type WriterFactory func(archive assets.Archive, options metadata.ExportOptions) artifacts.Writer

// DefaultWriterFactory writes files with the default header encoder.
func DefaultWriterFactory(archive assets.Archive, options metadata.ExportOptions) artifacts.Writer {
	return artifacts.NewFileWriter(archive, options.ImageFormat, nil)
}

/** @brief Collaborators of the export service. */
type ExportServiceConfig struct {
	// Settings returns the current settings; one snapshot is taken per batch.
	Settings   func() *config.Settings
	Archive    assets.Archive
	Jobs       *JobSystem
	Transports map[metadata.TargetType]Transport
	// Optional. Defaults to DefaultWriterFactory.
	Writers WriterFactory
	// Optional. Defaults to an EventNotifier.
	Notifier Notifier
}

/**
 * @brief Runs export batches: builds records, waits for their artifacts
 * and hands the manifest to the receiver of the target. One batch runs
 * at a time.
 */
type ExportService struct {
	config ExportServiceConfig
	mutex  sync.Mutex
}

func NewExportService(cfg ExportServiceConfig) *ExportService {
	if cfg.Writers == nil {
		cfg.Writers = DefaultWriterFactory
	}
	return &ExportService{config: cfg}
}

func (s *ExportService) notifier(batch core.BatchID) Notifier {
	if s.config.Notifier != nil {
		return s.config.Notifier
	}
	return EventNotifier{Batch: batch}
}

// ExportAsync runs Export on its own goroutine. The channel receives its
// result and is closed.
func (s *ExportService) ExportAsync(ctx context.Context, selections []Selection, target metadata.TargetType) <-chan error {
	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- s.Export(ctx, selections, target)
	}()
	return result
}

/**
 * @brief Exports selections for target. Folder exports only write the
 * artifacts. Receiver targets are pinged first; nothing is written when
 * the receiver does not answer.
 */
func (s *ExportService) Export(ctx context.Context, selections []Selection, target metadata.TargetType) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	batch := core.NewBatchID()
	notifier := s.notifier(batch)
	settings := s.config.Settings().Snapshot()

	err := s.export(ctx, batch, settings, notifier, selections, target)
	result := "ok"
	if err != nil {
		result = "error"
	}
	core.Metrics().Batches.WithLabelValues(target.String(), result).Inc()
	return err
}

func (s *ExportService) export(ctx context.Context, batch core.BatchID, settings *config.Settings, notifier Notifier, selections []Selection, target metadata.TargetType) error {
	options, err := settings.ExportOptions(target)
	if err != nil {
		return err
	}

	for _, sel := range selections {
		if _, ok := sel.Type.ExportType(); !ok {
			notifier.NotifyFailure("Invalid Export", fmt.Sprintf("%s has no asset type", sel.Name))
			return fmt.Errorf("%s: %w", sel.Name, core.ErrUnknownAssetType)
		}
	}

	var transport Transport
	if target.IsReceiver() {
		var ok bool
		if transport, ok = s.config.Transports[target]; !ok {
			return fmt.Errorf("no transport for %s: %w", target, core.ErrUnknownTarget)
		}
		if !transport.Ping() {
			desc := target.Description()
			notifier.NotifyFailure(
				fmt.Sprintf("Failed to Connect to %s Server", desc),
				fmt.Sprintf("Please ensure that you have %s open with the latest porter plugin enabled.", desc),
			)
			return fmt.Errorf("%s: %w", desc, core.ErrReceiverUnreachable)
		}
	}

	clock := core.StartClock()
	core.LogInfo("[%s] exporting %d asset(s) to %s", batch.Short(), len(selections), target)
	core.EventFire(core.EVENT_CODE_BATCH_STARTED, s, core.EventContext{BatchID: batch, Target: target.String(), Count: len(selections)})

	exportCtx := NewExportContext(batch, settings.ExportPath, options, s.config.Archive, s.config.Writers(s.config.Archive, options), s.config.Jobs)

	records := make([]*Record, 0, len(selections))
	for _, sel := range selections {
		if err := ctx.Err(); err != nil {
			// already started writes finish on their own
			for _, r := range records {
				r.WaitForExports()
			}
			return err
		}
		r, err := exportCtx.CreateRecord(sel, target)
		if err != nil {
			return err
		}
		records = append(records, r)
	}

	failed := 0
	for _, r := range records {
		failed += r.WaitForExports()
	}
	if failed > 0 {
		core.LogWarn("[%s] %d artifact(s) failed to export", batch.Short(), failed)
	}

	if transport != nil {
		manifest := metadata.ExportManifest{
			AssetsFolder: settings.ExportPath,
			Options:      options,
			Data:         make([]metadata.ExportRecord, 0, len(records)),
		}
		for _, r := range records {
			manifest.Data = append(manifest.Data, r.ExportRecord)
		}

		payload, err := json.Marshal(manifest)
		if err != nil {
			return fmt.Errorf("encoding manifest: %w", err)
		}
		if err := transport.Send(payload); err != nil {
			notifier.NotifyFailure(
				fmt.Sprintf("Failed to Send to %s Server", target.Description()),
				err.Error(),
			)
			return err
		}
	}

	core.LogInfo("[%s] finished %s export in %s", batch.Short(), target, clock.Stop())
	core.EventFire(core.EVENT_CODE_BATCH_COMPLETED, s, core.EventContext{BatchID: batch, Target: target.String(), Count: len(records)})
	return nil
}
