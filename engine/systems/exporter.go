package systems

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spaghettifunk/anima/engine/artifacts"
	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/metadata"
)

const (
	headMorphHatTypes   = "Cap,Mask,Helmet,Hat,HeadReplacement"
	hatTypePrefix       = "ECustomHatType::ECustomHatType_"
	skinColorPairName   = "Skin Boost Color and Exponent"
	defaultPartType     = "Head"
	weaponMeshComponent = "WeaponMesh"
	offhandComponent    = "LeftHandWeaponMesh"
)

/**
 * @brief State shared by every exporter instance of one batch: the
 * options snapshot, collaborators, the material cache and the set of
 * output paths already being written.
 */
type ExportContext struct {
	Batch      core.BatchID
	Options    metadata.ExportOptions
	ExportRoot string
	Archive    assets.Archive
	Writer     artifacts.Writer
	Jobs       *JobSystem
	Materials  *MaterialCache

	mutex    sync.Mutex
	inflight map[string]*Task
}

func NewExportContext(batch core.BatchID, exportRoot string, options metadata.ExportOptions, archive assets.Archive, writer artifacts.Writer, jobs *JobSystem) *ExportContext {
	return &ExportContext{
		Batch:      batch,
		Options:    options,
		ExportRoot: exportRoot,
		Archive:    archive,
		Writer:     writer,
		Jobs:       jobs,
		Materials:  NewMaterialCache(),
		inflight:   make(map[string]*Task),
	}
}

// OutputPath maps an object to its file under the export root. The
// parent directory is created.
func (c *ExportContext) OutputPath(obj assets.Object, ext string) string {
	rel := assets.SubstringBeforeLast(obj.Owner(), ".")
	rel = strings.TrimPrefix(rel, "/")
	base := filepath.Join(c.ExportRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		core.LogWarn("cannot create directory for %s: %s", base, err.Error())
	}
	return base + "." + strings.ToLower(ext)
}

// Extension returns the file extension an object is written with.
func (c *ExportContext) Extension(obj assets.Object) (string, error) {
	switch obj.(type) {
	case *assets.SkeletalMesh:
		if c.Options.MeshFormat == metadata.MeshFormatActorX {
			return "psk", nil
		}
		return "uemodel", nil
	case *assets.StaticMesh:
		if c.Options.MeshFormat == metadata.MeshFormatActorX {
			return "pskx", nil
		}
		return "uemodel", nil
	case *assets.Texture:
		if c.Options.ImageFormat == metadata.ImageFormatTGA {
			return "tga", nil
		}
		return "png", nil
	case *assets.Animation:
		if c.Options.AnimFormat == metadata.AnimFormatActorX {
			return "psa", nil
		}
		return "ueanim", nil
	default:
		return "", fmt.Errorf("%s of kind %s: %w", obj.Path(), obj.Kind(), core.ErrUnsupportedFormat)
	}
}

// spawn returns the task writing path, starting one unless another
// instance of the batch already did.
func (c *ExportContext) spawn(obj assets.Object, path string) (*Task, bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if task, ok := c.inflight[path]; ok {
		return task, false, nil
	}

	kind := obj.Kind().String()
	task, err := c.Jobs.Submit(JobTask{
		Name: path,
		OnStart: func() error {
			core.LogInfo("[%s] Exporting %s: %s", c.Batch.Short(), kind, obj.Path())
			return c.Writer.Write(obj, path)
		},
		OnComplete: func() {
			core.Metrics().ArtifactsWritten.WithLabelValues(kind).Inc()
		},
		OnFailure: func(err error) {
			core.Metrics().ArtifactsFailed.WithLabelValues(kind).Inc()
			core.LogWarn("[%s] Failed to Export %s: %s", c.Batch.Short(), obj.Path(), err.Error())
		},
	})
	if err != nil {
		return nil, false, err
	}
	c.inflight[path] = task
	return task, true, nil
}

/**
 * @brief Builds the exported representation of one record and tracks
 * every artifact write it started.
 */
type ExporterInstance struct {
	ctx *ExportContext

	mutex sync.Mutex
	tasks []*Task
}

func NewExporterInstance(ctx *ExportContext) *ExporterInstance {
	return &ExporterInstance{ctx: ctx}
}

func (e *ExporterInstance) track(t *Task) {
	e.mutex.Lock()
	e.tasks = append(e.tasks, t)
	e.mutex.Unlock()
}

/**
 * @brief Blocks until every write started by this instance finished.
 * Failed writes were already logged and are not reported again.
 * @return The number of failed writes.
 */
func (e *ExporterInstance) WaitForExports() int {
	e.mutex.Lock()
	tasks := make([]*Task, len(e.tasks))
	copy(tasks, e.tasks)
	e.mutex.Unlock()

	return WaitAll(tasks)
}

/**
 * @brief Writes asset to its output file unless it already exists.
 * @param waitForFinish Block until the file is written.
 * @return The output path when waiting, the asset path otherwise.
 */
func (e *ExporterInstance) ExportAsset(asset assets.Object, waitForFinish bool) string {
	path, task := e.exportFile(asset)
	if !waitForFinish {
		return asset.Path()
	}
	if task != nil {
		task.Wait()
	}
	return path
}

// exportFile starts writing asset without waiting and returns its output
// path with the task, or a nil task when nothing needs writing.
func (e *ExporterInstance) exportFile(asset assets.Object) (string, *Task) {
	ext, err := e.ctx.Extension(asset)
	if err != nil {
		core.LogWarn("[%s] Failed to Export %s: %s", e.ctx.Batch.Short(), asset.Path(), err.Error())
		return "", nil
	}

	path := e.ctx.OutputPath(asset, ext)
	if _, err := os.Stat(path); err == nil {
		core.Metrics().ArtifactsSkipped.WithLabelValues(asset.Kind().String()).Inc()
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		core.LogDebug("stat %s: %s", path, err.Error())
	}

	task, started, err := e.ctx.spawn(asset, path)
	if err != nil {
		core.LogWarn("[%s] Failed to Export %s: %s", e.ctx.Batch.Short(), asset.Path(), err.Error())
		return path, nil
	}
	if !started {
		core.Metrics().ArtifactsSkipped.WithLabelValues(asset.Kind().String()).Inc()
	}
	e.track(task)
	return path, task
}

/**
 * @brief Exports a skeletal or static mesh and resolves the material of
 * every section of its first LOD.
 * @return nil when the mesh cannot be converted or has no LODs.
 */
func (e *ExporterInstance) ExportMesh(mesh assets.Object) *metadata.ExportedMesh {
	converted, err := e.ctx.Archive.Convert(mesh)
	if err != nil {
		core.LogWarn("[%s] skipping mesh %s: %s", e.ctx.Batch.Short(), mesh.Path(), err.Error())
		return nil
	}
	if len(converted.LODs) == 0 {
		core.LogWarn("[%s] skipping mesh %s: %s", e.ctx.Batch.Short(), mesh.Path(), core.ErrNoLODs.Error())
		return nil
	}

	path, _ := e.exportFile(mesh)
	exported := &metadata.ExportedMesh{
		Path:    path,
		NumLods: len(converted.LODs),
	}

	for slot, section := range converted.LODs[0].Sections {
		if section.Material == "" {
			continue
		}
		material, err := e.ctx.Archive.Load(section.Material)
		if err != nil || !assets.IsMaterialInterface(material) {
			continue
		}
		if m := e.Material(material, slot); m != nil {
			exported.Materials = append(exported.Materials, *m)
		}
	}

	return exported
}

func (e *ExporterInstance) loadMesh(path string) assets.Object {
	if path == "" {
		return nil
	}
	obj, err := e.ctx.Archive.Load(path)
	if err != nil {
		core.LogDebug("mesh %s cannot be loaded: %s", path, err.Error())
		return nil
	}
	switch obj.(type) {
	case *assets.SkeletalMesh, *assets.StaticMesh:
		return obj
	default:
		return nil
	}
}

func (e *ExporterInstance) exportMeshAt(path string) *metadata.ExportedMesh {
	mesh := e.loadMesh(path)
	if mesh == nil {
		return nil
	}
	return e.ExportMesh(mesh)
}

/**
 * @brief Exports the mesh of a character part together with its
 * material overrides and part specific metadata.
 */
func (e *ExporterInstance) ExportPart(part *assets.CharacterPart) *metadata.ExportedPart {
	mesh, err := assets.LoadAs[*assets.SkeletalMesh](e.ctx.Archive, part.SkeletalMesh)
	if err != nil {
		core.LogWarn("[%s] skipping part %s: %s", e.ctx.Batch.Short(), part.Path(), err.Error())
		return nil
	}

	exportedMesh := e.ExportMesh(mesh)
	if exportedMesh == nil {
		return nil
	}

	exported := &metadata.ExportedPart{
		ExportedMesh: *exportedMesh,
		Type:         part.CharacterPartType,
	}
	if exported.Type == "" {
		exported.Type = defaultPartType
	}

	for _, override := range part.MaterialOverrides {
		if m := e.OverrideMaterial(override.OverrideMaterial, override.MaterialOverrideIndex, override.MaterialToSwap); m != nil {
			exported.OverrideMaterials = append(exported.OverrideMaterials, *m)
		}
	}

	if part.AdditionalData != "" {
		exported.Meta = e.partMeta(part)
	}

	return exported
}

func (e *ExporterInstance) partMeta(part *assets.CharacterPart) metadata.PartMeta {
	data, err := assets.LoadAs[*assets.CustomCharacterData](e.ctx.Archive, part.AdditionalData)
	if err != nil {
		core.LogDebug("additional data of %s cannot be loaded: %s", part.Path(), err.Error())
		return nil
	}

	attach := part.AttachToSocket == nil || *part.AttachToSocket

	switch data.DataKind {
	case assets.CustomCharacterHeadData:
		meta := metadata.HeadMeta{MorphNames: make(map[string]string)}
		for _, hatType := range strings.Split(headMorphHatTypes, ",") {
			if names := data.MorphTargets[hatType]; len(names) > 0 {
				meta.MorphNames[hatType] = names[0]
			}
		}
		if swatch, err := assets.LoadAs[*assets.ColorSwatch](e.ctx.Archive, data.SkinColorSwatch); err == nil {
			for _, pair := range swatch.ColorPairs {
				if strings.EqualFold(pair.ColorName, skinColorPairName) {
					meta.SkinColor = pair.ColorValue
					break
				}
			}
		}
		return meta
	case assets.CustomCharacterHatData:
		return metadata.HatMeta{
			AttachToSocket: attach,
			Socket:         data.AttachSocketName,
			HatType:        strings.TrimPrefix(data.HatType, hatTypePrefix),
		}
	case assets.CustomCharacterCharmData:
		return metadata.AttachMeta{
			AttachToSocket: attach,
			Socket:         data.AttachSocketName,
		}
	default:
		return nil
	}
}

// ExportCharacter exports every part of a cosmetic that can be resolved.
func (e *ExporterInstance) ExportCharacter(character *assets.Character) []metadata.ExportedPart {
	var parts []metadata.ExportedPart
	for _, path := range character.Parts {
		part, err := assets.LoadAs[*assets.CharacterPart](e.ctx.Archive, path)
		if err != nil {
			core.LogWarn("[%s] skipping part %s of %s: %s", e.ctx.Batch.Short(), path, character.Path(), err.Error())
			continue
		}
		if exported := e.ExportPart(part); exported != nil {
			parts = append(parts, *exported)
		}
	}
	return parts
}

/**
 * @brief Returns the meshes a weapon definition is displayed with:
 * the main mesh override or pickup mesh, the offhand override, the
 * static pickup mesh when there is no skeletal one, and finally the
 * weapon meshes of the actor class default object.
 */
func (e *ExporterInstance) WeaponDefinitionMeshes(def *assets.WeaponDefinition) []assets.Object {
	var meshes []assets.Object
	add := func(path string) bool {
		if mesh := e.loadMesh(path); mesh != nil {
			meshes = append(meshes, mesh)
			return true
		}
		return false
	}

	if !add(def.WeaponMeshOverride) {
		add(def.PickupSkeletalMesh)
	}
	add(def.WeaponMeshOffhandOverride)

	if len(meshes) == 0 {
		add(def.PickupStaticMesh)
	}

	if len(meshes) == 0 {
		actor := e.classDefault(def.WeaponActorClass)
		if actor != nil {
			for _, name := range []string{weaponMeshComponent, offhandComponent} {
				component, err := assets.LoadAs[*assets.SkeletalMeshComponent](e.ctx.Archive, actor.Components[name])
				if err != nil {
					continue
				}
				add(component.SkeletalMesh)
			}
		}
	}

	return meshes
}

// ExportWeaponDefinition exports every mesh of a weapon definition.
func (e *ExporterInstance) ExportWeaponDefinition(def *assets.WeaponDefinition) []metadata.ExportedMesh {
	var exported []metadata.ExportedMesh
	for _, mesh := range e.WeaponDefinitionMeshes(def) {
		if m := e.ExportMesh(mesh); m != nil {
			exported = append(exported, *m)
		}
	}
	return exported
}

func (e *ExporterInstance) classDefault(classPath string) *assets.Actor {
	class, err := assets.LoadAs[*assets.ActorClass](e.ctx.Archive, classPath)
	if err != nil {
		return nil
	}
	actor, err := assets.LoadAs[*assets.Actor](e.ctx.Archive, class.DefaultObject)
	if err != nil {
		return nil
	}
	return actor
}

// TextureDataSuffixes returns the suffixes of the diffuse/normal and
// specular parameter names of the texture set in slot of a template.
// Slot 0 replaces the base textures and carries no suffix.
func TextureDataSuffixes(recordIndex, slot int) (texture string, specular string) {
	if slot == 0 {
		return "", ""
	}
	return fmt.Sprintf("_Texture_%d", recordIndex+1), fmt.Sprintf("_%d", recordIndex+1)
}

/**
 * @brief Exports the meshes of every template of a saved level and the
 * building texture sets applied to them. Texture sets are attached to
 * the first mesh exported so far.
 */
func (e *ExporterInstance) ExportLevelSaveRecord(record *assets.LevelSaveRecord) []metadata.ExportedMesh {
	var meshes []metadata.ExportedMesh

	for _, template := range record.TemplateRecords {
		actor := e.classDefault(template.Record.ActorClass)
		if actor == nil {
			core.LogDebug("template %d of %s has no actor", template.Index, record.Path())
			continue
		}

		// components only stand in for an actor without a mesh of its own
		if staticMesh := e.loadMesh(actor.StaticMesh); staticMesh != nil {
			if mesh := e.ExportMesh(staticMesh); mesh != nil {
				meshes = append(meshes, *mesh)
			}
		} else {
			meshes = append(meshes, e.exportComponents(actor)...)
		}

		if len(meshes) == 0 {
			continue
		}

		textureData := template.Record.ActorDataReferenceTable
		if actorData, ok := record.ActorData[template.Index]; ok && actorData.TextureData != nil {
			textureData = actorData.TextureData
		}

		target := &meshes[0]
		for slot, path := range textureData {
			if path == "" {
				continue
			}
			data, err := assets.LoadAs[*assets.BuildingTextureData](e.ctx.Archive, path)
			if err != nil {
				continue
			}

			textureSuffix, specularSuffix := TextureDataSuffixes(template.Index, slot)
			target.TextureData = append(target.TextureData, metadata.ExportedTextureData{
				Diffuse:  e.textureParameter(data.Diffuse, "Diffuse"+textureSuffix),
				Normal:   e.textureParameter(data.Normal, "Normals"+textureSuffix),
				Specular: e.textureParameter(data.Specular, "SpecularMasks"+specularSuffix),
			})
		}
	}

	return meshes
}

func (e *ExporterInstance) exportComponents(actor *assets.Actor) []metadata.ExportedMesh {
	objects, err := e.ctx.Archive.LoadPackage(assets.SubstringBeforeLast(actor.Path(), "."))
	if err != nil {
		return nil
	}

	var meshes []metadata.ExportedMesh
	for _, obj := range objects {
		var meshPath string
		switch component := obj.(type) {
		case *assets.StaticMeshComponent:
			meshPath = component.StaticMesh
		case *assets.SkeletalMeshComponent:
			meshPath = component.SkeletalMesh
		default:
			continue
		}
		if mesh := e.exportMeshAt(meshPath); mesh != nil {
			meshes = append(meshes, *mesh)
		}
	}
	return meshes
}

func (e *ExporterInstance) textureParameter(path string, name string) *metadata.TextureParameter {
	texture, err := assets.LoadAs[*assets.Texture](e.ctx.Archive, path)
	if err != nil {
		return nil
	}
	return &metadata.TextureParameter{
		Name:                name,
		Value:               e.ExportAsset(texture, false),
		SRGB:                texture.SRGB,
		CompressionSettings: texture.CompressionSettings,
	}
}
