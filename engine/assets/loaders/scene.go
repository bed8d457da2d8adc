package loaders

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/metadata"
)

/**
 * @brief A scene file: the objects of a stand-in archive and the assets
 * the user selected from it.
 */
type SceneFile struct {
	Objects    []ObjectSpec    `yaml:"objects"`
	Selections []SelectionSpec `yaml:"selections"`
}

type SelectionSpec struct {
	Asset  string                     `yaml:"asset"`
	Type   metadata.AssetType         `yaml:"type"`
	Name   string                     `yaml:"name"`
	Styles []metadata.StyleDescriptor `yaml:"styles"`
}

type LODSpec struct {
	Sections []string `yaml:"sections"`
}

type NamedTexture struct {
	Name    string `yaml:"name"`
	Texture string `yaml:"texture"`
}

type NamedScalar struct {
	Name  string  `yaml:"name"`
	Value float32 `yaml:"value"`
}

type NamedVector struct {
	Name  string            `yaml:"name"`
	Value *math.LinearColor `yaml:"value"`
}

type NamedSwitch struct {
	Name  string `yaml:"name"`
	Value bool   `yaml:"value"`
}

type NamedMask struct {
	Name string `yaml:"name"`
	R    bool   `yaml:"r"`
	G    bool   `yaml:"g"`
	B    bool   `yaml:"b"`
	A    bool   `yaml:"a"`
}

type OverrideSpec struct {
	Material       string `yaml:"material"`
	Index          int    `yaml:"index"`
	MaterialToSwap string `yaml:"material_to_swap"`
}

type ColorPairSpec struct {
	Name  string           `yaml:"name"`
	Value math.LinearColor `yaml:"value"`
}

type TemplateSpec struct {
	Index          int      `yaml:"index"`
	ActorClass     string   `yaml:"actor_class"`
	ReferenceTable []string `yaml:"reference_table"`
	// A nil list means the actor record has no TextureData property.
	TextureData []string `yaml:"texture_data"`
}

/** @brief One archive object. Only the fields of its kind are read. */
type ObjectSpec struct {
	Kind  string `yaml:"kind"`
	Path  string `yaml:"path"`
	Name  string `yaml:"name"`
	Owner string `yaml:"owner"`

	// meshes
	LODs    []LODSpec `yaml:"lods"`
	Corrupt bool      `yaml:"corrupt"`

	// textures
	SRGB        bool   `yaml:"srgb"`
	Compression string `yaml:"compression"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Color       string `yaml:"color"`
	Source      string `yaml:"source"`

	// material instances
	Parent   string         `yaml:"parent"`
	Textures []NamedTexture `yaml:"textures"`
	Scalars  []NamedScalar  `yaml:"scalars"`
	Vectors  []NamedVector  `yaml:"vectors"`
	Switches []NamedSwitch  `yaml:"switches"`
	Masks    []NamedMask    `yaml:"masks"`

	// animations
	Skeleton string `yaml:"skeleton"`

	// characters and parts
	Parts          []string       `yaml:"parts"`
	SkeletalMesh   string         `yaml:"skeletal_mesh"`
	PartType       string         `yaml:"part_type"`
	Overrides      []OverrideSpec `yaml:"overrides"`
	AttachToSocket *bool          `yaml:"attach_to_socket"`
	AdditionalData string         `yaml:"additional_data"`

	// custom character data and swatches
	DataKind     string              `yaml:"data_kind"`
	MorphTargets map[string][]string `yaml:"morph_targets"`
	SkinSwatch   string              `yaml:"skin_swatch"`
	Socket       string              `yaml:"socket"`
	HatType      string              `yaml:"hat_type"`
	ColorPairs   []ColorPairSpec     `yaml:"color_pairs"`

	// weapons and actors
	WeaponMeshOverride        string            `yaml:"weapon_mesh_override"`
	PickupSkeletalMesh        string            `yaml:"pickup_skeletal_mesh"`
	WeaponMeshOffhandOverride string            `yaml:"weapon_mesh_offhand_override"`
	PickupStaticMesh          string            `yaml:"pickup_static_mesh"`
	WeaponActorClass          string            `yaml:"weapon_actor_class"`
	DefaultObject             string            `yaml:"default_object"`
	StaticMesh                string            `yaml:"static_mesh"`
	Components                map[string]string `yaml:"components"`

	// building texture data
	Diffuse  string `yaml:"diffuse"`
	Normal   string `yaml:"normal"`
	Specular string `yaml:"specular"`

	// level save records
	Templates []TemplateSpec `yaml:"templates"`
}

/** @brief The result of loading a scene file. */
type Scene struct {
	Archive    *assets.MemoryArchive
	Selections []SelectionSpec
}

type SceneLoader struct {
	textures TextureLoader
}

func NewSceneLoader() *SceneLoader {
	return &SceneLoader{}
}

// Load reads a YAML scene file. Texture sources are resolved relative to the file.
func (sl *SceneLoader) Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return sl.Parse(data, filepath.Dir(path))
}

// Parse decodes a YAML scene. baseDir anchors relative texture sources.
func (sl *SceneLoader) Parse(data []byte, baseDir string) (*Scene, error) {
	var file SceneFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}

	archive := assets.NewMemoryArchive()
	for i, spec := range file.Objects {
		obj, err := sl.build(spec, baseDir)
		if err != nil {
			return nil, fmt.Errorf("scene object %d (%s): %w", i, spec.Path, err)
		}
		archive.Add(obj)
	}
	for _, sel := range file.Selections {
		if _, err := archive.Load(sel.Asset); err != nil {
			core.LogWarn("selection %q references a missing object", sel.Asset)
		}
	}

	core.LogDebug("scene loaded with %d objects and %d selections", archive.Len(), len(file.Selections))
	return &Scene{Archive: archive, Selections: file.Selections}, nil
}

func (sl *SceneLoader) build(spec ObjectSpec, baseDir string) (assets.Object, error) {
	if spec.Path == "" {
		return nil, fmt.Errorf("object path is required")
	}
	kind, ok := assets.ParseKind(spec.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown object kind %q", spec.Kind)
	}
	header := assets.Header{ObjectPath: spec.Path, ObjectName: spec.Name, OwnerPackage: spec.Owner}

	switch kind {
	case assets.KindSkeletalMesh:
		return &assets.SkeletalMesh{Header: header, LODs: buildLODs(spec.LODs), Corrupt: spec.Corrupt}, nil
	case assets.KindStaticMesh:
		return &assets.StaticMesh{Header: header, LODs: buildLODs(spec.LODs), Corrupt: spec.Corrupt}, nil
	case assets.KindTexture:
		return sl.buildTexture(header, spec, baseDir)
	case assets.KindMaterial:
		return &assets.Material{Header: header}, nil
	case assets.KindMaterialInstance:
		return buildMaterialInstance(header, spec), nil
	case assets.KindAnimation:
		return &assets.Animation{Header: header, Skeleton: spec.Skeleton}, nil
	case assets.KindCharacter:
		return &assets.Character{Header: header, Parts: spec.Parts}, nil
	case assets.KindCharacterPart:
		part := &assets.CharacterPart{
			Header:            header,
			SkeletalMesh:      spec.SkeletalMesh,
			CharacterPartType: spec.PartType,
			AttachToSocket:    spec.AttachToSocket,
			AdditionalData:    spec.AdditionalData,
		}
		for _, o := range spec.Overrides {
			part.MaterialOverrides = append(part.MaterialOverrides, assets.MaterialOverride{
				OverrideMaterial:      o.Material,
				MaterialOverrideIndex: o.Index,
				MaterialToSwap:        o.MaterialToSwap,
			})
		}
		return part, nil
	case assets.KindCustomCharacterData:
		return &assets.CustomCharacterData{
			Header:           header,
			DataKind:         assets.CustomDataKind(spec.DataKind),
			MorphTargets:     spec.MorphTargets,
			SkinColorSwatch:  spec.SkinSwatch,
			AttachSocketName: spec.Socket,
			HatType:          spec.HatType,
		}, nil
	case assets.KindColorSwatch:
		swatch := &assets.ColorSwatch{Header: header}
		for _, p := range spec.ColorPairs {
			swatch.ColorPairs = append(swatch.ColorPairs, assets.ColorPair{ColorName: p.Name, ColorValue: p.Value})
		}
		return swatch, nil
	case assets.KindWeaponDefinition:
		return &assets.WeaponDefinition{
			Header:                    header,
			WeaponMeshOverride:        spec.WeaponMeshOverride,
			PickupSkeletalMesh:        spec.PickupSkeletalMesh,
			WeaponMeshOffhandOverride: spec.WeaponMeshOffhandOverride,
			PickupStaticMesh:          spec.PickupStaticMesh,
			WeaponActorClass:          spec.WeaponActorClass,
		}, nil
	case assets.KindActorClass:
		return &assets.ActorClass{Header: header, DefaultObject: spec.DefaultObject}, nil
	case assets.KindActor:
		return &assets.Actor{Header: header, StaticMesh: spec.StaticMesh, Components: spec.Components}, nil
	case assets.KindStaticMeshComponent:
		return &assets.StaticMeshComponent{Header: header, StaticMesh: spec.StaticMesh}, nil
	case assets.KindSkeletalMeshComponent:
		return &assets.SkeletalMeshComponent{Header: header, SkeletalMesh: spec.SkeletalMesh}, nil
	case assets.KindBuildingTextureData:
		return &assets.BuildingTextureData{Header: header, Diffuse: spec.Diffuse, Normal: spec.Normal, Specular: spec.Specular}, nil
	case assets.KindLevelSaveRecord:
		record := &assets.LevelSaveRecord{Header: header, ActorData: make(map[int]assets.ActorRecord)}
		for _, t := range spec.Templates {
			record.TemplateRecords = append(record.TemplateRecords, assets.IndexedTemplate{
				Index: t.Index,
				Record: assets.TemplateRecord{
					ActorClass:              t.ActorClass,
					ActorDataReferenceTable: t.ReferenceTable,
				},
			})
			record.ActorData[t.Index] = assets.ActorRecord{TextureData: t.TextureData}
		}
		return record, nil
	default:
		return nil, fmt.Errorf("unhandled object kind %s", kind)
	}
}

func (sl *SceneLoader) buildTexture(header assets.Header, spec ObjectSpec, baseDir string) (*assets.Texture, error) {
	texture := &assets.Texture{
		Header:              header,
		SRGB:                spec.SRGB,
		CompressionSettings: math.FirstNonEmpty(spec.Compression, "TC_Default"),
	}

	var err error
	switch {
	case spec.Source != "":
		source := spec.Source
		if !filepath.IsAbs(source) {
			source = filepath.Join(baseDir, source)
		}
		texture.Image, err = sl.textures.Load(source)
	default:
		texture.Image, err = sl.textures.Solid(math.FirstNonEmpty(spec.Width, 1), math.FirstNonEmpty(spec.Height, 1), spec.Color)
	}
	if err != nil {
		return nil, err
	}
	return texture, nil
}

func buildLODs(specs []LODSpec) []assets.MeshLOD {
	lods := make([]assets.MeshLOD, 0, len(specs))
	for _, l := range specs {
		lod := assets.MeshLOD{}
		for _, material := range l.Sections {
			lod.Sections = append(lod.Sections, assets.MeshSection{Material: material})
		}
		lods = append(lods, lod)
	}
	return lods
}

func buildMaterialInstance(header assets.Header, spec ObjectSpec) *assets.MaterialInstance {
	mi := &assets.MaterialInstance{Header: header, Parent: spec.Parent}
	for _, t := range spec.Textures {
		mi.Textures = append(mi.Textures, assets.TextureParameterValue{Name: t.Name, Texture: t.Texture})
	}
	for _, s := range spec.Scalars {
		mi.Scalars = append(mi.Scalars, assets.ScalarParameterValue{Name: s.Name, Value: s.Value})
	}
	for _, v := range spec.Vectors {
		mi.Vectors = append(mi.Vectors, assets.VectorParameterValue{Name: v.Name, Value: v.Value})
	}
	for _, s := range spec.Switches {
		mi.Switches = append(mi.Switches, assets.StaticSwitchParameter{Name: s.Name, Value: s.Value})
	}
	for _, m := range spec.Masks {
		mi.ComponentMasks = append(mi.ComponentMasks, assets.StaticComponentMaskParameter{Name: m.Name, R: m.R, G: m.G, B: m.B, A: m.A})
	}
	return mi
}
