package assets

import (
	"image"
	"strings"

	"github.com/spaghettifunk/anima/engine/math"
)

/** @brief The closed set of object kinds the pipeline understands. */
type Kind int

const (
	KindSkeletalMesh Kind = iota
	KindStaticMesh
	KindTexture
	KindMaterial
	KindMaterialInstance
	KindAnimation
	KindCharacter
	KindCharacterPart
	KindCustomCharacterData
	KindColorSwatch
	KindWeaponDefinition
	KindActorClass
	KindActor
	KindStaticMeshComponent
	KindSkeletalMeshComponent
	KindBuildingTextureData
	KindLevelSaveRecord
)

var kindNames = []string{
	"SkeletalMesh",
	"StaticMesh",
	"Texture",
	"Material",
	"MaterialInstance",
	"Animation",
	"Character",
	"CharacterPart",
	"CustomCharacterData",
	"ColorSwatch",
	"WeaponDefinition",
	"ActorClass",
	"Actor",
	"StaticMeshComponent",
	"SkeletalMeshComponent",
	"BuildingTextureData",
	"LevelSaveRecord",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// ParseKind returns the kind with the given name, case insensitive.
func ParseKind(s string) (Kind, bool) {
	for i, n := range kindNames {
		if strings.EqualFold(n, s) {
			return Kind(i), true
		}
	}
	return 0, false
}

/**
 * @brief An immutable handle to an object of the source archive. The
 * set of implementations is closed: new kinds extend Kind and every
 * exhaustive switch over it.
 */
type Object interface {
	// Path is the stable identity of the object, "/Package/Name.Object".
	Path() string
	Name() string
	// Owner is the path of the package the object lives in.
	Owner() string
	Kind() Kind

	object()
}

// Header carries the identity shared by every object kind.
type Header struct {
	ObjectPath   string
	ObjectName   string
	OwnerPackage string
}

func (h Header) Path() string { return h.ObjectPath }

func (h Header) Name() string {
	if h.ObjectName != "" {
		return h.ObjectName
	}
	return SubstringAfterLast(h.ObjectPath, ".")
}

func (h Header) Owner() string {
	if h.OwnerPackage != "" {
		return h.OwnerPackage
	}
	return SubstringBeforeLast(h.ObjectPath, ".")
}

func (Header) object() {}

/** @brief A draw section of one LOD, bound to a material by path. */
type MeshSection struct {
	Material string
}

type MeshLOD struct {
	Sections []MeshSection
}

type SkeletalMesh struct {
	Header
	LODs []MeshLOD
	// Corrupt meshes fail conversion to the intermediate form.
	Corrupt bool
}

type StaticMesh struct {
	Header
	LODs    []MeshLOD
	Corrupt bool
}

type Texture struct {
	Header
	SRGB                bool
	CompressionSettings string
	Image               image.Image
}

/** @brief A root material definition; terminates every parent chain. */
type Material struct {
	Header
}

type TextureParameterValue struct {
	Name    string
	Texture string
}

type ScalarParameterValue struct {
	Name  string
	Value float32
}

type VectorParameterValue struct {
	Name  string
	Value *math.LinearColor
}

type StaticSwitchParameter struct {
	Name  string
	Value bool
}

type StaticComponentMaskParameter struct {
	Name       string
	R, G, B, A bool
}

/** @brief A material that overrides named parameters of exactly one parent. */
type MaterialInstance struct {
	Header
	Parent         string
	Textures       []TextureParameterValue
	Scalars        []ScalarParameterValue
	Vectors        []VectorParameterValue
	Switches       []StaticSwitchParameter
	ComponentMasks []StaticComponentMaskParameter
}

type Animation struct {
	Header
	Skeleton string
}

/** @brief A cosmetic made of character parts, e.g. an outfit. */
type Character struct {
	Header
	Parts []string
}

type MaterialOverride struct {
	OverrideMaterial      string
	MaterialOverrideIndex int
	MaterialToSwap        string
}

type CharacterPart struct {
	Header
	SkeletalMesh      string
	CharacterPartType string
	MaterialOverrides []MaterialOverride
	// nil means the default, true.
	AttachToSocket *bool
	AdditionalData string
}

/** @brief The declared kind of a part's additional data. */
type CustomDataKind string

const (
	CustomCharacterHeadData  CustomDataKind = "CustomCharacterHeadData"
	CustomCharacterHatData   CustomDataKind = "CustomCharacterHatData"
	CustomCharacterCharmData CustomDataKind = "CustomCharacterCharmData"
)

type CustomCharacterData struct {
	Header
	DataKind CustomDataKind
	// Keyed by hat type, e.g. "Cap" for the CapMorphTargets property.
	MorphTargets     map[string][]string
	SkinColorSwatch  string
	AttachSocketName string
	HatType          string
}

type ColorPair struct {
	ColorName  string
	ColorValue math.LinearColor
}

type ColorSwatch struct {
	Header
	ColorPairs []ColorPair
}

type WeaponDefinition struct {
	Header
	WeaponMeshOverride        string
	PickupSkeletalMesh        string
	WeaponMeshOffhandOverride string
	PickupStaticMesh          string
	WeaponActorClass          string
}

/** @brief A blueprint class; its default object carries the placed actor's properties. */
type ActorClass struct {
	Header
	DefaultObject string
}

type Actor struct {
	Header
	StaticMesh string
	// Named component references, e.g. "WeaponMesh" or "LeftHandWeaponMesh".
	Components map[string]string
}

type StaticMeshComponent struct {
	Header
	StaticMesh string
}

type SkeletalMeshComponent struct {
	Header
	SkeletalMesh string
}

type BuildingTextureData struct {
	Header
	Diffuse  string
	Normal   string
	Specular string
}

type TemplateRecord struct {
	ActorClass              string
	ActorDataReferenceTable []string
}

type ActorRecord struct {
	// nil when the record carries no TextureData property.
	TextureData []string
}

type IndexedTemplate struct {
	Index  int
	Record TemplateRecord
}

type LevelSaveRecord struct {
	Header
	TemplateRecords []IndexedTemplate
	ActorData       map[int]ActorRecord
}

func (*SkeletalMesh) Kind() Kind          { return KindSkeletalMesh }
func (*StaticMesh) Kind() Kind            { return KindStaticMesh }
func (*Texture) Kind() Kind               { return KindTexture }
func (*Material) Kind() Kind              { return KindMaterial }
func (*MaterialInstance) Kind() Kind      { return KindMaterialInstance }
func (*Animation) Kind() Kind             { return KindAnimation }
func (*Character) Kind() Kind             { return KindCharacter }
func (*CharacterPart) Kind() Kind         { return KindCharacterPart }
func (*CustomCharacterData) Kind() Kind   { return KindCustomCharacterData }
func (*ColorSwatch) Kind() Kind           { return KindColorSwatch }
func (*WeaponDefinition) Kind() Kind      { return KindWeaponDefinition }
func (*ActorClass) Kind() Kind            { return KindActorClass }
func (*Actor) Kind() Kind                 { return KindActor }
func (*StaticMeshComponent) Kind() Kind   { return KindStaticMeshComponent }
func (*SkeletalMeshComponent) Kind() Kind { return KindSkeletalMeshComponent }
func (*BuildingTextureData) Kind() Kind   { return KindBuildingTextureData }
func (*LevelSaveRecord) Kind() Kind       { return KindLevelSaveRecord }

// IsMaterialInterface reports whether the object can be bound to a mesh section.
func IsMaterialInterface(obj Object) bool {
	switch obj.(type) {
	case *Material, *MaterialInstance:
		return true
	default:
		return false
	}
}

// SubstringBeforeLast returns s up to the last sep, or s when sep is absent.
func SubstringBeforeLast(s, sep string) string {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i]
	}
	return s
}

// SubstringAfterLast returns s after the last sep, or s when sep is absent.
func SubstringAfterLast(s, sep string) string {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[i+len(sep):]
	}
	return s
}
