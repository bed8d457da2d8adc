package metadata

import "github.com/spaghettifunk/anima/engine/math"

/**
 * @brief An exported skeletal or static mesh. Materials follow the
 * section order of the source mesh's first LOD.
 */
type ExportedMesh struct {
	Path              string                     `json:"path"`
	NumLods           int                        `json:"numLods"`
	Materials         []ExportedMaterial         `json:"materials"`
	OverrideMaterials []ExportedOverrideMaterial `json:"overrideMaterials"`
	TextureData       []ExportedTextureData      `json:"textureData"`
}

/** @brief An exported character part: a mesh tagged with its part type and metadata. */
type ExportedPart struct {
	ExportedMesh
	Type string   `json:"type"`
	Meta PartMeta `json:"meta,omitempty"`
}

/** @brief Exactly one of HeadMeta, HatMeta or AttachMeta. */
type PartMeta interface {
	partMeta()
}

type HeadMeta struct {
	/** @brief First morph target per hat type. */
	MorphNames map[string]string `json:"morphNames"`
	SkinColor  math.LinearColor  `json:"skinColor"`
}

type HatMeta struct {
	AttachToSocket bool   `json:"attachToSocket"`
	Socket         string `json:"socket,omitempty"`
	HatType        string `json:"hatType,omitempty"`
}

type AttachMeta struct {
	AttachToSocket bool   `json:"attachToSocket"`
	Socket         string `json:"socket,omitempty"`
}

func (HeadMeta) partMeta()   {}
func (HatMeta) partMeta()    {}
func (AttachMeta) partMeta() {}
