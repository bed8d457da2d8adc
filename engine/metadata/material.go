package metadata

import "github.com/spaghettifunk/anima/engine/math"

/** @brief Content hash of a material's identity path. */
type MaterialHash uint64

type TextureParameter struct {
	Name string `json:"name"`
	/** @brief Export path of the texture, or its archive path for fire-and-forget exports. */
	Value               string `json:"value"`
	SRGB                bool   `json:"sRGB"`
	CompressionSettings string `json:"compressionSettings"`
}

type ScalarParameter struct {
	Name  string  `json:"name"`
	Value float32 `json:"value"`
}

type VectorParameter struct {
	Name  string           `json:"name"`
	Value math.LinearColor `json:"value"`
}

type SwitchParameter struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

type ComponentMaskParameter struct {
	Name  string           `json:"name"`
	Value math.LinearColor `json:"value"`
}

/**
 * @brief A resolved material. Identity is (Path, Hash). Parameter
 * buckets hold unique names; the first definition met walking from the
 * instance towards its root wins. Buckets are never mutated once the
 * material is cached, copies share them.
 */
type ExportedMaterial struct {
	Path           string                   `json:"path"`
	Name           string                   `json:"name"`
	ParentName     string                   `json:"parentName,omitempty"`
	Slot           int                      `json:"slot"`
	Hash           MaterialHash             `json:"hash"`
	Textures       []TextureParameter       `json:"textures"`
	Scalars        []ScalarParameter        `json:"scalars"`
	Vectors        []VectorParameter        `json:"vectors"`
	Switches       []SwitchParameter        `json:"switches"`
	ComponentMasks []ComponentMaskParameter `json:"componentMasks"`
}

// WithSlot returns a copy bound to another section slot. Buckets are shared.
func (m ExportedMaterial) WithSlot(slot int) ExportedMaterial {
	m.Slot = slot
	return m
}

/** @brief A material that replaces MaterialNameToSwap on a shared mesh at runtime. */
type ExportedOverrideMaterial struct {
	ExportedMaterial
	MaterialNameToSwap string `json:"materialNameToSwap"`
}

/** @brief One swappable texture set of a building style asset. */
type ExportedTextureData struct {
	Diffuse  *TextureParameter `json:"diffuse,omitempty"`
	Normal   *TextureParameter `json:"normal,omitempty"`
	Specular *TextureParameter `json:"specular,omitempty"`
}
