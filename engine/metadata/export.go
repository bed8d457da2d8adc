package metadata

/** @brief A material swap carried by a style. */
type StyleMaterialOverride struct {
	OverrideMaterial      string `json:"overrideMaterial" yaml:"override_material"`
	MaterialOverrideIndex int    `json:"materialOverrideIndex" yaml:"index"`
	MaterialToSwap        string `json:"materialToSwap" yaml:"material_to_swap"`
}

/**
 * @brief A style (variant) selected by the user for an asset. Styles
 * swap materials on the base meshes or add extra character parts.
 */
type StyleDescriptor struct {
	Name      string                  `json:"name" yaml:"name"`
	Materials []StyleMaterialOverride `json:"materials,omitempty" yaml:"materials"`
	Parts     []string                `json:"parts,omitempty" yaml:"parts"`
}

/** @brief Lifecycle of an ExportRecord. */
type RecordState int

const (
	RecordStateCreated RecordState = iota
	RecordStateExporting
	RecordStateComplete
)

var recordStateNames = []string{"Created", "Exporting", "Complete"}

func (s RecordState) String() string { return enumName(recordStateNames, int(s)) }

/**
 * @brief The logical export of one selected asset. PrimitiveType tags
 * the variant: Mesh records fill Meshes, Parts and the style fields,
 * Texture records fill Textures and Animation records fill Animations.
 */
type ExportRecord struct {
	Name          string            `json:"name"`
	Path          string            `json:"path"`
	Asset         string            `json:"asset"`
	Styles        []StyleDescriptor `json:"styles"`
	Type          AssetType         `json:"type"`
	PrimitiveType ExportType        `json:"primitiveType"`
	ExportType    TargetType        `json:"exportType"`

	Meshes         []ExportedMesh             `json:"meshes,omitempty"`
	Parts          []ExportedPart             `json:"parts,omitempty"`
	StyleMaterials []ExportedOverrideMaterial `json:"styleMaterials,omitempty"`
	StyleParts     []ExportedPart             `json:"styleParts,omitempty"`
	Textures       []string                   `json:"textures,omitempty"`
	Animations     []string                   `json:"animations,omitempty"`
}

/**
 * @brief The document handed to a receiver. It must not reference the
 * source archive: every path is either an exported file or a path the
 * receiver resolves against AssetsFolder.
 */
type ExportManifest struct {
	AssetsFolder string         `json:"assetsFolder"`
	Options      ExportOptions  `json:"options"`
	Data         []ExportRecord `json:"data"`
}
