package metadata

/**
 * @brief Per target export configuration. Read only for the pipeline; a
 * copy is embedded verbatim in every manifest sent to a receiver.
 */
type ExportOptions struct {
	/** @brief Container used for skeletal and static meshes. */
	MeshFormat MeshFormat `json:"meshFormat" toml:"mesh_format"`
	/** @brief Container used for animation sequences. */
	AnimFormat AnimFormat `json:"animFormat" toml:"anim_format"`
	/** @brief Encoding used for textures. */
	ImageFormat ImageFormat `json:"imageFormat" toml:"image_format"`
	/** @brief When false no material is resolved and meshes are exported materialless. */
	ExportMaterials bool `json:"exportMaterials" toml:"export_materials"`
	/** @brief Highest level of detail the receiver should import, 0 to 4. */
	LevelOfDetail int `json:"levelOfDetail" toml:"level_of_detail"`
	/** @brief Uniform scale applied by the receiver on import. */
	ScaleFactor float32 `json:"scaleFactor" toml:"scale_factor"`
}

// DefaultExportOptions are the options used when a target has no configuration.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		MeshFormat:      MeshFormatUEFormat,
		AnimFormat:      AnimFormatUEFormat,
		ImageFormat:     ImageFormatPNG,
		ExportMaterials: true,
		LevelOfDetail:   0,
		ScaleFactor:     1.0,
	}
}

// MaxLevelOfDetail is the highest LOD index a receiver understands.
const MaxLevelOfDetail = 4
