package metadata

/** @brief The user facing category of a selected asset. */
type AssetType int

const (
	AssetTypeNone AssetType = iota

	// cosmetic
	AssetTypeOutfit
	AssetTypeLegoOutfit
	AssetTypeBackpack
	AssetTypePickaxe
	AssetTypeGlider
	AssetTypePet
	AssetTypeToy
	AssetTypeEmoticon
	AssetTypeSpray
	AssetTypeBanner
	AssetTypeLoadingScreen
	AssetTypeEmote

	// creative
	AssetTypeProp
	AssetTypePrefab

	// gameplay
	AssetTypeItem
	AssetTypeResource
	AssetTypeTrap
	AssetTypeVehicle
	AssetTypeWildlife

	// festival
	AssetTypeFestivalGuitar
	AssetTypeFestivalBass
	AssetTypeFestivalKeytar
	AssetTypeFestivalDrum
	AssetTypeFestivalMic

	// generic
	AssetTypeMesh
	AssetTypeWorld
	AssetTypeTexture
	AssetTypeAnimation
)

type assetTypeInfo struct {
	name       string
	exportType ExportType
}

var assetTypes = []assetTypeInfo{
	AssetTypeNone:           {"None", -1},
	AssetTypeOutfit:         {"Outfit", ExportTypeMesh},
	AssetTypeLegoOutfit:     {"LegoOutfit", ExportTypeMesh},
	AssetTypeBackpack:       {"Backpack", ExportTypeMesh},
	AssetTypePickaxe:        {"Pickaxe", ExportTypeMesh},
	AssetTypeGlider:         {"Glider", ExportTypeMesh},
	AssetTypePet:            {"Pet", ExportTypeMesh},
	AssetTypeToy:            {"Toy", ExportTypeMesh},
	AssetTypeEmoticon:       {"Emoticon", ExportTypeTexture},
	AssetTypeSpray:          {"Spray", ExportTypeTexture},
	AssetTypeBanner:         {"Banner", ExportTypeTexture},
	AssetTypeLoadingScreen:  {"LoadingScreen", ExportTypeTexture},
	AssetTypeEmote:          {"Emote", ExportTypeAnimation},
	AssetTypeProp:           {"Prop", ExportTypeMesh},
	AssetTypePrefab:         {"Prefab", ExportTypeMesh},
	AssetTypeItem:           {"Item", ExportTypeMesh},
	AssetTypeResource:       {"Resource", ExportTypeMesh},
	AssetTypeTrap:           {"Trap", ExportTypeMesh},
	AssetTypeVehicle:        {"Vehicle", ExportTypeMesh},
	AssetTypeWildlife:       {"Wildlife", ExportTypeMesh},
	AssetTypeFestivalGuitar: {"FestivalGuitar", ExportTypeMesh},
	AssetTypeFestivalBass:   {"FestivalBass", ExportTypeMesh},
	AssetTypeFestivalKeytar: {"FestivalKeytar", ExportTypeMesh},
	AssetTypeFestivalDrum:   {"FestivalDrum", ExportTypeMesh},
	AssetTypeFestivalMic:    {"FestivalMic", ExportTypeMesh},
	AssetTypeMesh:           {"Mesh", ExportTypeMesh},
	AssetTypeWorld:          {"World", ExportTypeMesh},
	AssetTypeTexture:        {"Texture", ExportTypeTexture},
	AssetTypeAnimation:      {"Animation", ExportTypeAnimation},
}

func (t AssetType) String() string {
	if t < 0 || int(t) >= len(assetTypes) {
		return enumName(nil, int(t))
	}
	return assetTypes[t].name
}

// ExportType returns the artifact kind the asset type is exported as.
// ok is false for AssetTypeNone and out of range values.
func (t AssetType) ExportType() (ExportType, bool) {
	if t <= AssetTypeNone || int(t) >= len(assetTypes) {
		return 0, false
	}
	return assetTypes[t].exportType, true
}

func (t AssetType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *AssetType) UnmarshalText(b []byte) error {
	names := make([]string, len(assetTypes))
	for i, info := range assetTypes {
		names[i] = info.name
	}
	return enumParse(names, "asset type", string(b), (*int)(t))
}
