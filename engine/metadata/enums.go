package metadata

import (
	"fmt"
	"strings"
)

/** @brief The kind of artifact an asset type is exported as. */
type ExportType int

const (
	ExportTypeMesh ExportType = iota
	ExportTypeAnimation
	ExportTypeTexture
)

var exportTypeNames = []string{"Mesh", "Animation", "Texture"}

func (t ExportType) String() string { return enumName(exportTypeNames, int(t)) }

func (t ExportType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ExportType) UnmarshalText(b []byte) error {
	return enumParse(exportTypeNames, "export type", string(b), (*int)(t))
}

/** @brief Where a batch goes: one of the two receivers, or only to disk. */
type TargetType int

const (
	TargetTypeBlender TargetType = iota
	TargetTypeUnreal
	TargetTypeFolder
)

var targetTypeNames = []string{"Blender", "Unreal", "Folder"}

func (t TargetType) String() string { return enumName(targetTypeNames, int(t)) }

// Description is the human readable receiver name used in notifications.
func (t TargetType) Description() string {
	switch t {
	case TargetTypeBlender:
		return "Blender"
	case TargetTypeUnreal:
		return "Unreal Engine"
	case TargetTypeFolder:
		return "Folder"
	default:
		return t.String()
	}
}

// IsReceiver reports whether the target hands a manifest to a network receiver.
func (t TargetType) IsReceiver() bool {
	return t == TargetTypeBlender || t == TargetTypeUnreal
}

func (t TargetType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TargetType) UnmarshalText(b []byte) error {
	return enumParse(targetTypeNames, "target type", string(b), (*int)(t))
}

// ParseTargetType parses a target name, case insensitive.
func ParseTargetType(s string) (TargetType, error) {
	var t TargetType
	err := t.UnmarshalText([]byte(s))
	return t, err
}

/** @brief Output container for skeletal and static meshes. */
type MeshFormat int

const (
	// .uemodel
	MeshFormatUEFormat MeshFormat = iota
	// .psk / .pskx
	MeshFormatActorX
)

var meshFormatNames = []string{"UEFormat", "ActorX"}

func (f MeshFormat) String() string { return enumName(meshFormatNames, int(f)) }

func (f MeshFormat) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *MeshFormat) UnmarshalText(b []byte) error {
	return enumParse(meshFormatNames, "mesh format", string(b), (*int)(f))
}

/** @brief Output container for animation sequences. */
type AnimFormat int

const (
	// .ueanim
	AnimFormatUEFormat AnimFormat = iota
	// .psa
	AnimFormatActorX
)

var animFormatNames = []string{"UEFormat", "ActorX"}

func (f AnimFormat) String() string { return enumName(animFormatNames, int(f)) }

func (f AnimFormat) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *AnimFormat) UnmarshalText(b []byte) error {
	return enumParse(animFormatNames, "animation format", string(b), (*int)(f))
}

/** @brief Output encoding for textures. */
type ImageFormat int

const (
	ImageFormatPNG ImageFormat = iota
	ImageFormatTGA
)

var imageFormatNames = []string{"PNG", "TGA"}

func (f ImageFormat) String() string { return enumName(imageFormatNames, int(f)) }

func (f ImageFormat) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *ImageFormat) UnmarshalText(b []byte) error {
	return enumParse(imageFormatNames, "image format", string(b), (*int)(f))
}

func enumName(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("Unknown(%d)", v)
	}
	return names[v]
}

func enumParse(names []string, what, s string, out *int) error {
	s = strings.TrimSpace(s)
	for i, n := range names {
		if strings.EqualFold(n, s) {
			*out = i
			return nil
		}
	}
	return fmt.Errorf("unknown %s %q", what, s)
}
