package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTargetType(t *testing.T) {
	target, err := ParseTargetType("unreal")
	require.NoError(t, err)
	require.Equal(t, TargetTypeUnreal, target)
	require.Equal(t, "Unreal Engine", target.Description())
	require.True(t, target.IsReceiver())

	require.False(t, TargetTypeFolder.IsReceiver())
	require.Equal(t, "Blender", TargetTypeBlender.Description())

	_, err = ParseTargetType("maya")
	require.Error(t, err)

	require.Equal(t, "Unknown(9)", TargetType(9).String())
}

func TestEnumText(t *testing.T) {
	b, err := MeshFormatActorX.MarshalText()
	require.NoError(t, err)

	var f MeshFormat
	require.NoError(t, f.UnmarshalText(b))
	require.Equal(t, MeshFormatActorX, f)

	var e ExportType
	require.NoError(t, e.UnmarshalText([]byte("texture")))
	require.Equal(t, ExportTypeTexture, e)
	require.Error(t, e.UnmarshalText([]byte("sound")))
}

func TestAssetTypeExportType(t *testing.T) {
	cases := []struct {
		asset AssetType
		want  ExportType
	}{
		{AssetTypeOutfit, ExportTypeMesh},
		{AssetTypeWorld, ExportTypeMesh},
		{AssetTypeSpray, ExportTypeTexture},
		{AssetTypeTexture, ExportTypeTexture},
		{AssetTypeEmote, ExportTypeAnimation},
		{AssetTypeAnimation, ExportTypeAnimation},
	}
	for _, c := range cases {
		got, ok := c.asset.ExportType()
		require.True(t, ok, c.asset.String())
		require.Equal(t, c.want, got, c.asset.String())
	}

	_, ok := AssetTypeNone.ExportType()
	require.False(t, ok)
	_, ok = AssetType(1000).ExportType()
	require.False(t, ok)

	var a AssetType
	require.NoError(t, a.UnmarshalText([]byte("LoadingScreen")))
	require.Equal(t, AssetTypeLoadingScreen, a)
}
