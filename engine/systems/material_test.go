package systems

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/metadata"
)

func materialChain() *assets.MemoryArchive {
	gold := math.LinearColor{R: 1, G: 0.8, B: 0.1, A: 1}
	return assets.NewMemoryArchive(
		&assets.Material{Header: hdr("/Game/Materials/M_Base.M_Base")},
		&assets.MaterialInstance{
			Header: hdr("/Game/Materials/MI_Metal.MI_Metal"),
			Parent: "/Game/Materials/M_Base.M_Base",
			Scalars: []assets.ScalarParameterValue{
				{Name: "Roughness", Value: 0.8},
				{Name: "Metallic", Value: 1},
			},
			Vectors: []assets.VectorParameterValue{{Name: "Tint", Value: &gold}},
			Textures: []assets.TextureParameterValue{
				{Name: "Diffuse", Texture: "/Game/Textures/T_Metal_D.T_Metal_D"},
			},
		},
		&assets.MaterialInstance{
			Header: hdr("/Game/Materials/MI_Gold.MI_Gold"),
			Parent: "/Game/Materials/MI_Metal.MI_Metal",
			Scalars: []assets.ScalarParameterValue{
				{Name: "Roughness", Value: 0.2},
			},
			Vectors: []assets.VectorParameterValue{{Name: "Emissive", Value: nil}},
			Textures: []assets.TextureParameterValue{
				{Name: "Diffuse", Texture: "/Game/Textures/T_Missing.T_Missing"},
				{Name: "Normals", Texture: "/Game/Textures/T_Gold_N.T_Gold_N"},
			},
			Switches:       []assets.StaticSwitchParameter{{Name: "UseEmissive", Value: true}},
			ComponentMasks: []assets.StaticComponentMaskParameter{{Name: "Mask", R: true, B: true}},
		},
		texture("/Game/Textures/T_Metal_D.T_Metal_D"),
		texture("/Game/Textures/T_Gold_N.T_Gold_N"),
	)
}

func TestHashMaterial_Deterministic(t *testing.T) {
	require.Equal(t, HashMaterial("/Game/M.M"), HashMaterial("/Game/M.M"))
	require.NotEqual(t, HashMaterial("/Game/M.M"), HashMaterial("/Game/N.N"))
}

func TestMaterial_InheritancePrecedence(t *testing.T) {
	archive := materialChain()
	e := NewExporterInstance(newTestContext(t, archive, newRecordingWriter()))

	gold, err := archive.Load("/Game/Materials/MI_Gold.MI_Gold")
	require.NoError(t, err)

	m := e.Material(gold, 2)
	require.NotNil(t, m)
	e.WaitForExports()

	require.Equal(t, "MI_Gold", m.Name)
	require.Equal(t, "M_Base", m.ParentName)
	require.Equal(t, 2, m.Slot)
	require.Equal(t, HashMaterial(gold.Path()), m.Hash)

	require.Len(t, m.Scalars, 2)
	require.Equal(t, "Roughness", m.Scalars[0].Name)
	require.InDelta(t, 0.2, m.Scalars[0].Value, 1e-6)
	require.Equal(t, "Metallic", m.Scalars[1].Name)

	// the child's unloadable Diffuse does not shadow the parent's
	require.Len(t, m.Textures, 2)
	require.Equal(t, "Normals", m.Textures[0].Name)
	require.Equal(t, "/Game/Textures/T_Gold_N.T_Gold_N", m.Textures[0].Value)
	require.Equal(t, "Diffuse", m.Textures[1].Name)
	require.Equal(t, "/Game/Textures/T_Metal_D.T_Metal_D", m.Textures[1].Value)
	require.True(t, m.Textures[1].SRGB)

	require.Len(t, m.Vectors, 1)
	require.Equal(t, "Tint", m.Vectors[0].Name)

	require.Len(t, m.Switches, 1)
	require.Len(t, m.ComponentMasks, 1)
	require.Equal(t, math.LinearColor{R: 1, G: 0, B: 1, A: 0}, m.ComponentMasks[0].Value)
}

func TestMaterial_CacheHitRebindsSlot(t *testing.T) {
	archive := materialChain()
	ctx := newTestContext(t, archive, newRecordingWriter())
	first := NewExporterInstance(ctx)
	second := NewExporterInstance(ctx)

	gold, err := archive.Load("/Game/Materials/MI_Gold.MI_Gold")
	require.NoError(t, err)

	hits := testutil.ToFloat64(core.Metrics().MaterialCacheHits)

	a := first.Material(gold, 0)
	b := second.Material(gold, 3)
	require.NotNil(t, a)
	require.NotNil(t, b)

	require.Equal(t, 1, ctx.Materials.Len())
	require.Equal(t, hits+1, testutil.ToFloat64(core.Metrics().MaterialCacheHits))
	require.Equal(t, 0, a.Slot)
	require.Equal(t, 3, b.Slot)

	rebound := *b
	rebound.Slot = a.Slot
	require.Equal(t, *a, rebound)
}

func TestMaterial_DisabledExportsNothing(t *testing.T) {
	archive := materialChain()
	ctx := newTestContext(t, archive, newRecordingWriter())
	ctx.Options.ExportMaterials = false

	gold, err := archive.Load("/Game/Materials/MI_Gold.MI_Gold")
	require.NoError(t, err)

	require.Nil(t, NewExporterInstance(ctx).Material(gold, 0))
	require.Zero(t, ctx.Materials.Len())
}

func TestMaterial_CycleIsRejected(t *testing.T) {
	archive := assets.NewMemoryArchive(
		&assets.MaterialInstance{Header: hdr("/Game/MI_A.MI_A"), Parent: "/Game/MI_B.MI_B"},
		&assets.MaterialInstance{Header: hdr("/Game/MI_B.MI_B"), Parent: "/Game/MI_A.MI_A"},
	)
	ctx := newTestContext(t, archive, newRecordingWriter())
	e := NewExporterInstance(ctx)

	a, err := archive.Load("/Game/MI_A.MI_A")
	require.NoError(t, err)

	require.Nil(t, e.Material(a, 0))
	require.Zero(t, ctx.Materials.Len())

	var out metadata.ExportedMaterial
	require.ErrorIs(t, e.accumulateParameters(a, &out), core.ErrMaterialCycle)
}

func TestMaterial_DepthIsCapped(t *testing.T) {
	archive := assets.NewMemoryArchive()
	for i := 0; i < MaxMaterialDepth+1; i++ {
		archive.Add(&assets.MaterialInstance{
			Header: hdr(fmt.Sprintf("/Game/MI_%d.MI_%d", i, i)),
			Parent: fmt.Sprintf("/Game/MI_%d.MI_%d", i+1, i+1),
		})
	}
	archive.Add(&assets.Material{Header: hdr(fmt.Sprintf("/Game/MI_%d.MI_%d", MaxMaterialDepth+1, MaxMaterialDepth+1))})
	e := NewExporterInstance(newTestContext(t, archive, newRecordingWriter()))

	first, err := archive.Load("/Game/MI_0.MI_0")
	require.NoError(t, err)

	var out metadata.ExportedMaterial
	require.ErrorIs(t, e.accumulateParameters(first, &out), core.ErrMaterialDepth)
	require.Nil(t, e.Material(first, 0))
}

func TestMaterial_BrokenChainHasNoParentName(t *testing.T) {
	archive := assets.NewMemoryArchive(
		&assets.MaterialInstance{
			Header:  hdr("/Game/MI_Orphan.MI_Orphan"),
			Parent:  "/Game/M_Gone.M_Gone",
			Scalars: []assets.ScalarParameterValue{{Name: "Opacity", Value: 0.5}},
		},
	)
	e := NewExporterInstance(newTestContext(t, archive, newRecordingWriter()))

	orphan, err := archive.Load("/Game/MI_Orphan.MI_Orphan")
	require.NoError(t, err)

	m := e.Material(orphan, 0)
	require.NotNil(t, m)
	require.Empty(t, m.ParentName)
	require.Len(t, m.Scalars, 1)
}

func TestOverrideMaterial_NamesSwappedMaterial(t *testing.T) {
	archive := materialChain()
	e := NewExporterInstance(newTestContext(t, archive, newRecordingWriter()))

	o := e.OverrideMaterial("/Game/Materials/MI_Gold.MI_Gold", 1, "/Game/Materials/MI_Skin.MI_Skin")
	require.NotNil(t, o)
	require.Equal(t, "MI_Skin", o.MaterialNameToSwap)
	require.Equal(t, 1, o.Slot)

	require.Nil(t, e.OverrideMaterial("/Game/Materials/MI_Nope.MI_Nope", 0, "x"))
}
