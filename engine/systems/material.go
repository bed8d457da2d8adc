package systems

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/metadata"
)

/** @brief The longest parent chain walked before a material is rejected. */
const MaxMaterialDepth int = 64

// materialDomainKey separates material identity hashes from any other
// BLAKE3 use. Changing it invalidates every cached hash.
var materialDomainKey = [32]byte{
	'a', 'n', 'i', 'm', 'a', '.', 'p', 'o', 'r', 't', 'e', 'r', '.',
	'm', 'a', 't', 'e', 'r', 'i', 'a', 'l', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// HashMaterial returns the identity hash of the material at path.
func HashMaterial(path string) metadata.MaterialHash {
	hasher, err := blake3.NewKeyed(materialDomainKey[:])
	if err != nil {
		panic("systems: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(path))
	sum := hasher.Sum(nil)
	return metadata.MaterialHash(binary.LittleEndian.Uint64(sum[:8]))
}

/**
 * @brief Resolved materials of one export batch, keyed by hash. Entries
 * are written once and never mutated.
 */
type MaterialCache struct {
	mutex   sync.Mutex
	entries map[metadata.MaterialHash]metadata.ExportedMaterial
}

func NewMaterialCache() *MaterialCache {
	return &MaterialCache{entries: make(map[metadata.MaterialHash]metadata.ExportedMaterial)}
}

func (mc *MaterialCache) lookup(hash metadata.MaterialHash) (metadata.ExportedMaterial, bool) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	m, ok := mc.entries[hash]
	return m, ok
}

// insert keeps the first entry stored for a hash.
func (mc *MaterialCache) insert(m metadata.ExportedMaterial) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	if _, exists := mc.entries[m.Hash]; !exists {
		mc.entries[m.Hash] = m
	}
}

func (mc *MaterialCache) Len() int {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	return len(mc.entries)
}

/**
 * @brief Resolves a material bound to a mesh section. Returns nil when
 * material export is disabled or the material cannot be resolved.
 * @param material The material or material instance.
 * @param slot The section index the material is bound to.
 */
func (e *ExporterInstance) Material(material assets.Object, slot int) *metadata.ExportedMaterial {
	if !e.ctx.Options.ExportMaterials {
		return nil
	}

	hash := HashMaterial(material.Path())
	if cached, ok := e.ctx.Materials.lookup(hash); ok {
		core.Metrics().MaterialCacheHits.Inc()
		m := cached.WithSlot(slot)
		return &m
	}
	core.Metrics().MaterialCacheMisses.Inc()

	m := metadata.ExportedMaterial{
		Path: material.Path(),
		Name: material.Name(),
		Slot: slot,
		Hash: hash,
	}
	if err := e.accumulateParameters(material, &m); err != nil {
		core.LogWarn("[%s] failed to resolve material %s: %s", e.ctx.Batch.Short(), material.Path(), err.Error())
		return nil
	}

	e.ctx.Materials.insert(m)
	return &m
}

/**
 * @brief Resolves an override material at its override slot and names
 * the material it replaces.
 */
func (e *ExporterInstance) OverrideMaterial(materialPath string, index int, materialToSwap string) *metadata.ExportedOverrideMaterial {
	material, err := e.ctx.Archive.Load(materialPath)
	if err != nil || !assets.IsMaterialInterface(material) {
		core.LogDebug("override material %s cannot be loaded", materialPath)
		return nil
	}

	resolved := e.Material(material, index)
	if resolved == nil {
		return nil
	}

	return &metadata.ExportedOverrideMaterial{
		ExportedMaterial:   *resolved,
		MaterialNameToSwap: assets.SubstringAfterLast(materialToSwap, "."),
	}
}

type parameterNames struct {
	textures, scalars, vectors, switches, masks map[string]struct{}
}

func newParameterNames() parameterNames {
	return parameterNames{
		textures: map[string]struct{}{},
		scalars:  map[string]struct{}{},
		vectors:  map[string]struct{}{},
		switches: map[string]struct{}{},
		masks:    map[string]struct{}{},
	}
}

// claim records name in set and reports whether it was new.
func claim(set map[string]struct{}, name string) bool {
	if _, ok := set[name]; ok {
		return false
	}
	set[name] = struct{}{}
	return true
}

// accumulateParameters walks from material towards its root parent. The
// first definition of a parameter name wins. ParentName is set to the
// root material's name; a chain that ends on an unresolvable parent has
// no root and leaves it empty.
func (e *ExporterInstance) accumulateParameters(material assets.Object, out *metadata.ExportedMaterial) error {
	names := newParameterNames()
	visited := make(map[string]struct{})

	current := material
	for depth := 0; ; depth++ {
		if depth >= MaxMaterialDepth {
			return fmt.Errorf("%s: %w", material.Path(), core.ErrMaterialDepth)
		}
		if !claim(visited, current.Path()) {
			return fmt.Errorf("%s loops back to %s: %w", material.Path(), current.Path(), core.ErrMaterialCycle)
		}

		instance, ok := current.(*assets.MaterialInstance)
		if !ok {
			out.ParentName = current.Name()
			return nil
		}
		e.collect(instance, names, out)

		if instance.Parent == "" {
			return nil
		}
		parent, err := e.ctx.Archive.Load(instance.Parent)
		if err != nil || !assets.IsMaterialInterface(parent) {
			core.LogDebug("parent %s of %s cannot be loaded", instance.Parent, instance.Path())
			return nil
		}
		current = parent
	}
}

func (e *ExporterInstance) collect(instance *assets.MaterialInstance, names parameterNames, out *metadata.ExportedMaterial) {
	for _, param := range instance.Textures {
		if _, seen := names.textures[param.Name]; seen {
			continue
		}
		texture, err := assets.LoadAs[*assets.Texture](e.ctx.Archive, param.Texture)
		if err != nil {
			continue
		}
		claim(names.textures, param.Name)
		out.Textures = append(out.Textures, metadata.TextureParameter{
			Name:                param.Name,
			Value:               e.ExportAsset(texture, false),
			SRGB:                texture.SRGB,
			CompressionSettings: texture.CompressionSettings,
		})
	}

	for _, param := range instance.Scalars {
		if claim(names.scalars, param.Name) {
			out.Scalars = append(out.Scalars, metadata.ScalarParameter{Name: param.Name, Value: param.Value})
		}
	}

	for _, param := range instance.Vectors {
		if param.Value == nil {
			continue
		}
		if claim(names.vectors, param.Name) {
			out.Vectors = append(out.Vectors, metadata.VectorParameter{Name: param.Name, Value: *param.Value})
		}
	}

	for _, param := range instance.Switches {
		if claim(names.switches, param.Name) {
			out.Switches = append(out.Switches, metadata.SwitchParameter{Name: param.Name, Value: param.Value})
		}
	}

	for _, param := range instance.ComponentMasks {
		if claim(names.masks, param.Name) {
			out.ComponentMasks = append(out.ComponentMasks, metadata.ComponentMaskParameter{
				Name:  param.Name,
				Value: math.NewLinearColorFromMask(param.R, param.G, param.B, param.A),
			})
		}
	}
}
