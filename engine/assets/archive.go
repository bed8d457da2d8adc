package assets

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spaghettifunk/anima/engine/core"
)

/**
 * @brief The source archive. Implementations are owned by the asset
 * parsing collaborator; the pipeline only borrows objects from it.
 */
type Archive interface {
	// Load resolves an object path. Unknown paths return an error
	// wrapping core.ErrUnresolvedReference.
	Load(path string) (Object, error)
	// LoadPackage returns every object of a package, in a stable order.
	LoadPackage(pkg string) ([]Object, error)
	// Convert builds the intermediate form of a skeletal or static mesh.
	Convert(mesh Object) (*ConvertedMesh, error)
}

/** @brief The intermediate form of a mesh, enough to enumerate LODs and sections. */
type ConvertedMesh struct {
	LODs []MeshLOD
}

// LoadAs resolves path and asserts its variant.
func LoadAs[T Object](archive Archive, path string) (T, error) {
	var zero T
	if path == "" {
		return zero, fmt.Errorf("empty path: %w", core.ErrUnresolvedReference)
	}
	obj, err := archive.Load(path)
	if err != nil {
		return zero, err
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%s is a %s: %w", path, obj.Kind(), core.ErrUnresolvedReference)
	}
	return typed, nil
}

// MemoryArchive is an Archive backed by a map, safe for concurrent use.
type MemoryArchive struct {
	mutex   sync.RWMutex
	objects map[string]Object
}

func NewMemoryArchive(objects ...Object) *MemoryArchive {
	ma := &MemoryArchive{objects: make(map[string]Object, len(objects))}
	ma.Add(objects...)
	return ma
}

// Add registers objects, replacing any object with the same path.
func (ma *MemoryArchive) Add(objects ...Object) {
	ma.mutex.Lock()
	defer ma.mutex.Unlock()
	for _, obj := range objects {
		ma.objects[obj.Path()] = obj
	}
}

func (ma *MemoryArchive) Len() int {
	ma.mutex.RLock()
	defer ma.mutex.RUnlock()
	return len(ma.objects)
}

func (ma *MemoryArchive) Load(path string) (Object, error) {
	ma.mutex.RLock()
	obj, exists := ma.objects[path]
	ma.mutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("object not found: %s: %w", path, core.ErrUnresolvedReference)
	}
	return obj, nil
}

func (ma *MemoryArchive) LoadPackage(pkg string) ([]Object, error) {
	ma.mutex.RLock()
	defer ma.mutex.RUnlock()

	var out []Object
	for _, obj := range ma.objects {
		if obj.Owner() == pkg || strings.HasPrefix(obj.Path(), pkg+".") || strings.HasPrefix(obj.Path(), pkg+":") {
			out = append(out, obj)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("package not found: %s: %w", pkg, core.ErrUnresolvedReference)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path() < out[j].Path() })
	return out, nil
}

func (ma *MemoryArchive) Convert(mesh Object) (*ConvertedMesh, error) {
	switch m := mesh.(type) {
	case *SkeletalMesh:
		if m.Corrupt {
			return nil, fmt.Errorf("%s: %w", m.Path(), core.ErrConversionFailed)
		}
		return &ConvertedMesh{LODs: m.LODs}, nil
	case *StaticMesh:
		if m.Corrupt {
			return nil, fmt.Errorf("%s: %w", m.Path(), core.ErrConversionFailed)
		}
		return &ConvertedMesh{LODs: m.LODs}, nil
	default:
		return nil, fmt.Errorf("%s is a %s: %w", mesh.Path(), mesh.Kind(), core.ErrConversionFailed)
	}
}
