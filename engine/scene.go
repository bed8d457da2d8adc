package engine

import (
	"fmt"

	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/assets/loaders"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/systems"
)

// LoadScene reads a scene file and resolves its selections against the
// archive it describes.
func LoadScene(path string) (*assets.MemoryArchive, []systems.Selection, error) {
	scene, err := loaders.NewSceneLoader().Load(path)
	if err != nil {
		return nil, nil, err
	}
	selections, err := Selections(scene)
	if err != nil {
		return nil, nil, err
	}
	return scene.Archive, selections, nil
}

// Selections resolves the selections of a scene.
func Selections(scene *loaders.Scene) ([]systems.Selection, error) {
	selections := make([]systems.Selection, 0, len(scene.Selections))
	for _, spec := range scene.Selections {
		obj, err := scene.Archive.Load(spec.Asset)
		if err != nil {
			return nil, fmt.Errorf("selection %q: %w", spec.Asset, err)
		}
		sel := systems.SelectionFor(obj, spec.Type)
		if spec.Name != "" {
			sel.Name = spec.Name
		}
		sel.Styles = spec.Styles
		selections = append(selections, sel)
	}
	core.LogDebug("resolved %d selection(s)", len(selections))
	return selections, nil
}
