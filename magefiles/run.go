//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs a receiver on the Blender port that stores manifests in manifests/.
func (Run) Receiver() error {
	fmt.Println("Run receiver...")
	if _, err := executeCmd("go", withArgs("run", ".", "receive", "--target", "blender", "--out", "manifests"), withStream()); err != nil {
		return err
	}
	return nil
}

// Exports the selections of a scene file to a folder. Usage: mage run:export scene.yaml
func (Run) Export(scene string) error {
	mg.Deps(Build.Porter)
	if _, err := executeCmd("bin/anima-porter", withArgs("export", scene, "--target", "folder"), withStream()); err != nil {
		return err
	}
	return nil
}
