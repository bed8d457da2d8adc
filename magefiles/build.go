//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Tidies the module and downloads its dependencies.
func (Build) Deps() error {
	if _, err := executeCmd("go", withArgs("mod", "tidy")); err != nil {
		return fmt.Errorf("failed to run go mod tidy: %w", err)
	}
	if _, err := executeCmd("go", withArgs("mod", "download"), withStream()); err != nil {
		return err
	}
	return nil
}

// Builds a static anima-porter binary into bin/.
func (Build) Porter() error {
	mg.Deps(Build.Deps)
	if _, err := executeCmd("go", withArgs("build", "-trimpath", "-o", "bin/anima-porter", "."), withEnv("CGO_ENABLED=0"), withStream()); err != nil {
		return err
	}
	return nil
}
