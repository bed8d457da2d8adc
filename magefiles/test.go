//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every test with the race detector.
func (Test) All() error {
	if _, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the loopback transport tests one package at a time.
func (Test) Transport() error {
	if _, err := executeCmd("go", withArgs("test", "-count=1", "./engine/transport/...", "./engine"), withEnv("GOFLAGS=-p=1"), withStream()); err != nil {
		return err
	}
	return nil
}
