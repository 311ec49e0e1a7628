//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Example compiles the shaders and runs the named example. The config file
// comes from VKBASE_CONFIG as usual; the name overrides its example.
func (Run) Example(name string) error {
	if err := buildShaders(); err != nil {
		return err
	}
	path, err := exampleConfig(name)
	if err != nil {
		return err
	}
	defer os.Remove(path)
	fmt.Printf("Run %s...\n", name)
	_, err = executeCmd("go", withArgs("run", "."), withEnv("VKBASE_CONFIG="+path), withStream())
	return err
}

// Tests runs the unit tests. Nothing in them needs a GPU.
func (Run) Tests() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}
