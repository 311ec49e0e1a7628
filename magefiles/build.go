//go:build mage

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/target"
)

const shaderDir = "assets/shaders"

type Build mg.Namespace

// Shaders compiles every GLSL stage under assets/shaders to SPIR-V. Stages
// whose .spv is newer than the source are skipped.
func (Build) Shaders() error {
	return buildShaders()
}

// Binary builds the vkbase executable.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/vkbase", "."), withStream())
	return err
}

func buildShaders() error {
	var sources []string
	for _, ext := range []string{"*.vert", "*.frag"} {
		matches, err := filepath.Glob(filepath.Join(shaderDir, ext))
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no shader sources in %s", shaderDir)
	}
	for _, src := range sources {
		out := src + ".spv"
		stale, err := target.Path(out, src)
		if err != nil {
			return err
		}
		if !stale {
			continue
		}
		if _, err := executeCmd("glslc", withArgs(src, "-o", out), withStream()); err != nil {
			return fmt.Errorf("compiling %s: %w", strings.TrimPrefix(src, shaderDir+"/"), err)
		}
	}
	return nil
}
