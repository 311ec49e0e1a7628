/*
vkbase runs one of the example programs on the shared Vulkan backend. The
example and everything else come from vkbase.toml, or from the file named by
VKBASE_CONFIG.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spaghettifunk/vkbase/engine"
	"github.com/spaghettifunk/vkbase/engine/config"
	"github.com/spaghettifunk/vkbase/engine/core"
	"github.com/spaghettifunk/vkbase/examples/gltfscene"
	"github.com/spaghettifunk/vkbase/examples/instancing"
	"github.com/spaghettifunk/vkbase/examples/overlay"
	"github.com/spaghettifunk/vkbase/examples/specialization"
	"github.com/spaghettifunk/vkbase/examples/viewer"
)

const defaultConfigPath = "vkbase.toml"

var examples = map[string]engine.ExampleFactory{
	"viewer":         viewer.New,
	"instancing":     instancing.New,
	"gltfscene":      gltfscene.New,
	"specialization": specialization.New,
	"overlay":        overlay.New,
}

func exampleNames() []string {
	names := make([]string, 0, len(examples))
	for name := range examples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func run() error {
	path := os.Getenv("VKBASE_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	factory, ok := examples[cfg.Example.Name]
	if !ok {
		return fmt.Errorf("unknown example %q, want one of %v", cfg.Example.Name, exampleNames())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return engine.NewApplication(cfg).Run(ctx, factory)
}

func main() {
	if err := run(); err != nil {
		core.LogError("%s", err)
		os.Exit(1)
	}
}
