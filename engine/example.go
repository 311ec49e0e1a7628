package engine

import (
	"github.com/spaghettifunk/vkbase/engine/assets"
	"github.com/spaghettifunk/vkbase/engine/config"
	"github.com/spaghettifunk/vkbase/engine/core"
	"github.com/spaghettifunk/vkbase/engine/renderer/frameloop"
	"github.com/spaghettifunk/vkbase/engine/renderer/vulkan"
)

// Example is a program built on the shared backend. Its stages run after the
// backend's, device scoped ones once and swapchain scoped ones on every
// presentation rebuild.
type Example struct {
	Name   string
	Stages []frameloop.Stage
	// Update runs once per frame for the acquired image with the seconds
	// elapsed since the previous frame.
	Update func(f frameloop.Frame, dt float64) error
	// Record re-records the acquired image's command buffer every frame.
	// Nil when the stages record once per swapchain generation.
	Record func(f frameloop.Frame) error
	// Shutdown runs after the loop stopped and every stage was destroyed.
	Shutdown func()
}

// Services are the collaborators an example is built from.
type Services struct {
	Config  *config.Config
	Backend *vulkan.VulkanBackend
	Assets  *assets.AssetManager
	Metrics *core.Metrics
	// Loop is set before the first stage is created.
	Loop *frameloop.Loop
}

// ExampleFactory builds an example. It runs before any GPU object exists, so
// GPU work belongs in the example's stages.
type ExampleFactory func(s *Services) (*Example, error)
