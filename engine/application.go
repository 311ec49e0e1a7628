package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/spaghettifunk/vkbase/engine/assets"
	"github.com/spaghettifunk/vkbase/engine/config"
	"github.com/spaghettifunk/vkbase/engine/core"
	"github.com/spaghettifunk/vkbase/engine/platform"
	"github.com/spaghettifunk/vkbase/engine/renderer/frameloop"
	"github.com/spaghettifunk/vkbase/engine/renderer/vulkan"
)

// Application owns the window, the backend and the frame loop of one
// example run.
type Application struct {
	cfg      *config.Config
	platform *platform.Platform
	tracker  *core.Tracker
	clock    *core.Clock
	metrics  *core.Metrics
	loop     *frameloop.Loop
	example  *Example
	lastTime float64
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{
		cfg:      cfg,
		platform: platform.New(),
		tracker:  core.NewTracker(),
		clock:    core.NewClock(),
		metrics:  core.NewMetrics(),
	}
}

// Run builds the example with factory and drives frames until ctx is done
// or the window is closed. It must be called from the main goroutine.
func (a *Application) Run(ctx context.Context, factory ExampleFactory) (err error) {
	core.SetLogLevel(core.ParseLogLevel(a.cfg.Log.Level))

	if err := core.InputInitialize(); err != nil {
		return err
	}
	defer core.InputShutdown()
	if !core.EventSystemInitialize() {
		return errors.New("event system is already initialized")
	}
	defer core.EventSystemShutdown()

	if err := a.platform.Startup(a.cfg.Window); err != nil {
		return err
	}
	defer a.platform.Shutdown()

	am, err := assets.NewAssetManager(a.cfg.Assets.Dir)
	if err != nil {
		return err
	}
	defer am.Close()
	if !a.cfg.Assets.Watch {
		// the index stays usable, only the watcher stops
		am.Close()
	}

	backend := vulkan.New(a.platform, a.cfg.Renderer, a.cfg.Window.Title, a.tracker)
	services := &Services{
		Config:  a.cfg,
		Backend: backend,
		Assets:  am,
		Metrics: a.metrics,
	}
	example, err := factory(services)
	if err != nil {
		return fmt.Errorf("building example %q: %w", a.cfg.Example.Name, err)
	}
	a.example = example
	if example.Shutdown != nil {
		defer example.Shutdown()
	}

	setup, err := frameloop.NewSetup(backend.Stages()...)
	if err != nil {
		return err
	}
	if err := setup.Add(example.Stages...); err != nil {
		return fmt.Errorf("example %q: %w", example.Name, err)
	}
	hooks := frameloop.Hooks{Update: a.update, Record: example.Record}
	a.loop, err = frameloop.New(frameloop.Config{FramesInFlight: a.cfg.Renderer.FramesInFlight}, backend, a.platform, setup, hooks)
	if err != nil {
		return err
	}
	services.Loop = a.loop

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, a, a.onQuit)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, a, a.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, a, a.onResized)
	defer func() {
		core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, a)
		core.EventUnregister(core.EVENT_CODE_KEY_PRESSED, a)
		core.EventUnregister(core.EVENT_CODE_RESIZED, a)
	}()

	// A minimized window blocks in WaitEvents; cancellation has to wake it.
	finished := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			a.platform.SetShouldClose(true)
			a.platform.Wake()
		case <-finished:
		}
	}()
	defer func() {
		close(finished)
		<-watcherDone
	}()

	core.LogInfo("running example %q", example.Name)
	a.clock.Start()
	err = a.loop.Run(ctx)

	fps, frameMS := a.metrics.Frame()
	core.LogInfo("%d frames, %d rebuilds, last %.0f fps (%.2f ms)", a.loop.FrameNumber(), a.loop.Rebuilds(), fps, frameMS)
	if leaked := a.tracker.Report(); leaked > 0 {
		core.LogWarn("%d GPU objects were still alive at shutdown", leaked)
	}
	return err
}

func (a *Application) update(f frameloop.Frame) error {
	a.clock.Update()
	now := a.clock.Elapsed()
	dt := now - a.lastTime
	a.lastTime = now
	a.metrics.Update(dt)

	var err error
	if a.example.Update != nil {
		err = a.example.Update(f, dt)
	}
	core.InputUpdate()
	return err
}

func (a *Application) onQuit(core.EventContext) bool {
	a.platform.SetShouldClose(true)
	return true
}

func (a *Application) onKey(context core.EventContext) bool {
	ev, ok := context.Data.(*core.KeyEvent)
	if ok && ev.KeyCode == core.KEY_ESCAPE {
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		return true
	}
	return false
}

func (a *Application) onResized(context core.EventContext) bool {
	if ev, ok := context.Data.(*core.SystemEvent); ok {
		core.LogDebug("framebuffer resized to %dx%d", ev.WindowWidth, ev.WindowHeight)
	}
	a.loop.RequestResize()
	return false
}
