package frameloop

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/vkbase/engine/core"
)

var ErrNotStarted = errors.New("frame loop not started")

// noOwner marks a swapchain image no submission has used yet.
const noOwner = -1

// Loop drives frame production with a bounded number of frames in flight.
// All methods except RequestResize must be called from the same goroutine.
type Loop struct {
	cfg     Config
	driver  Driver
	surface Surface
	setup   *Setup
	hooks   Hooks

	started      bool
	extent       Extent
	currentFrame int
	frameNumber  uint64
	rebuilds     int
	state        State

	// inFlight[slot] is true while the last submission of slot may still
	// be pending on the GPU.
	inFlight []bool
	// imageOwner[image] is the slot whose submission last used image.
	imageOwner []int

	resizeRequested atomic.Bool
}

func New(cfg Config, driver Driver, surface Surface, setup *Setup, hooks Hooks) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if driver == nil || surface == nil || setup == nil {
		return nil, errors.New("frame loop needs a driver, a surface and a setup")
	}
	return &Loop{
		cfg:      cfg,
		driver:   driver,
		surface:  surface,
		setup:    setup,
		hooks:    hooks,
		inFlight: make([]bool, cfg.FramesInFlight),
		state:    StateIdle,
	}, nil
}

// Start creates every setup stage at the current surface size.
func (l *Loop) Start() error {
	if l.started {
		return nil
	}
	w, h := l.surface.FramebufferSize()
	l.extent = Extent{Width: w, Height: h}
	if err := l.setup.Create(l.extent); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	l.resetImageOwners()
	for i := range l.inFlight {
		l.inFlight[i] = false
	}
	l.currentFrame = 0
	l.started = true
	core.LogInfo("frame loop started: %dx%d, %d images, %d frames in flight",
		l.extent.Width, l.extent.Height, len(l.imageOwner), l.cfg.FramesInFlight)
	return nil
}

// RequestResize flags that the window changed size. The swapchain is
// rebuilt after the next present. Safe to call from any goroutine.
func (l *Loop) RequestResize() {
	l.resizeRequested.Store(true)
}

// Frame runs one iteration: wait for the slot, acquire, wait for the image,
// update, submit, present and advance, or rebuild when the surface changed.
func (l *Loop) Frame() error {
	if !l.started {
		return ErrNotStarted
	}
	slot := l.currentFrame

	l.state = StateWaitForSlot
	if l.inFlight[slot] {
		if err := l.driver.WaitForFrame(slot); err != nil {
			return l.fail(err)
		}
		l.inFlight[slot] = false
	}

	l.state = StateAcquireImage
	image, status, err := l.driver.AcquireNextImage(slot)
	if err != nil {
		return l.fail(err)
	}
	if status == StatusOutOfDate {
		core.LogDebug("acquire reported %s, rebuilding", status)
		return l.Rebuild()
	}
	rebuildAfterPresent := status == StatusSuboptimal

	l.state = StateWaitForImage
	if int(image) >= len(l.imageOwner) {
		return l.fail(fmt.Errorf("acquired image %d out of range (%d images)", image, len(l.imageOwner)))
	}
	if owner := l.imageOwner[image]; owner != noOwner && owner != slot && l.inFlight[owner] {
		if err := l.driver.WaitForFrame(owner); err != nil {
			return l.fail(err)
		}
		l.inFlight[owner] = false
	}
	l.imageOwner[image] = slot

	frame := Frame{
		Number: l.frameNumber,
		Slot:   slot,
		Image:  image,
		Extent: l.extent,
	}

	l.state = StateUpdateState
	if l.hooks.Update != nil {
		if err := l.hooks.Update(frame); err != nil {
			return l.fail(err)
		}
	}
	if l.hooks.Record != nil {
		if err := l.hooks.Record(frame); err != nil {
			return l.fail(err)
		}
	}

	l.state = StateSubmit
	if err := l.driver.ResetFrame(slot); err != nil {
		return l.fail(err)
	}
	if err := l.driver.Submit(slot, image); err != nil {
		return l.fail(err)
	}
	l.inFlight[slot] = true
	l.frameNumber++

	l.state = StatePresent
	status, err = l.driver.Present(slot, image)
	if err != nil {
		return l.fail(err)
	}
	if status != StatusSuccess || rebuildAfterPresent || l.resizeRequested.Load() {
		core.LogDebug("present reported %s (resize requested: %t), rebuilding", status, l.resizeRequested.Load())
		return l.Rebuild()
	}

	l.advance()
	return nil
}

// Rebuild recreates the swapchain-scope stages. It blocks while the surface
// has a zero size and returns quietly if the window closes meanwhile.
func (l *Loop) Rebuild() error {
	if !l.started {
		return ErrNotStarted
	}
	l.state = StateRebuildPresentation

	w, h := l.surface.FramebufferSize()
	for w == 0 || h == 0 {
		if l.surface.ShouldClose() {
			core.LogDebug("window closing while minimized, skipping rebuild")
			return nil
		}
		l.surface.WaitEvents()
		w, h = l.surface.FramebufferSize()
	}

	if err := l.driver.WaitIdle(); err != nil {
		return l.fail(err)
	}
	for i := range l.inFlight {
		l.inFlight[i] = false
	}

	l.extent = Extent{Width: w, Height: h}
	if err := l.setup.Rebuild(l.extent); err != nil {
		return l.fail(err)
	}
	l.resetImageOwners()
	l.resizeRequested.Store(false)
	l.rebuilds++
	core.LogInfo("presentation rebuilt: %dx%d, %d images (generation %d)",
		w, h, len(l.imageOwner), l.setup.Generation())

	l.advance()
	return nil
}

// Run drives frames until ctx is done or the surface asks to close. The
// device is drained and every stage destroyed before Run returns, also
// after a failure.
func (l *Loop) Run(ctx context.Context) (err error) {
	if err := l.Start(); err != nil {
		return err
	}
	defer func() {
		if werr := l.driver.WaitIdle(); werr != nil {
			core.LogError("waiting for the device at shutdown: %s", werr)
			if err == nil {
				err = werr
			}
		}
		l.setup.Destroy()
		l.started = false
		l.state = StateIdle
	}()

	for {
		select {
		case <-ctx.Done():
			core.LogInfo("frame loop cancelled after %d frames", l.frameNumber)
			return nil
		default:
		}
		l.surface.PollEvents()
		if l.surface.ShouldClose() {
			core.LogInfo("window closed after %d frames", l.frameNumber)
			return nil
		}
		if err := l.Frame(); err != nil {
			return err
		}
	}
}

// CurrentFrame returns the slot the next iteration will use.
func (l *Loop) CurrentFrame() int { return l.currentFrame }

// FrameNumber returns the number of frames submitted so far.
func (l *Loop) FrameNumber() uint64 { return l.frameNumber }

// Rebuilds returns how many times the presentation was rebuilt.
func (l *Loop) Rebuilds() int { return l.rebuilds }

// State returns the last state the loop reached.
func (l *Loop) State() State { return l.state }

// Extent returns the size the current swapchain was built for.
func (l *Loop) Extent() Extent { return l.extent }

func (l *Loop) advance() {
	l.state = StateAdvance
	l.currentFrame = (l.currentFrame + 1) % l.cfg.FramesInFlight
}

func (l *Loop) resetImageOwners() {
	n := l.driver.ImageCount()
	if cap(l.imageOwner) >= n {
		l.imageOwner = l.imageOwner[:n]
	} else {
		l.imageOwner = make([]int, n)
	}
	for i := range l.imageOwner {
		l.imageOwner[i] = noOwner
	}
}

func (l *Loop) fail(err error) error {
	err = fmt.Errorf("%s: %w", l.state, err)
	core.LogError("frame %d: %s", l.frameNumber, err)
	return err
}
