package frameloop

import (
	"fmt"
)

// Config holds the loop parameters taken from the application config.
type Config struct {
	// FramesInFlight is the number of frames the CPU may record ahead of
	// the GPU.
	FramesInFlight int
}

func (c Config) Validate() error {
	if c.FramesInFlight < 1 {
		return fmt.Errorf("frames in flight must be at least 1, got %d", c.FramesInFlight)
	}
	return nil
}

// Status is the recoverable outcome of acquiring or presenting an image.
// Every other failure is reported as an error.
type Status int

const (
	StatusSuccess Status = iota
	// The image can still be presented but the swapchain no longer matches
	// the surface exactly.
	StatusSuboptimal
	// The swapchain can no longer be used with the surface.
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out of date"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type Extent struct {
	Width  uint32
	Height uint32
}

func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

func (e Extent) Aspect() float32 {
	if e.Height == 0 {
		return 1
	}
	return float32(e.Width) / float32(e.Height)
}

// Driver is the GPU side of the loop. Slots index the per-frame
// synchronization objects, images index the swapchain images.
type Driver interface {
	// ImageCount returns the number of images of the current swapchain.
	ImageCount() int
	// WaitForFrame blocks until the last submission made from slot has
	// completed.
	WaitForFrame(slot int) error
	// ResetFrame returns the completion marker of slot to the unsignaled
	// state.
	ResetFrame(slot int) error
	AcquireNextImage(slot int) (uint32, Status, error)
	Submit(slot int, image uint32) error
	Present(slot int, image uint32) (Status, error)
	// WaitIdle blocks until the device has finished all submitted work.
	WaitIdle() error
}

// Surface is the window the images are presented to.
type Surface interface {
	FramebufferSize() (uint32, uint32)
	PollEvents()
	// WaitEvents blocks until at least one window event arrived.
	WaitEvents()
	ShouldClose() bool
}

// Frame describes the frame being produced.
type Frame struct {
	// Number counts submitted frames since Start.
	Number uint64
	Slot   int
	Image  uint32
	Extent Extent
}

// Hooks are the per-frame callbacks of an application.
type Hooks struct {
	// Update writes the per-frame CPU data for the acquired image.
	Update func(Frame) error
	// Record re-records the command buffer of the acquired image. Nil when
	// the commands are recorded once per swapchain generation.
	Record func(Frame) error
}

// State names the steps of one loop iteration.
type State int

const (
	StateIdle State = iota
	StateWaitForSlot
	StateAcquireImage
	StateWaitForImage
	StateUpdateState
	StateSubmit
	StatePresent
	StateAdvance
	StateRebuildPresentation
)

var stateNames = [...]string{
	StateIdle:                "idle",
	StateWaitForSlot:         "wait for slot",
	StateAcquireImage:        "acquire image",
	StateWaitForImage:        "wait for image",
	StateUpdateState:         "update state",
	StateSubmit:              "submit",
	StatePresent:             "present",
	StateAdvance:             "advance",
	StateRebuildPresentation: "rebuild presentation",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}
