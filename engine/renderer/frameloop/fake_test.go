package frameloop

import (
	"fmt"
)

// fakeGPU simulates a device whose submissions only complete when they are
// waited on, which is the worst case the loop has to handle.
type fakeGPU struct {
	frames int
	images int

	pending    map[int]uint32
	maxPending int
	violations []string

	// order, when set, scripts the images returned by acquire.
	order     []uint32
	nextImage uint32

	acquireStatus map[int]Status
	acquireErr    map[int]error
	presentStatus map[int]Status
	presentErr    map[int]error
	submitErr     map[int]error
	acquireImage  map[int]uint32

	beforePresent func(call int)

	acquireCalls  int
	submitCalls   int
	presentCalls  int
	waitCalls     int
	waitIdleCalls int

	acquiredSlots  []int
	submittedSlots []int
	presented      []uint32
}

func newFakeGPU(frames, images int) *fakeGPU {
	return &fakeGPU{
		frames:        frames,
		images:        images,
		pending:       make(map[int]uint32),
		acquireStatus: make(map[int]Status),
		acquireErr:    make(map[int]error),
		presentStatus: make(map[int]Status),
		presentErr:    make(map[int]error),
		submitErr:     make(map[int]error),
		acquireImage:  make(map[int]uint32),
	}
}

func (g *fakeGPU) violate(format string, args ...interface{}) {
	g.violations = append(g.violations, fmt.Sprintf(format, args...))
}

func (g *fakeGPU) ImageCount() int { return g.images }

func (g *fakeGPU) WaitForFrame(slot int) error {
	g.waitCalls++
	delete(g.pending, slot)
	return nil
}

func (g *fakeGPU) ResetFrame(slot int) error {
	if _, ok := g.pending[slot]; ok {
		g.violate("reset of slot %d while its submission is pending", slot)
	}
	return nil
}

func (g *fakeGPU) AcquireNextImage(slot int) (uint32, Status, error) {
	call := g.acquireCalls
	g.acquireCalls++
	g.acquiredSlots = append(g.acquiredSlots, slot)
	if err := g.acquireErr[call]; err != nil {
		return 0, StatusSuccess, err
	}
	if status, ok := g.acquireStatus[call]; ok && status == StatusOutOfDate {
		return 0, status, nil
	}
	var image uint32
	switch {
	case len(g.order) > 0:
		image = g.order[0]
		g.order = g.order[1:]
	default:
		image = g.nextImage % uint32(g.images)
		g.nextImage++
	}
	if forced, ok := g.acquireImage[call]; ok {
		image = forced
	}
	return image, g.acquireStatus[call], nil
}

func (g *fakeGPU) Submit(slot int, image uint32) error {
	call := g.submitCalls
	g.submitCalls++
	if err := g.submitErr[call]; err != nil {
		return err
	}
	if _, ok := g.pending[slot]; ok {
		g.violate("slot %d reused while pending", slot)
	}
	for s, img := range g.pending {
		if img == image {
			g.violate("image %d rendered while slot %d still uses it", image, s)
		}
	}
	g.pending[slot] = image
	if len(g.pending) > g.frames {
		g.violate("%d submissions pending, limit %d", len(g.pending), g.frames)
	}
	g.maxPending = max(g.maxPending, len(g.pending))
	g.submittedSlots = append(g.submittedSlots, slot)
	return nil
}

func (g *fakeGPU) Present(slot int, image uint32) (Status, error) {
	call := g.presentCalls
	g.presentCalls++
	if g.beforePresent != nil {
		g.beforePresent(call)
	}
	if err := g.presentErr[call]; err != nil {
		return StatusSuccess, err
	}
	g.presented = append(g.presented, image)
	return g.presentStatus[call], nil
}

func (g *fakeGPU) WaitIdle() error {
	g.waitIdleCalls++
	clear(g.pending)
	return nil
}

type fakeSurface struct {
	width, height uint32

	// sizes is consumed by WaitEvents, one entry per call.
	sizes []Extent

	polls int
	waits int
	// closeAfter closes the window once more than closeAfter polls happened.
	closeAfter int
	closing    bool
}

func (s *fakeSurface) FramebufferSize() (uint32, uint32) { return s.width, s.height }

func (s *fakeSurface) PollEvents() { s.polls++ }

func (s *fakeSurface) WaitEvents() {
	s.waits++
	if len(s.sizes) > 0 {
		s.width, s.height = s.sizes[0].Width, s.sizes[0].Height
		s.sizes = s.sizes[1:]
	}
}

func (s *fakeSurface) ShouldClose() bool {
	return s.closing || (s.closeAfter > 0 && s.polls > s.closeAfter)
}
