package frameloop

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vkbase/engine/core"
)

// harness wires a loop to the simulated GPU with resource stages that are
// tracked, so leaks across rebuilds are visible.
type harness struct {
	gpu     *fakeGPU
	surface *fakeSurface
	setup   *Setup
	tracker *core.Tracker
	loop    *Loop

	swapchainExtents []Extent
	// imagesAfterRebuild changes the image count reported by rebuilt
	// swapchains.
	imagesAfterRebuild int
	updates            []Frame
}

func newHarness(t *testing.T, frames, images int) *harness {
	t.Helper()
	h := &harness{
		gpu:     newFakeGPU(frames, images),
		surface: &fakeSurface{width: 1280, height: 720},
		tracker: core.NewTracker(),
	}

	setup, err := NewSetup(
		h.trackedStage("sync", ScopeDevice, "semaphore", func() int { return frames * 2 }),
		Stage{
			Name:  "swapchain",
			Scope: ScopeSwapchain,
			Create: func(e Extent) error {
				h.swapchainExtents = append(h.swapchainExtents, e)
				if h.imagesAfterRebuild > 0 && len(h.swapchainExtents) > 1 {
					h.gpu.images = h.imagesAfterRebuild
				}
				return nil
			},
		},
		h.trackedStage("framebuffers", ScopeSwapchain, "framebuffer", func() int { return h.gpu.images }),
		h.trackedStage("commands", ScopeSwapchain, "command buffer", func() int { return h.gpu.images }),
	)
	require.NoError(t, err)
	h.setup = setup

	h.loop, err = New(Config{FramesInFlight: frames}, h.gpu, h.surface, setup, Hooks{
		Update: func(f Frame) error {
			h.updates = append(h.updates, f)
			return nil
		},
	})
	require.NoError(t, err)
	return h
}

func (h *harness) trackedStage(name string, scope Scope, kind string, count func() int) Stage {
	var live []uuid.UUID
	return Stage{
		Name:  name,
		Scope: scope,
		Create: func(Extent) error {
			for i := 0; i < count(); i++ {
				live = append(live, h.tracker.Track(kind, name))
			}
			return nil
		},
		Destroy: func() {
			for _, id := range live {
				h.tracker.Release(id)
			}
			live = nil
		},
	}
}

func (h *harness) assertSafe(t *testing.T) {
	t.Helper()
	assert.Empty(t, h.gpu.violations)
	assert.LessOrEqual(t, h.gpu.maxPending, h.loop.cfg.FramesInFlight)
}

func alternating(n, frames int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i % frames
	}
	return out
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{FramesInFlight: 1}.Validate())
	assert.Error(t, Config{FramesInFlight: 0}.Validate())

	_, err := New(Config{}, newFakeGPU(2, 3), &fakeSurface{}, &Setup{}, Hooks{})
	assert.Error(t, err)
}

func TestFrameBeforeStart(t *testing.T) {
	h := newHarness(t, 2, 3)
	assert.ErrorIs(t, h.loop.Frame(), ErrNotStarted)
	assert.ErrorIs(t, h.loop.Rebuild(), ErrNotStarted)
}

func TestTenFramesAlternateSlots(t *testing.T) {
	h := newHarness(t, 2, 3)
	h.surface.closeAfter = 10

	require.NoError(t, h.loop.Run(context.Background()))

	assert.Equal(t, alternating(10, 2), h.gpu.acquiredSlots)
	assert.Equal(t, alternating(10, 2), h.gpu.submittedSlots)
	assert.Equal(t, 10, h.gpu.presentCalls)
	assert.Equal(t, uint64(10), h.loop.FrameNumber())
	assert.Equal(t, 0, h.loop.Rebuilds())
	assert.Equal(t, 2, h.gpu.maxPending)
	h.assertSafe(t)

	for i, f := range h.updates {
		assert.Equal(t, uint64(i), f.Number)
		assert.Equal(t, i%2, f.Slot)
		assert.Equal(t, Extent{1280, 720}, f.Extent)
	}

	assert.Equal(t, 1, h.gpu.waitIdleCalls, "device drained once at shutdown")
	assert.Empty(t, h.setup.Live())
	assert.Equal(t, 0, h.tracker.Count())
	assert.Equal(t, StateIdle, h.loop.State())
}

func TestAcquireOutOfDateRebuildsOnce(t *testing.T) {
	h := newHarness(t, 2, 3)
	h.surface.closeAfter = 10
	h.gpu.acquireStatus[4] = StatusOutOfDate

	require.NoError(t, h.loop.Run(context.Background()))

	assert.Equal(t, 1, h.loop.Rebuilds())
	assert.Equal(t, 10, h.gpu.acquireCalls)
	assert.Equal(t, alternating(10, 2), h.gpu.acquiredSlots, "slot sequence continues across the rebuild")
	assert.Equal(t, []int{0, 1, 0, 1, 1, 0, 1, 0, 1}, h.gpu.submittedSlots, "nothing submitted for the aborted acquire")
	assert.Equal(t, 9, h.gpu.presentCalls)
	assert.Len(t, h.swapchainExtents, 2)
	h.assertSafe(t)
}

func TestSubmitFailureIsFatal(t *testing.T) {
	h := newHarness(t, 2, 3)
	boom := errors.New("device lost")
	h.gpu.submitErr[2] = boom

	err := h.loop.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), StateSubmit.String())

	assert.Equal(t, 2, h.gpu.presentCalls, "present is never attempted for the failed frame")
	assert.Equal(t, 1, h.gpu.waitIdleCalls, "device drained before teardown")
	assert.Empty(t, h.setup.Live())
	assert.Equal(t, 0, h.tracker.Count())
}

func TestAcquireAndPresentErrorsAreFatal(t *testing.T) {
	boom := errors.New("surface lost")

	h := newHarness(t, 2, 3)
	h.gpu.acquireErr[1] = boom
	err := h.loop.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), StateAcquireImage.String())
	assert.Equal(t, 1, h.gpu.submitCalls)

	h = newHarness(t, 2, 3)
	h.gpu.presentErr[0] = boom
	err = h.loop.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), StatePresent.String())
}

func TestPendingSubmissionsBounded(t *testing.T) {
	for _, tc := range []struct {
		name           string
		frames, images int
	}{
		{"two frames three images", 2, 3},
		{"three frames two images", 3, 2},
		{"one frame", 1, 3},
		{"four frames four images", 4, 4},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.frames, tc.images)
			h.surface.closeAfter = 50
			require.NoError(t, h.loop.Run(context.Background()))
			assert.Equal(t, 50, h.gpu.presentCalls)
			assert.LessOrEqual(t, h.gpu.maxPending, min(tc.frames, tc.images))
			h.assertSafe(t)
		})
	}
}

func TestImageNotReusedWhilePending(t *testing.T) {
	h := newHarness(t, 3, 3)
	h.surface.closeAfter = 9
	// Images come back out of order so that an image is handed out again
	// while the slot that used it is still pending.
	h.gpu.order = []uint32{0, 1, 1, 2, 0, 0, 2, 1, 2}

	require.NoError(t, h.loop.Run(context.Background()))
	assert.Equal(t, 9, h.gpu.presentCalls)
	h.assertSafe(t)
	assert.Greater(t, h.gpu.waitCalls, 0)
}

func TestZeroExtentBlocksRebuild(t *testing.T) {
	h := newHarness(t, 2, 3)
	h.surface.closeAfter = 6
	h.gpu.presentStatus[2] = StatusOutOfDate
	h.gpu.beforePresent = func(call int) {
		if call == 2 {
			h.surface.width, h.surface.height = 0, 0
			h.surface.sizes = []Extent{{0, 0}, {0, 0}, {800, 600}}
		}
	}

	require.NoError(t, h.loop.Run(context.Background()))

	assert.Equal(t, 3, h.surface.waits)
	assert.Equal(t, 1, h.loop.Rebuilds())
	assert.Equal(t, []Extent{{1280, 720}, {800, 600}}, h.swapchainExtents)
	assert.Equal(t, Extent{800, 600}, h.updates[len(h.updates)-1].Extent)
	h.assertSafe(t)
}

func TestMinimizedWindowClosingAbortsRebuild(t *testing.T) {
	h := newHarness(t, 2, 3)
	h.gpu.presentStatus[1] = StatusOutOfDate
	h.gpu.beforePresent = func(call int) {
		if call == 1 {
			// Minimized and closing at the same time.
			h.surface.width, h.surface.height = 0, 0
			h.surface.closing = true
		}
	}

	require.NoError(t, h.loop.Run(context.Background()))
	assert.Equal(t, 0, h.loop.Rebuilds())
	assert.Equal(t, 0, h.surface.waits)
	assert.Len(t, h.swapchainExtents, 1)
	assert.Empty(t, h.setup.Live())
	assert.Equal(t, 0, h.tracker.Count())
}

func TestRepeatedRebuildDoesNotLeak(t *testing.T) {
	h := newHarness(t, 2, 3)
	require.NoError(t, h.loop.Start())
	assert.Equal(t, 4, h.tracker.CountKind("semaphore"))
	assert.Equal(t, 3, h.tracker.CountKind("framebuffer"))

	require.NoError(t, h.loop.Rebuild())
	require.NoError(t, h.loop.Rebuild())

	assert.Equal(t, 2, h.loop.Rebuilds())
	assert.Equal(t, 2, h.setup.Generation())
	assert.Equal(t, 4, h.tracker.CountKind("semaphore"), "frame slots persist across rebuilds")
	assert.Equal(t, 3, h.tracker.CountKind("framebuffer"))
	assert.Equal(t, 3, h.tracker.CountKind("command buffer"))
	assert.Equal(t, 2, h.gpu.waitIdleCalls)

	require.NoError(t, h.loop.Frame())
	h.setup.Destroy()
	assert.Equal(t, 0, h.tracker.Count())
}

func TestRebuildResizesImageTable(t *testing.T) {
	h := newHarness(t, 2, 2)
	h.imagesAfterRebuild = 4
	h.surface.closeAfter = 8
	h.gpu.presentStatus[1] = StatusOutOfDate
	h.gpu.order = []uint32{0, 1, 3, 2, 1, 0, 3, 2}

	require.NoError(t, h.loop.Run(context.Background()))
	assert.Equal(t, 8, h.gpu.presentCalls)
	h.assertSafe(t)
}

func TestAcquiredImageOutOfRange(t *testing.T) {
	h := newHarness(t, 2, 3)
	h.gpu.acquireImage[0] = 7

	err := h.loop.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), StateWaitForImage.String())
	assert.Equal(t, 0, h.gpu.submitCalls)
}

func TestSuboptimalAcquireRebuildsAfterPresent(t *testing.T) {
	h := newHarness(t, 2, 3)
	h.surface.closeAfter = 4
	h.gpu.acquireStatus[1] = StatusSuboptimal

	require.NoError(t, h.loop.Run(context.Background()))
	assert.Equal(t, 4, h.gpu.presentCalls, "suboptimal image is still presented")
	assert.Equal(t, 1, h.loop.Rebuilds())
	assert.Equal(t, alternating(4, 2), h.gpu.acquiredSlots)
}

func TestRequestResizeRebuildsAfterPresent(t *testing.T) {
	h := newHarness(t, 2, 3)
	require.NoError(t, h.loop.Start())

	require.NoError(t, h.loop.Frame())
	h.surface.width, h.surface.height = 1024, 768
	h.loop.RequestResize()
	require.NoError(t, h.loop.Frame())
	require.NoError(t, h.loop.Frame())

	assert.Equal(t, 1, h.loop.Rebuilds())
	assert.Equal(t, Extent{1024, 768}, h.loop.Extent())
	assert.Equal(t, 1, h.loop.CurrentFrame())
	assert.Equal(t, StateAdvance, h.loop.State())
}

func TestHookFailureIsFatal(t *testing.T) {
	h := newHarness(t, 2, 3)
	boom := errors.New("uniform upload failed")
	h.loop.hooks.Record = func(f Frame) error {
		if f.Number == 3 {
			return boom
		}
		return nil
	}

	err := h.loop.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), StateUpdateState.String())
	assert.Equal(t, 3, h.gpu.submitCalls)
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	h := newHarness(t, 2, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.loop.Run(ctx))
	assert.Equal(t, 0, h.gpu.acquireCalls)
	assert.Len(t, h.swapchainExtents, 1)
	assert.Empty(t, h.setup.Live())
}

func TestStartFailureLeavesNothingAlive(t *testing.T) {
	tracker := core.NewTracker()
	boom := errors.New("no device")
	setup, err := NewSetup(
		Stage{Name: "instance", Create: func(Extent) error {
			tracker.Track("instance", "main")
			return nil
		}, Destroy: func() {
			for _, obj := range tracker.Live() {
				tracker.Release(obj.ID)
			}
		}},
		Stage{Name: "device", Create: func(Extent) error { return boom }},
	)
	require.NoError(t, err)
	loop, err := New(Config{FramesInFlight: 2}, newFakeGPU(2, 3), &fakeSurface{width: 1, height: 1}, setup, Hooks{})
	require.NoError(t, err)

	require.ErrorIs(t, loop.Run(context.Background()), boom)
	assert.Equal(t, 0, tracker.Count())
}
