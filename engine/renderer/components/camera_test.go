package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vkbase/engine/core"
	"github.com/spaghettifunk/vkbase/engine/math"
)

func TestCameraPosition(t *testing.T) {
	c := NewCamera(math.NewVec3Zero(), 5)
	assert.True(t, c.Position().Compare(math.NewVec3(0, 0, 5), 1e-5))

	c.Rotate(90, 0)
	assert.True(t, c.Position().Compare(math.NewVec3(5, 0, 0), 1e-4), "%v", c.Position())

	c.Rotate(0, 200)
	assert.Equal(t, float32(89), c.Pitch)
	c.Rotate(0, -500)
	assert.Equal(t, float32(-89), c.Pitch)
}

func TestCameraYawWraps(t *testing.T) {
	c := NewCamera(math.NewVec3Zero(), 5)
	c.Rotate(-30, 0)
	assert.InDelta(t, 330, c.Yaw, 1e-4)
	c.Rotate(400, 0)
	assert.InDelta(t, 10, c.Yaw, 1e-4)
}

func TestCameraZoomClamps(t *testing.T) {
	c := NewCamera(math.NewVec3Zero(), 10)
	c.Zoom(1)
	assert.InDelta(t, 9, c.Distance, 1e-4)
	c.Zoom(-1)
	assert.InDelta(t, 9.9, c.Distance, 1e-4)

	c.MinDistance = 2
	for i := 0; i < 100; i++ {
		c.Zoom(5)
	}
	assert.Equal(t, float32(2), c.Distance)
}

func TestCameraViewCached(t *testing.T) {
	c := NewCamera(math.NewVec3(1, 2, 3), 4)
	v := c.View()
	// the eye maps to the origin of view space
	eye := c.Position().Transform(v)
	assert.True(t, eye.Compare(math.NewVec3Zero(), 1e-4), "%v", eye)

	c.Rotate(45, 10)
	assert.False(t, c.View().Compare(v, 1e-6))
}

func TestCameraEvents(t *testing.T) {
	require.True(t, core.EventSystemInitialize())
	t.Cleanup(func() { _ = core.EventSystemShutdown() })
	require.NoError(t, core.InputInitialize())
	t.Cleanup(func() { _ = core.InputShutdown() })

	c := NewCamera(math.NewVec3Zero(), 10)
	c.Attach()
	defer c.Detach()

	core.EventFire(core.EventContext{Type: core.EVENT_CODE_MOUSE_WHEEL, Data: &core.MouseEvent{Scroll: 1}})
	core.ProcessEvents()
	assert.InDelta(t, 9, c.Distance, 1e-4)

	// moving without a button held does not orbit
	core.EventFire(core.EventContext{Type: core.EVENT_CODE_MOUSE_MOVED, Data: &core.MouseEvent{PosX: 10, PosY: 10}})
	core.ProcessEvents()
	assert.Equal(t, float32(0), c.Yaw)

	core.InputProcessButton(core.BUTTON_LEFT, true)
	core.InputProcessMouseMove(100, 100)
	core.InputProcessMouseMove(110, 100)
	core.ProcessEvents()
	assert.InDelta(t, 357, c.Yaw, 1e-3)

	c.Detach()
	core.EventFire(core.EventContext{Type: core.EVENT_CODE_MOUSE_WHEEL, Data: &core.MouseEvent{Scroll: 1}})
	core.ProcessEvents()
	assert.InDelta(t, 9, c.Distance, 1e-4)
}
