package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputKeyTransitions(t *testing.T) {
	withEvents(t)
	require.NoError(t, InputInitialize())
	t.Cleanup(func() { _ = InputShutdown() })

	pressed := 0
	EventRegister(EVENT_CODE_KEY_PRESSED, "test", func(context EventContext) bool {
		assert.Equal(t, KEY_W, context.Data.(*KeyEvent).KeyCode)
		pressed++
		return true
	})

	InputProcessKey(KEY_W, true)
	InputProcessKey(KEY_W, true)
	assert.True(t, InputIsKeyDown(KEY_W))
	assert.False(t, InputWasKeyDown(KEY_W))

	InputUpdate()
	assert.True(t, InputWasKeyDown(KEY_W))

	ProcessEvents()
	assert.Equal(t, 1, pressed, "repeated press of a held key fires once")
}

func TestInputMouse(t *testing.T) {
	withEvents(t)
	require.NoError(t, InputInitialize())
	t.Cleanup(func() { _ = InputShutdown() })

	InputProcessMouseMove(10, 20)
	InputUpdate()
	InputProcessMouseMove(15, 25)
	InputProcessButton(BUTTON_LEFT, true)

	x, y := InputGetMousePosition()
	assert.Equal(t, 15.0, x)
	assert.Equal(t, 25.0, y)
	px, py := InputGetPreviousMousePosition()
	assert.Equal(t, 10.0, px)
	assert.Equal(t, 20.0, py)
	assert.True(t, InputIsButtonDown(BUTTON_LEFT))
	assert.False(t, InputWasButtonDown(BUTTON_LEFT))
	assert.Equal(t, 3, ProcessEvents())
}

func TestInputUninitialized(t *testing.T) {
	assert.False(t, InputIsKeyDown(KEY_A))
	InputProcessKey(KEY_A, true)
	assert.False(t, InputIsKeyDown(KEY_A))
}
