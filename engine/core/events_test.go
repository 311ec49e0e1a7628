package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEvents(t *testing.T) {
	t.Helper()
	require.True(t, EventSystemInitialize())
	t.Cleanup(func() { _ = EventSystemShutdown() })
}

func TestEventsDeliveredOnProcess(t *testing.T) {
	withEvents(t)

	var got []uint32
	ok := EventRegister(EVENT_CODE_RESIZED, "resize", func(context EventContext) bool {
		se := context.Data.(*SystemEvent)
		got = append(got, se.WindowWidth)
		return false
	})
	require.True(t, ok)

	EventFire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 640, WindowHeight: 480}})
	EventFire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 800, WindowHeight: 600}})
	assert.Empty(t, got, "events are queued until processed")

	assert.Equal(t, 2, ProcessEvents())
	assert.Equal(t, []uint32{640, 800}, got)
}

func TestEventsHandledStopsPropagation(t *testing.T) {
	withEvents(t)

	calls := 0
	EventRegister(EVENT_CODE_KEY_PRESSED, "first", func(EventContext) bool {
		calls++
		return true
	})
	EventRegister(EVENT_CODE_KEY_PRESSED, "second", func(EventContext) bool {
		calls++
		return true
	})
	EventFire(EventContext{Type: EVENT_CODE_KEY_PRESSED, Data: &KeyEvent{KeyCode: KEY_A}})
	ProcessEvents()
	assert.Equal(t, 1, calls)
}

func TestEventsDuplicateAndUnregister(t *testing.T) {
	withEvents(t)

	fn := func(EventContext) bool { return false }
	assert.True(t, EventRegister(EVENT_CODE_MOUSE_WHEEL, "cam", fn))
	assert.False(t, EventRegister(EVENT_CODE_MOUSE_WHEEL, "cam", fn))
	assert.True(t, EventUnregister(EVENT_CODE_MOUSE_WHEEL, "cam"))
	assert.False(t, EventUnregister(EVENT_CODE_MOUSE_WHEEL, "cam"))
}

func TestEventsNotInitialized(t *testing.T) {
	assert.False(t, EventFire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}))
	assert.Equal(t, 0, ProcessEvents())
}
