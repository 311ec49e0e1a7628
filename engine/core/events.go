package core

import (
	"sync"

	"github.com/spaghettifunk/vkbase/engine/containers"
)

// System internal event codes. Application should use codes beyond 255.
type EventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01
	// Keyboard key pressed. Data is *KeyEvent.
	EVENT_CODE_KEY_PRESSED EventCode = 0x02
	// Keyboard key released. Data is *KeyEvent.
	EVENT_CODE_KEY_RELEASED EventCode = 0x03
	// Mouse button pressed. Data is *MouseEvent.
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04
	// Mouse button released. Data is *MouseEvent.
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05
	// Mouse moved. Data is *MouseEvent.
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06
	// Mouse wheel scrolled. Data is *MouseEvent.
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07
	// Framebuffer resized/resolution changed from the OS. Data is *SystemEvent.
	EVENT_CODE_RESIZED EventCode = 0x08

	MAX_EVENT_CODE EventCode = 0xFF
)

// MAX_QUEUED_EVENTS bounds the events buffered between two ProcessEvents calls.
const MAX_QUEUED_EVENTS = 1024

type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   float64
	PosY   float64
	Scroll float64
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

// Should return true if handled.
type FnOnEvent func(context EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventSystemState struct {
	registered map[EventCode][]*registeredEvent
	queue      *containers.RingQueue[EventContext]
}

var eventMu sync.Mutex
var eventState *eventSystemState = nil

func EventSystemInitialize() bool {
	eventMu.Lock()
	defer eventMu.Unlock()
	if eventState != nil {
		return false
	}
	eventState = &eventSystemState{
		registered: make(map[EventCode][]*registeredEvent),
		queue:      containers.NewRingQueue[EventContext](MAX_QUEUED_EVENTS),
	}
	return true
}

func EventSystemShutdown() error {
	eventMu.Lock()
	defer eventMu.Unlock()
	eventState = nil
	return nil
}

// EventRegister listens for events with the provided code. listener must be
// comparable; a duplicate listener for the same code is rejected.
func EventRegister(code EventCode, listener interface{}, onEvent FnOnEvent) bool {
	eventMu.Lock()
	defer eventMu.Unlock()
	if eventState == nil || onEvent == nil {
		return false
	}
	for _, e := range eventState.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	eventState.registered[code] = append(eventState.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

func EventUnregister(code EventCode, listener interface{}) bool {
	eventMu.Lock()
	defer eventMu.Unlock()
	if eventState == nil {
		return false
	}
	events := eventState.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eventState.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// EventFire queues an event. Queued events are delivered by ProcessEvents on
// the thread that drives the frame loop. When the queue is full the event is
// delivered immediately.
func EventFire(context EventContext) bool {
	eventMu.Lock()
	if eventState == nil {
		eventMu.Unlock()
		return false
	}
	err := eventState.queue.Enqueue(context)
	eventMu.Unlock()
	if err != nil {
		LogWarn("event queue full, dispatching event %d synchronously", context.Type)
		return dispatch(context)
	}
	return true
}

// ProcessEvents drains the queue and returns the number of events delivered.
func ProcessEvents() int {
	count := 0
	for {
		eventMu.Lock()
		if eventState == nil {
			eventMu.Unlock()
			return count
		}
		context, err := eventState.queue.Dequeue()
		eventMu.Unlock()
		if err != nil {
			return count
		}
		dispatch(context)
		count++
	}
}

// If an event handler returns true, the event is considered handled and is
// not passed on to any more listeners.
func dispatch(context EventContext) bool {
	eventMu.Lock()
	if eventState == nil {
		eventMu.Unlock()
		return false
	}
	listeners := append([]*registeredEvent(nil), eventState.registered[context.Type]...)
	eventMu.Unlock()

	for _, e := range listeners {
		if e.callback(context) {
			return true
		}
	}
	return false
}
