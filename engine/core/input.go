package core

import "sync"

type Button uint16

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// Key codes follow the virtual-key numbering; the platform layer maps window
// system keys onto them.
type KeyCode uint16

const (
	KEY_BACKSPACE KeyCode = 0x08
	KEY_TAB       KeyCode = 0x09
	KEY_ENTER     KeyCode = 0x0D
	KEY_SHIFT     KeyCode = 0x10
	KEY_PAUSE     KeyCode = 0x13
	KEY_CAPITAL   KeyCode = 0x14
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20
	KEY_PRIOR     KeyCode = 0x21
	KEY_NEXT      KeyCode = 0x22
	KEY_END       KeyCode = 0x23
	KEY_HOME      KeyCode = 0x24
	KEY_LEFT      KeyCode = 0x25
	KEY_UP        KeyCode = 0x26
	KEY_RIGHT     KeyCode = 0x27
	KEY_DOWN      KeyCode = 0x28
	KEY_PRINT     KeyCode = 0x2A
	KEY_INSERT    KeyCode = 0x2D
	KEY_DELETE    KeyCode = 0x2E
	KEY_0         KeyCode = 0x30
	KEY_1         KeyCode = 0x31
	KEY_2         KeyCode = 0x32
	KEY_3         KeyCode = 0x33
	KEY_4         KeyCode = 0x34
	KEY_5         KeyCode = 0x35
	KEY_6         KeyCode = 0x36
	KEY_7         KeyCode = 0x37
	KEY_8         KeyCode = 0x38
	KEY_9         KeyCode = 0x39
	KEY_A         KeyCode = 0x41
	KEY_B         KeyCode = 0x42
	KEY_C         KeyCode = 0x43
	KEY_D         KeyCode = 0x44
	KEY_E         KeyCode = 0x45
	KEY_F         KeyCode = 0x46
	KEY_G         KeyCode = 0x47
	KEY_H         KeyCode = 0x48
	KEY_I         KeyCode = 0x49
	KEY_J         KeyCode = 0x4A
	KEY_K         KeyCode = 0x4B
	KEY_L         KeyCode = 0x4C
	KEY_M         KeyCode = 0x4D
	KEY_N         KeyCode = 0x4E
	KEY_O         KeyCode = 0x4F
	KEY_P         KeyCode = 0x50
	KEY_Q         KeyCode = 0x51
	KEY_R         KeyCode = 0x52
	KEY_S         KeyCode = 0x53
	KEY_T         KeyCode = 0x54
	KEY_U         KeyCode = 0x55
	KEY_V         KeyCode = 0x56
	KEY_W         KeyCode = 0x57
	KEY_X         KeyCode = 0x58
	KEY_Y         KeyCode = 0x59
	KEY_Z         KeyCode = 0x5A
	KEY_ADD       KeyCode = 0x6B
	KEY_SUBTRACT  KeyCode = 0x6D
	KEY_F1        KeyCode = 0x70
	KEY_F2        KeyCode = 0x71
	KEY_F3        KeyCode = 0x72
	KEY_F4        KeyCode = 0x73
	KEY_F5        KeyCode = 0x74
	KEY_F6        KeyCode = 0x75
	KEY_F7        KeyCode = 0x76
	KEY_F8        KeyCode = 0x77
	KEY_F9        KeyCode = 0x78
	KEY_F10       KeyCode = 0x79
	KEY_F11       KeyCode = 0x7A
	KEY_F12       KeyCode = 0x7B
	KEY_LSHIFT    KeyCode = 0xA0
	KEY_RSHIFT    KeyCode = 0xA1
	KEY_LCONTROL  KeyCode = 0xA2
	KEY_RCONTROL  KeyCode = 0xA3
	KEY_LMENU     KeyCode = 0xA4
	KEY_RMENU     KeyCode = 0xA5
	KEY_SEMICOLON KeyCode = 0xBA
	KEY_PLUS      KeyCode = 0xBB
	KEY_COMMA     KeyCode = 0xBC
	KEY_MINUS     KeyCode = 0xBD
	KEY_PERIOD    KeyCode = 0xBE
	KEY_SLASH     KeyCode = 0xBF
	KEY_GRAVE     KeyCode = 0xC0
	KEYS_MAX_KEYS KeyCode = 0x100
)

type MouseState struct {
	X       float64
	Y       float64
	Buttons [BUTTON_MAX_BUTTONS]bool
}

type KeyboardState struct {
	Keys [KEYS_MAX_KEYS]bool
}

// InputState holds current and previous states for keyboard and mouse.
// Previous is refreshed once per frame by InputUpdate.
type InputState struct {
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
	MouseCurrent     MouseState
	MousePrevious    MouseState
}

var inputMu sync.RWMutex
var inputState *InputState = nil

func InputInitialize() error {
	inputMu.Lock()
	defer inputMu.Unlock()
	inputState = &InputState{}
	LogDebug("input subsystem initialized")
	return nil
}

func InputShutdown() error {
	inputMu.Lock()
	defer inputMu.Unlock()
	inputState = nil
	return nil
}

func InputUpdate() {
	inputMu.Lock()
	defer inputMu.Unlock()
	if inputState == nil {
		return
	}
	inputState.KeyboardPrevious = inputState.KeyboardCurrent
	inputState.MousePrevious = inputState.MouseCurrent
}

func readInput(fn func(s *InputState) bool) bool {
	inputMu.RLock()
	defer inputMu.RUnlock()
	if inputState == nil {
		return false
	}
	return fn(inputState)
}

func InputIsKeyDown(key KeyCode) bool {
	return key < KEYS_MAX_KEYS && readInput(func(s *InputState) bool { return s.KeyboardCurrent.Keys[key] })
}

func InputWasKeyDown(key KeyCode) bool {
	return key < KEYS_MAX_KEYS && readInput(func(s *InputState) bool { return s.KeyboardPrevious.Keys[key] })
}

func InputIsButtonDown(button Button) bool {
	return button < BUTTON_MAX_BUTTONS && readInput(func(s *InputState) bool { return s.MouseCurrent.Buttons[button] })
}

func InputWasButtonDown(button Button) bool {
	return button < BUTTON_MAX_BUTTONS && readInput(func(s *InputState) bool { return s.MousePrevious.Buttons[button] })
}

func InputGetMousePosition() (float64, float64) {
	inputMu.RLock()
	defer inputMu.RUnlock()
	if inputState == nil {
		return 0, 0
	}
	return inputState.MouseCurrent.X, inputState.MouseCurrent.Y
}

func InputGetPreviousMousePosition() (float64, float64) {
	inputMu.RLock()
	defer inputMu.RUnlock()
	if inputState == nil {
		return 0, 0
	}
	return inputState.MousePrevious.X, inputState.MousePrevious.Y
}

// InputProcessKey records a key transition and fires a key event when the
// state actually changed.
func InputProcessKey(key KeyCode, pressed bool) {
	if key >= KEYS_MAX_KEYS {
		return
	}
	inputMu.Lock()
	if inputState == nil || inputState.KeyboardCurrent.Keys[key] == pressed {
		inputMu.Unlock()
		return
	}
	inputState.KeyboardCurrent.Keys[key] = pressed
	inputMu.Unlock()

	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	EventFire(EventContext{Type: code, Data: &KeyEvent{KeyCode: key}})
}

func InputProcessButton(button Button, pressed bool) {
	if button >= BUTTON_MAX_BUTTONS {
		return
	}
	inputMu.Lock()
	if inputState == nil || inputState.MouseCurrent.Buttons[button] == pressed {
		inputMu.Unlock()
		return
	}
	inputState.MouseCurrent.Buttons[button] = pressed
	x, y := inputState.MouseCurrent.X, inputState.MouseCurrent.Y
	inputMu.Unlock()

	code := EVENT_CODE_BUTTON_RELEASED
	if pressed {
		code = EVENT_CODE_BUTTON_PRESSED
	}
	EventFire(EventContext{Type: code, Data: &MouseEvent{Button: button, PosX: x, PosY: y}})
}

func InputProcessMouseMove(x, y float64) {
	inputMu.Lock()
	if inputState == nil || (inputState.MouseCurrent.X == x && inputState.MouseCurrent.Y == y) {
		inputMu.Unlock()
		return
	}
	inputState.MouseCurrent.X = x
	inputState.MouseCurrent.Y = y
	inputMu.Unlock()

	EventFire(EventContext{Type: EVENT_CODE_MOUSE_MOVED, Data: &MouseEvent{PosX: x, PosY: y}})
}

func InputProcessMouseWheel(delta float64) {
	EventFire(EventContext{Type: EVENT_CODE_MOUSE_WHEEL, Data: &MouseEvent{Scroll: delta}})
}
