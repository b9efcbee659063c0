package input

import (
	"testing"

	"github.com/veandco/go-sdl2/sdl"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name  string
		event sdl.Event
		want  Event
		ok    bool
	}{
		{"quit", &sdl.QuitEvent{}, Event{Type: EventQuit}, true},
		{"resize", &sdl.WindowEvent{Event: sdl.WINDOWEVENT_RESIZED, Data1: 800, Data2: 600}, Event{Type: EventWindowResize, Width: 800, Height: 600}, true},
		{"focus gained is ignored", &sdl.WindowEvent{Event: sdl.WINDOWEVENT_FOCUS_GAINED}, Event{}, false},
		{"key down", &sdl.KeyboardEvent{Type: sdl.KEYDOWN, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_W}}, Event{Type: EventKeyDown, Key: sdl.SCANCODE_W}, true},
		{"key repeat", &sdl.KeyboardEvent{Type: sdl.KEYDOWN, Repeat: 1}, Event{}, false},
		{"key up", &sdl.KeyboardEvent{Type: sdl.KEYUP, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_S}}, Event{Type: EventKeyUp, Key: sdl.SCANCODE_S}, true},
		{"motion", &sdl.MouseMotionEvent{X: 10, Y: 20, XRel: -3, YRel: 4, State: 4}, Event{Type: EventMouseMove, MouseX: 10, MouseY: 20, DeltaX: -3, DeltaY: 4, Held: 4}, true},
		{"click", &sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONDOWN, X: 5, Y: 6, Button: sdl.BUTTON_LEFT}, Event{Type: EventMouseDown, MouseX: 5, MouseY: 6, Button: sdl.BUTTON_LEFT}, true},
		{"wheel", &sdl.MouseWheelEvent{Y: -1}, Event{Type: EventMouseWheel, DeltaY: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := convert(tt.event)
			if ok != tt.ok || got != tt.want {
				t.Errorf("convert() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestAxis(t *testing.T) {
	in := New()
	in.keys = make([]uint8, sdl.NUM_SCANCODES)
	in.keys[sdl.SCANCODE_W] = 1
	if got := in.Axis(sdl.SCANCODE_W, sdl.SCANCODE_S); got != 1 {
		t.Errorf("Axis() = %v, want 1", got)
	}
	in.keys[sdl.SCANCODE_S] = 1
	if got := in.Axis(sdl.SCANCODE_W, sdl.SCANCODE_S); got != 0 {
		t.Errorf("Axis() = %v, want 0", got)
	}
}
