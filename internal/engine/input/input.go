// Package input turns SDL2 events into viewer controls.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// Input accumulates the controls of one frame.
type Input struct {
	// Quit is set once the window was closed or Escape was pressed.
	Quit bool
	// Resized is set when the window changed size during the frame.
	Resized       bool
	Width, Height int

	// DragX and DragY are the mouse motion while the left button was held.
	DragX, DragY float32
	// Wheel is the vertical scroll of the frame.
	Wheel float32

	pressed  map[sdl.Scancode]bool
	dragging bool
}

// New creates an input handler.
func New() *Input {
	return &Input{pressed: make(map[sdl.Scancode]bool)}
}

// Update polls pending SDL events. It returns true when the viewer should quit.
func (i *Input) Update() bool {
	i.begin()
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		i.handle(event)
	}
	return i.Quit
}

func (i *Input) begin() {
	i.Resized = false
	i.DragX, i.DragY, i.Wheel = 0, 0, 0
	clear(i.pressed)
}

func (i *Input) handle(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		i.Quit = true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			i.Resized = true
			i.Width, i.Height = int(e.Data1), int(e.Data2)
		}

	case *sdl.KeyboardEvent:
		if e.Type == sdl.KEYDOWN && e.Repeat == 0 {
			i.pressed[e.Keysym.Scancode] = true
			if e.Keysym.Scancode == sdl.SCANCODE_ESCAPE {
				i.Quit = true
			}
		}

	case *sdl.MouseButtonEvent:
		if e.Button == sdl.BUTTON_LEFT {
			i.dragging = e.Type == sdl.MOUSEBUTTONDOWN
		}

	case *sdl.MouseMotionEvent:
		if i.dragging {
			i.DragX += float32(e.XRel)
			i.DragY += float32(e.YRel)
		}

	case *sdl.MouseWheelEvent:
		i.Wheel += float32(e.Y)
	}
}

// Pressed reports whether key went down during the last Update.
func (i *Input) Pressed(key sdl.Scancode) bool {
	return i.pressed[key]
}

// Axes returns the held WASD/QE movement as forward, right and up in [-1, 1].
func Axes() (forward, right, up float32) {
	keys := sdl.GetKeyboardState()
	axis := func(pos, neg sdl.Scancode) float32 {
		var v float32
		if keys[pos] != 0 {
			v++
		}
		if keys[neg] != 0 {
			v--
		}
		return v
	}
	return axis(sdl.SCANCODE_W, sdl.SCANCODE_S),
		axis(sdl.SCANCODE_D, sdl.SCANCODE_A),
		axis(sdl.SCANCODE_E, sdl.SCANCODE_Q)
}
