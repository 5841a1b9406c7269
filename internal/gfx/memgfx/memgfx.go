// Package memgfx implements gfx.Device on plain memory.
//
// Buffers are byte slices and Flush records what would have been drawn.
// It backs the unit tests and the headless bspstat tool.
package memgfx

import (
	"fmt"

	"github.com/Faultbox/zenbsp/internal/gfx"
)

// Draw is a snapshot of one submitted pipeline state.
type Draw struct {
	State          *gfx.PipelineState
	DrawCall       gfx.DrawCallType
	TextureID      uint32
	NumInstances   int
	InstanceOffset int
	Transient      bool
}

// Device records resource usage and submissions.
type Device struct {
	// FailMaps makes the next FailMaps calls to Buffer.Map fail.
	FailMaps int

	// Frames holds one entry per Flush call.
	Frames [][]Draw

	BuffersCreated  int
	BuffersReleased int
	StatesCreated   int
	StatesFilled    int
	StatesReleased  int

	live   map[*Buffer]struct{}
	states map[*gfx.PipelineState]struct{}
}

// New returns an empty recording device.
func New() *Device {
	return &Device{
		live:   make(map[*Buffer]struct{}),
		states: make(map[*gfx.PipelineState]struct{}),
	}
}

var _ gfx.Device = (*Device)(nil)

// CreateBuffer allocates a zeroed byte slice of the requested size.
func (d *Device) CreateBuffer(kind gfx.BufferKind, usage gfx.Usage, size int, data []byte) (gfx.Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("memgfx: negative buffer size %d", size)
	}
	if len(data) > size {
		return nil, fmt.Errorf("memgfx: %d bytes of initial data exceed buffer size %d", len(data), size)
	}
	b := &Buffer{dev: d, Kind: kind, Usage: usage, data: make([]byte, size)}
	copy(b.data, data)
	d.BuffersCreated++
	d.live[b] = struct{}{}
	return b, nil
}

// CreatePipelineState returns a new state or a clone of template.
func (d *Device) CreatePipelineState(template *gfx.PipelineState) *gfx.PipelineState {
	d.StatesCreated++
	if template == nil {
		return &gfx.PipelineState{TextureID: gfx.TextureUnresolved}
	}
	return template.Clone()
}

// FillPipelineState only counts the call.
func (d *Device) FillPipelineState(ps *gfx.PipelineState) error {
	d.StatesFilled++
	ps.Backend = d.StatesFilled
	d.states[ps] = struct{}{}
	return nil
}

// ReleasePipelineState forgets a filled state.
func (d *Device) ReleasePipelineState(ps *gfx.PipelineState) {
	ps.Backend = nil
	if _, ok := d.states[ps]; !ok {
		return
	}
	delete(d.states, ps)
	d.StatesReleased++
}

// LiveStates returns the number of filled states not yet released.
func (d *Device) LiveStates() int {
	return len(d.states)
}

// Flush records every queued state and clears the queue. States that
// reference released or still mapped buffers are rejected.
func (d *Device) Flush(q *gfx.Queue) error {
	frame := make([]Draw, 0, q.Len())
	for _, ps := range q.States() {
		if err := checkBindings(ps); err != nil {
			q.Clear()
			return err
		}
		frame = append(frame, Draw{
			State:          ps,
			DrawCall:       ps.DrawCall,
			TextureID:      ps.TextureID,
			NumInstances:   ps.NumInstances,
			InstanceOffset: ps.InstanceOffset,
			Transient:      ps.Transient,
		})
	}
	d.Frames = append(d.Frames, frame)
	q.Clear()
	return nil
}

func checkBindings(ps *gfx.PipelineState) error {
	bufs := []gfx.Buffer{ps.IndexBuffer}
	bufs = append(bufs, ps.VertexBuffers[:]...)
	for _, b := range bufs {
		mb, ok := b.(*Buffer)
		if !ok || mb == nil {
			continue
		}
		if mb.released {
			return fmt.Errorf("memgfx: draw uses released buffer: %w", gfx.ErrReleased)
		}
		if mb.mapped {
			return fmt.Errorf("memgfx: draw uses buffer that is still mapped")
		}
	}
	return nil
}

// LastFrame returns the draws of the most recent Flush.
func (d *Device) LastFrame() []Draw {
	if len(d.Frames) == 0 {
		return nil
	}
	return d.Frames[len(d.Frames)-1]
}

// LiveBuffers returns the number of buffers not yet released.
func (d *Device) LiveBuffers() int {
	return len(d.live)
}

// Buffer is a byte slice pretending to be GPU memory.
type Buffer struct {
	Kind  gfx.BufferKind
	Usage gfx.Usage
	// Maps counts successful Map calls.
	Maps int

	dev      *Device
	data     []byte
	mapped   bool
	released bool
}

// Size returns the buffer capacity in bytes.
func (b *Buffer) Size() int {
	return len(b.data)
}

// Map returns the backing slice. MapWriteDiscard zeroes it first.
func (b *Buffer) Map(mode gfx.MapMode) ([]byte, error) {
	if b.released {
		return nil, gfx.ErrReleased
	}
	if b.dev.FailMaps > 0 {
		b.dev.FailMaps--
		return nil, gfx.ErrMapFailed
	}
	if mode == gfx.MapWriteDiscard {
		clear(b.data)
	}
	b.mapped = true
	b.Maps++
	return b.data, nil
}

// Unmap ends the mapping session.
func (b *Buffer) Unmap() error {
	if !b.mapped {
		return gfx.ErrNotMapped
	}
	b.mapped = false
	return nil
}

// Mapped reports whether the buffer is currently mapped.
func (b *Buffer) Mapped() bool {
	return b.mapped
}

// Release frees the buffer. Releasing twice is an error.
func (b *Buffer) Release() error {
	if b.released {
		return gfx.ErrReleased
	}
	b.released = true
	b.mapped = false
	b.dev.BuffersReleased++
	delete(b.dev.live, b)
	return nil
}

// Released reports whether Release was called.
func (b *Buffer) Released() bool {
	return b.released
}

// Contents returns the buffer bytes for inspection.
func (b *Buffer) Contents() []byte {
	return b.data
}
