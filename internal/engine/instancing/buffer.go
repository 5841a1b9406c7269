package instancing

import (
	"errors"
	"fmt"

	"github.com/Faultbox/zenbsp/internal/gfx"
)

// DefaultCapacity is the initial record capacity of a new Buffer.
const DefaultCapacity = 64

// ErrNotMapped is returned by Append outside a mapping session.
var ErrNotMapped = errors.New("instancing: buffer not mapped")

// Buffer is a growable GPU vertex buffer of instance records.
//
// A frame writes records between Begin and End. Records appended during
// the session are also kept on the CPU, so a Grow in the middle of a
// session carries them over into the new buffer. Capacity only grows.
type Buffer struct {
	dev      gfx.Device
	gpu      gfx.Buffer
	capacity int

	view   []byte
	frame  []Record
	grows  int
	failed bool
}

// NewBuffer allocates a dynamic vertex buffer for capacity records.
func NewBuffer(dev gfx.Device, capacity int) (*Buffer, error) {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	gpu, err := dev.CreateBuffer(gfx.VertexBuffer, gfx.UsageDynamic, capacity*RecordSize, nil)
	if err != nil {
		return nil, fmt.Errorf("creating instance buffer: %w", err)
	}
	return &Buffer{dev: dev, gpu: gpu, capacity: capacity}, nil
}

// GPU returns the buffer to bind as the instance stream. It changes after
// a Grow.
func (b *Buffer) GPU() gfx.Buffer { return b.gpu }

// Capacity returns the number of records the buffer holds.
func (b *Buffer) Capacity() int { return b.capacity }

// Len returns the number of records written in the current session.
func (b *Buffer) Len() int { return len(b.frame) }

// Grows returns how many times the buffer was reallocated.
func (b *Buffer) Grows() int { return b.grows }

// Mapped reports whether a session is open.
func (b *Buffer) Mapped() bool { return b.view != nil }

// Records returns the records of the current or last session.
func (b *Buffer) Records() []Record { return b.frame }

// Reset forgets the records of the previous session.
func (b *Buffer) Reset() {
	b.frame = b.frame[:0]
	b.failed = false
}

// Begin maps the buffer with discard semantics and starts a session.
// A failed map leaves the session closed until the next Reset.
func (b *Buffer) Begin() error {
	if b.view != nil {
		return nil
	}
	b.frame = b.frame[:0]
	view, err := b.gpu.Map(gfx.MapWriteDiscard)
	if err != nil {
		b.failed = true
		return err
	}
	b.failed = false
	b.view = view
	return nil
}

// Failed reports whether mapping failed during the current session.
func (b *Buffer) Failed() bool { return b.failed }

// Append writes r after the records already in the session, growing the
// buffer when it is full.
func (b *Buffer) Append(r Record) error {
	if b.view == nil {
		return ErrNotMapped
	}
	if len(b.frame) >= b.capacity {
		if err := b.Grow(len(b.frame)); err != nil {
			return err
		}
	}
	b.frame = append(b.frame, r)
	n := len(b.frame) - 1
	copy(b.view[n*RecordSize:], gfx.Bytes(b.frame[n:]))
	return nil
}

// Grow reallocates the buffer at twice the larger of count and the
// current capacity. An open session is unmapped first and reopened on
// the new buffer with its records rewritten. If any step fails the
// session is closed and its records are discarded.
func (b *Buffer) Grow(count int) error {
	wasMapped := b.view != nil
	if err := b.grow(count, wasMapped); err != nil {
		if wasMapped {
			b.view = nil
			b.frame = b.frame[:0]
			b.failed = true
		}
		return err
	}
	return nil
}

func (b *Buffer) grow(count int, wasMapped bool) error {
	if wasMapped {
		if err := b.gpu.Unmap(); err != nil {
			return fmt.Errorf("unmapping instance buffer: %w", err)
		}
		b.view = nil
	}

	capacity := max(count, b.capacity) * 2
	gpu, err := b.dev.CreateBuffer(gfx.VertexBuffer, gfx.UsageDynamic, capacity*RecordSize, nil)
	if err != nil {
		return fmt.Errorf("growing instance buffer to %d records: %w", capacity, err)
	}
	old := b.gpu
	b.gpu = gpu
	b.capacity = capacity
	b.grows++
	if err := old.Release(); err != nil {
		return fmt.Errorf("releasing old instance buffer: %w", err)
	}

	if !wasMapped {
		return nil
	}
	view, err := b.gpu.Map(gfx.MapWriteDiscard)
	if err != nil {
		return fmt.Errorf("remapping grown instance buffer: %w", err)
	}
	b.view = view
	copy(b.view, gfx.Bytes(b.frame))
	return nil
}

// End closes the session. Records stay readable until the next Begin.
func (b *Buffer) End() error {
	if b.view == nil {
		return nil
	}
	b.view = nil
	return b.gpu.Unmap()
}

// Release frees the GPU buffer.
func (b *Buffer) Release() error {
	if b.view != nil {
		b.view = nil
		_ = b.gpu.Unmap()
	}
	return b.gpu.Release()
}
