package gldev

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/zenbsp/internal/gfx"
)

// Buffers are uploaded and mapped through the copy-write target so no
// vertex array has to be bound.
const stagingTarget = gl.COPY_WRITE_BUFFER

// Buffer is a GL buffer object.
type Buffer struct {
	name     uint32
	kind     gfx.BufferKind
	size     int
	view     []byte
	mapped   bool
	released bool
}

var _ gfx.Buffer = (*Buffer)(nil)

// CreateBuffer allocates a GL buffer of size bytes.
func (d *Device) CreateBuffer(kind gfx.BufferKind, usage gfx.Usage, size int, data []byte) (gfx.Buffer, error) {
	if size < 0 || len(data) > size {
		return nil, fmt.Errorf("gldev: invalid buffer size %d for %d bytes of data", size, len(data))
	}
	b := &Buffer{kind: kind, size: size}
	gl.GenBuffers(1, &b.name)
	gl.BindBuffer(stagingTarget, b.name)
	hint := uint32(gl.STATIC_DRAW)
	if usage == gfx.UsageDynamic {
		hint = gl.DYNAMIC_DRAW
	}
	gl.BufferData(stagingTarget, size, nil, hint)
	if len(data) > 0 {
		gl.BufferSubData(stagingTarget, 0, len(data), gl.Ptr(&data[0]))
	}
	gl.BindBuffer(stagingTarget, 0)
	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteBuffers(1, &b.name)
		return nil, fmt.Errorf("gldev: create buffer of %d bytes: GL error 0x%x", size, code)
	}
	return b, nil
}

// Size returns the capacity in bytes.
func (b *Buffer) Size() int {
	return b.size
}

// Map maps the whole buffer for writing.
func (b *Buffer) Map(mode gfx.MapMode) ([]byte, error) {
	if b.released {
		return nil, gfx.ErrReleased
	}
	if b.mapped {
		return b.view, nil
	}
	if b.size == 0 {
		b.mapped = true
		b.view = []byte{}
		return b.view, nil
	}
	access := uint32(gl.MAP_WRITE_BIT)
	if mode == gfx.MapWriteDiscard {
		access |= gl.MAP_INVALIDATE_BUFFER_BIT
	}
	gl.BindBuffer(stagingTarget, b.name)
	ptr := gl.MapBufferRange(stagingTarget, 0, b.size, access)
	gl.BindBuffer(stagingTarget, 0)
	if ptr == nil {
		return nil, fmt.Errorf("gldev: map buffer %d: %w", b.name, gfx.ErrMapFailed)
	}
	b.view = unsafe.Slice((*byte)(ptr), b.size)
	b.mapped = true
	return b.view, nil
}

// Unmap releases the mapped view. Contents lost by the driver while
// mapped are reported as ErrMapFailed.
func (b *Buffer) Unmap() error {
	if !b.mapped {
		return gfx.ErrNotMapped
	}
	b.mapped = false
	b.view = nil
	if b.size == 0 {
		return nil
	}
	gl.BindBuffer(stagingTarget, b.name)
	ok := gl.UnmapBuffer(stagingTarget)
	gl.BindBuffer(stagingTarget, 0)
	if !ok {
		return fmt.Errorf("gldev: buffer %d contents lost while mapped: %w", b.name, gfx.ErrMapFailed)
	}
	return nil
}

// Mapped reports whether the buffer is currently mapped.
func (b *Buffer) Mapped() bool {
	return b.mapped
}

// Release deletes the GL buffer, unmapping it first if needed.
func (b *Buffer) Release() error {
	if b.released {
		return nil
	}
	var err error
	if b.mapped {
		err = b.Unmap()
	}
	gl.DeleteBuffers(1, &b.name)
	b.released = true
	return err
}
