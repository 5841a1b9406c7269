// Package gfx is the graphics abstraction the world renderer draws through.
//
// A Device creates buffers and pipeline states and flushes queues of
// pipeline states to the GPU. The renderer never talks to a graphics API
// directly; see gldev for the OpenGL backend and memgfx for the recording
// backend used by tests and headless tools.
package gfx

import (
	"errors"
	"unsafe"
)

var (
	// ErrMapFailed is returned when a buffer cannot be mapped for writing.
	ErrMapFailed = errors.New("gfx: buffer map failed")
	// ErrNotMapped is returned when unmapping a buffer that is not mapped.
	ErrNotMapped = errors.New("gfx: buffer not mapped")
	// ErrReleased is returned when using a buffer after Release.
	ErrReleased = errors.New("gfx: buffer released")
)

// BufferKind selects the binding target of a buffer.
type BufferKind int

const (
	VertexBuffer BufferKind = iota
	IndexBuffer
)

// Usage hints how often the CPU rewrites a buffer.
type Usage int

const (
	UsageStatic Usage = iota
	UsageDynamic
)

// MapMode selects how a mapped buffer treats its previous contents.
type MapMode int

const (
	// MapWriteDiscard invalidates the old contents.
	MapWriteDiscard MapMode = iota
	// MapWrite keeps the old contents.
	MapWrite
)

// Buffer is a GPU-visible memory region.
type Buffer interface {
	// Size returns the capacity in bytes.
	Size() int
	// Map returns a writable view of the whole buffer. The view is valid
	// until Unmap.
	Map(mode MapMode) ([]byte, error)
	Unmap() error
	Mapped() bool
	Release() error
}

// Device creates GPU resources and submits pipeline states.
type Device interface {
	// CreateBuffer allocates size bytes, initialised from data when data is
	// not nil.
	CreateBuffer(kind BufferKind, usage Usage, size int, data []byte) (Buffer, error)
	// CreatePipelineState returns a fresh state, or a copy of template when
	// template is not nil.
	CreatePipelineState(template *PipelineState) *PipelineState
	// FillPipelineState (re)builds the API specific objects of ps after its
	// bindings changed.
	FillPipelineState(ps *PipelineState) error
	// ReleasePipelineState frees the objects built by FillPipelineState.
	// Copies made from ps by CreatePipelineState must not be drawn after it.
	ReleasePipelineState(ps *PipelineState)
	// Flush draws every state in q in order and clears q.
	Flush(q *Queue) error
}

// Bytes reinterprets a slice of plain values as raw bytes without copying.
func Bytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}
