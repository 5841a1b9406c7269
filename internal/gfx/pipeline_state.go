package gfx

// DrawCallType selects the draw entry point used for a pipeline state.
type DrawCallType int

const (
	DrawIndexed DrawCallType = iota
	DrawIndexedInstanced
)

// TransparencyMode selects blending for a pipeline state.
type TransparencyMode int

const (
	TransparencyNone TransparencyMode = iota
	// TransparencyMasked is alpha-tested geometry.
	TransparencyMasked
	TransparencyBlended
)

const (
	// NoTexture draws a submesh without a texture bound.
	NoTexture uint32 = 0
	// TextureUnresolved marks a state whose texture has not been looked up yet.
	TextureUnresolved uint32 = 0xFFFF
)

// Vertex stream slots.
const (
	StreamGeometry  = 0
	StreamInstances = 1
	NumStreams      = 2
)

// PipelineState bundles everything needed for one draw call.
type PipelineState struct {
	DrawCall     DrawCallType
	Transparency TransparencyMode
	TextureID    uint32

	VertexBuffers [NumStreams]Buffer
	VertexStrides [NumStreams]int
	IndexBuffer   Buffer
	NumIndices    int
	NumVertices   int

	NumInstances   int
	InstanceOffset int

	// InstanceData holds the per-draw constants of a non-instanced draw.
	InstanceData []byte

	// Transient states are created for a single submission and never reused.
	Transient bool

	// Backend holds the objects built by Device.FillPipelineState.
	Backend any
}

// Clone returns a shallow copy of ps. Buffers are shared; InstanceData is copied.
func (ps *PipelineState) Clone() *PipelineState {
	c := *ps
	if ps.InstanceData != nil {
		c.InstanceData = append([]byte(nil), ps.InstanceData...)
	}
	c.Backend = nil
	return &c
}

// Queue is an ordered list of pipeline states waiting to be flushed.
type Queue struct {
	states []*PipelineState
}

// Push appends ps to the queue.
func (q *Queue) Push(ps *PipelineState) {
	q.states = append(q.states, ps)
}

// States returns the queued states. The slice is owned by the queue.
func (q *Queue) States() []*PipelineState {
	return q.states
}

// Len returns the number of queued states.
func (q *Queue) Len() int {
	return len(q.states)
}

// Clear empties the queue, keeping its storage.
func (q *Queue) Clear() {
	clear(q.states)
	q.states = q.states[:0]
}

// Take returns the queued states and leaves the queue empty. The returned
// slice is no longer referenced by the queue.
func (q *Queue) Take() []*PipelineState {
	states := q.states
	q.states = nil
	return states
}
