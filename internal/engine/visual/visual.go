// Package visual turns host mesh assets into pipeline states.
//
// A Visual is shared by every object showing the same asset. Static
// meshes batch their instances of a frame into one instanced draw per
// submesh; the other variants are drawn immediately, one transient draw
// per submesh and object.
package visual

import (
	"errors"
	"fmt"
	"unsafe"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/zenbsp/internal/engine/instancing"
	"github.com/Faultbox/zenbsp/internal/gfx"
	"github.com/Faultbox/zenbsp/internal/host"
)

// ErrUnknownVisualType is returned by New for visual types the renderer
// cannot draw.
var ErrUnknownVisualType = errors.New("visual: unknown visual type")

// DefaultTextureTimeout is how long a texture lookup may wait for the
// host cache, in seconds.
const DefaultTextureTimeout float32 = 0.6

var vertexStride = int(unsafe.Sizeof(host.Vertex{}))

// Options configures new visuals.
type Options struct {
	// InstanceCapacity is the initial record capacity of instance buffers.
	InstanceCapacity int
	// TextureTimeout bounds non-forced texture cache requests.
	TextureTimeout float32
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		InstanceCapacity: instancing.DefaultCapacity,
		TextureTimeout:   DefaultTextureTimeout,
	}
}

// DrawContext is the per-traversal state threaded through every draw.
type DrawContext struct {
	// Queue receives the states to submit.
	Queue *gfx.Queue
	// ForceResidency makes texture lookups block until the texture is
	// loaded. It is set while baking.
	ForceResidency bool
}

type frameState int

const (
	idle frameState = iota
	accumulating
	flushed
)

// part is one submesh with its geometry and states.
type part struct {
	mat       host.Material
	vertices  gfx.Buffer
	indices   gfx.Buffer
	immediate *gfx.PipelineState
	// resolved is set once the immediate state carries a real texture id.
	resolved bool
}

// Visual is the renderer side of one host mesh asset.
type Visual struct {
	kind host.VisualType
	src  host.VisualSource
	dev  gfx.Device
	log  *zap.Logger
	opts Options

	parts []part

	// Instancing engine, static meshes only. instanced is parallel to parts.
	instanced []*gfx.PipelineState
	inst      *instancing.Buffer
	state     frameState
	mapFailed bool
	dropped   int
}

// New creates the visual for src. Types outside the known variants yield
// ErrUnknownVisualType.
func New(src host.VisualSource, dev gfx.Device, opts Options, log *zap.Logger) (*Visual, error) {
	switch src.Type() {
	case host.VisualStaticMesh, host.VisualSkeletalMesh, host.VisualMorphMesh,
		host.VisualParticleFX, host.VisualDecal:
	default:
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnknownVisualType, src.Type(), src.Name())
	}
	if opts.TextureTimeout == 0 {
		opts.TextureTimeout = DefaultTextureTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	v := &Visual{
		kind: src.Type(),
		src:  src,
		dev:  dev,
		log:  log.With(zap.String("visual", src.Name())),
		opts: opts,
	}
	for _, sub := range src.Submeshes() {
		p, err := v.newPart(sub)
		if err != nil {
			return nil, multierr.Append(err, v.Release())
		}
		v.parts = append(v.parts, p)
	}
	if v.Instanceable() {
		if err := v.newInstanceResources(); err != nil {
			return nil, multierr.Append(err, v.Release())
		}
	}
	return v, nil
}

func (v *Visual) newPart(sub host.Submesh) (part, error) {
	vb, err := v.dev.CreateBuffer(gfx.VertexBuffer, gfx.UsageStatic,
		len(sub.Vertices)*vertexStride, gfx.Bytes(sub.Vertices))
	if err != nil {
		return part{}, fmt.Errorf("creating vertex buffer of %s: %w", v.src.Name(), err)
	}
	ib, err := v.dev.CreateBuffer(gfx.IndexBuffer, gfx.UsageStatic,
		len(sub.Indices)*4, gfx.Bytes(sub.Indices))
	if err != nil {
		return part{}, multierr.Append(
			fmt.Errorf("creating index buffer of %s: %w", v.src.Name(), err),
			vb.Release())
	}

	p := part{mat: sub.Material, vertices: vb, indices: ib}
	p.immediate = v.newState(p, gfx.DrawIndexed)
	if err := v.dev.FillPipelineState(p.immediate); err != nil {
		return part{}, multierr.Combine(err, vb.Release(), ib.Release())
	}
	return p, nil
}

// newState returns an unresolved state drawing the geometry of p.
func (v *Visual) newState(p part, call gfx.DrawCallType) *gfx.PipelineState {
	ps := v.dev.CreatePipelineState(nil)
	ps.DrawCall = call
	ps.TextureID = gfx.TextureUnresolved
	if p.mat != nil && p.mat.AlphaFunc() > 1 {
		ps.Transparency = gfx.TransparencyMasked
	}
	ps.VertexBuffers[gfx.StreamGeometry] = p.vertices
	ps.VertexStrides[gfx.StreamGeometry] = vertexStride
	ps.IndexBuffer = p.indices
	ps.NumIndices = p.indexCount()
	ps.NumVertices = p.vertices.Size() / vertexStride
	return ps
}

func (p part) indexCount() int { return p.indices.Size() / 4 }

// Kind returns the variant tag.
func (v *Visual) Kind() host.VisualType { return v.kind }

// Source returns the host asset.
func (v *Visual) Source() host.VisualSource { return v.src }

// Name returns the asset name.
func (v *Visual) Name() string { return v.src.Name() }

// Size returns the asset extent used for small-object classification.
func (v *Visual) Size() float32 { return v.src.Size() }

// Instanceable reports whether the visual batches instances.
func (v *Visual) Instanceable() bool { return v.kind == host.VisualStaticMesh }

// NumParts returns the number of submeshes.
func (v *Visual) NumParts() int { return len(v.parts) }

// InstancedStates returns the instanced states, one per submesh. It is
// nil for visuals that are not instanceable.
func (v *Visual) InstancedStates() []*gfx.PipelineState { return v.instanced }

// ImmediateStates returns the immediate templates, one per submesh.
func (v *Visual) ImmediateStates() []*gfx.PipelineState {
	out := make([]*gfx.PipelineState, len(v.parts))
	for i := range v.parts {
		out[i] = v.parts[i].immediate
	}
	return out
}

// Textures returns the material texture of every submesh; entries are nil
// for untextured materials.
func (v *Visual) Textures() []host.Texture {
	out := make([]host.Texture, len(v.parts))
	for i, p := range v.parts {
		if p.mat != nil {
			out[i] = p.mat.Texture()
		}
	}
	return out
}

// Release frees the geometry, the states and the current instance
// buffer. States already handed out by Detach are not affected.
func (v *Visual) Release() error {
	var err error
	for _, p := range v.parts {
		if p.immediate != nil {
			v.dev.ReleasePipelineState(p.immediate)
		}
		err = multierr.Append(err, p.vertices.Release())
		err = multierr.Append(err, p.indices.Release())
	}
	v.parts = nil
	for _, ps := range v.instanced {
		v.dev.ReleasePipelineState(ps)
	}
	if v.inst != nil {
		err = multierr.Append(err, v.inst.Release())
		v.inst = nil
	}
	v.instanced = nil
	return err
}
