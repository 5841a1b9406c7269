package world

import (
	"fmt"
	"unsafe"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/zenbsp/internal/engine/instancing"
	"github.com/Faultbox/zenbsp/internal/gfx"
	"github.com/Faultbox/zenbsp/internal/host"
	"github.com/Faultbox/zenbsp/pkg/math"
)

// worldMesh is the static level geometry, one draw per material.
type worldMesh struct {
	parts []meshPart
}

type meshPart struct {
	mat      host.Material
	state    *gfx.PipelineState
	vertices gfx.Buffer
	indices  gfx.Buffer
}

// ExtractWorldMesh merges the polygons of all leaves below root by
// material and uploads them, replacing the previous world mesh. Polygons
// shared between leaves are taken once.
func (w *World) ExtractWorldMesh(root host.BSPNode) error {
	var err error
	if w.mesh != nil {
		err = w.mesh.release(w.dev)
		w.mesh = nil
	}
	if root == nil {
		return err
	}

	type batch struct {
		mat      host.Material
		vertices []host.Vertex
		indices  []uint32
	}
	var batches []*batch
	byMat := make(map[host.Material]*batch)
	seenPoly := make(map[*host.Polygon]bool)
	seenNode := make(map[host.BSPNode]bool)

	var walk func(n host.BSPNode)
	walk = func(n host.BSPNode) {
		if n == nil || seenNode[n] {
			return
		}
		seenNode[n] = true
		if !n.IsLeaf() {
			walk(n.Front())
			walk(n.Back())
			return
		}
		for _, p := range n.Polygons() {
			if p == nil || seenPoly[p] {
				continue
			}
			seenPoly[p] = true
			b, ok := byMat[p.Material]
			if !ok {
				b = &batch{mat: p.Material}
				byMat[p.Material] = b
				batches = append(batches, b)
			}
			base := uint32(len(b.vertices))
			b.vertices = append(b.vertices, p.Vertices[:]...)
			b.indices = append(b.indices, base, base+1, base+2)
		}
	}
	walk(root)

	mesh := &worldMesh{}
	identity := gfx.Bytes([]instancing.Record{{World: math.Identity(), Color: 0xFFFFFFFF}})
	stride := int(unsafe.Sizeof(host.Vertex{}))
	for _, b := range batches {
		part, perr := w.newMeshPart(b.mat, b.vertices, b.indices, stride)
		if perr != nil {
			return multierr.Combine(err, perr, mesh.release(w.dev))
		}
		part.state.InstanceData = append([]byte(nil), identity...)
		mesh.parts = append(mesh.parts, part)
	}
	w.mesh = mesh

	w.log.Info("world mesh extracted",
		zap.Int("materials", len(batches)),
		zap.Int("polygons", len(seenPoly)))
	return err
}

func (w *World) newMeshPart(mat host.Material, vertices []host.Vertex, indices []uint32, stride int) (meshPart, error) {
	vb, err := w.dev.CreateBuffer(gfx.VertexBuffer, gfx.UsageStatic, len(vertices)*stride, gfx.Bytes(vertices))
	if err != nil {
		return meshPart{}, fmt.Errorf("creating world mesh vertices: %w", err)
	}
	ib, err := w.dev.CreateBuffer(gfx.IndexBuffer, gfx.UsageStatic, len(indices)*4, gfx.Bytes(indices))
	if err != nil {
		return meshPart{}, multierr.Append(fmt.Errorf("creating world mesh indices: %w", err), vb.Release())
	}

	ps := w.dev.CreatePipelineState(nil)
	ps.DrawCall = gfx.DrawIndexed
	ps.TextureID = gfx.TextureUnresolved
	if mat != nil && mat.AlphaFunc() > 1 {
		ps.Transparency = gfx.TransparencyMasked
	}
	ps.VertexBuffers[gfx.StreamGeometry] = vb
	ps.VertexStrides[gfx.StreamGeometry] = stride
	ps.IndexBuffer = ib
	ps.NumIndices = len(indices)
	ps.NumVertices = len(vertices)
	if err := w.dev.FillPipelineState(ps); err != nil {
		return meshPart{}, multierr.Combine(err, vb.Release(), ib.Release())
	}
	return meshPart{mat: mat, state: ps, vertices: vb, indices: ib}, nil
}

// draw queues the parts whose texture is available and returns how many.
func (m *worldMesh) draw(q *gfx.Queue, timeout float32) int {
	drawn := 0
	for i := range m.parts {
		p := &m.parts[i]
		if p.state.TextureID == gfx.TextureUnresolved {
			var tex host.Texture
			if p.mat != nil {
				tex = p.mat.Texture()
			}
			switch {
			case tex == nil:
				p.state.TextureID = gfx.NoTexture
			case tex.CacheIn(timeout) == host.Resident:
				p.state.TextureID = tex.ID()
				if tex.HasAlpha() {
					p.state.Transparency = gfx.TransparencyMasked
				}
			default:
				continue
			}
		}
		q.Push(p.state)
		drawn++
	}
	return drawn
}

func (m *worldMesh) release(dev gfx.Device) error {
	var err error
	for _, p := range m.parts {
		dev.ReleasePipelineState(p.state)
		err = multierr.Append(err, p.vertices.Release())
		err = multierr.Append(err, p.indices.Release())
	}
	m.parts = nil
	return err
}
