package gldev

import (
	"errors"
	"fmt"
	"slices"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/zenbsp/internal/engine/shader"
	"github.com/Faultbox/zenbsp/internal/gfx"
	"github.com/Faultbox/zenbsp/internal/host"
)

var errNoGeometry = errors.New("gldev: pipeline state has no geometry buffer")

var defaultVertexStride = int(unsafe.Sizeof(host.Vertex{}))

// pipeline is the backend half of a gfx.PipelineState.
type pipeline struct {
	vao uint32
	// instanceOffset is the record offset the instance attributes point at.
	instanceOffset int
	instanceStride int
}

// FillPipelineState builds or rebuilds the vertex array of ps.
func (d *Device) FillPipelineState(ps *gfx.PipelineState) error {
	geometry, ok := ps.VertexBuffers[gfx.StreamGeometry].(*Buffer)
	if !ok || geometry == nil {
		return errNoGeometry
	}

	p, _ := ps.Backend.(*pipeline)
	if p == nil {
		p = &pipeline{}
		gl.GenVertexArrays(1, &p.vao)
		d.pipelines = append(d.pipelines, p)
	}
	gl.BindVertexArray(p.vao)
	defer gl.BindVertexArray(0)

	stride := ps.VertexStrides[gfx.StreamGeometry]
	if stride == 0 {
		stride = defaultVertexStride
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, geometry.name)
	vertexAttrib(shader.AttribPosition, 3, gl.FLOAT, false, stride, 0)
	vertexAttrib(shader.AttribNormal, 3, gl.FLOAT, false, stride, 12)
	vertexAttrib(shader.AttribTexCoord, 2, gl.FLOAT, false, stride, 24)
	vertexAttrib(shader.AttribColor, 4, gl.UNSIGNED_BYTE, true, stride, 32)

	if ib, ok := ps.IndexBuffer.(*Buffer); ok && ib != nil {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib.name)
	}

	inst, ok := ps.VertexBuffers[gfx.StreamInstances].(*Buffer)
	if ok && inst != nil && ps.DrawCall == gfx.DrawIndexedInstanced {
		p.instanceStride = ps.VertexStrides[gfx.StreamInstances]
		p.bindInstances(inst, ps.InstanceOffset)
	} else {
		for i := uint32(0); i < 4; i++ {
			gl.DisableVertexAttribArray(shader.AttribWorld + i)
		}
		gl.DisableVertexAttribArray(shader.AttribInstanceColor)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	ps.Backend = p
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gldev: fill pipeline state: GL error 0x%x", code)
	}
	return nil
}

// ReleasePipelineState deletes the vertex array of ps.
func (d *Device) ReleasePipelineState(ps *gfx.PipelineState) {
	p, _ := ps.Backend.(*pipeline)
	ps.Backend = nil
	if p == nil {
		return
	}
	if p.vao != 0 {
		gl.DeleteVertexArrays(1, &p.vao)
		p.vao = 0
	}
	d.pipelines = slices.DeleteFunc(d.pipelines, func(q *pipeline) bool { return q == p })
}

// bindInstances points the per-instance attributes at record offset of
// inst. The vertex array must be bound.
func (p *pipeline) bindInstances(inst *Buffer, offset int) {
	base := offset * p.instanceStride
	gl.BindBuffer(gl.ARRAY_BUFFER, inst.name)
	for col := 0; col < 4; col++ {
		loc := uint32(shader.AttribWorld + col)
		vertexAttrib(loc, 4, gl.FLOAT, false, p.instanceStride, base+col*16)
		gl.VertexAttribDivisor(loc, 1)
	}
	vertexAttrib(shader.AttribInstanceColor, 4, gl.UNSIGNED_BYTE, true, p.instanceStride, base+64)
	gl.VertexAttribDivisor(shader.AttribInstanceColor, 1)
	p.instanceOffset = offset
}

func vertexAttrib(loc uint32, size int32, xtype uint32, normalized bool, stride, offset int) {
	gl.EnableVertexAttribArray(loc)
	gl.VertexAttribPointerWithOffset(loc, size, xtype, normalized, int32(stride), uintptr(offset))
}
