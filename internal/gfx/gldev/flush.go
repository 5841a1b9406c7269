package gldev

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/multierr"

	"github.com/Faultbox/zenbsp/internal/gfx"
	"github.com/Faultbox/zenbsp/pkg/math"
)

var errNotFilled = errors.New("gldev: pipeline state was never filled")

// Flush draws every queued state in order and clears the queue. A state
// that cannot be drawn is skipped and reported in the returned error.
func (d *Device) Flush(q *gfx.Queue) error {
	defer q.Clear()

	d.prog.Use()
	gl.UniformMatrix4fv(d.prog.Uniform("uViewProj"), 1, false, d.viewProj.Ptr())
	gl.Uniform1i(d.prog.Uniform("uTexture"), 0)
	gl.ActiveTexture(gl.TEXTURE0)

	var err error
	for i, ps := range q.States() {
		if derr := d.draw(ps); derr != nil {
			err = multierr.Append(err, fmt.Errorf("state %d: %w", i, derr))
		}
	}
	gl.BindVertexArray(0)
	setBlending(false)
	return err
}

func (d *Device) draw(ps *gfx.PipelineState) error {
	p, _ := ps.Backend.(*pipeline)
	if p == nil {
		return errNotFilled
	}
	instanced := ps.DrawCall == gfx.DrawIndexedInstanced
	if instanced && ps.NumInstances == 0 {
		return nil
	}

	gl.BindVertexArray(p.vao)
	if instanced && ps.InstanceOffset != p.instanceOffset {
		if inst, ok := ps.VertexBuffers[gfx.StreamInstances].(*Buffer); ok && inst != nil {
			p.bindInstances(inst, ps.InstanceOffset)
		}
	}

	if instanced {
		gl.Uniform1i(d.prog.Uniform("uInstanced"), 1)
	} else {
		world, color := decodeInstanceData(ps.InstanceData)
		gl.Uniform1i(d.prog.Uniform("uInstanced"), 0)
		gl.UniformMatrix4fv(d.prog.Uniform("uWorld"), 1, false, world.Ptr())
		gl.Uniform4fv(d.prog.Uniform("uColor"), 1, &color[0])
	}

	textured := ps.TextureID != gfx.NoTexture && ps.TextureID != gfx.TextureUnresolved
	if textured {
		gl.BindTexture(gl.TEXTURE_2D, d.texture(ps.TextureID))
	}
	gl.Uniform1i(d.prog.Uniform("uTextured"), boolInt(textured))
	gl.Uniform1i(d.prog.Uniform("uAlphaTest"), boolInt(ps.Transparency == gfx.TransparencyMasked))
	setBlending(ps.Transparency == gfx.TransparencyBlended)

	count := int32(ps.NumIndices)
	if instanced {
		gl.DrawElementsInstanced(gl.TRIANGLES, count, gl.UNSIGNED_INT, nil, int32(ps.NumInstances))
	} else {
		gl.DrawElements(gl.TRIANGLES, count, gl.UNSIGNED_INT, nil)
	}
	d.draws++
	return nil
}

func setBlending(on bool) {
	if on {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
		gl.DepthMask(false)
		return
	}
	gl.Disable(gl.BLEND)
	gl.DepthMask(true)
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// Keep in sync with the instancing record layout: a column-major world
// matrix followed by an RGBA8 color.
const (
	worldBytes  = 64
	recordBytes = worldBytes + 4
)

// decodeInstanceData reads the per-draw constants of an immediate draw.
// Short or missing data draws untransformed and untinted.
func decodeInstanceData(data []byte) (math.Mat4, math.Vec4) {
	if len(data) < recordBytes {
		return math.Identity(), math.Vec4{1, 1, 1, 1}
	}
	var world math.Mat4
	copy(gfx.Bytes(world[:]), data[:worldBytes])
	c := uint32(data[64]) | uint32(data[65])<<8 | uint32(data[66])<<16 | uint32(data[67])<<24
	return world, unpackColor(c)
}

// unpackColor splits an RGBA8 color stored little-endian (red in the low byte).
func unpackColor(c uint32) math.Vec4 {
	return math.Vec4{
		float32(c&0xFF) / 255,
		float32(c>>8&0xFF) / 255,
		float32(c>>16&0xFF) / 255,
		float32(c>>24&0xFF) / 255,
	}
}

// placeholderPixels returns a 2x2 RGBA checker whose tint depends on id.
func placeholderPixels(id uint32) [16]byte {
	h := id*2654435761 + 0x9E3779B9
	r, g, b := byte(h), byte(h>>8), byte(h>>16)
	dark := func(v byte) byte { return v / 2 }
	return [16]byte{
		r, g, b, 255, dark(r), dark(g), dark(b), 255,
		dark(r), dark(g), dark(b), 255, r, g, b, 255,
	}
}
