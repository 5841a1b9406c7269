package visual

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/zenbsp/internal/engine/instancing"
	"github.com/Faultbox/zenbsp/internal/gfx"
	"github.com/Faultbox/zenbsp/internal/host"
)

// ErrAccumulating is returned by Detach while instances are being
// registered.
var ErrAccumulating = errors.New("visual: instances pending")

// Detached is what a visual hands over when a node takes ownership of its
// instancing resources.
type Detached struct {
	Buffer *instancing.Buffer
	// States and Textures are parallel, one entry per submesh.
	States   []*gfx.PipelineState
	Textures []host.Texture

	dev gfx.Device
}

// Release frees the detached instance buffer and states.
func (d Detached) Release() error {
	if d.Buffer == nil {
		return nil
	}
	for _, ps := range d.States {
		d.dev.ReleasePipelineState(ps)
	}
	return d.Buffer.Release()
}

func (v *Visual) newInstanceResources() error {
	buf, err := instancing.NewBuffer(v.dev, v.opts.InstanceCapacity)
	if err != nil {
		return err
	}
	states := make([]*gfx.PipelineState, len(v.parts))
	for i, p := range v.parts {
		states[i] = v.newState(p, gfx.DrawIndexedInstanced)
		states[i].VertexStrides[gfx.StreamInstances] = instancing.RecordSize
	}
	v.inst = buf
	v.instanced = states
	v.state = idle
	return nil
}

// BeginFrame drops the instances of the previous frame.
func (v *Visual) BeginFrame() {
	if v.inst == nil {
		return
	}
	if v.state == accumulating {
		v.log.Warn("frame begun while accumulating", zap.Int("instances", v.inst.Len()))
		if err := v.inst.End(); err != nil && !v.mapFailed {
			v.log.Warn("unmapping instance buffer", zap.Error(err))
		}
	}
	v.inst.Reset()
	v.state = idle
	v.mapFailed = false
	v.dropped = 0
}

// Draw registers one instance for this frame. Visuals that cannot batch
// draw it immediately instead.
func (v *Visual) Draw(ctx *DrawContext, info host.InstanceInfo) {
	if !v.Instanceable() {
		v.DrawImmediate(ctx, info)
		return
	}
	if v.state != accumulating {
		v.startAccumulating(ctx)
	}
	if v.mapFailed {
		v.dropped++
		return
	}
	pending := v.inst.Len()
	if err := v.inst.Append(instancing.RecordOf(info)); err != nil {
		v.log.Warn("dropping instances for this frame", zap.Int("instances", pending+1), zap.Error(err))
		v.mapFailed = true
		v.dropped += pending + 1
	}
}

// startAccumulating opens the instance buffer for writing and brings the
// instanced states up to date.
func (v *Visual) startAccumulating(ctx *DrawContext) {
	v.state = accumulating
	v.inst.Reset()
	if err := v.inst.Begin(); err != nil {
		v.log.Warn("instance buffer map failed", zap.Error(err))
		v.mapFailed = true
		return
	}
	for i, ps := range v.instanced {
		if needsTexture(ps, v.parts[i].mat) {
			ps.TextureID, ps.Transparency, _ = v.resolveTexture(ctx, v.parts[i].mat, ps.Transparency)
		}
	}
	v.bindInstances()
}

// bindInstances points every instanced state at the current instance
// buffer, rebuilding the states whose binding changed.
func (v *Visual) bindInstances() {
	gpu := v.inst.GPU()
	for _, ps := range v.instanced {
		if ps.VertexBuffers[gfx.StreamInstances] == gpu {
			continue
		}
		ps.VertexBuffers[gfx.StreamInstances] = gpu
		ps.VertexStrides[gfx.StreamInstances] = instancing.RecordSize
		if err := v.dev.FillPipelineState(ps); err != nil {
			v.log.Error("rebuilding instanced state", zap.Error(err))
		}
		ps.NumInstances = 0
	}
}

// EndFrame finalizes the instanced states and queues one draw per submesh
// if any instance was registered.
func (v *Visual) EndFrame(ctx *DrawContext) {
	if v.inst == nil || v.state != accumulating {
		return
	}
	n := v.inst.Len()
	if n > 0 && !v.mapFailed {
		v.bindInstances()
		for _, ps := range v.instanced {
			ps.NumInstances = n
			ps.InstanceOffset = 0
			ctx.Queue.Push(ps)
		}
	}
	if err := v.inst.End(); err != nil && !v.mapFailed {
		v.log.Warn("unmapping instance buffer", zap.Error(err))
	}
	if v.dropped > 0 {
		v.log.Debug("instances dropped", zap.Int("count", v.dropped))
	}
	v.state = flushed
}

// Instances returns the number of instances registered this frame.
func (v *Visual) Instances() int {
	if v.inst == nil {
		return 0
	}
	return v.inst.Len()
}

// Dropped returns the number of instances lost this frame to map failures.
func (v *Visual) Dropped() int { return v.dropped }

// Buffer returns the current instance buffer, nil for visuals that are not
// instanceable.
func (v *Visual) Buffer() *instancing.Buffer { return v.inst }

// Detach hands the instance buffer and instanced states to the caller and
// replaces them with fresh ones, so the states captured from the last
// EndFrame stay valid for as long as the caller keeps them.
func (v *Visual) Detach() (Detached, error) {
	if !v.Instanceable() {
		return Detached{}, nil
	}
	if v.state == accumulating {
		return Detached{}, fmt.Errorf("detaching %s: %w", v.Name(), ErrAccumulating)
	}
	d := Detached{
		Buffer:   v.inst,
		States:   v.instanced,
		Textures: v.Textures(),
		dev:      v.dev,
	}
	if err := v.newInstanceResources(); err != nil {
		v.inst, v.instanced = d.Buffer, d.States
		return Detached{}, fmt.Errorf("detaching %s: %w", v.Name(), err)
	}
	return d, nil
}
