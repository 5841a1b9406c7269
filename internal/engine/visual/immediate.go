package visual

import (
	"github.com/Faultbox/zenbsp/internal/engine/instancing"
	"github.com/Faultbox/zenbsp/internal/gfx"
	"github.com/Faultbox/zenbsp/internal/host"
)

// DrawImmediate queues one transient draw per submesh carrying info as its
// per-draw constants. Submeshes whose texture is not loaded yet are
// skipped and looked up again next time.
func (v *Visual) DrawImmediate(ctx *DrawContext, info host.InstanceInfo) {
	rec := []instancing.Record{instancing.RecordOf(info)}
	for i := range v.parts {
		p := &v.parts[i]
		if !p.resolved {
			id, mode, ok := v.resolveTexture(ctx, p.mat, p.immediate.Transparency)
			if !ok {
				continue
			}
			p.immediate.TextureID, p.immediate.Transparency = id, mode
			p.resolved = true
		}

		ps := v.dev.CreatePipelineState(p.immediate)
		ps.Transient = true
		ps.InstanceData = append(ps.InstanceData[:0], gfx.Bytes(rec)...)
		ctx.Queue.Push(ps)
	}
}

func (v *Visual) timeout(ctx *DrawContext) float32 {
	if ctx.ForceResidency {
		return host.BlockUntilResident
	}
	return v.opts.TextureTimeout
}

// resolveTexture returns the texture id to draw mat with and whether the
// lookup is final. A texture that is not resident yields NoTexture and
// false. Alpha textures switch the state to alpha testing.
func (v *Visual) resolveTexture(ctx *DrawContext, mat host.Material, mode gfx.TransparencyMode) (uint32, gfx.TransparencyMode, bool) {
	if mat == nil || mat.Texture() == nil {
		return gfx.NoTexture, mode, true
	}
	tex := mat.Texture()
	if tex.CacheIn(v.timeout(ctx)) != host.Resident {
		return gfx.NoTexture, mode, false
	}
	if mat.AlphaFunc() > 1 || tex.HasAlpha() {
		mode = gfx.TransparencyMasked
	}
	return tex.ID(), mode, true
}

// needsTexture reports whether ps still waits for the texture of mat.
func needsTexture(ps *gfx.PipelineState, mat host.Material) bool {
	if ps.TextureID == gfx.TextureUnresolved {
		return true
	}
	return ps.TextureID == gfx.NoTexture && mat != nil && mat.Texture() != nil
}
