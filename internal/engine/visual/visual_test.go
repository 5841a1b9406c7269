package visual

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/zenbsp/internal/engine/instancing"
	"github.com/Faultbox/zenbsp/internal/gfx"
	"github.com/Faultbox/zenbsp/internal/gfx/memgfx"
	"github.com/Faultbox/zenbsp/internal/host"
	"github.com/Faultbox/zenbsp/internal/host/memworld"
	"github.com/Faultbox/zenbsp/pkg/math"
)

var unitBox = math.AABB{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}

func resident(id uint32) *memworld.Material {
	return &memworld.Material{MatName: "m", Tex: &memworld.Texture{TexID: id, State: host.Resident}}
}

func newMesh(kind host.VisualType, mats ...*memworld.Material) *memworld.Mesh {
	return memworld.NewBoxMesh("box", kind, unitBox, mats...)
}

func mustNew(t *testing.T, src host.VisualSource, dev gfx.Device, opts Options) *Visual {
	t.Helper()
	v, err := New(src, dev, opts, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func info(x float32) host.InstanceInfo {
	return host.InstanceInfo{World: math.Translate(x, 0, 0), Color: 0xFFFFFFFF}
}

func TestNewVariants(t *testing.T) {
	tests := []struct {
		kind         host.VisualType
		instanceable bool
	}{
		{host.VisualStaticMesh, true},
		{host.VisualSkeletalMesh, false},
		{host.VisualMorphMesh, false},
		{host.VisualParticleFX, false},
		{host.VisualDecal, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			v := mustNew(t, newMesh(tt.kind, resident(3), resident(4)), memgfx.New(), DefaultOptions())
			if v.Kind() != tt.kind {
				t.Errorf("Kind = %v", v.Kind())
			}
			if v.Instanceable() != tt.instanceable {
				t.Errorf("Instanceable = %v, want %v", v.Instanceable(), tt.instanceable)
			}
			if v.NumParts() != 2 || len(v.ImmediateStates()) != 2 {
				t.Errorf("parts %d immediate %d, want 2", v.NumParts(), len(v.ImmediateStates()))
			}
			if tt.instanceable && len(v.InstancedStates()) != v.NumParts() {
				t.Errorf("instanced states %d, want %d", len(v.InstancedStates()), v.NumParts())
			}
			if !tt.instanceable && (v.InstancedStates() != nil || v.Buffer() != nil) {
				t.Error("immediate-only visual should have no instancing resources")
			}
		})
	}
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(newMesh(host.VisualUnknown), memgfx.New(), DefaultOptions(), nil)
	if !errors.Is(err, ErrUnknownVisualType) {
		t.Fatalf("got %v, want ErrUnknownVisualType", err)
	}
}

func TestStatesFollowSubmeshOrder(t *testing.T) {
	a := resident(7)
	b := resident(8)
	b.Alpha = 2
	v := mustNew(t, newMesh(host.VisualStaticMesh, a, b), memgfx.New(), DefaultOptions())
	q := &gfx.Queue{}
	ctx := &DrawContext{Queue: q}
	v.BeginFrame()
	v.Draw(ctx, info(0))
	v.EndFrame(ctx)

	states := q.States()
	if len(states) != 2 {
		t.Fatalf("queued %d states, want 2", len(states))
	}
	if states[0].TextureID != 7 || states[1].TextureID != 8 {
		t.Errorf("texture ids %d,%d want 7,8", states[0].TextureID, states[1].TextureID)
	}
	if states[0].Transparency != gfx.TransparencyNone || states[1].Transparency != gfx.TransparencyMasked {
		t.Errorf("transparency %v,%v", states[0].Transparency, states[1].Transparency)
	}
}

func TestFrameCycle(t *testing.T) {
	dev := memgfx.New()
	v := mustNew(t, newMesh(host.VisualStaticMesh, resident(5)), dev, DefaultOptions())
	q := &gfx.Queue{}
	ctx := &DrawContext{Queue: q}

	for frame := 0; frame < 3; frame++ {
		v.BeginFrame()
		for i := 0; i < 3; i++ {
			v.Draw(ctx, info(float32(i)))
		}
		v.EndFrame(ctx)

		if q.Len() != 1 {
			t.Fatalf("frame %d: queued %d states, want 1", frame, q.Len())
		}
		ps := q.States()[0]
		if ps.DrawCall != gfx.DrawIndexedInstanced || ps.NumInstances != 3 || ps.InstanceOffset != 0 {
			t.Errorf("frame %d: call %v instances %d offset %d", frame, ps.DrawCall, ps.NumInstances, ps.InstanceOffset)
		}
		if ps.VertexBuffers[gfx.StreamInstances] != v.Buffer().GPU() {
			t.Error("instance stream not bound to the instance buffer")
		}
		if v.Buffer().Mapped() {
			t.Error("buffer still mapped after EndFrame")
		}
		if err := dev.Flush(q); err != nil {
			t.Fatalf("Flush: %v", err)
		}
	}
	// The instance binding changes only once.
	if got := dev.StatesFilled; got != 2 {
		t.Errorf("states filled %d, want 2 (immediate + first bind)", got)
	}
}

func TestEndFrameWithoutInstances(t *testing.T) {
	v := mustNew(t, newMesh(host.VisualStaticMesh, resident(5)), memgfx.New(), DefaultOptions())
	q := &gfx.Queue{}
	ctx := &DrawContext{Queue: q}
	v.BeginFrame()
	v.EndFrame(ctx)
	if q.Len() != 0 {
		t.Errorf("queued %d states for an idle visual", q.Len())
	}
}

func TestGrowthRebinds(t *testing.T) {
	dev := memgfx.New()
	v := mustNew(t, newMesh(host.VisualStaticMesh, resident(5)), dev, Options{InstanceCapacity: 64})
	q := &gfx.Queue{}
	ctx := &DrawContext{Queue: q}
	v.BeginFrame()
	for i := 0; i < 65; i++ {
		v.Draw(ctx, info(float32(i)))
	}
	v.EndFrame(ctx)

	if v.Buffer().Grows() != 1 {
		t.Errorf("grows = %d, want 1", v.Buffer().Grows())
	}
	ps := q.States()[0]
	if ps.NumInstances != 65 {
		t.Errorf("NumInstances = %d, want 65", ps.NumInstances)
	}
	if ps.VertexBuffers[gfx.StreamInstances] != v.Buffer().GPU() {
		t.Error("state still bound to the released buffer")
	}
	if err := dev.Flush(q); err != nil {
		t.Errorf("Flush: %v", err)
	}
	recs := v.Buffer().Records()
	for i := 0; i < 64; i++ {
		if recs[i].World[12] != float32(i) {
			t.Fatalf("record %d: x = %v", i, recs[i].World[12])
		}
	}
}

func TestMapFailureDropsFrame(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dev := memgfx.New()
	v, err := New(newMesh(host.VisualStaticMesh, resident(5)), dev, DefaultOptions(), zap.New(core))
	if err != nil {
		t.Fatal(err)
	}
	q := &gfx.Queue{}
	ctx := &DrawContext{Queue: q}

	dev.FailMaps = 1
	v.BeginFrame()
	v.Draw(ctx, info(0))
	v.Draw(ctx, info(1))
	v.EndFrame(ctx)
	if q.Len() != 0 {
		t.Errorf("queued %d states after map failure", q.Len())
	}
	if v.Dropped() != 2 {
		t.Errorf("dropped = %d, want 2", v.Dropped())
	}
	if logs.FilterMessage("instance buffer map failed").Len() != 1 {
		t.Error("map failure not logged once")
	}

	v.BeginFrame()
	v.Draw(ctx, info(0))
	v.EndFrame(ctx)
	if q.Len() != 1 || q.States()[0].NumInstances != 1 {
		t.Error("next frame should draw again")
	}
}

func TestGrowthMapFailureDropsFrame(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dev := memgfx.New()
	v, err := New(newMesh(host.VisualStaticMesh, resident(5)), dev, Options{InstanceCapacity: 2}, zap.New(core))
	if err != nil {
		t.Fatal(err)
	}
	q := &gfx.Queue{}
	ctx := &DrawContext{Queue: q}

	v.BeginFrame()
	v.Draw(ctx, info(0))
	v.Draw(ctx, info(1))
	dev.FailMaps = 1
	v.Draw(ctx, info(2))
	v.Draw(ctx, info(3))
	v.EndFrame(ctx)

	if q.Len() != 0 {
		t.Errorf("queued %d states after a failed remap", q.Len())
	}
	if v.Dropped() != 4 {
		t.Errorf("dropped = %d, want 4", v.Dropped())
	}
	if v.Instances() != 0 {
		t.Errorf("instances = %d, want 0", v.Instances())
	}
	if logs.FilterMessage("dropping instances for this frame").Len() != 1 {
		t.Error("failed remap not logged once")
	}

	v.BeginFrame()
	v.Draw(ctx, info(7))
	v.EndFrame(ctx)
	if q.Len() != 1 {
		t.Fatalf("queued %d states on the next frame, want 1", q.Len())
	}
	ps := q.States()[0]
	if ps.NumInstances != 1 || ps.VertexBuffers[gfx.StreamInstances] != v.Buffer().GPU() {
		t.Errorf("NumInstances %d, bound to current buffer %v",
			ps.NumInstances, ps.VertexBuffers[gfx.StreamInstances] == v.Buffer().GPU())
	}
	if err := dev.Flush(q); err != nil {
		t.Errorf("Flush: %v", err)
	}
}

func TestBeginFrameWhileAccumulating(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dev := memgfx.New()
	v, err := New(newMesh(host.VisualStaticMesh, resident(5)), dev, DefaultOptions(), zap.New(core))
	if err != nil {
		t.Fatal(err)
	}
	ctx := &DrawContext{Queue: &gfx.Queue{}}

	v.BeginFrame()
	v.Draw(ctx, info(0))
	if err := v.Buffer().GPU().Release(); err != nil {
		t.Fatal(err)
	}
	v.BeginFrame()

	if logs.FilterMessage("frame begun while accumulating").Len() != 1 {
		t.Error("abandoned frame not logged")
	}
	if logs.FilterMessage("unmapping instance buffer").Len() != 1 {
		t.Error("unmap error not logged")
	}
	if v.Instances() != 0 {
		t.Errorf("instances = %d, want 0", v.Instances())
	}
}

func TestTextureResidency(t *testing.T) {
	tex := &memworld.Texture{TexID: 9}
	mat := &memworld.Material{MatName: "late", Tex: tex}

	t.Run("not resident", func(t *testing.T) {
		v := mustNew(t, newMesh(host.VisualStaticMesh, mat), memgfx.New(), DefaultOptions())
		q := &gfx.Queue{}
		ctx := &DrawContext{Queue: q}
		v.BeginFrame()
		v.Draw(ctx, info(0))
		v.EndFrame(ctx)
		if got := q.States()[0].TextureID; got != gfx.NoTexture {
			t.Errorf("TextureID = %d, want NoTexture", got)
		}

		tex.State = host.Resident
		q.Clear()
		v.BeginFrame()
		v.Draw(ctx, info(0))
		v.EndFrame(ctx)
		if got := q.States()[0].TextureID; got != 9 {
			t.Errorf("TextureID after load = %d, want 9", got)
		}
	})

	t.Run("forced", func(t *testing.T) {
		tex := &memworld.Texture{TexID: 11}
		mat := &memworld.Material{MatName: "forced", Tex: tex}
		v := mustNew(t, newMesh(host.VisualStaticMesh, mat), memgfx.New(), DefaultOptions())
		q := &gfx.Queue{}
		ctx := &DrawContext{Queue: q, ForceResidency: true}
		v.BeginFrame()
		v.Draw(ctx, info(0))
		v.EndFrame(ctx)
		if got := q.States()[0].TextureID; got != 11 {
			t.Errorf("TextureID = %d, want 11", got)
		}
		if tex.Blocking != 1 {
			t.Errorf("blocking requests = %d, want 1", tex.Blocking)
		}
	})

	t.Run("untextured", func(t *testing.T) {
		v := mustNew(t, newMesh(host.VisualStaticMesh, &memworld.Material{MatName: "plain"}), memgfx.New(), DefaultOptions())
		q := &gfx.Queue{}
		ctx := &DrawContext{Queue: q}
		v.BeginFrame()
		v.Draw(ctx, info(0))
		v.EndFrame(ctx)
		if got := q.States()[0].TextureID; got != gfx.NoTexture {
			t.Errorf("TextureID = %d, want NoTexture", got)
		}
	})
}

func TestDrawImmediate(t *testing.T) {
	pending := &memworld.Material{MatName: "pending", Tex: &memworld.Texture{TexID: 2}}
	dev := memgfx.New()
	v := mustNew(t, newMesh(host.VisualSkeletalMesh, resident(1), pending), dev, DefaultOptions())
	q := &gfx.Queue{}
	ctx := &DrawContext{Queue: q}

	v.Draw(ctx, info(4))
	if q.Len() != 1 {
		t.Fatalf("queued %d states, want 1 (pending texture skipped)", q.Len())
	}
	ps := q.States()[0]
	if !ps.Transient || ps.DrawCall != gfx.DrawIndexed {
		t.Errorf("transient %v call %v", ps.Transient, ps.DrawCall)
	}
	if ps == v.ImmediateStates()[0] {
		t.Error("immediate draw should submit a copy of the template")
	}
	if len(ps.InstanceData) != instancing.RecordSize {
		t.Errorf("InstanceData has %d bytes, want %d", len(ps.InstanceData), instancing.RecordSize)
	}

	v.DrawImmediate(ctx, info(5))
	if q.Len() != 2 {
		t.Errorf("queued %d states, want 2", q.Len())
	}
	if q.States()[0].InstanceData[50] == q.States()[1].InstanceData[50] {
		t.Error("transient copies should not share instance data")
	}
}

func TestDetach(t *testing.T) {
	dev := memgfx.New()
	v := mustNew(t, newMesh(host.VisualStaticMesh, resident(5)), dev, DefaultOptions())
	q := &gfx.Queue{}
	ctx := &DrawContext{Queue: q}

	v.BeginFrame()
	v.Draw(ctx, info(0))
	if _, err := v.Detach(); !errors.Is(err, ErrAccumulating) {
		t.Fatalf("Detach while accumulating: got %v", err)
	}
	v.EndFrame(ctx)
	baked := q.Take()

	d, err := v.Detach()
	if err != nil {
		t.Fatal(err)
	}
	if d.States[0] != baked[0] {
		t.Error("detached states should be the ones just queued")
	}
	if v.Buffer() == d.Buffer || v.InstancedStates()[0] == d.States[0] {
		t.Error("visual kept the detached resources")
	}
	if len(d.Textures) != 1 || d.Textures[0].ID() != 5 {
		t.Errorf("textures %v", d.Textures)
	}

	// The visual keeps working on its fresh resources.
	v.BeginFrame()
	v.Draw(ctx, info(1))
	v.Draw(ctx, info(2))
	v.EndFrame(ctx)
	if baked[0].NumInstances != 1 {
		t.Errorf("detached state changed: %d instances", baked[0].NumInstances)
	}

	if err := d.Release(); err != nil {
		t.Fatal(err)
	}
	if err := v.Release(); err != nil {
		t.Fatal(err)
	}
	if dev.LiveBuffers() != 0 {
		t.Errorf("live buffers = %d, want 0", dev.LiveBuffers())
	}
}
