package world

import (
	"go.uber.org/multierr"

	"github.com/Faultbox/zenbsp/internal/engine/visual"
	"github.com/Faultbox/zenbsp/internal/gfx"
	"github.com/Faultbox/zenbsp/internal/host"
)

// prepareTree bakes every leaf below id once.
func (w *World) prepareTree(id NodeID, seen []bool) error {
	if id == NoNode || seen[id] {
		return nil
	}
	seen[id] = true
	n := &w.nodes[id]
	if n.Leaf {
		return w.bakeLeaf(id)
	}
	front, back := n.Front, n.Back
	return multierr.Combine(w.prepareTree(front, seen), w.prepareTree(back, seen))
}

// bakeLeaf draws the instanceable objects of a leaf into the queue with
// texture residency forced, and keeps the resulting states and instance
// buffers on the leaf. The visuals involved switch to fresh resources so
// later draws cannot overwrite what the leaf keeps.
func (w *World) bakeLeaf(id NodeID) error {
	n := &w.nodes[id]
	err := n.releaseBaked()

	w.queue.Clear()
	ctx := &visual.DrawContext{Queue: &w.queue, ForceResidency: true}

	var touched []*visual.Visual
	began := make(map[*visual.Visual]bool)
	var drawn []*Object
	for _, list := range n.bakedObjects() {
		for _, obj := range list {
			if obj.collected {
				continue
			}
			if !began[obj.Visual] {
				began[obj.Visual] = true
				touched = append(touched, obj.Visual)
				obj.Visual.BeginFrame()
			}
			obj.draw(ctx)
			obj.collected = true
			drawn = append(drawn, obj)
		}
	}
	for _, vis := range touched {
		vis.EndFrame(ctx)
	}

	textures := make(map[*gfx.PipelineState]host.Texture)
	for _, vis := range touched {
		d, derr := vis.Detach()
		if derr != nil {
			err = multierr.Append(err, derr)
			continue
		}
		n.owned = append(n.owned, d)
		for i, ps := range d.States {
			textures[ps] = d.Textures[i]
		}
	}

	for _, ps := range w.queue.States() {
		n.Baked = append(n.Baked, Baked{State: ps, Texture: textures[ps]})
	}
	w.queue.Clear()

	for _, obj := range drawn {
		obj.collected = false
	}
	return err
}
