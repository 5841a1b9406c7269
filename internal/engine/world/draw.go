package world

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/zenbsp/internal/engine/visual"
	"github.com/Faultbox/zenbsp/internal/gfx"
	"github.com/Faultbox/zenbsp/internal/host"
	"github.com/Faultbox/zenbsp/pkg/math"
)

// View is the camera a frame is drawn from.
type View struct {
	Position math.Vec3
	Frustum  math.Frustum
}

// FrameStats counts the work of the last frame.
type FrameStats struct {
	Frame uint64

	NodesVisited        int
	NodesCulledDistance int
	NodesCulledFrustum  int
	LeavesDrawn         int

	WorldMeshDraws int
	BakedDraws     int
	ImmediateDraws int
	DynamicDraws   int
	DynamicCulled  int

	// Submitted is the number of states flushed to the device.
	Submitted int
}

// Stats returns the statistics of the last frame.
func (w *World) Stats() FrameStats { return w.stats }

// Frame returns the number of frames drawn.
func (w *World) Frame() uint64 { return w.frame }

// DrawWorld draws one frame: the world mesh, the baked draws of every leaf
// that survives culling, the immediate objects of those leaves and the
// dynamic objects near the camera. The queue is flushed to the device.
func (w *World) DrawWorld(view View) error {
	w.beginFrame()
	if w.cfg.DrawVobs && w.root != NoNode {
		t := w.newTraversal(view)
		t.drawTree(w.root, w.nodes[w.root].Box, math.AllClipPlanes)
		w.submit(t.res)
	}
	return w.endFrame(view)
}

// beginFrame resets the per-frame state of the mirror and queues the
// world mesh.
func (w *World) beginFrame() {
	w.frame++
	w.stats = FrameStats{Frame: w.frame}
	w.queue.Clear()
	for i := range w.nodes {
		n := &w.nodes[i]
		n.Occlusion.VisibleLastFrame = n.visible
		n.visible = false
		for j := range n.Baked {
			n.Baked[j].skip = false
		}
	}
	if w.cfg.DrawWorldMesh && w.mesh != nil {
		w.stats.WorldMeshDraws = w.mesh.draw(&w.queue, w.opts.TextureTimeout)
	}
}

// submit queues the draws of the accepted leaves in traversal order.
func (w *World) submit(res cullResult) {
	w.stats.NodesVisited += res.visited
	w.stats.NodesCulledDistance += res.distanceCulled
	w.stats.NodesCulledFrustum += res.frustumCulled

	ctx := &visual.DrawContext{Queue: &w.queue}
	var collected []*Object
	for _, id := range res.leaves {
		n := &w.nodes[id]
		if !n.visible {
			n.visible = true
			w.stats.LeavesDrawn++
		}
		for i := range n.Baked {
			b := &n.Baked[i]
			if b.skip {
				continue
			}
			b.skip = true
			w.refreshTexture(b)
			if b.State.TextureID == gfx.TextureUnresolved {
				continue
			}
			w.queue.Push(b.State)
			w.stats.BakedDraws++
		}
		for _, list := range n.immediateObjects() {
			for _, obj := range list {
				if obj.collected {
					continue
				}
				obj.collected = true
				collected = append(collected, obj)
				obj.Visual.DrawImmediate(ctx, obj.Vob.InstanceInfo())
				w.stats.ImmediateDraws++
			}
		}
	}
	for _, obj := range collected {
		obj.collected = false
	}
}

// refreshTexture retries the texture lookup of a draw baked before its
// texture was loaded.
func (w *World) refreshTexture(b *Baked) {
	if b.Texture == nil || b.State.TextureID != gfx.NoTexture {
		return
	}
	if b.Texture.CacheIn(w.opts.TextureTimeout) == host.Resident {
		b.State.TextureID = b.Texture.ID()
	}
}

// endFrame runs the dynamic pass and flushes the queue.
func (w *World) endFrame(view View) error {
	if w.cfg.DrawDynamicVobs {
		w.drawDynamic(view)
	}
	w.stats.Submitted = w.queue.Len()
	if err := w.dev.Flush(&w.queue); err != nil {
		return fmt.Errorf("flushing frame %d: %w", w.frame, err)
	}
	if w.frame%600 == 0 {
		w.log.Debug("frame",
			zap.Uint64("frame", w.frame),
			zap.Int("submitted", w.stats.Submitted),
			zap.Int("leaves", w.stats.LeavesDrawn))
	}
	return nil
}

// drawDynamic draws every dynamic object within the dynamic draw radius.
func (w *World) drawDynamic(view View) {
	ctx := &visual.DrawContext{Queue: &w.queue}
	var touched []*visual.Visual
	began := make(map[*visual.Visual]bool)
	for _, obj := range w.dynamic {
		if obj.Visual == nil {
			continue
		}
		if obj.Vob.BBox().DistanceToPoint(view.Position) > w.cfg.DynamicVobDrawRadius {
			w.stats.DynamicCulled++
			continue
		}
		if obj.Visual.Instanceable() && !began[obj.Visual] {
			began[obj.Visual] = true
			touched = append(touched, obj.Visual)
			obj.Visual.BeginFrame()
		}
		obj.draw(ctx)
		w.stats.DynamicDraws++
	}
	for _, vis := range touched {
		vis.EndFrame(ctx)
	}
}

// cullResult is what one traversal found.
type cullResult struct {
	// leaves are the accepted leaves, nearest subtrees first. A leaf may
	// appear more than once when the host tree shares it.
	leaves []NodeID

	visited        int
	distanceCulled int
	frustumCulled  int
}

func (r *cullResult) merge(o cullResult) {
	r.leaves = append(r.leaves, o.leaves...)
	r.visited += o.visited
	r.distanceCulled += o.distanceCulled
	r.frustumCulled += o.frustumCulled
}

// traversal culls the mirror against one view. It only reads the mirror
// apart from the atomically updated node caches, so several traversals
// may run at once over disjoint subtrees.
type traversal struct {
	w      *World
	view   View
	radius float32
	depth  int
	frame  uint64
	res    cullResult
}

func (w *World) newTraversal(view View) *traversal {
	return &traversal{
		w:      w,
		view:   view,
		radius: w.cfg.OutdoorVobDrawRadius,
		depth:  w.cfg.CrossingSplitDepth,
		frame:  w.frame,
	}
}

type action int

const (
	cull action = iota
	accept
	split
)

// enter tests node id against the view and decides how to go on.
func (t *traversal) enter(id NodeID, cell math.AABB, clipFlags int) (action, int) {
	n := &t.w.nodes[id]
	t.res.visited++
	atomic.StoreUint64(&n.Occlusion.LastVisitedFrame, t.frame)

	clip := math.ClipIn
	if clipFlags > 0 {
		if n.Box.DistanceToPoint(t.view.Position) > t.radius {
			t.res.distanceCulled++
			return cull, clipFlags
		}
		box := n.Box
		if c := box.Intersect(cell); c.IsValid() {
			box = c
		}
		cache := n.loadFailCache()
		clip, clipFlags = t.view.Frustum.ClassifyBox(box, clipFlags, &cache)
		n.storeFailCache(cache)
		if clip == math.ClipOut {
			t.res.frustumCulled++
			return cull, clipFlags
		}
	}

	if clip == math.ClipIn || n.Leaf || n.Levels < t.depth {
		return accept, clipFlags
	}
	return split, clipFlags
}

// drawTree culls the subtree below id. Crossing nodes deeper than the
// split depth are divided along their plane: the half containing the
// camera is visited first and the other half continues the loop.
func (t *traversal) drawTree(id NodeID, cell math.AABB, clipFlags int) {
	for id != NoNode {
		act, flags := t.enter(id, cell, clipFlags)
		clipFlags = flags
		switch act {
		case cull:
			return
		case accept:
			t.acceptSubtree(id)
			return
		}
		near, nearCell, far, farCell := t.split(id, cell)
		if near != NoNode {
			t.drawTree(near, nearCell, clipFlags)
		}
		id, cell = far, farCell
	}
}

// split returns the children of id ordered by distance to the camera,
// each with the part of cell on its side of the node plane. Cells are only
// narrowed for axis aligned planes.
func (t *traversal) split(id NodeID, cell math.AABB) (near NodeID, nearCell math.AABB, far NodeID, farCell math.AABB) {
	n := &t.w.nodes[id]
	axis, at := n.PlaneAxis, n.Plane.Distance
	aligned := n.Plane.Normal.Axis(axis) == 1
	nearCell, farCell = cell, cell
	if n.Plane.InFront(t.view.Position) {
		if aligned {
			nearCell.Min = nearCell.Min.SetAxis(axis, at)
			farCell.Max = farCell.Max.SetAxis(axis, at)
		}
		return n.Front, nearCell, n.Back, farCell
	}
	if aligned {
		nearCell.Max = nearCell.Max.SetAxis(axis, at)
		farCell.Min = farCell.Min.SetAxis(axis, at)
	}
	return n.Back, nearCell, n.Front, farCell
}

// acceptSubtree collects every leaf below id that is within the draw
// radius, nearer halves first.
func (t *traversal) acceptSubtree(id NodeID) {
	stack := []NodeID{id}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.w.nodes[id]
		if n.Leaf {
			if n.Box.DistanceToPoint(t.view.Position) > t.radius {
				t.res.distanceCulled++
				continue
			}
			t.res.leaves = append(t.res.leaves, id)
			continue
		}
		near, far := n.Back, n.Front
		if n.Plane.InFront(t.view.Position) {
			near, far = n.Front, n.Back
		}
		if far != NoNode {
			stack = append(stack, far)
		}
		if near != NoNode {
			stack = append(stack, near)
		}
	}
}
