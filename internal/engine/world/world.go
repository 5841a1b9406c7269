// Package world mirrors the host BSP tree and draws it.
//
// Static objects are classified into the leaves of the mirror and baked
// once into instanced draws per leaf. Every frame the mirror is traversed
// against the camera frustum and the baked draws of the visible leaves
// are submitted; dynamic objects are drawn by a separate distance pass.
package world

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/zenbsp/internal/config"
	"github.com/Faultbox/zenbsp/internal/engine/visual"
	"github.com/Faultbox/zenbsp/internal/gfx"
	"github.com/Faultbox/zenbsp/internal/host"
)

// World is the renderer state of one loaded host world.
type World struct {
	dev  gfx.Device
	cfg  config.RendererConfig
	log  *zap.Logger
	opts visual.Options

	nodes     []Node
	root      NodeID
	hostNodes map[host.BSPNode]NodeID
	built     bool

	objects map[host.Vob]*Object
	visuals map[host.VisualSource]*visual.Visual
	dynamic []*Object

	mesh *worldMesh

	queue gfx.Queue
	frame uint64
	stats FrameStats
}

// New returns an empty world drawing through dev.
func New(dev gfx.Device, cfg config.RendererConfig, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	opts := visual.DefaultOptions()
	if cfg.InstanceCapacity > 0 {
		opts.InstanceCapacity = cfg.InstanceCapacity
	}
	if cfg.TextureCacheTimeout > 0 {
		opts.TextureTimeout = cfg.TextureCacheTimeout
	}
	return &World{
		dev:       dev,
		cfg:       cfg,
		log:       log,
		opts:      opts,
		root:      NoNode,
		hostNodes: make(map[host.BSPNode]NodeID),
		objects:   make(map[host.Vob]*Object),
		visuals:   make(map[host.VisualSource]*visual.Visual),
	}
}

// Root returns the mirror of the host root, or NoNode before BuildBSPTree.
func (w *World) Root() NodeID { return w.root }

// Node returns the node with the given id.
func (w *World) Node(id NodeID) *Node { return &w.nodes[id] }

// NumNodes returns the size of the mirror.
func (w *World) NumNodes() int { return len(w.nodes) }

// NodeOf returns the mirror of a host node.
func (w *World) NodeOf(h host.BSPNode) (NodeID, bool) {
	id, ok := w.hostNodes[h]
	return id, ok
}

// Object returns the object registered for v.
func (w *World) Object(v host.Vob) (*Object, bool) {
	obj, ok := w.objects[v]
	return obj, ok
}

// NumObjects returns the number of registered objects.
func (w *World) NumObjects() int { return len(w.objects) }

// NumVisuals returns the number of distinct visuals.
func (w *World) NumVisuals() int { return len(w.visuals) }

// Dynamic returns the objects drawn by the dynamic pass.
func (w *World) Dynamic() []*Object { return w.dynamic }

// AddVob registers v. Dynamic objects are drawn every frame by the dynamic
// pass; static objects are picked up from the leaves of the host tree by
// BuildBSPTree, or inserted into the overlapping leaves right away when
// the tree is already built. It returns false when v is already known or
// cannot be drawn.
func (w *World) AddVob(v host.Vob, dynamic bool) bool {
	if _, ok := w.objects[v]; ok {
		w.log.Debug("vob already registered", zap.String("vob", v.Name()))
		return false
	}

	var vis *visual.Visual
	if src := v.Visual(); src != nil {
		var err error
		if vis, err = w.visualFor(src); err != nil {
			w.log.Error("failed to load visual",
				zap.String("vob", v.Name()),
				zap.String("visual", src.Name()),
				zap.Error(err))
			return false
		}
	} else if !v.IsLight() {
		w.log.Debug("vob has no visual", zap.String("vob", v.Name()))
		return false
	}

	obj := &Object{Vob: v, Visual: vis, dynamic: dynamic}
	w.objects[v] = obj
	if dynamic {
		w.dynamic = append(w.dynamic, obj)
		return true
	}
	if w.built {
		if err := w.insertStatic(obj); err != nil {
			w.log.Warn("rebaking after late add", zap.String("vob", v.Name()), zap.Error(err))
		}
	}
	return true
}

// visualFor returns the shared visual of src, creating it on first use.
func (w *World) visualFor(src host.VisualSource) (*visual.Visual, error) {
	if vis, ok := w.visuals[src]; ok {
		return vis, nil
	}
	vis, err := visual.New(src, w.dev, w.opts, w.log.Named("visual"))
	if err != nil {
		return nil, err
	}
	w.visuals[src] = vis
	return vis, nil
}

// insertStatic lists obj in every leaf its box overlaps and rebakes them.
// An object outside every leaf is handed to the dynamic pass instead.
func (w *World) insertStatic(obj *Object) error {
	box := obj.Vob.BBox()
	var touched []NodeID
	for id := range w.nodes {
		n := &w.nodes[id]
		if !n.Leaf || !n.Box.Overlaps(box) {
			continue
		}
		if w.classify(NodeID(id), obj) {
			touched = append(touched, NodeID(id))
		}
	}
	if len(obj.owners) == 0 {
		obj.dynamic = true
		w.dynamic = append(w.dynamic, obj)
		w.log.Debug("static vob outside the tree, drawing it as dynamic", zap.String("vob", obj.Vob.Name()))
		return nil
	}
	return w.rebake(touched, obj)
}

// RemoveVob forgets v and erases it from every leaf listing it. It returns
// false when v was not registered.
func (w *World) RemoveVob(v host.Vob) bool {
	obj, ok := w.objects[v]
	if !ok {
		w.log.Debug("vob not found", zap.String("vob", v.Name()))
		return false
	}
	owners := w.purge(obj)
	if err := w.rebake(owners, obj); err != nil {
		w.log.Warn("rebaking after remove", zap.String("vob", v.Name()), zap.Error(err))
	}
	w.dropDynamic(obj)
	delete(w.objects, v)
	return true
}

// OnVobMoved is called after the host moved v. A static object leaves the
// tree and is drawn by the dynamic pass from now on. It returns false when
// v is not registered.
func (w *World) OnVobMoved(v host.Vob) bool {
	obj, ok := w.objects[v]
	if !ok {
		return false
	}
	if obj.dynamic {
		return true
	}
	owners := w.purge(obj)
	if err := w.rebake(owners, obj); err != nil {
		w.log.Warn("rebaking after move", zap.String("vob", v.Name()), zap.Error(err))
	}
	obj.dynamic = true
	w.dynamic = append(w.dynamic, obj)
	w.log.Debug("static vob became dynamic", zap.String("vob", v.Name()), zap.Int("leaves", len(owners)))
	return true
}

// purge removes obj from all owning nodes and returns them.
func (w *World) purge(obj *Object) []NodeID {
	owners := obj.owners
	for _, id := range owners {
		w.nodes[id].removeObject(obj)
	}
	obj.owners = nil
	return owners
}

func (w *World) dropDynamic(obj *Object) {
	for i, o := range w.dynamic {
		if o == obj {
			w.dynamic = append(w.dynamic[:i], w.dynamic[i+1:]...)
			return
		}
	}
}

// rebake bakes the given leaves again if obj contributes to their baked
// draws.
func (w *World) rebake(ids []NodeID, obj *Object) error {
	if !w.built || obj.Visual == nil || !obj.Visual.Instanceable() || obj.Vob.IsLight() {
		return nil
	}
	var err error
	for _, id := range ids {
		err = multierr.Append(err, w.bakeLeaf(id))
	}
	return err
}

// Release frees every GPU resource owned by the world. The world is empty
// afterwards.
func (w *World) Release() error {
	err := w.releaseTree()
	for _, vis := range w.visuals {
		err = multierr.Append(err, vis.Release())
	}
	if w.mesh != nil {
		err = multierr.Append(err, w.mesh.release(w.dev))
		w.mesh = nil
	}
	w.visuals = make(map[host.VisualSource]*visual.Visual)
	w.objects = make(map[host.Vob]*Object)
	w.dynamic = nil
	return err
}

// releaseTree drops the mirror and the baked draws of its nodes.
func (w *World) releaseTree() error {
	var err error
	for i := range w.nodes {
		err = multierr.Append(err, w.nodes[i].releaseBaked())
	}
	for _, obj := range w.objects {
		obj.owners = nil
	}
	w.nodes = nil
	w.root = NoNode
	w.hostNodes = make(map[host.BSPNode]NodeID)
	w.built = false
	return err
}
