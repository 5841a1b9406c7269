package world

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/zenbsp/internal/host"
	"github.com/Faultbox/zenbsp/pkg/math"
)

// BuildBSPTree replaces the mirror with one of the tree below root. Static
// objects listed in the host leaves are classified into the mirrored
// leaves, and every leaf is baked. A nil root yields a single empty leaf.
func (w *World) BuildBSPTree(root host.BSPNode) error {
	err := w.releaseTree()

	if root == nil {
		w.nodes = append(w.nodes, Node{
			Front:     NoNode,
			Back:      NoNode,
			Leaf:      true,
			Occlusion: Occlusion{QueryID: -1},
			failCache: math.NoFailCache,
		})
		w.root = 0
	} else {
		w.root = w.mirror(root)
	}
	w.computeLevels(w.root, make([]bool, len(w.nodes)))
	w.built = true

	err = multierr.Append(err, w.prepareTree(w.root, make([]bool, len(w.nodes))))

	w.log.Info("bsp tree built",
		zap.Int("nodes", len(w.nodes)),
		zap.Int("levels", w.nodes[w.root].Levels),
		zap.Int("objects", len(w.objects)))
	return err
}

// mirror creates the node for h and its subtree. Host nodes reachable
// through several parents are mirrored once.
func (w *World) mirror(h host.BSPNode) NodeID {
	if h == nil {
		return NoNode
	}
	if id, ok := w.hostNodes[h]; ok {
		return id
	}
	id := NodeID(len(w.nodes))
	w.nodes = append(w.nodes, newNode(h))
	w.hostNodes[h] = id

	if h.IsLeaf() {
		for _, v := range h.LeafVobs() {
			obj, ok := w.objects[v]
			if !ok || obj.dynamic {
				continue
			}
			w.classify(id, obj)
		}
		return id
	}

	front := w.mirror(h.Front())
	back := w.mirror(h.Back())
	w.nodes[id].Front = front
	w.nodes[id].Back = back
	return id
}

// computeLevels sets Levels below id: 0 for leaves, otherwise one more
// than the deeper child, where a missing child counts as 0.
func (w *World) computeLevels(id NodeID, done []bool) int {
	if id == NoNode {
		return 0
	}
	n := &w.nodes[id]
	if done[id] {
		return n.Levels
	}
	done[id] = true
	if n.Leaf {
		n.Levels = 0
		return 0
	}
	front, back := n.Front, n.Back
	levels := 1 + max(w.computeLevels(front, done), w.computeLevels(back, done))
	w.nodes[id].Levels = levels
	return levels
}

// classify lists obj in leaf id unless it is already there, and reports
// whether it was added.
func (w *World) classify(id NodeID, obj *Object) bool {
	n := &w.nodes[id]
	if n.Contains(obj) {
		return false
	}
	list := w.listFor(n, obj)
	*list = append(*list, obj)
	obj.addOwner(id)
	return true
}

// listFor picks the list of n that obj belongs to.
func (w *World) listFor(n *Node, obj *Object) *[]*Object {
	v := obj.Vob
	if v.IsLight() {
		if v.IsIndoor() {
			return &n.IndoorLights
		}
		return &n.Lights
	}

	small := obj.Visual.Size() < w.cfg.SmallVobSize
	if obj.Visual.Instanceable() {
		switch {
		case v.IsIndoor():
			return &n.IndoorVobs
		case small:
			return &n.SmallVobs
		default:
			return &n.Vobs
		}
	}
	switch {
	case v.IsIndoor():
		return &n.NonInstanceableIndoor
	case small:
		return &n.NonInstanceableSmall
	default:
		return &n.NonInstanceable
	}
}
