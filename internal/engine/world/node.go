package world

import (
	"slices"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/Faultbox/zenbsp/internal/engine/visual"
	"github.com/Faultbox/zenbsp/internal/gfx"
	"github.com/Faultbox/zenbsp/internal/host"
	"github.com/Faultbox/zenbsp/pkg/math"
)

// NodeID indexes World.nodes.
type NodeID int32

// NoNode is the id of a missing child.
const NoNode NodeID = -1

// Occlusion is the per-node occlusion query bookkeeping.
type Occlusion struct {
	VisibleLastFrame bool
	LastVisitedFrame uint64
	// QueryID is -1 while no query is allocated.
	QueryID         int
	QueryInProgress bool
}

// Baked is one pre-built draw of a leaf.
type Baked struct {
	State *gfx.PipelineState
	// Texture is looked up again at draw time while State has no texture.
	Texture host.Texture
	// skip is set once the draw went out this frame.
	skip bool
}

// Node mirrors one host BSP node.
type Node struct {
	Host      host.BSPNode
	Box       math.AABB
	Front     NodeID
	Back      NodeID
	Leaf      bool
	Plane     math.Plane
	PlaneAxis int
	// Levels is 0 for leaves and 1 + the deeper child otherwise.
	Levels    int
	Occlusion Occlusion

	// failCache is the frustum plane that last rejected this node. It is
	// accessed atomically.
	failCache int32

	Vobs         []*Object
	IndoorVobs   []*Object
	SmallVobs    []*Object
	Lights       []*Object
	IndoorLights []*Object

	// Objects whose visual cannot be baked, drawn immediately.
	NonInstanceable       []*Object
	NonInstanceableIndoor []*Object
	NonInstanceableSmall  []*Object

	Baked []Baked
	// owned holds the instance buffers backing Baked.
	owned []visual.Detached
	// visible is set when the node was drawn this frame.
	visible bool
}

func newNode(h host.BSPNode) Node {
	n := Node{
		Host:  h,
		Box:   h.BBox(),
		Front: NoNode,
		Back:  NoNode,
		Leaf:  h.IsLeaf(),
		Occlusion: Occlusion{
			QueryID: -1,
		},
	}
	if !n.Leaf {
		n.Plane = h.Plane()
		n.PlaneAxis = h.PlaneAxis()
	}
	n.failCache = math.NoFailCache
	return n
}

// IsEmpty reports whether no object is listed in the node.
func (n *Node) IsEmpty() bool {
	return len(n.Vobs) == 0 && len(n.IndoorVobs) == 0 && len(n.SmallVobs) == 0 &&
		len(n.Lights) == 0 && len(n.IndoorLights) == 0 &&
		len(n.NonInstanceable) == 0 && len(n.NonInstanceableIndoor) == 0 &&
		len(n.NonInstanceableSmall) == 0
}

// Contains reports whether obj is in any list of n.
func (n *Node) Contains(obj *Object) bool {
	for _, l := range n.lists() {
		if slices.Contains(*l, obj) {
			return true
		}
	}
	return false
}

func (n *Node) lists() []*[]*Object {
	return []*[]*Object{
		&n.Vobs, &n.IndoorVobs, &n.SmallVobs, &n.Lights, &n.IndoorLights,
		&n.NonInstanceable, &n.NonInstanceableIndoor, &n.NonInstanceableSmall,
	}
}

// removeObject erases obj from every list.
func (n *Node) removeObject(obj *Object) {
	for _, l := range n.lists() {
		*l = slices.DeleteFunc(*l, func(o *Object) bool { return o == obj })
	}
}

// bakedObjects returns the objects whose instances are baked.
func (n *Node) bakedObjects() [][]*Object {
	return [][]*Object{n.Vobs, n.SmallVobs, n.IndoorVobs}
}

// immediateObjects returns the objects drawn one by one.
func (n *Node) immediateObjects() [][]*Object {
	return [][]*Object{n.NonInstanceable, n.NonInstanceableSmall, n.NonInstanceableIndoor}
}

// releaseBaked drops the baked draws and frees the buffers behind them.
func (n *Node) releaseBaked() error {
	var err error
	for _, d := range n.owned {
		err = multierr.Append(err, d.Release())
	}
	n.owned = nil
	n.Baked = nil
	return err
}

func (n *Node) loadFailCache() int { return int(atomic.LoadInt32(&n.failCache)) }

func (n *Node) storeFailCache(i int) { atomic.StoreInt32(&n.failCache, int32(i)) }
