package world

import (
	"slices"

	"github.com/Faultbox/zenbsp/internal/engine/visual"
	"github.com/Faultbox/zenbsp/internal/host"
)

// Object is the renderer side of one host vob.
type Object struct {
	Vob    host.Vob
	Visual *visual.Visual

	dynamic bool
	// collected is set while a traversal has drawn the object.
	collected bool
	// owners are the leaves listing the object.
	owners []NodeID
}

// Dynamic reports whether the object is drawn by the dynamic pass.
func (o *Object) Dynamic() bool { return o.dynamic }

// Owners returns the leaves that list the object.
func (o *Object) Owners() []NodeID { return o.owners }

func (o *Object) addOwner(id NodeID) {
	if !slices.Contains(o.owners, id) {
		o.owners = append(o.owners, id)
	}
}

// draw registers the object with its visual.
func (o *Object) draw(ctx *visual.DrawContext) {
	o.Visual.Draw(ctx, o.Vob.InstanceInfo())
}
