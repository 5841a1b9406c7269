package world

import (
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/zenbsp/pkg/math"
)

// DrawWorldThreaded draws a frame like DrawWorld but culls the two halves
// below a split root concurrently. GPU work and submission stay on the
// calling goroutine, in the same order DrawWorld would produce.
func (w *World) DrawWorldThreaded(view View) error {
	w.beginFrame()
	if w.cfg.DrawVobs && w.root != NoNode {
		res, err := w.cullParallel(view)
		if err != nil {
			return err
		}
		w.submit(res)
	}
	return w.endFrame(view)
}

func (w *World) cullParallel(view View) (cullResult, error) {
	top := w.newTraversal(view)
	cell := w.nodes[w.root].Box
	act, flags := top.enter(w.root, cell, math.AllClipPlanes)
	switch act {
	case cull:
		return top.res, nil
	case accept:
		top.acceptSubtree(w.root)
		return top.res, nil
	}

	near, nearCell, far, farCell := top.split(w.root, cell)
	halves := [2]*traversal{w.newTraversal(view), w.newTraversal(view)}

	var g errgroup.Group
	if w.cfg.CullWorkers > 0 {
		g.SetLimit(w.cfg.CullWorkers)
	}
	g.Go(func() error {
		if near != NoNode {
			halves[0].drawTree(near, nearCell, flags)
		}
		return nil
	})
	g.Go(func() error {
		if far != NoNode {
			halves[1].drawTree(far, farCell, flags)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return cullResult{}, err
	}

	res := top.res
	res.merge(halves[0].res)
	res.merge(halves[1].res)
	return res, nil
}
