package audiocore

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/voxgraph/internal/errors"
)

// runLayers groups the cached topological order into independence layers:
// every block in a layer has no edge to another block in the same layer,
// so layer members may run concurrently. Layers themselves must run in
// order.
func (d *Diagram) runLayers() [][]BlockID {
	depth := make(map[BlockID]int, len(d.topoOrder))
	preds := make(map[BlockID][]BlockID, len(d.topoOrder))
	for _, c := range d.connections {
		preds[c.Dst.BlockID] = append(preds[c.Dst.BlockID], c.Src.BlockID)
	}

	maxDepth := 0
	for _, id := range d.topoOrder {
		d := 0
		for _, p := range preds[id] {
			if depth[p]+1 > d {
				d = depth[p] + 1
			}
		}
		depth[id] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	layers := make([][]BlockID, maxDepth+1)
	for _, id := range d.topoOrder {
		layers[depth[id]] = append(layers[depth[id]], id)
	}
	return layers
}

// Process executes every enabled block once, in topological order, for
// frameCount frames. It aborts and returns the first block error
// encountered. ctx is polled cooperatively between blocks (and, in
// parallel mode, before each layer) so a cancellation lands within one
// block's worth of latency rather than at the end of the whole pass
// (spec.md §4.E "Cooperative cancellation").
func (d *Diagram) Process(ctx context.Context, frameCount int, parallel bool) error {
	d.mu.RLock()
	state := d.state
	order := append([]BlockID(nil), d.topoOrder...)
	d.mu.RUnlock()

	if state != StateInitialized && state != StateReady && state != StateRunning {
		return errors.Newf("cannot process: diagram is %s", state).
			Component(ComponentAudioCore).
			Category(errors.CategoryPipeline).
			Kind(errors.InvalidState).
			Build()
	}

	d.setState(StateRunning)

	var err error
	if parallel {
		err = d.processParallel(ctx, frameCount)
	} else {
		err = d.processSequential(ctx, order, frameCount)
	}

	if err != nil {
		d.setLastError(err)
		d.setState(StateReady)
		return err
	}

	d.setState(StateReady)
	return nil
}

func (d *Diagram) processSequential(ctx context.Context, order []BlockID, frameCount int) error {
	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return errors.New(err).
				Component(ComponentAudioCore).
				Category(errors.CategoryCancellation).
				Kind(errors.Cancelled).
				Build()
		}

		b := d.Block(id)
		if b == nil || !b.Enabled {
			continue
		}
		if err := b.Process(frameCount); err != nil {
			return errors.New(err).
				Component(ComponentAudioCore).
				Category(errors.CategoryPipeline).
				Context("block", b.Name).
				Build()
		}
		if err := d.propagateFrom(id); err != nil {
			return err
		}
	}
	return nil
}

// processParallel runs each independence layer's blocks concurrently via
// an errgroup, with a fork/join barrier between layers so a common
// downstream consumer never starts before all of its producers finish.
func (d *Diagram) processParallel(ctx context.Context, frameCount int) error {
	layers := d.runLayers()

	var aborted atomic.Bool
	for _, layer := range layers {
		if err := ctx.Err(); err != nil {
			return errors.New(err).
				Component(ComponentAudioCore).
				Category(errors.CategoryCancellation).
				Kind(errors.Cancelled).
				Build()
		}
		if aborted.Load() {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, id := range layer {
			id := id
			b := d.Block(id)
			if b == nil || !b.Enabled {
				continue
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := b.Process(frameCount); err != nil {
					return errors.New(err).
						Component(ComponentAudioCore).
						Category(errors.CategoryPipeline).
						Context("block", b.Name).
						Build()
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			aborted.Store(true)
			return err
		}

		for _, id := range layer {
			if err := d.propagateFrom(id); err != nil {
				return err
			}
		}
	}
	return nil
}
