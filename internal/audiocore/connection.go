package audiocore

import (
	"github.com/tphakala/voxgraph/internal/errors"
)

// Endpoint addresses one port on one block by stable ID + port index.
type Endpoint struct {
	BlockID BlockID
	Port    int
}

// Connection is a directed edge from an output port to an input port.
// Activate wires the input port to reference the output port's buffer;
// Validate enforces spec.md §3's Connection invariants.
type Connection struct {
	Src Endpoint
	Dst Endpoint

	activated bool
}

// validate checks the connection against the diagram's current block
// set, without mutating anything: both endpoints exist, directions are
// correct, types match, capacities are compatible, and it is not a
// self-loop.
func (c *Connection) validate(blocks map[BlockID]*Block) error {
	if c.Src.BlockID == c.Dst.BlockID {
		return errors.Newf("self-loop on block %d", c.Src.BlockID).
			Component(ComponentAudioCore).
			Category(errors.CategoryGraph).
			Kind(errors.GraphBuildFailed).
			Build()
	}

	srcBlock, ok := blocks[c.Src.BlockID]
	if !ok {
		return errors.Newf("connection source block %d does not exist", c.Src.BlockID).
			Component(ComponentAudioCore).
			Category(errors.CategoryGraph).
			Kind(errors.GraphBuildFailed).
			Build()
	}
	dstBlock, ok := blocks[c.Dst.BlockID]
	if !ok {
		return errors.Newf("connection destination block %d does not exist", c.Dst.BlockID).
			Component(ComponentAudioCore).
			Category(errors.CategoryGraph).
			Kind(errors.GraphBuildFailed).
			Build()
	}

	srcPort, err := srcBlock.OutputPort(c.Src.Port)
	if err != nil {
		return errors.New(err).Category(errors.CategoryGraph).Kind(errors.GraphBuildFailed).Build()
	}
	dstPort, err := dstBlock.InputPort(c.Dst.Port)
	if err != nil {
		return errors.New(err).Category(errors.CategoryGraph).Kind(errors.GraphBuildFailed).Build()
	}

	if srcPort.Dir != Output {
		return errors.Newf("connection source %d.%d is not an output port", c.Src.BlockID, c.Src.Port).
			Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.GraphBuildFailed).Build()
	}
	if dstPort.Dir != Input {
		return errors.Newf("connection destination %d.%d is not an input port", c.Dst.BlockID, c.Dst.Port).
			Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.GraphBuildFailed).Build()
	}
	if srcPort.PortType != dstPort.PortType {
		return errors.Newf("port type mismatch: %s.%d (%s) -> %s.%d (%s)",
			srcBlock.Name, c.Src.Port, srcPort.PortType, dstBlock.Name, c.Dst.Port, dstPort.PortType).
			Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.GraphBuildFailed).Build()
	}
	if dstPort.Capacity > srcPort.Capacity {
		return errors.Newf("capacity mismatch: consumer %s.%d capacity %d exceeds producer %s.%d capacity %d",
			dstBlock.Name, c.Dst.Port, dstPort.Capacity, srcBlock.Name, c.Src.Port, srcPort.Capacity).
			Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.GraphBuildFailed).Build()
	}

	return nil
}

// propagate re-runs activate, pushing whatever the source output port
// currently holds into the destination input port. activate itself is
// cheap (it copies a small tagged-union value, never the backing
// slice), so the scheduler calls this once per producer per pass to
// keep downstream blocks reading live data rather than the stale
// snapshot taken at Diagram.Initialize time.
func (c *Connection) propagate(blocks map[BlockID]*Block) error {
	return c.activate(blocks)
}

// activate wires the destination input port to reference the source
// output port's buffer. Idempotent: calling it again with the same
// upstream data is a no-op (spec.md §3 "activation is idempotent").
func (c *Connection) activate(blocks map[BlockID]*Block) error {
	srcBlock := blocks[c.Src.BlockID]
	dstBlock := blocks[c.Dst.BlockID]

	srcPort, err := srcBlock.OutputPort(c.Src.Port)
	if err != nil {
		return err
	}
	dstPort, err := dstBlock.InputPort(c.Dst.Port)
	if err != nil {
		return err
	}

	if err := dstPort.SetData(srcPort.Data()); err != nil {
		return err
	}
	srcPort.connected = true
	dstPort.connected = true
	c.activated = true
	return nil
}
