package audiocore

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tphakala/voxgraph/internal/errors"
	"github.com/tphakala/voxgraph/internal/logging"
)

// DiagramState is the Diagram's lifecycle state machine (spec.md §4.D).
type DiagramState int

const (
	StateDraft DiagramState = iota
	StateBuilt
	StateInitialized
	StateRunning
	StateReady
	StateDestroyed
)

func (s DiagramState) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateBuilt:
		return "built"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Diagram owns a set of blocks (indexed by ID) and a set of connections.
// It is immutable after Build succeeds; Build caches a canonical
// topological order used by every subsequent Process call.
type Diagram struct {
	mu sync.RWMutex

	UUID  uuid.UUID
	state DiagramState

	blocks      map[BlockID]*Block
	names       map[string]BlockID
	order       []BlockID // insertion order, used to assign IDs
	nextID      BlockID
	connections []*Connection

	topoOrder []BlockID
	lastErr   error

	logger *slog.Logger
}

// NewDiagram creates an empty diagram in state Draft.
func NewDiagram() *Diagram {
	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}
	return &Diagram{
		UUID:   uuid.New(),
		blocks: make(map[BlockID]*Block),
		names:  make(map[string]BlockID),
		logger: logger.With("component", "diagram"),
	}
}

// State returns the diagram's current lifecycle state.
func (d *Diagram) State() DiagramState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// AddBlock assigns b a monotonic ID, checks name uniqueness, and stores
// it. Only valid in state Draft.
func (d *Diagram) AddBlock(b *Block) (BlockID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateDraft {
		return 0, errors.Newf("cannot add block %q: diagram is %s, not draft", b.Name, d.state).
			Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.InvalidState).Build()
	}
	if _, exists := d.names[b.Name]; exists {
		return 0, errors.Newf("block name %q already in diagram", b.Name).
			Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.InvalidArgument).Build()
	}

	id := d.nextID
	d.nextID++
	b.ID = id
	d.blocks[id] = b
	d.names[b.Name] = id
	d.order = append(d.order, id)

	return id, nil
}

// Connect creates a Connection between the named source output port and
// destination input port. It is not validated until Build.
func (d *Diagram) Connect(srcName string, srcPort int, dstName string, dstPort int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateDraft {
		return errors.Newf("cannot connect: diagram is %s, not draft", d.state).
			Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.InvalidState).Build()
	}

	srcID, ok := d.names[srcName]
	if !ok {
		return errors.Newf("unknown source block %q", srcName).
			Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.NotFound).Build()
	}
	dstID, ok := d.names[dstName]
	if !ok {
		return errors.Newf("unknown destination block %q", dstName).
			Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.NotFound).Build()
	}

	d.connections = append(d.connections, &Connection{
		Src: Endpoint{BlockID: srcID, Port: srcPort},
		Dst: Endpoint{BlockID: dstID, Port: dstPort},
	})
	return nil
}

// Validate returns an error on any of: dangling connection, type
// mismatch, multiple producers into one input, a cycle, or a required
// input left unconnected (spec.md §4.D).
func (d *Diagram) Validate() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.validateLocked()
}

func (d *Diagram) validateLocked() error {
	for _, c := range d.connections {
		if err := c.validate(d.blocks); err != nil {
			return err
		}
	}

	producers := make(map[Endpoint]int)
	for _, c := range d.connections {
		producers[c.Dst]++
		if producers[c.Dst] > 1 {
			return errors.Newf("input %d.%d has multiple producers", c.Dst.BlockID, c.Dst.Port).
				Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.GraphBuildFailed).Build()
		}
	}

	// Non-source blocks (i.e. blocks with at least one input port) must
	// have every input connected; outputs may dangle.
	for id, b := range d.blocks {
		if len(b.Inputs) == 0 {
			continue
		}
		for i := range b.Inputs {
			if producers[Endpoint{BlockID: id, Port: i}] == 0 {
				return errors.Newf("block %q input %d is unconnected", b.Name, i).
					Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.GraphBuildFailed).Build()
			}
		}
	}

	if _, err := d.topologicalOrder(); err != nil {
		return err
	}

	return nil
}

// topologicalOrder computes Kahn's-algorithm topological order over the
// block graph, tie-breaking ties in in-degree by ascending BlockID for a
// deterministic execution order (spec.md §4.D).
func (d *Diagram) topologicalOrder() ([]BlockID, error) {
	inDegree := make(map[BlockID]int, len(d.blocks))
	adj := make(map[BlockID][]BlockID, len(d.blocks))
	for id := range d.blocks {
		inDegree[id] = 0
	}
	for _, c := range d.connections {
		adj[c.Src.BlockID] = append(adj[c.Src.BlockID], c.Dst.BlockID)
		inDegree[c.Dst.BlockID]++
	}

	var ready []BlockID
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	var order []BlockID
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		next := append([]BlockID(nil), adj[id]...)
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		for _, n := range next {
			inDegree[n]--
			if inDegree[n] == 0 {
				ready = append(ready, n)
			}
		}
	}

	if len(order) != len(d.blocks) {
		return nil, errors.Newf("cycle detected: %d of %d blocks reachable in topological order", len(order), len(d.blocks)).
			Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.GraphBuildFailed).Build()
	}
	return order, nil
}

// Build requires Validate to succeed, then computes and caches the
// canonical topological order. The diagram is immutable after Build.
func (d *Diagram) Build() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateDraft {
		return errors.Newf("cannot build: diagram is %s, not draft", d.state).
			Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.InvalidState).Build()
	}

	if err := d.validateLocked(); err != nil {
		d.lastErr = err
		return err
	}

	order, err := d.topologicalOrder()
	if err != nil {
		d.lastErr = err
		return err
	}

	d.topoOrder = order
	d.state = StateBuilt
	d.logger.Info("diagram built", "block_count", len(d.blocks), "connection_count", len(d.connections))
	return nil
}

// Initialize calls every block's Initialize hook in topological order
// (so a producer's output buffers exist before any downstream consumer
// needs them), then activates every connection.
func (d *Diagram) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateBuilt {
		return errors.Newf("cannot initialize: diagram is %s, not built", d.state).
			Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.InvalidState).Build()
	}

	for _, id := range d.topoOrder {
		b := d.blocks[id]
		if err := b.Initialize(); err != nil {
			d.lastErr = err
			d.cleanupLocked()
			return err
		}
	}

	for _, c := range d.connections {
		if err := c.activate(d.blocks); err != nil {
			d.lastErr = err
			d.cleanupLocked()
			return err
		}
	}

	d.state = StateInitialized
	return nil
}

// TopologicalOrder returns a copy of the cached topological order.
func (d *Diagram) TopologicalOrder() []BlockID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]BlockID(nil), d.topoOrder...)
}

// Block returns the block with the given ID, or nil if absent.
func (d *Diagram) Block(id BlockID) *Block {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.blocks[id]
}

// BlockByName returns the block with the given name, or nil if absent.
func (d *Diagram) BlockByName(name string) *Block {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.names[name]
	if !ok {
		return nil
	}
	return d.blocks[id]
}

// Blocks returns every block in the diagram, in insertion order.
func (d *Diagram) Blocks() []*Block {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Block, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.blocks[id])
	}
	return out
}

// Connections returns every connection in the diagram.
func (d *Diagram) Connections() []*Connection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*Connection(nil), d.connections...)
}

// propagateFrom re-activates every connection sourced at srcID, pushing
// that block's just-produced output port data into each connected
// downstream input port. Called by the scheduler right after a block's
// Process returns, so the next block in topological order (or the next
// layer, in parallel mode) observes this pass's output rather than the
// buffer snapshot taken at Initialize time.
func (d *Diagram) propagateFrom(srcID BlockID) error {
	d.mu.RLock()
	conns := d.connections
	blocks := d.blocks
	d.mu.RUnlock()

	for _, c := range conns {
		if c.Src.BlockID != srcID {
			continue
		}
		if err := c.propagate(blocks); err != nil {
			return err
		}
	}
	return nil
}

// LastError returns the last error recorded by Build, Initialize, or
// Process.
func (d *Diagram) LastError() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

// Destroy tears down every block via Cleanup, safe to call from any
// state.
func (d *Diagram) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleanupLocked()
	d.state = StateDestroyed
}

func (d *Diagram) cleanupLocked() {
	for _, id := range d.order {
		d.blocks[id].Cleanup()
	}
}

func (d *Diagram) setState(s DiagramState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
}

func (d *Diagram) setLastError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastErr = err
}
