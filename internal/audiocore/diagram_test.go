package audiocore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// counterPayload backs a 0-in/1-out block that emits an incrementing
// scalar each Process call, used to probe whether a downstream
// connection observes fresh per-pass data or a stale snapshot.
type counterPayload struct{ n float64 }

func newCounterBlock(name string) *Block {
	p := &counterPayload{}
	outputs := []Port{NewPort("out", Output, TypeControl, 0)}
	b := NewBlock(name, KindCustom, nil, outputs, Hooks{
		Process: func(b *Block, frameCount int) error {
			p.n++
			out, err := b.OutputPort(0)
			if err != nil {
				return err
			}
			return out.SetData(ControlPort{Value: p.n})
		},
	})
	b.Payload = p
	return b
}

// recorderPayload backs a 1-in/0-out block that appends whatever its
// input port currently holds to seen, each Process call.
type recorderPayload struct{ seen []float64 }

func newRecorderBlock(name string) *Block {
	p := &recorderPayload{}
	inputs := []Port{NewPort("in", Input, TypeControl, 0)}
	b := NewBlock(name, KindCustom, inputs, nil, Hooks{
		Process: func(b *Block, frameCount int) error {
			in, err := b.InputPort(0)
			if err != nil {
				return err
			}
			cp, _ := in.Data().(ControlPort)
			p.seen = append(p.seen, cp.Value)
			return nil
		},
	})
	b.Payload = p
	return b
}

func newPassthroughBlock(name string) *Block {
	inputs := []Port{NewPort("in", Input, TypeControl, 0)}
	outputs := []Port{NewPort("out", Output, TypeControl, 0)}
	return NewBlock(name, KindCustom, inputs, outputs, Hooks{
		Process: func(b *Block, frameCount int) error {
			in, err := b.InputPort(0)
			if err != nil {
				return err
			}
			cp, _ := in.Data().(ControlPort)
			out, err := b.OutputPort(0)
			if err != nil {
				return err
			}
			return out.SetData(ControlPort{Value: cp.Value})
		},
	})
}

// TestDiagramPropagatesDataBetweenPasses guards against the scheduler
// only ever wiring a connection's data once, at Initialize, and never
// again: three Process passes must each hand the consumer that pass's
// freshly produced value, not the nil snapshot taken before the
// producer ever ran.
func TestDiagramPropagatesDataBetweenPasses(t *testing.T) {
	d := NewDiagram()
	producer := newCounterBlock("producer")
	consumer := newRecorderBlock("consumer")

	_, err := d.AddBlock(producer)
	require.NoError(t, err)
	_, err = d.AddBlock(consumer)
	require.NoError(t, err)
	require.NoError(t, d.Connect("producer", 0, "consumer", 0))
	require.NoError(t, d.Build())
	require.NoError(t, d.Initialize())

	require.NoError(t, d.Process(context.Background(), 1, false))
	require.NoError(t, d.Process(context.Background(), 1, false))
	require.NoError(t, d.Process(context.Background(), 1, false))

	rp := consumer.Payload.(*recorderPayload)
	require.Equal(t, []float64{1, 2, 3}, rp.seen)
}

// TestDiagramPropagatesDataBetweenPassesParallel is the same guard for
// processParallel's layer-barrier path.
func TestDiagramPropagatesDataBetweenPassesParallel(t *testing.T) {
	d := NewDiagram()
	producer := newCounterBlock("producer")
	consumer := newRecorderBlock("consumer")

	_, err := d.AddBlock(producer)
	require.NoError(t, err)
	_, err = d.AddBlock(consumer)
	require.NoError(t, err)
	require.NoError(t, d.Connect("producer", 0, "consumer", 0))
	require.NoError(t, d.Build())
	require.NoError(t, d.Initialize())

	require.NoError(t, d.Process(context.Background(), 1, true))
	require.NoError(t, d.Process(context.Background(), 1, true))

	rp := consumer.Payload.(*recorderPayload)
	require.Equal(t, []float64{1, 2}, rp.seen)
}

// TestTopologicalOrderRespectsEdges covers spec.md §8's universal
// invariant: for every connection (u -> v), index(u) < index(v) in the
// cached topological order, even when one producer fans out to two
// consumers.
func TestTopologicalOrderRespectsEdges(t *testing.T) {
	d := NewDiagram()
	p := newCounterBlock("p")
	c1 := newRecorderBlock("c1")
	c2 := newRecorderBlock("c2")

	ids := make(map[string]BlockID, 3)
	for _, bl := range []*Block{p, c1, c2} {
		id, err := d.AddBlock(bl)
		require.NoError(t, err)
		ids[bl.Name] = id
	}
	require.NoError(t, d.Connect("p", 0, "c1", 0))
	require.NoError(t, d.Connect("p", 0, "c2", 0))
	require.NoError(t, d.Build())

	order := d.TopologicalOrder()
	require.Len(t, order, 3)

	pos := make(map[BlockID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	require.Less(t, pos[ids["p"]], pos[ids["c1"]])
	require.Less(t, pos[ids["p"]], pos[ids["c2"]])
}

// TestBuildRejectsCycle covers S6: a diagram with a cycle must fail
// Build and remain in state Draft.
func TestBuildRejectsCycle(t *testing.T) {
	d := NewDiagram()
	a := newPassthroughBlock("a")
	b := newPassthroughBlock("b")

	_, err := d.AddBlock(a)
	require.NoError(t, err)
	_, err = d.AddBlock(b)
	require.NoError(t, err)
	require.NoError(t, d.Connect("a", 0, "b", 0))
	require.NoError(t, d.Connect("b", 0, "a", 0))

	err = d.Build()
	require.Error(t, err)
	require.Equal(t, StateDraft, d.State())
}

// TestBuildRejectsUnconnectedInput covers the "every required input
// connected" validation rule.
func TestBuildRejectsUnconnectedInput(t *testing.T) {
	d := NewDiagram()
	_, err := d.AddBlock(newRecorderBlock("orphan"))
	require.NoError(t, err)

	err = d.Build()
	require.Error(t, err)
}

// TestConnectRejectsTypeMismatch covers port-type validation.
func TestConnectRejectsTypeMismatch(t *testing.T) {
	d := NewDiagram()
	audioOut := NewBlock("audio_src", KindCustom, nil,
		[]Port{NewPort("out", Output, TypeAudio, 0)}, Hooks{})
	controlIn := newRecorderBlock("control_dst")

	_, err := d.AddBlock(audioOut)
	require.NoError(t, err)
	_, err = d.AddBlock(controlIn)
	require.NoError(t, err)
	require.NoError(t, d.Connect("audio_src", 0, "control_dst", 0))

	err = d.Build()
	require.Error(t, err)
}
