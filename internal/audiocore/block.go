package audiocore

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/tphakala/voxgraph/internal/errors"
	"github.com/tphakala/voxgraph/internal/logging"
)

// Kind tags a block with its role in the canonical analysis->synthesis
// diagram (spec.md §3 "Block").
type Kind int

const (
	KindAudioInput Kind = iota
	KindF0Extraction
	KindSpectrumAnalysis
	KindAperiodicityAnalysis
	KindParameterMerge
	KindSynthesis
	KindAudioOutput
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindAudioInput:
		return "audio_input"
	case KindF0Extraction:
		return "f0_extraction"
	case KindSpectrumAnalysis:
		return "spectrum_analysis"
	case KindAperiodicityAnalysis:
		return "aperiodicity_analysis"
	case KindParameterMerge:
		return "parameter_merge"
	case KindSynthesis:
		return "synthesis"
	case KindAudioOutput:
		return "audio_output"
	default:
		return "custom"
	}
}

// BlockID is a stable identifier assigned on insertion into a Diagram,
// realizing the design note "Pointer-rich payloads as arena indices":
// blocks reference each other by this small value type rather than raw
// pointers.
type BlockID uint32

// Hooks are the block's three function contracts (spec.md §3 "Block"):
// Initialize runs once after every port is configured and allocates
// output buffers; Process runs once per scheduler pass (or once per
// streaming chunk); Cleanup must be safe to call from any state,
// including after a failed Initialize or Process.
type Hooks struct {
	Initialize func(b *Block) error
	Process    func(b *Block, frameCount int) error
	Cleanup    func(b *Block)
}

// Block is a named processing unit with a stable ID, a fixed set of
// input/output ports, an opaque private payload, and the three Hooks.
type Block struct {
	ID      BlockID
	Name    string
	Kind    Kind
	UUID    uuid.UUID
	Inputs  []Port
	Outputs []Port
	Payload any

	// StreamingCapable, when false, tells the scheduler this block can
	// only run in one-shot mode with the whole-stream frame count
	// (spec.md §4.C).
	StreamingCapable bool

	Enabled     bool
	initialized bool
	hooks       Hooks

	Logger *slog.Logger
}

// NewBlock constructs a block with its ports fixed at creation, per
// spec.md §4.C ("input port vector and output port vector (fixed at
// creation)"). Port configuration (name/direction/type/capacity) must be
// complete before Initialize is called.
func NewBlock(name string, kind Kind, inputs, outputs []Port, hooks Hooks) *Block {
	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "block", "block_name", name, "block_kind", kind.String())

	return &Block{
		Name:             name,
		Kind:             kind,
		UUID:             uuid.New(),
		Inputs:           inputs,
		Outputs:          outputs,
		hooks:            hooks,
		Enabled:          true,
		StreamingCapable: true,
		Logger:           logger,
	}
}

// Initialized reports whether Initialize has returned success.
func (b *Block) Initialized() bool { return b.initialized }

// Initialize allocates output buffers are the caller's responsibility
// (each block's Initialize hook does this, typically via arena.Alloc),
// then runs the block's init hook. Per spec.md §4.C, failure here must
// leave the block safe for Cleanup.
func (b *Block) Initialize() error {
	if b.hooks.Initialize != nil {
		if err := b.hooks.Initialize(b); err != nil {
			return errors.New(err).
				Component(ComponentAudioCore).
				Category(errors.CategoryPipeline).
				Kind(errors.InvalidState).
				Context("block", b.Name).
				Context("op", "initialize").
				Build()
		}
	}
	b.initialized = true
	return nil
}

// Process must not be called before Initialize returns success
// (spec.md §4.B invariant). It reads connected input-port buffers
// (read-only — spec.md §4.E) and writes this block's own output
// buffers; it must never reallocate or reach into another block.
func (b *Block) Process(frameCount int) error {
	if !b.initialized {
		return errors.Newf("block %q: process called before initialize", b.Name).
			Component(ComponentAudioCore).
			Category(errors.CategoryPipeline).
			Kind(errors.InvalidState).
			Build()
	}
	if b.hooks.Process == nil {
		return nil
	}
	if err := b.hooks.Process(b, frameCount); err != nil {
		return err
	}
	return nil
}

// Cleanup is safe to call from any state, including post-failure
// (spec.md §4.B invariant).
func (b *Block) Cleanup() {
	if b.hooks.Cleanup != nil {
		b.hooks.Cleanup(b)
	}
	b.initialized = false
}

// InputPort returns the input port at idx, or an error if out of range.
func (b *Block) InputPort(idx int) (*Port, error) {
	if idx < 0 || idx >= len(b.Inputs) {
		return nil, errors.Newf("block %q has no input port %d", b.Name, idx).
			Component(ComponentAudioCore).
			Category(errors.CategoryPort).
			Kind(errors.InvalidArgument).
			Build()
	}
	return &b.Inputs[idx], nil
}

// OutputPort returns the output port at idx, or an error if out of range.
func (b *Block) OutputPort(idx int) (*Port, error) {
	if idx < 0 || idx >= len(b.Outputs) {
		return nil, errors.Newf("block %q has no output port %d", b.Name, idx).
			Component(ComponentAudioCore).
			Category(errors.CategoryPort).
			Kind(errors.InvalidArgument).
			Build()
	}
	return &b.Outputs[idx], nil
}
