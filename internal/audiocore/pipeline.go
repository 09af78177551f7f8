package audiocore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/smallnest/ringbuffer"

	"github.com/tphakala/voxgraph/internal/conf"
	"github.com/tphakala/voxgraph/internal/errors"
	"github.com/tphakala/voxgraph/internal/logging"
	"github.com/tphakala/voxgraph/internal/monitor"

	"github.com/tphakala/voxgraph/internal/audiocore/arena"
)

// UtauParams is the external parameter set a CLI or host passes into a
// pipeline run (spec.md §6). The core only reads SampleRate,
// InputSamples, TargetPitch and PitchBend plus ChunkSize for streaming;
// the remaining fields exist so a UTAU-style resampler front-end has
// somewhere to put its arguments.
type UtauParams struct {
	InputWAVPath      string
	OutputWAVPath     string
	TargetPitch       float64 // Hz
	Velocity          float64 // 0-1
	Volume            float64 // 0-1
	Modulation        float64 // 0-1
	PitchBend         []float32
	ConsonantVelocity float64
	PreUtteranceMs    float64
	OverlapMs         float64
	StartPointMs      float64
	SampleRate        int
	BitDepth          int // 16, 24, or 32
	EnableCache       bool
	Verbose           bool

	InputSamples []float32

	// ChunkSize is the PCM chunk size ProcessStreaming feeds the
	// scheduler, one analysis pass per chunk. Ignored by Process and
	// ProcessAsync.
	ChunkSize int
}

// ValidateUtauParameters enforces spec.md §6/§7's "validation is always
// explicit" rule: consumers must not proceed past an invalid parameter
// set, and the caller always gets InvalidArgument rather than a panic or
// silent clamp.
func ValidateUtauParameters(p UtauParams) error {
	build := func(msg string) error {
		return errors.Newf("%s", msg).
			Component(ComponentAudioCore).
			Category(errors.CategoryValidation).
			Kind(errors.InvalidArgument).
			Build()
	}

	if len(p.InputSamples) == 0 {
		return build("utau parameters: input_samples must be non-empty")
	}
	if p.SampleRate < 8000 || p.SampleRate > 96000 {
		return build("utau parameters: sample_rate must be within [8000, 96000]")
	}
	if p.TargetPitch <= 0 {
		return build("utau parameters: target_pitch must be positive")
	}
	if p.Velocity < 0 || p.Velocity > 1 {
		return build("utau parameters: velocity must be within [0, 1]")
	}
	if p.Volume < 0 || p.Volume > 1 {
		return build("utau parameters: volume must be within [0, 1]")
	}
	if p.Modulation < 0 || p.Modulation > 1 {
		return build("utau parameters: modulation must be within [0, 1]")
	}
	switch p.BitDepth {
	case 0, 16, 24, 32:
	default:
		return build("utau parameters: bit_depth must be one of {16, 24, 32}")
	}
	if p.ChunkSize < 0 {
		return build("utau parameters: chunk_size must not be negative")
	}
	return nil
}

// DiagramFactory builds the canonical analysis->synthesis diagram for
// one pipeline run. It lives as a function type, not a direct
// dependency, because the concrete wiring (package blocks) already
// imports this package for Block/Port/Diagram -- importing it back here
// would be a cycle. The composition root supplies a concrete factory
// (blocks.CanonicalDiagram) to NewPipeline.
type DiagramFactory func(cfg *conf.PipelineConfig, params UtauParams, a *arena.Arena) (*Diagram, error)

// PipelineState is the pipeline's lifecycle state machine (spec.md §4.F
// "Pipeline state machine").
type PipelineState int

const (
	PipelineUninitialized PipelineState = iota
	PipelineInitialized
	PipelineReady
	PipelineRunning
	PipelinePaused
	PipelineCompleted
	PipelineError
)

func (s PipelineState) String() string {
	switch s {
	case PipelineUninitialized:
		return "uninitialized"
	case PipelineInitialized:
		return "initialized"
	case PipelineReady:
		return "ready"
	case PipelineRunning:
		return "running"
	case PipelinePaused:
		return "paused"
	case PipelineCompleted:
		return "completed"
	case PipelineError:
		return "error"
	default:
		return "unknown"
	}
}

// CompletionResult is delivered to an async completion callback or
// returned from a one-shot Process call.
type CompletionResult struct {
	Samples []float32
	Kind    errors.Kind
	Message string
}

// Pipeline is the top-level orchestrator: it owns a memory arena, a
// performance monitor, and (once Initialize succeeds) a built+
// initialized Diagram, and exposes the three execution modes spec.md
// §4.F names -- one-shot, async, and streaming -- plus reconfiguration,
// cancellation, and the debug introspection surface (§6).
type Pipeline struct {
	mu sync.Mutex

	cfg     *conf.PipelineConfig
	factory DiagramFactory

	arena   *arena.Arena
	monitor *monitor.Monitor
	diagram *Diagram

	state   PipelineState
	lastErr error

	createdAt        time.Time
	lastExecutionAt  time.Time
	lastExecDuration time.Duration

	cancel func()

	streamCond      *sync.Cond
	streamPaused    bool
	streamingActive bool

	logger *slog.Logger
}

// NewPipeline constructs a pipeline bound to cfg and factory but does
// not yet build a diagram; call Initialize with the run's parameters to
// reach state Ready. Arena creation failure is the one documented
// process-level fatal condition (spec.md §7): it prevents pipeline
// construction outright.
func NewPipeline(cfg *conf.PipelineConfig, factory DiagramFactory) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.Newf("pipeline: nil configuration").
			Component(ComponentAudioCore).Category(errors.CategoryConfiguration).Kind(errors.InvalidArgument).Build()
	}
	if err := conf.Validate(cfg); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, errors.Newf("pipeline: nil diagram factory").
			Component(ComponentAudioCore).Category(errors.CategoryPipeline).Kind(errors.InvalidArgument).Build()
	}

	a, err := arena.New(cfg.Memory.MemoryPoolSize)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentAudioCore).Category(errors.CategoryMemory).Kind(errors.OutOfMemory).Build()
	}

	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		cfg:       cfg,
		factory:   factory,
		arena:     a,
		monitor:   monitor.New(cfg.Performance, cfg.Audio.SampleRate),
		state:     PipelineUninitialized,
		createdAt: time.Now(),
		logger:    logger.With("component", "pipeline"),
	}
	p.streamCond = sync.NewCond(&p.mu)
	return p, nil
}

// Initialize validates params, builds the canonical diagram via the
// pipeline's factory, and brings it to state Initialized then Ready.
// Failure leaves the pipeline in state Error with last_error set.
func (p *Pipeline) Initialize(params UtauParams) error {
	if err := ValidateUtauParameters(params); err != nil {
		return err
	}

	p.monitor.StageBegin(monitor.StageInitialization)
	defer p.monitor.StageEnd(monitor.StageInitialization)

	d, err := p.factory(p.cfg, params, p.arena)
	if err != nil {
		return p.failErr(err)
	}
	if err := d.Build(); err != nil {
		return p.failErr(err)
	}
	if err := d.Initialize(); err != nil {
		return p.failErr(err)
	}

	p.mu.Lock()
	p.diagram = d
	p.state = PipelineReady
	p.lastErr = nil
	p.mu.Unlock()

	p.logger.Info("pipeline initialized", "block_count", len(d.Blocks()))
	return nil
}

// failErr records err as last_error, transitions to state Error, and
// returns it -- the single place every initialization/execution failure
// path funnels through (spec.md §7 "Surfaced" policy).
func (p *Pipeline) failErr(err error) error {
	p.mu.Lock()
	p.lastErr = err
	p.state = PipelineError
	p.mu.Unlock()
	return err
}

// State returns the pipeline's current lifecycle state.
func (p *Pipeline) State() PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastError returns the error recorded by the most recent failed
// operation, or nil.
func (p *Pipeline) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// ClearError resets last_error and, if the pipeline holds a built
// diagram, returns it to state Ready so processing can be retried
// (spec.md §7 "clear_error() resets last_error and allows
// re-initialization").
func (p *Pipeline) ClearError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = nil
	if p.diagram != nil {
		p.state = PipelineReady
	} else {
		p.state = PipelineUninitialized
	}
}

// AnalysisFrameCount converts a raw sample count into the number of
// analysis frames it spans at the configured hop size, matching the
// periodicity invariant spec.md §8 requires of F0Extraction's time
// axis: frame_count = floor(samples / hop) + 1. Exported so
// blocks.CanonicalDiagram can size arena-backed port buffers to the
// exact frame count a run will produce.
func AnalysisFrameCount(numSamples, hopSamples int) int {
	if hopSamples <= 0 {
		hopSamples = 1
	}
	return numSamples/hopSamples + 1
}

// HopSamples returns the analysis hop size in raw samples for the
// given sample rate, exported for the same sizing reason as
// AnalysisFrameCount.
func HopSamples(cfg *conf.PipelineConfig, sampleRate int) int {
	if sampleRate <= 0 {
		sampleRate = cfg.Audio.SampleRate
	}
	hop := int(cfg.F0.FramePeriodMs / 1000 * float64(sampleRate))
	if hop <= 0 {
		hop = 1
	}
	return hop
}

// runOnce drives the audio_input block by hand for rawSampleCount raw
// PCM samples, then runs every other enabled block once over the
// corresponding analysis frame count. AudioInput's Process(n) contract
// treats n as a raw sample count while every analysis block treats its
// frameCount argument as an analysis-frame count (spec.md §4.G); a
// single diagram.Process(ctx, n, parallel) call cannot honor both
// meanings at once, so the pipeline disables audio_input, advances it
// itself, re-propagates its output, then lets the scheduler run the
// rest of the topological order under the analysis-frame count.
func (p *Pipeline) runOnce(ctx context.Context, d *Diagram, rawSampleCount int, hop int) error {
	audioIn := d.BlockByName("audio_input")
	if audioIn == nil {
		return errors.Newf("pipeline: diagram has no block named audio_input").
			Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.NotFound).Build()
	}

	p.monitor.StageBegin(monitor.StageAudioInput)
	if err := audioIn.Process(rawSampleCount); err != nil {
		p.monitor.StageEnd(monitor.StageAudioInput)
		return err
	}
	if err := d.propagateFrom(audioIn.ID); err != nil {
		p.monitor.StageEnd(monitor.StageAudioInput)
		return err
	}
	p.monitor.StageEnd(monitor.StageAudioInput)

	audioIn.Enabled = false
	defer func() { audioIn.Enabled = true }()

	frameCount := AnalysisFrameCount(rawSampleCount, hop)
	return d.Process(ctx, frameCount, p.cfg.Optimization.EnableParallelExecution)
}

// collectOutput type-asserts the audio_output block's payload against
// SamplesProvider to retrieve the synthesized signal without importing
// the concrete adapter package (see SamplesProvider's doc comment).
func collectOutput(d *Diagram) ([]float32, error) {
	outBlock := d.BlockByName("audio_output")
	if outBlock == nil {
		return nil, errors.Newf("pipeline: diagram has no block named audio_output").
			Component(ComponentAudioCore).Category(errors.CategoryGraph).Kind(errors.NotFound).Build()
	}
	sp, ok := outBlock.Payload.(SamplesProvider)
	if !ok {
		return nil, errors.Newf("pipeline: audio_output payload does not implement SamplesProvider").
			Component(ComponentAudioCore).Category(errors.CategoryPipeline).Kind(errors.Internal).Build()
	}
	return sp.Samples(), nil
}

// Process is the one-shot execution mode (spec.md §4.F mode 1): it runs
// the whole input buffer through the diagram in a single pass and
// returns the synthesized samples.
func (p *Pipeline) Process(params UtauParams) (CompletionResult, error) {
	if err := ValidateUtauParameters(params); err != nil {
		return CompletionResult{Kind: errors.InvalidArgument, Message: err.Error()}, err
	}

	if err := p.Initialize(params); err != nil {
		return CompletionResult{Kind: errors.InvalidState, Message: err.Error()}, err
	}

	p.mu.Lock()
	d := p.diagram
	p.state = PipelineRunning
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()
	defer cancel()

	start := time.Now()
	hop := HopSamples(p.cfg, params.SampleRate)
	err := p.runOnce(ctx, d, len(params.InputSamples), hop)

	p.mu.Lock()
	p.lastExecutionAt = time.Now()
	p.lastExecDuration = time.Since(start)
	p.mu.Unlock()

	if err != nil {
		_ = p.failErr(err)
		return CompletionResult{Kind: errors.Internal, Message: err.Error()}, err
	}

	samples, err := collectOutput(d)
	if err != nil {
		_ = p.failErr(err)
		return CompletionResult{Kind: errors.Internal, Message: err.Error()}, err
	}

	p.mu.Lock()
	p.state = PipelineCompleted
	p.mu.Unlock()

	return CompletionResult{Samples: samples, Kind: errors.Success, Message: "ok"}, nil
}

// ProcessAsync is the async execution mode (spec.md §4.F mode 2): it
// runs Process on a background goroutine and reports the result to
// onComplete. Stop cancels the pipeline's context, which the scheduler
// observes at the next block boundary; the completion callback then
// receives Cancelled.
func (p *Pipeline) ProcessAsync(params UtauParams, onComplete func(result CompletionResult)) {
	go func() {
		result, err := p.Process(params)
		if err != nil && errors.IsKind(err, errors.Cancelled) {
			result.Kind = errors.Cancelled
		}
		onComplete(result)
	}()
}

// Resume releases a pipeline paused by a streaming back-pressure signal
// (spec.md §4.F mode 3).
func (p *Pipeline) Resume() {
	p.mu.Lock()
	p.streamPaused = false
	p.mu.Unlock()
	p.streamCond.Broadcast()
}

// Stop sets the pipeline's cooperative cancel flag (spec.md §5
// "Cancellation"): any block already in flight completes and no further
// block is called. A cancelled one-shot or async run returns its error and
// leaves the pipeline in state Error with last_error set (ClearError
// returns it to Ready); a cancelled streaming run ends in state Error, or
// in state Completed when the producer sees the cancellation while waiting
// for queue space. Stop also releases a paused streaming run so it can
// observe the cancellation.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.streamPaused = false
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.streamCond.Broadcast()
}

// chunkResult is one streaming producer->consumer handoff.
type chunkResult struct {
	samples []float32
	err     error
	final   bool
}

// ProcessStreaming is the streaming execution mode (spec.md §4.F mode
// 3, §5 "one producer thread ... one consumer thread"): it feeds the
// input in ChunkSize-sized slices through the diagram, one analysis
// pass per chunk, delivering each newly synthesized slice to
// onAudioChunk. A false return from onAudioChunk pauses input
// consumption until Resume is called. The channel between producer and
// consumer goroutines is bounded to StreamingQueueDepth, giving the
// producer natural back-pressure if the consumer falls behind.
func (p *Pipeline) ProcessStreaming(ctx context.Context, params UtauParams, onAudioChunk func(samples []float32, count int) bool) error {
	if err := ValidateUtauParameters(params); err != nil {
		return err
	}
	if err := p.Initialize(params); err != nil {
		return err
	}

	chunkSize := params.ChunkSize
	if chunkSize <= 0 {
		chunkSize = p.cfg.Audio.BufferSize
	}
	hop := HopSamples(p.cfg, params.SampleRate)

	p.mu.Lock()
	d := p.diagram
	p.state = PipelineRunning
	p.streamingActive = true
	streamCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()
	defer func() {
		cancel()
		p.mu.Lock()
		p.streamingActive = false
		p.mu.Unlock()
	}()

	queueDepth := p.cfg.StreamingQueueDepth
	if queueDepth <= 0 {
		queueDepth = 1
	}
	chunks := make(chan chunkResult, queueDepth)

	// tokens is the bounded lock-free ring spec.md §5 calls for between
	// the producer and consumer threads: the producer claims a byte
	// before it may start the next chunk's analysis pass, and the
	// consumer frees one after it finishes delivering a chunk. A full
	// ring means the consumer is behind, so the producer backs off
	// instead of growing the arena's working set unboundedly.
	tokens := ringbuffer.New(queueDepth)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(chunks)

		total := len(params.InputSamples)
		cursor := 0
		lastLen := 0
		for cursor < total {
			if err := streamCtx.Err(); err != nil {
				chunks <- chunkResult{err: errors.New(err).
					Component(ComponentAudioCore).Category(errors.CategoryCancellation).Kind(errors.Cancelled).Build()}
				return
			}

			for {
				if _, err := tokens.Write([]byte{1}); err == nil {
					break
				}
				if streamCtx.Err() != nil {
					return
				}
				time.Sleep(time.Millisecond)
			}

			n := chunkSize
			if cursor+n > total {
				n = total - cursor
			}
			cursor += n

			if err := p.runOnce(streamCtx, d, n, hop); err != nil {
				chunks <- chunkResult{err: err}
				return
			}

			samples, err := collectOutput(d)
			if err != nil {
				chunks <- chunkResult{err: err}
				return
			}

			var delta []float32
			if len(samples) > lastLen {
				delta = append([]float32(nil), samples[lastLen:]...)
				lastLen = len(samples)
			}
			chunks <- chunkResult{samples: delta, final: cursor >= total}
		}
	}()

	var firstErr error
	var tok [1]byte
	for msg := range chunks {
		_, _ = tokens.Read(tok[:])

		if msg.err != nil {
			firstErr = msg.err
			cancel()
			onAudioChunk(nil, 0)
			break
		}

		if !onAudioChunk(msg.samples, len(msg.samples)) {
			p.mu.Lock()
			p.streamPaused = true
			p.state = PipelinePaused
			for p.streamPaused {
				p.streamCond.Wait()
			}
			if streamCtx.Err() == nil {
				p.state = PipelineRunning
			}
			p.mu.Unlock()
		}
	}

	wg.Wait()

	p.mu.Lock()
	if firstErr != nil {
		p.lastErr = firstErr
		p.state = PipelineError
	} else {
		p.state = PipelineCompleted
	}
	p.mu.Unlock()

	return firstErr
}

// Reconfigure stops a running pipeline, tears down its diagram and
// arena, and installs newCfg (spec.md §4.F "reconfigure(new_config)").
// The pipeline returns to state Uninitialized; callers must call
// Initialize again with the run's parameters before processing.
func (p *Pipeline) Reconfigure(newCfg *conf.PipelineConfig) error {
	if newCfg == nil {
		return errors.Newf("pipeline: nil configuration").
			Component(ComponentAudioCore).Category(errors.CategoryConfiguration).Kind(errors.InvalidArgument).Build()
	}
	if err := conf.Validate(newCfg); err != nil {
		return err
	}

	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.diagram != nil {
		p.diagram.Destroy()
		p.diagram = nil
	}
	if p.arena != nil {
		p.arena.Destroy()
	}
	if p.monitor != nil {
		_ = p.monitor.Close()
	}

	a, err := arena.New(newCfg.Memory.MemoryPoolSize)
	if err != nil {
		p.state = PipelineError
		p.lastErr = err
		return errors.New(err).
			Component(ComponentAudioCore).Category(errors.CategoryMemory).Kind(errors.OutOfMemory).Build()
	}

	p.cfg = newCfg
	p.arena = a
	p.monitor = monitor.New(newCfg.Performance, newCfg.Audio.SampleRate)
	p.state = PipelineUninitialized
	p.lastErr = nil
	return nil
}

// Monitor exposes the pipeline's performance monitor for callers that
// want stage statistics or a generated report.
func (p *Pipeline) Monitor() *monitor.Monitor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.monitor
}

// Diagram exposes the pipeline's built diagram, or nil before the
// first successful Initialize.
func (p *Pipeline) Diagram() *Diagram {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.diagram
}

// CreatedAt returns when this pipeline was constructed.
func (p *Pipeline) CreatedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.createdAt
}
