package audiocore

import (
	"github.com/tphakala/voxgraph/internal/errors"
)

// ComponentAudioCore identifies this package for error/log attribution.
const ComponentAudioCore = "audiocore"

// Direction is a port's data-flow direction on its owning block.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// PortType is the closed set of payload shapes a port can carry,
// realizing the design note "Opaque port data typed by an enum": each
// variant owns a concrete Go type instead of an untyped byte buffer plus
// size, so a type mismatch on connection is one match/switch away from
// being a compile-time-shaped check instead of a runtime memcmp.
type PortType int

const (
	TypeAudio PortType = iota
	TypeF0
	TypeSpectrum
	TypeAperiodicity
	TypeParameters
	TypeControl
)

func (t PortType) String() string {
	switch t {
	case TypeAudio:
		return "audio"
	case TypeF0:
		return "f0"
	case TypeSpectrum:
		return "spectrum"
	case TypeAperiodicity:
		return "aperiodicity"
	case TypeParameters:
		return "parameters"
	case TypeControl:
		return "control"
	default:
		return "unknown"
	}
}

// ParameterSet is the opaque merged-parameter payload ParameterMerge
// produces and Synthesis consumes (spec.md §3 Port "Parameters(opaque
// handle)").
type ParameterSet struct {
	FrameCount   int
	FFTSize      int
	F0           []float64
	Spectrum     [][]float64
	Aperiodicity [][]float64
}

// PortData is the tagged-union payload carried by a port's buffer. Each
// concrete type below implements it; Type() lets connection validation
// switch on payload shape without a separate enum/struct pair to keep in
// sync.
type PortData interface {
	Type() PortType
	// Len returns the payload's frame/sample count, used to check
	// capacity compatibility between a producer and its consumers.
	Len() int
}

// AudioPort carries PCM samples.
type AudioPort struct{ Samples []float32 }

func (AudioPort) Type() PortType { return TypeAudio }
func (p AudioPort) Len() int     { return len(p.Samples) }

// F0Port carries one fundamental-frequency value per analysis frame.
type F0Port struct{ Values []float64 }

func (F0Port) Type() PortType { return TypeF0 }
func (p F0Port) Len() int     { return len(p.Values) }

// SpectrumPort carries frame_count x (fft_size/2+1) magnitude rows.
type SpectrumPort struct{ Frames [][]float64 }

func (SpectrumPort) Type() PortType { return TypeSpectrum }
func (p SpectrumPort) Len() int     { return len(p.Frames) }

// AperiodicityPort carries frame_count x (fft_size/2+1) aperiodicity rows.
type AperiodicityPort struct{ Frames [][]float64 }

func (AperiodicityPort) Type() PortType { return TypeAperiodicity }
func (p AperiodicityPort) Len() int     { return len(p.Frames) }

// ParameterPort carries the opaque merged-parameter handle.
type ParameterPort struct{ Handle *ParameterSet }

func (ParameterPort) Type() PortType { return TypeParameters }
func (p ParameterPort) Len() int {
	if p.Handle == nil {
		return 0
	}
	return p.Handle.FrameCount
}

// ControlPort carries a single scalar control value.
type ControlPort struct{ Value float64 }

func (ControlPort) Type() PortType { return TypeControl }
func (ControlPort) Len() int       { return 1 }

// Port is a typed, named endpoint on a Block. Output ports own their
// buffer; input ports hold only a reference to the upstream output
// port's buffer, set by Connection.Activate, and never duplicate
// storage (spec.md §3).
type Port struct {
	Name      string
	Dir       Direction
	PortType  PortType
	Capacity  int // declared frame/sample capacity
	data      PortData
	connected bool
}

// NewPort declares a port. Its buffer is allocated later, by
// Block.Initialize for outputs, or referenced at Connection.Activate for
// inputs.
func NewPort(name string, dir Direction, portType PortType, capacity int) Port {
	return Port{Name: name, Dir: dir, PortType: portType, Capacity: capacity}
}

// IsConnected reports whether this port has been wired to a peer.
func (p *Port) IsConnected() bool { return p.connected }

// Data returns the port's current payload, or nil if unset.
func (p *Port) Data() PortData { return p.data }

// SetData assigns the port's payload. Used by Block.Initialize to
// install an output port's freshly allocated buffer, and by
// Connection.Activate to wire an input port to its upstream's buffer.
func (p *Port) SetData(d PortData) error {
	if d != nil && d.Type() != p.PortType {
		return errors.Newf("port %q: type mismatch, port is %s, data is %s", p.Name, p.PortType, d.Type()).
			Component(ComponentAudioCore).
			Category(errors.CategoryPort).
			Kind(errors.InvalidArgument).
			Build()
	}
	p.data = d
	return nil
}
