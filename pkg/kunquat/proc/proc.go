// Package proc defines the processor contract
// and the library of concrete processor kinds built on top of it.
//
// A small set of lifecycle methods (reconfigure on audio-rate/buffer-size
// change, reset) sits alongside a render method called once per chunk;
// the single render method of a conventional audio plugin interface is
// split here into separate voice-signal and mixed-signal render methods,
// and a fixed stereo-in/stereo-out buffer pair is replaced by the
// WorkBuffer-based graph wiring built by the plan package.
package proc

import (
	"github.com/kunquatgo/kunquat/pkg/kunquat/buffer"
)

// Context carries the render configuration a processor needs to convert
// between musical parameters and sample counts.
type Context struct {
	AudioRate        float64
	BufferSizeFrames int
	Tempo            float64
}

// Impl is the processor contract. A concrete processor
// implements the subset of Voice/Mixed methods appropriate to its kind;
// Base supplies no-op defaults for the rest so a pure-mixed processor
// (e.g. a filter) need not stub out voice rendering, and vice versa.
type Impl interface {
	// VStateSize returns the number of bytes a single voice of this
	// processor needs in its State.Payload byte arena.
	VStateSize() int

	// InitVState initializes a freshly allocated voice's payload for a new
	// note, given the slot index the voice owns for the lifetime of the
	// pool and the note's pitch already
	// converted to Hz by the device layer's tuning table.
	InitVState(slotIndex int, payload []byte, pitchHz, force float64)

	// RenderVoice renders frames [start,stop) of a single voice's signal
	// into wb, given that voice's Payload and slot index. Returns true when
	// the voice has finished producing sound and should be released (e.g.
	// sample playback has exhausted a non-looping sample).
	RenderVoice(slotIndex int, payload []byte, wb *buffer.WorkBuffer, start, stop int, ctx Context) (finished bool)

	// RenderMixed renders frames [start,stop) of a mixed-signal processor,
	// reading its already-rendered input connections from ins (indexed by
	// receive port) and writing to wb.
	RenderMixed(wb *buffer.WorkBuffer, ins []*buffer.WorkBuffer, start, stop int, ctx Context)

	// Reconfigure is called whenever the audio rate, buffer size, or tempo
	// changes; mixed-signal processors with internal buffers
	// sized in samples (delay lines, filters) must resize/recompute here.
	Reconfigure(ctx Context)

	// ClearHistory drops any mixed-signal internal state (e.g. a delay
	// line's contents) without affecting voice state, e.g. on playback
	// stop.
	ClearHistory()

	// SetParam applies a typed build-time parameter; malformed
	// values return an error that the caller turns into a non-fatal
	// counter increment, never a panic.
	SetParam(name string, raw []byte) error

	// SetControlVar applies a live control-variable update by name.
	SetControlVar(name string, value float64)
}

// Releasable is an optional capability a voice-signal Impl implements when
// it has its own release stage (e.g. an ADSR envelope) distinct from the
// pool's keep-alive ramp. NoteOff calls it directly; a processor with no
// release stage of its own (a sample player, a pure mixed-signal
// processor) simply doesn't implement it.
type Releasable interface {
	// Release starts slotIndex's release stage. Called once per NoteOff,
	// before the voice pool begins its own release ramp.
	Release(slotIndex int)
}

// ConsumesVoiceSignal reports whether kind is a pure voice-signal source,
// for the plan package's Classifier.
func ConsumesVoiceSignal(kind Impl) bool {
	c, ok := kind.(voiceCapable)
	return ok && c.IsVoiceSignal()
}

// ProducesMixedSignal reports whether kind participates in mixed-signal
// rendering, for the plan package's Classifier.
func ProducesMixedSignal(kind Impl) bool {
	c, ok := kind.(mixedCapable)
	return ok && c.IsMixedSignal()
}

type voiceCapable interface{ IsVoiceSignal() bool }
type mixedCapable interface{ IsMixedSignal() bool }

// Base supplies no-op defaults for Impl; concrete processors embed it and
// override the methods relevant to their kind.
type Base struct{}

func (Base) VStateSize() int { return 0 }
func (Base) InitVState(slotIndex int, payload []byte, pitchHz, force float64) {}
func (Base) RenderVoice(slotIndex int, payload []byte, wb *buffer.WorkBuffer, start, stop int, ctx Context) bool {
	return false
}
func (Base) RenderMixed(wb *buffer.WorkBuffer, ins []*buffer.WorkBuffer, start, stop int, ctx Context) {
}
func (Base) Reconfigure(ctx Context)               {}
func (Base) ClearHistory()                         {}
func (Base) SetParam(name string, raw []byte) error { return nil }
func (Base) SetControlVar(name string, value float64) {}
