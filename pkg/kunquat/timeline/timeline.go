// Package timeline implements the chunk-bounded playback driver: it slices
// a render request into sub-chunks at pattern boundaries and pending-event
// boundaries, converting between musical time and sample time as it goes.
//
// Each slice renders up to the next event or the end of the requested
// buffer, using the timestamp package's exact rational arithmetic rather
// than double-precision time.
package timeline

import (
	"github.com/kunquatgo/kunquat/pkg/kunquat/event"
	"github.com/kunquatgo/kunquat/pkg/kunquat/timestamp"
)

// Driver tracks playback position within the current pattern and converts
// between musical time and sample time at the current tempo.
type Driver struct {
	AudioRate     float64
	Tempo         float64
	Position      timestamp.Ts
	PatternLength timestamp.Ts
}

// New creates a driver positioned at the start of a pattern of the given
// length.
func New(audioRate, tempo float64, patternLength timestamp.Ts) *Driver {
	return &Driver{AudioRate: audioRate, Tempo: tempo, PatternLength: patternLength}
}

// SetTempo changes the current tempo; does not retroactively rescale
// already-elapsed position.
func (d *Driver) SetTempo(tempo float64) {
	d.Tempo = tempo
}

// SetAudioRate changes the sample rate used for musical<->sample
// conversions.
func (d *Driver) SetAudioRate(rate float64) {
	d.AudioRate = rate
}

// AtPatternEnd reports whether the driver's position has reached or passed
// the pattern length.
func (d *Driver) AtPatternEnd() bool {
	return !d.Position.Less(d.PatternLength)
}

// framesUntil returns the number of frames, at the current tempo and audio
// rate, between the driver's position and target. Negative if target lies
// before the current position.
func (d *Driver) framesUntil(target timestamp.Ts) int64 {
	delta := target.Sub(d.Position)
	frames, _ := delta.ToFrames(d.Tempo, d.AudioRate)
	return frames
}

// NextSlice computes how many frames can be rendered, starting at the
// driver's current position, before the next boundary: the caller's
// requested frame budget, the end of the pattern, or the next pending
// dispatcher event — whichever comes first. atPatternEnd reports whether
// the pattern boundary was the limiting factor.
func (d *Driver) NextSlice(requestedFrames int64, dispatcher *event.Dispatcher) (frames int64, atPatternEnd bool) {
	if requestedFrames <= 0 {
		return 0, d.AtPatternEnd()
	}

	bound := requestedFrames
	atPatternEnd = false

	if remain := d.framesUntil(d.PatternLength); remain < bound {
		bound = remain
		atPatternEnd = true
	}

	if pos, ok := dispatcher.PeekPos(); ok {
		if remain := d.framesUntil(pos); remain < bound {
			bound = remain
			atPatternEnd = false
		}
	}

	if bound < 0 {
		bound = 0
	}
	return bound, atPatternEnd
}

// Advance moves the driver's position forward by frames, at the current
// tempo and audio rate.
func (d *Driver) Advance(frames int64) {
	if frames <= 0 {
		return
	}
	d.Position = d.Position.Add(timestamp.FromFrames(frames, d.Tempo, d.AudioRate))
}

// ChunkEnd returns the musical-time position that rendering frames more
// frames from the current position would reach, for use as the dispatch
// heap's DrainUntil bound without mutating the driver.
func (d *Driver) ChunkEnd(frames int64) timestamp.Ts {
	return d.Position.Add(timestamp.FromFrames(frames, d.Tempo, d.AudioRate))
}

// Seek jumps the driver directly to a new pattern position, e.g. following
// a PatternJump event.
func (d *Driver) Seek(pos timestamp.Ts, patternLength timestamp.Ts) {
	d.Position = pos
	d.PatternLength = patternLength
}
