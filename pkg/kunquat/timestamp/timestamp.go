// Package timestamp provides exact musical-time arithmetic for the render core.
package timestamp

import "math"

// BeatDivisor is the number of fractional subdivisions per beat. It is
// highly composite (2^2 * 3^2 * 5^2 * 7 * 11 * 13) so that the common
// tuplet fractions used by patterns (halves, thirds, fifths, sevenths,
// elevenths, thirteenths) compose exactly under addition.
const BeatDivisor int32 = 900900

// Ts is a pair (beats, rem) with 0 <= rem < BeatDivisor. Sign is always
// carried on beats; rem is never negative.
type Ts struct {
	Beats int64
	Rem   int32
}

// New builds a normalized timestamp from a beat count and remainder.
func New(beats int64, rem int32) Ts {
	return normalize(beats, rem)
}

// Zero is the identity timestamp.
var Zero = Ts{}

func normalize(beats int64, rem int32) Ts {
	if rem >= 0 {
		beats += int64(rem / BeatDivisor)
		rem %= BeatDivisor
	} else {
		// Euclidean normalization: push the negative remainder into beats.
		q := rem / BeatDivisor
		r := rem % BeatDivisor
		if r != 0 {
			q--
			r += BeatDivisor
		}
		beats += int64(q)
		rem = r
	}
	return Ts{Beats: beats, Rem: rem}
}

// Add returns a + b, normalized.
func (a Ts) Add(b Ts) Ts {
	return normalize(a.Beats+b.Beats, a.Rem+b.Rem)
}

// Sub returns a - b, normalized.
func (a Ts) Sub(b Ts) Ts {
	return normalize(a.Beats-b.Beats, a.Rem-b.Rem)
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Ts) Cmp(b Ts) int {
	switch {
	case a.Beats < b.Beats:
		return -1
	case a.Beats > b.Beats:
		return 1
	case a.Rem < b.Rem:
		return -1
	case a.Rem > b.Rem:
		return 1
	default:
		return 0
	}
}

// Less reports whether a < b.
func (a Ts) Less(b Ts) bool { return a.Cmp(b) < 0 }

// IsZero reports whether the timestamp is exactly zero.
func (a Ts) IsZero() bool { return a.Beats == 0 && a.Rem == 0 }

// asFloatBeats returns the timestamp as a floating-point beat count.
func (a Ts) asFloatBeats() float64 {
	return float64(a.Beats) + float64(a.Rem)/float64(BeatDivisor)
}

// ToFrames converts the timestamp to a sample offset given the current
// tempo (beats per minute) and audio rate (frames per second). The
// fractional remainder below one frame is returned separately so callers
// that need sub-frame precision (e.g. chaining conversions) don't lose it;
// event dispatch (§4.8) rounds half-to-even on the combined value.
func (a Ts) ToFrames(tempo, audioRate float64) (frames int64, frac float64) {
	exact := a.asFloatBeats() * 60.0 * audioRate / tempo
	rounded := math.RoundToEven(exact)
	return int64(rounded), exact - rounded
}

// FromFrames converts a sample offset back to a timestamp given tempo and
// audio rate.
func FromFrames(frameOffset int64, tempo, audioRate float64) Ts {
	beatsExact := float64(frameOffset) * tempo / (60.0 * audioRate)
	beats := int64(math.Floor(beatsExact))
	fracBeats := beatsExact - float64(beats)
	rem := int32(math.RoundToEven(fracBeats * float64(BeatDivisor)))
	return normalize(beats, rem)
}
