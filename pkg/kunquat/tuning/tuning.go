// Package tuning maps pitch-class cents to frequency in Hz. It stands in
// for Kunquat's external tuning-table collaborator: the render
// core only ever calls PitchToFreq; how a table's note ratios were loaded
// from the parameter store is out of scope here.
package tuning

import "math"

// Note is one entry of a tuning table: a ratio (in cents, relative to the
// table's reference pitch) a composition can target by note index.
type Note struct {
	Cents float64
}

// Table is a pitch-class -> frequency mapping: each note has a ratio
// (expressed here directly in cents rather than an exact rational type,
// since Go has no built-in exact-rational type and bit-exact
// tuning-table arithmetic is not required), combined with a
// reference pitch and an octave width in cents (1200 for conventional
// equal temperament, but a table may use a non-octave-repeating scale).
type Table struct {
	notes       []Note
	refPitchHz  float64
	octaveCents float64
}

// TwelveTET returns the conventional 12-tone equal-temperament table with
// A440 as its reference pitch at note 0 (note i lies i*100 cents above it,
// matching the single-sine-tone scenario in scenario 1).
func TwelveTET() *Table {
	notes := make([]Note, 12)
	for i := range notes {
		notes[i] = Note{Cents: float64(i) * 100.0}
	}
	return &Table{notes: notes, refPitchHz: 440.0, octaveCents: 1200.0}
}

// New builds a table from explicit note ratios (in cents), a reference
// pitch in Hz, and the octave width in cents.
func New(notes []Note, refPitchHz, octaveCents float64) *Table {
	cp := make([]Note, len(notes))
	copy(cp, notes)
	return &Table{notes: cp, refPitchHz: refPitchHz, octaveCents: octaveCents}
}

// MiddleNoteCents returns the cents offset of the reference pitch itself
// (always 0 by construction): PitchToFreq(0) == refPitchHz.
func (t *Table) MiddleNoteCents() float64 { return 0 }

// PitchToFreq converts a cents offset from the table's reference pitch to
// a frequency in Hz, per's pitch_to_freq(cents) -> Hz contract.
func (t *Table) PitchToFreq(cents float64) float64 {
	return t.refPitchHz * math.Pow(2.0, cents/1200.0)
}

// NoteToFreq resolves a (note index, octave) pair through the table's
// note-ratio list and octave width, then to Hz, mirroring
// Tuning_table_build_pitch_map's per-(octave,note) pitch_map construction.
func (t *Table) NoteToFreq(note, octave int) float64 {
	if len(t.notes) == 0 {
		return t.refPitchHz
	}
	n := ((note % len(t.notes)) + len(t.notes)) % len(t.notes)
	cents := t.notes[n].Cents + float64(octave)*t.octaveCents
	return t.PitchToFreq(cents)
}

// NoteCount returns the number of notes per octave in the table.
func (t *Table) NoteCount() int { return len(t.notes) }
