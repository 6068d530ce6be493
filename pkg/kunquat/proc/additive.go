package proc

import (
	"github.com/kunquatgo/kunquat/pkg/dsp/envelope"
	"github.com/kunquatgo/kunquat/pkg/dsp/oscillator"
	"github.com/kunquatgo/kunquat/pkg/kunquat/buffer"
)

// Additive is a voice-signal processor generating a sum of harmonically
// related oscillators with an amplitude envelope, built on top of
// pkg/dsp/oscillator.Oscillator and pkg/dsp/envelope.ADSR.
//
// Each pool slot owns a block of three harmonic Oscillators and one ADSR
// for its lifetime (voices
// and their slot index are allocated once at pool construction), so
// triggering a new note never allocates.
type Additive struct {
	Base

	Harmonics    []float64 // relative amplitude per harmonic, harmonic 1 first
	AttackSecs   float64
	DecaySecs    float64
	SustainLevel float64
	ReleaseSecs  float64

	oscs []*oscillator.Oscillator // one set of harmonic oscillators per slot
	envs []*envelope.ADSR
}

// NewAdditive creates an additive processor sized for poolCapacity voice
// slots at the given default audio rate.
func NewAdditive(poolCapacity int, audioRate float64) *Additive {
	a := &Additive{
		Harmonics:    []float64{1.0, 0.5, 0.25},
		AttackSecs:   0.01,
		DecaySecs:    0.1,
		SustainLevel: 0.8,
		ReleaseSecs:  0.2,
		oscs:         make([]*oscillator.Oscillator, poolCapacity*3),
		envs:         make([]*envelope.ADSR, poolCapacity),
	}
	for i := range a.oscs {
		a.oscs[i] = oscillator.New(audioRate)
	}
	for i := range a.envs {
		a.envs[i] = envelope.New(audioRate)
	}
	return a
}

func (a *Additive) IsVoiceSignal() bool { return true }

func (a *Additive) harmonicOscs(slotIndex int) []*oscillator.Oscillator {
	n := len(a.Harmonics)
	if n == 0 {
		n = 1
	}
	base := slotIndex * 3
	if base+n > len(a.oscs) {
		n = len(a.oscs) - base
	}
	return a.oscs[base : base+n]
}

func (a *Additive) InitVState(slotIndex int, payload []byte, pitchHz, force float64) {
	for i, osc := range a.harmonicOscs(slotIndex) {
		osc.Reset()
		osc.SetFrequency(pitchHz * float64(i+1))
	}
	env := a.envs[slotIndex]
	env.SetADSR(a.AttackSecs, a.DecaySecs, a.SustainLevel, a.ReleaseSecs)
	env.Trigger()
}

func (a *Additive) RenderVoice(slotIndex int, payload []byte, wb *buffer.WorkBuffer, start, stop int, ctx Context) bool {
	raw := wb.Raw()
	oscs := a.harmonicOscs(slotIndex)
	env := a.envs[slotIndex]

	for i := start; i < stop && i < len(raw); i++ {
		var sample float32
		for h, osc := range oscs {
			sample += osc.Sine() * float32(a.Harmonics[h])
		}
		raw[i] = sample * env.Next()
	}
	wb.MarkValid()

	return !env.IsActive()
}

// Release starts this slot's envelope release stage.
func (a *Additive) Release(slotIndex int) {
	a.envs[slotIndex].Release()
}

func (a *Additive) Reconfigure(ctx Context) {
	for _, osc := range a.oscs {
		_ = osc // oscillator frequency tracks sample rate via SetFrequency at note-on; nothing to resize here
	}
}

func (a *Additive) SetParam(name string, raw []byte) error {
	switch name {
	case "p_attack":
		return decodeFloatParam(raw, &a.AttackSecs)
	case "p_decay":
		return decodeFloatParam(raw, &a.DecaySecs)
	case "p_sustain":
		return decodeFloatParam(raw, &a.SustainLevel)
	case "p_release":
		return decodeFloatParam(raw, &a.ReleaseSecs)
	}
	return nil
}
