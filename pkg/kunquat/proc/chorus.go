package proc

import (
	"github.com/kunquatgo/kunquat/pkg/dsp/delay"
	"github.com/kunquatgo/kunquat/pkg/dsp/mix"
	"github.com/kunquatgo/kunquat/pkg/dsp/oscillator"
	"github.com/kunquatgo/kunquat/pkg/kunquat/buffer"
)

// Chorus is a mixed-signal processor combining a modulated delay line
// with a low-frequency oscillator, built on pkg/dsp/delay.Line and
// pkg/dsp/oscillator.Oscillator (as the LFO) plus pkg/dsp/mix.DryWet
// for the per-sample dry/wet blend.
type Chorus struct {
	Base

	RateHz     float64
	DepthMs    float64
	CenterMs   float64
	WetAmount  float32

	line *delay.Line
	lfo  *oscillator.Oscillator
	wet  []float32

	audioRate float64
}

// NewChorus creates a chorus processor for chunks up to maxFrames long.
func NewChorus(audioRate float64, maxFrames int) *Chorus {
	c := &Chorus{
		RateHz:    0.5,
		DepthMs:   4,
		CenterMs:  12,
		WetAmount: 0.5,
		line:      delay.New(0.05, audioRate),
		lfo:       oscillator.New(audioRate),
		wet:       make([]float32, maxFrames),
		audioRate: audioRate,
	}
	c.lfo.SetFrequency(c.RateHz)
	return c
}

func (c *Chorus) IsMixedSignal() bool { return true }

func (c *Chorus) Reconfigure(ctx Context) {
	if ctx.AudioRate != c.audioRate {
		c.audioRate = ctx.AudioRate
		c.line = delay.New(0.05, ctx.AudioRate)
		c.lfo = oscillator.New(ctx.AudioRate)
		c.lfo.SetFrequency(c.RateHz)
	}
	if ctx.BufferSizeFrames > len(c.wet) {
		c.wet = make([]float32, ctx.BufferSizeFrames)
	}
}

func (c *Chorus) ClearHistory() { c.line.Reset() }

func (c *Chorus) RenderMixed(wb *buffer.WorkBuffer, ins []*buffer.WorkBuffer, start, stop int, ctx Context) {
	out := wb.Raw()
	if len(ins) == 0 || !ins[0].IsValid() {
		wb.Clear(start, stop)
		return
	}
	in := ins[0].Raw()

	n := stop - start
	if n > len(c.wet) {
		c.Reconfigure(Context{AudioRate: ctx.AudioRate, BufferSizeFrames: n, Tempo: ctx.Tempo})
	}

	for i := 0; i < n && start+i < len(in); i++ {
		lfoVal := (c.lfo.Sine() + 1) * 0.5 // 0..1
		delayMs := c.CenterMs + float64(lfoVal)*c.DepthMs
		dry := in[start+i]
		c.line.Write(dry)
		wetSample := c.line.ReadMs(delayMs)
		c.wet[i] = wetSample
	}

	for i := 0; i < n && start+i < len(out) && start+i < len(in); i++ {
		out[start+i] = mix.DryWet(in[start+i], c.wet[i], c.WetAmount)
	}
	wb.MarkValid()
}

func (c *Chorus) SetParam(name string, raw []byte) error {
	switch name {
	case "p_rate":
		if err := decodeFloatParam(raw, &c.RateHz); err != nil {
			return err
		}
		c.lfo.SetFrequency(c.RateHz)
	case "p_depth":
		return decodeFloatParam(raw, &c.DepthMs)
	case "p_center":
		return decodeFloatParam(raw, &c.CenterMs)
	case "p_wet":
		var v float64
		if err := decodeFloatParam(raw, &v); err != nil {
			return err
		}
		c.WetAmount = float32(v)
	}
	return nil
}

func (c *Chorus) SetControlVar(name string, value float64) {
	if name == "wet" {
		c.WetAmount = float32(value)
	}
}
