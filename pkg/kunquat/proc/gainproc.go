package proc

import (
	"github.com/kunquatgo/kunquat/pkg/dsp/gain"
	"github.com/kunquatgo/kunquat/pkg/kunquat/buffer"
)

// Gain is a mixed-signal processor applying a constant dB gain, grounded
// on pkg/dsp/gain.ApplyDb.
type Gain struct {
	Base

	GainDb float64
}

func NewGain() *Gain { return &Gain{} }

func (g *Gain) IsMixedSignal() bool { return true }

func (g *Gain) RenderMixed(wb *buffer.WorkBuffer, ins []*buffer.WorkBuffer, start, stop int, ctx Context) {
	out := wb.Raw()
	if len(ins) == 0 || !ins[0].IsValid() {
		wb.Clear(start, stop)
		return
	}
	in := ins[0].Raw()
	db := float32(g.GainDb)

	for i := start; i < stop && i < len(out) && i < len(in); i++ {
		out[i] = gain.ApplyDb(in[i], db)
	}
	wb.MarkValid()
}

func (g *Gain) SetParam(name string, raw []byte) error {
	if name == "p_gain_db" {
		return decodeFloatParam(raw, &g.GainDb)
	}
	return nil
}

func (g *Gain) SetControlVar(name string, value float64) {
	if name == "gain_db" {
		g.GainDb = value
	}
}
