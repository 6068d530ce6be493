package proc

import (
	"github.com/kunquatgo/kunquat/pkg/dsp/pan"
	"github.com/kunquatgo/kunquat/pkg/kunquat/buffer"
)

// Side selects which output channel a Pan processor instance produces.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// Pan is a mixed-signal processor applying a constant-power pan law to a
// mono input, producing one output channel. A stereo pan is two Pan instances, one per Side, sharing the
// same Position via SetControlVar so a single ControlVarSet/Slide event
// moves both. Grounded on pkg/dsp/pan.MonoToStereo.
type Pan struct {
	Base

	Side     Side
	Position float32 // -1 (hard left) .. 1 (hard right)
	Law      pan.Law
}

// NewPan creates a pan processor for the given output channel.
func NewPan(side Side) *Pan {
	return &Pan{Side: side, Law: pan.ConstantPower}
}

func (p *Pan) IsMixedSignal() bool { return true }

func (p *Pan) RenderMixed(wb *buffer.WorkBuffer, ins []*buffer.WorkBuffer, start, stop int, ctx Context) {
	out := wb.Raw()
	if len(ins) == 0 || !ins[0].IsValid() {
		wb.Clear(start, stop)
		return
	}
	in := ins[0].Raw()

	left, right := pan.MonoToStereo(p.Position, p.Law)
	gain := left
	if p.Side == SideRight {
		gain = right
	}

	for i := start; i < stop && i < len(out) && i < len(in); i++ {
		out[i] = in[i] * gain
	}
	wb.MarkValid()
}

func (p *Pan) SetParam(name string, raw []byte) error {
	if name == "p_position" {
		var v float64
		if err := decodeFloatParam(raw, &v); err != nil {
			return err
		}
		p.Position = float32(v)
	}
	return nil
}

func (p *Pan) SetControlVar(name string, value float64) {
	if name == "pan" {
		p.Position = float32(value)
	}
}
