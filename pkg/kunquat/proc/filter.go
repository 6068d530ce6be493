package proc

import (
	"github.com/kunquatgo/kunquat/pkg/dsp/filter"
	"github.com/kunquatgo/kunquat/pkg/kunquat/buffer"
)

// SVFMode selects which of the state-variable filter's simultaneous
// outputs a Filter processor writes.
type SVFMode int

const (
	SVFLowpass SVFMode = iota
	SVFHighpass
	SVFBandpass
	SVFNotch
)

// Filter is a mixed-signal processor wrapping the state-variable filter,
// one channel's worth per receive port, so a stereo filter is two Filter
// instances, one per channel, sharing no state.
type Filter struct {
	Base

	Mode      SVFMode
	CutoffHz  float64
	Q         float64
	svf       *filter.SVF
	audioRate float64
}

// NewFilter creates a single-channel state-variable filter processor.
func NewFilter() *Filter {
	return &Filter{
		Mode:     SVFLowpass,
		CutoffHz: 2000,
		Q:        0.707,
		svf:      filter.NewSVF(1),
	}
}

func (f *Filter) IsMixedSignal() bool { return true }

func (f *Filter) Reconfigure(ctx Context) {
	f.audioRate = ctx.AudioRate
	f.svf.SetFrequencyAndQ(ctx.AudioRate, f.CutoffHz, f.Q)
}

func (f *Filter) ClearHistory() { f.svf.Reset() }

func (f *Filter) RenderMixed(wb *buffer.WorkBuffer, ins []*buffer.WorkBuffer, start, stop int, ctx Context) {
	out := wb.Raw()
	if len(ins) == 0 || !ins[0].IsValid() {
		wb.Clear(start, stop)
		return
	}
	in := ins[0].Raw()

	if f.audioRate != ctx.AudioRate {
		f.Reconfigure(ctx)
	}

	for i := start; i < stop && i < len(out) && i < len(in); i++ {
		outs := f.svf.ProcessSample(in[i], 0)
		switch f.Mode {
		case SVFHighpass:
			out[i] = outs.Highpass
		case SVFBandpass:
			out[i] = outs.Bandpass
		case SVFNotch:
			out[i] = outs.Notch
		default:
			out[i] = outs.Lowpass
		}
	}
	wb.MarkValid()
}

func (f *Filter) SetParam(name string, raw []byte) error {
	switch name {
	case "p_cutoff":
		if err := decodeFloatParam(raw, &f.CutoffHz); err != nil {
			return err
		}
		f.svf.SetFrequencyAndQ(f.audioRate, f.CutoffHz, f.Q)
	case "p_resonance":
		if err := decodeFloatParam(raw, &f.Q); err != nil {
			return err
		}
		f.svf.SetFrequencyAndQ(f.audioRate, f.CutoffHz, f.Q)
	}
	return nil
}

func (f *Filter) SetControlVar(name string, value float64) {
	switch name {
	case "cutoff":
		f.CutoffHz = value
		f.svf.SetFrequencyAndQ(f.audioRate, f.CutoffHz, f.Q)
	case "resonance":
		f.Q = value
		f.svf.SetFrequencyAndQ(f.audioRate, f.CutoffHz, f.Q)
	}
}
