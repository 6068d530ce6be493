package proc

import (
	"encoding/binary"
	"math"

	"github.com/kunquatgo/kunquat/pkg/dsp/interpolation"
	"github.com/kunquatgo/kunquat/pkg/kunquat/buffer"
)

// LoopMode selects how Sample wraps playback at the end of its data.
type LoopMode int

const (
	LoopOff LoopMode = iota
	LoopUni          // wrap to LoopStart at LoopEnd
	LoopBi           // ping-pong between LoopStart and LoopEnd
)

// sampleVStateSize is the byte layout of a Sample voice's payload: a
// float64 playback position, an int8 ping-pong direction (1 or -1), and
// padding to an 8-byte boundary.
const sampleVStateSize = 16

// Sample is a voice-signal processor that plays back a float32 PCM
// buffer with loop handling and linear interpolation, grounded on Sample_state.c and reimplemented
// on the retained pkg/dsp/interpolation.Linear.
type Sample struct {
	Base

	Data       []float32
	LoopMode   LoopMode
	LoopStart  int
	LoopEnd    int // exclusive
	BaseFreqHz float64 // the sample's native playback pitch
}

func (s *Sample) IsVoiceSignal() bool { return true }

func (s *Sample) VStateSize() int { return sampleVStateSize }

func (s *Sample) InitVState(slotIndex int, payload []byte, pitchHz, force float64) {
	binary.LittleEndian.PutUint64(payload[0:8], math.Float64bits(0))
	payload[8] = 1 // forward direction
}

func (s *Sample) position(payload []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(payload[0:8]))
}

func (s *Sample) setPosition(payload []byte, pos float64) {
	binary.LittleEndian.PutUint64(payload[0:8], math.Float64bits(pos))
}

func (s *Sample) direction(payload []byte) float64 {
	if payload[8] == 0 {
		return 1
	}
	if int8(payload[8]) < 0 {
		return -1
	}
	return 1
}

func (s *Sample) setDirection(payload []byte, dir int8) { payload[8] = byte(dir) }

func (s *Sample) RenderVoice(slotIndex int, payload []byte, wb *buffer.WorkBuffer, start, stop int, ctx Context) bool {
	raw := wb.Raw()
	if len(s.Data) == 0 {
		for i := start; i < stop && i < len(raw); i++ {
			raw[i] = 0
		}
		wb.MarkValid()
		return true
	}

	pos := s.position(payload)
	dir := s.direction(payload)
	step := s.BaseFreqHz / ctx.AudioRate * dir
	if s.BaseFreqHz == 0 {
		step = dir
	}

	finished := false
	for i := start; i < stop && i < len(raw); i++ {
		idx := int(math.Floor(pos))
		frac := float32(pos - math.Floor(pos))

		if idx < 0 || idx >= len(s.Data)-1 {
			raw[i] = 0
		} else {
			raw[i] = interpolation.Linear(s.Data[idx], s.Data[idx+1], frac)
		}

		pos += step
		pos, step, finished = s.wrap(pos, step)
		if finished {
			for j := i + 1; j < stop && j < len(raw); j++ {
				raw[j] = 0
			}
			break
		}
	}

	dirByte := int8(1)
	if step < 0 {
		dirByte = -1
	}
	s.setPosition(payload, pos)
	s.setDirection(payload, dirByte)

	wb.MarkValid()
	return finished
}

// wrap applies this sample's loop mode at the current position, returning
// the (possibly adjusted) position and step, and whether playback has
// finished (non-looping sample ran past its data).
func (s *Sample) wrap(pos, step float64) (newPos, newStep float64, finished bool) {
	switch s.LoopMode {
	case LoopUni:
		if s.LoopEnd > s.LoopStart && pos >= float64(s.LoopEnd) {
			pos = float64(s.LoopStart) + math.Mod(pos-float64(s.LoopEnd), float64(s.LoopEnd-s.LoopStart))
		}
		return pos, step, false
	case LoopBi:
		if s.LoopEnd > s.LoopStart {
			span := float64(s.LoopEnd - s.LoopStart)
			if pos >= float64(s.LoopEnd) {
				pos = float64(s.LoopEnd) - math.Mod(pos-float64(s.LoopEnd), span)
				step = -step
			} else if pos < float64(s.LoopStart) {
				pos = float64(s.LoopStart) + math.Mod(float64(s.LoopStart)-pos, span)
				step = -step
			}
		}
		return pos, step, false
	default:
		if pos < 0 || pos >= float64(len(s.Data)) {
			return pos, step, true
		}
		return pos, step, false
	}
}

func (s *Sample) SetParam(name string, raw []byte) error {
	switch name {
	case "p_loop_mode":
		var v int64
		if err := decodeIntParam(raw, &v); err != nil {
			return err
		}
		s.LoopMode = LoopMode(v)
	case "p_loop_start":
		var v int64
		if err := decodeIntParam(raw, &v); err != nil {
			return err
		}
		s.LoopStart = int(v)
	case "p_loop_end":
		var v int64
		if err := decodeIntParam(raw, &v); err != nil {
			return err
		}
		s.LoopEnd = int(v)
	case "p_base_freq":
		return decodeFloatParam(raw, &s.BaseFreqHz)
	}
	return nil
}
