// Package player implements the playback root: it owns the voice pool,
// the stereo pair of executors, the timeline driver, per-channel state,
// and the event dispatcher, and exposes the render entry point a host
// calls once per audio callback.
//
// A conventional audio plugin's top-level per-callback entry point ties
// together parameter updates, event processing, and the DSP render call;
// here that generalizes into the sub-chunk loop required by
// chunk-bounded event dispatch.
package player

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/kunquatgo/kunquat/pkg/kunquat/channel"
	"github.com/kunquatgo/kunquat/pkg/kunquat/config"
	"github.com/kunquatgo/kunquat/pkg/kunquat/device"
	"github.com/kunquatgo/kunquat/pkg/kunquat/event"
	"github.com/kunquatgo/kunquat/pkg/kunquat/exec"
	"github.com/kunquatgo/kunquat/pkg/kunquat/graph"
	"github.com/kunquatgo/kunquat/pkg/kunquat/klog"
	"github.com/kunquatgo/kunquat/pkg/kunquat/proc"
	"github.com/kunquatgo/kunquat/pkg/kunquat/stats"
	"github.com/kunquatgo/kunquat/pkg/kunquat/timeline"
	"github.com/kunquatgo/kunquat/pkg/kunquat/voice"
)

const numChannels = 64 // a fixed address space of 64 channels

// Player is the root playback object for one composition.
type Player struct {
	Comp *device.Composition
	Pool *voice.Pool

	execL, execR *exec.Executor
	driver       *timeline.Driver
	dispatcher   *event.Dispatcher
	channels     [numChannels]*channel.Channel

	cfg      config.Player
	logger   *log.Logger
	counters *stats.Counters
}

// New builds a player for comp using cfg's defaults.
func New(comp *device.Composition, cfg config.Player, counters *stats.Counters) *Player {
	pool := voice.New(cfg.VoicePoolCapacity, int(cfg.BufferSizeFrames), counters)
	p := &Player{
		Comp:     comp,
		Pool:     pool,
		execL:    exec.New(comp, pool, int(cfg.BufferSizeFrames)),
		execR:    exec.New(comp, pool, int(cfg.BufferSizeFrames)),
		cfg:      cfg,
		logger:   klog.For("player"),
		counters: counters,
	}
	for i := range p.channels {
		p.channels[i] = channel.New(i)
	}
	comp.Reconfigure(proc.Context{AudioRate: float64(cfg.AudioRateHz), BufferSizeFrames: int(cfg.BufferSizeFrames), Tempo: 120})
	return p
}

// LoadPattern arms the player to play pat starting at musical position
// zero with the given tempo.
func (p *Player) LoadPattern(pat *event.Pattern, tempo float64) {
	p.driver = timeline.New(float64(p.cfg.AudioRateHz), tempo, pat.Length)
	p.dispatcher = event.NewDispatcher(pat)
}

// SetAudioRate changes the player's audio rate, propagating to every
// bound processor.
func (p *Player) SetAudioRate(rate uint32) {
	p.cfg.AudioRateHz = rate
	if p.driver != nil {
		p.driver.SetAudioRate(float64(rate))
	}
	p.Comp.Reconfigure(p.context())
}

// SetBufferSize changes the per-chunk frame budget, rebuilding both
// executors' scratch buffers.
func (p *Player) SetBufferSize(frames uint32) {
	p.cfg.BufferSizeFrames = frames
	p.execL = exec.New(p.Comp, p.Pool, int(frames))
	p.execR = exec.New(p.Comp, p.Pool, int(frames))
	p.Comp.Reconfigure(p.context())
}

// SetThreadCount records the requested render thread count. The render
// loop below is single-threaded; multi-threaded plan execution is out of
// scope, so the value is only stored in the player's configuration; it is
// not a behavioral switch.
func (p *Player) SetThreadCount(n uint32) {
	p.cfg.ThreadCount = n
}

// Channels returns the player's fixed channel array for host code that
// needs to set per-channel defaults (e.g. DefaultAudioUnit) before
// dispatching note events.
func (p *Player) Channels() [numChannels]*channel.Channel {
	return p.channels
}

func (p *Player) context() proc.Context {
	tempo := 120.0
	if p.driver != nil {
		tempo = p.driver.Tempo
	}
	return proc.Context{AudioRate: float64(p.cfg.AudioRateHz), BufferSizeFrames: int(p.cfg.BufferSizeFrames), Tempo: tempo}
}

// Render fills outLeft and outRight with frameCount frames, dispatching
// pattern events at sample-accurate boundaries as it goes. Returns the number of frames actually written, which is less
// than frameCount once the loaded pattern ends.
func (p *Player) Render(outLeft, outRight []float32, frameCount int) (int, error) {
	if p.driver == nil || p.dispatcher == nil {
		return 0, fmt.Errorf("player: no pattern loaded")
	}

	written := 0
	for written < frameCount {
		if p.driver.AtPatternEnd() {
			break
		}

		remaining := int64(frameCount - written)
		sliceFrames, _ := p.driver.NextSlice(remaining, p.dispatcher)
		if sliceFrames == 0 {
			chunkEnd := p.driver.ChunkEnd(1)
			for _, ev := range p.dispatcher.DrainUntil(chunkEnd) {
				p.applyEvent(ev)
			}
			continue
		}

		ctx := p.context()
		left := p.execL.RenderChunk(int(sliceFrames), ctx)
		right := p.execR.RenderChunk(int(sliceFrames), ctx)
		copy(outLeft[written:], left)
		copy(outRight[written:], right)

		p.Pool.AdvanceAges(sliceFrames)
		p.driver.Advance(sliceFrames)
		written += int(sliceFrames)

		for _, ev := range p.dispatcher.DrainUntil(p.driver.Position) {
			p.applyEvent(ev)
		}
	}

	if p.counters != nil {
		p.counters.ActiveVoices.Set(float64(p.Pool.ActiveCount()))
	}
	return written, nil
}

// applyEvent dispatches one timeline event against channel state, the
// voice pool, and bound processors.
func (p *Player) applyEvent(ev event.Event) {
	var ch *channel.Channel
	if ev.Channel >= 0 && ev.Channel < len(p.channels) {
		ch = p.channels[ev.Channel]
	}

	switch ev.Kind {
	case event.NoteOn:
		p.handleNoteOn(ch, ev, voice.Foreground)
	case event.Hit:
		p.handleNoteOn(ch, ev, voice.Background)
	case event.NoteOff:
		if ch != nil && ch.HasForegroundGroup {
			p.releaseProcessors(ch.ForegroundGroupID)
			p.Pool.ReleaseGroup(ch.ForegroundGroupID, int32(p.cfg.ReleaseRampFrames))
		}
	case event.TempoSet:
		if ev.Payload.HasFloat {
			p.driver.SetTempo(ev.Payload.Float)
		}
	case event.TempoSlide:
		// A tempo slide is stored per-channel as the "__tempo" control
		// variable slide; nothing reads it back into the driver, so the
		// driver's tempo changes only on TempoSet.
		if ch != nil && ev.Payload.HasFloat {
			ch.StartCVSlide("__tempo", ev.Payload.Float, int32(ev.Payload.Int))
		}
	case event.ChannelParamSet, event.GlobalParamSet:
		if ev.Payload.HasRef {
			if err := p.Comp.Params.Set(ev.Payload.Ref, []byte(ev.Payload.String)); err != nil {
				p.logger.Warn("malformed parameter", "key", ev.Payload.Ref, "err", err)
			}
		}
	case event.ControlVarSet:
		if ch != nil && ev.Payload.HasRef && ev.Payload.HasFloat {
			if unit, ok := parseBypassRef(ev.Payload.Ref); ok {
				p.Comp.SetBypass(unit, ev.Payload.Float != 0)
				break
			}
			ch.SetCVImmediate(ev.Payload.Ref, ev.Payload.Float)
			p.broadcastControlVar(ev.Payload.Ref, ev.Payload.Float)
		}
	case event.ControlVarSlide:
		if ch != nil && ev.Payload.HasRef && ev.Payload.HasFloat {
			ch.StartCVSlide(ev.Payload.Ref, ev.Payload.Float, int32(ev.Payload.Int))
		}
	case event.PatternJump:
		p.logger.Debug("pattern jump dispatched", "target", ev.Payload.Int)
	}
}

func (p *Player) handleNoteOn(ch *channel.Channel, ev event.Event, prio voice.Priority) {
	if ch == nil || !ev.Payload.HasPitch {
		return
	}
	processorID := uint32(ch.DefaultAudioUnit)
	groupID := p.Pool.NextGroupID()

	v, err := p.Pool.Allocate(groupID, processorID, prio)
	if err != nil {
		if p.counters != nil {
			p.counters.PoolExhausted.Inc()
		}
		return
	}

	freq := p.Comp.Tuning.PitchToFreq(ev.Payload.Pitch)
	force := 1.0
	if ev.Payload.HasFloat {
		force = ev.Payload.Float
	}
	v.State.HitIndex = -1
	if ev.Kind == event.Hit {
		v.State.HitIndex = int32(ev.Payload.Int)
	}

	if impl, ok := p.Comp.ProcessorAt(graph.NodeID(processorID)); ok {
		if size := impl.VStateSize(); len(v.State.Payload) < size {
			v.State.Payload = make([]byte, size)
		}
		impl.InitVState(v.SlotIndex, v.State.Payload, freq, force)
	}

	ch.SetForegroundGroup(groupID)
}

// broadcastControlVar forwards a named control-variable update to every
// bound processor; processors ignore names they
// don't recognize.
func (p *Player) broadcastControlVar(name string, value float64) {
	for _, impl := range p.Comp.Processors {
		impl.SetControlVar(name, value)
	}
}

// bypassRefPrefix names the reserved control-variable ref format that
// targets an audio unit's bypass flag rather than a processor control
// variable: "bypass:<nodeID>".
const bypassRefPrefix = "bypass:"

// parseBypassRef reports whether ref names an audio unit's bypass control
// variable, returning its graph node id.
func parseBypassRef(ref string) (graph.NodeID, bool) {
	idStr, ok := strings.CutPrefix(ref, bypassRefPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, false
	}
	return graph.NodeID(id), true
}

// releaseProcessors starts the release stage of every Releasable
// processor bound to groupID's voices, ahead of the pool's own keep-alive
// ramp.
func (p *Player) releaseProcessors(groupID uint64) {
	for _, v := range p.Pool.LookupByGroup(groupID).Voices {
		impl, ok := p.Comp.ProcessorAt(graph.NodeID(v.ProcessorID))
		if !ok {
			continue
		}
		if releasable, ok := impl.(proc.Releasable); ok {
			releasable.Release(v.SlotIndex)
		}
	}
}
