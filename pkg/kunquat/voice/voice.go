// Package voice implements the fixed-capacity voice pool and per-voice
// state: priority-tiered allocation with stealing, group_id lockstep
// advancement, and the common voice-state header plus a
// processor-declared payload arena.
//
// Voices are keyed by group_id and channel rather than by MIDI note
// number, and priority is a three-tier enum rather than an implicit
// "active/inactive" flag, but the allocate/steal/release shape follows
// the same pattern as a conventional note-keyed voice allocator.
package voice

import (
	"math"

	"github.com/charmbracelet/log"

	"github.com/kunquatgo/kunquat/pkg/kunquat/buffer"
	"github.com/kunquatgo/kunquat/pkg/kunquat/klog"
	"github.com/kunquatgo/kunquat/pkg/kunquat/stats"
)

// Priority is the three-tier allocation priority.
type Priority int

const (
	Inactive Priority = iota
	Background
	Foreground
)

// Control is one float voice-control parameter: a current value, an optional linear slide to a target, and an
// optional sinusoidal oscillation on top.
type Control struct {
	Current      float64
	Target       float64
	SlideStep    float64 // per-frame linear step toward Target
	FramesToTarget int32
	OscSpeed     float64 // Hz
	OscDepth     float64
	OscPhase     float64
}

// SetSlide starts a linear slide to target over the given number of frames.
func (c *Control) SetSlide(target float64, frames int32) {
	c.Target = target
	c.FramesToTarget = frames
	if frames <= 0 {
		c.Current = target
		c.SlideStep = 0
		c.FramesToTarget = 0
		return
	}
	c.SlideStep = (target - c.Current) / float64(frames)
}

// Advance steps the control forward by one frame and returns the sample
// value for that frame (slide contribution plus any oscillation).
func (c *Control) Advance(sampleRate float64) float64 {
	if c.FramesToTarget > 0 {
		c.Current += c.SlideStep
		c.FramesToTarget--
		if c.FramesToTarget == 0 {
			c.Current = c.Target
		}
	}

	out := c.Current
	if c.OscDepth != 0 && c.OscSpeed != 0 {
		out += c.OscDepth * math.Sin(2*math.Pi*c.OscPhase)
		c.OscPhase += c.OscSpeed / sampleRate
		if c.OscPhase >= 1 {
			c.OscPhase -= float64(int(c.OscPhase))
		}
	}
	return out
}

// FillBuffer fills a control-value work buffer for frame_count frames.
func (c *Control) FillBuffer(wb *buffer.WorkBuffer, frameCount int, sampleRate float64) {
	raw := wb.Raw()
	for i := 0; i < frameCount && i < len(raw); i++ {
		raw[i] = float32(c.Advance(sampleRate))
	}
	wb.MarkValid()
	wb.MarkConstFrom(frameCount)
}

// State is the common voice-state header plus an
// opaque per-processor payload arena sized by the processor's
// vstate_size(). Using a byte arena instead of an interface avoids a heap
// allocation and an indirection per voice per processor kind.
type State struct {
	Active            bool
	NoteOn            bool
	ReleaseRampFrames  int32 // frames remaining in the release ramp, -1 if not releasing
	Pos               int64
	PosRem            float64
	HitIndex          int32 // -1 unless triggered by Hit rather than NoteOn
	RandState         uint64

	Pitch   Control
	Force   Control
	Filter  Control // cutoff
	Resonance Control
	Panning Control

	Payload []byte // processor-declared per-voice scratch, sized by vstate_size()
}

// Reset clears a voice state for reuse on a fresh allocation.
func (s *State) Reset() {
	s.Active = true
	s.NoteOn = true
	s.ReleaseRampFrames = -1
	s.Pos = 0
	s.PosRem = 0
	s.HitIndex = -1
	for i := range s.Payload {
		s.Payload[i] = 0
	}
}

// Voice is one slot in the pool.
type Voice struct {
	Prio        Priority
	GroupID     uint64
	ProcessorID uint32
	State       State
	WB          *buffer.WorkBuffer
	Age         int64 // frames since allocation, advanced by AdvanceAges
	allocOrder  uint64

	// SlotIndex is this voice's fixed position in the pool, stable for the
	// pool's lifetime. Processor implementations that need per-voice scratch
	// state heavier than the Payload byte arena (e.g. an owned oscillator or
	// envelope object) keep it in a side table sized to pool capacity and
	// indexed by SlotIndex, so the per-note path never allocates.
	SlotIndex int
}

// Group is the set of voices sharing a group_id, iterated atomically for
// NoteOff/control-var updates.
type Group struct {
	GroupID uint64
	Voices  []*Voice
}

// Pool is the fixed-capacity voice allocator.
type Pool struct {
	voices      []*Voice
	capacity    int
	allocSeq    uint64
	groupSeq    uint64
	logger      *log.Logger
	counters *stats.Counters
}

// New creates a pool of the given capacity, each voice owning a work
// buffer of wbSize samples.
func New(capacity int, wbSize int, counters *stats.Counters) *Pool {
	voices := make([]*Voice, capacity)
	for i := range voices {
		voices[i] = &Voice{WB: buffer.New(wbSize), SlotIndex: i}
	}
	return &Pool{
		voices:   voices,
		capacity: capacity,
		logger:   klog.For("voice"),
		counters: counters,
	}
}

// Capacity returns POOL_CAPACITY.
func (p *Pool) Capacity() int { return p.capacity }

// NextGroupID mints a fresh group_id for a NoteOn/Hit allocation.
func (p *Pool) NextGroupID() uint64 {
	p.groupSeq++
	return p.groupSeq
}

// ActiveCount returns the number of voices currently not Inactive.
func (p *Pool) ActiveCount() int {
	n := 0
	for _, v := range p.voices {
		if v.Prio != Inactive {
			n++
		}
	}
	if p.counters != nil {
		p.counters.ActiveVoices.Set(float64(n))
	}
	return n
}

// ErrPoolExhausted is returned by Allocate when every voice is Foreground
// and none can be stolen. It is never fatal: the new note is
// dropped and the caller increments a statistics counter.
var ErrPoolExhausted = poolExhaustedError{}

type poolExhaustedError struct{}

func (poolExhaustedError) Error() string { return "voice pool exhausted" }

// Allocate assigns one voice to (groupID, processorID) at priority prio,
// following a three-step policy:
//  1. prefer an Inactive slot
//  2. otherwise steal the lowest-priority voice, oldest group_id first
//  3. Foreground voices are only stolen when no Inactive/Background remains
func (p *Pool) Allocate(groupID uint64, processorID uint32, prio Priority) (*Voice, error) {
	if v := p.findByPriority(Inactive); v != nil {
		return p.claim(v, groupID, processorID, prio), nil
	}

	if v := p.findByPriority(Background); v != nil {
		p.logger.Debug("stealing background voice", "group_id", v.GroupID, "new_group_id", groupID)
		return p.claim(v, groupID, processorID, prio), nil
	}

	if v := p.oldestForeground(); v != nil {
		p.logger.Debug("stealing foreground voice", "group_id", v.GroupID, "new_group_id", groupID)
		return p.claim(v, groupID, processorID, prio), nil
	}

	if p.counters != nil {
		p.counters.PoolExhausted.Inc()
	}
	p.logger.Warn("pool exhausted", "group_id", groupID)
	return nil, ErrPoolExhausted
}

func (p *Pool) claim(v *Voice, groupID uint64, processorID uint32, prio Priority) *Voice {
	v.Prio = prio
	v.GroupID = groupID
	v.ProcessorID = processorID
	v.Age = 0
	p.allocSeq++
	v.allocOrder = p.allocSeq
	v.State.Reset()
	v.WB.Invalidate()
	return v
}

func (p *Pool) findByPriority(prio Priority) *Voice {
	for _, v := range p.voices {
		if v.Prio == prio {
			return v
		}
	}
	return nil
}

// oldestForeground returns the Foreground voice with the smallest
// allocOrder.
func (p *Pool) oldestForeground() *Voice {
	var oldest *Voice
	for _, v := range p.voices {
		if v.Prio != Foreground {
			continue
		}
		if oldest == nil || v.allocOrder < oldest.allocOrder {
			oldest = v
		}
	}
	return oldest
}

// LookupByGroup returns every voice sharing groupID, for atomic
// NoteOff/control-var iteration.
func (p *Pool) LookupByGroup(groupID uint64) Group {
	g := Group{GroupID: groupID}
	for _, v := range p.voices {
		if v.Prio != Inactive && v.GroupID == groupID {
			g.Voices = append(g.Voices, v)
		}
	}
	return g
}

// LookupByChannel returns the voice (if any) belonging to ch's foreground
// group that is driven by processorID.
func (p *Pool) LookupByChannel(foregroundGroupID uint64, processorID uint32) *Voice {
	for _, v := range p.voices {
		if v.Prio != Inactive && v.GroupID == foregroundGroupID && v.ProcessorID == processorID {
			return v
		}
	}
	return nil
}

// Release deactivates a single voice, returning its slot to Inactive.
func (p *Pool) Release(v *Voice) {
	v.Prio = Inactive
	v.State.Active = false
	v.WB.Invalidate()
}

// ReleaseGroup marks every voice in the group as releasing on NoteOff:
// note_on is cleared; the executor starts the release ramp at the next
// frame boundary.
func (p *Pool) ReleaseGroup(groupID uint64, rampFrames int32) {
	g := p.LookupByGroup(groupID)
	for _, v := range g.Voices {
		v.State.NoteOn = false
		if v.State.ReleaseRampFrames < 0 {
			v.State.ReleaseRampFrames = rampFrames
		}
	}
}

// ResetAll stops every voice and clears all assignments, e.g. on playback
// stop.
func (p *Pool) ResetAll() {
	for _, v := range p.voices {
		p.Release(v)
		v.GroupID = 0
		v.ProcessorID = 0
	}
}

// AdvanceAges increments every active voice's age by frameCount, called
// once per render chunk.
func (p *Pool) AdvanceAges(frameCount int64) {
	for _, v := range p.voices {
		if v.Prio != Inactive {
			v.Age += frameCount
		}
	}
}

// All returns the underlying voice slots (for the executor to iterate).
func (p *Pool) All() []*Voice { return p.voices }
