// Package event implements the timeline event model and the
// sample-accurate min-heap dispatcher.
//
// The closed event-kind enum paired with a tagged Value union follows a
// MIDI event model's shape: a sealed kind enumeration plus per-kind typed
// payload fields sharing one struct, rather than an interface or a
// type-switch over concrete structs.
package event

import (
	"container/heap"

	"github.com/kunquatgo/kunquat/pkg/kunquat/timestamp"
)

// Kind is the closed event-kind enumeration.
type Kind int

const (
	NoteOn Kind = iota
	NoteOff
	Hit
	TempoSet
	TempoSlide
	ChannelParamSet
	GlobalParamSet
	ControlVarSet
	ControlVarSlide
	PatternJump
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "NoteOn"
	case NoteOff:
		return "NoteOff"
	case Hit:
		return "Hit"
	case TempoSet:
		return "TempoSet"
	case TempoSlide:
		return "TempoSlide"
	case ChannelParamSet:
		return "ChannelParamSet"
	case GlobalParamSet:
		return "GlobalParamSet"
	case ControlVarSet:
		return "ControlVarSet"
	case ControlVarSlide:
		return "ControlVarSlide"
	case PatternJump:
		return "PatternJump"
	default:
		return "Unknown"
	}
}

// Value is a tagged union of the event payload types.
type Value struct {
	HasBool bool
	Bool    bool

	HasInt bool
	Int    int64

	HasFloat bool
	Float    float64

	HasString bool
	String    string

	HasTimestamp bool
	Timestamp    timestamp.Ts

	HasPitch bool
	Pitch    float64 // cents offset from a tuning table's reference pitch

	HasRef bool
	Ref    string // key/name reference, e.g. a control-variable name or audio unit id
}

// NoChannel marks an event with no channel association (e.g. PatternJump).
const NoChannel = -1

// Event is one timeline event.
type Event struct {
	Pos     timestamp.Ts
	Kind    Kind
	Channel int // NoChannel if not channel-scoped
	Payload Value

	seq int // insertion order within its column, for stable tie-break
}

// Column is an ordered sequence of events sharing monotonically
// nondecreasing Pos.
type Column struct {
	Events []Event
}

// Append adds an event to the column, assigning it the next sequence
// number for stable ordering, and rejects positions that would violate
// the monotonic-nondecreasing invariant.
func (c *Column) Append(ev Event) bool {
	if len(c.Events) > 0 && ev.Pos.Less(c.Events[len(c.Events)-1].Pos) {
		return false
	}
	ev.seq = len(c.Events)
	c.Events = append(c.Events, ev)
	return true
}

// Pattern is a bounded timeline of columns. Every event's
// position must lie in [0, Length).
type Pattern struct {
	Length  timestamp.Ts
	Columns []Column // one per voice column
	Global  Column
}

// NewPattern creates a pattern of the given length with numColumns voice
// columns plus the global column.
func NewPattern(length timestamp.Ts, numColumns int) *Pattern {
	return &Pattern{Length: length, Columns: make([]Column, numColumns)}
}

// PatternInstance references a pattern by id at a song position.
type PatternInstance struct {
	PatternID     int
	InstanceIndex int
}

// Song is an ordered sequence of pattern instances plus a jump table
//.
type Song struct {
	Instances []PatternInstance
	JumpTable map[int]int // instance index -> target instance index, for PatternJump
}

// heapItem is one pending event plus its tie-break keys.
type heapItem struct {
	ev     Event
	column int
}

type eventHeap []heapItem

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if cmp := h[i].ev.Pos.Cmp(h[j].ev.Pos); cmp != 0 {
		return cmp < 0
	}
	if h[i].column != h[j].column {
		return h[i].column < h[j].column
	}
	return h[i].ev.seq < h[j].ev.seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(heapItem)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Dispatcher is the sample-accurate min-heap event queue: it
// reads events from a pattern's columns (global column first by
// convention, tie-broken as above) and yields them in dispatch order up
// to a chunk boundary.
type Dispatcher struct {
	heap eventHeap
}

// NewDispatcher loads every event from pat's columns (global column uses
// index -1, so it naturally sorts before voice columns with the same
// position) into the dispatch heap.
func NewDispatcher(pat *Pattern) *Dispatcher {
	d := &Dispatcher{}
	for _, ev := range pat.Global.Events {
		heap.Push(&d.heap, heapItem{ev: ev, column: -1})
	}
	for ci, col := range pat.Columns {
		for _, ev := range col.Events {
			heap.Push(&d.heap, heapItem{ev: ev, column: ci})
		}
	}
	return d
}

// Len returns the number of events still pending.
func (d *Dispatcher) Len() int { return d.heap.Len() }

// PeekPos returns the position of the next pending event, and false if
// the queue is empty.
func (d *Dispatcher) PeekPos() (timestamp.Ts, bool) {
	if d.heap.Len() == 0 {
		return timestamp.Ts{}, false
	}
	return d.heap[0].ev.Pos, true
}

// DrainUntil pops and returns every event with Pos < chunkEnd, in
// dispatch order, per: "Dispatch runs until the heap's next
// event lies beyond the chunk end."
func (d *Dispatcher) DrainUntil(chunkEnd timestamp.Ts) []Event {
	var out []Event
	for d.heap.Len() > 0 && d.heap[0].ev.Pos.Less(chunkEnd) {
		item := heap.Pop(&d.heap).(heapItem)
		out = append(out, item.ev)
	}
	return out
}
