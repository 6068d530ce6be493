// Package exec implements the chunk executor: for every
// render chunk it runs the voice plan once per active voice, sums
// finished voice-signal output at its crossing point into the mixed
// plan, then runs the mixed plan once, honoring audio-unit bypass, and
// returns the master's rendered samples.
//
// Nested audio units (graph.Connections.AddAudioUnit) share their
// parent's node id sequence, so a mixed-plan task's buffer connections
// resolve correctly via NodeIndex whether their source lives in the
// outer graph or inside a nested audio unit's inner graph.
package exec

import (
	"github.com/kunquatgo/kunquat/pkg/dsp"
	"github.com/kunquatgo/kunquat/pkg/kunquat/buffer"
	"github.com/kunquatgo/kunquat/pkg/kunquat/device"
	"github.com/kunquatgo/kunquat/pkg/kunquat/graph"
	"github.com/kunquatgo/kunquat/pkg/kunquat/proc"
	"github.com/kunquatgo/kunquat/pkg/kunquat/voice"
)

// masterSoftClipThreshold is the level above which the master bus is
// soft-saturated rather than left to hard-clip at the output sink.
const masterSoftClipThreshold = 0.98

// Executor renders one output channel of a Composition against a voice
// pool, chunk by chunk. A stereo player owns two Executors sharing the
// same Composition topology but bound to per-channel processor
// instances, consistent with the proc package's per-channel Filter/Pan
// design.
type Executor struct {
	comp *device.Composition
	pool *voice.Pool

	voiceTaskBufs [][]*buffer.WorkBuffer // [slotIndex][voiceTaskIndex]
	mixedTaskBufs []*buffer.WorkBuffer   // [mixedTaskIndex]
	portScratch   [graph.DevicePortsMax]*buffer.WorkBuffer

	bufSize int
}

// New builds an executor with one scratch work buffer per (voice slot,
// voice-plan task) pair and one per mixed-plan task, all preallocated at
// bufSize frames and reused by every chunk. RenderChunk still allocates
// the output slice it returns, once per call.
func New(comp *device.Composition, pool *voice.Pool, bufSize int) *Executor {
	nVoiceTasks := len(comp.VoicePlan.Tasks)
	voiceTaskBufs := make([][]*buffer.WorkBuffer, pool.Capacity())
	for i := range voiceTaskBufs {
		bufs := make([]*buffer.WorkBuffer, nVoiceTasks)
		for j := range bufs {
			bufs[j] = buffer.New(bufSize)
		}
		voiceTaskBufs[i] = bufs
	}

	mixedTaskBufs := make([]*buffer.WorkBuffer, len(comp.MixedPlan.Tasks))
	for j := range mixedTaskBufs {
		mixedTaskBufs[j] = buffer.New(bufSize)
	}

	e := &Executor{comp: comp, pool: pool, voiceTaskBufs: voiceTaskBufs, mixedTaskBufs: mixedTaskBufs, bufSize: bufSize}
	for i := range e.portScratch {
		e.portScratch[i] = buffer.New(bufSize)
	}
	return e
}

// RenderChunk renders frameCount frames (frameCount must not exceed the
// executor's configured buffer size) and returns the master's output
// samples for this channel.
func (e *Executor) RenderChunk(frameCount int, ctx proc.Context) []float32 {
	for _, v := range e.pool.All() {
		if v.Prio == voice.Inactive {
			continue
		}
		e.renderVoice(v, frameCount, ctx)
	}

	for i := range e.comp.MixedPlan.Tasks {
		e.runMixedTask(i, frameCount, ctx)
	}

	out := make([]float32, frameCount)
	if masterIdx, ok := e.comp.MixedPlan.NodeIndex[e.comp.Graph.Master()]; ok {
		dsp.Copy(out, e.mixedTaskBufs[masterIdx].Raw()[:frameCount])
	}
	dsp.SoftClip(out, masterSoftClipThreshold)
	return out
}

// renderVoice runs every task in the voice plan for one active voice,
// applying the release ramp's keep-alive reduction and releasing the
// voice back to the pool once its processor reports it finished.
func (e *Executor) renderVoice(v *voice.Voice, frameCount int, ctx proc.Context) {
	slotBufs := e.voiceTaskBufs[v.SlotIndex]
	for _, buf := range slotBufs {
		buf.Invalidate()
	}

	finished := false
	for i, task := range e.comp.VoicePlan.Tasks {
		buf := slotBufs[i]
		buf.Clear(0, frameCount)

		for _, bc := range task.BufferConnections {
			srcIdx, ok := e.comp.VoicePlan.NodeIndex[bc.SrcNode]
			if !ok {
				continue
			}
			buf.MixFrom(slotBufs[srcIdx], 0, frameCount)
		}

		p, ok := e.comp.ProcessorAt(task.DeviceID)
		if !ok {
			continue
		}
		if p.RenderVoice(v.SlotIndex, v.State.Payload, buf, 0, frameCount, ctx) {
			finished = true
		}
	}

	if v.State.ReleaseRampFrames > 0 {
		step := int32(frameCount)
		if step > v.State.ReleaseRampFrames {
			step = v.State.ReleaseRampFrames
		}
		v.State.ReleaseRampFrames -= step
	}
	if v.State.ReleaseRampFrames == 0 && !v.State.NoteOn {
		finished = true
	}

	if finished {
		e.pool.Release(v)
	}
}

// crossingSum mixes every active voice's finished voice-plan task output
// whose CrossesInto equals target into dst, for the mixed phase to pick
// up voice signal at its declared crossing point.
func (e *Executor) crossingSum(target graph.NodeID, dst *buffer.WorkBuffer, frameCount int) {
	for _, v := range e.pool.All() {
		if v.Prio == voice.Inactive {
			continue
		}
		slotBufs := e.voiceTaskBufs[v.SlotIndex]
		for i, task := range e.comp.VoicePlan.Tasks {
			if task.IsConnectedToMixed && task.CrossesInto == target {
				dst.MixFrom(slotBufs[i], 0, frameCount)
			}
		}
	}
}

// runMixedTask renders one mixed-plan task: merges its buffer connections
// per receive port into scratch input buffers, adds any voice-signal
// crossing into port 0, invokes its processor (or, if bypassed, copies
// input straight to output), and writes the result into this task's own
// buffer.
func (e *Executor) runMixedTask(taskIdx int, frameCount int, ctx proc.Context) {
	task := e.comp.MixedPlan.Tasks[taskIdx]
	out := e.mixedTaskBufs[taskIdx]
	out.Invalidate()

	maxPort := -1
	for _, bc := range task.BufferConnections {
		if bc.DstPort > maxPort {
			maxPort = bc.DstPort
		}
	}
	if maxPort < 0 {
		maxPort = 0
	}

	ins := e.portScratch[:maxPort+1]
	for _, p := range ins {
		p.Invalidate()
		p.Clear(0, frameCount)
	}
	for _, bc := range task.BufferConnections {
		srcIdx, ok := e.comp.MixedPlan.NodeIndex[bc.SrcNode]
		if !ok {
			continue
		}
		ins[bc.DstPort].MixFrom(e.mixedTaskBufs[srcIdx], 0, frameCount)
	}
	e.crossingSum(task.DeviceID, ins[0], frameCount)

	if task.HasContainerAudioUnit && e.comp.Graph.Node(task.ContainerAudioUnit).Bypassed {
		out.MixFrom(ins[0], 0, frameCount)
		return
	}

	p, ok := e.comp.ProcessorAt(task.DeviceID)
	if !ok {
		// Pass-through pseudo-device (the master, or an audio-unit output
		// interface): its buffer is simply the sum of its connections and
		// any voice-signal crossing, computed above.
		out.MixFrom(ins[0], 0, frameCount)
		return
	}

	p.RenderMixed(out, ins, 0, frameCount, ctx)
}
