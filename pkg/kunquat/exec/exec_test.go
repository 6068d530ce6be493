package exec_test

import (
	"testing"

	"github.com/kunquatgo/kunquat/pkg/kunquat/device"
	"github.com/kunquatgo/kunquat/pkg/kunquat/exec"
	"github.com/kunquatgo/kunquat/pkg/kunquat/graph"
	"github.com/kunquatgo/kunquat/pkg/kunquat/paramstore"
	"github.com/kunquatgo/kunquat/pkg/kunquat/proc"
	"github.com/kunquatgo/kunquat/pkg/kunquat/stats"
	"github.com/kunquatgo/kunquat/pkg/kunquat/tuning"
	"github.com/kunquatgo/kunquat/pkg/kunquat/voice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const audioRate = 48000.0

func renderCtx() proc.Context {
	return proc.Context{AudioRate: audioRate, BufferSizeFrames: 256, Tempo: 120}
}

func buildSimpleComposition(t *testing.T) (*device.Composition, graph.NodeID) {
	t.Helper()
	g := graph.New()
	oscID := g.AddNode("osc", graph.KindProcessor, 0)
	require.NoError(t, g.Connect(oscID, 0, g.Master(), 0))

	procs := map[graph.NodeID]proc.Impl{
		oscID: proc.NewAdditive(4, audioRate),
	}
	comp, err := device.Build(g, procs, paramstore.New(nil), tuning.TwelveTET())
	require.NoError(t, err)
	return comp, oscID
}

func TestRenderChunkProducesSilenceWithNoActiveVoices(t *testing.T) {
	comp, _ := buildSimpleComposition(t)
	counters := stats.New(prometheus.NewRegistry(), "test")
	pool := voice.New(4, 256, counters)

	ex := exec.New(comp, pool, 256)
	out := ex.RenderChunk(256, renderCtx())
	for _, s := range out {
		assert.Equal(t, float32(0), s)
	}
}

func TestRenderChunkProducesNonSilentOutputWithActiveVoice(t *testing.T) {
	comp, oscID := buildSimpleComposition(t)
	counters := stats.New(prometheus.NewRegistry(), "test")
	pool := voice.New(4, 256, counters)

	v, err := pool.Allocate(pool.NextGroupID(), uint32(oscID), voice.Foreground)
	require.NoError(t, err)
	additive := comp.Processors[oscID].(*proc.Additive)
	additive.InitVState(v.SlotIndex, v.State.Payload, 440, 1.0)

	ex := exec.New(comp, pool, 256)
	out := ex.RenderChunk(256, renderCtx())

	nonZero := false
	for _, s := range out {
		if s != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero)
}

// buildNestedComposition wires an oscillator directly into an audio unit
// from the outer graph, with a filter inside the unit feeding its inner
// master: osc -> filter_unit{filter} -> master.
func buildNestedComposition(t *testing.T) (comp *device.Composition, oscID graph.NodeID, auID graph.NodeID) {
	t.Helper()
	g := graph.New()
	oscID = g.AddNode("osc", graph.KindProcessor, 0)
	auID = g.AddAudioUnit("filter_unit", 0)
	auNode := g.Node(auID)
	filterID := auNode.Inner.AddNode("filter", graph.KindProcessor, 0)

	require.NoError(t, auNode.Inner.Connect(auNode.InputInterface, 0, filterID, 0))
	require.NoError(t, auNode.Inner.Connect(filterID, 0, auNode.Inner.Master(), 0))
	require.NoError(t, g.Connect(oscID, 0, auID, 0))
	require.NoError(t, g.Connect(auID, 0, g.Master(), 0))

	procs := map[graph.NodeID]proc.Impl{
		oscID:    proc.NewAdditive(4, audioRate),
		filterID: proc.NewFilter(),
	}
	comp, err := device.Build(g, procs, paramstore.New(nil), tuning.TwelveTET())
	require.NoError(t, err)
	return comp, oscID, auID
}

func TestRenderChunkRendersNestedAudioUnitChain(t *testing.T) {
	comp, oscID, _ := buildNestedComposition(t)
	counters := stats.New(prometheus.NewRegistry(), "test")
	pool := voice.New(4, 256, counters)

	v, err := pool.Allocate(pool.NextGroupID(), uint32(oscID), voice.Foreground)
	require.NoError(t, err)
	additive := comp.Processors[oscID].(*proc.Additive)
	additive.InitVState(v.SlotIndex, v.State.Payload, 440, 1.0)

	ex := exec.New(comp, pool, 256)
	out := ex.RenderChunk(256, renderCtx())

	nonZero := false
	for _, s := range out {
		if s != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero, "signal should reach the master through the nested audio unit's inner chain")
}

func TestRenderChunkBypassSkipsInnerProcessing(t *testing.T) {
	comp, oscID, auID := buildNestedComposition(t)
	counters := stats.New(prometheus.NewRegistry(), "test")
	pool := voice.New(4, 256, counters)

	v, err := pool.Allocate(pool.NextGroupID(), uint32(oscID), voice.Foreground)
	require.NoError(t, err)
	additive := comp.Processors[oscID].(*proc.Additive)
	additive.InitVState(v.SlotIndex, v.State.Payload, 440, 1.0)

	comp.SetBypass(auID, true)

	ex := exec.New(comp, pool, 256)
	bypassed := ex.RenderChunk(256, renderCtx())

	comp.SetBypass(auID, false)
	additive.InitVState(v.SlotIndex, v.State.Payload, 440, 1.0)
	pool2 := voice.New(4, 256, counters)
	v2, err := pool2.Allocate(pool2.NextGroupID(), uint32(oscID), voice.Foreground)
	require.NoError(t, err)
	additive.InitVState(v2.SlotIndex, v2.State.Payload, 440, 1.0)
	ex2 := exec.New(comp, pool2, 256)
	filtered := ex2.RenderChunk(256, renderCtx())

	differs := false
	for i := range bypassed {
		if bypassed[i] != filtered[i] {
			differs = true
			break
		}
	}
	assert.True(t, differs, "bypassed audio unit should skip the inner filter and pass the raw signal through")
}

func TestRenderChunkReleasesVoiceAfterRampCompletes(t *testing.T) {
	comp, oscID := buildSimpleComposition(t)
	counters := stats.New(prometheus.NewRegistry(), "test")
	pool := voice.New(4, 256, counters)

	v, err := pool.Allocate(pool.NextGroupID(), uint32(oscID), voice.Foreground)
	require.NoError(t, err)
	additive := comp.Processors[oscID].(*proc.Additive)
	additive.InitVState(v.SlotIndex, v.State.Payload, 440, 1.0)

	pool.ReleaseGroup(v.GroupID, 64)

	ex := exec.New(comp, pool, 256)
	ex.RenderChunk(256, renderCtx())

	assert.Equal(t, voice.Inactive, v.Prio)
}
