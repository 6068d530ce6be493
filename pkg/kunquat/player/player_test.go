package player_test

import (
	"fmt"
	"testing"

	"github.com/kunquatgo/kunquat/pkg/kunquat/config"
	"github.com/kunquatgo/kunquat/pkg/kunquat/device"
	"github.com/kunquatgo/kunquat/pkg/kunquat/event"
	"github.com/kunquatgo/kunquat/pkg/kunquat/graph"
	"github.com/kunquatgo/kunquat/pkg/kunquat/paramstore"
	"github.com/kunquatgo/kunquat/pkg/kunquat/player"
	"github.com/kunquatgo/kunquat/pkg/kunquat/proc"
	"github.com/kunquatgo/kunquat/pkg/kunquat/stats"
	"github.com/kunquatgo/kunquat/pkg/kunquat/timestamp"
	"github.com/kunquatgo/kunquat/pkg/kunquat/tuning"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCfg() config.Player {
	cfg := config.Default()
	cfg.AudioRateHz = 48000
	cfg.BufferSizeFrames = 256
	cfg.VoicePoolCapacity = 8
	cfg.ReleaseRampFrames = 32
	return cfg
}

func buildComposition(t *testing.T) (*device.Composition, graph.NodeID) {
	t.Helper()
	g := graph.New()
	oscID := g.AddNode("osc", graph.KindProcessor, 0)
	require.NoError(t, g.Connect(oscID, 0, g.Master(), 0))

	procs := map[graph.NodeID]proc.Impl{
		oscID: proc.NewAdditive(8, 48000),
	}
	comp, err := device.Build(g, procs, paramstore.New(nil), tuning.TwelveTET())
	require.NoError(t, err)
	return comp, oscID
}

func newTestPlayer(t *testing.T) (*player.Player, graph.NodeID) {
	t.Helper()
	comp, oscID := buildComposition(t)
	counters := stats.New(prometheus.NewRegistry(), "test")
	p := player.New(comp, testCfg(), counters)
	return p, oscID
}

func TestRenderWithNoPatternLoadedReturnsError(t *testing.T) {
	p, _ := newTestPlayer(t)
	left := make([]float32, 64)
	right := make([]float32, 64)
	_, err := p.Render(left, right, 64)
	assert.Error(t, err)
}

func TestRenderStopsAtPatternEnd(t *testing.T) {
	p, _ := newTestPlayer(t)
	pat := event.NewPattern(timestamp.New(1, 0), 1)
	p.LoadPattern(pat, 120)

	left := make([]float32, 1<<20)
	right := make([]float32, 1<<20)
	written, err := p.Render(left, right, len(left))
	require.NoError(t, err)
	assert.Less(t, written, len(left))
}

func TestNoteOnProducesAudibleOutputAndNoteOffReleasesVoice(t *testing.T) {
	p, oscID := newTestPlayer(t)
	_ = oscID

	pat := event.NewPattern(timestamp.New(4, 0), 1)
	require.True(t, pat.Columns[0].Append(event.Event{
		Pos:     timestamp.Zero,
		Kind:    event.NoteOn,
		Channel: 0,
		Payload: event.Value{HasPitch: true, Pitch: 0, HasFloat: true, Float: 1.0},
	}))
	require.True(t, pat.Columns[0].Append(event.Event{
		Pos:     timestamp.New(1, 0),
		Kind:    event.NoteOff,
		Channel: 0,
	}))
	p.LoadPattern(pat, 120)
	p.Channels()[0].DefaultAudioUnit = int32(oscID)

	left := make([]float32, 48000)
	right := make([]float32, 48000)
	written, err := p.Render(left, right, len(left))
	require.NoError(t, err)
	require.Equal(t, len(left), written)

	nonZero := false
	for _, s := range left[:2000] {
		if s != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero, "expected audible output shortly after note-on")

	assert.Equal(t, 0, p.Pool.ActiveCount(), "voice should be fully released well after note-off plus release ramp")
}

func TestNoteOffReleasesBoundProcessorEnvelope(t *testing.T) {
	comp, oscID := buildComposition(t)
	additive := comp.Processors[oscID].(*proc.Additive)
	additive.ReleaseSecs = 0.001 // decays to silence well within the keep-alive ramp below

	cfg := testCfg()
	cfg.ReleaseRampFrames = 48000 // long enough that the pool itself never forces silence in this test
	counters := stats.New(prometheus.NewRegistry(), "test")
	p := player.New(comp, cfg, counters)

	pat := event.NewPattern(timestamp.New(8, 0), 1)
	require.True(t, pat.Columns[0].Append(event.Event{
		Pos:     timestamp.Zero,
		Kind:    event.NoteOn,
		Channel: 0,
		Payload: event.Value{HasPitch: true, Pitch: 0, HasFloat: true, Float: 1.0},
	}))
	require.True(t, pat.Columns[0].Append(event.Event{
		Pos:     timestamp.New(1, 0),
		Kind:    event.NoteOff,
		Channel: 0,
	}))
	p.LoadPattern(pat, 120)
	p.Channels()[0].DefaultAudioUnit = int32(oscID)

	left := make([]float32, 48000)
	right := make([]float32, 48000)
	written, err := p.Render(left, right, len(left))
	require.NoError(t, err)
	require.Equal(t, len(left), written)

	// Note-off lands at 0.5s (24000 frames); the envelope's release stage
	// should bring it to silence well before the keep-alive ramp (1s) could.
	for _, s := range left[40000:] {
		assert.InDelta(t, 0.0, s, 1e-4, "processor's envelope should have been released on note-off, not just held at sustain level")
	}
}

func TestControlVarSetTogglesAudioUnitBypass(t *testing.T) {
	g := graph.New()
	oscID := g.AddNode("osc", graph.KindProcessor, 0)
	auID := g.AddAudioUnit("filter_unit", 0)
	auNode := g.Node(auID)
	filterID := auNode.Inner.AddNode("filter", graph.KindProcessor, 0)

	require.NoError(t, auNode.Inner.Connect(auNode.InputInterface, 0, filterID, 0))
	require.NoError(t, auNode.Inner.Connect(filterID, 0, auNode.Inner.Master(), 0))
	require.NoError(t, g.Connect(oscID, 0, auID, 0))
	require.NoError(t, g.Connect(auID, 0, g.Master(), 0))

	procs := map[graph.NodeID]proc.Impl{
		oscID:    proc.NewAdditive(8, 48000),
		filterID: proc.NewFilter(),
	}
	comp, err := device.Build(g, procs, paramstore.New(nil), tuning.TwelveTET())
	require.NoError(t, err)
	require.False(t, comp.Graph.Node(auID).Bypassed)

	counters := stats.New(prometheus.NewRegistry(), "test")
	p := player.New(comp, testCfg(), counters)

	pat := event.NewPattern(timestamp.New(1, 0), 1)
	require.True(t, pat.Columns[0].Append(event.Event{
		Pos:     timestamp.Zero,
		Kind:    event.ControlVarSet,
		Channel: 0,
		Payload: event.Value{HasRef: true, Ref: "bypass:" + fmt.Sprint(int32(auID)), HasFloat: true, Float: 1.0},
	}))
	p.LoadPattern(pat, 120)

	left := make([]float32, 64)
	right := make([]float32, 64)
	_, err = p.Render(left, right, len(left))
	require.NoError(t, err)

	assert.True(t, comp.Graph.Node(auID).Bypassed, "a bypass: control-variable ref should flip the audio unit's live Bypassed flag")
}

func TestSetBufferSizeRebuildsExecutors(t *testing.T) {
	p, _ := newTestPlayer(t)
	pat := event.NewPattern(timestamp.FromBeats(1), 1)
	p.LoadPattern(pat, 120)

	p.SetBufferSize(512)

	left := make([]float32, 512)
	right := make([]float32, 512)
	_, err := p.Render(left, right, len(left))
	require.NoError(t, err)
}

func TestSetThreadCountIsRecordedOnly(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.SetThreadCount(4)
}
