package device_test

import (
	"testing"

	"github.com/kunquatgo/kunquat/pkg/kunquat/device"
	"github.com/kunquatgo/kunquat/pkg/kunquat/graph"
	"github.com/kunquatgo/kunquat/pkg/kunquat/paramstore"
	"github.com/kunquatgo/kunquat/pkg/kunquat/proc"
	"github.com/kunquatgo/kunquat/pkg/kunquat/tuning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProducesAcyclicVoiceAndMixedPlans(t *testing.T) {
	g := graph.New()
	oscID := g.AddNode("osc", graph.KindProcessor, 0)
	gainID := g.AddNode("gain", graph.KindProcessor, 0)
	require.NoError(t, g.Connect(oscID, 0, gainID, 0))
	require.NoError(t, g.Connect(gainID, 0, g.Master(), 0))

	procs := map[graph.NodeID]proc.Impl{
		oscID:  proc.NewAdditive(4, 48000),
		gainID: proc.NewGain(),
	}

	comp, err := device.Build(g, procs, paramstore.New(nil), tuning.TwelveTET())
	require.NoError(t, err)
	require.Len(t, comp.VoicePlan.Tasks, 1) // osc only; gain produces mixed signal
	require.Len(t, comp.MixedPlan.Tasks, 2) // gain, master
}

func TestBuildRejectsCyclicGraph(t *testing.T) {
	g := graph.New()
	a := g.AddNode("a", graph.KindProcessor, 0)
	b := g.AddNode("b", graph.KindProcessor, 0)
	require.NoError(t, g.Connect(a, 0, b, 0))
	require.NoError(t, g.Connect(b, 0, a, 0))
	require.NoError(t, g.Connect(a, 1, g.Master(), 0))

	_, err := device.Build(g, map[graph.NodeID]proc.Impl{}, paramstore.New(nil), tuning.TwelveTET())
	assert.Error(t, err)
}

func TestSetBypassMarksAudioUnitNode(t *testing.T) {
	g := graph.New()
	au := g.AddAudioUnit("chorus_unit", 0)
	comp, err := device.Build(g, map[graph.NodeID]proc.Impl{}, paramstore.New(nil), tuning.TwelveTET())
	require.NoError(t, err)

	assert.False(t, g.Node(au).Bypassed)
	comp.SetBypass(au, true)
	assert.True(t, g.Node(au).Bypassed)
}
