package plan_test

import (
	"testing"

	"github.com/kunquatgo/kunquat/pkg/kunquat/graph"
	"github.com/kunquatgo/kunquat/pkg/kunquat/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClassifier lets tests mark specific nodes as voice/mixed processors
// by name.
type fakeClassifier struct {
	voiceNames map[string]bool
	mixedNames map[string]bool
}

func newClassifier() *fakeClassifier {
	return &fakeClassifier{
		voiceNames: map[string]bool{},
		mixedNames: map[string]bool{},
	}
}

func (f *fakeClassifier) ConsumesVoiceSignal(n *graph.Node) bool { return f.voiceNames[n.Name] }
func (f *fakeClassifier) ProducesMixedSignal(n *graph.Node) bool { return f.mixedNames[n.Name] }

func TestVoicePlanAcyclicityInvariant(t *testing.T) {
	g := graph.New()
	osc := g.AddNode("osc", graph.KindProcessor, 0)
	require.NoError(t, g.Connect(osc, 0, g.Master(), 0))

	c := newClassifier()
	c.voiceNames["osc"] = true

	p, err := plan.BuildVoicePlan(g, c)
	require.NoError(t, err)
	require.Len(t, p.Tasks, 1)

	for i, task := range p.Tasks {
		for _, si := range task.SenderTaskIndices {
			assert.Less(t, si, i)
		}
	}
	assert.True(t, p.Tasks[0].IsConnectedToMixed)
}

func TestMixedPlanIncludesMasterAndProcessor(t *testing.T) {
	g := graph.New()
	filter := g.AddNode("filter", graph.KindProcessor, 0)
	require.NoError(t, g.Connect(filter, 0, g.Master(), 0))

	c := newClassifier()
	c.mixedNames["filter"] = true

	p, err := plan.BuildMixedPlan(g, c)
	require.NoError(t, err)
	require.Len(t, p.Tasks, 2) // filter, master

	for i, task := range p.Tasks {
		for _, si := range task.SenderTaskIndices {
			assert.Less(t, si, i)
		}
	}
}

func TestMixedPlanRecursesIntoAudioUnit(t *testing.T) {
	g := graph.New()
	au := g.AddAudioUnit("chorus_unit", 0)
	auNode := g.Node(au)

	innerFilter := auNode.Inner.AddNode("inner_filter", graph.KindProcessor, 0)
	require.NoError(t, auNode.Inner.Connect(innerFilter, 0, auNode.Inner.Master(), 0))
	require.NoError(t, g.Connect(au, 0, g.Master(), 0))

	c := newClassifier()
	c.mixedNames["inner_filter"] = true

	p, err := plan.BuildMixedPlan(g, c)
	require.NoError(t, err)

	// inner_filter, inner master (AU output interface), outer master == 3 tasks
	require.Len(t, p.Tasks, 3)
	for i, task := range p.Tasks {
		for _, si := range task.SenderTaskIndices {
			assert.Less(t, si, i)
		}
	}
}
