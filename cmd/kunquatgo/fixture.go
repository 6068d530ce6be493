package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/kunquatgo/kunquat/pkg/kunquat/device"
	"github.com/kunquatgo/kunquat/pkg/kunquat/event"
	"github.com/kunquatgo/kunquat/pkg/kunquat/graph"
	"github.com/kunquatgo/kunquat/pkg/kunquat/klog"
	"github.com/kunquatgo/kunquat/pkg/kunquat/paramstore"
	"github.com/kunquatgo/kunquat/pkg/kunquat/proc"
	"github.com/kunquatgo/kunquat/pkg/kunquat/timestamp"
	"github.com/kunquatgo/kunquat/pkg/kunquat/tuning"
)

// fixtureNode is one processor node in a composition fixture file.
type fixtureNode struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // additive, gain, filter, pan_left, pan_right, chorus
}

// fixtureEdge connects one node's send port to another's receive port;
// "master" names the composition's fixed master node.
type fixtureEdge struct {
	Src     string `json:"src"`
	SrcPort int    `json:"src_port"`
	Dst     string `json:"dst"`
	DstPort int    `json:"dst_port"`
}

// fixture is the on-disk JSON composition description the render/play
// commands load, standing in for the file-format ingestion the spec
// names as an out-of-scope external collaborator: this is just enough
// structure to exercise the graph/device/player stack from the CLI.
type fixture struct {
	Nodes []fixtureNode `json:"nodes"`
	Edges []fixtureEdge `json:"edges"`
}

// loadFixture reads and builds a composition from a JSON fixture file at
// the given audio rate.
func loadFixture(path string, audioRate float64) (*device.Composition, map[string]graph.NodeID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading fixture: %w", err)
	}
	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return buildFixture(f, audioRate)
}

func buildFixture(f fixture, audioRate float64) (*device.Composition, map[string]graph.NodeID, error) {
	g := graph.New()
	ids := map[string]graph.NodeID{"master": g.Master()}
	procs := map[graph.NodeID]proc.Impl{}

	for _, n := range f.Nodes {
		id := g.AddNode(n.Name, graph.KindProcessor, 0)
		ids[n.Name] = id

		impl, err := newProcessor(n.Kind, audioRate)
		if err != nil {
			return nil, nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		procs[id] = impl
	}

	for _, e := range f.Edges {
		srcID, ok := ids[e.Src]
		if !ok {
			return nil, nil, fmt.Errorf("edge references unknown node %q", e.Src)
		}
		dstID, ok := ids[e.Dst]
		if !ok {
			return nil, nil, fmt.Errorf("edge references unknown node %q", e.Dst)
		}
		if err := g.Connect(srcID, e.SrcPort, dstID, e.DstPort); err != nil {
			return nil, nil, fmt.Errorf("connecting %q->%q: %w", e.Src, e.Dst, err)
		}
	}

	comp, err := device.Build(g, procs, paramstore.New(nil), tuning.TwelveTET())
	if err != nil {
		return nil, nil, fmt.Errorf("building composition: %w", err)
	}
	return comp, ids, nil
}

func newProcessor(kind string, audioRate float64) (proc.Impl, error) {
	const poolCapacity = 64
	switch kind {
	case "additive":
		return proc.NewAdditive(poolCapacity, audioRate), nil
	case "gain":
		return proc.NewGain(), nil
	case "filter":
		return proc.NewFilter(), nil
	case "pan_left":
		return proc.NewPan(proc.SideLeft), nil
	case "pan_right":
		return proc.NewPan(proc.SideRight), nil
	case "chorus":
		return proc.NewChorus(audioRate, 8192), nil
	default:
		return nil, fmt.Errorf("unknown processor kind %q", kind)
	}
}

// defaultFixture is used when no fixture file is given: one additive
// voice straight into the master.
func defaultFixture() fixture {
	return fixture{
		Nodes: []fixtureNode{{Name: "osc", Kind: "additive"}},
		Edges: []fixtureEdge{{Src: "osc", SrcPort: 0, Dst: "master", DstPort: 0}},
	}
}

// syntheticPattern builds a short ascending major-scale pattern, one note
// per beat, as a demo event stream for the render and play commands. Each
// note-on is logged with a uuid correlation id so a listener can match a
// log line to the audible note; the player mints its own group_id
// internally on NoteOn and doesn't need this id.
func syntheticPattern(beats int) *event.Pattern {
	scale := []float64{0, 200, 400, 500, 700, 900, 1100, 1200} // cents, major scale
	pat := event.NewPattern(timestamp.New(int64(beats), 0), 1)
	logger := klog.For("fixture")

	for i := 0; i < beats; i++ {
		pos := timestamp.New(int64(i), 0)
		cents := scale[i%len(scale)]
		logger.Debug("synthetic note-on", "correlation_id", uuid.New().String(), "beat", i, "cents", cents)
		pat.Columns[0].Append(event.Event{
			Pos:     pos,
			Kind:    event.NoteOn,
			Channel: 0,
			Payload: event.Value{HasPitch: true, Pitch: cents, HasFloat: true, Float: 0.8},
		})
		offPos := timestamp.New(int64(i), timestamp.BeatDivisor/2)
		pat.Columns[0].Append(event.Event{
			Pos:     offPos,
			Kind:    event.NoteOff,
			Channel: 0,
		})
	}
	return pat
}
