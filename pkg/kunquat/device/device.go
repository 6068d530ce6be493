// Package device ties the connection graph, the execution plans, the
// parameter store, and the tuning table into one immutable composition
// root, built once per load and
// then handed to the executor for every render chunk.
//
// A fixed stereo bus wires up its static routing once and hands it to
// the render loop; here that role generalizes to an arbitrary device
// graph resolved into the graph/plan pair built by this package.
package device

import (
	"fmt"

	"github.com/kunquatgo/kunquat/pkg/kunquat/graph"
	"github.com/kunquatgo/kunquat/pkg/kunquat/paramstore"
	"github.com/kunquatgo/kunquat/pkg/kunquat/plan"
	"github.com/kunquatgo/kunquat/pkg/kunquat/proc"
	"github.com/kunquatgo/kunquat/pkg/kunquat/tuning"
)

// AudioUnit identifies a graph node of kind KindAudioUnit by its node id.
// The unit's bypass flag is held on the graph node itself (see SetBypass).
type AudioUnit struct {
	NodeID graph.NodeID
}

// Composition is the immutable, build-once result of resolving a device
// graph against a library of processor implementations.
type Composition struct {
	Graph      *graph.Connections
	Processors map[graph.NodeID]proc.Impl
	Params     *paramstore.Registry
	Tuning     *tuning.Table

	VoicePlan *plan.Plan
	MixedPlan *plan.Plan
}

// classifier adapts a Composition's processor map to plan.Classifier.
type classifier struct {
	procs map[graph.NodeID]proc.Impl
}

func (c classifier) ConsumesVoiceSignal(n *graph.Node) bool {
	p, ok := c.procs[n.ID]
	return ok && proc.ConsumesVoiceSignal(p)
}

func (c classifier) ProducesMixedSignal(n *graph.Node) bool {
	p, ok := c.procs[n.ID]
	return ok && proc.ProducesMixedSignal(p)
}

// Build validates g for cycles and constructs both execution plans against
// the given processor library.
func Build(g *graph.Connections, processors map[graph.NodeID]proc.Impl, params *paramstore.Registry, tt *tuning.Table) (*Composition, error) {
	if err := g.CheckAcyclic(); err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}

	cls := classifier{procs: processors}

	voicePlan, err := plan.BuildVoicePlan(g, cls)
	if err != nil {
		return nil, fmt.Errorf("device: voice plan: %w", err)
	}
	mixedPlan, err := plan.BuildMixedPlan(g, cls)
	if err != nil {
		return nil, fmt.Errorf("device: mixed plan: %w", err)
	}

	return &Composition{
		Graph:      g,
		Processors: processors,
		Params:     params,
		Tuning:     tt,
		VoicePlan:  voicePlan,
		MixedPlan:  mixedPlan,
	}, nil
}

// SetBypass marks an audio unit's graph node bypassed or not: while bypassed, the mixed plan routes its input directly to
// its output, skipping its inner processors.
func (comp *Composition) SetBypass(unit graph.NodeID, bypassed bool) {
	comp.Graph.Node(unit).Bypassed = bypassed
}

// ProcessorAt returns the processor implementation bound to a graph node,
// if any.
func (comp *Composition) ProcessorAt(id graph.NodeID) (proc.Impl, bool) {
	p, ok := comp.Processors[id]
	return p, ok
}

// Reconfigure propagates an audio-rate/buffer-size/tempo change to every
// bound processor.
func (comp *Composition) Reconfigure(ctx proc.Context) {
	for _, p := range comp.Processors {
		p.Reconfigure(ctx)
	}
}

// ClearHistory clears every bound processor's internal mixed-signal
// history, e.g. on playback stop.
func (comp *Composition) ClearHistory() {
	for _, p := range comp.Processors {
		p.ClearHistory()
	}
}
