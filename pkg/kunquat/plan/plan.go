// Package plan builds the two ordered execution plans — voice and mixed —
// from the declarative device graph: an ordered list of
// TaskInfo, each naming its predecessors, its buffer connections, and
// (mixed plan only) the audio unit it is nested in for bypass checks.
//
// TaskInfo's device_id/sender_tasks/buf_conns/is_connected_to_mixed
// fields mirror the voice/mixed signal plan task-info shape translated
// from a vector-of-struct layout into Go slices of value types.
package plan

import (
	"fmt"
	"sort"

	"github.com/kunquatgo/kunquat/pkg/kunquat/graph"
)

// BufConn is one buffer-connection tuple: mix the sender's send-port work
// buffer sub-channel into the receiver's receive-port work buffer
// sub-channel.
type BufConn struct {
	DstPort, DstSub int
	SrcPort, SrcSub int
	SrcNode         graph.NodeID
}

// TaskInfo is one step of an execution plan.
type TaskInfo struct {
	DeviceID            graph.NodeID
	SenderTaskIndices    []int // indices into the owning Plan.Tasks slice; all < this task's own index
	BufferConnections    []BufConn
	IsConnectedToMixed   bool        // voice plan only
	CrossesInto          graph.NodeID // voice plan only, valid when IsConnectedToMixed: the graph node (true master, or a hybrid voice+mixed processor) this task's output must be summed into
	ContainerAudioUnit   graph.NodeID // mixed plan only; -1 if none
	HasContainerAudioUnit bool
}

// Plan is an ordered list of tasks plus the subset that are "roots" (no
// successor within the plan — i.e. they feed the master or, for the voice
// plan, feed across into mixed processing).
type Plan struct {
	Tasks     []TaskInfo
	Roots     []int
	NodeIndex map[graph.NodeID]int // graph node id -> its task index in Tasks
}

// Classifier tells the plan builder which graph nodes participate in
// which plan: a processor may consume voice signal,
// produce mixed signal, both, or neither (a pure pass-through interface
// node).
type Classifier interface {
	ConsumesVoiceSignal(n *graph.Node) bool
	ProducesMixedSignal(n *graph.Node) bool
}

type builder struct {
	classifier Classifier
	voice      bool // building the voice plan vs the mixed plan
	visited    map[graph.NodeID]int // node id -> task index, within current Connections scope
	tasks      []TaskInfo
	containerStack []containerFrame
	wiredInputs map[graph.NodeID]bool // audio-unit node id -> its outer receive edges have been wired
}

type containerFrame struct {
	id graph.NodeID
}

// BuildVoicePlan walks conn from its master via Receive edges, including
// only processors whose ConsumesVoiceSignal is true and ProducesMixedSignal
// is false (pure voice-signal processors); when a voice task's output
// crosses into a mixed processor or the master, the task is marked
// IsConnectedToMixed so the executor knows to sum its voice-signal send
// buffers into mixed-signal reception.
func BuildVoicePlan(conn *graph.Connections, classifier Classifier) (*Plan, error) {
	b := &builder{classifier: classifier, voice: true, visited: map[graph.NodeID]int{}, wiredInputs: map[graph.NodeID]bool{}}
	if _, err := b.walk(conn, conn.Master()); err != nil {
		return nil, err
	}
	return finishPlan(b.tasks, true), nil
}

// BuildMixedPlan walks conn from its master, including processors with
// ProducesMixedSignal true and audio-unit interface pseudo-devices;
// entering an audio unit recurses into its Inner graph, and every task's
// ContainerAudioUnit is recorded so the executor can check the unit's
// live Bypassed flag at render time.
func BuildMixedPlan(conn *graph.Connections, classifier Classifier) (*Plan, error) {
	b := &builder{classifier: classifier, voice: false, visited: map[graph.NodeID]int{}, wiredInputs: map[graph.NodeID]bool{}}
	if _, err := b.walk(conn, conn.Master()); err != nil {
		return nil, err
	}
	return finishPlan(b.tasks, false), nil
}

// walk recurses depth-first through n's Receive edges in port order,
// returning the task index assigned to n (or -1 if n is not included in
// this plan), per steps 1-4.
func (b *builder) walk(conn *graph.Connections, id graph.NodeID) (int, error) {
	if idx, ok := b.visited[id]; ok {
		return idx, nil
	}

	n := conn.Node(id)

	// Recurse into predecessors first (senders of this node's receive ports).
	senderIndices := []int{}
	connections := []BufConn{}
	for port, edges := range n.Receive {
		for _, e := range edges {
			peerConn := conn
			peerID := e.PeerNode
			peer := peerConn.Node(peerID)

			if peer.Kind == graph.KindAudioUnit {
				// Entering an audio unit from the outside: recurse into
				// its inner output interface (its Inner.Master()), and
				// separately wire whatever external senders feed the
				// unit's own receive ports through to its input
				// interface. The mixed plan records a task for the
				// output interface itself (so bypass can be checked);
				// the voice plan transparently walks through to the
				// unit's inner voice processors, since a voice signal
				// processor may live inside an audio unit.
				if err := b.wireAudioUnitInputs(peerConn, peer); err != nil {
					return -1, err
				}
				childIdx, err := b.walkAudioUnit(peer, peerID)
				if err != nil {
					return -1, err
				}
				if childIdx >= 0 {
					senderIndices = appendUnique(senderIndices, childIdx)
					// The task childIdx refers to is the unit's inner
					// master (its output interface), so the buffer
					// connection's source must name that node, not the
					// audio-unit node itself: b.tasks[childIdx].DeviceID is
					// the id actually registered in NodeIndex.
					connections = append(connections, BufConn{DstPort: port, SrcPort: e.PeerPort, SrcNode: b.tasks[childIdx].DeviceID})
				}
				continue
			}

			childIdx, err := b.walk(peerConn, peerID)
			if err != nil {
				return -1, err
			}
			if childIdx < 0 {
				continue
			}
			senderIndices = appendUnique(senderIndices, childIdx)
			connections = append(connections, BufConn{DstPort: port, SrcPort: e.PeerPort, SrcNode: peerID})
		}
	}

	included, markMixedCrossing := b.classify(n, len(b.containerStack) == 0)
	if !included {
		b.visited[id] = -1
		// Even if this node itself isn't included, its predecessors that
		// ARE included still need their IsConnectedToMixed flag set when
		// this node is the master/a mixed consumer. Propagate that via
		// markMixedCrossing even for excluded pass-through nodes (e.g. the
		// master itself in the voice plan).
		if markMixedCrossing {
			for _, si := range senderIndices {
				b.tasks[si].IsConnectedToMixed = true
				b.tasks[si].CrossesInto = id
			}
		}
		return -1, nil
	}

	idx := len(b.tasks)
	b.visited[id] = idx
	containerID, hasContainer := graph.NodeID(-1), false
	if len(b.containerStack) > 0 {
		containerID, hasContainer = b.containerStack[len(b.containerStack)-1].id, true
	}
	b.tasks = append(b.tasks, TaskInfo{
		DeviceID:              id,
		SenderTaskIndices:      senderIndices,
		BufferConnections:      connections,
		ContainerAudioUnit:     containerID,
		HasContainerAudioUnit:  hasContainer,
	})

	if markMixedCrossing {
		for _, si := range senderIndices {
			b.tasks[si].IsConnectedToMixed = true
			b.tasks[si].CrossesInto = id
		}
	}

	return idx, nil
}

// wireAudioUnitInputs processes an audio unit's own receive edges -- the
// connections made into the unit from the enclosing graph -- and marks
// each included sender's crossing point as the unit's input interface, so
// a voice-signal processor connected directly to an audio unit (rather
// than to the true master) still reaches the unit's inner chain. Runs at
// most once per audio unit per plan build.
func (b *builder) wireAudioUnitInputs(conn *graph.Connections, auNode *graph.Node) error {
	if b.wiredInputs[auNode.ID] {
		return nil
	}
	b.wiredInputs[auNode.ID] = true

	for _, edges := range auNode.Receive {
		for _, e := range edges {
			sender := conn.Node(e.PeerNode)
			if sender.Kind == graph.KindAudioUnit {
				continue
			}
			childIdx, err := b.walk(conn, e.PeerNode)
			if err != nil {
				return err
			}
			if childIdx < 0 {
				continue
			}
			b.tasks[childIdx].IsConnectedToMixed = true
			b.tasks[childIdx].CrossesInto = auNode.InputInterface
		}
	}
	return nil
}

// walkAudioUnit recurses into an audio unit's inner graph for both plans
// (a voice-signal processor may live inside an audio unit), pushing a
// container frame so nested mixed-plan tasks record their
// ContainerAudioUnit; the executor checks the unit's live Bypassed flag
// against ContainerAudioUnit at render time, so nothing about bypass
// needs to be precomputed here.
func (b *builder) walkAudioUnit(auNode *graph.Node, auNodeID graph.NodeID) (int, error) {
	if auNode.Inner == nil {
		return -1, fmt.Errorf("plan: audio unit %q has no inner graph", auNode.Name)
	}

	b.containerStack = append(b.containerStack, containerFrame{id: auNodeID})
	idx, err := b.walk(auNode.Inner, auNode.Inner.Master())
	b.containerStack = b.containerStack[:len(b.containerStack)-1]
	if err != nil {
		return -1, err
	}

	return idx, nil
}

// classify reports whether n belongs in the plan being built, and whether
// including it means its senders should be marked IsConnectedToMixed
// (only meaningful for the voice plan). topLevelMaster is true only for
// the true composition master (depth 0); a KindMaster node reached while
// inside an audio unit's Inner graph represents that unit's output
// interface pseudo-device, not the composition master, and both plans
// treat it as an ordinary pass-through task so nested voice/mixed signals
// reach the enclosing graph.
func (b *builder) classify(n *graph.Node, topLevelMaster bool) (included bool, marksMixedCrossing bool) {
	if n.Kind == graph.KindMaster && !topLevelMaster {
		// Audio-unit output interface: always a pass-through task so its
		// predecessors' signals are carried up to the parent graph.
		return true, false
	}
	if n.Kind == graph.KindProcessor && n.Index < 0 {
		// Audio-unit input interface: always a pass-through task so
		// whatever crosses into it from outside the unit reaches the
		// unit's inner chain.
		return true, false
	}

	if b.voice {
		switch n.Kind {
		case graph.KindMaster: // true composition master
			return false, true
		case graph.KindAudioUnit:
			return false, true
		case graph.KindProcessor:
			isVoice := b.classifier.ConsumesVoiceSignal(n)
			isMixed := b.classifier.ProducesMixedSignal(n)
			if isMixed {
				return false, true
			}
			return isVoice, false
		}
		return false, false
	}

	switch n.Kind {
	case graph.KindMaster: // true composition master
		return true, false
	case graph.KindAudioUnit:
		return true, false
	case graph.KindProcessor:
		return b.classifier.ProducesMixedSignal(n), false
	}
	return false, false
}

func appendUnique(s []int, v int) []int {
	for _, e := range s {
		if e == v {
			return s
		}
	}
	return append(s, v)
}

// finishPlan sorts tasks deepest-first is unnecessary here since walk
// already emits tasks in a valid topological order (predecessors are
// always appended before their successor); this
// pass instead computes Roots (tasks with no successor in the plan) and
// merges contiguous buffer connections per step 5.
func finishPlan(tasks []TaskInfo, voicePlan bool) *Plan {
	hasSuccessor := make([]bool, len(tasks))
	for _, t := range tasks {
		for _, si := range t.SenderTaskIndices {
			hasSuccessor[si] = true
		}
	}

	var roots []int
	for i := range tasks {
		if !hasSuccessor[i] {
			roots = append(roots, i)
		}
	}
	sort.Ints(roots)

	nodeIndex := make(map[graph.NodeID]int, len(tasks))
	for i := range tasks {
		tasks[i].BufferConnections = mergeContiguous(tasks[i].BufferConnections)
		nodeIndex[tasks[i].DeviceID] = i
	}

	return &Plan{Tasks: tasks, Roots: roots, NodeIndex: nodeIndex}
}

// mergeContiguous coalesces buffer-connection tuples whose (receiver,
// sender) ports are adjacent, reducing per-frame mixing overhead. Two
// connections merge when they share SrcNode and their port/sub indices
// are each exactly one apart.
func mergeContiguous(conns []BufConn) []BufConn {
	if len(conns) < 2 {
		return conns
	}
	sort.Slice(conns, func(i, j int) bool {
		if conns[i].SrcNode != conns[j].SrcNode {
			return conns[i].SrcNode < conns[j].SrcNode
		}
		return conns[i].DstPort < conns[j].DstPort
	})

	merged := []BufConn{conns[0]}
	for _, c := range conns[1:] {
		last := &merged[len(merged)-1]
		if c.SrcNode == last.SrcNode && c.DstPort == last.DstPort+1 && c.SrcPort == last.SrcPort+1 {
			last.DstPort = c.DstPort
			last.SrcPort = c.SrcPort
			continue
		}
		merged = append(merged, c)
	}
	return merged
}
