// Package graph implements the connection model: an in-memory graph of
// device nodes and port edges, with cycle detection and depth computation ahead of plan
// building.
//
// Cycle detection uses a three-color mark per node (New/Reached/Visited)
// rather than a pointer-chasing walk. Node ids are drawn from a single
// sequence shared by a top-level graph and every nested audio-unit graph
// reachable from it, so a NodeID is unique across the whole composition,
// not just within the Connections that created it.
package graph

import "fmt"

// DevicePortsMax bounds the number of ports on any device node.
const DevicePortsMax = 16

// Kind identifies what a device node represents.
type Kind int

const (
	KindMaster Kind = iota
	KindAudioUnit
	KindProcessor
)

// Edge is one endpoint of a port connection: the peer node id and the
// peer's port index.
type Edge struct {
	PeerNode NodeID
	PeerPort int
}

// NodeID uniquely identifies a node across an entire composition,
// including nodes nested inside audio units.
type NodeID int32

// colorMark is the DFS coloring state used for cycle detection.
type colorMark int

const (
	markNew colorMark = iota
	markReached
	markVisited
)

// Node is one device node: a master pseudo-device, an audio unit, or a
// processor, with per-port receive/send edge lists.
type Node struct {
	ID         NodeID // this node's own id, set once at creation
	Name       string
	Kind       Kind
	Index      int32 // index into the owning Composition's audio-unit/processor table
	Receive    [DevicePortsMax][]Edge
	Send       [DevicePortsMax][]Edge
	mark       colorMark
	levelIndex int // longest path from the master to this node

	// Inner is set for KindAudioUnit nodes: a nested Connections graph
	// whose master acts as the unit's output interface pseudo-device and
	// whose InputInterface node is the unit's input interface
	// pseudo-device. Processors inside the unit
	// are added to Inner, not to the parent graph. Inner shares its
	// parent's id sequence, so its node ids never collide with the
	// parent's or with any sibling audio unit's.
	Inner          *Connections
	InputInterface NodeID
	Bypassed       bool
}

// idSeq is a node id allocator shared by a top-level Connections and every
// Connections nested beneath it via AddAudioUnit, so ids stay unique across
// the whole composition rather than restarting at 0 per nested graph.
type idSeq struct {
	next int32
}

func (s *idSeq) alloc() NodeID {
	id := NodeID(s.next)
	s.next++
	return id
}

// Connections is one graph of nodes: a node table plus the id of the
// master node and its computed depth. Node ids are unique only relative
// to the idSeq a Connections was built with; New() starts a fresh
// sequence, while AddAudioUnit continues the caller's sequence into the
// nested graph it creates.
type Connections struct {
	seq    *idSeq
	nodes  map[NodeID]*Node
	order  []NodeID // insertion order, for deterministic iteration
	master NodeID
	depth  int
}

// New creates an empty graph with a fresh id sequence and a master node.
func New() *Connections {
	return newWithSeq(&idSeq{})
}

func newWithSeq(seq *idSeq) *Connections {
	c := &Connections{seq: seq, nodes: make(map[NodeID]*Node)}
	master := &Node{ID: seq.alloc(), Name: "master", Kind: KindMaster}
	c.nodes[master.ID] = master
	c.order = append(c.order, master.ID)
	c.master = master.ID
	return c
}

// Master returns the master node's id.
func (c *Connections) Master() NodeID { return c.master }

// AddNode appends a new node and returns its id.
func (c *Connections) AddNode(name string, kind Kind, index int32) NodeID {
	id := c.seq.alloc()
	c.nodes[id] = &Node{ID: id, Name: name, Kind: kind, Index: index}
	c.order = append(c.order, id)
	return id
}

// Node returns the node for id.
func (c *Connections) Node(id NodeID) *Node { return c.nodes[id] }

// AddAudioUnit appends an audio-unit node with a fresh nested Connections
// graph (its master plays the role of the unit's output interface; a
// second node is added as the input interface pseudo-device). The nested
// graph draws its node ids from the same sequence as c, so they never
// collide with c's own ids or with any other audio unit's.
func (c *Connections) AddAudioUnit(name string, index int32) NodeID {
	inner := newWithSeq(c.seq)
	inputIface := inner.AddNode(name+".in", KindProcessor, -1)
	id := c.AddNode(name, KindAudioUnit, index)
	n := c.nodes[id]
	n.Inner = inner
	n.InputInterface = inputIface
	return id
}

// Connect wires sender's send port to receiver's receive port. Edges are
// bidirectionally recorded (send on the sender, receive on the receiver)
// so both the plan builder's forward walk (from master via Receive) and
// any diagnostic reverse walk can traverse the graph directly.
func (c *Connections) Connect(sender NodeID, sendPort int, receiver NodeID, recvPort int) error {
	if sendPort < 0 || sendPort >= DevicePortsMax || recvPort < 0 || recvPort >= DevicePortsMax {
		return fmt.Errorf("graph: port index out of range")
	}
	c.nodes[sender].Send[sendPort] = append(c.nodes[sender].Send[sendPort], Edge{PeerNode: receiver, PeerPort: recvPort})
	c.nodes[receiver].Receive[recvPort] = append(c.nodes[receiver].Receive[recvPort], Edge{PeerNode: sender, PeerPort: sendPort})
	return nil
}

// CycleError is returned when the graph contains a cycle).
type CycleError struct {
	NodeName string
}

func (e *CycleError) Error() string { return fmt.Sprintf("graph: cycle reached at node %q", e.NodeName) }

// CheckAcyclic runs the New->Reached->Visited coloring DFS from the
// master node, walking Receive edges (the direction the plan builder
// walks), and computes each node's level index (longest path
// from the master) for the plan builder's depth-first ordering.
func (c *Connections) CheckAcyclic() error {
	for _, id := range c.order {
		n := c.nodes[id]
		n.mark = markNew
		n.levelIndex = 0
	}
	return c.visit(c.master, 0)
}

func (c *Connections) visit(id NodeID, depth int) error {
	n := c.nodes[id]
	if n.mark == markVisited {
		if depth > n.levelIndex {
			n.levelIndex = depth
		}
		return nil
	}
	if n.mark == markReached {
		return &CycleError{NodeName: n.Name}
	}

	n.mark = markReached
	if depth > n.levelIndex {
		n.levelIndex = depth
	}

	for _, edges := range n.Receive {
		for _, e := range edges {
			if err := c.visit(e.PeerNode, depth+1); err != nil {
				return err
			}
		}
	}

	n.mark = markVisited
	return nil
}

// Depth returns the longest path from any leaf to the master, valid after
// a successful CheckAcyclic.
func (c *Connections) Depth() int {
	depth := 0
	for _, id := range c.order {
		if n := c.nodes[id]; n.levelIndex > depth {
			depth = n.levelIndex
		}
	}
	return depth
}

// LevelIndex returns a node's computed level index (depth from master),
// used by the plan builder to sort tasks deepest-first.
func (c *Connections) LevelIndex(id NodeID) int {
	return c.nodes[id].levelIndex
}

// AllNodes returns every node id in this graph (not including nested
// audio-unit graphs), master first.
func (c *Connections) AllNodes() []NodeID {
	ids := make([]NodeID, len(c.order))
	copy(ids, c.order)
	return ids
}
