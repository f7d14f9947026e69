package graph

import (
	"sync"
	"time"

	"github.com/advisorhq/stateflow/graph/store"
)

// Definition is an immutable directed graph of named nodes and edges.
//
// A definition is constructed as data (node registrations plus edge
// declarations) and compiled into an Engine bound to a checkpoint store.
// Build one definition per configuration variant (e.g. per policy level) and
// never mutate it after Compile; the compiled-graph cache relies on
// definitions being rebuildable from configuration alone.
//
// Example:
//
//	def := graph.NewDefinition("advisory")
//	def.AddNode("gather", gatherNode)
//	def.AddNode("approve", approveNode)
//	def.AddNode("execute", executeNode)
//	def.StartAt("gather")
//	def.Connect("gather", "approve", nil)
//	def.Connect("approve", "execute", graph.MustExprPredicate(`approved == true`))
//
//	eng, err := def.Compile(store.NewMemStore(), graph.WithMaxSteps(50))
type Definition struct {
	mu sync.Mutex

	name      string
	nodes     map[string]Node
	timeouts  map[string]time.Duration
	edges     []Edge
	startNode string
}

// NewDefinition creates an empty workflow definition with the given name.
// The name appears in error messages and observability events only.
func NewDefinition(name string) *Definition {
	return &Definition{
		name:     name,
		nodes:    make(map[string]Node),
		timeouts: make(map[string]time.Duration),
	}
}

// AddNode registers a node in the graph. Node IDs must be unique and
// non-empty.
func (d *Definition) AddNode(nodeID string, node Node) error {
	if nodeID == "" {
		return &EngineError{Message: "node ID cannot be empty", Code: "INVALID_NODE"}
	}
	if node == nil {
		return &EngineError{Message: "node cannot be nil", Code: "INVALID_NODE"}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.nodes[nodeID]; exists {
		return &EngineError{Message: "duplicate node ID: " + nodeID, Code: "DUPLICATE_NODE"}
	}
	d.nodes[nodeID] = node
	return nil
}

// SetNodeTimeout overrides the engine-wide default execution timeout for one
// node. Zero removes the override.
func (d *Definition) SetNodeTimeout(nodeID string, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.nodes[nodeID]; !exists {
		return &EngineError{Message: "node does not exist: " + nodeID, Code: "NODE_NOT_FOUND"}
	}
	if timeout <= 0 {
		delete(d.timeouts, nodeID)
		return nil
	}
	d.timeouts[nodeID] = timeout
	return nil
}

// StartAt sets the entry node for fresh threads. The node must already be
// registered.
func (d *Definition) StartAt(nodeID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.nodes[nodeID]; !exists {
		return &EngineError{Message: "start node does not exist: " + nodeID, Code: "NODE_NOT_FOUND"}
	}
	d.startNode = nodeID
	return nil
}

// Connect declares an edge between two nodes. A nil predicate is an
// unconditional (default) edge. Edges are evaluated in declaration order and
// the first match wins, so declare specific conditions before the default.
func (d *Definition) Connect(from, to string, when Predicate) error {
	if from == "" || to == "" {
		return &EngineError{Message: "edge endpoints cannot be empty", Code: "INVALID_EDGE"}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.edges = append(d.edges, Edge{From: from, To: to, When: when})
	return nil
}

// Compile validates the definition and binds it to a checkpoint store,
// producing an executable Engine.
//
// Validation rejects a missing start node and edges referencing unknown
// nodes. The returned Engine holds private copies of the topology, so later
// (incorrect) mutation of the Definition cannot affect running threads.
func (d *Definition) Compile(st store.Store, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, &EngineError{Message: "checkpoint store is required", Code: "MISSING_STORE"}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.startNode == "" {
		return nil, &EngineError{Message: "start node not set (call StartAt before Compile)", Code: "NO_START_NODE"}
	}
	for _, edge := range d.edges {
		if _, exists := d.nodes[edge.From]; !exists {
			return nil, &EngineError{Message: "edge references unknown node: " + edge.From, Code: "NODE_NOT_FOUND"}
		}
		if _, exists := d.nodes[edge.To]; !exists {
			return nil, &EngineError{Message: "edge references unknown node: " + edge.To, Code: "NODE_NOT_FOUND"}
		}
	}

	cfg := engineConfig{}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	nodes := make(map[string]Node, len(d.nodes))
	for id, n := range d.nodes {
		nodes[id] = n
	}
	timeouts := make(map[string]time.Duration, len(d.timeouts))
	for id, t := range d.timeouts {
		timeouts[id] = t
	}
	edges := make([]Edge, len(d.edges))
	copy(edges, d.edges)

	return &Engine{
		name:      d.name,
		nodes:     nodes,
		timeouts:  timeouts,
		edges:     edges,
		startNode: d.startNode,
		store:     st,
		emitter:   cfg.emitter,
		metrics:   cfg.metrics,
		opts:      cfg,
	}, nil
}
