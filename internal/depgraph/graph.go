// Package depgraph orders entity types so that every type commits after the
// types it references.
//
// Edges are recorded as (dependent, dependency): "dependent must commit after
// dependency". TopologicalOrder returns dependencies first, which is the
// commit order.
package depgraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agentic-research/seedgraph/internal/record"
)

// ErrCycle is matched by every *CycleError.
var ErrCycle = errors.New("dependency cycle")

// CycleError reports the types forming a cycle, first type repeated at the end.
type CycleError struct {
	Path []record.EntityType
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, t := range e.Path {
		parts[i] = string(t)
	}
	return fmt.Sprintf("dependency cycle: %s", strings.Join(parts, " -> "))
}

func (e *CycleError) Is(target error) bool { return target == ErrCycle }

// Graph is a directed graph over entity types. Insertion order is kept so the
// computed order is deterministic for a given history.
type Graph struct {
	nodes []record.EntityType
	index map[record.EntityType]int
	deps  map[record.EntityType][]record.EntityType
	edges map[[2]record.EntityType]struct{}
}

func New() *Graph {
	g := &Graph{}
	g.Reset()
	return g
}

// Reset drops every node and edge.
func (g *Graph) Reset() {
	g.nodes = nil
	g.index = make(map[record.EntityType]int)
	g.deps = make(map[record.EntityType][]record.EntityType)
	g.edges = make(map[[2]record.EntityType]struct{})
}

// Node registers t. Registering an existing node does nothing.
func (g *Graph) Node(t record.EntityType) {
	if _, ok := g.index[t]; ok {
		return
	}
	g.index[t] = len(g.nodes)
	g.nodes = append(g.nodes, t)
}

// Edge records that dependent commits after dependency, registering both
// endpoints. A self edge only registers the node: records referencing their
// own type are ordered by the unit of work, not by the graph.
func (g *Graph) Edge(dependent, dependency record.EntityType) {
	g.Node(dependent)
	g.Node(dependency)
	if dependent == dependency {
		return
	}
	key := [2]record.EntityType{dependent, dependency}
	if _, ok := g.edges[key]; ok {
		return
	}
	g.edges[key] = struct{}{}
	g.deps[dependent] = append(g.deps[dependent], dependency)
}

func (g *Graph) HasNode(t record.EntityType) bool {
	_, ok := g.index[t]
	return ok
}

func (g *Graph) HasEdge(dependent, dependency record.EntityType) bool {
	_, ok := g.edges[[2]record.EntityType{dependent, dependency}]
	return ok
}

// Nodes returns the registered types in insertion order.
func (g *Graph) Nodes() []record.EntityType {
	return append([]record.EntityType(nil), g.nodes...)
}

// Dependencies returns the direct dependencies of t in insertion order.
func (g *Graph) Dependencies(t record.EntityType) []record.EntityType {
	return append([]record.EntityType(nil), g.deps[t]...)
}

// TopologicalOrder returns every registered type with each dependency placed
// before its dependents. Types without a constraint between them keep their
// insertion order. A cycle yields a *CycleError.
func (g *Graph) TopologicalOrder() ([]record.EntityType, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[record.EntityType]int, len(g.nodes))
	order := make([]record.EntityType, 0, len(g.nodes))
	var stack []record.EntityType

	var visit func(t record.EntityType) error
	visit = func(t record.EntityType) error {
		switch state[t] {
		case done:
			return nil
		case visiting:
			return &CycleError{Path: cyclePath(stack, t)}
		}
		state[t] = visiting
		stack = append(stack, t)
		for _, dep := range g.deps[t] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[t] = done
		order = append(order, t)
		return nil
	}

	for _, t := range g.nodes {
		if err := visit(t); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// DependentsFirst is the reverse of TopologicalOrder.
func (g *Graph) DependentsFirst() ([]record.EntityType, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

func cyclePath(stack []record.EntityType, repeat record.EntityType) []record.EntityType {
	for i, t := range stack {
		if t == repeat {
			path := append([]record.EntityType(nil), stack[i:]...)
			return append(path, repeat)
		}
	}
	return []record.EntityType{repeat, repeat}
}
