package depgraph

import (
	"errors"
	"testing"

	"github.com/agentic-research/seedgraph/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func position(order []record.EntityType) map[record.EntityType]int {
	pos := make(map[record.EntityType]int, len(order))
	for i, t := range order {
		pos[t] = i
	}
	return pos
}

func TestTopologicalOrder_DependenciesFirst(t *testing.T) {
	g := New()
	g.Edge("Contact", "Account")
	g.Edge("Opportunity", "Account")
	g.Edge("OpportunityContactRole", "Opportunity")
	g.Edge("OpportunityContactRole", "Contact")

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	require.Len(t, order, 4)

	pos := position(order)
	for _, edge := range [][2]record.EntityType{
		{"Contact", "Account"},
		{"Opportunity", "Account"},
		{"OpportunityContactRole", "Opportunity"},
		{"OpportunityContactRole", "Contact"},
	} {
		assert.Less(t, pos[edge[1]], pos[edge[0]], "%s must precede %s", edge[1], edge[0])
	}
}

func TestTopologicalOrder_DeterministicTieBreak(t *testing.T) {
	build := func() *Graph {
		g := New()
		g.Node("Campaign")
		g.Node("Account")
		g.Node("Product")
		g.Edge("Contact", "Account")
		return g
	}

	first, err := build().TopologicalOrder()
	require.NoError(t, err)
	second, err := build().TopologicalOrder()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []record.EntityType{"Campaign", "Account", "Product", "Contact"}, first)
}

func TestEdge_Idempotent(t *testing.T) {
	g := New()
	g.Edge("Contact", "Account")
	g.Edge("Contact", "Account")
	g.Node("Account")

	assert.Equal(t, []record.EntityType{"Contact", "Account"}, g.Nodes())
	assert.Equal(t, []record.EntityType{"Account"}, g.Dependencies("Contact"))
	assert.True(t, g.HasEdge("Contact", "Account"))
	assert.False(t, g.HasEdge("Account", "Contact"))
}

func TestEdge_SelfReferenceRegistersNodeOnly(t *testing.T) {
	g := New()
	g.Edge("Account", "Account")

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []record.EntityType{"Account"}, order)
	assert.Empty(t, g.Dependencies("Account"))
}

func TestTopologicalOrder_Cycle(t *testing.T) {
	g := New()
	g.Edge("A", "B")
	g.Edge("B", "A")

	order, err := g.TopologicalOrder()
	assert.Nil(t, order)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))

	var cycle *CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []record.EntityType{"A", "B", "A"}, cycle.Path)
	assert.Equal(t, "dependency cycle: A -> B -> A", err.Error())
}

func TestTopologicalOrder_LongerCycle(t *testing.T) {
	g := New()
	g.Node("Root")
	g.Edge("A", "B")
	g.Edge("B", "C")
	g.Edge("C", "A")

	_, err := g.TopologicalOrder()
	assert.ErrorIs(t, err, ErrCycle)
}

func TestDependentsFirst(t *testing.T) {
	g := New()
	g.Edge("Child", "Parent")

	order, err := g.DependentsFirst()
	require.NoError(t, err)
	assert.Equal(t, []record.EntityType{"Child", "Parent"}, order)
}

func TestReset(t *testing.T) {
	g := New()
	g.Edge("Child", "Parent")
	g.Reset()

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Empty(t, order)
	assert.False(t, g.HasNode("Child"))
}
