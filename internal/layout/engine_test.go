package layout

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshit-Dhanwalkar/NexusView/internal/graph"
)

var (
	nodeA = graph.FileNode("/v/A.md")
	nodeB = graph.FileNode("/v/B.md")
	nodeC = graph.FileNode("/v/C.md")
)

func newTestEngine(p Params) *Engine {
	return NewEngine(p, WithRand(rand.New(rand.NewSource(1))))
}

func distance(e *Engine, a, b graph.Node) float64 {
	pa, _ := e.Position(a)
	pb, _ := e.Position(b)
	return pb.Sub(pa).Len()
}

func TestEngine_Convergence(t *testing.T) {
	p := DefaultParams()
	e := newTestEngine(p)

	nodes := []graph.Node{nodeA, nodeB}
	edges := []graph.Edge{{From: 0, To: 1}}
	e.ResetPositions(map[graph.Node]Vec2{
		nodeA: {X: 0, Y: 0},
		nodeB: {X: 2 * p.IdealEdgeLength, Y: 0},
	})

	const epsilon = 5.0
	prev := distance(e, nodeA, nodeB)
	require.Equal(t, 2*p.IdealEdgeLength, prev)

	for i := 0; i < 400; i++ {
		e.Tick(nodes, edges)
		d := distance(e, nodeA, nodeB)
		if math.Abs(prev-p.IdealEdgeLength) > epsilon {
			assert.Less(t, d, prev, "distance must strictly decrease while far from ideal (tick %d)", i)
		}
		prev = d
	}
	assert.InDelta(t, p.IdealEdgeLength, prev, epsilon, "converged distance near ideal edge length")

	// Stable: further ticks barely move the pair.
	for i := 0; i < 10; i++ {
		e.Tick(nodes, edges)
		d := distance(e, nodeA, nodeB)
		assert.InDelta(t, prev, d, 0.01, "post-convergence drift (tick %d)", i)
		prev = d
	}
}

func TestEngine_EqualAndOppositeForces(t *testing.T) {
	e := newTestEngine(DefaultParams())
	nodes := []graph.Node{nodeA, nodeB}
	edges := []graph.Edge{{From: 0, To: 1}}
	e.ResetPositions(map[graph.Node]Vec2{
		nodeA: {X: 0, Y: 0},
		nodeB: {X: 300, Y: 0},
	})

	for i := 0; i < 50; i++ {
		e.Tick(nodes, edges)
		pa, _ := e.Position(nodeA)
		pb, _ := e.Position(nodeB)
		assert.InDelta(t, 150.0, (pa.X+pb.X)/2, 1e-9, "centroid X drifted at tick %d", i)
		assert.InDelta(t, 0.0, (pa.Y+pb.Y)/2, 1e-9, "centroid Y drifted at tick %d", i)
	}
}

func TestEngine_CoincidentNodesProduceNoNaN(t *testing.T) {
	e := newTestEngine(DefaultParams())
	nodes := []graph.Node{nodeA, nodeB}
	e.ResetPositions(map[graph.Node]Vec2{
		nodeA: {X: 7, Y: 7},
		nodeB: {X: 7, Y: 7},
	})

	for i := 0; i < 5; i++ {
		e.Tick(nodes, nil)
	}
	for _, n := range nodes {
		p, ok := e.Position(n)
		require.True(t, ok)
		assert.False(t, math.IsNaN(p.X) || math.IsNaN(p.Y), "NaN position for %v", n)
		assert.False(t, math.IsInf(p.X, 0) || math.IsInf(p.Y, 0), "infinite position for %v", n)
		// Zero delta means zero direction, so the pair does not move at all.
		assert.Equal(t, Vec2{X: 7, Y: 7}, p)
	}
}

func TestEngine_ParameterClamps(t *testing.T) {
	e := newTestEngine(DefaultParams())

	e.SetDamping(5.0)
	assert.Equal(t, 1.0, e.Params().Damping)
	e.SetDamping(-2.0)
	assert.Equal(t, 0.0, e.Params().Damping)

	e.SetFriction(-1.0)
	assert.Equal(t, 0.0, e.Params().Friction)
	e.SetFriction(3.0)
	assert.Equal(t, 1.0, e.Params().Friction)

	e.SetSpringConstant(-1.0)
	assert.Equal(t, 0.0, e.Params().SpringConstant)
	e.SetRepulsionConstant(-1.0)
	assert.Equal(t, 0.0, e.Params().RepulsionConstant)
	e.SetIdealEdgeLength(-1.0)
	assert.Equal(t, 0.0, e.Params().IdealEdgeLength)
	e.SetTimeStep(-0.5)
	assert.Equal(t, 0.0, e.Params().TimeStep)
}

func TestEngine_ConstructorClampsParams(t *testing.T) {
	e := newTestEngine(Params{
		Damping:           9.0,
		SpringConstant:    -3.0,
		RepulsionConstant: -1.0,
		IdealEdgeLength:   -180.0,
		TimeStep:          -0.3,
		Friction:          -0.4,
	})
	p := e.Params()
	assert.Equal(t, 1.0, p.Damping)
	assert.Equal(t, 0.0, p.SpringConstant)
	assert.Equal(t, 0.0, p.RepulsionConstant)
	assert.Equal(t, 0.0, p.IdealEdgeLength)
	assert.Equal(t, 0.0, p.TimeStep)
	assert.Equal(t, 0.0, p.Friction)
}

func TestEngine_LazySeedingWithinSpan(t *testing.T) {
	e := newTestEngine(DefaultParams())
	e.SetFrozen(true) // sync only: observe raw seeds

	var nodes []graph.Node
	for i := 0; i < 50; i++ {
		nodes = append(nodes, graph.TagNode(string(rune('a'+i%26))+string(rune('0'+i/26))))
	}
	e.Tick(nodes, nil)

	for _, n := range nodes {
		p, ok := e.Position(n)
		require.True(t, ok, "node %v not seeded", n)
		assert.LessOrEqual(t, math.Abs(p.X), seedSpan)
		assert.LessOrEqual(t, math.Abs(p.Y), seedSpan)
	}
}

func TestEngine_FrozenTickIsNoOp(t *testing.T) {
	e := newTestEngine(DefaultParams())
	nodes := []graph.Node{nodeA, nodeB}
	edges := []graph.Edge{{From: 0, To: 1}}
	e.ResetPositions(map[graph.Node]Vec2{
		nodeA: {X: 0, Y: 0},
		nodeB: {X: 500, Y: 0},
	})

	e.SetFrozen(true)
	e.Tick(nodes, edges)
	pa, _ := e.Position(nodeA)
	pb, _ := e.Position(nodeB)
	assert.Equal(t, Vec2{X: 0, Y: 0}, pa)
	assert.Equal(t, Vec2{X: 500, Y: 0}, pb)

	e.SetFrozen(false)
	e.Tick(nodes, edges)
	pa2, _ := e.Position(nodeA)
	assert.NotEqual(t, pa, pa2, "unfrozen tick must move a stretched pair")
}

func TestEngine_StateDiscardedWhenNodeLeavesView(t *testing.T) {
	e := newTestEngine(DefaultParams())
	e.Tick([]graph.Node{nodeA, nodeB}, nil)
	_, ok := e.Position(nodeB)
	require.True(t, ok)

	e.Tick([]graph.Node{nodeA}, nil)
	_, ok = e.Position(nodeB)
	assert.False(t, ok, "departed node kept physics state")
	_, ok = e.Position(nodeA)
	assert.True(t, ok)
}

func TestEngine_PositionPersistsAcrossTicks(t *testing.T) {
	e := newTestEngine(DefaultParams())
	nodes := []graph.Node{nodeA}

	e.Tick(nodes, nil)
	p1, _ := e.Position(nodeA)
	e.Tick(nodes, nil)
	p2, _ := e.Position(nodeA)

	// A lone node feels no force; its seeded position is stable, proving
	// the state was kept rather than reseeded.
	assert.Equal(t, p1, p2)
}

func TestEngine_DragOverridesSimulation(t *testing.T) {
	normal := newTestEngine(DefaultParams())
	held := newTestEngine(DefaultParams())

	nodes := []graph.Node{nodeA, nodeB, nodeC}
	edges := []graph.Edge{{From: 0, To: 1}}
	start := map[graph.Node]Vec2{
		nodeA: {X: 0, Y: 0},
		nodeB: {X: 360, Y: 0},
		nodeC: {X: 1000, Y: 1000},
	}
	normal.ResetPositions(start)
	held.ResetPositions(start)

	held.Drag(nodeC, Vec2{X: 1000, Y: 1000})
	normal.Tick(nodes, edges)
	held.Tick(nodes, edges)

	// The dragged node stays exactly where the pointer put it.
	pc, _ := held.Position(nodeC)
	assert.Equal(t, Vec2{X: 1000, Y: 1000}, pc)

	// Everyone else advances on the reduced time step.
	na, _ := normal.Position(nodeA)
	ha, _ := held.Position(nodeA)
	normalStep := na.Sub(Vec2{X: 0, Y: 0}).Len()
	heldStep := ha.Sub(Vec2{X: 0, Y: 0}).Len()
	assert.Greater(t, normalStep, 0.0)
	assert.Less(t, heldStep, normalStep)

	// Releasing restores normal integration, including the held node.
	held.EndDrag()
	held.Tick(nodes, edges)
	pc2, _ := held.Position(nodeC)
	assert.NotEqual(t, pc, pc2, "released node must rejoin the simulation")
}

func TestEngine_DragUnknownNodeIgnored(t *testing.T) {
	e := newTestEngine(DefaultParams())
	e.Drag(nodeA, Vec2{X: 1, Y: 2})
	_, ok := e.Position(nodeA)
	assert.False(t, ok, "drag must not create state for untracked nodes")
}

func TestEngine_ResetPositionsZeroesVelocities(t *testing.T) {
	e := newTestEngine(DefaultParams())
	nodes := []graph.Node{nodeA, nodeB}
	edges := []graph.Edge{{From: 0, To: 1}}
	e.ResetPositions(map[graph.Node]Vec2{
		nodeA: {X: 0, Y: 0},
		nodeB: {X: 500, Y: 0},
	})
	for i := 0; i < 3; i++ {
		e.Tick(nodes, edges) // build up velocity
	}

	e.ResetPositions(map[graph.Node]Vec2{nodeA: {X: 5, Y: 5}})
	e.Tick([]graph.Node{nodeA}, nil)

	p, _ := e.Position(nodeA)
	assert.Equal(t, Vec2{X: 5, Y: 5}, p, "a lone node with zeroed velocity must not move")
}

func TestEngine_SetNodePosition(t *testing.T) {
	e := newTestEngine(DefaultParams())
	e.Tick([]graph.Node{nodeA}, nil)

	e.SetNodePosition(nodeA, Vec2{X: 42, Y: -7})
	p, _ := e.Position(nodeA)
	assert.Equal(t, Vec2{X: 42, Y: -7}, p)

	// Untracked nodes are ignored.
	e.SetNodePosition(nodeB, Vec2{X: 1, Y: 1})
	_, ok := e.Position(nodeB)
	assert.False(t, ok)
}

func TestEngine_RepulsionSpreadsUnlinkedNodes(t *testing.T) {
	e := newTestEngine(DefaultParams())
	nodes := []graph.Node{nodeA, nodeB}
	e.ResetPositions(map[graph.Node]Vec2{
		nodeA: {X: 0, Y: 0},
		nodeB: {X: 10, Y: 0},
	})

	before := distance(e, nodeA, nodeB)
	for i := 0; i < 10; i++ {
		e.Tick(nodes, nil)
	}
	assert.Greater(t, distance(e, nodeA, nodeB), before, "unlinked nodes must repel")
}
