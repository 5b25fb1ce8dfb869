package layout

import (
	"math"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Harshit-Dhanwalkar/NexusView/internal/graph"
)

const (
	// distanceFloor keeps direction vectors finite when nodes coincide.
	distanceFloor = 0.1
	// repulsionFloor bounds the inverse-square denominator.
	repulsionFloor = 10.0
	// seedSpan is the half-width of the random seeding square.
	seedSpan = 100.0
	// dragTimeScale slows the whole simulation while a node is dragged,
	// so the rest of the graph does not jitter under the pointer.
	dragTimeScale = 0.4
)

// Engine advances a force-directed layout over whatever node set and edge
// list it is handed each tick: spring attraction along edges, inverse-square
// repulsion between all pairs, damped integration. It exclusively owns
// per-node position and velocity; state exists only for nodes present in
// the last Tick's node set and is seeded lazily at a random position when a
// node first appears.
//
// The engine is not safe for concurrent use — callers serialize Tick against
// the mutators, the way a render loop naturally does.
type Engine struct {
	params     Params
	positions  map[graph.Node]Vec2
	velocities map[graph.Node]Vec2
	dragged    map[graph.Node]struct{}
	rng        *rand.Rand
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRand fixes the seeding source, for deterministic tests.
func WithRand(r *rand.Rand) EngineOption {
	return func(e *Engine) { e.rng = r }
}

// NewEngine creates an engine with the given parameters, clamped into range.
func NewEngine(p Params, opts ...EngineOption) *Engine {
	e := &Engine{
		params:     p.clamped(),
		positions:  make(map[graph.Node]Vec2),
		velocities: make(map[graph.Node]Vec2),
		dragged:    make(map[graph.Node]struct{}),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tick advances the simulation one step for the given node set and edges.
// Edges index into nodes. Nodes absent from the set lose their physics
// state; new nodes are seeded randomly. A frozen engine still syncs state —
// the renderer needs positions — but skips forces and integration.
func (e *Engine) Tick(nodes []graph.Node, edges []graph.Edge) {
	e.sync(nodes)
	if e.params.Frozen {
		return
	}

	spring := make(map[graph.Node]Vec2, len(nodes))
	repulsion := make(map[graph.Node]Vec2, len(nodes))

	// The two force categories have no data dependency: both read
	// positions, each writes its own accumulator. Integration below is the
	// only writer of shared state.
	var g errgroup.Group
	g.Go(func() error {
		e.springForces(nodes, edges, spring)
		return nil
	})
	g.Go(func() error {
		e.repulsionForces(nodes, repulsion)
		return nil
	})
	_ = g.Wait()

	dt := e.params.TimeStep
	if len(e.dragged) > 0 {
		dt *= dragTimeScale
	}
	for _, n := range nodes {
		if _, held := e.dragged[n]; held {
			continue
		}
		force := spring[n].Add(repulsion[n])
		vel := e.velocities[n].Add(force.Scale(dt))
		vel = vel.Scale(e.params.Damping)
		vel = vel.Scale(1.0 - e.params.Friction)
		e.velocities[n] = vel
		e.positions[n] = e.positions[n].Add(vel.Scale(dt))
	}
}

// springForces applies Hooke's law once per edge: force along the edge
// direction, proportional to the distance's excess over the ideal length,
// added to the source and subtracted from the target.
func (e *Engine) springForces(nodes []graph.Node, edges []graph.Edge, out map[graph.Node]Vec2) {
	for _, edge := range edges {
		if edge.From < 0 || edge.From >= len(nodes) || edge.To < 0 || edge.To >= len(nodes) {
			continue
		}
		from, to := nodes[edge.From], nodes[edge.To]
		p1, ok1 := e.positions[from]
		p2, ok2 := e.positions[to]
		if !ok1 || !ok2 {
			continue
		}
		delta := p2.Sub(p1)
		distance := math.Max(delta.Len(), distanceFloor)
		displacement := distance - e.params.IdealEdgeLength
		force := delta.Scale(e.params.SpringConstant * displacement / distance)
		out[from] = out[from].Add(force)
		out[to] = out[to].Sub(force)
	}
}

// repulsionForces applies an inverse-square push once per unordered pair.
// The squared distance is floored before use as a denominator, and the
// direction denominator is floored separately, so coincident nodes produce
// a zero force rather than NaN.
func (e *Engine) repulsionForces(nodes []graph.Node, out map[graph.Node]Vec2) {
	for i := 0; i < len(nodes); i++ {
		p1, ok1 := e.positions[nodes[i]]
		if !ok1 {
			continue
		}
		for j := i + 1; j < len(nodes); j++ {
			p2, ok2 := e.positions[nodes[j]]
			if !ok2 {
				continue
			}
			delta := p2.Sub(p1)
			distance := math.Max(delta.Len(), distanceFloor)
			magnitude := e.params.RepulsionConstant / math.Max(delta.LenSq(), repulsionFloor)
			force := delta.Scale(magnitude / distance)
			out[nodes[i]] = out[nodes[i]].Sub(force)
			out[nodes[j]] = out[nodes[j]].Add(force)
		}
	}
}

// sync reconciles physics state with the active node set: new nodes are
// seeded at a random position in the seeding square with zero velocity,
// departed nodes are discarded.
func (e *Engine) sync(nodes []graph.Node) {
	keep := make(map[graph.Node]struct{}, len(nodes))
	for _, n := range nodes {
		keep[n] = struct{}{}
		if _, ok := e.positions[n]; !ok {
			e.positions[n] = Vec2{X: e.seedCoord(), Y: e.seedCoord()}
			e.velocities[n] = Vec2{}
		}
	}
	for n := range e.positions {
		if _, ok := keep[n]; !ok {
			delete(e.positions, n)
			delete(e.velocities, n)
			delete(e.dragged, n)
		}
	}
}

func (e *Engine) seedCoord() float64 {
	return e.rng.Float64()*2.0*seedSpan - seedSpan
}

// Position returns the node's current position, if tracked.
func (e *Engine) Position(n graph.Node) (Vec2, bool) {
	p, ok := e.positions[n]
	return p, ok
}

// Positions returns a copy of all tracked positions.
func (e *Engine) Positions() map[graph.Node]Vec2 {
	out := make(map[graph.Node]Vec2, len(e.positions))
	for n, p := range e.positions {
		out[n] = p
	}
	return out
}

// Drag overrides the simulation for one node: its position is set directly
// and its velocity zeroed, and while any drag is active the whole engine
// runs on the reduced time step. Unknown nodes are ignored.
func (e *Engine) Drag(n graph.Node, pos Vec2) {
	if _, ok := e.positions[n]; !ok {
		return
	}
	e.positions[n] = pos
	e.velocities[n] = Vec2{}
	e.dragged[n] = struct{}{}
}

// EndDrag releases every held node, restoring the normal time step.
func (e *Engine) EndDrag() {
	for n := range e.dragged {
		delete(e.dragged, n)
	}
}

// SetNodePosition moves a tracked node and zeroes its velocity, without
// marking it dragged.
func (e *Engine) SetNodePosition(n graph.Node, pos Vec2) {
	if _, ok := e.positions[n]; !ok {
		return
	}
	e.positions[n] = pos
	e.velocities[n] = Vec2{}
}

// ResetPositions replaces all positions with the supplied snapshot and
// re-zeros all velocities. An empty snapshot clears the engine; every node
// then reseeds randomly on the next tick.
func (e *Engine) ResetPositions(initial map[graph.Node]Vec2) {
	e.positions = make(map[graph.Node]Vec2, len(initial))
	e.velocities = make(map[graph.Node]Vec2, len(initial))
	e.dragged = make(map[graph.Node]struct{})
	for n, p := range initial {
		e.positions[n] = p
		e.velocities[n] = Vec2{}
	}
}

// Params returns the current parameter values.
func (e *Engine) Params() Params {
	return e.params
}

func (e *Engine) SetDamping(v float64) {
	e.params.Damping = clamp01(v)
}

func (e *Engine) SetSpringConstant(v float64) {
	e.params.SpringConstant = clampMin0(v)
}

func (e *Engine) SetRepulsionConstant(v float64) {
	e.params.RepulsionConstant = clampMin0(v)
}

func (e *Engine) SetIdealEdgeLength(v float64) {
	e.params.IdealEdgeLength = clampMin0(v)
}

func (e *Engine) SetTimeStep(v float64) {
	e.params.TimeStep = clampMin0(v)
}

func (e *Engine) SetFriction(v float64) {
	e.params.Friction = clamp01(v)
}

func (e *Engine) SetFrozen(frozen bool) {
	e.params.Frozen = frozen
}
