// Package gateway serves the vault graph over a WebSocket endpoint: it owns
// the layout engine, rebuilds the active view every frame and streams state,
// progress, graph structure and layout frames to connected clients.
package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Harshit-Dhanwalkar/NexusView/api"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/graph"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/layout"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/session"
)

const defaultInterval = 33 * time.Millisecond

// Hub drives the frame loop and fans messages out to clients. The engine and
// the active-view selection live behind one mutex: command handlers mutate,
// the loop reads.
type Hub struct {
	logger   *zap.Logger
	sess     *session.Session
	interval time.Duration

	mu         sync.Mutex
	engine     *layout.Engine
	view       *graph.View
	viewName   string
	tagOpts    graph.TagOptions
	gen        uint64
	lastFP     uint64
	forceGraph bool
	lastGraph  *api.GraphDTO
	lastState  api.StateDTO
	clients    map[*client]struct{}
}

// HubOption configures NewHub.
type HubOption func(*Hub)

// WithInterval sets the frame interval.
func WithInterval(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.interval = d
		}
	}
}

// WithParams sets the initial physics parameters.
func WithParams(p layout.Params) HubOption {
	return func(h *Hub) { h.engine = layout.NewEngine(p) }
}

// NewHub builds a hub over a session. A nil logger is replaced with a no-op
// logger.
func NewHub(sess *session.Session, logger *zap.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		logger:     logger,
		sess:       sess,
		interval:   defaultInterval,
		engine:     layout.NewEngine(layout.DefaultParams()),
		viewName:   api.ViewReference,
		tagOpts:    graph.DefaultTagOptions(),
		forceGraph: true,
		clients:    make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handler returns the HTTP handler exposing the /ws endpoint.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	return mux
}

// Run drives the frame loop until ctx is cancelled, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.step()
		}
	}
}

// step is one frame: drain progress, detect state changes, rebuild the
// active view, tick the engine, broadcast.
func (h *Hub) step() {
	if p, ok := h.sess.Poll(); ok {
		h.broadcast(api.ServerMessage{
			Type:     api.TypeProgress,
			Progress: &api.ProgressDTO{Fraction: p.Fraction, Message: p.Message},
		})
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if state := h.stateDTO(); state != h.lastState {
		h.lastState = state
		h.broadcastLocked(api.ServerMessage{Type: api.TypeState, State: &state})
	}

	v := h.buildViewLocked()
	h.view = v

	if fp := v.Fingerprint(); fp != h.lastFP || h.forceGraph {
		h.lastFP = fp
		h.forceGraph = false
		h.gen++
		h.lastGraph = graphDTO(h.gen, h.viewName, v)
		h.broadcastLocked(api.ServerMessage{Type: api.TypeGraph, Graph: h.lastGraph})
	}

	h.engine.Tick(v.Nodes, v.Edges)
	h.broadcastLocked(api.ServerMessage{Type: api.TypeFrame, Frame: h.frameLocked()})
}

func (h *Hub) buildViewLocked() *graph.View {
	facts := h.sess.Snapshot()
	if h.viewName == api.ViewTag {
		return graph.BuildTag(facts, h.tagOpts)
	}
	return graph.BuildReference(facts)
}

func (h *Hub) stateDTO() api.StateDTO {
	dto := api.StateDTO{
		State: h.sess.State().String(),
		Root:  h.sess.Root(),
	}
	if err := h.sess.Err(); err != nil {
		dto.Err = err.Error()
	}
	return dto
}

func (h *Hub) frameLocked() *api.FrameDTO {
	frame := &api.FrameDTO{
		Gen:       h.gen,
		Positions: make([]api.PositionDTO, 0, h.view.Len()),
	}
	for i, n := range h.view.Nodes {
		pos, ok := h.engine.Position(n)
		if !ok {
			continue
		}
		frame.Positions = append(frame.Positions, api.PositionDTO{ID: i, X: pos.X, Y: pos.Y})
	}
	return frame
}

func graphDTO(gen uint64, name string, v *graph.View) *api.GraphDTO {
	dto := &api.GraphDTO{
		Gen:   gen,
		View:  name,
		Nodes: make([]api.NodeDTO, v.Len()),
		Edges: make([]api.EdgeDTO, len(v.Edges)),
	}
	for i, n := range v.Nodes {
		dto.Nodes[i] = api.NodeDTO{ID: i, Kind: n.Kind.String(), Name: n.Name, Degree: v.Degree(n)}
	}
	for i, e := range v.Edges {
		dto.Edges[i] = api.EdgeDTO{From: e.From, To: e.To}
	}
	return dto
}

// handleCommand runs one client command. Errors go back to that client only.
func (h *Hub) handleCommand(c *client, cmd api.Command) {
	switch cmd.Cmd {
	case api.CmdScan:
		if err := h.sess.Start(cmd.Dir); err != nil {
			h.pushError(c, err.Error())
		}

	case api.CmdCancel:
		h.sess.Cancel()

	case api.CmdView:
		switch cmd.View {
		case api.ViewReference, api.ViewTag:
		default:
			h.pushError(c, "unknown view: "+cmd.View)
			return
		}
		h.mu.Lock()
		h.viewName = cmd.View
		opts := graph.DefaultTagOptions()
		opts.Filter = cmd.Filter
		if cmd.ShowImages != nil {
			opts.ShowImages = *cmd.ShowImages
		}
		h.tagOpts = opts
		h.forceGraph = true
		h.mu.Unlock()

	case api.CmdDrag:
		h.mu.Lock()
		if cmd.Done {
			h.engine.EndDrag()
		} else if h.view != nil && cmd.ID >= 0 && cmd.ID < h.view.Len() {
			h.engine.Drag(h.view.NodeAt(cmd.ID), layout.Vec2{X: cmd.X, Y: cmd.Y})
		}
		h.mu.Unlock()

	case api.CmdParam:
		h.applyParam(c, cmd.Name, cmd.Value)

	case api.CmdReset:
		h.mu.Lock()
		h.engine.ResetPositions(map[graph.Node]layout.Vec2{})
		h.mu.Unlock()

	default:
		h.pushError(c, "unknown command: "+cmd.Cmd)
	}
}

func (h *Hub) applyParam(c *client, name string, value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch name {
	case api.ParamDamping:
		h.engine.SetDamping(value)
	case api.ParamSpringConstant:
		h.engine.SetSpringConstant(value)
	case api.ParamRepulsion:
		h.engine.SetRepulsionConstant(value)
	case api.ParamIdealEdgeLength:
		h.engine.SetIdealEdgeLength(value)
	case api.ParamTimeStep:
		h.engine.SetTimeStep(value)
	case api.ParamFriction:
		h.engine.SetFriction(value)
	case api.ParamFrozen:
		h.engine.SetFrozen(value != 0)
	default:
		h.pushLocked(c, api.ServerMessage{Type: api.TypeError, Error: "unknown param: " + name})
	}
}

// Params returns the engine's current parameters.
func (h *Hub) Params() layout.Params {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine.Params()
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	state := h.stateDTO()
	h.pushLocked(c, api.ServerMessage{Type: api.TypeState, State: &state})
	if h.lastGraph != nil {
		h.pushLocked(c, api.ServerMessage{Type: api.TypeGraph, Graph: h.lastGraph})
	}
	h.logger.Info("Client connected", zap.Int("clients", len(h.clients)))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.logger.Info("Client disconnected", zap.Int("clients", len(h.clients)))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(msg api.ServerMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(msg)
}

func (h *Hub) broadcastLocked(msg api.ServerMessage) {
	for c := range h.clients {
		h.pushLocked(c, msg)
	}
}

func (h *Hub) pushError(c *client, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pushLocked(c, api.ServerMessage{Type: api.TypeError, Error: text})
}

// pushLocked queues a message without blocking; when the client's queue is
// full the oldest message is dropped, since a fresher frame supersedes it.
// Clients already unregistered have a closed send channel and are skipped.
func (h *Hub) pushLocked(c *client, msg api.ServerMessage) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- msg:
	default:
	}
}
