// Package api defines the wire types shared by the WebSocket gateway, the
// CLI JSON output and the agent surface.
package api

// Server → client message types.
const (
	TypeState    = "state"
	TypeProgress = "progress"
	TypeGraph    = "graph"
	TypeFrame    = "frame"
	TypeError    = "error"
)

// Client → server command names.
const (
	CmdScan   = "scan"
	CmdCancel = "cancel"
	CmdView   = "view"
	CmdDrag   = "drag"
	CmdParam  = "param"
	CmdReset  = "reset"
)

// View names accepted by the view command.
const (
	ViewReference = "reference"
	ViewTag       = "tag"
)

// Param names accepted by the param command. Frozen treats any non-zero
// value as true.
const (
	ParamDamping         = "damping"
	ParamSpringConstant  = "spring_constant"
	ParamRepulsion       = "repulsion_constant"
	ParamIdealEdgeLength = "ideal_edge_length"
	ParamTimeStep        = "time_step"
	ParamFriction        = "friction"
	ParamFrozen          = "frozen"
)

// ServerMessage is the envelope for every server → client message. Exactly
// one payload field matching Type is populated.
type ServerMessage struct {
	Type     string       `json:"type"`
	State    *StateDTO    `json:"state,omitempty"`
	Progress *ProgressDTO `json:"progress,omitempty"`
	Graph    *GraphDTO    `json:"graph,omitempty"`
	Frame    *FrameDTO    `json:"frame,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// StateDTO reports the session lifecycle state.
type StateDTO struct {
	State string `json:"state"` // idle | scanning | ready
	Root  string `json:"root"`
	Err   string `json:"err,omitempty"`
}

// ProgressDTO mirrors one scan progress event.
type ProgressDTO struct {
	Fraction float64 `json:"fraction"`
	Message  string  `json:"message"`
}

// NodeDTO is one node of the active view. ID is the node's arena index and
// is only meaningful within the graph generation that carried it.
type NodeDTO struct {
	ID     int    `json:"id"`
	Kind   string `json:"kind"` // file | tag
	Name   string `json:"name"`
	Degree int    `json:"degree"`
}

// EdgeDTO is one directed edge between arena indices.
type EdgeDTO struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// GraphDTO is the full structure of the active view. Gen increments every
// time the structure changes; frames carry the generation they were laid
// out for.
type GraphDTO struct {
	Gen   uint64    `json:"gen"`
	View  string    `json:"view"`
	Nodes []NodeDTO `json:"nodes"`
	Edges []EdgeDTO `json:"edges"`
}

// PositionDTO is one node position in layout space.
type PositionDTO struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// FrameDTO is one layout tick of the active view.
type FrameDTO struct {
	Gen       uint64        `json:"gen"`
	Positions []PositionDTO `json:"positions"`
}

// Command is the envelope for client → server commands. Fields beyond Cmd
// are read per command: Dir by scan; View, Filter and ShowImages by view;
// ID, X, Y and Done by drag; Name and Value by param.
type Command struct {
	Cmd        string  `json:"cmd"`
	Dir        string  `json:"dir,omitempty"`
	View       string  `json:"view,omitempty"`
	Filter     string  `json:"filter,omitempty"`
	ShowImages *bool   `json:"showImages,omitempty"`
	ID         int     `json:"id,omitempty"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Done       bool    `json:"done,omitempty"`
	Name       string  `json:"name,omitempty"`
	Value      float64 `json:"value,omitempty"`
}
