package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionViolation  Action = "violation"
	ActionDisqualify Action = "disqualify"
	ActionPing       Action = "ping"
)

// Request is any client message. Fields unused by an action are ignored.
type Request struct {
	Action        Action `json:"action"`
	ViolationType string `json:"violation_type,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventRecorded     Event = "recorded"
	EventDisqualified Event = "disqualified"
	EventError        Event = "error"
	EventPong         Event = "pong"
)

// Response wraps every server message.
type Response struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}
