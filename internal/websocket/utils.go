package websocket

import (
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// A student may sit idle on one question for a long time; the exam
	// client pings well within this.
	readWait       = 5 * time.Minute
	maxMessageSize = 4 << 10
)

// Prepare applies the read limit and keeps the read deadline moving on
// protocol-level pongs.
func Prepare(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})
}

// ReadRequest waits for the next client message and normalizes its
// action and violation type.
func ReadRequest(conn *websocket.Conn) (Request, error) {
	var req Request
	conn.SetReadDeadline(time.Now().Add(readWait))
	if err := conn.ReadJSON(&req); err != nil {
		return Request{}, err
	}
	req.Action = Action(strings.ToLower(strings.TrimSpace(string(req.Action))))
	req.ViolationType = strings.ToLower(strings.TrimSpace(req.ViolationType))
	req.Reason = strings.TrimSpace(req.Reason)
	return req, nil
}

// WriteEvent sends one server event.
func WriteEvent(conn *websocket.Conn, event Event, data any) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(Response{Event: event, Data: data})
}

// WriteError sends an error event carrying the API error code.
func WriteError(conn *websocket.Conn, code, msg string) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ErrorResponse{Event: EventError, Code: code, Error: msg})
}

// Close sends a close frame with the given reason before the connection
// is torn down.
func Close(conn *websocket.Conn, code int, reason string) error {
	msg := websocket.FormatCloseMessage(code, reason)
	return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
