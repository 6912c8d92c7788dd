package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/GriffinCanCode/turbosocket/internal/pipeline"
)

// Envelope is the JSON frame sent to WebSocket clients for every reply
type Envelope struct {
	ID      string `json:"id"`
	Payload string `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WebSocket adapts a gorilla WebSocket connection to pipeline.Transport.
// Every inbound text or binary message is one command.
type WebSocket struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
}

// NewWebSocket wraps conn. Messages larger than DefaultMaxLineBytes end
// the connection.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	conn.SetReadLimit(DefaultMaxLineBytes)
	return &WebSocket{conn: conn, writeTimeout: DefaultWriteTimeout}
}

// ReadOne returns the next message. Cancelling ctx interrupts a blocked read.
//
// gorilla read errors are permanent, so any failure other than cancellation
// is reported as io.EOF.
func (w *WebSocket) ReadOne(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = w.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	_, data, err := w.conn.ReadMessage()
	if err == nil {
		return data, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil, io.EOF
	}
	return nil, fmt.Errorf("%w: %v", io.EOF, err)
}

// WriteOne sends the reply as a JSON envelope
func (w *WebSocket) WriteOne(_ context.Context, reply pipeline.Reply) error {
	env := Envelope{ID: reply.ID.String(), Payload: string(reply.Payload)}
	if reply.Err != nil {
		env.Payload = ""
		env.Error = reply.Err.Error()
	}
	data, err := sonic.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if err := w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and closes the connection
func (w *WebSocket) Close() error {
	w.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server closing")
	// best effort; the peer may already be gone
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	w.writeMu.Unlock()

	return w.conn.Close()
}
