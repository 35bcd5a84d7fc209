package livesync

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

const closeWriteWait = 5 * time.Second

// Conn is the duplex channel the synchronizer speaks over. Production conns
// wrap gorilla websockets; tests substitute in-memory fakes.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() ([]byte, error)
	// CloseNormal performs an orderly shutdown with the normal-closure code,
	// telling the peer this is a deliberate leave.
	CloseNormal() error
	Close() error
}

// Dialer opens a Conn to the relay. DialWebsocket is the production dialer.
type Dialer func(ctx context.Context, url string) (Conn, error)

func DialWebsocket(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: c}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) WriteJSON(v any) error {
	return w.conn.WriteJSON(v)
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := w.conn.ReadMessage()
	return data, err
}

func (w *wsConn) CloseNormal() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "leaving")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
	return w.conn.Close()
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// isExpectedClose reports whether a read error is the peer ending the session
// on purpose, which must not trigger reconnection.
func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
