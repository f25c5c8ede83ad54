package fastview

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

// ErrSockCongestion is returned when a write waits too long for the socket.
var ErrSockCongestion = errors.New("socket write congested")

const (
	writeTimeout     = time.Second
	closeGracePeriod = 500 * time.Millisecond
)

// guardedConn is a websocket whose writers are serialized. Gorilla connections permit one
// concurrent writer and one concurrent reader; the client has a single reader, so only
// writes are guarded.
type guardedConn struct {
	*websocket.Conn
	writing chan struct{}
}

func guard(ws *websocket.Conn) *guardedConn {
	return &guardedConn{
		Conn:    ws,
		writing: make(chan struct{}, 1),
	}
}

// Write runs fn with exclusive write access. A cancelled ctx skips the write.
func (gc *guardedConn) Write(ctx context.Context, fn func(*websocket.Conn) error) error {
	timeout := time.NewTimer(writeTimeout)
	defer timeout.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-timeout.C:
		return ErrSockCongestion
	case gc.writing <- struct{}{}:
	}
	defer func() { <-gc.writing }()
	return fn(gc.Conn)
}

// Close says goodbye to the peer and closes the connection, which fails a blocked reader.
// The write slot is never released, so no write can follow.
func (gc *guardedConn) Close() {
	gc.writing <- struct{}{}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = gc.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
	time.Sleep(closeGracePeriod)
	_ = gc.Conn.Close()
}
