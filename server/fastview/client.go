package fastview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	pubPeriod  = 100 * time.Millisecond
	pingPeriod = 200 * time.Millisecond
	// A peer missing four consecutive pongs is considered gone.
	pongTimeout = 4 * pingPeriod
)

var upgrader = websocket.Upgrader{}

// Client publishes updates unidirectionally to a web client via websocket.
// Client messages are read only to service control frames (pongs, close).
type Client[T any] struct {
	updates <-chan T
	conn    *guardedConn
	ctx     context.Context
}

// NewClient upgrades the request to a websocket and returns a publisher of the passed updates.
// Items in the updates chan should be idempotent: when several arrive within the publication
// period only the latest is sent, so it alone must specify the new client state.
func NewClient[T any](
	updates <-chan T,
	w http.ResponseWriter,
	r *http.Request,
) (*Client[T], error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied to the client
		return nil, fmt.Errorf("upgrade: %w", err)
	}

	return &Client[T]{
		updates: updates,
		conn:    guard(ws),
		ctx:     r.Context(),
	}, nil
}

// Sync publishes incoming updates to the client until the client disconnects, the updates
// chan is closed, or the request context is cancelled, then closes the websocket.
// A normal disconnect returns nil.
func (cli *Client[T]) Sync() error {
	// Any routine exiting, with or without error, tears down the others.
	ctx, cancel := context.WithCancel(cli.ctx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(ctx)
	run := func(fn func(context.Context) error) {
		group.Go(func() error {
			defer cancel()
			if err := fn(groupCtx); err != nil && groupCtx.Err() == nil {
				return err
			}
			return nil
		})
	}

	run(cli.drain)
	run(cli.heartbeat)
	run(cli.publish)
	// Closing the socket unblocks the reader.
	group.Go(func() error {
		<-groupCtx.Done()
		cli.conn.Close()
		return nil
	})

	return group.Wait()
}

var ErrPongDeadlineExceeded = errors.New("client disconnect, pong deadline exceeded")

// heartbeat pings the client and fails once pongs stop arriving. Pongs are delivered by the
// reader, so drain must be running.
func (cli *Client[T]) heartbeat(ctx context.Context) error {
	pongs := make(chan struct{}, 1)
	cli.conn.SetPongHandler(func(string) error {
		select {
		case pongs <- struct{}{}:
		default:
		}
		return nil
	})

	ticks := channerics.NewTicker(ctx.Done(), pingPeriod)
	deadline := time.Now().Add(pongTimeout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pongs:
			deadline = time.Now().Add(pongTimeout)
		case <-ticks:
			if time.Now().After(deadline) {
				return ErrPongDeadlineExceeded
			}
			err := cli.conn.Write(ctx, func(ws *websocket.Conn) error {
				return ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			})
			if isError(err) {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

// drain reads and discards client messages, which services control frames. Read errors
// are permanent, so any error ends the client.
func (cli *Client[T]) drain(ctx context.Context) error {
	for {
		_, _, err := cli.conn.ReadMessage()
		switch {
		case ctx.Err() != nil, isClosure(err):
			return nil
		case err != nil:
			return err
		}
	}
}

// publish sends the latest pending update once per publication period. Updates arriving in
// between overwrite the pending one, and a pending update is always eventually sent.
func (cli *Client[T]) publish(ctx context.Context) error {
	ticker := channerics.NewTicker(ctx.Done(), pubPeriod)
	var pending *T
	updates := cli.updates

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				// Graceful input channel closure: flush on the next tick, then exit.
				updates = nil
				if pending == nil {
					return nil
				}
				break
			}
			pending = &update
		case <-ticker:
			if pending == nil {
				break
			}
			if err := cli.write(ctx, *pending); err != nil {
				return err
			}
			pending = nil
			if updates == nil {
				return nil
			}
		}
	}
}

func (cli *Client[T]) write(ctx context.Context, update T) error {
	err := cli.conn.Write(ctx, func(ws *websocket.Conn) error {
		if err := ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return err
		}
		return ws.WriteJSON(update)
	})
	if isError(err) {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// isError reports errors which should end the client: congestion, or an abnormal closure.
func isError(err error) bool {
	if errors.Is(err, ErrSockCongestion) {
		return true
	}
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}
