// Package channel maintains the realtime connection that carries board events
// between collaborators. A single websocket connection serves the whole
// session; clients join and leave per-board rooms over it.
package channel

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"boardsync/domain"
)

const writeTimeout = 10 * time.Second

// Handler receives a single decoded board event.
type Handler func(ev domain.Event)

type roomFrame struct {
	Type    string `json:"type"`
	BoardID string `json:"boardId"`
}

// Client is a realtime channel client. All methods are safe for concurrent
// use. Event handlers run on the read loop goroutine, one event at a time,
// so handlers observe events in delivery order.
type Client struct {
	url    string
	token  string
	logger *log.Logger
	dialer *websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	rooms   map[string]struct{}
	closed  bool
	readErr chan struct{}

	handlerMu sync.RWMutex
	handlers  map[string][]Handler

	onConnect    func()
	onDisconnect func(err error)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger overrides the default logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithDialer overrides the websocket dialer, mostly for tests.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// OnConnect registers a callback invoked after the connection is established
// and tracked rooms have been rejoined.
func OnConnect(fn func()) Option {
	return func(c *Client) { c.onConnect = fn }
}

// OnDisconnect registers a callback invoked when the connection drops for
// any reason other than an explicit Close.
func OnDisconnect(fn func(err error)) Option {
	return func(c *Client) { c.onDisconnect = fn }
}

// New creates a client for the given websocket URL. The token is presented
// as a bearer credential during the handshake.
func New(url, token string, opts ...Option) *Client {
	c := &Client{
		url:      url,
		token:    token,
		logger:   log.StandardLogger(),
		dialer:   websocket.DefaultDialer,
		rooms:    make(map[string]struct{}),
		handlers: make(map[string][]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the server and starts the read loop. Rooms joined on a
// previous connection are rejoined, so a reconnect restores the session's
// subscriptions without caller involvement.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("channel: client is closed")
	}
	if c.conn != nil {
		return nil
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return &domain.AuthorizationError{Msg: "realtime handshake rejected"}
		}
		return &domain.NetworkError{Err: err}
	}
	c.conn = conn
	c.readErr = make(chan struct{})

	for boardID := range c.rooms {
		if err := c.writeFrame(conn, roomFrame{Type: "join", BoardID: boardID}); err != nil {
			conn.Close()
			c.conn = nil
			return &domain.NetworkError{Err: err}
		}
	}

	go c.readLoop(conn, c.readErr)

	if c.onConnect != nil {
		go c.onConnect()
	}
	return nil
}

// JoinRoom subscribes the session to a board's events. The room is tracked
// so that a reconnect re-subscribes automatically. Joining while offline is
// not an error; the join frame is sent on the next Connect.
func (c *Client) JoinRoom(boardID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[boardID] = struct{}{}
	if c.conn == nil {
		return nil
	}
	if err := c.writeFrame(c.conn, roomFrame{Type: "join", BoardID: boardID}); err != nil {
		return &domain.NetworkError{Err: err}
	}
	return nil
}

// LeaveRoom unsubscribes from a board's events.
func (c *Client) LeaveRoom(boardID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, boardID)
	if c.conn == nil {
		return nil
	}
	if err := c.writeFrame(c.conn, roomFrame{Type: "leave", BoardID: boardID}); err != nil {
		return &domain.NetworkError{Err: err}
	}
	return nil
}

// On registers a handler for the named event. Multiple handlers per event
// are allowed and run in registration order.
func (c *Client) On(event string, h Handler) {
	c.handlerMu.Lock()
	c.handlers[event] = append(c.handlers[event], h)
	c.handlerMu.Unlock()
}

// Off removes all handlers for the named event.
func (c *Client) Off(event string) {
	c.handlerMu.Lock()
	delete(c.handlers, event)
	c.handlerMu.Unlock()
}

// Close leaves all joined rooms, then tears down the connection. The client
// cannot be reused afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	readErr := c.readErr
	if conn != nil {
		// Leave rooms before disconnecting so the server releases the
		// session's subscriptions instead of waiting for a timeout.
		for boardID := range c.rooms {
			_ = c.writeFrame(conn, roomFrame{Type: "leave", BoardID: boardID})
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
	}
	c.mu.Unlock()

	if conn != nil {
		err := conn.Close()
		if readErr != nil {
			<-readErr
		}
		return err
	}
	return nil
}

func (c *Client) writeFrame(conn *websocket.Conn, frame roomFrame) error {
	data, err := sonic.Marshal(frame)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			explicit := c.closed || c.conn != conn
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			if !explicit {
				c.logger.Warnf("realtime connection lost: %v", err)
				if c.onDisconnect != nil {
					c.onDisconnect(err)
				}
			}
			return
		}

		var ev domain.Event
		if err := sonic.Unmarshal(data, &ev); err != nil {
			c.logger.Errorf("unable to parse realtime event: %v", err)
			continue
		}
		if ev.Name == "" {
			continue
		}
		c.dispatch(ev)
	}
}

func (c *Client) dispatch(ev domain.Event) {
	c.handlerMu.RLock()
	handlers := c.handlers[ev.Name]
	c.handlerMu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}
