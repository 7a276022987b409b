// Package gateway fans board events out to connected collaborators. Events
// published by the CRUD service land on a redis channel; every websocket
// session joined to the event's board room receives a copy.
package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const writeTimeout = 10 * time.Second

// Authenticator validates the credentials presented during the handshake.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

type roomFrame struct {
	Type    string `json:"type"`
	BoardID string `json:"boardId"`
}

type session struct {
	conn    *websocket.Conn
	userID  string
	writeMu sync.Mutex
}

func (s *session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks which sessions are joined to which board rooms.
type Hub struct {
	logger *log.Logger

	mu    sync.Mutex
	rooms map[string]map[*session]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Hub{logger: logger, rooms: make(map[string]map[*session]struct{})}
}

func (h *Hub) join(boardID string, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[boardID]
	if !ok {
		room = make(map[*session]struct{})
		h.rooms[boardID] = room
	}
	room[s] = struct{}{}
}

func (h *Hub) leave(boardID string, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[boardID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, boardID)
		}
	}
}

func (h *Hub) drop(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for boardID, room := range h.rooms {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, boardID)
		}
	}
}

// RoomSize reports how many sessions are joined to a board room.
func (h *Hub) RoomSize(boardID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[boardID])
}

// Broadcast delivers a raw event payload to every session in the board's
// room. Sessions whose write fails are dropped; their read loop will notice
// the closed connection and clean up.
func (h *Hub) Broadcast(boardID string, payload []byte) int {
	h.mu.Lock()
	sessions := make([]*session, 0, len(h.rooms[boardID]))
	for s := range h.rooms[boardID] {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	delivered := 0
	for _, s := range sessions {
		if err := s.write(payload); err != nil {
			h.logger.Warnf("dropping session of %s: %v", s.userID, err)
			s.conn.Close()
			h.drop(s)
			continue
		}
		delivered++
	}
	return delivered
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  8 * 1024,
	WriteBufferSize: 8 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Register wires the websocket and health endpoints onto e.
func Register(e *echo.Echo, hub *Hub, auth Authenticator, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/ws", handleWS(hub, auth, logger))
}

func handleWS(hub *Hub, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			if token := c.QueryParam("token"); token != "" {
				authHeader = "Bearer " + token
			}
		}
		userID, err := auth.UserIDFromAuthHeader(authHeader)
		if err != nil {
			return c.NoContent(http.StatusUnauthorized)
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return nil
		}
		s := &session{conn: conn, userID: userID}
		defer func() {
			hub.drop(s)
			conn.Close()
		}()

		logger.Debugf("session opened for %s", userID)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				logger.Debugf("session of %s closed: %v", userID, err)
				return nil
			}
			var frame roomFrame
			if err := sonic.Unmarshal(data, &frame); err != nil {
				logger.Warnf("bad frame from %s: %v", userID, err)
				continue
			}
			switch frame.Type {
			case "join":
				if frame.BoardID != "" {
					hub.join(frame.BoardID, s)
				}
			case "leave":
				if frame.BoardID != "" {
					hub.leave(frame.BoardID, s)
				}
			default:
				logger.Debugf("ignoring frame type %q from %s", frame.Type, userID)
			}
		}
	}
}
