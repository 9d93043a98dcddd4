package monitor

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	clientBuffer = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
)

// wsClient is one websocket observer. Messages that do not fit in its
// buffer are dropped.
type wsClient struct {
	id     int64
	conn   *websocket.Conn
	server *Server
	sendCh chan Message
	done   chan struct{}
	once   sync.Once
}

func (c *wsClient) send(msg Message) {
	select {
	case c.sendCh <- msg:
	case <-c.done:
	default:
		c.server.logger.Debug("dropping message for slow client", "client", c.id)
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump only serves pongs and notices the peer going away.
func (c *wsClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Debug("websocket read error", "client", c.id, "error", err)
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.server.logger.Debug("websocket write error", "client", c.id, "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
			return
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		id:     s.nextID.Add(1),
		conn:   conn,
		server: s,
		sendCh: make(chan Message, clientBuffer),
		done:   make(chan struct{}),
	}

	s.clientMu.Lock()
	s.clients[c.id] = c
	s.clientMu.Unlock()
	s.logger.Debug("websocket client connected", "client", c.id, "remote", r.RemoteAddr)

	// Start the client off with the latest status.
	if last, ok := s.sink.Last(); ok {
		c.send(Message{Type: "status", Text: last.String(), Time: time.Now()})
	}

	go c.writePump()
	c.readPump()
}

func (s *Server) removeClient(c *wsClient) {
	s.clientMu.Lock()
	delete(s.clients, c.id)
	s.clientMu.Unlock()
	s.logger.Debug("websocket client disconnected", "client", c.id)
}

func (s *Server) closeClients() {
	s.clientMu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.clientMu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// ClientCount returns the number of connected websocket clients.
func (s *Server) ClientCount() int {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return len(s.clients)
}
