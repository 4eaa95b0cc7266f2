// ABOUTME: Remote control HTTP server with a websocket control channel and metrics
// ABOUTME: Requests become terminal input events; status snapshots fan out to clients
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harperreed/termvid/internal/discovery"
	"github.com/harperreed/termvid/internal/log"
	"github.com/harperreed/termvid/internal/metrics"
	"github.com/harperreed/termvid/internal/protocol"
	"github.com/harperreed/termvid/internal/ui"
	"github.com/samber/lo"
)

// Message types sent to clients
const (
	TypeStatus = "status"
	TypeError  = "error"
)

const (
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
	sendBuffer    = 32
)

var knownRequests = []string{
	protocol.RequestPause,
	protocol.RequestResume,
	protocol.RequestToggle,
	protocol.RequestSeek,
	protocol.RequestSeekRelative,
	protocol.RequestQuit,
}

// Injector accepts input events on behalf of the controller
type Injector interface {
	Inject(ev ui.Event) error
}

// Config holds remote server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
	Session    string
	File       string
}

// Server serves /control and /metrics
type Server struct {
	config   Config
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	inject   Injector

	httpServer *http.Server
	listener   net.Listener
	mdns       *discovery.Manager

	clients   map[string]*client
	clientsMu sync.RWMutex
	last      *protocol.Status
	closed    bool

	stopOnce sync.Once
	wg       sync.WaitGroup
}

type client struct {
	id       string
	conn     *websocket.Conn
	sendChan chan protocol.Message
}

// New creates a server that forwards requests to inject. m may be nil.
func New(config Config, inject Injector, m *metrics.Metrics) *Server {
	s := &Server{
		config:  config,
		mux:     http.NewServeMux(),
		inject:  inject,
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			// local network control only
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.mux.HandleFunc("/control", s.handleControl)
	if m != nil {
		s.mux.Handle("/metrics", m.Handler())
	}
	return s
}

// Handler exposes the routes
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured port and optionally advertises over mDNS
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("remote listen: %w", err)
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Remote server failed: %v", err)
		}
	}()
	log.Infof("Remote control listening on %s", ln.Addr())

	if s.config.EnableMDNS {
		s.mdns = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.Port(),
			Session:     s.config.Session,
			File:        s.config.File,
		})
		if err := s.mdns.Advertise(); err != nil {
			log.Warnf("mDNS advertisement failed: %v", err)
		}
	}
	return nil
}

// Port returns the bound port, useful when configured with 0
func (s *Server) Port() int {
	if s.listener == nil {
		return s.config.Port
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Publish records status and queues it for every client. It never blocks;
// a client whose buffer is full misses the snapshot.
func (s *Server) Publish(status protocol.Status) {
	msg := protocol.Message{Type: TypeStatus, Payload: status}

	s.clientsMu.Lock()
	s.last = &status
	for _, c := range s.clients {
		select {
		case c.sendChan <- msg:
		default:
		}
	}
	s.clientsMu.Unlock()
}

// Close shuts the server down and waits for client goroutines
func (s *Server) Close() error {
	var err error
	s.stopOnce.Do(func() {
		s.clientsMu.Lock()
		s.closed = true
		s.clientsMu.Unlock()

		if s.mdns != nil {
			s.mdns.Stop()
		}
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = s.httpServer.Shutdown(ctx)
		}

		s.clientsMu.Lock()
		for _, c := range s.clients {
			c.conn.Close()
		}
		s.clientsMu.Unlock()
		s.wg.Wait()
	})
	return err
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket upgrade error: %v", err)
		return
	}

	c, ok := s.register(conn)
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeDeadline))
		conn.Close()
		return
	}
	defer s.wg.Done()
	log.Infof("Remote client %s connected from %s", c.id, r.RemoteAddr)
	s.handleConnection(c)
}

// register adds a client unless Close has started. Registration and the
// wait group count happen under one lock so Close sees every client.
func (s *Server) register(conn *websocket.Conn) (*client, bool) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if s.closed {
		return nil, false
	}

	c := &client{
		id:       uuid.NewString(),
		conn:     conn,
		sendChan: make(chan protocol.Message, sendBuffer),
	}
	s.wg.Add(1)
	s.clients[c.id] = c
	if s.last != nil {
		c.sendChan <- protocol.Message{Type: TypeStatus, Payload: *s.last}
	}
	return c, true
}

func (s *Server) handleConnection(c *client) {
	conn := c.conn
	defer conn.Close()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.clientWriter(c)
	}()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c.id)
		close(c.sendChan)
		s.clientsMu.Unlock()
		<-writerDone
		log.Infof("Remote client %s disconnected", c.id)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("WebSocket error: %v", err)
			}
			return
		}
		s.handleRequest(c, data)
	}
}

func (s *Server) handleRequest(c *client, data []byte) {
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(c, protocol.ErrorReply{Error: "malformed request: " + err.Error()})
		return
	}
	if !lo.Contains(knownRequests, req.Command) {
		s.reply(c, protocol.ErrorReply{Error: fmt.Sprintf("unknown command %q", req.Command)})
		return
	}

	log.WithField("client", c.id).Debugf("Remote request %s", req.Command)
	if err := s.inject.Inject(ui.RemoteEvent(req)); err != nil {
		s.reply(c, protocol.ErrorReply{Error: err.Error()})
	}
}

func (s *Server) reply(c *client, e protocol.ErrorReply) {
	select {
	case c.sendChan <- protocol.Message{Type: TypeError, Payload: e}:
	default:
	}
}

// clientWriter sends queued messages until the channel closes
func (s *Server) clientWriter(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Errorf("Error marshaling message: %v", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warnf("Error writing to remote client: %v", err)
				c.conn.Close()
				drain(c.sendChan)
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				c.conn.Close()
				drain(c.sendChan)
				return
			}
		}
	}
}

// drain discards messages until ch is closed
func drain(ch <-chan protocol.Message) {
	for range ch {
	}
}
