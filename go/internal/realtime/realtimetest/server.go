// Package realtimetest provides an in-process websocket game server for
// exercising the realtime client against a real socket.
package realtimetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Server is a fake game server. Every accepted socket is handed to the test
// through NextConn.
type Server struct {
	*httptest.Server

	upgrader websocket.Upgrader
	conns    chan *Conn
	accepted atomic.Int64

	mu     sync.Mutex
	reject int
	stall  bool
	open   []*Conn
	stop   chan struct{}
}

// NewServer starts a server that is shut down when the test ends
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(chan *Conn, 32),
		stop:  make(chan struct{}),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Shutdown)
	return s
}

// WSURL returns the ws:// address of the server
func (s *Server) WSURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

// Reject makes the server answer upgrades with status; zero accepts again
func (s *Server) Reject(status int) {
	s.mu.Lock()
	s.reject = status
	s.mu.Unlock()
}

// Stall makes the server hold upgrade requests without answering them
func (s *Server) Stall(stall bool) {
	s.mu.Lock()
	s.stall = stall
	s.mu.Unlock()
}

// Accepted returns how many sockets the server has upgraded
func (s *Server) Accepted() int {
	return int(s.accepted.Load())
}

// Shutdown drops every socket and stops the listener
func (s *Server) Shutdown() {
	s.mu.Lock()
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	open := s.open
	s.open = nil
	s.mu.Unlock()

	for _, c := range open {
		c.Drop()
	}
	s.Server.Close()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reject, stall := s.reject, s.stall
	s.mu.Unlock()

	if stall {
		select {
		case <-r.Context().Done():
		case <-s.stop:
		}
		return
	}
	if reject != 0 {
		http.Error(w, http.StatusText(reject), reject)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.accepted.Add(1)

	c := &Conn{
		ws:     ws,
		frames: make(chan []byte, 256),
		done:   make(chan struct{}),
	}
	go c.readLoop()

	s.mu.Lock()
	s.open = append(s.open, c)
	s.mu.Unlock()

	s.conns <- c
}

// NextConn waits for the next accepted socket
func (s *Server) NextConn(t testing.TB, within time.Duration) *Conn {
	t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(within):
		t.Fatalf("timed out waiting for a connection")
		return nil
	}
}

// NoConn asserts that no socket is accepted within the window
func (s *Server) NoConn(t testing.TB, within time.Duration) {
	t.Helper()
	select {
	case <-s.conns:
		t.Fatalf("unexpected connection within %v", within)
	case <-time.After(within):
	}
}

// Conn is the server side of one client socket
type Conn struct {
	ws      *websocket.Conn
	frames  chan []byte
	done    chan struct{}
	writeMu sync.Mutex
	once    sync.Once
}

func (c *Conn) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		select {
		case c.frames <- data:
		default:
		}
	}
}

// Done is closed when the client side goes away
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Push sends v to the client as a JSON text frame
func (c *Conn) Push(t testing.TB, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal push: %v", err)
	}
	c.PushRaw(t, data)
}

// PushRaw sends data to the client unchanged
func (c *Conn) PushRaw(t testing.TB, data []byte) {
	t.Helper()
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("push: %v", err)
	}
}

// NextFrame waits for the next frame from the client
func (c *Conn) NextFrame(t testing.TB, within time.Duration) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.frames:
		var record map[string]interface{}
		if err := json.Unmarshal(data, &record); err != nil {
			t.Fatalf("client sent invalid json %q: %v", data, err)
		}
		return record
	case <-time.After(within):
		t.Fatalf("timed out waiting for a client frame")
		return nil
	}
}

// NextKind waits for the next frame of the given kind, skipping others
func (c *Conn) NextKind(t testing.TB, kind string, within time.Duration) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(within)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("timed out waiting for a %q frame", kind)
			return nil
		}
		record := c.NextFrame(t, remaining)
		if record["kind"] == kind {
			return record
		}
	}
}

// NoFrame asserts that the client sends nothing within the window
func (c *Conn) NoFrame(t testing.TB, within time.Duration) {
	t.Helper()
	select {
	case data := <-c.frames:
		t.Fatalf("unexpected client frame %s", data)
	case <-time.After(within):
	}
}

// Close ends the socket with a normal close frame
func (c *Conn) Close() {
	c.once.Do(func() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.ws.Close()
	})
}

// Drop ends the socket without a close frame
func (c *Conn) Drop() {
	c.once.Do(func() {
		c.ws.UnderlyingConn().Close()
	})
}

// WaitClosed waits until the client has closed its side
func (c *Conn) WaitClosed(t testing.TB, within time.Duration) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(within):
		t.Fatalf("client did not close the socket within %v", within)
	}
}
