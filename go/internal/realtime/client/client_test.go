package client

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/bingo/go/internal/bingo/protocol"
	"github.com/mcdev12/bingo/go/internal/realtime/effects"
	"github.com/mcdev12/bingo/go/internal/realtime/heartbeat"
	"github.com/mcdev12/bingo/go/internal/realtime/realtimetest"
	"github.com/mcdev12/bingo/go/internal/realtime/supervisor"
	"github.com/mcdev12/bingo/go/internal/realtime/transport"
)

const within = 2 * time.Second

// recorder captures every collaborator call
type recorder struct {
	mu        sync.Mutex
	notes     []effects.Notify
	sounds    []string
	renders   []effects.Render
	winChecks int
	pages     []int
	starts    int
	stops     int
}

func (r *recorder) collaborators() effects.Collaborators {
	return effects.Collaborators{
		Renderer:   r,
		Sound:      r,
		WinChecker: r,
		Navigator:  r,
		Notifier:   r,
		Game:       r,
	}
}

func (r *recorder) Render(req effects.Render) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders = append(r.renders, req)
}

func (r *recorder) Play(sound string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sounds = append(r.sounds, sound)
}

func (r *recorder) CheckWin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.winChecks++
}

func (r *recorder) Navigate(page int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, page)
}

func (r *recorder) Notify(n effects.Notify) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) StartGame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
}

func (r *recorder) StopGame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
}

func (r *recorder) soundCount(sound string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sounds {
		if s == sound {
			n++
		}
	}
	return n
}

func (r *recorder) hasNote(match func(effects.Notify) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.ContainsFunc(r.notes, match)
}

func testConfig(url string) Config {
	cfg := DefaultConfig(url)
	cfg.Identity = Identity{PlayerID: "p-1", SessionID: "s-1"}
	cfg.Transport = transport.DefaultConfig()
	cfg.Transport.MessagesPerSecond = 0
	cfg.Reconnect = supervisor.Config{
		BaseDelay:      20 * time.Millisecond,
		Multiplier:     1.5,
		MaxDelay:       80 * time.Millisecond,
		MaxAttempts:    3,
		ConnectTimeout: time.Second,
	}
	cfg.Heartbeat = heartbeat.Config{Interval: time.Hour, StaleAfter: 2 * time.Hour}
	return cfg
}

func startClient(t *testing.T, cfg Config) (*Client, *recorder) {
	t.Helper()

	rec := &recorder{}
	c := New(cfg, rec.collaborators(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	return c, rec
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitState(t *testing.T, c *Client, want supervisor.ConnectionState) {
	t.Helper()
	eventually(t, "state "+want.String(), func() bool {
		st, err := c.Status(context.Background())
		return err == nil && st.State == want
	})
}

func openAndAccept(t *testing.T, c *Client, srv *realtimetest.Server) *realtimetest.Conn {
	t.Helper()
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	conn := srv.NextConn(t, within)
	conn.NextKind(t, "connect", within)
	waitState(t, c, supervisor.Connected)
	return conn
}

func TestHandshakeIsFirstFrame(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	c, _ := startClient(t, testConfig(srv.WSURL()))

	delivery, err := c.Send(context.Background(), protocol.Mark(7, true))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if delivery != Queued {
		t.Fatalf("delivery before open = %s, want queued", delivery)
	}

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	conn := srv.NextConn(t, within)

	first := conn.NextFrame(t, within)
	if first["kind"] != "connect" || first["playerId"] != "p-1" || first["sessionId"] != "s-1" {
		t.Fatalf("first frame = %v, want connect handshake", first)
	}
	mark := conn.NextFrame(t, within)
	if mark["kind"] != "mark" || mark["number"] != float64(7) || mark["id"] == "" {
		t.Fatalf("second frame = %v, want queued mark", mark)
	}
}

func TestSendWhileConnectedGoesOut(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	c, _ := startClient(t, testConfig(srv.WSURL()))
	conn := openAndAccept(t, c, srv)

	delivery, err := c.Send(context.Background(), protocol.ClaimWin("line"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if delivery != Sent {
		t.Fatalf("delivery = %s, want sent", delivery)
	}
	if got := conn.NextKind(t, "claim_win", within); got["pattern"] != "line" {
		t.Fatalf("claim frame = %v", got)
	}
}

func TestQueuedIntentsFlushInOrderAfterReconnect(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	cfg := testConfig(srv.WSURL())
	cfg.Reconnect.BaseDelay = 300 * time.Millisecond
	cfg.Reconnect.MaxDelay = time.Second
	c, _ := startClient(t, cfg)

	first := openAndAccept(t, c, srv)
	first.Drop()
	waitState(t, c, supervisor.Disconnected)

	for n := 1; n <= 3; n++ {
		delivery, err := c.Send(context.Background(), protocol.Mark(n, true))
		if err != nil {
			t.Fatalf("send %d: %v", n, err)
		}
		if delivery != Queued {
			t.Fatalf("send %d while offline = %s, want queued", n, delivery)
		}
	}

	second := srv.NextConn(t, within)
	if got := second.NextFrame(t, within); got["kind"] != "connect" {
		t.Fatalf("first frame after reconnect = %v", got)
	}
	for n := 1; n <= 3; n++ {
		got := second.NextFrame(t, within)
		if got["kind"] != "mark" || got["number"] != float64(n) {
			t.Fatalf("frame %d = %v", n, got)
		}
	}

	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Queue.Pending != 0 || st.Queue.Delivered != 3 {
		t.Fatalf("queue stats = %+v", st.Queue)
	}
}

func TestReconnectsAfterServerClose(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	c, rec := startClient(t, testConfig(srv.WSURL()))

	events := make(chan EventName, 32)
	for _, name := range []EventName{EventConnect, EventDisconnect, EventReconnecting} {
		c.On(name, func(ev Event) { events <- ev.Name })
	}

	first := openAndAccept(t, c, srv)
	first.Close()

	second := srv.NextConn(t, within)
	second.NextKind(t, "connect", within)
	waitState(t, c, supervisor.Connected)

	var got []EventName
	timeout := time.After(within)
	for len(got) < 4 {
		select {
		case name := <-events:
			got = append(got, name)
		case <-timeout:
			t.Fatalf("events = %v", got)
		}
	}
	want := []EventName{EventConnect, EventDisconnect, EventReconnecting, EventConnect}
	if !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}

	st, _ := c.Status(context.Background())
	if st.Attempts != 0 {
		t.Fatalf("attempts after reconnect = %d, want 0", st.Attempts)
	}
	if !rec.hasNote(func(n effects.Notify) bool { return n.Message == "Reconnecting... (1/3)" }) {
		t.Fatal("missing reconnecting notification")
	}
}

func TestUnreachableAfterAttemptCeiling(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	srv.Reject(http.StatusServiceUnavailable)
	c, rec := startClient(t, testConfig(srv.WSURL()))

	unreachable := make(chan Event, 1)
	c.On(EventUnreachable, func(ev Event) { unreachable <- ev })

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	select {
	case ev := <-unreachable:
		if !errors.Is(ev.Err, supervisor.ErrUnreachable) || ev.Attempt != 3 {
			t.Fatalf("unreachable event = %+v", ev)
		}
	case <-time.After(within):
		t.Fatal("client never gave up")
	}

	st, _ := c.Status(context.Background())
	if !st.Exhausted || st.State != supervisor.Disconnected {
		t.Fatalf("status = %+v", st)
	}
	if !rec.hasNote(func(n effects.Notify) bool { return n.Level == effects.LevelError && n.Persistent }) {
		t.Fatal("missing persistent unreachable notification")
	}

	srv.Reject(0)
	openAndAccept(t, c, srv)
}

func TestRequestReconnectReplacesConnection(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	c, _ := startClient(t, testConfig(srv.WSURL()))

	first := openAndAccept(t, c, srv)
	if err := c.RequestReconnect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	first.WaitClosed(t, within)

	second := srv.NextConn(t, within)
	second.NextKind(t, "connect", within)
	waitState(t, c, supervisor.Connected)

	st, _ := c.Status(context.Background())
	if st.Generation < 2 || st.Attempts != 0 {
		t.Fatalf("status after reconnect = %+v", st)
	}
}

func TestKickedDoesNotReconnect(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	c, rec := startClient(t, testConfig(srv.WSURL()))

	conn := openAndAccept(t, c, srv)
	conn.Push(t, map[string]interface{}{"kind": "kicked", "message": "Removed by host"})
	conn.WaitClosed(t, within)
	srv.NoConn(t, 300*time.Millisecond)

	st, _ := c.Status(context.Background())
	if !st.Closed || st.State != supervisor.Disconnected {
		t.Fatalf("status after kick = %+v", st)
	}
	view, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !view.Terminated {
		t.Fatal("kicked client not marked terminated")
	}
	if !rec.hasNote(func(n effects.Notify) bool { return n.Message == "Removed by host" && n.Persistent }) {
		t.Fatal("missing kick notification")
	}
}

func TestSnapshotThenLiveCalls(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	c, rec := startClient(t, testConfig(srv.WSURL()))
	conn := openAndAccept(t, c, srv)

	conn.Push(t, map[string]interface{}{
		"kind":          "game_state",
		"calledNumbers": []int{5, 12},
		"currentNumber": 12,
		"gameActive":    true,
		"gameType":      "75ball",
	})
	conn.Push(t, map[string]interface{}{"kind": "number_called", "number": 12})
	conn.Push(t, map[string]interface{}{"kind": "number_called", "number": 30})

	eventually(t, "number 30", func() bool {
		view, err := c.Snapshot(context.Background())
		return err == nil && len(view.CalledNumbers) == 3
	})

	view, _ := c.Snapshot(context.Background())
	if !slices.Equal(view.CalledNumbers, []int{5, 12, 30}) {
		t.Fatalf("called = %v", view.CalledNumbers)
	}
	if view.CurrentNumber == nil || *view.CurrentNumber != 30 {
		t.Fatalf("current = %v, want 30", view.CurrentNumber)
	}
	if n := rec.soundCount(effects.SoundCall); n != 1 {
		t.Fatalf("call sounds = %d, want 1", n)
	}
	eventually(t, "win check", func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.winChecks == 1
	})
}

func TestConnectTimeout(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	srv.Stall(true)
	cfg := testConfig(srv.WSURL())
	cfg.Reconnect.ConnectTimeout = 100 * time.Millisecond
	c, rec := startClient(t, cfg)

	failures := make(chan error, 8)
	c.On(EventError, func(ev Event) { failures <- ev.Err })

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	select {
	case err := <-failures:
		if !errors.Is(err, supervisor.ErrConnectTimeout) {
			t.Fatalf("error = %v, want connect timeout", err)
		}
	case <-time.After(within):
		t.Fatal("connect attempt never timed out")
	}
	if !rec.hasNote(func(n effects.Notify) bool { return n.Message == "Connection timed out" }) {
		t.Fatal("missing timeout notification")
	}

	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStaleConnectionIsReplaced(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	cfg := testConfig(srv.WSURL())
	cfg.Heartbeat = heartbeat.Config{Interval: 40 * time.Millisecond, StaleAfter: 150 * time.Millisecond}
	c, _ := startClient(t, cfg)

	first := openAndAccept(t, c, srv)
	ping := first.NextKind(t, "ping", within)
	if _, ok := ping["timestamp"].(float64); !ok {
		t.Fatalf("ping = %v", ping)
	}

	// The server never answers, so the client gives up on this socket
	first.WaitClosed(t, within)
	second := srv.NextConn(t, within)
	second.NextKind(t, "connect", within)
}

func TestTrafficKeepsConnectionAlive(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	cfg := testConfig(srv.WSURL())
	cfg.Heartbeat = heartbeat.Config{Interval: 40 * time.Millisecond, StaleAfter: 150 * time.Millisecond}
	c, _ := startClient(t, cfg)
	conn := openAndAccept(t, c, srv)

	stop := time.After(500 * time.Millisecond)
	for {
		select {
		case <-stop:
			srv.NoConn(t, 10*time.Millisecond)
			return
		case <-conn.Done():
			t.Fatal("connection dropped despite traffic")
		case <-time.After(30 * time.Millisecond):
			conn.Push(t, map[string]interface{}{"kind": "pong"})
		}
	}
}

func TestListenersOnAndOff(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	c, _ := startClient(t, testConfig(srv.WSURL()))

	var mu sync.Mutex
	var kept, removed int
	var kinds []protocol.Kind
	c.On(EventConnect, func(Event) { mu.Lock(); kept++; mu.Unlock() })
	id := c.On(EventConnect, func(Event) { mu.Lock(); removed++; mu.Unlock() })
	c.Off(EventConnect, id)
	c.On(EventMessage, func(ev Event) { mu.Lock(); kinds = append(kinds, ev.Message.Kind); mu.Unlock() })
	c.On(EventConnect, func(Event) { panic("listener bug") })

	conn := openAndAccept(t, c, srv)
	conn.Push(t, map[string]interface{}{"kind": "announcement", "from": "Host", "message": "hi"})

	eventually(t, "message event", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(kinds) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if kept != 1 || removed != 0 {
		t.Fatalf("kept = %d, removed = %d", kept, removed)
	}
	if kinds[0] != protocol.KindAnnouncement {
		t.Fatalf("message kind = %q", kinds[0])
	}
}

func TestSendValidation(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	c, _ := startClient(t, testConfig(srv.WSURL()))

	if _, err := c.Send(context.Background(), protocol.Intent{}); !errors.Is(err, protocol.ErrMissingKind) {
		t.Fatalf("err = %v, want ErrMissingKind", err)
	}
}

func TestCallsAfterStop(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	c := New(testConfig(srv.WSURL()), effects.Collaborators{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	cancel()
	<-c.Done()

	if _, err := c.Send(context.Background(), protocol.Mark(1, true)); !errors.Is(err, ErrStopped) {
		t.Fatalf("send after stop = %v, want ErrStopped", err)
	}
	if _, err := c.Snapshot(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("snapshot after stop = %v, want ErrStopped", err)
	}
	if err := c.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second run = %v, want ErrAlreadyRunning", err)
	}
}

func TestOfflineAdminCommandsDeliveredInOrder(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	c, _ := startClient(t, testConfig(srv.WSURL()))

	first := protocol.Admin("startGame", nil)
	second := protocol.Admin("startGame", nil)
	for _, intent := range []protocol.Intent{first, second} {
		if _, err := c.Send(context.Background(), intent); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	st, _ := c.Status(context.Background())
	if st.Queue.Pending != 2 {
		t.Fatalf("pending = %d, want 2", st.Queue.Pending)
	}

	conn := openAndAccept(t, c, srv)
	for _, want := range []protocol.Intent{first, second} {
		got := conn.NextFrame(t, within)
		if got["kind"] != "admin" || got["action"] != "startGame" || got["id"] != want.ID {
			t.Fatalf("frame = %v, want admin %s", got, want.ID)
		}
	}

	st, _ = c.Status(context.Background())
	if st.Queue.Pending != 0 {
		t.Fatalf("pending after reconnect = %d", st.Queue.Pending)
	}
}

func TestRateLimitedFlushKeepsLoopResponsive(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	cfg := testConfig(srv.WSURL())
	cfg.Transport = transport.DefaultConfig()
	c, _ := startClient(t, cfg)

	const backlog = 80
	for n := 1; n <= backlog; n++ {
		if _, err := c.Send(context.Background(), protocol.Mark(n, true)); err != nil {
			t.Fatalf("send %d: %v", n, err)
		}
	}

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	conn := srv.NextConn(t, within)
	conn.NextKind(t, "connect", within)

	for n := 1; n <= backlog; n++ {
		got := conn.NextFrame(t, within)
		if got["kind"] != "mark" || got["number"] != float64(n) {
			t.Fatalf("frame %d = %v", n, got)
		}

		if n%20 == 0 {
			start := time.Now()
			if _, err := c.Snapshot(context.Background()); err != nil {
				t.Fatalf("snapshot: %v", err)
			}
			if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
				t.Fatalf("snapshot took %v while draining the queue", elapsed)
			}
		}
	}

	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.State != supervisor.Connected || st.Queue.Pending != 0 || st.Queue.Delivered != backlog {
		t.Fatalf("status after drain = %+v", st)
	}
}

func TestFailedSendWhileConnectedIsQueued(t *testing.T) {
	t.Parallel()

	srv := realtimetest.NewServer(t)
	c, rec := startClient(t, testConfig(srv.WSURL()))
	openAndAccept(t, c, srv)

	// Drop the socket underneath the client without telling it
	if err := c.call(context.Background(), func() { c.transport.Close() }); err != nil {
		t.Fatalf("close transport: %v", err)
	}

	for n := 1; n <= 2; n++ {
		delivery, err := c.Send(context.Background(), protocol.Mark(n, true))
		if err != nil {
			t.Fatalf("send %d: %v", n, err)
		}
		if delivery != Queued {
			t.Fatalf("send %d = %s, want queued", n, delivery)
		}
	}
	if !rec.hasNote(func(n effects.Notify) bool {
		return n.Level == effects.LevelWarning && n.Message == "Connection problem, your last action will be resent"
	}) {
		t.Fatal("missing resend warning")
	}

	st, _ := c.Status(context.Background())
	if st.State != supervisor.Connected || st.Queue.Pending != 2 {
		t.Fatalf("status after failed send = %+v", st)
	}

	if err := c.RequestReconnect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	conn := srv.NextConn(t, within)
	if got := conn.NextFrame(t, within); got["kind"] != "connect" {
		t.Fatalf("first frame = %v", got)
	}
	for n := 1; n <= 2; n++ {
		got := conn.NextFrame(t, within)
		if got["kind"] != "mark" || got["number"] != float64(n) {
			t.Fatalf("frame %d = %v", n, got)
		}
	}

	eventually(t, "empty queue", func() bool {
		st, err := c.Status(context.Background())
		return err == nil && st.Queue.Pending == 0
	})
}

func TestDeferredGameEffects(t *testing.T) {
	t.Parallel()

	startSoon := effects.StartGame{After: 500 * time.Millisecond}
	checkSoon := effects.CheckWin{After: 100 * time.Millisecond}

	tests := []struct {
		name      string
		steps     []func(c *Client)
		starts    int
		winChecks int
	}{
		{
			name: "stop cancels pending start and win check",
			steps: []func(c *Client){
				func(c *Client) { c.perform([]effects.Request{checkSoon, startSoon}) },
				func(c *Client) { c.perform([]effects.Request{effects.StopGame{}}) },
			},
		},
		{
			name: "second reset replaces the first",
			steps: []func(c *Client){
				func(c *Client) { c.perform([]effects.Request{startSoon}) },
				func(c *Client) { c.perform([]effects.Request{startSoon}) },
			},
			starts: 1,
		},
		{
			name: "close cancels pending start",
			steps: []func(c *Client){
				func(c *Client) { c.perform([]effects.Request{checkSoon, startSoon}) },
				func(c *Client) { c.close() },
			},
		},
		{
			name: "win checks run when nothing intervenes",
			steps: []func(c *Client){
				func(c *Client) { c.perform([]effects.Request{checkSoon, checkSoon}) },
			},
			winChecks: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clock := clockwork.NewFakeClock()
			rec := &recorder{}
			c := New(testConfig("ws://127.0.0.1:1/ws"), rec.collaborators(), clock)
			ctx, cancel := context.WithCancel(context.Background())
			go c.Run(ctx)
			t.Cleanup(func() {
				cancel()
				<-c.Done()
			})

			steps := append(slices.Clone(tt.steps), func(c *Client) {
				c.perform([]effects.Request{effects.Navigate{Page: 7, After: time.Second}})
			})
			for _, step := range steps {
				if err := c.call(context.Background(), func() { step(c) }); err != nil {
					t.Fatalf("step: %v", err)
				}
			}

			clock.Advance(2 * time.Second)
			eventually(t, "deferred effects", func() bool {
				rec.mu.Lock()
				defer rec.mu.Unlock()
				return len(rec.pages) == 1 && rec.starts >= tt.starts && rec.winChecks >= tt.winChecks
			})
			// Flush anything already sitting in the inbox
			if err := c.call(context.Background(), func() {}); err != nil {
				t.Fatalf("sync: %v", err)
			}

			rec.mu.Lock()
			defer rec.mu.Unlock()
			if rec.starts != tt.starts || rec.winChecks != tt.winChecks {
				t.Fatalf("starts = %d win checks = %d, want %d and %d", rec.starts, rec.winChecks, tt.starts, tt.winChecks)
			}
		})
	}
}
