package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matheus3301/deskchat/internal/bus"
	"github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/realtime"
)

// fakeBackend serves canned responses. A non-nil gate channel makes the
// matching call block until it is closed or receives.
type fakeBackend struct {
	mu           sync.Mutex
	rooms        []model.Room
	roomErr      error
	history      map[string][]model.Message
	historyErr   error
	historyGate  chan struct{}
	uploadURL    string
	uploadErr    error
	uploadGate   chan struct{}
	roomCalls    int
	historyCalls int
	uploadCalls  int
	historyStart chan struct{}
}

func (f *fakeBackend) ResolveRoom(context.Context) (model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomCalls++
	if f.roomErr != nil {
		return model.Room{}, f.roomErr
	}
	i := min(f.roomCalls, len(f.rooms)) - 1
	return f.rooms[i], nil
}

func (f *fakeBackend) History(_ context.Context, roomID string) ([]model.Message, error) {
	f.mu.Lock()
	f.historyCalls++
	gate, started := f.historyGate, f.historyStart
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history[roomID], nil
}

func (f *fakeBackend) Upload(_ context.Context, _ string, r io.Reader) (string, error) {
	f.mu.Lock()
	f.uploadCalls++
	gate := f.uploadGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	_, _ = io.Copy(io.Discard, r)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadURL, nil
}

func (f *fakeBackend) calls() (room, history, upload int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roomCalls, f.historyCalls, f.uploadCalls
}

type emitted struct {
	Event   string
	Payload any
}

type fakeTransport struct {
	mu        sync.Mutex
	emits     []emitted
	events    chan realtime.Envelope
	closed    bool
	emitErr   error
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan realtime.Envelope, 16)}
}

func (t *fakeTransport) Emit(event string, payload any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return realtime.ErrClosed
	}
	if t.emitErr != nil {
		return t.emitErr
	}
	t.emits = append(t.emits, emitted{Event: event, Payload: payload})
	return nil
}

func (t *fakeTransport) Events() <-chan realtime.Envelope { return t.events }

func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		close(t.events)
	})
	return nil
}

// failEmits makes every later Emit return err while the connection stays up.
func (t *fakeTransport) failEmits(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emitErr = err
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *fakeTransport) sent() []emitted {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]emitted(nil), t.emits...)
}

func (t *fakeTransport) names() []string {
	var out []string
	for _, e := range t.sent() {
		out = append(out, e.Event)
	}
	return out
}

func (t *fakeTransport) count(event string) int {
	n := 0
	for _, e := range t.sent() {
		if e.Event == event {
			n++
		}
	}
	return n
}

// typingStates returns the isTyping values emitted, in order.
func (t *fakeTransport) typingStates() []bool {
	var out []bool
	for _, e := range t.sent() {
		if e.Event == model.EventTyping {
			out = append(out, e.Payload.(model.Typing).IsTyping)
		}
	}
	return out
}

func (t *fakeTransport) deliver(tb testing.TB, event string, payload any) {
	tb.Helper()
	data, err := json.Marshal(payload)
	require.NoError(tb, err)
	t.events <- realtime.Envelope{Event: event, Data: data}
}

// fakeDialer hands out transports in order and records dial calls.
type fakeDialer struct {
	mu         sync.Mutex
	transports []*fakeTransport
	err        error
	calls      int
	onDial     func(n int)
}

func (d *fakeDialer) Dial(context.Context) (Transport, error) {
	d.mu.Lock()
	d.calls++
	n := d.calls
	hook := d.onDial
	d.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	d.mu.Lock()
	err := d.err
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	t := newFakeTransport()
	d.mu.Lock()
	d.transports = append(d.transports, t)
	d.mu.Unlock()
	return t, nil
}

func (d *fakeDialer) setOnDial(fn func(n int)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onDial = fn
}

func (d *fakeDialer) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDialer) last() *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.transports) == 0 {
		return nil
	}
	return d.transports[len(d.transports)-1]
}

// fakeScheduler captures scheduled calls so tests fire them by hand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	mu      sync.Mutex
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) all() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeTimer(nil), s.timers...)
}

// fire runs the timer's callback regardless of whether it was stopped,
// modelling a timer that expired just before Stop.
func (s *fakeScheduler) fire(i int) {
	s.all()[i].f()
}

type harness struct {
	c       *Controller
	backend *fakeBackend
	dialer  *fakeDialer
	sched   *fakeScheduler
	bus     *bus.Bus
}

func newHarness(t *testing.T, be *fakeBackend) *harness {
	t.Helper()
	h := &harness{
		backend: be,
		dialer:  &fakeDialer{},
		sched:   &fakeScheduler{},
		bus:     bus.New(),
	}
	h.c = New(Options{
		Identity:   model.Identity{UserID: "u1", Username: "shop-one", Avatar: "https://cdn/u1.png"},
		Backend:    be,
		Dial:       h.dialer.Dial,
		Bus:        h.bus,
		Logger:     zap.NewNop(),
		TypingIdle: 2 * time.Second,
		Scheduler:  h.sched,
	})
	h.c.Start(context.Background())
	t.Cleanup(h.c.Stop)
	return h
}

func waitingRoom(id string) model.Room {
	return model.Room{ID: id, Status: model.RoomWaiting}
}

// flush waits until every closure queued so far has run on the loop.
func (h *harness) flush(t *testing.T) {
	t.Helper()
	require.NoError(t, h.c.do(func() {}))
}

func (h *harness) waitFor(t *testing.T, cond func(Snapshot) bool) {
	t.Helper()
	require.Eventually(t, func() bool { return cond(h.c.Snapshot()) }, 2*time.Second, 5*time.Millisecond)
}

var errBoom = errors.New("boom")
