// Package chat implements the support chat session: one conversation's room,
// message sequence, typing state and live connection for the lifetime of a
// mounted chat view.
//
// All state is owned by a single loop goroutine. Public methods hand closures
// to the loop and wait for them; HTTP calls and dials run on the caller's
// goroutine and post their results back, tagged with the mount generation so
// that results arriving after Unmount are dropped.
package chat

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/deskchat/internal/bus"
	"github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/realtime"
	"github.com/matheus3301/deskchat/internal/status"
)

var (
	// ErrBlocked is returned when the backend refuses the merchant a room.
	ErrBlocked = errors.New("you are blacklisted from chat")
	// ErrUploadInFlight is returned by SendImage while another upload runs.
	ErrUploadInFlight = errors.New("an image upload is already in progress")
	// ErrNotMounted is returned for actions on an unmounted view, and by
	// calls whose result was discarded because the view unmounted meanwhile.
	ErrNotMounted = errors.New("chat view is not mounted")
	// ErrNoRoom is returned when a send needs a room and a live connection.
	ErrNoRoom = errors.New("not connected to a support room")
	// ErrStopped is returned once the controller loop has exited.
	ErrStopped = errors.New("chat controller stopped")
)

// Backend is the REST side of the support service.
type Backend interface {
	ResolveRoom(ctx context.Context) (model.Room, error)
	History(ctx context.Context, roomID string) ([]model.Message, error)
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Transport is one live real-time connection.
type Transport interface {
	Emit(event string, payload any) error
	Events() <-chan realtime.Envelope
	Close() error
}

// DialFunc opens a Transport.
type DialFunc func(ctx context.Context) (Transport, error)

// Options configures a Controller.
type Options struct {
	Identity   model.Identity
	Backend    Backend
	Dial       DialFunc
	Bus        *bus.Bus
	Logger     *zap.Logger
	TypingIdle time.Duration
	Scheduler  Scheduler
}

// Notice is a transient user-visible message.
type Notice struct {
	Level NoticeLevel
	Text  string
}

// NoticeLevel grades a Notice.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// HistoryLoaded is published when the message sequence is replaced from
// the history endpoint.
type HistoryLoaded struct {
	RoomID   string
	Messages []model.Message
}

// Snapshot is an immutable view of the controller state.
//
// Messages shares its backing array with the controller. The sequence is
// append-only, so the visible prefix never changes.
type Snapshot struct {
	Mounted     bool
	Loading     bool
	Blocked     bool
	Room        *model.Room
	Messages    []model.Message
	Draft       string
	AgentTyping bool
	Uploading   bool
	Conn        status.State
}

// Connected reports whether sends are possible.
func (s Snapshot) Connected() bool {
	return s.Room != nil && s.Conn == status.Connected
}

// Controller is the chat session controller.
type Controller struct {
	ident   model.Identity
	backend Backend
	dial    DialFunc
	bus     *bus.Bus
	log     *zap.Logger
	idle    time.Duration
	sched   Scheduler
	machine *status.Machine

	actions chan func()
	stopped chan struct{}
	cancel  context.CancelFunc
	snap    atomic.Pointer[Snapshot]

	// Loop-owned state below.
	gen         uint64
	mounted     bool
	loading     bool
	blocked     bool
	room        *model.Room
	msgs        []model.Message
	seen        map[string]struct{}
	draft       string
	agentTyping bool
	uploading   bool
	conn        Transport

	typingSeq   uint64
	typingTimer Timer
}

// New creates a Controller. Start must be called before use.
func New(opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	idle := opts.TypingIdle
	if idle <= 0 {
		idle = 2 * time.Second
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = realScheduler{}
	}
	c := &Controller{
		ident:   opts.Identity,
		backend: opts.Backend,
		dial:    opts.Dial,
		bus:     opts.Bus,
		log:     log.Named("chat"),
		idle:    idle,
		sched:   sched,
		machine: status.NewMachine(opts.Bus),
		actions: make(chan func(), 64),
		stopped: make(chan struct{}),
		seen:    make(map[string]struct{}),
	}
	c.snap.Store(&Snapshot{Conn: status.Disconnected})
	return c
}

// Start runs the controller loop until ctx is cancelled or Stop is called.
func (c *Controller) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.loop(ctx)
}

// Stop unmounts the view and ends the loop.
func (c *Controller) Stop() {
	if c.cancel == nil {
		return
	}
	_ = c.do(c.teardown)
	c.cancel()
	<-c.stopped
}

// Snapshot returns the latest published state. Safe from any goroutine.
func (c *Controller) Snapshot() Snapshot {
	return *c.snap.Load()
}

// Identity returns who the controller chats as.
func (c *Controller) Identity() model.Identity {
	return c.ident
}

func (c *Controller) loop(ctx context.Context) {
	defer close(c.stopped)
	for {
		select {
		case fn := <-c.actions:
			fn()
		case <-ctx.Done():
			c.teardown()
			return
		}
	}
}

// do runs fn on the loop and waits for it. Never call from the loop.
func (c *Controller) do(fn func()) error {
	done := make(chan struct{})
	select {
	case c.actions <- func() { fn(); close(done) }:
	case <-c.stopped:
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-c.stopped:
		return ErrStopped
	}
}

// post queues fn on the loop without waiting.
func (c *Controller) post(fn func()) {
	select {
	case c.actions <- fn:
	case <-c.stopped:
	}
}

// apply runs fn on the loop if the mount generation is still gen. It
// reports whether fn ran.
func (c *Controller) apply(gen uint64, fn func()) bool {
	var ran bool
	err := c.do(func() {
		if c.gen != gen || !c.mounted {
			return
		}
		fn()
		ran = true
	})
	return err == nil && ran
}

// publish stores a fresh snapshot and announces it on the bus.
func (c *Controller) publish() {
	s := &Snapshot{
		Mounted:     c.mounted,
		Loading:     c.loading,
		Blocked:     c.blocked,
		Messages:    slices.Clip(c.msgs),
		Draft:       c.draft,
		AgentTyping: c.agentTyping,
		Uploading:   c.uploading,
		Conn:        c.machine.Current(),
	}
	if c.room != nil {
		r := *c.room
		s.Room = &r
	}
	c.snap.Store(s)
	c.bus.Emit(bus.KindState, *s)
}

func (c *Controller) notify(level NoticeLevel, text string) {
	c.bus.Emit(bus.KindNotice, Notice{Level: level, Text: text})
}

// emit sends one event on the live connection. Delivery failures are logged
// and not retried.
func (c *Controller) emit(event string, payload any) bool {
	if c.conn == nil {
		return false
	}
	if err := c.conn.Emit(event, payload); err != nil {
		c.log.Warn("emit failed", zap.String("event", event), zap.Error(err))
		return false
	}
	return true
}
