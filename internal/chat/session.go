package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/matheus3301/deskchat/internal/backend"
	"github.com/matheus3301/deskchat/internal/bus"
	"github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/status"
)

// Mount starts a session: resolve the room, then load history and open the
// live connection concurrently. It blocks until all three are settled. A
// view that is already mounted is torn down first.
//
// When the room resolution is forbidden the view is blocked: no history is
// fetched and no connection is attempted.
func (c *Controller) Mount(ctx context.Context) error {
	var gen uint64
	if err := c.do(func() {
		if c.mounted {
			c.teardown()
		}
		c.gen++
		gen = c.gen
		c.mounted = true
		c.loading = true
		c.blocked = false
		c.room = nil
		c.msgs = nil
		c.seen = make(map[string]struct{})
		c.draft = ""
		c.agentTyping = false
		c.uploading = false
		c.publish()
	}); err != nil {
		return err
	}

	c.log.Info("mounting chat view")
	room, err := c.backend.ResolveRoom(ctx)
	if err != nil {
		return c.resolveFailed(gen, err)
	}
	if !c.apply(gen, func() {
		c.room = &room
		c.publish()
		c.bus.Emit(bus.KindRoom, room)
	}) {
		return ErrNotMounted
	}
	c.log.Info("room resolved", zap.String("room_id", room.ID), zap.String("status", string(room.Status)))

	err = c.attach(ctx, gen, room.ID)
	c.apply(gen, func() {
		c.loading = false
		c.publish()
	})
	return err
}

// Unmount ends the session: the connection is closed, the typing timer is
// cleared, and results of calls still in flight are discarded.
func (c *Controller) Unmount() error {
	return c.do(c.teardown)
}

// Refresh re-resolves the room. If the room id changed the old connection
// is closed before a new one is opened and history is reloaded. A view on
// the same room whose connection was lost, or never came up, reconnects
// and reloads history; otherwise only the room status is updated.
func (c *Controller) Refresh(ctx context.Context) error {
	var (
		gen     uint64
		blocked bool
	)
	if err := c.do(func() {
		gen = c.gen
		blocked = c.blocked
		if !c.mounted {
			gen = 0
		}
	}); err != nil {
		return err
	}
	if gen == 0 {
		return ErrNotMounted
	}
	if blocked {
		return ErrBlocked
	}

	room, err := c.backend.ResolveRoom(ctx)
	if err != nil {
		return c.resolveFailed(gen, err)
	}

	var (
		changed, reconnect bool
		prev               string
	)
	if !c.apply(gen, func() {
		if c.room != nil {
			prev = c.room.ID
		}
		changed = prev != room.ID
		// A dial still in flight leaves the machine in Connecting.
		reconnect = !changed && c.conn == nil && c.machine.Current() == status.Disconnected
		if changed || reconnect {
			c.closeConn()
		}
		if changed {
			c.msgs = nil
			c.seen = make(map[string]struct{})
			c.agentTyping = false
		}
		c.room = &room
		c.publish()
		c.bus.Emit(bus.KindRoom, room)
	}) {
		return ErrNotMounted
	}

	switch {
	case changed:
		c.log.Info("room changed", zap.String("from", prev), zap.String("to", room.ID))
	case reconnect:
		c.log.Info("reconnecting", zap.String("room_id", room.ID))
	default:
		return nil
	}
	return c.attach(ctx, gen, room.ID)
}

// resolveFailed records a failed room resolution.
func (c *Controller) resolveFailed(gen uint64, err error) error {
	forbidden := errors.Is(err, backend.ErrForbidden)
	if !c.apply(gen, func() {
		c.loading = false
		if forbidden {
			c.blocked = true
			c.closeConn()
			c.notify(NoticeError, ErrBlocked.Error())
		} else {
			c.notify(NoticeError, "Could not open support chat: "+err.Error())
		}
		c.publish()
	}) {
		return ErrNotMounted
	}
	if forbidden {
		c.log.Warn("room resolution forbidden, chat blocked")
		return fmt.Errorf("%w: %w", ErrBlocked, err)
	}
	c.log.Error("room resolution failed", zap.Error(err))
	return err
}

// attach loads history and connects for roomID concurrently.
func (c *Controller) attach(ctx context.Context, gen uint64, roomID string) error {
	var (
		wg                  sync.WaitGroup
		historyErr, connErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		historyErr = c.loadHistory(ctx, gen, roomID)
	}()
	go func() {
		defer wg.Done()
		connErr = c.connect(ctx, gen, roomID)
	}()
	wg.Wait()
	return errors.Join(historyErr, connErr)
}

func (c *Controller) loadHistory(ctx context.Context, gen uint64, roomID string) error {
	msgs, err := c.backend.History(ctx, roomID)
	if err != nil {
		c.log.Error("history fetch failed", zap.String("room_id", roomID), zap.Error(err))
		c.apply(gen, func() {
			c.notify(NoticeError, "Could not load chat history: "+err.Error())
		})
		return fmt.Errorf("load history: %w", err)
	}

	if !c.apply(gen, func() {
		if c.room == nil || c.room.ID != roomID {
			return
		}
		c.msgs = msgs
		c.seen = make(map[string]struct{}, len(msgs))
		for _, m := range msgs {
			c.seen[m.ID] = struct{}{}
		}
		c.publish()
		c.bus.Emit(bus.KindHistoryLoaded, HistoryLoaded{RoomID: roomID, Messages: msgs})
	}) {
		return ErrNotMounted
	}
	c.log.Debug("history loaded", zap.String("room_id", roomID), zap.Int("count", len(msgs)))
	return nil
}

func (c *Controller) connect(ctx context.Context, gen uint64, roomID string) error {
	if !c.apply(gen, func() {
		if err := c.machine.Transition(status.Connecting); err != nil {
			c.log.Warn("connect from unexpected state", zap.Error(err))
		}
		c.publish()
	}) {
		return ErrNotMounted
	}

	t, err := c.dial(ctx)
	if err != nil {
		c.log.Error("connect failed", zap.String("room_id", roomID), zap.Error(err))
		c.apply(gen, func() {
			// A refresh may have moved on to another room and its own dial.
			if c.room == nil || c.room.ID != roomID || c.conn != nil {
				return
			}
			c.machine.Reset()
			c.notify(NoticeError, "Could not connect to support: "+err.Error())
			c.publish()
		})
		return fmt.Errorf("connect: %w", err)
	}

	var attached, superseded bool
	c.apply(gen, func() {
		if c.room == nil || c.room.ID != roomID {
			return
		}
		if c.conn != nil {
			superseded = true
			return
		}
		c.conn = t
		if err := c.machine.Transition(status.Connected); err != nil {
			c.log.Warn("attach from unexpected state", zap.Error(err))
		}
		c.emit(model.EventUserOnline, model.Presence{UserID: c.ident.UserID, Role: model.RoleMerchant})
		c.emit(model.EventJoinRoom, model.RoomRef{RoomID: roomID})
		c.markRead()
		c.publish()
		go c.read(t)
		attached = true
	})
	if !attached {
		_ = t.Close()
		if superseded {
			return nil
		}
		return ErrNotMounted
	}
	c.log.Info("connected", zap.String("room_id", roomID))
	return nil
}

// read forwards inbound events of t to the loop until t ends.
func (c *Controller) read(t Transport) {
	for env := range t.Events() {
		env := env
		c.post(func() {
			if c.conn != t {
				return
			}
			c.handle(env)
		})
	}
	c.post(func() {
		if c.conn != t {
			return
		}
		c.conn = nil
		c.agentTyping = false
		c.stopTypingTimer()
		c.machine.Reset()
		c.log.Warn("connection lost")
		c.notify(NoticeError, "Connection to support lost")
		c.publish()
	})
}

// closeConn closes the live connection, if any, and clears the typing timer.
func (c *Controller) closeConn() {
	c.stopTypingTimer()
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.log.Debug("close connection", zap.Error(err))
		}
		c.conn = nil
	}
	c.machine.Reset()
}

func (c *Controller) teardown() {
	if !c.mounted {
		return
	}
	c.gen++
	c.mounted = false
	c.loading = false
	c.uploading = false
	c.closeConn()
	c.log.Info("chat view unmounted")
	c.publish()
}
