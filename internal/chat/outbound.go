package chat

import (
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/matheus3301/deskchat/internal/metrics"
	"github.com/matheus3301/deskchat/internal/model"
)

// Keystroke replaces the draft with text. While connected it also signals
// typing and restarts the idle timer; "not typing" follows once the timer
// expires with no further keystroke.
func (c *Controller) Keystroke(text string) error {
	var err error
	if doErr := c.do(func() {
		if !c.mounted {
			err = ErrNotMounted
			return
		}
		c.draft = text
		if c.conn != nil && c.room != nil {
			c.startTyping()
		}
		c.publish()
	}); doErr != nil {
		return doErr
	}
	return err
}

// SendText sends the trimmed draft as a text message, clears the draft and
// ends the typing burst. An empty or whitespace-only draft is a no-op.
func (c *Controller) SendText() error {
	var err error
	if doErr := c.do(func() { err = c.sendDraft() }); doErr != nil {
		return doErr
	}
	return err
}

// Say replaces the draft with text and sends it.
func (c *Controller) Say(text string) error {
	var err error
	if doErr := c.do(func() {
		if !c.mounted {
			err = ErrNotMounted
			return
		}
		c.draft = text
		err = c.sendDraft()
	}); doErr != nil {
		return doErr
	}
	return err
}

func (c *Controller) sendDraft() error {
	if !c.mounted {
		return ErrNotMounted
	}
	text := strings.TrimSpace(c.draft)
	if text == "" {
		return nil
	}
	if c.conn == nil || c.room == nil {
		return ErrNoRoom
	}

	if c.emit(model.EventSendMessage, model.OutgoingMessage{
		RoomID:       c.room.ID,
		Message:      text,
		MessageType:  model.TypeText,
		SenderName:   c.ident.Username,
		SenderAvatar: c.ident.Avatar,
	}) {
		metrics.MessagesSent.WithLabelValues(string(model.TypeText)).Inc()
	}
	c.draft = ""
	c.stopTyping()
	c.publish()
	return nil
}

// SendImage uploads r and, on success, sends it as an image message. It
// blocks until the upload settles. Only one upload may be in flight; r is
// closed afterwards if it is an io.Closer.
func (c *Controller) SendImage(ctx context.Context, filename string, r io.Reader) error {
	if rc, ok := r.(io.Closer); ok {
		defer rc.Close()
	}

	var (
		gen    uint64
		roomID string
		err    error
	)
	if doErr := c.do(func() {
		switch {
		case !c.mounted:
			err = ErrNotMounted
		case c.uploading:
			err = ErrUploadInFlight
		case c.conn == nil || c.room == nil:
			err = ErrNoRoom
		default:
			gen = c.gen
			roomID = c.room.ID
			c.uploading = true
			c.publish()
		}
	}); doErr != nil {
		return doErr
	}
	if err != nil {
		return err
	}

	url, upErr := c.backend.Upload(ctx, filename, r)
	if upErr != nil {
		metrics.Uploads.WithLabelValues("error").Inc()
		c.log.Error("image upload failed", zap.String("file", filename), zap.Error(upErr))
	} else {
		metrics.Uploads.WithLabelValues("ok").Inc()
	}

	if !c.apply(gen, func() {
		c.uploading = false
		defer c.publish()
		if upErr != nil {
			c.notify(NoticeError, "Image upload failed")
			return
		}
		if c.conn == nil || c.room == nil || c.room.ID != roomID {
			err = ErrNoRoom
			return
		}
		if c.emit(model.EventSendMessage, model.OutgoingMessage{
			RoomID:       roomID,
			Message:      "",
			MessageType:  model.TypeImage,
			ImageURL:     url,
			SenderName:   c.ident.Username,
			SenderAvatar: c.ident.Avatar,
		}) {
			metrics.MessagesSent.WithLabelValues(string(model.TypeImage)).Inc()
		}
	}) {
		return ErrNotMounted
	}
	if upErr != nil {
		return upErr
	}
	return err
}

// startTyping emits "is typing" and restarts the idle timer. A timer whose
// sequence number is stale when its callback reaches the loop is ignored.
func (c *Controller) startTyping() {
	c.emitTyping(true)
	c.stopTypingTimer()
	seq := c.typingSeq
	c.typingTimer = c.sched.AfterFunc(c.idle, func() {
		c.post(func() {
			if c.typingSeq != seq {
				return
			}
			c.typingSeq++
			c.typingTimer = nil
			c.emitTyping(false)
		})
	})
}

// stopTyping cancels a pending idle timer and emits "not typing".
func (c *Controller) stopTyping() {
	c.stopTypingTimer()
	c.emitTyping(false)
}

func (c *Controller) stopTypingTimer() {
	c.typingSeq++
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
}

func (c *Controller) emitTyping(on bool) {
	if c.room == nil {
		return
	}
	if c.emit(model.EventTyping, model.Typing{RoomID: c.room.ID, IsTyping: on}) {
		metrics.RecordTyping(on)
	}
}
