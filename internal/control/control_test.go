package control

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/deskchat/internal/bus"
	"github.com/matheus3301/deskchat/internal/chat"
	"github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/status"
)

type fakeChat struct {
	mu      sync.Mutex
	snap    chat.Snapshot
	said    []string
	sayErr  error
	refresh int
}

func (f *fakeChat) Snapshot() chat.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeChat) Identity() model.Identity {
	return model.Identity{UserID: "u1", Username: "shop-one"}
}

func (f *fakeChat) Say(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sayErr != nil {
		return f.sayErr
	}
	f.said = append(f.said, text)
	return nil
}

func (f *fakeChat) Refresh(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh++
	return nil
}

func startServer(t *testing.T, c Chat, b *bus.Bus) *Client {
	t.Helper()
	// Use a short path to avoid the 104-char Unix socket limit on macOS.
	dir, err := os.MkdirTemp("/tmp", "deskchat-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	socket := filepath.Join(dir, "c.sock")

	logger, _ := zap.NewDevelopment()
	srv, err := NewServer(socket, NewService("main", c, b, logger), logger)
	require.NoError(t, err)
	go func() { _ = srv.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Stop(ctx)
	})

	info, err := os.Stat(socket)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	client, err := Dial(socket)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGetState(t *testing.T) {
	fc := &fakeChat{snap: chat.Snapshot{
		Mounted:  true,
		Room:     &model.Room{ID: "r1", Status: model.RoomActive},
		Messages: []model.Message{{ID: "m1", Message: "hi"}},
		Conn:     status.Connected,
	}}
	client := startServer(t, fc, bus.New())

	state, err := client.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "main", state["profile"])
	assert.Equal(t, "u1", state["user_id"])
	assert.Equal(t, "r1", state["room_id"])
	assert.Equal(t, "active", state["room_status"])
	assert.Equal(t, "CONNECTED", state["connection"])
	assert.Equal(t, float64(1), state["message_count"])
	last, ok := state["last_message"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi", last["message"])
}

func TestSendText(t *testing.T) {
	fc := &fakeChat{}
	client := startServer(t, fc, bus.New())

	require.NoError(t, client.Send(context.Background(), "  hello  "))
	assert.Equal(t, []string{"hello"}, fc.said)

	err := client.Send(context.Background(), "   ")
	assert.Equal(t, codes.InvalidArgument, grpcstatus.Code(err))
}

func TestSendTextErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{chat.ErrNoRoom, codes.FailedPrecondition},
		{chat.ErrNotMounted, codes.Unavailable},
		{chat.ErrBlocked, codes.PermissionDenied},
		{errors.New("other"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			client := startServer(t, &fakeChat{sayErr: tt.err}, bus.New())
			err := client.Send(context.Background(), "hi")
			assert.Equal(t, tt.want, grpcstatus.Code(err))
		})
	}
}

func TestRefresh(t *testing.T) {
	fc := &fakeChat{}
	client := startServer(t, fc, bus.New())

	require.NoError(t, client.Refresh(context.Background()))
	assert.Equal(t, 1, fc.refresh)
}

func TestWatchEvents(t *testing.T) {
	b := bus.New()
	client := startServer(t, &fakeChat{}, b)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got := make(chan Event, 1)
	go func() {
		_ = client.Watch(ctx, func(e Event) error {
			got <- e
			return errors.New("done")
		})
	}()

	// The subscription is registered asynchronously; keep publishing until
	// the stream picks one up.
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case e := <-got:
			assert.Equal(t, bus.KindNotice, e.Kind)
			assert.NotEmpty(t, e.ID)
			payload, ok := e.Payload.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "Ana joined the chat!", payload["Text"])
			return
		case <-tick.C:
			b.Emit(bus.KindNotice, chat.Notice{Level: chat.NoticeInfo, Text: "Ana joined the chat!"})
		case <-ctx.Done():
			t.Fatal("no event received")
		}
	}
}
