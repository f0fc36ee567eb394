package model

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/deskchat/internal/chat"
	domain "github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/store"
)

// 1x1 PNG header is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fakeChat struct {
	snap     chat.Snapshot
	typed    []string
	sent     int
	uploaded string
	body     []byte
}

func (f *fakeChat) Mount(context.Context) error   { return nil }
func (f *fakeChat) Unmount() error                { return nil }
func (f *fakeChat) Refresh(context.Context) error { return nil }
func (f *fakeChat) Snapshot() chat.Snapshot       { return f.snap }
func (f *fakeChat) Identity() domain.Identity     { return domain.Identity{UserID: "m-1"} }
func (f *fakeChat) Keystroke(text string) error {
	f.typed = append(f.typed, text)
	return nil
}
func (f *fakeChat) SendText() error {
	f.sent++
	return nil
}
func (f *fakeChat) SendImage(_ context.Context, filename string, r io.Reader) error {
	f.uploaded = filename
	b, err := io.ReadAll(r)
	f.body = b
	if c, ok := r.(io.Closer); ok {
		_ = c.Close()
	}
	return err
}

type fakeFAQ struct {
	entries []domain.FAQEntry
	err     error
}

func (f fakeFAQ) FAQ(context.Context) ([]domain.FAQEntry, error) { return f.entries, f.err }

type fakeArchive struct {
	query, room string
}

func (f *fakeArchive) SearchMessages(query, roomID string, _ int) ([]store.SearchResult, error) {
	f.query, f.room = query, roomID
	return []store.SearchResult{{Snippet: "<<" + query + ">>"}}, nil
}

func TestTypeAndSendForward(t *testing.T) {
	c := &fakeChat{}
	vm := NewViewModel(c, nil, nil)

	require.NoError(t, vm.Type("he"))
	require.NoError(t, vm.Type("hey"))
	require.NoError(t, vm.Send())

	assert.Equal(t, []string{"he", "hey"}, c.typed)
	assert.Equal(t, 1, c.sent)
}

func TestAttachImage(t *testing.T) {
	c := &fakeChat{}
	vm := NewViewModel(c, nil, nil)
	path := filepath.Join(t.TempDir(), "receipt.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0600))

	require.NoError(t, vm.AttachImage(context.Background(), path))
	assert.Equal(t, "receipt.png", c.uploaded)
	assert.Equal(t, pngHeader, c.body)
}

func TestAttachRejectsNonImage(t *testing.T) {
	c := &fakeChat{}
	vm := NewViewModel(c, nil, nil)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0600))

	err := vm.AttachImage(context.Background(), path)
	assert.ErrorIs(t, err, ErrNotImage)
	assert.Empty(t, c.uploaded)
}

func TestAttachMissingFile(t *testing.T) {
	vm := NewViewModel(&fakeChat{}, nil, nil)
	assert.ErrorIs(t, vm.AttachImage(context.Background(), "/nonexistent/x.png"), os.ErrNotExist)
	assert.Error(t, vm.AttachImage(context.Background(), "  "))
}

func TestLoadFAQ(t *testing.T) {
	entries := []domain.FAQEntry{{ID: "q1", Question: "How?"}}
	vm := NewViewModel(&fakeChat{}, fakeFAQ{entries: entries}, nil)

	require.NoError(t, vm.LoadFAQ(context.Background()))
	assert.Equal(t, entries, vm.GetFAQ())

	boom := errors.New("boom")
	vm = NewViewModel(&fakeChat{}, fakeFAQ{err: boom}, nil)
	assert.ErrorIs(t, vm.LoadFAQ(context.Background()), boom)
	assert.Empty(t, vm.GetFAQ())
}

func TestSearchScopesToRoom(t *testing.T) {
	arch := &fakeArchive{}
	c := &fakeChat{snap: chat.Snapshot{Room: &domain.Room{ID: "r1"}}}
	vm := NewViewModel(c, nil, arch)

	results, err := vm.Search("  refund ")
	require.NoError(t, err)
	assert.Equal(t, "refund", arch.query)
	assert.Equal(t, "r1", arch.room)
	assert.Equal(t, results, vm.GetResults())

	_, err = vm.Search("")
	assert.Error(t, err)

	_, err = NewViewModel(c, nil, nil).Search("x")
	assert.Error(t, err)
}

func TestLatestImage(t *testing.T) {
	c := &fakeChat{snap: chat.Snapshot{Messages: []domain.Message{
		{ID: "1", MessageType: domain.TypeImage, ImageURL: "http://x/1.png"},
		{ID: "2", MessageType: domain.TypeImage, ImageURL: "http://x/2.png"},
		{ID: "3", MessageType: domain.TypeText, Message: "hi"},
	}}}
	vm := NewViewModel(c, nil, nil)

	m, ok := vm.LatestImage()
	require.True(t, ok)
	assert.Equal(t, "2", m.ID)

	_, ok = NewViewModel(&fakeChat{}, nil, nil).LatestImage()
	assert.False(t, ok)
}
