// Package model holds the TUI view model: the chat controller, the FAQ
// source and the local archive behind one surface the views call into.
package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/matheus3301/deskchat/internal/chat"
	domain "github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/store"
)

// ErrNotImage is returned when an attachment does not sniff as an image.
var ErrNotImage = errors.New("file is not an image")

const searchLimit = 50

// Chat is the part of the chat controller the TUI drives.
type Chat interface {
	Mount(ctx context.Context) error
	Unmount() error
	Refresh(ctx context.Context) error
	Snapshot() chat.Snapshot
	Identity() domain.Identity
	Keystroke(text string) error
	SendText() error
	SendImage(ctx context.Context, filename string, r io.Reader) error
}

// FAQSource loads the quick-help entries.
type FAQSource interface {
	FAQ(ctx context.Context) ([]domain.FAQEntry, error)
}

// Archive searches recorded messages.
type Archive interface {
	SearchMessages(query, roomID string, limit int) ([]store.SearchResult, error)
}

// ViewModel caches what the views render and forwards user input.
type ViewModel struct {
	mu sync.RWMutex

	chat    Chat
	faq     FAQSource
	archive Archive

	entries []domain.FAQEntry
	results []store.SearchResult
}

// NewViewModel creates a view model. faq and archive may be nil.
func NewViewModel(c Chat, faq FAQSource, archive Archive) *ViewModel {
	return &ViewModel{chat: c, faq: faq, archive: archive}
}

// Mount opens the chat session.
func (vm *ViewModel) Mount(ctx context.Context) error {
	return vm.chat.Mount(ctx)
}

// Unmount closes the chat session.
func (vm *ViewModel) Unmount() error {
	return vm.chat.Unmount()
}

// Refresh re-resolves the room.
func (vm *ViewModel) Refresh(ctx context.Context) error {
	return vm.chat.Refresh(ctx)
}

// Snapshot returns the current chat state.
func (vm *ViewModel) Snapshot() chat.Snapshot {
	return vm.chat.Snapshot()
}

// Identity returns the merchant the session runs as.
func (vm *ViewModel) Identity() domain.Identity {
	return vm.chat.Identity()
}

// Type forwards the composer contents.
func (vm *ViewModel) Type(text string) error {
	return vm.chat.Keystroke(text)
}

// Send sends the current draft.
func (vm *ViewModel) Send() error {
	return vm.chat.SendText()
}

// AttachImage uploads the image at path and posts it to the room.
func (vm *ViewModel) AttachImage(ctx context.Context, path string) error {
	path = expandHome(strings.TrimSpace(path))
	if path == "" {
		return errors.New("usage: image <path>")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open attachment: %w", err)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		_ = f.Close()
		return fmt.Errorf("read attachment: %w", err)
	}
	if !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		_ = f.Close()
		return fmt.Errorf("%s: %w", filepath.Base(path), ErrNotImage)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return fmt.Errorf("rewind attachment: %w", err)
	}

	// SendImage owns f from here on.
	return vm.chat.SendImage(ctx, filepath.Base(path), f)
}

// LoadFAQ fetches the FAQ entries.
func (vm *ViewModel) LoadFAQ(ctx context.Context) error {
	if vm.faq == nil {
		return nil
	}
	entries, err := vm.faq.FAQ(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.entries = entries
	vm.mu.Unlock()
	return nil
}

// GetFAQ returns the loaded FAQ entries.
func (vm *ViewModel) GetFAQ() []domain.FAQEntry {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.entries
}

// Search queries the archive, scoped to the current room when there is one.
func (vm *ViewModel) Search(query string) ([]store.SearchResult, error) {
	if vm.archive == nil {
		return nil, errors.New("no local archive")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("usage: search <text>")
	}
	roomID := ""
	if snap := vm.chat.Snapshot(); snap.Room != nil {
		roomID = snap.Room.ID
	}
	results, err := vm.archive.SearchMessages(query, roomID, searchLimit)
	if err != nil {
		return nil, err
	}
	vm.mu.Lock()
	vm.results = results
	vm.mu.Unlock()
	return results, nil
}

// GetResults returns the last search results.
func (vm *ViewModel) GetResults() []store.SearchResult {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.results
}

// LatestImage returns the newest image message, if any.
func (vm *ViewModel) LatestImage() (domain.Message, bool) {
	msgs := vm.chat.Snapshot().Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsImage() && msgs[i].ImageURL != "" {
			return msgs[i], true
		}
	}
	return domain.Message{}, false
}

func expandHome(p string) string {
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return p
}
