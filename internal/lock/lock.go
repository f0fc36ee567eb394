package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const fileName = "LOCK"

// LockHeldError is returned when another deskchat already has the profile open.
type LockHeldError struct {
	Holder Holder
	Path   string
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("profile already open in another deskchat (PID %d, %s)", e.Holder.PID, e.Path)
}

// Holder describes the process that owns a profile lock.
type Holder struct {
	PID     int
	Profile string
	Since   time.Time
}

// Lock is an acquired profile lock. While held, no second chat view can
// mount for the same profile.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive, non-blocking lock on the profile directory.
// Returns LockHeldError if another process already holds it.
func Acquire(profileDir, profileName string) (*Lock, error) {
	lockPath := filepath.Join(profileDir, fileName)

	if err := os.MkdirAll(profileDir, 0700); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		holder, _ := ReadHolder(profileDir)
		_ = f.Close()
		return nil, &LockHeldError{Holder: holder, Path: lockPath}
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = f.Close()
		return nil, err
	}
	content := fmt.Sprintf("pid=%d\nprofile=%s\ntime=%s\n", os.Getpid(), profileName, time.Now().UTC().Format(time.RFC3339))
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Lock{file: f, path: lockPath}, nil
}

// Release releases the lock. Safe to call on nil receiver and more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadHolder parses the lock file of a profile directory. It does not check
// whether the lock is actually held.
func ReadHolder(profileDir string) (Holder, error) {
	data, err := os.ReadFile(filepath.Join(profileDir, fileName))
	if err != nil {
		return Holder{}, err
	}
	return parseHolder(string(data)), nil
}

func parseHolder(content string) Holder {
	var h Holder
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			h.PID, _ = strconv.Atoi(value)
		case "profile":
			h.Profile = value
		case "time":
			h.Since, _ = time.Parse(time.RFC3339, value)
		}
	}
	return h
}
