package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	tmpDir := t.TempDir()

	l, err := Acquire(tmpDir, "main")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	holder, err := ReadHolder(tmpDir)
	if err != nil {
		t.Fatalf("ReadHolder() error = %v", err)
	}
	if holder.PID != os.Getpid() {
		t.Errorf("holder PID = %d, want %d", holder.PID, os.Getpid())
	}
	if holder.Profile != "main" {
		t.Errorf("holder profile = %q, want main", holder.Profile)
	}
	if holder.Since.IsZero() {
		t.Error("holder time not recorded")
	}

	if err := l.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "LOCK")); !os.IsNotExist(err) {
		t.Errorf("lock file still present after Release, stat err = %v", err)
	}
}

func TestDoubleAcquireFails(t *testing.T) {
	tmpDir := t.TempDir()

	l1, err := Acquire(tmpDir, "main")
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer func() { _ = l1.Release() }()

	_, err = Acquire(tmpDir, "main")
	if err == nil {
		t.Fatal("second Acquire() should fail")
	}

	var lockErr *LockHeldError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected LockHeldError, got %T: %v", err, err)
	}
	if lockErr.Holder.PID != os.Getpid() {
		t.Errorf("LockHeldError PID = %d, want %d", lockErr.Holder.PID, os.Getpid())
	}
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	tmpDir := t.TempDir()

	l, err := Acquire(tmpDir, "main")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if err := l.Release(); err != nil {
		t.Errorf("first Release() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

func TestParseHolderIgnoresGarbage(t *testing.T) {
	h := parseHolder("junk\npid=abc\nprofile=shop\n")
	if h.PID != 0 {
		t.Errorf("PID = %d, want 0", h.PID)
	}
	if h.Profile != "shop" {
		t.Errorf("Profile = %q, want shop", h.Profile)
	}
}
