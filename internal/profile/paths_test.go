package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDir(t *testing.T) {
	home, _ := os.UserHomeDir()
	got := Dir("main")
	want := filepath.Join(home, ".deskchat", "profiles", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestSocketPath(t *testing.T) {
	got := SocketPath("test")
	if !strings.HasSuffix(got, filepath.Join("profiles", "test", "deskchat.sock")) {
		t.Errorf("SocketPath(test) = %q, want suffix profiles/test/deskchat.sock", got)
	}
}

func TestLockPath(t *testing.T) {
	got := LockPath("test")
	if !strings.HasSuffix(got, filepath.Join("profiles", "test", "LOCK")) {
		t.Errorf("LockPath(test) = %q, want suffix profiles/test/LOCK", got)
	}
}

func TestEnsureDirAndList(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := EnsureDir("shop"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(LogDir("shop"))
	if err != nil {
		t.Fatalf("log dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("log dir is not a directory")
	}

	// Directories that are not valid profile names are ignored.
	if err := os.MkdirAll(filepath.Join(BaseDir(), "profiles", "Not Valid"), 0700); err != nil {
		t.Fatal(err)
	}

	names, err := List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "shop" {
		t.Errorf("List() = %v, want [shop]", names)
	}
}

func TestListWithoutBaseDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	names, err := List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 0 {
		t.Errorf("List() = %v, want empty", names)
	}
}
