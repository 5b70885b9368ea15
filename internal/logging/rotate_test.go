package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func backupsOf(t *testing.T, path string) []string {
	t.Helper()
	ext := filepath.Ext(path)
	pattern := strings.TrimSuffix(path, ext) + "-*" + ext
	matches, err := filepath.Glob(pattern)
	if err != nil {
		t.Fatalf("glob %s: %v", pattern, err)
	}
	return matches
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestRotatingFileRollsAtMidnight(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	clock := &fakeClock{now: time.Date(2024, 1, 1, 23, 59, 0, 0, time.Local)}

	f, err := openRotatingFile(path, Rotation{AtMidnight: true, Backups: 6}, clock.Now)
	if err != nil {
		t.Fatalf("openRotatingFile returned error: %v", err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("before midnight\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	clock.now = clock.now.Add(30 * time.Second)
	if _, err := f.Write([]byte("still today\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if backups := backupsOf(t, path); len(backups) != 0 {
		t.Fatalf("expected no rotation before midnight, got %v", backups)
	}

	clock.now = clock.now.Add(time.Minute)
	if _, err := f.Write([]byte("after midnight\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := readFile(t, path); got != "after midnight\n" {
		t.Fatalf("expected fresh file after rotation, got %q", got)
	}
	backups := backupsOf(t, path)
	if len(backups) != 1 {
		t.Fatalf("expected one backup, got %v", backups)
	}
	if got := readFile(t, backups[0]); got != "before midnight\nstill today\n" {
		t.Fatalf("unexpected backup content %q", got)
	}
}

func TestRotatingFileRollsStaleFileOnFirstWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("yesterday\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.Local)
	yesterday := now.AddDate(0, 0, -1)
	if err := os.Chtimes(path, yesterday, yesterday); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	f, err := openRotatingFile(path, Rotation{AtMidnight: true, Backups: 6}, func() time.Time { return now })
	if err != nil {
		t.Fatalf("openRotatingFile returned error: %v", err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("today\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readFile(t, path); got != "today\n" {
		t.Fatalf("expected stale content to be rotated away, got %q", got)
	}
}

func TestRotatingFileKeepsConfiguredBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local)}

	f, err := openRotatingFile(path, Rotation{AtMidnight: true, Backups: 6}, clock.Now)
	if err != nil {
		t.Fatalf("openRotatingFile returned error: %v", err)
	}
	defer f.Close()

	for day := 0; day < 9; day++ {
		if _, err := f.Write([]byte("entry\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
		clock.now = clock.now.AddDate(0, 0, 1)
		// lumberjack names backups with millisecond precision.
		time.Sleep(3 * time.Millisecond)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		n := len(backupsOf(t, path))
		if n == 6 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 6 backups to be retained, got %d", n)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestOpenRotatingFileSurfacesErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "app.log")
	if _, err := openRotatingFile(path, Rotation{AtMidnight: true}, time.Now); err == nil {
		t.Fatalf("expected error when the directory does not exist")
	}
}

func TestNextMidnight(t *testing.T) {
	got := nextMidnight(time.Date(2024, 12, 31, 18, 30, 0, 0, time.UTC))
	if want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
