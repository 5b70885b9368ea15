package logging

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// lumberjack always rotates by size; this cap keeps that trigger out of the
// way when only the midnight trigger is wanted.
const timeOnlyMaxSizeMB = 1 << 20

// rotatingFile appends to a lumberjack-managed file and forces a rotation the
// first time it is written on or after local midnight.
type rotatingFile struct {
	mu   sync.Mutex
	out  *lumberjack.Logger
	now  func() time.Time
	next time.Time
	// daily is false when the sink rotates by size only.
	daily bool
}

// openRotatingFile creates path if needed so permission problems surface
// here rather than on the first write.
func openRotatingFile(path string, rotation Rotation, now func() time.Time) (*rotatingFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, statErr := f.Stat()
	if closeErr := f.Close(); closeErr != nil {
		return nil, fmt.Errorf("open log file: %w", closeErr)
	}

	maxSize := rotation.MaxSizeMB
	if maxSize <= 0 {
		maxSize = timeOnlyMaxSizeMB
	}

	r := &rotatingFile{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSize,
			MaxBackups: rotation.Backups,
			LocalTime:  true,
		},
		now:   now,
		daily: rotation.AtMidnight,
	}

	// An existing file is due for rotation at the midnight after it was last
	// written, so a file left over from yesterday rolls on the first write.
	since := now()
	if statErr == nil && info.Size() > 0 && info.ModTime().Before(since) {
		since = info.ModTime()
	}
	r.next = nextMidnight(since)
	return r, nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.daily {
		if now := r.now(); !now.Before(r.next) {
			if err := r.out.Rotate(); err != nil {
				return 0, fmt.Errorf("rotate %s: %w", r.out.Filename, err)
			}
			r.next = nextMidnight(now)
		}
	}
	return r.out.Write(p)
}

// Sync is a no-op: lumberjack writes straight to the file descriptor.
func (r *rotatingFile) Sync() error {
	return nil
}

func (r *rotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out.Close()
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
