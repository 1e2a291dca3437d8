package app

import (
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// BinaryWatcher polls the running executable's mod time and fires a callback
// once when a newer build appears on disk. Development convenience so a
// rebuild can prompt for restart.
type BinaryWatcher struct {
	path     string
	baseline time.Time
	interval time.Duration
	stop     chan struct{}
	onUpdate func()
}

// NewBinaryWatcher watches the current executable. Returns nil when the
// executable path cannot be resolved.
func NewBinaryWatcher(interval time.Duration) *BinaryWatcher {
	path, err := os.Executable()
	if err != nil {
		return nil
	}
	// go build replaces the file behind the symlink
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	return &BinaryWatcher{
		path:     path,
		baseline: info.ModTime(),
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// OnUpdate sets the callback invoked when a newer binary is detected. It
// runs on a background goroutine.
func (w *BinaryWatcher) OnUpdate(fn func()) {
	w.onUpdate = fn
}

// Start begins polling in a background goroutine.
func (w *BinaryWatcher) Start() {
	w.stop = make(chan struct{})
	go w.loop()
}

// Stop ends polling.
func (w *BinaryWatcher) Stop() {
	close(w.stop)
}

func (w *BinaryWatcher) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			info, err := os.Stat(w.path)
			if err != nil {
				continue
			}
			if info.ModTime().After(w.baseline) {
				if w.onUpdate != nil {
					w.onUpdate()
				}
				return
			}
		}
	}
}

// Dismiss moves the baseline forward so a declined restart does not prompt
// again for the same build.
func (w *BinaryWatcher) Dismiss() {
	if info, err := os.Stat(w.path); err == nil {
		w.baseline = info.ModTime()
	}
}

// Restart replaces the current process with a fresh instance of the binary,
// preserving arguments and environment. Does not return on success.
func (w *BinaryWatcher) Restart() error {
	return syscall.Exec(w.path, os.Args, os.Environ())
}
