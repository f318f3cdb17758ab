package companion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/atomicstack/openhab-popup/internal/logging"
	"github.com/atomicstack/openhab-popup/internal/logging/events"
	"github.com/atomicstack/openhab-popup/internal/session"
)

// Receiver watches a drop file holding a JSON bundle and applies it to the
// session every time the file is written.
type Receiver struct {
	path      string
	session   *session.Session
	onApplied func(Result)
}

// NewReceiver creates a receiver for path. onApplied runs on the receiver's
// goroutine after each successful apply.
func NewReceiver(path string, sess *session.Session, onApplied func(Result)) *Receiver {
	return &Receiver{path: filepath.Clean(path), session: sess, onApplied: onApplied}
}

// Load applies the current contents of the drop file once.
func (r *Receiver) Load() (Result, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return Result{}, err
	}
	var bundle map[string]any
	if err := json.Unmarshal(data, &bundle); err != nil {
		return Result{}, fmt.Errorf("decode companion bundle %s: %w", r.path, err)
	}
	return Apply(r.path, r.session, bundle), nil
}

// Run watches the drop file until ctx ends. A file present at start is
// applied immediately.
func (r *Receiver) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create companion watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create companion directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if _, statErr := os.Stat(r.path); statErr == nil {
		r.reload()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != r.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				r.reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error(err)
			events.Companion.Error(r.path, err)
		}
	}
}

func (r *Receiver) reload() {
	res, err := r.Load()
	if err != nil {
		// a writer may still be filling the file; the next write event retries
		if !errors.Is(err, os.ErrNotExist) {
			events.Companion.Error(r.path, err)
		}
		return
	}
	if r.onApplied != nil {
		r.onApplied(res)
	}
}
