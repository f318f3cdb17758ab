// Package logging appends error lines and, when enabled, JSON trace entries
// to a single log file shared by every goroutine of the popup.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const defaultLogFile = "openhab-popup.log"

type sink struct {
	mu    sync.Mutex
	path  string
	trace bool
}

var shared = &sink{path: defaultLogFile}

// entry is one line of the trace stream.
type entry struct {
	Time    time.Time   `json:"time"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// appendTo opens the log file for appending and hands it to write. The
// lock is held across the write so lines from concurrent goroutines never
// interleave.
func (s *sink) appendTo(write func(io.Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}

// Error writes err to the log file. nil is ignored.
func Error(err error) {
	if err == nil {
		return
	}
	if ferr := shared.appendTo(func(w io.Writer) error {
		return log.New(w, "", log.LstdFlags).Output(2, err.Error())
	}); ferr != nil {
		fmt.Fprintf(os.Stderr, "logging failed: %v\n", ferr)
	}
}

// SetTraceEnabled toggles emission of structured trace entries.
func SetTraceEnabled(enabled bool) {
	shared.mu.Lock()
	shared.trace = enabled
	shared.mu.Unlock()
}

// TraceEnabled reports whether structured tracing is active.
func TraceEnabled() bool {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	return shared.trace
}

// Trace appends a JSON entry for event when tracing is enabled.
func Trace(event string, payload interface{}) {
	if !TraceEnabled() {
		return
	}
	e := entry{Time: time.Now().UTC(), Event: event, Payload: payload}
	if err := shared.appendTo(func(w io.Writer) error {
		return json.NewEncoder(w).Encode(e)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "trace logging failed: %v\n", err)
	}
}

// Configure sets the log destination. An empty path selects the default
// file; missing directories are created.
func Configure(path string) {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	if strings.TrimSpace(path) == "" {
		shared.path = defaultLogFile
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "unable to create log directory: %v\n", err)
		shared.path = defaultLogFile
		return
	}
	shared.path = path
}

// Path returns the active log destination.
func Path() string {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	return shared.path
}
