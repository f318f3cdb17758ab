// Package testutil provides an in-process fake openHAB server for tests.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// Request is one recorded call to the fake server.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// Command is a recorded item command.
type Command struct {
	Item    string
	Command string
}

// OpenHAB serves sitemap pages under /rest/sitemaps/{name}/{name} and
// accepts commands under /rest/items/{name}. Long-poll requests block until
// Push is called, the hold time elapses or the client goes away.
type OpenHAB struct {
	*httptest.Server

	mu          sync.Mutex
	pages       map[string][]byte
	trackingID  string
	failures    []int
	commandCode int
	username    string
	password    string
	hold        time.Duration
	requests    []Request
	commands    []Command
	push        chan struct{}
	commandGate chan struct{}
}

// NewOpenHAB starts a fake server that is closed with the test.
func NewOpenHAB(t *testing.T) *OpenHAB {
	t.Helper()
	f := &OpenHAB{
		pages:       make(map[string][]byte),
		commandCode: http.StatusOK,
		hold:        5 * time.Second,
		push:        make(chan struct{}),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// NewOpenHABTLS is NewOpenHAB over a self-signed TLS listener.
func NewOpenHABTLS(t *testing.T) *OpenHAB {
	t.Helper()
	f := &OpenHAB{
		pages:       make(map[string][]byte),
		commandCode: http.StatusOK,
		hold:        5 * time.Second,
		push:        make(chan struct{}),
	}
	f.Server = httptest.NewTLSServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// SetPage installs the payload served for sitemap name.
func (f *OpenHAB) SetPage(name string, payload []byte) {
	f.mu.Lock()
	f.pages[name] = append([]byte(nil), payload...)
	f.mu.Unlock()
}

// SetTrackingID makes every page response carry id in the tracking header.
func (f *OpenHAB) SetTrackingID(id string) {
	f.mu.Lock()
	f.trackingID = id
	f.mu.Unlock()
}

// SetHold bounds how long long-poll requests are held without a Push.
func (f *OpenHAB) SetHold(d time.Duration) {
	f.mu.Lock()
	f.hold = d
	f.mu.Unlock()
}

// RequireAuth rejects requests without the given basic-auth pair.
func (f *OpenHAB) RequireAuth(username, password string) {
	f.mu.Lock()
	f.username, f.password = username, password
	f.mu.Unlock()
}

// FailNext queues status codes returned by the next page requests.
func (f *OpenHAB) FailNext(codes ...int) {
	f.mu.Lock()
	f.failures = append(f.failures, codes...)
	f.mu.Unlock()
}

// SetCommandStatus sets the status code returned for commands.
func (f *OpenHAB) SetCommandStatus(code int) {
	f.mu.Lock()
	f.commandCode = code
	f.mu.Unlock()
}

// GateCommands makes command requests block until the returned function is
// called.
func (f *OpenHAB) GateCommands() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.commandGate = gate
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Push releases every long-poll request currently held.
func (f *OpenHAB) Push() {
	f.mu.Lock()
	close(f.push)
	f.push = make(chan struct{})
	f.mu.Unlock()
}

// Requests returns a copy of the recorded requests.
func (f *OpenHAB) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// Commands returns a copy of the recorded commands.
func (f *OpenHAB) Commands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Command, len(f.commands))
	copy(out, f.commands)
	return out
}

// SitemapURL is the page URL for name.
func (f *OpenHAB) SitemapURL(name string) string {
	return f.URL + "/rest/sitemaps/" + name + "/" + name
}

// ItemURL is the command link for an item.
func (f *OpenHAB) ItemURL(name string) string {
	return f.URL + "/rest/items/" + name
}

func (f *OpenHAB) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   string(body),
	})
	username, password := f.username, f.password
	f.mu.Unlock()

	if username != "" {
		user, pass, ok := r.BasicAuth()
		if !ok || user != username || pass != password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/rest/sitemaps/"):
		f.servePage(w, r)
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/rest/items/"):
		f.serveCommand(w, r, string(body))
	default:
		http.NotFound(w, r)
	}
}

func (f *OpenHAB) servePage(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/rest/sitemaps/"), "/")
	name := parts[0]

	f.mu.Lock()
	var failure int
	if len(f.failures) > 0 {
		failure = f.failures[0]
		f.failures = f.failures[1:]
	}
	push := f.push
	hold := f.hold
	f.mu.Unlock()

	if failure != 0 {
		w.WriteHeader(failure)
		return
	}

	if r.Header.Get("X-Atmosphere-Transport") == "long-polling" {
		timer := time.NewTimer(hold)
		defer timer.Stop()
		select {
		case <-push:
		case <-timer.C:
		case <-r.Context().Done():
			return
		}
	}

	f.mu.Lock()
	payload, ok := f.pages[name]
	tracking := f.trackingID
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if tracking != "" {
		w.Header().Set("X-Atmosphere-tracking-id", tracking)
	}
	if r.Header.Get("Accept") == "application/xml" {
		w.Header().Set("Content-Type", "application/xml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	_, _ = w.Write(payload)
}

func (f *OpenHAB) serveCommand(w http.ResponseWriter, r *http.Request, body string) {
	f.mu.Lock()
	gate := f.commandGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	f.mu.Lock()
	f.commands = append(f.commands, Command{
		Item:    strings.TrimPrefix(r.URL.Path, "/rest/items/"),
		Command: body,
	})
	code := f.commandCode
	f.mu.Unlock()
	w.WriteHeader(code)
}
