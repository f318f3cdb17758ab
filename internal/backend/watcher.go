// Package backend runs the sitemap sync loop: it fetches the configured
// page, keeps it live through long polling and publishes decoded pages as
// events for the UI goroutine to apply.
package backend

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atomicstack/openhab-popup/internal/endpoint"
	"github.com/atomicstack/openhab-popup/internal/logging"
	"github.com/atomicstack/openhab-popup/internal/logging/events"
	"github.com/atomicstack/openhab-popup/internal/session"
	"github.com/atomicstack/openhab-popup/internal/sitemap"
	"github.com/atomicstack/openhab-popup/internal/state"
	"github.com/atomicstack/openhab-popup/internal/transport"
)

// Kind represents the type of data emitted by the watcher.
type Kind int

const (
	KindPage Kind = iota
	KindError
)

// Event conveys a decoded page or a user-visible failure. Seq identifies the
// fetch that produced it; Generation identifies the Load that started the
// chain of fetches it belongs to. Long-poll re-arms keep the generation.
type Event struct {
	Seq        uint64
	Generation uint64
	Kind       Kind
	Page *state.Page
	Err  error
}

// SyncState is the position of the sync loop state machine.
type SyncState int

const (
	StateIdle SyncState = iota
	StateFetching
	StateBackoff
)

func (s SyncState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateBackoff:
		return "backoff"
	}
	return "unknown"
}

// Fetcher issues page requests.
type Fetcher interface {
	FetchPage(ctx context.Context, req transport.PageRequest) (transport.PageResponse, error)
}

// Options configure a Watcher.
type Options struct {
	// Version selects the payload shape handed to the decoder.
	Version int
	// Commands is attached to every decoded page as its write path.
	Commands state.CommandFunc
	// MinInterval spaces long-poll re-arms. Zero selects the default,
	// a negative value disables spacing.
	MinInterval time.Duration
}

const defaultMinInterval = 250 * time.Millisecond

// Watcher owns the page lifecycle. At most one fetch is in flight; starting
// a new one cancels the previous fetch, whose result is then dropped.
type Watcher struct {
	id       string
	session  *session.Session
	fetcher  Fetcher
	opts     Options
	throttle *throttle

	ctx    context.Context
	cancel context.CancelFunc
	events chan Event

	mu          sync.Mutex
	seq         uint64
	generation  uint64
	state       SyncState
	longPolling bool
	cancelFetch context.CancelFunc
	closed      bool
	wg          sync.WaitGroup
}

// NewWatcher creates an idle watcher. Nothing is fetched until Load.
func NewWatcher(sess *session.Session, fetcher Fetcher, opts Options) *Watcher {
	if opts.Version == 0 {
		opts.Version = sitemap.VersionJSON
	}
	if opts.MinInterval == 0 {
		opts.MinInterval = defaultMinInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		id:       uuid.NewString(),
		session:  sess,
		fetcher:  fetcher,
		opts:     opts,
		throttle: newThrottle(opts.MinInterval),
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan Event, 16),
	}
}

// ID identifies the watcher in trace output.
func (w *Watcher) ID() string {
	return w.id
}

// Events returns a channel of page and error events. It is closed once the
// watcher has stopped and every fetch has exited.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Load starts a fetch, cancelling any fetch in flight. With refresh set,
// each successful page immediately re-arms a long-poll fetch. It returns
// the sequence number of the new fetch, or 0 once the watcher is stopped.
func (w *Watcher) Load(longPolling, refresh bool) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0
	}
	w.generation++
	return w.startLocked(longPolling, refresh)
}

// rearm starts the continuation of fetch seq unless it was superseded.
func (w *Watcher) rearm(seq uint64, longPolling, refresh bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seq != seq {
		return
	}
	w.startLocked(longPolling, refresh)
}

func (w *Watcher) startLocked(longPolling, refresh bool) uint64 {
	if w.closed {
		return 0
	}
	if w.cancelFetch != nil {
		w.cancelFetch()
	}
	w.seq++
	seq := w.seq
	ctx, cancel := context.WithCancel(w.ctx)
	w.cancelFetch = cancel
	w.longPolling = longPolling
	w.state = StateFetching
	events.Sync.State(w.id, seq, StateFetching.String())
	w.wg.Add(1)
	go w.fetch(ctx, cancel, seq, w.generation, longPolling, refresh)
	return seq
}

// Stop cancels the fetch in flight and refuses further loads. The events
// channel closes after the last fetch goroutine returns.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.state = StateIdle
	w.mu.Unlock()
	w.cancel()
	events.Sync.Stop(w.id)
	go func() {
		w.wg.Wait()
		close(w.events)
	}()
}

// Wait blocks until every fetch goroutine has exited.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

// State reports the current state machine position.
func (w *Watcher) State() SyncState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// LongPolling reports whether the current or last fetch was a long poll.
func (w *Watcher) LongPolling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.longPolling
}

// Seq returns the sequence number of the current fetch. Every re-arm moves
// it on, so it may already be ahead of an event still queued for the UI.
func (w *Watcher) Seq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq
}

// Generation returns the number of the latest Load. Events carrying an older
// generation belong to a chain of fetches that has been superseded.
func (w *Watcher) Generation() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generation
}

// commit runs fn under the lock if seq is still the current fetch.
func (w *Watcher) commit(seq uint64, fn func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.seq != seq {
		return false
	}
	fn()
	return true
}

func (w *Watcher) fetch(ctx context.Context, cancel context.CancelFunc, seq, gen uint64, longPolling, refresh bool) {
	defer w.wg.Done()
	defer cancel()

	if longPolling {
		if err := w.throttle.wait(ctx); err != nil {
			events.Sync.Cancelled(w.id, seq)
			return
		}
	}

	target, err := endpoint.Sitemap(w.session.RootURL(), w.session.SitemapName())
	if err != nil {
		w.fail(seq, gen, err)
		return
	}
	tracking := w.session.TrackingID()
	events.Sync.Fetch(w.id, seq, target.String(), longPolling, tracking != "")

	resp, err := w.fetcher.FetchPage(ctx, transport.PageRequest{
		URL:         target.String(),
		LongPolling: longPolling,
		TrackingID:  tracking,
		Version:     w.opts.Version,
	})
	if err != nil {
		w.handleError(ctx, seq, gen, longPolling, refresh, err)
		return
	}

	if resp.TrackingID != "" {
		if !w.commit(seq, func() { w.session.SetTrackingID(resp.TrackingID) }) {
			events.Sync.Stale(w.id, seq)
			return
		}
		events.Sync.Tracking(w.id, seq, resp.TrackingID)
	}

	decoded, err := sitemap.Decode(resp.Body, w.opts.Version)
	if err != nil {
		w.fail(seq, gen, err)
		return
	}
	page := state.NewPage(decoded)
	page.SetCommandFunc(w.opts.Commands)

	if !w.commit(seq, func() { w.state = StateIdle }) {
		events.Sync.Stale(w.id, seq)
		return
	}
	events.Sync.Page(w.id, seq, page.ID, page.Len())
	events.Sync.State(w.id, seq, StateIdle.String())
	if !w.emit(Event{Seq: seq, Generation: gen, Kind: KindPage, Page: page}) {
		return
	}
	if refresh {
		w.rearm(seq, true, refresh)
	}
}

func (w *Watcher) handleError(ctx context.Context, seq, gen uint64, longPolling, refresh bool, err error) {
	switch {
	case transport.IsCancelled(err) || errors.Is(ctx.Err(), context.Canceled):
		events.Sync.Cancelled(w.id, seq)
	case transport.IsTimeout(err) && longPolling:
		events.Sync.Timeout(w.id, seq)
		if !w.commit(seq, w.session.ResetTrackingID) {
			events.Sync.Stale(w.id, seq)
			return
		}
		w.rearm(seq, false, refresh)
	default:
		w.fail(seq, gen, err)
	}
}

// fail clears the tracking token, surfaces err once and leaves the loop idle
// until the next explicit Load.
func (w *Watcher) fail(seq, gen uint64, err error) {
	if !w.commit(seq, func() {
		w.session.ResetTrackingID()
		w.state = StateBackoff
	}) {
		events.Sync.Stale(w.id, seq)
		return
	}
	logging.Error(err)
	events.Sync.Failure(w.id, seq, err)
	events.Sync.State(w.id, seq, StateBackoff.String())
	w.emit(Event{Seq: seq, Generation: gen, Kind: KindError, Err: err})
	if w.commit(seq, func() { w.state = StateIdle }) {
		events.Sync.State(w.id, seq, StateIdle.String())
	}
}

func (w *Watcher) emit(evt Event) bool {
	select {
	case <-w.ctx.Done():
		return false
	case w.events <- evt:
		return true
	}
}
