// Package command sends item commands to the server with at most one
// command outstanding at a time.
package command

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/atomicstack/openhab-popup/internal/logging"
	"github.com/atomicstack/openhab-popup/internal/logging/events"
	"github.com/atomicstack/openhab-popup/internal/sitemap"
	"github.com/atomicstack/openhab-popup/internal/transport"
)

// Sender performs the network write for a command.
type Sender interface {
	SendCommand(ctx context.Context, link, command string) error
}

// Result reports how the current command finished. Superseded commands
// never produce a Result.
type Result struct {
	ID      string
	Item    string
	Command string
	Err     error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithResultFunc registers fn to receive results. fn runs on the sending
// goroutine.
func WithResultFunc(fn func(Result)) Option {
	return func(d *Dispatcher) { d.onResult = fn }
}

// Dispatcher issues commands. A new command cancels the one in flight.
type Dispatcher struct {
	sender   Sender
	onResult func(Result)

	ctx  context.Context
	stop context.CancelFunc

	mu      sync.Mutex
	seq     uint64
	current string
	cancel  context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

// New creates a dispatcher writing through sender.
func New(sender Sender, opts ...Option) *Dispatcher {
	ctx, stop := context.WithCancel(context.Background())
	d := &Dispatcher{sender: sender, ctx: ctx, stop: stop}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendCommand sends command to item's link. It is a no-op when item or
// command is empty or the item has no link; a no-op leaves any command in
// flight alone. It returns the id of the issued command, or "" when nothing
// was sent. Local item state is never touched.
func (d *Dispatcher) SendCommand(item *sitemap.Item, command string) string {
	command = strings.TrimSpace(command)
	if item == nil || item.Name == "" || command == "" || item.Link == "" {
		name := ""
		if item != nil {
			name = item.Name
		}
		events.Command.Skip(name, command)
		return ""
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		events.Command.Skip(item.Name, command)
		return ""
	}
	if d.cancel != nil {
		events.Command.Cancel(d.current)
		d.cancel()
	}
	d.seq++
	seq := d.seq
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(d.ctx)
	d.current = id
	d.cancel = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	events.Command.Queue(id, item.Name, command)
	go d.run(ctx, cancel, seq, id, item.Name, item.Link, command)
	return id
}

func (d *Dispatcher) run(ctx context.Context, cancel context.CancelFunc, seq uint64, id, name, link, command string) {
	defer d.wg.Done()
	defer cancel()

	err := d.sender.SendCommand(ctx, link, command)

	d.mu.Lock()
	current := d.seq == seq && ctx.Err() == nil
	if d.seq == seq {
		d.cancel = nil
		d.current = ""
	}
	d.mu.Unlock()

	if !current || transport.IsCancelled(err) {
		events.Command.Superseded(id, name)
		return
	}
	if err != nil {
		logging.Error(err)
		events.Command.Failure(id, name, err)
	} else {
		events.Command.Result(id, name, command)
	}
	if d.onResult != nil {
		d.onResult(Result{ID: id, Item: name, Command: command, Err: err})
	}
}

// Wait blocks until no command goroutine is running.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close cancels the command in flight and rejects further commands.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.stop()
	d.wg.Wait()
}
