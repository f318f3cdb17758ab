package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atomicstack/openhab-popup/internal/session"
	"github.com/atomicstack/openhab-popup/internal/sitemap"
	"github.com/atomicstack/openhab-popup/internal/testutil"
	"github.com/atomicstack/openhab-popup/internal/transport"
)

type write struct {
	link    string
	command string
}

// gatedSender blocks every write until released or cancelled.
type gatedSender struct {
	mu        sync.Mutex
	writes    []write
	cancelled []string
	started   chan string
	release   chan struct{}
}

func newGatedSender() *gatedSender {
	return &gatedSender{started: make(chan string, 8), release: make(chan struct{})}
}

func (s *gatedSender) SendCommand(ctx context.Context, link, command string) error {
	s.mu.Lock()
	s.writes = append(s.writes, write{link: link, command: command})
	s.mu.Unlock()
	s.started <- command
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		s.cancelled = append(s.cancelled, command)
		s.mu.Unlock()
		return transport.ErrCancelled
	}
}

func (s *gatedSender) snapshot() ([]write, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]write(nil), s.writes...), append([]string(nil), s.cancelled...)
}

type results struct {
	mu  sync.Mutex
	out []Result
}

func (r *results) add(res Result) {
	r.mu.Lock()
	r.out = append(r.out, res)
	r.mu.Unlock()
}

func (r *results) all() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.out...)
}

func item(name, state string) *sitemap.Item {
	return &sitemap.Item{Name: name, State: state, Link: "http://host/rest/items/" + name}
}

func TestSendCommandSingleWrite(t *testing.T) {
	sender := newGatedSender()
	var got results
	d := New(sender, WithResultFunc(got.add))
	defer d.Close()

	it := item("x", "OFF")
	id := d.SendCommand(it, "ON")
	require.NotEmpty(t, id)
	<-sender.started
	close(sender.release)
	d.Wait()

	writes, cancelled := sender.snapshot()
	require.Equal(t, []write{{link: "http://host/rest/items/x", command: "ON"}}, writes)
	require.Empty(t, cancelled)
	require.Equal(t, []Result{{ID: id, Item: "x", Command: "ON"}}, got.all())
	require.Equal(t, "OFF", it.State, "dispatcher must not touch item state")
}

func TestSendCommandSupersedesInFlight(t *testing.T) {
	sender := newGatedSender()
	var got results
	d := New(sender, WithResultFunc(got.add))
	defer d.Close()

	first := d.SendCommand(item("x", "OFF"), "ON")
	require.Equal(t, "ON", <-sender.started)
	second := d.SendCommand(item("x", "OFF"), "OFF")
	require.NotEqual(t, first, second)
	require.Equal(t, "OFF", <-sender.started)

	require.Eventually(t, func() bool {
		_, cancelled := sender.snapshot()
		return len(cancelled) == 1
	}, time.Second, 5*time.Millisecond)

	close(sender.release)
	d.Wait()

	_, cancelled := sender.snapshot()
	require.Equal(t, []string{"ON"}, cancelled)
	res := got.all()
	require.Len(t, res, 1, "superseded command must never report completion")
	require.Equal(t, second, res[0].ID)
	require.Equal(t, "OFF", res[0].Command)
}

func TestSendCommandNoOps(t *testing.T) {
	sender := newGatedSender()
	d := New(sender)
	defer d.Close()

	inflight := d.SendCommand(item("x", "OFF"), "ON")
	require.NotEmpty(t, inflight)
	<-sender.started

	cases := []struct {
		name    string
		item    *sitemap.Item
		command string
	}{
		{name: "nil item", item: nil, command: "ON"},
		{name: "empty command", item: item("x", "OFF"), command: ""},
		{name: "blank command", item: item("x", "OFF"), command: "  "},
		{name: "no name", item: &sitemap.Item{Link: "http://host/rest/items/"}, command: "ON"},
		{name: "no link", item: &sitemap.Item{Name: "x"}, command: "ON"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Empty(t, d.SendCommand(tc.item, tc.command))
		})
	}

	_, cancelled := sender.snapshot()
	require.Empty(t, cancelled, "no-op must not cancel the command in flight")
	close(sender.release)
	d.Wait()
	writes, _ := sender.snapshot()
	require.Len(t, writes, 1)
}

func TestCloseCancelsAndRejects(t *testing.T) {
	sender := newGatedSender()
	var got results
	d := New(sender, WithResultFunc(got.add))

	d.SendCommand(item("x", "OFF"), "ON")
	<-sender.started
	d.Close()

	_, cancelled := sender.snapshot()
	require.Equal(t, []string{"ON"}, cancelled)
	require.Empty(t, got.all())
	require.Empty(t, d.SendCommand(item("x", "OFF"), "OFF"))
}

func TestFailureReportedOnce(t *testing.T) {
	srv := testutil.NewOpenHAB(t)
	srv.SetCommandStatus(500)
	client := transport.NewClient(session.New(session.Settings{LocalURL: srv.URL}), transport.Options{RequestTimeout: time.Second})
	var got results
	d := New(client, WithResultFunc(got.add))
	defer d.Close()

	d.SendCommand(&sitemap.Item{Name: "Light", Link: srv.ItemURL("Light")}, "ON")
	d.Wait()

	res := got.all()
	require.Len(t, res, 1)
	require.Error(t, res[0].Err)
	require.Equal(t, []testutil.Command{{Item: "Light", Command: "ON"}}, srv.Commands())
}

func TestSupersedeOverHTTP(t *testing.T) {
	srv := testutil.NewOpenHAB(t)
	release := srv.GateCommands()
	client := transport.NewClient(session.New(session.Settings{LocalURL: srv.URL}), transport.Options{RequestTimeout: 5 * time.Second})
	var got results
	d := New(client, WithResultFunc(got.add))
	defer d.Close()

	light := &sitemap.Item{Name: "Light", Link: srv.ItemURL("Light")}
	d.SendCommand(light, "ON")
	require.Eventually(t, func() bool { return len(srv.Requests()) == 1 }, time.Second, 5*time.Millisecond)
	second := d.SendCommand(light, "OFF")
	require.Eventually(t, func() bool { return len(srv.Requests()) == 2 }, time.Second, 5*time.Millisecond)
	release()
	d.Wait()

	res := got.all()
	require.Len(t, res, 1)
	require.Equal(t, second, res[0].ID)
	require.NoError(t, res[0].Err)
}
