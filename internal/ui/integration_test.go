package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atomicstack/openhab-popup/internal/backend"
	"github.com/atomicstack/openhab-popup/internal/command"
	"github.com/atomicstack/openhab-popup/internal/session"
	"github.com/atomicstack/openhab-popup/internal/sitemap"
	"github.com/atomicstack/openhab-popup/internal/testutil"
	"github.com/atomicstack/openhab-popup/internal/transport"
	tea "github.com/charmbracelet/bubbletea"
)

func TestToggleRoundTripAgainstServer(t *testing.T) {
	srv := testutil.NewOpenHAB(t)
	page := func(state string) []byte {
		return []byte(`{"id":"watch","title":"watch","leaf":true,"widgets":[{"widgetId":"00","type":"Switch","label":"Porch",` +
			`"item":{"name":"porch","state":"` + state + `","type":"Switch","link":"` + srv.ItemURL("porch") + `"}}]}`)
	}
	srv.SetPage("watch", page("OFF"))

	sess := session.New(session.Settings{LocalURL: srv.URL, SitemapName: "watch"})
	client := transport.NewClient(sess, transport.Options{RequestTimeout: time.Second, LongPollTimeout: 5 * time.Second})
	results := make(chan command.Result, 4)
	commands := command.New(client, command.WithResultFunc(func(res command.Result) { results <- res }))
	t.Cleanup(commands.Close)
	w := backend.NewWatcher(sess, client, backend.Options{
		Version:     sitemap.VersionJSON,
		MinInterval: -1,
		Commands: func(item *sitemap.Item, cmd string) {
			commands.SendCommand(item, cmd)
		},
	})
	t.Cleanup(func() {
		w.Stop()
		w.Wait()
	})

	h := NewHarness(NewModel(Options{Watcher: w, Refresh: true, Width: 40, Height: 10}))
	h.Init()
	require.True(t, h.Pump(2*time.Second))
	require.Contains(t, h.View(), "Porch")
	require.Contains(t, h.View(), "OFF")

	h.Send(tea.KeyMsg{Type: tea.KeyEnter})
	require.Contains(t, h.View(), "→ON")

	select {
	case res := <-results:
		require.NoError(t, res.Err)
		h.Send(CommandResultMsg{Result: res})
	case <-time.After(2 * time.Second):
		t.Fatal("command result never arrived")
	}
	require.Equal(t, []testutil.Command{{Item: "porch", Command: "ON"}}, srv.Commands())
	require.False(t, strings.Contains(h.View(), "→ON"))

	require.Eventually(t, func() bool { return len(srv.Requests()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	srv.SetPage("watch", page("ON"))
	require.Eventually(t, func() bool {
		srv.Push()
		return h.Pump(50 * time.Millisecond)
	}, 2*time.Second, 10*time.Millisecond)

	lines := strings.Split(h.View(), "\n")
	require.True(t, strings.HasSuffix(strings.TrimRight(lines[1], " "), "ON"), "row: %q", lines[1])
}

func TestRefreshingWatcherPublishesEveryPage(t *testing.T) {
	srv := testutil.NewOpenHAB(t)
	page := func(title string) []byte {
		return []byte(`{"id":"watch","title":"` + title + `","leaf":true,"widgets":[{"widgetId":"00","type":"Switch","label":"Porch",` +
			`"item":{"name":"porch","state":"OFF","type":"Switch","link":"` + srv.ItemURL("porch") + `"}}]}`)
	}
	srv.SetPage("watch", page("First"))

	sess := session.New(session.Settings{LocalURL: srv.URL, SitemapName: "watch"})
	client := transport.NewClient(sess, transport.Options{RequestTimeout: time.Second, LongPollTimeout: 5 * time.Second})
	w := backend.NewWatcher(sess, client, backend.Options{Version: sitemap.VersionJSON, MinInterval: -1})
	t.Cleanup(func() {
		w.Stop()
		w.Wait()
	})

	m := NewModel(Options{Watcher: w, Refresh: true})
	h := NewHarness(m)
	h.Init()

	require.True(t, h.Pump(2*time.Second))
	require.NotNil(t, m.Widgets().Page())
	require.Equal(t, "First", m.Widgets().Page().Title)
	require.Contains(t, h.View(), "Porch")

	// The long poll re-armed after the first page; its result must land too.
	require.Eventually(t, func() bool { return len(srv.Requests()) >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.Greater(t, w.Seq(), uint64(1))
	srv.SetPage("watch", page("Second"))
	require.Eventually(t, func() bool {
		srv.Push()
		return h.Pump(50 * time.Millisecond)
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "Second", m.Widgets().Page().Title)
	require.Empty(t, m.errMsg)
}
