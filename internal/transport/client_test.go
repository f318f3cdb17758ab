package transport

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atomicstack/openhab-popup/internal/session"
	"github.com/atomicstack/openhab-popup/internal/sitemap"
	"github.com/atomicstack/openhab-popup/internal/testutil"
)

const demoPayload = `{"id":"demo","title":"Demo","widgets":[]}`

func newClient(t *testing.T, srv *testutil.OpenHAB, settings session.Settings) (*Client, *session.Session) {
	t.Helper()
	settings.LocalURL = srv.URL
	sess := session.New(settings)
	return NewClient(sess, Options{RequestTimeout: time.Second, LongPollTimeout: 200 * time.Millisecond}), sess
}

func TestFetchPageShortRequestHeaders(t *testing.T) {
	srv := testutil.NewOpenHAB(t)
	srv.SetPage("demo", []byte(demoPayload))
	srv.SetTrackingID("tok-1")
	client, _ := newClient(t, srv, session.Settings{})

	resp, err := client.FetchPage(context.Background(), PageRequest{URL: srv.SitemapURL("demo"), Version: sitemap.VersionJSON})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "tok-1", resp.TrackingID)
	require.JSONEq(t, demoPayload, string(resp.Body))

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, "application/json", reqs[0].Header.Get("Accept"))
	require.Equal(t, "1.0", reqs[0].Header.Get(HeaderFramework))
	require.Empty(t, reqs[0].Header.Get(HeaderTransport))
	require.Empty(t, reqs[0].Header.Get(HeaderTrackingID))
}

func TestFetchPageLongPollEchoesTracking(t *testing.T) {
	srv := testutil.NewOpenHAB(t)
	srv.SetPage("demo", []byte(demoPayload))
	client, _ := newClient(t, srv, session.Settings{})

	done := make(chan error, 1)
	go func() {
		_, err := client.FetchPage(context.Background(), PageRequest{
			URL:         srv.SitemapURL("demo"),
			LongPolling: true,
			TrackingID:  "tok-2",
			Version:     sitemap.VersionJSON,
		})
		done <- err
	}()
	require.Eventually(t, func() bool { return len(srv.Requests()) == 1 }, time.Second, 5*time.Millisecond)
	srv.Push()
	require.NoError(t, <-done)

	hdr := srv.Requests()[0].Header
	require.Equal(t, "long-polling", hdr.Get(HeaderTransport))
	require.Equal(t, "tok-2", hdr.Get(HeaderTrackingID))
}

func TestFetchPageLegacyAcceptsXML(t *testing.T) {
	srv := testutil.NewOpenHAB(t)
	srv.SetPage("demo", []byte(`<page><id>demo</id></page>`))
	client, _ := newClient(t, srv, session.Settings{})

	_, err := client.FetchPage(context.Background(), PageRequest{URL: srv.SitemapURL("demo"), Version: sitemap.VersionLegacy})
	require.NoError(t, err)
	require.Equal(t, "application/xml", srv.Requests()[0].Header.Get("Accept"))
}

func TestFetchPageLongPollTimeout(t *testing.T) {
	srv := testutil.NewOpenHAB(t)
	srv.SetPage("demo", []byte(demoPayload))
	client, _ := newClient(t, srv, session.Settings{})

	_, err := client.FetchPage(context.Background(), PageRequest{URL: srv.SitemapURL("demo"), LongPolling: true, Version: sitemap.VersionJSON})
	require.Error(t, err)
	require.True(t, IsTimeout(err), "expected timeout, got %v", err)
	require.False(t, IsCancelled(err))
}

func TestFetchPageCancelled(t *testing.T) {
	srv := testutil.NewOpenHAB(t)
	srv.SetPage("demo", []byte(demoPayload))
	client, _ := newClient(t, srv, session.Settings{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.FetchPage(ctx, PageRequest{URL: srv.SitemapURL("demo"), LongPolling: true, Version: sitemap.VersionJSON})
		done <- err
	}()
	require.Eventually(t, func() bool { return len(srv.Requests()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	err := <-done
	require.True(t, IsCancelled(err), "expected cancellation, got %v", err)
	require.False(t, IsTimeout(err))
}

func TestFetchPageStatusError(t *testing.T) {
	srv := testutil.NewOpenHAB(t)
	srv.SetPage("demo", []byte(demoPayload))
	srv.FailNext(http.StatusServiceUnavailable)
	client, _ := newClient(t, srv, session.Settings{})

	_, err := client.FetchPage(context.Background(), PageRequest{URL: srv.SitemapURL("demo"), Version: sitemap.VersionJSON})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	require.False(t, IsTimeout(err))
}

func TestBasicAuthFromSession(t *testing.T) {
	srv := testutil.NewOpenHAB(t)
	srv.SetPage("demo", []byte(demoPayload))
	srv.RequireAuth("user", "secret")
	client, sess := newClient(t, srv, session.Settings{Username: "user", Password: "wrong"})

	_, err := client.FetchPage(context.Background(), PageRequest{URL: srv.SitemapURL("demo"), Version: sitemap.VersionJSON})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusUnauthorized, statusErr.Code)

	sess.Update(func(s *session.Settings) { s.Password = "secret" })
	_, err = client.FetchPage(context.Background(), PageRequest{URL: srv.SitemapURL("demo"), Version: sitemap.VersionJSON})
	require.NoError(t, err)
}

func TestSendCommandPostsPlainText(t *testing.T) {
	srv := testutil.NewOpenHAB(t)
	client, _ := newClient(t, srv, session.Settings{})

	require.NoError(t, client.SendCommand(context.Background(), srv.ItemURL("Light"), "ON"))
	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, http.MethodPost, reqs[0].Method)
	require.Equal(t, "text/plain", reqs[0].Header.Get("Content-Type"))
	require.Equal(t, []testutil.Command{{Item: "Light", Command: "ON"}}, srv.Commands())
}

func TestSendCommandStatusError(t *testing.T) {
	srv := testutil.NewOpenHAB(t)
	srv.SetCommandStatus(http.StatusNotFound)
	client, _ := newClient(t, srv, session.Settings{})

	err := client.SendCommand(context.Background(), srv.ItemURL("Missing"), "OFF")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestTLSIgnoreSSLRebuildsClient(t *testing.T) {
	srv := testutil.NewOpenHABTLS(t)
	srv.SetPage("demo", []byte(demoPayload))
	client, sess := newClient(t, srv, session.Settings{})

	_, err := client.FetchPage(context.Background(), PageRequest{URL: srv.SitemapURL("demo"), Version: sitemap.VersionJSON})
	require.Error(t, err, "self-signed certificate must be rejected by default")

	sess.Update(func(s *session.Settings) { s.IgnoreSSL = true })
	_, err = client.FetchPage(context.Background(), PageRequest{URL: srv.SitemapURL("demo"), Version: sitemap.VersionJSON})
	require.NoError(t, err)
}

func TestTLSTrustedCertificate(t *testing.T) {
	srv := testutil.NewOpenHABTLS(t)
	srv.SetPage("demo", []byte(demoPayload))
	der := srv.Certificate().Raw
	client, _ := newClient(t, srv, session.Settings{
		TrustedCertificates: map[string][]byte{"test": der},
	})

	_, err := client.FetchPage(context.Background(), PageRequest{URL: srv.SitemapURL("demo"), Version: sitemap.VersionJSON})
	require.NoError(t, err)
}

func TestParseCertificatesRejectsGarbage(t *testing.T) {
	require.Nil(t, ParseCertificates([]byte("not a certificate")))
}
