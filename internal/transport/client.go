// Package transport issues the HTTP requests of the sitemap client: page
// fetches (optionally long-polling) and item commands.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/atomicstack/openhab-popup/internal/session"
	"github.com/atomicstack/openhab-popup/internal/sitemap"
)

// Header names of the Atmosphere long-polling protocol.
const (
	HeaderTrackingID = "X-Atmosphere-tracking-id"
	HeaderTransport  = "X-Atmosphere-Transport"
	HeaderFramework  = "X-Atmosphere-Framework"

	transportLongPolling = "long-polling"
	frameworkVersion     = "1.0"
)

const (
	DefaultRequestTimeout  = 15 * time.Second
	DefaultLongPollTimeout = 60 * time.Second
)

// Options tune request hold times.
type Options struct {
	RequestTimeout  time.Duration
	LongPollTimeout time.Duration
	UserAgent       string
}

// PageRequest describes one sitemap page fetch.
type PageRequest struct {
	URL         string
	LongPolling bool
	TrackingID  string
	Version     int
}

// PageResponse carries the raw payload and the tracking token, if the
// server sent one.
type PageResponse struct {
	StatusCode int
	Body       []byte
	TrackingID string
}

// Client talks to one openHAB server. Connection attributes are read from
// the session on every request; the underlying http.Client is rebuilt when
// the session revision moves.
type Client struct {
	session *session.Session
	opts    Options

	mu       sync.Mutex
	http     *http.Client
	revision uint64
}

// NewClient creates a client bound to sess.
func NewClient(sess *session.Session, opts Options) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.LongPollTimeout <= 0 {
		opts.LongPollTimeout = DefaultLongPollTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "openhab-popup"
	}
	return &Client{session: sess, opts: opts}
}

// FetchPage issues a GET for req.URL. Long-poll requests announce the
// long-polling transport and are held open up to LongPollTimeout.
func (c *Client) FetchPage(ctx context.Context, req PageRequest) (PageResponse, error) {
	timeout := c.opts.RequestTimeout
	if req.LongPolling {
		timeout = c.opts.LongPollTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return PageResponse{}, fmt.Errorf("build page request: %w", err)
	}
	if req.Version == sitemap.VersionLegacy {
		httpReq.Header.Set("Accept", "application/xml")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	httpReq.Header.Set(HeaderFramework, frameworkVersion)
	if req.LongPolling {
		httpReq.Header.Set(HeaderTransport, transportLongPolling)
	}
	if req.TrackingID != "" {
		httpReq.Header.Set(HeaderTrackingID, req.TrackingID)
	}
	c.decorate(httpReq)

	resp, err := c.client().Do(httpReq)
	if err != nil {
		return PageResponse{}, classify(ctx, reqCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PageResponse{}, classify(ctx, reqCtx, fmt.Errorf("read page body: %w", err))
	}
	out := PageResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
		TrackingID: resp.Header.Get(HeaderTrackingID),
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: req.URL}
	}
	return out, nil
}

// SendCommand posts command as plain text to an item link.
func (c *Client) SendCommand(ctx context.Context, link, command string) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, link, strings.NewReader(command))
	if err != nil {
		return fmt.Errorf("build command request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/plain")
	httpReq.Header.Set("Accept", "application/json")
	c.decorate(httpReq)

	resp, err := c.client().Do(httpReq)
	if err != nil {
		return classify(ctx, reqCtx, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: link}
	}
	return nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if user, pass, ok := c.session.Credentials(); ok {
		req.SetBasicAuth(user, pass)
	}
}

func (c *Client) client() *http.Client {
	rev := c.session.Revision()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http != nil && c.revision == rev {
		return c.http
	}
	settings := c.session.Settings()
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = tlsConfig(settings)
	if c.http != nil {
		c.http.CloseIdleConnections()
	}
	c.http = &http.Client{Transport: base}
	c.revision = rev
	return c.http
}

func tlsConfig(settings session.Settings) *tls.Config {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if settings.IgnoreSSL {
		cfg.InsecureSkipVerify = true
		return cfg
	}
	if len(settings.TrustedCertificates) == 0 {
		return cfg
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	for _, raw := range settings.TrustedCertificates {
		for _, cert := range ParseCertificates(raw) {
			pool.AddCert(cert)
		}
	}
	cfg.RootCAs = pool
	return cfg
}

// ParseCertificates accepts PEM, base64 DER or raw DER and returns every
// certificate it can parse. Unparseable input yields nil.
func ParseCertificates(raw []byte) []*x509.Certificate {
	var out []*x509.Certificate
	rest := raw
	for {
		block, remaining := pem.Decode(rest)
		if block == nil {
			break
		}
		rest = remaining
		if block.Type != "CERTIFICATE" {
			continue
		}
		if cert, err := x509.ParseCertificate(block.Bytes); err == nil {
			out = append(out, cert)
		}
	}
	if len(out) > 0 {
		return out
	}
	der := raw
	if decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw))); err == nil {
		der = decoded
	}
	if cert, err := x509.ParseCertificate(der); err == nil {
		return []*x509.Certificate{cert}
	}
	return nil
}
