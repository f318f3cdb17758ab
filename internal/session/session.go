// Package session holds the connection attributes shared by every request:
// server URLs, sitemap name, credentials, TLS policy and the long-poll
// tracking token. A Session is constructed once at startup and passed by
// reference to the components that need it.
package session

import (
	"strings"
	"sync"
)

// Settings are the user-facing connection preferences.
type Settings struct {
	LocalURL            string            `json:"localUrl,omitempty"`
	RemoteURL           string            `json:"remoteUrl,omitempty"`
	SitemapName         string            `json:"sitemapName,omitempty"`
	Username            string            `json:"username,omitempty"`
	Password            string            `json:"-"`
	IgnoreSSL           bool              `json:"ignoreSSL,omitempty"`
	TrustedCertificates map[string][]byte `json:"-"`
}

// Clone returns a copy that shares no mutable state with s.
func (s Settings) Clone() Settings {
	dup := s
	if s.TrustedCertificates != nil {
		dup.TrustedCertificates = make(map[string][]byte, len(s.TrustedCertificates))
		for host, cert := range s.TrustedCertificates {
			dup.TrustedCertificates[host] = append([]byte(nil), cert...)
		}
	}
	return dup
}

// RootURL prefers the local URL and falls back to the remote one.
func (s Settings) RootURL() string {
	if local := strings.TrimSpace(s.LocalURL); local != "" {
		return local
	}
	return strings.TrimSpace(s.RemoteURL)
}

// Session is the process-wide connection context. The tracking token is
// written by the sync loop only; the at-most-one-fetch rule means there is a
// single writer at a time, the mutex only keeps readers consistent.
type Session struct {
	mu         sync.RWMutex
	settings   Settings
	revision   uint64
	trackingID string
}

// New creates a session seeded with settings. The tracking token starts empty.
func New(settings Settings) *Session {
	return &Session{settings: settings.Clone()}
}

// Settings returns a snapshot of the current connection settings.
func (s *Session) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// Revision increases every time Update changes settings. Clients use it to
// rebuild transports when TLS or credentials change.
func (s *Session) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Update applies fn to a copy of the settings and installs the result.
// It reports whether anything changed.
func (s *Session) Update(fn func(*Settings)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.settings.Clone()
	fn(&next)
	if equalSettings(s.settings, next) {
		return false
	}
	s.settings = next
	s.revision++
	return true
}

// RootURL is the base URL every fetch is built from.
func (s *Session) RootURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.RootURL()
}

// SitemapName returns the configured sitemap.
func (s *Session) SitemapName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.SitemapName
}

// Credentials returns the basic-auth pair; ok is false when no username is set.
func (s *Session) Credentials() (username, password string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings.Username == "" {
		return "", "", false
	}
	return s.settings.Username, s.settings.Password, true
}

// TrackingID returns the token echoed on long-poll requests.
func (s *Session) TrackingID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trackingID
}

// SetTrackingID records a token issued by the server.
func (s *Session) SetTrackingID(id string) {
	s.mu.Lock()
	s.trackingID = id
	s.mu.Unlock()
}

// ResetTrackingID forgets the token so the next fetch negotiates a fresh
// session.
func (s *Session) ResetTrackingID() {
	s.SetTrackingID("")
}

func equalSettings(a, b Settings) bool {
	if a.LocalURL != b.LocalURL || a.RemoteURL != b.RemoteURL || a.SitemapName != b.SitemapName ||
		a.Username != b.Username || a.Password != b.Password || a.IgnoreSSL != b.IgnoreSSL {
		return false
	}
	if len(a.TrustedCertificates) != len(b.TrustedCertificates) {
		return false
	}
	for host, cert := range a.TrustedCertificates {
		other, ok := b.TrustedCertificates[host]
		if !ok || string(other) != string(cert) {
			return false
		}
	}
	return true
}
