package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootURLPrefersLocal(t *testing.T) {
	s := New(Settings{LocalURL: "http://local:8080", RemoteURL: "https://remote"})
	require.Equal(t, "http://local:8080", s.RootURL())

	s.Update(func(st *Settings) { st.LocalURL = "" })
	require.Equal(t, "https://remote", s.RootURL())
}

func TestUpdateBumpsRevisionOnlyOnChange(t *testing.T) {
	s := New(Settings{SitemapName: "watch"})
	require.Equal(t, uint64(0), s.Revision())

	changed := s.Update(func(st *Settings) { st.SitemapName = "watch" })
	require.False(t, changed)
	require.Equal(t, uint64(0), s.Revision())

	changed = s.Update(func(st *Settings) { st.TrustedCertificates = map[string][]byte{"host": []byte("x")} })
	require.True(t, changed)
	require.Equal(t, uint64(1), s.Revision())
}

func TestTrackingIDLifecycle(t *testing.T) {
	s := New(Settings{})
	require.Empty(t, s.TrackingID())
	s.SetTrackingID("abc")
	require.Equal(t, "abc", s.TrackingID())

	s.Update(func(st *Settings) { st.LocalURL = "http://other" })
	require.Equal(t, "abc", s.TrackingID(), "settings updates leave the token alone")

	s.ResetTrackingID()
	require.Empty(t, s.TrackingID())
}

func TestSettingsSnapshotIsIsolated(t *testing.T) {
	s := New(Settings{TrustedCertificates: map[string][]byte{"host": []byte("pem")}})
	snap := s.Settings()
	snap.TrustedCertificates["host"][0] = 'X'
	snap.TrustedCertificates["other"] = nil
	fresh := s.Settings()
	require.Equal(t, "pem", string(fresh.TrustedCertificates["host"]))
	require.Len(t, fresh.TrustedCertificates, 1)
}

func TestCredentials(t *testing.T) {
	s := New(Settings{})
	_, _, ok := s.Credentials()
	require.False(t, ok)
	s.Update(func(st *Settings) {
		st.Username = "user"
		st.Password = "secret"
	})
	user, pass, ok := s.Credentials()
	require.True(t, ok)
	require.Equal(t, "user", user)
	require.Equal(t, "secret", pass)
}
