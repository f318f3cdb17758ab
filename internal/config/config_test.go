package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atomicstack/openhab-popup/internal/app"
	"github.com/atomicstack/openhab-popup/internal/endpoint"
	"github.com/atomicstack/openhab-popup/internal/output"
	"github.com/atomicstack/openhab-popup/internal/preferences"
	"github.com/atomicstack/openhab-popup/internal/session"
)

// isolate points the preferences file at an empty temp dir so the user's
// real file never leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	t.Setenv("OPENHAB_POPUP_PREFS", path)
	return path
}

func TestLoadArgsDefaults(t *testing.T) {
	isolate(t)
	cfg, err := LoadArgs([]string{"-url", "http://openhab:8080"})
	require.NoError(t, err)
	require.Equal(t, "http://openhab:8080", cfg.App.Settings.LocalURL)
	require.Equal(t, "watch", cfg.App.Settings.SitemapName)
	require.Equal(t, 2, cfg.App.Version)
	require.True(t, cfg.App.Refresh)
	require.Equal(t, 60*time.Second, cfg.App.LongPollTimeout)
	require.Equal(t, 15*time.Second, cfg.App.RequestTimeout)
	require.Equal(t, endpoint.IconPNG, cfg.App.IconFormat)
	require.False(t, cfg.Dump.Enabled)
	require.Equal(t, output.FormatJSON, cfg.Dump.Format)
	require.NoError(t, Validate(cfg))
}

func TestLoadArgsEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("OPENHAB_POPUP_URL", "http://env:8080")
	t.Setenv("OPENHAB_POPUP_SITEMAP", "home")
	t.Setenv("OPENHAB_POPUP_VERSION", "1")
	t.Setenv("OPENHAB_POPUP_LONG_POLL_TIMEOUT", "30s")
	t.Setenv("OPENHAB_POPUP_WIDTH", "60")

	cfg, err := LoadArgs(nil)
	require.NoError(t, err)
	require.Equal(t, "http://env:8080", cfg.App.Settings.LocalURL)
	require.Equal(t, "home", cfg.App.Settings.SitemapName)
	require.Equal(t, 1, cfg.App.Version)
	require.Equal(t, 30*time.Second, cfg.App.LongPollTimeout)
	require.Equal(t, 60, cfg.App.Width)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("OPENHAB_POPUP_URL", "http://env:8080")
	t.Setenv("OPENHAB_POPUP_TRACE", "true")

	cfg, err := LoadArgs([]string{"-url", "http://flag:8080", "-trace=false", "-refresh=false"})
	require.NoError(t, err)
	require.Equal(t, "http://flag:8080", cfg.App.Settings.LocalURL)
	require.False(t, cfg.Logging.Trace)
	require.False(t, cfg.App.Refresh)
	require.Equal(t, "false", cfg.Flags["refresh"])
}

func TestPreferencesFillGaps(t *testing.T) {
	path := isolate(t)
	require.NoError(t, preferences.Save(path, session.Settings{
		LocalURL:    "http://prefs:8080",
		RemoteURL:   "https://remote",
		SitemapName: "prefs",
		Username:    "alice",
		Password:    "pw",
	}))

	cfg, err := LoadArgs([]string{"-sitemap", "flag"})
	require.NoError(t, err)
	s := cfg.App.Settings
	require.Equal(t, "http://prefs:8080", s.LocalURL)
	require.Equal(t, "https://remote", s.RemoteURL)
	require.Equal(t, "flag", s.SitemapName)
	require.Equal(t, "alice", s.Username)
	require.Equal(t, path, cfg.App.PrefsPath)
}

func TestLoadArgsRejectsBadValues(t *testing.T) {
	isolate(t)
	cases := map[string][]string{
		"icon format":  {"-icon-format", "gif"},
		"dump format":  {"-format", "xml"},
		"unknown flag": {"-socket", "x"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadArgs(args)
			require.Error(t, err)
		})
	}
}

func TestLoadArgsRejectsBadEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("OPENHAB_POPUP_VERSION", "two")
	_, err := LoadArgs(nil)
	require.Error(t, err)
}

func TestLoadArgsRejectsBadPreferences(t *testing.T) {
	path := isolate(t)
	require.NoError(t, os.WriteFile(path, []byte("localUrl: [oops\n"), 0o600))
	_, err := LoadArgs(nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{App: appConfig("http://openhab:8080")}
	}
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "valid", mutate: func(*Config) {}, ok: true},
		{name: "negative width", mutate: func(c *Config) { c.App.Width = -1 }},
		{name: "negative height", mutate: func(c *Config) { c.App.Height = -1 }},
		{name: "bad version", mutate: func(c *Config) { c.App.Version = 3 }},
		{name: "zero long poll", mutate: func(c *Config) { c.App.LongPollTimeout = 0 }},
		{name: "zero request", mutate: func(c *Config) { c.App.RequestTimeout = 0 }},
		{name: "no url", mutate: func(c *Config) { c.App.Settings.LocalURL = "" }},
		{name: "bad scheme", mutate: func(c *Config) { c.App.Settings.LocalURL = "ftp://openhab" }},
		{name: "remote only", mutate: func(c *Config) {
			c.App.Settings.LocalURL = ""
			c.App.Settings.RemoteURL = "https://remote"
		}, ok: true},
		{name: "companion only", mutate: func(c *Config) {
			c.App.Settings.LocalURL = ""
			c.App.CompanionFile = "/tmp/push.json"
		}, ok: true},
		{name: "dump without url", mutate: func(c *Config) {
			c.App.Settings.LocalURL = ""
			c.App.CompanionFile = "/tmp/push.json"
			c.Dump.Enabled = true
		}},
		{name: "preview without url", mutate: func(c *Config) {
			c.App.Settings.LocalURL = ""
			c.App.Preview = true
		}, ok: true},
		{name: "preview with dump", mutate: func(c *Config) {
			c.App.Preview = true
			c.Dump.Enabled = true
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := Validate(cfg)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func appConfig(url string) app.Config {
	return app.Config{
		Settings:        session.Settings{LocalURL: url, SitemapName: "watch"},
		Version:         2,
		LongPollTimeout: time.Minute,
		RequestTimeout:  time.Second,
	}
}
