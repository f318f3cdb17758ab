package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atomicstack/openhab-popup/internal/app"
	"github.com/atomicstack/openhab-popup/internal/config"
	"github.com/atomicstack/openhab-popup/internal/session"
)

func TestCollectTTYDetailsIncludesStandardDescriptors(t *testing.T) {
	info := collectTTYDetails()
	if len(info.Probes) != 3 {
		t.Fatalf("expected 3 probe entries, got %d", len(info.Probes))
	}
	expected := []string{"stdin", "stdout", "stderr"}
	for i, name := range expected {
		if info.Probes[i].Name != name {
			t.Fatalf("expected probe %d name %q, got %q", i, name, info.Probes[i].Name)
		}
	}
}

func TestStartupTracePayloadIncludesFlags(t *testing.T) {
	cfg := config.Config{
		App: app.Config{
			Settings: session.Settings{
				LocalURL:    "http://openhab:8080",
				SitemapName: "watch",
				Username:    "admin",
				Password:    "secret",
			},
			Version:         2,
			Refresh:         true,
			LongPollTimeout: time.Minute,
			RequestTimeout:  15 * time.Second,
			Width:           80,
			Height:          24,
		},
		Logging: config.Logging{
			FilePath: "trace.log",
			Trace:    true,
		},
		Flags: map[string]string{
			"url":      "http://openhab:8080",
			"sitemap":  "watch",
			"width":    "80",
			"height":   "24",
			"refresh":  "true",
			"password": "secret",
		},
		Args: []string{"-url", "http://openhab:8080", "-password", "secret"},
	}
	tty := ttyDetails{Detected: &ttyDetected{Source: "stdout", Width: 80, Height: 24}}

	payload := startupTracePayload(cfg, tty)

	flagsValue, ok := payload["flags"].(map[string]interface{})
	require.True(t, ok, "expected flags map in payload")
	require.Equal(t, "http://openhab:8080", flagsValue["url"])
	require.Equal(t, "watch", flagsValue["sitemap"])
	require.Equal(t, "80", flagsValue["width"])
	require.Equal(t, "24", flagsValue["height"])
	require.Equal(t, "true", flagsValue["refresh"])
	require.Equal(t, true, flagsValue["trace"])
	require.Equal(t, "trace.log", flagsValue["logFile"])
	require.NotContains(t, flagsValue, "password")

	require.Equal(t, []string{"-url", "http://openhab:8080", "-password", "***"}, payload["argv"])
	require.Equal(t, tty, payload["tty"])

	conn, ok := payload["connection"].(connectionSummary)
	require.True(t, ok, "expected connection summary in payload")
	require.Equal(t, connectionSummary{
		RootURL:     "http://openhab:8080",
		Sitemap:     "watch",
		Version:     2,
		Refresh:     true,
		Credentials: true,
	}, conn)
}

func TestRedactArgs(t *testing.T) {
	cases := map[string]struct {
		in   []string
		want []string
	}{
		"separate value": {[]string{"-password", "pw", "-url", "x"}, []string{"-password", "***", "-url", "x"}},
		"inline value":   {[]string{"--password=pw"}, []string{"--password=***"}},
		"trailing flag":  {[]string{"-password"}, []string{"-password"}},
		"positional":     {[]string{"password", "pw"}, []string{"password", "pw"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := append([]string(nil), tc.in...)
			require.Equal(t, tc.want, redactArgs(in))
			require.Equal(t, tc.in, in)
		})
	}
}

func TestRequireTerminal(t *testing.T) {
	detected := ttyDetails{Detected: &ttyDetected{Source: "stdin", Width: 100, Height: 30}}
	require.NoError(t, requireTerminal(config.Config{}, detected))
	require.ErrorIs(t, requireTerminal(config.Config{}, ttyDetails{}), errNoTerminal)

	dump := config.Config{Dump: config.Dump{Enabled: true}}
	require.NoError(t, requireTerminal(dump, ttyDetails{}))
}
