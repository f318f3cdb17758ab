package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/atomicstack/openhab-popup/internal/app"
	"github.com/atomicstack/openhab-popup/internal/config"
	"github.com/atomicstack/openhab-popup/internal/logging"
	"github.com/atomicstack/openhab-popup/internal/logging/events"
	"golang.org/x/term"
)

func main() {
	runtimeCfg := config.MustLoad()
	if err := config.Validate(runtimeCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	logging.Configure(runtimeCfg.Logging.FilePath)
	logging.SetTraceEnabled(runtimeCfg.Logging.Trace)

	tty := collectTTYDetails()
	events.App.Start(startupTracePayload(runtimeCfg, tty))

	err := requireTerminal(runtimeCfg, tty)
	if err == nil {
		err = run(runtimeCfg)
	}
	events.App.Stop(err)
	if err != nil {
		logging.Error(err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	if cfg.Dump.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return app.Dump(ctx, cfg.App, os.Stdout, cfg.Dump.Format)
	}
	return app.Run(cfg.App)
}

// errNoTerminal is returned when the popup would start without a terminal
// to draw on.
var errNoTerminal = errors.New("no terminal attached; use -dump to print the sitemap instead")

// requireTerminal fails when the popup has nowhere to render. Dump mode only
// writes to stdout and needs no terminal.
func requireTerminal(cfg config.Config, tty ttyDetails) error {
	if cfg.Dump.Enabled || tty.Detected != nil {
		return nil
	}
	return errNoTerminal
}

type connectionSummary struct {
	RootURL       string `json:"rootUrl"`
	Sitemap       string `json:"sitemap"`
	Version       int    `json:"version"`
	Refresh       bool   `json:"refresh"`
	Preview       bool   `json:"preview,omitempty"`
	Dump          bool   `json:"dump,omitempty"`
	Credentials   bool   `json:"credentials"`
	IgnoreSSL     bool   `json:"ignoreSSL,omitempty"`
	TrustedHosts  int    `json:"trustedHosts,omitempty"`
	CompanionFile string `json:"companionFile,omitempty"`
}

func summarizeConnection(cfg config.Config) connectionSummary {
	settings := cfg.App.Settings
	return connectionSummary{
		RootURL:       settings.RootURL(),
		Sitemap:       settings.SitemapName,
		Version:       cfg.App.Version,
		Refresh:       cfg.App.Refresh,
		Preview:       cfg.App.Preview,
		Dump:          cfg.Dump.Enabled,
		Credentials:   settings.Username != "",
		IgnoreSSL:     settings.IgnoreSSL,
		TrustedHosts:  len(settings.TrustedCertificates),
		CompanionFile: cfg.App.CompanionFile,
	}
}

// startupTracePayload bundles runtime context for trace logging. Credentials
// are reduced to a flag.
func startupTracePayload(cfg config.Config, tty ttyDetails) map[string]interface{} {
	flags := make(map[string]interface{}, len(cfg.Flags))
	for k, v := range cfg.Flags {
		if k == "password" {
			continue
		}
		flags[k] = v
	}
	flags["trace"] = cfg.Logging.Trace
	flags["logFile"] = cfg.Logging.FilePath
	payload := map[string]interface{}{
		"argv":       redactArgs(cfg.Args),
		"flags":      flags,
		"connection": summarizeConnection(cfg),
		"tty":        tty,
	}
	if exe, err := os.Executable(); err == nil {
		payload["executable"] = exe
	} else {
		payload["executableError"] = err.Error()
	}
	if cwd, err := os.Getwd(); err == nil {
		payload["cwd"] = cwd
	} else {
		payload["cwdError"] = err.Error()
	}
	return payload
}

// redactArgs masks the value of -password in argv.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i, arg := range out {
		name := strings.TrimLeft(arg, "-")
		switch {
		case strings.HasPrefix(name, "password="):
			out[i] = arg[:len(arg)-len(name)] + "password=***"
		case name == "password" && arg != name && i+1 < len(out):
			out[i+1] = "***"
		}
	}
	return out
}

type ttyDetails struct {
	Detected *ttyDetected     `json:"detected,omitempty"`
	Probes   []ttyProbeResult `json:"probes"`
}

type ttyDetected struct {
	Source string `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type ttyProbeResult struct {
	Name       string `json:"name"`
	IsTerminal bool   `json:"is_terminal"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Error      string `json:"error,omitempty"`
}

// collectTTYDetails inspects standard descriptors for terminal support and dimensions.
func collectTTYDetails() ttyDetails {
	probes := []struct {
		name string
		fd   uintptr
	}{
		{"stdin", os.Stdin.Fd()},
		{"stdout", os.Stdout.Fd()},
		{"stderr", os.Stderr.Fd()},
	}
	results := make([]ttyProbeResult, 0, len(probes))
	var detected *ttyDetected
	for _, probe := range probes {
		entry := ttyProbeResult{Name: probe.name}
		fd := int(probe.fd)
		if fd >= 0 && term.IsTerminal(fd) {
			entry.IsTerminal = true
			if width, height, err := term.GetSize(fd); err == nil {
				entry.Width = width
				entry.Height = height
				if detected == nil {
					detected = &ttyDetected{Source: probe.name, Width: width, Height: height}
				}
			} else {
				entry.Error = err.Error()
			}
		} else {
			entry.IsTerminal = false
		}
		results = append(results, entry)
	}
	return ttyDetails{Detected: detected, Probes: results}
}
