package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/atomicstack/openhab-popup/internal/app"
	"github.com/atomicstack/openhab-popup/internal/endpoint"
	"github.com/atomicstack/openhab-popup/internal/output"
	"github.com/atomicstack/openhab-popup/internal/preferences"
	"github.com/atomicstack/openhab-popup/internal/sitemap"
)

// Config captures runtime configuration for the application.
type Config struct {
	App     app.Config
	Logging Logging
	Dump    Dump
	Flags   map[string]string
	Args    []string
}

type Logging struct {
	FilePath string
	Trace    bool
}

// Dump selects one-shot mode: fetch the page once, print it and exit.
type Dump struct {
	Enabled bool
	Format  output.Format
}

const (
	envPrefix      = "OPENHAB_POPUP"
	defaultSitemap = "watch"
)

// environment is the env layer, read as OPENHAB_POPUP_<NAME>.
type environment struct {
	URL             string        `envconfig:"URL"`
	RemoteURL       string        `envconfig:"REMOTE_URL"`
	Sitemap         string        `envconfig:"SITEMAP"`
	Username        string        `envconfig:"USERNAME"`
	Password        string        `envconfig:"PASSWORD"`
	IgnoreSSL       bool          `envconfig:"IGNORE_SSL"`
	Version         int           `envconfig:"VERSION" default:"2"`
	Refresh         bool          `envconfig:"REFRESH" default:"true"`
	LongPollTimeout time.Duration `envconfig:"LONG_POLL_TIMEOUT" default:"60s"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	Prefs           string        `envconfig:"PREFS"`
	CompanionFile   string        `envconfig:"COMPANION_FILE"`
	IconFormat      string        `envconfig:"ICON_FORMAT" default:"png"`
	Width           int           `envconfig:"WIDTH"`
	Height          int           `envconfig:"HEIGHT"`
	Trace           bool          `envconfig:"TRACE"`
	LogFile         string        `envconfig:"LOG_FILE"`
}

// Load parses configuration from CLI arguments and environment variables.
func Load() (Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses args on top of the environment and the preferences file.
// Precedence is flags, then environment, then preferences.
func LoadArgs(args []string) (Config, error) {
	var env environment
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	fs := flag.NewFlagSet("openhab-popup", flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))

	url := fs.String("url", env.URL, "local openHAB root URL (e.g. http://openhab:8080)")
	remoteURL := fs.String("remote-url", env.RemoteURL, "remote openHAB root URL used when no local URL is set")
	sitemapName := fs.String("sitemap", env.Sitemap, "sitemap to display (default \"watch\")")
	username := fs.String("username", env.Username, "basic-auth username")
	password := fs.String("password", env.Password, "basic-auth password")
	ignoreSSL := fs.Bool("ignore-ssl", env.IgnoreSSL, "skip TLS certificate verification")
	version := fs.Int("version", env.Version, "server protocol version (1 = legacy XML, 2 = JSON)")
	refresh := fs.Bool("refresh", env.Refresh, "keep the page live with long polling")
	longPoll := fs.Duration("long-poll-timeout", env.LongPollTimeout, "maximum hold time of a long-poll request")
	request := fs.Duration("request-timeout", env.RequestTimeout, "timeout of short requests and commands")
	prefsPath := fs.String("prefs", env.Prefs, "path to the preferences file")
	companionFile := fs.String("companion-file", env.CompanionFile, "JSON drop file watched for pushed connection settings")
	iconFormat := fs.String("icon-format", env.IconFormat, "icon format for icon references (png or svg)")
	width := fs.Int("width", env.Width, "desired viewport width in cells (0 uses terminal width)")
	height := fs.Int("height", env.Height, "desired viewport height in rows (0 uses terminal height)")
	trace := fs.Bool("trace", env.Trace, "enable verbose JSON trace logging")
	logFile := fs.String("log-file", env.LogFile, "path to the log file")
	dump := fs.Bool("dump", false, "fetch the page once, print it and exit")
	format := fs.String("format", string(output.FormatJSON), "dump output format (json or yaml)")
	preview := fs.Bool("preview", false, "show the built-in sample page without contacting a server")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	path := *prefsPath
	if path == "" {
		path = preferences.DefaultPath()
	}
	prefs, err := preferences.Load(path)
	if err != nil {
		return Config{}, err
	}

	settings := prefs
	overlay(&settings.LocalURL, *url)
	overlay(&settings.RemoteURL, *remoteURL)
	overlay(&settings.SitemapName, *sitemapName)
	overlay(&settings.Username, *username)
	overlay(&settings.Password, *password)
	settings.IgnoreSSL = settings.IgnoreSSL || *ignoreSSL
	if settings.SitemapName == "" {
		settings.SitemapName = defaultSitemap
	}

	icons, err := endpoint.ParseIconFormat(*iconFormat)
	if err != nil {
		return Config{}, err
	}
	dumpFormat, err := output.ParseFormat(*format)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		App: app.Config{
			Settings:        settings,
			Version:         *version,
			Refresh:         *refresh,
			LongPollTimeout: *longPoll,
			RequestTimeout:  *request,
			PrefsPath:       path,
			CompanionFile:   *companionFile,
			IconFormat:      icons,
			Width:           *width,
			Height:          *height,
			Preview:         *preview,
		},
		Logging: Logging{
			FilePath: *logFile,
			Trace:    *trace,
		},
		Dump: Dump{
			Enabled: *dump,
			Format:  dumpFormat,
		},
		Flags: map[string]string{
			"url":             *url,
			"remoteUrl":       *remoteURL,
			"sitemap":         settings.SitemapName,
			"username":        *username,
			"ignoreSSL":       strconv.FormatBool(settings.IgnoreSSL),
			"version":         strconv.Itoa(*version),
			"refresh":         strconv.FormatBool(*refresh),
			"longPollTimeout": longPoll.String(),
			"requestTimeout":  request.String(),
			"prefs":           path,
			"companionFile":   *companionFile,
			"iconFormat":      string(icons),
			"width":           strconv.Itoa(*width),
			"height":          strconv.Itoa(*height),
			"trace":           strconv.FormatBool(*trace),
			"logFile":         *logFile,
			"dump":            strconv.FormatBool(*dump),
			"format":          string(dumpFormat),
			"preview":         strconv.FormatBool(*preview),
		},
		Args: append([]string(nil), args...),
	}

	return cfg, nil
}

func overlay(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

// MustLoad returns configuration or exits.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// Validate ensures required minimum configuration is present.
func Validate(cfg Config) error {
	a := cfg.App
	if a.Width < 0 {
		return fmt.Errorf("width must be >= 0 (got %d)", a.Width)
	}
	if a.Height < 0 {
		return fmt.Errorf("height must be >= 0 (got %d)", a.Height)
	}
	if a.Version != sitemap.VersionLegacy && a.Version != sitemap.VersionJSON {
		return fmt.Errorf("version must be %d or %d (got %d)", sitemap.VersionLegacy, sitemap.VersionJSON, a.Version)
	}
	if a.LongPollTimeout <= 0 {
		return fmt.Errorf("long-poll-timeout must be positive (got %s)", a.LongPollTimeout)
	}
	if a.RequestTimeout <= 0 {
		return fmt.Errorf("request-timeout must be positive (got %s)", a.RequestTimeout)
	}
	if a.Preview {
		if cfg.Dump.Enabled {
			return fmt.Errorf("preview and dump cannot be combined")
		}
		return nil
	}
	if a.Settings.RootURL() == "" && a.CompanionFile == "" {
		return fmt.Errorf("no server URL: set -url, -remote-url, the preferences file or -companion-file")
	}
	if a.Settings.RootURL() != "" {
		if _, err := endpoint.Sitemap(a.Settings.RootURL(), a.Settings.SitemapName); err != nil {
			return err
		}
	}
	if cfg.Dump.Enabled && a.Settings.RootURL() == "" {
		return fmt.Errorf("dump needs a server URL")
	}
	return nil
}
