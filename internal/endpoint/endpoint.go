// Package endpoint builds the REST URLs the client talks to.
package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// IconFormat selects the image encoding requested from the icon servlet.
type IconFormat string

const (
	IconPNG IconFormat = "png"
	IconSVG IconFormat = "svg"
)

var (
	ErrNoRootURL = errors.New("no server url configured")
	ErrNoSitemap = errors.New("no sitemap name configured")
	ErrNoIcon    = errors.New("widget has no icon")
)

// ParseIconFormat maps user input onto an IconFormat, defaulting to PNG.
func ParseIconFormat(s string) (IconFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return IconPNG, nil
	case "svg":
		return IconSVG, nil
	}
	return "", fmt.Errorf("unknown icon format %q", s)
}

// Sitemap returns {root}/rest/sitemaps/{name}/{name}.
func Sitemap(rootURL, sitemapName string) (*url.URL, error) {
	base, err := parseRoot(rootURL)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(sitemapName)
	if name == "" {
		return nil, ErrNoSitemap
	}
	return base.JoinPath("rest", "sitemaps", name, name), nil
}

// Item returns {root}/rest/items/{name}, used when a widget item carries no
// link of its own.
func Item(rootURL, itemName string) (*url.URL, error) {
	base, err := parseRoot(rootURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(itemName) == "" {
		return nil, errors.New("item name is empty")
	}
	return base.JoinPath("rest", "items", itemName), nil
}

// Icon resolves the fetchable URL for a widget icon. Protocol version 1
// servers serve static images; later versions render the icon for the
// current item state.
func Icon(rootURL string, version int, icon, value string, format IconFormat) (*url.URL, error) {
	base, err := parseRoot(rootURL)
	if err != nil {
		return nil, err
	}
	icon = strings.TrimSpace(icon)
	if icon == "" {
		return nil, ErrNoIcon
	}
	if format == "" {
		format = IconPNG
	}
	if version < 2 {
		return base.JoinPath("images", icon+"."+string(IconPNG)), nil
	}
	u := base.JoinPath("icon", icon)
	q := url.Values{}
	q.Set("state", value)
	q.Set("format", strings.ToUpper(string(format)))
	u.RawQuery = q.Encode()
	return u, nil
}

func parseRoot(rootURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rootURL)
	if trimmed == "" {
		return nil, ErrNoRootURL
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", rootURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q must use http or https", rootURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server url %q has no host", rootURL)
	}
	return u, nil
}
