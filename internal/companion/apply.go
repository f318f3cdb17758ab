// Package companion applies connection settings pushed by a paired device.
// A push is a flat key/value bundle; unknown keys are ignored and absent
// keys leave the current value alone.
package companion

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/atomicstack/openhab-popup/internal/logging/events"
	"github.com/atomicstack/openhab-popup/internal/session"
)

// Recognised bundle keys.
const (
	KeyLocalURL            = "localUrl"
	KeyRemoteURL           = "remoteUrl"
	KeySitemapName         = "sitemapName"
	KeyUsername            = "username"
	KeyPassword            = "password"
	KeyIgnoreSSL           = "ignoreSSL"
	KeyTrustedCertificates = "trustedCertificates"
)

// Result reports what a push did.
type Result struct {
	// Keys lists the recognised keys that were applied, sorted.
	Keys []string
	// Changed is true when the session settings differ afterwards.
	Changed bool
	// Reconnect is true when the URL or sitemap changed and the page must
	// be loaded again.
	Reconnect bool
}

// Apply writes the recognised keys of bundle into sess.
func Apply(source string, sess *session.Session, bundle map[string]any) Result {
	keys := lo.Keys(bundle)
	slices.Sort(keys)

	before := sess.Settings()
	var applied []string
	changed := sess.Update(func(s *session.Settings) {
		for _, key := range keys {
			if err := applyKey(s, key, bundle[key]); err != nil {
				events.Companion.Error(source, err)
				continue
			}
			if isKnown(key) {
				applied = append(applied, key)
			} else {
				events.Companion.Ignored(source, key)
			}
		}
	})
	after := sess.Settings()
	events.Companion.Apply(source, applied)
	return Result{
		Keys:    applied,
		Changed: changed,
		Reconnect: before.RootURL() != after.RootURL() ||
			before.SitemapName != after.SitemapName,
	}
}

func isKnown(key string) bool {
	switch key {
	case KeyLocalURL, KeyRemoteURL, KeySitemapName, KeyUsername, KeyPassword, KeyIgnoreSSL, KeyTrustedCertificates:
		return true
	}
	return false
}

func applyKey(s *session.Settings, key string, value any) error {
	switch key {
	case KeyLocalURL:
		return setString(&s.LocalURL, key, value)
	case KeyRemoteURL:
		return setString(&s.RemoteURL, key, value)
	case KeySitemapName:
		return setString(&s.SitemapName, key, value)
	case KeyUsername:
		return setString(&s.Username, key, value)
	case KeyPassword:
		return setString(&s.Password, key, value)
	case KeyIgnoreSSL:
		b, err := toBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.IgnoreSSL = b
	case KeyTrustedCertificates:
		certs, err := toCertificates(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.TrustedCertificates = certs
	}
	return nil
}

func setString(dst *string, key string, value any) error {
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("%s: expected string, got %T", key, value)
	}
	*dst = strings.TrimSpace(str)
	return nil
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	}
	return false, fmt.Errorf("expected bool, got %T", value)
}

func toCertificates(value any) (map[string][]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string][]byte:
		out := make(map[string][]byte, len(v))
		for host, cert := range v {
			out[host] = append([]byte(nil), cert...)
		}
		return out, nil
	case map[string]string:
		return lo.MapValues(v, func(cert string, _ string) []byte { return []byte(cert) }), nil
	case map[string]any:
		out := make(map[string][]byte, len(v))
		for host, raw := range v {
			switch cert := raw.(type) {
			case string:
				out[host] = []byte(cert)
			case []byte:
				out[host] = append([]byte(nil), cert...)
			default:
				return nil, fmt.Errorf("certificate for %q: unexpected %T", host, raw)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected host to certificate map, got %T", value)
}
