// Package preferences persists connection settings as a YAML file.
package preferences

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/atomicstack/openhab-popup/internal/session"
)

const fileName = "preferences.yaml"

// file is the on-disk shape. Certificates are stored as PEM text, or as
// base64 when the stored bytes are DER.
type file struct {
	LocalURL            string            `yaml:"localUrl,omitempty"`
	RemoteURL           string            `yaml:"remoteUrl,omitempty"`
	SitemapName         string            `yaml:"sitemapName,omitempty"`
	Username            string            `yaml:"username,omitempty"`
	Password            string            `yaml:"password,omitempty"`
	IgnoreSSL           bool              `yaml:"ignoreSSL,omitempty"`
	TrustedCertificates map[string]string `yaml:"trustedCertificates,omitempty"`
}

// DefaultPath is preferences.yaml under the user config directory, or in
// the working directory when that cannot be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return fileName
	}
	return filepath.Join(dir, "openhab-popup", fileName)
}

// Load reads settings from path. A missing file yields empty settings.
func Load(path string) (session.Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return session.Settings{}, nil
	}
	if err != nil {
		return session.Settings{}, fmt.Errorf("read preferences: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return session.Settings{}, fmt.Errorf("parse preferences %s: %w", path, err)
	}
	settings := session.Settings{
		LocalURL:    f.LocalURL,
		RemoteURL:   f.RemoteURL,
		SitemapName: f.SitemapName,
		Username:    f.Username,
		Password:    f.Password,
		IgnoreSSL:   f.IgnoreSSL,
	}
	if len(f.TrustedCertificates) > 0 {
		settings.TrustedCertificates = make(map[string][]byte, len(f.TrustedCertificates))
		for host, cert := range f.TrustedCertificates {
			settings.TrustedCertificates[host] = []byte(cert)
		}
	}
	return settings, nil
}

// Save writes settings to path with owner-only permissions.
func Save(path string, settings session.Settings) error {
	f := file{
		LocalURL:    settings.LocalURL,
		RemoteURL:   settings.RemoteURL,
		SitemapName: settings.SitemapName,
		Username:    settings.Username,
		Password:    settings.Password,
		IgnoreSSL:   settings.IgnoreSSL,
	}
	if len(settings.TrustedCertificates) > 0 {
		f.TrustedCertificates = make(map[string]string, len(settings.TrustedCertificates))
		for host, cert := range settings.TrustedCertificates {
			f.TrustedCertificates[host] = encodeCertificate(cert)
		}
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create preferences directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

func encodeCertificate(cert []byte) string {
	if bytes.HasPrefix(bytes.TrimSpace(cert), []byte("-----BEGIN")) {
		return string(cert)
	}
	return base64.StdEncoding.EncodeToString(cert)
}
