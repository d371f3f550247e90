package feed

import (
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	goversion "github.com/hashicorp/go-version"
)

// ManifestName is the manifest file published at the feed root.
const ManifestName = "latest.yml"

// Manifest describes the latest published release.
type Manifest struct {
	Version     string `yaml:"version"`
	Path        string `yaml:"path"`
	SHA512      string `yaml:"sha512"`
	Size        int64  `yaml:"size,omitempty"`
	ReleaseDate string `yaml:"releaseDate,omitempty"`
}

// ParseManifest decodes and validates a manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks that every required field is present and well formed.
func (m Manifest) Validate() error {
	var errs []error
	if _, err := goversion.NewVersion(m.Version); err != nil {
		errs = append(errs, fmt.Errorf("manifest version %q: %w", m.Version, err))
	}
	if m.Path == "" {
		errs = append(errs, errors.New("manifest path is empty"))
	}
	if _, err := base64.StdEncoding.DecodeString(m.SHA512); err != nil || m.SHA512 == "" {
		errs = append(errs, fmt.Errorf("manifest sha512 %q is not base64", m.SHA512))
	}
	return errors.Join(errs...)
}

// Marshal encodes the manifest as YAML.
func (m Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// Checksum returns the base64 SHA-512 digest of r and the number of bytes
// read.
func Checksum(r io.Reader) (string, int64, error) {
	h := sha512.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), n, nil
}

// IsNewer reports whether latest is a newer version than current. An
// unparsable current version, such as a development build, counts as
// 0.0.0.
func IsNewer(latest, current string) (bool, error) {
	l, err := goversion.NewVersion(latest)
	if err != nil {
		return false, fmt.Errorf("parse latest version %q: %w", latest, err)
	}
	c, err := goversion.NewVersion(current)
	if err != nil {
		c, _ = goversion.NewVersion("0.0.0")
	}
	return l.GreaterThan(c), nil
}
