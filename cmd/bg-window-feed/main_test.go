package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bg-window/internal/update/feed"
)

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "bg-window-linux-amd64")
	require.NoError(t, os.WriteFile(binary, []byte("new build"), 0o755))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m, dest, err := writeManifest(binary, "1.4.0", "", "", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, feed.ManifestName), dest)
	assert.Equal(t, "bg-window-linux-amd64", m.Path)
	assert.Equal(t, int64(len("new build")), m.Size)
	assert.Equal(t, "2026-03-01T12:00:00Z", m.ReleaseDate)

	want, _, err := feed.Checksum(strings.NewReader("new build"))
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	parsed, err := feed.ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", parsed.Version)
	assert.Equal(t, want, parsed.SHA512)
}

func TestWriteManifest_Errors(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "bin")
	require.NoError(t, os.WriteFile(binary, []byte("x"), 0o755))

	tests := []struct {
		name    string
		binary  string
		version string
	}{
		{"missing flags", "", ""},
		{"missing binary", filepath.Join(dir, "nope"), "1.0.0"},
		{"bad version", binary, "not a version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := writeManifest(tt.binary, tt.version, "", dir, time.Now())
			assert.Error(t, err)
		})
	}
}
