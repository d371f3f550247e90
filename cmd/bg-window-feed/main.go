// Command bg-window-feed writes the latest.yml manifest for a release
// binary so it can be published next to it on the update feed.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/peterbourgon/ff/v3"

	"bg-window/internal/update/feed"
)

func main() {
	fs := flag.NewFlagSet("bg-window-feed", flag.ExitOnError)
	binary := fs.String("binary", "", "Release binary to describe")
	version := fs.String("version", "", "Release version, e.g. 1.4.0")
	path := fs.String("path", "", "Artifact path relative to the feed (defaults to the binary's file name)")
	out := fs.String("out", "", "Directory to write "+feed.ManifestName+" into (defaults to the binary's directory)")

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("BG_WINDOW_FEED")); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	manifest, dest, err := writeManifest(*binary, *version, *path, *out, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s for %s (%d bytes)\n", dest, manifest.Version, manifest.Size)
}

func writeManifest(binary, version, path, out string, now time.Time) (feed.Manifest, string, error) {
	if binary == "" || version == "" {
		return feed.Manifest{}, "", errors.New("--binary and --version are required")
	}
	if path == "" {
		path = filepath.Base(binary)
	}
	if out == "" {
		out = filepath.Dir(binary)
	}

	f, err := os.Open(binary)
	if err != nil {
		return feed.Manifest{}, "", fmt.Errorf("open binary: %w", err)
	}
	defer f.Close()

	sum, size, err := feed.Checksum(f)
	if err != nil {
		return feed.Manifest{}, "", fmt.Errorf("checksum %s: %w", binary, err)
	}

	m := feed.Manifest{
		Version:     version,
		Path:        path,
		SHA512:      sum,
		Size:        size,
		ReleaseDate: now.UTC().Format(time.RFC3339),
	}
	if err := m.Validate(); err != nil {
		return feed.Manifest{}, "", err
	}
	data, err := m.Marshal()
	if err != nil {
		return feed.Manifest{}, "", fmt.Errorf("encode manifest: %w", err)
	}

	dest := filepath.Join(out, feed.ManifestName)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return feed.Manifest{}, "", fmt.Errorf("write manifest: %w", err)
	}
	return m, dest, nil
}
