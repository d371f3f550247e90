package overlay

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/goccy/go-yaml"

	"bg-window/internal/window"
)

//go:embed assets/*.yml
var embedded embed.FS

// Assets returns the packaged documents shipped with the binary.
func Assets() fs.FS {
	sub, err := fs.Sub(embedded, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// Load failure codes, numbered like the network error codes a browser
// engine reports.
const (
	ErrCodeFileNotFound    = -6
	ErrCodeInvalidURL      = -300
	ErrCodeInvalidResponse = -320
)

// maxLinks is the number of links reachable with the digit keys.
const maxLinks = 9

// LoadError describes a document that could not be loaded.
type LoadError struct {
	Code        int
	Description string
	URL         string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s (%d)", e.URL, e.Description, e.Code)
}

// Document is a packaged UI document.
type Document struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Fog      bool   `yaml:"fog"` // on unless set to false
	Dim      bool   `yaml:"dim"`
	Density  int    `yaml:"density"`
	Preset   Preset `yaml:"preset"`
	Links    []Link `yaml:"links"`
}

// Link is a navigation target shown in the overlay.
type Link struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// loadDocument reads the document at rawURL from fsys. Problems that do not
// prevent rendering are returned as console warnings.
func loadDocument(fsys fs.FS, rawURL string) (*Document, []window.ConsoleMessage, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "file" {
		return nil, nil, &LoadError{Code: ErrCodeInvalidURL, Description: "ERR_INVALID_URL", URL: rawURL}
	}

	name := strings.TrimPrefix(u.Path, "/")
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, &LoadError{Code: ErrCodeFileNotFound, Description: "ERR_FILE_NOT_FOUND", URL: rawURL}
		}
		return nil, nil, &LoadError{Code: ErrCodeInvalidResponse, Description: err.Error(), URL: rawURL}
	}

	doc := Document{Fog: true}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, &LoadError{Code: ErrCodeInvalidResponse, Description: "ERR_INVALID_RESPONSE: " + err.Error(), URL: rawURL}
	}

	var warnings []window.ConsoleMessage
	warn := func(format string, args ...any) {
		warnings = append(warnings, window.ConsoleMessage{
			Level:   window.ConsoleWarn,
			Message: fmt.Sprintf(format, args...),
			Source:  rawURL,
		})
	}

	links := doc.Links[:0]
	for i, l := range doc.Links {
		if l.URL == "" {
			warn("link %d (%q) has no url, skipped", i+1, l.Label)
			continue
		}
		if l.Label == "" {
			l.Label = l.URL
		}
		links = append(links, l)
	}
	if len(links) > maxLinks {
		warn("%d links, only the first %d are reachable", len(links), maxLinks)
		links = links[:maxLinks]
	}
	doc.Links = links

	if doc.Preset != "" {
		if d, ok := Presets[doc.Preset]; ok {
			doc.Density = d
		} else {
			warn("unknown fog preset %q", doc.Preset)
		}
	}
	if doc.Density < MinDensity || doc.Density > MaxDensity {
		if doc.Density != 0 {
			warn("density %d out of range [%d, %d]", doc.Density, MinDensity, MaxDensity)
		}
		doc.Density = DefaultDensity
	}
	return &doc, warnings, nil
}
