// Package window owns the single application window: its creation, the
// ready-to-show handshake, navigation policy and what happens when it is
// closed or the application is reactivated.
package window

import "errors"

// ErrWindowExists is returned by CreateWindow while a window is open.
var ErrWindowExists = errors.New("application window already exists")

// Options describes the window to construct.
type Options struct {
	Title      string
	MinWidth   int
	MinHeight  int
	Background string
	// Document is the URL of the packaged UI document.
	Document string
}

// DefaultOptions returns the options used for the overlay window.
func DefaultOptions() Options {
	return Options{
		Title:      "BG-Window",
		MinWidth:   80,
		MinHeight:  24,
		Background: "#0f0f13",
		Document:   "file:///index.yml",
	}
}

// Window is a top-level UI surface created by a Host. Windows start hidden.
type Window interface {
	ID() int
	// LoadURL loads a document into the window. The outcome is reported
	// asynchronously through DOMReady or DidFailLoad.
	LoadURL(url string)
	Show()
	Focus()
	Restore()
	IsMinimized() bool
	Close()
}

// Host constructs windows. Events for a window are delivered to sink,
// possibly from a goroutine other than the caller's.
type Host interface {
	NewWindow(opts Options, sink func(Event)) (Window, error)
}

// Opener hands a URL to the system's default handler.
type Opener interface {
	OpenExternal(url string) error
}

// TerminationPolicy decides what happens when the last window closes.
type TerminationPolicy struct {
	// PersistWithoutWindows keeps the process running with zero windows,
	// as desktop conventions on macOS expect.
	PersistWithoutWindows bool
}
