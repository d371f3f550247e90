package window

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWindow struct {
	id        int
	calls     []string
	loaded    []string
	visible   bool
	minimized bool
}

func (w *fakeWindow) ID() int { return w.id }
func (w *fakeWindow) LoadURL(u string) {
	w.calls = append(w.calls, "load")
	w.loaded = append(w.loaded, u)
}
func (w *fakeWindow) Show() {
	w.calls = append(w.calls, "show")
	w.visible = true
}
func (w *fakeWindow) Focus() { w.calls = append(w.calls, "focus") }
func (w *fakeWindow) Restore() {
	w.calls = append(w.calls, "restore")
	w.minimized = false
}
func (w *fakeWindow) IsMinimized() bool { return w.minimized }
func (w *fakeWindow) Close()            { w.calls = append(w.calls, "close") }

type fakeHost struct {
	windows []*fakeWindow
	sinks   []func(Event)
	opts    []Options
	err     error
}

func (h *fakeHost) NewWindow(opts Options, sink func(Event)) (Window, error) {
	if h.err != nil {
		return nil, h.err
	}
	w := &fakeWindow{id: len(h.windows) + 1}
	h.windows = append(h.windows, w)
	h.sinks = append(h.sinks, sink)
	h.opts = append(h.opts, opts)
	return w, nil
}

func (h *fakeHost) emit(i int, ev Event) { h.sinks[i](ev) }

type fakeOpener struct {
	urls []string
}

func (o *fakeOpener) OpenExternal(u string) error {
	o.urls = append(o.urls, u)
	return nil
}

type harness struct {
	host   *fakeHost
	opener *fakeOpener
	mgr    *Manager
	quits  int
	ready  []Window
}

func newHarness(policy TerminationPolicy) *harness {
	h := &harness{host: &fakeHost{}, opener: &fakeOpener{}}
	h.mgr = NewManager(h.host, h.opener, DefaultOptions(), policy,
		func(fn func()) { fn() },
		func() { h.quits++ },
		func(w Window) { h.ready = append(h.ready, w) },
	)
	return h
}

func TestManager_CreateWindowHiddenUntilReady(t *testing.T) {
	h := newHarness(TerminationPolicy{})

	w, err := h.mgr.CreateWindow()
	require.NoError(t, err)
	fw := h.host.windows[0]
	assert.Same(t, fw, w)
	assert.Equal(t, []string{"file:///index.yml"}, fw.loaded)
	assert.False(t, fw.visible, "window starts hidden")

	h.host.emit(0, DOMReady{URL: "file:///index.yml"})
	assert.NotContains(t, fw.calls, "show", "dom-ready does not show the window")
	assert.Empty(t, h.ready)

	h.host.emit(0, ReadyToShow{})
	assert.True(t, fw.visible)
	assert.Equal(t, []string{"load", "show"}, fw.calls)
	require.Len(t, h.ready, 1)

	h.host.emit(0, ReadyToShow{})
	assert.Len(t, h.ready, 1, "ready hook runs once per window")
}

func TestManager_DefaultOptions(t *testing.T) {
	h := newHarness(TerminationPolicy{})
	_, err := h.mgr.CreateWindow()
	require.NoError(t, err)

	opts := h.host.opts[0]
	assert.Equal(t, 80, opts.MinWidth)
	assert.Equal(t, 24, opts.MinHeight)
	assert.Equal(t, "BG-Window", opts.Title)
}

func TestManager_SingleWindow(t *testing.T) {
	h := newHarness(TerminationPolicy{})

	_, err := h.mgr.CreateWindow()
	require.NoError(t, err)
	_, err = h.mgr.CreateWindow()
	require.ErrorIs(t, err, ErrWindowExists)

	require.NoError(t, h.mgr.Activate())
	assert.Len(t, h.host.windows, 1, "activate with an open window creates nothing")
}

func TestManager_CreateWindowHostError(t *testing.T) {
	h := newHarness(TerminationPolicy{})
	h.host.err = errors.New("no terminal")

	_, err := h.mgr.CreateWindow()
	require.Error(t, err)
	assert.Nil(t, h.mgr.Current())
}

func TestManager_FocusExisting(t *testing.T) {
	h := newHarness(TerminationPolicy{})
	assert.False(t, h.mgr.FocusExisting(), "no window to focus")
	assert.Empty(t, h.host.windows, "focusing never creates a window")

	_, err := h.mgr.CreateWindow()
	require.NoError(t, err)
	fw := h.host.windows[0]
	fw.minimized = true

	for i := 0; i < 3; i++ {
		assert.True(t, h.mgr.FocusExisting())
	}
	assert.Len(t, h.host.windows, 1)
	assert.Equal(t, []string{"load", "restore", "focus", "focus", "focus"}, fw.calls)
}

func TestManager_Navigation(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		wantLoaded   bool
		wantExternal bool
	}{
		{"https link", "https://example.com/help", false, true},
		{"http link", "http://example.com", false, true},
		{"mailto", "mailto:someone@example.com", false, true},
		{"local document", "file:///about.yml", true, false},
		{"relative path", "about.yml", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(TerminationPolicy{})
			_, err := h.mgr.CreateWindow()
			require.NoError(t, err)
			fw := h.host.windows[0]

			h.host.emit(0, NavigationRequested{URL: tt.target})

			assert.Equal(t, tt.wantLoaded, len(fw.loaded) == 2)
			if tt.wantExternal {
				assert.Equal(t, []string{tt.target}, h.opener.urls)
			} else {
				assert.Empty(t, h.opener.urls)
			}
		})
	}
}

func TestManager_CloseQuits(t *testing.T) {
	h := newHarness(TerminationPolicy{})
	_, err := h.mgr.CreateWindow()
	require.NoError(t, err)

	h.host.emit(0, Closed{})
	assert.Nil(t, h.mgr.Current())
	assert.Equal(t, 1, h.quits)
}

func TestManager_ClosePersists(t *testing.T) {
	h := newHarness(TerminationPolicy{PersistWithoutWindows: true})
	_, err := h.mgr.CreateWindow()
	require.NoError(t, err)

	h.host.emit(0, Closed{})
	assert.Nil(t, h.mgr.Current())
	assert.Equal(t, 0, h.quits)

	require.NoError(t, h.mgr.Activate())
	require.Len(t, h.host.windows, 2, "reactivation recreates the window")
	assert.Equal(t, []string{"file:///index.yml"}, h.host.windows[1].loaded)

	// Events from the old window are ignored.
	h.host.emit(0, ReadyToShow{})
	assert.False(t, h.host.windows[1].visible)
	h.host.emit(1, ReadyToShow{})
	assert.True(t, h.host.windows[1].visible)
}

func TestManager_ReportingEventsDoNotChangeWindow(t *testing.T) {
	h := newHarness(TerminationPolicy{})
	_, err := h.mgr.CreateWindow()
	require.NoError(t, err)
	fw := h.host.windows[0]

	h.host.emit(0, DidFailLoad{Code: -6, Description: "ERR_FILE_NOT_FOUND", URL: "file:///index.yml", IsMainFrame: true})
	h.host.emit(0, RenderProcessGone{Reason: "crashed", ExitCode: 1})
	h.host.emit(0, ConsoleMessage{Level: ConsoleWarn, Message: "unknown key", Line: 3, Source: "file:///index.yml"})

	assert.Equal(t, []string{"load"}, fw.calls, "failures are reported, never retried")
	assert.Same(t, fw, h.mgr.Current())
	assert.Equal(t, 0, h.quits)
}

func TestIsLocal(t *testing.T) {
	assert.True(t, IsLocal("file:///index.yml"))
	assert.False(t, IsLocal("https://example.com"))
	assert.False(t, IsLocal("javascript:alert(1)"))
	assert.False(t, IsLocal("://bad"))
	assert.False(t, IsLocal(""))
}

func TestConsoleLevel(t *testing.T) {
	assert.Equal(t, "LOG", consoleLevel(ConsoleLog))
	assert.Equal(t, "ERROR", consoleLevel(ConsoleError))
	assert.Equal(t, "7", consoleLevel(7))
}
