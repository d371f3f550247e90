package window

import (
	"fmt"
	"net/url"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Manager owns zero or one application window. All methods must be called
// from the application loop; host events are posted back to it through the
// dispatch function.
type Manager struct {
	host     Host
	opener   Opener
	opts     Options
	policy   TerminationPolicy
	dispatch func(func())
	quit     func()
	onReady  func(Window)

	win   Window
	shown bool
}

// NewManager creates a window manager. quit is called when the last window
// closes and the policy does not keep the process alive; onReady is called
// each time a window has been shown.
func NewManager(host Host, opener Opener, opts Options, policy TerminationPolicy, dispatch func(func()), quit func(), onReady func(Window)) *Manager {
	if onReady == nil {
		onReady = func(Window) {}
	}
	return &Manager{
		host:     host,
		opener:   opener,
		opts:     opts,
		policy:   policy,
		dispatch: dispatch,
		quit:     quit,
		onReady:  onReady,
	}
}

// Current returns the open window or nil.
func (m *Manager) Current() Window {
	return m.win
}

// CreateWindow constructs the application window hidden and starts loading
// the packaged document. The window is shown when it reports ReadyToShow.
func (m *Manager) CreateWindow() (Window, error) {
	if m.win != nil {
		return nil, ErrWindowExists
	}

	var w Window
	sink := func(ev Event) {
		m.dispatch(func() { m.handle(w, ev) })
	}
	w, err := m.host.NewWindow(m.opts, sink)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	m.win = w
	m.shown = false

	log.WithFields(log.Fields{
		"id":    w.ID(),
		"title": m.opts.Title,
		"min":   fmt.Sprintf("%dx%d", m.opts.MinWidth, m.opts.MinHeight),
	}).Debug("[main] window created")

	w.LoadURL(m.opts.Document)
	return w, nil
}

// FocusExisting restores and focuses the open window. It reports whether a
// window was found; it never creates one.
func (m *Manager) FocusExisting() bool {
	if m.win == nil {
		return false
	}
	if m.win.IsMinimized() {
		m.win.Restore()
	}
	m.win.Focus()
	return true
}

// Activate handles the application being reactivated. A window is created
// only when none is open.
func (m *Manager) Activate() error {
	if m.win != nil {
		return nil
	}
	_, err := m.CreateWindow()
	return err
}

// WindowAllClosed applies the termination policy.
func (m *Manager) WindowAllClosed() {
	if m.policy.PersistWithoutWindows {
		log.Debug("[main] all windows closed, staying alive")
		return
	}
	log.Info("[main] all windows closed, quitting")
	m.quit()
}

func (m *Manager) handle(w Window, ev Event) {
	if w == nil || w != m.win {
		log.Debugf("[main] dropping %T for a stale window", ev)
		return
	}

	switch ev := ev.(type) {
	case ReadyToShow:
		if m.shown {
			return
		}
		m.shown = true
		w.Show()
		m.onReady(w)

	case DOMReady:
		log.WithField("url", ev.URL).Info("[dom-ready]")

	case DidFailLoad:
		log.WithFields(log.Fields{
			"code":        ev.Code,
			"desc":        ev.Description,
			"url":         ev.URL,
			"isMainFrame": ev.IsMainFrame,
		}).Error("[did-fail-load]")

	case RenderProcessGone:
		log.WithFields(log.Fields{
			"reason":   ev.Reason,
			"exitCode": ev.ExitCode,
		}).Error("[render-process-gone]")

	case ConsoleMessage:
		log.Infof("[RENDERER:%s] %s at %s:%d", consoleLevel(ev.Level), ev.Message, ev.Source, ev.Line)

	case NavigationRequested:
		m.navigate(w, ev.URL)

	case Closed:
		m.win = nil
		m.shown = false
		m.WindowAllClosed()
	}
}

// navigate loads local packaged documents in place and hands anything else
// to the system handler.
func (m *Manager) navigate(w Window, target string) {
	if IsLocal(target) {
		w.LoadURL(target)
		return
	}

	log.WithField("url", target).Info("[main] opening externally")
	if err := m.opener.OpenExternal(target); err != nil {
		log.WithField("url", target).Errorf("[main] open external: %v", err)
	}
}

// IsLocal reports whether target refers to a local packaged file.
func IsLocal(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Scheme == "file"
}

func consoleLevel(level int) string {
	if level >= 0 && level < len(consoleLevels) {
		return consoleLevels[level]
	}
	return strconv.Itoa(level)
}
