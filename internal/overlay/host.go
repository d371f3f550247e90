// Package overlay is the tcell window host: each window is a full-screen
// terminal surface showing the fog overlay and, when asked, a modal
// restart prompt.
package overlay

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/gdamore/tcell/v2"
	log "github.com/sirupsen/logrus"

	"bg-window/internal/update"
	"bg-window/internal/window"
)

var ErrWindowClosed = errors.New("window closed")

// Host creates tcell windows. A terminal shows one window at a time.
type Host struct {
	assets    fs.FS
	newScreen func() (tcell.Screen, error)

	mu      sync.Mutex
	nextID  int
	current *Window
}

var _ window.Host = (*Host)(nil)

// NewHost returns a host loading documents from assets.
func NewHost(assets fs.FS) *Host {
	return &Host{
		assets:    assets,
		newScreen: tcell.NewScreen,
	}
}

// NewWindow initialises the terminal and returns a hidden window.
func (h *Host) NewWindow(opts window.Options, sink func(window.Event)) (window.Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil && !h.current.isClosed() {
		return nil, window.ErrWindowExists
	}

	s, err := h.newScreen()
	if err != nil {
		return nil, fmt.Errorf("creating screen: %w", err)
	}
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("initializing screen: %w", err)
	}
	s.HideCursor()

	h.nextID++
	w := &Window{
		id:     h.nextID,
		host:   h,
		opts:   opts,
		screen: s,
		sink:   sink,
		bg:     tcell.GetColor(opts.Background),
		events: make(chan tcell.Event, 10),
		done:   make(chan struct{}),
		fog:    NewFogState(nil),
	}
	h.current = w

	go w.poll()
	go w.pump()
	return w, nil
}

// Current returns the open window, if any.
func (h *Host) Current() *Window {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil || h.current.isClosed() {
		return nil
	}
	return h.current
}

// promptDetached shows a dialog on a screen of its own, used when no window
// is open, and blocks until a button is chosen. The screen is torn down
// before returning.
func (h *Host) promptDetached(title, message string, buttons []string, cancel int) (int, error) {
	s, err := h.newScreen()
	if err != nil {
		return cancel, fmt.Errorf("creating prompt screen: %w", err)
	}
	if err := s.Init(); err != nil {
		return cancel, fmt.Errorf("initializing prompt screen: %w", err)
	}
	defer s.Fini()
	s.HideCursor()

	d := newDialog(title, message, buttons, cancel)
	redraw := func() {
		s.Clear()
		drawDialog(s, d)
		s.Show()
	}
	redraw()

	for {
		switch ev := s.PollEvent().(type) {
		case nil:
			return cancel, ErrWindowClosed
		case *tcell.EventResize:
			s.Sync()
			redraw()
		case *tcell.EventKey:
			if choice, answered := d.handle(translateKey(ev)); answered {
				return choice, nil
			}
			redraw()
		}
	}
}

// Prompter shows the update restart prompt in the current window, or on a
// screen of its own when none is open.
type Prompter struct {
	host    *Host
	appName string
}

var _ update.Prompter = (*Prompter)(nil)

func NewPrompter(host *Host, appName string) *Prompter {
	return &Prompter{host: host, appName: appName}
}

// PromptRestart blocks until the user picks a button.
func (p *Prompter) PromptRestart(version string) (update.Decision, error) {
	msg := update.PromptMessage(p.appName, version)
	var (
		choice int
		err    error
	)
	if w := p.host.Current(); w != nil {
		choice, err = w.Prompt(update.PromptTitle, msg, update.PromptButtons, int(update.Later))
	} else {
		choice, err = p.host.promptDetached(update.PromptTitle, msg, update.PromptButtons, int(update.Later))
	}
	if err != nil {
		return update.Later, err
	}
	log.WithField("version", version).Debugf("[overlay] restart prompt choice %d", choice)
	return update.Decision(choice), nil
}
