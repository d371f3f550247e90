package overlay

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	log "github.com/sirupsen/logrus"

	"bg-window/internal/window"
)

// Window is a full-screen tcell surface. Input is read by a poller
// goroutine and handled by a pump goroutine; while a prompt is open the
// pump hands every event to it instead.
type Window struct {
	id     int
	host   *Host
	opts   window.Options
	screen tcell.Screen
	sink   func(window.Event)
	bg     tcell.Color

	events    chan tcell.Event
	done      chan struct{}
	closeOnce sync.Once
	drawMu    sync.Mutex

	mu        sync.Mutex
	url       string
	doc       *Document
	fog       *FogState
	visible   bool
	minimized bool
	ready     bool
	crashed   bool
	modal     chan tcell.Event
	dialog    *dialog
}

var _ window.Window = (*Window)(nil)

func (w *Window) ID() int { return w.id }

func (w *Window) emit(ev window.Event) {
	if w.isClosed() {
		return
	}
	w.sink(ev)
}

func (w *Window) isClosed() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// LoadURL loads a packaged document. The first load, successful or not,
// completes the initial layout and reports ReadyToShow.
func (w *Window) LoadURL(target string) {
	go w.load(target)
}

func (w *Window) load(target string) {
	doc, warnings, err := loadDocument(w.host.assets, target)

	w.mu.Lock()
	w.url = target
	if err == nil {
		w.doc = doc
		w.fog = NewFogState(doc)
	}
	firstLayout := !w.ready
	w.ready = true
	w.mu.Unlock()

	if err != nil {
		le, ok := err.(*LoadError)
		if !ok {
			le = &LoadError{Code: ErrCodeInvalidResponse, Description: err.Error(), URL: target}
		}
		w.emit(window.DidFailLoad{Code: le.Code, Description: le.Description, URL: le.URL, IsMainFrame: true})
	} else {
		for _, msg := range warnings {
			w.emit(msg)
		}
		w.emit(window.DOMReady{URL: target})
	}

	if firstLayout {
		w.emit(window.ReadyToShow{})
		return
	}
	w.draw()
}

func (w *Window) Show() {
	w.mu.Lock()
	w.visible = true
	w.mu.Unlock()
	w.draw()
}

func (w *Window) Focus() {
	if w.isClosed() || w.IsMinimized() {
		return
	}
	w.screen.Sync()
	w.draw()
}

// Restore resumes a minimized window.
func (w *Window) Restore() {
	w.mu.Lock()
	wasMinimized := w.minimized
	w.minimized = false
	w.mu.Unlock()
	if !wasMinimized || w.isClosed() {
		return
	}
	if err := w.screen.Resume(); err != nil {
		log.Errorf("[overlay] resume screen: %v", err)
	}
	w.draw()
}

func (w *Window) minimize() {
	w.mu.Lock()
	if w.minimized {
		w.mu.Unlock()
		return
	}
	w.minimized = true
	w.mu.Unlock()
	if err := w.screen.Suspend(); err != nil {
		log.Errorf("[overlay] suspend screen: %v", err)
	}
}

func (w *Window) IsMinimized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.minimized
}

// Close tears the screen down and reports Closed once.
func (w *Window) Close() {
	w.closeOnce.Do(func() {
		w.sink(window.Closed{})
		close(w.done)
		w.screen.Fini()
	})
}

func (w *Window) poll() {
	for {
		ev := w.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case w.events <- ev:
		case <-w.done:
			return
		}
	}
}

func (w *Window) pump() {
	for {
		select {
		case <-w.done:
			return
		case ev := <-w.events:
			w.mu.Lock()
			modal := w.modal
			w.mu.Unlock()
			if modal != nil {
				select {
				case modal <- ev:
				case <-w.done:
					return
				}
				continue
			}
			w.handleInput(ev)
		}
	}
}

func (w *Window) handleInput(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		w.screen.Sync()
		w.draw()
	case *tcell.EventKey:
		in := translateKey(ev)
		if in >= inputLink1 {
			w.followLink(int(in - inputLink1))
			return
		}

		w.mu.Lock()
		switch in {
		case inputFog:
			w.fog.ToggleFog()
		case inputDim:
			w.fog.ToggleDim()
		case inputUp:
			w.fog.Thicker()
		case inputDown:
			w.fog.Thinner()
		}
		w.mu.Unlock()

		switch in {
		case inputQuit, inputCancel:
			w.Close()
		case inputMinimize:
			w.minimize()
		case inputFog, inputDim, inputUp, inputDown:
			w.draw()
		}
	}
}

func (w *Window) followLink(i int) {
	w.mu.Lock()
	var target string
	if w.doc != nil && i < len(w.doc.Links) {
		target = w.doc.Links[i].URL
	}
	w.mu.Unlock()
	if target != "" {
		w.emit(window.NavigationRequested{URL: target})
	}
}

// Prompt shows a modal dialog and blocks until a button is chosen.
// Escape picks the cancel button.
func (w *Window) Prompt(title, message string, buttons []string, cancel int) (int, error) {
	if w.isClosed() {
		return cancel, ErrWindowClosed
	}
	w.Restore()

	d := newDialog(title, message, buttons, cancel)
	inbox := make(chan tcell.Event, 10)
	w.mu.Lock()
	w.modal = inbox
	w.dialog = d
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.modal = nil
		w.dialog = nil
		w.mu.Unlock()
		w.draw()
	}()

	w.draw()
	for {
		select {
		case <-w.done:
			return cancel, ErrWindowClosed
		case ev := <-inbox:
			key, ok := ev.(*tcell.EventKey)
			if !ok {
				if _, resized := ev.(*tcell.EventResize); resized {
					w.screen.Sync()
					w.draw()
				}
				continue
			}
			w.mu.Lock()
			choice, answered := d.handle(translateKey(key))
			w.mu.Unlock()
			if answered {
				return choice, nil
			}
			w.draw()
		}
	}
}

// draw renders the current state. A panic while rendering is reported as
// RenderProcessGone and stops further rendering.
func (w *Window) draw() {
	w.drawMu.Lock()
	defer w.drawMu.Unlock()

	w.mu.Lock()
	skip := !w.visible || w.minimized || w.crashed
	view := w.snapshot()
	w.mu.Unlock()
	if skip || w.isClosed() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.mu.Lock()
			w.crashed = true
			w.mu.Unlock()
			w.emit(window.RenderProcessGone{Reason: fmt.Sprintf("crashed: %v", r), ExitCode: 1})
		}
	}()
	render(w.screen, view)
	w.screen.Show()
}

func (w *Window) snapshot() view {
	v := view{
		opts: w.opts,
		bg:   w.bg,
		fog:  *w.fog,
		url:  w.url,
	}
	if w.doc != nil {
		d := *w.doc
		v.doc = &d
	}
	if w.dialog != nil {
		d := *w.dialog
		v.dialog = &d
	}
	return v
}
