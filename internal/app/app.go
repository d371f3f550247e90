// Package app ties the instance arbiter, the window manager and the update
// controller together and runs them on a single event loop.
package app

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"bg-window/internal/update"
	"bg-window/internal/window"
)

// Arbiter guards the single running instance.
type Arbiter interface {
	TryAcquire() (bool, error)
	NotifyPrimary(args []string) error
	OnSecondInstance(ctx context.Context, handler func(args []string)) error
	Close() error
}

// Options configures an App.
type Options struct {
	Window         window.Options
	Termination    window.TerminationPolicy
	UpdatesEnabled bool
}

// Deps are the collaborators an App drives.
type Deps struct {
	Arbiter  Arbiter
	Host     window.Host
	Opener   window.Opener
	Updater  update.Updater
	Prompter update.Prompter
}

// App is the application context. Everything it owns is touched only from
// the loop goroutine started by Run.
type App struct {
	opts Options
	deps Deps

	windows *window.Manager
	updates *update.Controller

	ctx      context.Context
	mu       sync.Mutex
	pending  []func()
	wake     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
}

// New creates an App.
func New(opts Options, deps Deps) *App {
	a := &App{
		opts: opts,
		deps: deps,
		ctx:  context.Background(),
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
	a.windows = window.NewManager(deps.Host, deps.Opener, opts.Window, opts.Termination, a.Post, a.Quit, a.windowReady)
	a.updates = update.NewController(deps.Updater, deps.Prompter, a.Post, opts.UpdatesEnabled)
	return a
}

// Post queues fn to run on the loop. It never blocks, so it is safe to call
// from the loop itself.
func (a *App) Post(fn func()) {
	a.mu.Lock()
	a.pending = append(a.pending, fn)
	a.mu.Unlock()
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Quit stops the loop.
func (a *App) Quit() {
	a.quitOnce.Do(func() { close(a.quit) })
}

// Windows returns the window manager.
func (a *App) Windows() *window.Manager { return a.windows }

// Updates returns the update controller.
func (a *App) Updates() *update.Controller { return a.updates }

// Run arbitrates the instance lock and, as the primary instance, runs the
// event loop until Quit or ctx is done. A secondary instance hands args to
// the primary and returns nil without creating a window.
func (a *App) Run(ctx context.Context, args []string) error {
	ok, err := a.deps.Arbiter.TryAcquire()
	if err != nil {
		return fmt.Errorf("acquiring instance lock: %w", err)
	}
	if !ok {
		log.Info("[main] another instance is running, handing off")
		if err := a.deps.Arbiter.NotifyPrimary(args); err != nil {
			log.Debugf("[main] notify primary: %v", err)
		}
		return nil
	}
	defer func() {
		if err := a.deps.Arbiter.Close(); err != nil {
			log.Warnf("[main] release instance lock: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.ctx = ctx

	err = a.deps.Arbiter.OnSecondInstance(ctx, func([]string) {
		a.Post(func() { a.windows.FocusExisting() })
	})
	if err != nil {
		log.Warnf("[main] second instance notifications unavailable: %v", err)
	}
	stopActivation := a.watchActivation()
	defer stopActivation()

	var startErr error
	a.Post(func() {
		if _, err := a.windows.CreateWindow(); err != nil {
			startErr = err
			a.Quit()
		}
	})

	a.loop(ctx)

	if w := a.windows.Current(); w != nil {
		w.Close()
	}
	if err := a.updates.InstallPending(); err != nil {
		log.Errorf("[autoUpdater] %v", err)
	}
	return startErr
}

func (a *App) windowReady(window.Window) {
	a.updates.MarkReady()
	if err := a.updates.Start(a.ctx); err != nil {
		log.Errorf("[autoUpdater] start: %v", err)
	}
}

// activate handles the application being reactivated by the OS.
func (a *App) activate() {
	if err := a.windows.Activate(); err != nil {
		log.Errorf("[main] activate: %v", err)
	}
}

func (a *App) loop(ctx context.Context) {
	for {
		a.mu.Lock()
		batch := a.pending
		a.pending = nil
		a.mu.Unlock()

		for _, fn := range batch {
			fn()
			select {
			case <-a.quit:
				return
			default:
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-a.quit:
			return
		case <-a.wake:
		}
	}
}
