package update

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrNotReady is returned by Start when the primary window has not
	// signalled ready yet.
	ErrNotReady = errors.New("window is not ready")

	// ErrCheckNotStarted is returned by Handle for a check that this
	// controller did not start.
	ErrCheckNotStarted = errors.New("update check was not started")
)

// Decision is the user's answer to the restart prompt. Its value is the
// index of the chosen button in PromptButtons.
type Decision int

const (
	RestartNow Decision = iota
	Later
)

func (d Decision) String() string {
	if d == RestartNow {
		return "restart-now"
	}
	return "later"
}

const PromptTitle = "Update Ready"

// PromptButtons are the restart prompt buttons, indexed by Decision.
var PromptButtons = []string{"Restart Now", "Later"}

// PromptMessage returns the text of the restart prompt for version.
func PromptMessage(appName, version string) string {
	return fmt.Sprintf("Version %s downloaded.\nRestart %s now?", version, appName)
}

// Updater checks for, downloads and installs updates. Lifecycle events are
// delivered through emit, possibly from another goroutine. InstallOnQuit
// applies a downloaded update without relaunching.
type Updater interface {
	CheckForUpdatesAndNotify(ctx context.Context, emit func(Event)) error
	QuitAndInstall() error
	InstallOnQuit() error
}

// Prompter presents the blocking restart prompt.
type Prompter interface {
	PromptRestart(version string) (Decision, error)
}

// Controller drives the update lifecycle. All methods must be called from
// the application loop; events emitted by the Updater are posted back to the
// loop through the dispatch function.
type Controller struct {
	updater  Updater
	prompter Prompter
	dispatch func(func())
	enabled  bool

	state      State
	ready      bool
	started    bool
	installing bool
}

// NewController creates a controller. When enabled is false Start never
// runs a check.
func NewController(updater Updater, prompter Prompter, dispatch func(func()), enabled bool) *Controller {
	return &Controller{
		updater:  updater,
		prompter: prompter,
		dispatch: dispatch,
		enabled:  enabled,
	}
}

// State returns the current update state.
func (c *Controller) State() State {
	return c.state
}

// MarkReady records that the primary window signalled ready.
func (c *Controller) MarkReady() {
	c.ready = true
}

// Start begins the update check. It runs at most once per controller.
func (c *Controller) Start(ctx context.Context) error {
	if !c.enabled {
		log.Debug("[autoUpdater] update checks disabled")
		return nil
	}
	if !c.ready {
		return ErrNotReady
	}
	if c.started {
		return nil
	}
	c.started = true

	log.Info("[autoUpdater] Checking for updates...")
	emit := func(ev Event) {
		c.dispatch(func() {
			if err := c.Handle(ev); err != nil {
				log.Warnf("[autoUpdater] %v", err)
			}
		})
	}
	if err := c.updater.CheckForUpdatesAndNotify(ctx, emit); err != nil {
		return c.Handle(ErrorEvent(fmt.Errorf("start update check: %w", err)))
	}
	return nil
}

// Handle applies ev to the current state and carries out the resulting
// side effects.
func (c *Controller) Handle(ev Event) error {
	if !c.started {
		return fmt.Errorf("%w: %s", ErrCheckNotStarted, ev.Kind)
	}

	next, effects, err := Transition(c.state, ev)
	if err != nil {
		return err
	}
	c.state = next

	for _, eff := range effects {
		switch eff.Kind {
		case EffectLog:
			log.WithField("state", next.Kind.String()).Log(eff.Level, "[autoUpdater] "+eff.Message)
		case EffectPrompt:
			c.prompt(eff.Version)
		}
	}
	return nil
}

func (c *Controller) prompt(version string) {
	decision, err := c.prompter.PromptRestart(version)
	if err != nil {
		log.Errorf("[autoUpdater] restart prompt failed: %v", err)
		return
	}
	log.Infof("[autoUpdater] restart prompt answered: %s", decision)
	if decision != RestartNow || c.installing {
		return
	}

	c.installing = true
	if err := c.updater.QuitAndInstall(); err != nil {
		c.installing = false
		log.Errorf("[autoUpdater] quit and install: %v", err)
		c.state = State{Kind: Errored, Message: err.Error()}
	}
}

// InstallPending applies a downloaded update the user deferred. It is called
// once the loop has stopped and does nothing unless the state is Downloaded.
func (c *Controller) InstallPending() error {
	if c.state.Kind != Downloaded || c.installing {
		return nil
	}
	c.installing = true
	if err := c.updater.InstallOnQuit(); err != nil {
		c.installing = false
		return fmt.Errorf("install %s on quit: %w", c.state.Version, err)
	}
	log.WithField("version", c.state.Version).Info("[autoUpdater] update will apply on next start")
	return nil
}
