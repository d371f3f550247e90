package update

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ErrInvalidTransition is returned by Transition when an event is not
// accepted in the current state.
var ErrInvalidTransition = errors.New("invalid update transition")

// Kind identifies an update lifecycle state.
type Kind int

const (
	Idle Kind = iota
	Checking
	Available
	NotAvailable
	Downloading
	Downloaded
	Errored
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Checking:
		return "checking"
	case Available:
		return "available"
	case NotAvailable:
		return "not-available"
	case Downloading:
		return "downloading"
	case Downloaded:
		return "downloaded"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// State is a value of the update lifecycle. Version is set for Available and
// Downloaded, Percent for Downloading and Message for Errored.
type State struct {
	Kind    Kind
	Version string
	Percent float64
	Message string
}

func (s State) String() string {
	switch s.Kind {
	case Available, Downloaded:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Version)
	case Downloading:
		return fmt.Sprintf("%s(%.1f%%)", s.Kind, s.Percent)
	case Errored:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Message)
	default:
		return s.Kind.String()
	}
}

// EventKind identifies an event emitted by the update-check collaborator.
type EventKind int

const (
	CheckStarted EventKind = iota
	UpdateAvailable
	UpdateNotAvailable
	DownloadProgress
	UpdateDownloaded
	UpdateError
)

func (k EventKind) String() string {
	switch k {
	case CheckStarted:
		return "checking-for-update"
	case UpdateAvailable:
		return "update-available"
	case UpdateNotAvailable:
		return "update-not-available"
	case DownloadProgress:
		return "download-progress"
	case UpdateDownloaded:
		return "update-downloaded"
	case UpdateError:
		return "error"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a single update lifecycle notification.
type Event struct {
	Kind    EventKind
	Version string
	Percent float64
	Err     error
}

func CheckStartedEvent() Event { return Event{Kind: CheckStarted} }

func AvailableEvent(version string) Event { return Event{Kind: UpdateAvailable, Version: version} }

func NotAvailableEvent() Event { return Event{Kind: UpdateNotAvailable} }

func ProgressEvent(percent float64) Event { return Event{Kind: DownloadProgress, Percent: percent} }

func DownloadedEvent(version string) Event { return Event{Kind: UpdateDownloaded, Version: version} }

func ErrorEvent(err error) Event { return Event{Kind: UpdateError, Err: err} }

// EffectKind identifies a side effect requested by Transition.
type EffectKind int

const (
	EffectLog EffectKind = iota
	EffectPrompt
)

// Effect is a side effect the controller has to carry out after a
// transition. Log effects carry Level and Message, prompt effects carry
// the downloaded Version.
type Effect struct {
	Kind    EffectKind
	Level   log.Level
	Message string
	Version string
}

func logEffect(level log.Level, format string, args ...any) Effect {
	return Effect{Kind: EffectLog, Level: level, Message: fmt.Sprintf(format, args...)}
}

// Transition computes the next state for ev. It never mutates anything; an
// event that is not accepted in s returns s unchanged together with an error
// wrapping ErrInvalidTransition.
func Transition(s State, ev Event) (State, []Effect, error) {
	switch ev.Kind {
	case UpdateError:
		msg := "unknown error"
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		next := State{Kind: Errored, Message: msg}
		return next, []Effect{logEffect(log.ErrorLevel, "Error: %s", msg)}, nil

	case CheckStarted:
		switch s.Kind {
		case Idle, NotAvailable, Errored:
			return State{Kind: Checking}, []Effect{logEffect(log.InfoLevel, "Checking for update")}, nil
		}

	case UpdateAvailable:
		if s.Kind == Checking {
			next := State{Kind: Available, Version: ev.Version}
			return next, []Effect{logEffect(log.InfoLevel, "Update available: %s", ev.Version)}, nil
		}

	case UpdateNotAvailable:
		if s.Kind == Checking {
			return State{Kind: NotAvailable}, []Effect{logEffect(log.InfoLevel, "No update available")}, nil
		}

	case DownloadProgress:
		switch s.Kind {
		case Checking, Available, Downloading:
			p := clampPercent(ev.Percent)
			next := State{Kind: Downloading, Percent: p}
			return next, []Effect{logEffect(log.InfoLevel, "Downloaded %.1f%%", p)}, nil
		}

	case UpdateDownloaded:
		if s.Kind == Downloading {
			next := State{Kind: Downloaded, Version: ev.Version}
			return next, []Effect{
				logEffect(log.InfoLevel, "Update downloaded: %s", ev.Version),
				{Kind: EffectPrompt, Version: ev.Version},
			}, nil
		}
	}

	return s, nil, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, ev.Kind, s)
}

func clampPercent(p float64) float64 {
	switch {
	case p != p, p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
