// Package instance makes sure a single bg-window process runs per user and
// forwards later launch attempts to it.
package instance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const (
	lockFileName   = "bg-window.lock"
	requestDirName = "activate"
	requestSuffix  = ".req"
)

// ErrNotPrimary is returned by operations that only the lock holder may do.
var ErrNotPrimary = errors.New("process does not hold the instance lock")

// Arbiter holds the process-wide instance lock.
type Arbiter struct {
	dir  string
	file *os.File

	watcher *fsnotify.Watcher
}

// New returns an arbiter keeping its lock and requests under dir.
func New(dir string) *Arbiter {
	return &Arbiter{dir: dir}
}

func (a *Arbiter) requestDir() string {
	return filepath.Join(a.dir, requestDirName)
}

// TryAcquire takes the instance lock. It returns false, without error, when
// another process holds it. The lock is never retried.
func (a *Arbiter) TryAcquire() (bool, error) {
	if a.file != nil {
		return true, nil
	}
	if err := os.MkdirAll(a.requestDir(), 0o700); err != nil {
		return false, fmt.Errorf("create lock dir: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(a.dir, lockFileName), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	locked, err := lockFile(f)
	if err != nil || !locked {
		_ = f.Close()
		if err != nil {
			return false, fmt.Errorf("lock %s: %w", f.Name(), err)
		}
		return false, nil
	}
	a.file = f

	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	a.dropStaleRequests()
	return true, nil
}

// dropStaleRequests removes requests left behind by a previous primary.
func (a *Arbiter) dropStaleRequests() {
	entries, err := os.ReadDir(a.requestDir())
	if err != nil {
		return
	}
	for _, e := range entries {
		_ = os.Remove(filepath.Join(a.requestDir(), e.Name()))
	}
}

// NotifyPrimary tells the lock holder that another launch was attempted.
// The request is written to a temporary name and renamed so the primary
// never reads a partial file.
func (a *Arbiter) NotifyPrimary(args []string) error {
	name := fmt.Sprintf("%d-%d", os.Getpid(), time.Now().UnixNano())
	tmp := filepath.Join(a.requestDir(), name+".tmp")
	if err := os.WriteFile(tmp, []byte(strings.Join(args, "\n")), 0o600); err != nil {
		return fmt.Errorf("write activation request: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(a.requestDir(), name+requestSuffix)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish activation request: %w", err)
	}
	return nil
}

// OnSecondInstance watches for activation requests and calls handler with
// the arguments of each attempted launch. handler runs on the watcher
// goroutine. Watching stops when ctx is done or the arbiter is closed.
func (a *Arbiter) OnSecondInstance(ctx context.Context, handler func(args []string)) error {
	if a.file == nil {
		return ErrNotPrimary
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(a.requestDir()); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", a.requestDir(), err)
	}
	a.watcher = watcher

	go a.watch(ctx, watcher, handler)
	return nil
}

func (a *Arbiter) watch(ctx context.Context, watcher *fsnotify.Watcher, handler func(args []string)) {
	// Requests published before the watch was added produce no event.
	if entries, err := os.ReadDir(a.requestDir()); err == nil {
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), requestSuffix) {
				handleRequest(filepath.Join(a.requestDir(), e.Name()), handler)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, requestSuffix) {
				continue
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			handleRequest(event.Name, handler)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("[instance] watcher error: %v", err)
		}
	}
}

// handleRequest consumes one request. A request that was already consumed
// fails to read and is skipped.
func handleRequest(path string, handler func(args []string)) {
	args, err := readRequest(path)
	if err != nil {
		log.Debugf("[instance] skipping activation request %s: %v", path, err)
		return
	}
	log.WithField("args", args).Info("[instance] second instance attempted")
	handler(args)
}

func readRequest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return strings.Split(string(data), "\n"), nil
}

// Close stops watching and releases the lock. It is safe to call more than
// once.
func (a *Arbiter) Close() error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
		a.watcher = nil
	}
	if a.file != nil {
		errs = append(errs, unlockFile(a.file), a.file.Close())
		a.file = nil
	}
	return errors.Join(errs...)
}
