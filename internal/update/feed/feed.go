// Package feed checks an HTTP update feed for new releases, downloads them
// into a staging directory and swaps them in on request.
package feed

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"

	"bg-window/internal/update"
)

const maxManifestSize = 64 << 10

var (
	ErrCheckRunning     = errors.New("update check already running")
	ErrNothingStaged    = errors.New("no downloaded update to install")
	ErrChecksumMismatch = errors.New("downloaded update checksum mismatch")
)

// Config configures a Feed.
type Config struct {
	// URL is the feed base; the manifest is fetched from URL/latest.yml.
	URL            string
	CurrentVersion string
	StagingDir     string
	// Executable is the binary replaced on install. Empty means the
	// running executable.
	Executable string
	// Args are passed to the relaunched binary.
	Args []string
	// Client overrides the default retrying HTTP client.
	Client *retryablehttp.Client
	// BeforeQuit runs right before the new binary is started, while the
	// old process is still alive.
	BeforeQuit func()
}

// Feed implements update.Updater on top of an HTTP feed.
type Feed struct {
	cfg    Config
	base   *url.URL
	client *retryablehttp.Client

	start func(path string, args []string) error
	exit  func(code int)

	mu            sync.Mutex
	running       bool
	staged        string
	stagedVersion string
}

var _ update.Updater = (*Feed)(nil)

// New creates a feed.
func New(cfg Config) (*Feed, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("feed url %q must be http(s)", cfg.URL)
	}
	if cfg.StagingDir == "" {
		return nil, errors.New("staging dir is required")
	}

	client := cfg.Client
	if client == nil {
		client = retryablehttp.NewClient()
		client.RetryMax = 3
		client.RetryWaitMin = 1 * time.Second
		client.RetryWaitMax = 30 * time.Second
		client.Logger = nil
	}

	return &Feed{
		cfg:    cfg,
		base:   base,
		client: client,
		start:  startProcess,
		exit:   os.Exit,
	}, nil
}

// CheckForUpdatesAndNotify runs one check in the background. Lifecycle
// events are passed to emit from the check goroutine.
func (f *Feed) CheckForUpdatesAndNotify(ctx context.Context, emit func(update.Event)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return ErrCheckRunning
	}
	f.running = true

	go func() {
		defer func() {
			f.mu.Lock()
			f.running = false
			f.mu.Unlock()
		}()
		if err := f.check(ctx, emit); err != nil {
			emit(update.ErrorEvent(err))
		}
	}()
	return nil
}

func (f *Feed) check(ctx context.Context, emit func(update.Event)) error {
	emit(update.CheckStartedEvent())

	manifestURL := f.base.JoinPath(ManifestName)
	m, err := f.fetchManifest(ctx, manifestURL.String())
	if err != nil {
		return err
	}

	newer, err := IsNewer(m.Version, f.cfg.CurrentVersion)
	if err != nil {
		return err
	}
	if !newer {
		emit(update.NotAvailableEvent())
		return nil
	}
	emit(update.AvailableEvent(m.Version))

	ref, err := url.Parse(m.Path)
	if err != nil {
		return fmt.Errorf("parse artifact path %q: %w", m.Path, err)
	}
	path, err := f.download(ctx, manifestURL.ResolveReference(ref).String(), m, emit)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.staged = path
	f.stagedVersion = m.Version
	f.mu.Unlock()

	log.WithFields(log.Fields{"version": m.Version, "path": path}).Info("[feed] update staged")
	emit(update.DownloadedEvent(m.Version))
	return nil
}

func (f *Feed) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "bg-window/"+f.cfg.CurrentVersion)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("get %s: unexpected status %d", target, resp.StatusCode)
	}
	return resp, nil
}

func (f *Feed) fetchManifest(ctx context.Context, target string) (Manifest, error) {
	resp, err := f.get(ctx, target)
	if err != nil {
		return Manifest{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

func (f *Feed) download(ctx context.Context, target string, m Manifest, emit func(update.Event)) (string, error) {
	if err := os.MkdirAll(f.cfg.StagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	resp, err := f.get(ctx, target)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(f.cfg.StagingDir, "download-*")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	total := resp.ContentLength
	if total <= 0 {
		total = m.Size
	}
	progress := &progressWriter{total: total, emit: emit}
	progress.report(0)

	h := sha512.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h, progress), resp.Body); err != nil {
		return "", fmt.Errorf("download %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write staging file: %w", err)
	}
	if sum := base64.StdEncoding.EncodeToString(h.Sum(nil)); sum != m.SHA512 {
		return "", fmt.Errorf("%w: got %s, want %s", ErrChecksumMismatch, sum, m.SHA512)
	}
	progress.report(100)

	final := filepath.Join(f.cfg.StagingDir, "bg-window-"+m.Version)
	if err := os.Chmod(tmp.Name(), 0o755); err != nil {
		return "", fmt.Errorf("chmod staged update: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("stage update: %w", err)
	}
	return final, nil
}

// Staged returns the path and version of the downloaded update, if any.
func (f *Feed) Staged() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.staged, f.stagedVersion
}

// QuitAndInstall replaces the executable with the staged update, starts it
// and exits the process. It only returns on failure.
func (f *Feed) QuitAndInstall() error {
	staged, version := f.Staged()
	if staged == "" {
		return ErrNothingStaged
	}

	exe, err := f.executable()
	if err != nil {
		return err
	}
	if err := install(staged, exe); err != nil {
		return err
	}
	f.clearStaged()
	log.WithFields(log.Fields{"version": version, "path": exe}).Info("[feed] update installed, restarting")

	if f.cfg.BeforeQuit != nil {
		f.cfg.BeforeQuit()
	}
	if err := f.start(exe, f.cfg.Args); err != nil {
		return fmt.Errorf("relaunch %s: %w", exe, err)
	}
	f.exit(0)
	return nil
}

// InstallOnQuit replaces the executable with the staged update without
// relaunching, so the next start runs the new version. It is a no-op when
// nothing is staged.
func (f *Feed) InstallOnQuit() error {
	staged, version := f.Staged()
	if staged == "" {
		return nil
	}
	exe, err := f.executable()
	if err != nil {
		return err
	}
	if err := install(staged, exe); err != nil {
		return err
	}
	f.clearStaged()
	log.WithFields(log.Fields{"version": version, "path": exe}).Info("[feed] update installed on quit")
	return nil
}

func (f *Feed) clearStaged() {
	f.mu.Lock()
	f.staged = ""
	f.stagedVersion = ""
	f.mu.Unlock()
}

func (f *Feed) executable() (string, error) {
	if f.cfg.Executable != "" {
		return f.cfg.Executable, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("find executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

// install moves staged over exe, keeping the previous binary as exe.old.
func install(staged, exe string) error {
	backup := exe + ".old"
	_ = os.Remove(backup)
	if err := os.Rename(exe, backup); err != nil {
		return fmt.Errorf("back up %s: %w", exe, err)
	}
	if err := moveFile(staged, exe); err != nil {
		if rerr := os.Rename(backup, exe); rerr != nil {
			return errors.Join(fmt.Errorf("install update: %w", err), fmt.Errorf("restore backup: %w", rerr))
		}
		return fmt.Errorf("install update: %w", err)
	}
	return nil
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func startProcess(path string, args []string) error {
	cmd := exec.Command(path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// progressWriter emits a progress event each time the downloaded share
// crosses a whole percent.
type progressWriter struct {
	total   int64
	written int64
	last    int
	emit    func(update.Event)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.total > 0 {
		pct := int(p.written * 100 / p.total)
		if pct > p.last && pct < 100 {
			p.report(pct)
		}
	}
	return len(b), nil
}

func (p *progressWriter) report(pct int) {
	p.last = pct
	p.emit(update.ProgressEvent(float64(pct)))
}
