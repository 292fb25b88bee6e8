// Package daemon wires the store, configuration tree, discovery
// sources, worker pool, and progress broadcasters into the single
// long-running process, and owns the single-instance lock and
// graceful shutdown sequence.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"github.com/iperka/paporg-sub001/internal/broadcast"
	"github.com/iperka/paporg-sub001/internal/config"
	"github.com/iperka/paporg-sub001/internal/discovery"
	imapdiscovery "github.com/iperka/paporg-sub001/internal/discovery/imap"
	"github.com/iperka/paporg-sub001/internal/model"
	"github.com/iperka/paporg-sub001/internal/pipeline"
	"github.com/iperka/paporg-sub001/internal/store"
	"github.com/iperka/paporg-sub001/internal/tracker"
	"github.com/iperka/paporg-sub001/internal/worker"
)

// ErrAlreadyRunning is returned by New when another process already
// holds the single-instance lock.
var ErrAlreadyRunning = errors.New("daemon: another instance is already running against this database")

const (
	defaultIMAPPollInterval = 5 * time.Minute
	defaultGitSyncInterval  = 5 * time.Minute
)

// Options configures a Daemon at construction time. Everything here
// is ambient (process) configuration, not part of the manifest
// config tree under ConfigDir.
type Options struct {
	DBPath      string
	ConfigDir   string
	TempDir     string
	WorkerCount int
	Log         *slog.Logger

	// Logs is the broadcaster the caller's Log handler mirrors records
	// onto, if any. When nil, Daemon builds its own, which live
	// subscribers never see records published to.
	Logs *tracker.LogBroadcaster
}

// Daemon owns every long-lived collaborator for one running
// instance: the store, the currently loaded manifest config and the
// pipeline built from it, the worker pool, discovery sources, the
// config reconciler/watcher, and the progress broadcasters.
type Daemon struct {
	opts Options
	log  *slog.Logger
	lock *flock.Flock

	store *store.Store

	mu       sync.RWMutex
	cfg      *config.LoadedConfig
	pipeline *pipeline.Pipeline

	pool     *worker.Pool
	progress *tracker.JobProgressBroadcaster
	logs     *tracker.LogBroadcaster
	changes  *broadcast.Broadcaster[config.ChangeEvent]

	cfgWatcher      *config.Watcher
	reconciler      *config.Reconciler
	scheduler       *config.Scheduler
	reconcileEvery  time.Duration

	localWatchers []*discovery.DirectoryWatcher
	imapCron      *cron.Cron

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New acquires the single-instance lock, opens the store, loads the
// configuration directory, and builds every collaborator. It does
// not start discovery or the reconciler loop; call Run for that.
func New(opts Options) (*Daemon, error) {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 4
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	lockPath := filepath.Join(filepath.Dir(opts.DBPath), "paporgd.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring single-instance lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("opening store: %w", err)
	}

	if err := ensureTempDir(opts.TempDir); err != nil {
		_ = st.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("creating temp directory %s: %w", opts.TempDir, err)
	}

	logs := opts.Logs
	if logs == nil {
		logs = tracker.NewLogBroadcaster()
	}

	d := &Daemon{
		opts:     opts,
		log:      opts.Log,
		lock:     lock,
		store:    st,
		progress: tracker.NewJobProgressBroadcaster(),
		logs:     logs,
		changes:  broadcast.New[config.ChangeEvent](),
	}

	if err := d.reload(); err != nil {
		_ = st.Close()
		_ = lock.Unlock()
		return nil, err
	}

	d.pool = worker.New(d.Pipeline(), opts.WorkerCount, d.progress)

	watcher, err := config.NewWatcher(opts.ConfigDir, d.changes, d.log)
	if err != nil {
		_ = st.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("building config watcher: %w", err)
	}
	d.cfgWatcher = watcher

	if git := d.Config().Settings.Spec.Git; git != nil {
		interval := git.SyncInterval
		if interval <= 0 {
			interval = defaultGitSyncInterval
		}
		d.reconciler = config.NewReconciler(opts.ConfigDir, *git, d.changes, d.log)
		d.scheduler = config.NewScheduler(d.reconciler, interval, d.log)
		d.reconcileEvery = interval
	}

	return d, nil
}

// Store exposes the store for administrative CLI commands (rerun,
// ignore, doctor) that operate outside the running daemon loop.
func (d *Daemon) Store() *store.Store { return d.store }

// Progress exposes the job-progress broadcaster for CLI/UI subscribers.
func (d *Daemon) Progress() *tracker.JobProgressBroadcaster { return d.progress }

// Logs exposes the log-event broadcaster for CLI/UI subscribers.
func (d *Daemon) Logs() *tracker.LogBroadcaster { return d.logs }

// Config returns the currently loaded manifest configuration.
func (d *Daemon) Config() *config.LoadedConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Pipeline returns the pipeline built from the currently loaded
// configuration.
func (d *Daemon) Pipeline() *pipeline.Pipeline {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pipeline
}

// reload loads ConfigDir and rebuilds the pipeline. The set of
// discovery sources is fixed at the Run that started watching them;
// a reload changes rule/variable/settings behavior live but adding or
// removing an ImportSource still requires a restart.
func (d *Daemon) reload() error {
	cfg, err := config.Load(d.opts.ConfigDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	p, err := pipeline.New(pipeline.FromLoadedConfig(cfg))
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}
	d.mu.Lock()
	d.cfg = cfg
	d.pipeline = p
	d.mu.Unlock()
	return nil
}

// Run starts discovery, the config watcher, and the optional git
// reconciler scheduler, then blocks until ctx is canceled. On return
// it has already completed the graceful shutdown sequence.
func (d *Daemon) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.cfgWatcher.Start(runCtx)
	d.startConfigReloadListener(runCtx)

	if d.scheduler != nil {
		if err := d.scheduler.Start(runCtx, d.reconcileEvery); err != nil {
			d.log.Error("starting git reconcile scheduler", "error", err)
		}
	}

	if err := d.startLocalSources(runCtx); err != nil {
		return err
	}
	d.startIMAPSources(runCtx)
	d.startResultDrain()

	<-runCtx.Done()
	return d.shutdown()
}

// startConfigReloadListener rebuilds the pipeline whenever the config
// watcher or git reconciler reports a change.
func (d *Daemon) startConfigReloadListener(ctx context.Context) {
	sub := d.changes.Subscribe()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-sub.C:
				if !ok {
					return
				}
				if _, lagged := v.(broadcast.Lagged); lagged {
					continue
				}
				if err := d.reload(); err != nil {
					d.log.Error("reloading config after change", "error", err)
					continue
				}
				d.log.Info("configuration reloaded")
			}
		}
	}()
}

// startLocalSources runs an initial backlog scan for every local
// ImportSource, then starts an fsnotify watcher on its directory.
func (d *Daemon) startLocalSources(ctx context.Context) error {
	for _, src := range d.Config().Sources {
		if src.Spec.Type != config.SourceTypeLocal || src.Spec.Local == nil {
			continue
		}
		name := src.Name()
		scanner := discovery.NewDirectoryScanner(name, src.Spec.Local.Path)

		jobs, err := scanner.Scan()
		if err != nil {
			return fmt.Errorf("scanning local source %q: %w", name, err)
		}
		for _, j := range jobs {
			d.enqueue(j)
		}

		watcher, err := discovery.NewDirectoryWatcher(scanner, d.enqueue, d.log)
		if err != nil {
			return fmt.Errorf("watching local source %q: %w", name, err)
		}
		watcher.Start(ctx)
		d.localWatchers = append(d.localWatchers, watcher)
	}
	return nil
}

// startIMAPSources schedules a periodic poll per IMAP ImportSource on
// a shared cron instance.
func (d *Daemon) startIMAPSources(ctx context.Context) {
	sources := d.Config().Sources
	hasIMAP := false
	for _, src := range sources {
		if src.Spec.Type == config.SourceTypeIMAP {
			hasIMAP = true
			break
		}
	}
	if !hasIMAP {
		return
	}

	d.imapCron = cron.New()
	for _, src := range sources {
		if src.Spec.Type != config.SourceTypeIMAP || src.Spec.IMAP == nil {
			continue
		}
		name := src.Name()
		imapCfg := *src.Spec.IMAP
		filters := src.Spec.Filters
		tempDir := filepath.Join(d.opts.TempDir, name)

		scanner := imapdiscovery.NewScanner(name, imapCfg, filters, tempDir, d.store.ProcessedEmail, d.store.OAuthTokens)

		interval := time.Duration(imapCfg.PollIntervalSecond) * time.Second
		if interval <= 0 {
			interval = defaultIMAPPollInterval
		}

		poll := func() {
			jobs, err := scanner.Scan(ctx)
			if err != nil {
				d.log.Error("imap scan failed", "source", name, "error", err)
				return
			}
			if len(jobs) > 0 {
				d.log.Info("imap scan complete", "source", name, "jobs", len(jobs))
			}
			for _, j := range jobs {
				d.enqueue(j)
			}
		}

		if _, err := d.imapCron.AddFunc(fmt.Sprintf("@every %s", interval), poll); err != nil {
			d.log.Error("scheduling imap source", "source", name, "error", err)
			continue
		}
		// Run once immediately rather than waiting a full interval
		// for the first poll after startup.
		go poll()
	}
	d.imapCron.Start()
}

// enqueue persists a newly discovered job and hands it to the worker
// pool. A submit failure (pool already shutting down) is logged, not
// fatal — discovery is stopped before the pool in the shutdown
// sequence, so this should not happen in practice.
func (d *Daemon) enqueue(j model.Job) {
	ctx := context.Background()
	if err := d.store.Jobs.Create(ctx, &j); err != nil {
		d.log.Error("recording discovered job", "job", j.ID, "error", err)
		return
	}
	if err := d.pool.Submit(j); err != nil {
		d.log.Error("submitting job to worker pool", "job", j.ID, "error", err)
	}
}

// startResultDrain persists every worker result to the store as it
// completes.
func (d *Daemon) startResultDrain() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			result, ok := d.pool.RecvResult()
			if !ok {
				return
			}
			d.persist(result)
		}
	}()
}

func (d *Daemon) persist(result worker.Result) {
	ctx := context.Background()
	if result.Success {
		if err := d.store.Jobs.Complete(ctx, result.Job.ID, result.OutputPath, result.ArchivePath, result.Symlinks, result.Category, result.ExtractedText); err != nil {
			d.log.Error("recording completed job", "job", result.Job.ID, "error", err)
		}
		if err := d.store.Stats.IncrementToday(ctx, time.Now()); err != nil {
			d.log.Error("incrementing processing stats", "error", err)
		}
		for _, w := range result.Warnings {
			d.log.Warn("non-fatal symlink failure", "job", result.Job.ID, "target", w.Target, "error", w.Error)
		}
		return
	}

	errMsg := ""
	if result.Err != nil {
		errMsg = result.Err.Error()
	}
	if err := d.store.Jobs.Fail(ctx, result.Job.ID, errMsg); err != nil {
		d.log.Error("recording failed job", "job", result.Job.ID, "error", err)
	}
}

// shutdown runs the graceful exit sequence: stop discovery, stop
// accepting new jobs, drain in-flight jobs, join workers, let
// broadcasters finish delivering already-queued events, then close
// the store and release the single-instance lock.
func (d *Daemon) shutdown() error {
	d.log.Info("shutting down")

	for _, w := range d.localWatchers {
		_ = w.Close()
	}
	if d.imapCron != nil {
		cronCtx := d.imapCron.Stop()
		<-cronCtx.Done()
	}
	if d.scheduler != nil {
		d.scheduler.Stop()
	}
	if err := d.cfgWatcher.Close(); err != nil {
		d.log.Warn("closing config watcher", "error", err)
	}

	d.pool.Shutdown()
	d.pool.Wait()
	d.wg.Wait()

	closeErr := d.store.Close()
	if err := d.lock.Unlock(); err != nil {
		d.log.Warn("releasing single-instance lock", "error", err)
	}
	if closeErr != nil {
		return fmt.Errorf("closing store: %w", closeErr)
	}
	return nil
}

// Shutdown requests the run loop stop, equivalent to the run context
// being canceled. Safe to call from a signal handler.
func (d *Daemon) Shutdown() {
	if d.cancel != nil {
		d.cancel()
	}
}

// ensureTempDir creates the attachment temp directory if needed,
// called once before the first IMAP poll so a misconfigured temp
// path fails fast at startup rather than mid-scan.
func ensureTempDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0750)
}
