package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/notefold/pkg/core"
)

const debounceDelay = 50 * time.Millisecond

// Watch emits note and folder changes made on disk until ctx is done, then
// closes the channel. The watcher runs under a supervisor that restarts it
// when fsnotify fails.
func (r *Repository) Watch(ctx context.Context) (<-chan core.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	events := make(chan core.Event, r.config.EventBuffer)

	spec := supervisor.Spec{
		Name: "fs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			return newWatchWorker(r, events), nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			ResetDuration:   time.Minute,
			MaxRestarts:     5,
			MaxDuration:     10 * time.Minute,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("notefold-watch", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := sup.Stop(stopCtx)
		close(events)
		return err
	}, lifecycle.WithErrorHandler(r.reportError))

	return events, nil
}

func (r *Repository) reportError(err error) {
	if r.config.ErrorHandler != nil {
		r.config.ErrorHandler(err)
		return
	}
	r.logger.Error("watcher failure", "error", err)
}

// entry is what the watcher remembers about a path, so that removals (which
// can no longer be inspected) still map to a kind and an ID.
type entry struct {
	kind core.EntryKind
	id   string
}

// snapshot scans the store and returns every known path.
func (r *Repository) snapshot(ctx context.Context) (map[string]entry, error) {
	r.tree.RLock()
	defer r.tree.RUnlock()

	res, err := r.Scan(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]entry, len(res.FolderIndex)+len(res.NoteIndex))
	for id, p := range res.FolderIndex {
		known[p] = entry{kind: core.KindFolder, id: id}
	}
	for id, p := range res.NoteIndex {
		known[p] = entry{kind: core.KindNote, id: id}
	}
	return known, nil
}

type watchWorker struct {
	*worker.BaseWorker
	repo      *Repository
	logger    *slog.Logger
	events    chan<- core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc

	mu    sync.Mutex
	known map[string]entry
}

func newWatchWorker(repo *Repository, events chan<- core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		repo:       repo,
		logger:     repo.logger,
		events:     events,
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	known, err := w.repo.snapshot(ctx)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.repo.recursiveAdd(watcher, w.repo.Path); err != nil {
		_ = watcher.Close()
		return err
	}
	if w.repo.config.Versioning {
		_ = watcher.Add(filepath.Join(w.repo.Path, ".git"))
	}

	w.known = known
	w.watcher = watcher
	w.debouncer = newDebouncer(debounceDelay)
	w.repo.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

// recursiveAdd watches dir and every non-system directory below it.
func (r *Repository) recursiveAdd(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			r.logger.Debug("skipping unwatchable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != r.Path && r.isSystemName(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// isGitLock reports whether event concerns .git/index.lock, which git holds
// while it rewrites the working tree.
func isGitLock(event fsnotify.Event) bool {
	return filepath.Base(event.Name) == "index.lock" && filepath.Base(filepath.Dir(event.Name)) == ".git"
}

// handleGitLockEvent pauses event processing while git runs and, once the
// lock is released, emits the difference between the tree before and after.
func (w *watchWorker) handleGitLockEvent(ctx context.Context, event fsnotify.Event, gitLocked bool) bool {
	switch {
	case event.Has(fsnotify.Create):
		w.logger.Debug("git operations detected, pausing watcher")
		return true
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if gitLocked {
			w.logger.Debug("git operations finished, rescanning")
			w.rescanAfterGitUnlock(ctx)
		}
		return false
	}
	return gitLocked
}

func (w *watchWorker) rescanAfterGitUnlock(ctx context.Context) {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		after, err := w.repo.snapshot(ctx)
		if err != nil {
			return err
		}

		w.mu.Lock()
		before := w.known
		w.known = after
		w.mu.Unlock()

		for _, e := range diffSnapshots(before, after) {
			w.sendEvent(ctx, e)
		}
		if err := w.repo.recursiveAdd(w.watcher, w.repo.Path); err != nil {
			w.logger.Warn("failed to refresh watched directories", "error", err)
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		w.repo.reportError(fmt.Errorf("rescan after git: %w", err))
	}))
}

// diffSnapshots lists the changes that turn before into after.
// An ID found at a new path yields a delete of the old path and a create.
func diffSnapshots(before, after map[string]entry) []core.Event {
	now := time.Now().Unix()
	var out []core.Event
	for p, e := range before {
		if cur, ok := after[p]; !ok || cur != e {
			out = append(out, core.Event{Type: core.EventDelete, Kind: e.kind, ID: e.id, Path: p, Timestamp: now})
		}
	}
	for p, e := range after {
		prev, ok := before[p]
		switch {
		case !ok || prev != e:
			out = append(out, core.Event{Type: core.EventCreate, Kind: e.kind, ID: e.id, Path: p, Timestamp: now})
		case e.kind == core.KindNote:
			out = append(out, core.Event{Type: core.EventModify, Kind: e.kind, ID: e.id, Path: p, Timestamp: now})
		}
	}
	return out
}

// translate maps a raw fsnotify event to a store event.
// The second result is false for events the store does not surface.
func (w *watchWorker) translate(event fsnotify.Event) (core.Event, bool) {
	r := w.repo
	path := filepath.Clean(event.Name)
	name := filepath.Base(path)

	if r.isSystemPath(path) || name == r.config.SidecarName {
		return core.Event{}, false
	}
	if filepath.Dir(path) == r.Path && name == r.config.Uncategorized {
		return core.Event{}, false
	}

	out := core.Event{Path: path, Timestamp: time.Now().Unix()}
	switch {
	case event.Has(fsnotify.Create):
		out.Type = core.EventCreate
	case event.Has(fsnotify.Write):
		out.Type = core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		out.Type = core.EventDelete
	default:
		return core.Event{}, false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if out.Type == core.EventDelete {
		prev, ok := w.known[path]
		if !ok {
			if !strings.EqualFold(filepath.Ext(name), r.config.Extension) {
				return core.Event{}, false
			}
			prev = entry{kind: core.KindNote, id: strings.TrimSuffix(name, filepath.Ext(name))}
		}
		delete(w.known, path)
		out.Kind, out.ID = prev.kind, prev.id
		return out, true
	}

	info, err := os.Stat(path)
	if err != nil {
		return core.Event{}, false
	}
	if info.IsDir() {
		out.Kind = core.KindFolder
		if sc, ok := r.readSidecar(path); ok {
			out.ID = sc.ID
		}
		if out.Type == core.EventCreate {
			if err := r.recursiveAdd(w.watcher, path); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
		}
	} else {
		if !strings.EqualFold(filepath.Ext(name), r.config.Extension) {
			return core.Event{}, false
		}
		out.Kind = core.KindNote
		out.ID = strings.TrimSuffix(name, filepath.Ext(name))
		if n, ok := r.codec.ReadNote(path); ok {
			out.ID = n.ID
		}
	}
	w.known[path] = entry{kind: out.Kind, id: out.ID}
	return out, true
}

// sendEvent enqueues an event through the debouncer. Sends racing with the
// channel being closed on shutdown are dropped.
func (w *watchWorker) sendEvent(ctx context.Context, event core.Event) {
	w.debouncer.add(event, func(e core.Event) {
		defer func() {
			_ = recover()
		}()
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if w.logger.Enabled(ctx, slog.LevelDebug) {
				w.logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer w.repo.setWatcherActive(false)
	defer w.watcher.Close()

	err = w.loop(ctx)

	// Flush in-flight timers before the owner closes the events channel.
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *watchWorker) loop(ctx context.Context) error {
	var gitLocked bool
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher events channel closed")
			}
			w.logger.Debug("event received", "name", event.Name, "op", event.Op.String())

			if isGitLock(event) {
				gitLocked = w.handleGitLockEvent(ctx, event, gitLocked)
				continue
			}
			if gitLocked {
				continue
			}
			if e, ok := w.translate(event); ok {
				w.sendEvent(ctx, e)
			}

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("fsnotify error", "error", wErr)
			if w.repo.config.ErrorHandler != nil {
				w.repo.config.ErrorHandler(wErr)
			}
		}
	}
}

// debouncer coalesces bursts of events per entry (kind and path).
// A create followed by writes stays a create; a create followed by a delete
// before the delay elapses is dropped.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEvent
	stopped bool
	wg      sync.WaitGroup
}

type pendingEvent struct {
	event core.Event
	timer *time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, pending: make(map[string]*pendingEvent)}
}

func (d *debouncer) add(e core.Event, emit func(core.Event)) {
	key := string(e.Kind) + "\x00" + e.Path

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if prev, ok := d.pending[key]; ok {
		if prev.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, key)

		switch {
		case prev.event.Type == core.EventCreate && e.Type == core.EventDelete:
			return
		case prev.event.Type == core.EventCreate:
			e.Type = core.EventCreate
		}
		if e.ID == "" {
			e.ID = prev.event.ID
		}
	}

	p := &pendingEvent{event: e}
	d.wg.Add(1)
	p.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		if d.pending[key] != p {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		ev := p.event
		d.mu.Unlock()
		emit(ev)
	})
	d.pending[key] = p
}

// stopAndWait drops pending events and waits up to timeout for callbacks
// already running.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for key, p := range d.pending {
		if p.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, key)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
