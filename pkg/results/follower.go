package results

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/logger"
)

// FollowCallback is called when a result file lands in the output directory
type FollowCallback func(info ResultInfo, result *Result, err error)

// Follower watches an output directory and reports result files as they are
// written. Events are debounced per file, so the rename at the end of an
// atomic save produces a single notification.
type Follower struct {
	store          *Store
	logger         logger.Logger
	watcher        *fsnotify.Watcher
	callbacks      []FollowCallback
	debouncePeriod time.Duration
	timers         map[string]*time.Timer
	lastSeen       map[string]time.Time
	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	isFollowing    bool
}

// NewFollower creates a follower for the store's output directory
func NewFollower(store *Store, log logger.Logger) *Follower {
	ctx, cancel := context.WithCancel(context.Background())

	return &Follower{
		store:          store,
		logger:         log,
		debouncePeriod: 500 * time.Millisecond,
		timers:         make(map[string]*time.Timer),
		lastSeen:       make(map[string]time.Time),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// AddCallback registers a callback for newly written results
func (f *Follower) AddCallback(callback FollowCallback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, callback)
}

// Start begins watching the output directory
func (f *Follower) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.isFollowing {
		return fmt.Errorf("already following output directory")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	f.watcher = watcher

	if err := f.watcher.Add(f.store.OutputDir()); err != nil {
		f.watcher.Close()
		return fmt.Errorf("failed to watch output directory: %w", err)
	}

	f.isFollowing = true

	go f.watchLoop()

	f.logger.Debug("Started following output directory",
		logger.WithField("path", f.store.OutputDir()))

	return nil
}

// Stop stops watching the output directory
func (f *Follower) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.isFollowing {
		return nil
	}

	f.cancel()

	for path, timer := range f.timers {
		timer.Stop()
		delete(f.timers, path)
	}

	if f.watcher != nil {
		if err := f.watcher.Close(); err != nil {
			f.logger.Warn("Error closing file watcher", logger.WithField("error", err))
		}
		f.watcher = nil
	}

	f.isFollowing = false

	f.logger.Debug("Stopped following output directory")
	return nil
}

// IsFollowing reports whether the follower is active
func (f *Follower) IsFollowing() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.isFollowing
}

func (f *Follower) watchLoop() {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("Result watcher panic recovered",
				logger.WithField("panic", r))
		}
	}()

	for {
		select {
		case <-f.ctx.Done():
			return

		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}

			if !f.isResultEvent(event) {
				continue
			}

			f.logger.Debug("Result file event received",
				logger.WithField("event", event.String()))

			f.debounce(event.Name)

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}

			f.logger.Error("Result watcher error", logger.WithField("error", err))
			f.notifyCallbacks(ResultInfo{}, nil, err)
		}
	}
}

// isResultEvent filters for writes of result files. The rename at the end
// of an atomic save arrives as a create for the final name.
func (f *Follower) isResultEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return false
	}
	_, err := ParseFilename(filepath.Base(event.Name))
	return err == nil
}

func (f *Follower) debounce(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if timer, ok := f.timers[path]; ok {
		timer.Stop()
	}

	f.timers[path] = time.AfterFunc(f.debouncePeriod, func() {
		f.handleResult(path)
	})
}

func (f *Follower) handleResult(path string) {
	f.mu.Lock()
	delete(f.timers, path)
	f.mu.Unlock()

	stat, err := os.Stat(path)
	if err != nil {
		f.logger.Debug("Result file gone before read",
			logger.WithField("path", path))
		return
	}

	// Skip duplicate notifications for the same write
	f.mu.Lock()
	if last, ok := f.lastSeen[path]; ok && !stat.ModTime().After(last) {
		f.mu.Unlock()
		return
	}
	f.lastSeen[path] = stat.ModTime()
	f.mu.Unlock()

	name := filepath.Base(path)
	comp, err := ParseFilename(name)
	if err != nil {
		return
	}

	info := ResultInfo{
		Path:        path,
		Name:        name,
		Composition: comp,
		Size:        stat.Size(),
		ModTime:     stat.ModTime(),
	}

	result, err := f.store.Load(path)
	f.notifyCallbacks(info, result, err)
}

func (f *Follower) notifyCallbacks(info ResultInfo, result *Result, err error) {
	f.mu.RLock()
	callbacks := make([]FollowCallback, len(f.callbacks))
	copy(callbacks, f.callbacks)
	f.mu.RUnlock()

	for _, callback := range callbacks {
		go func(cb FollowCallback) {
			defer func() {
				if r := recover(); r != nil {
					f.logger.Error("Follow callback panic recovered",
						logger.WithField("panic", r))
				}
			}()
			cb(info, result, err)
		}(callback)
	}
}

// SetDebouncePeriod overrides the debounce period for file events
func (f *Follower) SetDebouncePeriod(period time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debouncePeriod = period
}
