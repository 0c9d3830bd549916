package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/logger"
)

// ErrRunInProgress indicates another live process holds the run lock
var ErrRunInProgress = errors.New("another run is already in progress")

const (
	lockFileName      = "run.lock"
	heartbeatInterval = 10 * time.Second
	staleThreshold    = 30 * time.Second
)

// LockInfo is the on-disk payload of the run lock
type LockInfo struct {
	RunID     string    `json:"runId"`
	ProcessID int       `json:"processId"`
	StartedAt time.Time `json:"startedAt"`
	Heartbeat time.Time `json:"heartbeat"`
}

// RunLock guards an output directory against concurrent runs. The holder
// refreshes a heartbeat timestamp every 10 seconds; a lock whose heartbeat
// is older than 30 seconds, or whose process is gone, counts as stale and
// may be replaced.
type RunLock struct {
	path   string
	logger logger.Logger

	mu   sync.Mutex
	info *LockInfo
	stop chan struct{}
	done chan struct{}
}

// NewRunLock creates a run lock for the given output directory
func NewRunLock(outputDir string, log logger.Logger) *RunLock {
	return &RunLock{
		path:   filepath.Join(outputDir, lockFileName),
		logger: log,
	}
}

// Acquire takes the lock for runID, replacing a stale lock if one is found.
// Returns ErrRunInProgress when a live process already holds it.
func (l *RunLock) Acquire(runID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.info != nil {
		return fmt.Errorf("lock already acquired for run %s", l.info.RunID)
	}

	if existing, err := readLockInfo(l.path); err == nil {
		if existing.IsLive() {
			return fmt.Errorf("%w (pid %d, run %s)",
				ErrRunInProgress, existing.ProcessID, existing.RunID)
		}
		if l.logger != nil {
			l.logger.Warn("Replacing stale run lock",
				logger.WithField("pid", existing.ProcessID),
				logger.WithField("run_id", existing.RunID))
		}
	}

	now := time.Now()
	info := &LockInfo{
		RunID:     runID,
		ProcessID: os.Getpid(),
		StartedAt: now,
		Heartbeat: now,
	}
	if err := writeLockInfo(l.path, info); err != nil {
		return err
	}

	l.info = info
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.heartbeatLoop()
	return nil
}

// Release stops the heartbeat and removes the lock file
func (l *RunLock) Release() error {
	l.mu.Lock()
	if l.info == nil {
		l.mu.Unlock()
		return nil
	}
	close(l.stop)
	l.info = nil
	done := l.done
	l.mu.Unlock()

	<-done
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove run lock: %w", err)
	}
	return nil
}

func (l *RunLock) heartbeatLoop() {
	defer close(l.done)

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			if l.info != nil {
				l.info.Heartbeat = time.Now()
				if err := writeLockInfo(l.path, l.info); err != nil && l.logger != nil {
					l.logger.Warn("Failed to refresh run lock heartbeat",
						logger.WithField("error", err.Error()))
				}
			}
			l.mu.Unlock()
		}
	}
}

// IsLive reports whether the lock's holder still exists and heartbeats
func (info *LockInfo) IsLive() bool {
	if time.Since(info.Heartbeat) > staleThreshold {
		return false
	}
	process, err := os.FindProcess(info.ProcessID)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// InspectRunLock reads the lock file of an output directory without taking
// it. Returns nil info when no lock exists.
func InspectRunLock(outputDir string) (*LockInfo, error) {
	info, err := readLockInfo(filepath.Join(outputDir, lockFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return info, nil
}

func readLockInfo(path string) (*LockInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func writeLockInfo(path string, info *LockInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock info: %w", err)
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile) // Clean up
		return fmt.Errorf("failed to rename lock file: %w", err)
	}
	return nil
}
