// Package mocks provides mock implementations of interfaces for testing.
// These follow Go best practices for test doubles.
package mocks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/interfaces"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/results"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

// MockEngine is a mock implementation of Engine for testing
type MockEngine struct {
	mu            sync.RWMutex
	sessions      []*MockEngineSession
	pingError     error
	sessionError  error
	calculateFunc func(req *types.CalculationRequest) (*results.PhaseDiagramData, error)
}

// NewMockEngine creates a new mock engine
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// NewSession opens a new mock session
func (m *MockEngine) NewSession(ctx context.Context) (interfaces.EngineSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessionError != nil {
		return nil, m.sessionError
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	session := &MockEngineSession{engine: m}
	m.sessions = append(m.sessions, session)
	return session, nil
}

// Mode reports the mock engine mode
func (m *MockEngine) Mode() types.EngineMode {
	return types.EngineModeSimulated
}

// Ping verifies mock engine availability
func (m *MockEngine) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.pingError != nil {
		return m.pingError
	}
	return ctx.Err()
}

// SetPingError sets the error to return from Ping
func (m *MockEngine) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSessionError sets the error to return from NewSession
func (m *MockEngine) SetSessionError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionError = err
}

// SetCalculateFunc sets the behavior of every session's CalculatePhaseDiagram
func (m *MockEngine) SetCalculateFunc(fn func(req *types.CalculationRequest) (*results.PhaseDiagramData, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calculateFunc = fn
}

// SessionCount returns the number of sessions opened so far
func (m *MockEngine) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// OpenSessions returns the number of sessions not yet closed
func (m *MockEngine) OpenSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	open := 0
	for _, session := range m.sessions {
		if session.CloseCount() == 0 {
			open++
		}
	}
	return open
}

// Sessions returns every session opened so far, in order
func (m *MockEngine) Sessions() []*MockEngineSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*MockEngineSession, len(m.sessions))
	copy(out, m.sessions)
	return out
}

// MockEngineSession is a mock implementation of EngineSession for testing
type MockEngineSession struct {
	engine         *MockEngine
	mu             sync.RWMutex
	closeCount     int
	calculateCount int
	requests       []*types.CalculationRequest
	closeError     error
}

// CalculatePhaseDiagram records the request and returns the configured diagram
func (s *MockEngineSession) CalculatePhaseDiagram(ctx context.Context, req *types.CalculationRequest) (*results.PhaseDiagramData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.calculateCount++
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	s.engine.mu.RLock()
	fn := s.engine.calculateFunc
	s.engine.mu.RUnlock()

	if fn != nil {
		return fn(req)
	}

	return &results.PhaseDiagramData{
		Groups: []results.PhaseGroup{
			{Label: "LIQUID", X: []float64{0.1, 0.2}, Y: []float64{1100, 1150}},
		},
	}, nil
}

// Close records the close call
func (s *MockEngineSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCount++
	return s.closeError
}

// SetCloseError sets the error to return from Close
func (s *MockEngineSession) SetCloseError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeError = err
}

// CloseCount returns the number of times Close was called
func (s *MockEngineSession) CloseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closeCount
}

// CalculateCount returns the number of calculations run in this session
func (s *MockEngineSession) CalculateCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calculateCount
}

// Requests returns the requests this session served, in order
func (s *MockEngineSession) Requests() []*types.CalculationRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.CalculationRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// MockResultStore is a mock implementation of ResultStore for testing
type MockResultStore struct {
	mu          sync.RWMutex
	outputDir   string
	saved       map[string]*results.Result
	order       []string
	saveError   error
	ensureError error
}

// NewMockResultStore creates a new mock result store
func NewMockResultStore() *MockResultStore {
	return &MockResultStore{
		outputDir: "mock-results",
		saved:     make(map[string]*results.Result),
	}
}

// EnsureOutputDir pretends to create the output directory
func (m *MockResultStore) EnsureOutputDir() error {
	return m.ensureError
}

// Save records the result in memory
func (m *MockResultStore) Save(result *results.Result) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveError != nil {
		return "", m.saveError
	}

	path := filepath.Join(m.outputDir, results.Filename(result.Composition))
	if _, exists := m.saved[path]; !exists {
		m.order = append(m.order, path)
	}
	m.saved[path] = result
	return path, nil
}

// Load retrieves a previously saved result
func (m *MockResultStore) Load(path string) (*results.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result, ok := m.saved[path]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", path, os.ErrNotExist)
	}
	return result, nil
}

// Discover lists the saved results in save order
func (m *MockResultStore) Discover() ([]results.ResultInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]results.ResultInfo, 0, len(m.order))
	for _, path := range m.order {
		result := m.saved[path]
		infos = append(infos, results.ResultInfo{
			Path:        path,
			Name:        filepath.Base(path),
			Composition: result.Composition,
			ModTime:     result.CalculatedAt,
		})
	}
	return infos, nil
}

// LoadAll returns every saved result in save order
func (m *MockResultStore) LoadAll(ctx context.Context) ([]*results.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*results.Result, 0, len(m.order))
	for _, path := range m.order {
		out = append(out, m.saved[path])
	}
	return out, nil
}

// OutputDir returns the mock output directory
func (m *MockResultStore) OutputDir() string {
	return m.outputDir
}

// SetSaveError sets the error to return from Save
func (m *MockResultStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// SetEnsureError sets the error to return from EnsureOutputDir
func (m *MockResultStore) SetEnsureError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureError = err
}

// SaveCount returns the number of results saved
func (m *MockResultStore) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// SavedPaths returns the paths saved so far, in order
func (m *MockResultStore) SavedPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// PointFailureRecord captures one NotifyPointFailure call
type PointFailureRecord struct {
	SystemNumber int
	Composition  string
}

// RunCompleteRecord captures one NotifyRunComplete call
type RunCompleteRecord struct {
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// MockRunNotifier is a mock implementation of RunNotifier for testing
type MockRunNotifier struct {
	mu            sync.RWMutex
	runStarts     []int
	pointFailures []PointFailureRecord
	runCompletes  []RunCompleteRecord
}

// NewMockRunNotifier creates a new mock run notifier
func NewMockRunNotifier() *MockRunNotifier {
	return &MockRunNotifier{}
}

// NotifyRunStart records the run start
func (m *MockRunNotifier) NotifyRunStart(totalPoints int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runStarts = append(m.runStarts, totalPoints)
}

// NotifyPointFailure records the failed point
func (m *MockRunNotifier) NotifyPointFailure(systemNumber int, composition string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pointFailures = append(m.pointFailures, PointFailureRecord{
		SystemNumber: systemNumber,
		Composition:  composition,
	})
}

// NotifyRunComplete records the run completion
func (m *MockRunNotifier) NotifyRunComplete(succeeded, failed int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runCompletes = append(m.runCompletes, RunCompleteRecord{
		Succeeded: succeeded,
		Failed:    failed,
		Duration:  duration,
	})
}

// RunStartCount returns the number of run starts recorded
func (m *MockRunNotifier) RunStartCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runStarts)
}

// PointFailures returns the recorded point failures, in order
func (m *MockRunNotifier) PointFailures() []PointFailureRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]PointFailureRecord, len(m.pointFailures))
	copy(out, m.pointFailures)
	return out
}

// RunCompletes returns the recorded run completions, in order
func (m *MockRunNotifier) RunCompletes() []RunCompleteRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RunCompleteRecord, len(m.runCompletes))
	copy(out, m.runCompletes)
	return out
}

// MockRunLock is a mock implementation of RunLock for testing
type MockRunLock struct {
	mu           sync.RWMutex
	held         bool
	lastRunID    string
	acquireCount int
	releaseCount int
	acquireError error
}

// NewMockRunLock creates a new mock run lock
func NewMockRunLock() *MockRunLock {
	return &MockRunLock{}
}

// Acquire takes the mock lock
func (m *MockRunLock) Acquire(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.acquireError != nil {
		return m.acquireError
	}
	m.held = true
	m.lastRunID = runID
	m.acquireCount++
	return nil
}

// Release drops the mock lock
func (m *MockRunLock) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = false
	m.releaseCount++
	return nil
}

// SetAcquireError sets the error to return from Acquire
func (m *MockRunLock) SetAcquireError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquireError = err
}

// IsHeld reports whether the lock is currently held
func (m *MockRunLock) IsHeld() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.held
}

// LastRunID returns the run ID from the most recent Acquire
func (m *MockRunLock) LastRunID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRunID
}

// AcquireCount returns the number of times Acquire succeeded
func (m *MockRunLock) AcquireCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.acquireCount
}

// ReleaseCount returns the number of times Release was called
func (m *MockRunLock) ReleaseCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.releaseCount
}

// MockProcessManager is a mock implementation of ProcessManager for testing
type MockProcessManager struct {
	mu       sync.RWMutex
	handlers []func()
	running  bool
}

// NewMockProcessManager creates a new mock process manager
func NewMockProcessManager() *MockProcessManager {
	return &MockProcessManager{}
}

// RegisterShutdownHandler records a shutdown handler
func (m *MockProcessManager) RegisterShutdownHandler(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// Start marks the manager as running
func (m *MockProcessManager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
}

// Stop marks the manager as stopped
func (m *MockProcessManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
}

// IsRunning reports whether Start has been called
func (m *MockProcessManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// TriggerShutdown invokes the registered handlers in reverse order,
// simulating a caught signal
func (m *MockProcessManager) TriggerShutdown() {
	m.mu.RLock()
	handlers := make([]func(), len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.RUnlock()

	for i := len(handlers) - 1; i >= 0; i-- {
		handlers[i]()
	}
}
