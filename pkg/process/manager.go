// Package process provides signal handling for long-running sweeps
package process

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/logger"
)

// Manager turns OS signals into graceful-shutdown callbacks. The first
// interrupt runs the registered handlers and lets the sweep wind down; a
// second interrupt exits immediately.
type Manager struct {
	logger           logger.Logger
	shutdownHandlers []func()
	stop             chan struct{}
	wg               sync.WaitGroup
	mu               sync.Mutex
	running          bool
}

// NewManager creates a new process manager
func NewManager(log logger.Logger) *Manager {
	return &Manager{
		logger:           log,
		shutdownHandlers: make([]func(), 0),
		running:          false,
	}
}

// RegisterShutdownHandler adds a shutdown handler
func (m *Manager) RegisterShutdownHandler(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdownHandlers = append(m.shutdownHandlers, handler)
}

// Start begins watching for OS signals. The context bounds the watcher's
// lifetime; cancelling it also triggers the shutdown handlers.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer signal.Stop(sigChan)

		select {
		case <-stop:
			return
		case <-ctx.Done():
			m.handleShutdown()
			return
		case sig := <-sigChan:
			m.logger.Info("Received signal", logger.WithField("signal", sig.String()))
			m.handleShutdown()
		}

		// A second signal means the user is done waiting
		select {
		case <-stop:
		case <-ctx.Done():
		case sig := <-sigChan:
			m.logger.Error("Received second signal, exiting immediately", logger.WithField("signal", sig.String()))
			os.Exit(130)
		}
	}()
}

// Stop stops the signal watcher
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop := m.stop
	m.mu.Unlock()

	close(stop)
	m.wg.Wait()
}

// IsRunning checks if the signal watcher is active
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) handleShutdown() {
	m.logger.Info("Initiating graceful shutdown...")

	// Call shutdown handlers in reverse order
	m.mu.Lock()
	handlers := make([]func(), len(m.shutdownHandlers))
	copy(handlers, m.shutdownHandlers)
	m.mu.Unlock()

	for i := len(handlers) - 1; i >= 0; i-- {
		handlers[i]()
	}
}
