// Package process provides signal-driven shutdown coordination for the
// CLI orchestrator and small process-group helpers for the isolation
// runner's children.
package process

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/forgebuild/forge/pkg/logger"
)

// Manager cancels a context on SIGINT/SIGTERM and runs registered
// cleanup functions once, in reverse registration order.
type Manager struct {
	log      logger.Logger
	cancel   context.CancelFunc
	mu       sync.Mutex
	cleanups []func()
	once     sync.Once
}

// NewManager wires signal handling around a parent context. The
// returned context is canceled on the first termination signal.
func NewManager(parent context.Context, log logger.Logger) (*Manager, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	m := &Manager{log: log, cancel: cancel}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig, ok := <-sigs
		if !ok {
			return
		}
		if log != nil {
			log.Info("received signal, shutting down", logger.WithField("signal", sig.String()))
		}
		m.Shutdown()
	}()

	return m, ctx
}

// OnShutdown registers a cleanup function.
func (m *Manager) OnShutdown(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, fn)
}

// Shutdown cancels the context and runs the cleanups. Safe to call more
// than once; cleanups run once.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		m.cancel()
		m.mu.Lock()
		cleanups := m.cleanups
		m.mu.Unlock()
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	})
}

// KillGroup signals an entire process group. Build children run in
// their own group, so this reaches the whole build tree.
func KillGroup(pid int, sig syscall.Signal) error {
	return unix.Kill(-pid, sig)
}

// Alive reports whether a process still exists.
func Alive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}
