package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownManager handles graceful shutdown of services
type ShutdownManager struct {
	logger          *Logger
	servers         []*http.Server
	shutdownFuncs   []ShutdownFunc
	shutdownTimeout time.Duration
	mu              sync.Mutex
}

// ShutdownFunc is a function to call during shutdown
type ShutdownFunc func(context.Context) error

// NewShutdownManager creates a new shutdown manager
func NewShutdownManager(logger *Logger, timeout time.Duration, servers ...*http.Server) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:          logger,
		servers:         servers,
		shutdownTimeout: timeout,
	}
}

// RegisterShutdownFunc registers a function to call during shutdown
func (sm *ShutdownManager) RegisterShutdownFunc(fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.shutdownFuncs = append(sm.shutdownFuncs, fn)
}

// WaitForShutdown blocks until a shutdown signal is received, then
// drains the HTTP servers and runs the registered shutdown functions.
func (sm *ShutdownManager) WaitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	sm.logger.Infof("Received signal %s, starting graceful shutdown", sig)

	ctx, cancel := context.WithTimeout(context.Background(), sm.shutdownTimeout)
	defer cancel()

	for _, server := range sm.servers {
		if err := server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("HTTP server shutdown error")
			return fmt.Errorf("HTTP server shutdown failed: %w", err)
		}
	}
	sm.logger.Info("HTTP servers drained")

	sm.mu.Lock()
	funcs := sm.shutdownFuncs
	sm.mu.Unlock()

	var wg sync.WaitGroup
	errChan := make(chan error, len(funcs))

	for _, fn := range funcs {
		wg.Add(1)
		go func(shutdownFn ShutdownFunc) {
			defer wg.Done()
			if err := shutdownFn(ctx); err != nil {
				errChan <- err
			}
		}(fn)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		sm.logger.Warn("Shutdown timeout reached, forcing shutdown")
		return fmt.Errorf("shutdown timeout reached")
	}

	close(errChan)
	var count int
	for err := range errChan {
		sm.logger.WithError(err).Error("shutdown function failed")
		count++
	}
	if count > 0 {
		return fmt.Errorf("shutdown completed with %d errors", count)
	}

	sm.logger.Info("Graceful shutdown complete")
	return nil
}
