// Package server runs the lanes processes (the REST API, the gRPC health
// endpoint and the storage probe) as named services that start together and
// stop together.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running process owned by a Lifecycle.
type Service interface {
	// Start runs the service and blocks until it stops or fails.
	Start() error
	// Stop asks a running Start to return.
	Stop()
}

// FuncService builds a Service from a pair of functions.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls StartFn.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls StopFn.
func (f *FuncService) Stop() { f.StopFn() }

// Lifecycle starts every registered service at once and, when one of them
// fails, ctx ends or a shutdown signal arrives, stops them last-added first.
type Lifecycle struct {
	logger *zap.Logger

	mu       sync.Mutex
	services []namedService
	signals  []os.Signal
	// exitWait bounds how long Run waits for Start calls to return after
	// every service was stopped.
	exitWait time.Duration
}

type namedService struct {
	name string
	svc  Service
}

// NewLifecycle returns a Lifecycle that shuts down on SIGINT and SIGTERM.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger:   logger,
		signals:  []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		exitWait: DefaultShutdownTimeout,
	}
}

// WithSignals replaces the shutdown signals. With none, only ctx and service
// failures end Run.
func (l *Lifecycle) WithSignals(sigs ...os.Signal) *Lifecycle {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.signals = sigs
	return l
}

// WithExitWait sets how long Run waits for services to return once stopped.
func (l *Lifecycle) WithExitWait(d time.Duration) *Lifecycle {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exitWait = d
	return l
}

// Add registers svc under name. Services added after Run began are ignored
// by that run.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, svc: svc})
}

// Run starts every service and blocks until shutdown.
//
// Postcondition: every service has been stopped. Returns the first service
// failure, or nil when shutdown came from ctx or a signal.
func (l *Lifecycle) Run(ctx context.Context) error {
	began := time.Now()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	sigs := append([]os.Signal(nil), l.signals...)
	exitWait := l.exitWait
	l.mu.Unlock()

	// A nil channel never fires, so a Lifecycle without signals ignores them.
	var sigCh chan os.Signal
	if len(sigs) > 0 {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, sigs...)
		defer signal.Stop(sigCh)
	}

	failures := make(chan error, len(services))
	var running sync.WaitGroup
	for _, ns := range services {
		running.Add(1)
		go func() {
			defer running.Done()
			l.logger.Info("starting service", zap.String("service", ns.name))
			if err := ns.svc.Start(); err != nil {
				failures <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}
	l.logger.Info("services launched", zap.Int("count", len(services)))

	var failure error
	select {
	case failure = <-failures:
	case sig := <-sigCh:
		l.logger.Info("shutdown requested", zap.Stringer("signal", sig))
	case <-ctx.Done():
		// ctx may have been cancelled by a failing service's own Stop path.
		select {
		case failure = <-failures:
		default:
			l.logger.Info("shutdown requested", zap.NamedError("cause", context.Cause(ctx)))
		}
	}
	if failure != nil {
		l.logger.Error("service failed, shutting down", zap.Error(failure))
	}

	l.stopAll(services)
	l.awaitExit(&running, exitWait)

	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(began)))
	return failure
}

func (l *Lifecycle) stopAll(services []namedService) {
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		stopStart := time.Now()
		ns.svc.Stop()
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(stopStart)),
		)
	}
}

// awaitExit waits for every Start call to return, for at most d.
func (l *Lifecycle) awaitExit(running *sync.WaitGroup, d time.Duration) {
	exited := make(chan struct{})
	go func() {
		running.Wait()
		close(exited)
	}()
	select {
	case <-exited:
	case <-time.After(d):
		l.logger.Warn("services still running after stop", zap.Duration("waited", d))
	}
}
