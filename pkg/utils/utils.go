// Copyright (c) 2025 A Bit of Help, Inc.

// Package utils provides process level helpers for the command line tool
package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// exit is replaced in tests
var exit = os.Exit

// DefaultShutdownTimeout bounds how long a canceled run may take to unwind
const DefaultShutdownTimeout = 30 * time.Second

// ShutdownSignals are the signals that cancel an in-flight run
var ShutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT}

// SetupGracefulShutdown cancels the run on the first shutdown signal. A second
// signal, or a run that is still unwinding after timeout, exits the process.
// It returns a function that should be deferred to clean up signal handling.
func SetupGracefulShutdown(ctx context.Context, cancel context.CancelFunc, logger *zap.Logger, timeout time.Duration) func() {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	exit := exit

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, ShutdownSignals...)

	// Create a channel to signal when the goroutine should exit
	done := make(chan struct{})

	// Start goroutine for signal handling
	go func() {
		defer logger.Debug("Signal handling goroutine exited")

		ctxDone := ctx.Done()
		signalReceived := false

		for {
			select {
			case sig, ok := <-sigChan:
				if !ok {
					// sigChan was closed, exit goroutine
					return
				}

				if signalReceived {
					// Second signal received, force immediate exit
					logger.Warn("Received second signal, forcing immediate shutdown",
						zap.String("signal", sig.String()))
					exit(1)
					return
				}

				// First signal, try graceful shutdown
				logger.Info("Received signal, initiating graceful shutdown",
					zap.String("signal", sig.String()))
				signalReceived = true

				// Our own cancel closes ctxDone; keep listening for a second signal
				ctxDone = nil

				// Start a timer for forced shutdown
				go func() {
					shutdownTimer := time.NewTimer(timeout)
					defer shutdownTimer.Stop()

					select {
					case <-shutdownTimer.C:
						logger.Warn("Graceful shutdown timed out, forcing exit",
							zap.Duration("timeout", timeout))
						exit(1)
					case <-done:
						// The run unwound in time
						return
					}
				}()

				// Cancel the run; the engine stops at the next chunk boundary
				cancel()
			case <-ctxDone:
				// Context was canceled elsewhere
				return
			case <-done:
				// Signal to exit
				return
			}
		}
	}()

	// Return a cleanup function
	return func() {
		// Signal the goroutine to exit
		close(done)

		// Stop signal notifications
		signal.Stop(sigChan)

		logger.Debug("Signal handling cleaned up")
	}
}
