// Copyright (c) 2025 A Bit of Help, Inc.

package engine

import (
	"time"

	"go.uber.org/zap"

	customErrors "github.com/abitofhelp/pathcompress/pkg/errors"
	"github.com/abitofhelp/pathcompress/pkg/stats"
)

// State is a step of a single run
type State string

const (
	StateStart      State = "start"
	StateClassified State = "classified"
	StateDetected   State = "detected"
	StateStreaming  State = "streaming"
	StateArchiving  State = "archiving"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transition can follow s
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// run carries the state of one Compress or Decompress call. It is never
// shared between goroutines.
type run struct {
	logger  *zap.Logger
	state   State
	stats   *stats.Stats
	started time.Time
}

func newRun(logger *zap.Logger, op stats.Operation, input string) *run {
	r := &run{
		logger:  logger.With(zap.String("operation", string(op)), zap.String("input", input)),
		stats:   stats.NewStats(op),
		started: time.Now(),
	}
	r.transition(StateStart)
	return r
}

func (r *run) transition(s State, fields ...zap.Field) {
	if r.state.Terminal() {
		return
	}
	r.state = s
	r.logger.Debug("State transition", append([]zap.Field{zap.String("state", string(s))}, fields...)...)
}

// complete moves the run to StateComplete and returns its stats
func (r *run) complete() *stats.Stats {
	r.stats.ProcessingTime = time.Since(r.started)
	r.transition(StateComplete, zap.Duration("processing_time", r.stats.ProcessingTime))
	return r.stats
}

// fail moves the run to StateFailed and returns err unchanged
func (r *run) fail(err error) error {
	r.stats.ProcessingTime = time.Since(r.started)
	r.transition(StateFailed,
		zap.String("error_kind", string(customErrors.KindOf(err))),
		zap.Error(err))
	return err
}
