// Copyright (c) 2025 A Bit of Help, Inc.

// Package progress provides the byte-count observer hook exposed by the engine
// and a zap based reporter that subscribes to it.
package progress

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// DefaultInterval is how often a Reporter logs
const DefaultInterval = time.Second

// Observer receives the bytes processed so far and the total expected.
// total is zero when the engine cannot know it up front. Observers are called
// synchronously from the copy loop and must return quickly.
type Observer func(processed, total uint64)

// Tracker accumulates chunk sizes and forwards the running total to an
// Observer. A nil Observer makes the tracker a counter only.
type Tracker struct {
	observer  Observer
	total     uint64
	processed uint64
}

// NewTracker creates a Tracker for a run of total bytes
func NewTracker(total uint64, observer Observer) *Tracker {
	return &Tracker{observer: observer, total: total}
}

// Add records n more processed bytes
func (t *Tracker) Add(n int) {
	if n <= 0 {
		return
	}
	t.processed += uint64(n)
	t.notify()
}

// Set records an absolute processed count, used when the count is measured
// elsewhere, such as compressed bytes consumed by a decoder
func (t *Tracker) Set(processed uint64) {
	t.processed = processed
	t.notify()
}

// Processed returns the bytes recorded so far
func (t *Tracker) Processed() uint64 {
	return t.processed
}

// Total returns the expected byte count
func (t *Tracker) Total() uint64 {
	return t.total
}

func (t *Tracker) notify() {
	if t.observer != nil {
		t.observer(t.processed, t.total)
	}
}

// Reporter logs progress periodically. Observe only stores two atomics, so
// the engine never waits on logging.
type Reporter struct {
	logger   *zap.Logger
	interval time.Duration

	processed atomic.Uint64
	total     atomic.Uint64

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	exited    chan struct{}
}

// NewReporter creates a Reporter. A non-positive interval uses DefaultInterval.
func NewReporter(logger *zap.Logger, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reporter{
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
}

// Observe implements Observer
func (r *Reporter) Observe(processed, total uint64) {
	r.processed.Store(processed)
	r.total.Store(total)
}

// Start launches the logging goroutine. Calling it twice is a no-op.
func (r *Reporter) Start() {
	r.startOnce.Do(func() {
		go r.loop()
	})
}

// Stop ends the logging goroutine and logs a final line. It waits for the
// goroutine to exit when Start was called.
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
	started := true
	r.startOnce.Do(func() {
		started = false
		close(r.exited)
	})
	if started {
		<-r.exited
	}
}

func (r *Reporter) loop() {
	defer close(r.exited)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	start := time.Now()
	var last uint64
	for {
		select {
		case <-ticker.C:
			current := r.processed.Load()
			if current == last {
				continue
			}
			last = current
			r.log("Progress", current, r.total.Load(), time.Since(start))
		case <-r.done:
			r.log("Progress complete", r.processed.Load(), r.total.Load(), time.Since(start))
			return
		}
	}
}

func (r *Reporter) log(msg string, processed, total uint64, elapsed time.Duration) {
	fields := []zap.Field{
		zap.Uint64("processed_bytes", processed),
		zap.String("processed", humanize.IBytes(processed)),
		zap.String("rate", Rate(processed, elapsed)),
	}
	if total > 0 {
		fields = append(fields,
			zap.Uint64("total_bytes", total),
			zap.String("total", humanize.IBytes(total)),
			zap.Float64("percent", Percent(processed, total)))
	}
	r.logger.Info(msg, fields...)
}

// Percent returns processed as a percentage of total, capped at 100
func Percent(processed, total uint64) float64 {
	if total == 0 {
		return 0
	}
	p := float64(processed) / float64(total) * 100
	if p > 100 {
		return 100
	}
	return p
}

// Rate formats the average throughput over elapsed
func Rate(processed uint64, elapsed time.Duration) string {
	seconds := elapsed.Seconds()
	if seconds < 0.001 {
		seconds = 0.001
	}
	return humanize.IBytes(uint64(float64(processed)/seconds)) + "/s"
}
