package coordinator

import (
	"log/slog"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/metrics"
)

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.log = logger
		}
	}
}

func WithMetrics(recorder metrics.Recorder) Option {
	return func(c *Coordinator) {
		if recorder != nil {
			c.metrics = recorder
		}
	}
}

func WithLocker(locker Locker) Option {
	return func(c *Coordinator) {
		if locker != nil {
			c.locker = locker
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}
