package worker

import (
	"time"
)

// Worker is a long running background task that can be started and stopped.
// Stop blocks until the worker has shut down or wait elapses.
type Worker interface {
	Start()
	Stop(wait time.Duration)
	Started() bool
}
