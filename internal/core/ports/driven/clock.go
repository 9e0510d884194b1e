package driven

import "time"

// Clock abstracts time so eviction delays can be tested without waiting.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f in its own goroutine after d elapses.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable pending call.
type Timer interface {
	// Stop prevents the call if it has not run yet.
	// It returns false if the call already ran or was stopped.
	Stop() bool
}
