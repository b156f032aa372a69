package bus

import "errors"

var (
	// ErrEnqueueFailed wraps I/O failures writing a queue file. Dequeue
	// never returns this — per spec §4.1 the scheduler skips and logs
	// instead of failing on bad individual messages.
	ErrEnqueueFailed = errors.New("bus: enqueue failed")
)
