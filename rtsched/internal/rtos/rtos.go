// Package rtos is the platform substrate for real-time task placement:
// CPU affinity and fixed-priority scheduling for the calling OS thread.
//
// The caller must hold runtime.LockOSThread before Bind so the placement
// sticks to the goroutine's thread for its whole lifetime.
package rtos
