//go:build !linux

package rtos

// Bind is a no-op where no real-time scheduling class is available. Tasks
// still run periodically; placement and preemption guarantees are lost.
func Bind(name string, priority, cpu int) error {
	return nil
}
