//go:build linux

package rtos

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Bind pins the calling OS thread to cpu and raises it to SCHED_FIFO at
// priority. Requires CAP_SYS_NICE (or root); EPERM surfaces as a bind
// error so the scheduler can roll back.
func Bind(name string, priority, cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("rtos: pin %q to cpu %d: %w", name, cpu, err)
	}

	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(priority),
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return fmt.Errorf("rtos: set SCHED_FIFO prio %d for %q: %w", priority, name, err)
	}
	return nil
}
