// Package rtsched runs periodic tasks under fixed-priority real-time
// scheduling with per-core placement and continuous deadline accounting.
//
// # Overview
//
// A Scheduler owns a fixed list of Task descriptors. Start launches one
// pinned OS thread per task, raises it to its configured real-time priority
// and activates the body at the configured period. Every activation is
// wrapped uniformly: run the body, measure elapsed wall-clock time, compare
// against the deadline, report into a perfmon.Monitor and - on a miss -
// invoke the registered deadline callback.
//
// # Usage
//
//	sched, err := rtsched.New([]rtsched.Task{{
//	    Name:     "inference",
//	    Period:   220 * time.Millisecond,
//	    Deadline: 200 * time.Millisecond,
//	    Priority: 97,
//	    CPU:      3,
//	    Body:     runInference,
//	}}, rtsched.Options{})
//	if err != nil {
//	    // configuration error: nothing was started
//	}
//
//	sched.SetDeadlineCallback(func(name string) {
//	    // runs synchronously on the missing task's own thread - keep it fast
//	})
//
//	if err := sched.Start(); err != nil {
//	    // start failure: partially started tasks were rolled back
//	}
//	defer sched.Stop()
//
// # Deadline misses
//
// A miss is a statistic, not a fault: the task keeps running and the miss is
// surfaced through the monitor and the callback. Only structural
// misconfiguration (non-positive period, nil body) or a failed platform bind
// prevents the scheduler from running.
//
// # Platform substrate
//
// CPU pinning and SCHED_FIFO priority are applied through a small Binder
// capability (internal/rtos on Linux), keeping the scheduler core portable
// across real-time substrates and trivially fakeable in tests.
package rtsched
