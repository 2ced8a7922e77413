// Package fabric provides the synchronization primitives chaining pipeline
// stages: latest-value handoff cells and mutex-guarded shared buffers.
//
// # Overview
//
// A real-time pipeline hands one artifact (a merged frame, a preprocessed
// tensor, a detection set) from each producer stage to one or more consumer
// stages. The fabric owns those artifacts and the locks around them; stages
// get short-lived, mutually-exclusive access and never retain a reference
// past their own activation.
//
// The handoff policy is:
//
//	"Drop artifacts, never queue. Freshness > Completeness."
//
// # Cell
//
// Cell is a single-writer, multi-reader latest-value cell with broadcast
// wake. It is NOT a queue: a slow consumer observes only the most recent
// value and silently skips anything overwritten in between. That is a policy
// decision, not an artifact of the primitive.
//
//	cell := fabric.NewCell[MergedFrame]()
//
//	// Producer stage
//	cell.Set(merged)
//
//	// Consumer stage, bounded by its own period
//	ctx, cancel := context.WithTimeout(ctx, period/2)
//	defer cancel()
//	v, seq, err := cell.AwaitNext(ctx, lastSeq)
//	if err != nil {
//	    // no new data this period - not a fault
//	}
//
// # Buffer
//
// Buffer guards a shared mutable artifact that more than one producer
// composes (e.g. left and right captures merging into one stereo view).
// Access is scoped: the lock is held only for the update or the copy-out,
// never across external work.
//
//	buf := fabric.NewBuffer[MergedFrame]()
//	buf.Update(func(m *MergedFrame) { m.Left = frame })
//	snapshot := buf.Snapshot()
//
// # Thread Safety
//
// All operations on Cell and Buffer are safe for concurrent use.
package fabric
