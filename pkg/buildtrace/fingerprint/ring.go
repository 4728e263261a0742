// Package fingerprint implements the per-process sliding window that
// suppresses duplicate file-access events of the same (inode, kind) pair,
// mirroring `bt_process_info_insert_fingerprint` in the kernel
// program. It is kept as a standalone, pure-Go package so its dedup
// behavior can be unit-tested without a kernel.
package fingerprint

import "github.com/buildtrace/buildtrace/pkg/buildtrace/events"

// Size is the ring's fixed capacity: at most this many distinct recent
// observations are remembered per process.
const Size = 5

type entry struct {
	ino  uint32
	kind events.Kind
	set  bool
}

// Ring is a bounded, unordered set of the last Size distinct (inode, kind)
// observations for one process. It is not safe for concurrent use by
// multiple goroutines without external synchronization, matching the
// kernel's model where one task owns its Process Info entry at a time.
type Ring struct {
	entries [Size]entry
	next    int
}

// Insert records (ino, kind) and reports whether the caller should emit
// an event for it. It returns false (suppress) if the pair is already
// present anywhere in the ring; otherwise it overwrites the oldest slot
// and returns true.
func (r *Ring) Insert(ino uint32, kind events.Kind) bool {
	for _, e := range r.entries {
		if e.set && e.ino == ino && e.kind == kind {
			return false
		}
	}
	r.entries[r.next] = entry{ino: ino, kind: kind, set: true}
	r.next = (r.next + 1) % Size
	return true
}

// Reset clears the ring, as happens implicitly when a process is admitted
// (a fresh Process Info starts with an empty ring).
func (r *Ring) Reset() {
	*r = Ring{}
}
