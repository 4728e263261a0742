// Package registry implements the Process Registry: the authoritative
// mapping from a live task id to its tracking record, mirroring the
// kernel's `tracing_pinfo` hash map. It is exercised two ways:
// the kernel-side BPF map is the real source of truth while tracing runs,
// and this Go package is its userspace-side shadow, rebuilt by watching
// Exec/Clone/Exit events off the ring buffer, since the kernel state
// disappears with the process it describes. Userspace keys its process
// model on (pid, uid), never pid alone, because task ids are reused.
package registry

import (
	"sync"

	"github.com/buildtrace/buildtrace/pkg/buildtrace/events"
	"github.com/buildtrace/buildtrace/pkg/buildtrace/fingerprint"
)

// Capacity is the bounded map size, matching the kernel map's
// max_entries so that a real StagingConflict/StagingEventFull distinction
// upstream reflects genuine enter/exit mismatches rather than capacity
// exhaustion.
const Capacity = 8192

// Info is one process's tracking record.
type Info struct {
	Parent      int32
	UID         uint64
	Fingerprint fingerprint.Ring
}

// Registry is the bounded pid -> Info map. The zero value is ready to
// use. Registry is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	byPID    map[int32]*Info
	nextUID  uint64
	rootPPID int32
}

// New returns a Registry that admits the process whose pid equals
// rootPPID's first exec unconditionally (the single bootstrap exception
// configured at startup).
func New(rootPPID int32) *Registry {
	return &Registry{
		byPID:    make(map[int32]*Info, Capacity),
		rootPPID: rootPPID,
	}
}

// Lookup reports whether pid is currently traced and, if so, its record.
// This is the single-indirection check every file-access tracepoint
// performs before doing any further work.
func (r *Registry) Lookup(pid int32) (*Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byPID[pid]
	return info, ok
}

// CanAdmit reports whether a task with the given parent may be admitted:
// its parent must already be traced, or the task itself must be the
// configured root parent.
func (r *Registry) CanAdmit(pid, parent int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPID[parent]; ok {
		return true
	}
	return pid == r.rootPPID
}

// Admit assigns a fresh UID to pid and (re-)inserts its record, evicting
// any stale entry left behind by task-id reuse after an uncollected exit.
// It returns the assigned UID. Admit does not itself enforce CanAdmit;
// callers decide admissibility first, as the kernel program's enter
// handlers do.
func (r *Registry) Admit(pid, parent int32) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byPID == nil {
		r.byPID = make(map[int32]*Info, Capacity)
	}
	uid := r.nextUID
	r.nextUID++
	r.byPID[pid] = &Info{Parent: parent, UID: uid}
	return uid
}

// Retire deletes pid's record, called when its sched_process_exit fires
// and the matching Exit event has been committed.
func (r *Registry) Retire(pid int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byPID, pid)
}

// Len reports the number of currently-traced processes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPID)
}

// InsertFingerprint records an (inode, kind) observation for pid and
// reports whether the caller should emit an event. It
// is a no-op returning false if pid is not traced.
func (r *Registry) InsertFingerprint(pid int32, ino uint32, kind events.Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byPID[pid]
	if !ok {
		return false
	}
	return info.Fingerprint.Insert(ino, kind)
}

// Snapshot returns a point-in-time copy of (pid -> Info) for diagnostic
// listing; it does not alias internal state. The `ps` subcommand does not
// use it: it reads the kernel's tracing_pinfo map instead.
func (r *Registry) Snapshot() map[int32]Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int32]Info, len(r.byPID))
	for pid, info := range r.byPID {
		out[pid] = *info
	}
	return out
}
