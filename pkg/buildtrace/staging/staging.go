// Package staging is a reference implementation of the Event Staging
// protocol: a per-pid_tgid scratch slot that
// carries an event built at syscall entry through to syscall exit, where
// it is committed or discarded based on the syscall's return value. The
// kernel program implements the same protocol over a BPF_MAP_TYPE_HASH;
// this Go package exists so the protocol's invariants (I2, I3) and the
// `simulate` test harness can run and be asserted against without a
// kernel, and it documents the allocate/commit state machine the BPF
// side must also uphold.
package staging

import (
	"sync"

	"github.com/buildtrace/buildtrace/pkg/buildtrace/events"
)

// Capacity mirrors the kernel's staging_events map size. It must be at
// least the Process Registry's capacity so a StagingConflict reliably
// means a real enter/exit mismatch rather than the map being full.
const Capacity = 8192

// AllocError is the failure Allocate reports. Its Kind is
// events.ErrorStagingConflict or events.ErrorStagingEventFull.
type AllocError struct {
	Kind events.ErrorKind
}

func (e *AllocError) Error() string { return "buildtrace: staging allocate failed: " + e.Kind.String() }

// Slot is one staged event, tagged with its wire class.
type Slot struct {
	Class events.Class
	Small events.SmallEvent
	Fat   events.FatEvent
	Fat2  events.Fat2Event
}

// Engine is the pid_tgid -> Slot map with create-only allocation
// semantics: at most one slot per pid_tgid.
type Engine struct {
	mu    sync.Mutex
	slots map[uint64]*Slot
}

// NewEngine returns a ready-to-use Engine.
func NewEngine() *Engine {
	return &Engine{slots: make(map[uint64]*Slot, Capacity)}
}

// Allocate reserves a zero-valued slot of the given class for pidTgid.
// It fails with ErrorStagingConflict if a slot already exists for this
// pidTgid (the previous syscall's exit never ran, or leaked after the
// task was killed between enter and exit), or ErrorStagingEventFull if
// the engine is at Capacity.
func (e *Engine) Allocate(pidTgid uint64, class events.Class) (*Slot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.slots[pidTgid]; exists {
		return nil, &AllocError{Kind: events.ErrorStagingConflict}
	}
	if len(e.slots) >= Capacity {
		return nil, &AllocError{Kind: events.ErrorStagingEventFull}
	}
	slot := &Slot{Class: class}
	e.slots[pidTgid] = slot
	return slot, nil
}

// Free discards the slot for pidTgid without committing it (used both on
// enter-handler failure and on syscall failure at exit).
func (e *Engine) Free(pidTgid uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.slots, pidTgid)
}

// Commit looks up the slot for pidTgid and, if present, removes and
// returns it for submission. It returns (nil, false) if no slot exists,
// which the exit handler treats as a no-op rather than an error (spec
// §4.4 step 1: "if absent, do nothing").
func (e *Engine) Commit(pidTgid uint64) (*Slot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	slot, ok := e.slots[pidTgid]
	if !ok {
		return nil, false
	}
	delete(e.slots, pidTgid)
	return slot, true
}

// Len reports the number of currently-staged slots, used in tests to
// assert that every allocate is eventually matched by a commit or a
// free.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.slots)
}
