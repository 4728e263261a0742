// Package simulate replays the kernel tracer's enter/exit protocol in
// pure Go, using the same registry, staging and fingerprint packages the
// kernel program's logic is modeled on. It exists to exercise the
// tracer's literal end-to-end scenarios without a kernel, a privileged
// tracer, or a compiled BPF object.
package simulate

import (
	"fmt"
	"path"

	"github.com/buildtrace/buildtrace/pkg/buildtrace/events"
	"github.com/buildtrace/buildtrace/pkg/buildtrace/registry"
	"github.com/buildtrace/buildtrace/pkg/buildtrace/staging"
)

// Harness wires a Registry and a staging Engine together the way a
// single kernel instance does, letting tests drive syscall enter/exit
// pairs and inspect exactly what would have been committed to the ring
// buffer.
type Harness struct {
	Registry *registry.Registry
	staging  *staging.Engine
	pathOf   map[int32]string // synthetic per-pid CWD, for AT_FDCWD fast paths
}

// New returns a Harness whose root process is rootPPID, mirroring the
// kernel program's `root_ppid` read-only configuration input.
func New(rootPPID int32) *Harness {
	return &Harness{
		Registry: registry.New(rootPPID),
		staging:  staging.NewEngine(),
		pathOf:   make(map[int32]string),
	}
}

func pidTgid(pid int32) uint64 { return uint64(pid)<<32 | uint64(pid) }

// Chdir records pid's synthetic current working directory, which
// AccessRelative resolves relative paths against. This resolution is the
// harness's own: the kernel program's chdir/fchdir handlers only commit a
// Chdir event, and its AT_FDCWD fast paths commit a relative path exactly
// as the syscall passed it.
func (h *Harness) Chdir(pid int32, dir string) {
	h.pathOf[pid] = dir
}

// AccessRelative is Access with rel joined onto pid's recorded cwd (set
// via Chdir).
func (h *Harness) AccessRelative(pid int32, ino uint32, kind events.Kind, rel string) (events.SmallEvent, bool, error) {
	return h.Access(pid, ino, kind, path.Join(h.pathOf[pid], rel))
}

// Exec models execve's enter+exit pair: admission, then a committed
// Exec SmallEvent carrying the parent pid in Payload and the raw path
// string in row 0 of the path tuple.
func (h *Harness) Exec(pid, parent int32, path string) (events.SmallEvent, error) {
	if !h.Registry.CanAdmit(pid, parent) {
		return events.SmallEvent{}, fmt.Errorf("simulate: pid %d not admissible under parent %d", pid, parent)
	}
	uid := h.Registry.Admit(pid, parent)

	pt := pidTgid(pid)
	slot, err := h.staging.Allocate(pt, events.ClassSmall)
	if err != nil {
		return events.SmallEvent{}, err
	}
	slot.Small.Header = events.Header{Kind: events.KindExec, PID: pid, UID: uid}
	slot.Small.Payload = parent
	slot.Small.Path.SetRow(0, path)

	committed, ok := h.staging.Commit(pt)
	if !ok {
		return events.SmallEvent{}, fmt.Errorf("simulate: exec slot vanished for pid %d", pid)
	}
	return committed.Small, nil
}

// Access models a read/write-family syscall: fingerprint-gated, staged
// at entry and committed at exit only if Insert reports a fresh
// observation. ok is false when the
// access was suppressed as a duplicate or the pid isn't traced.
func (h *Harness) Access(pid int32, ino uint32, kind events.Kind, path string) (event events.SmallEvent, ok bool, err error) {
	if _, traced := h.Registry.Lookup(pid); !traced {
		return events.SmallEvent{}, false, nil
	}
	if !h.Registry.InsertFingerprint(pid, ino, kind) {
		return events.SmallEvent{}, false, nil
	}

	info, _ := h.Registry.Lookup(pid)
	pt := pidTgid(pid)
	slot, err := h.staging.Allocate(pt, events.ClassSmall)
	if err != nil {
		return events.SmallEvent{}, false, err
	}
	slot.Small.Header = events.Header{Kind: kind, PID: pid, UID: info.UID}
	slot.Small.Path.SetRow(0, path)

	committed, got := h.staging.Commit(pt)
	if !got {
		return events.SmallEvent{}, false, fmt.Errorf("simulate: access slot vanished for pid %d", pid)
	}
	return committed.Small, true, nil
}

// Rename models rename(2): a Fat event with both paths (one
// scenario 3).
func (h *Harness) Rename(pid int32, oldPath, newPath string) (events.FatEvent, error) {
	return h.fatPathEvent(pid, events.KindRename, oldPath, newPath)
}

func (h *Harness) fatPathEvent(pid int32, kind events.Kind, a, b string) (events.FatEvent, error) {
	info, traced := h.Registry.Lookup(pid)
	if !traced {
		return events.FatEvent{}, fmt.Errorf("simulate: pid %d not traced", pid)
	}
	pt := pidTgid(pid)
	slot, err := h.staging.Allocate(pt, events.ClassFat)
	if err != nil {
		return events.FatEvent{}, err
	}
	slot.Fat.Header = events.Header{Kind: kind, PID: pid, UID: info.UID}
	slot.Fat.Path[0].SetRow(0, a)
	slot.Fat.Path[1].SetRow(0, b)

	committed, ok := h.staging.Commit(pt)
	if !ok {
		return events.FatEvent{}, fmt.Errorf("simulate: fat slot vanished for pid %d", pid)
	}
	return committed.Fat, nil
}

// LinkAt models linkat(2) with an explicit (non-AT_FDCWD) target
// directory fd: a Fat2 event whose first two rows encode the two base
// directories and whose last two rows encode the relative paths (spec
// §8 scenario 4).
func (h *Harness) LinkAt(pid int32, cwd, targetDir, src, dst string) (events.Fat2Event, error) {
	info, traced := h.Registry.Lookup(pid)
	if !traced {
		return events.Fat2Event{}, fmt.Errorf("simulate: pid %d not traced", pid)
	}
	pt := pidTgid(pid)
	slot, err := h.staging.Allocate(pt, events.ClassFat2)
	if err != nil {
		return events.Fat2Event{}, err
	}
	slot.Fat2.Header = events.Header{Kind: events.KindLinkAt, PID: pid, UID: info.UID}
	slot.Fat2.Path[0].SetRow(0, cwd)
	slot.Fat2.Path[1].SetRow(0, targetDir)
	slot.Fat2.Path[2].SetRow(0, src)
	slot.Fat2.Path[3].SetRow(0, dst)

	committed, ok := h.staging.Commit(pt)
	if !ok {
		return events.Fat2Event{}, fmt.Errorf("simulate: fat2 slot vanished for pid %d", pid)
	}
	return committed.Fat2, nil
}

// FailedUnlink models unlink(2) returning -ENOENT: the enter handler
// stages normally, but the exit-side commit sees a negative return and
// frees the slot without emitting anything.
func (h *Harness) FailedUnlink(pid int32, path string) error {
	info, traced := h.Registry.Lookup(pid)
	if !traced {
		return fmt.Errorf("simulate: pid %d not traced", pid)
	}
	pt := pidTgid(pid)
	slot, err := h.staging.Allocate(pt, events.ClassSmall)
	if err != nil {
		return err
	}
	slot.Small.Header = events.Header{Kind: events.KindRemove, PID: pid, UID: info.UID}
	slot.Small.Path.SetRow(0, path)

	// Syscall failed: free rather than commit.
	h.staging.Free(pt)
	return nil
}

// Clone3 models clone3(2)'s child-branch exit handler. sameTgid true
// means the new task is a thread of an existing process and is neither
// admitted nor given a Clone event ("clone3
// specifics"). It returns (event, true) only for a genuine admitted
// process-forming clone.
func (h *Harness) Clone3(childPID, parentPID int32, sameTgid bool) (events.SmallEvent, bool) {
	if sameTgid {
		return events.SmallEvent{}, false
	}
	if !h.Registry.CanAdmit(childPID, parentPID) {
		return events.SmallEvent{}, false
	}
	uid := h.Registry.Admit(childPID, parentPID)
	return events.SmallEvent{
		Header:  events.Header{Kind: events.KindClone, PID: childPID, UID: uid},
		Payload: parentPID,
	}, true
}

// Exit models sched_process_exit: a direct Exit SmallEvent (never
// staged) followed by retirement from the registry.
func (h *Harness) Exit(pid int32, status int32) (events.SmallEvent, error) {
	info, traced := h.Registry.Lookup(pid)
	if !traced {
		return events.SmallEvent{}, fmt.Errorf("simulate: pid %d not traced", pid)
	}
	event := events.SmallEvent{
		Header:  events.Header{Kind: events.KindExit, PID: pid, UID: info.UID},
		Payload: status,
	}
	h.Registry.Retire(pid)
	return event, nil
}
