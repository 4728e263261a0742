package simulate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/buildtrace/buildtrace/pkg/buildtrace/events"
)

// A root task execs, producing a single Exec event.
func TestScenarioRootExec(t *testing.T) {
	h := New(1000)
	event, err := h.Exec(1000, 999, "/bin/ls")
	require.NoError(t, err)
	require.Equal(t, events.KindExec, event.Header.Kind)
	require.EqualValues(t, 1000, event.Header.PID)
	require.EqualValues(t, 0, event.Header.UID)
	require.EqualValues(t, 999, event.Payload)
	require.Equal(t, "/bin/ls", event.Path.Row(0))
}

// Scenario 2: three reads of /etc/passwd collapse to one Input event; a
// distinct inode (/etc/group) still produces its own event.
func TestScenarioFingerprintDeduplicatesRepeatedReads(t *testing.T) {
	h := New(1000)
	_, err := h.Exec(1000, 999, "/bin/cat")
	require.NoError(t, err)

	const passwdIno, groupIno = 42, 43

	first, ok, err := h.Access(1000, passwdIno, events.KindInput, "/etc/passwd")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "/etc/passwd", first.Path.Row(0))

	for i := 0; i < 2; i++ {
		_, ok, err := h.Access(1000, passwdIno, events.KindInput, "/etc/passwd")
		require.NoError(t, err)
		require.False(t, ok, "repeated read of the same inode must be suppressed")
	}

	second, ok, err := h.Access(1000, groupIno, events.KindInput, "/etc/group")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "/etc/group", second.Path.Row(0))
}

// Scenario 3: rename(a, b) produces a single Rename Fat event.
func TestScenarioRename(t *testing.T) {
	h := New(1000)
	_, err := h.Exec(1000, 999, "/bin/mv")
	require.NoError(t, err)

	event, err := h.Rename(1000, "a", "b")
	require.NoError(t, err)
	require.Equal(t, events.KindRename, event.Header.Kind)
	require.Equal(t, "a", event.Path[0].Row(0))
	require.Equal(t, "b", event.Path[1].Row(0))
}

// Scenario 4: linkat(AT_FDCWD, "src", fd=5, "dst", 0) with fd=5 -> /tmp
// produces a LinkAt Fat2 event with both base directories and both
// relative paths.
func TestScenarioLinkAt(t *testing.T) {
	h := New(1000)
	_, err := h.Exec(1000, 999, "/bin/ln")
	require.NoError(t, err)

	event, err := h.LinkAt(1000, "/home/build", "/tmp", "src", "dst")
	require.NoError(t, err)
	require.Equal(t, events.KindLinkAt, event.Header.Kind)
	require.Equal(t, "/home/build", event.Path[0].Row(0))
	require.Equal(t, "/tmp", event.Path[1].Row(0))
	require.Equal(t, "src", event.Path[2].Row(0))
	require.Equal(t, "dst", event.Path[3].Row(0))
}

// Scenario 5: unlink("/does-not-exist") fails with ENOENT; no event is
// committed and the staging slot is freed, not leaked.
func TestScenarioFailedUnlinkCommitsNothing(t *testing.T) {
	h := New(1000)
	_, err := h.Exec(1000, 999, "/bin/rm")
	require.NoError(t, err)

	require.NoError(t, h.FailedUnlink(1000, "/does-not-exist"))

	// The failed syscall must not leave a dangling slot behind: the next
	// syscall from the same task must be able to allocate cleanly.
	event, err := h.Rename(1000, "a", "b")
	require.NoError(t, err)
	require.Equal(t, events.KindRename, event.Header.Kind)
}

// Scenario 6: a thread-creating clone3 (child tgid == parent tgid)
// produces no Clone event and no admission; the child's subsequent
// write is silently ignored.
func TestScenarioThreadCreatingClone3ProducesNoEvent(t *testing.T) {
	h := New(1000)
	_, err := h.Exec(1000, 999, "/bin/sh")
	require.NoError(t, err)

	_, ok := h.Clone3(1000, 1000, true)
	require.False(t, ok)

	_, traced := h.Registry.Lookup(1001)
	require.False(t, traced)

	_, ok, err = h.Access(1001, 7, events.KindOutput, "/tmp/out")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestScenarioProcessFormingClone3IsAdmitted(t *testing.T) {
	h := New(1000)
	_, err := h.Exec(1000, 999, "/bin/make")
	require.NoError(t, err)

	event, ok := h.Clone3(1001, 1000, false)
	require.True(t, ok)
	require.Equal(t, events.KindClone, event.Header.Kind)
	require.EqualValues(t, 1000, event.Payload)

	_, traced := h.Registry.Lookup(1001)
	require.True(t, traced)
}

// chdir followed by a relative-path access resolves against the cwd the
// harness recorded for the task.
func TestScenarioChdirThenRelativeAccess(t *testing.T) {
	h := New(1000)
	_, err := h.Exec(1000, 999, "/bin/make")
	require.NoError(t, err)

	h.Chdir(1000, "/home/build/project")

	event, ok, err := h.AccessRelative(1000, 55, events.KindInput, "Makefile")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "/home/build/project/Makefile", event.Path.Row(0))
}

func TestScenarioExitRetiresFromRegistry(t *testing.T) {
	h := New(1000)
	_, err := h.Exec(1000, 999, "/bin/true")
	require.NoError(t, err)

	event, err := h.Exit(1000, 0)
	require.NoError(t, err)
	require.Equal(t, events.KindExit, event.Header.Kind)

	_, traced := h.Registry.Lookup(1000)
	require.False(t, traced)
}
