// Package events defines the wire format shared between the kernel-side
// tracer and userspace: event headers, the three event size-classes, the
// path tuple encoding, and the closed kind/error enumerations.
package events

// Kind is the closed enumeration of event kinds the tracer emits. Values
// match the kernel program's `enum bt_event_kind` (bpf/buildtrace.h)
// byte-for-byte so the wire format never needs translation.
type Kind int32

const (
	KindExec      Kind = 1
	KindExit      Kind = 2
	KindInput     Kind = 4
	KindOutput    Kind = 5
	KindRemove    Kind = 6
	KindRename    Kind = 7
	KindChdir     Kind = 8
	KindClone     Kind = 9
	KindInputAt   Kind = 10
	KindOutputAt  Kind = 11
	KindLink      Kind = 12
	KindSymlink   Kind = 13
	KindRemoveAt  Kind = 14
	KindLinkAt    Kind = 15
	KindRenameAt  Kind = 16
	KindSymlinkAt Kind = 17
	KindExecAt    Kind = 18
)

func (k Kind) String() string {
	switch k {
	case KindExec:
		return "Exec"
	case KindExit:
		return "Exit"
	case KindInput:
		return "Input"
	case KindOutput:
		return "Output"
	case KindRemove:
		return "Remove"
	case KindRename:
		return "Rename"
	case KindChdir:
		return "Chdir"
	case KindClone:
		return "Clone"
	case KindInputAt:
		return "InputAt"
	case KindOutputAt:
		return "OutputAt"
	case KindLink:
		return "Link"
	case KindSymlink:
		return "Symlink"
	case KindRemoveAt:
		return "RemoveAt"
	case KindLinkAt:
		return "LinkAt"
	case KindRenameAt:
		return "RenameAt"
	case KindSymlinkAt:
		return "SymlinkAt"
	case KindExecAt:
		return "ExecAt"
	default:
		return "Unknown"
	}
}

// Class is the wire size-class of an event, determining how many path
// tuples and whether a payload field follow the header.
type Class int

const (
	// ClassSmall carries one path tuple and a payload.
	ClassSmall Class = iota
	// ClassFat carries two path tuples and a payload.
	ClassFat
	// ClassFat2 carries four path tuples and no payload.
	ClassFat2
)

// ClassOf returns the wire size-class a given event kind commits at,
// mirroring the tracepoint dispatch table.
func ClassOf(k Kind) Class {
	switch k {
	case KindRename, KindLink, KindSymlink, KindInputAt, KindOutputAt, KindRemoveAt, KindExecAt:
		return ClassFat
	case KindLinkAt, KindRenameAt, KindSymlinkAt:
		return ClassFat2
	default:
		return ClassSmall
	}
}
