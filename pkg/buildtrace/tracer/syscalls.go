// Package tracer holds the platform-independent pieces of the tracepoint
// dispatch table plus the Linux-only attach/consume loop in
// tracer_linux.go.
package tracer

import "github.com/buildtrace/buildtrace/pkg/buildtrace/events"

// Syscall describes one observed syscall's enter/exit tracepoint pair and
// how its enter handler decides an event's kind and size-class. Most
// syscalls commit a single, statically known Kind and Class; a handful
// compute the kind (or even the class) from their own arguments, flagged
// by Dynamic below — see the comment on each for the exact rule, copied
// from the kernel program's own enter/exit handlers.
//
// For the single-dirfd *-at entries (statx, faccessat, faccessat2,
// readlinkat, newfstatat, utimensat, mkdirat, unlinkat), Kind and its Fat
// class describe the explicit-dirfd case only: with dfd == AT_FDCWD, or
// with an empty path, the kernel program commits a Small Input event
// instead, whatever Kind says here.
type Syscall struct {
	Name string
	Kind events.Kind
	// Dynamic is true when Kind does not determine the committed event on
	// its own; DynamicNote explains the rule. The zero Kind is never
	// meaningful for a Dynamic entry.
	Dynamic     bool
	DynamicNote string
	// Admits is true for the two syscalls (execve, execveat) whose enter
	// handler performs process admission instead of a registry lookup.
	// clone3 also admits, from its exit handler, and is attached
	// separately, outside this table.
	Admits bool
}

// Syscalls is the full table of ~40 observed syscalls, one entry per
// enter/exit tracepoint pair the kernel program defines.
var Syscalls = []Syscall{
	{Name: "read", Kind: events.KindInput},
	{Name: "readv", Kind: events.KindInput},
	{Name: "pread64", Kind: events.KindInput},
	{Name: "preadv", Kind: events.KindInput},

	{Name: "write", Kind: events.KindOutput},
	{Name: "writev", Kind: events.KindOutput},
	{Name: "pwrite64", Kind: events.KindOutput},
	{Name: "pwritev", Kind: events.KindOutput},

	{Name: "newstat", Kind: events.KindInput},
	{Name: "access", Kind: events.KindInput, DynamicNote: "skips /proc/self/exe"},
	{Name: "readlink", Kind: events.KindInput, DynamicNote: "skips /proc/self/exe"},

	{Name: "newfstat", Kind: events.KindInput},
	{Name: "getdents", Kind: events.KindInput},
	{Name: "getdents64", Kind: events.KindInput},
	{Name: "getxattr", Kind: events.KindInput, DynamicNote: "treats its first arg as an fd; the Linux ABI takes a path here, preserved as a known discrepancy"},
	{Name: "lgetxattr", Kind: events.KindInput, DynamicNote: "same fd-vs-path discrepancy as getxattr"},
	{Name: "llistxattr", Kind: events.KindInput, DynamicNote: "same fd-vs-path discrepancy as getxattr"},

	{Name: "mmap", Dynamic: true, DynamicNote: "Output iff fd>=0 and (flags&MAP_SHARED)!=0 and (prot&PROT_WRITE)!=0; Input otherwise; no event at all if fd==-1"},

	{Name: "ftruncate", Kind: events.KindOutput},
	{Name: "fallocate", Kind: events.KindOutput},
	{Name: "fsetxattr", Kind: events.KindOutput, DynamicNote: "treats its first arg as an fd; this matches the Linux ABI for fsetxattr (unlike getxattr/lgetxattr/llistxattr, which take a path)"},
	{Name: "utime", Kind: events.KindOutput},

	{Name: "unlink", Kind: events.KindRemove},
	{Name: "rmdir", Kind: events.KindRemove},

	{Name: "mkdir", Kind: events.KindOutput},

	{Name: "rename", Kind: events.KindRename},

	{Name: "link", Kind: events.KindLink},
	{Name: "symlink", Kind: events.KindLink, DynamicNote: "stages this as Link, not Symlink, despite the dedicated KindSymlink value; preserved as-is"},

	{Name: "statx", Kind: events.KindInputAt},
	{Name: "faccessat", Kind: events.KindInputAt},
	{Name: "faccessat2", Kind: events.KindInputAt},
	{Name: "readlinkat", Kind: events.KindInputAt},
	{Name: "newfstatat", Kind: events.KindInputAt},

	{Name: "utimensat", Kind: events.KindOutputAt},
	{Name: "mkdirat", Kind: events.KindOutputAt},

	{Name: "unlinkat", Kind: events.KindRemoveAt},

	{Name: "linkat", Kind: events.KindLinkAt},
	{Name: "renameat", Kind: events.KindRenameAt},

	{Name: "symlinkat", Dynamic: true, DynamicNote: "collapses to Symlink(Fat) when dfd==AT_FDCWD, else SymlinkAt(Fat2)"},

	{Name: "execve", Kind: events.KindExec, Admits: true},
	{Name: "execveat", Dynamic: true, Admits: true, DynamicNote: "Exec(Small) when dfd==AT_FDCWD, else ExecAt(Fat)"},

	{Name: "chdir", Kind: events.KindChdir},
	{Name: "fchdir", Kind: events.KindChdir, DynamicNote: "resolves via fd"},
}

// ClassOfStatic returns the wire class for a non-Dynamic syscall's single
// known kind. Callers of Dynamic syscalls compute their class themselves.
func (s Syscall) ClassOfStatic() events.Class {
	return events.ClassOf(s.Kind)
}

// atForm lists the *-at family syscalls that take a base-directory fd
// rather than being fully bound to CWD; attachAll (tracer_linux.go) uses
// it to check that none of them is classed as a small event.
var atForm = map[string]bool{
	"statx": true, "faccessat": true, "faccessat2": true, "readlinkat": true,
	"newfstatat": true, "utimensat": true, "mkdirat": true, "unlinkat": true,
	"linkat": true, "renameat": true, "symlinkat": true, "execveat": true,
}

// IsAtForm reports whether name takes a dirfd argument.
func IsAtForm(name string) bool { return atForm[name] }
