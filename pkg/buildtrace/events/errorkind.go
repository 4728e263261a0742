package events

// ErrorKind is the closed enumeration of fatal errors the kernel program
// can report. At most one is retained at a time: the one-slot fatal-error
// map always holds the last error written (see pkg/buildtrace/tracer).
type ErrorKind int32

const (
	ErrorRingBufferFull           ErrorKind = 1
	ErrorStagingEventFull         ErrorKind = 2
	ErrorStagingEventNotAllocated ErrorKind = 3
	ErrorReadUserStr              ErrorKind = 4
	ErrorReadDentryStr            ErrorKind = 5
	ErrorStagingConflict          ErrorKind = 6
)

func (e ErrorKind) String() string {
	switch e {
	case ErrorRingBufferFull:
		return "RingBufferFull"
	case ErrorStagingEventFull:
		return "StagingEventFull"
	case ErrorStagingEventNotAllocated:
		return "StagingEventNotAllocated"
	case ErrorReadUserStr:
		return "ReadUserStr"
	case ErrorReadDentryStr:
		return "ReadDentryStr"
	case ErrorStagingConflict:
		return "StagingConflict"
	default:
		return "Unknown"
	}
}

// FatalError is the decoded contents of the one-entry fatal-error map:
// the kind of the most recently written fatal condition and the kernel
// source line that raised it.
type FatalError struct {
	Kind       ErrorKind
	SourceLine int32
}
