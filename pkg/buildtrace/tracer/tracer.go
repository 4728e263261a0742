package tracer

import (
	"context"
	"time"

	"github.com/buildtrace/buildtrace/pkg/buildtrace/events"
)

// DefaultErrorPollInterval is used when Config.ErrorPollInterval is zero.
const DefaultErrorPollInterval = 500 * time.Millisecond

// Config configures a Tracer. RootPPID is the only tunable the kernel
// program itself reads; the rest steer
// the userspace loader.
type Config struct {
	// RootPPID is the task id of the process whose first exec begins
	// tracing (the single admission exception).
	RootPPID int32
	// ObjectPath is the path to the compiled BPF object (see
	// internal/bpfasset). Open loads the object from its specPath
	// argument and does not read this field.
	ObjectPath string
	// ErrorPollInterval is how often the fatal-error map is polled.
	// Zero means DefaultErrorPollInterval.
	ErrorPollInterval time.Duration
}

// DecodedEvent pairs a raw event (one of events.SmallEvent, events.FatEvent,
// events.Fat2Event) with its wire class for dispatch by consumers.
type DecodedEvent struct {
	Class events.Class
	Small events.SmallEvent
	Fat   events.FatEvent
	Fat2  events.Fat2Event
}

// Header returns the common header of whichever class this event is.
func (d DecodedEvent) Header() events.Header {
	switch d.Class {
	case events.ClassFat:
		return d.Fat.Header
	case events.ClassFat2:
		return d.Fat2.Header
	default:
		return d.Small.Header
	}
}

// Payload returns the event's payload field, or 0 for ClassFat2 events,
// which carry none.
func (d DecodedEvent) Payload() int32 {
	switch d.Class {
	case events.ClassFat:
		return d.Fat.Payload
	case events.ClassFat2:
		return 0
	default:
		return d.Small.Payload
	}
}

// Tracer attaches to the kernel program's tracepoints and surfaces its
// two output streams: decoded events and fatal errors. Implementations
// are platform-specific (tracer_linux.go); non-Linux builds only get the
// types above.
type Tracer interface {
	// Events returns the channel of decoded, committed events.
	Events() <-chan DecodedEvent
	// Errors returns the channel of fatal errors observed on the
	// one-slot error map. A fatal error never stops the trace; it is the
	// caller's choice whether to abort.
	Errors() <-chan events.FatalError
	// Run blocks, pumping Events/Errors, until ctx is canceled or an
	// unrecoverable transport error occurs.
	Run(ctx context.Context) error
	// Close releases kernel resources (links, maps, the ring buffer
	// reader).
	Close() error
}
