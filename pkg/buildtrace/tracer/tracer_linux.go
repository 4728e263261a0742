//go:build linux

package tracer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/cilium/ebpf/rlimit"
	"golang.org/x/sys/unix"

	"github.com/buildtrace/buildtrace/pkg/buildtrace/events"
)

const (
	eventsMapName       = "events"
	fatalErrorsMapName  = "fatal_errors"
	tracepointGroup     = "syscalls"
	schedExitTracepoint = "sched_process_exit"
	schedGroup          = "sched"
)

// linuxTracer is the real Tracer implementation: it loads the compiled
// BPF object, attaches every enter/exit tracepoint pair from
// tracer.Syscalls plus sched_process_exit and clone3's exit tracepoint,
// and pumps the ring buffer into a Go channel.
type linuxTracer struct {
	coll   *ebpf.Collection
	links  []link.Link
	reader *ringbuf.Reader

	eventsCh chan DecodedEvent
	errorsCh chan events.FatalError

	cfg Config
}

// Open loads specPath (an ELF produced by the bpf2go/clang pipeline
// described in bpf/gen.go), sets root_ppid, and attaches every
// tracepoint. Callers must call Run to start pumping and Close to
// release kernel resources.
func Open(cfg Config, specPath string) (Tracer, error) {
	if unix.Geteuid() != 0 {
		return nil, fmt.Errorf("buildtrace: loading a BPF object requires root (CAP_BPF/CAP_PERFMON), euid is %d", unix.Geteuid())
	}

	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, fmt.Errorf("buildtrace: removing memlock rlimit: %w", err)
	}

	spec, err := ebpf.LoadCollectionSpec(specPath)
	if err != nil {
		return nil, fmt.Errorf("buildtrace: loading collection spec from %s: %w", specPath, err)
	}

	if v, ok := spec.Variables["root_ppid"]; ok {
		if err := v.Set(uint32(cfg.RootPPID)); err != nil {
			return nil, fmt.Errorf("buildtrace: setting root_ppid: %w", err)
		}
	}

	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return nil, fmt.Errorf("buildtrace: instantiating collection: %w", err)
	}

	t := &linuxTracer{
		coll:     coll,
		eventsCh: make(chan DecodedEvent, 4096),
		errorsCh: make(chan events.FatalError, 16),
		cfg:      cfg,
	}

	if err := t.attachAll(); err != nil {
		t.Close()
		return nil, err
	}

	rd, err := ringbuf.NewReader(coll.Maps[eventsMapName])
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("buildtrace: opening ring buffer reader: %w", err)
	}
	t.reader = rd

	return t, nil
}

func (t *linuxTracer) attach(group, name string) error {
	progName := "tracepoint__" + group + "__" + name
	prog, ok := t.coll.Programs[progName]
	if !ok {
		return fmt.Errorf("buildtrace: program %s not found in collection", progName)
	}
	l, err := link.Tracepoint(group, name, prog, nil)
	if err != nil {
		return fmt.Errorf("buildtrace: attaching tracepoint %s/%s: %w", group, name, err)
	}
	t.links = append(t.links, l)
	return nil
}

func (t *linuxTracer) attachAll() error {
	for _, s := range Syscalls {
		if !s.Dynamic && IsAtForm(s.Name) && s.ClassOfStatic() == events.ClassSmall {
			return fmt.Errorf("buildtrace: syscall table inconsistency: %s takes a dirfd but is classed as a small event", s.Name)
		}
		if err := t.attach(tracepointGroup, "sys_enter_"+s.Name); err != nil {
			return err
		}
		if err := t.attach(tracepointGroup, "sys_exit_"+s.Name); err != nil {
			return err
		}
	}
	if err := t.attach(tracepointGroup, "sys_exit_clone3"); err != nil {
		return err
	}
	if err := t.attach(schedGroup, schedExitTracepoint); err != nil {
		return err
	}
	return nil
}

// Events implements Tracer.
func (t *linuxTracer) Events() <-chan DecodedEvent { return t.eventsCh }

// Errors implements Tracer.
func (t *linuxTracer) Errors() <-chan events.FatalError { return t.errorsCh }

// Run implements Tracer. It pumps the ring buffer and polls the one-slot
// fatal-error map until ctx is canceled.
func (t *linuxTracer) Run(ctx context.Context) error {
	defer close(t.eventsCh)
	defer close(t.errorsCh)

	go t.pollFatalErrors(ctx)
	go func() {
		// Unblock reader.Read once ctx is canceled.
		<-ctx.Done()
		t.reader.Close()
	}()

	for {
		record, err := t.reader.Read()
		if err != nil {
			if errors.Is(err, ringbuf.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("buildtrace: reading ring buffer: %w", err)
		}

		decoded, err := decode(record.RawSample)
		if err != nil {
			// A malformed record is a transport/protocol bug, not a
			// traced-program failure; surface it the same way a fatal
			// error would be, rather than silently dropping it.
			select {
			case t.errorsCh <- events.FatalError{Kind: events.ErrorRingBufferFull}:
			case <-ctx.Done():
				return nil
			}
			continue
		}

		select {
		case t.eventsCh <- decoded:
		case <-ctx.Done():
			return nil
		}
	}
}

func decode(raw []byte) (DecodedEvent, error) {
	v, err := events.Decode(raw)
	if err != nil {
		return DecodedEvent{}, err
	}
	switch ev := v.(type) {
	case events.SmallEvent:
		return DecodedEvent{Class: events.ClassSmall, Small: ev}, nil
	case events.FatEvent:
		return DecodedEvent{Class: events.ClassFat, Fat: ev}, nil
	case events.Fat2Event:
		return DecodedEvent{Class: events.ClassFat2, Fat2: ev}, nil
	default:
		return DecodedEvent{}, fmt.Errorf("buildtrace: unexpected decoded type %T", v)
	}
}

func (t *linuxTracer) pollFatalErrors(ctx context.Context) {
	m, ok := t.coll.Maps[fatalErrorsMapName]
	if !ok {
		return
	}
	interval := t.cfg.ErrorPollInterval
	if interval <= 0 {
		interval = DefaultErrorPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastLine int32 = -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var raw [8]byte
			var key uint32
			if err := m.Lookup(&key, &raw); err != nil {
				continue
			}
			kind := events.ErrorKind(int32(binary.LittleEndian.Uint32(raw[0:4])))
			line := int32(binary.LittleEndian.Uint32(raw[4:8]))
			if line == lastLine {
				continue // no new fatal error since the last poll
			}
			lastLine = line
			select {
			case t.errorsCh <- events.FatalError{Kind: kind, SourceLine: line}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close implements Tracer.
func (t *linuxTracer) Close() error {
	var errs []error
	if t.reader != nil {
		if err := t.reader.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, l := range t.links {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if t.coll != nil {
		t.coll.Close()
	}
	if len(errs) > 0 {
		return fmt.Errorf("buildtrace: errors closing tracer: %v", errs)
	}
	return nil
}
