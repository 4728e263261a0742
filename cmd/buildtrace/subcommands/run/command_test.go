package run

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/buildtrace/buildtrace/pkg/buildtrace/events"
	"github.com/buildtrace/buildtrace/pkg/buildtrace/metrics"
	"github.com/buildtrace/buildtrace/pkg/buildtrace/registry"
	"github.com/buildtrace/buildtrace/pkg/buildtrace/tracer"
)

func TestHandleEventAdmitsOnExec(t *testing.T) {
	reg := registry.New(999)
	m := metrics.New(prometheus.NewRegistry())
	logger := zap.NewNop()

	handleEvent(logger, reg, m, tracer.DecodedEvent{
		Class: events.ClassSmall,
		Small: events.SmallEvent{
			Header:  events.Header{Kind: events.KindExec, PID: 1000},
			Payload: 999,
		},
	})

	_, traced := reg.Lookup(1000)
	require.True(t, traced)
}

func TestHandleEventRetiresOnExit(t *testing.T) {
	reg := registry.New(999)
	reg.Admit(1000, 999)
	m := metrics.New(prometheus.NewRegistry())
	logger := zap.NewNop()

	handleEvent(logger, reg, m, tracer.DecodedEvent{
		Class: events.ClassSmall,
		Small: events.SmallEvent{
			Header: events.Header{Kind: events.KindExit, PID: 1000},
		},
	})

	_, traced := reg.Lookup(1000)
	require.False(t, traced)
}

func TestHandleEventReadsFatPayload(t *testing.T) {
	reg := registry.New(999)
	m := metrics.New(prometheus.NewRegistry())
	logger := zap.NewNop()

	handleEvent(logger, reg, m, tracer.DecodedEvent{
		Class: events.ClassFat,
		Fat: events.FatEvent{
			Header:  events.Header{Kind: events.KindExecAt, PID: 1001},
			Payload: 999,
		},
	})

	info, traced := reg.Lookup(1001)
	require.True(t, traced)
	require.EqualValues(t, 999, info.Parent)
}
