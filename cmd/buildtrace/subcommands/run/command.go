// Package run implements the "run" subcommand: the live trace loop.
// It resolves the compiled BPF object, attaches the tracer, consumes
// its two output channels, maintains the userspace registry shadow,
// updates Prometheus counters, and logs via zap.
package run

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buildtrace/buildtrace/cmd/buildtrace/command"
	"github.com/buildtrace/buildtrace/internal/bpfasset"
	"github.com/buildtrace/buildtrace/pkg/buildtrace/config"
	"github.com/buildtrace/buildtrace/pkg/buildtrace/events"
	"github.com/buildtrace/buildtrace/pkg/buildtrace/metrics"
	"github.com/buildtrace/buildtrace/pkg/buildtrace/registry"
	"github.com/buildtrace/buildtrace/pkg/buildtrace/tracer"
)

// MakeCommand builds the "run" subcommand.
func MakeCommand(_ *command.GlobalParams) *cobra.Command {
	var rootPPID int32
	var objectPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Attach the tracer and stream events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := config.New(cmd.Flags())
			cfg := config.Load(v)
			if rootPPID != 0 {
				cfg.RootPPID = rootPPID
			}
			if objectPath != "" {
				cfg.BPFObjectDirs = []string{objectPath}
			}
			return runTrace(cmd.Context(), cfg)
		},
	}
	cmd.Flags().Int32Var(&rootPPID, "root-ppid", 0, "task id of the process whose first exec begins tracing")
	cmd.Flags().StringVar(&objectPath, "bpf-object", "", "path to the compiled BPF object (overrides the search path)")
	return cmd
}

func runTrace(ctx context.Context, cfg config.Config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	objectPath, err := bpfasset.Resolve(afero.NewOsFs(), cfg.BPFObjectDirs)
	if err != nil {
		return err
	}
	logger.Info("resolved bpf object", zap.String("path", objectPath))

	t, err := tracer.Open(tracer.Config{
		RootPPID:          cfg.RootPPID,
		ObjectPath:        objectPath,
		ErrorPollInterval: cfg.ErrorPollInterval,
	}, objectPath)
	if err != nil {
		return err
	}
	defer t.Close()

	reg := registry.New(cfg.RootPPID)

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		go func() {
			<-ctx.Done()
			server.Close()
		}()
	}

	errgroupDone := make(chan error, 1)
	go func() { errgroupDone <- t.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return <-errgroupDone
		case err := <-errgroupDone:
			return err
		case ev, ok := <-t.Events():
			if !ok {
				return <-errgroupDone
			}
			handleEvent(logger, reg, m, ev)
		case fatal, ok := <-t.Errors():
			if !ok {
				continue
			}
			m.FatalErrorsTotal.WithLabelValues(fatal.Kind.String()).Inc()
			logger.Error("fatal error reported by kernel tracer",
				zap.String("kind", fatal.Kind.String()), zap.Int32("source_line", fatal.SourceLine))
		}
	}
}

func handleEvent(logger *zap.Logger, reg *registry.Registry, m *metrics.Metrics, ev tracer.DecodedEvent) {
	header := ev.Header()
	m.EventsTotal.WithLabelValues(header.Kind.String()).Inc()

	switch header.Kind {
	case events.KindExec, events.KindExecAt, events.KindClone:
		reg.Admit(header.PID, ev.Payload())
		m.TracedProcesses.Set(float64(reg.Len()))
	case events.KindExit:
		reg.Retire(header.PID)
		m.TracedProcesses.Set(float64(reg.Len()))
	}

	logger.Debug("event",
		zap.String("kind", header.Kind.String()),
		zap.Int32("pid", header.PID),
		zap.Uint64("uid", header.UID),
	)
}
