// Package config loads buildtrace's configuration via viper, from
// defaults and BUILDTRACE_-prefixed environment variables, and binds the
// flags of a given flag set under their own names. It does not read a
// config file.
package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable binding, e.g.
// BUILDTRACE_ROOT_PPID.
const EnvPrefix = "BUILDTRACE"

// Config is the fully-resolved set of tunables the run subcommand needs.
type Config struct {
	// RootPPID is the only parameter the kernel program itself consumes.
	RootPPID int32
	// BPFObjectDirs is the ordered search path for the compiled BPF
	// object (see internal/bpfasset.Resolve).
	BPFObjectDirs []string
	// LogLevel is a zapcore level name ("debug", "info", "warn", "error").
	LogLevel string
	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint; empty disables it.
	MetricsAddr string
	// ErrorPollInterval is how often the run loop polls the kernel's
	// one-slot fatal-error map.
	ErrorPollInterval time.Duration
}

// Defaults returns the out-of-the-box configuration.
func Defaults() Config {
	return Config{
		RootPPID:          0,
		BPFObjectDirs:     []string{"/etc/buildtrace", "/opt/buildtrace", "."},
		LogLevel:          "info",
		MetricsAddr:       "127.0.0.1:9464",
		ErrorPollInterval: 500 * time.Millisecond,
	}
}

// New builds a viper instance pre-bound to defaults, environment
// variables and, if flags is non-nil, every flag in flags, each bound
// under its own flag name.
func New(flags *pflag.FlagSet) *viper.Viper {
	v := viper.New()
	d := Defaults()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("root_ppid", d.RootPPID)
	v.SetDefault("bpf_object_dirs", d.BPFObjectDirs)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("error_poll_interval", d.ErrorPollInterval)

	if flags != nil {
		_ = v.BindPFlags(flags)
	}
	return v
}

// Load reads every bound key off v into a Config.
func Load(v *viper.Viper) Config {
	return Config{
		RootPPID:          int32(v.GetInt("root_ppid")),
		BPFObjectDirs:     v.GetStringSlice("bpf_object_dirs"),
		LogLevel:          v.GetString("log_level"),
		MetricsAddr:       v.GetString("metrics_addr"),
		ErrorPollInterval: v.GetDuration("error_poll_interval"),
	}
}
