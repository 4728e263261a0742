//go:build !linux

package tracer

import "fmt"

// Open is unavailable outside Linux: the kernel program this package
// attaches is Linux-specific eBPF and has no equivalent elsewhere.
func Open(cfg Config, specPath string) (Tracer, error) {
	return nil, fmt.Errorf("buildtrace: eBPF tracing is only supported on linux")
}
