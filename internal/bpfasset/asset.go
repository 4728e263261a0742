// Package bpfasset resolves the compiled BPF object file the tracer
// loads by searching a configurable, ordered list of directories. It is
// backed by afero.Fs so the search can be unit-tested against an
// in-memory filesystem instead of the real one.
package bpfasset

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// ObjectName is the filename Resolve searches for. bpf2go, as invoked in
// bpf/gen.go, writes its object as buildtrace_bpfel.o, not under this name.
const ObjectName = "buildtrace.bpf.o"

// Resolve searches dirs in order for ObjectName and returns the first
// match. It returns an error naming every directory it tried if none
// contain the object, so a misconfigured deployment fails with an
// actionable message rather than a bare "no such file".
func Resolve(fs afero.Fs, dirs []string) (string, error) {
	tried := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		candidate := filepath.Join(dir, ObjectName)
		ok, err := afero.Exists(fs, candidate)
		if err != nil {
			return "", fmt.Errorf("buildtrace: checking %s: %w", candidate, err)
		}
		if ok {
			return candidate, nil
		}
		tried = append(tried, candidate)
	}
	return "", fmt.Errorf("buildtrace: %s not found, tried: %v", ObjectName, tried)
}
