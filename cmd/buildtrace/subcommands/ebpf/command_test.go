//go:build linux

package ebpf

import (
	"bytes"
	"encoding/json"
	"testing"

	cilium "github.com/cilium/ebpf"
	"github.com/cilium/ebpf/rlimit"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/buildtrace/buildtrace/cmd/buildtrace/command"
)

func TestEbpfCommandStructure(t *testing.T) {
	cmd := makeEbpfCommand(&command.GlobalParams{})
	require.NotNil(t, cmd)
	require.Equal(t, "ebpf", cmd.Use)

	mapCmd := findSubcommand(cmd, "map")
	require.NotNil(t, mapCmd)
	require.NotNil(t, findSubcommand(mapCmd, "list"))
	require.NotNil(t, findSubcommand(mapCmd, "dump"))
}

func TestDumpEmptyMap(t *testing.T) {
	require.NoError(t, rlimit.RemoveMemlock())

	spec := &cilium.MapSpec{Type: cilium.Hash, KeySize: 4, ValueSize: 4, MaxEntries: 10}
	m, err := cilium.NewMapWithOptions(spec, cilium.MapOptions{})
	require.NoError(t, err)
	defer m.Close()

	info, err := m.Info()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, dumpMapJSON(m, info, &buf, false))

	var entries []mapEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entries))
	require.Len(t, entries, 0)
}

func TestDumpSingleEntry(t *testing.T) {
	require.NoError(t, rlimit.RemoveMemlock())

	spec := &cilium.MapSpec{Type: cilium.Hash, KeySize: 4, ValueSize: 4, MaxEntries: 10}
	m, err := cilium.NewMapWithOptions(spec, cilium.MapOptions{})
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Put([]byte{0x01, 0x02, 0x03, 0x04}, []byte{0xaa, 0xbb, 0xcc, 0xdd}))

	info, err := m.Info()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, dumpMapJSON(m, info, &buf, false))

	var entries []mapEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entries))
	require.Len(t, entries, 1)

	key, ok := entries[0].Key.([]interface{})
	require.True(t, ok)
	require.Equal(t, []interface{}{"0x01", "0x02", "0x03", "0x04"}, key)
}

func TestFindMapByNameNotFound(t *testing.T) {
	require.NoError(t, rlimit.RemoveMemlock())
	_, _, err := findMapByName("nonexistent_map_name_12345")
	require.Error(t, err)
}

func findSubcommand(parent *cobra.Command, name string) *cobra.Command {
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}
