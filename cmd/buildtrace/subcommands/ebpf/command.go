// Package ebpf exposes low-level introspection of the attached BPF
// maps (list, dump by id or name) for debugging a live trace.
package ebpf

import (
	"encoding/json"
	"fmt"
	"io"

	cilium "github.com/cilium/ebpf"
	"github.com/spf13/cobra"

	"github.com/buildtrace/buildtrace/cmd/buildtrace/command"
)

// MakeCommand builds the "ebpf" subcommand tree: ebpf map list, ebpf
// map dump --id/--name.
func MakeCommand(globalParams *command.GlobalParams) *cobra.Command {
	return makeEbpfCommand(globalParams)
}

func makeEbpfCommand(_ *command.GlobalParams) *cobra.Command {
	ebpfCmd := &cobra.Command{
		Use:   "ebpf",
		Short: "Inspect BPF maps loaded by buildtrace",
	}

	mapCmd := &cobra.Command{
		Use:   "map",
		Short: "Inspect a loaded BPF map",
	}

	var pretty bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all BPF maps visible to this process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMapList(cmd.OutOrStdout())
		},
	}

	var byName string
	var byID uint32
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump the contents of one BPF map as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch {
			case byName != "":
				return runMapDumpByName(byName, out, pretty)
			case byID != 0:
				return runMapDumpByID(cilium.MapID(byID), out, pretty)
			default:
				return fmt.Errorf("ebpf map dump: one of --name or --id is required")
			}
		},
	}
	dumpCmd.Flags().StringVar(&byName, "name", "", "map name")
	dumpCmd.Flags().Uint32Var(&byID, "id", 0, "map id")
	dumpCmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print JSON output")

	mapCmd.AddCommand(listCmd, dumpCmd)
	ebpfCmd.AddCommand(mapCmd)
	return ebpfCmd
}

func runMapList(out io.Writer) error {
	var id cilium.MapID
	for {
		next, err := cilium.MapGetNextID(id)
		if err != nil {
			break
		}
		id = next
		m, err := cilium.NewMapFromID(id)
		if err != nil {
			continue
		}
		info, err := m.Info()
		if err == nil {
			fmt.Fprintf(out, "%d\t%s\t%s\n", id, info.Name, info.Type)
		}
		m.Close()
	}
	return nil
}

// findMapByName scans every BPF map id visible to this process for one
// whose Info().Name matches name, since the kernel has no name index.
func findMapByName(name string) (*cilium.Map, *cilium.MapInfo, error) {
	var id cilium.MapID
	for {
		next, err := cilium.MapGetNextID(id)
		if err != nil {
			return nil, nil, fmt.Errorf("ebpf: map %q not found", name)
		}
		id = next
		m, err := cilium.NewMapFromID(id)
		if err != nil {
			continue
		}
		info, err := m.Info()
		if err != nil {
			m.Close()
			continue
		}
		if info.Name == name {
			return m, info, nil
		}
		m.Close()
	}
}

func runMapDumpByName(name string, out io.Writer, pretty bool) error {
	m, info, err := findMapByName(name)
	if err != nil {
		return err
	}
	defer m.Close()
	return dumpMapJSON(m, info, out, pretty)
}

func runMapDumpByID(id cilium.MapID, out io.Writer, pretty bool) error {
	m, err := cilium.NewMapFromID(id)
	if err != nil {
		return fmt.Errorf("ebpf: map id %d not found: %w", id, err)
	}
	defer m.Close()
	info, err := m.Info()
	if err != nil {
		return err
	}
	return dumpMapJSON(m, info, out, pretty)
}

type mapEntry struct {
	Key   interface{} `json:"key"`
	Value interface{} `json:"value"`
}

type perCPUValue struct {
	CPU   int         `json:"cpu"`
	Value interface{} `json:"value"`
}

type perCPUMapEntry struct {
	Key    interface{}   `json:"key"`
	Values []perCPUValue `json:"values"`
}

func isPerCPU(t cilium.MapType) bool {
	switch t {
	case cilium.PerCPUHash, cilium.PerCPUArray, cilium.LRUCPUHash, cilium.PerCPUCGroupStorage:
		return true
	default:
		return false
	}
}

func hexBytes(b []byte) []string {
	out := make([]string, len(b))
	for i, c := range b {
		out[i] = fmt.Sprintf("0x%02x", c)
	}
	return out
}

// dumpMapJSON iterates m's entries and writes them as a JSON array,
// either the compact tab-indented default form or a two-space pretty
// form when --pretty is set.
func dumpMapJSON(m *cilium.Map, info *cilium.MapInfo, out io.Writer, pretty bool) error {
	indent := "\t"
	prefix := ""
	if pretty {
		indent = "  "
	}

	if isPerCPU(info.Type) {
		entries := make([]perCPUMapEntry, 0)
		key := make([]byte, info.KeySize)
		iter := m.Iterate()
		for iter.Next(&key, new(interface{})) {
			var values [][]byte
			if err := m.Lookup(key, &values); err != nil {
				continue
			}
			perCPU := make([]perCPUValue, len(values))
			for i, v := range values {
				perCPU[i] = perCPUValue{CPU: i, Value: hexBytes(v)}
			}
			k := make([]byte, len(key))
			copy(k, key)
			entries = append(entries, perCPUMapEntry{Key: hexBytes(k), Values: perCPU})
		}
		if err := iter.Err(); err != nil {
			return err
		}
		return encodeJSON(out, entries, prefix, indent)
	}

	entries := make([]mapEntry, 0)
	key := make([]byte, info.KeySize)
	value := make([]byte, info.ValueSize)
	iter := m.Iterate()
	for iter.Next(&key, &value) {
		k := make([]byte, len(key))
		v := make([]byte, len(value))
		copy(k, key)
		copy(v, value)
		entries = append(entries, mapEntry{Key: hexBytes(k), Value: hexBytes(v)})
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return encodeJSON(out, entries, prefix, indent)
}

func encodeJSON(out io.Writer, v interface{}, prefix, indent string) error {
	b, err := json.MarshalIndent(v, prefix, indent)
	if err != nil {
		return err
	}
	_, err = out.Write(b)
	return err
}
