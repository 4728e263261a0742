// Package ps renders a snapshot of the kernel's live tracing_pinfo map
// as a table. Since a CLI invocation of "buildtrace ps" runs in its own
// process, separate from the "buildtrace run" process attaching the
// tracer, the only shared state available to read from is the BPF map
// itself, scanned by name and rendered as a table of pid/parent/uid
// rows.
package ps

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strconv"

	cilium "github.com/cilium/ebpf"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/buildtrace/buildtrace/cmd/buildtrace/command"
)

const tracingPinfoMapName = "tracing_pinfo"

// row is the subset of the kernel's bt_process_info this subcommand
// cares about: the key (pid) plus the parent and uid fields at the
// front of the struct, before its fingerprint ring.
type row struct {
	pid    int32
	parent int32
	uid    uint64
}

// MakeCommand builds the "ps" subcommand.
func MakeCommand(_ *command.GlobalParams) *cobra.Command {
	return &cobra.Command{
		Use:   "ps",
		Short: "List processes currently tracked by a running trace",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readTracingPinfo()
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), rows)
		},
	}
}

// findMapByName scans every BPF map id visible to this process for one
// whose Info().Name matches name.
func findMapByName(name string) (*cilium.Map, error) {
	var id cilium.MapID
	for {
		next, err := cilium.MapGetNextID(id)
		if err != nil {
			return nil, fmt.Errorf("ps: map %q not found (is a trace running?)", name)
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
			return m, nil
		}
		m.Close()
	}
}

func readTracingPinfo() ([]row, error) {
	m, err := findMapByName(tracingPinfoMapName)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	var rows []row
	var pid int32
	var value []byte
	iter := m.Iterate()
	for iter.Next(&pid, &value) {
		if len(value) < 16 {
			continue
		}
		rows = append(rows, row{
			pid:    pid,
			parent: int32(binary.LittleEndian.Uint32(value[0:4])),
			uid:    binary.LittleEndian.Uint64(value[8:16]),
		})
	}
	return rows, iter.Err()
}

func render(out io.Writer, rows []row) error {
	sort.Slice(rows, func(i, j int) bool { return rows[i].pid < rows[j].pid })

	lines := make([][]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, []string{
			strconv.Itoa(int(r.pid)),
			strconv.Itoa(int(r.parent)),
			strconv.FormatUint(r.uid, 10),
		})
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"PID", "PARENT", "UID"})
	table.AppendBulk(lines)
	table.Render()
	return nil
}
