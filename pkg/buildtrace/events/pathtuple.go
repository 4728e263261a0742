package events

import (
	"bytes"
	"strings"
)

// PathRows is the row cap of a path tuple: the deepest directory chain the
// encoder will resolve before giving up without error.
const PathRows = 16

// PathRowSize is the column cap of one row, including the terminating NUL.
const PathRowSize = 256

// PathTuple is the fixed two-dimensional buffer a path resolves into. Row
// 0 is the leaf component, row i+1 is the parent of row i. Unused rows are
// all-NUL. This mirrors `bt_path_t` (bpf/buildtrace.h) byte-for-byte.
type PathTuple [PathRows][PathRowSize]byte

// Row returns row i as a Go string, stopping at the first NUL. An empty
// string means the row is unused.
func (p *PathTuple) Row(i int) string {
	row := p[i][:]
	if n := bytes.IndexByte(row, 0); n >= 0 {
		row = row[:n]
	}
	return string(row)
}

// Depth returns the number of populated rows, i.e. how many components the
// encoder actually resolved before hitting the root or the row cap.
func (p *PathTuple) Depth() int {
	for i := 0; i < PathRows; i++ {
		if p[i][0] == 0 {
			return i
		}
	}
	return PathRows
}

// Join reconstructs the canonical path by reversing row order (root to
// leaf) and joining with "/". An empty tuple joins to "".
func (p *PathTuple) Join() string {
	depth := p.Depth()
	if depth == 0 {
		return ""
	}
	parts := make([]string, depth)
	for i := 0; i < depth; i++ {
		parts[depth-1-i] = p.Row(i)
	}
	return strings.Join(parts, "/")
}

// SetRow writes component into row i, truncating to PathRowSize-1 bytes
// and NUL-terminating. This is the userspace-side equivalent of the
// kernel's bpf_probe_read_str / bpf_core_read_user_str truncation
// behavior: a component of length >= 256 bytes is cut at byte 255 with a
// terminating NUL, never overrunning the row.
func (p *PathTuple) SetRow(i int, component string) {
	row := p[i][:]
	for j := range row {
		row[j] = 0
	}
	n := copy(row[:PathRowSize-1], component)
	row[n] = 0
}

// Clear zeroes every row.
func (p *PathTuple) Clear() {
	*p = PathTuple{}
}
