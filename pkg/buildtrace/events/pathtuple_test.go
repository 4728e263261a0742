package events

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathTupleJoinRoundTrip(t *testing.T) {
	var pt PathTuple
	components := []string{"ls", "bin", "usr"}
	for i, c := range components {
		pt.SetRow(i, c)
	}
	require.Equal(t, 3, pt.Depth())
	require.Equal(t, "usr/bin/ls", pt.Join())
}

func TestPathTupleEmpty(t *testing.T) {
	var pt PathTuple
	require.Equal(t, 0, pt.Depth())
	require.Equal(t, "", pt.Join())
}

func TestPathTupleComponentTruncation(t *testing.T) {
	var pt PathTuple
	long := strings.Repeat("a", 300)
	pt.SetRow(0, long)
	row := pt.Row(0)
	require.Len(t, row, PathRowSize-1)
	require.Equal(t, strings.Repeat("a", PathRowSize-1), row)
	// byte 255 (the 256th byte) must be the terminating NUL.
	require.Equal(t, byte(0), pt[0][PathRowSize-1])
}

func TestPathTupleDepthCap(t *testing.T) {
	var pt PathTuple
	for i := 0; i < PathRows; i++ {
		pt.SetRow(i, "d")
	}
	require.Equal(t, PathRows, pt.Depth())
	// A 17th component has nowhere to go; the tuple just stops at the cap.
	require.Len(t, pt.Join(), PathRows*2-1) // "d/d/.../d"
}
