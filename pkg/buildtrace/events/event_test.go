package events

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeHeader(buf []byte, kind Kind, pid int32, uid uint64, line int32) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(kind))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(pid))
	binary.LittleEndian.PutUint64(buf[8:16], uid)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(line))
}

func TestDecodeSmallExecEvent(t *testing.T) {
	buf := make([]byte, SmallSize)
	encodeHeader(buf, KindExec, 1000, 0, 412)
	binary.LittleEndian.PutUint32(buf[HeaderSize:HeaderSize+4], 999) // parent pid payload
	copy(buf[HeaderSize+4:], []byte("/bin/ls\x00"))

	got, err := Decode(buf)
	require.NoError(t, err)
	ev, ok := got.(SmallEvent)
	require.True(t, ok)
	require.Equal(t, KindExec, ev.Header.Kind)
	require.Equal(t, int32(1000), ev.Header.PID)
	require.Equal(t, int32(999), ev.Payload)
	require.Equal(t, "/bin/ls", ev.Path.Row(0))
}

func TestDecodeFatRenameEvent(t *testing.T) {
	buf := make([]byte, FatSize)
	encodeHeader(buf, KindRename, 1000, 3, 900)
	off := HeaderSize + 4
	copy(buf[off:], []byte("a\x00"))
	copy(buf[off+pathTupleSize:], []byte("b\x00"))

	got, err := Decode(buf)
	require.NoError(t, err)
	ev, ok := got.(FatEvent)
	require.True(t, ok)
	require.Equal(t, KindRename, ev.Header.Kind)
	require.Equal(t, "a", ev.Path[0].Row(0))
	require.Equal(t, "b", ev.Path[1].Row(0))
}

func TestDecodeFat2LinkAtEvent(t *testing.T) {
	buf := make([]byte, Fat2Size)
	encodeHeader(buf, KindLinkAt, 1000, 4, 1015)
	off := HeaderSize
	copy(buf[off:], []byte("cwd\x00"))
	off += pathTupleSize
	copy(buf[off:], []byte("tmp\x00"))
	off += pathTupleSize
	copy(buf[off:], []byte("src\x00"))
	off += pathTupleSize
	copy(buf[off:], []byte("dst\x00"))

	got, err := Decode(buf)
	require.NoError(t, err)
	ev, ok := got.(Fat2Event)
	require.True(t, ok)
	require.Equal(t, "cwd", ev.Path[0].Row(0))
	require.Equal(t, "tmp", ev.Path[1].Row(0))
	require.Equal(t, "src", ev.Path[2].Row(0))
	require.Equal(t, "dst", ev.Path[3].Row(0))
}

func TestDecodeExitEventHasEmptyPath(t *testing.T) {
	buf := make([]byte, SmallSize)
	encodeHeader(buf, KindExit, 1000, 0, 1060)
	binary.LittleEndian.PutUint32(buf[HeaderSize:HeaderSize+4], 0)
	// path[0][0] left NUL, per spec: "the first path tuple's first byte is
	// explicitly set to NUL".

	got, err := Decode(buf)
	require.NoError(t, err)
	ev := got.(SmallEvent)
	require.Equal(t, KindExit, ev.Header.Kind)
	require.Equal(t, "", ev.Path.Row(0))
}

func TestDecodeUnknownSize(t *testing.T) {
	_, err := Decode(make([]byte, 7))
	require.Error(t, err)
}

func TestClassOf(t *testing.T) {
	require.Equal(t, ClassSmall, ClassOf(KindInput))
	require.Equal(t, ClassFat, ClassOf(KindRename))
	require.Equal(t, ClassFat2, ClassOf(KindLinkAt))
	require.Equal(t, ClassFat, ClassOf(KindSymlink))
	require.Equal(t, ClassFat2, ClassOf(KindSymlinkAt))
}

func TestDumpRendersFieldNames(t *testing.T) {
	buf := make([]byte, SmallSize)
	encodeHeader(buf, KindExec, 1000, 0, 412)
	binary.LittleEndian.PutUint32(buf[HeaderSize:HeaderSize+4], 999)
	copy(buf[HeaderSize+4:], []byte("/bin/ls\x00"))

	got, err := Decode(buf)
	require.NoError(t, err)

	out := Dump(got)
	require.Contains(t, out, "Header")
	require.Contains(t, out, "Payload")
}
