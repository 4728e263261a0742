package events

import (
	"encoding/binary"
	"fmt"
)

const pathTupleSize = PathRows * PathRowSize

// Wire sizes of the three event classes: sizeof the matching C struct in
// bpf/buildtrace.h, which is what the kernel side reserves on the ring
// buffer and what the userspace side dispatches decoding on. The header's
// u64 gives each struct 8-byte alignment, so Small and Fat records end in
// 4 bytes of padding after their last path tuple.
const (
	SmallSize = (HeaderSize + 4 + pathTupleSize + 7) &^ 7
	FatSize   = (HeaderSize + 4 + 2*pathTupleSize + 7) &^ 7
	Fat2Size  = HeaderSize + 4*pathTupleSize
)

// SmallEvent carries a header, a payload and one path tuple. Payload
// semantics depend on Header.Kind: the parent pid for Exec/Clone, the
// inode number for FIFO accesses, the exit status for Exit, unused
// otherwise.
type SmallEvent struct {
	Header  Header
	Payload int32
	Path    PathTuple
}

// FatEvent carries a header, a payload and two path tuples (rename,
// link/symlink, the *at-family operations).
type FatEvent struct {
	Header  Header
	Payload int32
	Path    [2]PathTuple
}

// Fat2Event carries a header and four path tuples, no payload
// (linkat/renameat's two base directories plus two relative paths).
type Fat2Event struct {
	Header Header
	Path   [4]PathTuple
}

func decodePathTuple(buf []byte) PathTuple {
	var pt PathTuple
	for i := 0; i < PathRows; i++ {
		copy(pt[i][:], buf[i*PathRowSize:(i+1)*PathRowSize])
	}
	return pt
}

// DecodeSmall decodes a ClassSmall record.
func DecodeSmall(buf []byte) (SmallEvent, error) {
	if len(buf) < SmallSize {
		return SmallEvent{}, fmt.Errorf("buildtrace: short small event, got %d bytes want %d", len(buf), SmallSize)
	}
	hdr, err := DecodeHeader(buf)
	if err != nil {
		return SmallEvent{}, err
	}
	payload := int32(binary.LittleEndian.Uint32(buf[HeaderSize : HeaderSize+4]))
	path := decodePathTuple(buf[HeaderSize+4 : HeaderSize+4+pathTupleSize])
	return SmallEvent{Header: hdr, Payload: payload, Path: path}, nil
}

// DecodeFat decodes a ClassFat record.
func DecodeFat(buf []byte) (FatEvent, error) {
	if len(buf) < FatSize {
		return FatEvent{}, fmt.Errorf("buildtrace: short fat event, got %d bytes want %d", len(buf), FatSize)
	}
	hdr, err := DecodeHeader(buf)
	if err != nil {
		return FatEvent{}, err
	}
	payload := int32(binary.LittleEndian.Uint32(buf[HeaderSize : HeaderSize+4]))
	off := HeaderSize + 4
	var paths [2]PathTuple
	for i := range paths {
		paths[i] = decodePathTuple(buf[off : off+pathTupleSize])
		off += pathTupleSize
	}
	return FatEvent{Header: hdr, Payload: payload, Path: paths}, nil
}

// DecodeFat2 decodes a ClassFat2 record.
func DecodeFat2(buf []byte) (Fat2Event, error) {
	if len(buf) < Fat2Size {
		return Fat2Event{}, fmt.Errorf("buildtrace: short fat2 event, got %d bytes want %d", len(buf), Fat2Size)
	}
	hdr, err := DecodeHeader(buf)
	if err != nil {
		return Fat2Event{}, err
	}
	off := HeaderSize
	var paths [4]PathTuple
	for i := range paths {
		paths[i] = decodePathTuple(buf[off : off+pathTupleSize])
		off += pathTupleSize
	}
	return Fat2Event{Header: hdr, Path: paths}, nil
}

// Decode decodes a raw ring-buffer record by its length, dispatching to
// the matching class. The committer never tags records with their class
// on the wire; exact size is the only discriminant, which is why the
// three classes are kept at distinct sizes.
func Decode(buf []byte) (interface{}, error) {
	switch len(buf) {
	case SmallSize:
		return DecodeSmall(buf)
	case FatSize:
		return DecodeFat(buf)
	case Fat2Size:
		return DecodeFat2(buf)
	default:
		return nil, fmt.Errorf("buildtrace: record of %d bytes matches no known event class", len(buf))
	}
}
