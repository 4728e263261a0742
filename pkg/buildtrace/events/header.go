package events

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed, 8-byte-aligned size of the header every event
// begins with.
const HeaderSize = 24

// Header is the fixed prefix of every committed event.
type Header struct {
	Kind       Kind
	PID        int32
	UID        uint64
	SourceLine int32
}

// DecodeHeader reads a Header from the first HeaderSize bytes of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("buildtrace: short header, got %d bytes want %d", len(buf), HeaderSize)
	}
	return Header{
		Kind:       Kind(int32(binary.LittleEndian.Uint32(buf[0:4]))),
		PID:        int32(binary.LittleEndian.Uint32(buf[4:8])),
		UID:        binary.LittleEndian.Uint64(buf[8:16]),
		SourceLine: int32(binary.LittleEndian.Uint32(buf[16:20])),
	}, nil
}
