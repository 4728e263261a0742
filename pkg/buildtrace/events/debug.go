package events

import "github.com/davecgh/go-spew/spew"

// Dump renders v (typically a SmallEvent/FatEvent/Fat2Event) as a
// deeply-expanded string, for use in test failure messages and ad-hoc
// debugging of decoded wire records where %+v's single-line struct
// dump is too dense to read, particularly with PathTuple's 4096-byte
// arrays.
func Dump(v interface{}) string {
	return spew.Sdump(v)
}
