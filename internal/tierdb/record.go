// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

package tierdb

import (
	"encoding/binary"
	"fmt"

	"github.com/GamesCrafters/GamesmanExperiment/internal/value"
)

// record is the on-disk encoding of a single position's (value,
// remoteness) pair: one tag byte followed by a uvarint remoteness, omitted
// entirely for values that carry no remoteness.
//
// Tag byte is value.Value's own int8 representation, so decode/encode stay
// a single switch away from the in-memory enum instead of a second
// parallel encoding table.
func encodeRecord(buf []byte, v value.Value, r value.Remoteness) []byte {
	buf = append(buf, byte(v))
	if v.HasRemoteness() {
		buf = binary.AppendUvarint(buf, uint64(r))
	}
	return buf
}

func decodeRecord(buf []byte) (value.Value, value.Remoteness, error) {
	if len(buf) == 0 {
		return value.Undecided, value.NoRemoteness, nil
	}
	v := value.Value(int8(buf[0]))
	if !value.Valid(v) {
		return 0, 0, fmt.Errorf("tierdb: corrupt record: invalid value tag %d", buf[0])
	}
	if !v.HasRemoteness() {
		return v, value.NoRemoteness, nil
	}
	r, n := binary.Uvarint(buf[1:])
	if n <= 0 {
		return 0, 0, fmt.Errorf("tierdb: corrupt record: truncated remoteness")
	}
	return v, value.Remoteness(r), nil
}
