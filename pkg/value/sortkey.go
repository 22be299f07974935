package value

import (
	"fmt"
	"strconv"
)

// intSortKeyWidth is wide enough to zero-pad any uint64 (20 digits), the
// range encodeSignedIntKey maps every int64 into, so lexicographic order
// holds across the whole signed range.
const intSortKeyWidth = 20

// SortKey returns the lexicographically-sortable encoding of v used as the
// secondary key component of the members index (spec §4.3). Numbers are
// zero-padded to a fixed width so that byte-order equals numeric order;
// booleans collapse to "0"/"1"; everything else sorts by its raw string.
func (v Value) SortKey() string {
	switch v.Datatype {
	case Integer, Timestamp:
		n, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			return v.Raw
		}
		return encodeSignedIntKey(n)
	case Float:
		f, err := v.FloatVal()
		if err != nil {
			return v.Raw
		}
		return encodeSignedIntKey(int64(f * 1e6))
	case Boolean:
		if v.Bool() {
			return "1"
		}
		return "0"
	default:
		return v.Raw
	}
}

// encodeSignedIntKey flips the sign bit so the unsigned bit pattern sorts
// in the same order as the signed value, then renders it zero-padded.
func encodeSignedIntKey(n int64) string {
	shifted := uint64(n) ^ (uint64(1) << 63)
	return fmt.Sprintf("%0*d", intSortKeyWidth, shifted)
}
