// Package bin provides a uniform representation of binary executables.
package bin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Addr is a virtual address that may be specified in hexadecimal notation. It
// implements the flag.Value, encoding.TextUnmarshaler and
// encoding.TextMarshaler interfaces.
type Addr uint64

// String returns the hexadecimal string representation of v.
func (v Addr) String() string {
	return fmt.Sprintf("0x%016X", uint64(v))
}

// Set sets v to the numeric value represented by s.
func (v *Addr) Set(s string) error {
	x, err := parseUint64(s)
	if err != nil {
		return errors.WithStack(err)
	}
	*v = Addr(x)
	return nil
}

// UnmarshalText unmarshals the text into v.
func (v *Addr) UnmarshalText(text []byte) error {
	return v.Set(string(text))
}

// MarshalText returns the textual representation of v.
func (v Addr) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Addrs implements the sort.Sort interface, sorting addresses in ascending
// order.
type Addrs []Addr

func (as Addrs) Len() int           { return len(as) }
func (as Addrs) Swap(i, j int)      { as[i], as[j] = as[j], as[i] }
func (as Addrs) Less(i, j int) bool { return as[i] < as[j] }

// Contains reports whether the sorted address list contains addr.
func (as Addrs) Contains(addr Addr) bool {
	lo, hi := 0, len(as)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if as[mid] < addr {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo < len(as) && as[lo] == addr
}

// ### [ Helper functions ] ####################################################

// parseUint64 interprets the given string in base 10 or base 16 (if prefixed
// with `0x` or `0X`) and returns the corresponding value.
func parseUint64(s string) (uint64, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[len("0x"):]
		base = 16
	}
	x, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return x, nil
}
