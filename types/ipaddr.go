package types

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

var ErrIP = errors.New("error parsing ip value")

// An IPAddr is an IPv4 or IPv6 address or network range.
type IPAddr netip.Prefix

// ParseIPAddr takes a string representation of an IP address such as
// `192.168.0.42` or a range such as `10.0.0.0/8` and converts it to an
// IPAddr.
func ParseIPAddr(s string) (IPAddr, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return IPAddr{}, fmt.Errorf("%w `%s`: %w", ErrIP, s, err)
		}
		return IPAddr(p), nil
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return IPAddr{}, fmt.Errorf("%w `%s`: %w", ErrIP, s, err)
	}
	return IPAddr(netip.PrefixFrom(a, a.BitLen())), nil
}

func (v IPAddr) Equal(o Value) bool {
	o2, ok := o.(IPAddr)
	return ok && netip.Prefix(v) == netip.Prefix(o2)
}

func (v IPAddr) Hash() uint64 { return hashBytes([]byte(v.String())) }

// String produces a string representation of the IPAddr. Single addresses
// render without a prefix length.
func (v IPAddr) String() string {
	p := netip.Prefix(v)
	if p.Bits() == p.Addr().BitLen() {
		return p.Addr().String()
	}
	return p.String()
}

func (v IPAddr) ExtnFn() Path { return "ip" }

func (v IPAddr) ExtnArgs() []Value { return []Value{String(v.String())} }
