package codec

import "fmt"

// Version is the format version triple burned into every token.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Schema is a versioned descriptor of the token bit layout: the format
// version plus the width, in bits, of every value field. Optional fields
// additionally carry a one-bit presence flag that is not part of these
// widths. Widths are data rather than constants so that multiple schema
// generations can coexist.
//
// Layout, from least-significant bit upward (each optional field is either
// its flag bit alone, or value then flag):
//
//	version patch | version minor | version major
//	time type (1) | timestamp (sec or micro width)
//	method
//	client address | client port
//	load balancer address | load balancer port
//	server address | server port
//	id1 | id2
//
// Within each endpoint the enabled flag is the lowest bit, then the
// protocol tag, then the address body; the port sub-field sits above the
// address sub-field. A disabled endpoint is a single zero bit and its port
// sub-field is omitted entirely.
type Schema struct {
	Version Version

	VersionMajorBits uint
	VersionMinorBits uint
	VersionPatchBits uint

	// TimeSecBits holds whole seconds; TimeMicroBits holds microseconds
	// since the epoch. One extra bit tags which was used.
	TimeSecBits   uint
	TimeMicroBits uint

	MethodBits uint

	ID1Bits uint
	ID2Bits uint

	PortBits uint
	IPv4Bits uint
	IPv6Bits uint
}

// V0 is the current format generation, matching schema version 0.1.0.
var V0 = Schema{
	Version: Version{Major: 0, Minor: 1, Patch: 0},

	VersionMajorBits: 4,
	VersionMinorBits: 8,
	VersionPatchBits: 4,

	TimeSecBits:   32,
	TimeMicroBits: 52,

	MethodBits: 4,

	ID1Bits: 23,
	ID2Bits: 15,

	PortBits: 16,
	IPv4Bits: 32,
	IPv6Bits: 128,
}

// MaxBits returns the bit length of a fully populated record: every
// endpoint enabled with an IPv6 address and a port, both ids present, and
// a microsecond timestamp. Useful for sizing buffers ahead of encoding.
func (s Schema) MaxBits() uint {
	endpoint := s.IPv6Bits + 2 + s.PortBits + 1
	return s.VersionMajorBits + s.VersionMinorBits + s.VersionPatchBits +
		1 + s.TimeMicroBits +
		s.MethodBits +
		3*endpoint +
		s.ID1Bits + 1 + s.ID2Bits + 1
}
