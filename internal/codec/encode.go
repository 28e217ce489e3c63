package codec

import (
	"encoding/binary"
	"math/big"
)

// The accumulator is a single big integer holding the in-progress record.
// Every append shifts the existing contents toward the most-significant
// end, so the first field appended ends up lowest-but-for-later-fields and
// the schema's documented layout is simply the reverse of the append order.

func appendUint(acc *big.Int, bits uint, v uint64) {
	acc.Lsh(acc, bits)
	acc.Add(acc, new(big.Int).SetUint64(v))
}

func appendFlag(acc *big.Int, set bool) {
	acc.Lsh(acc, 1)
	if set {
		acc.SetBit(acc, 0, 1)
	}
}

// appendPort appends the optional port sub-field: one zero bit when absent,
// otherwise the port value followed by a set presence flag. Port range is
// guaranteed by the uint16 type.
func (s Schema) appendPort(acc *big.Int, port uint16) {
	if port == 0 {
		appendFlag(acc, false)
		return
	}
	appendUint(acc, s.PortBits, uint64(port))
	appendFlag(acc, true)
}

// appendAddress appends the address sub-field: one zero bit for a disabled
// endpoint, otherwise address body, protocol tag (0 = IPv4, 1 = IPv6), and
// a set enabled flag. The flag lands least significant within the
// sub-field, which lets a schema-aware reader decode without length
// prefixes: each sub-field's own trailing bit says whether a body follows.
func (s Schema) appendAddress(acc *big.Int, e Endpoint) {
	if !e.Enabled() {
		appendFlag(acc, false)
		return
	}
	addr := e.Addr.Unmap()
	if addr.Is4() {
		b := addr.As4()
		appendUint(acc, s.IPv4Bits, uint64(binary.BigEndian.Uint32(b[:])))
		appendFlag(acc, false)
	} else {
		b := addr.As16()
		acc.Lsh(acc, s.IPv6Bits)
		acc.Add(acc, new(big.Int).SetBytes(b[:]))
		appendFlag(acc, true)
	}
	appendFlag(acc, true)
}

// appendID appends an optional id: a single zero bit when the id is zero,
// otherwise the value followed by a set presence flag.
func appendID(acc *big.Int, bits uint, id uint32) {
	if id == 0 {
		appendFlag(acc, false)
		return
	}
	appendUint(acc, bits, uint64(id))
	appendFlag(acc, true)
}

// Validate checks every record field against the widths this schema
// reserves for it, returning a *FieldOverflowError for the first field
// that does not fit. Ports and addresses cannot overflow; their Go types
// already bound them to the schema widths.
func (s Schema) Validate(r Record) error {
	if r.Method > PATCH {
		return overflow("method", uint64(r.Method), s.MethodBits)
	}
	timeBits := s.TimeSecBits
	if r.Precision == Microseconds {
		timeBits = s.TimeMicroBits
	}
	if r.Timestamp >= 1<<timeBits {
		return overflow("timestamp", r.Timestamp, timeBits)
	}
	if uint64(r.ID1) >= 1<<s.ID1Bits {
		return overflow("id1", uint64(r.ID1), s.ID1Bits)
	}
	if uint64(r.ID2) >= 1<<s.ID2Bits {
		return overflow("id2", uint64(r.ID2), s.ID2Bits)
	}
	return nil
}

// Assemble validates r and packs it into a single accumulator value. The
// append order below is the format contract (see Schema); reordering any
// step changes the format.
func (s Schema) Assemble(r Record) (*big.Int, error) {
	if err := s.Validate(r); err != nil {
		return nil, err
	}

	acc := new(big.Int)

	appendID(acc, s.ID2Bits, r.ID2)
	appendID(acc, s.ID1Bits, r.ID1)

	// Endpoints, high to low: server, load balancer, client. A disabled
	// endpoint has no port sub-field at all.
	for _, e := range []Endpoint{r.Server, r.LoadBalancer, r.Client} {
		if e.Enabled() {
			s.appendPort(acc, e.Port)
		}
		s.appendAddress(acc, e)
	}

	appendUint(acc, s.MethodBits, uint64(r.Method))

	if r.Precision == Microseconds {
		appendUint(acc, s.TimeMicroBits, r.Timestamp)
		appendFlag(acc, true)
	} else {
		appendUint(acc, s.TimeSecBits, r.Timestamp)
		appendFlag(acc, false)
	}

	appendUint(acc, s.VersionMajorBits, uint64(s.Version.Major))
	appendUint(acc, s.VersionMinorBits, uint64(s.Version.Minor))
	appendUint(acc, s.VersionPatchBits, uint64(s.Version.Patch))

	return acc, nil
}

// Encode assembles r and renders the accumulator in base 36 (digits 0-9,
// lowercase a-z, no padding). The all-absent record still yields a
// non-empty token carrying the version and zero method/timestamp fields.
func (s Schema) Encode(r Record) (string, error) {
	acc, err := s.Assemble(r)
	if err != nil {
		return "", err
	}
	return acc.Text(36), nil
}
