package codec

import (
	"errors"
	"math/big"
	"net/netip"
	"testing"
)

func mustAddr(t *testing.T, s string) netip.Addr {
	t.Helper()
	a, err := netip.ParseAddr(s)
	if err != nil {
		t.Fatalf("parse addr %q: %v", s, err)
	}
	return a
}

func TestEncodeEmptyRecord(t *testing.T) {
	// All fields absent: only the version block, the zero method field,
	// and the zero seconds timestamp contribute bits.
	tok, err := Encode(Record{})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if tok != "g" {
		t.Errorf("token = %q, want %q", tok, "g")
	}
}

func TestEncodeKnownVectors(t *testing.T) {
	tests := []struct {
		name   string
		record func(t *testing.T) Record
		want   string
	}{
		{
			name: "client v4 with port",
			record: func(t *testing.T) Record {
				return Record{
					Timestamp: 1700000000,
					Method:    GET,
					Client:    Endpoint{Addr: mustAddr(t, "192.0.2.1"), Port: 8080},
				}
			},
			want: "6qgthl1yw1vqdlftj380",
		},
		{
			name: "client v6 no port",
			record: func(t *testing.T) Record {
				return Record{
					Timestamp: 1700000000,
					Method:    GET,
					Client:    Endpoint{Addr: mustAddr(t, "2001:db8::1")},
				}
			},
			want: "io5r4fg22s4iuqhjbz6s5it3mvtwzfluwb4",
		},
		{
			name: "id1 at max width",
			record: func(t *testing.T) Record {
				return Record{
					Timestamp: 1700000000,
					Method:    POST,
					ID1:       1<<23 - 1,
				}
			},
			want: "5gv2r2xtzpoprimo",
		},
		{
			name: "ids only",
			record: func(t *testing.T) Record {
				return Record{Timestamp: 1, Method: PUT, ID1: 1, ID2: 1}
			},
			want: "gel8cifc36tl8jyo",
		},
		{
			name: "microseconds zero timestamp",
			record: func(t *testing.T) Record {
				return Record{Precision: Microseconds}
			},
			want: "1ekw",
		},
		{
			name: "server only v4 max seconds",
			record: func(t *testing.T) Record {
				return Record{
					Timestamp: 4294967295,
					Method:    DELETE,
					Server:    Endpoint{Addr: mustAddr(t, "10.0.0.1")},
				}
			},
			want: "31d9jdrmpd0y7vp5c",
		},
		{
			name: "fully populated",
			record: func(t *testing.T) Record {
				return Record{
					Timestamp:    1700000000123456,
					Precision:    Microseconds,
					Method:       PATCH,
					Client:       Endpoint{Addr: mustAddr(t, "192.0.2.1"), Port: 8080},
					LoadBalancer: Endpoint{Addr: mustAddr(t, "198.51.100.7"), Port: 443},
					Server:       Endpoint{Addr: mustAddr(t, "2001:db8::1"), Port: 8443},
					ID1:          12345,
					ID2:          678,
				}
			},
			want: "sv6ish5jyeiq7i4vlbitsjpucqb2fb6e99evbg4cguqncpzgfs6rvqt4ujgogrkksnac0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := Encode(tt.record(t))
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if tok != tt.want {
				t.Errorf("token = %q, want %q", tok, tt.want)
			}
		})
	}
}

func TestEncodeDeterministic(t *testing.T) {
	rec := Record{
		Timestamp: 1700000000,
		Method:    GET,
		Client:    Endpoint{Addr: mustAddr(t, "192.0.2.1"), Port: 8080},
		ID1:       42,
	}
	first, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		tok, err := Encode(rec)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		if tok != first {
			t.Fatalf("token differs between calls: %q vs %q", tok, first)
		}
	}
}

func TestZeroIDEqualsAbsent(t *testing.T) {
	// A zero id and an absent id are the same single bit on the wire.
	withZero := Record{Timestamp: 1700000000, Method: GET, ID1: 0}
	unset := Record{Timestamp: 1700000000, Method: GET}

	a, err := Encode(withZero)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	b, err := Encode(unset)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if a != b {
		t.Errorf("zero id token %q != unset id token %q", a, b)
	}
}

func TestFieldOverflow(t *testing.T) {
	v4 := Endpoint{Addr: netip.AddrFrom4([4]byte{192, 0, 2, 1})}

	tests := []struct {
		name      string
		record    Record
		wantField string
	}{
		{
			name:      "id1 one past max",
			record:    Record{Timestamp: 1, Method: GET, ID1: 1 << 23},
			wantField: "id1",
		},
		{
			name:      "id2 one past max",
			record:    Record{Timestamp: 1, Method: GET, ID2: 1 << 15},
			wantField: "id2",
		},
		{
			name:      "method above PATCH",
			record:    Record{Timestamp: 1, Method: Method(10)},
			wantField: "method",
		},
		{
			name:      "seconds timestamp past 32 bits",
			record:    Record{Timestamp: 1 << 32, Method: GET, Client: v4},
			wantField: "timestamp",
		},
		{
			name:      "microsecond timestamp past 52 bits",
			record:    Record{Timestamp: 1 << 52, Precision: Microseconds},
			wantField: "timestamp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.record)
			if err == nil {
				t.Fatal("Encode succeeded, want FieldOverflowError")
			}
			var fe *FieldOverflowError
			if !errors.As(err, &fe) {
				t.Fatalf("error type = %T, want *FieldOverflowError", err)
			}
			if fe.Field != tt.wantField {
				t.Errorf("overflowing field = %q, want %q", fe.Field, tt.wantField)
			}
		})
	}
}

func TestFieldOverflowBoundaryValues(t *testing.T) {
	// The widest values that still fit must encode.
	ok := []Record{
		{Timestamp: 1, Method: GET, ID1: 1<<23 - 1},
		{Timestamp: 1, Method: GET, ID2: 1<<15 - 1},
		{Timestamp: 1<<32 - 1, Method: PATCH},
		{Timestamp: 1<<52 - 1, Precision: Microseconds, Method: PATCH},
	}
	for _, rec := range ok {
		if _, err := Encode(rec); err != nil {
			t.Errorf("Encode(%+v) failed: %v", rec, err)
		}
	}
}

// lowFieldBits returns the number of bits every record contributes below
// the endpoint windows: version block, time type + timestamp, and method.
func lowFieldBits(s Schema, r Record) uint {
	bits := s.VersionMajorBits + s.VersionMinorBits + s.VersionPatchBits + 1
	if r.Precision == Microseconds {
		bits += s.TimeMicroBits
	} else {
		bits += s.TimeSecBits
	}
	return bits + s.MethodBits
}

// endpointBits returns the window width one endpoint occupies.
func endpointBits(s Schema, e Endpoint) uint {
	if !e.Enabled() {
		return 1
	}
	bits := s.IPv4Bits + 2
	if !e.Addr.Unmap().Is4() {
		bits = s.IPv6Bits + 2
	}
	if e.Port != 0 {
		bits += s.PortBits + 1
	} else {
		bits++
	}
	return bits
}

func TestDisablingEndpointIsolatedToItsWindow(t *testing.T) {
	base := Record{
		Timestamp:    1700000000,
		Method:       GET,
		Client:       Endpoint{Addr: mustAddr(t, "192.0.2.1"), Port: 8080},
		LoadBalancer: Endpoint{Addr: mustAddr(t, "198.51.100.7"), Port: 443},
		Server:       Endpoint{Addr: mustAddr(t, "2001:db8::1"), Port: 8443},
		ID1:          12345,
		ID2:          678,
	}

	full, err := V0.Assemble(base)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	// Disable the load balancer: every bit below its window and every bit
	// above it must survive unchanged, only shifted by the window delta.
	modified := base
	modified.LoadBalancer = Endpoint{}
	partial, err := V0.Assemble(modified)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	below := lowFieldBits(V0, base) + endpointBits(V0, base.Client)
	lowMask := new(big.Int).Lsh(big.NewInt(1), below)
	lowMask.Sub(lowMask, big.NewInt(1))

	fullLow := new(big.Int).And(full, lowMask)
	partialLow := new(big.Int).And(partial, lowMask)
	if fullLow.Cmp(partialLow) != 0 {
		t.Errorf("bits below the load balancer window changed: %s vs %s",
			fullLow.Text(2), partialLow.Text(2))
	}

	fullHigh := new(big.Int).Rsh(full, below+endpointBits(V0, base.LoadBalancer))
	partialHigh := new(big.Int).Rsh(partial, below+1)
	if fullHigh.Cmp(partialHigh) != 0 {
		t.Errorf("bits above the load balancer window changed: %s vs %s",
			fullHigh.Text(2), partialHigh.Text(2))
	}

	// The replacement window itself is the single absent bit.
	gotWindow := new(big.Int).Rsh(partial, below)
	gotWindow.And(gotWindow, big.NewInt(1))
	if gotWindow.Sign() != 0 {
		t.Error("absent endpoint window is not a zero bit")
	}
}

func TestAssembleBitLengthMatchesSchemaMax(t *testing.T) {
	// Fully populated record with the id2 high bit set occupies exactly
	// the schema's worst-case bit length.
	rec := Record{
		Timestamp:    1700000000123456,
		Precision:    Microseconds,
		Method:       PATCH,
		Client:       Endpoint{Addr: mustAddr(t, "2001:db8::1"), Port: 1},
		LoadBalancer: Endpoint{Addr: mustAddr(t, "2001:db8::2"), Port: 2},
		Server:       Endpoint{Addr: mustAddr(t, "2001:db8::3"), Port: 3},
		ID1:          1,
		ID2:          1 << 14,
	}
	acc, err := V0.Assemble(rec)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if got, want := acc.BitLen(), int(V0.MaxBits()); got != want {
		t.Errorf("assembled bit length = %d, want %d", got, want)
	}
}

func TestMappedIPv4EncodesAsIPv4(t *testing.T) {
	// A 4-in-6 mapped address (as netip yields for some listeners) must
	// take the 32-bit branch, not the 128-bit one.
	plain := Record{Timestamp: 1, Method: GET,
		Client: Endpoint{Addr: mustAddr(t, "192.0.2.1")}}
	mapped := Record{Timestamp: 1, Method: GET,
		Client: Endpoint{Addr: mustAddr(t, "::ffff:192.0.2.1")}}

	a, err := Encode(plain)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	b, err := Encode(mapped)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if a != b {
		t.Errorf("mapped v4 token %q != plain v4 token %q", b, a)
	}
}
