package codec

import (
	"fmt"
	"net/netip"
	"strings"
)

// Method is an HTTP method as encoded in the token. Zero is "unset" and is
// never produced by ParseMethod; it still encodes (as a zero method field)
// so that callers without a request context can mint tokens.
type Method uint8

// HTTP methods, numbered as the format encodes them.
const (
	MethodUnset Method = iota
	GET
	POST
	PUT
	DELETE
	HEAD
	CONNECT
	OPTIONS
	TRACE
	PATCH
)

var methodNames = [...]string{
	MethodUnset: "",
	GET:         "GET",
	POST:        "POST",
	PUT:         "PUT",
	DELETE:      "DELETE",
	HEAD:        "HEAD",
	CONNECT:     "CONNECT",
	OPTIONS:     "OPTIONS",
	TRACE:       "TRACE",
	PATCH:       "PATCH",
}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return fmt.Sprintf("Method(%d)", uint8(m))
}

// ParseMethod maps an HTTP verb to its Method value. The verb is matched
// case-insensitively; unknown verbs return false.
func ParseMethod(verb string) (Method, bool) {
	verb = strings.ToUpper(verb)
	for m, name := range methodNames {
		if m != 0 && name == verb {
			return Method(m), true
		}
	}
	return MethodUnset, false
}

// Precision selects the timestamp format.
type Precision uint8

const (
	Seconds      Precision = 0
	Microseconds Precision = 1
)

func (p Precision) String() string {
	if p == Microseconds {
		return "us"
	}
	return "s"
}

// Endpoint describes one network peer of the request. An endpoint with an
// invalid (zero) Addr is absent and contributes a single bit to the token.
// Port 0 means "no port"; the port sub-field is independently optional.
type Endpoint struct {
	Addr netip.Addr
	Port uint16
}

// Enabled reports whether the endpoint is present in the record.
func (e Endpoint) Enabled() bool { return e.Addr.IsValid() }

func (e Endpoint) String() string {
	if !e.Enabled() {
		return "-"
	}
	if e.Port == 0 {
		return e.Addr.String()
	}
	return netip.AddrPortFrom(e.Addr, e.Port).String()
}

// Record is the input to the codec: one immutable description of a web
// request. It is built once, encoded once, and discarded.
//
// ID1 and ID2 are generic identifiers (user id, page id, ...). A zero id
// is indistinguishable from an absent one in the token; zero is not a
// meaningful identifier value in this format.
type Record struct {
	// Timestamp is seconds or microseconds since the Unix epoch,
	// depending on Precision.
	Timestamp uint64
	Precision Precision

	Method Method

	Client       Endpoint
	LoadBalancer Endpoint
	Server       Endpoint

	ID1 uint32
	ID2 uint32
}
