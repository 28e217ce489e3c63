// Package codec implements the dtoken request-token codec: a bit-packed,
// base-36 encoded record of a single web request (timestamp, HTTP method,
// up to three network endpoints, two generic ids, format version).
//
// The token is an identifier for logging and debugging, not a credential;
// the layout carries no signature. The bit layout is fixed by the Schema
// and is fully invertible by a reader that knows the schema version,
// though this package only encodes.
package codec

// Encode builds the token for r using the current format schema (V0).
func Encode(r Record) (string, error) {
	return V0.Encode(r)
}
