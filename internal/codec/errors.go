package codec

import "fmt"

// FieldOverflowError reports a record field whose value does not fit the
// bit width the schema reserves for it. Encoding fails before any bits are
// accumulated; a token is never built from a partially valid record.
type FieldOverflowError struct {
	Field string
	Value uint64
	Bits  uint
}

func (e *FieldOverflowError) Error() string {
	return fmt.Sprintf("codec: field %s: value %d exceeds %d-bit range", e.Field, e.Value, e.Bits)
}

func overflow(field string, value uint64, bits uint) error {
	return &FieldOverflowError{Field: field, Value: value, Bits: bits}
}
