// Package models defines the database entity types.
package models

// Token is one issued request token and the field summary it encodes.
// Endpoint columns hold the human-readable "addr" or "addr:port" rendering;
// nil means the endpoint was absent from the record.
type Token struct {
	ID        int64
	Token     string
	Method    string
	Precision string
	Timestamp int64
	Client    *string
	LB        *string
	Server    *string
	ID1       *int64
	ID2       *int64
	Source    string // http | api
	CreatedAt int64
}
