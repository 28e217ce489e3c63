// Package api defines the API request and response types.
package api

// EndpointSpec is one optional network endpoint in an encode request.
type EndpointSpec struct {
	Address string `json:"address"`
	Port    uint16 `json:"port,omitempty"`
}

// EncodeTokenRequest is the request body for encoding a token. Every field
// is optional: method defaults to unset, timestamp to "now" in the chosen
// precision, endpoints and ids to absent.
type EncodeTokenRequest struct {
	Method       string        `json:"method,omitempty"`
	Precision    string        `json:"precision,omitempty"` // s|us
	Timestamp    uint64        `json:"timestamp,omitempty"`
	Client       *EndpointSpec `json:"client,omitempty"`
	LoadBalancer *EndpointSpec `json:"load_balancer,omitempty"`
	Server       *EndpointSpec `json:"server,omitempty"`
	ID1          uint64        `json:"id1,omitempty"`
	ID2          uint64        `json:"id2,omitempty"`
}

// RecordSummary is the human-readable rendering of an encoded record.
type RecordSummary struct {
	Method       string  `json:"method,omitempty"`
	Precision    string  `json:"precision"`
	Timestamp    uint64  `json:"timestamp"`
	Client       *string `json:"client,omitempty"`
	LoadBalancer *string `json:"load_balancer,omitempty"`
	Server       *string `json:"server,omitempty"`
	ID1          *int64  `json:"id1,omitempty"`
	ID2          *int64  `json:"id2,omitempty"`
}

// EncodeTokenResponse is the response body for token encoding.
type EncodeTokenResponse struct {
	Token   string        `json:"token"`
	Version string        `json:"version"`
	Record  RecordSummary `json:"record"`
}

// TokenInfo represents one issued token from the log.
type TokenInfo struct {
	Token        string  `json:"token"`
	Method       string  `json:"method,omitempty"`
	Precision    string  `json:"precision"`
	Timestamp    int64   `json:"timestamp"`
	Client       *string `json:"client,omitempty"`
	LoadBalancer *string `json:"load_balancer,omitempty"`
	Server       *string `json:"server,omitempty"`
	ID1          *int64  `json:"id1,omitempty"`
	ID2          *int64  `json:"id2,omitempty"`
	Source       string  `json:"source"`
	CreatedAt    string  `json:"created_at"`
}

// ListTokensResponse is the response body for listing issued tokens.
type ListTokensResponse struct {
	Tokens []TokenInfo `json:"tokens"`
}

// ErrorResponse is the error body for failed API calls. Field names the
// record field that overflowed or failed to parse, when one did.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
