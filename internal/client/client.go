// Package client implements the HTTP client for the dtoken API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ghax-org/dtoken/internal/api"
)

// Client talks to a running dtoken API server.
type Client struct {
	BaseURL string
	Secret  string // empty when the server runs without auth

	httpClient *http.Client
}

func NewClient(baseURL, secret string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Secret:     secret,
		httpClient: &http.Client{},
	}
}

func (c *Client) do(method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.Secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			if apiErr.Field != "" {
				return fmt.Errorf("%s %s: %s (field %s)", method, path, apiErr.Error, apiErr.Field)
			}
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// EncodeToken asks the server to encode a token for the given record.
func (c *Client) EncodeToken(req api.EncodeTokenRequest) (*api.EncodeTokenResponse, error) {
	var resp api.EncodeTokenResponse
	if err := c.do("POST", "/v1/tokens", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTokens fetches up to limit issued tokens, newest first.
func (c *Client) ListTokens(limit int) (*api.ListTokensResponse, error) {
	path := "/v1/tokens"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var resp api.ListTokensResponse
	if err := c.do("GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
