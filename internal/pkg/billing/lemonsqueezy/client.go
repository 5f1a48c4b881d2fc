package lemonsqueezy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.lemonsqueezy.com/v1"
	mediaType      = "application/vnd.api+json"
)

// Client is a minimal JSON:API client for the Lemon Squeezy REST API.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// APIError is a non-2xx answer of the API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lemon squeezy request failed: status=%d body=%s", e.Status, e.Body)
}

// resource is one JSON:API resource object.
type resource struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id,omitempty"`
	Attributes    json.RawMessage         `json:"attributes,omitempty"`
	Relationships map[string]relationship `json:"relationships,omitempty"`
}

type relationship struct {
	Data resourceID `json:"data"`
}

type resourceID struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type document struct {
	Data json.RawMessage `json:"data"`
	Meta json.RawMessage `json:"meta,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in any, out *document) error {
	if c.APIKey == "" {
		return errors.New("LEMON_SQUEEZY_SECRET_KEY is not configured")
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", mediaType)
	if in != nil {
		req.Header.Set("Content-Type", mediaType)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// get fetches a single resource and decodes its attributes into attrs.
func (c *Client) get(ctx context.Context, path string, attrs any) (string, error) {
	var doc document
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &doc); err != nil {
		return "", err
	}
	return decodeResource(doc.Data, attrs)
}

func decodeResource(data json.RawMessage, attrs any) (string, error) {
	var res resource
	if err := json.Unmarshal(data, &res); err != nil {
		return "", fmt.Errorf("decode resource: %w", err)
	}
	if attrs != nil && len(res.Attributes) > 0 {
		if err := json.Unmarshal(res.Attributes, attrs); err != nil {
			return "", fmt.Errorf("decode %s attributes: %w", res.Type, err)
		}
	}
	return res.ID, nil
}

func marshalAttributes(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
