// Package safebrowsing checks submitted URLs against the Google Safe
// Browsing v4 threat lists. The check is advisory: lookup failures are
// reported to the caller, who is expected to log and move on.
package safebrowsing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	// DefaultEndpoint is the Safe Browsing v4 lookup endpoint.
	DefaultEndpoint = "https://safebrowsing.googleapis.com/v4/threatMatches:find"

	clientID      = "tinylink"
	clientVersion = "0.1.0"
)

// Checker reports whether a URL is safe to shorten. Check returns
// (false, nil) only for a confirmed threat-list match.
type Checker interface {
	Check(ctx context.Context, url string) (bool, error)
}

// Client calls the Safe Browsing lookup API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the lookup endpoint. Used by tests.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New returns a Client authenticating with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type lookupRequest struct {
	Client     clientInfo `json:"client"`
	ThreatInfo threatInfo `json:"threatInfo"`
}

type clientInfo struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type threatInfo struct {
	ThreatTypes      []string      `json:"threatTypes"`
	PlatformTypes    []string      `json:"platformTypes"`
	ThreatEntryTypes []string      `json:"threatEntryTypes"`
	ThreatEntries    []threatEntry `json:"threatEntries"`
}

type threatEntry struct {
	URL string `json:"url"`
}

type lookupResponse struct {
	Matches []json.RawMessage `json:"matches"`
}

// Check looks url up against the malware and social engineering lists.
func (c *Client) Check(ctx context.Context, url string) (bool, error) {
	payload := lookupRequest{
		Client: clientInfo{
			ClientID:      clientID,
			ClientVersion: clientVersion,
		},
		ThreatInfo: threatInfo{
			ThreatTypes:      []string{"MALWARE", "SOCIAL_ENGINEERING"},
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    []threatEntry{{URL: url}},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to encode lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s?key=%s", c.endpoint, c.apiKey), bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("safe browsing lookup failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("safe browsing lookup returned status %d", resp.StatusCode)
	}

	var decoded lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return false, fmt.Errorf("failed to parse safe browsing response: %w", err)
	}

	return len(decoded.Matches) == 0, nil
}
