// Package authclient posts face captures to the remote face-login endpoint.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/andresmejia3/facegate/internal/log"
	"github.com/andresmejia3/facegate/internal/types"
)

// Endpoint paths seen in deployments of the face-login server.
const (
	DefaultEndpoint   = "/auth/api/face-login/"
	AlternateEndpoint = "/auth/face-login/"
)

// Default timeouts for HTTP operations.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultKeepAlive      = 30 * time.Second
)

const maxResponseBytes = 1 << 20

var (
	// ErrNetwork covers transport failures and timeouts.
	ErrNetwork = errors.New("network error")
	// ErrParse covers bodies that are not a valid face-login response.
	ErrParse = errors.New("invalid server response")
)

// Kind classifies a submission failure.
type Kind int

const (
	KindNetwork Kind = iota
	KindParse
)

func (k Kind) String() string {
	if k == KindParse {
		return "parse"
	}
	return "network"
}

// Error is returned by Submit for every failure. errors.Is matches ErrNetwork or ErrParse.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("face login %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	sentinel := ErrNetwork
	if e.Kind == KindParse {
		sentinel = ErrParse
	}
	return []error{sentinel, e.Err}
}

// Client talks to one face-login server.
type Client struct {
	BaseURL  string
	Endpoint string
	HTTP     *http.Client
	Timeout  time.Duration // bounds one submission; 0 disables
}

// New creates a client with production-ready transport defaults.
func New(baseURL, endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		BaseURL:  baseURL,
		Endpoint: endpoint,
		HTTP:     NewHTTPClient(),
		Timeout:  timeout,
	}
}

// NewHTTPClient returns an http.Client with dial and handshake timeouts set.
// The overall deadline comes from the request context.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: DefaultKeepAlive,
			}).DialContext,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// ResolveURL joins an absolute server URL and an absolute path.
func ResolveURL(baseURL, path string) (string, error) {
	base, err := url.ParseRequestURI(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("server url %q is not valid", baseURL)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("path %q is not valid: %w", path, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// URL returns the full endpoint URL.
func (c *Client) URL() (string, error) {
	return ResolveURL(c.BaseURL, c.Endpoint)
}

// Submit issues one POST with the capture and decodes the server's answer.
func (c *Client) Submit(ctx context.Context, capture types.CaptureRequest) (types.ServerResponse, error) {
	var out types.ServerResponse

	endpoint, err := c.URL()
	if err != nil {
		return out, err
	}

	body, err := json.Marshal(capture)
	if err != nil {
		return out, fmt.Errorf("failed to encode capture: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("failed to create face login request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return out, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	log.Debug("face login answered",
		"request_id", requestID,
		"status", resp.StatusCode,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"image_bytes", len(capture.Image),
	)

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return types.ServerResponse{}, &Error{Kind: KindParse, Err: fmt.Errorf("status %d: %w", resp.StatusCode, err)}
	}

	// The server answers 200 for both outcomes, always with a message to show.
	if out.Message == "" {
		return types.ServerResponse{}, &Error{Kind: KindParse, Err: fmt.Errorf("status %d: response carries no message", resp.StatusCode)}
	}

	return out, nil
}
