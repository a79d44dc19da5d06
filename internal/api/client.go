// Package api is a thin GraphQL client for the split-specs service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	serrors "github.com/strrl/split-specs-dashboard/internal/errors"
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Authenticator applies authentication to requests.
type Authenticator interface {
	Apply(req *http.Request) error
}

// ErrorHandler observes every failed request. The auth gate uses it to sign
// out on access-denied.
type ErrorHandler interface {
	HandleError(ctx context.Context, err error) bool
}

// Client wraps the split-specs GraphQL endpoint.
type Client struct {
	endpoint   string
	httpClient HTTPClient
	auth       Authenticator
	onError    ErrorHandler
	logger     zerolog.Logger
}

// NewClient creates a new API client. auth and onError may be nil.
func NewClient(endpoint string, timeout time.Duration, auth Authenticator, onError ErrorHandler, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
		auth:       auth,
		onError:    onError,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// Endpoint returns the GraphQL endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type request struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type responseError struct {
	Message string `json:"message"`
	Path    []any  `json:"path"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []responseError `json:"errors"`
}

// Do executes one GraphQL operation and decodes its data object into out.
// Every error is reported to the configured ErrorHandler before returning.
func (c *Client) Do(ctx context.Context, opName, query string, vars map[string]any, out any) error {
	err := c.do(ctx, opName, query, vars, out)
	if err != nil && c.onError != nil {
		c.onError.HandleError(ctx, err)
	}
	return err
}

func (c *Client) do(ctx context.Context, opName, query string, vars map[string]any, out any) error {
	payload, err := json.Marshal(request{OperationName: opName, Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	if c.auth != nil {
		if err := c.auth.Apply(req); err != nil {
			return fmt.Errorf("applying auth: %w", err)
		}
	}

	log := c.logger.With().Str("op", opName).Str("request_id", requestID).Logger()
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("request failed")
		return &serrors.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &serrors.TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")

	if resp.StatusCode >= 400 {
		return &serrors.TransportError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded response
	if err := json.Unmarshal(body, &decoded); err != nil {
		return &serrors.TransportError{StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("decoding response: %w", err)}
	}

	if len(decoded.Errors) > 0 {
		first := decoded.Errors[0]
		return &serrors.GraphQLError{Message: first.Message, Path: pathStrings(first.Path)}
	}

	if out == nil || len(decoded.Data) == 0 || string(decoded.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return fmt.Errorf("decoding %s data: %w", opName, err)
	}
	return nil
}

// pathStrings flattens a GraphQL error path, which mixes field names and
// list indexes.
func pathStrings(path []any) []string {
	if len(path) == 0 {
		return nil
	}
	out := make([]string, 0, len(path))
	for _, p := range path {
		switch v := p.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, fmt.Sprintf("%d", int(v)))
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}
