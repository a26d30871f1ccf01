package bitquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultEndpoint is the Bitquery GraphQL endpoint.
const DefaultEndpoint = "https://graphql.bitquery.io/"

const apiKeyHeader = "X-API-KEY"

// Transport executes a GraphQL request and returns the data member of the
// response.
type Transport interface {
	Execute(ctx context.Context, req Request) (json.RawMessage, error)
}

// HTTPTransport posts requests to a GraphQL endpoint over HTTP. The
// underlying http.Client keeps connections alive between calls.
type HTTPTransport struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport. An empty endpoint means DefaultEndpoint
// and a nil client gets a 30s timeout.
func NewHTTPTransport(endpoint, apiKey string, httpClient *http.Client) *HTTPTransport {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	return &HTTPTransport{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// graphQLResponse represents a GraphQL response
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

// graphQLError represents a GraphQL error
type graphQLError struct {
	Message string `json:"message"`
}

// Execute posts the request and classifies failures into *Error.
func (t *HTTPTransport) Execute(ctx context.Context, r Request) (json.RawMessage, error) {
	bodyBytes, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, connectivityError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return nil, &Error{
			Kind:    KindAuthentication,
			Message: "API key is not valid, check your key",
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, connectivityError(fmt.Errorf("failed to read response: %w", err))
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &Error{
				Kind:    KindRemoteApplication,
				Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
			}
		}
		return nil, &Error{
			Kind:    KindNormalization,
			Message: "malformed response body",
			Err:     err,
		}
	}

	if len(gqlResp.Errors) > 0 {
		return nil, &Error{
			Kind:    KindRemoteApplication,
			Message: gqlResp.Errors[0].Message,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Kind:    KindRemoteApplication,
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	if len(gqlResp.Data) == 0 || string(gqlResp.Data) == "null" {
		return nil, normalizationErrorf("response has no data")
	}

	return gqlResp.Data, nil
}
