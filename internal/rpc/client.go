package rpc

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/USA-RedDragon/upmyfee/internal/metrics"
)

const (
	UserAgent      = "lepricoin"
	DefaultTimeout = 30 * time.Second

	jsonRPCVersion  = "1.1"
	contentTypeJSON = "application/json"
)

type Options struct {
	// Timeout bounds each call. Zero means DefaultTimeout.
	Timeout            time.Duration
	InsecureSkipVerify bool
	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// Client is a JSON-RPC 1.1 client for a single node. It is safe for
// concurrent use; calls are numbered from a counter the client owns.
type Client struct {
	endpoint   Endpoint
	httpClient *http.Client
	metrics    *metrics.Metrics
	lastID     atomic.Uint64
}

type request struct {
	Version string          `json:"version"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      uint64          `json:"id"`
}

func NewClient(serviceURL string, opts Options) (*Client, error) {
	endpoint, err := ParseEndpoint(serviceURL)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		//nolint:golint,gosec
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		metrics: opts.Metrics,
	}, nil
}

func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Call invokes method with positional args and returns the raw result.
// Namespaced methods use dots, e.g. "wallet.getinfo".
func (c *Client) Call(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	id := c.lastID.Add(1)
	start := time.Now()
	result, err := c.call(ctx, id, method, args)
	c.metrics.ObserveRPCCall(method, outcome(err), time.Since(start))
	return result, err
}

func (c *Client) call(ctx context.Context, id uint64, method string, args []any) (json.RawMessage, error) {
	params, err := json.Marshal(encodeParams(args, false))
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s params: %w", method, err)
	}

	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		logged, _ := json.Marshal(encodeParams(args, true))
		slog.DebugContext(ctx, "-->", "id", id, "method", method, "params", string(logged))
	}

	body, err := json.Marshal(request{
		Version: jsonRPCVersion,
		Method:  method,
		Params:  params,
		ID:      id,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.SetBasicAuth(c.endpoint.Username, c.endpoint.Password)
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Content-Type", contentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	return readResponse(ctx, method, resp)
}

func readResponse(ctx context.Context, method string, resp *http.Response) (json.RawMessage, error) {
	if resp == nil {
		return nil, &ProtocolError{Code: CodeNoResponse, Message: "missing HTTP response from server"}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}

	if resp.Header.Get("Content-Type") != contentTypeJSON {
		return nil, &ProtocolError{
			Code:    CodeNoResponse,
			Message: fmt.Sprintf("non-JSON HTTP response with '%d' from server: %s", resp.StatusCode, raw),
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &ProtocolError{
			Code:    CodeNoResponse,
			Message: fmt.Sprintf("malformed JSON-RPC response with '%d' from server: %s", resp.StatusCode, raw),
		}
	}

	errField, hasError := fields["error"]
	result, hasResult := fields["result"]
	if hasError && isNull(errField) && hasResult {
		slog.DebugContext(ctx, "<--", "id", string(fields["id"]), "result", string(result))
	} else {
		slog.DebugContext(ctx, "<--", "body", string(raw))
	}

	if hasError && !isNull(errField) {
		var rpcErr RPCError
		if err := json.Unmarshal(errField, &rpcErr); err != nil {
			return nil, &ProtocolError{
				Code:    CodeNoResponse,
				Message: fmt.Sprintf("malformed JSON-RPC error from server: %s", errField),
			}
		}
		return nil, &rpcErr
	}
	if !hasResult {
		return nil, &ProtocolError{Code: CodeMissingResult, Message: "missing JSON-RPC result"}
	}
	return result, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Method returns a stub bound to name. Stubs nest: Method("a").Method("b")
// calls "a.b".
func (c *Client) Method(name string) *Stub {
	return &Stub{client: c, name: name}
}

type Stub struct {
	client *Client
	name   string
}

func (s *Stub) Method(name string) *Stub {
	return &Stub{client: s.client, name: s.name + "." + name}
}

func (s *Stub) Name() string {
	return s.name
}

func (s *Stub) Call(ctx context.Context, args ...any) (json.RawMessage, error) {
	return s.client.Call(ctx, s.name, args...)
}
