package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/replicante-io/replicore/internal/rcerror"
)

// Client probes one agent sidecar over HTTP.
type Client struct {
	base       string
	httpClient *http.Client
}

// New builds a Client targeting baseURL (e.g. "http://10.0.0.1:37017"),
// using timeout as the per-call deadline.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base:       baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return rcerror.Wrap(rcerror.AgentConnect, err, "build request to %s", c.base+path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isConnectError(err) {
			return rcerror.Wrap(rcerror.AgentConnect, err, "connect to %s", c.base)
		}
		return rcerror.Wrap(rcerror.AgentConnect, err, "request %s", c.base+path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return rcerror.New(rcerror.AgentDown, "agent %s returned http %d", c.base+path, resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return rcerror.Wrap(rcerror.AgentConnect, err, "read response body from %s", c.base+path)
	}
	if err := json.Unmarshal(buf.Bytes(), out); err != nil {
		return rcerror.Wrap(rcerror.Deserialize, err, "decode response from %s", c.base+path)
	}
	return nil
}

// isConnectError distinguishes "never reached the agent" (DNS, dial,
// connection refused) from other transport failures.
func isConnectError(err error) bool {
	var netErr net.Error
	if ok := asNetError(err, &netErr); ok {
		return true
	}
	var opErr *net.OpError
	return asOpError(err, &opErr)
}

func asNetError(err error, target *net.Error) bool {
	for err != nil {
		if ne, ok := err.(net.Error); ok {
			*target = ne
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

func asOpError(err error, target **net.OpError) bool {
	for err != nil {
		if oe, ok := err.(*net.OpError); ok {
			*target = oe
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// Info fetches the agent's build/version tuple. Failures are classified
// as rcerror.AgentDown("info", url) rather than AgentConnect once a
// response was parsed unsuccessfully; pure transport failures stay
// AgentConnect from getJSON.
func (c *Client) Info(ctx context.Context) (InfoResponse, error) {
	var out InfoResponse
	if err := c.getJSON(ctx, "/api/v1/info", &out); err != nil {
		if kind, ok := rcerror.KindOf(err); ok && kind == rcerror.Deserialize {
			return InfoResponse{}, rcerror.Wrap(rcerror.AgentDown, err, "info %s", c.base)
		}
		return InfoResponse{}, err
	}
	return out, nil
}

// Status fetches the agent's view of its data-store node's identity.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	if err := c.getJSON(ctx, "/api/v1/status", &out); err != nil {
		if kind, ok := rcerror.KindOf(err); ok && kind == rcerror.Deserialize {
			return StatusResponse{}, rcerror.Wrap(rcerror.AgentDown, err, "status %s", c.base)
		}
		return StatusResponse{}, err
	}
	return out, nil
}

// Shards fetches the node's current shard allocation.
func (c *Client) Shards(ctx context.Context) (ShardsResponse, error) {
	var out ShardsResponse
	if err := c.getJSON(ctx, "/api/v1/shards", &out); err != nil {
		if kind, ok := rcerror.KindOf(err); ok && kind == rcerror.Deserialize {
			return ShardsResponse{}, rcerror.Wrap(rcerror.AgentDown, err, "shards %s", c.base)
		}
		return ShardsResponse{}, err
	}
	return out, nil
}
