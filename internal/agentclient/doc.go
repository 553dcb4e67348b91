// Package agentclient is a thin HTTP client for probing a data-store
// agent sidecar (spec.md §4.6): info(), status(), shards(), each with a
// per-call timeout. Transport and decoding failures are classified into
// rcerror.AgentConnect (could not reach the agent at all) versus
// rcerror.AgentDown("info"|"status"|"shards", url) (reached it, got a
// bad response).
//
// The request plumbing (shared *http.Client, context-based cancellation,
// JSON encode/decode) is grounded on internal/cluster's PostJSON/GetJSON
// helpers.
package agentclient
