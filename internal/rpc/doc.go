// Package rpc implements the JSON-RPC request engine shared by all chain
// backends. It issues a single method call against a provider endpoint,
// classifies transport and protocol failures, applies configurable
// result-acceptance rules, and retries transient failures within a bounded
// attempt budget. The engine keeps no per-request state and is safe for
// concurrent use; an optional Redis-backed cache can short-circuit lookups
// of immutable chain data.
package rpc
