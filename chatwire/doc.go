// Package chatwire provides the wire-format types and transports for the
// chat-completion protocol used by the agent package.
//
// The package models the flat message shape the protocol requires
// (role/content/tool_calls/tool_call_id), a typed error hierarchy that
// distinguishes protocol violations from transient transport failures, and
// two interchangeable transports behind the Completer interface: an HTTP
// client for OpenAI-compatible endpoints and an adapter over gollm for
// providers configured through that SDK.
//
// Transports never retry internally. Callers own retry and recovery policy.
package chatwire
