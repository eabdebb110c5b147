// Package observability provides structured event logging for the chat
// pipeline, the tool gateway, and the circuit breakers. Events persist as
// JSON Lines (JSONL) in an append-only file.
package observability
