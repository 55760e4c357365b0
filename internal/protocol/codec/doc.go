// Package codec encodes and decodes the sub-network command protocol.
//
// Every command travels inside a transport frame (see package transport) and
// starts with a 6-byte little-endian header:
//
//	┌──────────────┬──────────────┬──────────────┬─────────────────────┐
//	│ command (16) │ length (16)  │   tid (16)   │  payload ...        │
//	└──────────────┴──────────────┴──────────────┴─────────────────────┘
//
// length counts the header plus the payload. Payloads that carry endpoint
// values use a stream of descriptors: a packed 16-bit word
//
//	bits  0-7   epid
//	bits  8-13  bit width
//	bit   14    readable
//	bit   15    writable
//
// followed by 1, 2 or 4 little-endian value bytes (ceil(width/8)). A single
// malformed descriptor rejects the whole descriptor stream of the message.
//
// REPLY commands carry the echoed command code but not its transaction id,
// so concurrent GET and SET requests to one node cannot be told apart by the
// reply alone. Transaction ids are still attached to outgoing requests.
package codec
