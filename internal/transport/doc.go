// Package transport carries sub-network frames over a physical channel.
//
// A Transport owns one channel (a serial port, a Unix socket or a TCP
// connection to a radio bridge) and exchanges addressed frames with it:
//
//	┌────────────┬────────────┬──────────────┬────────────┬─────────────┐
//	│ magic (16) │ total (16) │ address (16) │  port (16) │ payload ... │
//	└────────────┴────────────┴──────────────┴────────────┴─────────────┘
//
// All fields are little-endian and total includes the 8-byte header.
//
// Inbound bytes go through a Reassembler. A buffered prefix without the
// magic word is discarded whole; the reassembler then waits for the next
// read to start a fresh frame. Once total bytes are buffered the frame is
// delivered and the buffer is cleared, so bytes of a second frame arriving
// in the same read are lost. Senders on the sub-network write one frame per
// burst, which keeps this acceptable.
//
// Outbound frames are queued and written by a single writer goroutine.
// Lost connections are re-dialled with exponential backoff until Close.
package transport
