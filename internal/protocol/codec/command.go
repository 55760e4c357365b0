package codec

import (
	"fmt"
	"sync/atomic"
)

// Command is a sub-network command code.
type Command uint16

// Command codes.
const (
	// CmdDiscover probes a node (or all nodes) for a discovery response.
	CmdDiscover Command = 0x9101

	// CmdDiscoverResp announces a node: device type, MAC and endpoints.
	CmdDiscoverResp Command = 0x9102

	// CmdGet asks a node for its endpoint values.
	CmdGet Command = 0x9111

	// CmdSet writes endpoint values.
	CmdSet Command = 0x9113

	// CmdUpdate is a spontaneous push of changed endpoint values.
	CmdUpdate Command = 0x9121

	// CmdKeepAlive is a periodic liveness beacon.
	CmdKeepAlive Command = 0x9141

	// CmdReply acknowledges a GET or SET.
	CmdReply Command = 0x9191
)

var commandNames = map[Command]string{
	CmdDiscover:     "DISCOVER",
	CmdDiscoverResp: "DISCOVER_RESP",
	CmdGet:          "GET",
	CmdSet:          "SET",
	CmdUpdate:       "UPDATE",
	CmdKeepAlive:    "KEEP_ALIVE",
	CmdReply:        "REPLY",
}

// Valid reports whether c is a known command code.
func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// String returns the command name, or its hex code if unknown.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", uint16(c))
}

// TIDCounter hands out transaction ids. The counter increases by one per
// request and wraps at 16 bits. Safe for concurrent use.
type TIDCounter struct {
	n atomic.Uint32
}

// Next returns the next transaction id.
func (c *TIDCounter) Next() uint16 {
	return uint16(c.n.Add(1)) //nolint:gosec // 16-bit wire field
}
