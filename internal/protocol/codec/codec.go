package codec

import (
	"encoding/binary"
	"fmt"
)

// Message layout sizes.
const (
	// HeaderSize is the size of the command header: cmd(2) + length(2) + tid(2).
	HeaderSize = 6

	// MACSize is the size of a node MAC in a discovery response.
	MACSize = 8

	discoverRespFixed = 4 + MACSize // device type(4) + mac(8)
	replyFixed        = 4           // echoed command(2) + error code(2)
	maxMessageSize    = 0xFFFF
)

// Header is the fixed prefix of every command.
type Header struct {
	Cmd    Command
	Length uint16
	TID    uint16
}

// Message is a decoded command. Which fields are meaningful depends on Cmd:
//
//	DISCOVER_RESP  DeviceType, MAC, Endpoints
//	SET, UPDATE    Endpoints
//	REPLY          ReplyTo, ErrCode, and Endpoints when ReplyTo is GET
//	DISCOVER, GET, KEEP_ALIVE carry no payload
type Message struct {
	Cmd Command
	TID uint16

	DeviceType uint32
	MAC        []byte

	ReplyTo Command
	ErrCode uint16

	Endpoints []Descriptor
}

// ParseHeader reads the command header.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncated, len(data), HeaderSize)
	}
	return Header{
		Cmd:    Command(binary.LittleEndian.Uint16(data[0:2])),
		Length: binary.LittleEndian.Uint16(data[2:4]),
		TID:    binary.LittleEndian.Uint16(data[4:6]),
	}, nil
}

// Decode parses one command. Bytes beyond the declared length are ignored.
//
// Parameters:
//   - data: the frame payload (transport header already stripped)
//
// Returns:
//   - Message: the decoded command
//   - error: ErrTruncated, ErrLengthMismatch, ErrUnknownCommand or
//     ErrInvalidEndpoint (wrapped). A message whose descriptor stream is
//     rejected is not returned.
func Decode(data []byte) (Message, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return Message{}, err
	}
	if int(h.Length) < HeaderSize {
		return Message{}, fmt.Errorf("%w: declared %d", ErrLengthMismatch, h.Length)
	}
	if int(h.Length) > len(data) {
		return Message{}, fmt.Errorf("%w: declared %d, have %d", ErrTruncated, h.Length, len(data))
	}

	payload := data[HeaderSize:h.Length]
	msg := Message{Cmd: h.Cmd, TID: h.TID}

	switch h.Cmd {
	case CmdDiscover, CmdGet, CmdKeepAlive:
		return msg, nil

	case CmdDiscoverResp:
		if len(payload) < discoverRespFixed {
			return Message{}, fmt.Errorf("%w: discover response has %d bytes", ErrTruncated, len(payload))
		}
		msg.DeviceType = binary.LittleEndian.Uint32(payload[0:4])
		msg.MAC = append([]byte(nil), payload[4:discoverRespFixed]...)
		payload = payload[discoverRespFixed:]

	case CmdSet, CmdUpdate:

	case CmdReply:
		if len(payload) < replyFixed {
			return Message{}, fmt.Errorf("%w: reply has %d bytes", ErrTruncated, len(payload))
		}
		msg.ReplyTo = Command(binary.LittleEndian.Uint16(payload[0:2]))
		msg.ErrCode = binary.LittleEndian.Uint16(payload[2:4])
		if msg.ReplyTo != CmdGet {
			return msg, nil
		}
		payload = payload[replyFixed:]

	default:
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownCommand, h.Cmd)
	}

	eps, err := decodeDescriptors(payload)
	if err != nil {
		return Message{}, fmt.Errorf("decoding %s: %w", h.Cmd, err)
	}
	msg.Endpoints = eps
	return msg, nil
}

// Encode serialises a command, computing the length field.
func Encode(msg Message) ([]byte, error) {
	buf := make([]byte, HeaderSize, HeaderSize+discoverRespFixed)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(msg.Cmd))
	binary.LittleEndian.PutUint16(buf[4:6], msg.TID)

	var err error
	switch msg.Cmd {
	case CmdDiscover, CmdGet, CmdKeepAlive:

	case CmdDiscoverResp:
		if len(msg.MAC) != MACSize {
			return nil, fmt.Errorf("%w: mac has %d bytes", ErrInvalidMessage, len(msg.MAC))
		}
		buf = binary.LittleEndian.AppendUint32(buf, msg.DeviceType)
		buf = append(buf, msg.MAC...)
		buf, err = appendDescriptors(buf, msg.Endpoints)

	case CmdSet, CmdUpdate:
		buf, err = appendDescriptors(buf, msg.Endpoints)

	case CmdReply:
		buf = binary.LittleEndian.AppendUint16(buf, uint16(msg.ReplyTo))
		buf = binary.LittleEndian.AppendUint16(buf, msg.ErrCode)
		if msg.ReplyTo == CmdGet {
			buf, err = appendDescriptors(buf, msg.Endpoints)
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, msg.Cmd)
	}
	if err != nil {
		return nil, err
	}

	if len(buf) > maxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidMessage, len(buf))
	}
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(buf))) //nolint:gosec // bounded above
	return buf, nil
}
