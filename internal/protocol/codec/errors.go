package codec

import "errors"

// Domain errors for the codec package.
var (
	// ErrTruncated is returned when a message is shorter than its header or
	// declared length.
	ErrTruncated = errors.New("codec: truncated message")

	// ErrLengthMismatch is returned when the declared length is smaller than
	// the header.
	ErrLengthMismatch = errors.New("codec: length mismatch")

	// ErrUnknownCommand is returned for an unrecognised command code.
	ErrUnknownCommand = errors.New("codec: unknown command")

	// ErrInvalidEndpoint is returned when an endpoint descriptor stream is
	// malformed (unsupported width or truncated value).
	ErrInvalidEndpoint = errors.New("codec: invalid endpoint descriptor")

	// ErrInvalidMessage is returned when a message cannot be encoded.
	ErrInvalidMessage = errors.New("codec: invalid message")
)
