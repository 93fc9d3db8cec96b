package frame

import "errors"

var (
	ErrFrameTooLarge    = errors.New("frame: data too large")
	ErrMalformedStart   = errors.New("frame: missing start byte")
	ErrTruncated        = errors.New("frame: truncated payload")
	ErrVersionMismatch  = errors.New("frame: protocol version mismatch")
	ErrUnknownCommand   = errors.New("frame: unknown command")
	ErrChecksumMismatch = errors.New("frame: checksum mismatch")
	ErrLengthMismatch   = errors.New("frame: payload longer than dlc")
)
