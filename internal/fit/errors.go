package fit

import "errors"

var (
	// ErrInvalidHeader reports a file header with an unrecognized size byte
	// or a missing ".FIT" data tag.
	ErrInvalidHeader = errors.New("invalid FIT file header")
	// ErrChecksumMismatch reports a stored CRC that does not match the
	// computed one. Hard for the header, soft for the trailing file CRC.
	ErrChecksumMismatch = errors.New("CRC mismatch")
	// ErrUndefinedLocalMessageType reports a data record whose local
	// message type has no live definition.
	ErrUndefinedLocalMessageType = errors.New("data record references undefined local message type")
	// ErrTruncatedInput reports fewer bytes available than a header or
	// record declares.
	ErrTruncatedInput = errors.New("truncated input")
)
