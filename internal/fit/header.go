package fit

import (
	"encoding/binary"
	"fmt"
)

const (
	headerSizeLegacy = 12
	headerSizeCRC    = 14
	dataTag          = ".FIT"
)

// HeaderPrefixLen is how many leading bytes of a file are needed to run the
// fixed-size header checks.
const HeaderPrefixLen = headerSizeCRC

// parseFixedHeader reads and validates the fixed-size header fields: size
// byte, data tag and the stored header CRC. It does not look at the data
// section.
func parseFixedHeader(buf []byte) (FileHeader, error) {
	var hdr FileHeader
	if len(buf) < headerSizeLegacy {
		return hdr, fmt.Errorf("%w: %d bytes", ErrTruncatedInput, len(buf))
	}
	hdr.Size = buf[0]
	if hdr.Size != headerSizeLegacy && hdr.Size != headerSizeCRC {
		return hdr, fmt.Errorf("%w: header size %d", ErrInvalidHeader, hdr.Size)
	}
	if len(buf) < int(hdr.Size) {
		return hdr, fmt.Errorf("%w: %d bytes for %d-byte header", ErrTruncatedInput, len(buf), hdr.Size)
	}
	hdr.ProtocolVersion = buf[1]
	hdr.ProfileVersion = binary.LittleEndian.Uint16(buf[2:4])
	hdr.DataSize = binary.LittleEndian.Uint32(buf[4:8])
	hdr.DataTag = string(buf[8:12])
	if hdr.DataTag != dataTag {
		return hdr, fmt.Errorf("%w: data tag %q", ErrInvalidHeader, hdr.DataTag)
	}
	if hdr.Size == headerSizeCRC {
		hdr.CRC = binary.LittleEndian.Uint16(buf[12:14])
		// A stored zero means the writer never computed the CRC.
		if hdr.CRC != 0 {
			if got := Checksum(buf[:12]); got != hdr.CRC {
				return hdr, fmt.Errorf("%w: header CRC 0x%04X, computed 0x%04X", ErrChecksumMismatch, hdr.CRC, got)
			}
		}
	}
	return hdr, nil
}

// ParseFileHeader validates and reads the fixed-size file header from the
// start of buf. It returns the header together with the byte offset and
// length of the data section. Pure read, no side effects.
func ParseFileHeader(buf []byte) (FileHeader, int, int, error) {
	hdr, err := parseFixedHeader(buf)
	if err != nil {
		return hdr, 0, 0, err
	}
	dataStart := int(hdr.Size)
	dataLen := int(hdr.DataSize)
	if dataStart+dataLen > len(buf) {
		return hdr, 0, 0, fmt.Errorf("%w: data section %d bytes, %d available", ErrTruncatedInput, dataLen, len(buf)-dataStart)
	}
	return hdr, dataStart, dataLen, nil
}

// CheckHeaderPrefix validates the fixed header fields in prefix and checks
// that a file of fileSize bytes can hold the declared data section. It lets
// callers vet a file by its first HeaderPrefixLen bytes without loading the
// rest.
func CheckHeaderPrefix(prefix []byte, fileSize int64) (FileHeader, error) {
	hdr, err := parseFixedHeader(prefix)
	if err != nil {
		return hdr, err
	}
	if int64(hdr.Size)+int64(hdr.DataSize) > fileSize {
		return hdr, fmt.Errorf("%w: data section %d bytes, file is %d bytes", ErrTruncatedInput, hdr.DataSize, fileSize)
	}
	return hdr, nil
}
