package report

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// FileHashToQR creates a QR code PNG encoding the source file's hash, for
// pairing a printed or archived report back to its input.
func FileHashToQR(hash string, size int) ([]byte, error) {
	normalized := sanitizeHash(hash)
	if normalized == "" {
		return nil, fmt.Errorf("file hash is empty")
	}
	if size <= 0 {
		size = 128
	}
	return qrcode.Encode(normalized, qrcode.Medium, size)
}

func sanitizeHash(hash string) string {
	upper := strings.ToUpper(strings.TrimSpace(hash))
	var b strings.Builder
	for _, r := range upper {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'F':
			b.WriteRune(r)
		}
	}
	return b.String()
}
