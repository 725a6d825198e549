package pdf

import (
	"bytes"
	"fmt"

	"github.com/lehigh-university-libraries/anatomist/internal/domain"
)

// DefaultMaxUploadBytes caps uploaded documents at 25 MiB.
const DefaultMaxUploadBytes = 25 << 20

var magic = []byte("%PDF-")

// Validate checks that data looks like a PDF and is within maxBytes. maxBytes <= 0 disables the size check.
func Validate(data []byte, maxBytes int64) error {
	if len(data) == 0 {
		return domain.InvalidInputError("document is empty", nil)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return domain.InvalidInputError(fmt.Sprintf("document exceeds %d bytes", maxBytes), nil)
	}

	head := bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\r\n ")
	if !bytes.HasPrefix(head, magic) {
		return domain.InvalidInputError("document is not a PDF", nil)
	}
	return nil
}
