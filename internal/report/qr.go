package report

import (
	"errors"
	"strings"
	"unicode"

	qrcode "github.com/skip2/go-qrcode"
)

// HashToQR renders a PNG QR code of "SHA256:<digest>" for a hex digest.
// Separators and other non-hex characters in hash are dropped.
func HashToQR(hash string, size int) ([]byte, error) {
	digest := strings.Map(func(r rune) rune {
		r = unicode.ToUpper(r)
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') {
			return r
		}
		return -1
	}, hash)
	if digest == "" {
		return nil, errors.New("source hash is empty")
	}
	if size <= 0 {
		size = 128
	}
	code, err := qrcode.New("SHA256:"+digest, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return code.PNG(size)
}
