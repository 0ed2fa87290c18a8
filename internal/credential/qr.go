package credential

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// VerificationURL is the QR payload for an identifier.
func VerificationURL(baseURL, volunteerID string) string {
	return strings.TrimRight(baseURL, "/") + "/verify/" + volunteerID
}

// QRCode encodes payload as a PNG with medium error correction.
func QRCode(payload string, pixels int) (Image, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, pixels)
	if err != nil {
		return Image{}, fmt.Errorf("encode qr code: %w", err)
	}
	return Image{Name: "qr", Format: FormatPNG, Data: png}, nil
}
