// Package qrcode renders booking confirmation codes as base64 PNG images
// suitable for embedding in JSON responses and emails.
package qrcode

import (
	"encoding/base64"
	"fmt"

	qr "github.com/skip2/go-qrcode"
)

// GenerateBase64PNG encodes the payload as a QR code PNG and returns it
// base64 encoded with a data URI prefix.
func GenerateBase64PNG(payload string, size int) (string, error) {
	if payload == "" {
		return "", fmt.Errorf("payload is required")
	}
	if size <= 0 {
		size = 256
	}
	png, err := qr.Encode(payload, qr.Medium, size)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
