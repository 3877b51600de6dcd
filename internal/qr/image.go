package qr

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// RenderPNG encodes a signed token as a square QR image.
func RenderPNG(token string, size int) ([]byte, error) {
	code, err := qr.Encode(token, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("qr: encode: %w", err)
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("qr: scale: %w", err)
	}

	var buf bytes.Buffer
	if errEncode := png.Encode(&buf, scaled); errEncode != nil {
		return nil, fmt.Errorf("qr: render png: %w", errEncode)
	}
	return buf.Bytes(), nil
}
