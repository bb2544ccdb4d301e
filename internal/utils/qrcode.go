package utils

import (
	"encoding/base64"
	"errors"

	"github.com/skip2/go-qrcode"
)

// QRCodePNG encode le payload VietQR renvoyé par payOS en image PNG
func QRCodePNG(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, errors.New("empty qr payload")
	}
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}

// QRCodeDataURL génère le QR en base64 prêt à mettre dans <img src="...">
func QRCodeDataURL(payload string, size int) (string, error) {
	png, err := QRCodePNG(payload, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
