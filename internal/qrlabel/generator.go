package qrlabel

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// Symbol rendering configuration. Level-H error correction keeps the symbol
// decodable under partial damage or poor print quality; do not lower it.
const (
	symbolSize = 300
)

// Generator renders an encoded payload as a scannable symbol image.
type Generator interface {
	Generate(payload string) (string, error)
}

type qrGenerator struct{}

// NewGenerator creates a QR symbol generator with fixed configuration.
func NewGenerator() Generator {
	return &qrGenerator{}
}

// Generate encodes the payload into a PNG QR symbol and returns it as a
// base64 data URL. Pure function of the payload plus the fixed
// configuration; the quiet-zone border around the symbol is preserved.
func (g *qrGenerator) Generate(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.High, symbolSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate qr symbol: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
