package encoder

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Skip2 encodes with github.com/skip2/go-qrcode.
type Skip2 struct{}

// quietZone is the border skip2 adds around the symbol when enabled.
const quietZone = 4

// Encode builds the symbol and returns its bitmap without the quiet zone.
func (Skip2) Encode(text string, level Level) (*Matrix, error) {
	q, err := qrcode.New(text, skip2Level(level))
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}
	q.DisableBorder = true

	rows := q.Bitmap()
	// Older releases ignore DisableBorder in Bitmap; the symbol side is
	// always 17+4*version.
	if want := 17 + 4*q.VersionNumber; len(rows) == want+2*quietZone {
		rows = trimQuietZone(rows, quietZone)
	}
	return NewMatrix(rows)
}

func skip2Level(l Level) qrcode.RecoveryLevel {
	switch l {
	case LevelL:
		return qrcode.Low
	case LevelQ:
		return qrcode.High
	case LevelH:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}
