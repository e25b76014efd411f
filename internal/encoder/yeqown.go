package encoder

import (
	"fmt"

	"github.com/yeqown/go-qrcode/v2"
)

// Yeqown encodes with github.com/yeqown/go-qrcode/v2.
type Yeqown struct{}

// Encode builds the symbol and captures its matrix through a qrcode.Writer.
func (Yeqown) Encode(text string, level Level) (*Matrix, error) {
	qrc, err := qrcode.NewWith(text, yeqownLevel(level))
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	w := &matrixWriter{}
	if err := qrc.Save(w); err != nil {
		return nil, fmt.Errorf("failed to read QR matrix: %w", err)
	}
	return NewMatrix(w.rows)
}

func yeqownLevel(l Level) qrcode.EncodeOption {
	switch l {
	case LevelL:
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionLow)
	case LevelQ:
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionQuart)
	case LevelH:
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionHighest)
	default:
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium)
	}
}

// matrixWriter implements qrcode.Writer and keeps the bitmap instead of
// drawing it.
type matrixWriter struct {
	rows [][]bool
}

func (w *matrixWriter) Write(mat qrcode.Matrix) error {
	w.rows = make([][]bool, mat.Height())
	for i := range w.rows {
		w.rows[i] = make([]bool, mat.Width())
	}
	mat.Iterate(qrcode.IterDirection_ROW, func(x, y int, v qrcode.QRValue) {
		w.rows[y][x] = v.IsSet()
	})
	return nil
}

func (w *matrixWriter) Close() error { return nil }
