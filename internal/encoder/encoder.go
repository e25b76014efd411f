// Package encoder turns text into a QR module matrix. The symbol encoding
// itself (segmentation, Reed-Solomon, masking) is delegated to third-party
// QR libraries; this package only normalises their output.
package encoder

import (
	"fmt"
	"strings"
)

// Level is the error-correction level requested from the encoder.
type Level string

const (
	LevelUnset Level = ""
	LevelL     Level = "L"
	LevelM     Level = "M"
	LevelQ     Level = "Q"
	LevelH     Level = "H"
)

// ParseLevel accepts L, M, Q or H in any case. An empty string yields LevelUnset.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelUnset:
		return LevelUnset, nil
	case LevelL:
		return LevelL, nil
	case LevelM:
		return LevelM, nil
	case LevelQ:
		return LevelQ, nil
	case LevelH:
		return LevelH, nil
	}
	return LevelUnset, fmt.Errorf("unknown error correction level %q", s)
}

// Valid reports whether l is one of L, M, Q or H.
func (l Level) Valid() bool {
	switch l {
	case LevelL, LevelM, LevelQ, LevelH:
		return true
	}
	return false
}

// Encoder produces the module matrix for text at the given level.
type Encoder interface {
	Encode(text string, level Level) (*Matrix, error)
}

// Func adapts a plain function to Encoder.
type Func func(text string, level Level) (*Matrix, error)

// Encode calls f.
func (f Func) Encode(text string, level Level) (*Matrix, error) {
	return f(text, level)
}

// Backend names accepted by New.
const (
	BackendYeqown = "yeqown"
	BackendSkip2  = "skip2"
)

// New returns the encoder backend registered under name.
func New(name string) (Encoder, error) {
	switch strings.ToLower(name) {
	case "", BackendYeqown:
		return Yeqown{}, nil
	case BackendSkip2:
		return Skip2{}, nil
	}
	return nil, fmt.Errorf("unknown encoder backend %q", name)
}
