package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"", LevelUnset, false},
		{"l", LevelL, false},
		{"M", LevelM, false},
		{" q ", LevelQ, false},
		{"H", LevelH, false},
		{"X", LevelUnset, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBackendsProduceValidMatrices(t *testing.T) {
	for _, name := range []string{BackendYeqown, BackendSkip2} {
		t.Run(name, func(t *testing.T) {
			enc, err := New(name)
			require.NoError(t, err)

			m, err := enc.Encode("https://example.com", LevelM)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, m.Size(), MinSize)
			assert.Equal(t, 1, m.Size()%2)

			// Finder pattern: top-left 7x7 ring is dark, the separator is light.
			assert.True(t, m.Dark(0, 0))
			assert.True(t, m.Dark(6, 0))
			assert.True(t, m.Dark(0, 6))
			assert.False(t, m.Dark(1, 1))
			assert.True(t, m.Dark(3, 3))
			assert.False(t, m.Dark(7, 7))
		})
	}
}

func TestHigherLevelNeverShrinksSymbol(t *testing.T) {
	enc := Yeqown{}
	low, err := enc.Encode("WIFI:T:WPA;S:home;P:secret;;", LevelL)
	require.NoError(t, err)
	high, err := enc.Encode("WIFI:T:WPA;S:home;P:secret;;", LevelH)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, high.Size(), low.Size())
}

func TestEncodeRejectsOversizedContent(t *testing.T) {
	huge := make([]byte, 8000)
	for i := range huge {
		huge[i] = byte('a' + i%26)
	}
	_, err := Yeqown{}.Encode(string(huge), LevelH)
	assert.Error(t, err)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New("zxing")
	assert.Error(t, err)
}

func TestNewMatrixValidation(t *testing.T) {
	square := func(n int) [][]bool {
		rows := make([][]bool, n)
		for i := range rows {
			rows[i] = make([]bool, n)
		}
		return rows
	}

	_, err := NewMatrix(square(19))
	assert.Error(t, err, "too small")

	_, err = NewMatrix(square(22))
	assert.Error(t, err, "even side")

	ragged := square(21)
	ragged[3] = ragged[3][:20]
	_, err = NewMatrix(ragged)
	assert.Error(t, err, "ragged")

	rows := square(21)
	rows[2][5] = true
	m, err := NewMatrix(rows)
	require.NoError(t, err)
	rows[2][5] = false
	assert.True(t, m.Dark(5, 2), "matrix must not alias its input")
	assert.False(t, m.Dark(-1, 0))
	assert.False(t, m.Dark(21, 0))
	assert.Equal(t, 1, m.DarkCount())
}

func TestTrimQuietZone(t *testing.T) {
	rows := make([][]bool, 29)
	for i := range rows {
		rows[i] = make([]bool, 29)
	}
	rows[4][4] = true
	out := trimQuietZone(rows, 4)
	require.Len(t, out, 21)
	assert.Len(t, out[0], 21)
	assert.True(t, out[0][0])
}
