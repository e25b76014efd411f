package imageload

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristianadrielbraun/qrstudio/internal/qrerr"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoadDataURI(t *testing.T) {
	l := New()
	ref := Ref(DataURI("image/png", pngBytes(t, 10, 6, color.RGBA{255, 0, 0, 255})))

	img, err := l.Load(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 6), img.Bounds())
	r, g, b, _ := img.At(3, 3).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, g)
	assert.Zero(t, b)
}

func TestLoadSVGDataURI(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 40 20" width="40" height="20">` +
		`<rect x="0" y="0" width="40" height="20" fill="#0000ff"/></svg>`
	ref := Ref("data:image/svg+xml;base64," + encodeStd([]byte(svg)))

	img, err := New().Load(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())
	_, _, b, a := img.At(20, 10).RGBA()
	assert.Greater(t, b, uint32(0xf000))
	assert.Greater(t, a, uint32(0xf000))
}

func TestLoadRemoteAppendsCacheBuster(t *testing.T) {
	body := pngBytes(t, 4, 4, color.Black)
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	defer srv.Close()

	fixed := time.UnixMilli(1700000000123)
	l := New(WithClock(func() time.Time { return fixed }), WithPrivateHosts(true))

	_, err := l.Load(context.Background(), Ref(srv.URL+"/logo.png"))
	require.NoError(t, err)
	assert.Equal(t, "t=1700000000123", gotQuery)

	_, err = l.Load(context.Background(), Ref(srv.URL+"/logo.png?v=2"))
	require.NoError(t, err)
	assert.Equal(t, "v=2&t=1700000000123", gotQuery)
}

func TestLoadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	l := New(WithTimeout(50*time.Millisecond), WithPrivateHosts(true))
	start := time.Now()
	_, err := l.Load(context.Background(), Ref(srv.URL+"/slow.png"))
	require.Error(t, err)
	assert.ErrorIs(t, err, qrerr.ErrImageLoadFailed)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLoadFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.png":
			http.NotFound(w, r)
		default:
			w.Write([]byte("definitely not an image"))
		}
	}))
	defer srv.Close()

	tests := []struct {
		name string
		ref  Ref
	}{
		{"empty", ""},
		{"not a url", "not-a-valid-uri"},
		{"unsupported scheme", "ftp://example.com/logo.png"},
		{"bad base64", "data:image/png;base64,@@@"},
		{"garbage data", Ref(DataURI("image/png", []byte("garbage")))},
		{"not found", Ref(srv.URL + "/missing.png")},
		{"garbage body", Ref(srv.URL + "/garbage.png")},
	}
	l := New(WithPrivateHosts(true))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Load(context.Background(), tt.ref)
			require.Error(t, err)
			assert.ErrorIs(t, err, qrerr.ErrImageLoadFailed)
		})
	}
}

func TestLoadRefusesPrivateHostsByDefault(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes(t, 4, 4, color.Black))
	}))
	defer srv.Close()

	_, err := New().Load(context.Background(), Ref(srv.URL+"/logo.png"))
	require.Error(t, err)
	assert.ErrorIs(t, err, qrerr.ErrImageLoadFailed)
	assert.ErrorIs(t, err, errPrivateHost)
	assert.Zero(t, hits.Load(), "no request reaches the loopback server")
}

func TestPublicAddr(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"93.184.216.34", true},
		{"2606:2800:220:1:248:1893:25c8:1946", true},
		{"127.0.0.1", false},
		{"::1", false},
		{"10.1.2.3", false},
		{"172.16.0.1", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"::ffff:127.0.0.1", false},
		{"fd00::1", false},
		{"fe80::1", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PublicAddr(netip.MustParseAddr(tt.addr)), tt.addr)
	}
}

// pngWithHeaderSize returns a valid 1x1 PNG whose header claims w x h.
func pngWithHeaderSize(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1, color.Black)
	// Signature (8), IHDR length (4) and type (4), then width and height.
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestDecodeRejectsHugeDimensions(t *testing.T) {
	data := pngWithHeaderSize(t, 60000, 60000)

	_, err := Decode(data, "image/png")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooManyPixels)

	_, err = New().Load(context.Background(), Ref(DataURI("image/png", data)))
	assert.ErrorIs(t, err, qrerr.ErrImageLoadFailed)
	assert.ErrorIs(t, err, ErrTooManyPixels)
}

func TestParseDataURI(t *testing.T) {
	mt, data, err := ParseDataURI("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)
	assert.Equal(t, []byte("hello"), data)

	mt, data, err = ParseDataURI("data:image/png;base64,aGVsbG8")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)
	assert.Equal(t, []byte("hello"), data)

	mt, data, err = ParseDataURI("data:image/svg+xml;charset=utf-8,%3Csvg%3E")
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", mt)
	assert.Equal(t, []byte("<svg>"), data)

	mt, _, err = ParseDataURI("data:,plain")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mt)

	_, _, err = ParseDataURI("data:image/png;base64")
	assert.Error(t, err)
	_, _, err = ParseDataURI("https://example.com")
	assert.Error(t, err)
}

func TestRefString(t *testing.T) {
	long := Ref(DataURI("image/png", make([]byte, 200)))
	assert.Len(t, long.String(), 51)
	assert.Equal(t, "https://example.com/a.png", Ref("https://example.com/a.png").String())
}

func encodeStd(b []byte) string {
	uri := DataURI("x", b)
	return uri[len("data:x;base64,"):]
}
