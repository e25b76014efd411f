package imageload

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// ParseDataURI splits an RFC 2397 data URI into its media type and payload.
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI: missing comma")
	}

	isBase64 := false
	if m, found := strings.CutSuffix(meta, ";base64"); found {
		meta, isBase64 = m, true
	}
	mediaType := meta
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some producers drop the padding.
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return "", nil, fmt.Errorf("malformed data URI payload: %w", err)
			}
		}
		return mediaType, data, nil
	}

	data, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("malformed data URI payload: %w", err)
	}
	return mediaType, []byte(data), nil
}

// DataURI encodes data as a base64 data URI.
func DataURI(mediaType string, data []byte) string {
	var b strings.Builder
	b.Grow(len(mediaType) + 13 + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mediaType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}
