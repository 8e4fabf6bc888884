package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidDataURL indicates a malformed data: reference.
var ErrInvalidDataURL = errors.New("invalid data url")

// DecodeDataURL returns the payload and media type of a data: URL.
func DecodeDataURL(ref string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURL)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing payload separator", ErrInvalidDataURL)
	}

	params := strings.Split(header, ";")
	mediaType := strings.TrimSpace(params[0])
	if mediaType == "" {
		mediaType = "text/plain"
	}
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(payload), "="))
		}
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
		}
		return data, mediaType, nil
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return []byte(decoded), mediaType, nil
}

// EncodeDataURL renders data as a base64 data: URL.
func EncodeDataURL(data []byte, contentType string) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
