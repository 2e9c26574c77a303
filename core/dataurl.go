package core

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDataURL is returned when a string is not a base64 data URL.
var ErrInvalidDataURL = errors.New("invalid data URL")

// DataURL composes a data URL from a MIME type and a base64 payload.
func DataURL(mimeType, b64 string) string {
	return "data:" + mimeType + ";base64," + b64
}

// ParseDataURL splits a base64 data URL into its MIME type and payload.
func ParseDataURL(s string) (mimeType, b64 string, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", "", fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURL)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", fmt.Errorf("%w: missing payload separator", ErrInvalidDataURL)
	}
	mimeType, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", "", fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
	}
	if mimeType == "" {
		mimeType = "text/plain"
	}
	return mimeType, payload, nil
}

// DecodeDataURL returns the MIME type and decoded bytes of a base64 data URL.
func DecodeDataURL(s string) (string, []byte, error) {
	mimeType, b64, err := ParseDataURL(s)
	if err != nil {
		return "", nil, err
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return mimeType, data, nil
}
