package core

import (
	"encoding/base64"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

// ErrEmptyImage is returned when an Image carries no data.
var ErrEmptyImage = errors.New("image data required: set Image.Data or Image.Base64")

// Image is an input image for the façade operations.
type Image struct {
	// One of these must be set
	Data   []byte // Raw image bytes
	Base64 string // Base64 payload or a full data URL

	MimeType string // Optional; detected from Filename or magic bytes when empty
	Filename string // Optional filename hint
}

// ImageFromDataURL builds an Image from a data URL such as EditResult.Image.
// This is how a previous result is refined with a new prompt.
func ImageFromDataURL(s string) (Image, error) {
	mimeType, payload, err := ParseDataURL(s)
	if err != nil {
		return Image{}, err
	}
	return Image{Base64: payload, MimeType: mimeType}, nil
}

// encode returns the MIME type and base64 payload sent on the wire.
func (i Image) encode() (mimeType, b64 string, err error) {
	switch {
	case len(i.Data) > 0:
		b64 = base64.StdEncoding.EncodeToString(i.Data)
	case strings.HasPrefix(i.Base64, "data:"):
		var urlMime string
		urlMime, b64, err = ParseDataURL(i.Base64)
		if err != nil {
			return "", "", err
		}
		if i.MimeType == "" {
			i.MimeType = urlMime
		}
	case i.Base64 != "":
		b64 = i.Base64
	default:
		return "", "", ErrEmptyImage
	}

	mimeType = i.MimeType
	if mimeType == "" {
		data := i.Data
		if len(data) == 0 {
			// Only the first bytes are needed for sniffing.
			head := b64
			if len(head) > 16 {
				head = head[:16]
			}
			data, _ = base64.StdEncoding.DecodeString(head)
		}
		mimeType = DetectMIMEType(i.Filename, data)
	}
	return mimeType, b64, nil
}

// DetectMIMEType detects MIME type from filename extension, then by sniffing data.
// It falls back to image/png.
func DetectMIMEType(filename string, data []byte) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".heic":
		return "image/heic"
	}

	if len(data) > 0 {
		if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
			return sniffed
		}
	}

	return "image/png"
}
