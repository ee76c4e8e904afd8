package donation

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	appErrors "donation-console/pkg/errors"
)

// DefaultMaxImageBytes caps a delivery photo.
const DefaultMaxImageBytes = 5 << 20

// Image is a delivery photo ready to send: a base64 data URL.
type Image struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	DataURL     string `json:"-"`
}

// EncodeImage sniffs data and encodes it as a data URL. Only image types are accepted.
func EncodeImage(name string, data []byte, maxBytes int64) (*Image, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	if len(data) == 0 {
		return nil, appErrors.ErrInvalidImage
	}
	if int64(len(data)) > maxBytes {
		return nil, appErrors.ErrImageTooLarge
	}

	mt := mimetype.Detect(data)
	contentType := mt.String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, appErrors.ErrInvalidImage
	}

	return &Image{
		Name:        name,
		ContentType: contentType,
		Size:        len(data),
		DataURL:     "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}
