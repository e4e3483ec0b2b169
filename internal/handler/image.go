package handler

import "bytes"

// MaxImageSize caps uploaded input images at 10MB.
const MaxImageSize = 10 * 1024 * 1024

// AllowedImageTypes are the accepted input image formats.
var AllowedImageTypes = map[string]bool{
	"jpeg": true,
	"png":  true,
	"webp": true,
	"gif":  true,
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// DetectImageType sniffs the image format from file header bytes.
// Returns "" when the format is not recognized.
func DetectImageType(data []byte) string {
	if len(data) < 12 {
		return ""
	}
	if bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return "webp"
	}
	if bytes.Equal(data[:8], pngHeader) {
		return "png"
	}
	if data[0] == 0xff && data[1] == 0xd8 {
		return "jpeg"
	}
	if bytes.Equal(data[:6], []byte("GIF87a")) || bytes.Equal(data[:6], []byte("GIF89a")) {
		return "gif"
	}
	return ""
}
