package export

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// imageKind sniffs embedded chart bytes. ok is false for anything that does
// not fully decode as PNG, JPEG or GIF, in which case the chart is left out.
// A valid header over corrupt pixel data is rejected too.
func imageKind(data []byte) (pdfType, ext string, ok bool) {
	if len(data) == 0 {
		return "", "", false
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", "", false
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return "", "", false
	}
	switch format {
	case "png":
		return "PNG", ".png", true
	case "jpeg":
		return "JPG", ".jpg", true
	case "gif":
		return "GIF", ".gif", true
	default:
		return "", "", false
	}
}
