//go:build !tesseract

package ocr

import (
	"errors"
	"image"
)

// Available reports whether OCR support is compiled in. Build with
// -tags tesseract (libtesseract required) to enable it.
func Available() bool { return false }

// ImageText always fails in builds without the tesseract tag.
func ImageText(_ image.Image) (string, error) {
	return "", errors.New("ocr: built without tesseract support")
}
