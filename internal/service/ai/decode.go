package ai

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes JPEG, PNG, GIF or WebP bytes, applying EXIF orientation
// so phone captures come out upright. Failures are returned as *InputError.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, &InputError{Reason: "empty upload"}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		// x/image/webp rejects some encoder variants that libwebp accepts.
		webpImg, webpErr := webp.Decode(bytes.NewReader(data))
		if webpErr != nil {
			return nil, &InputError{Reason: "unsupported or corrupt image", Err: err}
		}
		img = webpImg
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, &InputError{Reason: "zero-size image"}
	}
	return img, nil
}
