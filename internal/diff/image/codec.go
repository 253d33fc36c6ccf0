package image

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/xerrors"
)

// DecodeConfig reads only the image header with the decoders the comparator
// accepts and returns the format name. A positive maxPixels bounds the area.
func DecodeConfig(data []byte, maxPixels int64) (image.Config, string, error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", err
	}
	if maxPixels > 0 && int64(config.Width)*int64(config.Height) > maxPixels {
		return image.Config{}, "", xerrors.Errorf("%dx%d exceeds %d pixels: %w", config.Width, config.Height, maxPixels, ErrImageTooLarge)
	}
	return config, format, nil
}

func decode(data []byte, maxPixels int64) (image.Image, error) {
	if _, _, err := DecodeConfig(data, maxPixels); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := &png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := encoder.Encode(&buffer, img); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// toNRGBA returns img as non-premultiplied 8-bit RGBA anchored at (0,0).
// NRGBA sources are copied row by row so that fully transparent pixels keep
// their colour channels.
func toNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	if src, ok := img.(*image.NRGBA); ok {
		rowBytes := bounds.Dx() * 4
		for y := 0; y < bounds.Dy(); y++ {
			srcOffset := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+rowBytes], src.Pix[srcOffset:srcOffset+rowBytes])
		}
		return dst
	}

	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			dst.Set(x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return dst
}
