package classifier

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	resizeShortSide = 256
	cropSize        = 224

	// MaxPixels bounds width*height before any pixel buffer is allocated.
	MaxPixels = 40_000_000
)

var (
	channelMean = [3]float32{0.485, 0.456, 0.406}
	channelStd  = [3]float32{0.229, 0.224, 0.225}
)

// Decode decodes JPEG, PNG or WebP bytes. The header is read first so images
// declaring more than MaxPixels are rejected without being decoded.
func Decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &ClassificationError{Reason: "image could not be decoded", Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &ClassificationError{Reason: "image is empty"}
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, &ClassificationError{Reason: fmt.Sprintf("image is too large (%dx%d)", cfg.Width, cfg.Height)}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ClassificationError{Reason: "image could not be decoded", Err: err}
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, &ClassificationError{Reason: "image is empty"}
	}
	return img, nil
}

// Preprocess is equivalent to resizing the short side to 256 and center
// cropping 224x224, returned as an ImageNet-normalized CHW tensor. The crop is
// taken in source coordinates so only a 224x224 buffer is ever allocated.
func Preprocess(img image.Image) []float32 {
	crop := CropRect(img.Bounds())

	dst := image.NewRGBA(image.Rect(0, 0, cropSize, cropSize))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)

	plane := cropSize * cropSize
	tensor := make([]float32, 3*plane)
	for y := 0; y < cropSize; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < cropSize; x++ {
			px := row[x*4:]
			i := y*cropSize + x
			for c := 0; c < 3; c++ {
				tensor[c*plane+i] = (float32(px[c])/255 - channelMean[c]) / channelStd[c]
			}
		}
	}
	return tensor
}

// CropRect maps the centered 224x224 crop of the 256-short-side resize back
// onto bounds. Each side is at least one source pixel.
func CropRect(bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	short := min(w, h)

	side := max((short*cropSize+resizeShortSide/2)/resizeShortSide, 1)
	side = min(side, short)

	left := bounds.Min.X + (w-side)/2
	top := bounds.Min.Y + (h-side)/2
	return image.Rect(left, top, left+side, top+side)
}
