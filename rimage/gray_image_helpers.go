// Package rimage holds the 8-bit single channel image helpers used by calibration: conversion,
// file reading, VGA downsampling and PNG encoding.
package rimage

import (
	"image"
	"image/draw"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// VGAPixels is the pixel count frames are downsampled to before expensive detection.
const VGAPixels = 640 * 480

// SameImgSize compares images to see if they're the same size.
func SameImgSize(g1, g2 image.Image) bool {
	return g1.Bounds().Dx() == g2.Bounds().Dx() && g1.Bounds().Dy() == g2.Bounds().Dy()
}

// MakeGray converts any image to an 8-bit gray image anchored at (0, 0). Gray inputs with a
// compact stride are returned as is.
func MakeGray(pic image.Image) *image.Gray {
	if gray, ok := pic.(*image.Gray); ok && gray.Rect.Min == (image.Point{}) && gray.Stride == gray.Rect.Dx() {
		return gray
	}
	bounds := pic.Bounds()
	result := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), pic, bounds.Min, draw.Src)
	return result
}

// ReadGrayFile opens an image file of any format imaging understands and converts it to gray.
func ReadGrayFile(path string) (*image.Gray, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read image %q", path)
	}
	return MakeGray(img), nil
}

// DecodeGray decodes an image stream and converts it to gray.
func DecodeGray(r io.Reader) (*image.Gray, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot decode image")
	}
	return MakeGray(img), nil
}

// EncodePNG writes the image as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}

// Downsampled is a frame shrunk towards a target pixel count. XScale and YScale map downsampled
// coordinates back to the full resolution frame.
type Downsampled struct {
	Image  *image.Gray
	Scale  float64
	XScale float64
	YScale float64
}

// Downsample shrinks img so its pixel count is about targetPixels. Frames already at or under the
// target are returned unchanged with unit scales.
func Downsample(img *image.Gray, targetPixels int) Downsampled {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	scale := math.Sqrt(float64(width*height) / float64(targetPixels))
	if scale <= 1 {
		return Downsampled{Image: img, Scale: scale, XScale: 1, YScale: 1}
	}

	newWidth := uint(float64(width) / scale)
	newHeight := uint(float64(height) / scale)
	small := MakeGray(resize.Resize(newWidth, newHeight, img, resize.Bilinear))
	return Downsampled{
		Image:  small,
		Scale:  scale,
		XScale: float64(width) / float64(small.Bounds().Dx()),
		YScale: float64(height) / float64(small.Bounds().Dy()),
	}
}
