package rimage

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func gradient(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}
	return img
}

func TestMakeGray(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(10, 20, 14, 23))
	rgba.Set(10, 20, color.RGBA{255, 255, 255, 255})
	gray := MakeGray(rgba)
	test.That(t, gray.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 3))
	test.That(t, gray.GrayAt(0, 0).Y, test.ShouldEqual, 255)
	test.That(t, gray.GrayAt(1, 0).Y, test.ShouldEqual, 0)

	already := gradient(4, 4)
	test.That(t, MakeGray(already), test.ShouldEqual, already)
	test.That(t, SameImgSize(gray, image.NewGray(image.Rect(5, 5, 9, 8))), test.ShouldBeTrue)
}

func TestDownsample(t *testing.T) {
	small := gradient(640, 480)
	ds := Downsample(small, VGAPixels)
	test.That(t, ds.Image, test.ShouldEqual, small)
	test.That(t, ds.XScale, test.ShouldEqual, 1)
	test.That(t, ds.YScale, test.ShouldEqual, 1)

	big := gradient(1280, 960)
	ds = Downsample(big, VGAPixels)
	test.That(t, ds.Scale, test.ShouldAlmostEqual, 2)
	test.That(t, ds.Image.Bounds().Dx(), test.ShouldEqual, 640)
	test.That(t, ds.Image.Bounds().Dy(), test.ShouldEqual, 480)
	test.That(t, ds.XScale, test.ShouldAlmostEqual, 2)
	test.That(t, ds.YScale, test.ShouldAlmostEqual, 2)

	odd := gradient(1000, 700)
	ds = Downsample(odd, VGAPixels)
	test.That(t, ds.XScale, test.ShouldAlmostEqual, 1000/float64(ds.Image.Bounds().Dx()))
	test.That(t, ds.Image.Bounds().Dx()*ds.Image.Bounds().Dy(), test.ShouldBeLessThanOrEqualTo, VGAPixels)

}

func TestPNGRoundTrip(t *testing.T) {
	img := gradient(32, 16)

	var buf bytes.Buffer
	test.That(t, EncodePNG(&buf, img), test.ShouldBeNil)
	decoded, err := DecodeGray(bytes.NewReader(buf.Bytes()))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded.Pix, test.ShouldResemble, img.Pix)

	path := filepath.Join(t.TempDir(), "left-0000.png")
	test.That(t, os.WriteFile(path, buf.Bytes(), 0o600), test.ShouldBeNil)
	fromFile, err := ReadGrayFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromFile.Pix, test.ShouldResemble, img.Pix)

	_, err = ReadGrayFile(filepath.Join(t.TempDir(), "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
}
