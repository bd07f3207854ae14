// Package transform implements the image transformation pipeline: a pure
// function from encoded bytes plus a spec to re-encoded bytes. It knows
// nothing about ownership or persistence, and every failure it reports is a
// validation error on the input.
package transform

import (
	"bytes"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"

	"image-service/internal/apperr"
	"image-service/internal/models"
)

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

// Apply runs the pipeline stages in fixed order: decode, resize, crop,
// rotate, filters, encode. Each stage runs only when its field is present in
// the spec. Returns the output bytes and their mime type.
func Apply(data []byte, spec models.TransformSpec) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindValidation, "not a decodable image", err)
	}

	if spec.Resize != nil {
		if img, err = resize(img, *spec.Resize); err != nil {
			return nil, "", err
		}
	}

	if spec.Crop != nil {
		if img, err = crop(img, *spec.Crop); err != nil {
			return nil, "", err
		}
	}

	if spec.Rotate != nil {
		img = rotate(img, *spec.Rotate)
	}

	if spec.Filters != nil {
		if img, err = filter(img, *spec.Filters); err != nil {
			return nil, "", err
		}
	}

	return encode(img, spec.Format)
}

func resize(img image.Image, spec models.ResizeSpec) (image.Image, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, apperr.Newf(apperr.KindValidation,
			"resize dimensions must be positive, got %dx%d", spec.Width, spec.Height)
	}
	// Lanczos keeps downscaled photos sharp; cheaper filters visibly degrade.
	return imaging.Resize(img, spec.Width, spec.Height, imaging.Lanczos), nil
}

func crop(img image.Image, spec models.CropSpec) (image.Image, error) {
	bounds := img.Bounds()
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, apperr.Newf(apperr.KindValidation,
			"crop dimensions must be positive, got %dx%d", spec.Width, spec.Height)
	}
	// An out-of-bounds rectangle is rejected, not clamped.
	if spec.X < 0 || spec.Y < 0 ||
		spec.X+spec.Width > bounds.Dx() || spec.Y+spec.Height > bounds.Dy() {
		return nil, apperr.Newf(apperr.KindValidation,
			"crop rectangle (%d,%d %dx%d) exceeds source bounds %dx%d",
			spec.X, spec.Y, spec.Width, spec.Height, bounds.Dx(), bounds.Dy())
	}
	rect := image.Rect(spec.X, spec.Y, spec.X+spec.Width, spec.Y+spec.Height)
	return imaging.Crop(img, rect), nil
}

// rotate applies a clockwise rotation for the three supported angles. Any
// other value is a no-op; that permissiveness is observable behavior and is
// kept as is. The imaging package rotates counter-clockwise, hence the
// swapped constructors.
func rotate(img image.Image, angle float64) image.Image {
	switch angle {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func filter(img image.Image, spec models.FilterSpec) (image.Image, error) {
	if spec.Grayscale {
		img = imaging.Grayscale(img)
	}
	if spec.Blur != nil {
		if *spec.Blur < 0 {
			return nil, apperr.Newf(apperr.KindValidation,
				"blur radius must not be negative, got %v", *spec.Blur)
		}
		img = blur.Gaussian(img, *spec.Blur)
	}
	return img, nil
}

func encode(img image.Image, format string) ([]byte, string, error) {
	if format == "" {
		format = "jpeg"
	}

	var (
		buf      bytes.Buffer
		err      error
		mimeType string
	)
	switch format {
	case "jpeg", "jpg":
		err = imaging.Encode(&buf, img, imaging.JPEG)
		mimeType = MimeJPEG
	case "png":
		err = imaging.Encode(&buf, img, imaging.PNG)
		mimeType = MimePNG
	default:
		return nil, "", apperr.Newf(apperr.KindValidation, "unsupported output format %q", format)
	}
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindValidation, "failed to encode image", err)
	}
	return buf.Bytes(), mimeType, nil
}
