// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the raw pixel data in RGBA8 format, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// SolidColor builds a 1x1 texture filled with the given RGBA color.
//
// Parameters:
//   - r, g, b, a: the color channels
//
// Returns:
//   - TextureStagingData: a single pixel texture
func SolidColor(r, g, b, a uint8) TextureStagingData {
	return TextureStagingData{Pixels: []byte{r, g, b, a}, Width: 1, Height: 1}
}

// SamplerStagingData holds the configuration for a sampler pending GPU creation.
// Zero-valued fields fall back to linear filtering and repeat addressing when the sampler is created.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range.
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// DecodeImage decodes an encoded image into RGBA8 staging data.
// PNG and JPEG are decoded by the standard library; BMP, TIFF and WebP by golang.org/x/image.
//
// Parameters:
//   - r: the encoded image stream
//
// Returns:
//   - TextureStagingData: the decoded pixels and dimensions
//   - error: an error if the stream is not a supported image
func DecodeImage(r io.Reader) (TextureStagingData, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return TextureStagingData{}, fmt.Errorf("decoded %s image has no pixels", format)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, nil
}

// DecodeImageFile opens and decodes the image at path.
//
// Parameters:
//   - path: the file path of the image
//
// Returns:
//   - TextureStagingData: the decoded pixels and dimensions
//   - error: an error if the file cannot be opened or decoded
func DecodeImageFile(path string) (TextureStagingData, error) {
	file, err := os.Open(path)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to open texture file %s: %w", path, err)
	}
	defer file.Close()

	data, err := DecodeImage(file)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("texture file %s: %w", path, err)
	}
	return data, nil
}

// Coalesce returns the first argument that is not the zero value of T, or the zero value.
// Sampler staging data uses it to fill unset fields with defaults.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
