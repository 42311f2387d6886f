package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
)

func TestFloat32sRoundTrip(t *testing.T) {
	src := []float32{0, 1, -2.5, 3.25}
	b := Float32sToBytes(src)
	if len(b) != 16 {
		t.Fatalf("Float32sToBytes() len = %d, want 16", len(b))
	}
	got := BytesToFloat32s(b)
	for i := range src {
		if got[i] != src[i] {
			t.Errorf("BytesToFloat32s()[%d] = %v, want %v", i, got[i], src[i])
		}
	}
	if Float32sToBytes(nil) != nil {
		t.Errorf("Float32sToBytes(nil) should be nil")
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		n, align, want uint64
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{63, 16, 64},
		{7, 0, 7},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.n, tt.align); got != tt.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.n, tt.align, got, tt.want)
		}
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce(0, 0, 3, 4); got != 3 {
		t.Errorf("Coalesce() = %d, want 3", got)
	}
	if got := Coalesce("", ""); got != "" {
		t.Errorf("Coalesce() = %q, want empty", got)
	}
}

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 3))
	for y := range 3 {
		for x := range 2 {
			img.Set(x, y, color.NRGBA{A: 255})
		}
	}
	img.Set(1, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	return img
}

func TestDecodeImage(t *testing.T) {
	encoders := map[string]func(*bytes.Buffer, image.Image) error{
		"png": func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) },
		"bmp": func(b *bytes.Buffer, img image.Image) error { return bmp.Encode(b, img) },
	}
	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := encode(&buf, testImage()); err != nil {
				t.Fatalf("encode: %v", err)
			}
			data, err := DecodeImage(&buf)
			if err != nil {
				t.Fatalf("DecodeImage() error = %v", err)
			}
			if data.Width != 2 || data.Height != 3 {
				t.Fatalf("DecodeImage() size = %dx%d, want 2x3", data.Width, data.Height)
			}
			if len(data.Pixels) != 2*3*4 {
				t.Fatalf("DecodeImage() pixels = %d bytes, want 24", len(data.Pixels))
			}
			px := data.Pixels[(2*2+1)*4:]
			if px[0] != 10 || px[1] != 20 || px[2] != 30 || px[3] != 255 {
				t.Errorf("pixel (1,2) = %v, want [10 20 30 255]", px[:4])
			}
		})
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	if _, err := DecodeImage(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("DecodeImage() error = nil, want error")
	}
}

func TestSolidColor(t *testing.T) {
	d := SolidColor(255, 255, 255, 255)
	if d.Width != 1 || d.Height != 1 || len(d.Pixels) != 4 {
		t.Errorf("SolidColor() = %+v, want 1x1 with 4 bytes", d)
	}
}
