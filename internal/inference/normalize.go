package inference

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultImageSize is the square input resolution of the deployed classifier.
const DefaultImageSize = 64

// DefaultMaxPixels bounds the declared width×height of an upload before it
// is decoded.
const DefaultMaxPixels = 4096 * 4096

const channels = 3

// Tensor is a dense float32 batch in NHWC layout.
type Tensor struct {
	Shape []int64
	Data  []float32
}

type Normalizer struct {
	size      int
	maxPixels int64
}

func NewNormalizer(size int) *Normalizer {
	if size <= 0 {
		size = DefaultImageSize
	}
	return &Normalizer{size: size, maxPixels: DefaultMaxPixels}
}

// WithMaxPixels sets the largest accepted width×height. Values <= 0 keep the
// default.
func (n *Normalizer) WithMaxPixels(limit int64) *Normalizer {
	if limit > 0 {
		n.maxPixels = limit
	}
	return n
}

func (n *Normalizer) Shape() []int64 {
	return []int64{1, int64(n.size), int64(n.size), channels}
}

// Normalize decodes data, drops any alpha channel, resizes to size×size and
// scales every channel value from [0,255] to [0,1].
func (n *Normalizer) Normalize(data []byte) (Tensor, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Tensor{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Tensor{}, fmt.Errorf("%w: empty image", ErrDecode)
	}
	if int64(cfg.Width)*int64(cfg.Height) > n.maxPixels {
		return Tensor{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, n.maxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Tensor{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return Tensor{}, fmt.Errorf("%w: empty image", ErrDecode)
	}

	resized := resize.Resize(uint(n.size), uint(n.size), toOpaqueRGB(src), resize.Bicubic)
	rgba, ok := resized.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(resized.Bounds())
		for y := resized.Bounds().Min.Y; y < resized.Bounds().Max.Y; y++ {
			for x := resized.Bounds().Min.X; x < resized.Bounds().Max.X; x++ {
				rgba.Set(x, y, resized.At(x, y))
			}
		}
	}

	data32 := make([]float32, n.size*n.size*channels)
	rb := rgba.Bounds()
	for y := 0; y < n.size; y++ {
		for x := 0; x < n.size; x++ {
			off := rgba.PixOffset(rb.Min.X+x, rb.Min.Y+y)
			dst := (y*n.size + x) * channels
			data32[dst] = float32(rgba.Pix[off]) / 255.0
			data32[dst+1] = float32(rgba.Pix[off+1]) / 255.0
			data32[dst+2] = float32(rgba.Pix[off+2]) / 255.0
		}
	}

	return Tensor{Shape: n.Shape(), Data: data32}, nil
}

// toOpaqueRGB copies the un-premultiplied colour of every pixel into a fully
// opaque RGBA image, so transparent pixels keep their stored colour.
func toOpaqueRGB(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	switch s := src.(type) {
	case *image.NRGBA:
		for y := 0; y < b.Dy(); y++ {
			in := s.Pix[s.PixOffset(b.Min.X, b.Min.Y+y):]
			out := dst.Pix[y*dst.Stride:]
			for x := 0; x < b.Dx(); x++ {
				i := x * 4
				out[i], out[i+1], out[i+2], out[i+3] = in[i], in[i+1], in[i+2], 0xff
			}
		}
		return dst

	case *image.Paletted:
		lut := make([][3]uint8, len(s.Palette))
		for i, c := range s.Palette {
			nc := color.NRGBAModel.Convert(c).(color.NRGBA)
			lut[i] = [3]uint8{nc.R, nc.G, nc.B}
		}
		for y := 0; y < b.Dy(); y++ {
			in := s.Pix[s.PixOffset(b.Min.X, b.Min.Y+y):]
			out := dst.Pix[y*dst.Stride:]
			for x := 0; x < b.Dx(); x++ {
				var rgb [3]uint8
				if int(in[x]) < len(lut) {
					rgb = lut[in[x]]
				}
				i := x * 4
				out[i], out[i+1], out[i+2], out[i+3] = rgb[0], rgb[1], rgb[2], 0xff
			}
		}
		return dst
	}

	// premultiplied sources: fully transparent pixels have no colour left
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	for i := 0; i < len(dst.Pix); i += 4 {
		a := dst.Pix[i+3]
		if a != 0 && a != 0xff {
			dst.Pix[i] = uint8(uint16(dst.Pix[i]) * 0xff / uint16(a))
			dst.Pix[i+1] = uint8(uint16(dst.Pix[i+1]) * 0xff / uint16(a))
			dst.Pix[i+2] = uint8(uint16(dst.Pix[i+2]) * 0xff / uint16(a))
		}
		dst.Pix[i+3] = 0xff
	}
	return dst
}
